package algorithms

import (
	"math"
	"testing"
)

func TestJaccardIndex_Similarity(t *testing.T) {
	jaccard := NewJaccardIndex(nil)

	tests := []struct {
		name     string
		text1    string
		text2    string
		expected float64
	}{
		{"identical", "Parafuso Phillips 3mm", "parafuso phillips 3mm", 1.0},
		{"partial", "Parafuso Phillips 3mm", "parafuso philips 3 mm", 0.25},
		{"disjoint", "tubo pvc", "cabo flexivel", 0.0},
		{"both empty", "", "", 0.0},
		{"one empty", "tubo pvc", "", 0.0},
		{"only short tokens", "a b c", "a b c", 0.0},
		{"duplicates ignored", "luva luva pvc", "luva pvc", 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := jaccard.Similarity(tt.text1, tt.text2)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %v, want %v", tt.text1, tt.text2, got, tt.expected)
			}
		})
	}
}

func TestJaccardIndex_Symmetric(t *testing.T) {
	jaccard := NewJaccardIndex(nil)

	pairs := [][2]string{
		{"Registro esfera 3/4 bronze", "registro de esfera bronze"},
		{"Luva PVC soldável 25mm", "luva soldavel 25mm marrom"},
		{"", "algo"},
	}
	for _, pair := range pairs {
		ab := jaccard.Similarity(pair[0], pair[1])
		ba := jaccard.Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity not symmetric for %q / %q: %v vs %v", pair[0], pair[1], ab, ba)
		}
	}
}
