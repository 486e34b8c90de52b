package matching

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.PreFilterThreshold != 0.25 {
		t.Errorf("PreFilterThreshold = %v, want 0.25", opts.PreFilterThreshold)
	}
	if opts.ConfidenceThreshold != 0.75 {
		t.Errorf("ConfidenceThreshold = %v, want 0.75", opts.ConfidenceThreshold)
	}
	if opts.BatchSize != 20 {
		t.Errorf("BatchSize = %d, want 20", opts.BatchSize)
	}
	if opts.MaxCandidates != 3 {
		t.Errorf("MaxCandidates = %d, want 3", opts.MaxCandidates)
	}
	if !opts.UseArbiter {
		t.Error("UseArbiter should be enabled by default")
	}
	if err := opts.Validate(); err != nil {
		t.Errorf("default options should be valid: %v", err)
	}
}

func TestOptions_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Options)
		wantErr bool
	}{
		{"defaults", func(o *Options) {}, false},
		{"zero thresholds", func(o *Options) { o.PreFilterThreshold = 0; o.ConfidenceThreshold = 0 }, false},
		{"unit thresholds", func(o *Options) { o.PreFilterThreshold = 1; o.ConfidenceThreshold = 1 }, false},
		{"prefilter above one", func(o *Options) { o.PreFilterThreshold = 1.5 }, true},
		{"negative prefilter", func(o *Options) { o.PreFilterThreshold = -0.1 }, true},
		{"confidence NaN", func(o *Options) { o.ConfidenceThreshold = math.NaN() }, true},
		{"confidence above one", func(o *Options) { o.ConfidenceThreshold = 75 }, true},
		{"zero batch", func(o *Options) { o.BatchSize = 0 }, true},
		{"zero candidates", func(o *Options) { o.MaxCandidates = 0 }, true},
		{"negative delay", func(o *Options) { o.BatchDelay = -time.Second }, true},
		{"negative timeout", func(o *Options) { o.ArbiterTimeout = -1 }, true},
		{"negative progress", func(o *Options) { o.ProgressEvery = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.modify(&opts)

			err := opts.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidOptions) {
				t.Errorf("error should wrap ErrInvalidOptions, got %v", err)
			}
		})
	}
}

func TestOptions_ValidateReportsAllProblems(t *testing.T) {
	opts := DefaultOptions()
	opts.BatchSize = 0
	opts.MaxCandidates = 0

	err := opts.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	for _, part := range []string{"batch size", "max candidates"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error %q should mention %q", msg, part)
		}
	}
}
