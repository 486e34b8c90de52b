package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func retrieverFixture() (*Retriever, []*Record) {
	source := []*Record{
		sourceRow("C0", "Parafuso sextavado inox"),
		sourceRow("C1", "Parafuso Phillips inox"),
		sourceRow("C2", "Porca sextavada"),
		sourceRow("C3", "Parafuso Phillips aço"),
	}
	return NewRetriever(source, testSchema(), nil), source
}

func positions(candidates []Candidate) []int {
	out := make([]int, len(candidates))
	for i, c := range candidates {
		out[i] = c.Position
	}
	return out
}

func TestRetriever_RanksByHitsThenRowOrder(t *testing.T) {
	r, source := retrieverFixture()

	got := r.Retrieve("parafuso phillips inox", NewBlacklist(), 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{1, 0, 3}, positions(got))
	assert.Equal(t, 3, got[0].Hits)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
	assert.InDelta(t, 2.0/3.0, got[1].Score, 1e-9)
	assert.Same(t, source[1], got[0].Record)
}

func TestRetriever_LimitsCandidates(t *testing.T) {
	r, _ := retrieverFixture()

	got := r.Retrieve("parafuso phillips inox", NewBlacklist(), 2)
	assert.Equal(t, []int{1, 0}, positions(got))
}

func TestRetriever_SkipsBlacklisted(t *testing.T) {
	r, _ := retrieverFixture()
	bl := NewBlacklist()
	require.NoError(t, bl.Consume("C1"))

	got := r.Retrieve("parafuso phillips inox", bl, 3)
	assert.Equal(t, []int{0, 3}, positions(got))
}

func TestRetriever_EmptyResults(t *testing.T) {
	r, _ := retrieverFixture()

	tests := []struct {
		name  string
		query string
	}{
		{"empty query", ""},
		{"only short tokens", "m3 x 10"},
		{"unknown tokens", "martelo borracha"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, r.Retrieve(tt.query, NewBlacklist(), 3))
		})
	}
}

func TestRetriever_DuplicateQueryTokensCountTwice(t *testing.T) {
	r, _ := retrieverFixture()

	got := r.Retrieve("inox inox", nil, 3)
	require.Len(t, got, 2)
	assert.Equal(t, []int{0, 1}, positions(got))
	assert.Equal(t, 2, got[0].Hits)
	assert.InDelta(t, 1.0, got[0].Score, 1e-9)
}

func TestRetriever_IndexAndSourceID(t *testing.T) {
	r, _ := retrieverFixture()

	assert.Equal(t, 4, r.Index().Rows())
	assert.Equal(t, "C2", r.SourceID(2))
	assert.Equal(t, []int{0, 1, 3}, r.Index().Lookup("parafuso"))
}
