package matching_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotejo/internal/fixtures"
	"cotejo/matching"
)

func catalog(seed int64) fixtures.Catalog {
	return fixtures.Generate(fixtures.Options{
		Seed:       seed,
		SourceRows: 300,
		TargetRows: 400,
		NoiseRate:  0.4,
		OrphanRate: 0.2,
	})
}

func runDirect(t *testing.T, c fixtures.Catalog, threshold float64) *matching.Report {
	t.Helper()
	opts := matching.DefaultOptions()
	opts.UseArbiter = false
	opts.PreFilterThreshold = threshold
	opts.ProgressEvery = 0

	r, err := matching.NewReconciler(fixtures.Schema(), opts, nil,
		matching.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	report, err := r.Reconcile(context.Background(), c.Source, c.Target)
	require.NoError(t, err)
	return report
}

func assertAtMostOnce(t *testing.T, results []matching.MatchResult) {
	t.Helper()
	sources := make(map[string]bool)
	targets := make(map[string]bool)
	for _, m := range results {
		assert.False(t, sources[m.SourceID], "source %s matched twice", m.SourceID)
		assert.False(t, targets[m.TargetID], "target %s matched twice", m.TargetID)
		sources[m.SourceID] = true
		targets[m.TargetID] = true
	}
}

func TestProperty_AtMostOneMatchPerSource(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		report := runDirect(t, catalog(seed), 0.25)
		assert.NotEmpty(t, report.Results)
		assertAtMostOnce(t, report.Results)
	}
}

func TestProperty_AtMostOneMatchWithArbiter(t *testing.T) {
	c := catalog(11)
	opts := matching.DefaultOptions()
	opts.BatchSize = 7
	opts.BatchDelay = 0

	approve := matching.ArbiterFunc(func(_ context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
		verdicts := make(map[string]matching.Verdict, len(pairs))
		for _, p := range pairs {
			verdicts[p.PairID] = matching.Verdict{IsMatch: true, Confidence: 0.8}
		}
		return verdicts, nil
	})

	r, err := matching.NewReconciler(fixtures.Schema(), opts, approve,
		matching.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	require.NoError(t, err)

	report, err := r.Reconcile(context.Background(), c.Source, c.Target)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Results)
	assertAtMostOnce(t, report.Results)
	assert.Equal(t, report.Stats.Validator.Accepted, len(report.Results))
}

func TestProperty_DeterministicWithoutArbiter(t *testing.T) {
	c := catalog(3)

	first, err := json.Marshal(runDirect(t, c, 0.25).Results)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := json.Marshal(runDirect(t, c, 0.25).Results)
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestProperty_ThresholdMonotonicity(t *testing.T) {
	c := catalog(5)

	previous := -1
	for _, threshold := range []float64{0, 0.1, 0.25, 0.4, 0.6, 0.8, 1} {
		matches := len(runDirect(t, c, threshold).Results)
		if previous >= 0 {
			assert.LessOrEqual(t, matches, previous, "threshold %.2f", threshold)
		}
		previous = matches
	}
}
