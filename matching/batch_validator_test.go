package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validatorOptions(batchSize int) Options {
	opts := DefaultOptions()
	opts.BatchSize = batchSize
	opts.BatchDelay = 1500 * time.Millisecond
	return opts
}

func scored(source *Record, similarity float64) ScoredCandidate {
	return ScoredCandidate{Candidate: Candidate{Record: source}, Similarity: similarity}
}

func TestBatchValidator_BatchBoundary(t *testing.T) {
	arbiter := &scriptedArbiter{}
	sleeper := &recordingSleeper{}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(2), NewBlacklist(),
		WithValidatorSleeper(sleeper.Sleep),
		WithValidatorLogger(discardLogger()))
	ctx := context.Background()

	var results []MatchResult
	for i := 1; i <= 5; i++ {
		target := targetRow(fmt.Sprintf("G%d", i), "item")
		source := sourceRow(fmt.Sprintf("C%d", i), "item")
		results = append(results, v.Enqueue(ctx, target, scored(source, 0.5))...)
	}

	assert.Equal(t, []int{2, 2}, arbiter.BatchSizes())
	assert.Equal(t, 2, sleeper.Count())
	assert.Equal(t, 1, v.Pending())

	results = append(results, v.Drain(ctx)...)

	assert.Equal(t, []int{2, 2, 1}, arbiter.BatchSizes())
	assert.Equal(t, 2, sleeper.Count(), "drain must not pause")
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, sleeper.pauses)
	assert.Equal(t, 0, v.Pending())
	require.Len(t, results, 5)

	stats := v.Stats()
	assert.Equal(t, 5, stats.Enqueued)
	assert.Equal(t, 3, stats.Batches)
	assert.Equal(t, 5, stats.Accepted)
}

func TestBatchValidator_RequestContents(t *testing.T) {
	arbiter := &scriptedArbiter{}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(10), NewBlacklist(),
		WithValidatorLogger(discardLogger()))

	v.Enqueue(context.Background(), targetRow("G7", "parafuso philips"), scored(sourceRow("C3", "Parafuso Phillips"), 0.4))
	results := v.Drain(context.Background())

	require.Len(t, arbiter.batches, 1)
	assert.Equal(t, []PairRequest{{PairID: "G7_C3", SourceText: "Parafuso Phillips", TargetText: "parafuso philips"}}, arbiter.batches[0])

	require.Len(t, results, 1)
	r := results[0]
	assert.Equal(t, "C3", r.SourceID)
	assert.Equal(t, "G7", r.TargetID)
	assert.Equal(t, "I-INCLUIDO", r.TargetStatus)
	assert.Equal(t, 40, r.Similarity)
	require.True(t, r.HasVerdict())
	assert.Equal(t, 90, *r.ArbiterConfidence)
	assert.Equal(t, "same item", r.ArbiterRationale)
}

func TestBatchValidator_ConfidenceThreshold(t *testing.T) {
	tests := []struct {
		name       string
		verdict    Verdict
		wantAccept bool
	}{
		{"below threshold", Verdict{IsMatch: true, Confidence: 0.60}, false},
		{"at threshold", Verdict{IsMatch: true, Confidence: 0.75}, true},
		{"above threshold", Verdict{IsMatch: true, Confidence: 0.95}, true},
		{"not a match", Verdict{IsMatch: false, Confidence: 0.99}, false},
		{"NaN confidence", Verdict{IsMatch: true, Confidence: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			arbiter := &scriptedArbiter{respond: func(_ int, pairs []PairRequest) (map[string]Verdict, error) {
				return map[string]Verdict{pairs[0].PairID: tt.verdict}, nil
			}}
			v := NewBatchValidator(arbiter, testSchema(), validatorOptions(1), NewBlacklist(),
				WithValidatorSleeper(func(context.Context, time.Duration) error { return nil }),
				WithValidatorLogger(discardLogger()))

			results := v.Enqueue(context.Background(), targetRow("G1", "x"), scored(sourceRow("C1", "x"), 0.5))
			if tt.wantAccept {
				assert.Len(t, results, 1)
			} else {
				assert.Empty(t, results)
				assert.Equal(t, 1, v.Stats().Rejected)
			}
		})
	}
}

func TestBatchValidator_FailedBatchIsDropped(t *testing.T) {
	arbiter := &scriptedArbiter{respond: func(call int, pairs []PairRequest) (map[string]Verdict, error) {
		if call == 0 {
			return nil, errors.New("connection reset")
		}
		return approveAll(0.9)(call, pairs)
	}}
	sleeper := &recordingSleeper{}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(2), NewBlacklist(),
		WithValidatorSleeper(sleeper.Sleep),
		WithValidatorLogger(discardLogger()))
	ctx := context.Background()

	var results []MatchResult
	for i := 1; i <= 4; i++ {
		results = append(results, v.Enqueue(ctx, targetRow(fmt.Sprintf("G%d", i), "x"), scored(sourceRow(fmt.Sprintf("C%d", i), "x"), 0.5))...)
	}

	require.Len(t, results, 2)
	assert.Equal(t, "G3", results[0].TargetID)
	assert.Equal(t, "G4", results[1].TargetID)
	assert.Equal(t, 1, v.Stats().FailedBatches)
	assert.Equal(t, 2, sleeper.Count(), "pacing applies to failed batches too")
}

func TestBatchValidator_PanickingArbiterIsIsolated(t *testing.T) {
	arbiter := ArbiterFunc(func(context.Context, []PairRequest) (map[string]Verdict, error) {
		panic("boom")
	})
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(5), NewBlacklist(),
		WithValidatorLogger(discardLogger()))

	v.Enqueue(context.Background(), targetRow("G1", "x"), scored(sourceRow("C1", "x"), 0.5))

	var results []MatchResult
	require.NotPanics(t, func() { results = v.Drain(context.Background()) })
	assert.Empty(t, results)
	assert.Equal(t, 1, v.Stats().FailedBatches)
}

func TestBatchValidator_TimeoutDropsBatch(t *testing.T) {
	arbiter := ArbiterFunc(func(ctx context.Context, _ []PairRequest) (map[string]Verdict, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	opts := validatorOptions(5)
	opts.ArbiterTimeout = 10 * time.Millisecond
	v := NewBatchValidator(arbiter, testSchema(), opts, NewBlacklist(),
		WithValidatorLogger(discardLogger()))

	v.Enqueue(context.Background(), targetRow("G1", "x"), scored(sourceRow("C1", "x"), 0.5))
	assert.Empty(t, v.Drain(context.Background()))
	assert.Equal(t, 1, v.Stats().FailedBatches)
}

func TestBatchValidator_MissingVerdictIsDropped(t *testing.T) {
	arbiter := &scriptedArbiter{respond: func(_ int, pairs []PairRequest) (map[string]Verdict, error) {
		return map[string]Verdict{
			pairs[1].PairID: {IsMatch: true, Confidence: 0.8},
			"unrelated_id":  {IsMatch: true, Confidence: 1},
		}, nil
	}}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(5), NewBlacklist(),
		WithValidatorLogger(discardLogger()))
	ctx := context.Background()

	v.Enqueue(ctx, targetRow("G1", "x"), scored(sourceRow("C1", "x"), 0.5))
	v.Enqueue(ctx, targetRow("G2", "x"), scored(sourceRow("C2", "x"), 0.5))
	results := v.Drain(ctx)

	require.Len(t, results, 1)
	assert.Equal(t, "G2", results[0].TargetID)
	assert.Equal(t, 1, v.Stats().Missing)
}

func TestBatchValidator_FirstConsumerWins(t *testing.T) {
	bl := NewBlacklist()
	arbiter := &scriptedArbiter{}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(2), bl,
		WithValidatorSleeper(func(context.Context, time.Duration) error { return nil }),
		WithValidatorLogger(discardLogger()))
	ctx := context.Background()
	shared := sourceRow("C1", "x")

	var results []MatchResult
	results = append(results, v.Enqueue(ctx, targetRow("G1", "x"), scored(shared, 0.5))...)
	results = append(results, v.Enqueue(ctx, targetRow("G2", "x"), scored(shared, 0.9))...)
	// следующий пакет тоже не может занять C1
	results = append(results, v.Enqueue(ctx, targetRow("G3", "x"), scored(shared, 1))...)
	results = append(results, v.Drain(ctx)...)

	require.Len(t, results, 1)
	assert.Equal(t, "G1", results[0].TargetID)
	assert.False(t, bl.IsAvailable("C1"))
	assert.Equal(t, 2, v.Stats().Duplicates)
}

func TestBatchValidator_DrainEmptyQueue(t *testing.T) {
	arbiter := &scriptedArbiter{}
	v := NewBatchValidator(arbiter, testSchema(), validatorOptions(3), NewBlacklist())

	assert.Nil(t, v.Drain(context.Background()))
	assert.Empty(t, arbiter.BatchSizes())
}

func TestSleepContext(t *testing.T) {
	assert.NoError(t, SleepContext(context.Background(), 0))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := SleepContext(ctx, time.Hour)
	assert.ErrorIs(t, err, context.Canceled)
}
