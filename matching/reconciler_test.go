package matching

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func directOptions(threshold float64) Options {
	opts := DefaultOptions()
	opts.UseArbiter = false
	opts.PreFilterThreshold = threshold
	return opts
}

func newTestReconciler(t *testing.T, opts Options, arbiter Arbiter, extra ...Option) *Reconciler {
	t.Helper()
	options := append([]Option{WithLogger(discardLogger())}, extra...)
	r, err := NewReconciler(testSchema(), opts, arbiter, options...)
	require.NoError(t, err)
	return r
}

func TestReconcile_PhillipsScenario(t *testing.T) {
	r := newTestReconciler(t, directOptions(0.2), nil)
	source := []*Record{sourceRow("C1", "Parafuso Phillips 3mm")}
	target := []*Record{targetRow("G1", "parafuso philips 3 mm")}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	m := report.Results[0]
	assert.Equal(t, "C1", m.SourceID)
	assert.Equal(t, "G1", m.TargetID)
	assert.Equal(t, "I-INCLUIDO", m.TargetStatus)
	assert.GreaterOrEqual(t, m.Similarity, 20)
	assert.False(t, m.HasVerdict())
	assert.Equal(t, 1, report.Stats.Matches)
	assert.Equal(t, 1, report.Stats.Processed)
}

func TestReconcile_FirstTargetWinsContestedSource(t *testing.T) {
	r := newTestReconciler(t, directOptions(0.2), nil)
	source := []*Record{sourceRow("C1", "Chave de fenda isolada")}
	target := []*Record{
		targetRow("G1", "chave fenda isolada"),
		targetRow("G2", "chave fenda isolada"),
	}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "G1", report.Results[0].TargetID)
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 1, report.Stats.NoCandidates)
}

func TestReconcile_EmptyInputs(t *testing.T) {
	r := newTestReconciler(t, directOptions(0.25), nil)
	rows := []*Record{sourceRow("C1", "parafuso")}

	tests := []struct {
		name   string
		source []*Record
		target []*Record
	}{
		{"empty source", nil, []*Record{targetRow("G1", "parafuso")}},
		{"empty target", rows, nil},
		{"both empty", nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := r.Reconcile(context.Background(), tt.source, tt.target)
			require.NoError(t, err)
			require.NotNil(t, report)
			assert.Empty(t, report.Results)
			assert.NotNil(t, report.Results)
		})
	}
}

func TestReconcile_UnknownColumnRejectedBeforeRun(t *testing.T) {
	calls := 0
	arbiter := ArbiterFunc(func(context.Context, []PairRequest) (map[string]Verdict, error) {
		calls++
		return nil, nil
	})
	r := newTestReconciler(t, DefaultOptions(), arbiter)
	source := []*Record{NewRecordWithColumns([]string{"codigo", "desc"}, []any{"C1", "parafuso"})}
	target := []*Record{targetRow("G1", "parafuso")}

	report, err := r.Reconcile(context.Background(), source, target)
	assert.Nil(t, report)
	assert.ErrorIs(t, err, ErrUnknownColumn)
	assert.Zero(t, calls)
}

func TestNewReconciler_ConfigErrors(t *testing.T) {
	badThreshold := DefaultOptions()
	badThreshold.PreFilterThreshold = 1.2

	_, err := NewReconciler(testSchema(), badThreshold, nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)

	_, err = NewReconciler(testSchema(), DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrArbiterRequired)

	_, err = NewReconciler(Schema{}, directOptions(0.25), nil)
	assert.ErrorIs(t, err, ErrInvalidOptions)
}

func TestReconcile_ArbiterMode(t *testing.T) {
	arbiter := &scriptedArbiter{respond: func(_ int, pairs []PairRequest) (map[string]Verdict, error) {
		verdicts := make(map[string]Verdict)
		for _, p := range pairs {
			switch p.PairID {
			case "G1_C1":
				verdicts[p.PairID] = Verdict{IsMatch: true, Confidence: 0.92, Rationale: "same screw"}
			case "G2_C2":
				verdicts[p.PairID] = Verdict{IsMatch: true, Confidence: 0.60}
			}
		}
		return verdicts, nil
	}}
	sleeper := &recordingSleeper{}
	opts := DefaultOptions()
	opts.BatchSize = 2
	r := newTestReconciler(t, opts, arbiter, WithSleeper(sleeper.Sleep))

	source := []*Record{
		sourceRow("C1", "parafuso phillips inox 3mm"),
		sourceRow("C2", "porca sextavada zincada"),
		sourceRow("C3", "arruela lisa latao"),
	}
	target := []*Record{
		targetRow("G1", "parafuso phillips inox 3mm"),
		targetRow("G2", "porca sextavada zincada"),
		targetRow("G3", "arruela lisa latao"),
	}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)

	assert.Equal(t, []int{2, 1}, arbiter.BatchSizes())
	assert.Equal(t, 1, sleeper.Count())
	require.Len(t, report.Results, 1)
	assert.Equal(t, "C1", report.Results[0].SourceID)
	assert.Equal(t, 92, *report.Results[0].ArbiterConfidence)
	assert.Equal(t, "same screw", report.Results[0].ArbiterRationale)

	v := report.Stats.Validator
	assert.Equal(t, 3, v.Enqueued)
	assert.Equal(t, 1, v.Accepted)
	assert.Equal(t, 1, v.Rejected)
	assert.Equal(t, 1, v.Missing)
}

func TestReconcile_ArbiterFailureKeepsRunGoing(t *testing.T) {
	arbiter := ArbiterFunc(func(context.Context, []PairRequest) (map[string]Verdict, error) {
		return nil, errors.New("service unavailable")
	})
	opts := DefaultOptions()
	opts.BatchSize = 1
	r := newTestReconciler(t, opts, arbiter, WithSleeper(func(context.Context, time.Duration) error { return nil }))

	source := []*Record{sourceRow("C1", "parafuso inox"), sourceRow("C2", "porca inox")}
	target := []*Record{targetRow("G1", "parafuso inox"), targetRow("G2", "porca inox")}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)
	assert.Empty(t, report.Results)
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Equal(t, 2, report.Stats.Validator.FailedBatches)
}

type explodingStringer struct{}

func (explodingStringer) String() string { panic("malformed cell") }

func TestReconcile_RowPanicIsIsolated(t *testing.T) {
	r := newTestReconciler(t, directOptions(0.2), nil)
	source := []*Record{sourceRow("C1", "parafuso inox"), sourceRow("C2", "porca inox")}
	target := []*Record{
		NewRecordWithColumns([]string{"id", "desc", "status"}, []any{"G1", explodingStringer{}, "x"}),
		targetRow("G2", "porca inox"),
	}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Stats.RowErrors)
	assert.Equal(t, 2, report.Stats.Processed)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "G2", report.Results[0].TargetID)
}

func TestReconcile_CancelReturnsPartialReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := directOptions(0.2)
	opts.ProgressEvery = 2
	r := newTestReconciler(t, opts, nil, WithProgress(func(p Progress) {
		if p.Processed == 2 {
			cancel()
		}
	}))

	var source, target []*Record
	for i := 0; i < 5; i++ {
		desc := fmt.Sprintf("item modelo%d especial", i)
		source = append(source, sourceRow(fmt.Sprintf("C%d", i), desc))
		target = append(target, targetRow(fmt.Sprintf("G%d", i), desc))
	}

	report, err := r.Reconcile(ctx, source, target)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Stats.Processed)
	assert.Len(t, report.Results, 2)
}

func TestReconcile_ProgressUsesElapsedTime(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}

	var reports []Progress
	opts := directOptions(0.2)
	opts.ProgressEvery = 2
	r := newTestReconciler(t, opts, nil,
		WithClock(clock),
		WithProgress(func(p Progress) { reports = append(reports, p) }))

	var source, target []*Record
	for i := 0; i < 4; i++ {
		desc := fmt.Sprintf("peca codigo%d", i)
		source = append(source, sourceRow(fmt.Sprintf("C%d", i), desc))
		target = append(target, targetRow(fmt.Sprintf("G%d", i), desc))
	}

	report, err := r.Reconcile(context.Background(), source, target)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	assert.Equal(t, 2, reports[0].Processed)
	assert.Equal(t, 4, reports[0].Total)
	assert.Greater(t, reports[0].ItemsPerSec, 0.0)
	assert.InDelta(t, float64(reports[0].Processed)/reports[0].Elapsed.Seconds(), reports[0].ItemsPerSec, 1e-9)
	assert.Equal(t, 4, reports[1].Processed)
	assert.Zero(t, reports[1].Remaining)

	assert.Greater(t, report.Stats.Elapsed, time.Duration(0))
	assert.InDelta(t, 4/report.Stats.Elapsed.Seconds(), report.Stats.ItemsPerSecond(), 1e-9)
}
