package proofreading

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotejo/matching"
)

func rows(values ...any) []*matching.Record {
	out := make([]*matching.Record, len(values))
	for i, v := range values {
		out[i] = matching.NewRecordWithColumns([]string{"id", "descricao"}, []any{i, v})
	}
	return out
}

func TestCorrectColumn(t *testing.T) {
	var inFlight, maxInFlight int32
	corrector := CorrectorFunc(func(ctx context.Context, text string) string {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			m := atomic.LoadInt32(&maxInFlight)
			if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return strings.ReplaceAll(text, "parafuzo", "parafuso")
	})

	var mu sync.Mutex
	var pauses []time.Duration
	sleep := func(_ context.Context, d time.Duration) error {
		mu.Lock()
		defer mu.Unlock()
		pauses = append(pauses, d)
		return nil
	}

	records := rows("parafuzo inox", "", "porca", nil, "parafuzo aço", "arruela", "parafuzo")
	stats, err := CorrectColumn(context.Background(), corrector, records, ColumnOptions{
		Column:     "descricao",
		GroupDelay: 1500 * time.Millisecond,
		Sleep:      sleep,
		Logger:     quietLogger(),
	})
	require.NoError(t, err)

	assert.Equal(t, "descricao_corrigida", stats.Output)
	assert.Equal(t, 7, stats.Rows)
	assert.Equal(t, 3, stats.Groups)
	assert.Equal(t, 2, stats.Blank)
	assert.Equal(t, 3, stats.Changed)
	assert.Equal(t, 2, stats.Unchanged)
	assert.Equal(t, []time.Duration{1500 * time.Millisecond, 1500 * time.Millisecond}, pauses)
	assert.LessOrEqual(t, atomic.LoadInt32(&maxInFlight), int32(DefaultConcurrency))

	want := []string{"parafuso inox", "", "porca", "", "parafuso aço", "arruela", "parafuso"}
	for i, record := range records {
		assert.Equal(t, want[i], record.String("descricao_corrigida"), "row %d", i)
		assert.Equal(t, []string{"id", "descricao", "descricao_corrigida"}, record.Columns())
	}
	assert.Equal(t, "parafuzo inox", records[0].String("descricao"))
}

func TestCorrectColumn_CustomOutputAndConcurrency(t *testing.T) {
	corrector := CorrectorFunc(func(_ context.Context, text string) string { return strings.ToUpper(text) })
	records := rows("a", "b", "c", "d")

	stats, err := CorrectColumn(context.Background(), corrector, records, ColumnOptions{
		Column:      "descricao",
		Output:      "desc_ok",
		Concurrency: 2,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		Logger:      quietLogger(),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Groups)
	assert.Equal(t, "D", records[3].String("desc_ok"))
}

func TestCorrectColumn_Errors(t *testing.T) {
	corrector := CorrectorFunc(func(_ context.Context, text string) string { return text })

	_, err := CorrectColumn(context.Background(), corrector, rows("a"), ColumnOptions{})
	assert.ErrorIs(t, err, matching.ErrInvalidOptions)

	_, err = CorrectColumn(context.Background(), corrector, rows("a"), ColumnOptions{Column: "nome"})
	assert.ErrorIs(t, err, matching.ErrUnknownColumn)

	stats, err := CorrectColumn(context.Background(), corrector, nil, ColumnOptions{Column: "nome"})
	assert.NoError(t, err)
	assert.Zero(t, stats.Rows)
}

func TestCorrectColumn_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	corrector := CorrectorFunc(func(_ context.Context, text string) string { return text + "!" })

	records := rows("a", "b", "c", "d", "e")
	stats, err := CorrectColumn(ctx, corrector, records, ColumnOptions{
		Column:      "descricao",
		Concurrency: 2,
		Sleep: func(ctx context.Context, _ time.Duration) error {
			cancel()
			return ctx.Err()
		},
		Logger: quietLogger(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, "a!", records[0].String("descricao_corrigida"))
	assert.False(t, records[2].Has("descricao_corrigida"))
}

func TestCorrectColumn_CancelledMidGroup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	corrector := CorrectorFunc(func(_ context.Context, text string) string {
		cancel()
		return text + "!"
	})

	records := rows("a", "b", "c")
	stats, err := CorrectColumn(ctx, corrector, records, ColumnOptions{
		Column:      "descricao",
		Concurrency: 3,
		Sleep:       func(context.Context, time.Duration) error { return nil },
		Logger:      quietLogger(),
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, stats.Groups)
	for _, record := range records {
		assert.False(t, record.Has("descricao_corrigida"))
	}
}
