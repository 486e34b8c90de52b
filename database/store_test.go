package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cotejo/internal/infrastructure/ai"
	"cotejo/matching"
)

var _ ai.VerdictStore = (*Store)(nil)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := OpenWithConfig(":memory:", Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testSchema() matching.Schema {
	return matching.Schema{
		SourceDescription: "descricao",
		SourceID:          "codigo",
		TargetDescription: "descricao_item",
		TargetStatus:      "status",
		TargetID:          "id",
	}
}

func testReport() *matching.Report {
	confidence := 88
	return &matching.Report{
		Results: []matching.MatchResult{
			{SourceID: "C1", TargetID: "G1", SourceDescription: "parafuso m8", TargetDescription: "Parafuso M8", TargetStatus: "ativo", Similarity: 100},
			{SourceID: "C2", TargetID: "G2", SourceDescription: "luva pvc", TargetDescription: "Luva PVC 25", TargetStatus: "ativo", Similarity: 67, ArbiterConfidence: &confidence, ArbiterRationale: "mesma peça"},
		},
		Stats: matching.RunStats{SourceRows: 3, TargetRows: 2, Processed: 2, Matches: 2, Elapsed: 1500 * time.Millisecond},
	}
}

func TestStore_RunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "cliente.xlsx", "galileu.xlsx", testSchema(), matching.DefaultOptions())
	require.NoError(t, err)
	assert.Len(t, run.ID, 36)
	assert.Equal(t, RunRunning, run.Status)

	require.NoError(t, store.FinishRun(ctx, run.ID, testReport(), nil))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, got.Status)
	assert.Equal(t, "cliente.xlsx", got.SourceName)
	assert.Equal(t, testSchema(), got.Schema)
	assert.Equal(t, matching.DefaultOptions(), got.Options)
	require.NotNil(t, got.Stats)
	assert.Equal(t, 2, got.Stats.Matches)
	assert.Equal(t, 1500*time.Millisecond, got.Stats.Elapsed)
	assert.Equal(t, 2, got.ResultCount)
	assert.NotNil(t, got.FinishedAt)

	results, err := store.GetResults(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, testReport().Results, results)
}

func TestStore_FinishRunStatuses(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tests := []struct {
		err  error
		want RunStatus
	}{
		{nil, RunCompleted},
		{context.Canceled, RunCancelled},
		{errors.New("arquivo corrompido"), RunFailed},
	}
	for _, tt := range tests {
		run, err := store.CreateRun(ctx, "a", "b", testSchema(), matching.DefaultOptions())
		require.NoError(t, err)
		require.NoError(t, store.FinishRun(ctx, run.ID, nil, tt.err))

		got, err := store.GetRun(ctx, run.ID)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got.Status)
		assert.Nil(t, got.Stats)
		if tt.err != nil {
			assert.Equal(t, tt.err.Error(), got.Error)
		}
	}
}

func TestStore_ListRuns(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	var ids []string
	for i := 0; i < 3; i++ {
		run, err := store.CreateRun(ctx, "a", "b", testSchema(), matching.DefaultOptions())
		require.NoError(t, err)
		ids = append(ids, run.ID)
		now = now.Add(time.Minute)
	}

	runs, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_NotFound(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetRun(ctx, "nao-existe")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.GetResults(ctx, "nao-existe")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.FinishRun(ctx, "nao-existe", nil, nil), ErrNotFound)
	assert.ErrorIs(t, store.DeleteRun(ctx, "nao-existe"), ErrNotFound)
}

func TestStore_DeleteRunCascades(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "a", "b", testSchema(), matching.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, run.ID, testReport(), nil))
	require.NoError(t, store.DeleteRun(ctx, run.ID))

	var n int
	require.NoError(t, store.DB().QueryRow(`SELECT COUNT(*) FROM run_results`).Scan(&n))
	assert.Zero(t, n)
}

func TestStore_DeleteRunCascadesOnEveryConnection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cotejo.db")
	store, err := OpenWithConfig(path, Config{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	run, err := store.CreateRun(ctx, "a", "b", testSchema(), matching.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, store.FinishRun(ctx, run.ID, testReport(), nil))

	// первое соединение занято, удаление идет через новое соединение пула
	held, err := store.DB().Conn(ctx)
	require.NoError(t, err)
	defer held.Close()

	require.NoError(t, store.DeleteRun(ctx, run.ID))

	var n int
	require.NoError(t, store.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM run_results`).Scan(&n))
	assert.Zero(t, n)
}

func TestWithForeignKeys(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"cotejo.db", "cotejo.db?_foreign_keys=on"},
		{":memory:", ":memory:?_foreign_keys=on"},
		{"file:x.db?cache=shared", "file:x.db?cache=shared&_foreign_keys=on"},
		{"x.db?_foreign_keys=off", "x.db?_foreign_keys=off"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, withForeignKeys(tt.in), tt.in)
	}
}

func TestStore_Verdicts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	keyA := ai.VerdictKey("m", "parafuso", "Parafuso M8")
	keyB := ai.VerdictKey("m", "porca", "Arruela")
	require.NoError(t, store.SaveVerdicts(ctx, map[string]matching.Verdict{
		keyA: {IsMatch: true, Confidence: 0.9, Rationale: "mesmo item"},
		keyB: {IsMatch: false, Confidence: 0.1},
	}))

	found, err := store.LoadVerdicts(ctx, []string{keyA, keyB, "ausente"})
	require.NoError(t, err)
	assert.Len(t, found, 2)
	assert.Equal(t, matching.Verdict{IsMatch: true, Confidence: 0.9, Rationale: "mesmo item"}, found[keyA])
	assert.False(t, found[keyB].IsMatch)

	require.NoError(t, store.SaveVerdicts(ctx, map[string]matching.Verdict{keyB: {IsMatch: true, Confidence: 0.7}}))
	found, err = store.LoadVerdicts(ctx, []string{keyB})
	require.NoError(t, err)
	assert.True(t, found[keyB].IsMatch)

	count, err := store.CountVerdicts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	require.NoError(t, store.ClearVerdicts(ctx))
	count, err = store.CountVerdicts(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStore_LoadVerdictsManyKeys(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	keys := make([]string, 1200)
	for i := range keys {
		keys[i] = ai.VerdictKey("m", "s", string(rune('a'+i%26))+time.Duration(i).String())
	}
	require.NoError(t, store.SaveVerdicts(ctx, map[string]matching.Verdict{keys[1100]: {IsMatch: true, Confidence: 1}}))

	found, err := store.LoadVerdicts(ctx, keys)
	require.NoError(t, err)
	assert.Len(t, found, 1)
	assert.Contains(t, found, keys[1100])

	found, err = store.LoadVerdicts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, found)
}

func TestStore_CachedClient(t *testing.T) {
	store := openTestStore(t)
	inner := ai.NewMockClient(0.5)
	client := ai.NewCachedClient(inner, store, ai.NewMetricsCollector(), nil)

	pairs := []matching.PairRequest{{PairID: "G1_C1", SourceText: "parafuso sextavado m8", TargetText: "parafuso sextavado m8 zincado"}}
	first, err := client.ValidateBatch(context.Background(), pairs)
	require.NoError(t, err)
	second, err := client.ValidateBatch(context.Background(), pairs)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.Calls())
}

func TestOpen_FileReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cotejo.db")

	store, err := Open(path)
	require.NoError(t, err)
	run, err := store.CreateRun(context.Background(), "a", "b", testSchema(), matching.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = Open(path)
	require.NoError(t, err)
	defer store.Close()
	got, err := store.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
}
