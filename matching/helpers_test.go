package matching

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"
)

func testSchema() Schema {
	return Schema{
		SourceDescription: "desc",
		SourceID:          "id",
		TargetDescription: "desc",
		TargetStatus:      "status",
		TargetID:          "id",
	}
}

func sourceRow(id, desc string) *Record {
	return NewRecordWithColumns([]string{"id", "desc"}, []any{id, desc})
}

func targetRow(id, desc string) *Record {
	return NewRecordWithColumns([]string{"id", "desc", "status"}, []any{id, desc, "I-INCLUIDO"})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingSleeper запоминает запрошенные паузы и не спит
type recordingSleeper struct {
	mu     sync.Mutex
	pauses []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, d)
	return nil
}

func (s *recordingSleeper) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pauses)
}

// scriptedArbiter отвечает по заданной функции и запоминает размеры пакетов
type scriptedArbiter struct {
	mu      sync.Mutex
	batches [][]PairRequest
	respond func(call int, pairs []PairRequest) (map[string]Verdict, error)
}

func (a *scriptedArbiter) ValidateBatch(_ context.Context, pairs []PairRequest) (map[string]Verdict, error) {
	a.mu.Lock()
	call := len(a.batches)
	copied := make([]PairRequest, len(pairs))
	copy(copied, pairs)
	a.batches = append(a.batches, copied)
	a.mu.Unlock()

	if a.respond == nil {
		return approveAll(0.9)(call, pairs)
	}
	return a.respond(call, pairs)
}

func (a *scriptedArbiter) BatchSizes() []int {
	a.mu.Lock()
	defer a.mu.Unlock()
	sizes := make([]int, len(a.batches))
	for i, batch := range a.batches {
		sizes[i] = len(batch)
	}
	return sizes
}

func approveAll(confidence float64) func(int, []PairRequest) (map[string]Verdict, error) {
	return func(_ int, pairs []PairRequest) (map[string]Verdict, error) {
		verdicts := make(map[string]Verdict, len(pairs))
		for _, pair := range pairs {
			verdicts[pair.PairID] = Verdict{IsMatch: true, Confidence: confidence, Rationale: "same item"}
		}
		return verdicts, nil
	}
}
