package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Sleeper выдерживает паузу с учетом отмены контекста
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext стандартная реализация Sleeper
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ValidatorStats счетчики пакетной валидации
type ValidatorStats struct {
	Enqueued      int `json:"enqueued"`
	Batches       int `json:"batches"`
	FailedBatches int `json:"failed_batches"`
	Accepted      int `json:"accepted"`
	Rejected      int `json:"rejected"`
	Missing       int `json:"missing"`
	Duplicates    int `json:"duplicates"`
}

type pendingPair struct {
	pairID    string
	target    *Record
	candidate ScoredCandidate
}

// BatchValidator копит спорные пары и отправляет их арбитру пакетами фиксированного размера.
// Решения применяются в порядке постановки в очередь: при повторе идентификатора источника
// побеждает первая пара, следующие молча отбрасываются.
// Не потокобезопасен, как и Blacklist, с которым работает.
type BatchValidator struct {
	arbiter   Arbiter
	schema    Schema
	opts      Options
	blacklist *Blacklist
	buffer    []pendingPair
	sleep     Sleeper
	logger    *slog.Logger
	stats     ValidatorStats
}

// ValidatorOption настройка BatchValidator
type ValidatorOption func(*BatchValidator)

// WithValidatorSleeper подменяет паузу между пакетами (для тестов)
func WithValidatorSleeper(sleep Sleeper) ValidatorOption {
	return func(v *BatchValidator) {
		if sleep != nil {
			v.sleep = sleep
		}
	}
}

// WithValidatorLogger задает логгер
func WithValidatorLogger(logger *slog.Logger) ValidatorOption {
	return func(v *BatchValidator) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewBatchValidator создает валидатор поверх общего черного списка
func NewBatchValidator(arbiter Arbiter, schema Schema, opts Options, blacklist *Blacklist, options ...ValidatorOption) *BatchValidator {
	v := &BatchValidator{
		arbiter:   arbiter,
		schema:    schema,
		opts:      opts,
		blacklist: blacklist,
		buffer:    make([]pendingPair, 0, opts.BatchSize),
		sleep:     SleepContext,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(v)
	}
	return v
}

// Enqueue ставит пару в очередь. Когда очередь достигает размера пакета,
// пакет отправляется арбитру, после чего выдерживается пауза BatchDelay.
// Возвращает совпадения, принятые при этой отправке.
func (v *BatchValidator) Enqueue(ctx context.Context, target *Record, candidate ScoredCandidate) []MatchResult {
	v.buffer = append(v.buffer, pendingPair{
		pairID:    PairID(target.String(v.schema.TargetID), candidate.Record.String(v.schema.SourceID)),
		target:    target,
		candidate: candidate,
	})
	v.stats.Enqueued++

	if len(v.buffer) < v.opts.BatchSize {
		return nil
	}

	results := v.Flush(ctx)
	if err := v.sleep(ctx, v.opts.BatchDelay); err != nil {
		v.logger.Debug("batch pause interrupted", "error", err)
	}
	return results
}

// Drain отправляет неполный остаток очереди в конце запуска (без паузы)
func (v *BatchValidator) Drain(ctx context.Context) []MatchResult {
	if len(v.buffer) == 0 {
		return nil
	}
	return v.Flush(ctx)
}

// Pending возвращает количество пар в очереди
func (v *BatchValidator) Pending() int {
	return len(v.buffer)
}

// Stats возвращает счетчики валидатора
func (v *BatchValidator) Stats() ValidatorStats {
	return v.stats
}

// Flush отправляет всю очередь одним запросом и очищает ее.
// Сбой арбитра (сеть, таймаут, неразборчивый ответ) отбрасывает весь пакет без повтора.
func (v *BatchValidator) Flush(ctx context.Context) []MatchResult {
	if len(v.buffer) == 0 {
		return nil
	}
	batch := v.buffer
	v.buffer = make([]pendingPair, 0, v.opts.BatchSize)
	v.stats.Batches++

	pairs := make([]PairRequest, len(batch))
	for i, item := range batch {
		pairs[i] = PairRequest{
			PairID:     item.pairID,
			SourceText: item.candidate.Record.String(v.schema.SourceDescription),
			TargetText: item.target.String(v.schema.TargetDescription),
		}
	}

	started := time.Now()
	verdicts, err := v.callArbiter(ctx, pairs)
	if err != nil {
		v.stats.FailedBatches++
		v.logger.Warn("arbiter batch dropped",
			"batch", v.stats.Batches,
			"pairs", len(pairs),
			"duration", time.Since(started),
			"error", err)
		return nil
	}

	var results []MatchResult
	for _, item := range batch {
		verdict, ok := verdicts[item.pairID]
		if !ok {
			v.stats.Missing++
			continue
		}
		// NaN не проходит сравнение и отклоняется
		if !verdict.IsMatch || !(verdict.Confidence >= v.opts.ConfidenceThreshold) {
			v.stats.Rejected++
			continue
		}

		sourceID := item.candidate.Record.String(v.schema.SourceID)
		if !v.blacklist.IsAvailable(sourceID) {
			v.stats.Duplicates++
			continue
		}
		if err := v.blacklist.Consume(sourceID); err != nil {
			v.stats.Duplicates++
			continue
		}

		results = append(results, newVerifiedResult(v.schema, item.candidate.Record, item.target, item.candidate.Similarity, verdict))
		v.stats.Accepted++
	}

	v.logger.Debug("arbiter batch processed",
		"batch", v.stats.Batches,
		"pairs", len(pairs),
		"accepted", len(results),
		"duration", time.Since(started))

	return results
}

// callArbiter вызывает арбитра с таймаутом и изолирует панику внешней реализации
func (v *BatchValidator) callArbiter(ctx context.Context, pairs []PairRequest) (verdicts map[string]Verdict, err error) {
	if v.opts.ArbiterTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.opts.ArbiterTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			verdicts = nil
			err = fmt.Errorf("arbiter panic: %v", r)
		}
	}()

	verdicts, err = v.arbiter.ValidateBatch(ctx, pairs)
	if err == nil && verdicts == nil {
		verdicts = map[string]Verdict{}
	}
	return verdicts, err
}
