package matching

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cotejo/normalization/algorithms"
)

// Progress снимок хода сверки для периодического отчета
type Progress struct {
	Processed   int
	Total       int
	Matches     int
	Elapsed     time.Duration
	ItemsPerSec float64
	Remaining   time.Duration
}

// RunStats итоговая статистика запуска
type RunStats struct {
	SourceRows       int                        `json:"source_rows"`
	TargetRows       int                        `json:"target_rows"`
	Processed        int                        `json:"processed"`
	Matches          int                        `json:"matches"`
	NoCandidates     int                        `json:"no_candidates"`
	BelowThreshold   int                        `json:"below_threshold"`
	DirectDuplicates int                        `json:"direct_duplicates"`
	RowErrors        int                        `json:"row_errors"`
	Validator        ValidatorStats             `json:"validator"`
	Index            algorithms.TokenIndexStats `json:"index"`
	IndexBuild       time.Duration              `json:"index_build_ns"`
	Elapsed          time.Duration              `json:"elapsed_ns"`
}

// ItemsPerSecond пропускная способность: обработанные строки / прошедшее время
func (s RunStats) ItemsPerSecond() float64 {
	return itemsPerSecond(s.Processed, s.Elapsed)
}

func itemsPerSecond(processed int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(processed) / elapsed.Seconds()
}

// Report результат одного запуска сверки
type Report struct {
	Results []MatchResult `json:"results"`
	Stats   RunStats      `json:"stats"`
}

// Reconciler сопоставляет строки целевого набора со строками источника.
// Один экземпляр можно использовать для нескольких запусков последовательно:
// индекс, черный список и очередь валидации создаются заново на каждый запуск.
type Reconciler struct {
	schema    Schema
	opts      Options
	arbiter   Arbiter
	tokenizer *algorithms.TextNormalizer
	logger    *slog.Logger
	sleep     Sleeper
	now       func() time.Time
	progress  func(Progress)
}

// Option настройка Reconciler
type Option func(*Reconciler)

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithTokenizer задает токенизатор (например, со стеммингом)
func WithTokenizer(tokenizer *algorithms.TextNormalizer) Option {
	return func(r *Reconciler) {
		if tokenizer != nil {
			r.tokenizer = tokenizer
		}
	}
}

// WithSleeper подменяет паузу между пакетами арбитра
func WithSleeper(sleep Sleeper) Option {
	return func(r *Reconciler) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithClock подменяет источник времени для расчета пропускной способности
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithProgress подписывает на периодические отчеты о прогрессе
func WithProgress(fn func(Progress)) Option {
	return func(r *Reconciler) {
		r.progress = fn
	}
}

// NewReconciler проверяет конфигурацию и создает оркестратор.
// arbiter может быть nil, только если валидация арбитром выключена.
func NewReconciler(schema Schema, opts Options, arbiter Arbiter, options ...Option) (*Reconciler, error) {
	if err := schema.Validate(); err != nil {
		return nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.UseArbiter && arbiter == nil {
		return nil, ErrArbiterRequired
	}

	r := &Reconciler{
		schema:    schema,
		opts:      opts,
		arbiter:   arbiter,
		tokenizer: algorithms.NewTextNormalizer(nil),
		logger:    slog.Default(),
		sleep:     SleepContext,
		now:       time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r, nil
}

// Options возвращает параметры запуска
func (r *Reconciler) Options() Options {
	return r.opts
}

// Schema возвращает схему колонок
func (r *Reconciler) Schema() Schema {
	return r.schema
}

// runState изменяемое состояние одного запуска
type runState struct {
	retriever *Retriever
	scorer    *Scorer
	blacklist *Blacklist
	validator *BatchValidator
	results   []MatchResult
	stats     RunStats
}

// Reconcile выполняет сверку. Строки цели обрабатываются в исходном порядке.
// Пустой источник или цель дают пустой отчет без ошибки.
// Ошибка конфигурации (неизвестная колонка) возвращается до обработки первой строки.
// При отмене ctx обработка останавливается между строками и возвращается частичный отчет вместе с ctx.Err().
func (r *Reconciler) Reconcile(ctx context.Context, source, target []*Record) (*Report, error) {
	started := r.now()
	report := &Report{
		Results: []MatchResult{},
		Stats: RunStats{
			SourceRows: len(source),
			TargetRows: len(target),
		},
	}

	if len(source) == 0 || len(target) == 0 {
		r.logger.Warn("empty record set, nothing to reconcile",
			"source_rows", len(source),
			"target_rows", len(target))
		return report, nil
	}

	if err := r.schema.CheckColumns(source, target); err != nil {
		return nil, err
	}

	indexStarted := r.now()
	state := &runState{
		retriever: NewRetriever(source, r.schema, r.tokenizer),
		scorer:    NewScorer(r.schema.SourceDescription, r.opts.PreFilterThreshold, r.tokenizer),
		blacklist: NewBlacklist(),
		results:   make([]MatchResult, 0),
		stats:     report.Stats,
	}
	state.stats.IndexBuild = r.now().Sub(indexStarted)
	state.stats.Index = state.retriever.Index().GetStats()

	if r.opts.UseArbiter {
		state.validator = NewBatchValidator(r.arbiter, r.schema, r.opts, state.blacklist,
			WithValidatorSleeper(r.sleep),
			WithValidatorLogger(r.logger))
	}

	r.logger.Info("reconciliation started",
		"source_rows", len(source),
		"target_rows", len(target),
		"index_tokens", state.stats.Index.TotalTokens,
		"index_build", state.stats.IndexBuild,
		"use_arbiter", r.opts.UseArbiter)

	var runErr error
	for i, row := range target {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.processRow(ctx, state, i, row)
		state.stats.Processed++

		if r.opts.ProgressEvery > 0 && state.stats.Processed%r.opts.ProgressEvery == 0 {
			r.reportProgress(state, started)
		}
	}

	if state.validator != nil {
		if runErr == nil {
			state.results = append(state.results, state.validator.Drain(ctx)...)
		} else if pending := state.validator.Pending(); pending > 0 {
			r.logger.Warn("reconciliation cancelled, pending pairs discarded", "pending", pending)
		}
		state.stats.Validator = state.validator.Stats()
	}

	state.stats.Matches = len(state.results)
	state.stats.Elapsed = r.now().Sub(started)
	report.Results = state.results
	report.Stats = state.stats

	r.logger.Info("reconciliation finished",
		"matches", state.stats.Matches,
		"processed", state.stats.Processed,
		"target_rows", state.stats.TargetRows,
		"elapsed", state.stats.Elapsed,
		"items_per_sec", fmt.Sprintf("%.2f", state.stats.ItemsPerSecond()))

	return report, runErr
}

// processRow обрабатывает одну строку цели; паника изолируется в пределах строки
func (r *Reconciler) processRow(ctx context.Context, state *runState, position int, row *Record) {
	defer func() {
		if rec := recover(); rec != nil {
			state.stats.RowErrors++
			r.logger.Error("row processing failed",
				"row", position,
				"target_id", safeString(row, r.schema.TargetID),
				"error", rec)
		}
	}()

	query := row.String(r.schema.TargetDescription)
	candidates := state.retriever.Retrieve(query, state.blacklist, r.opts.MaxCandidates)
	if len(candidates) == 0 {
		state.stats.NoCandidates++
		return
	}

	best, ok := state.scorer.Refine(candidates, query)
	if !ok {
		state.stats.BelowThreshold++
		return
	}

	if state.validator != nil {
		state.results = append(state.results, state.validator.Enqueue(ctx, row, best)...)
		return
	}

	sourceID := best.Record.String(r.schema.SourceID)
	if !state.blacklist.IsAvailable(sourceID) {
		state.stats.DirectDuplicates++
		return
	}
	if err := state.blacklist.Consume(sourceID); err != nil {
		state.stats.DirectDuplicates++
		return
	}
	state.results = append(state.results, newMatchResult(r.schema, best.Record, row, best.Similarity))
}

func (r *Reconciler) reportProgress(state *runState, started time.Time) {
	elapsed := r.now().Sub(started)
	rate := itemsPerSecond(state.stats.Processed, elapsed)
	left := state.stats.TargetRows - state.stats.Processed

	var remaining time.Duration
	if rate > 0 {
		remaining = time.Duration(float64(left) / rate * float64(time.Second))
	}

	p := Progress{
		Processed:   state.stats.Processed,
		Total:       state.stats.TargetRows,
		Matches:     len(state.results),
		Elapsed:     elapsed,
		ItemsPerSec: rate,
		Remaining:   remaining,
	}

	r.logger.Info("reconciliation progress",
		"processed", p.Processed,
		"total", p.Total,
		"matches", p.Matches,
		"items_per_sec", fmt.Sprintf("%.2f", p.ItemsPerSec),
		"remaining", p.Remaining.Round(time.Second))

	if r.progress != nil {
		r.progress(p)
	}
}

func safeString(row *Record, column string) (value string) {
	defer func() {
		if recover() != nil {
			value = ""
		}
	}()
	return row.String(column)
}
