// Package reconciliation координирует запуск сверки, корректуру колонок и историю запусков
package reconciliation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cotejo/database"
	"cotejo/matching"
	"cotejo/normalization/algorithms"
	"cotejo/proofreading"
)

// ErrProofreadingDisabled корректура не настроена
var ErrProofreadingDisabled = errors.New("proofreading is not configured")

// ErrHistoryDisabled история запусков не ведется (база не настроена)
var ErrHistoryDisabled = errors.New("run history is not configured")

// RunRepository хранилище истории запусков
type RunRepository interface {
	CreateRun(ctx context.Context, sourceName, targetName string, schema matching.Schema, opts matching.Options) (*database.Run, error)
	FinishRun(ctx context.Context, id string, report *matching.Report, runErr error) error
	ListRuns(ctx context.Context, limit int) ([]database.Run, error)
	GetRun(ctx context.Context, id string) (*database.Run, error)
	GetResults(ctx context.Context, id string) ([]matching.MatchResult, error)
}

// UseCase связывает ядро сверки с арбитром, корректором и историей запусков.
// Любая зависимость, кроме токенизатора, может отсутствовать.
type UseCase struct {
	runs      RunRepository
	arbiter   matching.Arbiter
	corrector proofreading.Corrector
	tokenizer *algorithms.TextNormalizer
	logger    *slog.Logger
}

// NewUseCase создает use case сверки
func NewUseCase(
	runs RunRepository,
	arbiter matching.Arbiter,
	corrector proofreading.Corrector,
	tokenizer *algorithms.TextNormalizer,
	logger *slog.Logger,
) *UseCase {
	if logger == nil {
		logger = slog.Default()
	}
	if tokenizer == nil {
		tokenizer = algorithms.NewTextNormalizer(nil)
	}
	return &UseCase{
		runs:      runs,
		arbiter:   arbiter,
		corrector: corrector,
		tokenizer: tokenizer,
		logger:    logger,
	}
}

// ReconcileRequest входные данные запуска
type ReconcileRequest struct {
	SourceName string
	TargetName string
	Source     []*matching.Record
	Target     []*matching.Record
	Schema     matching.Schema
	Options    matching.Options
	Progress   func(matching.Progress)
	// Дополнительные настройки оркестратора (пауза, часы)
	ReconcilerOptions []matching.Option
}

// ReconcileResult итог запуска; RunID пуст, если история не ведется
type ReconcileResult struct {
	RunID  string           `json:"run_id,omitempty"`
	Report *matching.Report `json:"report"`
}

// Reconcile выполняет сверку и сохраняет запуск в истории.
// Ошибки конфигурации возвращаются до регистрации запуска.
// При отмене возвращается частичный результат вместе с ошибкой контекста.
func (uc *UseCase) Reconcile(ctx context.Context, req ReconcileRequest) (*ReconcileResult, error) {
	options := []matching.Option{
		matching.WithLogger(uc.logger),
		matching.WithTokenizer(uc.tokenizer),
	}
	if req.Progress != nil {
		options = append(options, matching.WithProgress(req.Progress))
	}
	options = append(options, req.ReconcilerOptions...)

	var arbiter matching.Arbiter
	if req.Options.UseArbiter {
		arbiter = uc.arbiter
	}
	reconciler, err := matching.NewReconciler(req.Schema, req.Options, arbiter, options...)
	if err != nil {
		return nil, err
	}
	if err := req.Schema.CheckColumns(req.Source, req.Target); err != nil {
		return nil, err
	}

	result := &ReconcileResult{}
	if uc.runs != nil {
		run, err := uc.runs.CreateRun(ctx, req.SourceName, req.TargetName, req.Schema, req.Options)
		if err != nil {
			return nil, fmt.Errorf("failed to register run: %w", err)
		}
		result.RunID = run.ID
	}

	report, runErr := reconciler.Reconcile(ctx, req.Source, req.Target)
	result.Report = report

	if result.RunID != "" {
		// запуск сохраняется и после отмены исходного контекста
		if err := uc.runs.FinishRun(context.WithoutCancel(ctx), result.RunID, report, runErr); err != nil {
			uc.logger.Error("failed to save run", "run_id", result.RunID, "error", err)
		} else {
			uc.logger.Info("run saved", "run_id", result.RunID, "source", req.SourceName, "target", req.TargetName)
		}
	}
	return result, runErr
}

// CorrectColumn корректирует колонку записей
func (uc *UseCase) CorrectColumn(ctx context.Context, records []*matching.Record, opts proofreading.ColumnOptions) (proofreading.ColumnStats, error) {
	if uc.corrector == nil {
		return proofreading.ColumnStats{}, ErrProofreadingDisabled
	}
	if opts.Logger == nil {
		opts.Logger = uc.logger
	}
	return proofreading.CorrectColumn(ctx, uc.corrector, records, opts)
}

// CorrectText корректирует одну строку
func (uc *UseCase) CorrectText(ctx context.Context, text string) (string, error) {
	if uc.corrector == nil {
		return "", ErrProofreadingDisabled
	}
	return uc.corrector.Correct(ctx, text), nil
}

// ListRuns возвращает последние запуски
func (uc *UseCase) ListRuns(ctx context.Context, limit int) ([]database.Run, error) {
	if uc.runs == nil {
		return nil, ErrHistoryDisabled
	}
	return uc.runs.ListRuns(ctx, limit)
}

// GetRun возвращает запуск вместе с результатами
func (uc *UseCase) GetRun(ctx context.Context, id string) (*database.Run, []matching.MatchResult, error) {
	if uc.runs == nil {
		return nil, nil, ErrHistoryDisabled
	}
	run, err := uc.runs.GetRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	results, err := uc.runs.GetResults(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, results, nil
}

// HasArbiter сообщает, настроен ли арбитр
func (uc *UseCase) HasArbiter() bool {
	return uc.arbiter != nil
}
