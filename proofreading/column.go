package proofreading

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cotejo/matching"
)

const (
	// DefaultConcurrency строк, исправляемых одновременно
	DefaultConcurrency = 3
	// DefaultGroupDelay пауза между группами строк
	DefaultGroupDelay = 1500 * time.Millisecond
	// OutputSuffix суффикс колонки с исправленным текстом по умолчанию
	OutputSuffix = "_corrigida"
)

// ColumnOptions параметры исправления колонки
type ColumnOptions struct {
	Column      string
	Output      string // пусто = Column + OutputSuffix
	Concurrency int
	GroupDelay  time.Duration
	Sleep       matching.Sleeper
	Logger      *slog.Logger
}

// ColumnStats итог исправления колонки
type ColumnStats struct {
	Rows      int           `json:"rows"`
	Blank     int           `json:"blank"`
	Changed   int           `json:"changed"`
	Unchanged int           `json:"unchanged"`
	Groups    int           `json:"groups"`
	Output    string        `json:"output"`
	Elapsed   time.Duration `json:"elapsed_ns"`
}

// OutputColumn имя колонки результата
func (o ColumnOptions) OutputColumn() string {
	if strings.TrimSpace(o.Output) != "" {
		return o.Output
	}
	return o.Column + OutputSuffix
}

// CorrectColumn исправляет текст колонки во всех записях и пишет результат в новую колонку.
// Строки обрабатываются группами по Concurrency одновременно, между группами выдерживается GroupDelay.
// Пустая ячейка дает пустой результат без обращения к сервису.
// При отмене ctx возвращается ошибка; уже обработанные группы остаются записанными.
func CorrectColumn(ctx context.Context, corrector Corrector, records []*matching.Record, opts ColumnOptions) (ColumnStats, error) {
	if strings.TrimSpace(opts.Column) == "" {
		return ColumnStats{}, fmt.Errorf("%w: column to correct is not set", matching.ErrInvalidOptions)
	}
	if len(records) > 0 && !records[0].Has(opts.Column) {
		return ColumnStats{}, fmt.Errorf("%w: %q", matching.ErrUnknownColumn, opts.Column)
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.GroupDelay < 0 {
		opts.GroupDelay = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = matching.SleepContext
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	output := opts.OutputColumn()
	stats := ColumnStats{Rows: len(records), Output: output}
	started := time.Now()

	for start := 0; start < len(records); start += opts.Concurrency {
		if start > 0 {
			if err := opts.Sleep(ctx, opts.GroupDelay); err != nil {
				stats.Elapsed = time.Since(started)
				return stats, err
			}
		}
		if err := ctx.Err(); err != nil {
			stats.Elapsed = time.Since(started)
			return stats, err
		}

		end := min(start+opts.Concurrency, len(records))
		group := records[start:end]
		originals := make([]string, len(group))
		corrected := make([]string, len(group))
		for i, record := range group {
			originals[i] = record.String(opts.Column)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := range group {
			if strings.TrimSpace(originals[i]) == "" {
				continue
			}
			g.Go(func() error {
				corrected[i] = corrector.Correct(gctx, originals[i])
				return gctx.Err()
			})
		}
		// прерванная группа не записывается: часть строк вернулась без исправлений
		if err := g.Wait(); err != nil {
			stats.Elapsed = time.Since(started)
			return stats, err
		}

		// записи меняются только здесь, в одном потоке
		for i, record := range group {
			switch {
			case strings.TrimSpace(originals[i]) == "":
				record.Set(output, "")
				stats.Blank++
			case corrected[i] != originals[i]:
				record.Set(output, corrected[i])
				stats.Changed++
			default:
				record.Set(output, corrected[i])
				stats.Unchanged++
			}
		}
		stats.Groups++

		logger.Debug("correction group done", "rows", end, "total", len(records))
	}

	stats.Elapsed = time.Since(started)
	logger.Info("column correction finished",
		"column", opts.Column,
		"output", output,
		"rows", stats.Rows,
		"changed", stats.Changed,
		"elapsed", stats.Elapsed)
	return stats, nil
}
