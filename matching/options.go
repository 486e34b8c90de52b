package matching

import (
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultPreFilterThreshold минимальный коэффициент Жаккара кандидата
	DefaultPreFilterThreshold = 0.25
	// DefaultConfidenceThreshold минимальная уверенность арбитра
	DefaultConfidenceThreshold = 0.75
	// DefaultBatchSize пар в одном запросе к арбитру
	DefaultBatchSize = 20
	// DefaultMaxCandidates кандидатов на одну строку
	DefaultMaxCandidates = 3
	// DefaultBatchDelay пауза после каждого полного пакета
	DefaultBatchDelay = time.Second
	// DefaultArbiterTimeout таймаут одного вызова арбитра
	DefaultArbiterTimeout = 2 * time.Minute
	// DefaultProgressEvery период отчета о прогрессе (в строках)
	DefaultProgressEvery = 1000
)

// Options параметры одного запуска сверки; не меняются во время запуска
type Options struct {
	PreFilterThreshold  float64       `json:"prefilter_threshold"`
	ConfidenceThreshold float64       `json:"confidence_threshold"`
	BatchSize           int           `json:"batch_size"`
	MaxCandidates       int           `json:"max_candidates"`
	UseArbiter          bool          `json:"use_arbiter"`
	BatchDelay          time.Duration `json:"batch_delay"`
	ArbiterTimeout      time.Duration `json:"arbiter_timeout"` // 0 = без отдельного таймаута
	ProgressEvery       int           `json:"progress_every"`  // 0 = без отчетов
}

// DefaultOptions возвращает параметры по умолчанию
func DefaultOptions() Options {
	return Options{
		PreFilterThreshold:  DefaultPreFilterThreshold,
		ConfidenceThreshold: DefaultConfidenceThreshold,
		BatchSize:           DefaultBatchSize,
		MaxCandidates:       DefaultMaxCandidates,
		UseArbiter:          true,
		BatchDelay:          DefaultBatchDelay,
		ArbiterTimeout:      DefaultArbiterTimeout,
		ProgressEvery:       DefaultProgressEvery,
	}
}

// Validate проверяет корректность параметров; возвращает все найденные ошибки разом
func (o Options) Validate() error {
	var errors []string

	if !(o.PreFilterThreshold >= 0 && o.PreFilterThreshold <= 1) {
		errors = append(errors, fmt.Sprintf("prefilter threshold must be between 0 and 1, got %v", o.PreFilterThreshold))
	}
	if !(o.ConfidenceThreshold >= 0 && o.ConfidenceThreshold <= 1) {
		errors = append(errors, fmt.Sprintf("confidence threshold must be between 0 and 1, got %v", o.ConfidenceThreshold))
	}
	if o.BatchSize < 1 {
		errors = append(errors, fmt.Sprintf("batch size must be at least 1, got %d", o.BatchSize))
	}
	if o.MaxCandidates < 1 {
		errors = append(errors, fmt.Sprintf("max candidates must be at least 1, got %d", o.MaxCandidates))
	}
	if o.BatchDelay < 0 {
		errors = append(errors, "batch delay must not be negative")
	}
	if o.ArbiterTimeout < 0 {
		errors = append(errors, "arbiter timeout must not be negative")
	}
	if o.ProgressEvery < 0 {
		errors = append(errors, "progress interval must not be negative")
	}

	if len(errors) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidOptions, strings.Join(errors, "; "))
	}
	return nil
}
