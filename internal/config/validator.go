package config

import (
	"fmt"
	"strconv"
	"strings"

	"cotejo/internal/infrastructure/ai"
	"cotejo/normalization/algorithms"
)

var (
	validLogLevels  = []string{"DEBUG", "INFO", "WARN", "ERROR"}
	validLogFormats = []string{"auto", "text", "json"}
)

// Validate проверяет корректность конфигурации и возвращает все найденные ошибки разом
func (c *Config) Validate() error {
	var errors []string

	// Валидация порта
	if c.Port == "" {
		errors = append(errors, "port is required")
	} else {
		port, err := strconv.Atoi(c.Port)
		if err != nil {
			errors = append(errors, fmt.Sprintf("invalid port: %s", c.Port))
		} else if port < 1 || port > 65535 {
			errors = append(errors, fmt.Sprintf("port must be between 1 and 65535, got %d", port))
		}
	}

	// Валидация логирования
	if c.LogLevel != "" && !contains(validLogLevels, strings.ToUpper(c.LogLevel)) {
		errors = append(errors, fmt.Sprintf("invalid log level: %s (valid: %s)",
			c.LogLevel, strings.Join(validLogLevels, ", ")))
	}
	if c.LogFormat != "" && !contains(validLogFormats, strings.ToLower(c.LogFormat)) {
		errors = append(errors, fmt.Sprintf("invalid log format: %s (valid: %s)",
			c.LogFormat, strings.Join(validLogFormats, ", ")))
	}

	errors = append(errors, c.Matching.validate()...)
	errors = append(errors, c.Arbiter.validate()...)
	errors = append(errors, c.Proofreading.validate()...)

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}
	return nil
}

func (m MatchingConfig) validate() []string {
	var errors []string
	// NaN не проходит ни одно из сравнений
	if !(m.PreFilterThreshold >= 0 && m.PreFilterThreshold <= 1) {
		errors = append(errors, fmt.Sprintf("prefilter threshold must be between 0 and 1, got %v", m.PreFilterThreshold))
	}
	if !(m.ConfidenceThreshold >= 0 && m.ConfidenceThreshold <= 1) {
		errors = append(errors, fmt.Sprintf("confidence threshold must be between 0 and 1, got %v", m.ConfidenceThreshold))
	}
	if m.BatchSize < 1 {
		errors = append(errors, "batch size must be at least 1")
	}
	if m.MaxCandidates < 1 {
		errors = append(errors, "max candidates must be at least 1")
	}
	if m.BatchDelay < 0 {
		errors = append(errors, "batch delay cannot be negative")
	}
	if m.ArbiterTimeout < 0 {
		errors = append(errors, "arbiter timeout cannot be negative")
	}
	if m.ProgressEvery < 0 {
		errors = append(errors, "progress interval cannot be negative")
	}
	if m.StemLanguage != "" && !algorithms.IsStemLanguageSupported(m.StemLanguage) {
		errors = append(errors, fmt.Sprintf("unsupported stem language: %s (valid: %s)",
			m.StemLanguage, strings.Join(algorithms.SupportedStemLanguages, ", ")))
	}
	return errors
}

// ключ API проверяется при создании клиента: без арбитра он не нужен
func (a ArbiterConfig) validate() []string {
	var errors []string
	if !ai.IsProviderSupported(a.Provider) {
		errors = append(errors, fmt.Sprintf("unknown arbiter provider: %s (valid: %s)",
			a.Provider, strings.Join(ai.SupportedProviders(), ", ")))
	}
	if a.Timeout.Std() <= 0 {
		errors = append(errors, "arbiter request timeout must be positive")
	}
	if a.RPM < 0 {
		errors = append(errors, "arbiter RPM cannot be negative")
	}
	if a.Temperature < 0 || a.Temperature > 2 {
		errors = append(errors, "arbiter temperature must be between 0 and 2")
	}
	if _, err := ai.ParseStrategy(a.Strategy); err != nil {
		errors = append(errors, err.Error())
	}
	for i, f := range a.Fallbacks {
		if !ai.IsProviderSupported(f.Provider) {
			errors = append(errors, fmt.Sprintf("unknown fallback arbiter provider #%d: %s", i+1, f.Provider))
		}
	}
	return errors
}

func (p ProofreadingConfig) validate() []string {
	var errors []string
	if p.BaseURL == "" {
		errors = append(errors, "proofreading base URL is required")
	}
	if p.Language == "" {
		errors = append(errors, "proofreading language is required")
	}
	if p.Timeout.Std() <= 0 {
		errors = append(errors, "proofreading timeout must be positive")
	}
	if p.Interval < 0 {
		errors = append(errors, "proofreading interval cannot be negative")
	}
	if p.Concurrency < 1 {
		errors = append(errors, "proofreading concurrency must be at least 1")
	}
	if p.GroupDelay < 0 {
		errors = append(errors, "proofreading group delay cannot be negative")
	}
	return errors
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}
