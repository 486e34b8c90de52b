package config

import (
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"cotejo/internal/infrastructure/ai"
	"cotejo/matching"
	"cotejo/normalization/algorithms"
	"cotejo/proofreading"
)

// Config конфигурация приложения
type Config struct {
	// Сервер
	Port string `toml:"port" json:"port"`

	// База истории запусков и кэша решений; пусто = без базы
	DatabasePath string `toml:"database_path" json:"database_path"`

	// Логирование
	LogLevel  string `toml:"log_level" json:"log_level"`
	LogFormat string `toml:"log_format" json:"log_format"`

	Matching     MatchingConfig     `toml:"matching" json:"matching"`
	Arbiter      ArbiterConfig      `toml:"arbiter" json:"arbiter"`
	Proofreading ProofreadingConfig `toml:"proofreading" json:"proofreading"`
	Columns      ColumnsConfig      `toml:"columns" json:"columns"`
}

// MatchingConfig параметры сверки
type MatchingConfig struct {
	PreFilterThreshold  float64  `toml:"prefilter_threshold" json:"prefilter_threshold"`
	ConfidenceThreshold float64  `toml:"confidence_threshold" json:"confidence_threshold"`
	BatchSize           int      `toml:"batch_size" json:"batch_size"`
	MaxCandidates       int      `toml:"max_candidates" json:"max_candidates"`
	UseArbiter          bool     `toml:"use_arbiter" json:"use_arbiter"`
	BatchDelay          Duration `toml:"batch_delay" json:"batch_delay"`
	ArbiterTimeout      Duration `toml:"arbiter_timeout" json:"arbiter_timeout"`
	ProgressEvery       int      `toml:"progress_every" json:"progress_every"`
	StemLanguage        string   `toml:"stem_language" json:"stem_language"` // пусто = без стемминга
}

// ArbiterConfig параметры внешнего арбитра
type ArbiterConfig struct {
	Provider    string   `toml:"provider" json:"provider"`
	BaseURL     string   `toml:"base_url" json:"base_url"`
	APIKey      string   `toml:"api_key" json:"-"`
	Model       string   `toml:"model" json:"model"`
	Timeout     Duration `toml:"timeout" json:"timeout"`
	RPM         int      `toml:"rpm" json:"rpm"`
	Temperature float64  `toml:"temperature" json:"temperature"`
	Cache       bool     `toml:"cache" json:"cache"`

	// Strategy объединения ответов, если задано несколько арбитров
	Strategy  string            `toml:"strategy" json:"strategy"`
	Fallbacks []ArbiterEndpoint `toml:"fallbacks" json:"fallbacks,omitempty"`
}

// ArbiterEndpoint дополнительный арбитр; таймаут, RPM и температура общие
type ArbiterEndpoint struct {
	Provider string `toml:"provider" json:"provider"`
	BaseURL  string `toml:"base_url" json:"base_url"`
	APIKey   string `toml:"api_key" json:"-"`
	Model    string `toml:"model" json:"model"`
}

// ProofreadingConfig параметры корректуры (LanguageTool)
type ProofreadingConfig struct {
	BaseURL     string   `toml:"base_url" json:"base_url"`
	Language    string   `toml:"language" json:"language"`
	Timeout     Duration `toml:"timeout" json:"timeout"`
	Interval    Duration `toml:"interval" json:"interval"`
	Concurrency int      `toml:"concurrency" json:"concurrency"`
	GroupDelay  Duration `toml:"group_delay" json:"group_delay"`
	CacheTTL    Duration `toml:"cache_ttl" json:"cache_ttl"`
}

// ColumnsConfig имена колонок наборов данных
type ColumnsConfig struct {
	SourceDescription string `toml:"source_description" json:"source_description"`
	SourceID          string `toml:"source_id" json:"source_id"`
	TargetDescription string `toml:"target_description" json:"target_description"`
	TargetStatus      string `toml:"target_status" json:"target_status"`
	TargetID          string `toml:"target_id" json:"target_id"`
}

// Duration длительность, которая в TOML записывается строкой ("1s", "2m30s")
type Duration time.Duration

// UnmarshalText разбирает строку time.ParseDuration
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText форматирует как time.Duration.String
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std возвращает time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GetDefaults возвращает конфигурацию со значениями по умолчанию
func GetDefaults() *Config {
	return &Config{
		Port:      "9999",
		LogLevel:  "INFO",
		LogFormat: "auto",
		Matching: MatchingConfig{
			PreFilterThreshold:  matching.DefaultPreFilterThreshold,
			ConfidenceThreshold: matching.DefaultConfidenceThreshold,
			BatchSize:           matching.DefaultBatchSize,
			MaxCandidates:       matching.DefaultMaxCandidates,
			UseArbiter:          true,
			BatchDelay:          Duration(matching.DefaultBatchDelay),
			ArbiterTimeout:      Duration(matching.DefaultArbiterTimeout),
			ProgressEvery:       matching.DefaultProgressEvery,
		},
		Arbiter: ArbiterConfig{
			Provider:    ai.ProviderOpenRouter,
			Timeout:     Duration(2 * time.Minute),
			RPM:         60,
			Temperature: 0.1,
			Cache:       true,
		},
		Proofreading: ProofreadingConfig{
			BaseURL:     proofreading.DefaultBaseURL,
			Language:    proofreading.DefaultLanguage,
			Timeout:     Duration(proofreading.DefaultTimeout),
			Interval:    Duration(proofreading.DefaultInterval),
			Concurrency: proofreading.DefaultConcurrency,
			GroupDelay:  Duration(proofreading.DefaultGroupDelay),
			CacheTTL:    Duration(24 * time.Hour),
		},
	}
}

// LoadConfig собирает конфигурацию: значения по умолчанию, затем TOML-файл
// (если path не пуст), затем переменные окружения. Результат проверяется.
func LoadConfig(path string) (*Config, error) {
	cfg := GetDefaults()

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFile накладывает значения из TOML-файла; неизвестные ключи считаются ошибкой
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	decoder := toml.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv накладывает переменные окружения
func (c *Config) ApplyEnv() {
	c.Port = getEnv("SERVER_PORT", c.Port)
	c.DatabasePath = getEnv("DATABASE_PATH", c.DatabasePath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	m := &c.Matching
	m.PreFilterThreshold = getEnvFloat("MATCH_PREFILTER_THRESHOLD", m.PreFilterThreshold)
	m.ConfidenceThreshold = getEnvFloat("MATCH_CONFIDENCE_THRESHOLD", m.ConfidenceThreshold)
	m.BatchSize = getEnvInt("MATCH_BATCH_SIZE", m.BatchSize)
	m.MaxCandidates = getEnvInt("MATCH_MAX_CANDIDATES", m.MaxCandidates)
	m.UseArbiter = getEnvBool("MATCH_USE_ARBITER", m.UseArbiter)
	m.BatchDelay = getEnvDuration("MATCH_BATCH_DELAY", m.BatchDelay)
	m.ArbiterTimeout = getEnvDuration("MATCH_ARBITER_TIMEOUT", m.ArbiterTimeout)
	m.ProgressEvery = getEnvInt("MATCH_PROGRESS_EVERY", m.ProgressEvery)
	m.StemLanguage = getEnv("MATCH_STEM_LANGUAGE", m.StemLanguage)

	a := &c.Arbiter
	a.Provider = getEnv("ARBITER_PROVIDER", a.Provider)
	a.BaseURL = getEnv("ARBITER_BASE_URL", a.BaseURL)
	a.APIKey = getEnv("ARBITER_API_KEY", a.APIKey)
	a.Model = getEnv("ARBITER_MODEL", a.Model)
	a.Timeout = getEnvDuration("ARBITER_TIMEOUT", a.Timeout)
	a.RPM = getEnvInt("ARBITER_RPM", a.RPM)
	a.Cache = getEnvBool("ARBITER_CACHE", a.Cache)
	a.Strategy = getEnv("ARBITER_STRATEGY", a.Strategy)

	p := &c.Proofreading
	p.BaseURL = getEnv("PROOFREAD_BASE_URL", p.BaseURL)
	p.Language = getEnv("PROOFREAD_LANGUAGE", p.Language)
	p.Timeout = getEnvDuration("PROOFREAD_TIMEOUT", p.Timeout)
	p.Interval = getEnvDuration("PROOFREAD_INTERVAL", p.Interval)
	p.Concurrency = getEnvInt("PROOFREAD_CONCURRENCY", p.Concurrency)
	p.GroupDelay = getEnvDuration("PROOFREAD_GROUP_DELAY", p.GroupDelay)
}

// ToOptions переводит параметры сверки в matching.Options
func (c *Config) ToOptions() matching.Options {
	return matching.Options{
		PreFilterThreshold:  c.Matching.PreFilterThreshold,
		ConfidenceThreshold: c.Matching.ConfidenceThreshold,
		BatchSize:           c.Matching.BatchSize,
		MaxCandidates:       c.Matching.MaxCandidates,
		UseArbiter:          c.Matching.UseArbiter,
		BatchDelay:          c.Matching.BatchDelay.Std(),
		ArbiterTimeout:      c.Matching.ArbiterTimeout.Std(),
		ProgressEvery:       c.Matching.ProgressEvery,
	}
}

// ToClientConfig переводит параметры арбитра в конфигурацию клиента
func (c *Config) ToClientConfig() ai.ClientConfig {
	return ai.ClientConfig{
		Provider:    c.Arbiter.Provider,
		BaseURL:     c.Arbiter.BaseURL,
		APIKey:      c.Arbiter.APIKey,
		Model:       c.Arbiter.Model,
		Timeout:     c.Arbiter.Timeout.Std(),
		RPM:         c.Arbiter.RPM,
		Temperature: c.Arbiter.Temperature,
		Retry:       ai.DefaultRetryConfig(),
	}
}

// ToFallbackConfigs возвращает конфигурации дополнительных арбитров в порядке приоритета
func (c *Config) ToFallbackConfigs() []ai.ClientConfig {
	configs := make([]ai.ClientConfig, 0, len(c.Arbiter.Fallbacks))
	for _, f := range c.Arbiter.Fallbacks {
		cfg := c.ToClientConfig()
		cfg.Provider = f.Provider
		cfg.BaseURL = f.BaseURL
		cfg.APIKey = f.APIKey
		cfg.Model = f.Model
		configs = append(configs, cfg)
	}
	return configs
}

// Tokenizer возвращает токенизатор; со стеммингом, если задан язык
func (c *Config) Tokenizer() (*algorithms.TextNormalizer, error) {
	if c.Matching.StemLanguage == "" {
		return algorithms.NewTextNormalizer(nil), nil
	}
	stemmer, err := algorithms.NewSnowballStemmer(c.Matching.StemLanguage)
	if err != nil {
		return nil, err
	}
	return algorithms.NewTextNormalizer(stemmer), nil
}

// Schema переводит имена колонок в matching.Schema
func (c ColumnsConfig) Schema() matching.Schema {
	return matching.Schema{
		SourceDescription: c.SourceDescription,
		SourceID:          c.SourceID,
		TargetDescription: c.TargetDescription,
		TargetStatus:      c.TargetStatus,
		TargetID:          c.TargetID,
	}
}

// Merge заполняет пустые имена колонок из other
func (c ColumnsConfig) Merge(other ColumnsConfig) ColumnsConfig {
	pick := func(a, b string) string {
		if a != "" {
			return a
		}
		return b
	}
	return ColumnsConfig{
		SourceDescription: pick(c.SourceDescription, other.SourceDescription),
		SourceID:          pick(c.SourceID, other.SourceID),
		TargetDescription: pick(c.TargetDescription, other.TargetDescription),
		TargetStatus:      pick(c.TargetStatus, other.TargetStatus),
		TargetID:          pick(c.TargetID, other.TargetID),
	}
}

// getEnv получает переменную окружения или возвращает значение по умолчанию
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt получает переменную окружения как int или возвращает значение по умолчанию
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(strings.Replace(value, ",", ".", 1), 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration получает переменную окружения как Duration или возвращает значение по умолчанию
func getEnvDuration(key string, defaultValue Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return Duration(duration)
		}
	}
	return defaultValue
}
