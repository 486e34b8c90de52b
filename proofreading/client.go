// Package proofreading исправляет орфографию в текстовых полях через LanguageTool
package proofreading

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL публичный LanguageTool
	DefaultBaseURL = "https://api.languagetool.org"
	// DefaultLanguage язык проверки
	DefaultLanguage = "pt-BR"
	// DefaultTimeout таймаут одного запроса
	DefaultTimeout = 10 * time.Second
	// DefaultInterval минимальный интервал между запросами
	DefaultInterval = time.Second
	// MaxTextLength тексты длиннее не исправляются
	MaxTextLength = 2000
	// ChunkLength максимальная длина фрагмента в одном запросе
	ChunkLength = 400
)

// Corrector сервис исправления текста. При любой ошибке возвращает исходный текст.
type Corrector interface {
	Correct(ctx context.Context, text string) string
}

// CorrectorFunc адаптер функции к Corrector
type CorrectorFunc func(ctx context.Context, text string) string

// Correct вызывает f(ctx, text)
func (f CorrectorFunc) Correct(ctx context.Context, text string) string {
	return f(ctx, text)
}

// ClientConfig конфигурация клиента
type ClientConfig struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
	Interval time.Duration // 0 = DefaultInterval
	Cache    *Cache
	Logger   *slog.Logger
}

// ClientStats счетчики клиента
type ClientStats struct {
	Requests  int64 `json:"requests"`
	Failures  int64 `json:"failures"`
	Skipped   int64 `json:"skipped"`
	Corrected int64 `json:"corrected"`
}

// Client клиент LanguageTool
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	logger     *slog.Logger

	requests  atomic.Int64
	failures  atomic.Int64
	skipped   atomic.Int64
	corrected atomic.Int64
}

// Match одно замечание LanguageTool
type Match struct {
	Message      string `json:"message"`
	Offset       int    `json:"offset"`
	Length       int    `json:"length"`
	Replacements []struct {
		Value string `json:"value"`
	} `json:"replacements"`
	Rule struct {
		ID string `json:"id"`
	} `json:"rule"`
}

type checkResponse struct {
	Matches []Match `json:"matches"`
}

// NewClient создает новый клиент LanguageTool
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Language == "" {
		config.Language = DefaultLanguage
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Interval == 0 {
		config.Interval = DefaultInterval
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		language: config.Language,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		// 1 запрос за интервал
		limiter: rate.NewLimiter(rate.Every(config.Interval), 1),
		cache:   config.Cache,
		logger:  config.Logger.With("component", "languagetool"),
	}
}

// Check отправляет один фрагмент на проверку
func (c *Client) Check(ctx context.Context, text string) ([]Match, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/check", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	c.requests.Add(1)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var result checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return result.Matches, nil
}

// Correct исправляет текст по фрагментам; фрагменты склеиваются одним пробелом.
// Текст длиннее MaxTextLength возвращается без изменений, как и фрагмент, на котором запрос не удался.
func (c *Client) Correct(ctx context.Context, text string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	if textLength(text) > MaxTextLength {
		c.skipped.Add(1)
		c.logger.Debug("text too long, skipping", "length", textLength(text))
		return text
	}

	chunks := SplitText(text, ChunkLength)
	corrected := make([]string, len(chunks))
	for i, chunk := range chunks {
		corrected[i] = c.correctChunk(ctx, chunk)
	}

	out := strings.Join(corrected, " ")
	if out != text {
		c.corrected.Add(1)
	}
	return out
}

func (c *Client) correctChunk(ctx context.Context, chunk string) string {
	key := c.cacheKey(chunk)
	if c.cache != nil {
		if cached, ok := c.cache.Get(key); ok {
			return cached
		}
	}

	matches, err := c.Check(ctx, chunk)
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("correction failed, keeping original text", "error", err)
		return chunk
	}

	replacements := make([]Replacement, 0, len(matches))
	for _, m := range matches {
		if len(m.Replacements) == 0 {
			continue
		}
		replacements = append(replacements, Replacement{
			Offset: m.Offset,
			Length: m.Length,
			Value:  m.Replacements[0].Value,
		})
	}

	fixed := ApplyReplacements(chunk, replacements)
	if c.cache != nil {
		c.cache.Set(key, fixed)
	}
	return fixed
}

func (c *Client) cacheKey(chunk string) string {
	hash := sha256.Sum256([]byte(c.language + "\x00" + chunk))
	return hex.EncodeToString(hash[:])
}

// Stats возвращает счетчики клиента
func (c *Client) Stats() ClientStats {
	return ClientStats{
		Requests:  c.requests.Load(),
		Failures:  c.failures.Load(),
		Skipped:   c.skipped.Load(),
		Corrected: c.corrected.Load(),
	}
}
