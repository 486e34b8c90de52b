package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ClientConfig общие параметры HTTP-арбитров
type ClientConfig struct {
	Provider    string
	BaseURL     string
	APIKey      string
	Model       string
	Timeout     time.Duration
	RPM         int // запросов в минуту, 0 = без ограничения
	Temperature float64
	Retry       RetryConfig
}

// Option настройка клиента
type Option func(*baseClient)

// WithHTTPClient подменяет HTTP-клиент
func WithHTTPClient(client *http.Client) Option {
	return func(b *baseClient) {
		if client != nil {
			b.httpClient = client
		}
	}
}

// WithLimiter подменяет ограничитель запросов
func WithLimiter(limiter *rate.Limiter) Option {
	return func(b *baseClient) {
		if limiter != nil {
			b.limiter = limiter
		}
	}
}

// WithMetrics подключает сборщик метрик
func WithMetrics(metrics *MetricsCollector) Option {
	return func(b *baseClient) {
		b.metrics = metrics
	}
}

// WithLogger задает логгер
func WithLogger(logger *slog.Logger) Option {
	return func(b *baseClient) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// baseClient транспорт с ограничением частоты и повторами, общий для провайдеров
type baseClient struct {
	provider    string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	httpClient  *http.Client
	retryConfig RetryConfig
	limiter     *rate.Limiter
	metrics     *MetricsCollector
	logger      *slog.Logger
}

func newBaseClient(cfg ClientConfig, opts []Option) baseClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	retry := cfg.Retry
	if retry.BackoffMultiplier == 0 {
		retry = DefaultRetryConfig()
	}

	b := baseClient{
		provider:    cfg.Provider,
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: newTransport(),
		},
		retryConfig: retry,
		limiter:     NewLimiter(cfg.RPM),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With("provider", b.provider)
	return b
}

// Provider возвращает имя провайдера
func (b *baseClient) Provider() string {
	return b.provider
}

// Model возвращает имя модели
func (b *baseClient) Model() string {
	return b.model
}

// do выполняет запрос с ожиданием лимитера и повторами при 429, 5xx и сетевых ошибках.
// newRequest вызывается на каждую попытку, так как тело запроса читается один раз.
func (b *baseClient) do(ctx context.Context, newRequest func(ctx context.Context) (*http.Request, error)) ([]byte, error) {
	var lastErr error
	delay := b.retryConfig.InitialDelay

	for attempt := 0; attempt <= b.retryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			b.logger.Debug("retrying request", "attempt", attempt, "max_retries", b.retryConfig.MaxRetries, "delay", delay)
			if err := wait(ctx, delay); err != nil {
				return nil, err
			}
			delay = b.retryConfig.next(delay)
		}

		if err := b.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := newRequest(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if b.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+b.apiKey)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := b.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("request cancelled: %w", ctx.Err())
			}
			lastErr = fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
			b.logger.Warn("request failed", "attempt", attempt+1, "error", err)
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			if retryAfter := parseRetryAfter(resp); retryAfter > 0 {
				delay = retryAfter
			}
			lastErr = fmt.Errorf("%w: %s", ErrRateLimited, truncate(body, 200))
			b.logger.Warn("rate limit exceeded", "attempt", attempt+1, "retry_after", delay)
			continue
		case resp.StatusCode >= 500:
			lastErr = fmt.Errorf("%w: status %d: %s", ErrProviderUnavailable, resp.StatusCode, truncate(body, 200))
			b.logger.Warn("server error", "status", resp.StatusCode, "attempt", attempt+1)
			continue
		case resp.StatusCode != http.StatusOK:
			return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(body, 200))
		}

		if readErr != nil {
			lastErr = fmt.Errorf("failed to read response: %w", readErr)
			continue
		}
		return body, nil
	}

	return nil, fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// record пишет метрики одного пакета
func (b *baseClient) record(pairs int, verdicts int, started time.Time, err error) {
	duration := time.Since(started)
	if b.metrics != nil {
		b.metrics.RecordBatch(b.provider, pairs, verdicts, duration, err)
	}
	if err != nil {
		b.logger.Warn("batch validation failed", "pairs", pairs, "duration", duration, "error", err)
		return
	}
	b.logger.Debug("batch validated", "pairs", pairs, "verdicts", verdicts, "duration", duration)
}
