package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrResponseInvalid ответ модели не удалось разобрать
	ErrResponseInvalid = errors.New("invalid arbiter response")
	// ErrRateLimited провайдер ответил 429 и попытки исчерпаны
	ErrRateLimited = errors.New("arbiter rate limited")
	// ErrProviderUnavailable провайдер недоступен (сеть, 5xx)
	ErrProviderUnavailable = errors.New("arbiter provider unavailable")
)

// Message сообщение чата
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// RetryConfig конфигурация повторных попыток
type RetryConfig struct {
	MaxRetries        int
	InitialDelay      time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig возвращает конфигурацию повторных попыток по умолчанию
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// next возвращает следующую задержку с учетом потолка
func (rc RetryConfig) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * rc.BackoffMultiplier)
	if rc.MaxDelay > 0 && delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

// NewLimiter создает ограничитель по числу запросов в минуту; rpm <= 0 снимает ограничение
func NewLimiter(rpm int) *rate.Limiter {
	if rpm <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), 1)
}

// newTransport HTTP Transport с пулом соединений
func newTransport() *http.Transport {
	return &http.Transport{
		MaxIdleConns:        10,
		MaxConnsPerHost:     5,
		IdleConnTimeout:     90 * time.Second,
		MaxIdleConnsPerHost: 5,
	}
}

// wait ждет d или отмены контекста
func wait(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("context cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter парсит заголовок Retry-After (секунды)
func parseRetryAfter(resp *http.Response) time.Duration {
	value := resp.Header.Get("Retry-After")
	if value == "" {
		return 0
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

// truncate обрезает тело ответа для логов
func truncate(body []byte, limit int) string {
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}
