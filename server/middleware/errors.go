package middleware

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "cotejo/server/errors"
)

// HTTPError интерфейс для ошибок с HTTP статусом и сообщением
type HTTPError interface {
	error
	StatusCode() int
	UserMessage() string
	GetContext() string
	Unwrap() error
}

// ErrorResponse структура ответа об ошибке
type ErrorResponse struct {
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler пишет ошибки в ответ, лог и метрики
type ErrorHandler struct {
	metrics *apperrors.ErrorMetricsCollector
	logger  *slog.Logger
}

// NewErrorHandler создает обработчик ошибок
func NewErrorHandler(metrics *apperrors.ErrorMetricsCollector, logger *slog.Logger) *ErrorHandler {
	if metrics == nil {
		metrics = apperrors.NewErrorMetricsCollector()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorHandler{metrics: metrics, logger: logger}
}

// Metrics возвращает сборщик метрик ошибок
func (h *ErrorHandler) Metrics() *apperrors.ErrorMetricsCollector {
	return h.metrics
}

// Handle переводит ошибку в JSON ответ с кодом из AppError.
// Ошибки без HTTP статуса переводятся через apperrors.FromDomain.
func (h *ErrorHandler) Handle(c *gin.Context, err error, message string) {
	reqID := GetRequestIDFromGin(c)

	var httpErr HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = apperrors.FromDomain(err, message)
	}

	var appErr *apperrors.AppError
	if errors.As(httpErr, &appErr) {
		h.metrics.RecordError(appErr, c.FullPath(), reqID)
	}

	level := slog.LevelWarn
	if httpErr.StatusCode() >= 500 {
		level = slog.LevelError
	}
	h.logger.Log(c.Request.Context(), level, "http error",
		"error", httpErr.Unwrap(),
		"user_message", httpErr.UserMessage(),
		"context", httpErr.GetContext(),
		"status_code", httpErr.StatusCode(),
		"request_id", reqID,
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
	)

	_ = c.Error(err)
	c.AbortWithStatusJSON(httpErr.StatusCode(), ErrorResponse{
		Error:     httpErr.UserMessage(),
		Timestamp: time.Now().Format(time.RFC3339),
		RequestID: reqID,
	})
}
