package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"cotejo/database"
	reconciliationapp "cotejo/internal/application/reconciliation"
	"cotejo/exporter"
	"cotejo/importer"
	"cotejo/matching"
)

// StatusClientClosedRequest клиент закрыл соединение до ответа
const StatusClientClosedRequest = 499

// AppError представляет ошибку приложения с HTTP статусом и контекстом
type AppError struct {
	Code    int    `json:"status_code"` // HTTP статус код
	Message string `json:"message"`     // Сообщение для пользователя
	Err     error  `json:"-"`           // Внутренняя ошибка для логов, не сериализуется
	Context string `json:"-"`           // Дополнительный контекст (операция, параметры)
}

// Error реализует интерфейс error
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap возвращает вложенную ошибку для errors.Is и errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// StatusCode возвращает HTTP статус код ошибки
func (e *AppError) StatusCode() int {
	return e.Code
}

// UserMessage возвращает сообщение для пользователя
func (e *AppError) UserMessage() string {
	return e.Message
}

// GetContext возвращает контекст ошибки
func (e *AppError) GetContext() string {
	return e.Context
}

// WithContext добавляет контекст к ошибке
func (e *AppError) WithContext(context string) *AppError {
	e.Context = context
	return e
}

// NewNotFoundError создает ошибку 404 Not Found
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

// NewValidationError создает ошибку 400 Bad Request
func NewValidationError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewInternalError создает ошибку 500 Internal Server Error.
// Для пользователя возвращается общее сообщение, детали только в логах.
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: "Внутренняя ошибка сервера",
		Err:     errors.Join(errors.New(message), err),
	}
}

// NewServiceUnavailableError создает ошибку 503 Service Unavailable
func NewServiceUnavailableError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusServiceUnavailable,
		Message: message,
		Err:     err,
	}
}

// NewCancelledError запрос отменен клиентом или истек его срок
func NewCancelledError(err error) *AppError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &AppError{Code: http.StatusGatewayTimeout, Message: "Время обработки истекло", Err: err}
	}
	return &AppError{Code: StatusClientClosedRequest, Message: "Запрос отменен", Err: err}
}

// FromDomain переводит ошибку предметной области в AppError.
// Неизвестные ошибки становятся InternalError.
func FromDomain(err error, message string) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, matching.ErrInvalidOptions),
		errors.Is(err, matching.ErrUnknownColumn),
		errors.Is(err, importer.ErrUnsupportedFormat),
		errors.Is(err, importer.ErrSheetNotFound),
		errors.Is(err, exporter.ErrUnsupportedFormat):
		return NewValidationError(err.Error(), err)
	case errors.Is(err, database.ErrNotFound):
		return NewNotFoundError("Запуск не найден", err)
	case errors.Is(err, matching.ErrArbiterRequired):
		return NewServiceUnavailableError("Арбитр не настроен", err)
	case errors.Is(err, reconciliationapp.ErrHistoryDisabled):
		return NewServiceUnavailableError("История запусков отключена", err)
	case errors.Is(err, reconciliationapp.ErrProofreadingDisabled):
		return NewServiceUnavailableError("Корректура не настроена", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return NewCancelledError(err)
	default:
		return NewInternalError(message, err)
	}
}
