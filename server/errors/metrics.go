package errors

import (
	"net/http"
	"sync"
	"time"
)

// ErrorMetricsCollector собирает метрики ошибок HTTP API
type ErrorMetricsCollector struct {
	mu sync.RWMutex

	totalErrors      int64
	errorsByType     map[string]int64
	errorsByCode     map[int]int64
	errorsByEndpoint map[string]int64

	// Последние N ошибок, новые в начале
	lastErrors    []ErrorRecord
	maxLastErrors int

	startTime time.Time
	now       func() time.Time
}

// ErrorRecord запись об ошибке
type ErrorRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	Type        string    `json:"type"`
	Code        int       `json:"code"`
	Message     string    `json:"message"`
	Endpoint    string    `json:"endpoint"`
	RequestID   string    `json:"request_id,omitempty"`
	UserMessage string    `json:"user_message"`
}

// ErrorSnapshot снимок метрик ошибок
type ErrorSnapshot struct {
	TotalErrors      int64            `json:"total_errors"`
	ErrorsByType     map[string]int64 `json:"errors_by_type"`
	ErrorsByCode     map[int]int64    `json:"errors_by_code"`
	ErrorsByEndpoint map[string]int64 `json:"errors_by_endpoint"`
	LastErrors       []ErrorRecord    `json:"last_errors"`
	UptimeSeconds    float64          `json:"uptime_seconds"`
}

// NewErrorMetricsCollector создает новый сборщик метрик ошибок
func NewErrorMetricsCollector() *ErrorMetricsCollector {
	return &ErrorMetricsCollector{
		errorsByType:     make(map[string]int64),
		errorsByCode:     make(map[int]int64),
		errorsByEndpoint: make(map[string]int64),
		lastErrors:       make([]ErrorRecord, 0),
		maxLastErrors:    100,
		startTime:        time.Now(),
		now:              time.Now,
	}
}

// RecordError записывает ошибку в метрики
func (emc *ErrorMetricsCollector) RecordError(err *AppError, endpoint, requestID string) {
	emc.mu.Lock()
	defer emc.mu.Unlock()

	emc.totalErrors++

	errorType := errorTypeOf(err)
	emc.errorsByType[errorType]++
	emc.errorsByCode[err.Code]++
	if endpoint != "" {
		emc.errorsByEndpoint[endpoint]++
	}

	record := ErrorRecord{
		Timestamp:   emc.now(),
		Type:        errorType,
		Code:        err.Code,
		Message:     err.Error(),
		Endpoint:    endpoint,
		RequestID:   requestID,
		UserMessage: err.UserMessage(),
	}
	emc.lastErrors = append([]ErrorRecord{record}, emc.lastErrors...)
	if len(emc.lastErrors) > emc.maxLastErrors {
		emc.lastErrors = emc.lastErrors[:emc.maxLastErrors]
	}
}

func errorTypeOf(err *AppError) string {
	switch err.Code {
	case http.StatusBadRequest:
		return "ValidationError"
	case http.StatusNotFound:
		return "NotFoundError"
	case http.StatusInternalServerError:
		return "InternalError"
	case http.StatusBadGateway:
		return "BadGatewayError"
	case http.StatusServiceUnavailable:
		return "ServiceUnavailableError"
	case http.StatusGatewayTimeout, StatusClientClosedRequest:
		return "CancelledError"
	default:
		return "UnknownError"
	}
}

// GetMetrics возвращает копию метрик
func (emc *ErrorMetricsCollector) GetMetrics() ErrorSnapshot {
	emc.mu.RLock()
	defer emc.mu.RUnlock()

	snapshot := ErrorSnapshot{
		TotalErrors:      emc.totalErrors,
		ErrorsByType:     make(map[string]int64, len(emc.errorsByType)),
		ErrorsByCode:     make(map[int]int64, len(emc.errorsByCode)),
		ErrorsByEndpoint: make(map[string]int64, len(emc.errorsByEndpoint)),
		LastErrors:       make([]ErrorRecord, len(emc.lastErrors)),
		UptimeSeconds:    emc.now().Sub(emc.startTime).Seconds(),
	}
	for k, v := range emc.errorsByType {
		snapshot.ErrorsByType[k] = v
	}
	for k, v := range emc.errorsByCode {
		snapshot.ErrorsByCode[k] = v
	}
	for k, v := range emc.errorsByEndpoint {
		snapshot.ErrorsByEndpoint[k] = v
	}
	copy(snapshot.LastErrors, emc.lastErrors)
	return snapshot
}

// Reset сбрасывает все метрики
func (emc *ErrorMetricsCollector) Reset() {
	emc.mu.Lock()
	defer emc.mu.Unlock()

	emc.totalErrors = 0
	emc.errorsByType = make(map[string]int64)
	emc.errorsByCode = make(map[int]int64)
	emc.errorsByEndpoint = make(map[string]int64)
	emc.lastErrors = make([]ErrorRecord, 0)
	emc.startTime = emc.now()
}
