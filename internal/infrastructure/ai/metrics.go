package ai

import (
	"errors"
	"sync"
	"time"
)

// MetricsCollector собирает метрики вызовов арбитров
type MetricsCollector struct {
	mu sync.RWMutex

	// Метрики запросов к провайдерам
	providerRequestsTotal map[string]int64
	providerErrorsTotal   map[string]int64
	providerDurationTotal map[string]time.Duration
	providerPairsTotal    map[string]int64
	providerVerdictsTotal map[string]int64

	// Метрики кэша решений
	cacheHits   int64
	cacheMisses int64
}

// NewMetricsCollector создает новый сборщик метрик
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		providerRequestsTotal: make(map[string]int64),
		providerErrorsTotal:   make(map[string]int64),
		providerDurationTotal: make(map[string]time.Duration),
		providerPairsTotal:    make(map[string]int64),
		providerVerdictsTotal: make(map[string]int64),
	}
}

// RecordBatch учитывает один пакетный вызов провайдера
func (mc *MetricsCollector) RecordBatch(providerID string, pairs, verdicts int, duration time.Duration, err error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.providerRequestsTotal[providerID]++
	mc.providerDurationTotal[providerID] += duration
	mc.providerPairsTotal[providerID] += int64(pairs)
	mc.providerVerdictsTotal[providerID] += int64(verdicts)
	if err != nil {
		mc.providerErrorsTotal[providerID+":"+errorType(err)]++
	}
}

// RecordCache учитывает попадания и промахи кэша решений
func (mc *MetricsCollector) RecordCache(hits, misses int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.cacheHits += int64(hits)
	mc.cacheMisses += int64(misses)
}

// ProviderMetrics агрегированные метрики провайдера
type ProviderMetrics struct {
	RequestsTotal   int64            `json:"requests_total"`
	ErrorsTotal     int64            `json:"errors_total"`
	ErrorsByType    map[string]int64 `json:"errors_by_type,omitempty"`
	PairsTotal      int64            `json:"pairs_total"`
	VerdictsTotal   int64            `json:"verdicts_total"`
	DurationTotalMs int64            `json:"duration_total_ms"`
	DurationAvgMs   int64            `json:"duration_avg_ms"`
}

// Snapshot снимок всех метрик
type Snapshot struct {
	Providers   map[string]ProviderMetrics `json:"providers"`
	CacheHits   int64                      `json:"cache_hits"`
	CacheMisses int64                      `json:"cache_misses"`
}

// GetProviderMetrics возвращает метрики для провайдера
func (mc *MetricsCollector) GetProviderMetrics(providerID string) ProviderMetrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.providerMetricsLocked(providerID)
}

func (mc *MetricsCollector) providerMetricsLocked(providerID string) ProviderMetrics {
	requests := mc.providerRequestsTotal[providerID]
	duration := mc.providerDurationTotal[providerID]

	avgDuration := time.Duration(0)
	if requests > 0 {
		avgDuration = duration / time.Duration(requests)
	}

	metrics := ProviderMetrics{
		RequestsTotal:   requests,
		PairsTotal:      mc.providerPairsTotal[providerID],
		VerdictsTotal:   mc.providerVerdictsTotal[providerID],
		DurationTotalMs: duration.Milliseconds(),
		DurationAvgMs:   avgDuration.Milliseconds(),
	}

	prefix := providerID + ":"
	for key, value := range mc.providerErrorsTotal {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			if metrics.ErrorsByType == nil {
				metrics.ErrorsByType = make(map[string]int64)
			}
			metrics.ErrorsByType[key[len(prefix):]] += value
			metrics.ErrorsTotal += value
		}
	}
	return metrics
}

// GetAllMetrics возвращает снимок всех метрик
func (mc *MetricsCollector) GetAllMetrics() Snapshot {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	providers := make(map[string]ProviderMetrics, len(mc.providerRequestsTotal))
	for providerID := range mc.providerRequestsTotal {
		providers[providerID] = mc.providerMetricsLocked(providerID)
	}

	return Snapshot{
		Providers:   providers,
		CacheHits:   mc.cacheHits,
		CacheMisses: mc.cacheMisses,
	}
}

func errorType(err error) string {
	switch {
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrResponseInvalid):
		return "invalid_response"
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	default:
		return "other"
	}
}
