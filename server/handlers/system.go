package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cotejo/internal/infrastructure/ai"
	"cotejo/proofreading"
	apperrors "cotejo/server/errors"
)

// Pinger проверка доступности базы
type Pinger interface {
	Ping() error
}

// SystemHandler состояние и метрики сервиса
type SystemHandler struct {
	Version        string
	StartedAt      time.Time
	Database       Pinger // nil = база не настроена
	Arbiter        ai.ProviderClient
	ArbiterMetrics *ai.MetricsCollector
	Proofreader    *proofreading.Client
	ProofreadCache *proofreading.Cache
	ErrorMetrics   *apperrors.ErrorMetricsCollector
}

// HealthResponse состояние сервиса
type HealthResponse struct {
	Status        string  `json:"status"`
	Version       string  `json:"version"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Database      string  `json:"database"`
	Arbiter       string  `json:"arbiter"`
}

// MetricsResponse метрики сервиса
type MetricsResponse struct {
	Arbiter      *ai.Snapshot              `json:"arbiter,omitempty"`
	Proofreading *proofreading.ClientStats `json:"proofreading,omitempty"`
	ProofCache   *proofreading.CacheStats  `json:"proofreading_cache,omitempty"`
	Errors       *apperrors.ErrorSnapshot  `json:"errors,omitempty"`
}

// HandleHealth возвращает состояние сервиса
// @Summary Проверка состояния
// @Tags system
// @Produce json
// @Success 200 {object} HealthResponse "Сервис работает"
// @Failure 503 {object} HealthResponse "База недоступна"
// @Router /health [get]
func (h *SystemHandler) HandleHealth(c *gin.Context) {
	response := HealthResponse{
		Status:        "ok",
		Version:       h.Version,
		UptimeSeconds: time.Since(h.StartedAt).Seconds(),
		Database:      "disabled",
		Arbiter:       "none",
	}
	if h.Arbiter != nil {
		response.Arbiter = h.Arbiter.Provider() + "/" + h.Arbiter.Model()
	}

	status := http.StatusOK
	if h.Database != nil {
		response.Database = "ok"
		if err := h.Database.Ping(); err != nil {
			response.Database = "unavailable"
			response.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, response)
}

// HandleMetrics возвращает метрики арбитра, корректуры и ошибок API
// @Summary Метрики
// @Tags system
// @Produce json
// @Success 200 {object} MetricsResponse "Снимок метрик"
// @Router /metrics [get]
func (h *SystemHandler) HandleMetrics(c *gin.Context) {
	var response MetricsResponse
	if h.ArbiterMetrics != nil {
		snapshot := h.ArbiterMetrics.GetAllMetrics()
		response.Arbiter = &snapshot
	}
	if h.Proofreader != nil {
		stats := h.Proofreader.Stats()
		response.Proofreading = &stats
	}
	if h.ProofreadCache != nil {
		stats := h.ProofreadCache.GetStats()
		response.ProofCache = &stats
	}
	if h.ErrorMetrics != nil {
		snapshot := h.ErrorMetrics.GetMetrics()
		response.Errors = &snapshot
	}
	c.JSON(http.StatusOK, response)
}
