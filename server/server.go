// Package server HTTP API сверки: загрузка наборов, запуск, история и выгрузка результатов
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"cotejo/internal/container"
	apperrors "cotejo/server/errors"
	"cotejo/server/handlers"
	"cotejo/server/middleware"
)

// MaxUploadMemory объем формы, который держится в памяти; остальное уходит во временные файлы
const MaxUploadMemory = 64 << 20

// Server HTTP сервер поверх контейнера зависимостей
type Server struct {
	container    *container.Container
	logger       *slog.Logger
	version      string
	errorMetrics *apperrors.ErrorMetricsCollector

	handlerOnce sync.Once
	httpHandler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New создает сервер; контейнер должен быть инициализирован
func New(c *container.Container, version string) *Server {
	return &Server{
		container:    c,
		logger:       c.Logger.With("component", "http"),
		version:      version,
		errorMetrics: apperrors.NewErrorMetricsCollector(),
	}
}

// Handler возвращает HTTP handler со всеми маршрутами
func (s *Server) Handler() http.Handler {
	s.handlerOnce.Do(func() {
		s.httpHandler = s.buildHTTPHandler()
	})
	return s.httpHandler
}

func (s *Server) buildHTTPHandler() http.Handler {
	// GIN_MODE переопределяет режим
	if os.Getenv(gin.EnvGinMode) == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = MaxUploadMemory

	router.Use(middleware.GinRequestIDMiddleware())
	router.Use(middleware.GinCORSMiddleware())
	router.Use(middleware.GinGzipMiddleware())
	router.Use(middleware.GinLoggerMiddleware(s.logger))
	router.Use(middleware.GinRecoveryMiddleware(s.logger))

	handlers.RegisterSwaggerRoutes(router, "localhost:"+s.container.Config.Port, s.version)
	s.registerRoutes(router)
	return router
}

func (s *Server) registerRoutes(router *gin.Engine) {
	c := s.container
	errorHandler := middleware.NewErrorHandler(s.errorMetrics, s.logger)

	reconciliation := handlers.NewReconciliationHandler(c.ReconciliationUseCase, c.Config, errorHandler)
	correction := handlers.NewCorrectionHandler(c.ReconciliationUseCase, c.Config.Proofreading, errorHandler)
	system := &handlers.SystemHandler{
		Version:        s.version,
		StartedAt:      c.StartedAt,
		Arbiter:        c.Arbiter,
		ArbiterMetrics: c.ArbiterMetrics,
		Proofreader:    c.Proofreader,
		ProofreadCache: c.ProofreadCache,
		ErrorMetrics:   s.errorMetrics,
	}
	if c.Store != nil {
		system.Database = c.Store
	}

	api := router.Group("/api")
	{
		api.GET("/health", system.HandleHealth)
		api.GET("/metrics", system.HandleMetrics)

		api.POST("/reconcile", reconciliation.HandleReconcile)
		api.POST("/correct", correction.HandleCorrect)

		runs := api.Group("/runs")
		runs.GET("", reconciliation.HandleListRuns)
		runs.GET("/:id", reconciliation.HandleGetRun)
		runs.GET("/:id/export", reconciliation.HandleExportRun)
	}
}

// Start запускает HTTP сервер и блокируется до Shutdown
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%s", s.container.Config.Port)

	s.mu.Lock()
	// WriteTimeout покрывает сверку больших файлов в одном запросе
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server", "addr", addr, "version", s.version)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start HTTP server on %s: %w", addr, err)
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	httpServer := s.httpServer
	s.mu.Unlock()
	if httpServer == nil {
		return nil
	}

	s.logger.Info("initiating graceful shutdown")
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop HTTP server: %w", err)
	}
	s.logger.Info("graceful shutdown completed")
	return nil
}
