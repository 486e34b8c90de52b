package container

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"cotejo/database"
	reconciliationapp "cotejo/internal/application/reconciliation"
	"cotejo/internal/config"
	"cotejo/internal/infrastructure/ai"
	"cotejo/matching"
	"cotejo/normalization/algorithms"
	"cotejo/proofreading"
)

// Container контейнер зависимостей приложения.
// Управляет жизненным циклом базы, арбитра, корректора и use case сверки.
type Container struct {
	mu sync.Mutex

	// Конфигурация
	Config *config.Config
	Logger *slog.Logger

	// База истории запусков и кэша решений (nil, если путь не задан)
	Store *database.Store

	// Арбитр (nil, если не удалось создать)
	Arbiter        ai.ProviderClient
	ArbiterErr     error
	ArbiterMetrics *ai.MetricsCollector

	// Корректура
	Proofreader    *proofreading.Client
	ProofreadCache *proofreading.Cache

	Tokenizer *algorithms.TextNormalizer

	ReconciliationUseCase *reconciliationapp.UseCase

	StartedAt   time.Time
	initialized bool
}

// NewContainer создает новый контейнер зависимостей
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Container{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}, nil
}

// Initialize инициализирует все зависимости контейнера
func (c *Container) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return fmt.Errorf("container already initialized")
	}

	// Шаг 1: база
	if err := c.initDatabase(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Шаг 2: токенизатор, арбитр и корректор
	tokenizer, err := c.Config.Tokenizer()
	if err != nil {
		c.closeLocked()
		return fmt.Errorf("failed to initialize tokenizer: %w", err)
	}
	c.Tokenizer = tokenizer

	c.initArbiter()
	c.initProofreading()

	// Шаг 3: use case
	c.initUseCases()

	c.initialized = true
	c.Logger.Info("container initialized",
		"database", c.Config.DatabasePath,
		"arbiter", c.arbiterName(),
		"stem_language", c.Config.Matching.StemLanguage)
	return nil
}

// initDatabase открывает базу, если путь задан
func (c *Container) initDatabase() error {
	if c.Config.DatabasePath == "" {
		c.Logger.Info("database path not set, run history disabled")
		return nil
	}
	store, err := database.OpenWithConfig(c.Config.DatabasePath, database.Config{Logger: c.Logger})
	if err != nil {
		return err
	}
	c.Store = store
	return nil
}

// initArbiter создает арбитра. Ошибка не прерывает инициализацию:
// без арбитра работают корректура, история и сверка без валидации.
// Дополнительные арбитры объединяются оркестратором; недоступный пропускается.
func (c *Container) initArbiter() {
	c.ArbiterMetrics = ai.NewMetricsCollector()
	opts := []ai.Option{ai.WithMetrics(c.ArbiterMetrics), ai.WithLogger(c.Logger)}

	configs := append([]ai.ClientConfig{c.Config.ToClientConfig()}, c.Config.ToFallbackConfigs()...)
	var (
		providers []ai.ProviderWrapper
		errs      []error
	)
	for i, cfg := range configs {
		provider, err := ai.NewProvider(cfg, opts...)
		if err != nil {
			errs = append(errs, err)
			c.Logger.Warn("arbiter not available", "provider", cfg.Provider, "priority", i, "error", err)
			continue
		}
		providers = append(providers, ai.ProviderWrapper{Client: provider, Priority: i})
	}
	if len(providers) == 0 {
		c.ArbiterErr = errors.Join(errs...)
		return
	}

	var arbiter ai.ProviderClient = providers[0].Client
	if len(providers) > 1 {
		strategy, err := ai.ParseStrategy(c.Config.Arbiter.Strategy)
		if err != nil {
			c.ArbiterErr = err
			return
		}
		orchestrator, err := ai.NewProviderOrchestrator(strategy, c.Logger, providers...)
		if err != nil {
			c.ArbiterErr = err
			return
		}
		c.Logger.Info("arbiter orchestrator configured",
			"providers", orchestrator.Provider(), "strategy", orchestrator.Strategy())
		arbiter = orchestrator
	}

	if !c.Config.Arbiter.Cache {
		c.Arbiter = arbiter
		return
	}

	var store ai.VerdictStore = ai.NewMemoryVerdictStore()
	if c.Store != nil {
		store = c.Store
	}
	c.Arbiter = ai.NewCachedClient(arbiter, store, c.ArbiterMetrics, c.Logger)
}

func (c *Container) initProofreading() {
	p := c.Config.Proofreading
	cacheConfig := proofreading.DefaultCacheConfig()
	if p.CacheTTL > 0 {
		cacheConfig.TTL = p.CacheTTL.Std()
	} else {
		cacheConfig.Enabled = false
	}
	c.ProofreadCache = proofreading.NewCache(cacheConfig)
	c.Proofreader = proofreading.NewClient(proofreading.ClientConfig{
		BaseURL:  p.BaseURL,
		Language: p.Language,
		Timeout:  p.Timeout.Std(),
		Interval: p.Interval.Std(),
		Cache:    c.ProofreadCache,
		Logger:   c.Logger,
	})
}

func (c *Container) initUseCases() {
	var runs reconciliationapp.RunRepository
	if c.Store != nil {
		runs = c.Store
	}
	var arbiter matching.Arbiter
	if c.Arbiter != nil {
		arbiter = c.Arbiter
	}
	c.ReconciliationUseCase = reconciliationapp.NewUseCase(runs, arbiter, c.Proofreader, c.Tokenizer, c.Logger)
}

// RequireArbiter возвращает ошибку создания арбитра, если он нужен, но недоступен
func (c *Container) RequireArbiter(useArbiter bool) error {
	if !useArbiter || c.Arbiter != nil {
		return nil
	}
	if c.ArbiterErr != nil {
		return fmt.Errorf("arbiter unavailable: %w", c.ArbiterErr)
	}
	return errors.New("arbiter unavailable")
}

// Shutdown освобождает ресурсы
func (c *Container) Shutdown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.initialized {
		return nil
	}
	c.initialized = false
	return c.closeLocked()
}

func (c *Container) closeLocked() error {
	if c.ProofreadCache != nil {
		c.ProofreadCache.Close()
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			c.Logger.Error("error closing database", "error", err)
			return err
		}
	}
	return nil
}

func (c *Container) arbiterName() string {
	if c.Arbiter == nil {
		return "none"
	}
	return c.Arbiter.Provider() + "/" + c.Arbiter.Model()
}
