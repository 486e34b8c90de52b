package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cotejo/internal/config"
	"cotejo/internal/container"
	"cotejo/internal/logging"
)

type globalFlags struct {
	configPath   string
	logLevel     string
	logFormat    string
	databasePath string
}

type commandContext struct {
	flags *globalFlags

	configOnce sync.Once
	config     *config.Config
	logger     *slog.Logger
	configErr  error

	container *container.Container
}

func newCommandContext(flags *globalFlags) *commandContext {
	return &commandContext{flags: flags}
}

// ensureConfig загружает конфигурацию один раз: файл, окружение, затем глобальные флаги
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := loadConfig(c.flags)
		if err != nil {
			c.configErr = err
			return
		}
		logger, err := logging.New(logging.Options{
			Level:  cfg.LogLevel,
			Format: cfg.LogFormat,
			Output: os.Stderr,
		})
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.logger = logger
	})
	return c.config, c.configErr
}

func loadConfig(flags *globalFlags) (*config.Config, error) {
	cfg := config.GetDefaults()
	if path := strings.TrimSpace(flags.configPath); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.ApplyEnv()

	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if flags.logFormat != "" {
		cfg.LogFormat = flags.logFormat
	}
	if flags.databasePath != "" {
		cfg.DatabasePath = flags.databasePath
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// ensureContainer поднимает зависимости; вызывающая команда закрывает их через close
func (c *commandContext) ensureContainer() (*container.Container, error) {
	if c.container != nil {
		return c.container, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	ctn, err := container.NewContainer(cfg, c.logger)
	if err != nil {
		return nil, err
	}
	if err := ctn.Initialize(); err != nil {
		_ = ctn.Shutdown()
		return nil, fmt.Errorf("initialize: %w", err)
	}
	c.container = ctn
	return ctn, nil
}

// requireStore возвращает базу или понятную ошибку, если она не настроена
func (c *commandContext) requireStore() (*container.Container, error) {
	ctn, err := c.ensureContainer()
	if err != nil {
		return nil, err
	}
	if ctn.Store == nil {
		return nil, errors.New("run history is disabled; set --db, DATABASE_PATH or database_path in the config file")
	}
	return ctn, nil
}

func (c *commandContext) close() error {
	if c.container == nil {
		return nil
	}
	err := c.container.Shutdown()
	c.container = nil
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
