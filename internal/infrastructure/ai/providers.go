package ai

import (
	"context"
	"fmt"
	"strings"

	"cotejo/matching"
)

// Имена провайдеров
const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
	ProviderLMStudio   = "lmstudio"
	ProviderOllama     = "ollama"
	ProviderMock       = "mock"
)

// Адреса по умолчанию
const (
	DefaultOpenAIURL   = "https://api.openai.com/v1"
	DefaultLMStudioURL = "http://localhost:1234/v1"
)

// ProviderClient арбитр с именем провайдера и модели
type ProviderClient interface {
	matching.Arbiter
	// Provider возвращает имя провайдера
	Provider() string
	// Model возвращает имя модели
	Model() string
}

// SupportedProviders возвращает список известных провайдеров
func SupportedProviders() []string {
	return []string{ProviderOpenRouter, ProviderOpenAI, ProviderLMStudio, ProviderOllama, ProviderMock}
}

// IsProviderSupported проверяет имя провайдера
func IsProviderSupported(name string) bool {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, p := range SupportedProviders() {
		if p == name {
			return true
		}
	}
	return false
}

// NewProvider создает арбитра по имени провайдера
func NewProvider(cfg ClientConfig, opts ...Option) (ProviderClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	cfg.Provider = provider

	switch provider {
	case ProviderOpenRouter:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", provider)
		}
		return NewOpenRouterClient(cfg, opts...), nil
	case ProviderOpenAI:
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", provider)
		}
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultOpenAIURL
		}
		return NewOpenRouterClient(cfg, opts...), nil
	case ProviderLMStudio:
		if cfg.BaseURL == "" {
			cfg.BaseURL = DefaultLMStudioURL
		}
		if cfg.Model == "" {
			cfg.Model = "local-model"
		}
		return NewOpenRouterClient(cfg, opts...), nil
	case ProviderOllama:
		if cfg.Model == "" {
			cfg.Model = "llama3.2:3b"
		}
		return NewOllamaClient(cfg, opts...), nil
	case ProviderMock:
		return NewMockClient(0.5), nil
	default:
		return nil, fmt.Errorf("unknown arbiter provider %q (supported: %s)", cfg.Provider, strings.Join(SupportedProviders(), ", "))
	}
}

// Ping проверяет доступность арбитра пробным пакетом из одной пары
func Ping(ctx context.Context, client matching.Arbiter) error {
	_, err := client.ValidateBatch(ctx, []matching.PairRequest{{
		PairID:     "ping_ping",
		SourceText: "parafuso",
		TargetText: "parafuso",
	}})
	return err
}
