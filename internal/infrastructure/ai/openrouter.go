package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cotejo/matching"
)

// DefaultOpenRouterURL адрес OpenRouter API
const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

// OpenRouterClient арбитр поверх OpenAI-совместимого /chat/completions.
// Подходит для OpenRouter, OpenAI и LM Studio (различаются только BaseURL и ключ).
type OpenRouterClient struct {
	baseClient
}

// NewOpenRouterClient создает клиент; пустой BaseURL означает OpenRouter
func NewOpenRouterClient(cfg ClientConfig, opts ...Option) *OpenRouterClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Provider == "" {
		cfg.Provider = ProviderOpenRouter
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OpenRouterClient{baseClient: newBaseClient(cfg, opts)}
}

type chatCompletionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// ChatCompletion выполняет запрос к модели и возвращает текст первого варианта ответа
func (c *OpenRouterClient) ChatCompletion(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(chatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/chat/completions"
	body, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		// OpenRouter требует HTTP-Referer
		req.Header.Set("HTTP-Referer", "https://github.com/cotejo")
		req.Header.Set("X-Title", "cotejo")
		return req, nil
	})
	if err != nil {
		return "", err
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrResponseInvalid, err)
	}
	if response.Error != nil {
		return "", fmt.Errorf("API error: %s (type: %s)", response.Error.Message, response.Error.Type)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrResponseInvalid)
	}
	return response.Choices[0].Message.Content, nil
}

// ValidateBatch проверяет пакет пар одним запросом к модели
func (c *OpenRouterClient) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	started := time.Now()
	content, err := c.ChatCompletion(ctx, []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: BuildBatchPrompt(pairs)},
	})
	if err != nil {
		c.record(len(pairs), 0, started, err)
		return nil, err
	}

	verdicts, err := ParseVerdicts(content)
	c.record(len(pairs), len(verdicts), started, err)
	return verdicts, err
}
