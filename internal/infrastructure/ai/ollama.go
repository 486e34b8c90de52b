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

// DefaultOllamaURL адрес локального Ollama
const DefaultOllamaURL = "http://localhost:11434"

// OllamaClient арбитр поверх Ollama /api/chat в режиме format=json
type OllamaClient struct {
	baseClient
}

// NewOllamaClient создает клиент Ollama
func NewOllamaClient(cfg ClientConfig, opts ...Option) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOllamaURL
	}
	cfg.Provider = ProviderOllama
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &OllamaClient{baseClient: newBaseClient(cfg, opts)}
}

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Format   string         `json:"format"`
	Options  map[string]any `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// Chat отправляет сообщения и возвращает содержимое ответа
func (c *OllamaClient) Chat(ctx context.Context, messages []Message) (string, error) {
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   false,
		Format:   "json",
		Options:  map[string]any{"temperature": c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + "/api/chat"
	body, err := c.do(ctx, func(ctx context.Context) (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	})
	if err != nil {
		return "", err
	}

	var response ollamaChatResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrResponseInvalid, err)
	}
	if response.Error != "" {
		return "", fmt.Errorf("ollama error: %s", response.Error)
	}
	return response.Message.Content, nil
}

// ValidateBatch проверяет пакет пар одним запросом.
// В режиме format=json модель возвращает объект, поэтому массив просится обернуть в results.
func (c *OllamaClient) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	started := time.Now()
	prompt := BuildBatchPrompt(pairs) + "\n\nEnvolva o array em um objeto: {\"results\": [...]}"

	content, err := c.Chat(ctx, []Message{
		{Role: "system", Content: SystemPrompt},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		c.record(len(pairs), 0, started, err)
		return nil, err
	}

	verdicts, err := ParseVerdicts(content)
	c.record(len(pairs), len(verdicts), started, err)
	return verdicts, err
}
