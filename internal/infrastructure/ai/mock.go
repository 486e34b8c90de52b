package ai

import (
	"context"
	"sync"

	"cotejo/matching"
	"cotejo/normalization/algorithms"
)

// MockClient детерминированный офлайн-арбитр: решает по коэффициенту Жаккара.
// Пара совпадает, если коэффициент не ниже порога; уверенность равна коэффициенту.
type MockClient struct {
	threshold float64
	jaccard   *algorithms.JaccardIndex

	mu    sync.Mutex
	calls int
}

// NewMockClient создает офлайн-арбитр с порогом совпадения
func NewMockClient(threshold float64) *MockClient {
	return &MockClient{
		threshold: threshold,
		jaccard:   algorithms.NewJaccardIndex(nil),
	}
}

// Provider возвращает имя провайдера
func (m *MockClient) Provider() string {
	return ProviderMock
}

// Model возвращает имя модели
func (m *MockClient) Model() string {
	return "jaccard"
}

// Calls возвращает количество пакетных вызовов
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ValidateBatch выносит решение по каждой паре
func (m *MockClient) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	verdicts := make(map[string]matching.Verdict, len(pairs))
	for _, pair := range pairs {
		similarity := m.jaccard.Similarity(pair.SourceText, pair.TargetText)
		verdicts[pair.PairID] = matching.Verdict{
			IsMatch:    similarity >= m.threshold,
			Confidence: similarity,
			Rationale:  "token overlap",
		}
	}
	return verdicts, nil
}
