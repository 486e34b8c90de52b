package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync"

	"cotejo/matching"
)

// VerdictStore хранилище решений арбитра по ключу пары текстов
type VerdictStore interface {
	LoadVerdicts(ctx context.Context, keys []string) (map[string]matching.Verdict, error)
	SaveVerdicts(ctx context.Context, verdicts map[string]matching.Verdict) error
}

// VerdictKey ключ кэша: хэш модели и обоих текстов пары
func VerdictKey(model, sourceText, targetText string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(sourceText))
	h.Write([]byte{0})
	h.Write([]byte(targetText))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedClient декоратор арбитра: пары с известным решением не отправляются повторно
type CachedClient struct {
	inner   ProviderClient
	store   VerdictStore
	metrics *MetricsCollector
	logger  *slog.Logger
}

// NewCachedClient оборачивает арбитра кэшем решений
func NewCachedClient(inner ProviderClient, store VerdictStore, metrics *MetricsCollector, logger *slog.Logger) *CachedClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedClient{
		inner:   inner,
		store:   store,
		metrics: metrics,
		logger:  logger,
	}
}

// Provider возвращает имя провайдера
func (c *CachedClient) Provider() string {
	return c.inner.Provider()
}

// Model возвращает имя модели
func (c *CachedClient) Model() string {
	return c.inner.Model()
}

// ValidateBatch отвечает из кэша, а остальные пары отправляет одним запросом.
// Ошибка хранилища не прерывает проверку: пары считаются промахами.
// Ошибка арбитра возвращается как есть, и пакет отбрасывается целиком.
func (c *CachedClient) ValidateBatch(ctx context.Context, pairs []matching.PairRequest) (map[string]matching.Verdict, error) {
	model := c.inner.Model()
	keys := make([]string, len(pairs))
	for i, pair := range pairs {
		keys[i] = VerdictKey(model, pair.SourceText, pair.TargetText)
	}

	cached, err := c.store.LoadVerdicts(ctx, keys)
	if err != nil {
		c.logger.Warn("verdict cache lookup failed", "error", err)
		cached = nil
	}

	verdicts := make(map[string]matching.Verdict, len(pairs))
	var misses []matching.PairRequest
	missKeys := make(map[string]string)
	for i, pair := range pairs {
		if verdict, ok := cached[keys[i]]; ok {
			verdicts[pair.PairID] = verdict
			continue
		}
		misses = append(misses, pair)
		missKeys[pair.PairID] = keys[i]
	}

	if c.metrics != nil {
		c.metrics.RecordCache(len(pairs)-len(misses), len(misses))
	}
	if len(misses) == 0 {
		return verdicts, nil
	}

	fresh, err := c.inner.ValidateBatch(ctx, misses)
	if err != nil {
		return nil, err
	}

	toSave := make(map[string]matching.Verdict, len(fresh))
	for pairID, verdict := range fresh {
		key, requested := missKeys[pairID]
		if !requested {
			continue
		}
		verdicts[pairID] = verdict
		toSave[key] = verdict
	}
	if len(toSave) > 0 {
		if err := c.store.SaveVerdicts(ctx, toSave); err != nil {
			c.logger.Warn("verdict cache save failed", "error", err)
		}
	}
	return verdicts, nil
}

// MemoryVerdictStore хранилище решений в памяти процесса
type MemoryVerdictStore struct {
	mu       sync.RWMutex
	verdicts map[string]matching.Verdict
}

// NewMemoryVerdictStore создает пустое хранилище
func NewMemoryVerdictStore() *MemoryVerdictStore {
	return &MemoryVerdictStore{verdicts: make(map[string]matching.Verdict)}
}

// LoadVerdicts возвращает известные решения для ключей
func (s *MemoryVerdictStore) LoadVerdicts(_ context.Context, keys []string) (map[string]matching.Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]matching.Verdict)
	for _, key := range keys {
		if verdict, ok := s.verdicts[key]; ok {
			found[key] = verdict
		}
	}
	return found, nil
}

// SaveVerdicts сохраняет решения
func (s *MemoryVerdictStore) SaveVerdicts(_ context.Context, verdicts map[string]matching.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, verdict := range verdicts {
		s.verdicts[key] = verdict
	}
	return nil
}

// Len возвращает количество сохраненных решений
func (s *MemoryVerdictStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.verdicts)
}
