package proofreading

import (
	"sync"
	"time"
)

// CacheConfig конфигурация кэша
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	MaxSize         int           `json:"max_size"`
}

// DefaultCacheConfig кэш исправлений на сутки
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:         true,
		TTL:             24 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		MaxSize:         10000,
	}
}

// CacheEntry запись в кэше
type CacheEntry struct {
	Corrected   string
	Expiration  time.Time
	AccessCount int64
}

// CacheStats статистика кэша
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Cache кэш исправленных фрагментов: одинаковые описания повторяются в каталогах постоянно
type Cache struct {
	config *CacheConfig
	data   map[string]*CacheEntry
	mutex  sync.Mutex
	stats  CacheStats
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewCache создает новый кэш
func NewCache(config *CacheConfig) *Cache {
	if config == nil {
		config = DefaultCacheConfig()
	}
	cache := &Cache{
		config: config,
		data:   make(map[string]*CacheEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
	}

	// Запускаем очистку устаревших записей
	if config.Enabled && config.CleanupInterval > 0 {
		go cache.startCleanup()
	}

	return cache
}

// Get возвращает исправленный фрагмент из кэша
func (c *Cache) Get(key string) (string, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if !c.config.Enabled {
		c.stats.Misses++
		return "", false
	}

	entry, exists := c.data[key]
	if !exists || c.now().After(entry.Expiration) {
		c.stats.Misses++
		return "", false
	}

	entry.AccessCount++
	c.stats.Hits++
	return entry.Corrected, true
}

// Set сохраняет исправленный фрагмент
func (c *Cache) Set(key, corrected string) {
	if !c.config.Enabled {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.data[key]; !exists && c.config.MaxSize > 0 && len(c.data) >= c.config.MaxSize {
		c.evictLRU()
	}

	c.data[key] = &CacheEntry{
		Corrected:   corrected,
		Expiration:  c.now().Add(c.config.TTL),
		AccessCount: 1,
	}
}

// GetStats возвращает статистику кэша
func (c *Cache) GetStats() CacheStats {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

// Close останавливает фоновую очистку
func (c *Cache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// evictLRU удаляет наименее используемую запись
func (c *Cache) evictLRU() {
	var lruKey string
	var lruCount int64 = -1

	for key, entry := range c.data {
		if lruCount == -1 || entry.AccessCount < lruCount {
			lruKey = key
			lruCount = entry.AccessCount
		}
	}

	if lruKey != "" {
		delete(c.data, lruKey)
	}
}

// startCleanup запускает периодическую очистку устаревших записей
func (c *Cache) startCleanup() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.cleanup()
		}
	}
}

// cleanup удаляет устаревшие записи
func (c *Cache) cleanup() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := c.now()
	for key, entry := range c.data {
		if now.After(entry.Expiration) {
			delete(c.data, key)
		}
	}
}
