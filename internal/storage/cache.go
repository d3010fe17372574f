package storage

import (
	"sync"
	"time"

	"nutritrack/internal/infrastructure/config"
	"nutritrack/internal/metrics"
	"nutritrack/internal/pkg/common"

	"go.uber.org/zap"
)

// CatalogCache 讀多寫少文件（食物、對應表、公開食譜）的記憶體快取，TTL 加 LRU 淘汰
type CatalogCache struct {
	cfg   config.CatalogCacheConfig
	mu    sync.Mutex
	store map[string]cacheEntry
	stats cacheStats
	stop  chan struct{}
	once  sync.Once
}

// cacheEntry 緩存條目
type cacheEntry struct {
	value       interface{}
	expiresAt   time.Time
	createdAt   time.Time
	lastAccess  time.Time
	accessCount int
}

// cacheStats 緩存統計
type cacheStats struct {
	hits      int64
	misses    int64
	evictions int64
}

// defaultCacheMaxSize 未設定容量時的上限
const defaultCacheMaxSize = 256

// NewCatalogCache 創建快取；停用時回傳 nil，nil 快取的所有方法皆為 no-op
func NewCatalogCache(cfg config.CatalogCacheConfig) *CatalogCache {
	if !cfg.Enabled {
		common.LogInfo("Catalog cache disabled")
		return nil
	}

	if cfg.MaxSize <= 0 {
		cfg.MaxSize = defaultCacheMaxSize
	}

	c := &CatalogCache{
		cfg:   cfg,
		store: make(map[string]cacheEntry),
		stop:  make(chan struct{}),
	}

	// 啟動清理過期緩存的協程
	if cfg.CleanupInterval > 0 {
		go c.startCleanup()
	}

	common.LogInfo("目錄快取已初始化",
		zap.Int("最大容量", cfg.MaxSize),
		zap.Duration("存活時間", cfg.TTL),
		zap.Duration("清理間隔", cfg.CleanupInterval),
	)
	return c
}

// Get 獲取緩存值
func (c *CatalogCache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.store[key]
	if !ok {
		c.stats.misses++
		metrics.CacheMisses.Inc()
		common.LogCacheMiss("catalog", key)
		return nil, false
	}

	// 檢查是否過期
	if time.Now().After(entry.expiresAt) {
		delete(c.store, key)
		c.stats.evictions++
		c.stats.misses++
		metrics.CacheEvictions.Inc()
		metrics.CacheMisses.Inc()
		metrics.CacheEntries.Set(float64(len(c.store)))
		common.LogCacheMiss("catalog", key)
		return nil, false
	}

	// 更新訪問統計
	entry.lastAccess = time.Now()
	entry.accessCount++
	c.store[key] = entry
	c.stats.hits++
	metrics.CacheHits.Inc()
	common.LogCacheHit("catalog", key)
	return entry.value, true
}

// Set 設置緩存值，容量已滿時先清理過期項目再執行 LRU 淘汰
func (c *CatalogCache) Set(key string, value interface{}) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.cfg.MaxSize {
		c.cleanup()
		for len(c.store) > 0 && len(c.store) >= c.cfg.MaxSize {
			c.evictLRU()
		}
	}

	now := time.Now()
	c.store[key] = cacheEntry{
		value:      value,
		expiresAt:  now.Add(c.cfg.TTL),
		createdAt:  now,
		lastAccess: now,
	}
	metrics.CacheEntries.Set(float64(len(c.store)))
}

// Invalidate 移除指定鍵
func (c *CatalogCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.store, key)
	metrics.CacheEntries.Set(float64(len(c.store)))
	c.mu.Unlock()
}

// startCleanup 啟動清理過期緩存的協程
func (c *CatalogCache) startCleanup() {
	ticker := time.NewTicker(c.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.mu.Lock()
			c.cleanup()
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// cleanup 清理過期的緩存，呼叫端需持有鎖
func (c *CatalogCache) cleanup() int {
	now := time.Now()
	count := 0
	for key, entry := range c.store {
		if now.After(entry.expiresAt) {
			delete(c.store, key)
			count++
		}
	}
	if count > 0 {
		c.stats.evictions += int64(count)
		metrics.CacheEvictions.Add(float64(count))
		metrics.CacheEntries.Set(float64(len(c.store)))
		common.LogDebug("Cleaned up expired cache entries",
			zap.Int("count", count),
			zap.Int("remaining_size", len(c.store)),
		)
	}
	return count
}

// evictLRU 淘汰最少訪問的項目，同次數時淘汰最久未訪問者
func (c *CatalogCache) evictLRU() {
	var oldestKey string
	var oldestAccess time.Time
	lowestAccessCount := -1

	for key, entry := range c.store {
		if lowestAccessCount < 0 ||
			entry.accessCount < lowestAccessCount ||
			(entry.accessCount == lowestAccessCount && entry.lastAccess.Before(oldestAccess)) {
			oldestKey = key
			oldestAccess = entry.lastAccess
			lowestAccessCount = entry.accessCount
		}
	}

	if lowestAccessCount >= 0 {
		delete(c.store, oldestKey)
		c.stats.evictions++
		metrics.CacheEvictions.Inc()
		common.LogDebug("快取已淘汰(LRU)", zap.String("鍵", oldestKey))
	}
}

// GetStats 獲取緩存統計信息
func (c *CatalogCache) GetStats() map[string]interface{} {
	if c == nil {
		return map[string]interface{}{"enabled": false}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	ratio := 0.0
	if total := c.stats.hits + c.stats.misses; total > 0 {
		ratio = float64(c.stats.hits) / float64(total)
	}
	return map[string]interface{}{
		"enabled":   true,
		"size":      len(c.store),
		"max_size":  c.cfg.MaxSize,
		"hits":      c.stats.hits,
		"misses":    c.stats.misses,
		"evictions": c.stats.evictions,
		"hit_ratio": ratio,
	}
}

// Close 停止清理協程並清空快取
func (c *CatalogCache) Close() error {
	if c == nil {
		return nil
	}
	c.once.Do(func() { close(c.stop) })

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
	common.LogInfo("目錄快取已關閉",
		zap.Int64("命中次數", c.stats.hits),
		zap.Int64("未命中次數", c.stats.misses),
		zap.Int64("淘汰次數", c.stats.evictions),
	)
	return nil
}
