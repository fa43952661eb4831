package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a cache entry is not found
var ErrNotFound = errors.New("cache entry not found")

// MemoryCache is an in-memory implementation of the AgeStore interface.
// Entries live for the process lifetime unless a TTL is set.
type MemoryCache struct {
	entries map[string]core.AgeEntry
	mu      sync.RWMutex
	logger  *zap.Logger
	ttl     time.Duration
	stopCh  chan struct{}
	once    sync.Once
}

// NewMemoryCache creates a new in-memory cache. A zero ttl disables eviction.
func NewMemoryCache(logger *zap.Logger, ttl, cleanupFreq time.Duration) *MemoryCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	cache := &MemoryCache{
		entries: make(map[string]core.AgeEntry),
		logger:  logger,
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	if ttl > 0 && cleanupFreq > 0 {
		go startCleanupTask(cache, cleanupFreq, cache.stopCh, logger)
	}

	return cache
}

// Get retrieves a cached entry for a domain
func (c *MemoryCache) Get(ctx context.Context, domain string) (*core.AgeEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[domain]
	if !ok {
		return nil, ErrNotFound
	}

	return &entry, nil
}

// Set stores a cache entry
func (c *MemoryCache) Set(ctx context.Context, entry *core.AgeEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[entry.Domain] = *entry
	return nil
}

// Len returns the number of cached domains
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes entries checked longer than ttl ago
func (c *MemoryCache) Cleanup(ctx context.Context) error {
	if c.ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-c.ttl)
	expiredCount := 0

	for key, entry := range c.entries {
		if entry.CheckedAt.Before(cutoff) {
			delete(c.entries, key)
			expiredCount++
		}
	}

	c.logger.Debug("Cleaned up expired cache entries", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (c *MemoryCache) Stop() {
	c.once.Do(func() { close(c.stopCh) })
}

// cleaner is implemented by every cache backend
type cleaner interface {
	Cleanup(ctx context.Context) error
}

// startCleanupTask runs Cleanup every freq until stopCh closes
func startCleanupTask(c cleaner, freq time.Duration, stopCh <-chan struct{}, logger *zap.Logger) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up cache", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}
