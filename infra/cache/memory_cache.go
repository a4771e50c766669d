package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory implements cache.RateCache with in-process storage. Used in
// tests and as the fallback when no Redis backend is configured.
type Memory struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
}

// NewMemory creates a new in-memory cache.
func NewMemory() *Memory {
	c := &Memory{entries: make(map[string]memoryEntry)}

	go c.cleanup()

	return c
}

// Get returns the cached payload, or (nil, nil) on a miss or an expired
// entry.
func (c *Memory) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, nil
	}
	return entry.value, nil
}

// Set stores the payload under key for ttl.
func (c *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// cleanup removes expired entries.
func (c *Memory) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.entries {
			if now.After(entry.expiresAt) {
				delete(c.entries, key)
			}
		}
		c.mu.Unlock()
	}
}
