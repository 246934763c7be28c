package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// MemoryTagCache is an in-process TagCache for tests and single-node runs.
type MemoryTagCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	byTag   map[string]map[string]struct{}
}

func NewMemoryTagCache() *MemoryTagCache {
	return &MemoryTagCache{
		entries: make(map[string]memoryEntry),
		byTag:   make(map[string]map[string]struct{}),
	}
}

func (c *MemoryTagCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.dropLocked(key, entry)
		return nil, false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryTagCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags ...string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryEntry{value: value, tags: tags}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	if existing, ok := c.entries[key]; ok {
		c.dropLocked(key, existing)
	}
	c.entries[key] = entry
	for _, tag := range tags {
		if tag == "" {
			continue
		}
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (c *MemoryTagCache) Invalidate(ctx context.Context, tags ...string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, tag := range tags {
		for key := range c.byTag[tag] {
			if entry, ok := c.entries[key]; ok {
				c.dropLocked(key, entry)
			}
		}
		delete(c.byTag, tag)
	}
	return nil
}

func (c *MemoryTagCache) dropLocked(key string, entry memoryEntry) {
	delete(c.entries, key)
	for _, tag := range entry.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}
