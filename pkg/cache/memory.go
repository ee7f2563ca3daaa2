package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryCache is a process-local cache on top of go-cache.
// Entries beyond MaxSize are rejected until expiry frees room.
type MemoryCache struct {
	c       *gocache.Cache
	maxSize int
}

func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		DefaultTTL:      10 * time.Minute,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &MemoryCache{
		c:       gocache.New(cfg.DefaultTTL, cfg.CleanupInterval),
		maxSize: cfg.MaxSize,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, ErrCacheMiss
	}
	return v.([]byte), nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.maxSize > 0 && m.c.ItemCount() >= m.maxSize {
		m.c.DeleteExpired()
		if m.c.ItemCount() >= m.maxSize {
			if _, exists := m.c.Get(key); !exists {
				return nil
			}
		}
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, append([]byte(nil), value...), ttl)
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		m.c.Delete(k)
	}
	return nil
}

// Flush drops every entry.
func (m *MemoryCache) Flush() { m.c.Flush() }

func (m *MemoryCache) Len() int { return m.c.ItemCount() }

func (m *MemoryCache) Close() error { return nil }
