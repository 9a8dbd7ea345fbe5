package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// Memory is the in-process fallback used when redis is not configured.
type Memory struct {
	cache *ttlcache.Cache[string, []byte]
}

// NewMemory starts the expiry loop; call Stop when done.
func NewMemory(ttl time.Duration, capacity int) *Memory {
	opts := []ttlcache.Option[string, []byte]{
		ttlcache.WithTTL[string, []byte](ttl),
	}
	if capacity > 0 {
		opts = append(opts, ttlcache.WithCapacity[string, []byte](uint64(capacity)))
	}

	c := ttlcache.New[string, []byte](opts...)
	go c.Start()

	return &Memory{cache: c}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, bool, error) {
	item := m.cache.Get(key)
	if item == nil {
		return nil, false, nil
	}
	return item.Value(), true, nil
}

func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}
	m.cache.Set(key, value, ttl)
	return nil
}

func (m *Memory) Len() int {
	return m.cache.Len()
}

func (m *Memory) Stop() {
	m.cache.Stop()
}
