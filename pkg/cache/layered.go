package cache

import (
	"context"
	"time"
)

// LayeredCache implements two-level cache (L1: Memory, L2: Redis).
type LayeredCache struct {
	mem    *MemoryCache
	remote Service
	l1TTL  time.Duration
}

// NewLayeredCache puts mem in front of remote. Entries promoted from
// remote live in memory for l1TTL.
func NewLayeredCache(mem *MemoryCache, remote Service, l1TTL time.Duration) *LayeredCache {
	return &LayeredCache{mem: mem, remote: remote, l1TTL: l1TTL}
}

func (lc *LayeredCache) Set(ctx context.Context, key string, value []byte, expiration time.Duration) error {
	// write-through: remote first so memory never holds what remote rejected
	if err := lc.remote.Set(ctx, key, value, expiration); err != nil {
		return err
	}
	return lc.mem.Set(ctx, key, value, expiration)
}

func (lc *LayeredCache) Get(ctx context.Context, key string) ([]byte, error) {
	if v, err := lc.mem.Get(ctx, key); err == nil {
		return v, nil
	}
	v, err := lc.remote.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	_ = lc.mem.Set(ctx, key, v, lc.l1TTL)
	return v, nil
}

func (lc *LayeredCache) Delete(ctx context.Context, keys ...string) error {
	_ = lc.mem.Delete(ctx, keys...)
	return lc.remote.Delete(ctx, keys...)
}

// Close closes both cache layers.
func (lc *LayeredCache) Close() error {
	_ = lc.mem.Close()
	return lc.remote.Close()
}
