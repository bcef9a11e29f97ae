package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// localCache keeps encoded bytes rather than live values so callers get the
// same copy semantics as the redis backend.
type localCache struct {
	c *gocache.Cache
}

func NewLocal(cfg LocalConfig) Cache {
	return &localCache{c: gocache.New(cfg.DefaultExpiration, cfg.CleanupInterval)}
}

func (l *localCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, ok := l.c.Get(key)
	if !ok {
		return false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("cache: unexpected value type %T for %q", v, key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("cache: decode %q: %w", key, err)
	}
	return true, nil
}

func (l *localCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: encode %q: %w", key, err)
	}
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	l.c.Set(key, raw, ttl)
	return nil
}

func (l *localCache) Delete(_ context.Context, key string) error {
	l.c.Delete(key)
	return nil
}

func (l *localCache) Close() error {
	l.c.Flush()
	return nil
}
