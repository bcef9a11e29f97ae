// Package cache stores short-lived JSON values in process (go-cache) or in
// redis when REDIS_URL is configured.
package cache

import (
	"context"
	"time"
)

// Cache holds JSON-encodable values under string keys.
type Cache interface {
	// Get decodes the value for key into dest. It reports false on a miss.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type LocalConfig struct {
	DefaultExpiration time.Duration
	CleanupInterval   time.Duration
}

func DefaultLocalConfig() LocalConfig {
	return LocalConfig{
		DefaultExpiration: 10 * time.Minute,
		CleanupInterval:   20 * time.Minute,
	}
}
