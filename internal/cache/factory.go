package cache

import (
	"context"
	"fmt"
)

// NewCache creates a cache instance based on the provided configuration
func NewCache(ctx context.Context, config *CacheConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheConfig()
	}

	if !config.Enabled {
		return nil, ErrCacheDisabled
	}

	switch config.Backend {
	case CacheTypeMemory:
		return NewMemoryCache(config), nil
	case CacheTypeRedis:
		client, err := NewRedisClient(ctx, config.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedisCache(client), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidCacheType, config.Backend)
	}
}
