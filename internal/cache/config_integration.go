package cache

import (
	platformconfig "github.com/qolzam/assetpipe/internal/platform/config"
)

// FromPlatformConfig converts the service configuration into a cache configuration
func FromPlatformConfig(cfg platformconfig.CacheConfig) *CacheConfig {
	out := DefaultCacheConfig()
	out.Enabled = cfg.Enabled
	if cfg.Backend != "" {
		out.Backend = CacheType(cfg.Backend)
	}
	if cfg.Prefix != "" {
		out.Prefix = cfg.Prefix
	}
	if cfg.TTL > 0 {
		out.TTL = cfg.TTL
	}
	if cfg.CleanupInterval > 0 {
		out.CleanupInterval = cfg.CleanupInterval
	}

	if cfg.Redis.Address != "" {
		out.Redis.Address = cfg.Redis.Address
	}
	out.Redis.Password = cfg.Redis.Password
	out.Redis.Database = cfg.Redis.Database
	if cfg.Redis.PoolSize > 0 {
		out.Redis.PoolSize = cfg.Redis.PoolSize
	}
	if cfg.Redis.MinIdleConns > 0 {
		out.Redis.MinIdleConns = cfg.Redis.MinIdleConns
	}
	if cfg.Redis.MaxConnAge > 0 {
		out.Redis.MaxConnAge = cfg.Redis.MaxConnAge
	}
	return out
}
