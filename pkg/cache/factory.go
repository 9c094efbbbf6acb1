package cache

import (
	"faqdesk/backend/pkg/config"
	"faqdesk/backend/pkg/logger"
)

// New builds the cache selected by configuration, or nil when caching is off.
func New(cfg *config.Config, log *logger.Logger) Cache {
	if !cfg.Cache.Enabled {
		return nil
	}

	if cfg.Cache.Backend == "redis" {
		log.Info("Using redis cache", "addr", cfg.Redis.Addr)
		return NewRedis(RedisOptions{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			KeyPrefix:  cfg.Redis.KeyPrefix,
			DefaultTTL: cfg.Cache.TTL,
		}, log)
	}

	return NewMemory(MemoryOptions{
		DefaultTTL:      cfg.Cache.TTL,
		CleanupInterval: cfg.Cache.PurgeWindow,
		MaxItems:        cfg.Cache.MaxSize,
	})
}
