package internal

import (
	"context"
	"time"

	"sjsage522/eventworker/config"
	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/logger"
	"sjsage522/eventworker/services/cache"
	"sjsage522/eventworker/services/notifier"
	"sjsage522/eventworker/services/publisher"
	"sjsage522/eventworker/services/store"
)

// NewDependencies wires every service from cfg. Redis must be reachable since
// sent records live there. Memcache is only used for rate-limit markers, so an
// unreachable server is logged and tolerated.
func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	client := store.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	kv := store.NewRedisStore(client, cfg.StoreTimeout)
	if err := kv.Ping(ctx); err != nil {
		kv.Close()
		return nil, err
	}
	logger.Info("Connected to Redis at %s (DB: %d)", cfg.RedisAddr, cfg.RedisDB)

	mc := cache.NewMemcacheService(cfg.MemcacheAddr)
	if err := mc.Ping(); err != nil {
		// production runs rely on the block to stay polite to the sites
		if cfg.IsProduction() {
			logger.LogError("cache", err, "memcache at %s unavailable, rate-limit blocks will not persist", cfg.MemcacheAddr)
		} else {
			logger.Warn("memcache at %s unavailable, rate-limit blocks will not persist: %v", cfg.MemcacheAddr, err)
		}
	} else {
		logger.Info("Connected to Memcache at %s", cfg.MemcacheAddr)
	}

	deps := &Dependencies{
		Redis:   client,
		Store:   kv,
		Tracker: store.NewSentTracker(kv, cfg.SentKeyPrefix, cfg.SentTTL, cfg.StoreReadConcurrency),
		Cache:   mc,
		Notifier: notifier.NewTelegramNotifier(
			cfg.TelegramAPIURL,
			cfg.TelegramBotToken,
			cfg.TelegramChatID,
			cfg.TelegramTimeout,
			notifier.Limits{
				MaxMessageLength:   cfg.MaxMessageLength,
				SafeTruncateLength: cfg.SafeTruncateLength,
			},
		),
	}

	if cfg.PublishEnabled {
		deps.Publisher = publisher.NewRedisPublisher(client, cfg.RedisStream, cfg.RedisStreamMaxLen)
		logger.LogInfo("publisher", "stream mirror enabled on %s (max length %d)", cfg.RedisStream, cfg.RedisStreamMaxLen)
	}

	extractors, err := extractor.CreateExtractors(cfg, mc, time.Now)
	if err != nil {
		deps.Close()
		return nil, err
	}
	deps.Extractors = extractors

	logger.Debug("created %d extractors", len(extractors))
	return deps, nil
}
