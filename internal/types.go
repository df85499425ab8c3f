package internal

import (
	"sjsage522/eventworker/internal/extractor"
	"sjsage522/eventworker/services/cache"
	"sjsage522/eventworker/services/notifier"
	"sjsage522/eventworker/services/publisher"
	"sjsage522/eventworker/services/store"
	"sjsage522/eventworker/services/worker"

	"github.com/redis/go-redis/v9"
)

// Dependencies holds all service dependencies
type Dependencies struct {
	Redis      *redis.Client
	Store      *store.RedisStore
	Tracker    *store.SentTracker
	Cache      cache.CacheService
	Notifier   notifier.Notifier
	Publisher  publisher.Publisher
	Extractors []extractor.Extractor
}

// Job returns a collection job over the dependencies.
func (d *Dependencies) Job() *worker.Job {
	return worker.NewJob(d.Extractors, d.Tracker, d.Notifier, d.Publisher)
}

// Close releases the shared Redis connection.
func (d *Dependencies) Close() error {
	if d.Store != nil {
		return d.Store.Close()
	}
	return nil
}
