package jobs

import (
	"context"

	"github.com/academy-hub/academy-ledger/internal/infrastructure/persistence/redis"
	"github.com/academy-hub/academy-ledger/pkg/logger"
)

// CacheSweepJob drops the catalog and platform status caches so the next
// read repopulates them. Command-side invalidation handles per-entity keys;
// this sweep is the backstop for the aggregate views.
type CacheSweepJob struct {
	cache *redis.Cache
	log   *logger.Logger
}

// NewCacheSweepJob creates the cache sweep.
func NewCacheSweepJob(cache *redis.Cache, log *logger.Logger) *CacheSweepJob {
	if log == nil {
		log = logger.Default()
	}
	return &CacheSweepJob{
		cache: cache,
		log:   log.With(logger.Component("cache_sweep_job")),
	}
}

// Name implements scheduler.Job.
func (j *CacheSweepJob) Name() string { return "cache_sweep" }

// Run implements scheduler.Job.
func (j *CacheSweepJob) Run(ctx context.Context) error {
	for _, prefix := range []string{redis.PrefixCatalog, redis.PrefixPlatform} {
		if err := j.cache.DeleteByPrefix(ctx, prefix); err != nil {
			return err
		}
	}
	j.log.Debug("aggregate caches swept")
	return nil
}
