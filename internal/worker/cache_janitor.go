package worker

import (
	"context"
	"log/slog"
	"time"
)

// Purger drops expired entries and reports how many it removed
type Purger interface {
	Purge() int
}

// CacheJanitor periodically evicts expired cache entries. Reads already skip
// stale entries; this bounds memory for tenants that are never read again.
type CacheJanitor struct {
	cache    Purger
	name     string
	interval time.Duration
	logger   *slog.Logger
}

// NewCacheJanitor creates a janitor for cache. interval <= 0 uses one minute.
func NewCacheJanitor(cache Purger, name string, interval time.Duration, logger *slog.Logger) *CacheJanitor {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &CacheJanitor{cache: cache, name: name, interval: interval, logger: logger}
}

// Start runs until ctx is cancelled
func (j *CacheJanitor) Start(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started",
		slog.String("cache", j.name),
		slog.Duration("interval", j.interval),
	)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped", slog.String("cache", j.name))
			return
		case <-ticker.C:
			j.sweep()
		}
	}
}

func (j *CacheJanitor) sweep() {
	if n := j.cache.Purge(); n > 0 {
		j.logger.Debug("purged expired cache entries",
			slog.String("cache", j.name),
			slog.Int("count", n),
		)
	}
}
