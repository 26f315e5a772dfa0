// Package maintenance runs periodic background tasks as Go tickers: run
// retention and cache eviction. All scheduled work is driven from the API
// process since it is already long-running.
package maintenance

import (
	"context"
	"log/slog"
	"time"

	"github.com/albapepper/keeper-analytics/internal/config"
)

// Pruner deletes stored runs older than a cutoff.
type Pruner interface {
	PruneRuns(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Cache is the part of the API cache maintenance drives.
type Cache interface {
	Evict() int
	Purge() int
}

// Config controls maintenance task intervals. Zero duration disables a task.
type Config struct {
	PruneInterval time.Duration // Delete runs past retention
	Retention     time.Duration
	EvictInterval time.Duration // Drop expired cache entries
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PruneInterval: time.Hour,
		Retention:     30 * 24 * time.Hour,
		EvictInterval: 5 * time.Minute,
	}
}

// FromConfig derives task settings from process configuration.
func FromConfig(cfg *config.Config) Config {
	out := DefaultConfig()
	out.PruneInterval = cfg.MaintenanceInterval
	if cfg.RunRetention > 0 {
		out.Retention = cfg.RunRetention
	}
	return out
}

// Start launches all configured maintenance tickers. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, pruner Pruner, cache Cache, cfg Config, logger *slog.Logger) {
	logger.Info("Maintenance tickers started",
		"prune", cfg.PruneInterval,
		"retention", cfg.Retention,
		"evict", cfg.EvictInterval)

	tickers := make([]*time.Ticker, 0, 2)
	defer func() {
		for _, t := range tickers {
			t.Stop()
		}
	}()

	if cfg.PruneInterval > 0 && cfg.Retention > 0 {
		t := time.NewTicker(cfg.PruneInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { prune(ctx, pruner, cache, cfg.Retention, logger) })
	}

	if cfg.EvictInterval > 0 {
		t := time.NewTicker(cfg.EvictInterval)
		tickers = append(tickers, t)
		go runLoop(ctx, t.C, func() { evict(cache, logger) })
	}

	<-ctx.Done()
	logger.Info("Maintenance tickers stopped")
}

func runLoop(ctx context.Context, ch <-chan time.Time, fn func()) {
	for {
		select {
		case <-ch:
			fn()
		case <-ctx.Done():
			return
		}
	}
}

// --------------------------------------------------------------------------
// Task implementations
// --------------------------------------------------------------------------

// prune removes runs past retention. Cached entries may reference a pruned
// run, so the whole cache is dropped when anything was deleted.
func prune(ctx context.Context, pruner Pruner, cache Cache, retention time.Duration, logger *slog.Logger) {
	n, err := pruner.PruneRuns(ctx, retention)
	if err != nil {
		logger.Warn("Prune: failed to delete old runs", "error", err)
		return
	}
	if n > 0 {
		purged := cache.Purge()
		logger.Info("Prune: deleted old runs", "count", n, "cache_purged", purged)
	}
}

func evict(cache Cache, logger *slog.Logger) {
	if n := cache.Evict(); n > 0 {
		logger.Debug("Evicted expired cache entries", "count", n)
	}
}
