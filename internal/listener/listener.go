// Package listener provides a Postgres LISTEN/NOTIFY consumer that keeps
// the API cache in step with saved runs. It holds a dedicated pgx
// connection (not from the pool) listening on the analysis_run_complete
// channel.
//
// When the analysis CLI saves a run, the same transaction issues pg_notify;
// on commit this consumer drops the cached run list and latest-run entries
// so the next request sees the new run.
package listener

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/albapepper/keeper-analytics/internal/store"
)

const (
	reconnectBackoff = 5 * time.Second
	maxReconnect     = 30 * time.Second
)

// Invalidator is the part of the cache the listener needs.
type Invalidator interface {
	DeletePrefix(prefix string) int
}

// Start opens a dedicated connection and listens for completed runs. It
// reconnects automatically on connection loss. Blocks until ctx is
// cancelled. Intended to be called with `go`.
func Start(ctx context.Context, dbURL string, cache Invalidator, prefix string, logger *slog.Logger) {
	backoff := reconnectBackoff

	for {
		err := listenLoop(ctx, dbURL, cache, prefix, logger)
		if ctx.Err() != nil {
			logger.Info("Run listener stopped (context cancelled)")
			return
		}

		logger.Error("Run listener disconnected, reconnecting...",
			"error", err, "backoff", backoff)

		// Runs saved while disconnected were never announced.
		cache.DeletePrefix(prefix)

		select {
		case <-time.After(backoff):
			backoff = min(backoff*2, maxReconnect)
		case <-ctx.Done():
			return
		}
	}
}

// listenLoop runs a single listen session. Returns when the connection drops
// or the context is cancelled.
func listenLoop(ctx context.Context, dbURL string, cache Invalidator, prefix string, logger *slog.Logger) error {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	_, err = conn.Exec(ctx, "LISTEN "+pgx.Identifier{store.NotifyChannel}.Sanitize())
	if err != nil {
		return fmt.Errorf("LISTEN %s: %w", store.NotifyChannel, err)
	}
	logger.Info("Run listener connected", "channel", store.NotifyChannel)

	for {
		notification, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait for notification: %w", err)
		}
		handle(notification.Payload, cache, prefix, logger)
	}
}

// handle invalidates cached run listings for one notification.
func handle(payload string, cache Invalidator, prefix string, logger *slog.Logger) {
	var event store.RunEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		logger.Warn("Failed to parse run event", "payload", payload, "error", err)
	}
	n := cache.DeletePrefix(prefix)
	logger.Info("Run completed, cache invalidated",
		"run_id", event.RunID, "league", event.League, "evicted", n)
}
