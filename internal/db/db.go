// Package db provides a pgxpool-based connection pool with prepared statement
// registration and health checking.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/keeper-analytics/internal/config"
)

// Pool wraps pgxpool.Pool with application-specific helpers.
type Pool struct {
	*pgxpool.Pool
}

// New creates and validates a new connection pool.
func New(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}

	poolCfg.MinConns = int32(cfg.DBPoolMinConns)
	poolCfg.MaxConns = int32(cfg.DBPoolMaxConns)
	poolCfg.MaxConnLifetime = cfg.DBPoolMaxLife
	poolCfg.MaxConnIdleTime = 5 * time.Minute

	// Register prepared statements on every new connection.
	poolCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		return registerPreparedStatements(ctx, conn)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	// Verify connectivity
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Pool{Pool: pool}, nil
}

// HealthCheck runs a trivial query to verify the database is reachable.
func (p *Pool) HealthCheck(ctx context.Context) error {
	var n int
	return p.QueryRow(ctx, StmtHealthCheck).Scan(&n)
}

// Prepared statement names.
const (
	StmtHealthCheck = "health_check"
	StmtListRuns    = "list_runs"
	StmtGetRun      = "get_run"
	StmtLatestRun   = "latest_run"
	StmtGetOutput   = "get_output"
	StmtInsertRun   = "insert_run"
	StmtInsertOut   = "insert_output"
	StmtPruneRuns   = "prune_runs"
)

const runColumns = "id::text, league, seasons, started_at, duration_ms, warnings, errors, summary, created_at"

// registerPreparedStatements registers the statements the API and the
// analysis CLI use. The schema must exist before the first connection that
// prepares them, so migrate runs on a pool opened with NewUnprepared.
func registerPreparedStatements(ctx context.Context, conn *pgx.Conn) error {
	stmts := map[string]string{
		// Health
		StmtHealthCheck: "SELECT 1",

		// Runs
		StmtListRuns:  "SELECT " + runColumns + " FROM analysis_runs ORDER BY created_at DESC LIMIT $1",
		StmtGetRun:    "SELECT " + runColumns + " FROM analysis_runs WHERE id = $1::uuid",
		StmtLatestRun: "SELECT " + runColumns + " FROM analysis_runs ORDER BY created_at DESC LIMIT 1",
		StmtGetOutput: "SELECT data FROM analysis_outputs WHERE run_id = $1::uuid AND table_name = $2",

		// Writes
		StmtInsertRun: `INSERT INTO analysis_runs (id, league, seasons, started_at, duration_ms, warnings, errors, summary)
			VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8)`,
		StmtInsertOut: "INSERT INTO analysis_outputs (run_id, table_name, data) VALUES ($1::uuid, $2, $3)",

		// Retention
		StmtPruneRuns: "DELETE FROM analysis_runs WHERE created_at < NOW() - make_interval(secs => $1)",
	}

	for name, sql := range stmts {
		if _, err := conn.Prepare(ctx, name, sql); err != nil {
			return fmt.Errorf("prepare %q: %w", name, err)
		}
	}
	return nil
}

// NewUnprepared opens a pool without statement registration, for schema
// migration against an empty database.
func NewUnprepared(ctx context.Context, cfg *config.Config) (*Pool, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{Pool: pool}, nil
}
