// Package store persists league inputs and analysis runs in Postgres.
//
// Source tables mirror the league package one to one. Each run is one
// analysis_runs row plus one JSONB analysis_outputs row per output table;
// handlers pass those bytes straight through.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albapepper/keeper-analytics/internal/db"
	"github.com/albapepper/keeper-analytics/internal/pipeline"
)

//go:embed schema.sql
var schemaSQL string

// NotifyChannel is the pg_notify channel signalled after a run is saved.
const NotifyChannel = "analysis_run_complete"

var (
	// ErrNotFound is returned when a run or output table does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidRunID is returned for run IDs that are not UUIDs.
	ErrInvalidRunID = errors.New("invalid run id")
)

// Store reads and writes through a connection pool whose connections carry
// the statements registered by package db.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// New creates a Store.
func New(pool *pgxpool.Pool, logger *slog.Logger) *Store {
	return &Store{pool: pool, logger: logger}
}

// Migrate applies the embedded schema. It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	start := time.Now()
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("Schema applied", "duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	var n int
	return s.pool.QueryRow(ctx, db.StmtHealthCheck).Scan(&n)
}

// --------------------------------------------------------------------------
// Runs
// --------------------------------------------------------------------------

// Run is the metadata of one saved analysis run.
type Run struct {
	ID         string    `json:"id"`
	League     string    `json:"league"`
	Seasons    []int     `json:"seasons"`
	StartedAt  time.Time `json:"started_at"`
	DurationMS int64     `json:"duration_ms"`
	Warnings   []string  `json:"warnings"`
	Errors     []string  `json:"errors"`
	Summary    string    `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
	Tables     []string  `json:"tables,omitempty"`
}

// RunEvent is the JSON payload sent on NotifyChannel.
type RunEvent struct {
	RunID  string `json:"run_id"`
	League string `json:"league"`
}

type outputRow struct {
	table string
	data  []byte
}

// outputRows marshals every output table. Empty tables are stored as [].
func outputRows(res *pipeline.Result) ([]outputRow, error) {
	tables := res.Outputs.Tables()
	rows := make([]outputRow, 0, len(tables))
	for _, t := range tables {
		b, err := json.Marshal(t.Data)
		if err != nil {
			return nil, fmt.Errorf("marshal %s: %w", t.Name, err)
		}
		if string(b) == "null" {
			b = []byte("[]")
		}
		rows = append(rows, outputRow{table: t.Name, data: b})
	}
	return rows, nil
}

// SaveRun writes a run and all its outputs in one transaction, then
// notifies listeners. It returns the new run ID.
func (s *Store) SaveRun(ctx context.Context, res *pipeline.Result) (string, error) {
	rows, err := outputRows(res)
	if err != nil {
		return "", err
	}
	id := uuid.New().String()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, db.StmtInsertRun,
		id, res.League, nonNil(res.Seasons), res.StartedAt,
		res.Duration.Milliseconds(), nonNil(res.Warnings), nonNil(res.Errors), res.Summary(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(db.StmtInsertOut, id, r.table, r.data)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("insert outputs: %w", err)
	}

	payload, err := json.Marshal(RunEvent{RunID: id, League: res.League})
	if err != nil {
		return "", err
	}
	// Delivered on commit.
	if _, err := tx.Exec(ctx, "SELECT pg_notify($1, $2)", NotifyChannel, string(payload)); err != nil {
		return "", fmt.Errorf("notify: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.logger.Info("Run saved", "run_id", id, "league", res.League, "tables", len(rows))
	return id, nil
}

func scanRun(row pgx.Row) (*Run, error) {
	var r Run
	err := row.Scan(&r.ID, &r.League, &r.Seasons, &r.StartedAt, &r.DurationMS,
		&r.Warnings, &r.Errors, &r.Summary, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.pool.Query(ctx, db.StmtListRuns, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRun returns one run with the names of its stored tables.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrInvalidRunID
	}
	r, err := scanRun(s.pool.QueryRow(ctx, db.StmtGetRun, runID))
	if err != nil {
		return nil, err
	}
	r.Tables, err = s.tableNames(ctx, runID)
	return r, err
}

// LatestRun returns the newest run.
func (s *Store) LatestRun(ctx context.Context) (*Run, error) {
	r, err := scanRun(s.pool.QueryRow(ctx, db.StmtLatestRun))
	if err != nil {
		return nil, err
	}
	r.Tables, err = s.tableNames(ctx, r.ID)
	return r, err
}

func (s *Store) tableNames(ctx context.Context, runID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT table_name FROM analysis_outputs WHERE run_id = $1::uuid ORDER BY table_name", runID)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// GetOutput returns the stored JSON for one output table of a run.
func (s *Store) GetOutput(ctx context.Context, runID, table string) ([]byte, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, ErrInvalidRunID
	}
	var raw []byte
	err := s.pool.QueryRow(ctx, db.StmtGetOutput, runID, table).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get output: %w", err)
	}
	return raw, nil
}

// PruneRuns deletes runs created more than olderThan ago; their outputs go
// with them. It returns the number of runs removed.
func (s *Store) PruneRuns(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, db.StmtPruneRuns, olderThan.Seconds())
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
