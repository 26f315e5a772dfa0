// Command analyze is the keeper-league analysis CLI.
//
// Usage:
//
//	keeper-analyze run --from 2014 --to 2023
//	keeper-analyze run --db --from 2014 --to 2023 --save
//	keeper-analyze batch --dirs data/east,data/west --from 2018 --to 2023 --workers 2
//	keeper-analyze import --data-dir data/league_data --from 2014 --to 2023
//	keeper-analyze migrate
//	keeper-analyze runs --limit 10
//	keeper-analyze prune --older-than 720h
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/albapepper/keeper-analytics/internal/config"
	"github.com/albapepper/keeper-analytics/internal/db"
	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/pipeline"
	"github.com/albapepper/keeper-analytics/internal/source"
	"github.com/albapepper/keeper-analytics/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "keeper-analyze",
		Short: "Keeper league value attribution and luck analysis",
	}

	root.AddCommand(runCmd())
	root.AddCommand(batchCmd())
	root.AddCommand(importCmd())
	root.AddCommand(migrateCmd())
	root.AddCommand(runsCmd())
	root.AddCommand(pruneCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// seasonFlags are shared by every command that reads league inputs.
type seasonFlags struct {
	from, to     int
	baseline     int
	settingsFile string
}

func (f *seasonFlags) register(cmd *cobra.Command, cfg *config.Config) {
	cmd.Flags().IntVar(&f.from, "from", 0, "First season (required)")
	cmd.Flags().IntVar(&f.to, "to", 0, "Last season (required)")
	cmd.Flags().IntVar(&f.baseline, "baseline", 0, "Baseline season for inflation (default: league settings, else --from)")
	cmd.Flags().StringVar(&f.settingsFile, "settings", cfg.LeagueSettingsFile, "League settings file (YAML, JSON or TOML)")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
}

func (f *seasonFlags) settings() (*config.LeagueSettings, error) {
	s, err := config.LoadLeagueSettings(f.settingsFile)
	if err != nil {
		return nil, err
	}
	if f.baseline > 0 {
		s.BaselineSeason = f.baseline
	}
	return s, nil
}

// optionsFor builds pipeline options from league settings.
func optionsFor(s *config.LeagueSettings) pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Calendar = lifecycle.Calendar{
		StartMonth: time.Month(s.SeasonStartMonth),
		StartDay:   s.SeasonStartDay,
		MaxWeek:    s.MaxWeek,
	}
	if s.RegularSeasonWeeks > 0 {
		opts.DefaultWeeks = s.RegularSeasonWeeks
	}
	return opts
}

// --------------------------------------------------------------------------
// run command
// --------------------------------------------------------------------------

func runCmd() *cobra.Command {
	cfg := config.Load()
	var (
		flags   seasonFlags
		dataDir string
		fromDB  bool
		save    bool
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze one league",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			var st *store.Store
			if fromDB || save {
				pool, err := db.New(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to database: %w", err)
				}
				defer pool.Close()
				st = store.New(pool.Pool, logger)
			}

			var ds *league.Dataset
			if fromDB {
				ds, err = st.LoadDataset(ctx, flags.from, flags.to, settings)
			} else {
				ds, err = source.LoadDir(dataDir, flags.from, flags.to, settings, logger)
			}
			if err != nil {
				return err
			}

			start := time.Now()
			res, err := pipeline.Run(ds, optionsFor(settings), logger)
			if err != nil {
				return err
			}
			logResult(res, time.Since(start))

			if outFile != "" {
				if err := writeJSON(outFile, res); err != nil {
					return err
				}
				logger.Info("Outputs written", "file", outFile)
			}
			if save {
				id, err := st.SaveRun(ctx, res)
				if err != nil {
					return fmt.Errorf("save run: %w", err)
				}
				logger.Info("Run saved", "run_id", id)
			}
			return nil
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&dataDir, "data-dir", cfg.DataDir, "Directory holding season_YYYY.json files")
	cmd.Flags().BoolVar(&fromDB, "db", false, "Read inputs from the database instead of --data-dir")
	cmd.Flags().BoolVar(&save, "save", false, "Persist the run to the database")
	cmd.Flags().StringVar(&outFile, "out", "", "Write every output table to this JSON file")
	return cmd
}

// --------------------------------------------------------------------------
// batch command
// --------------------------------------------------------------------------

func batchCmd() *cobra.Command {
	cfg := config.Load()
	var (
		flags   seasonFlags
		dirs    []string
		workers int
		save    bool
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze several independent leagues concurrently",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(dirs) == 0 {
				return fmt.Errorf("--dirs is required")
			}
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			datasets := make([]*league.Dataset, 0, len(dirs))
			for _, dir := range dirs {
				perLeague := *settings
				perLeague.Name = filepath.Base(filepath.Clean(dir))
				ds, err := source.LoadDir(dir, flags.from, flags.to, &perLeague, logger)
				if err != nil {
					logger.Error("Skipping league", "dir", dir, "error", err)
					continue
				}
				datasets = append(datasets, ds)
			}

			batch := pipeline.RunBatch(ctx, datasets, optionsFor(settings), workers, logger)
			logger.Info("Batch finished", "summary", batch.Summary())
			for _, e := range batch.Errors {
				logger.Error("league failed", "error", e)
			}

			var st *store.Store
			if save {
				pool, err := db.New(ctx, cfg)
				if err != nil {
					return fmt.Errorf("connect to database: %w", err)
				}
				defer pool.Close()
				st = store.New(pool.Pool, logger)
			}

			for _, item := range batch.Items {
				if item.Result == nil {
					continue
				}
				if outDir != "" {
					path := filepath.Join(outDir, item.League+".json")
					if err := writeJSON(path, item.Result); err != nil {
						return err
					}
				}
				if st != nil {
					id, err := st.SaveRun(ctx, item.Result)
					if err != nil {
						return fmt.Errorf("save run for %s: %w", item.League, err)
					}
					logger.Info("Run saved", "league", item.League, "run_id", id)
				}
			}
			if batch.Failed > 0 {
				return fmt.Errorf("%d of %d leagues failed", batch.Failed, len(batch.Items))
			}
			return nil
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringSliceVar(&dirs, "dirs", nil, "League data directories, comma separated")
	cmd.Flags().IntVar(&workers, "workers", cfg.Workers, "Concurrent league count")
	cmd.Flags().BoolVar(&save, "save", false, "Persist each run to the database")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "Write each league's outputs to <out-dir>/<league>.json")
	return cmd
}

// --------------------------------------------------------------------------
// database commands
// --------------------------------------------------------------------------

func importCmd() *cobra.Command {
	cfg := config.Load()
	var (
		flags   seasonFlags
		dataDir string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load season JSON files into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := flags.settings()
			if err != nil {
				return err
			}
			ds, err := source.LoadDir(dataDir, flags.from, flags.to, settings, logger)
			if err != nil {
				return err
			}
			if err := league.Validate(ds); err != nil {
				return err
			}
			return withStore(cfg, func(ctx context.Context, st *store.Store) error {
				_, err := st.Import(ctx, ds)
				return err
			})
		},
	}
	flags.register(cmd, cfg)
	cmd.Flags().StringVar(&dataDir, "data-dir", cfg.DataDir, "Directory holding season_YYYY.json files")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			pool, err := db.NewUnprepared(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect to database: %w", err)
			}
			defer pool.Close()
			return store.Migrate(ctx, pool.Pool, logger)
		},
	}
}

func runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List saved runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(config.Load(), func(ctx context.Context, st *store.Store) error {
				runs, err := st.ListRuns(ctx, limit)
				if err != nil {
					return err
				}
				for _, r := range runs {
					fmt.Fprintf(cmd.OutOrStdout(), "%s  %s  %-20s  %v  warnings=%d errors=%d\n",
						r.ID, r.CreatedAt.Format(time.RFC3339), r.League, r.Seasons, len(r.Warnings), len(r.Errors))
				}
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")
	return cmd
}

func pruneCmd() *cobra.Command {
	cfg := config.Load()
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete saved runs older than a cutoff",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(ctx context.Context, st *store.Store) error {
				n, err := st.PruneRuns(ctx, olderThan)
				if err != nil {
					return err
				}
				logger.Info("Pruned runs", "count", n, "older_than", olderThan)
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", cfg.RunRetention, "Delete runs created before now minus this duration")
	return cmd
}

// --------------------------------------------------------------------------
// Shared setup
// --------------------------------------------------------------------------

// withStore handles DB connection and context cancellation.
func withStore(cfg *config.Config, fn func(ctx context.Context, st *store.Store) error) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	return fn(ctx, store.New(pool.Pool, logger))
}

func logResult(res *pipeline.Result, elapsed time.Duration) {
	logger.Info("Analysis finished",
		"league", res.League,
		"duration", elapsed.Round(time.Millisecond),
		"summary", res.Summary())
	for _, w := range res.Warnings {
		logger.Warn("analysis warning", "warning", w)
	}
	for _, e := range res.Errors {
		logger.Error("stage error", "error", e)
	}
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal outputs: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0o644)
}
