// Package pipeline runs every analysis stage over one league dataset in
// dependency order and collects the output tables.
package pipeline

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/albapepper/keeper-analytics/internal/compare"
	"github.com/albapepper/keeper-analytics/internal/consistency"
	"github.com/albapepper/keeper-analytics/internal/keepers"
	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/lineup"
	"github.com/albapepper/keeper-analytics/internal/luck"
	"github.com/albapepper/keeper-analytics/internal/pricing"
	"github.com/albapepper/keeper-analytics/internal/replacement"
	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/tiers"
	"github.com/albapepper/keeper-analytics/internal/trades"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// Options tune the stages that take parameters.
type Options struct {
	Calendar          lifecycle.Calendar
	DefaultWeeks      int // regular-season weeks assumed when no matchups exist
	RollingWindow     int
	RollingMinSeasons int
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{
		Calendar:          lifecycle.DefaultCalendar(),
		DefaultWeeks:      13,
		RollingWindow:     consistency.DefaultWindow,
		RollingMinSeasons: consistency.DefaultMinSeasons,
	}
}

// Run validates ds and executes every stage. The only error returned is a
// *league.SchemaViolation; stage failures are recorded on the result and the
// stages that do not depend on the failed one still run.
func Run(ds *league.Dataset, opts Options, logger *slog.Logger) (*Result, error) {
	if err := league.Validate(ds); err != nil {
		logger.Error("Dataset failed validation", "error", err)
		return nil, err
	}

	res := &Result{League: ds.League, Seasons: ds.Seasons(), StartedAt: time.Now()}
	logger = logger.With("league", ds.League)
	logger.Info("Starting analysis run", "seasons", len(res.Seasons), "baseline_season", ds.BaselineSeason)

	noteMissing(ds, res)

	configs := fillConfigs(ds.Configs)
	owners := league.NewOwnerIndex(ds.Owners)
	out := &res.Outputs

	// ------------------------------------------------------------------
	// Draft valuation
	// ------------------------------------------------------------------

	var valued []replacement.ValuedPick
	var values []replacement.PlayerValue

	runStage(res, "price_normalizer", logger, func() {
		var normalized []pricing.NormalizedPick
		normalized, out.Economics = pricing.Normalize(ds.Picks, configs, ds.BaselineSeason, logger)

		out.Baselines = replacement.Baselines(ds.Results, configs, logger)
		valued = replacement.Apply(normalized, ds.Results, out.Baselines)
		values = replacement.PlayerValues(ds.Results, out.Baselines)
	})

	runStage(res, "tier_classifier", logger, func() {
		out.NormalizedDraft = tiers.Assign(valued, configs, owners)
		out.HitRates = tiers.ComputeHitRates(out.NormalizedDraft)
		out.TierSummary = tiers.TierSummary(out.NormalizedDraft)
	})

	runStage(res, "keeper_surplus", logger, func() {
		out.Keepers = keepers.Analyze(out.NormalizedDraft, logger)
	})

	// ------------------------------------------------------------------
	// Acquisitions
	// ------------------------------------------------------------------

	runStage(res, "lifecycle", logger, func() {
		events := lifecycle.Events(ds.Picks, ds.Transactions, opts.Calendar)
		out.Lifecycle = lifecycle.Build(events, values, ds.Picks, owners, logger)
	})

	runStage(res, "trade_impact", logger, func() {
		out.Trades = trades.Analyze(ds.Transactions, values, owners, opts.Calendar, logger)
		if len(out.Trades.Impacts) > 0 {
			res.AddWarning(trades.Notice)
		}
		if out.Trades.Discarded > 0 {
			res.AddWarningf("%d trade groups discarded with fewer than two destination teams", out.Trades.Discarded)
		}
		if out.Trades.SkippedSides > 0 {
			res.AddWarningf("%d trade sides beyond the first two teams were not scored", out.Trades.SkippedSides)
		}
	})

	runStage(res, "waiver_analysis", logger, func() {
		var estimated bool
		out.Pickups, estimated = lifecycle.AnalyzePickups(out.Lifecycle, ds.Lineups, opts.Calendar, logger)
		if estimated && len(out.Pickups) > 0 {
			res.AddWarning("waiver weeks rostered and started estimated from acquisition week; weekly lineups unavailable")
		}
		out.WaiverSummary = lifecycle.ManagerWaiverSummary(out.Pickups)
	})

	// ------------------------------------------------------------------
	// Manager-season value
	// ------------------------------------------------------------------

	runStage(res, "manager_season_value", logger, func() {
		out.ManagerSeasons = value.ManagerSeasons(value.Inputs{
			Picks:     out.NormalizedDraft,
			Records:   out.Lifecycle,
			Pickups:   out.Pickups,
			Standings: ds.Standings,
			Owners:    ds.Owners,
		}, logger)
		out.Strategies = value.Profiles(out.ManagerSeasons, out.Pickups, out.Lifecycle)
	})

	// ------------------------------------------------------------------
	// Consistency and luck
	// ------------------------------------------------------------------

	runStage(res, "consistency", logger, func() {
		out.Distributions = consistency.Distributions(out.ManagerSeasons, logger)
		out.Scores = consistency.Scores(out.Distributions)
		out.Archetypes.Rows, out.Archetypes.Benchmarks = consistency.Archetypes(out.Distributions, logger)
		out.Volatility = consistency.Volatility(out.ManagerSeasons)
		out.Signals.Managers, out.Signals.League = consistency.SignalStrength(out.ManagerSeasons)
		out.Rolling = consistency.Rolling(out.ManagerSeasons, opts.RollingWindow, opts.RollingMinSeasons)
	})

	runStage(res, "schedule_luck", logger, func() {
		var approximated bool
		out.Expected, approximated = luck.Expected(ds.Matchups, ds.Standings, owners, opts.DefaultWeeks, logger)
		if approximated {
			res.AddWarning(luck.ApproximationNotice)
		}
		out.Schedules = luck.Schedules(ds.Matchups, ds.Standings, owners, logger)
		if luck.HasWeeklyPoints(ds.Matchups) {
			out.Difficulty = luck.ScheduleDifficulty(ds.Matchups, owners)
		}
		out.Luck = luck.Profiles(out.Schedules, out.Expected, logger)
		out.ChampionshipLuck = luck.ChampionshipLuck(out.ManagerSeasons, out.Expected, out.Schedules)
	})

	runStage(res, "lineup_efficiency", logger, func() {
		out.TeamWeeks = lineup.TeamWeeks(ds.Lineups, owners, configs, logger)
		out.Losses = lineup.ClassifyLosses(out.TeamWeeks, ds.Matchups)
		out.LineupSeasons = lineup.ManagerSeasonStats(out.TeamWeeks)
	})

	// ------------------------------------------------------------------
	// Comparisons
	// ------------------------------------------------------------------

	runStage(res, "champion_blueprint", logger, func() {
		out.Blueprint = compare.ChampionBlueprint(out.ManagerSeasons, logger)
	})

	runStage(res, "population_comparisons", logger, func() {
		out.ConsistentVsOther = ConsistentVsVolatile(out.ManagerSeasons, out.Scores)
		out.EfficientVsOther = EfficientVsInefficient(out.ManagerSeasons, out.LineupSeasons)
	})

	res.Duration = time.Since(res.StartedAt)
	logger.Info("Analysis run complete", "summary", res.Summary(), "duration", res.Duration)
	return res, nil
}

// Stages lists the stage names in run order.
var Stages = []string{
	"price_normalizer",
	"tier_classifier",
	"keeper_surplus",
	"lifecycle",
	"trade_impact",
	"waiver_analysis",
	"manager_season_value",
	"consistency",
	"schedule_luck",
	"lineup_efficiency",
	"champion_blueprint",
	"population_comparisons",
}

// stageLabel renders the progress line for a stage, e.g.
// "Stage 2/12: tier_classifier".
func stageLabel(name string) string {
	for i, s := range Stages {
		if s == name {
			return fmt.Sprintf("Stage %d/%d: %s", i+1, len(Stages), name)
		}
	}
	return "Stage: " + name
}

// runStage executes fn, converting a panic into a recorded stage error so
// independent stages keep running.
func runStage(res *Result, name string, logger *slog.Logger, fn func()) {
	logger.Info(stageLabel(name))
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Stage failed", "stage", name, "panic", r, "stack", string(debug.Stack()))
			res.AddErrorf("stage %s: %v", name, r)
		}
	}()
	fn()
	logger.Debug("Stage complete", "stage", name, "duration", time.Since(start))
}

func noteMissing(ds *league.Dataset, res *Result) {
	tables := []struct {
		name  string
		empty bool
	}{
		{league.TableDraftPicks, len(ds.Picks) == 0},
		{league.TablePlayerResults, len(ds.Results) == 0},
		{league.TableTransactions, len(ds.Transactions) == 0},
		{league.TableStandings, len(ds.Standings) == 0},
		{league.TableTeamRoster, len(ds.Owners) == 0},
	}
	for _, t := range tables {
		if t.empty {
			res.AddWarningf("missing data: %s is empty", t.name)
		}
	}
	for _, s := range ds.Seasons() {
		if _, ok := ds.Configs[s]; !ok {
			res.AddWarningf("missing data: season %d has no configuration", s)
		}
	}
}

// fillConfigs completes partial season configs from the defaults. Seasons
// without any config stay absent.
func fillConfigs(configs map[int]league.SeasonConfig) map[int]league.SeasonConfig {
	out := make(map[int]league.SeasonConfig, len(configs))
	for s, c := range configs {
		c.Season = s
		out[s] = c.Fill(league.DefaultSeasonConfig(s))
	}
	return out
}

// --------------------------------------------------------------------------
// Population comparisons
// --------------------------------------------------------------------------

// OutcomeMetrics extends the blueprint metrics with on-field results.
var OutcomeMetrics = append([]compare.Metric[value.ManagerSeason]{
	{Name: "wins", Value: func(r value.ManagerSeason) *float64 { return stats.Ptr(float64(r.Wins)) }},
	{Name: "points_for", Value: func(r value.ManagerSeason) *float64 { return stats.Ptr(r.PointsFor) }},
}, compare.SeasonMetrics...)

// ConsistentVsVolatile compares the seasons of managers whose wins
// consistency score is at least 50 against everyone else's.
func ConsistentVsVolatile(seasons []value.ManagerSeason, scores []consistency.Score) []compare.Comparison {
	consistent := make(map[string]bool)
	for _, s := range scores {
		if s.ScoreWins != nil && *s.ScoreWins >= 50 {
			consistent[s.Manager] = true
		}
	}
	if len(consistent) == 0 {
		return nil
	}
	a, b := compare.Split(seasons, func(r value.ManagerSeason) bool { return consistent[r.Manager] })
	return compare.Compare(OutcomeMetrics, a, b)
}

// EfficientVsInefficient compares manager-seasons whose average lineup
// efficiency is at or above the league median against those below it.
// Seasons without lineup data are left out.
func EfficientVsInefficient(seasons []value.ManagerSeason, lineups []lineup.SeasonStats) []compare.Comparison {
	type key struct {
		Season  int
		Manager string
	}
	eff := make(map[key]float64)
	var all []float64
	for _, l := range lineups {
		if l.AvgEfficiency == nil {
			continue
		}
		eff[key{l.Season, l.Manager}] = *l.AvgEfficiency
		all = append(all, *l.AvgEfficiency)
	}
	median := stats.Median(all)
	if median == nil {
		return nil
	}

	var joined []value.ManagerSeason
	for _, s := range seasons {
		if _, ok := eff[key{s.Season, s.Manager}]; ok {
			joined = append(joined, s)
		}
	}
	a, b := compare.Split(joined, func(r value.ManagerSeason) bool {
		return eff[key{r.Season, r.Manager}] >= *median
	})
	return compare.Compare(OutcomeMetrics, a, b)
}
