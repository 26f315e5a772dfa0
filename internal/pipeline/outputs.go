package pipeline

import (
	"github.com/albapepper/keeper-analytics/internal/compare"
	"github.com/albapepper/keeper-analytics/internal/consistency"
	"github.com/albapepper/keeper-analytics/internal/keepers"
	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/lineup"
	"github.com/albapepper/keeper-analytics/internal/luck"
	"github.com/albapepper/keeper-analytics/internal/pricing"
	"github.com/albapepper/keeper-analytics/internal/replacement"
	"github.com/albapepper/keeper-analytics/internal/tiers"
	"github.com/albapepper/keeper-analytics/internal/trades"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// Output table names.
const (
	TableNormalizedDraft        = "normalized_draft_table"
	TableSeasonEconomics        = "season_economics"
	TableReplacementBaselines   = "replacement_baselines"
	TableHitRates               = "draft_hit_rates"
	TableTierSummary            = "tier_summary"
	TableKeeperSurplus          = "keeper_surplus_summary"
	TableTradeImpact            = "trade_impact"
	TableLifecycle              = "lifecycle_table"
	TableWaiverPickups          = "waiver_pickups"
	TableWaiverSummary          = "manager_waiver_summary"
	TableManagerSeasonValue     = "manager_season_value"
	TableManagerStrategy        = "manager_strategy"
	TableOutcomeDistribution    = "manager_outcome_distribution"
	TableConsistencyScores      = "consistency_scores"
	TableArchetypes             = "manager_archetypes"
	TableSeasonVolatility       = "season_volatility"
	TableSignalStrength         = "signal_strength"
	TableRollingConsistency     = "rolling_consistency"
	TableSchedule               = "manager_season_schedule"
	TableExpectedWins           = "expected_wins"
	TableScheduleDifficulty     = "schedule_difficulty"
	TableLuckProfile            = "manager_luck_profile"
	TableChampionshipLuck       = "championship_luck"
	TableChampionBlueprint      = "champion_blueprint"
	TableLineupEfficiency       = "weekly_lineup_efficiency"
	TableLossClassification     = "loss_classification"
	TableManagerLineup          = "manager_lineup_efficiency"
	TableConsistentVsVolatile   = "consistent_vs_volatile"
	TableEfficientVsInefficient = "efficient_vs_inefficient"
)

// Signals bundles league-wide and per-manager signal strength.
type Signals struct {
	League   consistency.LeagueSignal `json:"league"`
	Managers []consistency.Signal     `json:"managers"`
}

// Archetypes bundles archetype labels with the benchmarks they were
// classified against.
type Archetypes struct {
	Rows       []consistency.Archetype `json:"archetypes"`
	Benchmarks consistency.Benchmarks  `json:"benchmarks"`
}

// Outputs holds every table a run produces. A stage that could not run
// leaves its tables empty.
type Outputs struct {
	NormalizedDraft   []tiers.TieredPick               `json:"normalized_draft_table"`
	Economics         []pricing.SeasonEconomics        `json:"season_economics"`
	Baselines         []replacement.Baseline           `json:"replacement_baselines"`
	HitRates          tiers.HitRates                   `json:"draft_hit_rates"`
	TierSummary       []tiers.TierSummaryRow           `json:"tier_summary"`
	Keepers           keepers.Report                   `json:"keeper_surplus_summary"`
	Trades            trades.Report                    `json:"trade_impact"`
	Lifecycle         []lifecycle.Record               `json:"lifecycle_table"`
	Pickups           []lifecycle.Pickup               `json:"waiver_pickups"`
	WaiverSummary     []lifecycle.WaiverSummary        `json:"manager_waiver_summary"`
	ManagerSeasons    []value.ManagerSeason            `json:"manager_season_value"`
	Strategies        []value.Strategy                 `json:"manager_strategy"`
	Distributions     []consistency.Distribution       `json:"manager_outcome_distribution"`
	Scores            []consistency.Score              `json:"consistency_scores"`
	Archetypes        Archetypes                       `json:"manager_archetypes"`
	Volatility        []consistency.SeasonVolatility   `json:"season_volatility"`
	Signals           Signals                          `json:"signal_strength"`
	Rolling           []consistency.RollingConsistency `json:"rolling_consistency"`
	Schedules         []luck.Schedule                  `json:"manager_season_schedule"`
	Expected          []luck.ExpectedWins              `json:"expected_wins"`
	Difficulty        []luck.Difficulty                `json:"schedule_difficulty"`
	Luck              []luck.Profile                   `json:"manager_luck_profile"`
	ChampionshipLuck  []luck.Championship              `json:"championship_luck"`
	Blueprint         compare.Blueprint                `json:"champion_blueprint"`
	TeamWeeks         []lineup.TeamWeek                `json:"weekly_lineup_efficiency"`
	Losses            []lineup.Loss                    `json:"loss_classification"`
	LineupSeasons     []lineup.SeasonStats             `json:"manager_lineup_efficiency"`
	ConsistentVsOther []compare.Comparison             `json:"consistent_vs_volatile"`
	EfficientVsOther  []compare.Comparison             `json:"efficient_vs_inefficient"`
}

// Table is one named output.
type Table struct {
	Name string
	Data any
}

// Tables lists every output in pipeline order.
func (o *Outputs) Tables() []Table {
	return []Table{
		{TableNormalizedDraft, o.NormalizedDraft},
		{TableSeasonEconomics, o.Economics},
		{TableReplacementBaselines, o.Baselines},
		{TableHitRates, o.HitRates},
		{TableTierSummary, o.TierSummary},
		{TableKeeperSurplus, o.Keepers},
		{TableTradeImpact, o.Trades},
		{TableLifecycle, o.Lifecycle},
		{TableWaiverPickups, o.Pickups},
		{TableWaiverSummary, o.WaiverSummary},
		{TableManagerSeasonValue, o.ManagerSeasons},
		{TableManagerStrategy, o.Strategies},
		{TableOutcomeDistribution, o.Distributions},
		{TableConsistencyScores, o.Scores},
		{TableArchetypes, o.Archetypes},
		{TableSeasonVolatility, o.Volatility},
		{TableSignalStrength, o.Signals},
		{TableRollingConsistency, o.Rolling},
		{TableSchedule, o.Schedules},
		{TableExpectedWins, o.Expected},
		{TableScheduleDifficulty, o.Difficulty},
		{TableLuckProfile, o.Luck},
		{TableChampionshipLuck, o.ChampionshipLuck},
		{TableChampionBlueprint, o.Blueprint},
		{TableLineupEfficiency, o.TeamWeeks},
		{TableLossClassification, o.Losses},
		{TableManagerLineup, o.LineupSeasons},
		{TableConsistentVsVolatile, o.ConsistentVsOther},
		{TableEfficientVsInefficient, o.EfficientVsOther},
	}
}

// TableNames returns every output table name in pipeline order.
func TableNames() []string {
	var o Outputs
	tables := o.Tables()
	names := make([]string, len(tables))
	for i, t := range tables {
		names[i] = t.Name
	}
	return names
}

// IsTable reports whether name is a known output table.
func IsTable(name string) bool {
	for _, n := range TableNames() {
		if n == name {
			return true
		}
	}
	return false
}
