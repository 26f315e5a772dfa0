// Package pricing rescales auction costs into baseline-season dollars.
//
// Keeper money leaves the auction pool before bidding starts, and leagues
// change size and roster shape over time, so a raw $30 means something
// different from one season to the next. Each season's effective budget per
// open roster spot is compared with the baseline season's to derive an
// inflation factor; normalized price is cost divided by that factor.
package pricing

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
)

// SeasonEconomics is the auction pool for one season.
type SeasonEconomics struct {
	Season           int     `json:"season"`
	TotalBudget      float64 `json:"total_budget"`
	KeeperSpend      float64 `json:"keeper_spend"`
	RemainingBudget  float64 `json:"remaining_budget"`
	RosterSpots      int     `json:"roster_spots"`
	RemainingSpots   int     `json:"remaining_spots"`
	EffectivePerSpot float64 `json:"effective_budget_per_spot"`
	BaselinePerSpot  float64 `json:"baseline_budget_per_spot"`
	InflationFactor  float64 `json:"inflation_factor"`
}

// NormalizedPick is a draft pick with its baseline-equivalent price.
type NormalizedPick struct {
	league.DraftPick
	NormalizedPrice float64 `json:"normalized_price"`
	InflationFactor float64 `json:"inflation_factor"`
}

// Normalize computes per-season economics and rescales every pick's cost to
// the baseline season. Seasons without a config are logged as missing data
// and priced with the default league shape, the same substitute the other
// stages use.
func Normalize(picks []league.DraftPick, configs map[int]league.SeasonConfig, baselineSeason int, logger *slog.Logger) ([]NormalizedPick, []SeasonEconomics) {
	if len(picks) == 0 {
		logger.Warn("No draft picks to normalize", "table", league.TableDraftPicks)
		return nil, nil
	}

	keeperSpend := make(map[int]float64)
	seasonSet := make(map[int]bool)
	for _, p := range picks {
		seasonSet[p.Season] = true
		if p.IsKeeper {
			keeperSpend[p.Season] += p.Cost
		}
	}

	baseCfg, ok := configs[baselineSeason]
	if !ok {
		logger.Warn("Baseline season has no configuration, using defaults", "season", baselineSeason)
		baseCfg = league.DefaultSeasonConfig(baselineSeason)
	}
	basePerSpot := perSpot(baseCfg, keeperSpend[baselineSeason])

	seasons := make([]int, 0, len(seasonSet))
	for s := range seasonSet {
		seasons = append(seasons, s)
	}
	sort.Ints(seasons)

	factors := make(map[int]float64, len(seasons))
	econ := make([]SeasonEconomics, 0, len(seasons))
	for _, season := range seasons {
		cfg, ok := configs[season]
		if !ok {
			logger.Warn("Season has no configuration, using defaults", "season", season, "table", "season_config")
			cfg = league.DefaultSeasonConfig(season)
		}
		e := Economics(cfg, keeperSpend[season], basePerSpot)
		factors[season] = e.InflationFactor
		econ = append(econ, e)
	}

	out := make([]NormalizedPick, len(picks))
	for i, p := range picks {
		f := factors[p.Season]
		out[i] = NormalizedPick{
			DraftPick:       p,
			NormalizedPrice: NormalizePrice(p.Cost, f),
			InflationFactor: f,
		}
	}

	logger.Info("Normalized prices", "baseline_season", baselineSeason, "picks", len(out), "seasons", len(econ))
	return out, econ
}

// Economics derives the auction pool for a season given its keeper spend
// and the baseline budget per spot.
func Economics(cfg league.SeasonConfig, keeperSpend, baselinePerSpot float64) SeasonEconomics {
	total := float64(cfg.NumTeams) * cfg.AuctionBudget
	spots := cfg.RosterSpots()
	remainingSpots := spots - cfg.NumTeams*cfg.KeepersPerTeam
	effective := perSpot(cfg, keeperSpend)

	factor := 1.0
	if baselinePerSpot > 0 {
		factor = effective / baselinePerSpot
	}

	return SeasonEconomics{
		Season:           cfg.Season,
		TotalBudget:      total,
		KeeperSpend:      keeperSpend,
		RemainingBudget:  total - keeperSpend,
		RosterSpots:      spots,
		RemainingSpots:   remainingSpots,
		EffectivePerSpot: effective,
		BaselinePerSpot:  baselinePerSpot,
		InflationFactor:  factor,
	}
}

// NormalizePrice divides cost by the inflation factor. A non-positive
// factor leaves the cost unchanged.
func NormalizePrice(cost, factor float64) float64 {
	if factor <= 0 {
		return cost
	}
	return cost / factor
}

func perSpot(cfg league.SeasonConfig, keeperSpend float64) float64 {
	remainingBudget := float64(cfg.NumTeams)*cfg.AuctionBudget - keeperSpend
	remainingSpots := cfg.RosterSpots() - cfg.NumTeams*cfg.KeepersPerTeam
	if remainingSpots <= 0 {
		return cfg.AuctionBudget
	}
	return remainingBudget / float64(remainingSpots)
}
