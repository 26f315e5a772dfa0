// Package consistency describes how each manager's outcomes are spread
// across seasons and labels managers by that shape.
package consistency

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// Distribution is one row of manager_outcome_distribution.
type Distribution struct {
	Manager          string   `json:"manager"`
	Seasons          int      `json:"seasons_played"`
	MeanWins         *float64 `json:"mean_wins"`
	MedianWins       *float64 `json:"median_wins"`
	StdWins          *float64 `json:"std_wins"`
	CVWins           *float64 `json:"coefficient_of_variation_wins"`
	WinsP25          *float64 `json:"win_percentile_25"`
	WinsP50          *float64 `json:"win_percentile_50"`
	WinsP75          *float64 `json:"win_percentile_75"`
	MinWins          *float64 `json:"min_wins"`
	MaxWins          *float64 `json:"max_wins"`
	Championships    int      `json:"championships"`
	ChampionshipRate float64  `json:"championship_rate"`

	MeanVAR   *float64 `json:"mean_VAR_per_season"`
	MedianVAR *float64 `json:"median_VAR_per_season"`
	StdVAR    *float64 `json:"std_VAR_per_season"`
	CVVAR     *float64 `json:"coefficient_of_variation_VAR"`
	VARP25    *float64 `json:"VAR_percentile_25"`
	VARP50    *float64 `json:"VAR_percentile_50"`
	VARP75    *float64 `json:"VAR_percentile_75"`

	MeanVARPerDollar   *float64 `json:"mean_VAR_per_dollar_per_season"`
	MedianVARPerDollar *float64 `json:"median_VAR_per_dollar_per_season"`
	StdVARPerDollar    *float64 `json:"std_VAR_per_dollar_per_season"`
}

// byManager groups manager-season rows by manager, each group ordered by
// season. Managers are returned sorted.
func byManager(seasons []value.ManagerSeason) ([]string, map[string][]value.ManagerSeason) {
	groups := make(map[string][]value.ManagerSeason)
	for _, s := range seasons {
		groups[s.Manager] = append(groups[s.Manager], s)
	}
	names := make([]string, 0, len(groups))
	for m, g := range groups {
		sort.SliceStable(g, func(i, j int) bool { return g[i].Season < g[j].Season })
		names = append(names, m)
	}
	sort.Strings(names)
	return names, groups
}

func wins(rows []value.ManagerSeason) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = float64(r.Wins)
	}
	return out
}

func totalVAR(rows []value.ManagerSeason) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = r.TotalVAR
	}
	return out
}

// Distributions computes per-manager outcome statistics. VAR per dollar is
// null-aware: seasons without spend are left out rather than counted as 0.
func Distributions(seasons []value.ManagerSeason, logger *slog.Logger) []Distribution {
	if len(seasons) == 0 {
		logger.Warn("No manager-season data for distribution analysis")
		return nil
	}

	names, groups := byManager(seasons)
	out := make([]Distribution, 0, len(names))
	for _, m := range names {
		rows := groups[m]
		w := wins(rows)
		v := totalVAR(rows)
		perDollar := make([]*float64, len(rows))
		champs := 0
		for i, r := range rows {
			perDollar[i] = r.VARPerDollar
			if r.Champion {
				champs++
			}
		}
		vpd := stats.Values(perDollar)

		d := Distribution{
			Manager:          m,
			Seasons:          len(rows),
			MeanWins:         stats.Mean(w),
			MedianWins:       stats.Median(w),
			StdWins:          stats.StdDev(w),
			WinsP25:          stats.Quantile(w, 0.25),
			WinsP50:          stats.Quantile(w, 0.50),
			WinsP75:          stats.Quantile(w, 0.75),
			MinWins:          stats.Min(w),
			MaxWins:          stats.Max(w),
			Championships:    champs,
			ChampionshipRate: float64(champs) / float64(len(rows)),

			MeanVAR:   stats.Mean(v),
			MedianVAR: stats.Median(v),
			StdVAR:    stats.StdDev(v),
			VARP25:    stats.Quantile(v, 0.25),
			VARP50:    stats.Quantile(v, 0.50),
			VARP75:    stats.Quantile(v, 0.75),

			MeanVARPerDollar:   stats.Mean(vpd),
			MedianVARPerDollar: stats.Median(vpd),
			StdVARPerDollar:    stats.StdDev(vpd),
		}
		d.CVWins = stats.CV(d.MeanWins, d.StdWins)
		d.CVVAR = stats.RatioPtr(d.StdVAR, d.MeanVAR)
		out = append(out, d)
	}

	logger.Info("Calculated outcome distributions", "managers", len(out))
	return out
}

// --------------------------------------------------------------------------
// Consistency scores
// --------------------------------------------------------------------------

// Score is one row of consistency_scores.
type Score struct {
	Manager    string   `json:"manager"`
	Seasons    int      `json:"seasons_played"`
	ScoreWins  *float64 `json:"consistency_score_wins"`
	ScoreVAR   *float64 `json:"consistency_score_VAR"`
	MedianWins *float64 `json:"median_wins"`
	StdWins    *float64 `json:"std_wins"`
	MedianVAR  *float64 `json:"median_VAR_per_season"`
	StdVAR     *float64 `json:"std_VAR_per_season"`
}

// RawScore is median/(1+std). A single season has no spread, so the median
// is used directly.
func RawScore(seasons int, median, std *float64) *float64 {
	if median == nil {
		return nil
	}
	if seasons == 1 || std == nil {
		return stats.Ptr(*median)
	}
	return stats.Finite(*median / (1 + *std))
}

// Scores rescales the raw wins and VAR consistency scores to 0-100 across
// all managers, highest wins score first.
func Scores(dists []Distribution) []Score {
	if len(dists) == 0 {
		return nil
	}
	rawWins := make([]*float64, len(dists))
	rawVAR := make([]*float64, len(dists))
	for i, d := range dists {
		rawWins[i] = RawScore(d.Seasons, d.MedianWins, d.StdWins)
		rawVAR[i] = RawScore(d.Seasons, d.MedianVAR, d.StdVAR)
	}
	scaledWins := stats.MinMaxScale(rawWins)
	scaledVAR := stats.MinMaxScale(rawVAR)

	out := make([]Score, len(dists))
	for i, d := range dists {
		out[i] = Score{
			Manager:    d.Manager,
			Seasons:    d.Seasons,
			ScoreWins:  scaledWins[i],
			ScoreVAR:   scaledVAR[i],
			MedianWins: d.MedianWins,
			StdWins:    d.StdWins,
			MedianVAR:  d.MedianVAR,
			StdVAR:     d.StdVAR,
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return stats.Deref(out[i].ScoreWins, -1) > stats.Deref(out[j].ScoreWins, -1)
	})
	return out
}
