package consistency

import (
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// SeasonVolatility describes how evenly one season's outcomes were spread
// across the league.
type SeasonVolatility struct {
	Season      int      `json:"season"`
	Managers    int      `json:"num_managers"`
	MeanWins    *float64 `json:"mean_wins"`
	StdWins     *float64 `json:"std_wins"`
	WinsSkew    *float64 `json:"win_distribution_skew"`
	StdVAR      *float64 `json:"VAR_distribution_std"`
	GiniVAR     *float64 `json:"Gini_coefficient_VAR"`
	RangeWins   *float64 `json:"wins_range"`
	IQRTotalVAR *float64 `json:"VAR_iqr"`
}

// Volatility computes one row per season.
func Volatility(seasons []value.ManagerSeason) []SeasonVolatility {
	groups := make(map[int][]value.ManagerSeason)
	for _, s := range seasons {
		groups[s.Season] = append(groups[s.Season], s)
	}
	years := make([]int, 0, len(groups))
	for y := range groups {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]SeasonVolatility, 0, len(years))
	for _, y := range years {
		rows := groups[y]
		w := wins(rows)
		v := totalVAR(rows)
		sv := SeasonVolatility{
			Season:   y,
			Managers: len(rows),
			MeanWins: stats.Mean(w),
			StdWins:  stats.StdDev(w),
			WinsSkew: stats.Skew(w),
			StdVAR:   stats.StdDev(v),
			GiniVAR:  stats.Gini(v),
		}
		if lo, hi := stats.Min(w), stats.Max(w); lo != nil {
			sv.RangeWins = stats.Ptr(*hi - *lo)
		}
		if q1, q3 := stats.Quantile(v, 0.25), stats.Quantile(v, 0.75); q1 != nil {
			sv.IQRTotalVAR = stats.Ptr(*q3 - *q1)
		}
		out = append(out, sv)
	}
	return out
}

// --------------------------------------------------------------------------
// Signal strength
// --------------------------------------------------------------------------

// Signal holds the correlation of each VAR channel with wins for one
// manager across their seasons.
type Signal struct {
	Manager       string   `json:"manager"`
	Seasons       int      `json:"seasons_played"`
	TotalVARWins  *float64 `json:"corr_total_VAR_wins"`
	DraftVARWins  *float64 `json:"corr_draft_VAR_wins"`
	KeeperVARWins *float64 `json:"corr_keeper_VAR_wins"`
	TradeVARWins  *float64 `json:"corr_trade_VAR_wins"`
	WaiverVARWins *float64 `json:"corr_waiver_VAR_wins"`
}

// LeagueSignal correlates season-level inputs with wins across every
// manager-season in the league.
type LeagueSignal struct {
	ManagerSeasons   int      `json:"manager_seasons"`
	TotalVARWins     *float64 `json:"corr_total_VAR_wins"`
	VARPerDollarWins *float64 `json:"corr_VAR_per_dollar_wins"`
	PointsForWins    *float64 `json:"corr_points_for_wins"`
}

func column(rows []value.ManagerSeason, f func(value.ManagerSeason) *float64) []*float64 {
	out := make([]*float64, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out
}

func winsCol(r value.ManagerSeason) *float64 { return stats.Ptr(float64(r.Wins)) }

// SignalStrength returns per-manager channel correlations for managers with
// at least two seasons, plus the league-wide correlations.
func SignalStrength(seasons []value.ManagerSeason) ([]Signal, LeagueSignal) {
	lg := LeagueSignal{
		ManagerSeasons:   len(seasons),
		TotalVARWins:     stats.Pearson(column(seasons, func(r value.ManagerSeason) *float64 { return stats.Ptr(r.TotalVAR) }), column(seasons, winsCol)),
		VARPerDollarWins: stats.Pearson(column(seasons, func(r value.ManagerSeason) *float64 { return r.VARPerDollar }), column(seasons, winsCol)),
		PointsForWins:    stats.Pearson(column(seasons, func(r value.ManagerSeason) *float64 { return stats.Ptr(r.PointsFor) }), column(seasons, winsCol)),
	}

	names, groups := byManager(seasons)
	var out []Signal
	for _, m := range names {
		rows := groups[m]
		if len(rows) < 2 {
			continue
		}
		w := column(rows, winsCol)
		corr := func(f func(value.ManagerSeason) float64) *float64 {
			return stats.Pearson(column(rows, func(r value.ManagerSeason) *float64 { return stats.Ptr(f(r)) }), w)
		}
		out = append(out, Signal{
			Manager:       m,
			Seasons:       len(rows),
			TotalVARWins:  corr(func(r value.ManagerSeason) float64 { return r.TotalVAR }),
			DraftVARWins:  corr(func(r value.ManagerSeason) float64 { return r.DraftVAR }),
			KeeperVARWins: corr(func(r value.ManagerSeason) float64 { return r.KeeperVAR }),
			TradeVARWins:  corr(func(r value.ManagerSeason) float64 { return r.TradeVAR }),
			WaiverVARWins: corr(func(r value.ManagerSeason) float64 { return r.WaiverVAR }),
		})
	}
	return out, lg
}

// --------------------------------------------------------------------------
// Rolling windows
// --------------------------------------------------------------------------

// Rolling window defaults.
const (
	DefaultWindow     = 3
	DefaultMinSeasons = 4
)

// RollingConsistency separates sustained level from hot streaks using
// rolling means over consecutive seasons.
type RollingConsistency struct {
	Manager        string   `json:"manager"`
	Seasons        int      `json:"seasons_played"`
	MeanRollWins   *float64 `json:"mean_rolling_wins"`
	StdRollWins    *float64 `json:"std_rolling_wins"`
	MeanRollVAR    *float64 `json:"mean_rolling_VAR"`
	StdRollVAR     *float64 `json:"std_rolling_VAR"`
	ScoreWins      *float64 `json:"rolling_consistency_score_wins"`
	ScoreVAR       *float64 `json:"rolling_consistency_score_VAR"`
	WindowEndYears []int    `json:"window_end_seasons"`
}

// RollingMeans returns the mean of every full window of size w.
func RollingMeans(xs []float64, w int) []float64 {
	if w < 1 || len(xs) < w {
		return nil
	}
	out := make([]float64, 0, len(xs)-w+1)
	for i := w; i <= len(xs); i++ {
		out = append(out, stats.Sum(xs[i-w:i])/float64(w))
	}
	return out
}

func rollingScore(mean, std *float64) *float64 {
	if mean == nil {
		return nil
	}
	if std == nil || *std <= 0 {
		return stats.Ptr(*mean)
	}
	return stats.Finite(*mean / (1 + *std))
}

// Rolling computes rolling-window consistency for managers with at least
// minSeasons seasons. Scores are rescaled to 0-100 across those managers.
func Rolling(seasons []value.ManagerSeason, window, minSeasons int) []RollingConsistency {
	if window < 1 {
		window = DefaultWindow
	}
	if minSeasons < window {
		minSeasons = window
	}

	names, groups := byManager(seasons)
	var out []RollingConsistency
	for _, m := range names {
		rows := groups[m]
		if len(rows) < minSeasons {
			continue
		}
		rw := RollingMeans(wins(rows), window)
		rv := RollingMeans(totalVAR(rows), window)
		rc := RollingConsistency{
			Manager:      m,
			Seasons:      len(rows),
			MeanRollWins: stats.Mean(rw),
			StdRollWins:  stats.StdDev(rw),
			MeanRollVAR:  stats.Mean(rv),
			StdRollVAR:   stats.StdDev(rv),
		}
		for i := window - 1; i < len(rows); i++ {
			rc.WindowEndYears = append(rc.WindowEndYears, rows[i].Season)
		}
		rc.ScoreWins = rollingScore(rc.MeanRollWins, rc.StdRollWins)
		rc.ScoreVAR = rollingScore(rc.MeanRollVAR, rc.StdRollVAR)
		out = append(out, rc)
	}
	if len(out) == 0 {
		return nil
	}

	sw := make([]*float64, len(out))
	sv := make([]*float64, len(out))
	for i, r := range out {
		sw[i], sv[i] = r.ScoreWins, r.ScoreVAR
	}
	sw, sv = stats.MinMaxScale(sw), stats.MinMaxScale(sv)
	for i := range out {
		out[i].ScoreWins, out[i].ScoreVAR = sw[i], sv[i]
	}
	sort.SliceStable(out, func(i, j int) bool {
		return stats.Deref(out[i].ScoreWins, -1) > stats.Deref(out[j].ScoreWins, -1)
	})
	return out
}
