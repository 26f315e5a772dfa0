// Package keepers measures how far below market each keeper was locked in
// and whether that discount tracked realized value.
package keepers

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/tiers"
)

// Row is one keeper with its surplus.
type Row struct {
	Season       int      `json:"season"`
	PlayerID     string   `json:"player_id"`
	PlayerName   string   `json:"player_name"`
	Position     string   `json:"position"`
	Manager      string   `json:"manager"`
	MarketPrice  float64  `json:"market_price_estimate"`
	KeeperCost   float64  `json:"keeper_cost"`
	Surplus      float64  `json:"keeper_surplus"`
	VAR          *float64 `json:"VAR"`
	VARPerDollar *float64 `json:"VAR_per_dollar"`
}

// PositionSummary aggregates keepers at one position.
type PositionSummary struct {
	Position        string   `json:"position"`
	Count           int      `json:"count"`
	AvgSurplus      *float64 `json:"avg_surplus"`
	MedianSurplus   *float64 `json:"median_surplus"`
	StdSurplus      *float64 `json:"std_surplus"`
	AvgVAR          *float64 `json:"avg_VAR"`
	MedianVAR       *float64 `json:"median_VAR"`
	AvgMarketPrice  *float64 `json:"avg_market_price"`
	AvgKeeperCost   *float64 `json:"avg_keeper_cost"`
	AvgVARPerDollar *float64 `json:"avg_VAR_per_dollar"`
}

// Report is the keeper_surplus_summary output.
type Report struct {
	Rows        []Row             `json:"rows"`
	ByPosition  []PositionSummary `json:"by_position"`
	Correlation *float64          `json:"surplus_VAR_correlation"`
	Count       int               `json:"count"`
}

// Surplus is the normalized market price minus the locked keeper cost.
func Surplus(normalizedPrice, keeperCost float64) float64 {
	return normalizedPrice - keeperCost
}

// Analyze computes surplus for every keeper, a by-position summary over
// keepers with a known VAR and the surplus/VAR Pearson correlation.
func Analyze(picks []tiers.TieredPick, logger *slog.Logger) Report {
	var rep Report
	for _, p := range picks {
		if !p.IsKeeper {
			continue
		}
		cost := p.LockedCost()
		rep.Rows = append(rep.Rows, Row{
			Season:       p.Season,
			PlayerID:     p.PlayerID,
			PlayerName:   p.PlayerName,
			Position:     p.Position,
			Manager:      p.Manager,
			MarketPrice:  p.NormalizedPrice,
			KeeperCost:   cost,
			Surplus:      Surplus(p.NormalizedPrice, cost),
			VAR:          p.VAR,
			VARPerDollar: p.VARPerDollar,
		})
	}

	var valued []Row
	for _, r := range rep.Rows {
		if r.VAR != nil {
			valued = append(valued, r)
		}
	}
	rep.Count = len(valued)
	if len(valued) == 0 {
		logger.Warn("No keepers with both surplus and VAR data")
		return rep
	}

	surplus := make([]*float64, len(valued))
	vars := make([]*float64, len(valued))
	byPos := make(map[string][]Row)
	for i, r := range valued {
		surplus[i] = stats.Ptr(r.Surplus)
		vars[i] = r.VAR
		byPos[r.Position] = append(byPos[r.Position], r)
	}
	rep.Correlation = stats.Pearson(surplus, vars)

	positions := make([]string, 0, len(byPos))
	for pos := range byPos {
		positions = append(positions, pos)
	}
	sort.Strings(positions)

	for _, pos := range positions {
		rows := byPos[pos]
		var sur, v, mkt, kc []float64
		vpd := make([]*float64, 0, len(rows))
		for _, r := range rows {
			sur = append(sur, r.Surplus)
			v = append(v, *r.VAR)
			mkt = append(mkt, r.MarketPrice)
			kc = append(kc, r.KeeperCost)
			vpd = append(vpd, r.VARPerDollar)
		}
		rep.ByPosition = append(rep.ByPosition, PositionSummary{
			Position:        pos,
			Count:           len(rows),
			AvgSurplus:      stats.Mean(sur),
			MedianSurplus:   stats.Median(sur),
			StdSurplus:      stats.StdDev(sur),
			AvgVAR:          stats.Mean(v),
			MedianVAR:       stats.Median(v),
			AvgMarketPrice:  stats.Mean(mkt),
			AvgKeeperCost:   stats.Mean(kc),
			AvgVARPerDollar: stats.Mean(stats.Values(vpd)),
		})
	}

	if rep.Correlation != nil {
		logger.Info("Analyzed keepers", "keepers", len(valued), "correlation", *rep.Correlation)
	} else {
		logger.Info("Analyzed keepers", "keepers", len(valued), "correlation", "undefined")
	}
	return rep
}
