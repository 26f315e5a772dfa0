package tiers

import (
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Hit-rate scopes.
const (
	ScopeLeague        = "league"
	ScopeManagerSeason = "manager_season"
	ScopeManagerCareer = "manager_career"
)

// HitRate is one row of the draft_hit_rates table. Rates are percentages.
type HitRate struct {
	Scope              string   `json:"scope"`
	Manager            string   `json:"manager,omitempty"`
	Season             int      `json:"season,omitempty"`
	ExpectedTier       int      `json:"expected_tier,omitempty"`
	Count              int      `json:"count"`
	HitRate            float64  `json:"hit_rate"`
	BustRate           float64  `json:"bust_rate"`
	AvgVAR             *float64 `json:"avg_VAR"`
	MedianVAR          *float64 `json:"median_VAR"`
	AvgNormalizedPrice *float64 `json:"avg_normalized_price"`
	Top3PickVAR        *float64 `json:"top3_pick_VAR"`
	Top5SpendVAR       *float64 `json:"top5_spend_VAR"`
}

// TierSummaryRow aggregates hit statistics per position and expected tier.
type TierSummaryRow struct {
	Position           string   `json:"position"`
	ExpectedTier       int      `json:"expected_tier"`
	Count              int      `json:"count"`
	HitRate            float64  `json:"hit_rate"`
	BustRate           float64  `json:"bust_rate"`
	AvgVAR             *float64 `json:"avg_VAR"`
	MedianVAR          *float64 `json:"median_VAR"`
	AvgNormalizedPrice *float64 `json:"avg_normalized_price"`
	AvgPoints          *float64 `json:"avg_fantasy_points"`
}

// HitRates bundles all three scopes.
type HitRates struct {
	League        []HitRate `json:"league"`
	ManagerSeason []HitRate `json:"manager_season"`
	ManagerCareer []HitRate `json:"manager_career"`
}

// All flattens the three scopes into one table.
func (h HitRates) All() []HitRate {
	out := make([]HitRate, 0, len(h.League)+len(h.ManagerSeason)+len(h.ManagerCareer))
	out = append(out, h.League...)
	out = append(out, h.ManagerSeason...)
	return append(out, h.ManagerCareer...)
}

// ComputeHitRates aggregates picks with both tiers at league, manager-season
// and manager-career scope.
func ComputeHitRates(picks []TieredPick) HitRates {
	var rated []TieredPick
	for _, p := range picks {
		if p.Hit != nil {
			rated = append(rated, p)
		}
	}
	if len(rated) == 0 {
		return HitRates{}
	}

	var res HitRates

	byTier := make(map[int][]TieredPick)
	for _, p := range rated {
		byTier[*p.ExpectedTier] = append(byTier[*p.ExpectedTier], p)
	}
	for _, tier := range sortedKeys(byTier) {
		row := aggregate(byTier[tier])
		row.Scope = ScopeLeague
		row.ExpectedTier = tier
		res.League = append(res.League, row)
	}

	type seasonManager struct {
		Season  int
		Manager string
	}
	bySM := make(map[seasonManager][]TieredPick)
	byManager := make(map[string][]TieredPick)
	for _, p := range rated {
		if p.Manager == "" {
			continue
		}
		k := seasonManager{p.Season, p.Manager}
		bySM[k] = append(bySM[k], p)
		byManager[p.Manager] = append(byManager[p.Manager], p)
	}

	smKeys := make([]seasonManager, 0, len(bySM))
	for k := range bySM {
		smKeys = append(smKeys, k)
	}
	sort.Slice(smKeys, func(i, j int) bool {
		if smKeys[i].Season != smKeys[j].Season {
			return smKeys[i].Season < smKeys[j].Season
		}
		return smKeys[i].Manager < smKeys[j].Manager
	})
	for _, k := range smKeys {
		group := bySM[k]
		row := aggregate(group)
		row.Scope = ScopeManagerSeason
		row.Season = k.Season
		row.Manager = k.Manager
		row.Top3PickVAR = topByPriceVAR(group, 3)
		row.Top5SpendVAR = topByPriceVAR(group, 5)
		res.ManagerSeason = append(res.ManagerSeason, row)
	}

	managers := make([]string, 0, len(byManager))
	for m := range byManager {
		managers = append(managers, m)
	}
	sort.Strings(managers)
	for _, m := range managers {
		group := byManager[m]
		row := aggregate(group)
		row.Scope = ScopeManagerCareer
		row.Manager = m

		perSeason := make(map[int][]TieredPick)
		for _, p := range group {
			perSeason[p.Season] = append(perSeason[p.Season], p)
		}
		var top3 []float64
		for _, s := range sortedKeys(perSeason) {
			if v := topByPriceVAR(perSeason[s], 3); v != nil {
				top3 = append(top3, *v)
			}
		}
		row.Top3PickVAR = stats.Mean(top3)
		res.ManagerCareer = append(res.ManagerCareer, row)
	}
	return res
}

// TierSummary aggregates hit statistics by position and expected tier.
func TierSummary(picks []TieredPick) []TierSummaryRow {
	type posTier struct {
		Position string
		Tier     int
	}
	groups := make(map[posTier][]TieredPick)
	for _, p := range picks {
		if p.Hit == nil {
			continue
		}
		k := posTier{p.Position, *p.ExpectedTier}
		groups[k] = append(groups[k], p)
	}

	keys := make([]posTier, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Position != keys[j].Position {
			return keys[i].Position < keys[j].Position
		}
		return keys[i].Tier < keys[j].Tier
	})

	out := make([]TierSummaryRow, 0, len(keys))
	for _, k := range keys {
		g := groups[k]
		agg := aggregate(g)
		pts := make([]*float64, len(g))
		for i, p := range g {
			pts[i] = p.Points
		}
		out = append(out, TierSummaryRow{
			Position:           k.Position,
			ExpectedTier:       k.Tier,
			Count:              agg.Count,
			HitRate:            agg.HitRate,
			BustRate:           agg.BustRate,
			AvgVAR:             agg.AvgVAR,
			MedianVAR:          agg.MedianVAR,
			AvgNormalizedPrice: agg.AvgNormalizedPrice,
			AvgPoints:          stats.Mean(stats.Values(pts)),
		})
	}
	return out
}

func aggregate(group []TieredPick) HitRate {
	hits, busts := 0, 0
	vars := make([]*float64, len(group))
	prices := make([]float64, len(group))
	for i, p := range group {
		if p.Hit != nil && *p.Hit {
			hits++
		}
		if p.Bust != nil && *p.Bust {
			busts++
		}
		vars[i] = p.VAR
		prices[i] = p.NormalizedPrice
	}
	n := float64(len(group))
	v := stats.Values(vars)
	return HitRate{
		Count:              len(group),
		HitRate:            float64(hits) / n * 100,
		BustRate:           float64(busts) / n * 100,
		AvgVAR:             stats.Mean(v),
		MedianVAR:          stats.Median(v),
		AvgNormalizedPrice: stats.Mean(prices),
	}
}

// topByPriceVAR sums VAR over the k most expensive picks, nil when none of
// them has a VAR.
func topByPriceVAR(group []TieredPick, k int) *float64 {
	sorted := append([]TieredPick(nil), group...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].NormalizedPrice > sorted[j].NormalizedPrice
	})
	if len(sorted) > k {
		sorted = sorted[:k]
	}
	var sum float64
	seen := false
	for _, p := range sorted {
		if p.VAR != nil {
			sum += *p.VAR
			seen = true
		}
	}
	if !seen {
		return nil
	}
	return stats.Ptr(sum)
}

func sortedKeys[V any](m map[int]V) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
