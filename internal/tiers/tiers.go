// Package tiers compares what a manager paid for a player with what the
// player delivered. Picks are bucketed into price-implied expectation tiers
// and realized finish tiers within each (season, position); a pick "hits"
// when it finishes at or above its expected tier and "busts" when its VAR is
// below replacement.
package tiers

import (
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/replacement"
)

// TieredPick is a valued pick with tier assignments.
type TieredPick struct {
	replacement.ValuedPick
	Manager      string `json:"manager"`
	PriceRank    int    `json:"price_rank_within_position"`
	ExpectedTier *int   `json:"expected_tier"`
	PointsRank   *int   `json:"points_rank_within_position"`
	ActualTier   *int   `json:"actual_finish_tier"`
	Hit          *bool  `json:"hit"`
	Bust         *bool  `json:"bust"`
}

// TierSize is the number of starters league-wide at a position, never less
// than one.
func TierSize(cfg league.SeasonConfig, pos string) int {
	n := cfg.NumTeams * cfg.Starters(pos)
	if n < 1 {
		return 1
	}
	return n
}

// TierFor maps a 1-based rank to its tier.
func TierFor(rank, size int) int {
	return (rank-1)/size + 1
}

// Assign ranks picks within (season, position) by normalized price and by
// realized points and derives hit/bust flags. Input order is preserved and
// ties keep their input order.
func Assign(picks []replacement.ValuedPick, configs map[int]league.SeasonConfig, owners league.OwnerIndex) []TieredPick {
	out := make([]TieredPick, len(picks))
	groups := make(map[replacement.Key][]int)
	for i, p := range picks {
		out[i] = TieredPick{ValuedPick: p, Manager: owners.Manager(p.Season, p.TeamID)}
		k := replacement.Key{Season: p.Season, Position: p.Position}
		groups[k] = append(groups[k], i)
	}

	for key, idxs := range groups {
		if !isScoring(key.Position) {
			continue
		}
		cfg, ok := configs[key.Season]
		if !ok {
			cfg = league.DefaultSeasonConfig(key.Season)
		}
		size := TierSize(cfg, key.Position)

		byPrice := append([]int(nil), idxs...)
		sort.SliceStable(byPrice, func(a, b int) bool {
			return out[byPrice[a]].NormalizedPrice > out[byPrice[b]].NormalizedPrice
		})
		for r, i := range byPrice {
			tier := TierFor(r+1, size)
			out[i].PriceRank = r + 1
			out[i].ExpectedTier = &tier
		}

		var withPoints []int
		for _, i := range idxs {
			if out[i].Points != nil {
				withPoints = append(withPoints, i)
			}
		}
		sort.SliceStable(withPoints, func(a, b int) bool {
			return *out[withPoints[a]].Points > *out[withPoints[b]].Points
		})
		for r, i := range withPoints {
			rank := r + 1
			tier := TierFor(rank, size)
			out[i].PointsRank = &rank
			out[i].ActualTier = &tier
		}
	}

	for i := range out {
		p := &out[i]
		if p.ExpectedTier != nil && p.ActualTier != nil {
			hit := *p.ActualTier <= *p.ExpectedTier
			p.Hit = &hit
		}
		if p.VAR != nil {
			bust := *p.VAR < 0
			p.Bust = &bust
		}
	}
	return out
}

func isScoring(pos string) bool {
	for _, p := range league.ScoringPositions {
		if p == pos {
			return true
		}
	}
	return false
}
