// Package value rolls draft spend, channel VAR and standings up to one row
// per (season, manager). The resulting table is the central fact table for
// consistency, luck and blueprint analysis.
package value

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/tiers"
)

// ManagerSeason is one row of the manager_season_value table.
type ManagerSeason struct {
	Season        int      `json:"season"`
	Manager       string   `json:"manager"`
	Teams         []string `json:"teams"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	FinalRank     int      `json:"final_rank"`
	Champion      bool     `json:"champion_flag"`
	PointsFor     float64  `json:"points_for"`
	PointsAgainst float64  `json:"points_against"`

	DraftSpend        float64  `json:"draft_spend"`
	KeeperSpend       float64  `json:"keeper_spend"`
	AuctionSpend      float64  `json:"auction_spend"`
	TotalSpend        float64  `json:"total_spend"`
	KeeperSpendingPct *float64 `json:"keeper_spending_pct"`

	DraftVAR     float64  `json:"draft_VAR"`
	KeeperVAR    float64  `json:"keeper_VAR"`
	WaiverVAR    float64  `json:"waiver_VAR"`
	TradeVAR     float64  `json:"trade_VAR"`
	TotalVAR     float64  `json:"total_VAR"`
	VARPerDollar *float64 `json:"VAR_per_dollar"`

	PctVARFromDraft  float64 `json:"pct_VAR_from_draft"`
	PctVARFromKeeper float64 `json:"pct_VAR_from_keeper"`
	PctVARFromWaiver float64 `json:"pct_VAR_from_waiver"`
	PctVARFromTrade  float64 `json:"pct_VAR_from_trade"`

	NumPicks int      `json:"num_picks"`
	HitRate  *float64 `json:"hit_rate"`
	BustRate *float64 `json:"bust_rate"`
}

// Shares returns each part's percentage of total. All shares are 0 when
// total is 0.
func Shares(total float64, parts ...float64) []float64 {
	out := make([]float64, len(parts))
	if total == 0 {
		return out
	}
	for i, p := range parts {
		out[i] = p / total * 100
	}
	return out
}

type seasonManager struct {
	Season  int
	Manager string
}

// Inputs are the upstream tables the aggregator joins. Every slice other
// than Picks may be empty.
type Inputs struct {
	Picks     []tiers.TieredPick
	Records   []lifecycle.Record
	Pickups   []lifecycle.Pickup
	Standings []league.Standing
	Owners    []league.TeamOwner
}

// ManagerSeasons builds the manager-season value table. Manager-seasons are
// taken from team ownership, falling back to the managers seen on picks.
func ManagerSeasons(in Inputs, logger *slog.Logger) []ManagerSeason {
	rows := make(map[seasonManager]*ManagerSeason)
	get := func(season int, manager string) *ManagerSeason {
		k := seasonManager{season, manager}
		r, ok := rows[k]
		if !ok {
			r = &ManagerSeason{Season: season, Manager: manager}
			rows[k] = r
		}
		return r
	}

	owners := league.NewOwnerIndex(in.Owners)
	for _, o := range in.Owners {
		if o.Manager == "" {
			continue
		}
		r := get(o.Season, o.Manager)
		r.Teams = append(r.Teams, o.TeamID)
	}
	if len(rows) == 0 {
		for _, p := range in.Picks {
			if p.Manager != "" {
				get(p.Season, p.Manager)
			}
		}
	}
	if len(rows) == 0 {
		logger.Warn("No manager-season combinations found", "table", league.TableTeamRoster)
		return nil
	}

	for _, s := range in.Standings {
		m := owners.Manager(s.Season, s.TeamID)
		r, ok := rows[seasonManager{s.Season, m}]
		if !ok {
			continue
		}
		r.Wins += s.Wins
		r.Losses += s.Losses
		r.PointsFor += s.PointsFor
		r.PointsAgainst += s.PointsAgainst
		if s.FinalRank > 0 && (r.FinalRank == 0 || s.FinalRank < r.FinalRank) {
			r.FinalRank = s.FinalRank
		}
		if s.FinalRank == 1 {
			r.Champion = true
		}
	}

	hits := make(map[seasonManager][2]int)
	busts := make(map[seasonManager]int)
	for _, p := range in.Picks {
		r, ok := rows[seasonManager{p.Season, p.Manager}]
		if !ok {
			continue
		}
		r.NumPicks++
		if p.IsKeeper {
			r.KeeperSpend += p.Cost
			if p.VAR != nil {
				r.KeeperVAR += *p.VAR
			}
		} else {
			r.DraftSpend += p.Cost
			if p.VAR != nil {
				r.DraftVAR += *p.VAR
			}
		}
		if p.Hit != nil {
			k := seasonManager{p.Season, p.Manager}
			h := hits[k]
			h[1]++
			if *p.Hit {
				h[0]++
			}
			hits[k] = h
			if p.Bust != nil && *p.Bust {
				busts[k]++
			}
		}
	}

	for _, p := range in.Pickups {
		if p.VAR == nil {
			continue
		}
		if r, ok := rows[seasonManager{p.Season, p.Manager}]; ok {
			r.WaiverVAR += *p.VAR
		}
	}
	for _, rec := range in.Records {
		if rec.AcquisitionType != lifecycle.TypeTrade || rec.VAR == nil {
			continue
		}
		if r, ok := rows[seasonManager{rec.Season, rec.Manager}]; ok {
			r.TradeVAR += *rec.VAR
		}
	}

	out := make([]ManagerSeason, 0, len(rows))
	for k, r := range rows {
		r.AuctionSpend = r.DraftSpend
		r.TotalSpend = r.DraftSpend + r.KeeperSpend
		r.KeeperSpendingPct = stats.Ratio(r.KeeperSpend*100, r.TotalSpend)
		r.TotalVAR = r.DraftVAR + r.KeeperVAR + r.WaiverVAR + r.TradeVAR
		r.VARPerDollar = stats.Ratio(r.TotalVAR, r.TotalSpend)

		pct := Shares(r.TotalVAR, r.DraftVAR, r.KeeperVAR, r.WaiverVAR, r.TradeVAR)
		r.PctVARFromDraft, r.PctVARFromKeeper, r.PctVARFromWaiver, r.PctVARFromTrade = pct[0], pct[1], pct[2], pct[3]

		if h, ok := hits[k]; ok && h[1] > 0 {
			r.HitRate = stats.Ptr(float64(h[0]) / float64(h[1]) * 100)
			r.BustRate = stats.Ptr(float64(busts[k]) / float64(h[1]) * 100)
		}
		sort.Strings(r.Teams)
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Manager < out[j].Manager
	})

	logger.Info("Built manager-season value table", "rows", len(out))
	return out
}
