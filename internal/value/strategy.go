package value

import (
	"sort"

	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Strategy labels.
const (
	WaiverHawk   = "WAIVER_HAWK"
	Trader       = "TRADER"
	DraftAndHold = "DRAFT_AND_HOLD"
	Passive      = "PASSIVE"
	Balanced     = "BALANCED"
)

// Strategy profiles how a manager built a roster in one season. Draft share
// includes keepers since both are acquired at the auction.
type Strategy struct {
	Season         int      `json:"season"`
	Manager        string   `json:"manager"`
	DraftVARShare  float64  `json:"draft_var_share"`
	WaiverVARShare float64  `json:"waiver_var_share"`
	TradeVARShare  float64  `json:"trade_var_share"`
	FAABSpent      float64  `json:"faab_spent"`
	FAABEfficiency *float64 `json:"faab_efficiency"`
	UniquePlayers  int      `json:"unique_players"`
	Label          string   `json:"manager_strategy"`
}

// ClassifyStrategy applies the strategy rules in order.
func ClassifyStrategy(draftShare, waiverShare, tradeShare float64) string {
	switch {
	case waiverShare >= 30:
		return WaiverHawk
	case tradeShare >= 20:
		return Trader
	case draftShare >= 60 && waiverShare < 10:
		return DraftAndHold
	case waiverShare < 10 && tradeShare < 10:
		return Passive
	default:
		return Balanced
	}
}

// Profiles labels every manager-season by where its VAR came from.
func Profiles(seasons []ManagerSeason, pickups []lifecycle.Pickup, records []lifecycle.Record) []Strategy {
	faab := make(map[seasonManager]float64)
	for _, p := range pickups {
		faab[seasonManager{p.Season, p.Manager}] += p.AcquisitionCost
	}
	players := make(map[seasonManager]map[string]bool)
	for _, r := range records {
		if r.Manager == "" {
			continue
		}
		k := seasonManager{r.Season, r.Manager}
		if players[k] == nil {
			players[k] = make(map[string]bool)
		}
		players[k][r.PlayerID] = true
	}

	out := make([]Strategy, 0, len(seasons))
	for _, ms := range seasons {
		k := seasonManager{ms.Season, ms.Manager}
		s := Strategy{
			Season:         ms.Season,
			Manager:        ms.Manager,
			DraftVARShare:  ms.PctVARFromDraft + ms.PctVARFromKeeper,
			WaiverVARShare: ms.PctVARFromWaiver,
			TradeVARShare:  ms.PctVARFromTrade,
			FAABSpent:      faab[k],
			UniquePlayers:  len(players[k]),
		}
		if s.FAABSpent > 0 {
			s.FAABEfficiency = stats.Ratio(ms.WaiverVAR, s.FAABSpent)
		}
		s.Label = ClassifyStrategy(s.DraftVARShare, s.WaiverVARShare, s.TradeVARShare)
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Manager < out[j].Manager
	})
	return out
}
