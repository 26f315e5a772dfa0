package lifecycle

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Pickup archetypes.
const (
	LeagueWinner = "LEAGUE_WINNER"
	SolidStarter = "SOLID_STARTER"
	Streamer     = "STREAMER"
	DeadPickup   = "DEAD_PICKUP"
)

// UnknownPickup marks a pickup whose player has no recorded output.
const UnknownPickup = "UNKNOWN"

// Pickup is a waiver or free-agent acquisition with its payoff.
type Pickup struct {
	Season          int      `json:"season"`
	PlayerID        string   `json:"player_id"`
	PlayerName      string   `json:"player_name"`
	Position        string   `json:"position"`
	TeamID          string   `json:"team_id"`
	Manager         string   `json:"manager"`
	AcquisitionType string   `json:"acquisition_type"`
	AcquisitionWeek int      `json:"acquisition_week"`
	AcquisitionCost float64  `json:"acquisition_cost"`
	VAR             *float64 `json:"var_after_pickup"`
	WeeksRostered   int      `json:"weeks_rostered"`
	WeeksStarted    int      `json:"weeks_started"`
	WeeksEstimated  bool     `json:"weeks_estimated"`
	VARPercentile   *float64 `json:"var_percentile"`
	CostEfficiency  *float64 `json:"cost_efficiency"`
	Archetype       string   `json:"pickup_type"`
	BecameKeeper    bool     `json:"became_keeper"`
}

// ClassifyPickup applies the archetype rules in order; the first match wins.
func ClassifyPickup(v float64, weeksStarted, weeksRostered int, varPercentile *float64) string {
	switch {
	case varPercentile != nil && *varPercentile >= 75 && weeksStarted >= 4:
		return LeagueWinner
	case v <= 0 || weeksStarted == 0:
		return DeadPickup
	case weeksRostered <= 3 && weeksStarted >= 1:
		return Streamer
	case v > 0 && weeksStarted >= 3:
		return SolidStarter
	default:
		return DeadPickup
	}
}

// AnalyzePickups classifies every waiver and free-agent acquisition. Weeks
// rostered and started come from lineup entries when present; otherwise
// they are estimated from the acquisition week to the end of the season and
// estimated is true.
func AnalyzePickups(records []Record, lineups []league.LineupEntry, cal Calendar, logger *slog.Logger) (pickups []Pickup, estimated bool) {
	type teamPlayer struct {
		Season   int
		TeamID   string
		PlayerID string
	}
	type weekUsage struct {
		rostered map[int]bool
		started  map[int]bool
	}
	usage := make(map[teamPlayer]*weekUsage)
	for _, l := range lineups {
		k := teamPlayer{l.Season, l.TeamID, l.PlayerID}
		u, ok := usage[k]
		if !ok {
			u = &weekUsage{rostered: map[int]bool{}, started: map[int]bool{}}
			usage[k] = u
		}
		u.rostered[l.Week] = true
		if l.Started {
			u.started[l.Week] = true
		}
	}
	estimated = len(lineups) == 0

	for _, r := range records {
		if r.AcquisitionType != TypeWaiver && r.AcquisitionType != TypeFreeAgent {
			continue
		}
		p := Pickup{
			Season:          r.Season,
			PlayerID:        r.PlayerID,
			PlayerName:      r.PlayerName,
			Position:        r.Position,
			TeamID:          r.TeamID,
			Manager:         r.Manager,
			AcquisitionType: r.AcquisitionType,
			AcquisitionWeek: r.AcquisitionWeek,
			AcquisitionCost: r.AcquisitionCost,
			VAR:             r.VAR,
			BecameKeeper:    r.BecameKeeper,
			WeeksEstimated:  estimated,
		}
		if estimated {
			p.WeeksRostered = max(cal.MaxWeek-max(r.AcquisitionWeek, 1)+1, 0)
			p.WeeksStarted = p.WeeksRostered
		} else if u, ok := usage[teamPlayer{r.Season, r.TeamID, r.PlayerID}]; ok {
			for w := range u.rostered {
				if w >= r.AcquisitionWeek {
					p.WeeksRostered++
				}
			}
			for w := range u.started {
				if w >= r.AcquisitionWeek {
					p.WeeksStarted++
				}
			}
		}
		if p.VAR != nil && p.AcquisitionCost > 0 {
			p.CostEfficiency = stats.Ratio(*p.VAR, p.AcquisitionCost)
		}
		pickups = append(pickups, p)
	}

	if len(pickups) == 0 {
		logger.Warn("No waiver pickups found")
		return nil, estimated
	}

	// Pickups without VAR stay out of the percentile population.
	byPos := make(map[string][]float64)
	for _, p := range pickups {
		if p.VAR != nil {
			byPos[p.Position] = append(byPos[p.Position], *p.VAR)
		}
	}
	for i := range pickups {
		p := &pickups[i]
		if p.VAR == nil {
			p.Archetype = UnknownPickup
			continue
		}
		if p.Position != "" {
			p.VARPercentile = stats.PercentileRank(byPos[p.Position], *p.VAR)
		}
		p.Archetype = ClassifyPickup(*p.VAR, p.WeeksStarted, p.WeeksRostered, p.VARPercentile)
	}

	logger.Info("Analyzed waiver pickups", "pickups", len(pickups), "estimated_weeks", estimated)
	return pickups, estimated
}

// WaiverSummary rolls pickups up per manager-season.
type WaiverSummary struct {
	Season         int            `json:"season"`
	Manager        string         `json:"manager"`
	Pickups        int            `json:"pickups"`
	FAABSpent      float64        `json:"faab_spent"`
	TotalVAR       float64        `json:"total_waiver_VAR"`
	Archetypes     map[string]int `json:"archetype_counts"`
	BestPickup     string         `json:"best_pickup"`
	BestPickupVAR  *float64       `json:"best_pickup_VAR"`
	VARPerFAABUnit *float64       `json:"VAR_per_faab_dollar"`
}

// ManagerWaiverSummary aggregates pickups by (season, manager). Pickups
// without VAR count toward pickups, spend and archetypes only.
func ManagerWaiverSummary(pickups []Pickup) []WaiverSummary {
	type key struct {
		Season  int
		Manager string
	}
	groups := make(map[key]*WaiverSummary)
	for _, p := range pickups {
		if p.Manager == "" {
			continue
		}
		k := key{p.Season, p.Manager}
		s, ok := groups[k]
		if !ok {
			s = &WaiverSummary{Season: p.Season, Manager: p.Manager, Archetypes: map[string]int{}}
			groups[k] = s
		}
		s.Pickups++
		s.FAABSpent += p.AcquisitionCost
		s.Archetypes[p.Archetype]++
		if p.VAR == nil {
			continue
		}
		s.TotalVAR += *p.VAR
		if s.BestPickupVAR == nil || *p.VAR > *s.BestPickupVAR {
			s.BestPickup = p.PlayerName
			s.BestPickupVAR = stats.Ptr(*p.VAR)
		}
	}

	out := make([]WaiverSummary, 0, len(groups))
	for _, s := range groups {
		s.VARPerFAABUnit = stats.Ratio(s.TotalVAR, s.FAABSpent)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Manager < out[j].Manager
	})
	return out
}
