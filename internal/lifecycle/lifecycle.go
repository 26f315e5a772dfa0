// Package lifecycle reconstructs how every player-season entered a roster.
//
// Draft and keeper picks, waiver and free-agent adds and trade arrivals are
// merged into a typed event list per (season, player). A single reducer
// picks the canonical acquisition: the earliest week, ties broken by the
// order the events were encountered. The resulting record carries the one
// undivided season VAR next to every team that held the player.
package lifecycle

import (
	"log/slog"
	"sort"
	"time"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/replacement"
)

// Acquisition channels.
const (
	TypeDraft     = "draft"
	TypeKeeper    = "keeper"
	TypeWaiver    = "waiver"
	TypeFreeAgent = "free_agent"
	TypeTrade     = "trade"
)

// --------------------------------------------------------------------------
// Calendar
// --------------------------------------------------------------------------

// Calendar maps transaction timestamps onto regular-season weeks.
type Calendar struct {
	StartMonth time.Month
	StartDay   int
	MaxWeek    int
}

// DefaultCalendar starts week 1 on September 5 and caps at week 17.
func DefaultCalendar() Calendar {
	return Calendar{StartMonth: time.September, StartDay: 5, MaxWeek: 17}
}

// WeekOf returns the week a timestamp falls in: 0 before the season starts
// (or for an unknown timestamp), capped at MaxWeek.
func (c Calendar) WeekOf(season int, ts time.Time) int {
	if ts.IsZero() {
		return 0
	}
	start := time.Date(season, c.StartMonth, c.StartDay, 0, 0, 0, 0, time.UTC)
	ts = ts.UTC()
	if ts.Before(start) {
		return 0
	}
	days := int(ts.Sub(start).Hours() / 24)
	week := days/7 + 1
	if c.MaxWeek > 0 && week > c.MaxWeek {
		return c.MaxWeek
	}
	return week
}

// --------------------------------------------------------------------------
// Events
// --------------------------------------------------------------------------

// Event is one way a player-season entered a roster.
type Event struct {
	Season        int     `json:"season"`
	PlayerID      string  `json:"player_id"`
	PlayerName    string  `json:"player_name"`
	Position      string  `json:"position"`
	TeamID        string  `json:"team_id"`
	Type          string  `json:"acquisition_type"`
	Week          int     `json:"acquisition_week"`
	Cost          float64 `json:"acquisition_cost"`
	TransactionID string  `json:"transaction_id,omitempty"`
	Order         int     `json:"order"`
}

// Events converts picks and transactions into acquisition events. Picks come
// first in input order, then transaction rows in their source order.
func Events(picks []league.DraftPick, txns []league.Transaction, cal Calendar) []Event {
	out := make([]Event, 0, len(picks)+len(txns))
	order := 0
	for _, p := range picks {
		e := Event{
			Season:     p.Season,
			PlayerID:   p.PlayerID,
			PlayerName: p.PlayerName,
			Position:   p.Position,
			TeamID:     p.TeamID,
			Type:       TypeDraft,
			Cost:       p.Cost,
			Order:      order,
		}
		if p.IsKeeper {
			e.Type = TypeKeeper
			e.Cost = p.LockedCost()
		}
		out = append(out, e)
		order++
	}

	sorted := append([]league.Transaction(nil), txns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })

	for _, t := range sorted {
		if t.PlayerID == "" {
			continue
		}
		e := Event{
			Season:        t.Season,
			PlayerID:      t.PlayerID,
			PlayerName:    t.PlayerName,
			TeamID:        t.ToTeam,
			Week:          cal.WeekOf(t.Season, t.Timestamp),
			TransactionID: t.TransactionID,
			Order:         order,
		}
		switch t.Action {
		case league.ActionAdd:
			e.Type = TypeFreeAgent
			if (t.BidAmount != nil && *t.BidAmount > 0) || t.WaiverPriority != nil {
				e.Type = TypeWaiver
			}
			if t.BidAmount != nil {
				e.Cost = *t.BidAmount
			}
		case league.ActionTrade:
			if t.ToTeam == "" {
				continue
			}
			e.Type = TypeTrade
		default:
			continue
		}
		out = append(out, e)
		order++
	}
	return out
}

// Resolve returns the canonical acquisition among a player-season's events:
// the lowest week, ties broken by lowest Order. ok is false for no events.
func Resolve(events []Event) (Event, bool) {
	if len(events) == 0 {
		return Event{}, false
	}
	best := events[0]
	for _, e := range events[1:] {
		if e.Week < best.Week || (e.Week == best.Week && e.Order < best.Order) {
			best = e
		}
	}
	return best, true
}

// --------------------------------------------------------------------------
// Lifecycle records
// --------------------------------------------------------------------------

// Record is one row of the lifecycle table.
type Record struct {
	Season          int      `json:"season"`
	PlayerID        string   `json:"player_id"`
	PlayerName      string   `json:"player_name"`
	Position        string   `json:"position"`
	TeamID          string   `json:"team_id"`
	Manager         string   `json:"manager"`
	AcquisitionType string   `json:"acquisition_type"`
	AcquisitionWeek int      `json:"acquisition_week"`
	AcquisitionCost float64  `json:"acquisition_cost"`
	TeamsPlayedFor  int      `json:"teams_played_for"`
	Teams           []string `json:"teams"`
	BecameKeeper    bool     `json:"became_keeper"`
	Points          *float64 `json:"total_points"`
	VAR             *float64 `json:"VAR_total"`
}

// Build groups events by player-season, resolves each group and joins the
// player's season VAR.
func Build(events []Event, values []replacement.PlayerValue, picks []league.DraftPick, owners league.OwnerIndex, logger *slog.Logger) []Record {
	if len(events) == 0 {
		logger.Warn("No acquisition events found")
		return nil
	}

	groups := make(map[replacement.PlayerKey][]Event)
	var keys []replacement.PlayerKey
	for _, e := range events {
		k := replacement.PlayerKey{Season: e.Season, PlayerID: e.PlayerID}
		if _, ok := groups[k]; !ok {
			keys = append(keys, k)
		}
		groups[k] = append(groups[k], e)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].Season != keys[j].Season {
			return keys[i].Season < keys[j].Season
		}
		return keys[i].PlayerID < keys[j].PlayerID
	})

	kept := make(map[replacement.PlayerKey]bool)
	for _, p := range picks {
		if p.IsKeeper {
			kept[replacement.PlayerKey{Season: p.Season, PlayerID: p.PlayerID}] = true
		}
	}
	vals := replacement.ValueIndex(values)

	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		group := groups[k]
		first, _ := Resolve(group)

		var teams []string
		seen := make(map[string]bool)
		for _, e := range group {
			if e.TeamID != "" && !seen[e.TeamID] {
				seen[e.TeamID] = true
				teams = append(teams, e.TeamID)
			}
		}

		rec := Record{
			Season:          k.Season,
			PlayerID:        k.PlayerID,
			PlayerName:      first.PlayerName,
			Position:        first.Position,
			TeamID:          first.TeamID,
			Manager:         owners.Manager(k.Season, first.TeamID),
			AcquisitionType: first.Type,
			AcquisitionWeek: first.Week,
			AcquisitionCost: first.Cost,
			TeamsPlayedFor:  len(teams),
			Teams:           teams,
			BecameKeeper:    kept[replacement.PlayerKey{Season: k.Season + 1, PlayerID: k.PlayerID}],
		}
		if v, ok := vals[k]; ok {
			rec.Points = v.Points
			rec.VAR = v.VAR
			if rec.Position == "" {
				rec.Position = v.Position
			}
			if rec.PlayerName == "" {
				rec.PlayerName = v.PlayerName
			}
		}
		out = append(out, rec)
	}

	logger.Info("Built lifecycle table", "player_seasons", len(out), "events", len(events))
	return out
}
