// Package trades nets the value each side of a trade gained against the
// value it gave up.
//
// Only season-total VAR is available per player, so a trade is scored over
// the whole season rather than strictly the weeks after it executed. Late
// in-season trades therefore overstate what the losing side gave up. The
// Notice constant describes this for report consumers.
package trades

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/lifecycle"
	"github.com/albapepper/keeper-analytics/internal/replacement"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Trade outcomes.
const (
	Win     = "WIN"
	Loss    = "LOSS"
	Neutral = "NEUTRAL"
)

// Notice is attached to every run that scores trades.
const Notice = "trade impact uses season-total VAR as a proxy for post-trade production; late-season trades overstate the losing side's loss"

// Side is one team's half of a trade.
type Side struct {
	TeamID   string   `json:"team_id"`
	Manager  string   `json:"manager"`
	Received []string `json:"players_received"`
	Sent     []string `json:"players_sent"`
	Gained   float64  `json:"var_gained"`
	Lost     float64  `json:"var_lost"`
	Net      float64  `json:"net_var"`
	Result   string   `json:"result"`
}

// Impact is one row of the trade_impact table.
type Impact struct {
	Season        int    `json:"season"`
	TransactionID string `json:"transaction_id"`
	Week          int    `json:"trade_week"`
	TeamA         Side   `json:"team_a"`
	TeamB         Side   `json:"team_b"`
}

// Report is the trade stage output. SkippedSides counts the teams beyond
// the first two destinations of multi-team trades, which are not scored.
type Report struct {
	Impacts      []Impact `json:"impacts"`
	Discarded    int      `json:"discarded_incomplete"`
	SkippedSides int      `json:"skipped_sides"`
	Notice       string   `json:"notice,omitempty"`
}

// IsTrade reports whether a transaction row belongs to a trade.
func IsTrade(t league.Transaction) bool {
	return t.Action == league.ActionTrade || strings.Contains(strings.ToLower(t.Type), "trade")
}

// Analyze groups trade rows by transaction and scores both sides. Groups
// with fewer than two rows or fewer than two destination teams are
// discarded as incomplete.
func Analyze(txns []league.Transaction, values []replacement.PlayerValue, owners league.OwnerIndex, cal lifecycle.Calendar, logger *slog.Logger) Report {
	var rep Report

	var ids []string
	groups := make(map[string][]league.Transaction)
	sorted := append([]league.Transaction(nil), txns...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Seq < sorted[j].Seq })
	for _, t := range sorted {
		if !IsTrade(t) {
			continue
		}
		if _, ok := groups[t.TransactionID]; !ok {
			ids = append(ids, t.TransactionID)
		}
		groups[t.TransactionID] = append(groups[t.TransactionID], t)
	}
	if len(ids) == 0 {
		logger.Warn("No trade transactions found", "table", league.TableTransactions)
		return rep
	}

	vals := replacement.ValueIndex(values)

	for _, id := range ids {
		rows := groups[id]
		if len(rows) < 2 {
			rep.Discarded++
			continue
		}
		dests := distinct(rows, func(t league.Transaction) string { return t.ToTeam })
		if len(dests) < 2 {
			rep.Discarded++
			continue
		}

		if len(dests) > 2 {
			rep.SkippedSides += len(dests) - 2
			logger.Warn("Multi-team trade, scoring the first two destinations only",
				"transaction_id", id, "teams", len(dests))
		}

		season := rows[0].Season
		varOf := func(playerID string) float64 {
			return stats.Deref(vals[replacement.PlayerKey{Season: season, PlayerID: playerID}].VAR, 0)
		}

		a := side(rows, dests[0], varOf)
		b := side(rows, dests[1], varOf)
		a.Manager = owners.Manager(season, a.TeamID)
		b.Manager = owners.Manager(season, b.TeamID)
		a.Result, b.Result = outcome(a.Net, b.Net), outcome(b.Net, a.Net)

		rep.Impacts = append(rep.Impacts, Impact{
			Season:        season,
			TransactionID: id,
			Week:          cal.WeekOf(season, rows[0].Timestamp),
			TeamA:         a,
			TeamB:         b,
		})
	}

	if len(rep.Impacts) > 0 {
		rep.Notice = Notice
	}
	logger.Info("Analyzed trades", "trades", len(rep.Impacts), "discarded", rep.Discarded, "skipped_sides", rep.SkippedSides)
	return rep
}

func side(rows []league.Transaction, team string, varOf func(string) float64) Side {
	s := Side{TeamID: team}
	in := make(map[string]bool)
	out := make(map[string]bool)
	for _, r := range rows {
		if r.PlayerID == "" {
			continue
		}
		if r.ToTeam == team && !in[r.PlayerID] {
			in[r.PlayerID] = true
			s.Received = append(s.Received, r.PlayerID)
			s.Gained += varOf(r.PlayerID)
		}
		if r.FromTeam == team && !out[r.PlayerID] {
			out[r.PlayerID] = true
			s.Sent = append(s.Sent, r.PlayerID)
			s.Lost += varOf(r.PlayerID)
		}
	}
	s.Net = s.Gained - s.Lost
	return s
}

func outcome(own, other float64) string {
	switch {
	case own > other:
		return Win
	case own < other:
		return Loss
	default:
		return Neutral
	}
}

func distinct(rows []league.Transaction, field func(league.Transaction) string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, r := range rows {
		v := field(r)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
