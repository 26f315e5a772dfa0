// Package lineup scores weekly start/sit decisions against the best lineup
// the roster allowed.
package lineup

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Loss types.
const (
	UnluckyLoss = "UNLUCKY_LOSS"
	LineupLoss  = "LINEUP_LOSS"
	DepthLoss   = "DEPTH_LOSS"
	SkillLoss   = "SKILL_LOSS"
)

// HighEfficiency is the efficiency at or above which a week counts as well
// managed.
const HighEfficiency = 0.95

// Optimal fills the starting slots greedily: every fixed position takes its
// highest scorers, then FLEX takes the best remaining flex-eligible players.
// Players with no points or non-positive points are never started.
func Optimal(entries []league.LineupEntry, slots map[string]int) (float64, []string) {
	var pool []league.LineupEntry
	for _, e := range entries {
		if e.Points != nil && *e.Points > 0 {
			pool = append(pool, e)
		}
	}
	sort.SliceStable(pool, func(i, j int) bool { return *pool[i].Points > *pool[j].Points })

	used := make(map[string]bool)
	var lineup []string
	total := 0.0
	take := func(e league.LineupEntry) {
		used[e.PlayerID] = true
		lineup = append(lineup, e.PlayerID)
		total += *e.Points
	}

	for _, pos := range league.ScoringPositions {
		need := slots[pos]
		for _, e := range pool {
			if need == 0 {
				break
			}
			if e.Position == pos && !used[e.PlayerID] {
				take(e)
				need--
			}
		}
	}

	flex := slots[league.Flex]
	for _, e := range pool {
		if flex == 0 {
			break
		}
		if !used[e.PlayerID] && isFlex(e.Position) {
			take(e)
			flex--
		}
	}
	return total, lineup
}

func isFlex(pos string) bool {
	for _, p := range league.FlexEligible {
		if p == pos {
			return true
		}
	}
	return false
}

// TeamWeek is one team's lineup result for one week. Efficiency is nil when
// no positive optimal lineup exists.
type TeamWeek struct {
	Season      int      `json:"season"`
	Week        int      `json:"week"`
	TeamID      string   `json:"team_id"`
	Manager     string   `json:"manager"`
	Actual      float64  `json:"actual_points"`
	Optimal     float64  `json:"optimal_points"`
	Efficiency  *float64 `json:"lineup_efficiency"`
	BenchPoints float64  `json:"points_left_on_bench"`
}

type teamWeekKey struct {
	Season int
	Week   int
	TeamID string
}

// TeamWeeks evaluates every (season, week, team) present in the lineup
// entries. Seasons without a config use the default roster shape.
func TeamWeeks(entries []league.LineupEntry, owners league.OwnerIndex, configs map[int]league.SeasonConfig, logger *slog.Logger) []TeamWeek {
	if len(entries) == 0 {
		logger.Warn("No weekly lineup data available", "table", league.TableLineups)
		return nil
	}
	groups := make(map[teamWeekKey][]league.LineupEntry)
	for _, e := range entries {
		k := teamWeekKey{e.Season, e.Week, e.TeamID}
		groups[k] = append(groups[k], e)
	}
	keys := make([]teamWeekKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		if a.Week != b.Week {
			return a.Week < b.Week
		}
		return a.TeamID < b.TeamID
	})

	out := make([]TeamWeek, 0, len(keys))
	for _, k := range keys {
		cfg, ok := configs[k.Season]
		if !ok {
			cfg = league.DefaultSeasonConfig(k.Season)
		}
		tw := TeamWeek{Season: k.Season, Week: k.Week, TeamID: k.TeamID, Manager: owners.Manager(k.Season, k.TeamID)}
		for _, e := range groups[k] {
			if e.Started {
				tw.Actual += stats.Deref(e.Points, 0)
			}
		}
		tw.Optimal, _ = Optimal(groups[k], cfg.StartingSlots)
		if tw.Optimal > 0 {
			tw.Efficiency = stats.Ratio(tw.Actual, tw.Optimal)
		}
		tw.BenchPoints = tw.Optimal - tw.Actual
		out = append(out, tw)
	}
	logger.Info("Built weekly lineup analysis", "team_weeks", len(out))
	return out
}

// --------------------------------------------------------------------------
// Losses
// --------------------------------------------------------------------------

// Loss is a classified team-week loss.
type Loss struct {
	Season           int      `json:"season"`
	Week             int      `json:"week"`
	TeamID           string   `json:"team_id"`
	Manager          string   `json:"manager"`
	PointsFor        float64  `json:"points_for"`
	Optimal          float64  `json:"optimal_points"`
	Efficiency       *float64 `json:"lineup_efficiency"`
	LeagueP75        float64  `json:"league_75th_pct"`
	LeagueAvgOptimal float64  `json:"league_avg_points"`
	Type             string   `json:"loss_type"`
}

// ClassifyLoss applies the loss rules in order.
func ClassifyLoss(pointsFor float64, efficiency *float64, optimal, leagueP75, leagueAvgOptimal float64) string {
	switch {
	case pointsFor >= leagueP75:
		return UnluckyLoss
	case efficiency != nil && *efficiency < 0.9:
		return LineupLoss
	case optimal < leagueAvgOptimal:
		return DepthLoss
	default:
		return SkillLoss
	}
}

// ClassifyLosses joins lineup results to matchups and labels every loss.
// League benchmarks are taken over the teams of the same week that have
// both a lineup and a matchup row.
func ClassifyLosses(teamWeeks []TeamWeek, matchups []league.Matchup) []Loss {
	type joined struct {
		tw  TeamWeek
		pf  float64
		win bool
	}
	tws := make(map[teamWeekKey]TeamWeek, len(teamWeeks))
	for _, tw := range teamWeeks {
		tws[teamWeekKey{tw.Season, tw.Week, tw.TeamID}] = tw
	}
	type seasonWeek struct{ Season, Week int }
	weeks := make(map[seasonWeek][]joined)
	var order []seasonWeek
	for _, m := range matchups {
		tw, ok := tws[teamWeekKey{m.Season, m.Week, m.TeamID}]
		if !ok {
			continue
		}
		k := seasonWeek{m.Season, m.Week}
		if _, seen := weeks[k]; !seen {
			order = append(order, k)
		}
		weeks[k] = append(weeks[k], joined{tw, m.PointsFor, m.Win})
	}
	sort.Slice(order, func(i, j int) bool {
		if order[i].Season != order[j].Season {
			return order[i].Season < order[j].Season
		}
		return order[i].Week < order[j].Week
	})

	var out []Loss
	for _, k := range order {
		rows := weeks[k]
		pf := make([]float64, len(rows))
		opt := make([]float64, len(rows))
		for i, r := range rows {
			pf[i], opt[i] = r.pf, r.tw.Optimal
		}
		p75 := *stats.Quantile(pf, 0.75)
		avgOpt := *stats.Mean(opt)
		for _, r := range rows {
			if r.win {
				continue
			}
			out = append(out, Loss{
				Season:           r.tw.Season,
				Week:             r.tw.Week,
				TeamID:           r.tw.TeamID,
				Manager:          r.tw.Manager,
				PointsFor:        r.pf,
				Optimal:          r.tw.Optimal,
				Efficiency:       r.tw.Efficiency,
				LeagueP75:        p75,
				LeagueAvgOptimal: avgOpt,
				Type:             ClassifyLoss(r.pf, r.tw.Efficiency, r.tw.Optimal, p75, avgOpt),
			})
		}
	}
	return out
}

// --------------------------------------------------------------------------
// Manager-season rollup
// --------------------------------------------------------------------------

// SeasonStats is one manager-season of lineup decisions.
type SeasonStats struct {
	Season              int      `json:"season"`
	Manager             string   `json:"manager"`
	Weeks               int      `json:"weeks_analyzed"`
	AvgEfficiency       *float64 `json:"avg_lineup_efficiency"`
	MedianEfficiency    *float64 `json:"median_lineup_efficiency"`
	StdEfficiency       *float64 `json:"std_lineup_efficiency"`
	AvgBenchPoints      *float64 `json:"avg_points_left_on_bench"`
	TotalBenchPoints    float64  `json:"total_bench_points"`
	TotalOptimalPoints  float64  `json:"total_optimal_points"`
	BenchWasteRate      *float64 `json:"bench_waste_rate"`
	HighEfficiencyWeeks int      `json:"weeks_high_efficiency"`
	PctHighEfficiency   float64  `json:"pct_weeks_high_efficiency"`
}

// ManagerSeasonStats rolls team-weeks with a defined efficiency up to
// (season, manager).
func ManagerSeasonStats(teamWeeks []TeamWeek) []SeasonStats {
	type key struct {
		Season  int
		Manager string
	}
	groups := make(map[key][]TeamWeek)
	for _, tw := range teamWeeks {
		if tw.Manager == "" || tw.Efficiency == nil {
			continue
		}
		k := key{tw.Season, tw.Manager}
		groups[k] = append(groups[k], tw)
	}

	out := make([]SeasonStats, 0, len(groups))
	for k, rows := range groups {
		eff := make([]float64, len(rows))
		bench := make([]float64, len(rows))
		s := SeasonStats{Season: k.Season, Manager: k.Manager, Weeks: len(rows)}
		for i, r := range rows {
			eff[i], bench[i] = *r.Efficiency, r.BenchPoints
			s.TotalOptimalPoints += r.Optimal
			if *r.Efficiency >= HighEfficiency {
				s.HighEfficiencyWeeks++
			}
		}
		s.AvgEfficiency = stats.Mean(eff)
		s.MedianEfficiency = stats.Median(eff)
		s.StdEfficiency = stats.StdDev(eff)
		s.AvgBenchPoints = stats.Mean(bench)
		s.TotalBenchPoints = stats.Sum(bench)
		if s.TotalOptimalPoints > 0 {
			s.BenchWasteRate = stats.Ratio(s.TotalBenchPoints, s.TotalOptimalPoints)
		}
		s.PctHighEfficiency = float64(s.HighEfficiencyWeeks) / float64(s.Weeks) * 100
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Season != out[j].Season {
			return out[i].Season < out[j].Season
		}
		return out[i].Manager < out[j].Manager
	})
	return out
}
