// Package luck splits actual wins into what a team's scoring earned and what
// its schedule gave it.
//
// Expected wins follow the all-play model: every week each team is ranked
// against the whole league by points scored, and a team ranked r of n earns
// (n - r) / (n - 1) of a win. When weekly scores are missing the same
// formula is applied once to season points-for and scaled by the season's
// week count.
package luck

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Expected-wins methods.
const (
	MethodWeekly      = "all_play_weekly"
	MethodSeasonTotal = "season_total"
)

// ApproximationNotice is raised when expected wins come from season totals.
const ApproximationNotice = "expected wins approximated from season points-for; weekly scores unavailable"

// ExpectedWins is one row of the expected_wins table.
type ExpectedWins struct {
	Season   int     `json:"season"`
	Manager  string  `json:"manager"`
	Expected float64 `json:"expected_wins"`
	Weeks    int     `json:"weeks"`
	Method   string  `json:"method"`
}

type seasonManager struct {
	Season  int
	Manager string
}

type seasonWeek struct {
	Season int
	Week   int
}

// Played drops team-weeks with no points on either side, which are byes or
// unplayed weeks.
func Played(matchups []league.Matchup) []league.Matchup {
	out := make([]league.Matchup, 0, len(matchups))
	for _, m := range matchups {
		if m.PointsFor == 0 && m.PointsAgainst == 0 {
			continue
		}
		out = append(out, m)
	}
	return out
}

// HasWeeklyPoints reports whether any team-week carries a score.
func HasWeeklyPoints(matchups []league.Matchup) bool {
	for _, m := range matchups {
		if m.PointsFor > 0 {
			return true
		}
	}
	return false
}

// AllPlay returns the share of a win each score earns against the rest of
// the week: (n - rank) / (n - 1), with tied scores sharing the minimum rank.
// It returns nil when fewer than two teams played.
func AllPlay(points []float64) []float64 {
	n := len(points)
	if n < 2 {
		return nil
	}
	ranks := stats.RankMinDesc(points)
	out := make([]float64, n)
	for i, r := range ranks {
		out[i] = float64(n-r) / float64(n-1)
	}
	return out
}

func byWeek(matchups []league.Matchup) ([]seasonWeek, map[seasonWeek][]league.Matchup) {
	groups := make(map[seasonWeek][]league.Matchup)
	for _, m := range matchups {
		k := seasonWeek{m.Season, m.Week}
		groups[k] = append(groups[k], m)
	}
	keys := make([]seasonWeek, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Season != keys[j].Season {
			return keys[i].Season < keys[j].Season
		}
		return keys[i].Week < keys[j].Week
	})
	return keys, groups
}

// WeeklyExpectedWins sums all-play expected wins per (season, manager).
// Teams without a known manager are left out; a manager holding two teams in
// the same week is credited with both.
func WeeklyExpectedWins(matchups []league.Matchup, owners league.OwnerIndex) []ExpectedWins {
	keys, groups := byWeek(Played(matchups))

	acc := make(map[seasonManager]*ExpectedWins)
	weeks := make(map[seasonManager]map[int]bool)
	for _, k := range keys {
		week := groups[k]
		pts := make([]float64, len(week))
		for i, m := range week {
			pts[i] = m.PointsFor
		}
		shares := AllPlay(pts)
		if shares == nil {
			continue
		}
		for i, m := range week {
			mgr := owners.Manager(m.Season, m.TeamID)
			if mgr == "" {
				continue
			}
			sm := seasonManager{m.Season, mgr}
			e, ok := acc[sm]
			if !ok {
				e = &ExpectedWins{Season: m.Season, Manager: mgr, Method: MethodWeekly}
				acc[sm] = e
				weeks[sm] = make(map[int]bool)
			}
			e.Expected += shares[i]
			weeks[sm][m.Week] = true
		}
	}

	out := make([]ExpectedWins, 0, len(acc))
	for k, e := range acc {
		e.Weeks = len(weeks[k])
		out = append(out, *e)
	}
	sortRows(out, func(e ExpectedWins) seasonManager { return seasonManager{e.Season, e.Manager} })
	return out
}

// FallbackExpectedWins ranks each season's teams once by points-for and
// scales the all-play share by weeksFor(season).
func FallbackExpectedWins(standings []league.Standing, owners league.OwnerIndex, weeksFor func(season int) int) []ExpectedWins {
	bySeason := make(map[int][]league.Standing)
	for _, s := range standings {
		bySeason[s.Season] = append(bySeason[s.Season], s)
	}

	acc := make(map[seasonManager]*ExpectedWins)
	for season, rows := range bySeason {
		pf := make([]float64, len(rows))
		for i, r := range rows {
			pf[i] = r.PointsFor
		}
		shares := AllPlay(pf)
		if shares == nil {
			continue
		}
		weeks := weeksFor(season)
		for i, r := range rows {
			mgr := owners.Manager(season, r.TeamID)
			if mgr == "" {
				continue
			}
			k := seasonManager{season, mgr}
			e, ok := acc[k]
			if !ok {
				e = &ExpectedWins{Season: season, Manager: mgr, Weeks: weeks, Method: MethodSeasonTotal}
				acc[k] = e
			}
			e.Expected += shares[i] * float64(weeks)
		}
	}

	out := make([]ExpectedWins, 0, len(acc))
	for _, e := range acc {
		out = append(out, *e)
	}
	sortRows(out, func(e ExpectedWins) seasonManager { return seasonManager{e.Season, e.Manager} })
	return out
}

// WeeksPerSeason returns the highest week seen per season in the matchups,
// or def for seasons without matchups.
func WeeksPerSeason(matchups []league.Matchup, def int) func(int) int {
	last := make(map[int]int)
	for _, m := range matchups {
		if m.Week > last[m.Season] {
			last[m.Season] = m.Week
		}
	}
	return func(season int) int {
		if w, ok := last[season]; ok && w > 0 {
			return w
		}
		return def
	}
}

// Expected picks the weekly model when weekly scores exist and the season
// total fallback otherwise. approximated is true for the fallback.
func Expected(matchups []league.Matchup, standings []league.Standing, owners league.OwnerIndex, defaultWeeks int, logger *slog.Logger) (rows []ExpectedWins, approximated bool) {
	if HasWeeklyPoints(matchups) {
		rows = WeeklyExpectedWins(matchups, owners)
		logger.Info("Calculated expected wins from weekly scores", "manager_seasons", len(rows))
		return rows, false
	}
	if len(standings) == 0 {
		logger.Warn("Cannot calculate expected wins", "table", league.TableStandings)
		return nil, false
	}
	rows = FallbackExpectedWins(standings, owners, WeeksPerSeason(matchups, defaultWeeks))
	logger.Warn("Weekly scores unavailable, using season totals approximation", "manager_seasons", len(rows))
	return rows, true
}

func sortRows[T any](rows []T, key func(T) seasonManager) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := key(rows[i]), key(rows[j])
		if a.Season != b.Season {
			return a.Season < b.Season
		}
		return a.Manager < b.Manager
	})
}
