package luck

import (
	"log/slog"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Schedule sources.
const (
	SourceWeekly    = "weekly"
	SourceStandings = "standings"
)

// Schedule is one row of manager_season_schedule. PADiff is the manager's
// average points against minus the league's that season; positive means a
// harder schedule.
type Schedule struct {
	Season        int      `json:"season"`
	Manager       string   `json:"manager"`
	Games         int      `json:"games_played"`
	Wins          int      `json:"wins"`
	Losses        int      `json:"losses"`
	PointsFor     float64  `json:"points_for"`
	PointsAgainst float64  `json:"points_against"`
	AvgPF         *float64 `json:"avg_points_for"`
	AvgPA         *float64 `json:"avg_points_against"`
	StdPA         *float64 `json:"std_points_against"`
	LeagueAvgPA   *float64 `json:"league_avg_PA"`
	PADiff        *float64 `json:"PA_diff"`
	Source        string   `json:"source"`
}

// Schedules builds the per manager-season schedule table from weekly
// matchups when they carry scores, otherwise from standings.
func Schedules(matchups []league.Matchup, standings []league.Standing, owners league.OwnerIndex, logger *slog.Logger) []Schedule {
	var out []Schedule
	switch {
	case HasWeeklyPoints(matchups):
		out = weeklySchedules(Played(matchups), owners)
	case len(standings) > 0:
		out = standingsSchedules(standings, owners)
	}
	if len(out) == 0 {
		logger.Warn("No schedule data available", "table", league.TableMatchups)
		return nil
	}
	logger.Info("Built schedule analysis", "manager_seasons", len(out))
	return out
}

func weeklySchedules(matchups []league.Matchup, owners league.OwnerIndex) []Schedule {
	leaguePA := make(map[int][]float64)
	games := make(map[seasonManager][]league.Matchup)
	for _, m := range matchups {
		leaguePA[m.Season] = append(leaguePA[m.Season], m.PointsAgainst)
		mgr := owners.Manager(m.Season, m.TeamID)
		if mgr == "" {
			continue
		}
		k := seasonManager{m.Season, mgr}
		games[k] = append(games[k], m)
	}

	out := make([]Schedule, 0, len(games))
	for k, rows := range games {
		s := Schedule{Season: k.Season, Manager: k.Manager, Games: len(rows), Source: SourceWeekly}
		pf := make([]float64, len(rows))
		pa := make([]float64, len(rows))
		for i, r := range rows {
			if r.Win {
				s.Wins++
			}
			pf[i], pa[i] = r.PointsFor, r.PointsAgainst
		}
		s.Losses = s.Games - s.Wins
		s.PointsFor, s.PointsAgainst = stats.Sum(pf), stats.Sum(pa)
		s.AvgPF, s.AvgPA = stats.Mean(pf), stats.Mean(pa)
		s.StdPA = stats.StdDev(pa)
		s.LeagueAvgPA = stats.Mean(leaguePA[k.Season])
		s.PADiff = diff(s.AvgPA, s.LeagueAvgPA)
		out = append(out, s)
	}
	sortRows(out, func(s Schedule) seasonManager { return seasonManager{s.Season, s.Manager} })
	return out
}

// standingsSchedules has no weekly spread. The league average is per game,
// like the manager average it is compared with.
func standingsSchedules(standings []league.Standing, owners league.OwnerIndex) []Schedule {
	type total struct{ pa, games float64 }
	leaguePA := make(map[int]*total)
	acc := make(map[seasonManager]*Schedule)
	for _, st := range standings {
		lt, ok := leaguePA[st.Season]
		if !ok {
			lt = &total{}
			leaguePA[st.Season] = lt
		}
		lt.pa += st.PointsAgainst
		lt.games += float64(st.Wins + st.Losses)

		mgr := owners.Manager(st.Season, st.TeamID)
		if mgr == "" {
			continue
		}
		k := seasonManager{st.Season, mgr}
		s, ok := acc[k]
		if !ok {
			s = &Schedule{Season: st.Season, Manager: mgr, Source: SourceStandings}
			acc[k] = s
		}
		s.Wins += st.Wins
		s.Losses += st.Losses
		s.PointsFor += st.PointsFor
		s.PointsAgainst += st.PointsAgainst
	}

	out := make([]Schedule, 0, len(acc))
	for _, s := range acc {
		s.Games = s.Wins + s.Losses
		s.AvgPF = stats.Ratio(s.PointsFor, float64(s.Games))
		s.AvgPA = stats.Ratio(s.PointsAgainst, float64(s.Games))
		lt := leaguePA[s.Season]
		s.LeagueAvgPA = stats.Ratio(lt.pa, lt.games)
		s.PADiff = diff(s.AvgPA, s.LeagueAvgPA)
		out = append(out, *s)
	}
	sortRows(out, func(s Schedule) seasonManager { return seasonManager{s.Season, s.Manager} })
	return out
}

func diff(a, b *float64) *float64 {
	if a == nil || b == nil {
		return nil
	}
	return stats.Ptr(*a - *b)
}

// --------------------------------------------------------------------------
// Schedule difficulty
// --------------------------------------------------------------------------

// Difficulty measures how strong a manager's opponents were. Score is the
// average opponent points minus the season mean of that average; Percentile
// is the average opponent weekly percentile, centered on 0.
type Difficulty struct {
	Season             int      `json:"season"`
	Manager            string   `json:"manager"`
	AvgOpponentPoints  *float64 `json:"avg_opponent_points_for"`
	AvgOpponentPctile  *float64 `json:"avg_opponent_percentile"`
	DifficultyScore    *float64 `json:"schedule_difficulty_score"`
	DifficultyPctPoint *float64 `json:"schedule_difficulty_percentile"`
}

// ScheduleDifficulty computes opponent strength from weekly matchups.
func ScheduleDifficulty(matchups []league.Matchup, owners league.OwnerIndex) []Difficulty {
	played := Played(matchups)
	if !HasWeeklyPoints(played) {
		return nil
	}
	keys, weeks := byWeek(played)

	opp := make(map[seasonManager][]float64)
	pct := make(map[seasonManager][]float64)
	for _, k := range keys {
		week := weeks[k]
		pf := make([]float64, len(week))
		for i, m := range week {
			pf[i] = m.PointsFor
		}
		for _, m := range week {
			mgr := owners.Manager(m.Season, m.TeamID)
			if mgr == "" {
				continue
			}
			sm := seasonManager{m.Season, mgr}
			opp[sm] = append(opp[sm], m.PointsAgainst)
			if len(week) >= 2 {
				pct[sm] = append(pct[sm], *stats.PercentileRank(pf, m.PointsAgainst)/100)
			}
		}
	}

	out := make([]Difficulty, 0, len(opp))
	seasonAvg := make(map[int][]float64)
	for k, pa := range opp {
		d := Difficulty{
			Season:            k.Season,
			Manager:           k.Manager,
			AvgOpponentPoints: stats.Mean(pa),
			AvgOpponentPctile: stats.Mean(pct[k]),
		}
		if d.AvgOpponentPoints != nil {
			seasonAvg[k.Season] = append(seasonAvg[k.Season], *d.AvgOpponentPoints)
		}
		if d.AvgOpponentPctile != nil {
			d.DifficultyPctPoint = stats.Ptr((*d.AvgOpponentPctile - 0.5) * 100)
		}
		out = append(out, d)
	}
	for i := range out {
		out[i].DifficultyScore = diff(out[i].AvgOpponentPoints, stats.Mean(seasonAvg[out[i].Season]))
	}
	sortRows(out, func(d Difficulty) seasonManager { return seasonManager{d.Season, d.Manager} })
	return out
}
