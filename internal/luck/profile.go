package luck

import (
	"log/slog"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// Championship types.
const (
	Dominant = "DOMINANT"
	Lucky    = "LUCKY"
	Even     = "BALANCED"
)

// SeasonLuck pairs a manager-season's actual wins with its expected wins.
// WinLuck is 0 when no expectation exists for the season.
type SeasonLuck struct {
	Season   int      `json:"season"`
	Manager  string   `json:"manager"`
	Wins     int      `json:"wins"`
	Expected *float64 `json:"expected_wins"`
	WinLuck  float64  `json:"win_luck"`
	PADiff   *float64 `json:"PA_diff"`
}

// WinLuck joins schedules to expected wins.
func WinLuck(schedules []Schedule, expected []ExpectedWins) []SeasonLuck {
	exp := make(map[seasonManager]float64, len(expected))
	for _, e := range expected {
		exp[seasonManager{e.Season, e.Manager}] = e.Expected
	}
	out := make([]SeasonLuck, len(schedules))
	for i, s := range schedules {
		sl := SeasonLuck{Season: s.Season, Manager: s.Manager, Wins: s.Wins, PADiff: s.PADiff}
		if e, ok := exp[seasonManager{s.Season, s.Manager}]; ok {
			sl.Expected = stats.Ptr(e)
			sl.WinLuck = float64(s.Wins) - e
		}
		out[i] = sl
	}
	return out
}

// Profile is one row of manager_luck_profile.
type Profile struct {
	Manager           string   `json:"manager"`
	Seasons           int      `json:"seasons_played"`
	MeanPADiff        *float64 `json:"mean_PA_diff"`
	StdPADiff         *float64 `json:"std_PA_diff"`
	TotalWinLuck      float64  `json:"total_win_luck"`
	MeanWinLuck       *float64 `json:"mean_win_luck"`
	StdWinLuck        *float64 `json:"std_win_luck"`
	UnluckySeasons    int      `json:"total_unlucky_seasons"`
	LuckySeasons      int      `json:"total_lucky_seasons"`
	PctUnluckySeasons float64  `json:"pct_seasons_unlucky"`
	PctLuckySeasons   float64  `json:"pct_seasons_lucky"`
}

// Profiles aggregates win luck per manager across seasons. A season is
// lucky above +1 win of luck and unlucky below -1.
func Profiles(schedules []Schedule, expected []ExpectedWins, logger *slog.Logger) []Profile {
	if len(schedules) == 0 || len(expected) == 0 {
		return nil
	}
	groups := make(map[string][]SeasonLuck)
	for _, sl := range WinLuck(schedules, expected) {
		groups[sl.Manager] = append(groups[sl.Manager], sl)
	}
	names := make([]string, 0, len(groups))
	for m := range groups {
		names = append(names, m)
	}
	sort.Strings(names)

	out := make([]Profile, 0, len(names))
	for _, m := range names {
		rows := groups[m]
		luck := make([]float64, len(rows))
		pad := make([]*float64, len(rows))
		p := Profile{Manager: m, Seasons: len(rows)}
		for i, r := range rows {
			luck[i] = r.WinLuck
			pad[i] = r.PADiff
			switch {
			case r.WinLuck > 1:
				p.LuckySeasons++
			case r.WinLuck < -1:
				p.UnluckySeasons++
			}
		}
		pa := stats.Values(pad)
		p.MeanPADiff, p.StdPADiff = stats.Mean(pa), stats.StdDev(pa)
		p.TotalWinLuck = stats.Sum(luck)
		p.MeanWinLuck, p.StdWinLuck = stats.Mean(luck), stats.StdDev(luck)
		p.PctLuckySeasons = float64(p.LuckySeasons) / float64(p.Seasons) * 100
		p.PctUnluckySeasons = float64(p.UnluckySeasons) / float64(p.Seasons) * 100
		out = append(out, p)
	}
	logger.Info("Built luck profiles", "managers", len(out))
	return out
}

// ChampionshipType labels a title by how far actual wins ran ahead of
// expected wins. A missing expectation is BALANCED.
func ChampionshipType(winsOverExpected *float64) string {
	switch {
	case winsOverExpected == nil:
		return Even
	case *winsOverExpected >= 1:
		return Dominant
	case *winsOverExpected <= -1:
		return Lucky
	default:
		return Even
	}
}

// Championship is one row of championship_luck.
type Championship struct {
	Season           int      `json:"season"`
	Manager          string   `json:"manager"`
	Wins             int      `json:"wins"`
	Expected         *float64 `json:"expected_wins"`
	WinsOverExpected *float64 `json:"wins_over_expected"`
	PointsFor        float64  `json:"points_for"`
	PFPercentile     *float64 `json:"points_for_percentile"`
	PADiff           *float64 `json:"PA_diff"`
	Type             string   `json:"championship_type"`
}

// ChampionshipLuck classifies every championship season. Points-for
// percentile is taken against the same season's manager-seasons.
func ChampionshipLuck(seasons []value.ManagerSeason, expected []ExpectedWins, schedules []Schedule) []Championship {
	exp := make(map[seasonManager]float64, len(expected))
	for _, e := range expected {
		exp[seasonManager{e.Season, e.Manager}] = e.Expected
	}
	sched := make(map[seasonManager]Schedule, len(schedules))
	for _, s := range schedules {
		sched[seasonManager{s.Season, s.Manager}] = s
	}
	pf := make(map[int][]float64)
	for _, s := range seasons {
		pf[s.Season] = append(pf[s.Season], s.PointsFor)
	}

	var out []Championship
	for _, s := range seasons {
		if !s.Champion {
			continue
		}
		k := seasonManager{s.Season, s.Manager}
		c := Championship{
			Season:       s.Season,
			Manager:      s.Manager,
			Wins:         s.Wins,
			PointsFor:    s.PointsFor,
			PFPercentile: stats.PercentileRank(pf[s.Season], s.PointsFor),
		}
		if e, ok := exp[k]; ok {
			c.Expected = stats.Ptr(e)
			c.WinsOverExpected = stats.Ptr(float64(s.Wins) - e)
		}
		if sc, ok := sched[k]; ok {
			c.PADiff = sc.PADiff
		}
		c.Type = ChampionshipType(c.WinsOverExpected)
		out = append(out, c)
	}
	sortRows(out, func(c Championship) seasonManager { return seasonManager{c.Season, c.Manager} })
	return out
}
