package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/albapepper/keeper-analytics/internal/league"
)

// LeagueSettings describes one league: its baseline season, roster and
// budget defaults, per-season overrides and calendar.
type LeagueSettings struct {
	Name               string
	BaselineSeason     int
	Defaults           league.SeasonConfig
	Seasons            map[int]league.SeasonOverride
	SeasonStartMonth   int
	SeasonStartDay     int
	MaxWeek            int
	RegularSeasonWeeks int
}

// DefaultLeagueSettings returns the settings used when no file is given.
func DefaultLeagueSettings() *LeagueSettings {
	return &LeagueSettings{
		Defaults:           league.DefaultSeasonConfig(0),
		Seasons:            make(map[int]league.SeasonOverride),
		SeasonStartMonth:   9,
		SeasonStartDay:     5,
		MaxWeek:            17,
		RegularSeasonWeeks: 13,
	}
}

// LoadLeagueSettings reads a YAML, JSON or TOML league file. An empty path
// yields the defaults. Environment variables prefixed KEEPER_ override
// scalar keys, with dots replaced by underscores
// (KEEPER_DEFAULTS_AUCTION_BUDGET).
func LoadLeagueSettings(path string) (*LeagueSettings, error) {
	v := viper.New()
	v.SetEnvPrefix("KEEPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	def := DefaultLeagueSettings()
	v.SetDefault("name", "")
	v.SetDefault("baseline_season", 0)
	v.SetDefault("season_start.month", def.SeasonStartMonth)
	v.SetDefault("season_start.day", def.SeasonStartDay)
	v.SetDefault("max_week", def.MaxWeek)
	v.SetDefault("regular_season_weeks", def.RegularSeasonWeeks)
	v.SetDefault("defaults.num_teams", def.Defaults.NumTeams)
	v.SetDefault("defaults.auction_budget", def.Defaults.AuctionBudget)
	v.SetDefault("defaults.bench_slots", def.Defaults.BenchSlots)
	v.SetDefault("defaults.keepers_per_team", def.Defaults.KeepersPerTeam)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading league settings %s: %w", path, err)
		}
	}

	s := &LeagueSettings{
		Name:               v.GetString("name"),
		BaselineSeason:     v.GetInt("baseline_season"),
		Seasons:            make(map[int]league.SeasonOverride),
		SeasonStartMonth:   v.GetInt("season_start.month"),
		SeasonStartDay:     v.GetInt("season_start.day"),
		MaxWeek:            v.GetInt("max_week"),
		RegularSeasonWeeks: v.GetInt("regular_season_weeks"),
	}
	// Scalar keys are read one by one so an explicit 0 in the file wins
	// over the registered default.
	var slots map[string]int
	if err := v.UnmarshalKey("defaults.starting_slots", &slots); err != nil {
		return nil, fmt.Errorf("decoding default starting slots: %w", err)
	}
	s.Defaults = league.SeasonConfig{
		NumTeams:       v.GetInt("defaults.num_teams"),
		AuctionBudget:  v.GetFloat64("defaults.auction_budget"),
		StartingSlots:  normalizeSlots(slots),
		BenchSlots:     v.GetInt("defaults.bench_slots"),
		KeepersPerTeam: v.GetInt("defaults.keepers_per_team"),
	}.Fill(def.Defaults)

	for key := range v.GetStringMap("seasons") {
		season, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("season override key %q is not a year", key)
		}
		var o league.SeasonOverride
		if err := v.UnmarshalKey("seasons."+key, &o); err != nil {
			return nil, fmt.Errorf("decoding season %d override: %w", season, err)
		}
		o.Season = season
		o.StartingSlots = normalizeSlots(o.StartingSlots)
		s.Seasons[season] = o
	}

	if s.SeasonStartMonth < 1 || s.SeasonStartMonth > 12 {
		return nil, fmt.Errorf("season_start.month %d out of range", s.SeasonStartMonth)
	}
	return s, nil
}

// SeasonConfig resolves a season's configuration: the season override
// first, then the number of teams observed in the data, then the defaults.
func (s *LeagueSettings) SeasonConfig(season, teamsSeen int) league.SeasonConfig {
	var observed league.SeasonOverride
	if teamsSeen > 0 {
		observed.NumTeams = &teamsSeen
	}
	return s.Resolve(season, observed)
}

// Resolve layers a season's configuration: defaults, then what the source
// data reported, then the settings file's override for that season.
func (s *LeagueSettings) Resolve(season int, observed league.SeasonOverride) league.SeasonConfig {
	base := s.Defaults
	base.Season = season
	return s.Seasons[season].Apply(observed.Apply(base))
}

// OverrideSeasons lists seasons with an explicit override, ascending.
func (s *LeagueSettings) OverrideSeasons() []int {
	out := make([]int, 0, len(s.Seasons))
	for season := range s.Seasons {
		out = append(out, season)
	}
	sort.Ints(out)
	return out
}

// normalizeSlots upper-cases position keys; viper lower-cases every key it
// reads.
func normalizeSlots(slots map[string]int) map[string]int {
	if len(slots) == 0 {
		return nil
	}
	out := make(map[string]int, len(slots))
	for pos, n := range slots {
		out[strings.ToUpper(pos)] = n
	}
	return out
}
