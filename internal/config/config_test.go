package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/league"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "")
	t.Setenv("RUN_RETENTION", "")
	t.Setenv("API_PORT", "")
	t.Setenv("PORT", "")

	cfg := Load()
	assert.ErrorIs(t, cfg.RequireDatabase(), ErrNoDatabase)
	assert.Equal(t, 8000, cfg.APIPort)
	assert.Equal(t, 30*24*time.Hour, cfg.RunRetention)
	assert.True(t, cfg.CacheEnabled)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("POSTGRES_URL", "postgres://localhost/keepers")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("RUN_RETENTION", "72h")
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("PORT", "")

	cfg := Load()
	require.NoError(t, cfg.RequireDatabase())
	assert.Equal(t, "postgres://localhost/keepers", cfg.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSAllowOrigins)
	assert.Equal(t, 72*time.Hour, cfg.RunRetention)
	assert.Equal(t, 8000, cfg.APIPort)
}

func TestLoadLeagueSettingsDefaults(t *testing.T) {
	s, err := LoadLeagueSettings("")
	require.NoError(t, err)
	assert.Equal(t, 13, s.RegularSeasonWeeks)
	assert.Equal(t, 17, s.MaxWeek)
	assert.Equal(t, 9, s.SeasonStartMonth)
	assert.Equal(t, league.DefaultSeasonConfig(0).StartingSlots, s.Defaults.StartingSlots)

	cfg := s.SeasonConfig(2016, 10)
	assert.Equal(t, 2016, cfg.Season)
	assert.Equal(t, 10, cfg.NumTeams)
	assert.Equal(t, 200.0, cfg.AuctionBudget)
}

const settingsYAML = `
name: Dynasty
baseline_season: 2015
season_start:
  month: 9
  day: 8
defaults:
  auction_budget: 250
  starting_slots:
    QB: 2
    RB: 2
    WR: 3
    TE: 1
    FLEX: 1
seasons:
  "2014":
    num_teams: 10
    auction_budget: 200
`

func TestLoadLeagueSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte(settingsYAML), 0o644))
	t.Setenv("KEEPER_REGULAR_SEASON_WEEKS", "14")

	s, err := LoadLeagueSettings(path)
	require.NoError(t, err)
	assert.Equal(t, "Dynasty", s.Name)
	assert.Equal(t, 2015, s.BaselineSeason)
	assert.Equal(t, 8, s.SeasonStartDay)
	assert.Equal(t, 14, s.RegularSeasonWeeks)
	assert.Equal(t, 2, s.Defaults.StartingSlots[league.QB])
	assert.Equal(t, []int{2014}, s.OverrideSeasons())

	old := s.SeasonConfig(2014, 12)
	assert.Equal(t, 10, old.NumTeams)
	assert.Equal(t, 200.0, old.AuctionBudget)
	assert.Equal(t, 3, old.Starters(league.WR))

	cur := s.SeasonConfig(2016, 0)
	assert.Equal(t, 12, cur.NumTeams)
	assert.Equal(t, 250.0, cur.AuctionBudget)
}

func TestLoadLeagueSettingsErrors(t *testing.T) {
	_, err := LoadLeagueSettings(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seasons:\n  recent:\n    num_teams: 8\n"), 0o644))
	_, err = LoadLeagueSettings(path)
	assert.ErrorContains(t, err, "not a year")
}

const noKeepersYAML = `
defaults:
  keepers_per_team: 0
seasons:
  "2015":
    keepers_per_team: 2
  "2016":
    bench_slots: 0
`

func TestLoadLeagueSettingsZeroKeepers(t *testing.T) {
	path := filepath.Join(t.TempDir(), "league.yaml")
	require.NoError(t, os.WriteFile(path, []byte(noKeepersYAML), 0o644))

	s, err := LoadLeagueSettings(path)
	require.NoError(t, err)
	assert.Equal(t, 0, s.Defaults.KeepersPerTeam)
	assert.Equal(t, 6, s.Defaults.BenchSlots)

	assert.Equal(t, 0, s.SeasonConfig(2014, 12).KeepersPerTeam)
	assert.Equal(t, 2, s.SeasonConfig(2015, 12).KeepersPerTeam)

	cfg := s.SeasonConfig(2016, 12)
	assert.Equal(t, 0, cfg.BenchSlots)
	assert.Equal(t, 0, cfg.KeepersPerTeam)
}

func TestResolveLayersObservedUnderOverride(t *testing.T) {
	s := DefaultLeagueSettings()
	ten, budget, zero := 10, 300.0, 0
	s.Seasons[2019] = league.SeasonOverride{Season: 2019, AuctionBudget: &budget}

	cfg := s.Resolve(2019, league.SeasonOverride{NumTeams: &ten, AuctionBudget: &budget, KeepersPerTeam: &zero})
	assert.Equal(t, 10, cfg.NumTeams)
	assert.Equal(t, 300.0, cfg.AuctionBudget)
	assert.Equal(t, 0, cfg.KeepersPerTeam)

	other := 150.0
	cfg = s.Resolve(2019, league.SeasonOverride{AuctionBudget: &other})
	assert.Equal(t, 300.0, cfg.AuctionBudget, "settings file wins over the data")
}
