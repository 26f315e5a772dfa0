package source

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/config"
	"github.com/albapepper/keeper-analytics/internal/league"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

const season2019 = `{
  "settings": {"name": "Keeper League", "num_teams": "2"},
  "teams": [
    {"team_key": "t.1", "name": "Gridiron", "manager": "Avery",
     "roster": [
       {"player_id": 101, "name": "Quinn", "position": "qb", "fantasy_points_total": "310.5"},
       {"player_id": "102", "name": "Reese", "position": "RB", "fantasy_points_total": null}
     ]},
    {"team_key": "t.2", "name": "Blitz",
     "roster": [{"player_id": "201", "name": "Wade", "position": "WR", "fantasy_points_total": 190}]},
    {"team_key": "t.3", "error": "team fetch failed"}
  ],
  "standings": [
    {"team_key": "t.1", "rank": 1, "wins": "9", "losses": 4, "points_for": 1501.2, "points_against": "1400"},
    {"team_key": "t.2", "rank": 2, "wins": 4, "losses": 9, "points_for": 1350, "points_against": 1420}
  ],
  "draft_results": [
    {"player_id": 101, "player_name": "Quinn", "team_key": "t.1", "cost": "35", "is_keeper": 0},
    {"player_id": "201", "player_name": "Wade", "team_key": "t.2", "cost": 41, "is_keeper": "true", "keeper_cost": 20},
    {"error": "pick unavailable"}
  ],
  "transactions": [
    {"transaction_id": "9", "type": "add/drop", "timestamp": "1568851200", "status": "successful",
     "involved_players": [
       {"player_id": "102", "player_name": "Reese", "transaction_type": "add", "to_team_key": "t.1", "faab_bid": {"total": 7}},
       {"player_id": "300", "player_name": "Cut", "transaction_type": "drop", "from_team_key": "t.1"}
     ]},
    {"transaction_id": "10", "type": "commish", "timestamp": "2019-10-01T12:00:00Z"}
  ],
  "matchups": [
    {"week": 1, "team1_key": "t.1", "team2_key": "t.2", "team1_points": "110.5", "team2_points": 98, "winner": "t.1"},
    {"week": 2, "team1_key": "t.1", "team2_key": "t.2", "team1_points": 90, "team2_points": 101}
  ],
  "lineups": [
    {"week": 1, "team_key": "t.1", "player_id": 101, "position": "QB", "points": 25.5, "selected_position": "QB"},
    {"week": 1, "team_key": "t.1", "player_id": 102, "position": "RB", "points": 11, "selected_position": "BN"},
    {"week": 1, "team_key": "t.2", "player_id": 201, "position": "WR", "points": 14, "started": 1}
  ]
}`

const season2021 = `{
  "teams": [{"team_key": "u.1", "manager": "Avery"}, {"team_key": "u.2", "manager": "Blake"}],
  "player_results": [{"player_id": "101", "player_name": "Quinn", "position": "QB", "fantasy_points_total": 280, "games_played": "16"}]
}`

func writeDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func TestLoadDir(t *testing.T) {
	dir := writeDir(t, map[string]string{
		FileName(2019): season2019,
		FileName(2021): season2021,
	})

	ds, err := LoadDir(dir, 2019, 2021, nil, quiet)
	require.NoError(t, err)
	require.NoError(t, league.Validate(ds))

	assert.Equal(t, "Keeper League", ds.League)
	assert.Equal(t, 2019, ds.BaselineSeason)
	assert.Equal(t, []int{2019, 2021}, ds.Seasons())
	assert.Equal(t, 2, ds.Configs[2019].NumTeams)
	assert.Equal(t, 2, ds.Configs[2021].NumTeams)

	owners := league.NewOwnerIndex(ds.Owners)
	assert.Equal(t, "Avery", owners.Manager(2019, "t.1"))
	assert.Equal(t, "Blitz", owners.Manager(2019, "t.2"), "team name stands in for a missing manager")
	assert.Equal(t, "Blake", owners.Manager(2021, "u.2"))
	assert.Len(t, ds.Owners, 4)

	require.Len(t, ds.Results, 4)
	assert.Equal(t, "101", ds.Results[0].PlayerID)
	assert.Equal(t, league.QB, ds.Results[0].Position)
	assert.Equal(t, 310.5, *ds.Results[0].Points)
	assert.Nil(t, ds.Results[1].Points)
	assert.Equal(t, 16, *ds.Results[3].GamesPlayed)

	require.Len(t, ds.Picks, 2)
	assert.Equal(t, league.QB, ds.Picks[0].Position, "position filled from results")
	assert.Equal(t, 35.0, ds.Picks[0].Cost)
	assert.False(t, ds.Picks[0].IsKeeper)
	assert.True(t, ds.Picks[1].IsKeeper)
	assert.Equal(t, 20.0, ds.Picks[1].LockedCost())

	require.Len(t, ds.Standings, 2)
	assert.Equal(t, 9, ds.Standings[0].Wins)
	assert.Equal(t, 1400.0, ds.Standings[0].PointsAgainst)

	require.Len(t, ds.Transactions, 3)
	add := ds.Transactions[0]
	assert.Equal(t, league.ActionAdd, add.Action)
	assert.Equal(t, 7.0, *add.BidAmount)
	assert.Equal(t, time.Unix(1568851200, 0).UTC(), add.Timestamp)
	assert.Equal(t, league.ActionDrop, ds.Transactions[1].Action)
	assert.Equal(t, 2, ds.Transactions[2].Seq)
	assert.Empty(t, ds.Transactions[2].PlayerID)
	assert.Equal(t, time.Date(2019, time.October, 1, 12, 0, 0, 0, time.UTC), ds.Transactions[2].Timestamp)

	require.Len(t, ds.Matchups, 4)
	assert.True(t, ds.Matchups[0].Win)
	assert.False(t, ds.Matchups[1].Win)
	assert.Equal(t, 110.5, ds.Matchups[1].PointsAgainst)
	assert.True(t, ds.Matchups[3].Win, "higher score wins without a recorded winner")

	require.Len(t, ds.Lineups, 3)
	assert.True(t, ds.Lineups[0].Started)
	assert.False(t, ds.Lineups[1].Started)
	assert.True(t, ds.Lineups[2].Started)
}

func TestLoadDirSettings(t *testing.T) {
	dir := writeDir(t, map[string]string{FileName(2019): season2019})
	settings := config.DefaultLeagueSettings()
	settings.Name = "Named"
	settings.BaselineSeason = 2015
	budget := 300.0
	settings.Seasons[2019] = league.SeasonOverride{Season: 2019, AuctionBudget: &budget}

	ds, err := LoadDir(dir, 2019, 2019, settings, quiet)
	require.NoError(t, err)
	assert.Equal(t, "Named", ds.League)
	assert.Equal(t, 2015, ds.BaselineSeason)
	assert.Equal(t, 300.0, ds.Configs[2019].AuctionBudget)
	assert.Equal(t, 2, ds.Configs[2019].NumTeams)
}

func TestLoadDirKeeperlessSeason(t *testing.T) {
	dir := writeDir(t, map[string]string{
		FileName(2014): `{"settings": {"num_teams": 12, "num_keepers": 0, "auction_budget": "250"}, "teams": [{"team_key": "a", "manager": "Avery"}]}`,
		FileName(2015): `{"teams": [{"team_key": "a", "manager": "Avery"}, {"team_key": "b", "manager": "Blake"}]}`,
	})
	ds, err := LoadDir(dir, 2014, 2015, nil, quiet)
	require.NoError(t, err)

	assert.Equal(t, 0, ds.Configs[2014].KeepersPerTeam)
	assert.Equal(t, 12, ds.Configs[2014].NumTeams)
	assert.Equal(t, 250.0, ds.Configs[2014].AuctionBudget)
	assert.Equal(t, 2, ds.Configs[2015].KeepersPerTeam)
	assert.Equal(t, 2, ds.Configs[2015].NumTeams)
}

func TestLoadDirMissingColumn(t *testing.T) {
	dir := writeDir(t, map[string]string{
		FileName(2019): `{"standings": [{"team_key": "t.1", "wins": 3}]}`,
	})
	ds, err := LoadDir(dir, 2019, 2019, nil, quiet)
	require.NoError(t, err)

	var sv *league.SchemaViolation
	require.ErrorAs(t, league.Validate(ds), &sv)
	assert.Equal(t, league.TableStandings, sv.Table)
	assert.Equal(t, []string{"final_rank"}, sv.Missing)
}

func TestLoadDirErrors(t *testing.T) {
	_, err := LoadDir(t.TempDir(), 2019, 2020, nil, quiet)
	assert.ErrorContains(t, err, "no season files")

	_, err = LoadDir(t.TempDir(), 2020, 2019, nil, quiet)
	assert.Error(t, err)

	dir := writeDir(t, map[string]string{FileName(2019): `{"teams": [`})
	_, err = LoadDir(dir, 2019, 2019, nil, quiet)
	assert.ErrorContains(t, err, "parsing")
}

func TestExtractValue(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want float64
		ok   bool
	}{
		{"float", 2.5, 2.5, true},
		{"int", 3, 3, true},
		{"string", " 4.25 ", 4.25, true},
		{"json number", json.Number("7"), 7, true},
		{"nested total", map[string]interface{}{"total": "12"}, 12, true},
		{"nested none", map[string]interface{}{"other": 1.0}, 0, false},
		{"bad string", "n/a", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFlagAndTimestamp(t *testing.T) {
	var row struct {
		A Flag      `json:"a"`
		B Flag      `json:"b"`
		C Flag      `json:"c"`
		T Timestamp `json:"t"`
		U Timestamp `json:"u"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": "yes", "b": 0, "c": true, "t": 1568851200, "u": "soon"}`), &row))
	assert.True(t, bool(row.A))
	assert.False(t, bool(row.B))
	assert.True(t, bool(row.C))
	assert.Equal(t, int64(1568851200), row.T.Unix())
	assert.True(t, row.U.IsZero())
}
