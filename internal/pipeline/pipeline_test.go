package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/consistency"
	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/lineup"
	"github.com/albapepper/keeper-analytics/internal/luck"
	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/trades"
	"github.com/albapepper/keeper-analytics/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

var managers = []string{"Avery", "Blake", "Casey", "Devon"}

// sampleLeague builds a four-team league over two seasons. Team T1 wins
// 2019 and T2 wins 2020; T1 and T2 swap a running back midway through 2020.
func sampleLeague() *league.Dataset {
	ds := &league.Dataset{
		League:         "sample",
		BaselineSeason: 2019,
		Configs:        make(map[int]league.SeasonConfig),
	}
	for _, season := range []int{2019, 2020} {
		cfg := league.DefaultSeasonConfig(season)
		cfg.NumTeams = 4
		ds.Configs[season] = cfg

		for i, m := range managers {
			team := fmt.Sprintf("T%d", i+1)
			ds.Owners = append(ds.Owners, league.TeamOwner{Season: season, TeamID: team, Manager: m})

			qb := fmt.Sprintf("qb%d", i+1)
			rb := fmt.Sprintf("rb%d", i+1)
			ds.Picks = append(ds.Picks,
				league.DraftPick{Season: season, PlayerID: qb, PlayerName: qb, Position: league.QB, TeamID: team, Cost: float64(40 - 5*i)},
				league.DraftPick{Season: season, PlayerID: rb, PlayerName: rb, Position: league.RB, TeamID: team, Cost: float64(50 - 10*i), IsKeeper: season == 2020 && i == 0, KeeperCost: keeperCost(season, i)},
			)
			ds.Results = append(ds.Results,
				league.PlayerResult{Season: season, PlayerID: qb, Position: league.QB, Points: stats.Ptr(float64(300 - 20*i))},
				league.PlayerResult{Season: season, PlayerID: rb, Position: league.RB, Points: stats.Ptr(float64(250 - 30*i))},
			)

			rank := i + 1
			if season == 2020 {
				rank = []int{2, 1, 4, 3}[i]
			}
			ds.Standings = append(ds.Standings, league.Standing{
				Season: season, TeamID: team, FinalRank: rank,
				Wins: 10 - 2*rank, Losses: 3 + 2*rank,
				PointsFor: float64(1500 - 50*rank), PointsAgainst: float64(1300 + 20*i),
			})
		}
		ds.Results = append(ds.Results,
			league.PlayerResult{Season: season, PlayerID: "wr9", Position: league.WR, Points: stats.Ptr(120)},
			league.PlayerResult{Season: season, PlayerID: "te9", Position: league.TE, Points: stats.Ptr(60)},
		)
	}

	tradeAt := time.Date(2020, time.October, 20, 12, 0, 0, 0, time.UTC)
	ds.Transactions = []league.Transaction{
		{Season: 2020, TransactionID: "w1", Type: "waiver", Timestamp: time.Date(2020, time.September, 15, 0, 0, 0, 0, time.UTC),
			PlayerID: "wr9", Action: league.ActionAdd, ToTeam: "T3", BidAmount: stats.Ptr(12), Seq: 0},
		{Season: 2020, TransactionID: "t1", Type: "trade", Timestamp: tradeAt,
			PlayerID: "rb1", Action: league.ActionTrade, FromTeam: "T1", ToTeam: "T2", Seq: 1},
		{Season: 2020, TransactionID: "t1", Type: "trade", Timestamp: tradeAt,
			PlayerID: "rb2", Action: league.ActionTrade, FromTeam: "T2", ToTeam: "T1", Seq: 2},
	}
	return ds
}

func TestRunKeeperlessBaseline(t *testing.T) {
	ds := sampleLeague()
	cfg := ds.Configs[2019]
	cfg.KeepersPerTeam = 0
	ds.Configs[2019] = cfg

	res, err := Run(ds, DefaultOptions(), quiet)
	require.NoError(t, err)
	require.Len(t, res.Outputs.Economics, 2)

	base, next := res.Outputs.Economics[0], res.Outputs.Economics[1]
	// 4 teams with 7 starters and 6 bench spots each.
	assert.Equal(t, 52, base.RemainingSpots)
	assert.Equal(t, 1.0, base.InflationFactor)
	assert.Equal(t, 44, next.RemainingSpots)
	assert.InDelta(t, (750.0/44)/(800.0/52), next.InflationFactor, 1e-9)
}

func keeperCost(season, i int) *float64 {
	if season == 2020 && i == 0 {
		return stats.Ptr(15)
	}
	return nil
}

func TestRun(t *testing.T) {
	res, err := Run(sampleLeague(), DefaultOptions(), quiet)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Equal(t, []int{2019, 2020}, res.Seasons)

	o := res.Outputs
	assert.Len(t, o.NormalizedDraft, 16)
	assert.Len(t, o.Economics, 2)
	assert.Len(t, o.ManagerSeasons, 8)
	assert.Len(t, o.Distributions, 4)
	assert.Len(t, o.Scores, 4)
	assert.Len(t, o.Archetypes.Rows, 4)
	assert.Len(t, o.Expected, 8)
	assert.Len(t, o.Luck, 4)
	assert.Len(t, o.Blueprint.Rows, 2)
	assert.Len(t, o.ChampionshipLuck, 2)
	require.Len(t, o.Trades.Impacts, 1)
	assert.Equal(t, 1, o.Keepers.Count)

	// The baseline season normalizes against itself.
	for _, e := range o.Economics {
		if e.Season == 2019 {
			assert.Equal(t, 1.0, e.InflationFactor)
		}
	}

	// Shares sum to 100 or are all zero.
	for _, ms := range o.ManagerSeasons {
		sum := ms.PctVARFromDraft + ms.PctVARFromKeeper + ms.PctVARFromWaiver + ms.PctVARFromTrade
		if ms.TotalVAR == 0 {
			assert.Zero(t, sum)
		} else {
			assert.InDelta(t, 100.0, sum, 1e-6)
		}
	}

	assert.Contains(t, res.Warnings, trades.Notice)
	assert.Contains(t, res.Warnings, luck.ApproximationNotice)
}

func TestRunSchemaViolation(t *testing.T) {
	ds := sampleLeague()
	ds.Columns = map[string][]string{league.TableDraftPicks: {"season", "player_id"}}

	res, err := Run(ds, DefaultOptions(), quiet)
	assert.Nil(t, res)
	var sv *league.SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, league.TableDraftPicks, sv.Table)
}

func TestRunEmptyOptionalInputs(t *testing.T) {
	ds := sampleLeague()
	ds.Transactions = nil
	ds.Standings = nil

	res, err := Run(ds, DefaultOptions(), quiet)
	require.NoError(t, err)
	assert.True(t, res.OK(), "errors: %v", res.Errors)
	assert.Empty(t, res.Outputs.Trades.Impacts)
	assert.Empty(t, res.Outputs.Expected)
	assert.Len(t, res.Outputs.ManagerSeasons, 8)
	assert.Contains(t, res.Warnings, "missing data: standings is empty")
	assert.Contains(t, res.Warnings, "missing data: transactions is empty")
}

func TestRunStageRecoversPanic(t *testing.T) {
	var res Result
	ran := false
	runStage(&res, "boom", quiet, func() { panic("kaboom") })
	runStage(&res, "after", quiet, func() { ran = true })

	assert.True(t, ran)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "stage boom: kaboom", res.Errors[0])
	assert.False(t, res.OK())
}

func TestRunWarnsOnMultiTeamTrade(t *testing.T) {
	ds := sampleLeague()
	at := time.Date(2020, time.November, 3, 12, 0, 0, 0, time.UTC)
	for i, mv := range [][3]string{{"qb1", "T1", "T2"}, {"qb2", "T2", "T3"}, {"qb3", "T3", "T1"}} {
		ds.Transactions = append(ds.Transactions, league.Transaction{
			Season: 2020, TransactionID: "t3", Type: "trade", Timestamp: at,
			PlayerID: mv[0], Action: league.ActionTrade, FromTeam: mv[1], ToTeam: mv[2], Seq: 3 + i,
		})
	}

	res, err := Run(ds, DefaultOptions(), quiet)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Outputs.Trades.SkippedSides)
	assert.Contains(t, res.Warnings, "1 trade sides beyond the first two teams were not scored")
}

func TestRunLogsNumberedStages(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	_, err := Run(sampleLeague(), DefaultOptions(), logger)
	require.NoError(t, err)

	out := buf.String()
	last := -1
	for i, name := range Stages {
		line := fmt.Sprintf("Stage %d/%d: %s", i+1, len(Stages), name)
		at := strings.Index(out, line)
		require.GreaterOrEqual(t, at, 0, line)
		assert.Greater(t, at, last, "%s logged out of order", name)
		last = at
	}
	assert.Equal(t, "Stage: extra", stageLabel("extra"))
}

func TestTableNames(t *testing.T) {
	names := TableNames()
	assert.Len(t, names, 29)
	assert.True(t, IsTable(TableChampionBlueprint))
	assert.False(t, IsTable("nope"))

	seen := make(map[string]bool)
	for _, n := range names {
		assert.False(t, seen[n], "duplicate table %s", n)
		seen[n] = true
	}
}

func TestConsistentVsVolatile(t *testing.T) {
	seasons := []value.ManagerSeason{
		{Season: 2019, Manager: "Avery", Wins: 9},
		{Season: 2020, Manager: "Avery", Wins: 8},
		{Season: 2019, Manager: "Blake", Wins: 3},
		{Season: 2020, Manager: "Blake", Wins: 12},
	}
	scores := []consistency.Score{
		{Manager: "Avery", ScoreWins: stats.Ptr(100)},
		{Manager: "Blake", ScoreWins: stats.Ptr(0)},
	}
	cmp := ConsistentVsVolatile(seasons, scores)
	require.NotEmpty(t, cmp)

	var wins bool
	for _, c := range cmp {
		if c.Metric == "wins" {
			wins = true
			assert.Equal(t, 8.5, c.MeanA)
			assert.Equal(t, 7.5, c.MeanB)
		}
	}
	assert.True(t, wins)
	assert.Nil(t, ConsistentVsVolatile(seasons, nil))
}

func TestEfficientVsInefficient(t *testing.T) {
	seasons := []value.ManagerSeason{
		{Season: 2019, Manager: "Avery", PointsFor: 1500},
		{Season: 2019, Manager: "Blake", PointsFor: 1300},
		{Season: 2019, Manager: "Casey", PointsFor: 1200},
	}
	lineups := []lineup.SeasonStats{
		{Season: 2019, Manager: "Avery", AvgEfficiency: stats.Ptr(0.95)},
		{Season: 2019, Manager: "Blake", AvgEfficiency: stats.Ptr(0.85)},
	}
	cmp := EfficientVsInefficient(seasons, lineups)
	for _, c := range cmp {
		if c.Metric == "points_for" {
			assert.Equal(t, 1500.0, c.MeanA)
			assert.Equal(t, 1300.0, c.MeanB)
			assert.Equal(t, 1, c.NA)
		}
	}
	assert.Nil(t, EfficientVsInefficient(seasons, nil))
}

func TestRunBatch(t *testing.T) {
	bad := sampleLeague()
	bad.League = "bad"
	bad.BaselineSeason = 0

	got := RunBatch(context.Background(), []*league.Dataset{sampleLeague(), bad, nil}, DefaultOptions(), 2, quiet)
	require.Len(t, got.Items, 3)
	assert.Equal(t, 1, got.Succeeded)
	assert.Equal(t, 2, got.Failed)
	assert.Equal(t, "sample", got.Items[0].League)
	assert.NotNil(t, got.Items[0].Result)
	assert.Equal(t, "bad", got.Items[1].League)
	assert.Error(t, got.Items[1].Err)
	assert.Equal(t, "#2", got.Items[2].League)
}

func TestRunBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got := RunBatch(ctx, []*league.Dataset{sampleLeague()}, DefaultOptions(), 4, quiet)
	assert.Equal(t, 1, got.Failed)
	assert.ErrorIs(t, got.Items[0].Err, context.Canceled)
}
