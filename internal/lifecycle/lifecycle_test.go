package lifecycle

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/replacement"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func at(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, time.UTC)
}

func TestWeekOf(t *testing.T) {
	cal := DefaultCalendar()

	tests := []struct {
		name string
		ts   time.Time
		want int
	}{
		{"zero timestamp", time.Time{}, 0},
		{"preseason", at(2015, time.August, 30), 0},
		{"opening day", at(2015, time.September, 5), 1},
		{"day six", at(2015, time.September, 11), 1},
		{"second week", at(2015, time.September, 12), 2},
		{"capped", at(2016, time.January, 30), 17},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cal.WeekOf(2015, tt.ts))
		})
	}
}

func TestEventsClassifyChannels(t *testing.T) {
	picks := []league.DraftPick{
		{Season: 2015, PlayerID: "p1", TeamID: "t1", Cost: 30},
		{Season: 2015, PlayerID: "p2", TeamID: "t2", Cost: 30, IsKeeper: true, KeeperCost: stats.Ptr(12)},
	}
	prio := 3
	txns := []league.Transaction{
		{Season: 2015, TransactionID: "x1", PlayerID: "p3", Action: league.ActionAdd, ToTeam: "t1", BidAmount: stats.Ptr(7), Seq: 0, Timestamp: at(2015, time.September, 20)},
		{Season: 2015, TransactionID: "x2", PlayerID: "p4", Action: league.ActionAdd, ToTeam: "t2", WaiverPriority: &prio, Seq: 1, Timestamp: at(2015, time.September, 20)},
		{Season: 2015, TransactionID: "x3", PlayerID: "p5", Action: league.ActionAdd, ToTeam: "t2", Seq: 2, Timestamp: at(2015, time.September, 20)},
		{Season: 2015, TransactionID: "x4", PlayerID: "p6", Action: league.ActionDrop, FromTeam: "t2", Seq: 3},
		{Season: 2015, TransactionID: "x5", PlayerID: "p1", Action: league.ActionTrade, FromTeam: "t1", ToTeam: "t2", Seq: 4, Timestamp: at(2015, time.October, 20)},
	}

	events := Events(picks, txns, DefaultCalendar())
	require.Len(t, events, 6)

	assert.Equal(t, TypeDraft, events[0].Type)
	assert.Equal(t, TypeKeeper, events[1].Type)
	assert.Equal(t, 12.0, events[1].Cost)
	assert.Equal(t, TypeWaiver, events[2].Type)
	assert.Equal(t, 7.0, events[2].Cost)
	assert.Equal(t, 3, events[2].Week)
	assert.Equal(t, TypeWaiver, events[3].Type)
	assert.Equal(t, TypeFreeAgent, events[4].Type)
	assert.Equal(t, 0.0, events[4].Cost)
	assert.Equal(t, TypeTrade, events[5].Type)
	assert.Equal(t, 0.0, events[5].Cost)
}

func TestResolveEarliestThenOrder(t *testing.T) {
	events := []Event{
		{Type: TypeTrade, Week: 6, Order: 0},
		{Type: TypeWaiver, Week: 2, Order: 5},
		{Type: TypeFreeAgent, Week: 2, Order: 3},
	}
	e, ok := Resolve(events)
	require.True(t, ok)
	assert.Equal(t, TypeFreeAgent, e.Type)

	_, ok = Resolve(nil)
	assert.False(t, ok)
}

func TestBuildRecords(t *testing.T) {
	picks := []league.DraftPick{
		{Season: 2015, PlayerID: "p1", PlayerName: "One", Position: "RB", TeamID: "t1", Cost: 30},
		{Season: 2016, PlayerID: "p1", PlayerName: "One", Position: "RB", TeamID: "t1", Cost: 30, IsKeeper: true},
	}
	txns := []league.Transaction{
		{Season: 2015, TransactionID: "x5", PlayerID: "p1", Action: league.ActionTrade, FromTeam: "t1", ToTeam: "t2", Seq: 0, Timestamp: at(2015, time.October, 20)},
		{Season: 2015, TransactionID: "x6", PlayerID: "p9", Action: league.ActionAdd, ToTeam: "t2", Seq: 1, Timestamp: at(2015, time.October, 1)},
	}
	values := []replacement.PlayerValue{
		{Season: 2015, PlayerID: "p1", Position: "RB", VAR: stats.Ptr(55), Points: stats.Ptr(200)},
		{Season: 2015, PlayerID: "p9", PlayerName: "Nine", Position: "WR", VAR: stats.Ptr(-3)},
	}
	owners := league.NewOwnerIndex([]league.TeamOwner{
		{Season: 2015, TeamID: "t1", Manager: "Avery"},
		{Season: 2015, TeamID: "t2", Manager: "Blake"},
	})

	recs := Build(Events(picks, txns, DefaultCalendar()), values, picks, owners, quiet)
	require.Len(t, recs, 3)

	one := recs[0]
	assert.Equal(t, "p1", one.PlayerID)
	assert.Equal(t, 2015, one.Season)
	assert.Equal(t, TypeDraft, one.AcquisitionType)
	assert.Equal(t, "Avery", one.Manager)
	assert.Equal(t, 2, one.TeamsPlayedFor)
	assert.Equal(t, []string{"t1", "t2"}, one.Teams)
	assert.True(t, one.BecameKeeper)
	assert.Equal(t, 55.0, *one.VAR)

	nine := recs[1]
	assert.Equal(t, "p9", nine.PlayerID)
	assert.Equal(t, TypeFreeAgent, nine.AcquisitionType)
	assert.Equal(t, "WR", nine.Position)
	assert.Equal(t, "Nine", nine.PlayerName)

	assert.Equal(t, 2016, recs[2].Season)
	assert.Nil(t, recs[2].VAR)
}

func TestClassifyPickup(t *testing.T) {
	tests := []struct {
		name     string
		v        float64
		started  int
		rostered int
		pct      *float64
		want     string
	}{
		{"league winner", 80, 6, 10, stats.Ptr(90), LeagueWinner},
		{"high pct but few starts", 80, 3, 10, stats.Ptr(90), SolidStarter},
		{"negative", -5, 8, 10, stats.Ptr(10), DeadPickup},
		{"never started", 20, 0, 5, nil, DeadPickup},
		{"streamer", 4, 1, 2, nil, Streamer},
		{"solid", 15, 5, 9, stats.Ptr(50), SolidStarter},
		{"fallthrough", 15, 2, 9, nil, DeadPickup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyPickup(tt.v, tt.started, tt.rostered, tt.pct))
		})
	}
}

func TestAnalyzePickupsFromLineups(t *testing.T) {
	records := []Record{
		{Season: 2015, PlayerID: "p9", Position: "WR", TeamID: "t2", Manager: "Blake", AcquisitionType: TypeWaiver, AcquisitionWeek: 3, AcquisitionCost: 10, VAR: stats.Ptr(40)},
		{Season: 2015, PlayerID: "p8", Position: "WR", TeamID: "t2", Manager: "Blake", AcquisitionType: TypeFreeAgent, AcquisitionWeek: 5, VAR: nil},
		{Season: 2015, PlayerID: "p1", Position: "RB", TeamID: "t1", AcquisitionType: TypeDraft},
	}
	var lineups []league.LineupEntry
	for w := 1; w <= 9; w++ {
		lineups = append(lineups, league.LineupEntry{Season: 2015, Week: w, TeamID: "t2", PlayerID: "p9", Started: w%2 == 1})
	}

	pickups, estimated := AnalyzePickups(records, lineups, DefaultCalendar(), quiet)
	assert.False(t, estimated)
	require.Len(t, pickups, 2)

	p9 := pickups[0]
	assert.Equal(t, 7, p9.WeeksRostered)
	assert.Equal(t, 4, p9.WeeksStarted)
	assert.Equal(t, 100.0, *p9.VARPercentile)
	assert.Equal(t, LeagueWinner, p9.Archetype)
	assert.Equal(t, 4.0, *p9.CostEfficiency)

	p8 := pickups[1]
	assert.Nil(t, p8.VAR)
	assert.Nil(t, p8.VARPercentile)
	assert.Nil(t, p8.CostEfficiency)
	assert.Equal(t, UnknownPickup, p8.Archetype)

	summary := ManagerWaiverSummary(pickups)
	require.Len(t, summary, 1)
	assert.Equal(t, 2, summary[0].Pickups)
	assert.Equal(t, 10.0, summary[0].FAABSpent)
	assert.Equal(t, 40.0, summary[0].TotalVAR)
	assert.Equal(t, 1, summary[0].Archetypes[LeagueWinner])
	assert.Equal(t, 1, summary[0].Archetypes[UnknownPickup])
	assert.Equal(t, 4.0, *summary[0].VARPerFAABUnit)
}

func TestAnalyzePickupsWithoutOutputIsUnknown(t *testing.T) {
	records := []Record{
		{Season: 2015, PlayerID: "p7", Position: "RB", TeamID: "t1", Manager: "Avery", AcquisitionType: TypeWaiver, AcquisitionWeek: 2, AcquisitionCost: 6},
	}
	pickups, estimated := AnalyzePickups(records, nil, DefaultCalendar(), quiet)
	assert.True(t, estimated)
	require.Len(t, pickups, 1)

	p := pickups[0]
	assert.Nil(t, p.VAR)
	assert.Nil(t, p.VARPercentile)
	assert.Nil(t, p.CostEfficiency)
	assert.Equal(t, UnknownPickup, p.Archetype)

	summary := ManagerWaiverSummary(pickups)
	require.Len(t, summary, 1)
	assert.Equal(t, 6.0, summary[0].FAABSpent)
	assert.Equal(t, 0.0, summary[0].TotalVAR)
	assert.Empty(t, summary[0].BestPickup)
	assert.Nil(t, summary[0].BestPickupVAR)
}

func TestAnalyzePickupsEstimatesWithoutLineups(t *testing.T) {
	records := []Record{
		{Season: 2015, PlayerID: "p9", Position: "WR", TeamID: "t2", AcquisitionType: TypeWaiver, AcquisitionWeek: 15, VAR: stats.Ptr(5)},
	}
	pickups, estimated := AnalyzePickups(records, nil, DefaultCalendar(), quiet)
	assert.True(t, estimated)
	require.Len(t, pickups, 1)
	assert.Equal(t, 3, pickups[0].WeeksRostered)
	assert.Equal(t, Streamer, pickups[0].Archetype)
}
