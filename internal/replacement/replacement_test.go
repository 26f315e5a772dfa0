package replacement

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/pricing"
	"github.com/albapepper/keeper-analytics/internal/stats"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func smallLeague(season int) map[int]league.SeasonConfig {
	return map[int]league.SeasonConfig{season: {
		Season:        season,
		NumTeams:      2,
		AuctionBudget: 200,
		StartingSlots: map[string]int{"QB": 1, "RB": 2, "WR": 2, "TE": 1, "FLEX": 1},
		BenchSlots:    6,
	}}
}

// results returns n players at pos scoring 100, 90, 80, ...
func results(season int, pos string, n int) []league.PlayerResult {
	out := make([]league.PlayerResult, n)
	for i := range out {
		out[i] = league.PlayerResult{
			Season:   season,
			PlayerID: fmt.Sprintf("%s%d", pos, i+1),
			Position: pos,
			Points:   stats.Ptr(float64(100 - 10*i)),
		}
	}
	return out
}

func find(bs []Baseline, pos string) Baseline {
	for _, b := range bs {
		if b.Position == pos {
			return b
		}
	}
	return Baseline{}
}

func TestBaselineAtReplacementRank(t *testing.T) {
	var rs []league.PlayerResult
	rs = append(rs, results(2014, "QB", 5)...)
	rs = append(rs, results(2014, "RB", 6)...)

	bs := Baselines(rs, smallLeague(2014), quiet)

	qb := find(bs, "QB")
	assert.Equal(t, 2, qb.ReplacementRank)
	assert.Equal(t, 90.0, qb.ReplacementPoints)
	assert.False(t, qb.FellBack)

	rb := find(bs, "RB")
	assert.Equal(t, 4, rb.ReplacementRank)
	assert.Equal(t, 70.0, rb.ReplacementPoints)
}

func TestBaselineFallsBackToMinimum(t *testing.T) {
	rs := results(2014, "TE", 1)
	rs = append(rs, league.PlayerResult{Season: 2014, PlayerID: "te-null", Position: "TE"})

	bs := Baselines(rs, map[int]league.SeasonConfig{2014: league.DefaultSeasonConfig(2014)}, quiet)
	te := find(bs, "TE")
	assert.True(t, te.FellBack)
	assert.Equal(t, 100.0, te.ReplacementPoints)
	assert.Equal(t, 1, te.PlayersRanked)
}

func TestFlexBaselineIsMaxOfEligible(t *testing.T) {
	var rs []league.PlayerResult
	rs = append(rs, results(2014, "RB", 6)...) // rank 4 -> 70
	rs = append(rs, results(2014, "WR", 6)...) // rank 4 -> 70
	te := results(2014, "TE", 4)               // rank 2 -> 90
	rs = append(rs, te...)

	bs := Baselines(rs, smallLeague(2014), quiet)
	assert.Equal(t, 90.0, find(bs, "FLEX").ReplacementPoints)
}

func TestReplacementPlayerHasZeroVAR(t *testing.T) {
	rs := results(2014, "QB", 5)
	bs := Baselines(rs, smallLeague(2014), quiet)

	picks := []pricing.NormalizedPick{{
		DraftPick:       league.DraftPick{Season: 2014, PlayerID: "QB2", Position: "QB", Cost: 40},
		NormalizedPrice: 40,
	}}
	out := Apply(picks, rs, bs)
	require.Len(t, out, 1)
	require.NotNil(t, out[0].VAR)
	assert.Equal(t, 0.0, *out[0].VAR)
	require.NotNil(t, out[0].VARPerDollar)
	assert.Equal(t, 0.0, *out[0].VARPerDollar)
	assert.Nil(t, out[0].DollarPerVAR)
}

func TestNullPointsStayNull(t *testing.T) {
	rs := results(2014, "QB", 3)
	rs = append(rs, league.PlayerResult{Season: 2014, PlayerID: "ghost", Position: "QB"})
	bs := Baselines(rs, smallLeague(2014), quiet)

	picks := []pricing.NormalizedPick{
		{DraftPick: league.DraftPick{Season: 2014, PlayerID: "ghost", Position: "QB", Cost: 5}, NormalizedPrice: 5},
		{DraftPick: league.DraftPick{Season: 2014, PlayerID: "QB1", Position: "QB"}, NormalizedPrice: 0},
	}
	out := Apply(picks, rs, bs)
	assert.Nil(t, out[0].VAR)
	assert.Nil(t, out[0].VARPerDollar)

	require.NotNil(t, out[1].VAR)
	assert.Equal(t, 10.0, *out[1].VAR)
	assert.Nil(t, out[1].VARPerDollar)
}

func TestPlayerValuesCoverUndrafted(t *testing.T) {
	rs := results(2014, "WR", 6)
	bs := Baselines(rs, smallLeague(2014), quiet)
	vals := ValueIndex(PlayerValues(rs, bs))

	v := vals[PlayerKey{2014, "WR6"}]
	require.NotNil(t, v.VAR)
	assert.Equal(t, -20.0, *v.VAR)
}
