package keepers

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/league"
	"github.com/albapepper/keeper-analytics/internal/pricing"
	"github.com/albapepper/keeper-analytics/internal/replacement"
	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/tiers"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func keeper(id, pos string, cost float64, keeperCost *float64, normalized float64, v *float64) tiers.TieredPick {
	return tiers.TieredPick{ValuedPick: replacement.ValuedPick{
		NormalizedPick: pricing.NormalizedPick{
			DraftPick:       league.DraftPick{Season: 2015, PlayerID: id, Position: pos, Cost: cost, IsKeeper: true, KeeperCost: keeperCost},
			NormalizedPrice: normalized,
		},
		VAR: v,
	}}
}

func TestSurplusRoundTrip(t *testing.T) {
	picks := []tiers.TieredPick{
		keeper("a", "RB", 10, nil, 31.7, stats.Ptr(80)),
		keeper("b", "RB", 25, stats.Ptr(15), 18.2, stats.Ptr(20)),
		keeper("c", "WR", 5, nil, 4.1, stats.Ptr(-10)),
	}

	rep := Analyze(picks, quiet)
	require.Len(t, rep.Rows, 3)
	for i, r := range rep.Rows {
		assert.InDelta(t, picks[i].NormalizedPrice-picks[i].LockedCost(), r.Surplus, 1e-12)
		assert.Equal(t, r.MarketPrice-r.KeeperCost, r.Surplus)
	}
	assert.Equal(t, 15.0, rep.Rows[1].KeeperCost)
}

func TestPositionSummaryAndCorrelation(t *testing.T) {
	picks := []tiers.TieredPick{
		keeper("a", "RB", 10, nil, 30, stats.Ptr(80)),
		keeper("b", "RB", 20, nil, 20, stats.Ptr(20)),
		keeper("c", "WR", 5, nil, 4, stats.Ptr(-10)),
		keeper("d", "WR", 5, nil, 4, nil),
	}
	picks = append(picks, tiers.TieredPick{})

	rep := Analyze(picks, quiet)
	assert.Len(t, rep.Rows, 4)
	assert.Equal(t, 3, rep.Count)

	require.Len(t, rep.ByPosition, 2)
	rb := rep.ByPosition[0]
	assert.Equal(t, "RB", rb.Position)
	assert.Equal(t, 2, rb.Count)
	assert.Equal(t, 10.0, *rb.AvgSurplus)
	assert.Equal(t, 50.0, *rb.AvgVAR)
	assert.Equal(t, 15.0, *rb.AvgKeeperCost)

	wr := rep.ByPosition[1]
	assert.Nil(t, wr.StdSurplus)

	require.NotNil(t, rep.Correlation)
	assert.Greater(t, *rep.Correlation, 0.9)
}

func TestNoKeepers(t *testing.T) {
	rep := Analyze([]tiers.TieredPick{{}}, quiet)
	assert.Empty(t, rep.Rows)
	assert.Nil(t, rep.Correlation)
}
