package compare

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type row struct {
	x, y *float64
}

var metrics = []Metric[row]{
	{"x", func(r row) *float64 { return r.x }},
	{"y", func(r row) *float64 { return r.y }},
}

func TestCompare(t *testing.T) {
	a := []row{{stats.Ptr(10), stats.Ptr(1)}, {stats.Ptr(12), nil}}
	b := []row{{stats.Ptr(4), stats.Ptr(1)}, {stats.Ptr(6), stats.Ptr(1)}}

	got := Compare(metrics, a, b)
	require.Len(t, got, 2)

	x := got[0]
	assert.Equal(t, "x", x.Metric)
	assert.Equal(t, 11.0, x.MeanA)
	assert.Equal(t, 5.0, x.MeanB)
	assert.Equal(t, 6.0, x.Diff)
	assert.Equal(t, 120.0, x.PctDiff)
	// Both groups have variance 2, so the pooled std is sqrt(2).
	assert.InDelta(t, 6/math.Sqrt2, x.EffectSize, 1e-12)
	assert.Equal(t, 2, x.NA)

	y := got[1]
	assert.Equal(t, 1, y.NA)
	assert.Zero(t, y.EffectSize)
}

func TestCompareGuards(t *testing.T) {
	a := []row{{stats.Ptr(3), nil}, {stats.Ptr(3), nil}}
	b := []row{{stats.Ptr(0), nil}, {stats.Ptr(0), nil}}
	got := Compare(metrics, a, b)
	require.Len(t, got, 1)
	assert.Zero(t, got[0].PctDiff)
	assert.Zero(t, got[0].EffectSize)

	assert.Empty(t, Compare(metrics, nil, b))
}

func TestTopDifferentiators(t *testing.T) {
	cmp := []Comparison{
		{Metric: "a", EffectSize: 0.2},
		{Metric: "b", EffectSize: -1.5},
		{Metric: "c", EffectSize: 0.9},
		{Metric: "d", EffectSize: 0.1},
	}
	top := TopDifferentiators(cmp, 3)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].Metric)
	assert.Equal(t, "c", top[1].Metric)
	assert.Equal(t, "a", top[2].Metric)
	assert.Equal(t, "a", cmp[0].Metric)

	assert.Len(t, TopDifferentiators(cmp[:2], 3), 2)
}

func TestChampionBlueprint(t *testing.T) {
	seasons := []value.ManagerSeason{
		{Season: 2015, Manager: "Avery", Champion: true, TotalVAR: 200, WaiverVAR: 60, HitRate: stats.Ptr(60)},
		{Season: 2016, Manager: "Blake", Champion: true, TotalVAR: 180, WaiverVAR: 40},
		{Season: 2015, Manager: "Casey", TotalVAR: 100, WaiverVAR: 10},
		{Season: 2016, Manager: "Devon", TotalVAR: 120, WaiverVAR: 20},
	}
	bp := ChampionBlueprint(seasons, quiet)
	require.Len(t, bp.Rows, 2)
	assert.Equal(t, "Avery", bp.Rows[0].Manager)
	assert.Equal(t, 60.0, *bp.Rows[0].HitRate)
	assert.Nil(t, bp.Rows[1].HitRate)

	assert.NotEmpty(t, bp.Comparisons)
	require.Len(t, bp.Top, TopK)
	for i := 1; i < len(bp.Comparisons); i++ {
		assert.GreaterOrEqual(t, math.Abs(bp.Comparisons[i-1].EffectSize), math.Abs(bp.Comparisons[i].EffectSize))
	}
	for _, c := range bp.Comparisons {
		assert.NotEqual(t, "VAR_per_dollar", c.Metric)
	}
}

func TestChampionBlueprintNoChampions(t *testing.T) {
	bp := ChampionBlueprint([]value.ManagerSeason{{Manager: "Avery"}}, quiet)
	assert.Empty(t, bp.Rows)
	assert.Empty(t, bp.Top)
}

func TestSplit(t *testing.T) {
	even, odd := Split([]int{1, 2, 3, 4}, func(n int) bool { return n%2 == 0 })
	assert.Equal(t, []int{2, 4}, even)
	assert.Equal(t, []int{1, 3}, odd)
}
