package consistency

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// history builds one manager-season per wins entry starting in 2010. The
// champion seasons are given by index.
func history(manager string, wins []int, champ ...int) []value.ManagerSeason {
	out := make([]value.ManagerSeason, len(wins))
	for i, w := range wins {
		out[i] = value.ManagerSeason{
			Season:   2010 + i,
			Manager:  manager,
			Wins:     w,
			TotalVAR: float64(w * 10),
		}
	}
	for _, i := range champ {
		out[i].Champion = true
	}
	return out
}

func fourManagers() []value.ManagerSeason {
	var rows []value.ManagerSeason
	rows = append(rows, history("Avery", []int{8, 8, 8, 8})...)
	rows = append(rows, history("Blake", []int{2, 14, 3, 13}, 1)...)
	rows = append(rows, history("Casey", []int{5, 6, 5, 6}, 2)...)
	rows = append(rows, history("Devon", []int{4, 4, 5, 5})...)
	return rows
}

func byName[T any](rows []T, name func(T) string) map[string]T {
	out := make(map[string]T, len(rows))
	for _, r := range rows {
		out[name(r)] = r
	}
	return out
}

func TestDistributions(t *testing.T) {
	dists := Distributions(fourManagers(), quiet)
	require.Len(t, dists, 4)
	d := byName(dists, func(d Distribution) string { return d.Manager })

	a := d["Avery"]
	assert.Equal(t, 4, a.Seasons)
	assert.Equal(t, 8.0, *a.MeanWins)
	assert.Equal(t, 0.0, *a.StdWins)
	assert.Equal(t, 0.0, *a.CVWins)
	assert.Equal(t, 0, a.Championships)

	b := d["Blake"]
	assert.Equal(t, 8.0, *b.MedianWins)
	assert.Equal(t, 2.0, *b.MinWins)
	assert.Equal(t, 14.0, *b.MaxWins)
	assert.Equal(t, 0.25, b.ChampionshipRate)
	assert.Nil(t, b.MeanVARPerDollar)
}

func TestDistributionsEmpty(t *testing.T) {
	assert.Nil(t, Distributions(nil, quiet))
}

func TestScores(t *testing.T) {
	scores := Scores(Distributions(fourManagers(), quiet))
	require.Len(t, scores, 4)
	assert.Equal(t, "Avery", scores[0].Manager)
	assert.Equal(t, 100.0, *scores[0].ScoreWins)
	assert.Equal(t, "Blake", scores[3].Manager)
	assert.Equal(t, 0.0, *scores[3].ScoreWins)
	for _, s := range scores {
		assert.GreaterOrEqual(t, *s.ScoreWins, 0.0)
		assert.LessOrEqual(t, *s.ScoreWins, 100.0)
	}
}

func TestRawScoreSingleSeasonUsesMedian(t *testing.T) {
	assert.Equal(t, 9.0, *RawScore(1, stats.Ptr(9), nil))
	assert.Equal(t, 3.0, *RawScore(3, stats.Ptr(9), stats.Ptr(2)))
	assert.Nil(t, RawScore(0, nil, nil))
}

func TestScoresAllTie(t *testing.T) {
	rows := append(history("Avery", []int{7}), history("Blake", []int{7})...)
	for _, s := range Scores(Distributions(rows, quiet)) {
		assert.Equal(t, 50.0, *s.ScoreWins)
	}
}

func TestArchetypes(t *testing.T) {
	arch, bench := Archetypes(Distributions(fourManagers(), quiet), quiet)
	require.Len(t, arch, 4)
	assert.InDelta(t, 6.75, *bench.MedianWins, 1e-9)
	assert.InDelta(t, 7.5, *bench.P60Wins, 1e-9)

	got := byName(arch, func(a Archetype) string { return a.Manager })
	assert.Equal(t, ConsistentContender, got["Avery"].Label)
	// Top-quartile spread with a title and a median above the league's.
	assert.Equal(t, BoomBust, got["Blake"].Label)
	assert.Equal(t, Lottery, got["Casey"].Label)
	assert.Equal(t, Unclassified, got["Devon"].Label)
}

func TestClassifyOrder(t *testing.T) {
	b := Benchmarks{
		MedianWins:    stats.Ptr(7),
		MedianStdWins: stats.Ptr(1),
		P75StdWins:    stats.Ptr(3),
		P60Wins:       stats.Ptr(7.5),
	}
	tests := []struct {
		name string
		d    Distribution
		want string
	}{
		{"lottery overrides boom", Distribution{Seasons: 5, MedianWins: stats.Ptr(5), StdWins: stats.Ptr(4), Championships: 1}, Lottery},
		{"high spread is boom bust", Distribution{Seasons: 5, MedianWins: stats.Ptr(9), StdWins: stats.Ptr(3), Championships: 0}, BoomBust},
		{"titled boom bust is not lottery", Distribution{Seasons: 5, MedianWins: stats.Ptr(7), StdWins: stats.Ptr(3.5), Championships: 1}, BoomBust},
		{"steady but unlucky", Distribution{Seasons: 5, MedianWins: stats.Ptr(8), StdWins: stats.Ptr(2)}, SteadyButUnlucky},
		{"steady needs no title", Distribution{Seasons: 5, MedianWins: stats.Ptr(8), StdWins: stats.Ptr(2), Championships: 1}, Unclassified},
		{"low sample", Distribution{Seasons: 2, MedianWins: stats.Ptr(6), StdWins: stats.Ptr(2)}, LowSample},
		{"single season has no spread", Distribution{Seasons: 1, MedianWins: stats.Ptr(6)}, LowSample},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.d, b, Rules))
		})
	}
}

func TestVolatility(t *testing.T) {
	rows := []value.ManagerSeason{
		{Season: 2015, Manager: "a", Wins: 10, TotalVAR: 100},
		{Season: 2015, Manager: "b", Wins: 7, TotalVAR: 50},
		{Season: 2015, Manager: "c", Wins: 4, TotalVAR: 0},
		{Season: 2014, Manager: "a", Wins: 6, TotalVAR: -10},
	}
	vol := Volatility(rows)
	require.Len(t, vol, 2)
	assert.Equal(t, 2014, vol[0].Season)
	assert.Nil(t, vol[0].StdWins)
	assert.Nil(t, vol[0].GiniVAR)

	v := vol[1]
	assert.Equal(t, 3, v.Managers)
	assert.Equal(t, 6.0, *v.RangeWins)
	assert.InDelta(t, 50.0, *v.IQRTotalVAR, 1e-9)
	assert.InDelta(t, 4.0/9.0, *v.GiniVAR, 1e-9)
	assert.InDelta(t, 0.0, *v.WinsSkew, 1e-9)
}

func TestSignalStrength(t *testing.T) {
	rows := history("Avery", []int{5, 7, 9})
	rows = append(rows, history("Blake", []int{6})...)

	signals, lg := SignalStrength(rows)
	require.Len(t, signals, 1)
	assert.Equal(t, "Avery", signals[0].Manager)
	assert.InDelta(t, 1.0, *signals[0].TotalVARWins, 1e-9)
	assert.Nil(t, signals[0].DraftVARWins)

	assert.Equal(t, 4, lg.ManagerSeasons)
	assert.InDelta(t, 1.0, *lg.TotalVARWins, 1e-9)
	assert.Nil(t, lg.VARPerDollarWins)
}

func TestRollingMeans(t *testing.T) {
	assert.Equal(t, []float64{2, 3}, RollingMeans([]float64{1, 2, 3, 4}, 3))
	assert.Nil(t, RollingMeans([]float64{1, 2}, 3))
}

func TestRolling(t *testing.T) {
	rows := history("Avery", []int{6, 8, 10, 12})
	rows = append(rows, history("Blake", []int{6, 8, 10})...)

	got := Rolling(rows, DefaultWindow, DefaultMinSeasons)
	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, "Avery", r.Manager)
	assert.Equal(t, 9.0, *r.MeanRollWins)
	assert.InDelta(t, 1.41421356, *r.StdRollWins, 1e-6)
	assert.Equal(t, []int{2012, 2013}, r.WindowEndYears)
	assert.Equal(t, 50.0, *r.ScoreWins)
}
