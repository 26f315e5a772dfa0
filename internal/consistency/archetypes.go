package consistency

import (
	"log/slog"

	"github.com/albapepper/keeper-analytics/internal/stats"
)

// Manager archetypes.
const (
	ConsistentContender = "CONSISTENT_CONTENDER"
	BoomBust            = "BOOM_BUST"
	Lottery             = "LOTTERY"
	SteadyButUnlucky    = "STEADY_BUT_UNLUCKY"
	LowSample           = "LOW_SAMPLE"
	Unclassified        = "UNCLASSIFIED"
)

// Benchmarks are league-wide reference points recomputed from the manager
// population on every run.
type Benchmarks struct {
	MedianWins    *float64 `json:"league_median_wins"`
	MedianStdWins *float64 `json:"league_median_std_wins"`
	P75StdWins    *float64 `json:"league_75th_std_wins"`
	P60Wins       *float64 `json:"league_60th_median_wins"`
}

// NewBenchmarks derives the benchmarks from per-manager distributions.
// Managers without a wins spread are left out of the std benchmarks.
func NewBenchmarks(dists []Distribution) Benchmarks {
	medians := make([]*float64, len(dists))
	stds := make([]*float64, len(dists))
	for i, d := range dists {
		medians[i] = d.MedianWins
		stds[i] = d.StdWins
	}
	mw := stats.Values(medians)
	sw := stats.Values(stds)
	return Benchmarks{
		MedianWins:    stats.Median(mw),
		MedianStdWins: stats.Median(sw),
		P75StdWins:    stats.Quantile(sw, 0.75),
		P60Wins:       stats.Quantile(mw, 0.60),
	}
}

// Rule assigns Label when Match holds. Match sees the label assigned so far.
type Rule struct {
	Label string
	Match func(d Distribution, b Benchmarks, current string) bool
}

func ge(a, b *float64) bool { return a != nil && b != nil && *a >= *b }
func le(a, b *float64) bool { return a != nil && b != nil && *a <= *b }
func lt(a, b *float64) bool { return a != nil && b != nil && *a < *b }

// Rules is the archetype rule list. Order matters: every matching rule
// overwrites the label set by earlier ones, so later rules win.
var Rules = []Rule{
	{ConsistentContender, func(d Distribution, b Benchmarks, _ string) bool {
		return ge(d.MedianWins, b.MedianWins) && le(d.StdWins, b.MedianStdWins)
	}},
	{BoomBust, func(d Distribution, b Benchmarks, _ string) bool {
		return ge(d.StdWins, b.P75StdWins)
	}},
	{Lottery, func(d Distribution, b Benchmarks, _ string) bool {
		return d.Championships >= 1 && lt(d.MedianWins, b.MedianWins)
	}},
	{SteadyButUnlucky, func(d Distribution, b Benchmarks, current string) bool {
		return current == Unclassified && ge(d.MedianWins, b.P60Wins) && d.Championships == 0
	}},
	{LowSample, func(d Distribution, _ Benchmarks, current string) bool {
		return current == Unclassified && d.Seasons < 3
	}},
}

// Classify runs rules over one manager.
func Classify(d Distribution, b Benchmarks, rules []Rule) string {
	label := Unclassified
	for _, r := range rules {
		if r.Match(d, b, label) {
			label = r.Label
		}
	}
	return label
}

// Archetype is one row of manager_archetypes.
type Archetype struct {
	Manager          string   `json:"manager"`
	Seasons          int      `json:"seasons_played"`
	Label            string   `json:"archetype"`
	MedianWins       *float64 `json:"median_wins"`
	StdWins          *float64 `json:"std_wins"`
	Championships    int      `json:"championships"`
	ChampionshipRate float64  `json:"championship_rate"`
}

// Archetypes labels every manager against this population's benchmarks.
func Archetypes(dists []Distribution, logger *slog.Logger) ([]Archetype, Benchmarks) {
	if len(dists) == 0 {
		return nil, Benchmarks{}
	}
	b := NewBenchmarks(dists)
	counts := make(map[string]int)
	out := make([]Archetype, len(dists))
	for i, d := range dists {
		label := Classify(d, b, Rules)
		counts[label]++
		out[i] = Archetype{
			Manager:          d.Manager,
			Seasons:          d.Seasons,
			Label:            label,
			MedianWins:       d.MedianWins,
			StdWins:          d.StdWins,
			Championships:    d.Championships,
			ChampionshipRate: d.ChampionshipRate,
		}
	}
	logger.Info("Classified manager archetypes", "managers", len(out), "distribution", counts)
	return out, b
}
