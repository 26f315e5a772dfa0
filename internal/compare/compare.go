// Package compare measures how two populations of rows differ across a set
// of numeric metrics. It backs the champion blueprint and every other
// population split in the pipeline.
package compare

import (
	"log/slog"
	"math"
	"sort"

	"github.com/albapepper/keeper-analytics/internal/stats"
	"github.com/albapepper/keeper-analytics/internal/value"
)

// Metric extracts one nullable value from a row.
type Metric[T any] struct {
	Name  string
	Value func(T) *float64
}

// Comparison is one metric compared between group A and group B.
// EffectSize is Cohen's d with pooled std sqrt((varA + varB) / 2).
type Comparison struct {
	Metric     string  `json:"metric"`
	MeanA      float64 `json:"group_a_mean"`
	MeanB      float64 `json:"group_b_mean"`
	Diff       float64 `json:"difference"`
	PctDiff    float64 `json:"pct_difference"`
	EffectSize float64 `json:"effect_size_cohens_d"`
	NA         int     `json:"group_a_n"`
	NB         int     `json:"group_b_n"`
}

// Compare runs every metric over both groups. Null values are skipped; a
// metric with no values in either group is left out. PctDiff is 0 when group
// B's mean is 0, and EffectSize is 0 when the pooled std is 0 or undefined.
// Results are ordered by absolute effect size, largest first.
func Compare[T any](metrics []Metric[T], a, b []T) []Comparison {
	var out []Comparison
	for _, m := range metrics {
		va := collect(a, m.Value)
		vb := collect(b, m.Value)
		if len(va) == 0 || len(vb) == 0 {
			continue
		}
		c := Comparison{Metric: m.Name, NA: len(va), NB: len(vb)}
		c.MeanA, c.MeanB = *stats.Mean(va), *stats.Mean(vb)
		c.Diff = c.MeanA - c.MeanB
		if c.MeanB != 0 {
			c.PctDiff = c.Diff / c.MeanB * 100
		}
		c.EffectSize = cohensD(c.Diff, stats.Variance(va), stats.Variance(vb))
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return math.Abs(out[i].EffectSize) > math.Abs(out[j].EffectSize)
	})
	return out
}

func collect[T any](rows []T, f func(T) *float64) []float64 {
	vals := make([]*float64, len(rows))
	for i, r := range rows {
		vals[i] = f(r)
	}
	return stats.Values(vals)
}

func cohensD(diff float64, varA, varB *float64) float64 {
	if varA == nil || varB == nil {
		return 0
	}
	pooled := math.Sqrt((*varA + *varB) / 2)
	if pooled <= 0 || math.IsNaN(pooled) {
		return 0
	}
	return diff / pooled
}

// TopDifferentiators returns the k comparisons with the largest absolute
// effect size.
func TopDifferentiators(cmp []Comparison, k int) []Comparison {
	sorted := append([]Comparison(nil), cmp...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return math.Abs(sorted[i].EffectSize) > math.Abs(sorted[j].EffectSize)
	})
	if k < len(sorted) {
		sorted = sorted[:k]
	}
	return sorted
}

// Split partitions rows by a predicate.
func Split[T any](rows []T, in func(T) bool) (yes, no []T) {
	for _, r := range rows {
		if in(r) {
			yes = append(yes, r)
		} else {
			no = append(no, r)
		}
	}
	return yes, no
}

// --------------------------------------------------------------------------
// Champion blueprint
// --------------------------------------------------------------------------

// TopK is the number of headline differentiators reported.
const TopK = 3

func f(v float64) *float64 { return &v }

// SeasonMetrics are the manager-season metrics champions are compared on.
var SeasonMetrics = []Metric[value.ManagerSeason]{
	{"total_VAR", func(r value.ManagerSeason) *float64 { return f(r.TotalVAR) }},
	{"VAR_per_dollar", func(r value.ManagerSeason) *float64 { return r.VARPerDollar }},
	{"pct_VAR_from_draft", func(r value.ManagerSeason) *float64 { return f(r.PctVARFromDraft) }},
	{"pct_VAR_from_keeper", func(r value.ManagerSeason) *float64 { return f(r.PctVARFromKeeper) }},
	{"pct_VAR_from_waiver", func(r value.ManagerSeason) *float64 { return f(r.PctVARFromWaiver) }},
	{"pct_VAR_from_trade", func(r value.ManagerSeason) *float64 { return f(r.PctVARFromTrade) }},
	{"draft_VAR", func(r value.ManagerSeason) *float64 { return f(r.DraftVAR) }},
	{"keeper_VAR", func(r value.ManagerSeason) *float64 { return f(r.KeeperVAR) }},
	{"waiver_VAR", func(r value.ManagerSeason) *float64 { return f(r.WaiverVAR) }},
	{"trade_VAR", func(r value.ManagerSeason) *float64 { return f(r.TradeVAR) }},
	{"keeper_spending_pct", func(r value.ManagerSeason) *float64 { return r.KeeperSpendingPct }},
}

// BlueprintRow is one championship season.
type BlueprintRow struct {
	Season            int      `json:"season"`
	Manager           string   `json:"manager"`
	Wins              int      `json:"wins"`
	PointsFor         float64  `json:"points_for"`
	TotalVAR          float64  `json:"total_VAR"`
	VARPerDollar      *float64 `json:"VAR_per_dollar"`
	PctVARFromDraft   float64  `json:"pct_VAR_from_draft"`
	PctVARFromKeeper  float64  `json:"pct_VAR_from_keeper"`
	PctVARFromWaiver  float64  `json:"pct_VAR_from_waiver"`
	PctVARFromTrade   float64  `json:"pct_VAR_from_trade"`
	DraftVAR          float64  `json:"draft_VAR"`
	KeeperVAR         float64  `json:"keeper_VAR"`
	WaiverVAR         float64  `json:"waiver_VAR"`
	TradeVAR          float64  `json:"trade_VAR"`
	KeeperSpendingPct *float64 `json:"keeper_spending_pct"`
	HitRate           *float64 `json:"hit_rate"`
	BustRate          *float64 `json:"bust_rate"`
}

// Blueprint is the champion_blueprint bundle.
type Blueprint struct {
	Rows        []BlueprintRow `json:"blueprint"`
	Comparisons []Comparison   `json:"comparison"`
	Top         []Comparison   `json:"top_differentiators"`
}

// ChampionBlueprint compares champion manager-seasons with everyone else.
// It returns an empty blueprint when no season has a champion.
func ChampionBlueprint(seasons []value.ManagerSeason, logger *slog.Logger) Blueprint {
	champs, field := Split(seasons, func(r value.ManagerSeason) bool { return r.Champion })
	if len(champs) == 0 {
		logger.Warn("No champions found in data")
		return Blueprint{}
	}

	bp := Blueprint{Rows: make([]BlueprintRow, len(champs))}
	for i, c := range champs {
		bp.Rows[i] = BlueprintRow{
			Season:            c.Season,
			Manager:           c.Manager,
			Wins:              c.Wins,
			PointsFor:         c.PointsFor,
			TotalVAR:          c.TotalVAR,
			VARPerDollar:      c.VARPerDollar,
			PctVARFromDraft:   c.PctVARFromDraft,
			PctVARFromKeeper:  c.PctVARFromKeeper,
			PctVARFromWaiver:  c.PctVARFromWaiver,
			PctVARFromTrade:   c.PctVARFromTrade,
			DraftVAR:          c.DraftVAR,
			KeeperVAR:         c.KeeperVAR,
			WaiverVAR:         c.WaiverVAR,
			TradeVAR:          c.TradeVAR,
			KeeperSpendingPct: c.KeeperSpendingPct,
			HitRate:           c.HitRate,
			BustRate:          c.BustRate,
		}
	}
	bp.Comparisons = Compare(SeasonMetrics, champs, field)
	bp.Top = TopDifferentiators(bp.Comparisons, TopK)

	names := make([]string, len(bp.Top))
	for i, c := range bp.Top {
		names[i] = c.Metric
	}
	logger.Info("Built champion blueprint", "champions", len(bp.Rows), "top_differentiators", names)
	return bp
}
