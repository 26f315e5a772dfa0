// Package stats provides the small set of descriptive statistics the
// analysis stages share. Every function is null-aware: inputs may carry nil
// observations that are skipped, and results that are undefined for the
// sample (too few points, zero variance, zero denominator) come back as nil
// rather than NaN or infinity.
package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// Ptr returns a pointer to v.
func Ptr(v float64) *float64 { return &v }

// IntPtr returns a pointer to v.
func IntPtr(v int) *int { return &v }

// Finite returns v as a pointer, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Ratio divides num by den, returning nil when den is zero.
func Ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	return Finite(num / den)
}

// RatioPtr is Ratio over nullable operands.
func RatioPtr(num, den *float64) *float64 {
	if num == nil || den == nil {
		return nil
	}
	return Ratio(*num, *den)
}

// Deref returns *p, or def when p is nil.
func Deref(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

// Values drops nil entries.
func Values(xs []*float64) []float64 {
	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if x != nil && !math.IsNaN(*x) {
			out = append(out, *x)
		}
	}
	return out
}

// Sum adds xs.
func Sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}

// Mean returns the arithmetic mean, nil for an empty sample.
func Mean(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	return Finite(stat.Mean(xs, nil))
}

// Variance returns the sample variance (n-1 denominator), nil for n < 2.
func Variance(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	return Finite(stat.Variance(xs, nil))
}

// StdDev returns the sample standard deviation, nil for n < 2.
func StdDev(xs []float64) *float64 {
	if len(xs) < 2 {
		return nil
	}
	return Finite(stat.StdDev(xs, nil))
}

// Median returns the 50th percentile, nil for an empty sample.
func Median(xs []float64) *float64 {
	return Quantile(xs, 0.5)
}

// Quantile returns the q-th quantile using linear interpolation between the
// closest ranks (h = (n-1)q). xs need not be sorted.
func Quantile(xs []float64, q float64) *float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	if q <= 0 {
		return Ptr(sorted[0])
	}
	if q >= 1 {
		return Ptr(sorted[n-1])
	}
	h := float64(n-1) * q
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	frac := h - float64(lo)
	return Ptr(sorted[lo] + frac*(sorted[hi]-sorted[lo]))
}

// Min returns the smallest value, nil for an empty sample.
func Min(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return Ptr(m)
}

// Max returns the largest value, nil for an empty sample.
func Max(xs []float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return Ptr(m)
}

// CV is the coefficient of variation std/mean. It is nil when either input
// is nil or mean is not positive.
func CV(mean, std *float64) *float64 {
	if mean == nil || std == nil || *mean <= 0 {
		return nil
	}
	return Ratio(*std, *mean)
}

// Pearson returns the correlation of paired samples, skipping pairs where
// either side is nil. It is nil with fewer than two pairs or when either
// side has zero variance.
func Pearson(xs, ys []*float64) *float64 {
	var a, b []float64
	for i := range xs {
		if i >= len(ys) || xs[i] == nil || ys[i] == nil {
			continue
		}
		a = append(a, *xs[i])
		b = append(b, *ys[i])
	}
	if len(a) < 2 {
		return nil
	}
	if stat.Variance(a, nil) == 0 || stat.Variance(b, nil) == 0 {
		return nil
	}
	return Finite(stat.Correlation(a, b, nil))
}

// Skew returns sample skewness, nil for n <= 2 or a constant sample.
func Skew(xs []float64) *float64 {
	if len(xs) <= 2 || stat.Variance(xs, nil) == 0 {
		return nil
	}
	return Finite(stat.Skew(xs, nil))
}

// Gini returns the Gini coefficient of non-negative values, nil when the
// sum is not positive.
func Gini(xs []float64) *float64 {
	n := len(xs)
	if n == 0 {
		return nil
	}
	total := Sum(xs)
	if total <= 0 {
		return nil
	}
	sorted := make([]float64, n)
	copy(sorted, xs)
	sort.Float64s(sorted)

	weighted := 0.0
	for i, x := range sorted {
		weighted += float64(i+1) * x
	}
	fn := float64(n)
	return Finite((2*weighted)/(fn*total) - (fn+1)/fn)
}

// MinMaxScale rescales each non-nil value to [0, 100]. When every value ties
// the result is 50 for all of them.
func MinMaxScale(xs []*float64) []*float64 {
	vals := Values(xs)
	out := make([]*float64, len(xs))
	if len(vals) == 0 {
		return out
	}
	lo, hi := *Min(vals), *Max(vals)
	for i, x := range xs {
		if x == nil {
			continue
		}
		if hi == lo {
			out[i] = Ptr(50)
			continue
		}
		out[i] = Ptr((*x - lo) / (hi - lo) * 100)
	}
	return out
}

// PercentileRank returns the share (0-100) of xs that are <= v.
func PercentileRank(xs []float64, v float64) *float64 {
	if len(xs) == 0 {
		return nil
	}
	below, equal := 0, 0
	for _, x := range xs {
		switch {
		case x < v:
			below++
		case x == v:
			equal++
		}
	}
	return Ptr((float64(below) + float64(equal)) / float64(len(xs)) * 100)
}

// RankMinDesc ranks xs descending, giving tied values the same minimum rank
// (1 is the largest value).
func RankMinDesc(xs []float64) []int {
	ranks := make([]int, len(xs))
	for i, x := range xs {
		r := 1
		for _, y := range xs {
			if y > x {
				r++
			}
		}
		ranks[i] = r
	}
	return ranks
}
