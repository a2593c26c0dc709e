// Package stats provides the robust statistics used to turn noisy
// marketplace price samples into stable point estimates.
//
// Every function is pure and side-effect free. Undefined results (empty
// sample, too few observations, degenerate winsorization) are reported
// through the ok return value instead of NaN sentinels so that callers can
// publish explicit nulls for insufficient data.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of xs.
func Mean(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}

	sum := 0.0
	for _, v := range xs {
		sum += v
	}
	return sum / float64(len(xs)), true
}

// Median returns the order-statistic median of xs. For an even count the
// average of the two middle values is returned. The input is not modified.
func Median(xs []float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}

	sorted := sortedCopy(xs)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], true
	}
	return (sorted[mid-1] + sorted[mid]) / 2, true
}

// Stdev returns the sample standard deviation of xs (n-1 denominator).
// Requires at least two observations.
func Stdev(xs []float64) (float64, bool) {
	if len(xs) < 2 {
		return 0, false
	}

	m, ok := Mean(xs)
	if !ok {
		return 0, false
	}

	sum := 0.0
	for _, v := range xs {
		sum += (v - m) * (v - m)
	}

	sd := math.Sqrt(sum / float64(len(xs)-1))
	if math.IsNaN(sd) || math.IsInf(sd, 0) {
		return 0, false
	}
	return sd, true
}

// Winsorize returns a sorted copy of xs with the k lowest values clamped up
// to sorted[k] and the k highest clamped down to sorted[n-k-1], where
// k = floor(n*p). Sample size is preserved; values are capped, not dropped.
//
// Winsorization is degenerate on tiny samples: when n < 3, k == 0 or
// n <= 2k the sorted sample is returned unchanged. Callers that need a
// point estimate should fall back to the median in that case (TrimmedMean
// does exactly that).
func Winsorize(xs []float64, p float64) []float64 {
	sorted := sortedCopy(xs)
	n := len(sorted)
	k := int(math.Floor(float64(n) * p))

	if n < 3 || k == 0 || n <= 2*k {
		return sorted
	}

	lowCap := sorted[k]
	highCap := sorted[n-k-1]

	for i, v := range sorted {
		if v < lowCap {
			sorted[i] = lowCap
		} else if v > highCap {
			sorted[i] = highCap
		}
	}
	return sorted
}

// winsorizeApplies reports whether Winsorize would actually clamp anything
// for a sample of size n at trim percent p.
func winsorizeApplies(n int, p float64) bool {
	k := int(math.Floor(float64(n) * p))
	return n >= 3 && k > 0 && n > 2*k
}

// TrimmedMean returns the winsorized ("Taguchi") mean of xs at trim percent
// p. When winsorization is degenerate the median is returned instead, so a
// one or two item sample can never collapse to an extreme listing.
func TrimmedMean(xs []float64, p float64) (float64, bool) {
	if len(xs) == 0 {
		return 0, false
	}

	if !winsorizeApplies(len(xs), p) {
		return Median(xs)
	}

	return Mean(Winsorize(xs, p))
}

// CV returns the coefficient of variation (sample stdev / mean) computed on
// the winsorized sample. This is the published market stability score:
// lower means tighter price agreement across listings.
//
// Requires at least three raw and three winsorized observations. A
// non-positive winsorized mean or any non-finite intermediate yields no
// result.
func CV(xs []float64, p float64) (float64, bool) {
	if len(xs) < 3 {
		return 0, false
	}

	wins := Winsorize(xs, p)
	if len(wins) < 3 {
		return 0, false
	}

	m, ok := Mean(wins)
	if !ok || m <= 0 || math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}

	sd, ok := Stdev(wins)
	if !ok {
		return 0, false
	}

	return sd / m, true
}

func sortedCopy(xs []float64) []float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	return sorted
}
