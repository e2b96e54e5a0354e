// Package stats provides the small numerical kernel shared by the analyzers:
// descriptive statistics, least-squares trend estimation, frequency-domain
// cycle detection, IQR anomaly scoring and lagged autocorrelation.
//
// Degenerate inputs (empty or constant series) return zero values rather
// than errors; callers treat zero as "no signal".
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Variance returns the population variance of values.
func Variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := Mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation of values.
func StdDev(values []float64) float64 {
	return math.Sqrt(Variance(values))
}

// Min returns the smallest value, or 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

// Max returns the largest value, or 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Percentile returns the p-th percentile (0..100) using linear interpolation
// between closest ranks.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// Median returns the 50th percentile.
func Median(values []float64) float64 {
	return Percentile(values, 50)
}

// Linregress fits y = slope*x + intercept over x = 0..n-1 and returns the
// slope, intercept and Pearson correlation coefficient r.
func Linregress(values []float64) (slope, intercept, r float64) {
	n := float64(len(values))
	if n < 2 {
		return 0, Mean(values), 0
	}
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}
	denX := n*sumXX - sumX*sumX
	if denX == 0 {
		return 0, Mean(values), 0
	}
	slope = (n*sumXY - sumX*sumY) / denX
	intercept = (sumY - slope*sumX) / n

	denY := n*sumYY - sumY*sumY
	if denY <= 0 {
		return slope, intercept, 0
	}
	r = (n*sumXY - sumX*sumY) / math.Sqrt(denX*denY)
	return slope, intercept, r
}

// TrendStrength is the Pearson r of a linear fit against the sample index:
// the regression-based direction/strength of change over the window, in
// [-1, 1].
func TrendStrength(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	_, _, r := Linregress(values)
	return r
}

// WeightedTrend is the regression slope scaled by |r|, so noisy slopes count
// less than consistent ones.
func WeightedTrend(values []float64) float64 {
	if len(values) < 3 {
		return 0
	}
	slope, _, r := Linregress(values)
	return slope * math.Abs(r)
}

// CorrCoef returns the Pearson correlation between two equal-length series,
// or 0 when either has no variance.
func CorrCoef(a, b []float64) float64 {
	if len(a) != len(b) || len(a) < 2 {
		return 0
	}
	ma, mb := Mean(a), Mean(b)
	var cov, va, vb float64
	for i := range a {
		da := a[i] - ma
		db := b[i] - mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

// Normalize returns a zero-mean, unit-variance copy of values, and false when
// the series has no variance to normalize by.
func Normalize(values []float64) ([]float64, bool) {
	sd := StdDev(values)
	if sd == 0 {
		return nil, false
	}
	m := Mean(values)
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = (v - m) / sd
	}
	return out, true
}
