package stats

import "math"

// CycleInfo describes the dominant repeating frequency found in a series.
type CycleInfo struct {
	// Strength is the peak non-DC magnitude divided by the sum of all
	// positive-frequency magnitudes, in [0,1].
	Strength float64
	// Frequency is the dominant frequency in cycles per sample.
	Frequency float64
	// Period is 1/Frequency in samples, 0 when no cycle was found.
	Period float64
}

// DetectCycles removes the mean from the series, computes the discrete
// Fourier transform, and reports the dominant non-DC frequency. Series
// shorter than 10 samples carry no usable spectrum and return a zero result.
func DetectCycles(values []float64) CycleInfo {
	n := len(values)
	if n < 10 {
		return CycleInfo{}
	}

	m := Mean(values)
	centered := make([]float64, n)
	for i, v := range values {
		centered[i] = v - m
	}

	// Magnitudes of DFT bins 1..n/2-1 (DC and mirrored half excluded).
	half := n / 2
	magnitudes := make([]float64, 0, half-1)
	for k := 1; k < half; k++ {
		var re, im float64
		for t, v := range centered {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			re += v * math.Cos(angle)
			im += v * math.Sin(angle)
		}
		magnitudes = append(magnitudes, math.Hypot(re, im))
	}
	if len(magnitudes) == 0 {
		return CycleInfo{}
	}

	var total float64
	peak := 0
	for i, mag := range magnitudes {
		total += mag
		if mag > magnitudes[peak] {
			peak = i
		}
	}
	if total == 0 {
		return CycleInfo{}
	}

	freq := float64(peak+1) / float64(n)
	info := CycleInfo{
		Strength:  magnitudes[peak] / total,
		Frequency: freq,
	}
	if freq != 0 {
		info.Period = 1 / freq
	}
	return info
}

// AnomalyRate returns the fraction of values falling outside
// [Q1 - 1.5*IQR, Q3 + 1.5*IQR]. A series with fewer than 4 points or zero
// IQR has no usable spread and scores 0.
func AnomalyRate(values []float64) float64 {
	if len(values) < 4 {
		return 0
	}
	q1 := Percentile(values, 25)
	q3 := Percentile(values, 75)
	iqr := q3 - q1
	if iqr == 0 {
		return 0
	}
	lo := q1 - 1.5*iqr
	hi := q3 + 1.5*iqr

	var outliers int
	for _, v := range values {
		if v < lo || v > hi {
			outliers++
		}
	}
	return float64(outliers) / float64(len(values))
}

// Autocorrelation returns the Pearson correlation between the normalized
// series and its lag-k shift, and false when the series is constant or too
// short for the requested lag.
func Autocorrelation(values []float64, lag int) (float64, bool) {
	if lag <= 0 || len(values) <= lag {
		return 0, false
	}
	norm, ok := Normalize(values)
	if !ok {
		return 0, false
	}
	corr := CorrCoef(norm[:len(norm)-lag], norm[lag:])
	if math.IsNaN(corr) {
		return 0, false
	}
	return corr, true
}
