package stats

import (
	"math"

	mstats "github.com/montanaflynn/stats"

	"goreg/domain/core"
)

// Descriptive summarizes one batch of trial values
type Descriptive struct {
	Count             int     `json:"count"`
	Mean              float64 `json:"mean"`
	Variance          float64 `json:"variance"` // sample variance, n-1 denominator
	StandardDeviation float64 `json:"standard_deviation"`
	Skewness          float64 `json:"skewness"`
	Kurtosis          float64 `json:"kurtosis"` // excess kurtosis
	Median            float64 `json:"median"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
}

// Describe computes descriptive statistics over a batch of values.
// Moments use unbiased-style estimators; order statistics come from
// montanaflynn/stats.
func Describe(values []float64) (Descriptive, error) {
	n := len(values)
	if n == 0 {
		return Descriptive{}, core.ErrInsufficientData
	}

	mean, err := mstats.Mean(values)
	if err != nil {
		return Descriptive{}, err
	}
	median, err := mstats.Median(values)
	if err != nil {
		return Descriptive{}, err
	}
	min, err := mstats.Min(values)
	if err != nil {
		return Descriptive{}, err
	}
	max, err := mstats.Max(values)
	if err != nil {
		return Descriptive{}, err
	}

	d := Descriptive{
		Count:  n,
		Mean:   mean,
		Median: median,
		Min:    min,
		Max:    max,
	}
	if n < 2 {
		return d, nil
	}

	var m2, m3, m4 float64
	for _, v := range values {
		dev := v - mean
		m2 += dev * dev
		m3 += dev * dev * dev
		m4 += dev * dev * dev * dev
	}
	fn := float64(n)
	m2 /= fn
	m3 /= fn
	m4 /= fn

	d.Variance = m2 * fn / (fn - 1.0)
	d.StandardDeviation = math.Sqrt(d.Variance)

	if n >= 3 && m2 > 0 {
		// Adjusted Fisher-Pearson standardized moment coefficient
		g1 := m3 / math.Pow(m2, 1.5)
		d.Skewness = g1 * math.Sqrt(fn*(fn-1.0)) / (fn - 2.0)
	}
	if n >= 4 && m2 > 0 {
		g2 := m4/(m2*m2) - 3.0
		d.Kurtosis = ((fn+1.0)*g2 + 6.0) * (fn - 1.0) / ((fn - 2.0) * (fn - 3.0))
	}
	return d, nil
}

// SampleVariance computes the n-1 denominator variance of a batch
func SampleVariance(values []float64) float64 {
	n := len(values)
	if n < 2 {
		return 0.0
	}
	mean, _ := mstats.Mean(values)
	var ss float64
	for _, v := range values {
		dev := v - mean
		ss += dev * dev
	}
	return ss / float64(n-1)
}
