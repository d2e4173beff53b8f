package stats

import (
	"math"

	"goreg/domain/core"
	"goreg/domain/trial"
)

// ZTest is the one-sample z test of a batch mean against the Binomial null
type ZTest struct {
	ZScore       float64 `json:"z_score"`
	PValue       float64 `json:"p_value"`
	SampleMean   float64 `json:"sample_mean"`
	ExpectedMean float64 `json:"expected_mean"`
	SampleSize   int     `json:"sample_size"`
}

// CalculateZScore runs the one-sample z test:
// z = (sampleMean - expectedMean) / (expectedStdDev / sqrt(n)), with a
// two-tailed p-value from the normal tail approximation.
func CalculateZScore(values []float64, expectedMean, expectedStdDev float64) (ZTest, error) {
	n := len(values)
	if n == 0 {
		return ZTest{}, core.ErrInsufficientData
	}
	if expectedStdDev <= 0 {
		return ZTest{}, core.ErrInsufficientData
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(n)

	z := (mean - expectedMean) / (expectedStdDev / math.Sqrt(float64(n)))
	return ZTest{
		ZScore:       z,
		PValue:       TwoTailedP(z),
		SampleMean:   mean,
		ExpectedMean: expectedMean,
		SampleSize:   n,
	}, nil
}

// TwoTailedP converts a z-score to a two-tailed p-value
func TwoTailedP(z float64) float64 {
	p := 2.0 * (1.0 - NormalCDF(math.Abs(z)))
	if p > 1.0 {
		return 1.0
	}
	if p < 0.0 {
		return 0.0
	}
	return p
}

// CumulativeDeviation computes the running deviation series
// sum(values[0..i]) - (i+1)*expectedMean, one point per trial.
func CumulativeDeviation(values []float64, expectedMean float64) []float64 {
	out := make([]float64, len(values))
	var sum float64
	for i, v := range values {
		sum += v
		out[i] = sum - float64(i+1)*expectedMean
	}
	return out
}

// DeviationTracker maintains the cumulative deviation series incrementally,
// O(1) per appended trial, for live trend display.
type DeviationTracker struct {
	expectedMean float64
	sum          float64
	series       []float64
}

// NewDeviationTracker creates a tracker against the given null mean
func NewDeviationTracker(expectedMean float64) *DeviationTracker {
	return &DeviationTracker{expectedMean: expectedMean}
}

// Append folds one new trial value into the series
func (t *DeviationTracker) Append(value float64) float64 {
	t.sum += value
	point := t.sum - float64(len(t.series)+1)*t.expectedMean
	t.series = append(t.series, point)
	return point
}

// Series returns a copy of the accumulated deviation series
func (t *DeviationTracker) Series() []float64 {
	out := make([]float64, len(t.series))
	copy(out, t.series)
	return out
}

// Len returns the number of accumulated points
func (t *DeviationTracker) Len() int {
	return len(t.series)
}

// Reset clears the tracker for a new run
func (t *DeviationTracker) Reset() {
	t.sum = 0
	t.series = t.series[:0]
}

// Analyze composes the full StatisticalResult for a batch of trial values
// against the Binomial(bits, 0.5) null model.
func Analyze(values []float64, bitsPerTrial int) (trial.StatisticalResult, error) {
	if len(values) == 0 {
		return trial.StatisticalResult{}, core.ErrInsufficientData
	}

	expectedMean := float64(bitsPerTrial) / 2.0
	expectedStdDev := math.Sqrt(float64(bitsPerTrial) / 4.0)

	desc, err := Describe(values)
	if err != nil {
		return trial.StatisticalResult{}, err
	}
	zt, err := CalculateZScore(values, expectedMean, expectedStdDev)
	if err != nil {
		return trial.StatisticalResult{}, err
	}

	netVar, stoufferZ := networkStatistics(values, expectedMean, expectedStdDev)

	return trial.StatisticalResult{
		TrialCount:          len(values),
		Mean:                desc.Mean,
		ExpectedMean:        expectedMean,
		Variance:            desc.Variance,
		StandardDeviation:   desc.StandardDeviation,
		ZScore:              zt.ZScore,
		PValue:              zt.PValue,
		CumulativeDeviation: CumulativeDeviation(values, expectedMean),
		NetworkVariance:     netVar,
		StoufferZ:           stoufferZ,
		CalculatedAt:        core.Now(),
		DataRange: trial.DataRange{
			Min: int(desc.Min),
			Max: int(desc.Max),
		},
	}, nil
}

// networkStatistics computes the single-node placeholder for the network
// variance / Stouffer Z pair. A real multi-node aggregate would combine one
// z per node; with a single series each trial stands in as its own "node":
// z_i = (v_i - mu) / sigma, stoufferZ = sum(z_i)/sqrt(n), and the network
// variance is the sample variance of the z_i.
func networkStatistics(values []float64, expectedMean, expectedStdDev float64) (netVar, stoufferZ float64) {
	n := len(values)
	if n == 0 || expectedStdDev == 0 {
		return 0, 0
	}

	zs := make([]float64, n)
	var sumZ float64
	for i, v := range values {
		zs[i] = (v - expectedMean) / expectedStdDev
		sumZ += zs[i]
	}
	stoufferZ = sumZ / math.Sqrt(float64(n))
	netVar = SampleVariance(zs)
	return netVar, stoufferZ
}
