package stats

import (
	"math"

	"goreg/domain/core"
)

// TestResult is the outcome of one randomness test
type TestResult struct {
	Name      string  `json:"name"`
	Statistic float64 `json:"statistic"`
	PValue    float64 `json:"p_value"`
	Random    bool    `json:"random"` // no evidence against randomness at alpha
	Detail    string  `json:"detail,omitempty"`
}

// Significance level shared by the randomness battery.
const testAlpha = 0.05

// chiSquareBins is the fixed goodness-of-fit partition width.
const chiSquareBins = 5

// ChiSquareTest runs a goodness-of-fit test: the observed value range is
// partitioned into 5 equal-width bins and observed frequencies are compared
// against a uniform expectation. The p-value comes from the regularized
// incomplete gamma tail.
func ChiSquareTest(values []float64) (TestResult, error) {
	n := len(values)
	if n < chiSquareBins*2 {
		return TestResult{}, core.ErrInsufficientData
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if max == min {
		// Degenerate constant sequence; the integrity checks flag this
		// separately, the test itself has nothing to partition.
		return TestResult{Name: "chi_square", PValue: 1.0, Random: true, Detail: "constant sequence, no partition"}, nil
	}

	width := (max - min) / float64(chiSquareBins)
	observed := make([]float64, chiSquareBins)
	for _, v := range values {
		bin := int((v - min) / width)
		if bin >= chiSquareBins {
			bin = chiSquareBins - 1
		}
		observed[bin]++
	}

	expected := float64(n) / float64(chiSquareBins)
	var chi2 float64
	for _, o := range observed {
		dev := o - expected
		chi2 += dev * dev / expected
	}

	df := chiSquareBins - 1
	p := ChiSquareSurvival(chi2, df)
	return TestResult{
		Name:      "chi_square",
		Statistic: chi2,
		PValue:    p,
		Random:    p > testAlpha,
	}, nil
}

// RunsTest binarizes the sequence against its median and tests the number of
// sign-change runs against the null expectation. Degenerate one-sided
// sequences report random by convention (no evidence against randomness).
func RunsTest(values []float64) (TestResult, error) {
	n := len(values)
	if n < 2 {
		return TestResult{}, core.ErrInsufficientData
	}

	median, err := Describe(values)
	if err != nil {
		return TestResult{}, err
	}

	signs := make([]bool, n)
	var n1, n2 float64
	for i, v := range values {
		signs[i] = v > median.Median
		if signs[i] {
			n1++
		} else {
			n2++
		}
	}
	if n1 == 0 || n2 == 0 {
		return TestResult{Name: "runs", PValue: 1.0, Random: true, Detail: "one-sided sequence"}, nil
	}

	runs := 1.0
	for i := 1; i < n; i++ {
		if signs[i] != signs[i-1] {
			runs++
		}
	}

	fn := float64(n)
	expectedRuns := 2.0*n1*n2/fn + 1.0
	varRuns := 2.0 * n1 * n2 * (2.0*n1*n2 - fn) / (fn * fn * (fn - 1.0))
	if varRuns <= 0 {
		return TestResult{Name: "runs", Statistic: runs, PValue: 1.0, Random: true, Detail: "degenerate variance"}, nil
	}

	z := (runs - expectedRuns) / math.Sqrt(varRuns)
	p := TwoTailedP(z)
	return TestResult{
		Name:      "runs",
		Statistic: z,
		PValue:    p,
		Random:    p > testAlpha,
	}, nil
}

// Autocorrelation computes the Pearson-style lag-k autocorrelation
// coefficient. The approximate 95% significance band under the null of no
// autocorrelation is +-2/sqrt(n).
func Autocorrelation(values []float64, lag int) (TestResult, error) {
	n := len(values)
	if lag < 1 || n <= lag+1 {
		return TestResult{}, core.ErrInsufficientData
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

	var num, den float64
	for i := 0; i < n-lag; i++ {
		num += (values[i] - mean) * (values[i+lag] - mean)
	}
	for _, v := range values {
		dev := v - mean
		den += dev * dev
	}
	if den == 0 {
		return TestResult{Name: "autocorrelation", PValue: 1.0, Random: true, Detail: "zero variance"}, nil
	}

	r := num / den
	threshold := 2.0 / math.Sqrt(float64(n))
	significant := math.Abs(r) > threshold

	// Approximate p-value from the normal null r ~ N(0, 1/n).
	z := r * math.Sqrt(float64(n))
	return TestResult{
		Name:      "autocorrelation",
		Statistic: r,
		PValue:    TwoTailedP(z),
		Random:    !significant,
	}, nil
}

// JarqueBeraTest checks normality via JB = (n/6)*(S^2 + K^2/4) with skewness
// S and excess kurtosis K, against a chi-square(2) tail. The sequence is
// "normal" iff p > 0.05.
func JarqueBeraTest(values []float64) (TestResult, error) {
	n := len(values)
	if n < 4 {
		return TestResult{}, core.ErrInsufficientData
	}

	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)

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
	if m2 == 0 {
		return TestResult{Name: "jarque_bera", PValue: 1.0, Random: true, Detail: "zero variance"}, nil
	}

	skew := m3 / math.Pow(m2, 1.5)
	exKurt := m4/(m2*m2) - 3.0

	jb := fn / 6.0 * (skew*skew + exKurt*exKurt/4.0)
	p := ChiSquareSurvival(jb, 2)
	return TestResult{
		Name:      "jarque_bera",
		Statistic: jb,
		PValue:    p,
		Random:    p > testAlpha,
	}, nil
}
