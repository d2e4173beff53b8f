package stats

import (
	"math"
	"math/rand"
	"testing"
)

// binomialValues draws deterministic Binomial(bits, 0.5) samples for battery
// structure tests.
func binomialValues(n, bits int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		v := 0
		for b := 0; b < bits; b++ {
			if rng.Intn(2) == 1 {
				v++
			}
		}
		out[i] = float64(v)
	}
	return out
}

func TestRunsTest_NoVariationDegeneratesSafely(t *testing.T) {
	values := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	res, err := RunsTest(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Random {
		t.Error("one-sided sequence should report random by convention")
	}
	if res.PValue != 1.0 {
		t.Errorf("p = %v, want 1", res.PValue)
	}
	if math.IsNaN(res.Statistic) || math.IsInf(res.Statistic, 0) {
		t.Errorf("statistic not finite: %v", res.Statistic)
	}
}

func TestRunsTest_PerfectAlternationFails(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i % 2)
	}
	res, err := RunsTest(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Random {
		t.Errorf("perfect alternation should fail the runs test (z=%v, p=%v)", res.Statistic, res.PValue)
	}
}

func TestChiSquareTest_ConstantSequence(t *testing.T) {
	res, err := ChiSquareTest([]float64{5, 5, 5, 5, 5, 5, 5, 5, 5, 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Random {
		t.Error("constant sequence has nothing to partition, should not flag")
	}
}

func TestChiSquareTest_UniformBins(t *testing.T) {
	// 20 values evenly spread over the range: observed counts match the
	// uniform expectation exactly, chi-square 0, p = 1.
	var values []float64
	for i := 0; i < 20; i++ {
		values = append(values, float64(i))
	}
	res, err := ChiSquareTest(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(res.Statistic) > 1e-9 {
		t.Errorf("chi-square %v, want 0 for evenly spread values", res.Statistic)
	}
	if math.Abs(res.PValue-1.0) > 1e-9 {
		t.Errorf("p = %v, want 1", res.PValue)
	}
}

func TestChiSquareTest_SkewedBinsFail(t *testing.T) {
	// Everything piled in one bin except a single outlier.
	values := make([]float64, 100)
	for i := range values {
		values[i] = 1
	}
	values[99] = 100
	res, err := ChiSquareTest(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Random {
		t.Errorf("extreme clustering should fail (chi2=%v, p=%v)", res.Statistic, res.PValue)
	}
}

func TestAutocorrelation_AlternatingIsSignificant(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		values[i] = float64(i % 2)
	}
	res, err := Autocorrelation(values, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Random {
		t.Errorf("alternating sequence should show lag-1 autocorrelation (r=%v)", res.Statistic)
	}
	if res.Statistic >= 0 {
		t.Errorf("alternation should be negatively autocorrelated, got %v", res.Statistic)
	}
}

func TestAutocorrelation_ConstantIsSafe(t *testing.T) {
	values := make([]float64, 50)
	for i := range values {
		values[i] = 7
	}
	res, err := Autocorrelation(values, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Random {
		t.Error("zero-variance sequence should not flag autocorrelation")
	}
}

func TestAutocorrelation_InvalidLag(t *testing.T) {
	if _, err := Autocorrelation([]float64{1, 2, 3}, 0); err == nil {
		t.Error("lag 0 should be rejected")
	}
	if _, err := Autocorrelation([]float64{1, 2, 3}, 5); err == nil {
		t.Error("lag beyond series should be rejected")
	}
}

func TestJarqueBera_Structure(t *testing.T) {
	values := binomialValues(500, 200, 42)
	res, err := JarqueBeraTest(values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Statistic < 0 {
		t.Errorf("JB statistic %v must be non-negative", res.Statistic)
	}
	if res.PValue < 0 || res.PValue > 1 {
		t.Errorf("p = %v out of range", res.PValue)
	}
}

func TestJarqueBera_ConstantSequence(t *testing.T) {
	res, err := JarqueBeraTest([]float64{3, 3, 3, 3, 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Random {
		t.Error("zero-variance input should degenerate safely")
	}
}
