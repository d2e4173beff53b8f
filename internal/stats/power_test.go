package stats

import (
	"math"
	"testing"
)

func TestRequiredSampleSize_Textbook(t *testing.T) {
	// d=0.5, power 0.80, alpha 0.05: (1.96 + 0.8416)^2 / 0.25 -> 32.
	n, err := RequiredSampleSize(0.5, 0.80, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 32 {
		t.Errorf("required n = %d, want 32", n)
	}
}

func TestRequiredSampleSize_Invalid(t *testing.T) {
	cases := []struct {
		effect, power, alpha float64
	}{
		{0, 0.8, 0.05},
		{-0.5, 0.8, 0.05},
		{0.5, 0, 0.05},
		{0.5, 1, 0.05},
		{0.5, 0.8, 0},
		{0.5, 0.8, 1},
	}
	for _, tc := range cases {
		if _, err := RequiredSampleSize(tc.effect, tc.power, tc.alpha); err == nil {
			t.Errorf("RequiredSampleSize(%v, %v, %v): want error", tc.effect, tc.power, tc.alpha)
		}
	}
}

func TestMinimumDetectableEffect(t *testing.T) {
	// Dual of the sample size test: at n=32 the MDE sits just under d=0.5.
	mde, err := MinimumDetectableEffect(32, 0.80, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mde < 0.49 || mde >= 0.5 {
		t.Errorf("MDE = %v, want just under 0.5", mde)
	}
}

func TestPowerAnalysis(t *testing.T) {
	res, err := PowerAnalysis(0.5, 32, 0.05)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// The sample size was chosen for 80% nominal power; the t-critical
	// approximation lands slightly under the normal-theory target.
	if res.Power < 0.70 || res.Power > 0.90 {
		t.Errorf("power = %v, want ~0.78", res.Power)
	}
	if res.SampleSize != 32 || res.EffectSize != 0.5 || res.Alpha != 0.05 {
		t.Errorf("result echo mismatch: %+v", res)
	}
}

func TestPowerAnalysis_MonotoneInN(t *testing.T) {
	prev := 0.0
	for _, n := range []int{10, 20, 40, 80, 160} {
		res, err := PowerAnalysis(0.5, n, 0.05)
		if err != nil {
			t.Fatalf("n=%d: %v", n, err)
		}
		if res.Power < prev {
			t.Fatalf("power decreased at n=%d: %v < %v", n, res.Power, prev)
		}
		prev = res.Power
	}
	if prev < 0.99 {
		t.Errorf("power at n=160, d=0.5 should be near 1, got %v", prev)
	}
}

func TestCohensD_EqualGroups(t *testing.T) {
	d := CohensD(105, 10, 20, 100, 10, 20)
	if math.Abs(d-0.5) > 1e-12 {
		t.Errorf("d = %v, want 0.5", d)
	}

	g := HedgesG(105, 10, 20, 100, 10, 20)
	want := 0.5 * (1.0 - 3.0/(4.0*38.0-1.0))
	if math.Abs(g-want) > 1e-12 {
		t.Errorf("g = %v, want %v", g, want)
	}
	if g >= d {
		t.Errorf("Hedges' g must shrink toward zero: g=%v d=%v", g, d)
	}
}

func TestPooledStandardDeviation(t *testing.T) {
	if got := PooledStandardDeviation(10, 20, 10, 20); math.Abs(got-10) > 1e-12 {
		t.Errorf("equal groups pooled sd = %v, want 10", got)
	}
	if got := PooledStandardDeviation(10, 1, 10, 20); got != 0 {
		t.Errorf("degenerate group size should yield 0, got %v", got)
	}
	if got := CohensD(105, 0, 20, 100, 0, 20); got != 0 {
		t.Errorf("zero pooled sd should yield d=0, got %v", got)
	}
}
