package stats

import (
	"math"

	"goreg/domain/core"
)

// PowerResult is the outcome of a prospective power analysis
type PowerResult struct {
	EffectSize float64 `json:"effect_size"`
	SampleSize int     `json:"sample_size"`
	Alpha      float64 `json:"alpha"`
	Power      float64 `json:"power"`
}

// RequiredSampleSize computes the n needed to detect effectSize with the
// requested power at two-tailed alpha: ceil(((z_alpha + z_beta)/d)^2).
func RequiredSampleSize(effectSize, power, alpha float64) (int, error) {
	if effectSize <= 0 || power <= 0 || power >= 1 || alpha <= 0 || alpha >= 1 {
		return 0, core.ErrInsufficientData
	}
	zAlpha := NormalInverseCDF(1.0 - alpha/2.0)
	zBeta := NormalInverseCDF(power)
	n := math.Ceil(math.Pow((zAlpha+zBeta)/effectSize, 2))
	return int(n), nil
}

// MinimumDetectableEffect computes the smallest standardized effect
// detectable at the given n, power, and two-tailed alpha:
// (z_alpha + z_beta)/sqrt(n).
func MinimumDetectableEffect(n int, power, alpha float64) (float64, error) {
	if n <= 0 || power <= 0 || power >= 1 || alpha <= 0 || alpha >= 1 {
		return 0, core.ErrInsufficientData
	}
	zAlpha := NormalInverseCDF(1.0 - alpha/2.0)
	zBeta := NormalInverseCDF(power)
	return (zAlpha + zBeta) / math.Sqrt(float64(n)), nil
}

// PowerAnalysis approximates one-sample t-test power via a non-central-t
// approximation built from a standardized normal shift of the critical
// value.
func PowerAnalysis(effectSize float64, n int, alpha float64) (PowerResult, error) {
	if n < 2 || alpha <= 0 || alpha >= 1 {
		return PowerResult{}, core.ErrInsufficientData
	}

	delta := effectSize * math.Sqrt(float64(n))
	crit := TInverseCDF(1.0-alpha/2.0, n-1)

	power := 1.0 - NormalCDF(crit-delta) + NormalCDF(-crit-delta)
	if power > 1.0 {
		power = 1.0
	}
	if power < 0.0 {
		power = 0.0
	}
	return PowerResult{
		EffectSize: effectSize,
		SampleSize: n,
		Alpha:      alpha,
		Power:      power,
	}, nil
}

// PooledStandardDeviation combines two group standard deviations weighted by
// their degrees of freedom.
func PooledStandardDeviation(sd1 float64, n1 int, sd2 float64, n2 int) float64 {
	if n1 < 2 || n2 < 2 {
		return 0.0
	}
	num := float64(n1-1)*sd1*sd1 + float64(n2-1)*sd2*sd2
	return math.Sqrt(num / float64(n1+n2-2))
}

// CohensD computes the standardized mean difference between two groups
func CohensD(mean1 float64, sd1 float64, n1 int, mean2 float64, sd2 float64, n2 int) float64 {
	pooled := PooledStandardDeviation(sd1, n1, sd2, n2)
	if pooled == 0 {
		return 0.0
	}
	return (mean1 - mean2) / pooled
}

// HedgesG applies the small-sample bias correction 1 - 3/(4*df - 1) to
// Cohen's d.
func HedgesG(mean1 float64, sd1 float64, n1 int, mean2 float64, sd2 float64, n2 int) float64 {
	d := CohensD(mean1, sd1, n1, mean2, sd2, n2)
	df := float64(n1 + n2 - 2)
	if df <= 0 {
		return d
	}
	return d * (1.0 - 3.0/(4.0*df-1.0))
}
