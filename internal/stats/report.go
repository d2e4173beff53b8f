package stats

import (
	"fmt"
	"math"

	"goreg/domain/core"
	"goreg/domain/trial"
)

// Mean-deviation thresholds for the quality rating.
const (
	excellentMeanDeviation = 1.0
	goodMeanDeviation      = 2.0
)

// BaselineReport is the combined randomness-quality verdict over a batch
type BaselineReport struct {
	Statistics trial.StatisticalResult `json:"statistics"`
	Quality    trial.QualityMetrics    `json:"quality"`
	Tests      []TestResult            `json:"tests"`
	Passed     bool                    `json:"passed"`
	Issues     []string                `json:"issues,omitempty"`
}

// RunBaseline runs the full baseline suite over a batch of trial values:
// descriptive/inferential statistics plus the chi-square, runs, and lag-1
// autocorrelation battery, rolled up into a categorical quality rating.
func RunBaseline(values []float64, bitsPerTrial int) (BaselineReport, error) {
	if len(values) < chiSquareBins*2 {
		return BaselineReport{}, core.ErrInsufficientData
	}

	result, err := Analyze(values, bitsPerTrial)
	if err != nil {
		return BaselineReport{}, err
	}

	chi, err := ChiSquareTest(values)
	if err != nil {
		return BaselineReport{}, err
	}
	runs, err := RunsTest(values)
	if err != nil {
		return BaselineReport{}, err
	}
	auto, err := Autocorrelation(values, 1)
	if err != nil {
		return BaselineReport{}, err
	}

	meanDeviation := result.Mean - result.ExpectedMean
	quality := rateQuality(chi.Random, runs.Random, auto.Random, meanDeviation)

	var issues []string
	for _, t := range []TestResult{chi, runs, auto} {
		if !t.Random {
			issues = append(issues, fmt.Sprintf("%s test failed (statistic=%.4f, p=%.4g)", t.Name, t.Statistic, t.PValue))
		}
	}
	if math.Abs(meanDeviation) >= goodMeanDeviation {
		issues = append(issues, fmt.Sprintf("mean deviates from expectation by %.3f", meanDeviation))
	}

	return BaselineReport{
		Statistics: result,
		Quality:    quality,
		Tests:      []TestResult{chi, runs, auto},
		Passed:     quality.Rating == trial.QualityExcellent || quality.Rating == trial.QualityGood,
		Issues:     issues,
	}, nil
}

// rateQuality maps the battery outcome onto the categorical rating.
// excellent: all 3 pass and |meanDev| < 1; good: >=2 pass and |meanDev| < 2;
// fair: >=1 pass; otherwise poor.
func rateQuality(chiOK, runsOK, autoOK bool, meanDeviation float64) trial.QualityMetrics {
	passCount := 0
	for _, ok := range []bool{chiOK, runsOK, autoOK} {
		if ok {
			passCount++
		}
	}

	absDev := math.Abs(meanDeviation)
	rating := trial.QualityPoor
	switch {
	case passCount == 3 && absDev < excellentMeanDeviation:
		rating = trial.QualityExcellent
	case passCount >= 2 && absDev < goodMeanDeviation:
		rating = trial.QualityGood
	case passCount >= 1:
		rating = trial.QualityFair
	}

	return trial.QualityMetrics{
		ChiSquarePassed:       chiOK,
		RunsTestPassed:        runsOK,
		AutocorrelationPassed: autoOK,
		MeanDeviation:         meanDeviation,
		Rating:                rating,
	}
}
