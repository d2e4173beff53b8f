package validation

import (
	"math"
	"time"

	"goreg/domain/trial"
)

// Timing-sequence thresholds. Moderate deviation from the nominal spacing is
// a warning; severe deviation, duplicates, or time reversal are errors.
const (
	severeDeviation    = time.Second
	sequenceErrorRatio = 0.10
)

// CheckTimingSequence examines the inter-trial spacing of a generated
// sequence against the nominal interval. Per-interval deviation beyond the
// tolerance is a warning, beyond one second an error; duplicate or
// out-of-order timestamps are always errors. If more than 10% of intervals
// are in error the whole sequence is flagged.
func CheckTimingSequence(trials []trial.Trial, nominal time.Duration, tolerance time.Duration) Report {
	r := newReport()
	if len(trials) < 2 {
		return r
	}

	intervalErrors := 0
	for i := 1; i < len(trials); i++ {
		prev := trials[i-1].Timestamp.Time()
		cur := trials[i].Timestamp.Time()

		gap := cur.Sub(prev)
		switch {
		case gap < 0:
			r.addError("trial %d out of order: %s before %s", trials[i].TrialNumber, cur.Format(time.RFC3339Nano), prev.Format(time.RFC3339Nano))
			intervalErrors++
			continue
		case gap == 0:
			r.addError("trial %d duplicates previous timestamp", trials[i].TrialNumber)
			intervalErrors++
			continue
		}

		deviation := gap - nominal
		if deviation < 0 {
			deviation = -deviation
		}
		if deviation > severeDeviation {
			r.addError("trial %d interval off by %s (nominal %s)", trials[i].TrialNumber, deviation, nominal)
			intervalErrors++
		} else if deviation > tolerance {
			r.addWarning("trial %d interval off by %s (nominal %s)", trials[i].TrialNumber, deviation, nominal)
		}
	}

	intervals := len(trials) - 1
	if float64(intervalErrors)/float64(intervals) > sequenceErrorRatio {
		r.addError("timing error rate %.1f%% exceeds %.0f%% across %d intervals",
			100.0*float64(intervalErrors)/float64(intervals), 100.0*sequenceErrorRatio, intervals)
	}

	return r
}

// Clustering threshold: a single value occupying more than this share of a
// long sequence is suspicious but not impossible.
const clusterWarnRatio = 0.30

// CheckIntegrity runs cross-trial integrity checks over a sequence:
// duplicate trials, degenerate all-identical or perfectly-alternating value
// patterns (statistically impossible for a genuine random source), and
// value-clustering anomalies.
func CheckIntegrity(trials []trial.Trial) Report {
	r := newReport()
	if len(trials) == 0 {
		return r
	}

	type key struct {
		session string
		number  int
	}
	seen := make(map[key]bool, len(trials))
	for _, t := range trials {
		k := key{session: t.SessionID.String(), number: t.TrialNumber}
		if seen[k] {
			r.addError("duplicate trial %d in session %s", t.TrialNumber, t.SessionID)
		}
		seen[k] = true
	}

	if len(trials) >= 10 {
		if allIdentical(trials) {
			r.addError("all %d trial values identical", len(trials))
		}
		if perfectlyAlternating(trials) {
			r.addError("trial values perfectly alternate between two values")
		}
		if ratio, value := dominantValueRatio(trials); ratio > clusterWarnRatio {
			r.addWarning("value %d occupies %.0f%% of the sequence", value, 100.0*ratio)
		}
	}

	return r
}

func allIdentical(trials []trial.Trial) bool {
	for i := 1; i < len(trials); i++ {
		if trials[i].Value != trials[0].Value {
			return false
		}
	}
	return true
}

func perfectlyAlternating(trials []trial.Trial) bool {
	if len(trials) < 4 || trials[0].Value == trials[1].Value {
		return false
	}
	for i := 2; i < len(trials); i++ {
		if trials[i].Value != trials[i-2].Value {
			return false
		}
	}
	return true
}

func dominantValueRatio(trials []trial.Trial) (float64, int) {
	counts := make(map[int]int)
	for _, t := range trials {
		counts[t.Value]++
	}
	best, bestValue := 0, 0
	for v, c := range counts {
		if c > best {
			best, bestValue = c, v
		}
	}
	return float64(best) / math.Max(1, float64(len(trials))), bestValue
}
