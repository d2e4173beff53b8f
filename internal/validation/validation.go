package validation

import (
	"fmt"
	"math"
	"time"

	"goreg/domain/trial"
)

// Report is the outcome of a validation check. Findings are returned as
// data, never thrown: errors block acceptance, warnings are informational.
type Report struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func (r *Report) addError(format string, args ...interface{}) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	r.IsValid = false
}

func (r *Report) addWarning(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func newReport() Report {
	return Report{IsValid: true}
}

// Trial timestamp plausibility bounds.
const (
	futureTolerance = 5 * time.Second
	maxTrialAge     = 24 * time.Hour
)

// MaxTargetTrials is the sane upper bound on a session's planned size.
const MaxTargetTrials = 10_000_000

// CheckTrial validates a single trial's structure against its configured bit
// width. Never mutates the input.
func CheckTrial(t trial.Trial, bitsPerTrial int) Report {
	r := newReport()

	if t.Value < 0 || t.Value > bitsPerTrial {
		r.addError("value %d out of range [0, %d]", t.Value, bitsPerTrial)
	}

	ts := t.Timestamp.Time()
	now := time.Now()
	if ts.IsZero() {
		r.addError("timestamp is zero")
	} else {
		if ts.After(now.Add(futureTolerance)) {
			r.addError("timestamp %s is in the future", ts.Format(time.RFC3339Nano))
		}
		if now.Sub(ts) > maxTrialAge {
			r.addError("timestamp %s is implausibly old", ts.Format(time.RFC3339Nano))
		}
	}

	if t.SessionID.IsEmpty() {
		r.addError("session ID is empty")
	} else if !t.SessionID.IsUUID() {
		r.addError("session ID %q is not a UUID", t.SessionID)
	}

	if !t.Mode.IsKnown() {
		r.addError("unknown mode %q", t.Mode)
	}
	if !t.Intention.IsKnown() {
		r.addError("unknown intention %q", t.Intention)
	}
	if t.TrialNumber < 1 {
		r.addError("trial number %d must be positive", t.TrialNumber)
	}

	return r
}

// CheckSession validates a session's bookkeeping
func CheckSession(s trial.Session) Report {
	r := newReport()

	if s.ID.IsEmpty() {
		r.addError("session ID is empty")
	} else if !s.ID.IsUUID() {
		r.addError("session ID %q is not a UUID", s.ID)
	}

	if s.StartedAt.IsZero() {
		r.addError("session has no start time")
	}
	if !s.CompletedAt.IsZero() && s.CompletedAt.Before(s.StartedAt) {
		r.addError("session completed before it started")
	}

	if s.TargetTrials < 1 {
		r.addError("target trial count %d must be positive", s.TargetTrials)
	} else if s.TargetTrials > MaxTargetTrials {
		r.addError("target trial count %d exceeds maximum %d", s.TargetTrials, MaxTargetTrials)
	}

	if !s.Status.IsKnown() {
		r.addError("unknown session status %q", s.Status)
	}

	return r
}

// Relative tolerance for the stddev/variance consistency check.
const stdDevTolerance = 1e-6

// CheckStatisticalResult validates the internal consistency of a computed
// statistical result.
func CheckStatisticalResult(res trial.StatisticalResult) Report {
	r := newReport()

	if res.TrialCount < 1 {
		r.addError("trial count %d must be positive", res.TrialCount)
	}
	if res.PValue < 0 || res.PValue > 1 {
		r.addError("p-value %g out of [0, 1]", res.PValue)
	}
	if res.Variance < 0 {
		r.addError("variance %g is negative", res.Variance)
	}
	if math.IsNaN(res.ZScore) || math.IsInf(res.ZScore, 0) {
		r.addError("z-score is not finite")
	}
	if math.IsNaN(res.Mean) || math.IsInf(res.Mean, 0) {
		r.addError("mean is not finite")
	}

	want := math.Sqrt(res.Variance)
	if math.Abs(res.StandardDeviation-want) > stdDevTolerance*(1.0+want) {
		r.addError("standard deviation %g inconsistent with variance %g", res.StandardDeviation, res.Variance)
	}

	if len(res.CumulativeDeviation) != res.TrialCount {
		r.addError("cumulative deviation length %d != trial count %d", len(res.CumulativeDeviation), res.TrialCount)
	}

	if res.DataRange.Max < res.DataRange.Min {
		r.addError("data range max %d below min %d", res.DataRange.Max, res.DataRange.Min)
	} else if res.TrialCount > 0 && (res.Mean < float64(res.DataRange.Min) || res.Mean > float64(res.DataRange.Max)) {
		r.addError("mean %g outside observed range [%d, %d]", res.Mean, res.DataRange.Min, res.DataRange.Max)
	}

	return r
}
