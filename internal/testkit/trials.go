package testkit

import (
	"time"

	"goreg/domain/core"
	"goreg/domain/trial"
)

// TrialSequence builds a well-formed trial sequence with the given values,
// spaced evenly from start. Useful as a baseline fixture that individual
// tests then corrupt.
func TrialSequence(sessionID core.SessionID, start time.Time, spacing time.Duration, values []int) []trial.Trial {
	out := make([]trial.Trial, len(values))
	for i, v := range values {
		out[i] = trial.Trial{
			Timestamp:   core.NewTimestamp(start.Add(time.Duration(i) * spacing)),
			Value:       v,
			SessionID:   sessionID,
			Mode:        trial.ModeContinuous,
			Intention:   trial.IntentionNone,
			TrialNumber: i + 1,
		}
	}
	return out
}

// RepeatValues returns n copies of v
func RepeatValues(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}
