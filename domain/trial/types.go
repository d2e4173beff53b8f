package trial

import (
	"goreg/domain/core"
)

// ============================================================================
// STABLE PRIMITIVES (Canonical, never change)
// ============================================================================

// Mode identifies how a trial was produced
type Mode string

const (
	ModeSession    Mode = "session"
	ModeContinuous Mode = "continuous"
)

// KnownModes lists the accepted generation modes
var KnownModes = []Mode{ModeSession, ModeContinuous}

// Intention labels the experimental condition a trial was generated under
type Intention string

const (
	IntentionHigh     Intention = "high"
	IntentionLow      Intention = "low"
	IntentionBaseline Intention = "baseline"
	IntentionNone     Intention = "none"
)

// KnownIntentions lists the accepted intention conditions
var KnownIntentions = []Intention{IntentionHigh, IntentionLow, IntentionBaseline, IntentionNone}

// IsKnown reports whether the mode is one of the accepted enumerations
func (m Mode) IsKnown() bool {
	for _, known := range KnownModes {
		if m == known {
			return true
		}
	}
	return false
}

// IsKnown reports whether the intention is one of the accepted enumerations
func (i Intention) IsKnown() bool {
	for _, known := range KnownIntentions {
		if i == known {
			return true
		}
	}
	return false
}

// Trial is one sampled observation: the count of set bits among a fixed
// number of randomly drawn bits. Created exclusively by the engine and
// immutable once created.
// INVARIANTS:
// - Value is an integer in [0, BitsPerTrial]
// - TrialNumber is positive and strictly increasing per session
type Trial struct {
	Timestamp   core.Timestamp `json:"timestamp"`
	Value       int            `json:"value"`
	SessionID   core.SessionID `json:"session_id"`
	Mode        Mode           `json:"mode"`
	Intention   Intention      `json:"intention"`
	TrialNumber int            `json:"trial_number"`
}

// ============================================================================
// STATISTICAL RESULTS
// ============================================================================

// StatisticalResult is the full descriptive/inferential summary of a batch
// of trial values against the Binomial(bits, 0.5) null model.
// INVARIANTS:
// - len(CumulativeDeviation) == TrialCount
// - StandardDeviation == sqrt(Variance) within floating tolerance
// - 0 <= PValue <= 1
type StatisticalResult struct {
	TrialCount          int            `json:"trial_count"`
	Mean                float64        `json:"mean"`
	ExpectedMean        float64        `json:"expected_mean"`
	Variance            float64        `json:"variance"`
	StandardDeviation   float64        `json:"standard_deviation"`
	ZScore              float64        `json:"z_score"`
	PValue              float64        `json:"p_value"`
	CumulativeDeviation []float64      `json:"cumulative_deviation"`
	NetworkVariance     float64        `json:"network_variance,omitempty"`
	StoufferZ           float64        `json:"stouffer_z,omitempty"`
	CalculatedAt        core.Timestamp `json:"calculated_at"`
	DataRange           DataRange      `json:"data_range"`
}

// DataRange captures the observed min/max of a batch
type DataRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// QualityRating is the categorical verdict of a calibration run
type QualityRating string

const (
	QualityExcellent QualityRating = "excellent"
	QualityGood      QualityRating = "good"
	QualityFair      QualityRating = "fair"
	QualityPoor      QualityRating = "poor"
)

// QualityMetrics summarizes the randomness-test battery behind a rating
type QualityMetrics struct {
	ChiSquarePassed       bool          `json:"chi_square_passed"`
	RunsTestPassed        bool          `json:"runs_test_passed"`
	AutocorrelationPassed bool          `json:"autocorrelation_passed"`
	MeanDeviation         float64       `json:"mean_deviation"`
	Rating                QualityRating `json:"rating"`
}

// CalibrationResult is the immutable outcome of one calibration batch.
// Owned by the caller after return.
type CalibrationResult struct {
	ID         core.CalibrationID `json:"id"`
	StartTime  core.Timestamp     `json:"start_time"`
	EndTime    core.Timestamp     `json:"end_time"`
	TrialCount int                `json:"trial_count"`
	Statistics StatisticalResult  `json:"statistics"`
	Quality    QualityMetrics     `json:"quality_metrics"`
	Passed     bool               `json:"passed"`
	Issues     []string           `json:"issues,omitempty"`
}

// ============================================================================
// LIVE ENGINE STATE (snapshots, never persisted)
// ============================================================================

// TimingMetrics accumulates scheduler error statistics for the lifetime of a
// run; reset on each start.
type TimingMetrics struct {
	AverageError    float64 `json:"average_error_ms"`
	MaxError        float64 `json:"max_error_ms"`
	MissedIntervals int     `json:"missed_intervals"`
	IntervalCount   int     `json:"interval_count"`
}

// EngineStatus is a live snapshot recomputed on demand
type EngineStatus struct {
	IsRunning   bool           `json:"is_running"`
	CurrentRate float64        `json:"current_rate"`
	TargetRate  float64        `json:"target_rate"`
	TotalTrials int            `json:"total_trials"`
	Timing      TimingMetrics  `json:"timing_metrics"`
	MemoryUsage uint64         `json:"memory_usage_bytes"`
	SessionID   core.SessionID `json:"session_id,omitempty"`
	Intention   Intention      `json:"intention"`
}

// Session describes a research session's bookkeeping for validation purposes
type Session struct {
	ID           core.SessionID `json:"id"`
	StartedAt    core.Timestamp `json:"started_at"`
	CompletedAt  core.Timestamp `json:"completed_at,omitempty"`
	TargetTrials int            `json:"target_trials"`
	Status       SessionStatus  `json:"status"`
}

// SessionStatus is the session lifecycle state
type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionRunning  SessionStatus = "running"
	SessionComplete SessionStatus = "complete"
	SessionAborted  SessionStatus = "aborted"
)

// KnownSessionStatuses lists the accepted session states
var KnownSessionStatuses = []SessionStatus{SessionPending, SessionRunning, SessionComplete, SessionAborted}

// IsKnown reports whether the status is one of the accepted enumerations
func (s SessionStatus) IsKnown() bool {
	for _, known := range KnownSessionStatuses {
		if s == known {
			return true
		}
	}
	return false
}
