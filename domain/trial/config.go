package trial

import (
	"time"

	"goreg/domain/core"
)

// Engine configuration bounds. Values outside these fail validation rather
// than being clamped.
const (
	MinTargetRate   = 0.01
	MaxTargetRate   = 1000.0
	MaxBitsPerTrial = 4096
	MaxBufferSize   = 1_000_000
)

// EngineConfiguration holds the recognized engine options
type EngineConfiguration struct {
	TargetRate        float64 `json:"target_rate"`        // trials/sec; scheduler interval = 1000/rate ms
	BitsPerTrial      int     `json:"bits_per_trial"`     // sample size; expected mean = bits/2, variance = bits/4
	TimingTolerance   float64 `json:"timing_tolerance"`   // acceptable jitter in ms before a tick counts as missed
	DriftCompensation bool    `json:"drift_compensation"` // cumulative-drift correction in the scheduler
	BufferSize        int     `json:"buffer_size"`        // max retained trials in the rolling buffer
	QualityMonitoring bool    `json:"quality_monitoring"` // continuous recent-trial retention for live statistics
}

// DefaultConfiguration returns the standard instrument configuration:
// one 200-bit trial per second with drift compensation on.
func DefaultConfiguration() EngineConfiguration {
	return EngineConfiguration{
		TargetRate:        1.0,
		BitsPerTrial:      200,
		TimingTolerance:   50.0,
		DriftCompensation: true,
		BufferSize:        10_000,
		QualityMonitoring: true,
	}
}

// Validate checks all option ranges; invalid configuration fails fast at
// construction or updateConfig rather than silently clamping.
func (c EngineConfiguration) Validate() error {
	if c.TargetRate < MinTargetRate || c.TargetRate > MaxTargetRate {
		return core.NewConfigError("target_rate", "must be in [0.01, 1000] trials/sec")
	}
	if c.BitsPerTrial < 1 || c.BitsPerTrial > MaxBitsPerTrial {
		return core.NewConfigError("bits_per_trial", "must be in [1, 4096]")
	}
	if c.TimingTolerance < 0 {
		return core.NewConfigError("timing_tolerance", "must be non-negative")
	}
	if c.BufferSize < 1 || c.BufferSize > MaxBufferSize {
		return core.NewConfigError("buffer_size", "must be in [1, 1000000]")
	}
	return nil
}

// Interval converts the target rate into the scheduler firing interval
func (c EngineConfiguration) Interval() time.Duration {
	return time.Duration(float64(time.Second) / c.TargetRate)
}

// Tolerance converts the timing tolerance from milliseconds to a duration.
// Zero means the scheduler's own default applies.
func (c EngineConfiguration) Tolerance() time.Duration {
	return time.Duration(c.TimingTolerance * float64(time.Millisecond))
}

// ExpectedMean is the null-model mean of a trial value
func (c EngineConfiguration) ExpectedMean() float64 {
	return float64(c.BitsPerTrial) / 2.0
}

// ExpectedVariance is the null-model variance of a trial value
func (c EngineConfiguration) ExpectedVariance() float64 {
	return float64(c.BitsPerTrial) / 4.0
}

// ConfigPatch applies partial configuration updates; nil fields keep the
// current value.
type ConfigPatch struct {
	TargetRate        *float64 `json:"target_rate,omitempty"`
	BitsPerTrial      *int     `json:"bits_per_trial,omitempty"`
	TimingTolerance   *float64 `json:"timing_tolerance,omitempty"`
	DriftCompensation *bool    `json:"drift_compensation,omitempty"`
	BufferSize        *int     `json:"buffer_size,omitempty"`
	QualityMonitoring *bool    `json:"quality_monitoring,omitempty"`
}

// Apply merges the patch over a base configuration and returns the result
func (p ConfigPatch) Apply(base EngineConfiguration) EngineConfiguration {
	out := base
	if p.TargetRate != nil {
		out.TargetRate = *p.TargetRate
	}
	if p.BitsPerTrial != nil {
		out.BitsPerTrial = *p.BitsPerTrial
	}
	if p.TimingTolerance != nil {
		out.TimingTolerance = *p.TimingTolerance
	}
	if p.DriftCompensation != nil {
		out.DriftCompensation = *p.DriftCompensation
	}
	if p.BufferSize != nil {
		out.BufferSize = *p.BufferSize
	}
	if p.QualityMonitoring != nil {
		out.QualityMonitoring = *p.QualityMonitoring
	}
	return out
}
