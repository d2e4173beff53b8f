package ports

import (
	"goreg/domain/trial"
)

// TrialLedger is the persistence collaborator. The boundary is
// fire-and-forget: the engine never depends on storage succeeding to keep
// generating trials, so implementations must not block the caller.
type TrialLedger interface {
	// AppendTrial queues a completed trial for storage
	AppendTrial(t trial.Trial)

	// SaveCalibration stores a finished calibration result
	SaveCalibration(result trial.CalibrationResult) error

	// Close flushes any buffered writes and releases resources
	Close() error
}
