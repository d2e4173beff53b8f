package engine

import (
	"time"

	"goreg/domain/core"
	"goreg/domain/trial"
	"goreg/internal/stats"
	"goreg/internal/validation"
)

// MinCalibrationTrials is the smallest batch the baseline suite accepts.
const MinCalibrationTrials = 10

// RunCalibration generates trialCount trials under a transient calibration
// session and baseline intention, runs the full statistical suite over the
// batch, and returns the composed result. Rejected while continuous mode is
// active: scheduler ticks would interleave with the batch and contaminate
// its session attribution. The previously active session, mode, intention,
// and trial counter are restored on every exit path. The run deliberately
// completes without cancellation; trials are spaced by a small pause to
// emulate real-time generation.
func (e *Engine) RunCalibration(trialCount int) (trial.CalibrationResult, error) {
	if trialCount < MinCalibrationTrials {
		return trial.CalibrationResult{}, core.NewConfigError("trial_count", "calibration needs at least 10 trials")
	}

	e.mu.Lock()
	if e.destroyed {
		e.mu.Unlock()
		return trial.CalibrationResult{}, core.ErrEngineDestroyed
	}
	if e.running {
		e.mu.Unlock()
		return trial.CalibrationResult{}, core.ErrEngineRunning
	}
	prevSession := e.sessionID
	prevMode := e.mode
	prevIntention := e.intention
	prevNumber := e.trialNumber
	bits := e.cfg.BitsPerTrial

	e.sessionID = core.NewSessionID()
	e.mode = trial.ModeSession
	e.intention = trial.IntentionBaseline
	e.trialNumber = 0
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.sessionID = prevSession
		e.mode = prevMode
		e.intention = prevIntention
		e.trialNumber = prevNumber
		e.mu.Unlock()
	}()

	start := core.Now()
	batch := make([]trial.Trial, 0, trialCount)
	for i := 0; i < trialCount; i++ {
		t, err := e.GenerateTrial()
		if err != nil {
			return trial.CalibrationResult{}, err
		}
		batch = append(batch, t)
		if i < trialCount-1 {
			time.Sleep(calibrationPause)
		}
	}

	report, err := stats.RunBaseline(trialValues(batch), bits)
	if err != nil {
		return trial.CalibrationResult{}, err
	}

	issues := report.Issues
	if integrity := validation.CheckIntegrity(batch); !integrity.IsValid {
		issues = append(issues, integrity.Errors...)
	}
	if check := validation.CheckStatisticalResult(report.Statistics); !check.IsValid {
		issues = append(issues, check.Errors...)
	}

	result := trial.CalibrationResult{
		ID:         core.NewCalibrationID(),
		StartTime:  start,
		EndTime:    core.Now(),
		TrialCount: trialCount,
		Statistics: report.Statistics,
		Quality:    report.Quality,
		Passed:     report.Passed && len(issues) == len(report.Issues),
		Issues:     issues,
	}

	e.mu.Lock()
	e.calibrations = append(e.calibrations, result)
	if len(e.calibrations) > calibrationHistorySize {
		e.calibrations = e.calibrations[len(e.calibrations)-calibrationHistorySize:]
	}
	ledger := e.ledger
	e.mu.Unlock()

	if ledger != nil {
		if err := ledger.SaveCalibration(result); err != nil {
			e.log.Warn("calibration %s not persisted: %v", result.ID, err)
		}
	}

	e.log.Info("calibration %s complete: rating=%s passed=%t (%d trials)", result.ID, result.Quality.Rating, result.Passed, trialCount)
	return result, nil
}

// LastCalibration returns the most recent calibration result, if any
func (e *Engine) LastCalibration() (trial.CalibrationResult, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.calibrations) == 0 {
		return trial.CalibrationResult{}, false
	}
	return e.calibrations[len(e.calibrations)-1], true
}

// CalibrationHistory returns a copy of the retained calibration results,
// oldest first.
func (e *Engine) CalibrationHistory() []trial.CalibrationResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]trial.CalibrationResult, len(e.calibrations))
	copy(out, e.calibrations)
	return out
}
