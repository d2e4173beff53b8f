package core

import (
	"errors"
	"fmt"
)

// Domain errors - centralized error definitions
var (
	// Generation errors - fatal to the current trial attempt
	ErrEntropyExhausted = errors.New("entropy source failure")
	ErrTrialRejected    = errors.New("generated trial failed validation")

	// Engine lifecycle errors
	ErrEngineDestroyed  = errors.New("engine has been destroyed")
	ErrEngineRunning    = errors.New("engine is already running")
	ErrEngineNotRunning = errors.New("engine is not running")

	// Configuration errors - fail fast, never clamp silently
	ErrConfigInvalid = errors.New("invalid engine configuration")

	// Statistics errors
	ErrInsufficientData = errors.New("insufficient data for analysis")
)

// Error constructors with context
func NewConfigError(field string, reason string) error {
	return fmt.Errorf("%w: %s %s", ErrConfigInvalid, field, reason)
}

func NewGenerationError(cause error) error {
	return fmt.Errorf("%w: %v", ErrEntropyExhausted, cause)
}

// Error checking helpers
func IsGenerationError(err error) bool {
	return errors.Is(err, ErrEntropyExhausted) || errors.Is(err, ErrTrialRejected)
}

func IsConfigError(err error) bool {
	return errors.Is(err, ErrConfigInvalid)
}
