package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ID represents a domain identifier
type ID string

// NewID creates a new unique identifier using UUID v7 for time-ordered generation
func NewID() ID {
	// Use UUID v7 for time-ordered, sortable IDs
	// Falls back to v4 if v7 is not available (for compatibility)
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return ID(id.String())
}

// String returns the string representation
func (id ID) String() string {
	return string(id)
}

// IsEmpty checks if the ID is empty
func (id ID) IsEmpty() bool {
	return id == ""
}

// IsUUID reports whether the ID has canonical UUID shape
func (id ID) IsUUID() bool {
	_, err := uuid.Parse(string(id))
	return err == nil
}

// Domain-specific ID types
type (
	SessionID     ID
	CalibrationID ID
)

// String conversions for domain IDs
func (id SessionID) String() string     { return ID(id).String() }
func (id CalibrationID) String() string { return ID(id).String() }

// IsEmpty checks for the zero session
func (id SessionID) IsEmpty() bool { return ID(id).IsEmpty() }

// IsUUID reports whether the session ID has canonical UUID shape
func (id SessionID) IsUUID() bool { return ID(id).IsUUID() }

// NewSessionID creates a fresh session identifier
func NewSessionID() SessionID { return SessionID(NewID()) }

// NewCalibrationID creates a fresh calibration identifier
func NewCalibrationID() CalibrationID { return CalibrationID(NewID()) }

// ParseSessionID parses a string into SessionID
func ParseSessionID(s string) (SessionID, error) {
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("session ID cannot be empty")
	}
	if _, err := uuid.Parse(s); err != nil {
		return "", fmt.Errorf("session ID must be a UUID: %w", err)
	}
	return SessionID(s), nil
}
