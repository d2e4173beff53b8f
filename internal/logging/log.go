package logging

import (
	"log"
	"os"
)

// Level represents logging verbosity
type Level int

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

// Logger provides leveled logging with a component prefix. Constructed and
// injected explicitly; the engine never reaches for a process-wide instance.
type Logger struct {
	level  Level
	prefix string
}

// New creates a logger for a named component at the given level
func New(component string, level Level) *Logger {
	return &Logger{level: level, prefix: "[" + component + "] "}
}

// NewFromEnv creates a logger whose level comes from the LOG_LEVEL
// environment variable (ERROR, WARN, INFO, DEBUG); defaults to INFO.
func NewFromEnv(component string) *Logger {
	level := LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "ERROR":
		level = LevelError
	case "WARN":
		level = LevelWarn
	case "INFO":
		level = LevelInfo
	case "DEBUG":
		level = LevelDebug
	}
	return New(component, level)
}

// Error logs error messages
func (l *Logger) Error(format string, args ...interface{}) {
	if l.level >= LevelError {
		log.Printf("[ERROR] "+l.prefix+format, args...)
	}
}

// Warn logs warning messages
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.level >= LevelWarn {
		log.Printf("[WARN] "+l.prefix+format, args...)
	}
}

// Info logs info messages
func (l *Logger) Info(format string, args ...interface{}) {
	if l.level >= LevelInfo {
		log.Printf("[INFO] "+l.prefix+format, args...)
	}
}

// Debug logs debug messages
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.level >= LevelDebug {
		log.Printf("[DEBUG] "+l.prefix+format, args...)
	}
}

// Level returns the configured level
func (l *Logger) Level() Level {
	return l.level
}
