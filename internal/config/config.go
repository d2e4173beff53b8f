package config

import (
	"os"
	"strconv"

	"goreg/domain/trial"
	"goreg/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Engine   trial.EngineConfiguration
	Server   ServerConfig
	Database DatabaseConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port    string
	Enabled bool
}

// DatabaseConfig holds the optional persistence settings. An empty URL runs
// the instrument without storage.
type DatabaseConfig struct {
	URL       string
	BatchSize int
}

// Load reads configuration from environment variables and validates it.
// Invalid values fail fast rather than being clamped.
func Load() (*Config, error) {
	engine, err := loadEngineConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load engine configuration")
	}

	cfg := &Config{
		Engine: engine,
		Server: ServerConfig{
			Port:    getEnvOrDefault("REG_HTTP_PORT", "8390"),
			Enabled: getEnvBoolOrDefault("REG_HTTP_ENABLED", true),
		},
		Database: DatabaseConfig{
			URL:       os.Getenv("DATABASE_URL"),
			BatchSize: 100,
		},
	}

	if v := os.Getenv("REG_DB_BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, errors.ConfigInvalid("REG_DB_BATCH_SIZE must be a positive integer")
		}
		cfg.Database.BatchSize = n
	}

	return cfg, nil
}

func loadEngineConfig() (trial.EngineConfiguration, error) {
	cfg := trial.DefaultConfiguration()

	if v := os.Getenv("REG_TARGET_RATE"); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.ConfigInvalid("REG_TARGET_RATE must be a number")
		}
		cfg.TargetRate = rate
	}
	if v := os.Getenv("REG_BITS_PER_TRIAL"); v != "" {
		bits, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.ConfigInvalid("REG_BITS_PER_TRIAL must be an integer")
		}
		cfg.BitsPerTrial = bits
	}
	if v := os.Getenv("REG_TIMING_TOLERANCE_MS"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return cfg, errors.ConfigInvalid("REG_TIMING_TOLERANCE_MS must be a number")
		}
		cfg.TimingTolerance = tol
	}
	if v := os.Getenv("REG_BUFFER_SIZE"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil {
			return cfg, errors.ConfigInvalid("REG_BUFFER_SIZE must be an integer")
		}
		cfg.BufferSize = size
	}
	cfg.DriftCompensation = getEnvBoolOrDefault("REG_DRIFT_COMPENSATION", cfg.DriftCompensation)
	cfg.QualityMonitoring = getEnvBoolOrDefault("REG_QUALITY_MONITORING", cfg.QualityMonitoring)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvBoolOrDefault(key string, fallback bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return fallback
}
