package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: G4BUILD_[SECTION]_[KEY] (e.g., G4BUILD_TOOL_JAR).
func ApplyEnvOverrides(cfg *Config) {
	// Paths
	setEnvString(&cfg.Paths.ProjectRoot, "G4BUILD_PATHS_PROJECT_ROOT")
	setEnvString(&cfg.Paths.StateDir, "G4BUILD_PATHS_STATE_DIR")

	// Tool
	setEnvString(&cfg.Tool.Runtime, "G4BUILD_TOOL_RUNTIME")
	setEnvString(&cfg.Tool.Jar, "G4BUILD_TOOL_JAR")
	setEnvList(&cfg.Tool.Flags, "G4BUILD_TOOL_FLAGS")
	setEnvList(&cfg.Tool.Detect, "G4BUILD_TOOL_DETECT")

	// Watch
	setEnvDuration(&cfg.Watch.Debounce, "G4BUILD_WATCH_DEBOUNCE")
	setEnvFloat64(&cfg.Watch.Rate, "G4BUILD_WATCH_RATE")
	setEnvInt(&cfg.Watch.Burst, "G4BUILD_WATCH_BURST")

	// Database
	setEnvBoolPtr(&cfg.DB.Enabled, "G4BUILD_DB_ENABLED")
	setEnvString(&cfg.DB.Path, "G4BUILD_DB_PATH")

	// Observability
	setEnvBool(&cfg.Observability.Enabled, "G4BUILD_OBSERVABILITY_ENABLED")
	setEnvString(&cfg.Observability.Address, "G4BUILD_OBSERVABILITY_ADDRESS")
	setEnvString(&cfg.Observability.OTLPEndpoint, "G4BUILD_OBSERVABILITY_OTLP_ENDPOINT")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvList splits on whitespace, so list entries cannot contain spaces.
func setEnvList(target *[]string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = strings.Fields(val)
	}
}

func setEnvInt(target *int, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = i
		}
	}
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = b
		}
	}
}

func setEnvBoolPtr(target **bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.ToLower(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = &b
		}
	}
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(val); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
