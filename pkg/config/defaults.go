package config

import (
	"strings"

	"github.com/scott-wilson/publish/internal/bytesize"
	"github.com/scott-wilson/publish/internal/telemetry"
	"github.com/scott-wilson/publish/pkg/transaction/filesystem"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans are left alone; history.enabled defaults to true at load time
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyFilesystemDefaults(&cfg.Filesystem)
	applyHistoryDefaults(&cfg.History)
	applyObjectStoreDefaults(&cfg.ObjectStore)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stderr"
	}
}

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}

	applyProfilingDefaults(&cfg.Profiling)
}

// applyProfilingDefaults sets Pyroscope profiling defaults.
func applyProfilingDefaults(cfg *ProfilingConfig) {
	// Default endpoint is localhost:4040 (standard Pyroscope port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:4040"
	}

	if len(cfg.ProfileTypes) == 0 {
		cfg.ProfileTypes = append([]string(nil), telemetry.DefaultProfileTypes...)
	}
}

// applyFilesystemDefaults sets filesystem transaction defaults.
func applyFilesystemDefaults(cfg *FilesystemConfig) {
	if cfg.MaxOpenFiles == 0 {
		cfg.MaxOpenFiles = filesystem.DefaultMaxOpenFiles
	}
}

// applyHistoryDefaults sets run history defaults.
func applyHistoryDefaults(cfg *HistoryConfig) {
	if cfg.Path == "" {
		cfg.Path = GetDefaultHistoryPath()
	}
}

// applyObjectStoreDefaults sets object store defaults.
func applyObjectStoreDefaults(cfg *ObjectStoreConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.MaxCaptureSize == 0 {
		cfg.MaxCaptureSize = 256 * bytesize.MiB
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		History: HistoryConfig{
			Enabled: true,
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
