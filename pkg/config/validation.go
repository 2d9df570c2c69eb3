package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/scott-wilson/publish/internal/telemetry"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// Log level normalization is handled in ApplyDefaults, not here. Validation
// accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Metrics.Textfile != "" && !cfg.Metrics.Enabled {
		return fmt.Errorf("metrics: textfile is set but metrics are disabled")
	}

	if cfg.History.Enabled && cfg.History.Path == "" {
		return fmt.Errorf("history: path is required when history is enabled")
	}

	// Static credentials come in pairs
	if (cfg.ObjectStore.AccessKeyID == "") != (cfg.ObjectStore.SecretAccessKey == "") {
		return fmt.Errorf("object_store: access_key_id and secret_access_key must be set together")
	}

	if cfg.Telemetry.Profiling.Enabled && cfg.Telemetry.Profiling.Endpoint == "" {
		return fmt.Errorf("telemetry.profiling: endpoint is required when profiling is enabled")
	}
	if _, err := telemetry.ParseProfileTypes(cfg.Telemetry.Profiling.ProfileTypes); err != nil {
		return fmt.Errorf("telemetry.profiling: %w", err)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
