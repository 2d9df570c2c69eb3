package config

import (
	"fmt"

	"github.com/scott-wilson/publish/pkg/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the publish configuration file.

Checks for syntax errors, missing required fields, and invalid values.

Examples:
  # Validate default config
  publish config validate

  # Validate specific config file
  publish config validate --config /etc/publish/config.yaml`,
	RunE: runConfigValidate,
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	displayPath := configPath
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	var warnings []string
	if !cfg.History.Enabled {
		warnings = append(warnings, "Run history is disabled - 'publish history' will not work")
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Textfile == "" {
		warnings = append(warnings, "Metrics are enabled but metrics.textfile is not set - nothing will be exported")
	}
	if cfg.ObjectStore.Endpoint != "" && !cfg.ObjectStore.UsePathStyle {
		warnings = append(warnings, "Custom object store endpoint without use_path_style - most S3-compatible servers need it")
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  Log level:       %s\n", cfg.Logging.Level)
	_, _ = fmt.Fprintf(out, "  Stage timeout:   %s\n", cfg.Runner.StageTimeout)
	_, _ = fmt.Fprintf(out, "  History path:    %s\n", cfg.History.Path)
	_, _ = fmt.Fprintf(out, "  Object region:   %s\n", cfg.ObjectStore.Region)

	return nil
}
