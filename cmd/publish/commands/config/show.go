package config

import (
	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/config"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	Long: `Display the effective publish configuration, defaults included.

Static credentials are masked.

Examples:
  # Show default config as YAML
  publish config show

  # Show as JSON
  publish config show --output json`,
	RunE: runConfigShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "yaml", "Output format (yaml|json)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.MustLoad(configPath)
	if err != nil {
		return err
	}

	format, err := output.ParseFormat(showOutput)
	if err != nil {
		return err
	}
	if format == output.FormatTable {
		format = output.FormatYAML
	}

	shown := *cfg
	if shown.ObjectStore.SecretAccessKey != "" {
		shown.ObjectStore.SecretAccessKey = "********"
	}
	return output.NewPrinter(cmd.OutOrStdout(), format).Print(&shown)
}
