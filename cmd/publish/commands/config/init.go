package config

import (
	"fmt"

	"github.com/scott-wilson/publish/pkg/config"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file",
	Long: `Create a publish configuration file with the default settings.

By default, the configuration file is created at $XDG_CONFIG_HOME/publish/config.yaml.
Use --config to specify a custom path.

Examples:
  # Initialize with default location
  publish config init

  # Initialize with custom path
  publish config init --config /etc/publish/config.yaml

  # Force overwrite existing config
  publish config init --force`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Force overwrite existing config file")
}

func runInit(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")

	var configPath string
	var err error

	if configFile != "" {
		err = config.InitConfigToPath(configFile, initForce)
		configPath = configFile
	} else {
		configPath, err = config.InitConfig(initForce)
	}

	if err != nil {
		return fmt.Errorf("failed to initialize config: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file created at: %s\n", configPath)
	_, _ = fmt.Fprintln(out, "\nNext steps:")
	_, _ = fmt.Fprintln(out, "  1. Set object_store credentials if manifests upload to a bucket")
	_, _ = fmt.Fprintln(out, "  2. Check a manifest with: publish validate <manifest>")
	_, _ = fmt.Fprintln(out, "  3. Publish it with:       publish run <manifest>")
	return nil
}
