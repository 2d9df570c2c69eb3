// Package commands implements the publish command-line interface.
package commands

import (
	"github.com/scott-wilson/publish/cmd/publish/commands/config"
	"github.com/scott-wilson/publish/cmd/publish/commands/history"
	"github.com/scott-wilson/publish/cmd/publish/commands/manifest"
	"github.com/spf13/cobra"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"

	// Global flags.
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "publish",
	Short: "Transactional publishing of files and objects",
	Long: `publish commits a set of filesystem and object store changes in three
stages (pre-publish, publish, post-publish). When any stage fails every
committed change is rolled back in reverse order.

The changes are described by a YAML manifest. See "publish manifest schema".

Use "publish [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/publish/config.yaml)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(config.Cmd)
	rootCmd.AddCommand(history.Cmd)
	rootCmd.AddCommand(manifest.Cmd)
}
