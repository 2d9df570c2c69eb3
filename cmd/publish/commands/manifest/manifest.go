// Package manifest implements manifest subcommands.
package manifest

import (
	"github.com/spf13/cobra"
)

// Cmd is the manifest subcommand.
var Cmd = &cobra.Command{
	Use:   "manifest",
	Short: "Publish manifest tools",
	Long: `Tools for writing publish manifests.

Use 'publish validate <manifest>' to check a manifest.

Subcommands:
  schema    Generate JSON schema for IDE/validation`,
}

func init() {
	Cmd.AddCommand(schemaCmd)
}
