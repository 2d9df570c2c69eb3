package config

import (
	"github.com/scott-wilson/publish/cmd/publish/cmdutil"
	"github.com/scott-wilson/publish/pkg/config"
	"github.com/spf13/cobra"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for configuration",
	Long: `Generate a JSON schema for the publish configuration file.

Durations are described as strings ("30s") and byte sizes as strings or
integers ("256MiB", 268435456).

Examples:
  # Print schema to stdout
  publish config schema

  # Save schema to file
  publish config schema --output config.schema.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmdutil.WriteSchema(cmd, config.Schema(), schemaOutput)
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")
}
