package manifest

import (
	"github.com/scott-wilson/publish/cmd/publish/cmdutil"
	"github.com/scott-wilson/publish/pkg/publish/manifest"
	"github.com/spf13/cobra"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schema for publish manifests",
	Long: `Generate a JSON schema for publish manifests.

Point your editor's YAML language server at the schema to get completion
and validation while writing manifests.

Examples:
  # Print schema to stdout
  publish manifest schema

  # Save schema to file
  publish manifest schema --output manifest.schema.json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return cmdutil.WriteSchema(cmd, manifest.Schema(), schemaOutput)
	},
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Output file (default: stdout)")
}
