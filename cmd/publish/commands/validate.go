package commands

import (
	"fmt"

	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/publish/manifest"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate <manifest>",
	Short: "Validate a publish manifest",
	Long: `Validate a publish manifest without running it.

Checks YAML syntax, unknown fields, required fields, and that every entry
and action names exactly one operation. Filesystem roots and sources are not
accessed.

Examples:
  publish validate asset.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}

	stages := m.Stages
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Manifest: %s\n", args[0])
	_ = output.PrintDetails(out, [][2]string{
		{"Name", m.Name},
		{"Root", m.Root},
		{"pre_publish", fmt.Sprintf("%d entries", len(stages.PrePublish))},
		{"publish", fmt.Sprintf("%d entries", len(stages.Publish))},
		{"post_publish", fmt.Sprintf("%d entries", len(stages.PostPublish))},
	})
	output.NewPrinter(out, output.FormatTable).Success("Validation: OK")
	return nil
}
