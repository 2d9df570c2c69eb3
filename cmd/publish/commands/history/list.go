package history

import (
	"github.com/scott-wilson/publish/cmd/publish/cmdutil"
	"github.com/spf13/cobra"
)

var (
	listLimit  int
	listOutput string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Long: `List recorded runs, newest first.

Examples:
  # Last 20 runs
  publish history list

  # Every run as JSON
  publish history list --limit 0 -o json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum number of runs (0 for all)")
	listCmd.Flags().StringVarP(&listOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runList(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.NewPrinter(cmd, listOutput)
	if err != nil {
		return err
	}

	cfg, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := cmdutil.OpenHistory(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.List(cmd.Context(), listLimit)
	if err != nil {
		return err
	}
	return cmdutil.PrintOutput(printer, RunList(records), len(records) == 0, "No runs recorded.")
}
