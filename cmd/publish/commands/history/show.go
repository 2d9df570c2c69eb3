package history

import (
	"errors"
	"fmt"

	"github.com/scott-wilson/publish/cmd/publish/cmdutil"
	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/history"
	"github.com/spf13/cobra"
)

var showOutput string

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one run and its stages",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().StringVarP(&showOutput, "output", "o", "table", "Output format (table|json|yaml)")
}

func runShow(cmd *cobra.Command, args []string) error {
	printer, err := cmdutil.NewPrinter(cmd, showOutput)
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

	rec, err := store.Get(cmd.Context(), args[0])
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("run %q not found", args[0])
	}
	if err != nil {
		return err
	}

	if printer.Format() != output.FormatTable {
		return printer.Print(rec)
	}

	w := printer.Writer()
	_ = output.PrintDetails(w, [][2]string{
		{"Run", rec.ID},
		{"Name", orDash(rec.Name)},
		{"Manifest", orDash(rec.Manifest)},
		{"Outcome", rec.Outcome},
		{"Started", output.FormatTime(rec.StartedAt) + " (" + age(rec.StartedAt) + ")"},
		{"Duration", output.FormatDuration(rec.Duration())},
		{"Error", orDash(rec.Error)},
	})
	printer.Printf("\n")
	return output.PrintTable(w, StageList(rec.Stages))
}
