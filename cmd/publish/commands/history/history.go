// Package history implements run history subcommands.
package history

import (
	"fmt"
	"time"

	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/history"
	"github.com/spf13/cobra"
)

// Cmd is the history subcommand.
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect past runs",
	Long: `Inspect runs recorded by 'publish run'.

Subcommands:
  list      List recent runs
  show      Show one run and its stages`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(showCmd)
}

// RunList renders history records as a table.
type RunList []history.Record

func (l RunList) Headers() []string {
	return []string{"ID", "NAME", "OUTCOME", "STARTED", "DURATION"}
}

func (l RunList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{
			r.ID,
			orDash(r.Name),
			r.Outcome,
			output.FormatTime(r.StartedAt),
			output.FormatDuration(r.Duration()),
		})
	}
	return rows
}

// StageList renders the stages of one run as a table.
type StageList []history.StageRecord

func (l StageList) Headers() []string {
	return []string{"STAGE", "TRANSACTIONS", "COMMITTED", "ROLLED BACK", "DURATION", "ERROR"}
}

func (l StageList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, s := range l {
		rows = append(rows, []string{
			s.Stage,
			fmt.Sprint(s.Transactions),
			yesNo(s.Committed),
			yesNo(s.RolledBack),
			output.FormatDuration(s.Duration),
			orDash(s.Error),
		})
	}
	return rows
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func age(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return output.FormatDuration(time.Since(t).Truncate(time.Second)) + " ago"
}
