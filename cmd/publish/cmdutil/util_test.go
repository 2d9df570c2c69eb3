package cmdutil

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/config"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type names []string

func (n names) Headers() []string { return []string{"NAME"} }

func (n names) Rows() [][]string {
	rows := make([][]string, 0, len(n))
	for _, name := range n {
		rows = append(rows, []string{name})
	}
	return rows
}

func TestPrintOutputEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatTable)
	require.NoError(t, PrintOutput(p, names{}, true, "No runs recorded."))
	assert.Equal(t, "No runs recorded.\n", buf.String())
}

func TestPrintOutputEmptyJSON(t *testing.T) {
	var buf bytes.Buffer
	p := output.NewPrinter(&buf, output.FormatJSON)
	require.NoError(t, PrintOutput(p, names{}, true, "No runs recorded."))
	assert.JSONEq(t, `[]`, buf.String())
}

func TestNewPrinterRejectsUnknownFormat(t *testing.T) {
	_, err := NewPrinter(&cobra.Command{}, "xml")
	assert.Error(t, err)
}

func TestOpenHistory(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.History.Path = filepath.Join(t.TempDir(), "history")

	store, err := OpenHistory(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	cfg.History.Enabled = false
	_, err = OpenHistory(cfg)
	assert.Error(t, err)
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd := &cobra.Command{}
	cmd.Flags().String("config", "", "")

	cfg, err := LoadConfig(cmd)
	require.NoError(t, err)
	assert.True(t, cfg.History.Enabled)
}
