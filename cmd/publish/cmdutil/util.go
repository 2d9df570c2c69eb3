// Package cmdutil provides shared utilities for publish commands.
package cmdutil

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/pkg/config"
	"github.com/scott-wilson/publish/pkg/history"
	"github.com/scott-wilson/publish/pkg/history/badger"
	"github.com/spf13/cobra"
)

// LoadConfig loads the configuration named by the persistent --config flag.
// Without a config file the defaults are used.
func LoadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// OpenHistory opens the run history database described by cfg.
func OpenHistory(cfg *config.Config) (history.Store, error) {
	if !cfg.History.Enabled {
		return nil, fmt.Errorf("run history is disabled (history.enabled: false)")
	}
	store, err := badger.Open(badger.Options{Path: cfg.History.Path})
	if err != nil {
		return nil, fmt.Errorf("failed to open run history at %s: %w", cfg.History.Path, err)
	}
	return store, nil
}

// NewPrinter returns a printer writing to the command's stdout in the given
// format.
func NewPrinter(cmd *cobra.Command, format string) (*output.Printer, error) {
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(cmd.OutOrStdout(), f), nil
}

// PrintOutput prints data with p. In table format emptyMsg is printed
// instead of an empty table.
func PrintOutput(p *output.Printer, data any, isEmpty bool, emptyMsg string) error {
	if p.Format() == output.FormatTable && isEmpty {
		p.Printf("%s\n", emptyMsg)
		return nil
	}
	return p.Print(data)
}

// WriteSchema writes schema as indented JSON to path, or to the command's
// stdout when path is empty.
func WriteSchema(cmd *cobra.Command, schema *jsonschema.Schema, path string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if path == "" {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write schema file: %w", err)
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "JSON schema written to %s\n", path)
	return nil
}
