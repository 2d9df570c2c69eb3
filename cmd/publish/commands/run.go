package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/scott-wilson/publish/cmd/publish/cmdutil"
	"github.com/scott-wilson/publish/internal/cli/output"
	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/pkg/config"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/scott-wilson/publish/pkg/history"
	"github.com/scott-wilson/publish/pkg/metrics"
	"github.com/scott-wilson/publish/pkg/publish"
	"github.com/scott-wilson/publish/pkg/publish/manifest"
	"github.com/scott-wilson/publish/pkg/transaction/filesystem"
	"github.com/scott-wilson/publish/pkg/transaction/objectstore"
	"github.com/spf13/cobra"
)

var (
	runStageTimeout time.Duration
	runMaxParallel  int
	runID           string
	runName         string
)

var runCmd = &cobra.Command{
	Use:   "run <manifest>",
	Short: "Publish a manifest",
	Long: `Run the three stages of a publish manifest.

Each stage builds its transactions and commits them. When a stage fails,
its partial work and every committed stage are rolled back in reverse order.
If a rollback itself fails the targets are left partially published and need
manual repair.

The finished run is recorded in the run history unless history is disabled.

Examples:
  # Publish a manifest
  publish run asset.yaml

  # Bound each stage to 30 seconds and 4 concurrent transactions
  publish run asset.yaml --stage-timeout 30s --max-parallel 4

  # Use a specific config file
  publish run asset.yaml --config /etc/publish/config.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	runCmd.Flags().DurationVar(&runStageTimeout, "stage-timeout", 0, "Bound each stage invocation (overrides runner.stage_timeout)")
	runCmd.Flags().IntVar(&runMaxParallel, "max-parallel", 0, "Bound concurrent transactions per group (overrides runner.max_parallel)")
	runCmd.Flags().StringVar(&runID, "run-id", "", "Run identifier (default: random UUID)")
	runCmd.Flags().StringVar(&runName, "name", "", "Run name (default: manifest name)")
}

func runPublish(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("stage-timeout") {
		cfg.Runner.StageTimeout = runStageTimeout
	}
	if cmd.Flags().Changed("max-parallel") {
		cfg.Runner.MaxParallel = runMaxParallel
	}
	if cfg.Runner.StageTimeout < 0 || cfg.Runner.MaxParallel < 0 {
		return fmt.Errorf("--stage-timeout and --max-parallel must not be negative")
	}

	if err := InitLogger(cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdown, err := initObservability(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		// The run context may be cancelled by now; flushing must still happen.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(flushCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", logger.KeyError, err.Error())
		}
	}()

	manifestPath, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("failed to resolve manifest path: %w", err)
	}
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return err
	}

	p, err := newManifestPublisher(m, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := p.Close(); err != nil {
			logger.Warn("Failed to release filesystem roots", logger.KeyError, err.Error())
		}
	}()

	initial, err := m.InitialContext()
	if err != nil {
		return err
	}

	name := runName
	if name == "" {
		name = m.Name
	}

	var report publish.Report
	opts := []publish.Option{
		publish.WithName(name),
		publish.WithReport(&report),
		publish.WithStageTimeout(cfg.Runner.StageTimeout),
		publish.WithMaxParallel(cfg.Runner.MaxParallel),
		publish.WithMetrics(metrics.NewPublishMetrics()),
	}
	if runID != "" {
		opts = append(opts, publish.WithRunID(runID))
	}

	_, runErr := publish.Run[publish.Context](ctx, p, initial, opts...)

	// Bookkeeping must not be skipped because the run was interrupted.
	recordRun(context.WithoutCancel(ctx), cfg, name, manifestPath, &report)
	if err := metrics.WriteTextfile(cfg.Metrics.Textfile); err != nil {
		logger.Warn("Failed to export metrics", logger.KeyError, err.Error())
	}

	printer := output.NewPrinter(cmd.OutOrStdout(), output.FormatTable)
	printRunResult(printer, &report)

	if runErr != nil {
		if errors.Is(runErr, puberrors.ErrRollback) {
			printer.Warning("Rollback failed: targets may be partially published and need manual repair.")
		}
		return fmt.Errorf("run %s failed: %w", report.RunID, runErr)
	}
	return nil
}

// newManifestPublisher wires the configured filesystem tuning, object store
// client and metrics into a manifest publisher.
func newManifestPublisher(m *manifest.Manifest, cfg *config.Config) (*manifest.Publisher, error) {
	clientCfg := cfg.ObjectStore.ClientConfig()
	return manifest.New(m,
		manifest.WithFilesystemOptions(
			filesystem.WithMaxParallel(cfg.Filesystem.MaxParallel),
			filesystem.WithMaxOpenFiles(cfg.Filesystem.MaxOpenFiles),
			filesystem.WithMetrics(metrics.NewFilesystemMetrics()),
		),
		manifest.WithObjectStore(
			func(ctx context.Context) (objectstore.Client, error) {
				return objectstore.NewClient(ctx, clientCfg)
			},
			objectstore.WithRegion(clientCfg.Region),
			objectstore.WithMetrics(metrics.NewObjectStoreMetrics()),
			objectstore.WithMaxCaptureSize(cfg.ObjectStore.MaxCaptureSize.Int64()),
		),
	)
}

// recordRun stores the finished run. Failures are logged; the run result
// stands on its own.
func recordRun(ctx context.Context, cfg *config.Config, name, manifestPath string, report *publish.Report) {
	if !cfg.History.Enabled || report.RunID == "" {
		return
	}
	store, err := cmdutil.OpenHistory(cfg)
	if err != nil {
		logger.Warn("Run not recorded", logger.RunID(report.RunID), logger.Err(err))
		return
	}
	defer func() { _ = store.Close() }()

	if err := store.Put(ctx, history.FromReport(name, manifestPath, report)); err != nil {
		logger.Warn("Run not recorded", logger.RunID(report.RunID), logger.Err(err))
	}
}

func printRunResult(p *output.Printer, report *publish.Report) {
	_ = output.PrintDetails(p.Writer(), [][2]string{
		{"Run", report.RunID},
		{"Name", report.Name},
		{"Outcome", string(report.Outcome)},
		{"Duration", output.FormatDuration(report.Duration())},
	})

	if report.Outcome == publish.OutcomeSucceeded {
		p.Success("Published.")
	}
}
