package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/grafana/pyroscope-go"

	"github.com/scott-wilson/publish/internal/logger"
)

// Profile label keys attached to samples taken while a run is in progress.
const (
	ProfileLabelRunID   = "run_id"
	ProfileLabelPublish = "publish"
	ProfileLabelStage   = "stage"
)

// DefaultProfileTypes is used when ProfilingConfig.ProfileTypes is empty.
var DefaultProfileTypes = []string{"cpu", "alloc_space", "inuse_space"}

// ProfilingConfig configures Pyroscope profiling of a publish process.
type ProfilingConfig struct {
	Enabled        bool
	ServiceName    string
	ServiceVersion string

	// Endpoint is the Pyroscope server URL, e.g. "http://localhost:4040".
	Endpoint string

	// ProfileTypes selects the collected profiles. See ParseProfileTypes.
	ProfileTypes []string

	// Tags are attached to every uploaded profile in addition to the version.
	Tags map[string]string
}

var profilingEnabled atomic.Bool

// InitProfiling starts the profiler. Profile types are validated before
// anything is started. The returned stop function flushes pending profiles;
// a publish process is short-lived so it must be called before exit.
func InitProfiling(cfg ProfilingConfig) (stop func() error, err error) {
	if !cfg.Enabled {
		profilingEnabled.Store(false)
		return func() error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("profiling endpoint is required")
	}

	names := cfg.ProfileTypes
	if len(names) == 0 {
		names = DefaultProfileTypes
	}
	types, err := ParseProfileTypes(names)
	if err != nil {
		return nil, err
	}
	enableRuntimeProfiles(types)

	tags := map[string]string{"version": cfg.ServiceVersion}
	for k, v := range cfg.Tags {
		tags[k] = v
	}

	profiler, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: cfg.ServiceName,
		ServerAddress:   cfg.Endpoint,
		Tags:            tags,
		ProfileTypes:    types,
		Logger:          profilerLogger{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start Pyroscope profiler: %w", err)
	}
	profilingEnabled.Store(true)

	return func() error {
		profilingEnabled.Store(false)
		return profiler.Stop()
	}, nil
}

// IsProfilingEnabled reports whether a profiler is running.
func IsProfilingEnabled() bool {
	return profilingEnabled.Load()
}

// Profile runs fn with the given key/value labels attached to its samples.
// Without a running profiler fn is called directly.
func Profile(ctx context.Context, fn func(context.Context), labels ...string) {
	if !profilingEnabled.Load() || len(labels) < 2 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(labels...), fn)
}

// ParseProfileTypes converts profile type names, case-insensitively, into
// Pyroscope profile types. Duplicates are collapsed.
func ParseProfileTypes(names []string) ([]pyroscope.ProfileType, error) {
	seen := make(map[pyroscope.ProfileType]bool, len(names))
	out := make([]pyroscope.ProfileType, 0, len(names))
	for _, name := range names {
		pt, ok := profileTypes[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("unknown profile type %q", name)
		}
		if !seen[pt] {
			seen[pt] = true
			out = append(out, pt)
		}
	}
	return out, nil
}

var profileTypes = map[string]pyroscope.ProfileType{
	"cpu":            pyroscope.ProfileCPU,
	"alloc_objects":  pyroscope.ProfileAllocObjects,
	"alloc_space":    pyroscope.ProfileAllocSpace,
	"inuse_objects":  pyroscope.ProfileInuseObjects,
	"inuse_space":    pyroscope.ProfileInuseSpace,
	"goroutines":     pyroscope.ProfileGoroutines,
	"mutex_count":    pyroscope.ProfileMutexCount,
	"mutex_duration": pyroscope.ProfileMutexDuration,
	"block_count":    pyroscope.ProfileBlockCount,
	"block_duration": pyroscope.ProfileBlockDuration,
}

// enableRuntimeProfiles turns on the runtime sampling that mutex and block
// profiles depend on. Filesystem commits contend on the open-file semaphore,
// which is what these profiles show.
func enableRuntimeProfiles(types []pyroscope.ProfileType) {
	for _, pt := range types {
		switch pt {
		case pyroscope.ProfileMutexCount, pyroscope.ProfileMutexDuration:
			runtime.SetMutexProfileFraction(5)
		case pyroscope.ProfileBlockCount, pyroscope.ProfileBlockDuration:
			runtime.SetBlockProfileRate(5)
		}
	}
}

// profilerLogger routes profiler diagnostics through the process logger.
type profilerLogger struct{}

func (profilerLogger) Infof(format string, args ...any) {
	pyroscopeLog().Debug(fmt.Sprintf(format, args...))
}

func (profilerLogger) Debugf(format string, args ...any) {
	pyroscopeLog().Debug(fmt.Sprintf(format, args...))
}

func (profilerLogger) Errorf(format string, args ...any) {
	pyroscopeLog().Warn(fmt.Sprintf(format, args...))
}

// pyroscopeLog is looked up per call so it follows logger reconfiguration.
func pyroscopeLog() *slog.Logger {
	return logger.With(logger.KeyComponent, "pyroscope")
}
