package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level is a log severity as written in configuration.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel parses DEBUG, INFO, WARN or ERROR, case-insensitively.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Config holds logger configuration
type Config struct {
	Level  string // DEBUG, INFO, WARN, ERROR
	Format string // text, json
	Output string // stdout, stderr, or file path
}

var (
	// level is shared by every handler, so changing it never rebuilds one.
	level        slog.LevelVar
	currentLevel atomic.Int32
	jsonFormat   atomic.Bool

	mu       sync.RWMutex
	slogger  *slog.Logger
	output   io.Writer = os.Stderr
	logFile  *os.File
	useColor bool
)

func init() {
	useColor = colorFor(os.Stderr)
	SetLevel("INFO")
	reconfigure()
}

// colorFor reports whether w is a terminal that should get ANSI colors.
func colorFor(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return isTerminal(f.Fd())
}

// reconfigure rebuilds the handler for the current output and format.
func reconfigure() {
	mu.Lock()
	defer mu.Unlock()

	opts := &slog.HandlerOptions{Level: &level}
	var h slog.Handler
	if jsonFormat.Load() {
		h = slog.NewJSONHandler(output, opts)
	} else {
		h = NewTextHandler(output, opts, useColor)
	}
	slogger = slog.New(h)
}

// Init configures the process logger. Output is "stdout", "stderr" or a
// file path opened for appending; a previously opened log file is closed.
func Init(cfg Config) error {
	if cfg.Output != "" {
		if err := setOutput(cfg.Output); err != nil {
			return err
		}
	}
	if cfg.Level != "" {
		SetLevel(cfg.Level)
	}
	if cfg.Format != "" {
		SetFormat(cfg.Format)
	}
	reconfigure()
	return nil
}

func setOutput(dest string) error {
	var (
		w    io.Writer
		file *os.File
	)
	switch strings.ToLower(dest) {
	case "stdout":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open log file %q: %w", dest, err)
		}
		w, file = f, f
	}

	mu.Lock()
	previous := logFile
	output, logFile = w, file
	useColor = file == nil && colorFor(w)
	mu.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

// InitWithWriter sends log output to w. Used by tests and embedding code.
func InitWithWriter(w io.Writer, lvl, format string, enableColor bool) {
	mu.Lock()
	output = w
	useColor = enableColor
	mu.Unlock()

	if lvl != "" {
		SetLevel(lvl)
	}
	if format != "" {
		SetFormat(format)
	}
	reconfigure()
}

// SetLevel sets the minimum level. Unknown levels are ignored.
func SetLevel(name string) {
	l, err := ParseLevel(name)
	if err != nil {
		return
	}
	currentLevel.Store(int32(l))
	level.Set(l.toSlog())
}

// CurrentLevel returns the minimum level being logged.
func CurrentLevel() Level {
	return Level(currentLevel.Load())
}

// SetFormat switches between "text" and "json". Unknown formats are ignored.
func SetFormat(format string) {
	switch strings.ToLower(format) {
	case "json":
		jsonFormat.Store(true)
	case "text":
		jsonFormat.Store(false)
	default:
		return
	}
	reconfigure()
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return slogger
}

func write(ctx context.Context, lvl slog.Level, msg string, args []any) {
	l := getLogger()
	if !l.Enabled(ctx, lvl) {
		return
	}
	l.Log(ctx, lvl, msg, appendContextFields(ctx, args)...)
}

// Debug logs msg with key/value pairs.
func Debug(msg string, args ...any) { write(context.Background(), slog.LevelDebug, msg, args) }

// Info logs msg with key/value pairs.
func Info(msg string, args ...any) { write(context.Background(), slog.LevelInfo, msg, args) }

// Warn logs msg with key/value pairs.
func Warn(msg string, args ...any) { write(context.Background(), slog.LevelWarn, msg, args) }

// Error logs msg with key/value pairs.
func Error(msg string, args ...any) { write(context.Background(), slog.LevelError, msg, args) }

// DebugCtx logs like Debug, prefixed with the run fields of ctx's LogContext.
func DebugCtx(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelDebug, msg, args)
}

// InfoCtx logs like Info, prefixed with the run fields of ctx's LogContext.
func InfoCtx(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelInfo, msg, args)
}

// WarnCtx logs like Warn, prefixed with the run fields of ctx's LogContext.
func WarnCtx(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelWarn, msg, args)
}

// ErrorCtx logs like Error, prefixed with the run fields of ctx's LogContext.
func ErrorCtx(ctx context.Context, msg string, args ...any) {
	write(ctx, slog.LevelError, msg, args)
}

// appendContextFields puts the LogContext fields ahead of args so every line
// of a run starts with the same keys.
func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	fields := [...]struct{ key, value string }{
		{KeyTraceID, lc.TraceID},
		{KeySpanID, lc.SpanID},
		{KeyRunID, lc.RunID},
		{KeyPublish, lc.Publish},
		{KeyStage, lc.Stage},
		{KeyTransaction, lc.Transaction},
	}
	out := make([]any, 0, 2*len(fields)+len(args))
	for _, f := range fields {
		if f.value != "" {
			out = append(out, f.key, f.value)
		}
	}
	return append(out, args...)
}

// With returns a logger with args bound to every record.
func With(args ...any) *slog.Logger {
	return getLogger().With(args...)
}

// Duration returns the time since start in milliseconds.
func Duration(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000.0
}
