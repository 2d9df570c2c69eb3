package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureOutput redirects logger output to a buffer for testing.
// Returns the buffer and a cleanup function to restore original output.
func captureOutput() (*bytes.Buffer, func()) {
	buf := new(bytes.Buffer)

	mu.Lock()
	originalOutput := output
	originalColor := useColor
	output = buf
	useColor = false
	mu.Unlock()

	reconfigure()

	cleanup := func() {
		mu.Lock()
		output = originalOutput
		useColor = originalColor
		mu.Unlock()
		SetLevel("INFO")
		SetFormat("text")
	}

	return buf, cleanup
}

// ============================================================================
// Level Filtering Tests
// ============================================================================

func TestLevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		present []string
		absent  []string
	}{
		{"DEBUG", []string{"debug message", "info message", "warn message", "error message"}, nil},
		{"INFO", []string{"info message", "warn message", "error message"}, []string{"debug message"}},
		{"WARN", []string{"warn message", "error message"}, []string{"debug message", "info message"}},
		{"ERROR", []string{"error message"}, []string{"debug message", "info message", "warn message"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf, cleanup := captureOutput()
			defer cleanup()

			SetLevel(tt.level)

			Debug("debug message")
			Info("info message")
			Warn("warn message")
			Error("error message")

			out := buf.String()
			for _, s := range tt.present {
				assert.Contains(t, out, s)
			}
			for _, s := range tt.absent {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestSetLevelIgnoresInvalid(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("WARN")
	SetLevel("LOUD")

	Info("should be filtered")
	assert.Empty(t, buf.String())
	assert.Equal(t, LevelWarn, CurrentLevel())
}

func TestParseLevel(t *testing.T) {
	l, err := ParseLevel("warn")
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, l)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "UNKNOWN", Level(42).String())
}

// ============================================================================
// Formatting Tests
// ============================================================================

func TestTextFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("INFO")
	Info("Copied file", KeySource, "/src/a.txt", KeyTarget, "a.txt", KeyCount, 3)

	out := buf.String()
	assert.Contains(t, out, "[INFO] Copied file")
	assert.Contains(t, out, "source=/src/a.txt")
	assert.Contains(t, out, "target=a.txt")
	assert.Contains(t, out, "count=3")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestTextFormatQuotesValuesWithSpaces(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	Info("Stage failed", KeyError, "permission denied")
	assert.Contains(t, buf.String(), `error="permission denied"`)
}

func TestTextFormatGroups(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	l := With(KeyRunID, "r1").WithGroup("batch").With(KeyClass, "delete")
	l.Info("Batch done", slog.Group("stats", slog.Int("actions", 2)))

	out := buf.String()
	assert.Contains(t, out, "run_id=r1")
	assert.Contains(t, out, "batch.class=delete")
	assert.Contains(t, out, "batch.stats.actions=2")
}

func TestJSONFormat(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Info("Run finished", KeyRunID, "abc", KeyOutcome, "succeeded")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "Run finished", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "abc", entry["run_id"])
	assert.Equal(t, "succeeded", entry["outcome"])
}

func TestFormatSwitching(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	Info("first")
	SetFormat("text")
	Info("second")
	SetFormat("xml")
	Info("third")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	assert.Contains(t, lines[1], "[INFO] second")
	assert.Contains(t, lines[2], "[INFO] third")
}

// ============================================================================
// Context Logging Tests
// ============================================================================

func TestContextLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetFormat("json")
	lc := NewLogContext("run-1", "shot010").WithStage("publish").WithTransaction("filesystem")
	ctx := WithContext(context.Background(), lc)

	InfoCtx(ctx, "Committing", KeyCount, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "run-1", entry[KeyRunID])
	assert.Equal(t, "shot010", entry[KeyPublish])
	assert.Equal(t, "publish", entry[KeyStage])
	assert.Equal(t, "filesystem", entry[KeyTransaction])
	assert.EqualValues(t, 2, entry[KeyCount])
}

func TestContextLoggingWithoutLogContext(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	SetLevel("DEBUG")
	DebugCtx(context.Background(), "plain", KeyPath, "a")
	WarnCtx(context.Background(), "plain warn")
	ErrorCtx(context.Background(), "plain error")

	out := buf.String()
	assert.Contains(t, out, "path=a")
	assert.NotContains(t, out, KeyRunID)
	assert.Contains(t, out, "plain warn")
	assert.Contains(t, out, "plain error")
}

func TestLogContext(t *testing.T) {
	t.Run("FromContextNil", func(t *testing.T) {
		assert.Nil(t, FromContext(context.Background()))
		//nolint:staticcheck // nil context is part of the contract
		assert.Nil(t, FromContext(nil))
	})

	t.Run("BuildersDoNotMutate", func(t *testing.T) {
		base := NewLogContext("r", "p")
		staged := base.WithStage("pre_publish")
		traced := staged.WithTrace("t", "s")

		assert.Empty(t, base.Stage)
		assert.Equal(t, "pre_publish", staged.Stage)
		assert.Empty(t, staged.TraceID)
		assert.Equal(t, "t", traced.TraceID)
		assert.Equal(t, "s", traced.SpanID)
	})

	t.Run("NilBuilders", func(t *testing.T) {
		var lc *LogContext
		assert.Nil(t, lc.Clone())
		assert.Nil(t, lc.WithStage("publish"))
		assert.Zero(t, lc.DurationMs())
	})

	t.Run("DurationMs", func(t *testing.T) {
		lc := &LogContext{StartTime: time.Now().Add(-10 * time.Millisecond)}
		assert.GreaterOrEqual(t, lc.DurationMs(), 10.0)
	})
}

// ============================================================================
// Field Helper Tests
// ============================================================================

func TestFieldHelpers(t *testing.T) {
	assert.Equal(t, slog.String(KeyRunID, "x"), RunID("x"))
	assert.Equal(t, slog.String(KeyAction, "copy"), Action("copy"))
	assert.Equal(t, slog.String(KeyPath, "a/b"), Path("a/b"))
	assert.Equal(t, slog.String(KeySource, "s"), Source("s"))
	assert.Equal(t, slog.String(KeyTarget, "t"), Target("t"))
	assert.Equal(t, slog.String(KeyMode, "0755"), Mode(0o755))
	assert.Equal(t, slog.String(KeyMode, "0000"), Mode(0))
	assert.Equal(t, slog.String(KeyError, ""), Err(nil))
	assert.Equal(t, slog.String(KeyError, assert.AnError.Error()), Err(assert.AnError))
	assert.Equal(t, slog.Float64(KeyDurationMs, 1.5), DurationMs(1.5))
}

// ============================================================================
// Init Tests
// ============================================================================

func TestInitToFile(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	path := filepath.Join(t.TempDir(), "publish.log")
	require.NoError(t, Init(Config{Level: "DEBUG", Format: "json", Output: path}))

	Debug("to file", KeyPath, "x")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"to file"`)
}

func TestInitSwitchesLogFiles(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	require.NoError(t, Init(Config{Output: first}))
	Info("one")
	require.NoError(t, Init(Config{Output: second}))
	Info("two")
	require.NoError(t, Init(Config{Output: "stderr"}))

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(a), "one")
	assert.NotContains(t, string(a), "two")
	assert.Contains(t, string(b), "two")
}

func TestInitInvalidFile(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	err := Init(Config{Output: filepath.Join(t.TempDir(), "missing", "dir", "x.log")})
	assert.Error(t, err)
}

func TestInitWithWriter(t *testing.T) {
	_, cleanup := captureOutput()
	defer cleanup()

	var buf bytes.Buffer
	InitWithWriter(&buf, "WARN", "text", false)

	Info("hidden")
	Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestConcurrentLogging(t *testing.T) {
	buf, cleanup := captureOutput()
	defer cleanup()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Info("concurrent", KeyCount, i)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 20)
}

func BenchmarkInfoText(b *testing.B) {
	_, cleanup := captureOutput()
	defer cleanup()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Info("benchmark", KeyPath, "a/b/c", KeyCount, i)
	}
}
