package logger

import (
	"fmt"
	"log/slog"
	"os"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for run correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Publish Run
	// ========================================================================
	KeyRunID       = "run_id"      // Publish run identifier
	KeyPublish     = "publish"     // Publish (manifest) name
	KeyStage       = "stage"       // Stage: pre_publish, publish, post_publish
	KeyOutcome     = "outcome"     // Run or stage outcome
	KeyTransaction = "transaction" // Transaction kind: root, filesystem, objectstore
	KeyGroup       = "group"       // Group index inside a root transaction
	KeyGroups      = "groups"      // Number of groups in a root transaction
	KeyChildren    = "children"    // Number of child transactions

	// ========================================================================
	// Filesystem Actions
	// ========================================================================
	KeyAction     = "action"      // Action kind: copy, move, delete, ...
	KeyClass      = "class"       // Batch classification of an action
	KeyPhase      = "phase"       // commit or rollback
	KeyRoot       = "root"        // Transaction root directory
	KeyPath       = "path"        // File/directory path
	KeySource     = "source"      // Source path for copy/move/link
	KeyTarget     = "target"      // Target path for copy/move/link
	KeyLinkTarget = "link_target" // Symbolic link text
	KeyMode       = "mode"        // File mode/permissions (Unix-style)
	KeyUID        = "uid"         // User ID
	KeyGID        = "gid"         // Group ID
	KeyUser       = "user"        // User name
	KeyGroupName  = "group_name"  // Group name

	// ========================================================================
	// Object Storage
	// ========================================================================
	KeyBucket = "bucket" // Bucket name
	KeyKey    = "key"    // Object key
	KeyRegion = "region" // Cloud region
	KeyBytes  = "bytes"  // Bytes transferred

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyErrorCode  = "error_code"  // Error category
	KeyOperation  = "operation"   // Sub-operation type for complex operations
	KeyCount      = "count"       // Generic count
	KeyComponent  = "component"   // Library or subsystem emitting the record
)

// RunID returns a slog.Attr for the publish run identifier
func RunID(id string) slog.Attr {
	return slog.String(KeyRunID, id)
}

// Action returns a slog.Attr for a filesystem action kind
func Action(kind string) slog.Attr {
	return slog.String(KeyAction, kind)
}

// Path returns a slog.Attr for file/directory path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Source returns a slog.Attr for a source path
func Source(p string) slog.Attr {
	return slog.String(KeySource, p)
}

// Target returns a slog.Attr for a target path
func Target(p string) slog.Attr {
	return slog.String(KeyTarget, p)
}

// Mode returns a slog.Attr for file mode, rendered in octal
func Mode(m os.FileMode) slog.Attr {
	return slog.String(KeyMode, fmt.Sprintf("%04o", uint32(m.Perm())))
}

// Err returns a slog.Attr for an error (nil-safe)
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}
