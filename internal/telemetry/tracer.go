package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for publish operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// ========================================================================
	// Run attributes
	// ========================================================================
	AttrRunID       = "publish.run_id"
	AttrPublishName = "publish.name"
	AttrStage       = "publish.stage"
	AttrOutcome     = "publish.outcome"

	// ========================================================================
	// Transaction attributes
	// ========================================================================
	AttrTransactionKind = "transaction.kind"
	AttrGroupCount      = "transaction.groups"
	AttrActionCount     = "transaction.actions"
	AttrPhase           = "transaction.phase"

	// ========================================================================
	// Filesystem attributes
	// ========================================================================
	AttrAction = "fs.action"
	AttrClass  = "fs.class"
	AttrRoot   = "fs.root"
	AttrPath   = "fs.path"
	AttrTarget = "fs.target"
	AttrMode   = "fs.mode"
	AttrUID    = "user.uid"
	AttrGID    = "user.gid"

	// ========================================================================
	// Storage backend attributes
	// ========================================================================
	AttrBucket = "storage.bucket"
	AttrKey    = "storage.key"
	AttrRegion = "storage.region"
	AttrSize   = "storage.size"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanRun      = "publish.run"
	SpanStage    = "publish.stage"
	SpanCommit   = "transaction.commit"
	SpanRollback = "transaction.rollback"
	SpanBatch    = "filesystem.batch"
	SpanUpload   = "objectstore.put"
	SpanRemove   = "objectstore.delete"
	SpanRestore  = "objectstore.restore"
)

// RunID returns an attribute for the publish run identifier
func RunID(id string) attribute.KeyValue {
	return attribute.String(AttrRunID, id)
}

// PublishName returns an attribute for the publish name
func PublishName(name string) attribute.KeyValue {
	return attribute.String(AttrPublishName, name)
}

// Stage returns an attribute for the publish stage
func Stage(name string) attribute.KeyValue {
	return attribute.String(AttrStage, name)
}

// Outcome returns an attribute for a run outcome
func Outcome(outcome string) attribute.KeyValue {
	return attribute.String(AttrOutcome, outcome)
}

// TransactionKind returns an attribute for the transaction kind
func TransactionKind(kind string) attribute.KeyValue {
	return attribute.String(AttrTransactionKind, kind)
}

// Action returns an attribute for a filesystem action kind
func Action(kind string) attribute.KeyValue {
	return attribute.String(AttrAction, kind)
}

// Class returns an attribute for a batch class
func Class(class string) attribute.KeyValue {
	return attribute.String(AttrClass, class)
}

// Phase returns an attribute for commit or rollback
func Phase(phase string) attribute.KeyValue {
	return attribute.String(AttrPhase, phase)
}

// Path returns an attribute for a file path
func Path(p string) attribute.KeyValue {
	return attribute.String(AttrPath, p)
}

// Target returns an attribute for a target path
func Target(p string) attribute.KeyValue {
	return attribute.String(AttrTarget, p)
}

// Mode returns an attribute for file mode
func Mode(mode uint32) attribute.KeyValue {
	return attribute.Int64(AttrMode, int64(mode))
}

// UID returns an attribute for user ID
func UID(uid int) attribute.KeyValue {
	return attribute.Int(AttrUID, uid)
}

// GID returns an attribute for group ID
func GID(gid int) attribute.KeyValue {
	return attribute.Int(AttrGID, gid)
}

// Bucket returns an attribute for S3 bucket name
func Bucket(name string) attribute.KeyValue {
	return attribute.String(AttrBucket, name)
}

// StorageKey returns an attribute for S3 object key
func StorageKey(key string) attribute.KeyValue {
	return attribute.String(AttrKey, key)
}

// Region returns an attribute for cloud region
func Region(region string) attribute.KeyValue {
	return attribute.String(AttrRegion, region)
}

// Size returns an attribute for an object size in bytes
func Size(n int64) attribute.KeyValue {
	return attribute.Int64(AttrSize, n)
}

// TransactionAttrs returns span options describing a transaction.
func TransactionAttrs(kind string, groups int) []trace.SpanStartOption {
	return []trace.SpanStartOption{
		trace.WithAttributes(
			TransactionKind(kind),
			attribute.Int(AttrGroupCount, groups),
		),
	}
}

// StartBatchSpan starts a span for one filesystem batch.
func StartBatchSpan(ctx context.Context, class, phase string, actions int) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanBatch, trace.WithAttributes(
		Class(class),
		Phase(phase),
		attribute.Int(AttrActionCount, actions),
	))
}

// StartStageSpan starts a span for one publish stage.
func StartStageSpan(ctx context.Context, runID, stage string) (context.Context, trace.Span) {
	return StartSpan(ctx, SpanStage, trace.WithAttributes(RunID(runID), Stage(stage)))
}

// StartObjectSpan starts a span for an object store operation.
func StartObjectSpan(ctx context.Context, name, bucket, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Bucket(bucket),
		StorageKey(key),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, name, trace.WithAttributes(allAttrs...))
}
