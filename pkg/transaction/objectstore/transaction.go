// Package objectstore implements a transaction over keys of an S3-compatible
// bucket.
//
// Commit applies uploads and deletes in order. Before touching a key the
// transaction captures the object currently stored there, so Rollback can
// put it back, or delete the key if it did not exist. Captured objects are
// held in memory until the next Commit or a successful Rollback.
package objectstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/internal/telemetry"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	phaseCommit   = "commit"
	phaseRollback = "rollback"
)

// Kind identifies an object store action.
type Kind uint8

const (
	// Upload puts the local file Source at Key.
	Upload Kind = iota + 1
	// Delete removes Key.
	Delete
)

func (k Kind) String() string {
	switch k {
	case Upload:
		return "upload"
	case Delete:
		return "delete"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Action is one recorded object store operation. Key is relative to the
// transaction prefix.
type Action struct {
	Kind   Kind
	Source string
	Key    string
}

// Option configures a Transaction.
type Option func(*Transaction)

// WithPrefix prepends prefix to every key. It should end with "/" if
// non-empty.
func WithPrefix(prefix string) Option {
	return func(t *Transaction) {
		t.prefix = prefix
	}
}

// WithRegion records the bucket's region on spans.
func WithRegion(region string) Option {
	return func(t *Transaction) {
		t.region = region
	}
}

// WithMetrics sets the operation observer.
func WithMetrics(m Metrics) Option {
	return func(t *Transaction) {
		t.metrics = m
	}
}

// WithMaxCaptureSize bounds the size of an existing object that may be
// overwritten or deleted. The previous content is held in memory for
// rollback, so committing fails on a larger object before touching it.
// Zero means unbounded.
func WithMaxCaptureSize(n int64) Option {
	return func(t *Transaction) {
		t.maxCapture = n
	}
}

// entry holds what a key looked like before an action touched it.
type entry struct {
	key         string
	existed     bool
	previous    []byte
	contentType *string
	applied     bool
}

// Transaction is an object store transaction bound to one bucket.
// It is safe for concurrent use; Commit and Rollback are serialized.
type Transaction struct {
	mu         sync.Mutex
	client     Client
	bucket     string
	prefix     string
	region     string
	metrics    Metrics
	maxCapture int64

	actions []Action
	journal []*entry
}

// New returns an empty transaction writing to bucket through client.
func New(client Client, bucket string, opts ...Option) (*Transaction, error) {
	if client == nil {
		return nil, puberrors.NewInvalidMetadataError("object store client")
	}
	if bucket == "" {
		return nil, puberrors.NewTargetPathInvalidError(bucket, "empty bucket name")
	}

	t := &Transaction{
		client: client,
		bucket: bucket,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Kind implements the optional kind label used by transaction.Kind.
func (t *Transaction) Kind() string {
	return "objectstore"
}

// Bucket returns the bucket name.
func (t *Transaction) Bucket() string {
	return t.bucket
}

// Actions returns a copy of the recorded actions.
func (t *Transaction) Actions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.actions)
}

// UploadFile records an upload of the local file source to key.
func (t *Transaction) UploadFile(source, key string) {
	t.add(Action{Kind: Upload, Source: source, Key: key})
}

// DeleteKey records the removal of key.
func (t *Transaction) DeleteKey(key string) {
	t.add(Action{Kind: Delete, Key: key})
}

func (t *Transaction) add(a Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions = append(t.actions, a)
}

func (t *Transaction) fullKey(key string) string {
	return t.prefix + key
}

// Commit applies the recorded actions in order and stops at the first
// failure. Actions applied before it stay journaled for Rollback.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCommit, trace.WithAttributes(
		telemetry.TransactionKind("objectstore"),
		telemetry.Bucket(t.bucket),
	))
	defer span.End()

	logger.DebugCtx(ctx, "Committing object store transaction",
		logger.KeyBucket, t.bucket,
		logger.KeyCount, len(t.actions))

	t.journal = t.journal[:0]
	for _, a := range t.actions {
		if a.Key == "" {
			err := puberrors.NewTargetPathInvalidError(a.Key, "empty key")
			telemetry.RecordError(ctx, err)
			return err
		}

		e, err := t.capture(ctx, t.fullKey(a.Key))
		if err != nil {
			telemetry.RecordError(ctx, err)
			return err
		}
		t.journal = append(t.journal, e)

		switch a.Kind {
		case Upload:
			err = t.upload(ctx, a.Source, e.key)
		case Delete:
			err = t.remove(ctx, e.key, phaseCommit)
		default:
			err = puberrors.NewInvalidMetadataError(a.Key)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
			return err
		}
		e.applied = true
	}
	return nil
}

// Rollback restores every applied key in reverse order. A key that did not
// exist before the commit is deleted again.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRollback, trace.WithAttributes(
		telemetry.TransactionKind("objectstore"),
		telemetry.Bucket(t.bucket),
	))
	defer span.End()

	logger.DebugCtx(ctx, "Rolling back object store transaction",
		logger.KeyBucket, t.bucket,
		logger.KeyCount, len(t.journal))

	for i := len(t.journal) - 1; i >= 0; i-- {
		e := t.journal[i]
		if !e.applied {
			continue
		}

		var err error
		if e.existed {
			err = t.restore(ctx, e)
		} else {
			err = t.remove(ctx, e.key, phaseRollback)
		}
		if err != nil {
			telemetry.RecordError(ctx, err)
			return err
		}
		e.applied = false
	}

	t.journal = t.journal[:0]
	return nil
}

// capture reads the object currently stored at key.
func (t *Transaction) capture(ctx context.Context, key string) (*entry, error) {
	start := time.Now()
	out, err := t.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		observeOperation(t.metrics, "get", phaseCommit, start, nil)
		return &entry{key: key}, nil
	}
	if err != nil {
		observeOperation(t.metrics, "get", phaseCommit, start, err)
		return nil, puberrors.NewIOError("get object", key, err)
	}
	defer out.Body.Close()

	if t.maxCapture > 0 && aws.ToInt64(out.ContentLength) > t.maxCapture {
		observeOperation(t.metrics, "get", phaseCommit, start, nil)
		return nil, t.tooLarge(key)
	}

	body := io.Reader(out.Body)
	if t.maxCapture > 0 {
		body = io.LimitReader(out.Body, t.maxCapture+1)
	}
	data, err := io.ReadAll(body)
	observeOperation(t.metrics, "get", phaseCommit, start, err)
	if err != nil {
		return nil, puberrors.NewIOError("read object", key, err)
	}
	if t.maxCapture > 0 && int64(len(data)) > t.maxCapture {
		return nil, t.tooLarge(key)
	}
	recordBytes(t.metrics, "capture", int64(len(data)))

	return &entry{
		key:         key,
		existed:     true,
		previous:    data,
		contentType: out.ContentType,
	}, nil
}

func (t *Transaction) tooLarge(key string) error {
	return puberrors.NewTargetPathInvalidError(key,
		fmt.Sprintf("existing object is larger than the %d byte rollback capture limit", t.maxCapture))
}

func (t *Transaction) startSpan(ctx context.Context, name, key string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if t.region != "" {
		attrs = append(attrs, telemetry.Region(t.region))
	}
	return telemetry.StartObjectSpan(ctx, name, t.bucket, key, attrs...)
}

func (t *Transaction) upload(ctx context.Context, source, key string) error {
	ctx, span := t.startSpan(ctx, telemetry.SpanUpload, key, telemetry.Path(source))
	defer span.End()

	f, err := os.Open(source)
	if err != nil {
		return puberrors.NewIOError("open", source, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return puberrors.NewIOError("stat", source, err)
	}
	if !info.Mode().IsRegular() {
		return puberrors.NewSourcePathInvalidError(source, "not a regular file")
	}

	logger.DebugCtx(ctx, "Uploading object",
		logger.KeySource, source,
		logger.KeyBucket, t.bucket,
		logger.KeyKey, key,
		logger.KeyBytes, info.Size())

	start := time.Now()
	_, err = t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
	})
	observeOperation(t.metrics, "put", phaseCommit, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return puberrors.NewIOError("put object", key, err)
	}
	recordBytes(t.metrics, "upload", info.Size())
	return nil
}

// remove deletes key. A missing key counts as removed.
func (t *Transaction) remove(ctx context.Context, key, phase string) error {
	ctx, span := t.startSpan(ctx, telemetry.SpanRemove, key, telemetry.Phase(phase))
	defer span.End()

	logger.DebugCtx(ctx, "Deleting object",
		logger.KeyBucket, t.bucket,
		logger.KeyKey, key,
		logger.KeyPhase, phase)

	start := time.Now()
	_, err := t.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(t.bucket),
		Key:    aws.String(key),
	})
	if isNotFound(err) {
		err = nil
	}
	observeOperation(t.metrics, "delete", phase, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return puberrors.NewIOError("delete object", key, err)
	}
	return nil
}

// restore puts the captured object back at its key.
func (t *Transaction) restore(ctx context.Context, e *entry) error {
	ctx, span := t.startSpan(ctx, telemetry.SpanRestore, e.key,
		telemetry.Size(int64(len(e.previous))))
	defer span.End()

	logger.DebugCtx(ctx, "Restoring object",
		logger.KeyBucket, t.bucket,
		logger.KeyKey, e.key,
		logger.KeyBytes, len(e.previous))

	start := time.Now()
	_, err := t.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(t.bucket),
		Key:           aws.String(e.key),
		Body:          bytes.NewReader(e.previous),
		ContentLength: aws.Int64(int64(len(e.previous))),
		ContentType:   e.contentType,
	})
	observeOperation(t.metrics, "put", phaseRollback, start, err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		return puberrors.NewIOError("restore object", e.key, err)
	}
	recordBytes(t.metrics, "restore", int64(len(e.previous)))
	return nil
}
