// Package publish runs a three-stage transactional publish.
//
// A publish is a Publisher with optional PrePublish and PostPublish stages.
// Each stage receives a fresh transaction.Root to fill and the context
// returned by the previous stage. The runner commits a stage's Root as soon
// as the stage returns. When a stage or a commit fails, the runner rolls back
// that stage's Root and then every committed Root in reverse order before it
// returns the error.
package publish

import (
	"context"

	"github.com/scott-wilson/publish/pkg/transaction"
)

// StageFunc is the signature shared by all stages. It records its work in
// tx and returns the context for the next stage.
type StageFunc[C any] func(ctx context.Context, tx *transaction.Root, c C) (C, error)

// Publisher is the mandatory publish stage.
type Publisher[C any] interface {
	Publish(ctx context.Context, tx *transaction.Root, c C) (C, error)
}

// PrePublisher is implemented by publishers with a pre-publish stage.
type PrePublisher[C any] interface {
	PrePublish(ctx context.Context, tx *transaction.Root, c C) (C, error)
}

// PostPublisher is implemented by publishers with a post-publish stage.
type PostPublisher[C any] interface {
	PostPublish(ctx context.Context, tx *transaction.Root, c C) (C, error)
}

// Funcs adapts plain functions to a publisher. A nil function passes the
// context through unchanged.
type Funcs[C any] struct {
	PrePublishFunc  StageFunc[C]
	PublishFunc     StageFunc[C]
	PostPublishFunc StageFunc[C]
}

func (f Funcs[C]) PrePublish(ctx context.Context, tx *transaction.Root, c C) (C, error) {
	return call(ctx, f.PrePublishFunc, tx, c)
}

func (f Funcs[C]) Publish(ctx context.Context, tx *transaction.Root, c C) (C, error) {
	return call(ctx, f.PublishFunc, tx, c)
}

func (f Funcs[C]) PostPublish(ctx context.Context, tx *transaction.Root, c C) (C, error) {
	return call(ctx, f.PostPublishFunc, tx, c)
}

func call[C any](ctx context.Context, fn StageFunc[C], tx *transaction.Root, c C) (C, error) {
	if fn == nil {
		return c, nil
	}
	return fn(ctx, tx, c)
}

// Stage identifies one of the three publish stages.
type Stage uint8

const (
	StagePrePublish Stage = iota + 1
	StagePublish
	StagePostPublish
)

func (s Stage) String() string {
	switch s {
	case StagePrePublish:
		return "pre_publish"
	case StagePublish:
		return "publish"
	case StagePostPublish:
		return "post_publish"
	default:
		return "unknown"
	}
}

type step[C any] struct {
	stage Stage
	fn    StageFunc[C]
}

// steps returns the stage functions of p in run order. Missing optional
// stages are nil.
func steps[C any](p Publisher[C]) []step[C] {
	var pre, post StageFunc[C]
	if pp, ok := p.(PrePublisher[C]); ok {
		pre = pp.PrePublish
	}
	if pp, ok := p.(PostPublisher[C]); ok {
		post = pp.PostPublish
	}
	return []step[C]{
		{StagePrePublish, pre},
		{StagePublish, p.Publish},
		{StagePostPublish, post},
	}
}
