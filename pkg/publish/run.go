package publish

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/internal/telemetry"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/scott-wilson/publish/pkg/transaction"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the stages of p starting from initial.
//
// On success it returns the context produced by the last stage. On failure
// it returns the zero C and an error: ErrPublish when a stage failed,
// ErrCommit when a commit failed, or ErrRollback wrapping both the rollback
// failures and the original error when undoing did not fully succeed.
func Run[C any](ctx context.Context, p Publisher[C], initial C, opts ...Option) (C, error) {
	r := &runner[C]{opts: newOptions(opts)}
	return r.run(ctx, p, initial)
}

// RunContext runs p starting from an empty Context.
func RunContext(ctx context.Context, p Publisher[Context], opts ...Option) (Context, error) {
	return Run(ctx, p, NewContext(), opts...)
}

type runner[C any] struct {
	opts      options
	report    Report
	committed []committedStage
}

type committedStage struct {
	stage Stage
	root  *transaction.Root
}

func (r *runner[C]) run(ctx context.Context, p Publisher[C], initial C) (C, error) {
	var zero C

	r.report = Report{
		RunID:     r.opts.runID,
		Name:      r.opts.name,
		StartedAt: time.Now(),
		Stages:    make([]StageReport, 0, 3),
	}

	ctx = logger.WithContext(ctx, logger.NewLogContext(r.opts.runID, r.opts.name))
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRun, trace.WithAttributes(
		telemetry.RunID(r.opts.runID),
		telemetry.PublishName(r.opts.name),
	))
	defer span.End()
	ctx = telemetry.WithTraceLogging(ctx)

	logger.InfoCtx(ctx, "Publish started")

	c := initial
	var err error
	telemetry.Profile(ctx, func(ctx context.Context) {
		for _, s := range steps(p) {
			c, err = r.runStage(ctx, s, c)
			if err != nil {
				break
			}
		}
	}, telemetry.ProfileLabelRunID, r.opts.runID, telemetry.ProfileLabelPublish, r.opts.name)

	r.finish(ctx, err)
	span.SetAttributes(telemetry.Outcome(string(r.report.Outcome)))
	if err != nil {
		telemetry.RecordError(ctx, err)
		return zero, err
	}
	return c, nil
}

// runStage invokes one stage and commits its Root. On failure it unwinds
// every stage and returns the final error.
func (r *runner[C]) runStage(ctx context.Context, s step[C], c C) (C, error) {
	var zero C

	lc := logger.FromContext(ctx).WithStage(s.stage.String())
	ctx = logger.WithContext(ctx, lc)
	ctx, span := telemetry.StartStageSpan(ctx, r.opts.runID, s.stage.String())
	defer span.End()
	ctx = telemetry.WithTraceLogging(ctx)

	rep := r.report.stage(s.stage)
	rep.StartedAt = time.Now()
	defer func() {
		rep.Duration = time.Since(rep.StartedAt)
	}()

	root := transaction.NewRoot(transaction.WithMaxParallel(r.opts.maxParallel))

	var next C
	var err error
	telemetry.Profile(ctx, func(ctx context.Context) {
		next, err = r.invoke(ctx, s, root, c)
	}, telemetry.ProfileLabelStage, s.stage.String())
	rep.Transactions = root.Len()
	r.opts.metrics.ObserveStage(s.stage.String(), time.Since(rep.StartedAt), err)
	if err != nil {
		rep.Error = err.Error()
		logger.WarnCtx(ctx, "Publish stage failed", logger.KeyError, err.Error())
		return zero, r.unwind(ctx, s.stage, root, stageError(s.stage, err))
	}

	start := time.Now()
	err = root.Commit(ctx)
	r.opts.metrics.ObserveCommit(s.stage.String(), time.Since(start), err)
	if err != nil {
		rep.Error = err.Error()
		logger.WarnCtx(ctx, "Publish stage commit failed", logger.KeyError, err.Error())
		return zero, r.unwind(ctx, s.stage, root,
			puberrors.NewCommitError(fmt.Sprintf("%s commit failed", s.stage), err))
	}

	rep.Committed = true
	r.committed = append(r.committed, committedStage{stage: s.stage, root: root})

	logger.InfoCtx(ctx, "Publish stage committed",
		logger.KeyChildren, root.Len(),
		logger.KeyGroups, root.Groups(),
		logger.KeyDurationMs, logger.Duration(rep.StartedAt))
	return next, nil
}

type stageResult[C any] struct {
	next C
	err  error
}

// invoke calls the stage function on a clone of c, bounded by the stage
// timeout. A stage still running at the deadline is abandoned: the run
// unwinds without waiting, and whatever the stage adds to root afterwards is
// never committed.
func (r *runner[C]) invoke(ctx context.Context, s step[C], root *transaction.Root, c C) (C, error) {
	if s.fn == nil {
		return c, nil
	}
	if cl, ok := any(c).(interface{ Clone() C }); ok {
		c = cl.Clone()
	}

	if r.opts.stageTimeout <= 0 {
		return s.fn(ctx, root, c)
	}

	stageCtx, cancel := context.WithTimeout(ctx, r.opts.stageTimeout)
	defer cancel()

	done := make(chan stageResult[C], 1)
	go func() {
		next, err := s.fn(stageCtx, root, c)
		done <- stageResult[C]{next: next, err: err}
	}()

	select {
	case res := <-done:
		if res.err == nil && stageCtx.Err() != nil {
			res.err = r.stageContextError(stageCtx)
		}
		return res.next, res.err
	case <-stageCtx.Done():
		logger.WarnCtx(ctx, "Publish stage abandoned", logger.Err(stageCtx.Err()))
		var zero C
		return zero, r.stageContextError(stageCtx)
	}
}

func (r *runner[C]) stageContextError(stageCtx context.Context) error {
	err := stageCtx.Err()
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("stage exceeded timeout of %s: %w", r.opts.stageTimeout, err)
	}
	return err
}

// unwind rolls back the failed stage and then every committed stage in
// reverse order. Every rollback is attempted. The original error is returned
// as is when all of them succeed.
func (r *runner[C]) unwind(ctx context.Context, failed Stage, root *transaction.Root, original error) error {
	ctx = context.WithoutCancel(ctx)

	var errs []error
	if err := r.rollback(ctx, failed, root); err != nil {
		errs = append(errs, err)
	}
	for i := len(r.committed) - 1; i >= 0; i-- {
		cs := r.committed[i]
		if err := r.rollback(ctx, cs.stage, cs.root); err != nil {
			errs = append(errs, err)
		}
	}
	r.committed = nil

	if len(errs) == 0 {
		return original
	}
	return puberrors.NewRollbackError(errors.Join(errs...), original)
}

func (r *runner[C]) rollback(ctx context.Context, s Stage, root *transaction.Root) error {
	ctx = logger.WithContext(ctx, logger.FromContext(ctx).WithStage(s.String()))

	start := time.Now()
	err := root.Rollback(ctx)
	r.opts.metrics.ObserveRollback(s.String(), time.Since(start), err)

	rep := r.report.stage(s)
	if err != nil {
		logger.ErrorCtx(ctx, "Publish stage rollback failed", logger.KeyError, err.Error())
		return fmt.Errorf("%s rollback: %w", s, err)
	}
	rep.RolledBack = true
	logger.InfoCtx(ctx, "Publish stage rolled back",
		logger.KeyDurationMs, logger.Duration(start))
	return nil
}

func (r *runner[C]) finish(ctx context.Context, err error) {
	r.report.FinishedAt = time.Now()
	r.report.Outcome = outcomeOf(err)
	r.report.Err = err
	r.opts.metrics.RecordRun(string(r.report.Outcome), r.report.Duration())

	if r.opts.report != nil {
		*r.opts.report = r.report
	}

	switch r.report.Outcome {
	case OutcomeSucceeded:
		logger.InfoCtx(ctx, "Publish succeeded",
			logger.KeyOutcome, string(r.report.Outcome),
			logger.KeyDurationMs, logger.Duration(r.report.StartedAt))
	case OutcomeFailed:
		logger.WarnCtx(ctx, "Publish failed and was rolled back",
			logger.KeyOutcome, string(r.report.Outcome),
			logger.KeyError, err.Error())
	default:
		logger.ErrorCtx(ctx, "Publish rollback failed; targets may need manual repair",
			logger.KeyOutcome, string(r.report.Outcome),
			logger.KeyError, err.Error())
	}
}

// stageError wraps err as ErrPublish unless it already is one.
func stageError(s Stage, err error) error {
	if puberrors.CodeOf(err) == puberrors.ErrPublish {
		return err
	}
	return puberrors.NewPublishError(fmt.Sprintf("%s failed", s), err)
}
