package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"time"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/internal/telemetry"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// pending is an action waiting in the current batch with its journal entry,
// if it has one.
type pending struct {
	action Action
	entry  *entry
}

func (t *Transaction) commit(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanCommit, trace.WithAttributes(
		telemetry.TransactionKind("filesystem"),
		telemetry.Path(t.dir.Path()),
	))
	defer span.End()

	t.journal = t.journal[:0]

	var (
		batch []pending
		class Class
	)
	for _, a := range t.actions {
		if c := a.Kind.Class(); c != class {
			if err := t.flush(ctx, phaseCommit, class, batch); err != nil {
				telemetry.RecordError(ctx, err)
				return err
			}
			batch = nil
			class = c
		}

		p := pending{action: a}
		switch {
		case a.Kind == ChangeOwnerPermissions:
			// The inverse needs the state left by every earlier batch.
			rel, err := t.dir.Rel(a.Target)
			if err != nil {
				return err
			}
			prior, err := t.dir.captureOwner(rel)
			if err != nil {
				telemetry.RecordError(ctx, err)
				return err
			}
			p.entry = t.record(Action{Kind: ChangeOwnerPermissions, Target: a.Target, restore: prior})
		default:
			if undo, ok := a.inverse(); ok {
				p.entry = t.record(undo)
			}
		}
		batch = append(batch, p)
	}

	if err := t.flush(ctx, phaseCommit, class, batch); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

func (t *Transaction) rollback(ctx context.Context) error {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanRollback, trace.WithAttributes(
		telemetry.TransactionKind("filesystem"),
		telemetry.Path(t.dir.Path()),
	))
	defer span.End()

	var (
		batch []pending
		class Class
	)
	for i := len(t.journal) - 1; i >= 0; i-- {
		e := t.journal[i]
		if !e.applied {
			continue
		}
		if c := e.undo.Kind.Class(); c != class {
			if err := t.flush(ctx, phaseRollback, class, batch); err != nil {
				telemetry.RecordError(ctx, err)
				return err
			}
			batch = nil
			class = c
		}
		batch = append(batch, pending{action: e.undo, entry: e})
	}

	if err := t.flush(ctx, phaseRollback, class, batch); err != nil {
		telemetry.RecordError(ctx, err)
		return err
	}

	t.journal = t.journal[:0]
	return nil
}

func (t *Transaction) record(undo Action) *entry {
	e := &entry{undo: undo}
	t.journal = append(t.journal, e)
	return e
}

// flush runs one batch concurrently and waits for every member. It returns
// the first error. Each goroutine only touches its own journal entry.
func (t *Transaction) flush(ctx context.Context, phase string, class Class, batch []pending) error {
	if len(batch) == 0 {
		return nil
	}

	ctx, span := telemetry.StartBatchSpan(ctx, class.String(), phase, len(batch))
	defer span.End()

	start := time.Now()

	var g errgroup.Group
	if t.opts.maxParallel > 0 {
		g.SetLimit(t.opts.maxParallel)
	}
	for _, p := range batch {
		g.Go(func() error {
			if phase == phaseRollback {
				return t.undo(ctx, p)
			}
			return t.apply(ctx, p)
		})
	}
	err := g.Wait()

	observeBatch(t.opts.metrics, class, phase, len(batch), time.Since(start), err)
	if err != nil {
		telemetry.RecordError(ctx, err)
		logger.WarnCtx(ctx, "Filesystem batch failed",
			logger.KeyClass, class.String(),
			logger.KeyPhase, phase,
			logger.KeyCount, len(batch),
			logger.Err(err))
		return err
	}

	logger.DebugCtx(ctx, "Filesystem batch done",
		logger.KeyClass, class.String(),
		logger.KeyPhase, phase,
		logger.KeyCount, len(batch),
		logger.DurationMs(logger.Duration(start)))
	return nil
}

// apply executes a commit action and marks its journal entry once there is
// something to undo.
func (t *Transaction) apply(ctx context.Context, p pending) error {
	a := p.action

	if a.Kind == CreateDirectory {
		top, err := t.dir.createDirectory(a.Target)
		if top != "" && p.entry != nil {
			p.entry.undo.Target = top
			p.entry.applied = true
		}
		return err
	}

	if a.Kind == Copy {
		if err := t.dir.ensureAbsent(a.Target); err != nil {
			return err
		}
	}

	err := t.execute(ctx, a)
	if p.entry == nil {
		return err
	}
	if err == nil {
		p.entry.applied = true
		return nil
	}
	// A failed copy may leave a partial tree behind. The target did not
	// exist before, so whatever is there now is ours to remove.
	if a.Kind == Copy {
		if rel, relErr := t.dir.Rel(a.Target); relErr == nil {
			if ok, _ := t.dir.exists(rel); ok {
				p.entry.applied = true
			}
		}
	}
	return err
}

// undo executes a journaled inverse. A missing target only counts as undone
// for Delete inverses: the path was ours to remove. A move or owner change
// whose target is gone cannot be restored, so that fails the rollback.
func (t *Transaction) undo(ctx context.Context, p pending) error {
	err := t.execute(ctx, p.action)
	if err != nil && (p.action.Kind != Delete || !errors.Is(err, fs.ErrNotExist)) {
		return err
	}
	p.entry.applied = false
	return nil
}

func (t *Transaction) execute(ctx context.Context, a Action) error {
	logger.DebugCtx(ctx, "Filesystem action",
		logger.Action(a.Kind.String()),
		logger.Source(a.Source),
		logger.Target(a.Target))
	trace.SpanFromContext(ctx).AddEvent(a.Kind.String(), trace.WithAttributes(
		telemetry.Action(a.Kind.String()),
		telemetry.Target(a.Target),
	))

	switch a.Kind {
	case Copy:
		return t.dir.copyPath(ctx, t.sem, a.Source, a.Target)
	case Move:
		return t.dir.move(a.Source, a.Target)
	case RollbackMove:
		return t.dir.moveBack(a.Source, a.Target)
	case HardLink:
		return t.dir.hardLink(a.Source, a.Target)
	case SoftLink:
		return t.dir.softLink(a.Source, a.Target)
	case CreateDirectory:
		_, err := t.dir.createDirectory(a.Target)
		return err
	case Delete:
		return t.dir.delete(a.Target)
	case ChangeOwnerPermissions:
		if a.restore != nil {
			return t.dir.restoreOwner(ctx, a.Target, a.restore)
		}
		return t.dir.changeOwnerPermissions(ctx, a)
	default:
		return puberrors.NewInvalidMetadataError(a.Target)
	}
}
