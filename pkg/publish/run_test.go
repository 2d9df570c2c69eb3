package publish

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/scott-wilson/publish/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// eventLog records commit and rollback events in order.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, s)
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.events)
}

type eventTransaction struct {
	log         *eventLog
	name        string
	commitErr   error
	rollbackErr error
	committed   bool
}

func (e *eventTransaction) Commit(context.Context) error {
	if e.commitErr != nil {
		return e.commitErr
	}
	e.committed = true
	e.log.add("commit " + e.name)
	return nil
}

func (e *eventTransaction) Rollback(context.Context) error {
	if !e.committed {
		return nil
	}
	if e.rollbackErr != nil {
		return e.rollbackErr
	}
	e.committed = false
	e.log.add("rollback " + e.name)
	return nil
}

func addEvent(log *eventLog, name string) StageFunc[Context] {
	return func(_ context.Context, tx *transaction.Root, c Context) (Context, error) {
		tx.AddChild(&eventTransaction{log: log, name: name})
		return c, nil
	}
}

type recordingMetrics struct {
	mu        sync.Mutex
	stages    []string
	commits   []string
	rollbacks []string
	outcome   string
}

func (m *recordingMetrics) ObserveStage(stage string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *recordingMetrics) ObserveCommit(stage string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commits = append(m.commits, stage)
}

func (m *recordingMetrics) ObserveRollback(stage string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollbacks = append(m.rollbacks, stage)
}

func (m *recordingMetrics) RecordRun(outcome string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcome = outcome
}

// publishOnly implements only the mandatory stage.
type publishOnly struct {
	calls int
}

func (p *publishOnly) Publish(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
	p.calls++
	c.Set("published", BoolValue(true))
	return c, nil
}

func TestRunThreadsContextThroughStages(t *testing.T) {
	p := Funcs[Context]{
		PrePublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			c.Set("value", IntValue(1))
			return c, nil
		},
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			v, ok := c.Get("value")
			if i, _ := v.AsInt(); !ok || i != 1 {
				return c, errors.New("expected value 1")
			}
			c.Set("value", IntValue(2))
			return c, nil
		},
		PostPublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			v, ok := c.Get("value")
			if i, _ := v.AsInt(); !ok || i != 2 {
				return c, errors.New("expected value 2")
			}
			c.Set("value", IntValue(3))
			return c, nil
		},
	}

	result, err := RunContext(context.Background(), p)
	require.NoError(t, err)

	v, ok := result.Get("value")
	require.True(t, ok)
	assert.Equal(t, IntValue(3), v)
}

func TestRunOptionalStagesDefaultToIdentity(t *testing.T) {
	p := &publishOnly{}
	initial := NewContext()
	initial.Set("kept", StringValue("yes"))

	result, err := Run[Context](context.Background(), p, initial)
	require.NoError(t, err)
	assert.Equal(t, 1, p.calls)
	assert.Equal(t, []string{"kept", "published"}, result.Keys())
}

func TestRunStagesReceiveClones(t *testing.T) {
	initial := NewContext()
	initial.Set("a", IntValue(1))

	p := Funcs[Context]{
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			c.Set("b", IntValue(2))
			return c, nil
		},
	}
	result, err := Run[Context](context.Background(), p, initial)
	require.NoError(t, err)

	assert.Equal(t, 1, initial.Len())
	assert.Equal(t, 2, result.Len())
}

func TestRunCommitsEachStage(t *testing.T) {
	log := &eventLog{}
	m := &recordingMetrics{}
	var report Report

	p := Funcs[Context]{
		PrePublishFunc:  addEvent(log, "pre"),
		PublishFunc:     addEvent(log, "publish"),
		PostPublishFunc: addEvent(log, "post"),
	}
	_, err := RunContext(context.Background(), p,
		WithRunID("run-1"), WithName("demo"), WithMetrics(m), WithReport(&report))
	require.NoError(t, err)

	assert.Equal(t, []string{"commit pre", "commit publish", "commit post"}, log.snapshot())

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, "demo", report.Name)
	assert.Equal(t, OutcomeSucceeded, report.Outcome)
	require.Len(t, report.Stages, 3)
	for i, name := range []string{"pre_publish", "publish", "post_publish"} {
		assert.Equal(t, name, report.Stages[i].Stage)
		assert.True(t, report.Stages[i].Committed)
		assert.False(t, report.Stages[i].RolledBack)
		assert.Equal(t, 1, report.Stages[i].Transactions)
	}
	assert.False(t, report.FinishedAt.Before(report.StartedAt))

	assert.Equal(t, []string{"pre_publish", "publish", "post_publish"}, m.stages)
	assert.Equal(t, []string{"pre_publish", "publish", "post_publish"}, m.commits)
	assert.Empty(t, m.rollbacks)
	assert.Equal(t, "succeeded", m.outcome)
}

func TestRunStageErrorRollsBackInReverse(t *testing.T) {
	log := &eventLog{}
	var report Report
	cause := errors.New("post publish broke")

	p := Funcs[Context]{
		PrePublishFunc: addEvent(log, "pre"),
		PublishFunc:    addEvent(log, "publish"),
		PostPublishFunc: func(_ context.Context, tx *transaction.Root, c Context) (Context, error) {
			tx.AddChild(&eventTransaction{log: log, name: "post"})
			return c, cause
		},
	}
	_, err := RunContext(context.Background(), p, WithReport(&report))
	require.Error(t, err)

	assert.Equal(t, puberrors.ErrPublish, puberrors.CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, []string{
		"commit pre",
		"commit publish",
		"rollback publish",
		"rollback pre",
	}, log.snapshot())

	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Equal(t, err, report.Err)
	require.Len(t, report.Stages, 3)
	assert.True(t, report.Stages[0].RolledBack)
	assert.True(t, report.Stages[1].RolledBack)
	assert.False(t, report.Stages[2].Committed)
	assert.Contains(t, report.Stages[2].Error, "post publish broke")
}

func TestRunKeepsPublishErrors(t *testing.T) {
	original := puberrors.NewPublishError("custom", nil)
	p := Funcs[Context]{
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			return c, original
		},
	}
	_, err := RunContext(context.Background(), p)
	assert.Same(t, original, err)
}

func TestRunFirstStageErrorSkipsLaterStages(t *testing.T) {
	log := &eventLog{}
	called := false
	p := Funcs[Context]{
		PrePublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			return c, errors.New("nope")
		},
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			called = true
			return c, nil
		},
		PostPublishFunc: addEvent(log, "post"),
	}
	_, err := RunContext(context.Background(), p)
	require.Error(t, err)
	assert.False(t, called)
	assert.Empty(t, log.snapshot())
}

func TestRunCommitErrorRollsBack(t *testing.T) {
	log := &eventLog{}
	commitErr := errors.New("disk full")

	p := Funcs[Context]{
		PrePublishFunc: addEvent(log, "pre"),
		PublishFunc: func(_ context.Context, tx *transaction.Root, c Context) (Context, error) {
			tx.AddChild(&eventTransaction{log: log, name: "ok"})
			tx.AddChild(&eventTransaction{log: log, name: "broken", commitErr: commitErr})
			return c, nil
		},
	}
	_, err := RunContext(context.Background(), p)
	require.Error(t, err)

	assert.Equal(t, puberrors.ErrCommit, puberrors.CodeOf(err))
	assert.ErrorIs(t, err, puberrors.ErrRootTransaction)
	assert.ErrorIs(t, err, commitErr)
	assert.Equal(t, []string{
		"commit pre",
		"commit ok",
		"rollback ok",
		"rollback pre",
	}, log.snapshot())
}

func TestRunRollbackFailureCarriesOriginal(t *testing.T) {
	log := &eventLog{}
	rollbackErr := errors.New("cannot undo")
	cause := errors.New("publish broke")
	var report Report

	p := Funcs[Context]{
		PrePublishFunc: func(_ context.Context, tx *transaction.Root, c Context) (Context, error) {
			tx.AddChild(&eventTransaction{log: log, name: "pre", rollbackErr: rollbackErr})
			tx.AddChild(&eventTransaction{log: log, name: "pre-ok"})
			return c, nil
		},
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			return c, cause
		},
	}
	_, err := RunContext(context.Background(), p, WithReport(&report))
	require.Error(t, err)

	assert.Equal(t, puberrors.ErrRollback, puberrors.CodeOf(err))
	assert.ErrorIs(t, err, rollbackErr)
	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, puberrors.ErrPublish)

	// The failing rollback does not stop its siblings.
	assert.Equal(t, []string{"commit pre", "commit pre-ok", "rollback pre-ok"}, log.snapshot())
	assert.Equal(t, OutcomeRollbackFailed, report.Outcome)
	assert.False(t, report.Stages[0].RolledBack)
}

func TestRunStageTimeout(t *testing.T) {
	log := &eventLog{}
	p := Funcs[Context]{
		PrePublishFunc: addEvent(log, "pre"),
		PublishFunc: func(ctx context.Context, _ *transaction.Root, c Context) (Context, error) {
			<-ctx.Done()
			return c, nil
		},
	}
	_, err := RunContext(context.Background(), p, WithStageTimeout(20*time.Millisecond))
	require.Error(t, err)

	assert.Equal(t, puberrors.ErrPublish, puberrors.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, []string{"commit pre", "rollback pre"}, log.snapshot())
}

func TestRunStageTimeoutDoesNotWaitForStage(t *testing.T) {
	log := &eventLog{}
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	var report Report
	p := Funcs[Context]{
		PrePublishFunc: addEvent(log, "pre"),
		PublishFunc: func(_ context.Context, _ *transaction.Root, c Context) (Context, error) {
			<-release
			return c, nil
		},
	}

	done := make(chan error, 1)
	go func() {
		_, err := RunContext(context.Background(), p,
			WithStageTimeout(20*time.Millisecond), WithReport(&report))
		done <- err
	}()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, puberrors.ErrPublish, puberrors.CodeOf(err))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	case <-time.After(5 * time.Second):
		t.Fatal("run waited for a stage that ignores its context")
	}
	assert.Equal(t, []string{"commit pre", "rollback pre"}, log.snapshot())
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestRunCancelledContextRollsBack(t *testing.T) {
	log := &eventLog{}
	ctx, cancel := context.WithCancel(context.Background())

	p := Funcs[Context]{
		PrePublishFunc: addEvent(log, "pre"),
		PublishFunc: func(_ context.Context, tx *transaction.Root, c Context) (Context, error) {
			cancel()
			return c, context.Canceled
		},
	}
	_, err := RunContext(ctx, p)
	require.Error(t, err)

	// Rollback still runs even though the run context is done.
	assert.Equal(t, []string{"commit pre", "rollback pre"}, log.snapshot())
}

func TestRunGeneratesRunID(t *testing.T) {
	var a, b Report
	_, err := RunContext(context.Background(), &publishOnly{}, WithReport(&a))
	require.NoError(t, err)
	_, err = RunContext(context.Background(), &publishOnly{}, WithReport(&b))
	require.NoError(t, err)

	assert.Len(t, a.RunID, 36)
	assert.NotEqual(t, a.RunID, b.RunID)
}

func TestRunWithPlainContextType(t *testing.T) {
	p := Funcs[int]{
		PrePublishFunc:  func(_ context.Context, _ *transaction.Root, n int) (int, error) { return n + 1, nil },
		PublishFunc:     func(_ context.Context, _ *transaction.Root, n int) (int, error) { return n * 10, nil },
		PostPublishFunc: func(_ context.Context, _ *transaction.Root, n int) (int, error) { return n + 2, nil },
	}
	n, err := Run[int](context.Background(), p, 1)
	require.NoError(t, err)
	assert.Equal(t, 22, n)
}
