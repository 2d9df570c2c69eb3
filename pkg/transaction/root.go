package transaction

import (
	"context"
	"sync"
	"time"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/internal/telemetry"
	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// guardedTransaction serializes commit and rollback of a single child.
type guardedTransaction struct {
	mu sync.Mutex
	tx Transaction
}

func (g *guardedTransaction) commit(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tx.Commit(ctx)
}

func (g *guardedTransaction) rollback(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.tx.Rollback(ctx)
}

// Root is an ordered list of groups of child transactions.
//
// Groups run in insertion order and each group is a barrier: every child of
// group i finishes before group i+1 starts. Children inside one group run
// concurrently with no ordering guarantee.
//
// Commit and Rollback are best effort: they never stop at the first failure,
// neither inside a group nor across groups. Every child error is collected
// and returned as a single ErrRootTransaction error. Deciding what to do with
// a failed root is the caller's job.
type Root struct {
	mu          sync.Mutex
	groups      [][]*guardedTransaction
	maxParallel int
}

// RootOption configures a Root.
type RootOption func(*Root)

// WithMaxParallel bounds how many children of one group run at the same time.
// Zero or a negative value means unbounded.
func WithMaxParallel(n int) RootOption {
	return func(r *Root) {
		r.maxParallel = n
	}
}

// NewRoot creates an empty Root.
func NewRoot(opts ...RootOption) *Root {
	r := &Root{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Kind implements the optional kind label used by Kind.
func (r *Root) Kind() string {
	return "root"
}

// AddChild appends tx in a new group of its own, so it runs after everything
// added before it and before everything added after it.
func (r *Root) AddChild(tx Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = append(r.groups, []*guardedTransaction{{tx: tx}})
}

// AddChildParallel appends tx to the last group, creating one if the root is
// empty. It runs concurrently with the other members of that group.
func (r *Root) AddChildParallel(tx Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.groups) == 0 {
		r.groups = append(r.groups, nil)
	}
	last := len(r.groups) - 1
	r.groups[last] = append(r.groups[last], &guardedTransaction{tx: tx})
}

// Len returns the number of child transactions.
func (r *Root) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, g := range r.groups {
		n += len(g)
	}
	return n
}

// Groups returns the number of groups.
func (r *Root) Groups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.groups)
}

// Commit commits every child, group by group.
func (r *Root) Commit(ctx context.Context) error {
	return r.run(ctx, telemetry.SpanCommit, (*guardedTransaction).commit)
}

// Rollback rolls back every child, group by group.
func (r *Root) Rollback(ctx context.Context) error {
	return r.run(ctx, telemetry.SpanRollback, (*guardedTransaction).rollback)
}

func (r *Root) run(ctx context.Context, spanName string, op func(*guardedTransaction, context.Context) error) error {
	groups := r.snapshot()

	ctx, span := telemetry.StartSpan(ctx, spanName, telemetry.TransactionAttrs("root", len(groups))...)
	defer span.End()

	start := time.Now()
	var errs []error
	for i, group := range groups {
		groupErrs := r.runGroup(ctx, group, op)
		if len(groupErrs) > 0 {
			logger.WarnCtx(ctx, "Transaction group failed",
				logger.KeyOperation, spanName,
				logger.KeyGroup, i,
				logger.KeyCount, len(groupErrs))
		}
		errs = append(errs, groupErrs...)
	}

	logger.DebugCtx(ctx, "Root transaction finished",
		logger.KeyOperation, spanName,
		logger.KeyGroups, len(groups),
		logger.KeyDurationMs, logger.Duration(start))

	if len(errs) > 0 {
		err := puberrors.NewRootTransactionError(errs)
		telemetry.RecordError(ctx, err)
		return err
	}
	return nil
}

// runGroup runs op on every member concurrently and waits for all of them.
// Members never report errors to the errgroup so a failure cannot cancel or
// short-circuit its siblings.
func (r *Root) runGroup(ctx context.Context, group []*guardedTransaction, op func(*guardedTransaction, context.Context) error) []error {
	results := make([]error, len(group))

	var g errgroup.Group
	if r.maxParallel > 0 {
		g.SetLimit(r.maxParallel)
	}
	for i, child := range group {
		g.Go(func() error {
			results[i] = op(child, ctx)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, err := range results {
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func (r *Root) snapshot() [][]*guardedTransaction {
	r.mu.Lock()
	defer r.mu.Unlock()
	groups := make([][]*guardedTransaction, len(r.groups))
	for i, g := range r.groups {
		groups[i] = append([]*guardedTransaction(nil), g...)
	}
	return groups
}
