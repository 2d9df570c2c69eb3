// Package filesystem implements a transaction over a directory tree.
//
// A Transaction records filesystem actions against a confining root
// directory and applies them on Commit. Consecutive actions of the same class
// run concurrently as one batch; a change of class is a barrier. Every applied
// action leaves an inverse entry in a journal that Rollback replays in reverse.
//
// Deletes are never reversible. Copy, move and link never replace an
// existing target.
//
// The package relies on POSIX *at syscalls and builds on Unix only.
package filesystem

import (
	"context"
	"slices"
	"sync"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/pkg/transaction"
	"golang.org/x/sync/semaphore"
)

const (
	// DefaultMaxOpenFiles bounds concurrently open files during copies.
	DefaultMaxOpenFiles = 64

	phaseCommit   = "commit"
	phaseRollback = "rollback"
)

// Option configures a Transaction.
type Option func(*options)

type options struct {
	maxParallel  int
	maxOpenFiles int64
	metrics      Metrics
}

// WithMaxParallel bounds how many actions of one batch run at once. Zero
// means unbounded.
func WithMaxParallel(n int) Option {
	return func(o *options) {
		o.maxParallel = n
	}
}

// WithMaxOpenFiles bounds how many files are copied at once.
func WithMaxOpenFiles(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxOpenFiles = int64(n)
		}
	}
}

// WithMetrics sets the batch observer.
func WithMetrics(m Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// entry is one journaled inverse action.
type entry struct {
	undo    Action
	applied bool
}

// Transaction is a filesystem transaction confined to one root directory.
// It is safe for concurrent use; Commit and Rollback are serialized.
type Transaction struct {
	mu      sync.Mutex
	dir     *Dir
	opts    options
	sem     *semaphore.Weighted
	actions []Action
	journal []*entry
}

// New opens rootPath and returns an empty transaction confined to it.
func New(rootPath string, opts ...Option) (*Transaction, error) {
	dir, err := OpenDir(rootPath)
	if err != nil {
		return nil, err
	}

	o := options{maxOpenFiles: DefaultMaxOpenFiles}
	for _, opt := range opts {
		opt(&o)
	}

	return &Transaction{
		dir:  dir,
		opts: o,
		sem:  semaphore.NewWeighted(o.maxOpenFiles),
	}, nil
}

// Kind implements the optional kind label used by transaction.Kind.
func (t *Transaction) Kind() string {
	return "filesystem"
}

// Root returns the absolute root path.
func (t *Transaction) Root() string {
	return t.dir.Path()
}

// Close releases the root directory capability.
func (t *Transaction) Close() error {
	return t.dir.Close()
}

// Actions returns a copy of the recorded actions.
func (t *Transaction) Actions() []Action {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.actions)
}

// CopyPath records a copy of source to target. Directories are copied
// recursively. Rolled back by deleting target.
func (t *Transaction) CopyPath(source, target string) {
	t.add(Action{Kind: Copy, Source: source, Target: target})
}

// MovePath records a move of source to target. Rolled back by moving target
// back to source.
func (t *Transaction) MovePath(source, target string) {
	t.add(Action{Kind: Move, Source: source, Target: target})
}

// HardLinkPath records a hard link at target to source.
func (t *Transaction) HardLinkPath(source, target string) {
	t.add(Action{Kind: HardLink, Source: source, Target: target})
}

// SoftLinkPath records a symbolic link at target pointing at source. The link
// text is not validated.
func (t *Transaction) SoftLinkPath(source, target string) {
	t.add(Action{Kind: SoftLink, Source: source, Target: target})
}

// CreateDirectory records the creation of path and its missing parents.
func (t *Transaction) CreateDirectory(path string) {
	t.add(Action{Kind: CreateDirectory, Target: path})
}

// DeletePath records the removal of path. Deletes cannot be rolled back.
func (t *Transaction) DeletePath(path string) {
	t.add(Action{Kind: Delete, Target: path})
}

// ChangeOwnerPermissions records an owner, group and mode change. Empty user
// or group and nil permissions leave that part unchanged. Unchanged bits of
// permissions keep their current value.
func (t *Transaction) ChangeOwnerPermissions(path, user, group string, permissions *transaction.Permissions) {
	a := Action{Kind: ChangeOwnerPermissions, Target: path, User: user, Group: group}
	if permissions != nil {
		p := *permissions
		a.Permissions = &p
	}
	t.add(a)
}

func (t *Transaction) add(a Action) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.actions = append(t.actions, a)
}

// Commit applies the recorded actions batch by batch. The first failing
// batch aborts the commit; whatever was applied before it stays journaled
// for Rollback.
func (t *Transaction) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	logger.DebugCtx(ctx, "Committing filesystem transaction",
		logger.KeyRoot, t.dir.Path(),
		logger.KeyCount, len(t.actions))

	return t.commit(ctx)
}

// Rollback undoes the applied actions of the last Commit in reverse order.
// Paths that no longer exist are treated as already undone. Undone entries
// are dropped, so a second Rollback does nothing.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	logger.DebugCtx(ctx, "Rolling back filesystem transaction",
		logger.KeyRoot, t.dir.Path(),
		logger.KeyCount, t.appliedCount())

	return t.rollback(ctx)
}

func (t *Transaction) appliedCount() int {
	n := 0
	for _, e := range t.journal {
		if e.applied {
			n++
		}
	}
	return n
}
