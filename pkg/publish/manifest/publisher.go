package manifest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/scott-wilson/publish/internal/logger"
	"github.com/scott-wilson/publish/pkg/publish"
	"github.com/scott-wilson/publish/pkg/transaction"
	"github.com/scott-wilson/publish/pkg/transaction/filesystem"
	"github.com/scott-wilson/publish/pkg/transaction/objectstore"
)

// ClientFactory returns the object store client used by object_store
// entries. It is called at most once per Publisher.
type ClientFactory func(ctx context.Context) (objectstore.Client, error)

// Option configures a Publisher.
type Option func(*Publisher)

// WithFilesystemOptions applies opts to every filesystem transaction.
func WithFilesystemOptions(opts ...filesystem.Option) Option {
	return func(p *Publisher) {
		p.fsOpts = append(p.fsOpts, opts...)
	}
}

// WithObjectStore sets the client factory and the options applied to every
// object store transaction.
func WithObjectStore(factory ClientFactory, opts ...objectstore.Option) Option {
	return func(p *Publisher) {
		p.clientFactory = factory
		p.osOpts = append(p.osOpts, opts...)
	}
}

// Publisher runs a manifest. It implements every publish stage over
// publish.Context.
type Publisher struct {
	m             *Manifest
	fsOpts        []filesystem.Option
	osOpts        []objectstore.Option
	clientFactory ClientFactory

	mu     sync.Mutex
	client objectstore.Client
	fsTxs  []*filesystem.Transaction
	closed bool
}

var (
	_ publish.PrePublisher[publish.Context]  = (*Publisher)(nil)
	_ publish.Publisher[publish.Context]     = (*Publisher)(nil)
	_ publish.PostPublisher[publish.Context] = (*Publisher)(nil)
)

// New returns a Publisher for m. m must have passed Validate.
func New(m *Manifest, opts ...Option) (*Publisher, error) {
	if m == nil {
		return nil, fmt.Errorf("manifest is required")
	}
	p := &Publisher{m: m}
	for _, opt := range opts {
		opt(p)
	}
	if p.clientFactory == nil && m.usesObjectStore() {
		return nil, fmt.Errorf("manifest has object_store entries but no object store is configured")
	}
	return p, nil
}

// Manifest returns the manifest being published.
func (p *Publisher) Manifest() *Manifest {
	return p.m
}

// Close releases every filesystem root opened by the stages. Call it once the
// run has finished; rollbacks need the roots open.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, tx := range p.fsTxs {
		errs = append(errs, tx.Close())
	}
	p.fsTxs = nil
	p.closed = true
	return errors.Join(errs...)
}

func (p *Publisher) PrePublish(ctx context.Context, tx *transaction.Root, c publish.Context) (publish.Context, error) {
	return p.stage(ctx, publish.StagePrePublish, tx, c)
}

func (p *Publisher) Publish(ctx context.Context, tx *transaction.Root, c publish.Context) (publish.Context, error) {
	return p.stage(ctx, publish.StagePublish, tx, c)
}

func (p *Publisher) PostPublish(ctx context.Context, tx *transaction.Root, c publish.Context) (publish.Context, error) {
	return p.stage(ctx, publish.StagePostPublish, tx, c)
}

// TransactionsKey is the context key under which a stage records how many
// transactions it added.
func TransactionsKey(stage publish.Stage) string {
	return fmt.Sprintf("stage.%s.transactions", stage)
}

func (p *Publisher) stage(ctx context.Context, stage publish.Stage, tx *transaction.Root, c publish.Context) (publish.Context, error) {
	entries := p.m.Stages.entries(stage)
	if err := p.addEntries(ctx, tx, entries); err != nil {
		return c, err
	}

	logger.DebugCtx(ctx, "Manifest stage prepared",
		slog.Int(logger.KeyChildren, tx.Len()),
		slog.Int(logger.KeyGroups, tx.Groups()))

	c.Set(TransactionsKey(stage), publish.IntValue(int64(tx.Len())))
	return c, nil
}

func (p *Publisher) addEntries(ctx context.Context, root *transaction.Root, entries []Entry) error {
	for i := range entries {
		e := &entries[i]

		child, err := p.build(ctx, e)
		if err != nil {
			return err
		}
		if e.Parallel {
			root.AddChildParallel(child)
		} else {
			root.AddChild(child)
		}
	}
	return nil
}

func (p *Publisher) build(ctx context.Context, e *Entry) (transaction.Transaction, error) {
	switch {
	case e.Filesystem != nil:
		return p.buildFilesystem(e.Filesystem)
	case e.ObjectStore != nil:
		return p.buildObjectStore(ctx, e.ObjectStore)
	case e.Group != nil:
		group := transaction.NewRoot()
		if err := p.addEntries(ctx, group, e.Group); err != nil {
			return nil, err
		}
		return group, nil
	default:
		return nil, fmt.Errorf("empty manifest entry")
	}
}

func (p *Publisher) buildFilesystem(e *FilesystemEntry) (*filesystem.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("publisher is closed")
	}

	tx, err := filesystem.New(p.m.rootFor(e), p.fsOpts...)
	if err != nil {
		return nil, err
	}
	p.fsTxs = append(p.fsTxs, tx)

	for _, a := range e.Actions {
		switch {
		case a.CreateDirectory != "":
			tx.CreateDirectory(a.CreateDirectory)
		case a.Copy != nil:
			tx.CopyPath(a.Copy.Source, a.Copy.Target)
		case a.Move != nil:
			tx.MovePath(a.Move.Source, a.Move.Target)
		case a.HardLink != nil:
			tx.HardLinkPath(a.HardLink.Source, a.HardLink.Target)
		case a.SoftLink != nil:
			tx.SoftLinkPath(a.SoftLink.Source, a.SoftLink.Target)
		case a.Delete != "":
			tx.DeletePath(a.Delete)
		case a.ChangeOwnerPermissions != nil:
			op := a.ChangeOwnerPermissions
			var perms *transaction.Permissions
			if op.Permissions != "" {
				parsed, err := transaction.ParsePermissions(op.Permissions)
				if err != nil {
					return nil, err
				}
				perms = &parsed
			}
			tx.ChangeOwnerPermissions(op.Path, op.User, op.Group, perms)
		}
	}
	return tx, nil
}

func (p *Publisher) buildObjectStore(ctx context.Context, e *ObjectStoreEntry) (*objectstore.Transaction, error) {
	client, err := p.objectStoreClient(ctx)
	if err != nil {
		return nil, err
	}

	opts := append([]objectstore.Option{objectstore.WithPrefix(e.Prefix)}, p.osOpts...)
	tx, err := objectstore.New(client, e.Bucket, opts...)
	if err != nil {
		return nil, err
	}
	for _, u := range e.Uploads {
		tx.UploadFile(p.m.resolve(u.Source), u.Key)
	}
	for _, key := range e.Deletes {
		tx.DeleteKey(key)
	}
	return tx, nil
}

func (p *Publisher) objectStoreClient(ctx context.Context) (objectstore.Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	if p.clientFactory == nil {
		return nil, fmt.Errorf("no object store is configured")
	}
	client, err := p.clientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}
	p.client = client
	return client, nil
}

func (m *Manifest) usesObjectStore() bool {
	return usesObjectStore(m.Stages.PrePublish) ||
		usesObjectStore(m.Stages.Publish) ||
		usesObjectStore(m.Stages.PostPublish)
}

func usesObjectStore(entries []Entry) bool {
	for i := range entries {
		if entries[i].ObjectStore != nil || usesObjectStore(entries[i].Group) {
			return true
		}
	}
	return false
}
