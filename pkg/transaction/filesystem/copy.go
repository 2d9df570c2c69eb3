package filesystem

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// copier copies a source tree into the root. Directory entries fan out onto
// their own goroutines; open files are bounded by sem.
type copier struct {
	dir *Dir
	src fs.FS
	sem *semaphore.Weighted
}

// copyPath copies source to target. A top-level symlink source is followed;
// symlinks found inside a copied directory are recreated as symlinks.
func (d *Dir) copyPath(ctx context.Context, sem *semaphore.Weighted, source, target string) error {
	rel, err := d.Rel(target)
	if err != nil {
		return err
	}
	fsys, name, err := d.sourceFS(source)
	if err != nil {
		return err
	}

	info, err := fs.Stat(fsys, name)
	if err != nil {
		return puberrors.NewIOError("stat source", source, err)
	}

	c := &copier{dir: d, src: fsys, sem: sem}
	switch {
	case info.IsDir():
		return c.copyDir(ctx, name, rel, info.Mode())
	case info.Mode().IsRegular():
		return c.copyFile(ctx, name, rel, info.Mode())
	default:
		return puberrors.NewInvalidMetadataError(source)
	}
}

// copyDir creates target, then copies every entry concurrently. Any entry
// failure fails the directory copy once all entries have finished. Target
// stays owner-writable until its entries exist and only then takes the
// source's permissions, so read-only source directories still copy.
func (c *copier) copyDir(ctx context.Context, name, target string, mode fs.FileMode) error {
	if err := c.dir.root.Mkdir(target, 0o700); err != nil {
		return puberrors.NewIOError("mkdir", target, err)
	}

	entries, err := fs.ReadDir(c.src, name)
	if err != nil {
		return puberrors.NewIOError("read directory", name, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, entry := range entries {
		g.Go(func() error {
			return c.copyEntry(gctx, path.Join(name, entry.Name()), filepath.Join(target, entry.Name()))
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if err := c.dir.root.Chmod(target, mode.Perm()); err != nil {
		return puberrors.NewIOError("chmod", target, err)
	}
	return nil
}

func (c *copier) copyEntry(ctx context.Context, name, target string) error {
	info, err := fs.Lstat(c.src, name)
	if err != nil {
		return puberrors.NewIOError("stat source", name, err)
	}

	switch {
	case info.IsDir():
		return c.copyDir(ctx, name, target, info.Mode())
	case info.Mode().IsRegular():
		return c.copyFile(ctx, name, target, info.Mode())
	case info.Mode()&fs.ModeSymlink != 0:
		link, err := fs.ReadLink(c.src, name)
		if err != nil {
			return puberrors.NewIOError("readlink", name, err)
		}
		if err := c.dir.root.Symlink(link, target); err != nil {
			return puberrors.NewIOError("symlink", target, err)
		}
		return nil
	default:
		return puberrors.NewInvalidMetadataError(name)
	}
}

// copyFile copies one regular file byte for byte. The target must not exist.
func (c *copier) copyFile(ctx context.Context, name, target string, mode fs.FileMode) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	in, err := c.src.Open(name)
	if err != nil {
		return puberrors.NewIOError("open source", name, err)
	}
	defer in.Close()

	out, err := c.dir.root.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode.Perm())
	if err != nil {
		return puberrors.NewIOError("create", target, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return puberrors.NewIOError("copy", target, err)
	}
	if err := out.Close(); err != nil {
		return puberrors.NewIOError("close", target, err)
	}
	return nil
}
