package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
)

// Dir is a directory capability. Every target path is resolved through the
// underlying os.Root, so symlinks and ".." components can never escape it.
// A Dir is safe for concurrent use.
type Dir struct {
	path string
	root *os.Root
}

// OpenDir opens path as a directory capability.
func OpenDir(path string) (*Dir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, puberrors.NewIOError("resolve root", path, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, puberrors.NewIOError("open root", abs, err)
	}
	if !info.IsDir() {
		return nil, puberrors.NewInvalidMetadataError(abs)
	}

	root, err := os.OpenRoot(abs)
	if err != nil {
		return nil, puberrors.NewIOError("open root", abs, err)
	}
	return &Dir{path: abs, root: root}, nil
}

// Path returns the absolute path the capability was opened at.
func (d *Dir) Path() string {
	return d.path
}

// Close releases the capability.
func (d *Dir) Close() error {
	return d.root.Close()
}

// Rel converts p into a local path inside the capability. Absolute paths are
// accepted only when they lie lexically inside the root.
func (d *Dir) Rel(p string) (string, error) {
	if p == "" {
		return "", puberrors.NewTargetPathInvalidError(p, "empty path")
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(d.path, filepath.Clean(p))
		if err != nil || !filepath.IsLocal(rel) {
			return "", puberrors.NewTargetPathInvalidError(p, "outside of transaction root")
		}
		p = rel
	}

	p = filepath.Clean(p)
	if p == "." {
		return "", puberrors.NewTargetPathInvalidError(p, "missing file name")
	}
	if !filepath.IsLocal(p) {
		return "", puberrors.NewTargetPathInvalidError(p, "outside of transaction root")
	}
	return p, nil
}

// openTargetParent opens the parent of target through the root and returns it
// with the base name.
func (d *Dir) openTargetParent(target string) (*os.File, string, error) {
	rel, err := d.Rel(target)
	if err != nil {
		return nil, "", err
	}
	parent, err := d.root.Open(filepath.Dir(rel))
	if err != nil {
		return nil, "", puberrors.NewIOError("open target parent", target, err)
	}
	return parent, filepath.Base(rel), nil
}

// openSourceParent opens the parent directory of a move or hard link source.
// Absolute sources are opened directly; relative ones through the root.
func (d *Dir) openSourceParent(source string) (*os.File, string, error) {
	clean := filepath.Clean(source)
	name := filepath.Base(clean)
	if source == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, "", puberrors.NewSourcePathInvalidError(source, "missing file name")
	}

	var (
		parent *os.File
		err    error
	)
	if filepath.IsAbs(clean) {
		parent, err = os.Open(filepath.Dir(clean))
	} else {
		if !filepath.IsLocal(clean) {
			return nil, "", puberrors.NewSourcePathInvalidError(source, "outside of transaction root")
		}
		parent, err = d.root.Open(filepath.Dir(clean))
	}
	if err != nil {
		return nil, "", puberrors.NewIOError("open source parent", source, err)
	}
	return parent, name, nil
}

// sourceFS returns a filesystem rooted at the parent of a copy source and the
// source's name inside it. Absolute sources are read from the host; relative
// ones through the root.
func (d *Dir) sourceFS(source string) (fs.FS, string, error) {
	clean := filepath.Clean(source)
	name := filepath.Base(clean)
	if source == "" || name == "." || name == ".." || name == string(filepath.Separator) {
		return nil, "", puberrors.NewSourcePathInvalidError(source, "missing file name")
	}

	if filepath.IsAbs(clean) {
		return os.DirFS(filepath.Dir(clean)), name, nil
	}
	if !filepath.IsLocal(clean) {
		return nil, "", puberrors.NewSourcePathInvalidError(source, "outside of transaction root")
	}
	return d.root.FS(), filepath.ToSlash(clean), nil
}

// exists reports whether rel exists inside the root without following a
// final symlink.
func (d *Dir) exists(rel string) (bool, error) {
	_, err := d.root.Lstat(rel)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
