package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"golang.org/x/sys/unix"
)

// move renames source to target. The target must not exist.
func (d *Dir) move(source, target string) error {
	from, fromName, err := d.openSourceParent(source)
	if err != nil {
		return err
	}
	defer from.Close()

	to, toName, err := d.openTargetParent(target)
	if err != nil {
		return err
	}
	defer to.Close()

	return renameNoReplace(from, fromName, to, toName, target)
}

// moveBack renames target back to source, undoing move.
func (d *Dir) moveBack(source, target string) error {
	from, fromName, err := d.openTargetParent(target)
	if err != nil {
		return err
	}
	defer from.Close()

	to, toName, err := d.openSourceParent(source)
	if err != nil {
		return err
	}
	defer to.Close()

	return renameNoReplace(from, fromName, to, toName, source)
}

func renameNoReplace(from *os.File, fromName string, to *os.File, toName, path string) error {
	var st unix.Stat_t
	err := unix.Fstatat(int(to.Fd()), toName, &st, unix.AT_SYMLINK_NOFOLLOW)
	if err == nil {
		return puberrors.NewIOError("rename", path, fs.ErrExist)
	}
	if !errors.Is(err, unix.ENOENT) {
		return puberrors.NewIOError("rename", path, err)
	}

	if err := unix.Renameat(int(from.Fd()), fromName, int(to.Fd()), toName); err != nil {
		return puberrors.NewIOError("rename", path, err)
	}
	return nil
}

// hardLink creates target as a hard link to source.
func (d *Dir) hardLink(source, target string) error {
	from, fromName, err := d.openSourceParent(source)
	if err != nil {
		return err
	}
	defer from.Close()

	to, toName, err := d.openTargetParent(target)
	if err != nil {
		return err
	}
	defer to.Close()

	if err := unix.Linkat(int(from.Fd()), fromName, int(to.Fd()), toName, 0); err != nil {
		return puberrors.NewIOError("link", target, err)
	}
	return nil
}

// softLink creates target as a symbolic link whose text is source.
func (d *Dir) softLink(source, target string) error {
	if source == "" {
		return puberrors.NewSourcePathInvalidError(source, "empty link text")
	}
	rel, err := d.Rel(target)
	if err != nil {
		return err
	}
	if err := d.root.Symlink(source, rel); err != nil {
		return puberrors.NewIOError("symlink", target, err)
	}
	return nil
}

// createDirectory creates target and its missing parents. It returns the
// topmost directory it created, or "" when target already existed.
func (d *Dir) createDirectory(target string) (string, error) {
	rel, err := d.Rel(target)
	if err != nil {
		return "", err
	}

	top := ""
	parts := strings.Split(rel, string(filepath.Separator))
	for i := range parts {
		p := filepath.Join(parts[:i+1]...)
		ok, err := d.exists(p)
		if err != nil {
			return "", puberrors.NewIOError("stat", p, err)
		}
		if !ok {
			top = p
			break
		}
	}

	if top == "" {
		info, err := d.root.Stat(rel)
		if err != nil {
			return "", puberrors.NewIOError("stat", target, err)
		}
		if !info.IsDir() {
			return "", puberrors.NewIOError("mkdir", target, fs.ErrExist)
		}
		return "", nil
	}

	if err := d.root.MkdirAll(rel, 0o777); err != nil {
		if ok, _ := d.exists(top); ok {
			return top, puberrors.NewIOError("mkdir", target, err)
		}
		return "", puberrors.NewIOError("mkdir", target, err)
	}
	return top, nil
}

// delete removes target. Directories are removed recursively.
func (d *Dir) delete(target string) error {
	rel, err := d.Rel(target)
	if err != nil {
		return err
	}

	info, err := d.root.Lstat(rel)
	if err != nil {
		return puberrors.NewIOError("stat", target, err)
	}

	switch {
	case info.IsDir():
		err = d.root.RemoveAll(rel)
	case info.Mode().IsRegular(), info.Mode()&fs.ModeSymlink != 0:
		err = d.root.Remove(rel)
	default:
		return puberrors.NewInvalidMetadataError(target)
	}
	if err != nil {
		return puberrors.NewIOError("remove", target, err)
	}
	return nil
}

// ensureAbsent fails when target already exists.
func (d *Dir) ensureAbsent(target string) error {
	rel, err := d.Rel(target)
	if err != nil {
		return err
	}
	ok, err := d.exists(rel)
	if err != nil {
		return puberrors.NewIOError("stat", target, err)
	}
	if ok {
		return puberrors.NewIOError("create", target, fs.ErrExist)
	}
	return nil
}
