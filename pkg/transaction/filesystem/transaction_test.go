package filesystem

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/scott-wilson/publish/pkg/transaction"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Test Helpers
// ============================================================================

func newTestTransaction(t *testing.T, root string, opts ...Option) *Transaction {
	t.Helper()
	tx, err := New(root, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = tx.Close() })
	return tx
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func assertNotExist(t *testing.T, path string) {
	t.Helper()
	_, err := os.Lstat(path)
	assert.True(t, errors.Is(err, fs.ErrNotExist), "%s should not exist", path)
}

func statOwner(t *testing.T, path string) (uint32, uint32, fs.FileMode) {
	t.Helper()
	info, err := os.Stat(path)
	require.NoError(t, err)
	st := info.Sys().(*syscall.Stat_t)
	return st.Uid, st.Gid, info.Mode()
}

// ============================================================================
// Construction
// ============================================================================

func TestNew(t *testing.T) {
	t.Run("MissingRoot", func(t *testing.T) {
		_, err := New(filepath.Join(t.TempDir(), "missing"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, puberrors.ErrIO))
		assert.True(t, errors.Is(err, fs.ErrNotExist))
	})

	t.Run("RootIsFile", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "file")
		writeFile(t, file, "x")

		_, err := New(file)
		assert.True(t, errors.Is(err, puberrors.ErrInvalidMetadata))
	})

	t.Run("Builders", func(t *testing.T) {
		root := t.TempDir()
		tx := newTestTransaction(t, root)
		perms := transaction.FromMode(0o600)

		tx.CopyPath("/src/a", "a")
		tx.MovePath("/src/b", "b")
		tx.HardLinkPath("a", "c")
		tx.SoftLinkPath("a", "d")
		tx.CreateDirectory("e")
		tx.DeletePath("f")
		tx.ChangeOwnerPermissions("a", "", "", &perms)

		actions := tx.Actions()
		require.Len(t, actions, 7)
		kinds := make([]Kind, 0, len(actions))
		for _, a := range actions {
			kinds = append(kinds, a.Kind)
		}
		assert.Equal(t, []Kind{Copy, Move, HardLink, SoftLink, CreateDirectory, Delete, ChangeOwnerPermissions}, kinds)
		assert.Equal(t, root, tx.Root())
		assert.Equal(t, "filesystem", transaction.Kind(tx))

		// The recorded permissions are a copy.
		perms.User.Read = transaction.Unset
		assert.Equal(t, transaction.Set, actions[6].Permissions.User.Read)
	})
}

// ============================================================================
// Copy
// ============================================================================

func TestCopyFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "test")
	root := t.TempDir()
	target := filepath.Join(root, "test")

	tx := newTestTransaction(t, root)
	tx.CopyPath(source, "test")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "test", readFile(t, source))
	assert.Equal(t, "test", readFile(t, target))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.FileExists(t, source)
	assertNotExist(t, target)
}

func TestCopyFiles(t *testing.T) {
	sourceDir := t.TempDir()
	root := t.TempDir()
	names := []string{"test1", "test2", "test3"}

	tx := newTestTransaction(t, root)
	for _, name := range names {
		writeFile(t, filepath.Join(sourceDir, name), "content "+name)
		tx.CopyPath(filepath.Join(sourceDir, name), name)
	}
	require.NoError(t, tx.Commit(context.Background()))

	for _, name := range names {
		assert.Equal(t, "content "+name, readFile(t, filepath.Join(root, name)))
	}

	require.NoError(t, tx.Rollback(context.Background()))
	for _, name := range names {
		assert.FileExists(t, filepath.Join(sourceDir, name))
		assertNotExist(t, filepath.Join(root, name))
	}
}

func TestCopyFileOutsideRoot(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "test")
	elsewhere := filepath.Join(t.TempDir(), "test")
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.CopyPath(source, elsewhere)

	err := tx.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, puberrors.ErrTargetPathInvalid))

	assert.Equal(t, "test", readFile(t, source))
	assertNotExist(t, elsewhere)
	assertNotExist(t, filepath.Join(root, "test"))

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCopyFileAbsoluteTargetInsideRoot(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "test")
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.CopyPath(source, filepath.Join(root, "abs"))
	require.NoError(t, tx.Commit(context.Background()))
	assert.Equal(t, "test", readFile(t, filepath.Join(root, "abs")))
}

func TestCopyDirectory(t *testing.T) {
	sourceDir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(sourceDir, "a.txt"), "a")
	writeFile(t, filepath.Join(sourceDir, "sub", "b.txt"), "b")
	writeFile(t, filepath.Join(sourceDir, "sub", "deeper", "c.txt"), "c")
	require.NoError(t, os.Symlink("a.txt", filepath.Join(sourceDir, "link")))

	root := t.TempDir()
	tx := newTestTransaction(t, root, WithMaxOpenFiles(1))
	tx.CopyPath(sourceDir, "copy")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "a", readFile(t, filepath.Join(root, "copy", "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(root, "copy", "sub", "b.txt")))
	assert.Equal(t, "c", readFile(t, filepath.Join(root, "copy", "sub", "deeper", "c.txt")))
	link, err := os.Readlink(filepath.Join(root, "copy", "link"))
	require.NoError(t, err)
	assert.Equal(t, "a.txt", link)

	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "copy"))
	assert.FileExists(t, filepath.Join(sourceDir, "sub", "deeper", "c.txt"))
}

func TestCopyReadOnlyDirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	sourceDir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(sourceDir, "a.txt"), "a")
	writeFile(t, filepath.Join(sourceDir, "sub", "b.txt"), "b")
	require.NoError(t, os.Chmod(filepath.Join(sourceDir, "sub"), 0o555))
	require.NoError(t, os.Chmod(sourceDir, 0o555))

	root := t.TempDir()
	copied := filepath.Join(root, "copy")
	t.Cleanup(func() {
		for _, dir := range []string{sourceDir, filepath.Join(sourceDir, "sub"), copied, filepath.Join(copied, "sub")} {
			_ = os.Chmod(dir, 0o755)
		}
	})

	tx := newTestTransaction(t, root)
	tx.CopyPath(sourceDir, "copy")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "a", readFile(t, filepath.Join(copied, "a.txt")))
	assert.Equal(t, "b", readFile(t, filepath.Join(copied, "sub", "b.txt")))
	for _, dir := range []string{copied, filepath.Join(copied, "sub")} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o555), info.Mode().Perm(), dir)
	}
}

func TestCopyDirectoryOutsideRoot(t *testing.T) {
	sourceDir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(sourceDir, "a.txt"), "a")
	elsewhere := filepath.Join(t.TempDir(), "tree")
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.CopyPath(sourceDir, elsewhere)
	require.Error(t, tx.Commit(context.Background()))

	assertNotExist(t, elsewhere)
	assert.FileExists(t, filepath.Join(sourceDir, "a.txt"))
}

func TestCopyNeverReplacesTarget(t *testing.T) {
	source := filepath.Join(t.TempDir(), "new")
	writeFile(t, source, "new")
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "existing"), "old")

	tx := newTestTransaction(t, root)
	tx.CopyPath(source, "existing")

	err := tx.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrExist))

	// The failed copy must not schedule the pre-existing file for removal.
	require.NoError(t, tx.Rollback(context.Background()))
	assert.Equal(t, "old", readFile(t, filepath.Join(root, "existing")))
}

func TestCopyMissingSource(t *testing.T) {
	root := t.TempDir()
	tx := newTestTransaction(t, root)
	tx.CopyPath(filepath.Join(t.TempDir(), "missing"), "x")

	err := tx.Commit(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
	assertNotExist(t, filepath.Join(root, "x"))
}

// ============================================================================
// Move
// ============================================================================

func TestMoveFile(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "test")
	root := t.TempDir()
	target := filepath.Join(root, "test")

	tx := newTestTransaction(t, root)
	tx.MovePath(source, "test")
	require.NoError(t, tx.Commit(context.Background()))

	assertNotExist(t, source)
	assert.Equal(t, "test", readFile(t, target))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.Equal(t, "test", readFile(t, source))
	assertNotExist(t, target)
}

func TestMoveFiles(t *testing.T) {
	sourceDir := t.TempDir()
	root := t.TempDir()
	names := []string{"test1", "test2", "test3"}

	tx := newTestTransaction(t, root)
	for _, name := range names {
		writeFile(t, filepath.Join(sourceDir, name), name)
		tx.MovePath(filepath.Join(sourceDir, name), name)
	}
	require.NoError(t, tx.Commit(context.Background()))

	for _, name := range names {
		assertNotExist(t, filepath.Join(sourceDir, name))
		assert.Equal(t, name, readFile(t, filepath.Join(root, name)))
	}

	require.NoError(t, tx.Rollback(context.Background()))
	for _, name := range names {
		assert.Equal(t, name, readFile(t, filepath.Join(sourceDir, name)))
		assertNotExist(t, filepath.Join(root, name))
	}
}

func TestMoveDirectory(t *testing.T) {
	sourceDir := filepath.Join(t.TempDir(), "tree")
	writeFile(t, filepath.Join(sourceDir, "sub", "a.txt"), "a")
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.MovePath(sourceDir, "tree")
	require.NoError(t, tx.Commit(context.Background()))

	assertNotExist(t, sourceDir)
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "tree", "sub", "a.txt")))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.Equal(t, "a", readFile(t, filepath.Join(sourceDir, "sub", "a.txt")))
	assertNotExist(t, filepath.Join(root, "tree"))
}

func TestMoveInsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "src", "a.txt"), "a")
	require.NoError(t, os.Mkdir(filepath.Join(root, "dst"), 0o755))

	tx := newTestTransaction(t, root)
	tx.MovePath("src/a.txt", "dst/a.txt")
	require.NoError(t, tx.Commit(context.Background()))
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "dst", "a.txt")))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.Equal(t, "a", readFile(t, filepath.Join(root, "src", "a.txt")))
}

func TestMoveFileOutsideRoot(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "test")
	elsewhere := filepath.Join(t.TempDir(), "test")
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.MovePath(source, elsewhere)

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, puberrors.ErrTargetPathInvalid))
	assert.Equal(t, "test", readFile(t, source))
	assertNotExist(t, elsewhere)
}

func TestMoveNeverReplacesTarget(t *testing.T) {
	source := filepath.Join(t.TempDir(), "test")
	writeFile(t, source, "new")
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test"), "old")

	tx := newTestTransaction(t, root)
	tx.MovePath(source, "test")

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, fs.ErrExist))
	assert.Equal(t, "new", readFile(t, source))
	assert.Equal(t, "old", readFile(t, filepath.Join(root, "test")))
}

func TestMoveSourceWithoutFileName(t *testing.T) {
	root := t.TempDir()
	tx := newTestTransaction(t, root)
	tx.MovePath("/", "x")

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, puberrors.ErrSourcePathInvalid))
}

// ============================================================================
// Links
// ============================================================================

func TestHardLinkFile(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	target := filepath.Join(root, "target")
	writeFile(t, source, "test")

	tx := newTestTransaction(t, root)
	tx.HardLinkPath("source", "target")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "test", readFile(t, target))
	sourceInfo, err := os.Stat(source)
	require.NoError(t, err)
	targetInfo, err := os.Stat(target)
	require.NoError(t, err)
	assert.True(t, os.SameFile(sourceInfo, targetInfo))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.FileExists(t, source)
	assertNotExist(t, target)
}

func TestHardLinkFiles(t *testing.T) {
	root := t.TempDir()
	names := []string{"test1", "test2", "test3"}

	tx := newTestTransaction(t, root)
	for _, name := range names {
		writeFile(t, filepath.Join(root, "source_"+name), name)
		tx.HardLinkPath("source_"+name, "target_"+name)
	}
	require.NoError(t, tx.Commit(context.Background()))

	for _, name := range names {
		assert.Equal(t, name, readFile(t, filepath.Join(root, "target_"+name)))
	}

	require.NoError(t, tx.Rollback(context.Background()))
	for _, name := range names {
		assert.FileExists(t, filepath.Join(root, "source_"+name))
		assertNotExist(t, filepath.Join(root, "target_"+name))
	}
}

func TestHardLinkOutsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "source"), "test")
	elsewhere := filepath.Join(t.TempDir(), "target")

	tx := newTestTransaction(t, root)
	tx.HardLinkPath("source", elsewhere)

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, puberrors.ErrTargetPathInvalid))
	assertNotExist(t, elsewhere)
}

func TestSoftLinkFile(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "source")
	target := filepath.Join(root, "target")
	writeFile(t, source, "test")

	tx := newTestTransaction(t, root)
	tx.SoftLinkPath("source", "target")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "test", readFile(t, target))
	info, err := os.Lstat(target)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&fs.ModeSymlink)

	require.NoError(t, tx.Rollback(context.Background()))
	assert.FileExists(t, source)
	assertNotExist(t, target)
}

func TestSoftLinkDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "source_dir", "test"), "test")

	tx := newTestTransaction(t, root)
	tx.SoftLinkPath("source_dir", "target_dir")
	require.NoError(t, tx.Commit(context.Background()))

	assert.Equal(t, "test", readFile(t, filepath.Join(root, "target_dir", "test")))

	// Rolling back removes the link, never what it points at.
	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "target_dir"))
	assert.FileExists(t, filepath.Join(root, "source_dir", "test"))
}

func TestSoftLinkOutsideRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "source_test", "test"), "test")
	elsewhere := filepath.Join(t.TempDir(), "target_test")

	tx := newTestTransaction(t, root)
	tx.SoftLinkPath(filepath.Join(root, "source_test"), elsewhere)

	require.Error(t, tx.Commit(context.Background()))
	assertNotExist(t, elsewhere)
}

// ============================================================================
// Create / Delete
// ============================================================================

func TestCreateDirectory(t *testing.T) {
	root := t.TempDir()

	tx := newTestTransaction(t, root)
	tx.CreateDirectory("test")
	require.NoError(t, tx.Commit(context.Background()))
	assert.DirExists(t, filepath.Join(root, "test"))

	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "test"))
}

func TestCreateDirectoryParents(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "a"), 0o755))

	tx := newTestTransaction(t, root)
	tx.CreateDirectory("a/b/c")
	require.NoError(t, tx.Commit(context.Background()))
	assert.DirExists(t, filepath.Join(root, "a", "b", "c"))

	// Only the parents this transaction created are removed.
	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "a", "b"))
	assert.DirExists(t, filepath.Join(root, "a"))
}

func TestCreateExistingDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test", "keep"), "keep")

	tx := newTestTransaction(t, root)
	tx.CreateDirectory("test")
	require.NoError(t, tx.Commit(context.Background()))

	require.NoError(t, tx.Rollback(context.Background()))
	assert.FileExists(t, filepath.Join(root, "test", "keep"))
}

func TestCreateDirectoryOverFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test"), "file")

	tx := newTestTransaction(t, root)
	tx.CreateDirectory("test")

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, fs.ErrExist))
}

func TestDeleteFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test"), "test")

	tx := newTestTransaction(t, root)
	tx.DeletePath("test")
	require.NoError(t, tx.Commit(context.Background()))
	assertNotExist(t, filepath.Join(root, "test"))

	// Deletes are not reversible.
	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "test"))
}

func TestDeleteDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test", "test"), "test")

	tx := newTestTransaction(t, root)
	tx.DeletePath("test")
	require.NoError(t, tx.Commit(context.Background()))
	assertNotExist(t, filepath.Join(root, "test"))

	require.NoError(t, tx.Rollback(context.Background()))
	assertNotExist(t, filepath.Join(root, "test"))
}

func TestDeleteSymlinkKeepsTarget(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "dir", "file"), "x")
	require.NoError(t, os.Symlink("dir", filepath.Join(root, "link")))

	tx := newTestTransaction(t, root)
	tx.DeletePath("link")
	require.NoError(t, tx.Commit(context.Background()))

	assertNotExist(t, filepath.Join(root, "link"))
	assert.FileExists(t, filepath.Join(root, "dir", "file"))
}

func TestDeleteRootRejected(t *testing.T) {
	root := t.TempDir()
	tx := newTestTransaction(t, root)
	tx.DeletePath(".")

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, puberrors.ErrTargetPathInvalid))
	assert.DirExists(t, root)
}

// ============================================================================
// Owner / Permissions
// ============================================================================

func TestChangeOwnerPermissions(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "test")
	writeFile(t, path, "test")
	require.NoError(t, os.Chmod(path, 0o644))
	uid, gid, mode := statOwner(t, path)

	tx := newTestTransaction(t, root)
	ctx := context.Background()

	assertInitial := func() {
		t.Helper()
		gotUID, gotGID, gotMode := statOwner(t, path)
		assert.Equal(t, uid, gotUID)
		assert.Equal(t, gid, gotGID)
		assert.Equal(t, mode, gotMode)
	}

	// Nothing requested.
	tx.ChangeOwnerPermissions("test", "", "", nil)
	require.NoError(t, tx.Commit(ctx))
	assertInitial()

	// Current owner and group, by numeric id.
	tx.ChangeOwnerPermissions("test", strconv.FormatUint(uint64(uid), 10), strconv.FormatUint(uint64(gid), 10), nil)
	require.NoError(t, tx.Commit(ctx))
	assertInitial()
	require.NoError(t, tx.Rollback(ctx))
	assertInitial()

	// All bits unchanged.
	tx.ChangeOwnerPermissions("test", "", "", &transaction.Permissions{})
	require.NoError(t, tx.Commit(ctx))
	assertInitial()
	require.NoError(t, tx.Rollback(ctx))
	assertInitial()

	tests := []struct {
		name string
		mode uint32
	}{
		{"UserRead", 0o400},
		{"UserWrite", 0o200},
		{"UserExecute", 0o100},
		{"GroupRead", 0o040},
		{"OtherExecute", 0o001},
		{"All", 0o777},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			perms := transaction.FromMode(tt.mode)
			tx := newTestTransaction(t, root)
			tx.ChangeOwnerPermissions("test", "", "", &perms)
			require.NoError(t, tx.Commit(ctx))

			_, _, got := statOwner(t, path)
			assert.Equal(t, fs.FileMode(tt.mode), got.Perm())

			require.NoError(t, tx.Rollback(ctx))
			assertInitial()
		})
	}
}

func TestChangePermissionsPartial(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "test")
	writeFile(t, path, "test")
	require.NoError(t, os.Chmod(path, 0o644))

	edit := transaction.Permissions{
		User:  transaction.ScopedPermissions{Execute: transaction.Set},
		Other: transaction.ScopedPermissions{Read: transaction.Unset},
	}
	tx := newTestTransaction(t, root)
	tx.ChangeOwnerPermissions("test", "", "", &edit)
	require.NoError(t, tx.Commit(context.Background()))

	_, _, mode := statOwner(t, path)
	assert.Equal(t, fs.FileMode(0o740), mode.Perm())

	require.NoError(t, tx.Rollback(context.Background()))
	_, _, mode = statOwner(t, path)
	assert.Equal(t, fs.FileMode(0o644), mode.Perm())
}

func TestChangeOwnerUnknownUser(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "test"), "test")

	tx := newTestTransaction(t, root)
	tx.ChangeOwnerPermissions("test", "no-such-user-for-publish-tests", "", nil)

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, puberrors.ErrIO))
}

func TestChangeOwnerMissingPath(t *testing.T) {
	root := t.TempDir()
	tx := newTestTransaction(t, root)
	perms := transaction.FromMode(0o600)
	tx.ChangeOwnerPermissions("missing", "", "", &perms)

	err := tx.Commit(context.Background())
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}
