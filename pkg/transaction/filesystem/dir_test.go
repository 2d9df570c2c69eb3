package filesystem

import (
	"errors"
	"path/filepath"
	"testing"

	puberrors "github.com/scott-wilson/publish/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirRel(t *testing.T) {
	root := t.TempDir()
	dir, err := OpenDir(root)
	require.NoError(t, err)
	defer dir.Close()

	valid := map[string]string{
		"a":                           "a",
		"a/b/../c":                    filepath.Join("a", "c"),
		"./a":                         "a",
		filepath.Join(root, "x/y"):    filepath.Join("x", "y"),
		filepath.Join(root, "x/../z"): "z",
	}
	for in, want := range valid {
		t.Run(in, func(t *testing.T) {
			got, err := dir.Rel(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	invalid := []string{
		"",
		".",
		root,
		"../escape",
		"a/../../escape",
		filepath.Join(filepath.Dir(root), "sibling"),
		"/",
	}
	for _, in := range invalid {
		t.Run("invalid "+in, func(t *testing.T) {
			_, err := dir.Rel(in)
			assert.True(t, errors.Is(err, puberrors.ErrTargetPathInvalid), "input %q: %v", in, err)
		})
	}
}

func TestDirSourceParent(t *testing.T) {
	root := t.TempDir()
	dir, err := OpenDir(root)
	require.NoError(t, err)
	defer dir.Close()

	for _, in := range []string{"", "/", "..", "../outside"} {
		t.Run(in, func(t *testing.T) {
			_, _, err := dir.openSourceParent(in)
			assert.True(t, errors.Is(err, puberrors.ErrSourcePathInvalid), "input %q: %v", in, err)
		})
	}

	f, name, err := dir.openSourceParent(filepath.Join(root, "file"))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, "file", name)
}
