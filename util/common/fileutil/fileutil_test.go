package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nitro-repo/nitro-repo/util/common/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSafeJoin(t *testing.T) {
	root := t.TempDir()

	got, err := SafeJoin(root, "foo/1.0.0/foo-1.0.0.tgz")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "foo", "1.0.0", "foo-1.0.0.tgz"), got)

	got, err = SafeJoin(root, "/")
	require.NoError(t, err)
	assert.Equal(t, root, got)

	_, err = SafeJoin(root, "../outside")
	assert.True(t, errors.Is(err, errors.ErrPathEscape))

	_, err = SafeJoin(root, "a/..\\..\\b")
	assert.True(t, errors.Is(err, errors.ErrPathEscape))
}

func TestAtomicWriteAndRead(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "file.json")
	require.NoError(t, AtomicWriteFile(target, []byte("one"), 0o644))
	require.NoError(t, AtomicWriteFile(target, []byte("two"), 0o644))

	data, err := ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestCopyDir(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(src, "a", "b"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a", "b", "c.txt"), []byte("c"), 0o644))

	dst := filepath.Join(t.TempDir(), "copy")
	require.NoError(t, CopyDir(src, dst))
	assert.True(t, IsFile(filepath.Join(dst, "a", "b", "c.txt")))
	assert.True(t, IsDir(filepath.Join(dst, "a")))
}
