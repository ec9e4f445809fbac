package fsutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	root := t.TempDir()

	p, err := Resolve(root, "notes/outline.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "notes", "outline.txt"), p)

	p, err = Resolve(root, filepath.Join(root, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "a.txt"), p)
}

func TestResolveRejectsEscapes(t *testing.T) {
	root := t.TempDir()

	for _, name := range []string{"../secret", "a/../../b", "/etc/passwd"} {
		_, err := Resolve(root, name)
		require.ErrorIs(t, err, ErrOutsideRoot, name)
	}

	_, err := Resolve(root, "")
	require.Error(t, err)
}

func TestResolveAllowsDotDotPrefixedNames(t *testing.T) {
	root := t.TempDir()

	p, err := Resolve(root, "..notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "..notes.txt"), p)
}

func TestWriteFileKeepsMode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "doc.txt")

	require.NoError(t, WriteFile(path, []byte("one")))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, WriteFile(path, []byte("two")))

	info, err = os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "two", string(data))
}

func TestLockerSerializes(t *testing.T) {
	var l Locker
	counter := 0

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			l.Lock("doc.txt")
			defer l.Unlock("doc.txt")
			counter++
		})
	}
	wg.Wait()

	assert.Equal(t, 50, counter)
	assert.Empty(t, l.locks)
}

func TestLockerUnlockUnknownIsNoop(t *testing.T) {
	var l Locker
	assert.NotPanics(t, func() { l.Unlock("missing") })
}
