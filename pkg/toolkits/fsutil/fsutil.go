// Package fsutil holds the path confinement, locking and write helpers shared
// by the file based toolkits.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// ErrOutsideRoot is returned when a path escapes the working directory.
var ErrOutsideRoot = errors.New("path escapes the working directory")

// Resolve joins name onto root and rejects results outside root. Absolute
// names are accepted only when they already live under root.
func Resolve(root, name string) (string, error) {
	if name == "" {
		return "", errors.New("file name is required")
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	p := name
	if !filepath.IsAbs(p) {
		p = filepath.Join(absRoot, p)
	}
	p = filepath.Clean(p)

	rel, err := filepath.Rel(absRoot, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s: %w", name, ErrOutsideRoot)
	}

	return p, nil
}

// WriteFile writes data to path, creating parent directories and keeping the
// permission bits of an existing file.
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	return os.WriteFile(path, data, fileMode(path))
}

// fileMode returns the existing file's permission bits, or 0o600 for new files.
func fileMode(path string) fs.FileMode {
	info, err := os.Stat(path)
	if err != nil {
		return 0o600
	}
	return info.Mode().Perm()
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Locker provides per-path mutual exclusion so read-modify-write tools do not
// interleave on the same file. Entries are dropped when the last holder
// unlocks. The zero value is ready to use.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

// Lock acquires the mutex for path.
func (l *Locker) Lock(path string) {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[string]*lockEntry)
	}
	e, ok := l.locks[path]
	if !ok {
		e = &lockEntry{}
		l.locks[path] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
}

// Unlock releases the mutex for path.
func (l *Locker) Unlock(path string) {
	l.mu.Lock()
	e, ok := l.locks[path]
	if !ok {
		l.mu.Unlock()
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(l.locks, path)
	}
	l.mu.Unlock()

	e.mu.Unlock()
}
