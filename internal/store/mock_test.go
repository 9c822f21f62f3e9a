package store

import (
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/paytally/paysync/internal/localfs"
)

// memFS is an in-memory localfs.FS for store tests.
type memFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool

	// writeErr, when set, is returned by every WriteFile call.
	writeErr error
}

func newMemFS() *memFS {
	return &memFS{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (m *memFS) ReadFile(p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	content, ok := m.files[p]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}
	return append([]byte(nil), content...), nil
}

func (m *memFS) WriteFile(p string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.writeErr != nil {
		return m.writeErr
	}
	m.files[p] = append([]byte(nil), content...)
	return nil
}

func (m *memFS) EnsureDir(p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for p != "/" && p != "." && p != "" {
		m.dirs[p] = true
		p = path.Dir(p)
	}
	return nil
}

func (m *memFS) ReadDir(p string) ([]localfs.DirEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]localfs.DirEntry)
	prefix := strings.TrimSuffix(p, "/") + "/"

	for f := range m.files {
		if !strings.HasPrefix(f, prefix) {
			continue
		}
		rest := strings.TrimPrefix(f, prefix)
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name := rest[:i]
			seen[name] = localfs.DirEntry{Name: name, IsDir: true}
		} else {
			seen[rest] = localfs.DirEntry{Name: rest, IsDir: false}
		}
	}
	for d := range m.dirs {
		if strings.HasPrefix(d, prefix) {
			rest := strings.TrimPrefix(d, prefix)
			if i := strings.IndexByte(rest, '/'); i >= 0 {
				rest = rest[:i]
			}
			if rest != "" {
				if _, ok := seen[rest]; !ok {
					seen[rest] = localfs.DirEntry{Name: rest, IsDir: true}
				}
			}
		}
	}

	if len(seen) == 0 && !m.dirs[strings.TrimSuffix(p, "/")] {
		return nil, &fs.PathError{Op: "open", Path: p, Err: fs.ErrNotExist}
	}

	out := make([]localfs.DirEntry, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	return out, nil
}

var _ localfs.FS = (*memFS)(nil)
