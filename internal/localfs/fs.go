// Package localfs provides the file-system capability consumed by the entity
// stores and the activity logger: read, write, directory listing, and a
// bounded retry policy for busy local I/O.
//
// Only this package may touch the OS file system directly. All other packages
// receive an [FS] and call its methods, which keeps the stores testable and
// the desktop/web split out of business logic.
package localfs

import (
	"fmt"
	"io/fs"
	"os"
)

// DirEntry is one entry returned by [FS.ReadDir].
type DirEntry struct {
	Name  string
	IsDir bool
}

// FS is the file-system gateway contract. Implemented by [OS] in production
// and by in-memory fakes in tests.
type FS interface {
	// ReadFile returns the file's contents. A missing file reports true from
	// [IsNotExist] on the returned error.
	ReadFile(path string) ([]byte, error)

	// WriteFile writes content atomically enough for a single-user desktop:
	// whole-file replace, parent directory must exist.
	WriteFile(path string, content []byte) error

	// EnsureDir creates the directory (and parents) if absent.
	EnsureDir(path string) error

	// ReadDir lists a directory. A missing directory is an error; callers that
	// treat absence as empty should check [IsNotExist].
	ReadDir(path string) ([]DirEntry, error)
}

// IsNotExist reports whether err indicates a missing file or directory.
func IsNotExist(err error) bool {
	return err != nil && os.IsNotExist(err)
}

// OS implements [FS] against the real file system.
type OS struct{}

func (OS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OS) WriteFile(path string, content []byte) error {
	if err := os.WriteFile(path, content, 0o600); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func (OS) EnsureDir(path string) error {
	if err := os.MkdirAll(path, 0o700); err != nil {
		return fmt.Errorf("creating directory %q: %w", path, err)
	}
	return nil
}

func (OS) ReadDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

var _ FS = OS{}

// unwrapPathError lets classification helpers see through *fs.PathError.
func unwrapPathError(err error) error {
	if pe, ok := err.(*fs.PathError); ok {
		return pe.Err
	}
	return err
}
