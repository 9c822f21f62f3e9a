// Package activity keeps the bounded, newest-first log of sync outcomes shown
// in the status panel. The log is a single JSON file under the data root,
// capped at 100 entries, and survives its own corruption by quarantining the
// unreadable content and starting fresh.
//
// In remote (web) mode there is no local file system; a logger constructed
// with [NewDisabled] turns every method into a no-op.
package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/paytally/paysync/internal/localfs"
	"github.com/paytally/paysync/internal/model"
)

// maxEntries bounds the persisted log; older entries fall off the tail.
const maxEntries = 100

// Operation is the sync direction an entry describes.
type Operation string

const (
	OpUpload   Operation = "upload"
	OpDownload Operation = "download"
)

// Status is the outcome recorded in an entry.
type Status string

const (
	StatusSuccess Status = "success"
	StatusError   Status = "error"
	StatusRunning Status = "running"
	StatusInfo    Status = "info"
)

// Entry is one recorded sync outcome, newest first in the log.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp string    `json:"timestamp"`
	ModelName string    `json:"modelName"`
	Operation Operation `json:"operation"`
	Status    Status    `json:"status"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
}

// Logger owns the activity log file. Construct once and pass by reference;
// the root path lives here rather than in package state.
type Logger struct {
	mu       sync.Mutex
	fs       localfs.FS
	root     string
	disabled bool
	log      *slog.Logger
}

// New creates a logger writing under root. The directory and file are created
// lazily on first use.
func New(fs localfs.FS, root string, logger *slog.Logger) *Logger {
	return &Logger{fs: fs, root: root, log: logger}
}

// NewDisabled creates the no-op logger used in remote mode.
func NewDisabled() *Logger {
	return &Logger{disabled: true}
}

func (l *Logger) path() string {
	return filepath.Join(l.root, "logs", "activity.json")
}

// Add stamps the entry with an ID and timestamp, prepends it, truncates to
// the most recent 100, and persists the whole list. A missing file is treated
// as an empty log; a corrupt file is quarantined first so the new entry is
// never lost. Any other read failure surfaces as an error so a transient
// problem cannot wipe the existing entries.
func (l *Logger) Add(ctx context.Context, e Entry) error {
	if l.disabled {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	e.ID = uuid.NewString()
	e.Timestamp = model.FormatDate(time.Now())

	entries, err := l.readEntries()
	if err != nil {
		return err
	}
	entries = append([]Entry{e}, entries...)
	if len(entries) > maxEntries {
		entries = entries[:maxEntries]
	}
	return l.write(ctx, entries)
}

// Logs returns the most recent limit entries, newest first. A missing file
// yields an empty list, not an error. limit <= 0 returns everything.
func (l *Logger) Logs(limit int) ([]Entry, error) {
	if l.disabled {
		return nil, nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	entries, err := l.readEntries()
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Clear overwrites the log with an empty list.
func (l *Logger) Clear(ctx context.Context) error {
	if l.disabled {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(ctx, []Entry{})
}

// readEntries loads the current list, recovering from absence and corruption.
// Other read failures are returned: replacing an unreadable-but-intact log
// with a fresh list would lose entries (callers hold the lock).
func (l *Logger) readEntries() ([]Entry, error) {
	content, err := l.fs.ReadFile(l.path())
	if err != nil {
		if localfs.IsNotExist(err) {
			// Not existing yet is the normal first-run case.
			return nil, nil
		}
		return nil, fmt.Errorf("reading activity log: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(content, &entries); err != nil {
		l.quarantine(content, err)
		return nil, nil
	}
	return entries, nil
}

// quarantine backs the corrupt content up to a sibling .corrupted file and
// logs a diagnostic snippet around the parse-error offset when available.
func (l *Logger) quarantine(content []byte, parseErr error) {
	backup := l.path() + ".corrupted"
	if err := l.fs.WriteFile(backup, content); err != nil {
		l.log.Error("could not back up corrupt activity log", "path", backup, "error", err)
	}

	snippet := ""
	var syntaxErr *json.SyntaxError
	if errors.As(parseErr, &syntaxErr) {
		snippet = contextSnippet(content, syntaxErr.Offset)
	}
	l.log.Warn("activity log corrupt, starting fresh",
		"backup", backup,
		"error", parseErr,
		"context", snippet,
	)
}

func (l *Logger) write(ctx context.Context, entries []Entry) error {
	if err := l.fs.EnsureDir(filepath.Join(l.root, "logs")); err != nil {
		return err
	}
	content, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding activity log: %w", err)
	}
	path := l.path()
	return localfs.Retry(ctx, 0, func() error {
		return l.fs.WriteFile(path, content)
	})
}

// contextSnippet returns up to 40 bytes around the parse-error offset.
func contextSnippet(content []byte, offset int64) string {
	const window = 20
	start := offset - window
	if start < 0 {
		start = 0
	}
	end := offset + window
	if end > int64(len(content)) {
		end = int64(len(content))
	}
	return string(content[start:end])
}
