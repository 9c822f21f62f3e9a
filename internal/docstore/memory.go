package docstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Memory implements [Gateway] in process memory. It backs the package tests
// across the remote, sync, and stats packages and doubles as a dry-run target.
// Data is deep-copied on every read and write so callers can never alias the
// stored maps.
type Memory struct {
	mu   sync.Mutex
	data map[string]map[string]map[string]any // collection → id → document

	// SaveHook, when set, runs before every Save and can veto it by
	// returning an error. Used by tests to force per-document write failures.
	SaveHook func(collection, id string) error
}

// NewMemory creates an empty in-memory document store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string]map[string]map[string]any)}
}

func (m *Memory) Fetch(_ context.Context, collection, id string) (map[string]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return nil, nil
	}
	return deepCopy(doc), nil
}

func (m *Memory) Save(_ context.Context, collection, id string, payload map[string]any) error {
	if m.SaveHook != nil {
		if err := m.SaveHook(collection, id); err != nil {
			return err
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data[collection] == nil {
		m.data[collection] = make(map[string]map[string]any)
	}
	m.data[collection][id] = deepCopy(payload)
	return nil
}

func (m *Memory) Update(_ context.Context, collection, id string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.data[collection][id]
	if !ok {
		return fmt.Errorf("updating %s/%s: document does not exist", collection, id)
	}

	for path, value := range fields {
		if _, isDelete := value.(deleteSentinel); isDelete {
			deletePath(doc, strings.Split(path, "."))
			continue
		}
		setPath(doc, strings.Split(path, "."), deepCopyValue(value))
	}
	return nil
}

func (m *Memory) Query(_ context.Context, collection string, conds []Cond) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snaps []Snapshot
	for _, id := range m.sortedIDs(collection) {
		doc := m.data[collection][id]
		if matchesAll(doc, conds) {
			snaps = append(snaps, Snapshot{ID: id, Data: deepCopy(doc)})
		}
	}
	return snaps, nil
}

func (m *Memory) FetchAll(_ context.Context, collection string) ([]Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snaps []Snapshot
	for _, id := range m.sortedIDs(collection) {
		snaps = append(snaps, Snapshot{ID: id, Data: deepCopy(m.data[collection][id])})
	}
	return snaps, nil
}

// Len returns the number of documents in a collection.
func (m *Memory) Len(collection string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data[collection])
}

// sortedIDs keeps iteration deterministic (callers hold the lock).
func (m *Memory) sortedIDs(collection string) []string {
	ids := make([]string, 0, len(m.data[collection]))
	for id := range m.data[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

var _ Gateway = (*Memory)(nil)

// --- helpers -----------------------------------------------------------------

func matchesAll(doc map[string]any, conds []Cond) bool {
	for _, c := range conds {
		got, ok := lookupPath(doc, strings.Split(c.Field, "."))
		if !ok {
			return false
		}
		// Only equality is used by the adapters; other operators would need
		// type-aware comparison.
		if c.Op != "==" || got != c.Value {
			return false
		}
	}
	return true
}

func lookupPath(doc map[string]any, path []string) (any, bool) {
	cur := any(doc)
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func setPath(doc map[string]any, path []string, value any) {
	for i, seg := range path {
		if i == len(path)-1 {
			doc[seg] = value
			return
		}
		next, ok := doc[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			doc[seg] = next
		}
		doc = next
	}
}

func deletePath(doc map[string]any, path []string) {
	for i, seg := range path {
		if i == len(path)-1 {
			delete(doc, seg)
			return
		}
		next, ok := doc[seg].(map[string]any)
		if !ok {
			return
		}
		doc = next
	}
}

func deepCopy(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
