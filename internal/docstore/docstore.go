// Package docstore provides the remote document-store capability: fetch,
// save, partial update with dotted field paths and a field-delete sentinel,
// and collection queries.
//
// Two implementations exist: [Firestore] for production and [Memory] for
// tests and offline dry runs. Both are scoped by a company/tenant identifier
// so one project can host many installations.
package docstore

import "context"

// Delete is the sentinel value that removes a field when passed to
// [Gateway.Update]. Mirrors firestore.Delete.
var Delete = deleteSentinel{}

type deleteSentinel struct{}

// Cond is one query condition: Field Op Value, e.g. {"meta.employeeId", "==", id}.
type Cond struct {
	Field string
	Op    string
	Value any
}

// Snapshot is one document returned by a query: its ID and decoded data.
type Snapshot struct {
	ID   string
	Data map[string]any
}

// Gateway is the document-store contract consumed by the remote adapters and
// the statistics aggregator.
type Gateway interface {
	// Fetch returns the document's data, or (nil, nil) when the document does
	// not exist. Absence is not an error.
	Fetch(ctx context.Context, collection, id string) (map[string]any, error)

	// Save writes the full document, replacing any existing content.
	Save(ctx context.Context, collection, id string, payload map[string]any) error

	// Update applies a partial update. Keys may be dotted paths
	// ("leaves.abc123", "meta.lastModified"); a value of [Delete] removes the
	// field. Fails if the document does not exist.
	Update(ctx context.Context, collection, id string, fields map[string]any) error

	// Query returns every document in the collection matching all conditions.
	Query(ctx context.Context, collection string, conds []Cond) ([]Snapshot, error)

	// FetchAll returns every document in the collection.
	FetchAll(ctx context.Context, collection string) ([]Snapshot, error)
}
