// Package remote translates between in-memory entity records and the remote
// document schema: one document per (owner, year, month) bucket holding a
// meta block and a keyed sub-map of records.
//
// The [Adapter] is generic over a per-entity [Codec]; the codecs live in
// codecs.go. Employees are not time-bucketed and have their own adapter in
// employees.go.
package remote

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/paytally/paysync/internal/docstore"
	"github.com/paytally/paysync/internal/model"
)

// Codec describes one entity type's remote document schema and record
// conversion. Implementations must be stateless.
type Codec[R any] interface {
	// Collection is the remote collection name, e.g. "leaves".
	Collection() string

	// SubMapField is the name of the keyed sub-map inside each document,
	// e.g. "leaves" or "payrolls".
	SubMapField() string

	// RecordID returns the record's unique ID (the sub-map key).
	RecordID(r R) string

	// OwnerID returns the owning employee's ID.
	OwnerID(r R) string

	// BucketDate returns the date that places the record in a time bucket.
	BucketDate(r R) time.Time

	// Range returns the record's own date span for range queries. Single-day
	// records return the same date twice.
	Range(r R) (start, end time.Time)

	// Encode converts the record to its stored payload. Dates become RFC 3339
	// strings.
	Encode(r R) map[string]any

	// Decode reconstructs a record from its stored payload, converting date
	// strings back to native times and validating required fields.
	Decode(id string, payload map[string]any) (R, error)
}

// Adapter reads and writes one entity type's remote documents through a
// [docstore.Gateway].
type Adapter[R any] struct {
	gw    docstore.Gateway
	codec Codec[R]
	log   *slog.Logger
}

// NewAdapter wires an adapter to the gateway with the given codec.
func NewAdapter[R any](gw docstore.Gateway, codec Codec[R], logger *slog.Logger) *Adapter[R] {
	return &Adapter[R]{gw: gw, codec: codec, log: logger}
}

// Collection returns the adapter's remote collection name.
func (a *Adapter[R]) Collection() string {
	return a.codec.Collection()
}

// Load fetches one bucket document and reconstructs its records. An absent
// document yields an empty slice. Read failures are swallowed: sync must
// never halt because one historical bucket is unreadable.
func (a *Adapter[R]) Load(ctx context.Context, ownerID string, year, month int) []R {
	bucket := model.Bucket{OwnerID: ownerID, Year: year, Month: month}
	data, err := a.gw.Fetch(ctx, a.codec.Collection(), bucket.ID())
	if err != nil {
		a.log.Warn("bucket read failed, treating as empty",
			"collection", a.codec.Collection(),
			"doc", bucket.ID(),
			"error", err,
		)
		return nil
	}
	if data == nil {
		return nil
	}
	return a.decodeDocument(bucket.ID(), data)
}

// Create stores a new record. Delegates to [Adapter.SaveOrUpdate].
func (a *Adapter[R]) Create(ctx context.Context, r R) error {
	return a.SaveOrUpdate(ctx, r)
}

// SaveOrUpdate writes one record into its bucket document. A missing document
// is created whole; an existing one receives a partial update that sets
// exactly this record's sub-map entry plus meta.lastModified, so co-resident
// records are never clobbered.
func (a *Adapter[R]) SaveOrUpdate(ctx context.Context, r R) error {
	id := a.codec.RecordID(r)
	if id == "" {
		return fmt.Errorf("%s record has no id", a.codec.Collection())
	}
	bucket := model.BucketOf(a.codec.OwnerID(r), a.codec.BucketDate(r))
	if !bucket.Valid() {
		return fmt.Errorf("%s record %s has no valid owner/date", a.codec.Collection(), id)
	}

	existing, err := a.gw.Fetch(ctx, a.codec.Collection(), bucket.ID())
	if err != nil {
		// Cannot tell create from update apart; treat as absent and write whole.
		a.log.Warn("bucket fetch before save failed, writing full document",
			"doc", bucket.ID(), "error", err)
		existing = nil
	}

	if existing == nil {
		payload := a.documentPayload(bucket, map[string]any{id: a.codec.Encode(r)})
		if err := a.gw.Save(ctx, a.codec.Collection(), bucket.ID(), payload); err != nil {
			return fmt.Errorf("creating %s document %s: %w", a.codec.Collection(), bucket.ID(), err)
		}
		return nil
	}

	fields := map[string]any{
		a.codec.SubMapField() + "." + id: a.codec.Encode(r),
		"meta.lastModified":              model.FormatDate(time.Now()),
	}
	if err := a.gw.Update(ctx, a.codec.Collection(), bucket.ID(), fields); err != nil {
		return fmt.Errorf("updating %s in %s document %s: %w", id, a.codec.Collection(), bucket.ID(), err)
	}
	return nil
}

// Delete removes one record from its bucket document. Deleting from an absent
// document is a no-op; the sibling records and meta identity are untouched.
func (a *Adapter[R]) Delete(ctx context.Context, r R) error {
	id := a.codec.RecordID(r)
	bucket := model.BucketOf(a.codec.OwnerID(r), a.codec.BucketDate(r))

	existing, err := a.gw.Fetch(ctx, a.codec.Collection(), bucket.ID())
	if err != nil {
		a.log.Warn("bucket fetch before delete failed", "doc", bucket.ID(), "error", err)
		return nil
	}
	if existing == nil {
		return nil
	}

	fields := map[string]any{
		a.codec.SubMapField() + "." + id: docstore.Delete,
		"meta.lastModified":              model.FormatDate(time.Now()),
	}
	if err := a.gw.Update(ctx, a.codec.Collection(), bucket.ID(), fields); err != nil {
		return fmt.Errorf("deleting %s from %s document %s: %w", id, a.codec.Collection(), bucket.ID(), err)
	}
	return nil
}

// QueryAllForOwner flattens every bucket document belonging to one owner.
// Used for reports; sync uploads enumerate the local store instead.
func (a *Adapter[R]) QueryAllForOwner(ctx context.Context, ownerID string) []R {
	snaps, err := a.gw.Query(ctx, a.codec.Collection(), []docstore.Cond{
		{Field: "meta.employeeId", Op: "==", Value: ownerID},
	})
	if err != nil {
		a.log.Warn("owner query failed, treating as empty",
			"collection", a.codec.Collection(), "owner", ownerID, "error", err)
		return nil
	}

	var out []R
	for _, snap := range snaps {
		out = append(out, a.decodeDocument(snap.ID, snap.Data)...)
	}
	return out
}

// QueryDateRange loads every bucket intersecting [start, end] and filters
// records whose own span overlaps the range. Boundary overlap counts.
func (a *Adapter[R]) QueryDateRange(ctx context.Context, ownerID string, start, end time.Time) []R {
	var out []R
	for _, b := range model.MonthsBetween(start, end) {
		for _, r := range a.Load(ctx, ownerID, b.Year, b.Month) {
			rs, re := a.codec.Range(r)
			if !re.Before(start) && !rs.After(end) {
				out = append(out, r)
			}
		}
	}
	return out
}

// SaveBucket writes one bucket's full document from the given records: an
// overwrite of the whole sub-map, used by the upload path. Records missing an
// ID are skipped with a warning.
func (a *Adapter[R]) SaveBucket(ctx context.Context, bucket model.Bucket, records []R) error {
	sub := make(map[string]any, len(records))
	for _, r := range records {
		id := a.codec.RecordID(r)
		if id == "" {
			a.log.Warn("skipping record without id during bucket write",
				"collection", a.codec.Collection(), "doc", bucket.ID())
			continue
		}
		sub[id] = a.codec.Encode(r)
	}

	payload := a.documentPayload(bucket, sub)
	if err := a.gw.Save(ctx, a.codec.Collection(), bucket.ID(), payload); err != nil {
		return fmt.Errorf("writing %s document %s: %w", a.codec.Collection(), bucket.ID(), err)
	}
	return nil
}

// FetchAll returns every record in the collection across all owners and
// buckets. Used by the download path.
func (a *Adapter[R]) FetchAll(ctx context.Context) ([]R, error) {
	snaps, err := a.gw.FetchAll(ctx, a.codec.Collection())
	if err != nil {
		return nil, fmt.Errorf("fetching %s collection: %w", a.codec.Collection(), err)
	}

	var out []R
	for _, snap := range snaps {
		out = append(out, a.decodeDocument(snap.ID, snap.Data)...)
	}
	return out, nil
}

// documentPayload assembles the meta block plus sub-map for a full write.
// meta.lastModified is a write-time stamp, overwritten on every write.
func (a *Adapter[R]) documentPayload(bucket model.Bucket, sub map[string]any) map[string]any {
	return map[string]any{
		"meta": map[string]any{
			"employeeId":   bucket.OwnerID,
			"year":         bucket.Year,
			"month":        bucket.Month,
			"lastModified": model.FormatDate(time.Now()),
		},
		a.codec.SubMapField(): sub,
	}
}

// decodeDocument reconstructs a document's sub-map into records. Records that
// fail to decode are skipped with a warning; an embedded owner that differs
// from the document's meta owner is tolerated (historical data drift) but
// logged.
func (a *Adapter[R]) decodeDocument(docID string, data map[string]any) []R {
	metaOwner := ""
	if meta, ok := data["meta"].(map[string]any); ok {
		metaOwner, _ = meta["employeeId"].(string)
	}

	sub, ok := data[a.codec.SubMapField()].(map[string]any)
	if !ok {
		a.log.Warn("document has no sub-map",
			"collection", a.codec.Collection(), "doc", docID, "field", a.codec.SubMapField())
		return nil
	}

	out := make([]R, 0, len(sub))
	for id, raw := range sub {
		payload, ok := raw.(map[string]any)
		if !ok {
			a.log.Warn("sub-record is not an object", "doc", docID, "record", id)
			continue
		}
		r, err := a.codec.Decode(id, payload)
		if err != nil {
			a.log.Warn("skipping undecodable sub-record", "doc", docID, "record", id, "error", err)
			continue
		}
		if owner := a.codec.OwnerID(r); metaOwner != "" && owner != metaOwner {
			a.log.Warn("sub-record owner differs from document owner",
				"doc", docID, "record", id, "record_owner", owner, "doc_owner", metaOwner)
		}
		out = append(out, r)
	}
	return out
}
