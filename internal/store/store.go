// Package store owns the local file layout for every entity type: one JSON
// document per (employee, year, month) bucket, mirroring the remote schema
// (meta block + keyed sub-map), plus the flat employees file.
//
// Only this package may interpret the data directory. All other packages
// receive a store and call its methods. Writes go through the busy-retry
// policy in [localfs.Retry].
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/paytally/paysync/internal/localfs"
	"github.com/paytally/paysync/internal/model"
)

// fileMeta is the identity block written at the top of every bucket file.
type fileMeta struct {
	EmployeeID   string `json:"employeeId"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	LastModified string `json:"lastModified"`
}

// bucketStore is the shared implementation behind the per-entity stores.
type bucketStore[R any] struct {
	fs   localfs.FS
	root string

	dirName  string // directory under root, e.g. "leaves"
	suffix   string // file suffix, e.g. "leaves" → 2024_3_leaves.json
	subField string // JSON sub-map field, e.g. "leaves"

	recordID   func(R) string
	ownerID    func(R) string
	bucketDate func(R) time.Time

	// legacyRead, when set, is tried after a JSON read fails (absent or
	// unparsable). Used by the attendance store's CSV fallback.
	legacyRead func(owner string, bucket model.Bucket) (map[string]R, bool)

	log *slog.Logger
}

func (s *bucketStore[R]) dir(owner string) string {
	return filepath.Join(s.root, s.dirName, owner)
}

func (s *bucketStore[R]) path(owner string, bucket model.Bucket) string {
	return filepath.Join(s.dir(owner), bucket.FileName(s.suffix))
}

// readBucket loads one bucket file. Absence yields an empty map. An
// unparsable JSON file falls back to the legacy reader when one is
// configured, otherwise surfaces the error.
func (s *bucketStore[R]) readBucket(owner string, bucket model.Bucket) (map[string]R, error) {
	content, err := s.fs.ReadFile(s.path(owner, bucket))
	if err != nil {
		if localfs.IsNotExist(err) {
			if s.legacyRead != nil {
				if records, ok := s.legacyRead(owner, bucket); ok {
					return records, nil
				}
			}
			return map[string]R{}, nil
		}
		return nil, fmt.Errorf("reading bucket %s for %s: %w", bucket.ID(), s.dirName, err)
	}

	records, err := decodeBucketFile[R](content, s.subField)
	if err != nil {
		if s.legacyRead != nil {
			s.log.Warn("bucket JSON unparsable, trying legacy format",
				"entity", s.dirName, "doc", bucket.ID(), "error", err)
			if records, ok := s.legacyRead(owner, bucket); ok {
				return records, nil
			}
		}
		return nil, fmt.Errorf("parsing bucket %s for %s: %w", bucket.ID(), s.dirName, err)
	}
	return records, nil
}

// writeBucket persists one bucket file whole, stamping meta.lastModified.
func (s *bucketStore[R]) writeBucket(ctx context.Context, owner string, bucket model.Bucket, records map[string]R) error {
	if err := s.fs.EnsureDir(s.dir(owner)); err != nil {
		return err
	}

	content, err := encodeBucketFile(fileMeta{
		EmployeeID:   owner,
		Year:         bucket.Year,
		Month:        bucket.Month,
		LastModified: model.FormatDate(time.Now()),
	}, s.subField, records)
	if err != nil {
		return fmt.Errorf("encoding bucket %s for %s: %w", bucket.ID(), s.dirName, err)
	}

	path := s.path(owner, bucket)
	return localfs.Retry(ctx, 0, func() error {
		return s.fs.WriteFile(path, content)
	})
}

// Save upserts one record into its bucket file. Also the apply routine for
// downloaded records.
func (s *bucketStore[R]) Save(ctx context.Context, r R) error {
	id := s.recordID(r)
	if id == "" {
		return fmt.Errorf("%s record has no id", s.dirName)
	}
	owner := s.ownerID(r)
	bucket := model.BucketOf(owner, s.bucketDate(r))
	if !bucket.Valid() {
		return fmt.Errorf("%s record %s has no valid owner/date", s.dirName, id)
	}

	records, err := s.readBucket(owner, bucket)
	if err != nil {
		return err
	}
	records[id] = r
	return s.writeBucket(ctx, owner, bucket, records)
}

// ApplyRemote stores a record reconstructed from a remote document.
func (s *bucketStore[R]) ApplyRemote(ctx context.Context, r R) error {
	return s.Save(ctx, r)
}

// Delete removes one record from its bucket file. Missing record or bucket is
// a no-op.
func (s *bucketStore[R]) Delete(ctx context.Context, r R) error {
	id := s.recordID(r)
	owner := s.ownerID(r)
	bucket := model.BucketOf(owner, s.bucketDate(r))

	records, err := s.readBucket(owner, bucket)
	if err != nil {
		return err
	}
	if _, ok := records[id]; !ok {
		return nil
	}
	delete(records, id)
	return s.writeBucket(ctx, owner, bucket, records)
}

// ListBucket returns every record in one (owner, year, month) bucket.
func (s *bucketStore[R]) ListBucket(owner string, year, month int) ([]R, error) {
	records, err := s.readBucket(owner, model.Bucket{OwnerID: owner, Year: year, Month: month})
	if err != nil {
		return nil, err
	}
	out := make([]R, 0, len(records))
	for _, r := range records {
		out = append(out, r)
	}
	return out, nil
}

// LoadAllForSync enumerates every record across all owners and buckets: the
// full local scan the upload path reprocesses on every run. Unreadable bucket
// files are skipped with a warning so one bad month cannot block the sync.
func (s *bucketStore[R]) LoadAllForSync(_ context.Context) ([]R, error) {
	entityDir := filepath.Join(s.root, s.dirName)
	owners, err := s.fs.ReadDir(entityDir)
	if err != nil {
		if localfs.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing %s: %w", entityDir, err)
	}

	var out []R
	for _, ownerEntry := range owners {
		if !ownerEntry.IsDir {
			continue
		}
		owner := ownerEntry.Name
		files, err := s.fs.ReadDir(s.dir(owner))
		if err != nil {
			s.log.Warn("skipping unreadable owner directory",
				"entity", s.dirName, "owner", owner, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir || filepath.Ext(f.Name) != ".json" {
				continue
			}
			year, month, err := model.ParseBucketFileName(f.Name)
			if err != nil {
				s.log.Warn("skipping file with unrecognized name",
					"entity", s.dirName, "owner", owner, "file", f.Name)
				continue
			}
			records, err := s.readBucket(owner, model.Bucket{OwnerID: owner, Year: year, Month: month})
			if err != nil {
				s.log.Warn("skipping unreadable bucket",
					"entity", s.dirName, "owner", owner, "file", f.Name, "error", err)
				continue
			}
			for _, r := range records {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// --- bucket file codec -------------------------------------------------------

// The sub-map field name varies per entity ("leaves", "records", "payrolls"),
// so the file is assembled from raw parts rather than a fixed struct.

func encodeBucketFile[R any](meta fileMeta, subField string, records map[string]R) ([]byte, error) {
	doc := map[string]any{
		"meta":   meta,
		subField: records,
	}
	return json.MarshalIndent(doc, "", "  ")
}

func decodeBucketFile[R any](content []byte, subField string) (map[string]R, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	raw, ok := doc[subField]
	if !ok {
		return map[string]R{}, nil
	}
	var records map[string]R
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decoding %q sub-map: %w", subField, err)
	}
	if records == nil {
		records = map[string]R{}
	}
	return records, nil
}
