package sync

import (
	"context"
	"time"

	"github.com/paytally/paysync/internal/model"
)

// LocalStore is the local half of a sync run: full enumeration for upload,
// record application for download. Implemented by the entity stores in
// [store].
type LocalStore[R any] interface {
	LoadAllForSync(ctx context.Context) ([]R, error)
	ApplyRemote(ctx context.Context, r R) error
}

// RemoteTarget is the remote half: whole-bucket overwrite for upload, full
// collection fetch for download. Implemented by [remote.Adapter] and
// [remote.EmployeeAdapter].
type RemoteTarget[R any] interface {
	SaveBucket(ctx context.Context, bucket model.Bucket, records []R) error
	FetchAll(ctx context.Context) ([]R, error)
}

// Keys extracts the grouping fields from a record. [remote.Codec]
// implementations satisfy it directly.
type Keys[R any] interface {
	RecordID(r R) string
	OwnerID(r R) string
	BucketDate(r R) time.Time
}

// KeyFuncs adapts plain functions to [Keys] for entities without a codec.
type KeyFuncs[R any] struct {
	ID    func(R) string
	Owner func(R) string
	Date  func(R) time.Time
}

func (k KeyFuncs[R]) RecordID(r R) string      { return k.ID(r) }
func (k KeyFuncs[R]) OwnerID(r R) string       { return k.Owner(r) }
func (k KeyFuncs[R]) BucketDate(r R) time.Time { return k.Date(r) }

// employeeBucketDate is the constant date behind every employee's grouping
// key. Employees are not time-bucketed, so the bucket only carries the owner
// ID; a fixed in-range date keeps the bucket valid for every record.
var employeeBucketDate = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

// EmployeeKeys groups employees for upload. Unlike the time-bucketed
// entities there is no date field that can be unparsable: every employee
// with an ID maps to a valid bucket, so the full-scan guarantee holds even
// for records without a start date.
func EmployeeKeys() Keys[model.Employee] {
	return KeyFuncs[model.Employee]{
		ID:    func(e model.Employee) string { return e.ID },
		Owner: func(e model.Employee) string { return e.ID },
		Date:  func(model.Employee) time.Time { return employeeBucketDate },
	}
}

// Progress receives human-readable narration during a sync run. A nil
// Progress is valid and discards everything.
type Progress func(msg string)

func (p Progress) report(msg string) {
	if p != nil {
		p(msg)
	}
}

// Stats summarises one sync run. Failure counts are informational: a run
// that attempted every group returns Stats with a nil error even when some
// groups failed.
type Stats struct {
	Scanned        int
	Uploaded       int
	Downloaded     int
	Groups         int
	GroupFailures  int
	RecordFailures int
	Skipped        int
}
