package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bucket identifies one (owner, year, month) group: the unit of batching for
// upload and the remote document key for time-bucketed entities.
type Bucket struct {
	OwnerID string
	Year    int
	Month   int // 1–12
}

// BucketOf derives the bucket for a record from its owner and date.
func BucketOf(ownerID string, date time.Time) Bucket {
	return Bucket{OwnerID: ownerID, Year: date.Year(), Month: int(date.Month())}
}

// ID returns the canonical bucket identifier "{owner}_{year}_{month}" with an
// unpadded base-10 month. This string is both the remote document ID and the
// in-memory grouping key; every code path must derive it through here.
func (b Bucket) ID() string {
	return b.OwnerID + "_" + strconv.Itoa(b.Year) + "_" + strconv.Itoa(b.Month)
}

// FileName returns "{year}_{month}_{suffix}.json" for the bucket's local file.
func (b Bucket) FileName(suffix string) string {
	return strconv.Itoa(b.Year) + "_" + strconv.Itoa(b.Month) + "_" + suffix + ".json"
}

// Valid reports whether the bucket has an owner and a plausible year/month.
func (b Bucket) Valid() bool {
	return b.OwnerID != "" && b.Year >= 1970 && b.Year <= 9999 && b.Month >= 1 && b.Month <= 12
}

// ParseBucketFileName recovers (year, month) from a "{year}_{month}_…" file
// name as written by [Bucket.FileName] or the legacy CSV layout.
func ParseBucketFileName(name string) (year, month int, err error) {
	parts := strings.SplitN(name, "_", 3)
	if len(parts) < 3 {
		return 0, 0, fmt.Errorf("file name %q is not year_month_suffix", name)
	}
	year, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("file name %q: bad year: %w", name, err)
	}
	month, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("file name %q: bad month: %w", name, err)
	}
	if month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("file name %q: month %d out of range", name, month)
	}
	return year, month, nil
}

// MonthsBetween enumerates every (year, month) pair from start through end,
// inclusive on both sides, crossing year boundaries as needed. Returns nil when
// end precedes start.
func MonthsBetween(start, end time.Time) []Bucket {
	if end.Before(start) {
		return nil
	}
	var out []Bucket
	y, m := start.Year(), int(start.Month())
	endY, endM := end.Year(), int(end.Month())
	for y < endY || (y == endY && m <= endM) {
		out = append(out, Bucket{Year: y, Month: m})
		m++
		if m > 12 {
			m = 1
			y++
		}
	}
	return out
}

// --- Date boundary conversion ------------------------------------------------

// FormatDate renders a native time as the RFC 3339 string stored in remote
// documents and local JSON files.
func FormatDate(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// ParseDate converts a stored date string back to a native time. Accepts both
// full RFC 3339 timestamps and bare "2006-01-02" dates written by the legacy
// CSV exporter.
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return t, nil
}
