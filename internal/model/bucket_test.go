package model

import (
	"testing"
	"time"
)

func TestBucketID_Derivation(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"march", time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), "emp-1_2024_3"},
		{"december", time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC), "emp-1_2023_12"},
		{"january", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), "emp-1_2025_1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BucketOf("emp-1", tt.date).ID()
			if got != tt.want {
				t.Errorf("BucketOf(...).ID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBucketID_StableAcrossCodePaths(t *testing.T) {
	// The same logical (owner, year, month) must produce the same ID whether
	// derived from a date or constructed explicitly.
	fromDate := BucketOf("emp-9", time.Date(2024, 7, 4, 12, 0, 0, 0, time.UTC))
	explicit := Bucket{OwnerID: "emp-9", Year: 2024, Month: 7}
	if fromDate.ID() != explicit.ID() {
		t.Errorf("derived %q != explicit %q", fromDate.ID(), explicit.ID())
	}
}

func TestParseBucketFileName(t *testing.T) {
	y, m, err := ParseBucketFileName("2024_3_leaves.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if y != 2024 || m != 3 {
		t.Errorf("got (%d, %d), want (2024, 3)", y, m)
	}

	if _, _, err := ParseBucketFileName("leaves.json"); err == nil {
		t.Error("expected error for name without year_month prefix")
	}
	if _, _, err := ParseBucketFileName("2024_13_leaves.json"); err == nil {
		t.Error("expected error for month out of range")
	}
}

func TestMonthsBetween_AcrossYearBoundary(t *testing.T) {
	start := time.Date(2023, 11, 15, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)

	got := MonthsBetween(start, end)
	want := []Bucket{
		{Year: 2023, Month: 11},
		{Year: 2023, Month: 12},
		{Year: 2024, Month: 1},
		{Year: 2024, Month: 2},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d buckets, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Year != want[i].Year || got[i].Month != want[i].Month {
			t.Errorf("bucket[%d] = %d_%d, want %d_%d", i, got[i].Year, got[i].Month, want[i].Year, want[i].Month)
		}
	}
}

func TestMonthsBetween_SingleMonth(t *testing.T) {
	d := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	got := MonthsBetween(d, d)
	if len(got) != 1 || got[0].Year != 2024 || got[0].Month != 5 {
		t.Errorf("got %v, want single 2024_5 bucket", got)
	}
}

func TestMonthsBetween_EndBeforeStart(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := MonthsBetween(start, start.AddDate(0, -2, 0)); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}

func TestParseDate_FormatsAccepted(t *testing.T) {
	rfc, err := ParseDate("2024-03-15T08:30:00Z")
	if err != nil {
		t.Fatalf("RFC3339: %v", err)
	}
	if rfc.Hour() != 8 {
		t.Errorf("hour = %d, want 8", rfc.Hour())
	}

	legacy, err := ParseDate("2024-03-15")
	if err != nil {
		t.Fatalf("legacy date: %v", err)
	}
	if legacy.Day() != 15 {
		t.Errorf("day = %d, want 15", legacy.Day())
	}

	if _, err := ParseDate("15/03/2024"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestLeaveOverlaps_InclusiveBoundaries(t *testing.T) {
	leave := &Leave{
		StartDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC),
	}

	rangeStart := time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)
	rangeEnd := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	if !leave.Overlaps(rangeStart, rangeEnd) {
		t.Error("leave ending on range start should overlap")
	}

	if leave.Overlaps(rangeStart.AddDate(0, 0, 1), rangeEnd) {
		t.Error("leave entirely before range should not overlap")
	}
}
