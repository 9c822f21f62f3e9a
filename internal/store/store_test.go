package store

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/paytally/paysync/internal/model"
)

var testLogger = slog.Default()

const root = "/data"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLeaveStore_SaveAndList(t *testing.T) {
	ctx := context.Background()
	s := NewLeaveStore(newMemFS(), root, testLogger)

	l := model.Leave{
		ID:         "l1",
		EmployeeID: "e1",
		StartDate:  day(2024, 3, 10),
		EndDate:    day(2024, 3, 12),
		Type:       "sick",
		Status:     model.LeavePending,
	}
	if err := s.Save(ctx, l); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListBucket("e1", 2024, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d records, want 1", len(got))
	}
	if got[0].ID != "l1" || !got[0].EndDate.Equal(l.EndDate) {
		t.Errorf("round-trip mismatch: %+v", got[0])
	}
}

func TestLeaveStore_SaveRejectsMissingID(t *testing.T) {
	s := NewLeaveStore(newMemFS(), root, testLogger)
	err := s.Save(context.Background(), model.Leave{EmployeeID: "e1", StartDate: day(2024, 3, 1)})
	if err == nil {
		t.Fatal("expected error for record without id")
	}
}

func TestLeaveStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewLeaveStore(newMemFS(), root, testLogger)

	l := model.Leave{ID: "l1", EmployeeID: "e1", StartDate: day(2024, 3, 10), EndDate: day(2024, 3, 10)}
	_ = s.Save(ctx, l)

	if err := s.Delete(ctx, l); err != nil {
		t.Fatalf("delete: %v", err)
	}
	// Second delete is a no-op.
	if err := s.Delete(ctx, l); err != nil {
		t.Fatalf("second delete: %v", err)
	}

	got, _ := s.ListBucket("e1", 2024, 3)
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestLeaveStore_LoadAllForSync(t *testing.T) {
	ctx := context.Background()
	s := NewLeaveStore(newMemFS(), root, testLogger)

	// Records across two owners and three buckets.
	for _, l := range []model.Leave{
		{ID: "a", EmployeeID: "e1", StartDate: day(2024, 1, 5), EndDate: day(2024, 1, 5)},
		{ID: "b", EmployeeID: "e1", StartDate: day(2024, 2, 5), EndDate: day(2024, 2, 5)},
		{ID: "c", EmployeeID: "e2", StartDate: day(2024, 1, 5), EndDate: day(2024, 1, 5)},
	} {
		if err := s.Save(ctx, l); err != nil {
			t.Fatalf("save %s: %v", l.ID, err)
		}
	}

	got, err := s.LoadAllForSync(ctx)
	if err != nil {
		t.Fatalf("load all: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d records, want 3", len(got))
	}
}

func TestLeaveStore_LoadAllForSync_EmptyRoot(t *testing.T) {
	s := NewLeaveStore(newMemFS(), root, testLogger)
	got, err := s.LoadAllForSync(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d records, want 0", len(got))
	}
}

func TestLeaveStore_LoadAllForSync_SkipsCorruptBucket(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS()
	s := NewLeaveStore(fs, root, testLogger)

	good := model.Leave{ID: "a", EmployeeID: "e1", StartDate: day(2024, 1, 5), EndDate: day(2024, 1, 5)}
	_ = s.Save(ctx, good)
	_ = fs.WriteFile("/data/leaves/e1/2024_2_leaves.json", []byte("{ not json"))

	got, err := s.LoadAllForSync(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "a" {
		t.Errorf("got %v, want only the good record", got)
	}
}

func TestAttendanceStore_CSVFallback(t *testing.T) {
	fs := newMemFS()
	s := NewAttendanceStore(fs, root, testLogger)

	csv := "id,employeeId,date,timeIn,timeOut,notes\n" +
		"a1,e1,2024-03-04,08:05,17:10,late\n" +
		"a2,e1,2024-03-05,08:00,,\n"
	_ = fs.WriteFile("/data/attendance/e1/2024_3_attendance.csv", []byte(csv))

	got, err := s.ListBucket("e1", 2024, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d records, want 2", len(got))
	}
	byID := map[string]model.AttendanceRecord{}
	for _, r := range got {
		byID[r.ID] = r
	}
	if byID["a1"].TimeIn == nil || byID["a1"].TimeIn.Hour() != 8 || byID["a1"].TimeIn.Minute() != 5 {
		t.Errorf("a1 timeIn = %v, want 08:05", byID["a1"].TimeIn)
	}
	if byID["a2"].TimeOut != nil {
		t.Errorf("a2 timeOut = %v, want nil (empty cell)", byID["a2"].TimeOut)
	}
}

func TestAttendanceStore_JSONWinsOverCSV(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS()
	s := NewAttendanceStore(fs, root, testLogger)

	// JSON exists first; a CSV appearing later for the same month is ignored.
	_ = s.Save(ctx, model.AttendanceRecord{ID: "new", EmployeeID: "e1", Date: day(2024, 3, 4)})
	_ = fs.WriteFile("/data/attendance/e1/2024_3_attendance.csv",
		[]byte("id,employeeId,date,timeIn,timeOut,notes\nold,e1,2024-03-04,08:00,17:00,\n"))

	got, err := s.ListBucket("e1", 2024, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 || got[0].ID != "new" {
		t.Errorf("got %v, want only the JSON record", got)
	}
}

func TestAttendanceStore_SaveMergesLegacyCSV(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS()
	s := NewAttendanceStore(fs, root, testLogger)

	// A month that only exists as a legacy CSV export: the first write carries
	// the CSV rows into the JSON file instead of dropping them.
	_ = fs.WriteFile("/data/attendance/e1/2024_3_attendance.csv",
		[]byte("id,employeeId,date,timeIn,timeOut,notes\nold,e1,2024-03-04,08:00,17:00,\n"))
	if err := s.Save(ctx, model.AttendanceRecord{ID: "new", EmployeeID: "e1", Date: day(2024, 3, 5)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.ListBucket("e1", 2024, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	ids := map[string]bool{}
	for _, r := range got {
		ids[r.ID] = true
	}
	if len(got) != 2 || !ids["old"] || !ids["new"] {
		t.Fatalf("got %v, want both the CSV record and the saved one", got)
	}

	// The legacy row now lives in the JSON file, so the CSV is no longer load-bearing.
	content, err := fs.ReadFile("/data/attendance/e1/2024_3_attendance.json")
	if err != nil {
		t.Fatalf("JSON file not written: %v", err)
	}
	if !strings.Contains(string(content), `"old"`) {
		t.Errorf("JSON file does not contain the migrated CSV record: %s", content)
	}
}

func TestAttendanceStore_MigrateCSV(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS()
	s := NewAttendanceStore(fs, root, testLogger)

	_ = fs.WriteFile("/data/attendance/e1/2024_3_attendance.csv",
		[]byte("id,employeeId,date,timeIn,timeOut,notes\na1,e1,2024-03-04,08:05,17:10,\n"))

	migrated, err := s.MigrateCSV(ctx)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if migrated != 1 {
		t.Errorf("migrated = %d, want 1", migrated)
	}

	// JSON file now exists and is read directly.
	if _, err := fs.ReadFile("/data/attendance/e1/2024_3_attendance.json"); err != nil {
		t.Fatalf("JSON file not written: %v", err)
	}
	got, _ := s.ListBucket("e1", 2024, 3)
	if len(got) != 1 || got[0].ID != "a1" {
		t.Errorf("got %v, want migrated record a1", got)
	}

	// Re-running migrates nothing (JSON already present).
	migrated, err = s.MigrateCSV(ctx)
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if migrated != 0 {
		t.Errorf("second run migrated = %d, want 0", migrated)
	}
}

func TestEmployeeStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewEmployeeStore(newMemFS(), root, testLogger)

	e := model.Employee{
		ID:        "e1",
		FirstName: "Maria",
		LastName:  "Santos",
		DailyRate: 650,
		Active:    true,
		StartDate: day(2022, 6, 1),
		Schedule:  []model.Weekday{time.Monday, time.Tuesday, time.Wednesday},
	}
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, ok, err := s.Get("e1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.FullName() != "Maria Santos" || got.DailyRate != 650 {
		t.Errorf("round-trip mismatch: %+v", got)
	}
	if len(got.Schedule) != 3 {
		t.Errorf("schedule len = %d, want 3", len(got.Schedule))
	}

	_ = s.Save(ctx, model.Employee{ID: "e2", LastName: "Cruz", Active: false})
	active, err := s.Active()
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "e1" {
		t.Errorf("active = %v, want only e1", active)
	}

	if err := s.Delete(ctx, "e1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get("e1"); ok {
		t.Error("e1 should be gone")
	}
}

func TestPayrollStore_BucketFromYearMonth(t *testing.T) {
	ctx := context.Background()
	fs := newMemFS()
	s := NewPayrollStore(fs, root, testLogger)

	p := model.PayrollSummary{ID: "p1", EmployeeID: "e1", Year: 2024, Month: 3, GrossPay: 9000, NetPay: 8500}
	if err := s.Save(ctx, p); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := fs.ReadFile("/data/payroll/e1/2024_3_payroll.json"); err != nil {
		t.Fatalf("payroll file not at expected path: %v", err)
	}

	// Invalid period is rejected rather than bucketed nonsensically.
	bad := model.PayrollSummary{ID: "p2", EmployeeID: "e1", Year: 2024, Month: 13}
	if err := s.Save(ctx, bad); err == nil {
		t.Fatal("expected error for month out of range")
	}
}
