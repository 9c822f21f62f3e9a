// Package timesheet detects employee-days where the schedule required presence
// but one or both attendance punches are absent.
package timesheet

import (
	"context"
	"fmt"
	"time"

	"github.com/paytally/paysync/internal/model"
)

// EntryStore is the slice of the missing-time store Reconcile needs.
type EntryStore interface {
	ListBucket(owner string, year, month int) ([]model.MissingTimeEntry, error)
	Delete(ctx context.Context, entry model.MissingTimeEntry) error
}

// Detect walks every scheduled day of the given month for each active employee
// and returns one entry per day with a missing punch. Days after today are not
// inspected; days without an attendance record count as missing on both sides.
func Detect(year, month int, attendance []model.AttendanceRecord, employees []model.Employee) []model.MissingTimeEntry {
	byDay := make(map[string]*model.AttendanceRecord, len(attendance))
	for i := range attendance {
		rec := &attendance[i]
		byDay[dayKey(rec.EmployeeID, rec.Date)] = rec
	}

	now := time.Now().UTC()
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	var entries []model.MissingTimeEntry
	for _, emp := range employees {
		if !emp.Active {
			continue
		}
		for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
			if day.After(now) {
				break
			}
			if !emp.RequiresPresenceOn(day) {
				continue
			}
			missingIn, missingOut := true, true
			if rec, ok := byDay[dayKey(emp.ID, day)]; ok {
				missingIn = rec.TimeIn == nil
				missingOut = rec.TimeOut == nil
			}
			if !missingIn && !missingOut {
				continue
			}
			entries = append(entries, model.MissingTimeEntry{
				ID:         model.NewID(),
				EmployeeID: emp.ID,
				Date:       day,
				MissingIn:  missingIn,
				MissingOut: missingOut,
				DetectedAt: now,
			})
		}
	}
	return entries
}

// Reconcile deletes every missing-time entry the given attendance record
// resolves. Called after an attendance edit; a record with a punch still
// absent deletes nothing.
func Reconcile(ctx context.Context, entries EntryStore, record model.AttendanceRecord) (int, error) {
	if !record.Complete() {
		return 0, nil
	}
	bucket := model.BucketOf(record.EmployeeID, record.Date)
	open, err := entries.ListBucket(record.EmployeeID, bucket.Year, bucket.Month)
	if err != nil {
		return 0, fmt.Errorf("listing missing-time entries for %s: %w", bucket.ID(), err)
	}
	deleted := 0
	for _, entry := range open {
		if !Resolved(entry, record) {
			continue
		}
		if err := entries.Delete(ctx, entry); err != nil {
			return deleted, fmt.Errorf("deleting missing-time entry %s: %w", entry.ID, err)
		}
		deleted++
	}
	return deleted, nil
}

// Resolved reports whether the attendance record clears the missing-time
// entry: same employee-day with both punches present. Callers delete the
// entry when this returns true.
func Resolved(entry model.MissingTimeEntry, record model.AttendanceRecord) bool {
	if entry.EmployeeID != record.EmployeeID {
		return false
	}
	if dayKey(entry.EmployeeID, entry.Date) != dayKey(record.EmployeeID, record.Date) {
		return false
	}
	return record.Complete()
}

func dayKey(employeeID string, t time.Time) string {
	return employeeID + "_" + t.UTC().Format("2006-01-02")
}
