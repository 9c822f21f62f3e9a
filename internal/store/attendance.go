package store

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/paytally/paysync/internal/localfs"
	"github.com/paytally/paysync/internal/model"
)

// AttendanceStore persists attendance under {root}/attendance/{employeeId}/.
// During the migration window a month with no JSON file may still exist as a
// legacy CSV export: reads fall back to it, and the first write to such a
// month carries the CSV rows into the new JSON file so no legacy record is
// lost. Once a JSON file exists the CSV is ignored entirely.
// [AttendanceStore.MigrateCSV] converts remaining CSV months in one pass so
// the CSV path can be retired.
type AttendanceStore struct {
	*bucketStore[model.AttendanceRecord]
}

func NewAttendanceStore(fs localfs.FS, root string, logger *slog.Logger) *AttendanceStore {
	s := &AttendanceStore{&bucketStore[model.AttendanceRecord]{
		fs:         fs,
		root:       root,
		dirName:    "attendance",
		suffix:     "attendance",
		subField:   "records",
		recordID:   func(a model.AttendanceRecord) string { return a.ID },
		ownerID:    func(a model.AttendanceRecord) string { return a.EmployeeID },
		bucketDate: func(a model.AttendanceRecord) time.Time { return a.Date },
		log:        logger,
	}}
	s.legacyRead = s.readLegacyCSV
	return s
}

func (s *AttendanceStore) csvPath(owner string, bucket model.Bucket) string {
	name := strconv.Itoa(bucket.Year) + "_" + strconv.Itoa(bucket.Month) + "_attendance.csv"
	return filepath.Join(s.dir(owner), name)
}

// readLegacyCSV loads a legacy month export. Returns (nil, false) when no CSV
// exists so the caller treats the bucket as empty.
func (s *AttendanceStore) readLegacyCSV(owner string, bucket model.Bucket) (map[string]model.AttendanceRecord, bool) {
	content, err := s.fs.ReadFile(s.csvPath(owner, bucket))
	if err != nil {
		return nil, false
	}

	records, err := parseAttendanceCSV(owner, content)
	if err != nil {
		s.log.Warn("legacy CSV unparsable, treating month as empty",
			"owner", owner, "doc", bucket.ID(), "error", err)
		return nil, false
	}
	s.log.Info("read legacy CSV attendance", "owner", owner, "doc", bucket.ID(), "records", len(records))
	return records, true
}

// MigrateCSV converts every legacy CSV month found under the attendance tree
// into the JSON format, leaving the CSV in place for manual cleanup. Months
// that already have a JSON file are left alone (JSON is authoritative).
// Returns the number of months migrated.
func (s *AttendanceStore) MigrateCSV(ctx context.Context) (int, error) {
	attendanceDir := filepath.Join(s.root, s.dirName)
	owners, err := s.fs.ReadDir(attendanceDir)
	if err != nil {
		if localfs.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("listing %s: %w", attendanceDir, err)
	}

	migrated := 0
	for _, ownerEntry := range owners {
		if !ownerEntry.IsDir {
			continue
		}
		owner := ownerEntry.Name
		files, err := s.fs.ReadDir(s.dir(owner))
		if err != nil {
			s.log.Warn("skipping unreadable owner directory", "owner", owner, "error", err)
			continue
		}
		for _, f := range files {
			if f.IsDir || !strings.HasSuffix(f.Name, "_attendance.csv") {
				continue
			}
			year, month, err := model.ParseBucketFileName(f.Name)
			if err != nil {
				s.log.Warn("skipping CSV with unrecognized name", "owner", owner, "file", f.Name)
				continue
			}
			bucket := model.Bucket{OwnerID: owner, Year: year, Month: month}

			// JSON wins: never overwrite an existing JSON month from CSV.
			if _, err := s.fs.ReadFile(s.path(owner, bucket)); err == nil {
				continue
			}

			records, ok := s.readLegacyCSV(owner, bucket)
			if !ok {
				continue
			}
			if err := s.writeBucket(ctx, owner, bucket, records); err != nil {
				return migrated, fmt.Errorf("migrating %s for %s: %w", f.Name, owner, err)
			}
			migrated++
		}
	}
	return migrated, nil
}

// parseAttendanceCSV decodes the legacy export:
//
//	id,employeeId,date,timeIn,timeOut,notes
//	a1,e1,2024-03-04,08:05,17:10,late
//
// timeIn/timeOut are clock times combined with the row's date; empty cells
// mean the punch is missing.
func parseAttendanceCSV(owner string, content []byte) (map[string]model.AttendanceRecord, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = 6

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	records := make(map[string]model.AttendanceRecord)
	for i, row := range rows {
		if i == 0 && row[0] == "id" {
			continue // header
		}
		date, err := model.ParseDate(row[2])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		timeIn, err := parseClock(date, row[3])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		timeOut, err := parseClock(date, row[4])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}

		employeeID := row[1]
		if employeeID == "" {
			employeeID = owner
		}
		records[row[0]] = model.AttendanceRecord{
			ID:         row[0],
			EmployeeID: employeeID,
			Date:       date,
			TimeIn:     timeIn,
			TimeOut:    timeOut,
			Notes:      row[5],
		}
	}
	return records, nil
}

// parseClock combines a "15:04" cell with the row's date. Empty yields nil.
func parseClock(date time.Time, cell string) (*time.Time, error) {
	if cell == "" {
		return nil, nil
	}
	clock, err := time.Parse("15:04", cell)
	if err != nil {
		return nil, fmt.Errorf("parsing clock time %q: %w", cell, err)
	}
	t := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	return &t, nil
}
