package store

import (
	"log/slog"
	"time"

	"github.com/paytally/paysync/internal/localfs"
	"github.com/paytally/paysync/internal/model"
)

// LeaveStore persists leave requests under {root}/leaves/{employeeId}/.
type LeaveStore struct {
	*bucketStore[model.Leave]
}

func NewLeaveStore(fs localfs.FS, root string, logger *slog.Logger) *LeaveStore {
	return &LeaveStore{&bucketStore[model.Leave]{
		fs:         fs,
		root:       root,
		dirName:    "leaves",
		suffix:     "leaves",
		subField:   "leaves",
		recordID:   func(l model.Leave) string { return l.ID },
		ownerID:    func(l model.Leave) string { return l.EmployeeID },
		bucketDate: func(l model.Leave) time.Time { return l.StartDate },
		log:        logger,
	}}
}

// PayrollStore persists payroll summaries under {root}/payroll/{employeeId}/.
type PayrollStore struct {
	*bucketStore[model.PayrollSummary]
}

func NewPayrollStore(fs localfs.FS, root string, logger *slog.Logger) *PayrollStore {
	return &PayrollStore{&bucketStore[model.PayrollSummary]{
		fs:       fs,
		root:     root,
		dirName:  "payroll",
		suffix:   "payroll",
		subField: "payrolls",
		recordID: func(p model.PayrollSummary) string { return p.ID },
		ownerID:  func(p model.PayrollSummary) string { return p.EmployeeID },
		bucketDate: func(p model.PayrollSummary) time.Time {
			if p.Year == 0 || p.Month < 1 || p.Month > 12 {
				return time.Time{}
			}
			return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
		},
		log: logger,
	}}
}

// MissingTimeStore persists missing-time entries under
// {root}/missingtime/{employeeId}/.
type MissingTimeStore struct {
	*bucketStore[model.MissingTimeEntry]
}

func NewMissingTimeStore(fs localfs.FS, root string, logger *slog.Logger) *MissingTimeStore {
	return &MissingTimeStore{&bucketStore[model.MissingTimeEntry]{
		fs:         fs,
		root:       root,
		dirName:    "missingtime",
		suffix:     "missing",
		subField:   "entries",
		recordID:   func(e model.MissingTimeEntry) string { return e.ID },
		ownerID:    func(e model.MissingTimeEntry) string { return e.EmployeeID },
		bucketDate: func(e model.MissingTimeEntry) time.Time { return e.Date },
		log:        logger,
	}}
}
