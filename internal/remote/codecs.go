package remote

import (
	"fmt"
	"time"

	"github.com/paytally/paysync/internal/model"
)

// LeaveCodec maps [model.Leave] to the "leaves" collection. Leaves are
// bucketed by their start date.
type LeaveCodec struct{}

func (LeaveCodec) Collection() string  { return "leaves" }
func (LeaveCodec) SubMapField() string { return "leaves" }

func (LeaveCodec) RecordID(l model.Leave) string       { return l.ID }
func (LeaveCodec) OwnerID(l model.Leave) string        { return l.EmployeeID }
func (LeaveCodec) BucketDate(l model.Leave) time.Time  { return l.StartDate }
func (LeaveCodec) Range(l model.Leave) (time.Time, time.Time) {
	return l.StartDate, l.EndDate
}

func (LeaveCodec) Encode(l model.Leave) map[string]any {
	return map[string]any{
		"employeeId": l.EmployeeID,
		"startDate":  model.FormatDate(l.StartDate),
		"endDate":    model.FormatDate(l.EndDate),
		"type":       l.Type,
		"reason":     l.Reason,
		"status":     string(l.Status),
	}
}

func (LeaveCodec) Decode(id string, payload map[string]any) (model.Leave, error) {
	owner, err := requireString(payload, "employeeId")
	if err != nil {
		return model.Leave{}, err
	}
	start, err := requireTime(payload, "startDate")
	if err != nil {
		return model.Leave{}, err
	}
	end, err := asTime(payload, "endDate")
	if err != nil {
		return model.Leave{}, err
	}
	if end.IsZero() {
		end = start
	}
	return model.Leave{
		ID:         id,
		EmployeeID: owner,
		StartDate:  start,
		EndDate:    end,
		Type:       asString(payload, "type"),
		Reason:     asString(payload, "reason"),
		Status:     model.LeaveStatus(asString(payload, "status")),
	}, nil
}

// AttendanceCodec maps [model.AttendanceRecord] to the "attendances"
// collection, bucketed by record date.
type AttendanceCodec struct{}

func (AttendanceCodec) Collection() string  { return "attendances" }
func (AttendanceCodec) SubMapField() string { return "records" }

func (AttendanceCodec) RecordID(a model.AttendanceRecord) string      { return a.ID }
func (AttendanceCodec) OwnerID(a model.AttendanceRecord) string       { return a.EmployeeID }
func (AttendanceCodec) BucketDate(a model.AttendanceRecord) time.Time { return a.Date }
func (AttendanceCodec) Range(a model.AttendanceRecord) (time.Time, time.Time) {
	return a.Date, a.Date
}

func (AttendanceCodec) Encode(a model.AttendanceRecord) map[string]any {
	return map[string]any{
		"employeeId": a.EmployeeID,
		"date":       model.FormatDate(a.Date),
		"timeIn":     encodeTimePtr(a.TimeIn),
		"timeOut":    encodeTimePtr(a.TimeOut),
		"notes":      a.Notes,
	}
}

func (AttendanceCodec) Decode(id string, payload map[string]any) (model.AttendanceRecord, error) {
	owner, err := requireString(payload, "employeeId")
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	date, err := requireTime(payload, "date")
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	timeIn, err := asTimePtr(payload, "timeIn")
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	timeOut, err := asTimePtr(payload, "timeOut")
	if err != nil {
		return model.AttendanceRecord{}, err
	}
	return model.AttendanceRecord{
		ID:         id,
		EmployeeID: owner,
		Date:       date,
		TimeIn:     timeIn,
		TimeOut:    timeOut,
		Notes:      asString(payload, "notes"),
	}, nil
}

// PayrollCodec maps [model.PayrollSummary] to the "payrolls" collection.
// Payrolls carry an explicit (year, month) rather than deriving it from a
// date, so the bucket date is synthesised from those fields.
type PayrollCodec struct{}

func (PayrollCodec) Collection() string  { return "payrolls" }
func (PayrollCodec) SubMapField() string { return "payrolls" }

func (PayrollCodec) RecordID(p model.PayrollSummary) string { return p.ID }
func (PayrollCodec) OwnerID(p model.PayrollSummary) string  { return p.EmployeeID }
func (PayrollCodec) BucketDate(p model.PayrollSummary) time.Time {
	if p.Year == 0 || p.Month < 1 || p.Month > 12 {
		return time.Time{}
	}
	return time.Date(p.Year, time.Month(p.Month), 1, 0, 0, 0, 0, time.UTC)
}
func (PayrollCodec) Range(p model.PayrollSummary) (time.Time, time.Time) {
	return p.PeriodStart, p.PeriodEnd
}

func (PayrollCodec) Encode(p model.PayrollSummary) map[string]any {
	return map[string]any{
		"employeeId":  p.EmployeeID,
		"year":        p.Year,
		"month":       p.Month,
		"periodStart": model.FormatDate(p.PeriodStart),
		"periodEnd":   model.FormatDate(p.PeriodEnd),
		"daysWorked":  p.DaysWorked,
		"dailyRate":   p.DailyRate,
		"grossPay":    p.GrossPay,
		"deductions":  encodeFloatMap(p.Deductions),
		"netPay":      p.NetPay,
		"generatedAt": model.FormatDate(p.GeneratedAt),
	}
}

func (PayrollCodec) Decode(id string, payload map[string]any) (model.PayrollSummary, error) {
	owner, err := requireString(payload, "employeeId")
	if err != nil {
		return model.PayrollSummary{}, err
	}
	year := asInt(payload, "year")
	month := asInt(payload, "month")
	if year == 0 || month < 1 || month > 12 {
		return model.PayrollSummary{}, fmt.Errorf("payroll %s has invalid period %d/%d", id, year, month)
	}
	periodStart, err := asTime(payload, "periodStart")
	if err != nil {
		return model.PayrollSummary{}, err
	}
	periodEnd, err := asTime(payload, "periodEnd")
	if err != nil {
		return model.PayrollSummary{}, err
	}
	generatedAt, err := asTime(payload, "generatedAt")
	if err != nil {
		return model.PayrollSummary{}, err
	}
	return model.PayrollSummary{
		ID:          id,
		EmployeeID:  owner,
		Year:        year,
		Month:       month,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		DaysWorked:  asFloat(payload, "daysWorked"),
		DailyRate:   asFloat(payload, "dailyRate"),
		GrossPay:    asFloat(payload, "grossPay"),
		Deductions:  asFloatMap(payload, "deductions"),
		NetPay:      asFloat(payload, "netPay"),
		GeneratedAt: generatedAt,
	}, nil
}

// MissingTimeCodec maps [model.MissingTimeEntry] to the "missing_times"
// collection, bucketed by the flagged day.
type MissingTimeCodec struct{}

func (MissingTimeCodec) Collection() string  { return "missing_times" }
func (MissingTimeCodec) SubMapField() string { return "entries" }

func (MissingTimeCodec) RecordID(e model.MissingTimeEntry) string      { return e.ID }
func (MissingTimeCodec) OwnerID(e model.MissingTimeEntry) string       { return e.EmployeeID }
func (MissingTimeCodec) BucketDate(e model.MissingTimeEntry) time.Time { return e.Date }
func (MissingTimeCodec) Range(e model.MissingTimeEntry) (time.Time, time.Time) {
	return e.Date, e.Date
}

func (MissingTimeCodec) Encode(e model.MissingTimeEntry) map[string]any {
	return map[string]any{
		"employeeId": e.EmployeeID,
		"date":       model.FormatDate(e.Date),
		"missingIn":  e.MissingIn,
		"missingOut": e.MissingOut,
		"detectedAt": model.FormatDate(e.DetectedAt),
	}
}

func (MissingTimeCodec) Decode(id string, payload map[string]any) (model.MissingTimeEntry, error) {
	owner, err := requireString(payload, "employeeId")
	if err != nil {
		return model.MissingTimeEntry{}, err
	}
	date, err := requireTime(payload, "date")
	if err != nil {
		return model.MissingTimeEntry{}, err
	}
	detectedAt, err := asTime(payload, "detectedAt")
	if err != nil {
		return model.MissingTimeEntry{}, err
	}
	return model.MissingTimeEntry{
		ID:         id,
		EmployeeID: owner,
		Date:       date,
		MissingIn:  asBool(payload, "missingIn"),
		MissingOut: asBool(payload, "missingOut"),
		DetectedAt: detectedAt,
	}, nil
}
