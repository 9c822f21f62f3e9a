// Package model defines the domain records shared between the local entity
// stores, the remote adapters, and the sync orchestrators, plus the
// bucket-key derivation every component must agree on.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Weekday aliases time.Weekday (Sunday = 0) so schedules serialize as the
// same small integers locally and remotely.
type Weekday = time.Weekday

// Employee is the owning entity for every time-bucketed record.
// Employees are not time-bucketed themselves: one document per employee.
type Employee struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Position  string    `json:"position"`
	DailyRate float64   `json:"dailyRate"`
	Active    bool      `json:"active"`
	StartDate time.Time `json:"startDate"`

	// Schedule lists the weekdays the employee is required to be present.
	// An empty schedule means attendance is never required.
	Schedule []Weekday `json:"schedule"`
}

// FullName returns "First Last" for display and log messages.
func (e *Employee) FullName() string {
	if e.FirstName == "" {
		return e.LastName
	}
	return e.FirstName + " " + e.LastName
}

// RequiresPresenceOn reports whether the employee's schedule covers the given day.
func (e *Employee) RequiresPresenceOn(day time.Time) bool {
	for _, wd := range e.Schedule {
		if wd == day.Weekday() {
			return true
		}
	}
	return false
}

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// Leave is a leave request spanning one or more days. Bucketed by StartDate.
type Leave struct {
	ID         string      `json:"id"`
	EmployeeID string      `json:"employeeId"`
	StartDate  time.Time   `json:"startDate"`
	EndDate    time.Time   `json:"endDate"`
	Type       string      `json:"type"`
	Reason     string      `json:"reason"`
	Status     LeaveStatus `json:"status"`
}

// Overlaps reports whether the leave's [StartDate, EndDate] range intersects
// [start, end]. Boundary days count as overlapping.
func (l *Leave) Overlaps(start, end time.Time) bool {
	return !l.EndDate.Before(start) && !l.StartDate.After(end)
}

// AttendanceRecord is one employee-day of attendance capture. TimeIn/TimeOut
// are nil until the corresponding punch exists.
type AttendanceRecord struct {
	ID         string     `json:"id"`
	EmployeeID string     `json:"employeeId"`
	Date       time.Time  `json:"date"`
	TimeIn     *time.Time `json:"timeIn,omitempty"`
	TimeOut    *time.Time `json:"timeOut,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// Complete reports whether both punches are present.
func (a *AttendanceRecord) Complete() bool {
	return a.TimeIn != nil && a.TimeOut != nil
}

// PayrollSummary is one employee's computed pay for one month. The pay figures
// are opaque to the sync layer: it stores and aggregates them, never derives them.
type PayrollSummary struct {
	ID          string             `json:"id"`
	EmployeeID  string             `json:"employeeId"`
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	PeriodStart time.Time          `json:"periodStart"`
	PeriodEnd   time.Time          `json:"periodEnd"`
	DaysWorked  float64            `json:"daysWorked"`
	DailyRate   float64            `json:"dailyRate"`
	GrossPay    float64            `json:"grossPay"`
	Deductions  map[string]float64 `json:"deductions,omitempty"`
	NetPay      float64            `json:"netPay"`
	GeneratedAt time.Time          `json:"generatedAt"`
}

// TotalDeductions sums the deduction line items.
func (p *PayrollSummary) TotalDeductions() float64 {
	var total float64
	for _, v := range p.Deductions {
		total += v
	}
	return total
}

// MissingTimeEntry flags an employee-day where the schedule required presence
// but one or both punches are absent.
type MissingTimeEntry struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Date       time.Time `json:"date"`
	MissingIn  bool      `json:"missingIn"`
	MissingOut bool      `json:"missingOut"`
	DetectedAt time.Time `json:"detectedAt"`
}

// NewID mints a record ID. Centralised so stores and tests agree on the format.
func NewID() string {
	return uuid.NewString()
}
