/*
Package generic provides the core types shared by the attendance engine.

PURPOSE:
  This package contains the records every other package talks about:
  employees, daily attendance records, leave requests and notifications,
  plus the calendar-day type used as the reconciliation unit and the error
  taxonomy. It has no knowledge of HTTP, SQL or tokens.

KEY CONCEPTS IN THIS FILE (types.go):
  - EmployeeID / RecordID: Type-safe identifiers
  - AttendanceStatus: Present, Absent, Half-Day, On Leave
  - LeaveStatus: Pending, Approved, Rejected
  - NotificationType: Leave, Attendance, General

INVARIANTS (enforced by the store, relied upon by the engine):
  1. At most one AttendanceRecord per (EmployeeID, Day)
  2. At most one LeaveRequest per (EmployeeID, Day), whatever its status
  3. Notifications are append-only

SEE ALSO:
  - time.go: Day (calendar day in server-local time)
  - errors.go: Error taxonomy
  - store.go: Persistence interfaces
*/
package generic

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type RecordID string

// NewRecordID returns a fresh random identifier for a stored record.
func NewRecordID() RecordID {
	return RecordID(uuid.NewString())
}

// =============================================================================
// EMPLOYEE - Identity directory entry
// =============================================================================

// Employee is an identity record. Code and Email are both unique.
type Employee struct {
	ID        EmployeeID
	Code      string
	Email     string
	Name      string
	Position  string
	CreatedAt time.Time
}

// =============================================================================
// ATTENDANCE
// =============================================================================

type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusAbsent  AttendanceStatus = "Absent"
	StatusHalfDay AttendanceStatus = "Half-Day"
	StatusOnLeave AttendanceStatus = "On Leave"
)

// AttendanceStatuses lists every valid status in display order.
var AttendanceStatuses = []AttendanceStatus{StatusPresent, StatusAbsent, StatusHalfDay, StatusOnLeave}

func (s AttendanceStatus) Valid() bool {
	switch s {
	case StatusPresent, StatusAbsent, StatusHalfDay, StatusOnLeave:
		return true
	}
	return false
}

// ParseAttendanceStatus validates a client-supplied status.
func ParseAttendanceStatus(s string) (AttendanceStatus, error) {
	status := AttendanceStatus(s)
	if !status.Valid() {
		return "", &ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("must be one of %v, got %q", AttendanceStatuses, s),
		}
	}
	return status, nil
}

// AttendanceRecord is the single daily record for an employee.
// A record with an empty ID is a placeholder synthesized for a view; it was
// never persisted.
type AttendanceRecord struct {
	ID           RecordID
	EmployeeID   EmployeeID
	Day          Day
	CheckInTime  *time.Time
	CheckOutTime *time.Time
	Status       AttendanceStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Placeholder returns the virtual Absent row used to fill gaps in views.
func Placeholder(employeeID EmployeeID, day Day) AttendanceRecord {
	return AttendanceRecord{EmployeeID: employeeID, Day: day, Status: StatusAbsent}
}

func (r AttendanceRecord) IsPlaceholder() bool { return r.ID == "" }
func (r AttendanceRecord) CheckedIn() bool     { return r.CheckInTime != nil }
func (r AttendanceRecord) CheckedOut() bool    { return r.CheckOutTime != nil }

// WorkedDuration is check-out minus check-in, or zero unless both are set.
func (r AttendanceRecord) WorkedDuration() time.Duration {
	if r.CheckInTime == nil || r.CheckOutTime == nil {
		return 0
	}
	d := r.CheckOutTime.Sub(*r.CheckInTime)
	if d < 0 {
		return 0
	}
	return d
}

// =============================================================================
// LEAVE
// =============================================================================

type LeaveStatus string

const (
	LeavePending  LeaveStatus = "Pending"
	LeaveApproved LeaveStatus = "Approved"
	LeaveRejected LeaveStatus = "Rejected"
)

// ParseLeaveDecision accepts only the two administrator decisions.
func ParseLeaveDecision(s string) (LeaveStatus, error) {
	switch LeaveStatus(s) {
	case LeaveApproved, LeaveRejected:
		return LeaveStatus(s), nil
	}
	return "", &ValidationError{
		Field:   "status",
		Message: fmt.Sprintf("must be %q or %q, got %q", LeaveApproved, LeaveRejected, s),
	}
}

// LeaveRequest asks for one day off.
type LeaveRequest struct {
	ID         RecordID
	EmployeeID EmployeeID
	Day        Day
	Reason     string
	Status     LeaveStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// =============================================================================
// NOTIFICATION
// =============================================================================

type NotificationType string

const (
	NotifyLeave      NotificationType = "Leave"
	NotifyAttendance NotificationType = "Attendance"
	NotifyGeneral    NotificationType = "General"
)

type Notification struct {
	ID         RecordID
	EmployeeID EmployeeID
	Message    string
	Type       NotificationType
	Read       bool
	CreatedAt  time.Time
}
