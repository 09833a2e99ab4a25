/*
store.go - Persistence interfaces for the directory and the three ledgers

PURPOSE:
  Defines the interface between the reconciliation engine and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  EmployeeStore:     Identity directory
  AttendanceStore:   One record per (employee, day)
  LeaveStore:        One request per (employee, day)
  NotificationStore: Append-only messages
  Store:             All of the above

UNIQUENESS CONTRACT:
  CreateAttendance and CreateLeaveRequest MUST reject a second record for the
  same (employee, day) atomically, returning an error that matches
  ErrDuplicateRecord. This is the only concurrency guard in the system: two
  racing check-ins may both see "no record" but only one insert persists.

  Creates referencing an unknown employee return ErrEmployeeNotFound.

NOT-FOUND CONVENTION:
  Get* methods return (nil, nil) when nothing matches, like the rest of the
  codebase. Update* methods return the NotFound-kind error instead.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for tests and dev

SEE ALSO:
  - attendance/engine.go: The only writer
*/
package generic

import "context"

type EmployeeStore interface {
	// SaveEmployee inserts or updates by ID. Code and Email stay unique.
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error)
	GetEmployeeByEmail(ctx context.Context, email string) (*Employee, error)
	// ListEmployees returns all employees ordered by name.
	ListEmployees(ctx context.Context) ([]Employee, error)
}

// AttendanceFilter selects records in [From, To] (inclusive days).
// A nil EmployeeID means all employees.
type AttendanceFilter struct {
	EmployeeID *EmployeeID
	From       Day
	To         Day
}

type AttendanceStore interface {
	GetAttendance(ctx context.Context, employeeID EmployeeID, day Day) (*AttendanceRecord, error)
	// CreateAttendance persists a new record; ErrDuplicateRecord on (employee, day) collision.
	CreateAttendance(ctx context.Context, rec AttendanceRecord) error
	// UpdateAttendance overwrites times and status of an existing record.
	UpdateAttendance(ctx context.Context, rec AttendanceRecord) error
	// ListAttendance returns matching records ordered by day, then employee.
	ListAttendance(ctx context.Context, filter AttendanceFilter) ([]AttendanceRecord, error)
}

// LeaveFilter selects leave requests; nil fields match everything.
type LeaveFilter struct {
	EmployeeID *EmployeeID
	Status     *LeaveStatus
}

type LeaveStore interface {
	// CreateLeaveRequest persists a new request; ErrDuplicateRecord on (employee, day) collision.
	CreateLeaveRequest(ctx context.Context, req LeaveRequest) error
	GetLeaveRequest(ctx context.Context, id RecordID) (*LeaveRequest, error)
	UpdateLeaveRequest(ctx context.Context, req LeaveRequest) error
	// ListLeaveRequests returns matching requests, newest first.
	ListLeaveRequests(ctx context.Context, filter LeaveFilter) ([]LeaveRequest, error)
}

// NotificationStore is append-only. No update or delete is exposed.
type NotificationStore interface {
	AppendNotification(ctx context.Context, n Notification) error
	// ListNotifications returns the newest notifications first; limit <= 0 means all.
	ListNotifications(ctx context.Context, employeeID EmployeeID, limit int) ([]Notification, error)
}

// Store is everything the engine needs.
type Store interface {
	EmployeeStore
	AttendanceStore
	LeaveStore
	NotificationStore
}
