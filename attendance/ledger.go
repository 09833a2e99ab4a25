/*
ledger.go - Attendance ledger with one-record-per-day enforcement

PURPOSE:
  Owns the transition rules for the daily attendance record. The engine
  calls these; nothing else writes attendance.

INVARIANT:
  At most one AttendanceRecord per (EmployeeID, Day).

  The ledger does a find-then-write without locking. Two racing creates can
  both see "no record"; the store's unique index lets exactly one insert
  through and the loser gets generic.ErrDuplicateRecord, which each rule
  below translates into the operation's own error.

TRANSITIONS:
  CheckIn:   none        -> {in=now, Present}
             {in=nil}    -> {in=now, Present}
             {in set}    -> ErrAlreadyCheckedIn
  CheckOut:  none/in=nil -> ErrMustCheckInFirst
             {out set}   -> ErrAlreadyCheckedOut
             {in set}    -> {out=now}, status unchanged
  SetStatus: find-or-create, status forced, times untouched

  CheckOut never recomputes the status (no automatic Half-Day).

SEE ALSO:
  - engine.go: Orchestrates ledgers and notifications
  - store/sqlite/sqlite.go: idx_attendance_employee_day
*/
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// AttendanceLedger applies state transitions to daily attendance records.
type AttendanceLedger struct {
	store generic.AttendanceStore
}

func NewAttendanceLedger(store generic.AttendanceStore) *AttendanceLedger {
	return &AttendanceLedger{store: store}
}

// CheckIn records the first arrival of the day.
func (l *AttendanceLedger) CheckIn(ctx context.Context, employeeID generic.EmployeeID, now time.Time) (*generic.AttendanceRecord, error) {
	day := generic.DayOf(now)

	rec, err := l.store.GetAttendance(ctx, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	if rec == nil {
		created := generic.AttendanceRecord{
			ID:          generic.NewRecordID(),
			EmployeeID:  employeeID,
			Day:         day,
			CheckInTime: &now,
			Status:      generic.StatusPresent,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := l.store.CreateAttendance(ctx, created); err != nil {
			// Lost the race against a concurrent create for the same day.
			if errors.Is(err, generic.ErrDuplicateRecord) {
				return nil, generic.ErrAlreadyCheckedIn
			}
			return nil, err
		}
		return &created, nil
	}

	if rec.CheckedIn() {
		return nil, generic.ErrAlreadyCheckedIn
	}

	// A record without check-in exists when an admin set the status first.
	rec.CheckInTime = &now
	rec.Status = generic.StatusPresent
	rec.UpdatedAt = now
	if err := l.store.UpdateAttendance(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// CheckOut records the departure. The status is left as is.
func (l *AttendanceLedger) CheckOut(ctx context.Context, employeeID generic.EmployeeID, now time.Time) (*generic.AttendanceRecord, error) {
	rec, err := l.store.GetAttendance(ctx, employeeID, generic.DayOf(now))
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}
	if rec == nil || !rec.CheckedIn() {
		return nil, generic.ErrMustCheckInFirst
	}
	if rec.CheckedOut() {
		return nil, generic.ErrAlreadyCheckedOut
	}

	rec.CheckOutTime = &now
	rec.UpdatedAt = now
	if err := l.store.UpdateAttendance(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// SetStatus forces the status for (employee, day), creating the record if
// needed. Check-in and check-out times are never touched.
func (l *AttendanceLedger) SetStatus(ctx context.Context, employeeID generic.EmployeeID, day generic.Day, status generic.AttendanceStatus, now time.Time) (*generic.AttendanceRecord, error) {
	if !status.Valid() {
		_, err := generic.ParseAttendanceStatus(string(status))
		return nil, err
	}

	rec, err := l.store.GetAttendance(ctx, employeeID, day)
	if err != nil {
		return nil, fmt.Errorf("failed to load attendance: %w", err)
	}

	if rec == nil {
		created := generic.AttendanceRecord{
			ID:         generic.NewRecordID(),
			EmployeeID: employeeID,
			Day:        day,
			Status:     status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err := l.store.CreateAttendance(ctx, created)
		if err == nil {
			return &created, nil
		}
		if !errors.Is(err, generic.ErrDuplicateRecord) {
			return nil, err
		}
		// Someone created the record in between; overwrite it (last write wins).
		if rec, err = l.store.GetAttendance(ctx, employeeID, day); err != nil {
			return nil, fmt.Errorf("failed to reload attendance: %w", err)
		}
		if rec == nil {
			return nil, fmt.Errorf("attendance for %s on %s vanished after conflict", employeeID, day)
		}
	}

	rec.Status = status
	rec.UpdatedAt = now
	if err := l.store.UpdateAttendance(ctx, *rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Month returns the persisted records of the month up to and including the
// last day that has started by now. A nil employeeID means everyone.
func (l *AttendanceLedger) Month(ctx context.Context, employeeID *generic.EmployeeID, month generic.Month, now time.Time) ([]generic.AttendanceRecord, error) {
	to := month.Last()
	if today := generic.DayOf(now); today.Before(to) {
		to = today
	}
	if to.Before(month.First()) {
		return nil, nil
	}
	return l.store.ListAttendance(ctx, generic.AttendanceFilter{
		EmployeeID: employeeID,
		From:       month.First(),
		To:         to,
	})
}
