package attendance

import (
	"context"
	"iter"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// VIEWS - Read models over the attendance ledger
// =============================================================================

// AllEmployees selects every employee in MonthlyAttendanceView.
const AllEmployees generic.EmployeeID = "all"

// MonthlyAttendanceView yields the month's rows in ascending day order,
// stopping at today.
//
// For a single employee every elapsed day has exactly one row: the persisted
// record or an Absent placeholder (IsPlaceholder() == true). For AllEmployees
// only persisted records are returned; no gaps are filled.
//
// The records are loaded before the sequence is returned, so storage errors
// surface here and not while ranging.
func (e *Engine) MonthlyAttendanceView(ctx context.Context, employeeID generic.EmployeeID, month generic.Month, now time.Time) (iter.Seq[generic.AttendanceRecord], error) {
	if employeeID == "" || employeeID == AllEmployees {
		records, err := e.attendance.Month(ctx, nil, month, now)
		if err != nil {
			return nil, err
		}
		return func(yield func(generic.AttendanceRecord) bool) {
			for _, rec := range records {
				if !yield(rec) {
					return
				}
			}
		}, nil
	}

	if _, err := e.requireEmployee(ctx, employeeID); err != nil {
		return nil, err
	}
	records, err := e.attendance.Month(ctx, &employeeID, month, now)
	if err != nil {
		return nil, err
	}
	return fillMonth(employeeID, records, month, now), nil
}

// fillMonth pairs each elapsed day of the month with its record, synthesizing
// a placeholder where none exists.
func fillMonth(employeeID generic.EmployeeID, records []generic.AttendanceRecord, month generic.Month, now time.Time) iter.Seq[generic.AttendanceRecord] {
	byDay := make(map[string]generic.AttendanceRecord, len(records))
	for _, rec := range records {
		byDay[rec.Day.String()] = rec
	}

	return func(yield func(generic.AttendanceRecord) bool) {
		for day := range month.Days() {
			if day.AfterInstant(now) {
				return
			}
			rec, ok := byDay[day.String()]
			if !ok {
				rec = generic.Placeholder(employeeID, day)
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// EmployeeDay is one row of the admin daily board.
type EmployeeDay struct {
	Employee generic.Employee
	Record   generic.AttendanceRecord
}

// DailyAttendance returns one row per employee for day, ordered by name.
// Employees without a record get an Absent placeholder.
func (e *Engine) DailyAttendance(ctx context.Context, day generic.Day) ([]EmployeeDay, error) {
	if day.IsZero() {
		return nil, &generic.ValidationError{Field: "date", Message: "is required"}
	}
	employees, err := e.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.store.ListAttendance(ctx, generic.AttendanceFilter{From: day, To: day})
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[generic.EmployeeID]generic.AttendanceRecord, len(records))
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = rec
	}

	rows := make([]EmployeeDay, 0, len(employees))
	for _, emp := range employees {
		rec, ok := byEmployee[emp.ID]
		if !ok {
			rec = generic.Placeholder(emp.ID, day)
		}
		rows = append(rows, EmployeeDay{Employee: emp, Record: rec})
	}
	return rows, nil
}

// CurrentMonthAttendance returns the employee's persisted records for the
// month containing now. No placeholders.
func (e *Engine) CurrentMonthAttendance(ctx context.Context, employeeID generic.EmployeeID, now time.Time) ([]generic.AttendanceRecord, error) {
	month := generic.MonthOf(generic.DayOf(now))
	return e.store.ListAttendance(ctx, generic.AttendanceFilter{
		EmployeeID: &employeeID,
		From:       month.First(),
		To:         month.Last(),
	})
}
