package attendance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/generic"
)

// EmployeeSummary totals one employee's month. Counts are taken over the
// gap-filled view, so a day without a record counts as Absent.
type EmployeeSummary struct {
	Employee    generic.Employee
	Present     int
	Absent      int
	HalfDay     int
	OnLeave     int
	WorkedHours decimal.Decimal
}

// Days is the number of elapsed days counted.
func (s EmployeeSummary) Days() int {
	return s.Present + s.Absent + s.HalfDay + s.OnLeave
}

var secondsPerHour = decimal.NewFromInt(3600)

// MonthlySummary returns a summary per employee, ordered by name. Worked
// hours sum check-out minus check-in over complete pairs, rounded to 2 dp.
func (e *Engine) MonthlySummary(ctx context.Context, month generic.Month, now time.Time) ([]EmployeeSummary, error) {
	employees, err := e.store.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.attendance.Month(ctx, nil, month, now)
	if err != nil {
		return nil, err
	}

	byEmployee := make(map[generic.EmployeeID][]generic.AttendanceRecord)
	for _, rec := range records {
		byEmployee[rec.EmployeeID] = append(byEmployee[rec.EmployeeID], rec)
	}

	summaries := make([]EmployeeSummary, 0, len(employees))
	for _, emp := range employees {
		s := EmployeeSummary{Employee: emp, WorkedHours: decimal.Zero}
		for rec := range fillMonth(emp.ID, byEmployee[emp.ID], month, now) {
			switch rec.Status {
			case generic.StatusPresent:
				s.Present++
			case generic.StatusHalfDay:
				s.HalfDay++
			case generic.StatusOnLeave:
				s.OnLeave++
			default:
				s.Absent++
			}
			if worked := rec.WorkedDuration(); worked > 0 {
				seconds := decimal.NewFromInt(int64(worked / time.Second))
				s.WorkedHours = s.WorkedHours.Add(seconds.Div(secondsPerHour))
			}
		}
		s.WorkedHours = s.WorkedHours.Round(2)
		summaries = append(summaries, s)
	}
	return summaries, nil
}
