package api

import (
	"fmt"
	"iter"
	"net/http"
	"time"

	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
	"github.com/xuri/excelize/v2"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	attendanceSheet = "Attendance"
	summarySheet    = "Summary"
)

var (
	attendanceHeader = []any{"Date", "Employee Code", "Employee", "Status", "Check In", "Check Out", "Hours"}
	summaryHeader    = []any{"Employee Code", "Employee", "Present", "Absent", "Half-Day", "On Leave", "Days", "Worked Hours"}
)

// ExportMonthlyWorkbook streams the month view and summary as an .xlsx file.
// Query parameters match MonthlyAttendance.
func (h *Handler) ExportMonthlyWorkbook(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	employeeID := generic.EmployeeID(r.URL.Query().Get("employeeId"))
	if employeeID == "" {
		employeeID = attendance.AllEmployees
	}

	now := h.now()
	directory, err := h.employeeNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.engine.MonthlyAttendanceView(r.Context(), employeeID, month, now)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summaries, err := h.engine.MonthlySummary(r.Context(), month, now)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	f, err := buildMonthlyWorkbook(rows, directory, summaries)
	if err != nil {
		h.fail(w, r, fmt.Errorf("build workbook: %w", err))
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="attendance-%s.xlsx"`, month))
	if err := f.Write(w); err != nil {
		h.log.WithError(err).WithField("month", month.String()).Error("write workbook")
	}
}

func buildMonthlyWorkbook(
	rows iter.Seq[generic.AttendanceRecord],
	directory map[generic.EmployeeID]generic.Employee,
	summaries []attendance.EmployeeSummary,
) (_ *excelize.File, err error) {
	f := excelize.NewFile()
	defer func() {
		if err != nil {
			f.Close()
		}
	}()

	if err = f.SetSheetName("Sheet1", attendanceSheet); err != nil {
		return nil, err
	}
	if _, err = f.NewSheet(summarySheet); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Attendance sheet
	if err = writeRow(f, attendanceSheet, 1, attendanceHeader); err != nil {
		return nil, err
	}
	rowNo := 2
	for rec := range rows {
		emp := directory[rec.EmployeeID]
		hours := ""
		if d := rec.WorkedDuration(); d > 0 {
			hours = fmt.Sprintf("%.2f", d.Hours())
		}
		if err = writeRow(f, attendanceSheet, rowNo, []any{
			rec.Day.String(),
			emp.Code,
			emp.Name,
			string(rec.Status),
			clock(rec.CheckInTime),
			clock(rec.CheckOutTime),
			hours,
		}); err != nil {
			return nil, err
		}
		rowNo++
	}

	// Summary sheet
	if err = writeRow(f, summarySheet, 1, summaryHeader); err != nil {
		return nil, err
	}
	for i, s := range summaries {
		if err = writeRow(f, summarySheet, i+2, []any{
			s.Employee.Code,
			s.Employee.Name,
			s.Present,
			s.Absent,
			s.HalfDay,
			s.OnLeave,
			s.Days(),
			s.WorkedHours.InexactFloat64(),
		}); err != nil {
			return nil, err
		}
	}

	for _, sheet := range []struct {
		name string
		cols int
	}{{attendanceSheet, len(attendanceHeader)}, {summarySheet, len(summaryHeader)}} {
		last, _ := excelize.ColumnNumberToName(sheet.cols)
		if err = f.SetCellStyle(sheet.name, "A1", last+"1", bold); err != nil {
			return nil, err
		}
		if err = f.SetColWidth(sheet.name, "A", last, 16); err != nil {
			return nil, err
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

func writeRow(f *excelize.File, sheet string, rowNo int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNo)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}

// clock renders a stored instant as local HH:MM, or "" when unset.
func clock(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Local().Format("15:04")
}
