/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names are
  camelCase because the browser UI depends on them (employeeId, leaveDate,
  leaveId, ...).

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Wrappers

VALIDATION:
  Request types carry `validate` tags checked by binding.go before the
  handler runs. Domain rules (status enums, duplicate days) are checked by
  the engine.

SEE ALSO:
  - handlers.go: Uses these types
  - binding.go: Decoding and validation
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// REQUESTS
// =============================================================================

type LoginRequest struct {
	Email        string `json:"email" validate:"required,email"`
	EmployeeCode string `json:"employeeCode" validate:"required"`
}

type AdminLoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LeaveSubmitRequest struct {
	LeaveDate string `json:"leaveDate" validate:"required"`
	Reason    string `json:"reason" validate:"required,max=1000"`
}

type AttendanceUpdateRequest struct {
	EmployeeID string `json:"employeeId" validate:"required"`
	Date       string `json:"date" validate:"required"`
	Status     string `json:"status" validate:"required"`
}

type LeaveDecisionRequest struct {
	LeaveID string `json:"leaveId" validate:"required"`
	Status  string `json:"status" validate:"required,oneof=Approved Rejected"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type TokenResponse struct {
	Token     string       `json:"token"`
	ExpiresAt string       `json:"expiresAt"`
	Employee  *EmployeeDTO `json:"employee,omitempty"`
}

type EmployeeDTO struct {
	ID           string `json:"id"`
	EmployeeCode string `json:"employeeCode"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	Position     string `json:"position"`
	CreatedAt    string `json:"createdAt,omitempty"`
}

// AttendanceDTO is a persisted record or, when Placeholder is true, a
// synthesized Absent row with no id.
type AttendanceDTO struct {
	ID           string  `json:"id,omitempty"`
	EmployeeID   string  `json:"employeeId"`
	EmployeeName string  `json:"employeeName,omitempty"`
	Date         string  `json:"date"`
	CheckInTime  *string `json:"checkInTime"`
	CheckOutTime *string `json:"checkOutTime"`
	Status       string  `json:"status"`
	Placeholder  bool    `json:"placeholder"`
}

type LeaveRequestDTO struct {
	ID           string `json:"id"`
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName,omitempty"`
	EmployeeCode string `json:"employeeCode,omitempty"`
	LeaveDate    string `json:"leaveDate"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
	CreatedAt    string `json:"createdAt"`
	UpdatedAt    string `json:"updatedAt"`
}

type NotificationDTO struct {
	ID        string `json:"id"`
	Message   string `json:"message"`
	Type      string `json:"type"`
	Read      bool   `json:"read"`
	CreatedAt string `json:"createdAt"`
}

type SummaryDTO struct {
	EmployeeID   string          `json:"employeeId"`
	EmployeeName string          `json:"employeeName"`
	Present      int             `json:"present"`
	Absent       int             `json:"absent"`
	HalfDay      int             `json:"halfDay"`
	OnLeave      int             `json:"onLeave"`
	Days         int             `json:"days"`
	WorkedHours  decimal.Decimal `json:"workedHours"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func toEmployeeDTO(emp generic.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:           string(emp.ID),
		EmployeeCode: emp.Code,
		Email:        emp.Email,
		Name:         emp.Name,
		Position:     emp.Position,
	}
	if !emp.CreatedAt.IsZero() {
		dto.CreatedAt = formatTime(emp.CreatedAt)
	}
	return dto
}

func toAttendanceDTO(rec generic.AttendanceRecord, employeeName string) AttendanceDTO {
	return AttendanceDTO{
		ID:           string(rec.ID),
		EmployeeID:   string(rec.EmployeeID),
		EmployeeName: employeeName,
		Date:         rec.Day.String(),
		CheckInTime:  formatTimePtr(rec.CheckInTime),
		CheckOutTime: formatTimePtr(rec.CheckOutTime),
		Status:       string(rec.Status),
		Placeholder:  rec.IsPlaceholder(),
	}
}

func toLeaveRequestDTO(req generic.LeaveRequest, emp *generic.Employee) LeaveRequestDTO {
	dto := LeaveRequestDTO{
		ID:         string(req.ID),
		EmployeeID: string(req.EmployeeID),
		LeaveDate:  req.Day.String(),
		Reason:     req.Reason,
		Status:     string(req.Status),
		CreatedAt:  formatTime(req.CreatedAt),
		UpdatedAt:  formatTime(req.UpdatedAt),
	}
	if emp != nil {
		dto.EmployeeName = emp.Name
		dto.EmployeeCode = emp.Code
	}
	return dto
}

func toNotificationDTO(n generic.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        string(n.ID),
		Message:   n.Message,
		Type:      string(n.Type),
		Read:      n.Read,
		CreatedAt: formatTime(n.CreatedAt),
	}
}

func toSummaryDTO(s attendance.EmployeeSummary) SummaryDTO {
	return SummaryDTO{
		EmployeeID:   string(s.Employee.ID),
		EmployeeName: s.Employee.Name,
		Present:      s.Present,
		Absent:       s.Absent,
		HalfDay:      s.HalfDay,
		OnLeave:      s.OnLeave,
		Days:         s.Days(),
		WorkedHours:  s.WorkedHours,
	}
}
