/*
handlers.go - HTTP API handlers for the attendance engine

PURPOSE:
  Exposes the reconciliation engine via a REST API. Handles HTTP
  request/response and JSON serialization, and delegates every rule to
  attendance.Engine.

ENDPOINTS:
  Auth (public):
    POST   /api/auth/login                  Employee login {email, employeeCode}
    POST   /api/auth/admin                  Admin login {username, password}

  Employee (employee token):
    GET    /api/employee/me                 Own directory record
    POST   /api/employee/check-in           Check in for today
    POST   /api/employee/check-out          Check out for today
    POST   /api/employee/leave-request      Submit {leaveDate, reason}
    GET    /api/employee/attendance         Current month, persisted records
    GET    /api/employee/notifications      Latest 5 notifications

  Admin (admin token):
    GET    /api/admin/employees             List employees
    GET    /api/admin/attendance?date=      Daily board, one row per employee
    GET    /api/admin/attendance/monthly    Month view ?year&month&employeeId
    GET    /api/admin/attendance/summary    Month totals ?year&month
    GET    /api/admin/attendance/export     Month workbook (.xlsx)
    POST   /api/admin/attendance/update     Override {employeeId, date, status}
    GET    /api/admin/leave-requests        All leave requests, newest first
    POST   /api/admin/leave-requests/update Decide {leaveId, status}

REQUEST FLOW:
  1. Access gate middleware resolves the principal
  2. Bind and validate the body / query
  3. Call the engine
  4. Serialize response

ERROR HANDLING:
  Errors are classified with generic.KindOf and returned as ErrorResponse:
  - 400: Validation errors, invalid input
  - 401: Missing, invalid or expired token, wrong role
  - 404: Employee or leave request not found
  - 409: Already checked in/out, duplicate leave request
  - 500: Internal errors (logged, details hidden)

SEE ALSO:
  - dto.go: Request/response data structures
  - middleware.go: Access gate and request logging
  - export.go: Workbook export
  - server.go: Router setup
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/attendance"
	"github.com/warp/attendance-engine/auth"
	"github.com/warp/attendance-engine/config"
	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Pinger reports storage health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	engine *attendance.Engine
	gate   *auth.Gate
	health Pinger
	log    logrus.FieldLogger
	now    func() time.Time
}

// NewHandler creates a handler. health may be nil.
func NewHandler(engine *attendance.Engine, gate *auth.Gate, health Pinger, log logrus.FieldLogger) *Handler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Handler{
		engine: engine,
		gate:   gate,
		health: health,
		log:    log.WithField("module", "api"),
		now:    time.Now,
	}
}

// SetClock replaces the time source (tests).
func (h *Handler) SetClock(now func() time.Time) { h.now = now }

// =============================================================================
// AUTH HANDLERS
// =============================================================================

// EmployeeLogin exchanges email + employee code for a token.
func (h *Handler) EmployeeLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, emp, err := h.gate.LoginEmployee(r.Context(), req.Email, req.EmployeeCode)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dto := toEmployeeDTO(*emp)
	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: formatTime(h.now().Add(h.gate.TTL())),
		Employee:  &dto,
	})
}

// AdminLogin checks the shared admin secret.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req AdminLoginRequest
	if err := bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, err := h.gate.LoginAdmin(req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{
		Token:     token,
		ExpiresAt: formatTime(h.now().Add(h.gate.TTL())),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// Me returns the caller's directory record.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	emp, err := h.engine.Employee(r.Context(), PrincipalFrom(r.Context()).EmployeeID())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.CheckIn(r.Context(), PrincipalFrom(r.Context()).EmployeeID(), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec, ""))
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	rec, err := h.engine.CheckOut(r.Context(), PrincipalFrom(r.Context()).EmployeeID(), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec, ""))
}

func (h *Handler) SubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req LeaveSubmitRequest
	if err := bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := generic.ParseDay(req.LeaveDate)
	if err != nil {
		h.fail(w, r, &generic.ValidationError{Field: "leaveDate", Message: "must be a date (YYYY-MM-DD)"})
		return
	}

	leave, err := h.engine.SubmitLeaveRequest(r.Context(), PrincipalFrom(r.Context()).EmployeeID(), day, req.Reason, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveRequestDTO(*leave, nil))
}

// MyAttendance returns the caller's persisted records for the current month.
func (h *Handler) MyAttendance(w http.ResponseWriter, r *http.Request) {
	recs, err := h.engine.CurrentMonthAttendance(r.Context(), PrincipalFrom(r.Context()).EmployeeID(), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]AttendanceDTO, 0, len(recs))
	for _, rec := range recs {
		dtos = append(dtos, toAttendanceDTO(rec, ""))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) MyNotifications(w http.ResponseWriter, r *http.Request) {
	notes, err := h.engine.RecentNotifications(r.Context(), PrincipalFrom(r.Context()).EmployeeID(), attendance.DefaultNotificationLimit)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]NotificationDTO, 0, len(notes))
	for _, n := range notes {
		dtos = append(dtos, toNotificationDTO(n))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.engine.ListEmployees(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, emp := range employees {
		dtos = append(dtos, toEmployeeDTO(emp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// DailyAttendance lists every employee for ?date= (default today).
func (h *Handler) DailyAttendance(w http.ResponseWriter, r *http.Request) {
	day := generic.DayOf(h.now())
	if s := r.URL.Query().Get("date"); s != "" {
		var err error
		if day, err = generic.ParseDay(s); err != nil {
			h.fail(w, r, err)
			return
		}
	}

	rows, err := h.engine.DailyAttendance(r.Context(), day)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]AttendanceDTO, 0, len(rows))
	for _, row := range rows {
		dtos = append(dtos, toAttendanceDTO(row.Record, row.Employee.Name))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MonthlyAttendance returns the month view. employeeId defaults to "all".
func (h *Handler) MonthlyAttendance(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	employeeID := generic.EmployeeID(r.URL.Query().Get("employeeId"))
	if employeeID == "" {
		employeeID = attendance.AllEmployees
	}

	names, err := h.employeeNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows, err := h.engine.MonthlyAttendanceView(r.Context(), employeeID, month, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := []AttendanceDTO{}
	for rec := range rows {
		dtos = append(dtos, toAttendanceDTO(rec, names[rec.EmployeeID].Name))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) MonthlySummary(w http.ResponseWriter, r *http.Request) {
	month, err := h.monthFromQuery(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	summaries, err := h.engine.MonthlySummary(r.Context(), month, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]SummaryDTO, 0, len(summaries))
	for _, s := range summaries {
		dtos = append(dtos, toSummaryDTO(s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req AttendanceUpdateRequest
	if err := bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	day, err := generic.ParseDay(req.Date)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	status, err := generic.ParseAttendanceStatus(req.Status)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	rec, err := h.engine.AdminSetStatus(r.Context(), generic.EmployeeID(req.EmployeeID), day, status, h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toAttendanceDTO(*rec, ""))
}

// ListLeaveRequests returns all requests, newest first, with employee names.
// ?status= and ?employeeId= narrow the list.
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	var filter generic.LeaveFilter
	if s := r.URL.Query().Get("status"); s != "" {
		status := generic.LeaveStatus(s)
		filter.Status = &status
	}
	if s := r.URL.Query().Get("employeeId"); s != "" {
		id := generic.EmployeeID(s)
		filter.EmployeeID = &id
	}

	names, err := h.employeeNames(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	requests, err := h.engine.ListLeaveRequests(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	dtos := make([]LeaveRequestDTO, 0, len(requests))
	for _, req := range requests {
		var emp *generic.Employee
		if e, ok := names[req.EmployeeID]; ok {
			emp = &e
		}
		dtos = append(dtos, toLeaveRequestDTO(req, emp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

func (h *Handler) DecideLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req LeaveDecisionRequest
	if err := bind(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	leave, err := h.engine.DecideLeaveRequest(r.Context(), generic.RecordID(req.LeaveID), generic.LeaveStatus(req.Status), h.now())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveRequestDTO(*leave, nil))
}

// Health reports liveness and, when configured, storage reachability.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			config.LogError(h.log, "api", "Health", nil, err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string, err error) {
	resp := ErrorResponse{Error: message, Code: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// fail maps err onto the HTTP taxonomy. Server faults are logged and their
// details withheld from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !generic.IsClientError(err) {
		config.LogError(h.log, "api", r.Method+" "+r.URL.Path, nil, err)
		writeError(w, http.StatusInternalServerError, "server_fault", "Server error", nil)
		return
	}

	switch generic.KindOf(err) {
	case generic.ErrValidation:
		var vErr *generic.ValidationError
		if errors.As(err, &vErr) && vErr.Field != "" {
			writeError(w, http.StatusBadRequest, "validation_error", err.Error(), errors.New(vErr.Field))
			return
		}
		writeError(w, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case generic.ErrUnauthorized:
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error(), nil)
	case generic.ErrNotFound:
		writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case generic.ErrConflict:
		writeError(w, http.StatusConflict, "conflict", err.Error(), nil)
	}
}

// monthFromQuery reads ?year&month, defaulting to the current month.
func (h *Handler) monthFromQuery(r *http.Request) (generic.Month, error) {
	current := generic.MonthOf(generic.DayOf(h.now()))
	q := r.URL.Query()

	year, month := current.Year, int(current.Month)
	if s := q.Get("year"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return generic.Month{}, &generic.ValidationError{Field: "year", Message: "must be a number"}
		}
		year = v
	}
	if s := q.Get("month"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return generic.Month{}, &generic.ValidationError{Field: "month", Message: "must be a number"}
		}
		month = v
	}
	return generic.NewMonth(year, month)
}

func (h *Handler) employeeNames(ctx context.Context) (map[generic.EmployeeID]generic.Employee, error) {
	employees, err := h.engine.ListEmployees(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[generic.EmployeeID]generic.Employee, len(employees))
	for _, emp := range employees {
		byID[emp.ID] = emp
	}
	return byID, nil
}
