/*
Package attendance is the reconciliation engine for daily attendance and leave.

PURPOSE:
  Applies every state-changing event (check-in, check-out, admin override,
  leave submission and decision) against the attendance and leave ledgers,
  then fans out notifications to the employee.

OPERATIONS:
  CheckIn(employee, now)                   -> AttendanceRecord
  CheckOut(employee, now)                  -> AttendanceRecord
  AdminSetStatus(employee, day, status)    -> AttendanceRecord (+ Attendance notification)
  SubmitLeaveRequest(employee, day, why)   -> LeaveRequest     (+ Leave notification)
  DecideLeaveRequest(id, decision)         -> LeaveRequest     (+ Leave notification,
                                                                 Approved forces Absent)
  MonthlyAttendanceView(employee|all, ...) -> iter.Seq[AttendanceRecord]

PRIMARY vs BEST-EFFORT:
  The ledger mutation is the primary effect. Once it is committed the
  operation succeeds. Notifications and the leave-approval cascade run
  afterwards; their failures are logged and swallowed so the caller never
  sees them.

  Notifications are written to the store synchronously. Sinks (Slack, ...)
  are delivered in the background and drained by Close.

APPROVED LEAVE:
  Approving a leave request sets that day's attendance to Absent, not
  On Leave. This is the business rule as agreed with HR.

TIME:
  Every operation takes "now" from the caller, and days are server-local.

SEE ALSO:
  - ledger.go: Attendance transitions
  - leave.go: Leave transitions
  - view.go: Monthly and daily views
  - summary.go: Monthly totals
*/
package attendance

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/attendance-engine/generic"
)

// Sink receives a copy of every stored notification.
type Sink interface {
	Deliver(ctx context.Context, n generic.Notification) error
}

// Engine coordinates the ledgers. It holds no locks of its own; the store's
// uniqueness constraints are the only concurrency guard.
type Engine struct {
	store      generic.Store
	attendance *AttendanceLedger
	leave      *LeaveLedger

	log         logrus.FieldLogger
	sinks       []Sink
	sinkTimeout time.Duration
	wg          sync.WaitGroup
}

type Option func(*Engine)

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// WithSink mirrors notifications to s.
func WithSink(s Sink) Option {
	return func(e *Engine) { e.sinks = append(e.sinks, s) }
}

func WithSinkTimeout(d time.Duration) Option {
	return func(e *Engine) { e.sinkTimeout = d }
}

func NewEngine(store generic.Store, opts ...Option) *Engine {
	e := &Engine{
		store:       store,
		attendance:  NewAttendanceLedger(store),
		leave:       NewLeaveLedger(store),
		log:         logrus.StandardLogger(),
		sinkTimeout: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("module", "attendance")
	return e
}

// Close waits for in-flight sink deliveries.
func (e *Engine) Close() {
	e.wg.Wait()
}

// =============================================================================
// ATTENDANCE OPERATIONS
// =============================================================================

func (e *Engine) CheckIn(ctx context.Context, employeeID generic.EmployeeID, now time.Time) (*generic.AttendanceRecord, error) {
	return e.attendance.CheckIn(ctx, employeeID, now)
}

func (e *Engine) CheckOut(ctx context.Context, employeeID generic.EmployeeID, now time.Time) (*generic.AttendanceRecord, error) {
	return e.attendance.CheckOut(ctx, employeeID, now)
}

// AdminSetStatus forces the day's status and tells the employee.
// Calling it twice with the same arguments leaves the same single record.
func (e *Engine) AdminSetStatus(ctx context.Context, employeeID generic.EmployeeID, day generic.Day, status generic.AttendanceStatus, now time.Time) (*generic.AttendanceRecord, error) {
	if day.IsZero() {
		return nil, &generic.ValidationError{Field: "date", Message: "is required"}
	}
	if !status.Valid() {
		_, err := generic.ParseAttendanceStatus(string(status))
		return nil, err
	}
	if _, err := e.requireEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	rec, err := e.attendance.SetStatus(ctx, employeeID, day, status, now)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, employeeID, generic.NotifyAttendance, now,
		fmt.Sprintf("Your attendance for %s has been marked as \"%s\" by admin.", day.LongString(), status))
	return rec, nil
}

// =============================================================================
// LEAVE OPERATIONS
// =============================================================================

func (e *Engine) SubmitLeaveRequest(ctx context.Context, employeeID generic.EmployeeID, day generic.Day, reason string, now time.Time) (*generic.LeaveRequest, error) {
	req, err := e.leave.Submit(ctx, employeeID, day, reason, now)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, employeeID, generic.NotifyLeave, now,
		fmt.Sprintf("Your leave request for %s has been submitted and is pending approval.", day.LongString()))
	return req, nil
}

// DecideLeaveRequest records the admin's decision. On approval the leave day
// is marked Absent in the attendance ledger.
func (e *Engine) DecideLeaveRequest(ctx context.Context, id generic.RecordID, decision generic.LeaveStatus, now time.Time) (*generic.LeaveRequest, error) {
	req, err := e.leave.Decide(ctx, id, decision, now)
	if err != nil {
		return nil, err
	}

	e.notify(ctx, req.EmployeeID, generic.NotifyLeave, now,
		fmt.Sprintf("Your leave request for %s has been %s.", req.Day.LongString(), strings.ToLower(string(decision))))

	if decision == generic.LeaveApproved {
		if _, err := e.attendance.SetStatus(ctx, req.EmployeeID, req.Day, generic.StatusAbsent, now); err != nil {
			e.log.WithFields(logrus.Fields{
				"operation":   "DecideLeaveRequest",
				"employee_id": req.EmployeeID,
				"leave_id":    req.ID,
				"day":         req.Day.String(),
			}).WithError(err).Error("failed to mark approved leave day as absent")
		}
	}
	return req, nil
}

// =============================================================================
// READS
// =============================================================================

// Employee returns a directory entry or ErrEmployeeNotFound.
func (e *Engine) Employee(ctx context.Context, employeeID generic.EmployeeID) (*generic.Employee, error) {
	return e.requireEmployee(ctx, employeeID)
}

func (e *Engine) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	return e.store.ListEmployees(ctx)
}

func (e *Engine) ListLeaveRequests(ctx context.Context, filter generic.LeaveFilter) ([]generic.LeaveRequest, error) {
	return e.store.ListLeaveRequests(ctx, filter)
}

// DefaultNotificationLimit is how many notifications an employee sees.
const DefaultNotificationLimit = 5

// RecentNotifications returns the newest notifications first.
func (e *Engine) RecentNotifications(ctx context.Context, employeeID generic.EmployeeID, limit int) ([]generic.Notification, error) {
	if limit <= 0 {
		limit = DefaultNotificationLimit
	}
	return e.store.ListNotifications(ctx, employeeID, limit)
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) requireEmployee(ctx context.Context, employeeID generic.EmployeeID) (*generic.Employee, error) {
	emp, err := e.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load employee: %w", err)
	}
	if emp == nil {
		return nil, generic.ErrEmployeeNotFound
	}
	return emp, nil
}

// notify appends a notification and mirrors it to the sinks. Failures are
// logged and never returned.
func (e *Engine) notify(ctx context.Context, employeeID generic.EmployeeID, typ generic.NotificationType, now time.Time, message string) {
	n := generic.Notification{
		ID:         generic.NewRecordID(),
		EmployeeID: employeeID,
		Message:    message,
		Type:       typ,
		CreatedAt:  now,
	}
	log := e.log.WithFields(logrus.Fields{
		"employee_id":       employeeID,
		"notification_type": typ,
	})

	if err := e.store.AppendNotification(ctx, n); err != nil {
		log.WithError(err).Warn("failed to store notification")
		return
	}

	for _, sink := range e.sinks {
		e.wg.Add(1)
		go func(sink Sink) {
			defer e.wg.Done()
			sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.sinkTimeout)
			defer cancel()
			if err := sink.Deliver(sctx, n); err != nil {
				log.WithError(err).Warn("failed to deliver notification")
			}
		}(sink)
	}
}
