package attendance

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// LEAVE LEDGER - One request per (employee, day), decided by an admin
// =============================================================================

// LeaveLedger applies the leave request rules. A second request for the same
// day is rejected whatever the first one's status is.
type LeaveLedger struct {
	store generic.LeaveStore
}

func NewLeaveLedger(store generic.LeaveStore) *LeaveLedger {
	return &LeaveLedger{store: store}
}

// Submit creates a Pending request. The unique index on (employee, day) is
// the duplicate check.
func (l *LeaveLedger) Submit(ctx context.Context, employeeID generic.EmployeeID, day generic.Day, reason string, now time.Time) (*generic.LeaveRequest, error) {
	if day.IsZero() {
		return nil, &generic.ValidationError{Field: "leaveDate", Message: "is required"}
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, &generic.ValidationError{Field: "reason", Message: "is required"}
	}

	req := generic.LeaveRequest{
		ID:         generic.NewRecordID(),
		EmployeeID: employeeID,
		Day:        day,
		Reason:     reason,
		Status:     generic.LeavePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := l.store.CreateLeaveRequest(ctx, req); err != nil {
		if errors.Is(err, generic.ErrDuplicateRecord) {
			return nil, generic.ErrDuplicateLeaveRequest
		}
		return nil, err
	}
	return &req, nil
}

// Decide sets the request's status to the decision. Already decided requests
// may be decided again; the last decision wins.
func (l *LeaveLedger) Decide(ctx context.Context, id generic.RecordID, decision generic.LeaveStatus, now time.Time) (*generic.LeaveRequest, error) {
	if _, err := generic.ParseLeaveDecision(string(decision)); err != nil {
		return nil, err
	}

	req, err := l.store.GetLeaveRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, generic.ErrLeaveRequestNotFound
	}

	req.Status = decision
	req.UpdatedAt = now
	if err := l.store.UpdateLeaveRequest(ctx, *req); err != nil {
		return nil, err
	}
	return req, nil
}
