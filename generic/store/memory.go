// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu            sync.RWMutex
	employees     map[generic.EmployeeID]generic.Employee
	attendance    map[dayKey]generic.AttendanceRecord
	leaves        map[generic.RecordID]generic.LeaveRequest
	leaveByDay    map[dayKey]generic.RecordID
	notifications map[generic.EmployeeID][]generic.Notification
}

// dayKey mirrors the (employee_id, day) unique indexes of the SQL schema.
type dayKey struct {
	EmployeeID generic.EmployeeID
	Day        string
}

func keyOf(emp generic.EmployeeID, day generic.Day) dayKey {
	return dayKey{EmployeeID: emp, Day: day.String()}
}

func NewMemory() *Memory {
	return &Memory{
		employees:     make(map[generic.EmployeeID]generic.Employee),
		attendance:    make(map[dayKey]generic.AttendanceRecord),
		leaves:        make(map[generic.RecordID]generic.LeaveRequest),
		leaveByDay:    make(map[dayKey]generic.RecordID),
		notifications: make(map[generic.EmployeeID][]generic.Notification),
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp generic.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, other := range m.employees {
		if id == emp.ID {
			continue
		}
		if other.Code == emp.Code {
			return fmt.Errorf("employee code %q: %w", emp.Code, generic.ErrDuplicateRecord)
		}
		if strings.EqualFold(other.Email, emp.Email) {
			return fmt.Errorf("employee email %q: %w", emp.Email, generic.ErrDuplicateRecord)
		}
	}
	if emp.CreatedAt.IsZero() {
		emp.CreatedAt = time.Now().UTC()
	}
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (m *Memory) GetEmployeeByEmail(_ context.Context, email string) (*generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, emp := range m.employees {
		if strings.EqualFold(emp.Email, email) {
			return &emp, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]generic.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func (m *Memory) GetAttendance(_ context.Context, employeeID generic.EmployeeID, day generic.Day) (*generic.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.attendance[keyOf(employeeID, day)]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// CreateAttendance checks and inserts under one lock, so of two racing
// creates for the same day exactly one succeeds.
func (m *Memory) CreateAttendance(_ context.Context, rec generic.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[rec.EmployeeID]; !ok {
		return generic.ErrEmployeeNotFound
	}
	k := keyOf(rec.EmployeeID, rec.Day)
	if _, exists := m.attendance[k]; exists {
		return &generic.DuplicateDayError{EmployeeID: rec.EmployeeID, Day: rec.Day, Table: "attendance"}
	}
	m.attendance[k] = rec
	return nil
}

func (m *Memory) UpdateAttendance(_ context.Context, rec generic.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := keyOf(rec.EmployeeID, rec.Day)
	existing, ok := m.attendance[k]
	if !ok || existing.ID != rec.ID {
		return fmt.Errorf("attendance %s: %w", rec.ID, generic.ErrNotFound)
	}
	rec.CreatedAt = existing.CreatedAt
	m.attendance[k] = rec
	return nil
}

func (m *Memory) ListAttendance(_ context.Context, filter generic.AttendanceFilter) ([]generic.AttendanceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.AttendanceRecord
	for _, rec := range m.attendance {
		if filter.EmployeeID != nil && rec.EmployeeID != *filter.EmployeeID {
			continue
		}
		if !filter.From.IsZero() && rec.Day.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && rec.Day.After(filter.To) {
			continue
		}
		result = append(result, rec)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].Day.Equal(result[j].Day) {
			return result[i].Day.Before(result[j].Day)
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result, nil
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func (m *Memory) CreateLeaveRequest(_ context.Context, req generic.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[req.EmployeeID]; !ok {
		return generic.ErrEmployeeNotFound
	}
	k := keyOf(req.EmployeeID, req.Day)
	if _, exists := m.leaveByDay[k]; exists {
		return &generic.DuplicateDayError{EmployeeID: req.EmployeeID, Day: req.Day, Table: "leave_requests"}
	}
	m.leaves[req.ID] = req
	m.leaveByDay[k] = req.ID
	return nil
}

func (m *Memory) GetLeaveRequest(_ context.Context, id generic.RecordID) (*generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	req, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// UpdateLeaveRequest only changes status and timestamps; the day is fixed.
func (m *Memory) UpdateLeaveRequest(_ context.Context, req generic.LeaveRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.leaves[req.ID]
	if !ok {
		return generic.ErrLeaveRequestNotFound
	}
	existing.Status = req.Status
	existing.Reason = req.Reason
	existing.UpdatedAt = req.UpdatedAt
	m.leaves[req.ID] = existing
	return nil
}

func (m *Memory) ListLeaveRequests(_ context.Context, filter generic.LeaveFilter) ([]generic.LeaveRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.LeaveRequest
	for _, req := range m.leaves {
		if filter.EmployeeID != nil && req.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		result = append(result, req)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func (m *Memory) AppendNotification(_ context.Context, n generic.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.employees[n.EmployeeID]; !ok {
		return generic.ErrEmployeeNotFound
	}
	m.notifications[n.EmployeeID] = append(m.notifications[n.EmployeeID], n)
	return nil
}

func (m *Memory) ListNotifications(_ context.Context, employeeID generic.EmployeeID, limit int) ([]generic.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.notifications[employeeID]
	result := make([]generic.Notification, 0, len(all))
	// Append order is chronological; walk backwards for newest first.
	for i := len(all) - 1; i >= 0; i-- {
		if limit > 0 && len(result) == limit {
			break
		}
		result = append(result, all[i])
	}
	return result, nil
}
