/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.Store (employees, attendance, leave requests and
  notifications) using SQLite. The same schema ports to PostgreSQL with
  minor dialect changes.

KEY TABLES:
  employees:      Identity directory (unique code, unique email)
  attendance:     One row per (employee_id, day)
  leave_requests: One row per (employee_id, day), whatever its status
  notifications:  Append-only messages

INDEXES:
  The two day-uniqueness indexes are the system's only concurrency guard:
  - idx_attendance_employee_day: Rejects a second check-in for a day
  - idx_leave_employee_day:      Rejects a second leave request for a day
  A violation is returned as *generic.DuplicateDayError.

DATE ENCODING:
  day columns hold "2006-01-02" (server-local calendar date). Instants
  (check-in/out, created_at) hold UTC with nine fixed fractional digits
  (instantLayout) so string order is time order.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, and a single connection so that
  ":memory:" databases are shared by every caller.

USAGE:
  store, err := sqlite.New("./data/attendance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/warp/attendance-engine/generic"
)

var _ generic.Store = (*Store)(nil)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable (used by /healthz).
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		code TEXT NOT NULL,
		email TEXT NOT NULL,
		name TEXT NOT NULL,
		position TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_code ON employees(code);
	CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email ON employees(email COLLATE NOCASE);

	CREATE TABLE IF NOT EXISTS attendance (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		day TEXT NOT NULL,
		check_in_time TEXT,
		check_out_time TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one attendance record per employee per day
	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_day
		ON attendance(employee_id, day);

	-- Monthly views scan by day across all employees
	CREATE INDEX IF NOT EXISTS idx_attendance_day ON attendance(day);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		day TEXT NOT NULL,
		reason TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'Pending',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: one leave request per employee per day, regardless of status
	CREATE UNIQUE INDEX IF NOT EXISTS idx_leave_employee_day
		ON leave_requests(employee_id, day);

	CREATE INDEX IF NOT EXISTS idx_leave_status ON leave_requests(status);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		message TEXT NOT NULL,
		type TEXT NOT NULL,
		read BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_notifications_employee_created
		ON notifications(employee_id, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee by ID.
func (s *Store) SaveEmployee(ctx context.Context, emp generic.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, code, email, name, position, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			email = excluded.email,
			name = excluded.name,
			position = excluded.position
	`

	createdAt := emp.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Code, emp.Email, emp.Name, emp.Position, formatInstant(createdAt),
	)
	if isUniqueConstraintError(err) {
		return fmt.Errorf("employee %s: %w", emp.ID, generic.ErrDuplicateRecord)
	}
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployee(ctx, "SELECT id, code, email, name, position, created_at FROM employees WHERE id = ?", id)
}

// GetEmployeeByEmail matches case-insensitively.
func (s *Store) GetEmployeeByEmail(ctx context.Context, email string) (*generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEmployee(ctx,
		"SELECT id, code, email, name, position, created_at FROM employees WHERE email = ? COLLATE NOCASE", email)
}

func (s *Store) queryEmployee(ctx context.Context, query string, arg any) (*generic.Employee, error) {
	var emp generic.Employee
	var createdAt string

	err := s.db.QueryRowContext(ctx, query, arg).
		Scan(&emp.ID, &emp.Code, &emp.Email, &emp.Name, &emp.Position, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	emp.CreatedAt = parseInstant(createdAt)
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]generic.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, code, email, name, position, created_at FROM employees ORDER BY name, id",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []generic.Employee
	for rows.Next() {
		var emp generic.Employee
		var createdAt string
		if err := rows.Scan(&emp.ID, &emp.Code, &emp.Email, &emp.Name, &emp.Position, &createdAt); err != nil {
			return nil, err
		}
		emp.CreatedAt = parseInstant(createdAt)
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// =============================================================================
// ATTENDANCE STORE
// =============================================================================

const attendanceColumns = `id, employee_id, day, check_in_time, check_out_time, status, created_at, updated_at`

// GetAttendance returns the record for (employee, day), or nil.
func (s *Store) GetAttendance(ctx context.Context, employeeID generic.EmployeeID, day generic.Day) (*generic.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs, err := s.queryAttendance(ctx,
		"SELECT "+attendanceColumns+" FROM attendance WHERE employee_id = ? AND day = ?",
		employeeID, day.String())
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// CreateAttendance inserts a new record. The unique index decides races.
func (s *Store) CreateAttendance(ctx context.Context, rec generic.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.EmployeeID, rec.Day.String(),
		nullInstant(rec.CheckInTime), nullInstant(rec.CheckOutTime),
		rec.Status, formatInstant(rec.CreatedAt), formatInstant(rec.UpdatedAt),
	)
	if err != nil {
		return mapConstraintError(err, rec.EmployeeID, rec.Day, "attendance")
	}
	return nil
}

// UpdateAttendance rewrites times and status of the record with rec.ID.
func (s *Store) UpdateAttendance(ctx context.Context, rec generic.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		UPDATE attendance
		SET check_in_time = ?, check_out_time = ?, status = ?, updated_at = ?
		WHERE id = ?
	`

	res, err := s.db.ExecContext(ctx, query,
		nullInstant(rec.CheckInTime), nullInstant(rec.CheckOutTime),
		rec.Status, formatInstant(rec.UpdatedAt), rec.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("attendance %s: %w", rec.ID, generic.ErrNotFound)
	}
	return nil
}

// ListAttendance returns records in the filter's day range.
func (s *Store) ListAttendance(ctx context.Context, filter generic.AttendanceFilter) ([]generic.AttendanceRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if !filter.From.IsZero() {
		where = append(where, "day >= ?")
		args = append(args, filter.From.String())
	}
	if !filter.To.IsZero() {
		where = append(where, "day <= ?")
		args = append(args, filter.To.String())
	}

	query := "SELECT " + attendanceColumns + " FROM attendance"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY day ASC, employee_id ASC"

	return s.queryAttendance(ctx, query, args...)
}

func (s *Store) queryAttendance(ctx context.Context, query string, args ...any) ([]generic.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var records []generic.AttendanceRecord
	for rows.Next() {
		var (
			rec                generic.AttendanceRecord
			day                string
			checkIn, checkOut  sql.NullString
			createdAt, updated string
		)
		if err := rows.Scan(&rec.ID, &rec.EmployeeID, &day, &checkIn, &checkOut,
			&rec.Status, &createdAt, &updated); err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		if rec.Day, err = generic.ParseDay(day); err != nil {
			return nil, fmt.Errorf("corrupt day %q on attendance %s: %w", day, rec.ID, err)
		}
		rec.CheckInTime = parseNullInstant(checkIn)
		rec.CheckOutTime = parseNullInstant(checkOut)
		rec.CreatedAt = parseInstant(createdAt)
		rec.UpdatedAt = parseInstant(updated)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const leaveColumns = `id, employee_id, day, reason, status, created_at, updated_at`

// CreateLeaveRequest inserts a new request. The unique index decides races.
func (s *Store) CreateLeaveRequest(ctx context.Context, req generic.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO leave_requests ("+leaveColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		req.ID, req.EmployeeID, req.Day.String(), req.Reason, req.Status,
		formatInstant(req.CreatedAt), formatInstant(req.UpdatedAt),
	)
	if err != nil {
		return mapConstraintError(err, req.EmployeeID, req.Day, "leave_requests")
	}
	return nil
}

// GetLeaveRequest retrieves a request by ID.
func (s *Store) GetLeaveRequest(ctx context.Context, id generic.RecordID) (*generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reqs, err := s.queryLeaveRequests(ctx, "SELECT "+leaveColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// UpdateLeaveRequest changes the status of an existing request.
func (s *Store) UpdateLeaveRequest(ctx context.Context, req generic.LeaveRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE leave_requests SET status = ?, reason = ?, updated_at = ? WHERE id = ?",
		req.Status, req.Reason, formatInstant(req.UpdatedAt), req.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave request: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return generic.ErrLeaveRequestNotFound
	}
	return nil
}

// ListLeaveRequests returns matching requests, newest first.
func (s *Store) ListLeaveRequests(ctx context.Context, filter generic.LeaveFilter) ([]generic.LeaveRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var where []string
	var args []any
	if filter.EmployeeID != nil {
		where = append(where, "employee_id = ?")
		args = append(args, *filter.EmployeeID)
	}
	if filter.Status != nil {
		where = append(where, "status = ?")
		args = append(args, *filter.Status)
	}

	query := "SELECT " + leaveColumns + " FROM leave_requests"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	return s.queryLeaveRequests(ctx, query, args...)
}

func (s *Store) queryLeaveRequests(ctx context.Context, query string, args ...any) ([]generic.LeaveRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []generic.LeaveRequest
	for rows.Next() {
		var r generic.LeaveRequest
		var day, createdAt, updatedAt string
		if err := rows.Scan(&r.ID, &r.EmployeeID, &day, &r.Reason, &r.Status, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		if r.Day, err = generic.ParseDay(day); err != nil {
			return nil, fmt.Errorf("corrupt day %q on leave request %s: %w", day, r.ID, err)
		}
		r.CreatedAt = parseInstant(createdAt)
		r.UpdatedAt = parseInstant(updatedAt)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// =============================================================================
// NOTIFICATION STORE (append-only)
// =============================================================================

// AppendNotification inserts a notification. There is no update path.
func (s *Store) AppendNotification(ctx context.Context, n generic.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, employee_id, message, type, read, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		n.ID, n.EmployeeID, n.Message, n.Type, n.Read, formatInstant(n.CreatedAt),
	)
	if isForeignKeyError(err) {
		return generic.ErrEmployeeNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to append notification: %w", err)
	}
	return nil
}

// ListNotifications returns an employee's notifications, newest first.
func (s *Store) ListNotifications(ctx context.Context, employeeID generic.EmployeeID, limit int) ([]generic.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, employee_id, message, type, read, created_at
		FROM notifications
		WHERE employee_id = ?
		ORDER BY created_at DESC, rowid DESC
	`
	args := []any{employeeID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []generic.Notification
	for rows.Next() {
		var n generic.Notification
		var createdAt string
		if err := rows.Scan(&n.ID, &n.EmployeeID, &n.Message, &n.Type, &n.Read, &createdAt); err != nil {
			return nil, err
		}
		n.CreatedAt = parseInstant(createdAt)
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"notifications", "leave_requests", "attendance", "employees"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

// instantLayout is fixed width. RFC3339Nano trims trailing zeros, which
// breaks lexical ordering within a second.
const instantLayout = "2006-01-02T15:04:05.000000000Z"

func formatInstant(t time.Time) string {
	return t.UTC().Format(instantLayout)
}

func parseInstant(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullInstant(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatInstant(*t), Valid: true}
}

func parseNullInstant(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseInstant(ns.String)
	return &t
}

// mapConstraintError turns driver constraint failures into domain errors.
func mapConstraintError(err error, emp generic.EmployeeID, day generic.Day, table string) error {
	switch {
	case isUniqueConstraintError(err):
		return &generic.DuplicateDayError{EmployeeID: emp, Day: day, Table: table}
	case isForeignKeyError(err):
		return generic.ErrEmployeeNotFound
	}
	return fmt.Errorf("failed to insert into %s: %w", table, err)
}

func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyError(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
