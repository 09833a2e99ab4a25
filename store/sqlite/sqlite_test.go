package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
	"github.com/warp/attendance-engine/generic/store"
	"github.com/warp/attendance-engine/store/sqlite"
)

// Both stores must honor the same contract; the engine tests rely on it.
func forEachStore(t *testing.T, fn func(t *testing.T, s generic.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		s, err := sqlite.New(":memory:")
		require.NoError(t, err)
		defer s.Close()
		fn(t, s)
	})
	t.Run("memory", func(t *testing.T) {
		fn(t, store.NewMemory())
	})
}

var day = generic.NewDay(2025, time.March, 20)

func saveEmployee(t *testing.T, s generic.Store, id string) generic.EmployeeID {
	require.NoError(t, s.SaveEmployee(context.Background(), generic.Employee{
		ID:    generic.EmployeeID(id),
		Code:  "ER " + id,
		Email: id + "@example.com",
		Name:  "Employee " + id,
	}))
	return generic.EmployeeID(id)
}

func attendance(emp generic.EmployeeID, d generic.Day) generic.AttendanceRecord {
	in := d.Start().Add(9 * time.Hour)
	return generic.AttendanceRecord{
		ID:          generic.NewRecordID(),
		EmployeeID:  emp,
		Day:         d,
		CheckInTime: &in,
		Status:      generic.StatusPresent,
		CreatedAt:   in,
		UpdatedAt:   in,
	}
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func TestEmployees_EmailLookupIsCaseInsensitive(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		saveEmployee(t, s, "emp-1")

		emp, err := s.GetEmployeeByEmail(context.Background(), "EMP-1@Example.com")

		require.NoError(t, err)
		require.NotNil(t, emp)
		assert.Equal(t, generic.EmployeeID("emp-1"), emp.ID)
	})
}

func TestEmployees_MissingReturnsNilNil(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		emp, err := s.GetEmployee(context.Background(), "ghost")
		assert.NoError(t, err)
		assert.Nil(t, emp)
	})
}

func TestEmployees_DuplicateEmailOrCodeRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		saveEmployee(t, s, "emp-1")

		err := s.SaveEmployee(ctx, generic.Employee{ID: "emp-2", Code: "ER 2", Email: "Emp-1@example.com", Name: "X"})
		assert.ErrorIs(t, err, generic.ErrDuplicateRecord)

		err = s.SaveEmployee(ctx, generic.Employee{ID: "emp-3", Code: "ER emp-1", Email: "other@example.com", Name: "Y"})
		assert.ErrorIs(t, err, generic.ErrDuplicateRecord)
	})
}

func TestEmployees_SaveUpdatesByID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		saveEmployee(t, s, "emp-1")

		require.NoError(t, s.SaveEmployee(ctx, generic.Employee{
			ID: "emp-1", Code: "ER emp-1", Email: "emp-1@example.com", Name: "Renamed",
		}))

		all, err := s.ListEmployees(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "Renamed", all[0].Name)
	})
}

// =============================================================================
// ATTENDANCE
// =============================================================================

func TestAttendance_SecondCreateForSameDayIsDuplicate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		require.NoError(t, s.CreateAttendance(ctx, attendance(emp, day)))

		err := s.CreateAttendance(ctx, attendance(emp, day))

		var dup *generic.DuplicateDayError
		require.ErrorAs(t, err, &dup)
		assert.Equal(t, emp, dup.EmployeeID)
		assert.Equal(t, "2025-03-20", dup.Day.String())
		assert.ErrorIs(t, err, generic.ErrConflict)
	})
}

func TestAttendance_UnknownEmployeeRejected(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		err := s.CreateAttendance(context.Background(), attendance("ghost", day))
		assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)
	})
}

func TestAttendance_RoundTripsInstantsAndUpdates(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		rec := attendance(emp, day)
		require.NoError(t, s.CreateAttendance(ctx, rec))

		out := rec.CheckInTime.Add(8*time.Hour + 30*time.Minute)
		rec.CheckOutTime = &out
		rec.UpdatedAt = out
		require.NoError(t, s.UpdateAttendance(ctx, rec))

		got, err := s.GetAttendance(ctx, emp, day)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, rec.CheckInTime.Equal(*got.CheckInTime))
		assert.True(t, out.Equal(*got.CheckOutTime))
		assert.Equal(t, 8*time.Hour+30*time.Minute, got.WorkedDuration())
		assert.True(t, day.Equal(got.Day))
	})
}

func TestAttendance_UpdateMissingIsNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		err := s.UpdateAttendance(context.Background(), attendance("emp-1", day))
		assert.ErrorIs(t, err, generic.ErrNotFound)
	})
}

func TestAttendance_ListFiltersByRangeAndSortsByDay(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		a := saveEmployee(t, s, "emp-a")
		b := saveEmployee(t, s, "emp-b")
		for _, rec := range []generic.AttendanceRecord{
			attendance(b, day.AddDays(1)),
			attendance(a, day),
			attendance(a, day.AddDays(2)),
			attendance(b, day.AddDays(-1)),
		} {
			require.NoError(t, s.CreateAttendance(ctx, rec))
		}

		all, err := s.ListAttendance(ctx, generic.AttendanceFilter{From: day, To: day.AddDays(1)})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, a, all[0].EmployeeID)
		assert.Equal(t, b, all[1].EmployeeID)

		onlyA, err := s.ListAttendance(ctx, generic.AttendanceFilter{EmployeeID: &a})
		require.NoError(t, err)
		assert.Len(t, onlyA, 2)
	})
}

// =============================================================================
// LEAVE REQUESTS
// =============================================================================

func TestLeave_SecondRequestForSameDayIsDuplicate(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		now := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
		req := generic.LeaveRequest{
			ID: generic.NewRecordID(), EmployeeID: emp, Day: day, Reason: "Trip",
			Status: generic.LeavePending, CreatedAt: now, UpdatedAt: now,
		}
		require.NoError(t, s.CreateLeaveRequest(ctx, req))

		req.ID = generic.NewRecordID()
		err := s.CreateLeaveRequest(ctx, req)

		assert.ErrorIs(t, err, generic.ErrDuplicateRecord)
	})
}

func TestLeave_ListNewestFirstAndFilterByStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
		for i, status := range []generic.LeaveStatus{generic.LeavePending, generic.LeaveApproved, generic.LeavePending} {
			created := base.Add(time.Duration(i) * time.Hour)
			require.NoError(t, s.CreateLeaveRequest(ctx, generic.LeaveRequest{
				ID: generic.NewRecordID(), EmployeeID: emp, Day: day.AddDays(i), Reason: "r",
				Status: status, CreatedAt: created, UpdatedAt: created,
			}))
		}

		all, err := s.ListLeaveRequests(ctx, generic.LeaveFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, day.AddDays(2).String(), all[0].Day.String())

		pending := generic.LeavePending
		onlyPending, err := s.ListLeaveRequests(ctx, generic.LeaveFilter{Status: &pending})
		require.NoError(t, err)
		assert.Len(t, onlyPending, 2)
	})
}

func TestLeave_UpdateMissingIsNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		err := s.UpdateLeaveRequest(context.Background(), generic.LeaveRequest{ID: "missing"})
		assert.ErrorIs(t, err, generic.ErrLeaveRequestNotFound)
	})
}

// =============================================================================
// NOTIFICATIONS
// =============================================================================

func TestNotifications_NewestFirstWithLimit(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
		for i := range 4 {
			require.NoError(t, s.AppendNotification(ctx, generic.Notification{
				ID: generic.NewRecordID(), EmployeeID: emp, Type: generic.NotifyGeneral,
				Message: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}

		got, err := s.ListNotifications(ctx, emp, 2)

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "d", got[0].Message)
		assert.Equal(t, "c", got[1].Message)
	})
}

func TestNotifications_OrderHoldsWithinTheSameSecond(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		// GIVEN: Two notifications 50ms apart within one second
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		older := time.Date(2025, time.March, 1, 9, 0, 0, 100_000_000, time.UTC)
		newer := time.Date(2025, time.March, 1, 9, 0, 0, 150_000_000, time.UTC)
		for _, n := range []struct {
			msg string
			at  time.Time
		}{{"older", older}, {"newer", newer}} {
			require.NoError(t, s.AppendNotification(ctx, generic.Notification{
				ID: generic.NewRecordID(), EmployeeID: emp, Type: generic.NotifyGeneral,
				Message: n.msg, CreatedAt: n.at,
			}))
		}

		// WHEN: Listing with a limit of one
		got, err := s.ListNotifications(ctx, emp, 1)

		// THEN: The newest one is kept
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "newer", got[0].Message)
		assert.True(t, newer.Equal(got[0].CreatedAt))
	})
}

func TestLeave_NewestFirstWithinTheSameSecond(t *testing.T) {
	forEachStore(t, func(t *testing.T, s generic.Store) {
		ctx := context.Background()
		emp := saveEmployee(t, s, "emp-1")
		// Whole second vs. half second: "…:00Z" must not sort above "…:00.5Z".
		stamps := []time.Time{
			time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC),
			time.Date(2025, time.March, 1, 9, 0, 0, 500_000_000, time.UTC),
		}
		for i, created := range stamps {
			require.NoError(t, s.CreateLeaveRequest(ctx, generic.LeaveRequest{
				ID: generic.NewRecordID(), EmployeeID: emp, Day: day.AddDays(i), Reason: "r",
				Status: generic.LeavePending, CreatedAt: created, UpdatedAt: created,
			}))
		}

		got, err := s.ListLeaveRequests(ctx, generic.LeaveFilter{})

		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, day.AddDays(1).String(), got[0].Day.String())
		assert.True(t, stamps[1].Equal(got[0].CreatedAt))
	})
}

// =============================================================================
// SQLITE SPECIFIC
// =============================================================================

func TestSQLite_FileDatabaseSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attendance.db")
	ctx := context.Background()

	s, err := sqlite.New(path)
	require.NoError(t, err)
	emp := saveEmployee(t, s, "emp-1")
	require.NoError(t, s.CreateAttendance(ctx, attendance(emp, day)))
	require.NoError(t, s.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	rec, err := reopened.GetAttendance(ctx, emp, day)
	require.NoError(t, err)
	assert.NotNil(t, rec)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestSQLite_ResetClearsEverything(t *testing.T) {
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()
	emp := saveEmployee(t, s, "emp-1")
	require.NoError(t, s.CreateAttendance(ctx, attendance(emp, day)))

	require.NoError(t, s.Reset(ctx))

	all, err := s.ListEmployees(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
