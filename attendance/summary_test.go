package attendance_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/attendance-engine/generic"
)

func TestMonthlySummary_CountsAndWorkedHours(t *testing.T) {
	// GIVEN: Alice worked 8h30 on the 3rd and 4h15 on the 4th, Half-Day on the 5th
	// WHEN: Summarizing March at March 5, 20:00
	// THEN: 2 Present, 1 Half-Day, 2 Absent (gaps), 12.75 hours

	s := backends[0].open(t)
	e, _ := newTestEngine(t, s)
	ctx := context.Background()
	alice := seedEmployee(t, s, "emp-1", "Alice")
	seedEmployee(t, s, "emp-2", "Bob")

	_, err := e.CheckIn(ctx, alice, at(3, 9, 0))
	require.NoError(t, err)
	_, err = e.CheckOut(ctx, alice, at(3, 17, 30))
	require.NoError(t, err)
	_, err = e.CheckIn(ctx, alice, at(4, 9, 0))
	require.NoError(t, err)
	_, err = e.CheckOut(ctx, alice, at(4, 13, 15))
	require.NoError(t, err)
	_, err = e.AdminSetStatus(ctx, alice, generic.NewDay(2025, time.March, 5), generic.StatusHalfDay, at(5, 12, 0))
	require.NoError(t, err)

	summaries, err := e.MonthlySummary(ctx, march2025, at(5, 20, 0))
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	a := summaries[0]
	assert.Equal(t, "Alice", a.Employee.Name)
	assert.Equal(t, 2, a.Present)
	assert.Equal(t, 1, a.HalfDay)
	assert.Equal(t, 2, a.Absent)
	assert.Equal(t, 0, a.OnLeave)
	assert.Equal(t, 5, a.Days())
	assert.True(t, decimal.RequireFromString("12.75").Equal(a.WorkedHours), "got %s", a.WorkedHours)

	b := summaries[1]
	assert.Equal(t, 5, b.Absent)
	assert.True(t, b.WorkedHours.IsZero())
}

func TestMonthlySummary_OpenCheckInContributesNoHours(t *testing.T) {
	s := backends[0].open(t)
	e, _ := newTestEngine(t, s)
	ctx := context.Background()
	emp := seedEmployee(t, s, "emp-1", "Alice")

	_, err := e.CheckIn(ctx, emp, at(3, 9, 0))
	require.NoError(t, err)

	summaries, err := e.MonthlySummary(ctx, march2025, at(3, 18, 0))
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].Present)
	assert.True(t, summaries[0].WorkedHours.IsZero())
}
