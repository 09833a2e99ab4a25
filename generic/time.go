package generic

import (
	"fmt"
	"iter"
	"strings"
	"time"
)

// =============================================================================
// DAY - Calendar day in server-local time (the reconciliation unit)
// =============================================================================

const DayLayout = "2006-01-02"

// Day is a calendar date. Time always holds local midnight of that date.
type Day struct {
	Time time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{Time: time.Date(year, month, day, 0, 0, 0, 0, time.Local)}
}

// DayOf returns the server-local calendar day containing t.
func DayOf(t time.Time) Day {
	lt := t.In(time.Local)
	return NewDay(lt.Year(), lt.Month(), lt.Day())
}

// ParseDay accepts a plain date or a timestamp. Timestamps carrying an offset
// are converted to server-local time before truncation.
func ParseDay(s string) (Day, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Day{}, &ValidationError{Field: "date", Message: "is required"}
	}
	if t, err := time.ParseInLocation(DayLayout, s, time.Local); err == nil {
		return DayOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return DayOf(t), nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return DayOf(t), nil
		}
	}
	return Day{}, &ValidationError{Field: "date", Message: fmt.Sprintf("unparseable date %q", s)}
}

// Comparison
func (d Day) Before(o Day) bool { return d.Time.Before(o.Time) }
func (d Day) After(o Day) bool  { return d.Time.After(o.Time) }
func (d Day) Equal(o Day) bool  { return d.Time.Equal(o.Time) }

// Arithmetic. AddDays goes through the calendar so DST shifts never leak in.
func (d Day) AddDays(n int) Day {
	t := d.Time.AddDate(0, 0, n)
	return NewDay(t.Year(), t.Month(), t.Day())
}

// Start is local midnight.
func (d Day) Start() time.Time { return d.Time }

// Properties
func (d Day) Year() int          { return d.Time.Year() }
func (d Day) Month() time.Month  { return d.Time.Month() }
func (d Day) Dom() int           { return d.Time.Day() }
func (d Day) IsZero() bool       { return d.Time.IsZero() }
func (d Day) String() string     { return d.Time.Format(DayLayout) }
func (d Day) LongString() string { return d.Time.Format("January 02, 2006") }

// AfterInstant reports whether the day starts strictly after t.
func (d Day) AfterInstant(t time.Time) bool { return d.Start().After(t) }

// =============================================================================
// MONTH - Calendar month used by the monthly views
// =============================================================================

type Month struct {
	Year  int
	Month time.Month
}

// NewMonth validates year and month numbers coming from a query string.
func NewMonth(year, month int) (Month, error) {
	if year < 1 || year > 9999 {
		return Month{}, &ValidationError{Field: "year", Message: fmt.Sprintf("out of range: %d", year)}
	}
	if month < 1 || month > 12 {
		return Month{}, &ValidationError{Field: "month", Message: fmt.Sprintf("out of range: %d", month)}
	}
	return Month{Year: year, Month: time.Month(month)}, nil
}

func MonthOf(d Day) Month { return Month{Year: d.Year(), Month: d.Month()} }

func (m Month) First() Day { return NewDay(m.Year, m.Month, 1) }
func (m Month) Last() Day  { return NewDay(m.Year, m.Month+1, 0) }
func (m Month) Len() int   { return m.Last().Dom() }

func (m Month) String() string { return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month)) }

// Days yields every day of the month in ascending order.
func (m Month) Days() iter.Seq[Day] {
	return func(yield func(Day) bool) {
		first := m.First()
		for i := 0; i < m.Len(); i++ {
			if !yield(first.AddDays(i)) {
				return
			}
		}
	}
}
