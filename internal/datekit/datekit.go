package datekit

import (
	"fmt"
	"time"
)

// KeyLayout is the canonical date key form. Lexicographic order on keys is
// chronological order.
const KeyLayout = "2006-01-02"

// Date is a calendar day with no time-of-day component. The zero value is
// not a valid day and doubles as the grid placeholder slot.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// FromTime truncates t to its calendar day in t's own location. Any
// time-of-day component is discarded before key derivation, so a key never
// depends on a timezone-sensitive serialization.
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar day in loc (nil means time.Local).
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.Local
	}
	return FromTime(time.Now().In(loc))
}

// Time converts d back to midnight in loc (nil means time.Local).
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// IsZero reports whether d is the placeholder value.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Key returns the canonical "YYYY-MM-DD" key for d.
func (d Date) Key() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// ParseKey parses a canonical date key back into a Date. Keys that survive
// time.Parse but denormalize (e.g. "2024-02-30") are rejected.
func ParseKey(key string) (Date, error) {
	t, err := time.Parse(KeyLayout, key)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date key %q: %w", key, err)
	}
	d := FromTime(t)
	if d.Key() != key {
		return Date{}, fmt.Errorf("invalid date key %q", key)
	}
	return d, nil
}

// Weekday returns d's weekday (Sunday = 0).
func (d Date) Weekday() time.Weekday {
	return d.Time(time.UTC).Weekday()
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: DaysIn(d.Year, d.Month)}
}

// AddMonths returns the first day of the month n months away from d's
// month. n may be negative.
func AddMonths(d Date, n int) Date {
	t := time.Date(d.Year, d.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return FromTime(t)
}

// AddDays returns the day n days away from d, crossing month and year
// boundaries as needed.
func AddDays(d Date, n int) Date {
	return FromTime(d.Time(time.UTC).AddDate(0, 0, n))
}

// DaysIn returns the number of days in the given month.
func DaysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Week is one grid row of seven slots; placeholder slots are zero Dates.
type Week [7]Date

// MonthGrid builds the week-major matrix for the month containing d.
// Leading slots before the first weekday (Sunday-based) and trailing slots
// after the last day are placeholders; the result is always whole weeks.
func MonthGrid(d Date) []Week {
	first := StartOfMonth(d)
	offset := int(first.Weekday())
	days := DaysIn(d.Year, d.Month)

	rows := (offset + days + 6) / 7
	grid := make([]Week, rows)
	for i := 0; i < days; i++ {
		cell := offset + i
		grid[cell/7][cell%7] = Date{Year: d.Year, Month: d.Month, Day: i + 1}
	}
	return grid
}
