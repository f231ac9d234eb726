package datekit

import (
	"testing"
	"time"
)

func TestKeyRoundTrip(t *testing.T) {
	dates := []Date{
		{2024, time.January, 1},
		{2024, time.February, 29},
		{1999, time.December, 31},
		{2024, time.April, 10},
	}
	for _, d := range dates {
		key := d.Key()
		back, err := ParseKey(key)
		if err != nil {
			t.Fatalf("ParseKey(%q): %v", key, err)
		}
		if back != d {
			t.Errorf("round trip %v -> %q -> %v", d, key, back)
		}
	}
}

func TestKeyOrderingIsChronological(t *testing.T) {
	a := Date{2024, time.September, 30}
	b := Date{2024, time.October, 1}
	if !(a.Key() < b.Key()) {
		t.Errorf("key order broken: %q vs %q", a.Key(), b.Key())
	}
}

func TestParseKeyRejectsInvalid(t *testing.T) {
	for _, key := range []string{"", "2024-4-1", "2024-02-30", "20240410", "not-a-date"} {
		if _, err := ParseKey(key); err == nil {
			t.Errorf("ParseKey(%q) accepted invalid key", key)
		}
	}
}

func TestFromTimeTruncatesTimeOfDay(t *testing.T) {
	tm := time.Date(2024, time.April, 10, 23, 59, 59, 0, time.Local)
	got := FromTime(tm)
	want := Date{2024, time.April, 10}
	if got != want {
		t.Errorf("FromTime = %v, want %v", got, want)
	}
	if got.Key() != "2024-04-10" {
		t.Errorf("Key = %q", got.Key())
	}
}

func TestAddMonths(t *testing.T) {
	tests := []struct {
		start Date
		n     int
		want  Date
	}{
		{Date{2024, time.January, 31}, 1, Date{2024, time.February, 1}},
		{Date{2024, time.January, 15}, -1, Date{2023, time.December, 1}},
		{Date{2024, time.December, 5}, 1, Date{2025, time.January, 1}},
		{Date{2024, time.June, 1}, 0, Date{2024, time.June, 1}},
		{Date{2024, time.March, 10}, -14, Date{2023, time.January, 1}},
	}
	for _, tt := range tests {
		if got := AddMonths(tt.start, tt.n); got != tt.want {
			t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestAddDaysCrossesBoundaries(t *testing.T) {
	tests := []struct {
		start Date
		n     int
		want  Date
	}{
		{Date{2024, time.April, 30}, 1, Date{2024, time.May, 1}},
		{Date{2024, time.March, 1}, -1, Date{2024, time.February, 29}},
		{Date{2024, time.December, 31}, 1, Date{2025, time.January, 1}},
		{Date{2024, time.April, 10}, 0, Date{2024, time.April, 10}},
	}
	for _, tt := range tests {
		if got := AddDays(tt.start, tt.n); got != tt.want {
			t.Errorf("AddDays(%v, %d) = %v, want %v", tt.start, tt.n, got, tt.want)
		}
	}
}

func TestStartEndOfMonth(t *testing.T) {
	d := Date{2024, time.February, 14}
	if got := StartOfMonth(d); got != (Date{2024, time.February, 1}) {
		t.Errorf("StartOfMonth = %v", got)
	}
	if got := EndOfMonth(d); got != (Date{2024, time.February, 29}) {
		t.Errorf("EndOfMonth = %v", got)
	}
}

// April 2024 has 30 days and the 1st is a Monday: one leading placeholder,
// five rows, last row padded with trailing placeholders.
func TestMonthGridApril2024(t *testing.T) {
	grid := MonthGrid(Date{2024, time.April, 15})

	if len(grid) != 5 {
		t.Fatalf("got %d weeks, want 5", len(grid))
	}
	if !grid[0][0].IsZero() {
		t.Errorf("slot[0] should be a placeholder, got %v", grid[0][0])
	}
	if grid[0][1] != (Date{2024, time.April, 1}) {
		t.Errorf("slot[1] = %v, want April 1", grid[0][1])
	}
	if grid[4][1] != (Date{2024, time.April, 30}) {
		t.Errorf("last day cell = %v, want April 30", grid[4][1])
	}
	for col := 2; col < 7; col++ {
		if !grid[4][col].IsZero() {
			t.Errorf("trailing slot %d should be a placeholder", col)
		}
	}
}

func TestMonthGridWholeWeeksAndDayCount(t *testing.T) {
	months := []Date{
		{2024, time.January, 1},
		{2024, time.February, 10}, // leap February
		{2023, time.February, 1},  // non-leap February
		{2024, time.June, 30},     // June 2024 starts on Saturday -> 6 rows
		{2026, time.February, 1},  // Feb 2026 starts on Sunday, 28 days -> 4 rows
		{2024, time.December, 25},
	}
	for _, m := range months {
		grid := MonthGrid(m)
		days := 0
		for _, week := range grid {
			for _, slot := range week {
				if !slot.IsZero() {
					days++
					if slot.Month != m.Month || slot.Year != m.Year {
						t.Errorf("%v: foreign day %v in grid", m, slot)
					}
				}
			}
		}
		if want := DaysIn(m.Year, m.Month); days != want {
			t.Errorf("%v: %d day slots, want %d", m, days, want)
		}
		if len(grid) < 4 || len(grid) > 6 {
			t.Errorf("%v: %d rows", m, len(grid))
		}
	}
}

func TestMonthGridSixRows(t *testing.T) {
	// June 2024: starts Saturday (offset 6) with 30 days -> 36 cells -> 6 rows.
	grid := MonthGrid(Date{2024, time.June, 1})
	if len(grid) != 6 {
		t.Fatalf("June 2024: got %d weeks, want 6", len(grid))
	}
	if grid[0][6] != (Date{2024, time.June, 1}) {
		t.Errorf("June 1 should land on the first Saturday, got %v", grid[0][6])
	}
}
