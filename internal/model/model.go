package model

import (
	"fmt"
	"strconv"
	"strings"
)

// Event is a single scheduled entry inside one day's bucket.
// JSON field names match the persisted collection layout.
type Event struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	// Time is a 24-hour "HH:MM" string.
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

// Collection maps a date key ("YYYY-MM-DD") to that day's ordered bucket.
// A key is present only while its bucket is non-empty; the whole map is the
// unit of persistence.
type Collection map[string][]Event

// Clone returns a deep copy so callers can hand out snapshots without
// exposing the live buckets.
func (c Collection) Clone() Collection {
	out := make(Collection, len(c))
	for key, bucket := range c {
		cp := make([]Event, len(bucket))
		copy(cp, bucket)
		out[key] = cp
	}
	return out
}

// Draft is the transient editor state for one event being created or
// edited. ID is empty for a new event. Origin remembers the date key the
// draft was opened from so that saving with a changed Date moves the event
// instead of duplicating it.
type Draft struct {
	ID     string `json:"id,omitempty"`
	Origin string `json:"origin,omitempty"`
	Date   string `json:"date"`
	Title  string `json:"title"`
	Time   string `json:"time"`
	Notes  string `json:"notes"`
}

// TimeToMinutes converts an "HH:MM" string to minutes since midnight.
// Malformed input sorts first rather than failing; buckets are ordered by
// this value, so comparison stays chronological even for un-padded input
// like "9:05".
func TimeToMinutes(t string) int {
	hh, mm, ok := splitClock(t)
	if !ok {
		return 0
	}
	return hh*60 + mm
}

// NormalizeClock re-formats a parseable clock string as zero-padded
// "HH:MM". It returns an error for anything that is not a valid 24-hour
// time.
func NormalizeClock(t string) (string, error) {
	hh, mm, ok := splitClock(t)
	if !ok || hh < 0 || hh > 23 || mm < 0 || mm > 59 {
		return "", fmt.Errorf("invalid time %q, want HH:MM", t)
	}
	return fmt.Sprintf("%02d:%02d", hh, mm), nil
}

func splitClock(t string) (hh, mm int, ok bool) {
	parts := strings.SplitN(strings.TrimSpace(t), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hh, err1 := strconv.Atoi(parts[0])
	mm, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return hh, mm, true
}
