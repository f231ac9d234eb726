package view

import (
	"schedcal/internal/datekit"
	"schedcal/internal/model"
)

// maxInlineEvents is how many events a day cell shows before collapsing
// the rest into a "+N more" count.
const maxInlineEvents = 3

// DayCell is the render contract for one grid slot.
type DayCell struct {
	Placeholder bool   `json:"placeholder,omitempty"`
	Key         string `json:"key,omitempty"`
	Day         int    `json:"day,omitempty"`

	// Events holds at most the first maxInlineEvents entries of the
	// bucket, in sorted order. More counts the hidden remainder and Total
	// the whole bucket.
	Events []model.Event `json:"events,omitempty"`
	More   int           `json:"more,omitempty"`
	Total  int           `json:"total,omitempty"`

	Today    bool `json:"today,omitempty"`
	Selected bool `json:"selected,omitempty"`
}

// WeekRow is one rendered grid row.
type WeekRow [7]DayCell

// MonthView is the full render snapshot for the displayed month plus the
// selected day's schedule and the editor dialog state.
type MonthView struct {
	Month string    `json:"month"` // "2024-04"
	Title string    `json:"title"` // "April 2024"
	Weeks []WeekRow `json:"weeks"`

	Selected       string        `json:"selected"`
	SelectedEvents []model.Event `json:"selected_events"`

	Editor      *model.Draft `json:"editor,omitempty"`
	EditorError string       `json:"editor_error,omitempty"`
}

// Render builds the month snapshot from the live grid and store state.
func (c *Controller) Render() MonthView {
	grid := datekit.MonthGrid(c.current)
	today := c.today()

	weeks := make([]WeekRow, len(grid))
	for wi, week := range grid {
		for di, d := range week {
			if d.IsZero() {
				weeks[wi][di] = DayCell{Placeholder: true}
				continue
			}
			key := d.Key()
			bucket := c.store.EventsOn(key)

			cell := DayCell{
				Key:      key,
				Day:      d.Day,
				Total:    len(bucket),
				Today:    d == today,
				Selected: d == c.selected,
			}
			if len(bucket) > maxInlineEvents {
				cell.Events = bucket[:maxInlineEvents]
				cell.More = len(bucket) - maxInlineEvents
			} else {
				cell.Events = bucket
			}
			weeks[wi][di] = cell
		}
	}

	mv := MonthView{
		Month:          c.current.Time(c.loc).Format("2006-01"),
		Title:          c.current.Time(c.loc).Format("January 2006"),
		Weeks:          weeks,
		Selected:       c.selected.Key(),
		SelectedEvents: c.store.EventsOn(c.selected.Key()),
		EditorError:    c.draftErr,
	}
	if c.draft != nil {
		draft := *c.draft
		mv.Editor = &draft
	}
	return mv
}
