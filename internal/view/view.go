package view

import (
	"errors"
	"strings"
	"time"

	"schedcal/internal/datekit"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
	"schedcal/internal/store"
)

// Validation failures reported by SaveEditor. All are recoverable: the
// editor stays open and the draft keeps its current values.
var (
	ErrEditorClosed  = errors.New("no editor is open")
	ErrTitleRequired = errors.New("title is required")
	ErrInvalidTime   = errors.New("time must be a 24-hour HH:MM value")
	ErrInvalidDate   = errors.New("date must be a YYYY-MM-DD value")
)

// Keyboard parity with mouse actions on a focused grid cell.
const (
	KeyActivate  = "enter" // confirms selection, like a single click
	KeySecondary = "space" // opens the editor, like a double click
)

// Confirmer answers the delete confirmation prompt.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a plain function to the Confirmer interface.
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Options tune a Controller. The zero value is usable.
type Options struct {
	// Location resolves "today"; nil means time.Local.
	Location *time.Location
	// DefaultEventTime seeds blank drafts; empty means "09:00".
	DefaultEventTime string
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Controller is the calendar session state: the displayed month, the
// selected day, and the editor dialog. It holds an explicit store handle;
// all mutations flow through the store's mutate-then-persist pipeline.
type Controller struct {
	store *store.Store

	loc         *time.Location
	now         func() time.Time
	defaultTime string

	current  datekit.Date // always first-of-month
	selected datekit.Date

	draft    *model.Draft // nil while the editor is closed
	draftErr string
}

// NewController starts a session on today's month with today selected and
// the editor closed.
func NewController(s *store.Store, opts Options) *Controller {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	defaultTime := opts.DefaultEventTime
	if defaultTime == "" {
		defaultTime = "09:00"
	}

	c := &Controller{
		store:       s,
		loc:         loc,
		now:         now,
		defaultTime: defaultTime,
	}
	today := c.today()
	c.current = datekit.StartOfMonth(today)
	c.selected = today
	return c
}

func (c *Controller) today() datekit.Date {
	return datekit.FromTime(c.now().In(c.loc))
}

// CurrentMonth returns the first day of the displayed month.
func (c *Controller) CurrentMonth() datekit.Date { return c.current }

// SelectedDate returns the currently selected day.
func (c *Controller) SelectedDate() datekit.Date { return c.selected }

// NavigateMonth shifts the displayed month by n (negative for past) and
// leaves the selection alone.
func (c *Controller) NavigateMonth(n int) {
	c.current = datekit.AddMonths(c.current, n)
}

// GoToToday resets both the displayed month and the selection to the real
// current date.
func (c *Controller) GoToToday() {
	today := c.today()
	c.current = datekit.StartOfMonth(today)
	c.selected = today
}

// SelectDate sets the selection without opening the editor. Placeholder
// slots are ignored.
func (c *Controller) SelectDate(d datekit.Date) {
	if d.IsZero() {
		return
	}
	c.selected = d
}

// SelectDay moves the selection by n days, crossing months as needed; the
// displayed month follows the selection.
func (c *Controller) SelectDay(n int) {
	c.selected = datekit.AddDays(c.selected, n)
	c.current = datekit.StartOfMonth(c.selected)
}

// OpenEditor opens the dialog for date. With an existing event its fields
// (including the id) populate the draft; otherwise the draft is blank with
// the default time. Origin remembers the bucket the draft came from.
func (c *Controller) OpenEditor(d datekit.Date, existing *model.Event) {
	if d.IsZero() {
		return
	}
	key := d.Key()
	draft := model.Draft{
		Origin: key,
		Date:   key,
		Time:   c.defaultTime,
	}
	if existing != nil {
		draft.ID = existing.ID
		draft.Title = existing.Title
		draft.Time = existing.Time
		draft.Notes = existing.Notes
	}
	c.draft = &draft
	c.draftErr = ""
}

// EditorOpen reports whether the dialog is showing.
func (c *Controller) EditorOpen() bool { return c.draft != nil }

// Draft returns a copy of the open draft.
func (c *Controller) Draft() (model.Draft, bool) {
	if c.draft == nil {
		return model.Draft{}, false
	}
	return *c.draft, true
}

// UpdateDraft replaces the editable draft fields; id and origin are bound
// at open time and cannot be rewritten from outside.
func (c *Controller) UpdateDraft(d model.Draft) {
	if c.draft == nil {
		return
	}
	c.draft.Date = d.Date
	c.draft.Title = d.Title
	c.draft.Time = d.Time
	c.draft.Notes = d.Notes
}

// CancelEditor discards the draft unconditionally.
func (c *Controller) CancelEditor() {
	c.draft = nil
	c.draftErr = ""
}

// SaveEditor validates the draft and commits it to the store: update when
// the draft carries an id, move when its date changed, add otherwise. On a
// validation error the editor stays open with the error recorded for the
// render model; on success the dialog closes.
func (c *Controller) SaveEditor() error {
	if c.draft == nil {
		return ErrEditorClosed
	}

	title := strings.TrimSpace(c.draft.Title)
	if title == "" {
		return c.fail(ErrTitleRequired)
	}
	clock, err := model.NormalizeClock(c.draft.Time)
	if err != nil {
		return c.fail(ErrInvalidTime)
	}
	if _, err := datekit.ParseKey(c.draft.Date); err != nil {
		return c.fail(ErrInvalidDate)
	}

	if c.draft.ID == "" {
		c.store.Add(c.draft.Date, model.Draft{
			Title: title,
			Time:  clock,
			Notes: c.draft.Notes,
		})
	} else {
		ev := model.Event{
			ID:    c.draft.ID,
			Title: title,
			Time:  clock,
			Notes: c.draft.Notes,
		}
		if c.draft.Origin != "" && c.draft.Origin != c.draft.Date {
			c.store.Move(c.draft.Origin, c.draft.Date, ev)
		} else {
			c.store.Update(c.draft.Date, ev)
		}
	}

	c.draft = nil
	c.draftErr = ""
	return nil
}

func (c *Controller) fail(err error) error {
	c.draftErr = err.Error()
	return err
}

// RequestDelete asks the confirmer before removing the event; a declined
// prompt is a no-op, not an error. It reports whether the delete happened.
func (c *Controller) RequestDelete(dateKey, id string, confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm("Delete this event?") {
		appLog.Debug("delete declined", "date", dateKey, "id", id)
		return false
	}
	c.store.Delete(dateKey, id)
	return true
}

// HandleKey maps keyboard activation on a focused cell to the equivalent
// mouse action.
func (c *Controller) HandleKey(d datekit.Date, key string) {
	switch key {
	case KeyActivate:
		c.SelectDate(d)
	case KeySecondary:
		c.OpenEditor(d, nil)
	}
}
