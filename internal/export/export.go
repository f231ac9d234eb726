package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"time"

	ical "github.com/arran4/golang-ical"

	"schedcal/internal/datekit"
	appLog "schedcal/internal/log"
	"schedcal/internal/model"
)

const productID = "-//schedcal//calendar//EN"

// defaultDuration is used for exported events; the store keeps only a
// start time.
const defaultDuration = time.Hour

// ICS writes the whole collection as an iCalendar feed. Event start times
// are anchored in loc (nil means time.Local); entries with an unparseable
// date key are logged and skipped rather than failing the export.
func ICS(w io.Writer, col model.Collection, calName string, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if calName != "" {
		cal.SetXWRCalName(calName)
	}

	now := time.Now().UTC()
	for _, key := range sortedKeys(col) {
		day, err := datekit.ParseKey(key)
		if err != nil {
			appLog.Warn("skipping bucket with bad date key", "key", key)
			continue
		}
		for _, ev := range col[key] {
			start := day.Time(loc).Add(time.Duration(model.TimeToMinutes(ev.Time)) * time.Minute)

			ve := cal.AddEvent(ev.ID + "@schedcal")
			ve.SetDtStampTime(now)
			ve.SetStartAt(start)
			ve.SetEndAt(start.Add(defaultDuration))
			ve.SetSummary(ev.Title)
			if ev.Notes != "" {
				ve.SetDescription(ev.Notes)
			}
		}
	}

	return cal.SerializeTo(w)
}

// CSV writes one row per event: date, time, title, notes.
func CSV(w io.Writer, col model.Collection) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "time", "title", "notes"}); err != nil {
		return err
	}
	for _, key := range sortedKeys(col) {
		for _, ev := range col[key] {
			if err := cw.Write([]string{key, ev.Time, ev.Title, ev.Notes}); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonExport is the JSON export envelope.
type jsonExport struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Days        int              `json:"days"`
	Events      model.Collection `json:"events"`
}

// JSON writes the collection with a small metadata envelope.
func JSON(w io.Writer, col model.Collection) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jsonExport{
		GeneratedAt: time.Now().UTC(),
		Days:        len(col),
		Events:      col,
	})
}

func sortedKeys(col model.Collection) []string {
	keys := make([]string, 0, len(col))
	for key := range col {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
