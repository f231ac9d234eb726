package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"schedcal/internal/model"
)

func sampleCollection() model.Collection {
	return model.Collection{
		"2024-04-10": {
			{ID: "a1", Title: "Meeting", Time: "09:00", Notes: "room 4"},
			{ID: "a2", Title: "Lunch", Time: "12:30"},
		},
		"2024-04-11": {
			{ID: "b1", Title: "Review", Time: "15:00"},
		},
	}
}

func TestICS(t *testing.T) {
	var buf bytes.Buffer
	if err := ICS(&buf, sampleCollection(), "team calendar", time.UTC); err != nil {
		t.Fatalf("ICS: %v", err)
	}
	body := buf.String()

	for _, field := range []string{
		"BEGIN:VCALENDAR",
		"METHOD:PUBLISH",
		"PRODID:-//schedcal//calendar//EN",
		"X-WR-CALNAME:team calendar",
		"UID:a1@schedcal",
		"UID:b1@schedcal",
		"SUMMARY:Meeting",
		"DESCRIPTION:room 4",
		"END:VCALENDAR",
	} {
		if !strings.Contains(body, field) {
			t.Errorf("ICS output missing %q", field)
		}
	}

	// 09:00 UTC start, one hour default duration.
	if !strings.Contains(body, "20240410T090000Z") {
		t.Error("missing DTSTART value for the 09:00 event")
	}
	if !strings.Contains(body, "20240410T100000Z") {
		t.Error("missing DTEND value one hour later")
	}

	if got := strings.Count(body, "BEGIN:VEVENT"); got != 3 {
		t.Errorf("VEVENT count = %d, want 3", got)
	}
}

func TestICSSkipsBadKeys(t *testing.T) {
	col := model.Collection{
		"not-a-date": {{ID: "x", Title: "Ghost", Time: "09:00"}},
		"2024-04-10": {{ID: "a1", Title: "Meeting", Time: "09:00"}},
	}

	var buf bytes.Buffer
	if err := ICS(&buf, col, "", time.UTC); err != nil {
		t.Fatalf("ICS: %v", err)
	}
	body := buf.String()
	if strings.Contains(body, "Ghost") {
		t.Error("event under a bad key should be skipped")
	}
	if !strings.Contains(body, "Meeting") {
		t.Error("valid event missing")
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := CSV(&buf, sampleCollection()); err != nil {
		t.Fatalf("CSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")

	if lines[0] != "date,time,title,notes" {
		t.Errorf("header = %q", lines[0])
	}
	if len(lines) != 4 {
		t.Fatalf("line count = %d, want 4", len(lines))
	}
	// Keys are emitted sorted, buckets in time order.
	if lines[1] != "2024-04-10,09:00,Meeting,room 4" {
		t.Errorf("row 1 = %q", lines[1])
	}
	if lines[3] != "2024-04-11,15:00,Review," {
		t.Errorf("row 3 = %q", lines[3])
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleCollection()); err != nil {
		t.Fatalf("JSON: %v", err)
	}

	var out struct {
		Days   int              `json:"days"`
		Events model.Collection `json:"events"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if out.Days != 2 {
		t.Errorf("days = %d, want 2", out.Days)
	}
	if len(out.Events["2024-04-10"]) != 2 {
		t.Errorf("events = %v", out.Events)
	}
}
