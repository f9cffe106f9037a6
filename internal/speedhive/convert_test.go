package speedhive

import (
	"testing"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

func TestNormalizeTimestamp(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"2021-06-05T14:30:00Z", "2021-06-05T14:30:00Z"},
		{" 1622903400 ", "2021-06-05T14:30:00Z"},
		{"1622903400000", "2021-06-05T14:30:00Z"},
		{"not a time", "not a time"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := NormalizeTimestamp(tt.input); got != tt.expected {
				t.Errorf("NormalizeTimestamp(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestToRecordAnnouncement(t *testing.T) {
	event := Event{
		ID:        5,
		Name:      "June Sprints",
		StartDate: "2021-06-04",
		Location:  &Location{Name: "Road America"},
	}
	session := Session{SessionID: 42, Name: "Race 1"}
	row := Announcement{Timestamp: "2021-06-05T14:30:00Z", Text: "New Track Record (1:17.870) for IT7 by Bob Cross."}

	got := ToRecordAnnouncement(event, session, row)
	if got.Metadata.EventID != 5 || got.Metadata.SessionID != 42 {
		t.Errorf("ids = %d/%d, expected 5/42", got.Metadata.EventID, got.Metadata.SessionID)
	}
	if got.Metadata.EventDate != "2021-06-04" {
		t.Errorf("EventDate = %q, expected %q", got.Metadata.EventDate, "2021-06-04")
	}
	if got.Metadata.TrackName != "Road America" || got.Metadata.EventName != "June Sprints" || got.Metadata.SessionName != "Race 1" {
		t.Errorf("Metadata = %+v", got.Metadata)
	}
	if got.Text != row.Text || got.Timestamp != "2021-06-05T14:30:00Z" {
		t.Errorf("announcement = %+v", got)
	}

	event.StartDate = ""
	got = ToRecordAnnouncement(event, session, row)
	if got.Metadata.EventDate != "" {
		t.Errorf("EventDate = %q, expected empty for an undated event", got.Metadata.EventDate)
	}
}

func TestUndatedEventRecordDate(t *testing.T) {
	event := Event{ID: 5, Name: "Spring Enduro", Location: &Location{Name: "Road America"}}
	session := Session{SessionID: 42, Name: "Race 1"}

	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{
			name:     "text date wins over timestamp",
			text:     "New Track Record – FA – 1:01.861 – J. Lewis Cooper, Jr – Swift 01 4A – 2009-05-10",
			expected: "2009-05-10",
		},
		{
			name:     "timestamp date when text has none",
			text:     "New Track Record (1:17.870) for IT7 by Bob Cross.",
			expected: "2021-06-05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := Announcement{Timestamp: "2021-06-05T10:00:00Z", Text: tt.text}
			ann := ToRecordAnnouncement(event, session, row)
			if ann.Metadata.EventDate != "" {
				t.Errorf("EventDate = %q, expected empty", ann.Metadata.EventDate)
			}

			outcome := record.Screen(ann, record.ScreenOptions{})
			if outcome.Status != record.StatusAccepted {
				t.Fatalf("Screen(%q) status = %q (%s), expected accepted", tt.text, outcome.Status, outcome.Reason)
			}
			if got := outcome.Candidate.DateString(); got != tt.expected {
				t.Errorf("date = %q, expected %q", got, tt.expected)
			}
		})
	}
}
