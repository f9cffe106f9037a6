package speedhive

import (
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// Metadata builds the parsing context for announcements of a session.
func Metadata(e Event, s Session) record.Metadata {
	return record.Metadata{
		EventID:     e.ResolvedID(),
		EventName:   e.DisplayName(),
		EventDate:   strings.TrimSpace(e.StartDate),
		TrackName:   e.Track(),
		SessionID:   s.ResolvedID(),
		SessionName: s.Name,
	}
}

// ToRecordAnnouncement converts an announcement row. The metadata carries
// only what the event itself reports; the parser falls back to the
// timestamp date on its own.
func ToRecordAnnouncement(e Event, s Session, a Announcement) record.Announcement {
	return record.Announcement{
		Text:      a.Text,
		Timestamp: NormalizeTimestamp(string(a.Timestamp)),
		Metadata:  Metadata(e, s),
	}
}

// NormalizeTimestamp returns RFC3339 for epoch timestamps (seconds or
// milliseconds) and the trimmed input for anything else.
func NormalizeTimestamp(ts string) string {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return ""
	}
	n, err := strconv.ParseInt(ts, 10, 64)
	if err != nil || n <= 0 {
		return ts
	}
	if n > 1e11 {
		return time.UnixMilli(n).UTC().Format(time.RFC3339)
	}
	return time.Unix(n, 0).UTC().Format(time.RFC3339)
}
