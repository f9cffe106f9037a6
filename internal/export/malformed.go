package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/storage"
)

// MalformedEntry is one line of the malformed announcements log.
type MalformedEntry struct {
	SessionID        int64          `json:"sessionId"`
	Reason           string         `json:"reason"`
	AnnouncementText string         `json:"announcementText"`
	Timestamp        string         `json:"timestamp,omitempty"`
	Failure          record.Failure `json:"failure,omitempty"`
}

// NewMalformedEntry builds a log entry from a screened announcement.
func NewMalformedEntry(a record.Announcement, o record.Outcome) MalformedEntry {
	return MalformedEntry{
		SessionID:        a.Metadata.SessionID,
		Reason:           o.Reason,
		AnnouncementText: a.Text,
		Timestamp:        a.Timestamp,
		Failure:          o.Failure,
	}
}

// MalformedLog writes malformed announcements as NDJSON.
type MalformedLog struct {
	w *storage.NDJSONWriter
}

// OpenMalformedLog creates the log file at path, replacing any previous run.
func OpenMalformedLog(path string) (*MalformedLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating directory for %s: %w", path, err)
	}
	w, err := storage.CreateNDJSON(path, false)
	if err != nil {
		return nil, err
	}
	return &MalformedLog{w: w}, nil
}

// Append writes one entry.
func (l *MalformedLog) Append(e MalformedEntry) error {
	return l.w.Write(e)
}

// Count returns the number of entries written.
func (l *MalformedLog) Count() int {
	return l.w.Count()
}

// Close flushes the log.
func (l *MalformedLog) Close() error {
	return l.w.Close()
}
