package notifier

import (
	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// Notifier defines the interface for posting record notifications
type Notifier interface {
	// Notify posts notifications for the given records
	Notify(records []record.Candidate) error
}

// Limit returns at most max records. A max of zero or less means no limit.
func Limit(records []record.Candidate, max int) []record.Candidate {
	if max <= 0 || len(records) <= max {
		return records
	}
	return records[:max]
}
