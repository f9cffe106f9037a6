// Package filter narrows lists of parsed track records.
//
// A filter combines optional criteria, all of which must match:
//   - Date range (from/to, inclusive) on the record date
//   - Classes (exact, case-insensitive)
//   - Tracks and drivers (substring, case-insensitive)
//   - Maximum lap time in seconds
//
// Example usage:
//
//	f := filter.NewFilter()
//	f.Classes = []string{"IT7", "T4"}
//	f.Tracks = []string{"road america"}
//
//	filtered := f.Apply(records)
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// Filter represents record filtering criteria
type Filter struct {
	// Date range filtering
	DateFrom *time.Time `json:"date_from,omitempty"`
	DateTo   *time.Time `json:"date_to,omitempty"`

	// Class filtering (case-insensitive exact match)
	Classes []string `json:"classes,omitempty"`

	// Track name filtering (case-insensitive substring match)
	Tracks []string `json:"tracks,omitempty"`

	// Driver name filtering (case-insensitive substring match)
	Drivers []string `json:"drivers,omitempty"`

	// Records slower than this many seconds are dropped
	MaxLapTime float64 `json:"max_lap_time,omitempty"`
}

// NewFilter creates a new empty filter with no active criteria.
// The filter will match all records until criteria are added.
func NewFilter() *Filter {
	return &Filter{
		Classes: []string{},
		Tracks:  []string{},
		Drivers: []string{},
	}
}

// IsEmpty checks if the filter has any active criteria.
func (f *Filter) IsEmpty() bool {
	return f == nil || (f.DateFrom == nil &&
		f.DateTo == nil &&
		len(f.Classes) == 0 &&
		len(f.Tracks) == 0 &&
		len(f.Drivers) == 0 &&
		f.MaxLapTime == 0)
}

// Matches checks if a record matches all active filter criteria.
//
// A date range excludes records without a date. A lap time limit excludes
// records whose lap time could not be converted to seconds.
func (f *Filter) Matches(c *record.Candidate) bool {
	if f.IsEmpty() {
		return true
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date, err := time.Parse("2006-01-02", c.DateString())
		if err != nil {
			return false
		}
		if f.DateFrom != nil && date.Before(truncateDay(*f.DateFrom)) {
			return false
		}
		if f.DateTo != nil && date.After(*f.DateTo) {
			return false
		}
	}

	if len(f.Classes) > 0 && !anyEqual(c.ClassAbbreviation, f.Classes) {
		return false
	}
	if len(f.Tracks) > 0 && !anyContains(c.Track(), f.Tracks) {
		return false
	}
	if len(f.Drivers) > 0 && !anyContains(c.DriverName, f.Drivers) {
		return false
	}

	if f.MaxLapTime > 0 && (c.LapTimeSeconds <= 0 || c.LapTimeSeconds > f.MaxLapTime) {
		return false
	}

	return true
}

// Apply returns only matching records. If the filter is empty, returns the
// original list unchanged.
func (f *Filter) Apply(records []record.Candidate) []record.Candidate {
	if f.IsEmpty() {
		return records
	}

	var filtered []record.Candidate
	for i := range records {
		if f.Matches(&records[i]) {
			filtered = append(filtered, records[i])
		}
	}

	return filtered
}

// String returns a human-readable description of the active filter criteria.
// Format: "From: Jan 2, 2019 | To: Dec 31, 2021 | Classes: IT7, T4"
func (f *Filter) String() string {
	if f.IsEmpty() {
		return "No active filters"
	}

	var parts []string

	if f.DateFrom != nil {
		parts = append(parts, fmt.Sprintf("From: %s", f.DateFrom.Format("Jan 2, 2006")))
	}
	if f.DateTo != nil {
		parts = append(parts, fmt.Sprintf("To: %s", f.DateTo.Format("Jan 2, 2006")))
	}
	if len(f.Classes) > 0 {
		parts = append(parts, fmt.Sprintf("Classes: %s", strings.Join(f.Classes, ", ")))
	}
	if len(f.Tracks) > 0 {
		parts = append(parts, fmt.Sprintf("Tracks: %s", strings.Join(f.Tracks, ", ")))
	}
	if len(f.Drivers) > 0 {
		parts = append(parts, fmt.Sprintf("Drivers: %s", strings.Join(f.Drivers, ", ")))
	}
	if f.MaxLapTime > 0 {
		parts = append(parts, fmt.Sprintf("Max lap time: %s", record.FormatLapTime(f.MaxLapTime)))
	}

	return strings.Join(parts, " | ")
}

// Clone creates a deep copy of the filter.
func (f *Filter) Clone() *Filter {
	clone := &Filter{MaxLapTime: f.MaxLapTime}

	if f.DateFrom != nil {
		df := *f.DateFrom
		clone.DateFrom = &df
	}
	if f.DateTo != nil {
		dt := *f.DateTo
		clone.DateTo = &dt
	}

	clone.Classes = append([]string{}, f.Classes...)
	clone.Tracks = append([]string{}, f.Tracks...)
	clone.Drivers = append([]string{}, f.Drivers...)

	return clone
}

func anyEqual(value string, wanted []string) bool {
	value = strings.TrimSpace(value)
	for _, w := range wanted {
		if strings.EqualFold(value, strings.TrimSpace(w)) {
			return true
		}
	}
	return false
}

func anyContains(value string, wanted []string) bool {
	value = strings.ToLower(value)
	for _, w := range wanted {
		if strings.Contains(value, strings.ToLower(strings.TrimSpace(w))) {
			return true
		}
	}
	return false
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
