package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// SortOrder represents the available sorting options
type SortOrder string

const (
	SortByDate    SortOrder = "date"
	SortByClass   SortOrder = "class"
	SortByLapTime SortOrder = "laptime"
	SortByDriver  SortOrder = "driver"
)

// parseSortOrder validates a --sort value
func parseSortOrder(s string) (SortOrder, error) {
	order := SortOrder(strings.ToLower(strings.TrimSpace(s)))
	switch order {
	case SortByDate, SortByClass, SortByLapTime, SortByDriver:
		return order, nil
	}
	return "", fmt.Errorf("invalid sort order: %s (must be date, class, laptime or driver)", s)
}

// sortRecords sorts records based on the specified sort order
func sortRecords(records []record.Candidate, sortOrder SortOrder) {
	switch sortOrder {
	case SortByDate:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByDate(&records[i], &records[j])
		})
	case SortByClass:
		sort.SliceStable(records, func(i, j int) bool {
			ci, cj := strings.ToUpper(records[i].ClassAbbreviation), strings.ToUpper(records[j].ClassAbbreviation)
			if ci != cj {
				return ci < cj
			}
			// If classes are equal, fastest first
			return compareByLapTime(&records[i], &records[j])
		})
	case SortByLapTime:
		sort.SliceStable(records, func(i, j int) bool {
			return compareByLapTime(&records[i], &records[j])
		})
	case SortByDriver:
		sort.SliceStable(records, func(i, j int) bool {
			di, dj := strings.ToLower(records[i].DriverName), strings.ToLower(records[j].DriverName)
			if di != dj {
				return di < dj
			}
			// If drivers are equal, sort by date
			return compareByDate(&records[i], &records[j])
		})
	}
}

// compareByDate compares two records by their ISO date
// Returns true if record i should come before record j
func compareByDate(i, j *record.Candidate) bool {
	dateI, dateJ := i.DateString(), j.DateString()

	// If both dates are set, compare them
	if dateI != "" && dateJ != "" && dateI != dateJ {
		return dateI < dateJ
	}

	// If only one date is set, put it first
	if dateI != "" && dateJ == "" {
		return true
	}
	if dateI == "" && dateJ != "" {
		return false
	}

	// Same or no date: sort by class then lap time
	if i.ClassAbbreviation != j.ClassAbbreviation {
		return i.ClassAbbreviation < j.ClassAbbreviation
	}
	return compareByLapTime(i, j)
}

// compareByLapTime puts faster records first and records without a lap time
// in seconds last
func compareByLapTime(i, j *record.Candidate) bool {
	si, sj := i.LapTimeSeconds, j.LapTimeSeconds
	switch {
	case si > 0 && sj > 0:
		return si < sj
	case si > 0:
		return true
	default:
		return false
	}
}
