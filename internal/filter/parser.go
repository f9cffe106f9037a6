package filter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

var (
	yearRe      = regexp.MustCompile(`^(\d{4})$`)
	yearRangeRe = regexp.MustCompile(`^(\d{4})\s*-\s*(\d{4})$`)
	monthRe     = regexp.MustCompile(`(?i)^(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|september|oct|october|nov|november|dec|december)\s+(\d{4})$`)
	isoRangeRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})?\s*\.\.\s*(\d{4}-\d{2}-\d{2})?$`)
)

// ParseDateRange parses a date range string into start and end times.
//
// Supported formats:
//   - "2021" - Entire year
//   - "2019-2021" - Several whole years
//   - "Jun 2021" or "June 2021" - Entire month
//   - "2021-06-01..2021-06-30" - Explicit dates; either side may be omitted
//
// Returns (dateFrom, dateTo, error). Times are in UTC. Start time is at
// 00:00:00, end time is at 23:59:59. An open side is returned as nil.
func ParseDateRange(input string) (*time.Time, *time.Time, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, nil, fmt.Errorf("date range cannot be empty")
	}

	// Format 1: "2021"
	if matches := yearRe.FindStringSubmatch(input); matches != nil {
		year, _ := strconv.Atoi(matches[1])
		from, to := startOfDay(year, time.January, 1), endOfDay(year, time.December, 31)
		return &from, &to, nil
	}

	// Format 2: "2019-2021"
	if matches := yearRangeRe.FindStringSubmatch(input); matches != nil {
		year1, _ := strconv.Atoi(matches[1])
		year2, _ := strconv.Atoi(matches[2])
		if year1 > year2 {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		from, to := startOfDay(year1, time.January, 1), endOfDay(year2, time.December, 31)
		return &from, &to, nil
	}

	// Format 3: "Jun 2021"
	if matches := monthRe.FindStringSubmatch(input); matches != nil {
		month := parseMonth(matches[1])
		if month == 0 {
			return nil, nil, fmt.Errorf("invalid month: %s", matches[1])
		}
		year, _ := strconv.Atoi(matches[2])
		from := startOfDay(year, month, 1)
		// Last day of month
		to := endOfDay(year, month+1, 0)
		return &from, &to, nil
	}

	// Format 4: "2021-06-01..2021-06-30"
	if matches := isoRangeRe.FindStringSubmatch(input); matches != nil {
		if matches[1] == "" && matches[2] == "" {
			return nil, nil, fmt.Errorf("date range needs at least one date")
		}
		var from, to *time.Time
		if matches[1] != "" {
			t, err := time.Parse("2006-01-02", matches[1])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid date: %s", matches[1])
			}
			from = &t
		}
		if matches[2] != "" {
			t, err := time.Parse("2006-01-02", matches[2])
			if err != nil {
				return nil, nil, fmt.Errorf("invalid date: %s", matches[2])
			}
			end := endOfDay(t.Year(), t.Month(), t.Day())
			to = &end
		}
		if from != nil && to != nil && from.After(*to) {
			return nil, nil, fmt.Errorf("start date must be before end date")
		}
		return from, to, nil
	}

	return nil, nil, fmt.Errorf("invalid date range format. Use '2021', '2019-2021', 'Jun 2021' or '2021-06-01..2021-06-30'")
}

// ParseMaxLapTime parses a lap time limit written as a lap time ("1:20") or
// plain seconds ("80.5").
func ParseMaxLapTime(input string) (float64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}
	if secs, ok := record.LapTimeSeconds(input); ok && secs > 0 {
		return secs, nil
	}
	return 0, fmt.Errorf("invalid lap time: %s", input)
}

// parseMonth converts a month name to time.Month
func parseMonth(name string) time.Month {
	name = strings.ToLower(strings.TrimSpace(name))

	months := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	return months[name]
}

func startOfDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func endOfDay(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 23, 59, 59, 0, time.UTC)
}
