// Package report summarizes parsed track records.
package report

import (
	"sort"
	"strings"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// FastestByClass returns the fastest record of each class. Ties go to the
// earliest date, then to the first record seen. Records without a lap time
// in seconds are skipped.
func FastestByClass(records []record.Candidate) map[string]record.Candidate {
	fastest := make(map[string]record.Candidate)
	for _, c := range records {
		if c.LapTimeSeconds <= 0 {
			continue
		}
		class := strings.ToUpper(strings.TrimSpace(c.ClassAbbreviation))
		best, ok := fastest[class]
		if !ok || beats(c, best) {
			fastest[class] = c
		}
	}
	return fastest
}

func beats(c, best record.Candidate) bool {
	if c.LapTimeSeconds != best.LapTimeSeconds {
		return c.LapTimeSeconds < best.LapTimeSeconds
	}
	cd, bd := c.DateString(), best.DateString()
	if cd == "" || bd == "" {
		return cd != "" && bd == ""
	}
	return cd < bd
}

// SortedClasses returns the keys of a FastestByClass result in order.
func SortedClasses(fastest map[string]record.Candidate) []string {
	classes := make([]string, 0, len(fastest))
	for class := range fastest {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	return classes
}
