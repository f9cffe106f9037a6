package report

import (
	"reflect"
	"testing"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

func rec(class, driver string, secs float64, date string) record.Candidate {
	c := record.Candidate{DriverName: driver, ClassAbbreviation: class, LapTimeSeconds: secs, LapTime: record.FormatLapTime(secs)}
	if date != "" {
		c.Date = &date
	}
	return c
}

func TestFastestByClass(t *testing.T) {
	records := []record.Candidate{
		rec("IT7", "Slow", 80.5, "2020-01-01"),
		rec("it7", "Fast", 77.129, "2021-06-05"),
		rec("T4", "Later Tie", 63.004, "2022-05-01"),
		rec("T4", "Earlier Tie", 63.004, "2019-05-01"),
		rec("T4", "Undated Tie", 63.004, ""),
		rec("GT1", "No Time", 0, ""),
	}

	fastest := FastestByClass(records)

	tests := []struct {
		class    string
		expected string
	}{
		{"IT7", "Fast"},
		{"T4", "Earlier Tie"},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			got, ok := fastest[tt.class]
			if !ok {
				t.Fatalf("FastestByClass() missing class %q", tt.class)
			}
			if got.DriverName != tt.expected {
				t.Errorf("FastestByClass()[%q] = %q, expected %q", tt.class, got.DriverName, tt.expected)
			}
		})
	}

	if _, ok := fastest["GT1"]; ok {
		t.Error("records without a lap time should be skipped")
	}
	if got := SortedClasses(fastest); !reflect.DeepEqual(got, []string{"IT7", "T4"}) {
		t.Errorf("SortedClasses() = %v", got)
	}
}
