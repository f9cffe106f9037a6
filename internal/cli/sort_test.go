package cli

import (
	"testing"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

func testRecord(driver, class string, secs float64, date string) record.Candidate {
	c := record.Candidate{DriverName: driver, ClassAbbreviation: class, LapTimeSeconds: secs, LapTime: record.FormatLapTime(secs)}
	if date != "" {
		c.Date = &date
	}
	return c
}

func drivers(records []record.Candidate) []string {
	out := make([]string, len(records))
	for i, c := range records {
		out[i] = c.DriverName
	}
	return out
}

func TestSortRecords(t *testing.T) {
	base := []record.Candidate{
		testRecord("carol", "T4", 65.0, "2021-06-05"),
		testRecord("Alice", "IT7", 78.0, ""),
		testRecord("bob", "IT7", 77.0, "2019-01-01"),
		testRecord("Dave", "GT1", 0, "2020-03-03"),
	}

	tests := []struct {
		order    SortOrder
		expected []string
	}{
		{SortByDate, []string{"bob", "Dave", "carol", "Alice"}},
		{SortByClass, []string{"Dave", "bob", "Alice", "carol"}},
		{SortByLapTime, []string{"carol", "bob", "Alice", "Dave"}},
		{SortByDriver, []string{"Alice", "bob", "carol", "Dave"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			records := append([]record.Candidate(nil), base...)
			sortRecords(records, tt.order)
			got := drivers(records)
			for i := range tt.expected {
				if got[i] != tt.expected[i] {
					t.Errorf("sortRecords(%q) = %v, expected %v", tt.order, got, tt.expected)
					break
				}
			}
		})
	}
}

func TestParseSortOrder(t *testing.T) {
	tests := []struct {
		input   string
		want    SortOrder
		wantErr bool
	}{
		{"date", SortByDate, false},
		{" LapTime ", SortByLapTime, false},
		{"class", SortByClass, false},
		{"driver", SortByDriver, false},
		{"speed", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseSortOrder(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseSortOrder(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("parseSortOrder(%q) = %q, expected %q", tt.input, got, tt.want)
			}
		})
	}
}
