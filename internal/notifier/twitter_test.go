package notifier

import (
	"bytes"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

func strPtr(s string) *string { return &s }

func TestFormatTweet(t *testing.T) {
	tests := []struct {
		name     string
		record   record.Candidate
		contains []string
		excludes []string
	}{
		{
			name: "complete record",
			record: record.Candidate{
				DriverName:        "Kevin Fandozzi",
				LapTime:           "1:17.129",
				ClassAbbreviation: "IT7",
				Vehicle:           strPtr("Chevrolet C5 Corvette"),
				Date:              strPtr("2021-06-05"),
				TrackName:         strPtr("Road America"),
				Metadata:          record.Metadata{EventName: "June Sprints"},
			},
			contains: []string{
				"Road America",
				"IT7: 1:17.129",
				"Kevin Fandozzi (Chevrolet C5 Corvette)",
				"2021-06-05",
				"June Sprints",
				"#TrackRecord",
				"🏁",
			},
		},
		{
			name: "record without marque or date",
			record: record.Candidate{
				DriverName:        "Bob Cross",
				LapTime:           "1:17.870",
				ClassAbbreviation: "IT7",
				TrackName:         strPtr("Waterford Hills"),
			},
			contains: []string{"Waterford Hills", "Bob Cross\n", "#Motorsport"},
			excludes: []string{"📅", "(", "🏆"},
		},
		{
			name: "record without class",
			record: record.Candidate{
				DriverName: "Jane Doe",
				LapTime:    "1:03.004",
				TrackName:  strPtr("Road America"),
			},
			contains: []string{"⏱️ 1:03.004"},
			excludes: []string{"🏎️"},
		},
		{
			name: "very long event name gets truncated",
			record: record.Candidate{
				DriverName:        "Jane Doe",
				LapTime:           "1:03.004",
				ClassAbbreviation: "T4",
				TrackName:         strPtr("Road America"),
				Metadata: record.Metadata{
					EventName: strings.Repeat("Extremely Long Endurance Weekend Name ", 10),
				},
			},
			contains: []string{"..."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatTweet(&tt.record)

			if n := utf8.RuneCountInString(got); n > MaxTweetLength {
				t.Errorf("FormatTweet() length = %d, want <= %d", n, MaxTweetLength)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("FormatTweet() missing %q in tweet:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("FormatTweet() unexpectedly contains %q in tweet:\n%s", unwanted, got)
				}
			}
		})
	}
}

func TestDryRunNotifier(t *testing.T) {
	var buf bytes.Buffer
	notifier := NewDryRunNotifier(&buf)

	records := []record.Candidate{
		{DriverName: "Bob Cross", LapTime: "1:17.870", ClassAbbreviation: "IT7", TrackName: strPtr("Road America")},
		{DriverName: "Jane Doe", LapTime: "1:03.004", ClassAbbreviation: "T4", TrackName: strPtr("Road America")},
	}

	if err := notifier.Notify(records); err != nil {
		t.Fatalf("DryRunNotifier.Notify() error = %v, want nil", err)
	}

	out := buf.String()
	for _, want := range []string{"--- Tweet 1/2 ---", "--- Tweet 2/2 ---", "Bob Cross", "Jane Doe", "(Length: "} {
		if !strings.Contains(out, want) {
			t.Errorf("dry-run output missing %q:\n%s", want, out)
		}
	}
}

func TestLimit(t *testing.T) {
	records := make([]record.Candidate, 5)

	tests := []struct {
		max      int
		expected int
	}{
		{0, 5},
		{-1, 5},
		{3, 3},
		{10, 5},
	}
	for _, tt := range tests {
		if got := Limit(records, tt.max); len(got) != tt.expected {
			t.Errorf("Limit(5 records, %d) returned %d, expected %d", tt.max, len(got), tt.expected)
		}
	}
}
