package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/pfrederiksen/speedhive-tools/internal/pipeline"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/snapshot"
)

// OutputFormat specifies the output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// maxCellWidth caps table columns in text output.
const maxCellWidth = 40

// RecordsResult is the output of the records and extract commands
type RecordsResult struct {
	OrgID       int64              `json:"org_id"`
	CollectedAt time.Time          `json:"collected_at"`
	Stats       pipeline.Stats     `json:"stats"`
	Records     []record.Candidate `json:"records"`
	Files       []string           `json:"files,omitempty"`
}

// FastestResult is the output of the fastest command
type FastestResult struct {
	OrgID   int64              `json:"org_id"`
	Classes []string           `json:"classes"`
	Fastest []record.Candidate `json:"fastest"`
}

// WatchResult is the output of the watch command
type WatchResult struct {
	OrgID       int64                         `json:"org_id"`
	CheckedAt   time.Time                     `json:"checked_at"`
	NewRecords  []record.Candidate            `json:"new_records"`
	RecordCount int                           `json:"record_count"`
	ByClass     map[string][]record.Candidate `json:"by_class,omitempty"`
	Changes     []*snapshot.Change            `json:"changes,omitempty"`
}

// writeJSON outputs results as JSON
func writeJSON(w io.Writer, v interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

// writeTable writes rows under headers, padding columns to their display
// width so wide characters line up.
func writeTable(w io.Writer, headers []string, rows [][]string) error {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i := range row {
			row[i] = runewidth.Truncate(row[i], maxCellWidth, "…")
			if n := runewidth.StringWidth(row[i]); n > widths[i] {
				widths[i] = n
			}
		}
	}

	writeRow := func(cells []string) error {
		var b strings.Builder
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			if i == len(cells)-1 {
				b.WriteString(cell)
			} else {
				b.WriteString(runewidth.FillRight(cell, widths[i]))
			}
		}
		_, err := fmt.Fprintln(w, strings.TrimRight(b.String(), " "))
		return err
	}

	if err := writeRow(headers); err != nil {
		return err
	}
	rule := make([]string, len(headers))
	for i := range headers {
		rule[i] = strings.Repeat("-", widths[i])
	}
	if err := writeRow(rule); err != nil {
		return err
	}
	for _, row := range rows {
		if err := writeRow(row); err != nil {
			return err
		}
	}
	return nil
}

func recordRow(c *record.Candidate) []string {
	return []string{c.ClassAbbreviation, c.LapTime, c.DriverName, c.Marque(), c.DateString(), c.Track()}
}

var recordHeaders = []string{"CLASS", "LAP TIME", "DRIVER", "MARQUE", "DATE", "TRACK"}

// writeRecordsText outputs records as a table followed by the run totals
func writeRecordsText(w io.Writer, result *RecordsResult, verbose bool) error {
	if len(result.Records) == 0 {
		fmt.Fprintln(w, "No records found.")
	} else {
		rows := make([][]string, len(result.Records))
		for i := range result.Records {
			rows[i] = recordRow(&result.Records[i])
		}
		if err := writeTable(w, recordHeaders, rows); err != nil {
			return err
		}
	}

	s := result.Stats
	fmt.Fprintf(w, "\nTotal: %d records, %d malformed, %d ignored from %d announcements\n",
		s.Accepted, s.Malformed, s.Ignored, s.Announcements)
	if verbose {
		fmt.Fprintf(w, "Events: %d, sessions: %d, errors: %d\n", s.Events, s.Sessions, s.Errors)
	}
	for _, f := range result.Files {
		fmt.Fprintf(w, "Wrote %s\n", f)
	}
	return nil
}

// writeOutcomeText outputs one screened announcement
func writeOutcomeText(w io.Writer, outcome record.Outcome, verbose bool) error {
	fmt.Fprintf(w, "Status: %s\n", outcome.Status)
	if outcome.Reason != "" {
		fmt.Fprintf(w, "Reason: %s\n", outcome.Reason)
	}
	c := outcome.Candidate
	if c == nil {
		return nil
	}

	fields := []struct {
		label, value string
	}{
		{"Class", c.ClassAbbreviation},
		{"Lap time", c.LapTime},
		{"Driver", c.DriverName},
		{"Marque", c.Marque()},
		{"Date", c.DateString()},
		{"Track", c.Track()},
	}
	for _, f := range fields {
		if f.value != "" {
			fmt.Fprintf(w, "%-9s %s\n", f.label+":", f.value)
		}
	}
	if verbose {
		fmt.Fprintf(w, "%-9s %s\n", "Shape:", c.Shape)
		if c.RawLapTime != "" && c.RawLapTime != c.LapTime {
			fmt.Fprintf(w, "%-9s %s\n", "Raw time:", c.RawLapTime)
		}
	}
	return nil
}

// writeFastestText outputs the fastest record of each class
func writeFastestText(w io.Writer, result *FastestResult) error {
	if len(result.Fastest) == 0 {
		fmt.Fprintln(w, "No records found.")
		return nil
	}
	rows := make([][]string, len(result.Fastest))
	for i := range result.Fastest {
		rows[i] = recordRow(&result.Fastest[i])
	}
	if err := writeTable(w, recordHeaders, rows); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nTotal: %d classes\n", len(result.Classes))
	return nil
}

// writeWatchText outputs new records grouped by class
func writeWatchText(w io.Writer, result *WatchResult, verbose bool) error {
	if result.RecordCount == 0 {
		fmt.Fprintln(w, "No new records found.")
		return nil
	}

	for _, class := range sortedKeys(result.ByClass) {
		records := result.ByClass[class]
		label := class
		if label == "" {
			label = "(no class)"
		}
		fmt.Fprintf(w, "\n%s (%d new):\n", label, len(records))
		for i := range records {
			c := &records[i]
			line := fmt.Sprintf("  NEW: %s by %s", c.LapTime, c.DriverName)
			if marque := c.Marque(); marque != "" {
				line += " in " + marque
			}
			if track := c.Track(); track != "" {
				line += " at " + track
			}
			fmt.Fprintln(w, line)
			if verbose {
				fmt.Fprintf(w, "       ID: %s\n", snapshot.IDOf(*c))
				if date := c.DateString(); date != "" {
					fmt.Fprintf(w, "       Date: %s\n", date)
				}
			}
		}
	}

	for _, change := range result.Changes {
		if change.ChangeType == snapshot.ChangeImproved {
			fmt.Fprintf(w, "\nRecord broken (%s): %s -> %s\n", change.StableKey, change.OldValue, change.NewValue)
		}
	}
	fmt.Fprintf(w, "\nTotal: %d new records across %d classes\n", result.RecordCount, len(result.ByClass))
	return nil
}

func sortedKeys(m map[string][]record.Candidate) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
