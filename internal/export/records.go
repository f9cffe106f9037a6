package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// CSVHeader is the column order of WriteRecordsCSV.
var CSVHeader = []string{
	"event_id", "event_name", "session_id", "session_name", "classification",
	"lap_time", "lap_time_seconds", "driver", "marque", "date", "track_name",
	"timestamp", "text",
}

type recordsDocument struct {
	Records []record.Candidate `json:"records"`
}

// WriteRecordsJSON writes {"records": [...]} with two-space indentation.
func WriteRecordsJSON(w io.Writer, records []record.Candidate) error {
	if records == nil {
		records = []record.Candidate{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(recordsDocument{Records: records}); err != nil {
		return fmt.Errorf("encoding records: %w", err)
	}
	return nil
}

// ReadRecordsJSON reads a document written by WriteRecordsJSON.
func ReadRecordsJSON(r io.Reader) ([]record.Candidate, error) {
	var doc recordsDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding records: %w", err)
	}
	return doc.Records, nil
}

// WriteRecordsCSV writes the header and one row per record.
func WriteRecordsCSV(w io.Writer, records []record.Candidate) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for i := range records {
		if err := cw.Write(csvRow(&records[i])); err != nil {
			return fmt.Errorf("writing csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(c *record.Candidate) []string {
	seconds := ""
	if c.LapTimeSeconds > 0 {
		seconds = strconv.FormatFloat(c.LapTimeSeconds, 'f', 3, 64)
	}
	return []string{
		idString(c.Metadata.EventID),
		c.Metadata.EventName,
		idString(c.Metadata.SessionID),
		c.Metadata.SessionName,
		c.ClassAbbreviation,
		c.LapTime,
		seconds,
		c.DriverName,
		c.Marque(),
		c.DateString(),
		c.Track(),
		c.Timestamp,
		c.Text,
	}
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

// WriteRecordsJSONFile writes records to path, creating parent directories.
func WriteRecordsJSONFile(path string, records []record.Candidate) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRecordsJSON(w, records)
	})
}

// WriteRecordsCSVFile writes records to path, creating parent directories.
func WriteRecordsCSVFile(path string, records []record.Candidate) error {
	return writeFile(path, func(w io.Writer) error {
		return WriteRecordsCSV(w, records)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
