package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

func strPtr(s string) *string { return &s }

func sampleRecords() []record.Candidate {
	return []record.Candidate{
		{
			DriverName:        "Kevin Fandozzi",
			LapTime:           "1:17.129",
			LapTimeSeconds:    77.129,
			ClassAbbreviation: "IT7",
			Vehicle:           strPtr("Chevrolet C5 Corvette"),
			Date:              strPtr("2021-06-05"),
			TrackName:         strPtr("Road America"),
			Timestamp:         "2021-06-05T14:30:00Z",
			Text:              "New Class Record (1:17.129) for IT7 by [2] Kevin Fandozzi in Chevrolet C5 Corvette",
			Metadata:          record.Metadata{EventID: 5, EventName: "June Sprints", SessionID: 42, SessionName: "Race 1", TrackName: "Road America"},
		},
		{
			DriverName:        "Jane Doe, Jr.",
			LapTime:           "1:03.004",
			LapTimeSeconds:    63.004,
			ClassAbbreviation: "T4",
			TrackName:         strPtr("Road America"),
			Text:              "New Track Record (63.004) for T4 by \"Jane Doe, Jr.\"",
			Metadata:          record.Metadata{SessionID: 43},
		},
	}
}

func TestWriteRecordsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsJSON(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteRecordsJSON() error = %v", err)
	}

	var doc map[string][]map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	records := doc["records"]
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	first := records[0]
	for key, want := range map[string]string{
		"driverName":        "Kevin Fandozzi",
		"lapTime":           "1:17.129",
		"classAbbreviation": "IT7",
		"marque":            "Chevrolet C5 Corvette",
		"date":              "2021-06-05",
		"trackName":         "Road America",
	} {
		if first[key] != want {
			t.Errorf("records[0][%q] = %v, expected %q", key, first[key], want)
		}
	}
	if records[1]["marque"] != nil || records[1]["date"] != nil {
		t.Errorf("expected null marque and date, got %v and %v", records[1]["marque"], records[1]["date"])
	}
}

func TestWriteRecordsJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsJSON(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"records": []`) {
		t.Errorf("expected empty records array, got %s", buf.String())
	}
}

func TestRecordsJSONFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.json")
	if err := WriteRecordsJSONFile(path, sampleRecords()); err != nil {
		t.Fatalf("WriteRecordsJSONFile() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	got, err := ReadRecordsJSON(f)
	if err != nil {
		t.Fatalf("ReadRecordsJSON() error = %v", err)
	}
	if len(got) != 2 || got[0].Marque() != "Chevrolet C5 Corvette" || got[1].Vehicle != nil {
		t.Errorf("ReadRecordsJSON() = %+v", got)
	}
}

func TestWriteRecordsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteRecordsCSV(&buf, sampleRecords()); err != nil {
		t.Fatalf("WriteRecordsCSV() error = %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "event_id,event_name,session_id,session_name,classification,lap_time,lap_time_seconds,driver,marque,date,track_name,timestamp,text" {
		t.Errorf("header = %v", rows[0])
	}

	want := []string{"5", "June Sprints", "42", "Race 1", "IT7", "1:17.129", "77.129", "Kevin Fandozzi", "Chevrolet C5 Corvette", "2021-06-05", "Road America", "2021-06-05T14:30:00Z"}
	for i, w := range want {
		if rows[1][i] != w {
			t.Errorf("row 1 column %s = %q, expected %q", CSVHeader[i], rows[1][i], w)
		}
	}

	if rows[2][0] != "" || rows[2][7] != "Jane Doe, Jr." || rows[2][8] != "" {
		t.Errorf("row 2 = %v", rows[2])
	}
	if rows[2][12] != `New Track Record (63.004) for T4 by "Jane Doe, Jr."` {
		t.Errorf("text column = %q", rows[2][12])
	}
}

func TestMalformedLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "malformed_announcements.ndjson")
	log, err := OpenMalformedLog(path)
	if err != nil {
		t.Fatalf("OpenMalformedLog() error = %v", err)
	}

	ann := record.Announcement{
		Text:      "New Track Record (1:17.870) for IT7",
		Timestamp: "2021-06-05T14:30:00Z",
		Metadata:  record.Metadata{SessionID: 42},
	}
	outcome := record.Outcome{Status: record.StatusMalformed, Reason: record.ReasonMissingDriver, Failure: record.FailureDriver}
	if err := log.Append(NewMalformedEntry(ann, outcome)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := log.Append(MalformedEntry{SessionID: 43, Reason: record.ReasonMissingPrefix, AnnouncementText: "Track Record 1:02.3 by Bob"}); err != nil {
		t.Fatal(err)
	}
	if err := log.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if log.Count() != 2 {
		t.Errorf("Count() = %d, expected 2", log.Count())
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var lines []map[string]interface{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["sessionId"] != float64(42) || lines[0]["reason"] != "Missing driverName" ||
		lines[0]["announcementText"] != ann.Text || lines[0]["failure"] != "missing_driver" {
		t.Errorf("line 0 = %v", lines[0])
	}
	if _, ok := lines[1]["failure"]; ok {
		t.Errorf("expected no failure field for a missing prefix, got %v", lines[1])
	}
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	defer store.Close()

	records := sampleRecords()
	if err := store.SaveRecords(ctx, records); err != nil {
		t.Fatalf("SaveRecords() error = %v", err)
	}

	records[0].DriverName = "Kevin Fandozzi II"
	if err := store.SaveRecords(ctx, records[:1]); err != nil {
		t.Fatalf("SaveRecords() upsert error = %v", err)
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("Count() = %d, expected 2", n)
	}

	got, err := store.Records(ctx, "")
	if err != nil {
		t.Fatalf("Records() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].ClassAbbreviation != "IT7" || got[0].DriverName != "Kevin Fandozzi II" {
		t.Errorf("Records()[0] = %+v", got[0])
	}

	it7, err := store.Records(ctx, "it7")
	if err != nil {
		t.Fatal(err)
	}
	if len(it7) != 1 || it7[0].Marque() != "Chevrolet C5 Corvette" {
		t.Errorf("Records(it7) = %+v", it7)
	}
}
