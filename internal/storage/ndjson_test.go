package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type row struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

func TestNDJSONRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		name := "plain"
		if compress {
			name = "gzip"
		}
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			w, err := CreateNDJSON(filepath.Join(dir, "rows.ndjson"), compress)
			if err != nil {
				t.Fatalf("CreateNDJSON() error = %v", err)
			}
			for i := 1; i <= 3; i++ {
				if err := w.Write(row{ID: i, Text: "a <b> & c"}); err != nil {
					t.Fatalf("Write() error = %v", err)
				}
			}
			if err := w.Close(); err != nil {
				t.Fatalf("Close() error = %v", err)
			}
			if w.Count() != 3 {
				t.Errorf("Count() = %d, expected 3", w.Count())
			}
			if compress && filepath.Ext(w.Path()) != ".gz" {
				t.Errorf("Path() = %q, expected .gz suffix", w.Path())
			}

			path, ok := ResolveNDJSON(dir, "rows")
			if !ok || path != w.Path() {
				t.Fatalf("ResolveNDJSON() = %q, %v, expected %q", path, ok, w.Path())
			}

			var got []row
			err = ReadNDJSON(path, func(raw json.RawMessage) error {
				var r row
				if err := json.Unmarshal(raw, &r); err != nil {
					return err
				}
				got = append(got, r)
				return nil
			})
			if err != nil {
				t.Fatalf("ReadNDJSON() error = %v", err)
			}
			if len(got) != 3 || got[2].ID != 3 || got[0].Text != "a <b> & c" {
				t.Errorf("ReadNDJSON() = %+v", got)
			}
		})
	}
}

func TestReadNDJSONSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.ndjson")
	content := "{\"id\":1}\n\n   \nnot json\n{\"id\":2\n{\"id\":3}\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	var ids []int
	err := ReadNDJSON(path, func(raw json.RawMessage) error {
		var r row
		if err := json.Unmarshal(raw, &r); err != nil {
			return err
		}
		ids = append(ids, r.ID)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadNDJSON() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != 1 || ids[1] != 3 {
		t.Errorf("ids = %v, expected [1 3]", ids)
	}
}

func TestResolveNDJSONPrefersCompressed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"events.ndjson", "events.ndjson.gz"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	path, ok := ResolveNDJSON(dir, "events")
	if !ok || filepath.Base(path) != "events.ndjson.gz" {
		t.Errorf("ResolveNDJSON() = %q, %v", path, ok)
	}
	if _, ok := ResolveNDJSON(dir, "sessions"); ok {
		t.Error("expected no sessions stream")
	}
}
