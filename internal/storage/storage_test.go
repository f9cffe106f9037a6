package storage

import (
	"testing"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/snapshot"
)

func TestSnapshotRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	t.Run("missing snapshot is empty", func(t *testing.T) {
		snap, err := store.LoadSnapshot(30476)
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if len(snap.Records) != 0 || snap.StableIndex == nil {
			t.Errorf("expected empty initialized snapshot, got %+v", snap)
		}
	})

	track := "Road America"
	rec := record.Candidate{
		DriverName:        "Bob Cross",
		LapTime:           "1:17.870",
		LapTimeSeconds:    77.87,
		ClassAbbreviation: "IT7",
		TrackName:         &track,
		Text:              "New Track Record (1:17.870) for IT7 by Bob Cross.",
		Metadata:          record.Metadata{SessionID: 42},
	}

	if err := store.CreateSnapshotFromRecords([]record.Candidate{rec}, 30476); err != nil {
		t.Fatalf("CreateSnapshotFromRecords() error = %v", err)
	}

	t.Run("saved snapshot loads", func(t *testing.T) {
		snap, err := store.LoadSnapshot(30476)
		if err != nil {
			t.Fatalf("LoadSnapshot() error = %v", err)
		}
		if len(snap.Records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(snap.Records))
		}
		if snap.UpdatedAt == "" {
			t.Error("expected UpdatedAt to be set")
		}
	})

	t.Run("snapshots are per organization", func(t *testing.T) {
		snap, err := store.LoadSnapshot(1)
		if err != nil {
			t.Fatal(err)
		}
		if len(snap.Records) != 0 {
			t.Errorf("expected empty snapshot for another organization, got %d records", len(snap.Records))
		}
	})

	t.Run("records are keyed by id", func(t *testing.T) {
		snap, err := store.LoadSnapshot(30476)
		if err != nil {
			t.Fatal(err)
		}
		entry, ok := snap.Records[snapshot.IDOf(rec)]
		if !ok {
			t.Fatalf("record %q missing from snapshot", snapshot.IDOf(rec))
		}
		if entry.Record.DriverName != "Bob Cross" || entry.Record.Track() != "Road America" {
			t.Errorf("stored record = %+v", entry.Record)
		}
	})
}
