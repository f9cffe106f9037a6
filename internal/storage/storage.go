package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/config"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/snapshot"
)

// Storage handles persistence of record snapshots
type Storage struct {
	dataDir string
}

// New creates a new Storage instance, creating dataDir if needed
func New(dataDir string) (*Storage, error) {
	dataDir, err := config.ExpandHome(dataDir)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return &Storage{
		dataDir: dataDir,
	}, nil
}

// DataDir returns the resolved data directory
func (s *Storage) DataDir() string {
	return s.dataDir
}

// snapshotPath returns the path to the snapshot file of an organization
func (s *Storage) snapshotPath(orgID int64) string {
	if orgID == 0 {
		return filepath.Join(s.dataDir, "snapshot.json")
	}
	return filepath.Join(s.dataDir, fmt.Sprintf("snapshot_%d.json", orgID))
}

// LoadSnapshot loads a snapshot from disk
func (s *Storage) LoadSnapshot(orgID int64) (*snapshot.Snapshot, error) {
	data, err := os.ReadFile(s.snapshotPath(orgID))
	if err != nil {
		if os.IsNotExist(err) {
			// No previous snapshot, return empty one
			return snapshot.New(), nil
		}
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}

	var snap snapshot.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("parsing snapshot: %w", err)
	}

	if snap.Records == nil {
		snap.Records = make(map[string]*snapshot.Entry)
	}
	if snap.StableIndex == nil {
		snap.StableIndex = make(map[string]string)
	}

	return &snap, nil
}

// SaveSnapshot saves a snapshot to disk
func (s *Storage) SaveSnapshot(snap *snapshot.Snapshot, orgID int64) error {
	snap.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if err := writeFileAtomic(s.snapshotPath(orgID), data); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	return nil
}

// CreateSnapshotFromRecords creates and saves a snapshot from a list of records
func (s *Storage) CreateSnapshotFromRecords(records []record.Candidate, orgID int64) error {
	snap := snapshot.Create(records, time.Now().UTC().Format(time.RFC3339))
	return s.SaveSnapshot(snap, orgID)
}

// writeFileAtomic writes data to a temp file in the same directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}
