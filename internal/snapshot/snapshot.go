package snapshot

import (
	"crypto/sha1"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/record"
)

// Change types reported by CompareHolders.
const (
	ChangeNew      = "new"
	ChangeImproved = "improved"
)

// Entry is one record held in a snapshot.
type Entry struct {
	ID        string           `json:"id"`
	StableKey string           `json:"stable_key"`
	Record    record.Candidate `json:"record"`
	FirstSeen time.Time        `json:"first_seen"`
}

// Snapshot is the set of records known at a point in time.
type Snapshot struct {
	Records     map[string]*Entry `json:"records"`      // keyed by Entry.ID
	StableIndex map[string]string `json:"stable_index"` // StableKey → ID of the fastest entry
	ChangeLog   []*Change         `json:"change_log"`
	UpdatedAt   string            `json:"updated_at"`
}

// Change is a record holder change between two snapshots.
type Change struct {
	StableKey  string    `json:"stable_key"`
	RecordID   string    `json:"record_id"`
	ChangeType string    `json:"change_type"`
	OldValue   string    `json:"old_value"`
	NewValue   string    `json:"new_value"`
	DetectedAt time.Time `json:"detected_at"`
}

// DiffResult holds the records absent from the previous snapshot.
type DiffResult struct {
	NewRecords []record.Candidate
	ByClass    map[string][]record.Candidate
}

// RecordID creates a deterministic ID from the session and announcement text.
func RecordID(sessionID int64, text string) string {
	h := sha1.New()
	h.Write([]byte(fmt.Sprintf("%d|%s", sessionID, strings.TrimSpace(text))))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// IDOf returns the record ID of a candidate.
func IDOf(c record.Candidate) string {
	return RecordID(c.Metadata.SessionID, c.Text)
}

// StableKey identifies a record slot: one track, one class.
func StableKey(c record.Candidate) string {
	return strings.ToLower(strings.TrimSpace(c.Track())) + "|" + strings.ToUpper(strings.TrimSpace(c.ClassAbbreviation))
}

// New creates an empty snapshot.
func New() *Snapshot {
	return &Snapshot{
		Records:     make(map[string]*Entry),
		StableIndex: make(map[string]string),
		ChangeLog:   make([]*Change, 0),
	}
}

// Create builds a snapshot from a list of records.
func Create(records []record.Candidate, updatedAt string) *Snapshot {
	snap := New()
	snap.UpdatedAt = updatedAt
	now := time.Now().UTC()

	for _, c := range records {
		snap.add(c, now)
	}
	return snap
}

// Merge adds records to the snapshot, keeping the FirstSeen time of entries
// already present.
func (s *Snapshot) Merge(records []record.Candidate) {
	now := time.Now().UTC()
	for _, c := range records {
		if _, exists := s.Records[IDOf(c)]; exists {
			continue
		}
		s.add(c, now)
	}
}

func (s *Snapshot) add(c record.Candidate, seen time.Time) {
	entry := &Entry{
		ID:        IDOf(c),
		StableKey: StableKey(c),
		Record:    c,
		FirstSeen: seen,
	}
	s.Records[entry.ID] = entry

	holderID, exists := s.StableIndex[entry.StableKey]
	if !exists || faster(c, s.Records[holderID].Record) {
		s.StableIndex[entry.StableKey] = entry.ID
	}
}

// Holder returns the fastest entry for a stable key.
func (s *Snapshot) Holder(stableKey string) (*Entry, bool) {
	id, ok := s.StableIndex[stableKey]
	if !ok {
		return nil, false
	}
	entry, ok := s.Records[id]
	return entry, ok
}

// Diff compares current records against a previous snapshot and returns
// those not seen before.
func Diff(previous *Snapshot, current []record.Candidate) *DiffResult {
	result := &DiffResult{
		NewRecords: make([]record.Candidate, 0),
		ByClass:    make(map[string][]record.Candidate),
	}

	if previous == nil {
		previous = New()
	}

	seen := make(map[string]bool)
	for _, c := range current {
		id := IDOf(c)
		if seen[id] {
			continue
		}
		seen[id] = true

		if _, exists := previous.Records[id]; exists {
			continue
		}
		result.NewRecords = append(result.NewRecords, c)
		result.ByClass[c.ClassAbbreviation] = append(result.ByClass[c.ClassAbbreviation], c)
	}

	sort.SliceStable(result.NewRecords, func(i, j int) bool {
		return less(result.NewRecords[i], result.NewRecords[j])
	})
	for class := range result.ByClass {
		group := result.ByClass[class]
		sort.SliceStable(group, func(i, j int) bool {
			return less(group[i], group[j])
		})
	}

	return result
}

// CompareHolders reports every stable key whose holder is new or faster in
// current than in previous.
func CompareHolders(previous, current *Snapshot) []*Change {
	if previous == nil {
		previous = New()
	}
	var changes []*Change
	now := time.Now().UTC()

	keys := make([]string, 0, len(current.StableIndex))
	for key := range current.StableIndex {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		holder, _ := current.Holder(key)
		if holder == nil {
			continue
		}
		old, exists := previous.Holder(key)
		switch {
		case !exists:
			changes = append(changes, &Change{
				StableKey:  key,
				RecordID:   holder.ID,
				ChangeType: ChangeNew,
				NewValue:   holder.Record.LapTime,
				DetectedAt: now,
			})
		case old.ID != holder.ID && faster(holder.Record, old.Record):
			changes = append(changes, &Change{
				StableKey:  key,
				RecordID:   holder.ID,
				ChangeType: ChangeImproved,
				OldValue:   old.Record.LapTime,
				NewValue:   holder.Record.LapTime,
				DetectedAt: now,
			})
		}
	}
	return changes
}

// faster reports whether a has a lower lap time than b. Records without a
// lap time in seconds never win.
func faster(a, b record.Candidate) bool {
	if a.LapTimeSeconds <= 0 {
		return false
	}
	if b.LapTimeSeconds <= 0 {
		return true
	}
	return a.LapTimeSeconds < b.LapTimeSeconds
}

func less(a, b record.Candidate) bool {
	if a.ClassAbbreviation != b.ClassAbbreviation {
		return a.ClassAbbreviation < b.ClassAbbreviation
	}
	if a.LapTimeSeconds != b.LapTimeSeconds {
		return a.LapTimeSeconds < b.LapTimeSeconds
	}
	return a.Text < b.Text
}
