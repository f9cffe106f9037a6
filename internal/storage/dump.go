package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pfrederiksen/speedhive-tools/internal/config"
	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/speedhive"
)

// Dump stream names.
const (
	StreamEvents        = "events"
	StreamSessions      = "sessions"
	StreamAnnouncements = "announcements"
	StreamLaps          = "laps"

	ManifestFile = "manifest.json"
)

// Source is the part of the results API a dump reads from.
type Source interface {
	OrganizationEvents(ctx context.Context, orgID int64, max int) ([]speedhive.Event, error)
	EventSessions(ctx context.Context, eventID int64) ([]speedhive.Session, error)
	SessionAnnouncements(ctx context.Context, sessionID int64) ([]speedhive.Announcement, error)
	SessionLaps(ctx context.Context, sessionID int64, position int) ([]speedhive.LapRow, error)
}

// AnnouncementRow is one line of the announcements stream.
type AnnouncementRow struct {
	EventID   int64                `json:"eventId"`
	SessionID int64                `json:"sessionId"`
	Timestamp speedhive.FlexString `json:"timestamp"`
	Text      string               `json:"text"`
}

// LapDumpRow is one line of the laps stream.
type LapDumpRow struct {
	EventID    int64 `json:"eventId"`
	SessionID  int64 `json:"sessionId"`
	Competitor int   `json:"competitor"`
	speedhive.LapRow
}

// Manifest describes one dump run.
type Manifest struct {
	RunID      string         `json:"runId"`
	OrgID      int64          `json:"orgId"`
	StartedAt  time.Time      `json:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt"`
	Compressed bool           `json:"compressed"`
	Counts     map[string]int `json:"counts"`
	Errors     []string       `json:"errors,omitempty"`
}

// Dumper exports everything an organization published into NDJSON files.
type Dumper struct {
	src          Source
	concurrency  int
	lapPositions int
	includeLaps  bool
	compress     bool
	maxEvents    int
	log          *logger.Logger
}

// NewDumper creates a dumper from the dump configuration section.
func NewDumper(src Source, cfg config.Dump, compress bool, log *logger.Logger) *Dumper {
	if log == nil {
		log = logger.Default()
	}
	d := &Dumper{
		src:          src,
		concurrency:  cfg.Concurrency,
		lapPositions: cfg.LapPositions,
		includeLaps:  cfg.IncludeLaps,
		compress:     compress,
		log:          log,
	}
	if d.concurrency < 1 {
		d.concurrency = 1
	}
	return d
}

// SetMaxEvents limits how many events are dumped. Zero means all.
func (d *Dumper) SetMaxEvents(n int) {
	d.maxEvents = n
}

type dumpWriters struct {
	events, sessions, announcements, laps *NDJSONWriter
}

func (w *dumpWriters) all() []*NDJSONWriter {
	out := []*NDJSONWriter{w.events, w.sessions, w.announcements}
	if w.laps != nil {
		out = append(out, w.laps)
	}
	return out
}

// DumpOrganization writes the organization's events, sessions,
// announcements and laps into dir and returns the manifest. Failures of
// single sessions are logged and recorded in the manifest; cancellation and
// event listing failures abort the dump.
func (d *Dumper) DumpOrganization(ctx context.Context, orgID int64, dir string) (*Manifest, error) {
	dir, err := config.ExpandHome(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating dump directory: %w", err)
	}

	manifest := &Manifest{
		RunID:      uuid.NewString(),
		OrgID:      orgID,
		StartedAt:  time.Now().UTC(),
		Compressed: d.compress,
		Counts:     make(map[string]int),
	}
	log := d.log.With(logger.Fields{"run_id": manifest.RunID, "org_id": orgID})
	log.Info("Starting dump", logger.Fields{"dir": dir, "concurrency": d.concurrency})

	writers, err := d.openWriters(dir)
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			for _, w := range writers.all() {
				w.Close()
			}
		}
	}()

	events, err := d.src.OrganizationEvents(ctx, orgID, d.maxEvents)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	for _, e := range events {
		e.Sessions = nil
		if err := writers.events.Write(e); err != nil {
			return nil, err
		}
	}

	var (
		mu   sync.Mutex
		errs []string
		wg   sync.WaitGroup
	)
	jobs := make(chan speedhive.Event)
	for i := 0; i < d.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for e := range jobs {
				for _, msg := range d.dumpEvent(ctx, e, writers, log) {
					mu.Lock()
					errs = append(errs, msg)
					mu.Unlock()
				}
			}
		}()
	}

feed:
	for _, e := range events {
		select {
		case jobs <- e:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	closed = true
	for _, w := range writers.all() {
		if err := w.Close(); err != nil {
			return nil, err
		}
	}

	manifest.Counts[StreamEvents] = writers.events.Count()
	manifest.Counts[StreamSessions] = writers.sessions.Count()
	manifest.Counts[StreamAnnouncements] = writers.announcements.Count()
	if writers.laps != nil {
		manifest.Counts[StreamLaps] = writers.laps.Count()
	}
	manifest.Errors = errs
	manifest.FinishedAt = time.Now().UTC()

	if err := WriteManifest(dir, manifest); err != nil {
		return nil, err
	}
	log.Info("Dump complete", logger.Fields{"counts": manifest.Counts, "errors": len(errs)})
	return manifest, nil
}

func (d *Dumper) openWriters(dir string) (*dumpWriters, error) {
	names := []string{StreamEvents, StreamSessions, StreamAnnouncements}
	if d.includeLaps && d.lapPositions > 0 {
		names = append(names, StreamLaps)
	}

	opened := make(map[string]*NDJSONWriter, len(names))
	for _, name := range names {
		w, err := CreateNDJSON(filepath.Join(dir, name+ndjsonExt), d.compress)
		if err != nil {
			for _, o := range opened {
				o.Close()
			}
			return nil, err
		}
		opened[name] = w
	}

	return &dumpWriters{
		events:        opened[StreamEvents],
		sessions:      opened[StreamSessions],
		announcements: opened[StreamAnnouncements],
		laps:          opened[StreamLaps],
	}, nil
}

// dumpEvent writes one event's sessions and their rows and returns the
// failures it skipped over.
func (d *Dumper) dumpEvent(ctx context.Context, e speedhive.Event, w *dumpWriters, log *logger.Logger) []string {
	eventID := e.ResolvedID()
	var failures []string
	fail := func(msg string, err error, fields logger.Fields) {
		fields["event_id"] = eventID
		fields["error"] = err.Error()
		log.Warn(msg, fields)
		failures = append(failures, fmt.Sprintf("%s: %v", msg, err))
	}

	sessions, err := d.src.EventSessions(ctx, eventID)
	if err != nil {
		if ctx.Err() == nil {
			fail("Failed to fetch sessions", err, logger.Fields{})
		}
		return failures
	}

	for _, s := range sessions {
		if ctx.Err() != nil {
			return failures
		}
		s.EventID = eventID
		sessionID := s.ResolvedID()
		if err := w.sessions.Write(s); err != nil {
			fail("Failed to write session", err, logger.Fields{"session_id": sessionID})
			continue
		}

		rows, err := d.src.SessionAnnouncements(ctx, sessionID)
		if err != nil {
			if !speedhive.IsNotFound(err) && ctx.Err() == nil {
				fail("Failed to fetch announcements", err, logger.Fields{"session_id": sessionID})
			}
		}
		for _, row := range rows {
			if err := w.announcements.Write(AnnouncementRow{EventID: eventID, SessionID: sessionID, Timestamp: row.Timestamp, Text: row.Text}); err != nil {
				fail("Failed to write announcement", err, logger.Fields{"session_id": sessionID})
				break
			}
		}

		if w.laps == nil {
			continue
		}
		for pos := 1; pos <= d.lapPositions; pos++ {
			laps, err := d.src.SessionLaps(ctx, sessionID, pos)
			if err != nil {
				if !speedhive.IsNotFound(err) && ctx.Err() == nil {
					fail("Failed to fetch laps", err, logger.Fields{"session_id": sessionID, "position": pos})
				}
				break
			}
			if len(laps) == 0 {
				break
			}
			for _, lap := range laps {
				if err := w.laps.Write(LapDumpRow{EventID: eventID, SessionID: sessionID, Competitor: pos, LapRow: lap}); err != nil {
					fail("Failed to write lap", err, logger.Fields{"session_id": sessionID})
					break
				}
			}
		}
	}
	return failures
}

// WriteManifest writes manifest.json into dir.
func WriteManifest(dir string, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding manifest: %w", err)
	}
	if err := writeFileAtomic(filepath.Join(dir, ManifestFile), data); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	return nil
}

// ReadManifest reads manifest.json from dir.
func ReadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}

// LoadDumpAnnouncements reads a dump directory back into announcements with
// event and session metadata attached. Announcements whose session or event
// is missing from the dump keep the ids they were written with.
func LoadDumpAnnouncements(dir string) ([]record.Announcement, error) {
	dir, err := config.ExpandHome(dir)
	if err != nil {
		return nil, err
	}

	events := make(map[int64]speedhive.Event)
	if path, ok := ResolveNDJSON(dir, StreamEvents); ok {
		err := ReadNDJSON(path, func(raw json.RawMessage) error {
			var e speedhive.Event
			if json.Unmarshal(raw, &e) == nil {
				events[e.ResolvedID()] = e
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sessions := make(map[int64]speedhive.Session)
	if path, ok := ResolveNDJSON(dir, StreamSessions); ok {
		err := ReadNDJSON(path, func(raw json.RawMessage) error {
			var s speedhive.Session
			if json.Unmarshal(raw, &s) == nil {
				sessions[s.ResolvedID()] = s
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	path, ok := ResolveNDJSON(dir, StreamAnnouncements)
	if !ok {
		return nil, fmt.Errorf("no %s stream in %s", StreamAnnouncements, dir)
	}

	var out []record.Announcement
	err = ReadNDJSON(path, func(raw json.RawMessage) error {
		var row AnnouncementRow
		if json.Unmarshal(raw, &row) != nil {
			return nil
		}
		session, ok := sessions[row.SessionID]
		if !ok {
			session = speedhive.Session{SessionID: row.SessionID, EventID: row.EventID}
		}
		eventID := row.EventID
		if eventID == 0 {
			eventID = session.EventID
		}
		event, ok := events[eventID]
		if !ok {
			event = speedhive.Event{EventID: eventID}
		}
		out = append(out, speedhive.ToRecordAnnouncement(event, session, speedhive.Announcement{Timestamp: row.Timestamp, Text: row.Text}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
