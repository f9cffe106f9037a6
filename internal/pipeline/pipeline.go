// Package pipeline collects track records from the results API.
//
// A Collector walks an organization's events, their sessions and each
// session's announcements, screens every announcement and sorts the outcomes
// into accepted records and malformed announcements. ScreenAll does the same
// for announcements already on disk.
package pipeline

import (
	"context"
	"fmt"

	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
	"github.com/pfrederiksen/speedhive-tools/internal/record"
	"github.com/pfrederiksen/speedhive-tools/internal/speedhive"
)

// Source is the part of the results API the collector reads from.
type Source interface {
	OrganizationEvents(ctx context.Context, orgID int64, max int) ([]speedhive.Event, error)
	EventSessions(ctx context.Context, eventID int64) ([]speedhive.Session, error)
	SessionAnnouncements(ctx context.Context, sessionID int64) ([]speedhive.Announcement, error)
}

// Rejected is a malformed announcement together with its outcome.
type Rejected struct {
	Announcement record.Announcement
	Outcome      record.Outcome
}

// Stats counts what a run saw.
type Stats struct {
	Events        int `json:"events"`
	Sessions      int `json:"sessions"`
	Announcements int `json:"announcements"`
	Accepted      int `json:"accepted"`
	Malformed     int `json:"malformed"`
	Ignored       int `json:"ignored"`
	Errors        int `json:"errors"`
}

// Result is the output of a collection run.
type Result struct {
	Records   []record.Candidate
	Malformed []Rejected
	Stats     Stats
}

// add screens one announcement and files the outcome.
func (r *Result) add(a record.Announcement, opts record.ScreenOptions, m *metrics.Metrics, log *logger.Logger) {
	r.Stats.Announcements++
	outcome := record.Screen(a, opts)
	m.ObserveAnnouncement(string(outcome.Status))

	switch outcome.Status {
	case record.StatusAccepted:
		r.Stats.Accepted++
		r.Records = append(r.Records, *outcome.Candidate)
	case record.StatusMalformed:
		r.Stats.Malformed++
		r.Malformed = append(r.Malformed, Rejected{Announcement: a, Outcome: outcome})
		log.Debug("Malformed record announcement", logger.Fields{
			"session_id": a.Metadata.SessionID,
			"reason":     outcome.Reason,
			"text":       a.Text,
		})
	default:
		r.Stats.Ignored++
	}
}

// ScreenAll screens announcements that were already fetched.
func ScreenAll(anns []record.Announcement, opts record.ScreenOptions, m *metrics.Metrics) *Result {
	if m == nil {
		m = metrics.Default
	}
	log := logger.Default()
	result := &Result{}
	for _, a := range anns {
		result.add(a, opts, m, log)
	}
	return result
}

// Collector gathers records for organizations.
type Collector struct {
	src       Source
	opts      record.ScreenOptions
	maxEvents int
	metrics   *metrics.Metrics
	log       *logger.Logger
}

// Option customizes a Collector.
type Option func(*Collector)

// WithMaxEvents limits how many events are walked. Zero means all.
func WithMaxEvents(n int) Option {
	return func(c *Collector) {
		c.maxEvents = n
	}
}

// WithMetrics routes screening counts to m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) {
		c.metrics = m
	}
}

// WithLogger sets the collector's logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Collector) {
		c.log = l
	}
}

// NewCollector creates a collector reading from src.
func NewCollector(src Source, opts record.ScreenOptions, options ...Option) *Collector {
	c := &Collector{
		src:     src,
		opts:    opts,
		metrics: metrics.Default,
		log:     logger.Default(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Collect walks every event and session of an organization. A session or
// event whose data cannot be fetched is logged and skipped; failing to list
// the events, or cancellation, aborts the run.
func (c *Collector) Collect(ctx context.Context, orgID int64) (*Result, error) {
	log := c.log.With(logger.Fields{"org_id": orgID})

	events, err := c.src.OrganizationEvents(ctx, orgID, c.maxEvents)
	if err != nil {
		return nil, fmt.Errorf("listing events for organization %d: %w", orgID, err)
	}
	log.Info("Collecting records", logger.Fields{"events": len(events)})

	result := &Result{}
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result.Stats.Events++

		sessions, err := c.src.EventSessions(ctx, event.ResolvedID())
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			result.Stats.Errors++
			log.Warn("Skipping event", logger.Fields{"event_id": event.ResolvedID(), "error": err.Error()})
			continue
		}

		for _, session := range sessions {
			result.Stats.Sessions++
			rows, err := c.src.SessionAnnouncements(ctx, session.ResolvedID())
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				if !speedhive.IsNotFound(err) {
					result.Stats.Errors++
					log.Warn("Skipping session", logger.Fields{"session_id": session.ResolvedID(), "error": err.Error()})
				}
				continue
			}
			for _, row := range rows {
				result.add(speedhive.ToRecordAnnouncement(event, session, row), c.opts, c.metrics, log)
			}
		}
	}

	log.Info("Collection complete", logger.Fields{
		"sessions":      result.Stats.Sessions,
		"announcements": result.Stats.Announcements,
		"accepted":      result.Stats.Accepted,
		"malformed":     result.Stats.Malformed,
	})
	return result, nil
}
