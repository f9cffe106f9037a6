package speedhive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pfrederiksen/speedhive-tools/internal/config"
	"github.com/pfrederiksen/speedhive-tools/internal/logger"
	"github.com/pfrederiksen/speedhive-tools/internal/metrics"
)

func newTestClient(t *testing.T, handler http.Handler, pageSize int) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	api := config.API{
		BaseURL:       server.URL,
		UserAgent:     "speedhive-tools-test",
		Timeout:       5 * time.Second,
		PageSize:      pageSize,
		SportCategory: "Motorized",
	}
	retry := config.Retry{
		MaxAttempts:  3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2,
	}
	return New(api, retry, WithMetrics(metrics.New()), WithLogger(logger.New(logger.LevelError, io.Discard)))
}

func TestGetOrganization(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/30476", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); got != "speedhive-tools-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q", got)
		}
		fmt.Fprint(w, `{"id":30476,"name":"Waterford Hills","country":{"name":"United States","alpha2":"US"}}`)
	})
	c := newTestClient(t, mux, 25)

	org, err := c.GetOrganization(context.Background(), 30476)
	if err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}
	if org.ResolvedID() != 30476 || org.Name != "Waterford Hills" {
		t.Errorf("GetOrganization() = %+v", org)
	}
	if org.Country == nil || org.Country.Alpha2 != "US" {
		t.Errorf("Country = %+v", org.Country)
	}
}

func TestOrganizationEventsPagination(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/1/events", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		q := r.URL.Query()
		if q.Get("sportCategory") != "Motorized" {
			t.Errorf("sportCategory = %q", q.Get("sportCategory"))
		}
		if q.Get("count") != "2" {
			t.Errorf("count = %q, want 2", q.Get("count"))
		}
		offset, _ := strconv.Atoi(q.Get("offset"))
		switch offset {
		case 0:
			fmt.Fprint(w, `[{"id":1,"name":"A"},{"id":2,"name":"B"}]`)
		case 2:
			fmt.Fprint(w, `{"events":[{"id":3,"name":"C"},{"id":4,"name":"D"}]}`)
		case 4:
			fmt.Fprint(w, `[{"id":5,"name":"E"}]`)
		default:
			t.Errorf("unexpected offset %d", offset)
			fmt.Fprint(w, `[]`)
		}
	})
	c := newTestClient(t, mux, 2)

	events, err := c.OrganizationEvents(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("OrganizationEvents() error = %v", err)
	}
	if len(events) != 5 {
		t.Fatalf("got %d events, want 5", len(events))
	}
	if events[4].DisplayName() != "E" {
		t.Errorf("last event = %+v", events[4])
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestRequestQuery(t *testing.T) {
	var queries []string
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/1/events", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, `[{"id":1,"name":"A"}]`)
	})
	mux.HandleFunc("/organizations/1", func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		fmt.Fprint(w, `{"id":1,"name":"A"}`)
	})
	c := newTestClient(t, mux, 2)

	if _, err := c.OrganizationEvents(context.Background(), 1, 0); err != nil {
		t.Fatalf("OrganizationEvents() error = %v", err)
	}
	if _, err := c.GetOrganization(context.Background(), 1); err != nil {
		t.Fatalf("GetOrganization() error = %v", err)
	}

	expected := []string{"count=2&offset=0&sportCategory=Motorized", ""}
	if len(queries) != len(expected) {
		t.Fatalf("got %d requests, want %d: %q", len(queries), len(expected), queries)
	}
	for i := range expected {
		if queries[i] != expected[i] {
			t.Errorf("request %d query = %q, want %q", i, queries[i], expected[i])
		}
	}
}

func TestOrganizationEventsMax(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/1/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"id":1},{"id":2}]`)
	})
	c := newTestClient(t, mux, 2)

	events, err := c.OrganizationEvents(context.Background(), 1, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want 3", len(events))
	}
}

func TestRetryOnServiceUnavailable(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/7/announcements", func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"rows":[{"timestamp":"2021-06-05T14:30:00Z","text":"New Track Record (1:17.870) for IT7 by Bob Cross."}]}`)
	})
	c := newTestClient(t, mux, 25)

	rows, err := c.SessionAnnouncements(context.Background(), 7)
	if err != nil {
		t.Fatalf("SessionAnnouncements() error = %v", err)
	}
	if len(rows) != 1 || rows[0].Text == "" {
		t.Fatalf("rows = %+v", rows)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestRetriesExhausted(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/time", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	})
	c := newTestClient(t, mux, 25)

	_, err := c.ServerTime(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("ServerTime() error = %v, want 502 APIError", err)
	}
	if got := atomic.LoadInt32(&calls); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
}

func TestNotFoundIsPermanent(t *testing.T) {
	var calls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/events/99", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "no such event", http.StatusNotFound)
	})
	c := newTestClient(t, mux, 25)

	_, err := c.GetEvent(context.Background(), 99, true)
	if !IsNotFound(err) {
		t.Fatalf("GetEvent() error = %v, want not found", err)
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("made %d requests, want 1", got)
	}
}

func TestEventSessionsFlattensGroups(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/5", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sessions") != "true" {
			t.Errorf("sessions query = %q", r.URL.Query().Get("sessions"))
		}
		fmt.Fprint(w, `{
			"id": 5,
			"name": "June Sprints",
			"location": {"name": "Road America"},
			"sessions": {
				"sessions": [{"id": 1, "name": "Practice"}],
				"groups": [
					{"name": "Group 1", "sessions": [{"id": 2, "name": "Qualifying"}],
					 "subGroups": [{"name": "Group 1a", "sessions": [{"id": 3, "name": "Race"}]}]},
					{"name": "Group 2", "sessions": [{"id": 4, "name": "Race 2"}]}
				]
			}
		}`)
	})
	c := newTestClient(t, mux, 25)

	sessions, err := c.EventSessions(context.Background(), 5)
	if err != nil {
		t.Fatalf("EventSessions() error = %v", err)
	}
	var ids []int64
	for _, s := range sessions {
		ids = append(ids, s.ResolvedID())
	}
	want := []int64{1, 2, 3, 4}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("session ids = %v, want %v", ids, want)
	}
}

func TestEventSessionsAsList(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events/6", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"id": 6, "sessions": [{"sessionId": 10}, {"sessionId": 11}]}`)
	})
	c := newTestClient(t, mux, 25)

	sessions, err := c.EventSessions(context.Background(), 6)
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 2 || sessions[1].ResolvedID() != 11 {
		t.Errorf("sessions = %+v", sessions)
	}
}

func TestSessionLapsAndClassification(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions/8/lapdata/1/laps", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"laps":[{"lapNumber":1,"lapTime":"1:20.100"},{"lapNumber":2,"lapTime":"1:18.002","speed":142.5}]}`)
	})
	mux.HandleFunc("/sessions/8/classification", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"rows":[{"position":1,"startNumber":42,"name":"Bob Cross","bestTime":"1:18.002"}]}`)
	})
	c := newTestClient(t, mux, 25)

	laps, err := c.SessionLaps(context.Background(), 8, 1)
	if err != nil {
		t.Fatalf("SessionLaps() error = %v", err)
	}
	if len(laps) != 2 || laps[1].LapTime != "1:18.002" || laps[1].Speed != "142.5" {
		t.Errorf("laps = %+v", laps)
	}

	rows, err := c.SessionClassification(context.Background(), 8)
	if err != nil {
		t.Fatalf("SessionClassification() error = %v", err)
	}
	if len(rows) != 1 || rows[0].StartNumber != "42" || rows[0].BestLapTime != "1:18.002" {
		t.Errorf("classification = %+v", rows)
	}
}

func TestFindOrganizations(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("sport") != "All" {
			t.Errorf("sport = %q", r.URL.Query().Get("sport"))
		}
		fmt.Fprint(w, `[
			{"id":1,"organization":{"id":30476,"name":"Waterford Hills"}},
			{"id":2,"organization":{"id":12,"name":"Road America"}},
			{"id":3,"organization":{"id":30476,"name":"Waterford Hills"}}
		]`)
	})
	c := newTestClient(t, mux, 25)

	orgs, err := c.FindOrganizations(context.Background(), "waterford", 100)
	if err != nil {
		t.Fatal(err)
	}
	if len(orgs) != 1 || orgs[0].ResolvedID() != 30476 {
		t.Errorf("FindOrganizations() = %+v", orgs)
	}
}

func TestContextCancelled(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/organizations/1/events", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})
	c := newTestClient(t, mux, 25)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.OrganizationEvents(ctx, 1, 0); !errors.Is(err, context.Canceled) {
		t.Errorf("OrganizationEvents() error = %v, want context.Canceled", err)
	}
}

func TestServerTime(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/time", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `"2024-05-01T12:00:00Z"`)
	})
	c := newTestClient(t, mux, 25)

	got, err := c.ServerTime(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got != "2024-05-01T12:00:00Z" {
		t.Errorf("ServerTime() = %q", got)
	}
}
