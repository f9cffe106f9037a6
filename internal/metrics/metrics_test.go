package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveAnnouncement(t *testing.T) {
	m := New()
	m.ObserveAnnouncement("accepted")
	m.ObserveAnnouncement("accepted")
	m.ObserveAnnouncement("malformed")

	if got := testutil.ToFloat64(m.announcements.WithLabelValues("accepted")); got != 2 {
		t.Errorf("accepted = %v, expected 2", got)
	}
	if got := testutil.ToFloat64(m.announcements.WithLabelValues("malformed")); got != 1 {
		t.Errorf("malformed = %v, expected 1", got)
	}
}

func TestObserveRequest(t *testing.T) {
	m := New()
	m.ObserveRequest("organization_events", 200, 120*time.Millisecond)
	m.ObserveRequest("organization_events", 0, time.Second)
	m.ObserveRetry("organization_events")

	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("organization_events", "200")); got != 1 {
		t.Errorf("status 200 = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(m.apiRequests.WithLabelValues("organization_events", "error")); got != 1 {
		t.Errorf("status error = %v, expected 1", got)
	}
	if got := testutil.ToFloat64(m.apiRetries.WithLabelValues("organization_events")); got != 1 {
		t.Errorf("retries = %v, expected 1", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveExport("csv", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `speedhive_records_exported_total{format="csv"} 3`) {
		t.Errorf("metrics output missing export counter:\n%s", body)
	}
}
