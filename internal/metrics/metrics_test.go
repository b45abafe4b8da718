package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestChatMetricsObserve(t *testing.T) {
	m := NewChatMetrics(nil)
	m.ObserveSubmission("text", "accepted")
	m.ObserveSubmission("text", "accepted")
	m.ObserveIntent("WATER_STATUS_INQUIRY")
	m.ObserveIntent("")
	m.ObserveRoute("report")
	m.ObserveNotification("LOCATION_FAILED")
	m.ActorStarted()
	m.ActorStarted()
	m.ActorStopped()
	m.ObserveAdvisor("ok")
	m.ObserveHTTP(http.MethodGet, "", http.StatusOK, 10*time.Millisecond)

	if got := testutil.ToFloat64(m.submissions.WithLabelValues("text", "accepted")); got != 2 {
		t.Fatalf("expected 2 submissions, got %v", got)
	}
	if got := testutil.ToFloat64(m.activeActors); got != 1 {
		t.Fatalf("expected 1 active actor, got %v", got)
	}
	if got := testutil.CollectAndCount(m.intents); got != 1 {
		t.Fatalf("empty intent should not be recorded, got %d series", got)
	}
}

func TestChatMetricsHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewChatMetrics(reg)
	m.ObserveRoute("map")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `jalsaathi_chat_routes_total{token="map"} 1`) {
		t.Fatalf("route counter missing from output:\n%s", rec.Body.String())
	}
}

func TestChatMetricsNilSafe(t *testing.T) {
	var m *ChatMetrics
	m.ObserveSubmission("text", "accepted")
	m.ObserveIntent("GENERAL")
	m.ObserveRoute("map")
	m.ObserveNotification("LOCATION_SHARED")
	m.ActorStarted()
	m.ActorStopped()
	m.ObserveAdvisor("error")
	m.ObserveHTTP(http.MethodPost, "/x", 500, time.Second)
	if m.Handler() == nil {
		t.Fatalf("expected fallback handler")
	}
}
