package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsCounters(t *testing.T) {
	m := New()

	m.ObserveEvent(OutcomeDuplicate)
	m.ObserveEvent(OutcomeDuplicate)
	m.ObserveEvent(OutcomeProcessing)
	m.ObserveQuery(nil, true, 2*time.Second)
	m.ObserveQuery(errors.New("boom"), false, time.Second)
	m.ObserveReply(nil)
	m.ObserveSessionWrite(errors.New("boom"))
	m.ObserveRateLimited()

	if got := testutil.ToFloat64(m.events.WithLabelValues(OutcomeDuplicate)); got != 2 {
		t.Fatalf("expected 2 duplicate events, got %v", got)
	}
	if got := testutil.ToFloat64(m.queries.WithLabelValues("ok", "continued")); got != 1 {
		t.Fatalf("expected 1 continued ok query, got %v", got)
	}
	if got := testutil.ToFloat64(m.queries.WithLabelValues("error", "new")); got != 1 {
		t.Fatalf("expected 1 failed new query, got %v", got)
	}
	if got := testutil.ToFloat64(m.sessionWrites.WithLabelValues("error")); got != 1 {
		t.Fatalf("expected 1 failed session write, got %v", got)
	}
	if got := testutil.ToFloat64(m.rateLimited); got != 1 {
		t.Fatalf("expected 1 rate limited message, got %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := New()
	m.ObserveReply(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "kb_relay_replies_total") {
		t.Fatalf("expected replies counter in exposition, got %s", body)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveEvent(OutcomeIgnored)
	m.ObserveQuery(nil, false, time.Second)
	m.ObserveReply(nil)
	m.ObserveSessionWrite(nil)
	m.ObserveRateLimited()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if rec.Code != 404 {
		t.Fatalf("expected 404 from nil metrics handler, got %d", rec.Code)
	}
}
