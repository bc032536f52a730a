package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kb_relay"

// Resultados de clasificación de un evento entrante.
const (
	OutcomeVerified   = "verified"
	OutcomeDuplicate  = "duplicate"
	OutcomeIgnored    = "ignored"
	OutcomeProcessing = "processing"
)

// Metrics agrupa los colectores del relay. Un *Metrics nil es válido y no registra nada.
type Metrics struct {
	registry      *prometheus.Registry
	events        *prometheus.CounterVec
	queries       *prometheus.CounterVec
	queryDuration prometheus.Histogram
	replies       *prometheus.CounterVec
	sessionWrites *prometheus.CounterVec
	rateLimited   prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Inbound Slack events by classification outcome.",
		}, []string{"outcome"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "knowledge_queries_total",
			Help:      "Retrieve-and-generate calls by result.",
		}, []string{"result", "session"}),
		queryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "knowledge_query_duration_seconds",
			Help:      "Latency of retrieve-and-generate calls.",
			Buckets:   []float64{0.5, 1, 2, 4, 8, 16, 32, 64},
		}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replies_total",
			Help:      "Replies posted to Slack by result.",
		}, []string{"result"}),
		sessionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_writes_total",
			Help:      "Session store writes by result.",
		}, []string{"result"}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Messages rejected by the per-user rate limiter.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.events,
		m.queries,
		m.queryDuration,
		m.replies,
		m.sessionWrites,
		m.rateLimited,
	)
	return m
}

// Handler expone el registry en formato Prometheus.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveEvent(outcome string) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveQuery(err error, continued bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	session := "new"
	if continued {
		session = "continued"
	}
	m.queries.WithLabelValues(result(err), session).Inc()
	m.queryDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveReply(err error) {
	if m == nil {
		return
	}
	m.replies.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveSessionWrite(err error) {
	if m == nil {
		return
	}
	m.sessionWrites.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveRateLimited() {
	if m == nil {
		return
	}
	m.rateLimited.Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
