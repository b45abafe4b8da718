// Package metrics exposes Prometheus collectors for the chat service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ChatMetrics counts conversation activity and HTTP traffic.
type ChatMetrics struct {
	gatherer prometheus.Gatherer

	submissions   *prometheus.CounterVec
	intents       *prometheus.CounterVec
	routes        *prometheus.CounterVec
	notifications *prometheus.CounterVec
	activeActors  prometheus.Gauge
	advisor       *prometheus.CounterVec
	httpLatency   *prometheus.HistogramVec
}

// NewChatMetrics registers the collectors on reg. A nil reg gets a fresh
// registry so tests can construct several instances.
func NewChatMetrics(reg *prometheus.Registry) *ChatMetrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	m := &ChatMetrics{
		gatherer: reg,
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jalsaathi",
			Subsystem: "chat",
			Name:      "submissions_total",
			Help:      "Conversation submissions by kind and outcome",
		}, []string{"kind", "outcome"}),
		intents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jalsaathi",
			Subsystem: "chat",
			Name:      "intents_total",
			Help:      "Bot replies by classified intent",
		}, []string{"intent"}),
		routes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jalsaathi",
			Subsystem: "chat",
			Name:      "routes_total",
			Help:      "Routing tokens emitted to clients",
		}, []string{"token"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jalsaathi",
			Subsystem: "chat",
			Name:      "notifications_total",
			Help:      "Notifications raised by category",
		}, []string{"category"}),
		activeActors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "jalsaathi",
			Subsystem: "chat",
			Name:      "active_conversations",
			Help:      "Conversation actors currently running",
		}),
		advisor: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "jalsaathi",
			Subsystem: "advisor",
			Name:      "requests_total",
			Help:      "Advisor requests by result",
		}, []string{"result"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "jalsaathi",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
	reg.MustRegister(m.submissions, m.intents, m.routes, m.notifications, m.activeActors, m.advisor, m.httpLatency)
	return m
}

func (m *ChatMetrics) ObserveSubmission(kind, outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(kind, outcome).Inc()
}

func (m *ChatMetrics) ObserveIntent(intent string) {
	if m == nil || intent == "" {
		return
	}
	m.intents.WithLabelValues(intent).Inc()
}

func (m *ChatMetrics) ObserveRoute(token string) {
	if m == nil {
		return
	}
	m.routes.WithLabelValues(token).Inc()
}

func (m *ChatMetrics) ObserveNotification(category string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(category).Inc()
}

func (m *ChatMetrics) ActorStarted() {
	if m == nil {
		return
	}
	m.activeActors.Inc()
}

func (m *ChatMetrics) ActorStopped() {
	if m == nil {
		return
	}
	m.activeActors.Dec()
}

func (m *ChatMetrics) ObserveAdvisor(result string) {
	if m == nil {
		return
	}
	m.advisor.WithLabelValues(result).Inc()
}

func (m *ChatMetrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpLatency.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *ChatMetrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
