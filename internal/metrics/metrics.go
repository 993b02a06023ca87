// ABOUTME: Prometheus metrics for the status gateway
// ABOUTME: Counts frames, drops, connections, invalid input, mirror errors and actions

package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "status_gateway"

// Metrics holds all the Prometheus metrics for the gateway. Every method is
// safe to call on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FramesPublished   *prometheus.CounterVec
	FramesDropped     prometheus.Counter
	PushConnections   prometheus.Gauge
	InvalidFrames     prometheus.Counter
	MirrorErrors      *prometheus.CounterVec
	JournalErrors     prometheus.Counter
	AgentActions      *prometheus.CounterVec
	DuplicateRequests prometheus.Counter
}

// New creates a Metrics instance on its own registry, so several gateways
// (or tests) can coexist in one process.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		FramesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_published_total",
			Help:      "Total number of frames published, by event type",
		}, []string{"type"}),
		FramesDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_dropped_total",
			Help:      "Total number of frames dropped for slow subscribers",
		}),
		PushConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "push_connections",
			Help:      "Number of open push-channel connections",
		}),
		InvalidFrames: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_frames_total",
			Help:      "Total number of malformed inbound frames rejected",
		}),
		MirrorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mirror_errors_total",
			Help:      "Total number of mirror publish errors, by sink",
		}, []string{"sink"}),
		JournalErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "journal_errors_total",
			Help:      "Total number of journal write errors",
		}),
		AgentActions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "agent_actions_total",
			Help:      "Total number of agent control actions, by action and outcome",
		}, []string{"action", "outcome"}),
		DuplicateRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_requests_total",
			Help:      "Total number of replayed agent_action request ids",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncFramesPublished counts one published frame of eventType.
func (m *Metrics) IncFramesPublished(eventType string) {
	if m == nil {
		return
	}
	m.FramesPublished.WithLabelValues(eventType).Inc()
}

// AddFramesDropped counts frames lost to full subscriber buffers.
func (m *Metrics) AddFramesDropped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.FramesDropped.Add(float64(n))
}

// ConnectionOpened increments the open connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.PushConnections.Inc()
}

// ConnectionClosed decrements the open connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.PushConnections.Dec()
}

// IncInvalidFrames counts one rejected inbound frame.
func (m *Metrics) IncInvalidFrames() {
	if m == nil {
		return
	}
	m.InvalidFrames.Inc()
}

// IncMirrorErrors counts one failed mirror publish.
func (m *Metrics) IncMirrorErrors(sink string) {
	if m == nil {
		return
	}
	m.MirrorErrors.WithLabelValues(sink).Inc()
}

// IncJournalErrors counts one failed journal write.
func (m *Metrics) IncJournalErrors() {
	if m == nil {
		return
	}
	m.JournalErrors.Inc()
}

// IncAgentActions counts one control action.
func (m *Metrics) IncAgentActions(action, outcome string) {
	if m == nil {
		return
	}
	m.AgentActions.WithLabelValues(action, outcome).Inc()
}

// IncDuplicateRequests counts one replayed request id.
func (m *Metrics) IncDuplicateRequests() {
	if m == nil {
		return
	}
	m.DuplicateRequests.Inc()
}
