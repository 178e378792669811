// Package prometheus provides Prometheus implementations of the metrics
// interfaces defined in pkg/metrics. Importing this package registers the
// constructors with pkg/metrics.
package prometheus

import (
	"time"

	"github.com/Andreysim/Chat/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterChatMetricsConstructor(NewChatMetrics)
}

// chatMetrics is the Prometheus implementation of metrics.ChatMetrics.
type chatMetrics struct {
	connectionsAccepted prometheus.Counter
	connectionsRejected *prometheus.CounterVec
	sessionsStarted     prometheus.Counter
	sessionDuration     prometheus.Histogram
	recordsDispatched   *prometheus.CounterVec
	broadcastRecipients prometheus.Histogram
	sendFailures        prometheus.Counter
	activeSessions      prometheus.Gauge
}

// NewChatMetrics creates a new Prometheus-backed ChatMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewChatMetrics() metrics.ChatMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &chatMetrics{
		connectionsAccepted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chat_connections_accepted_total",
				Help: "Total number of TCP connections that completed the handshake",
			},
		),
		connectionsRejected: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_connections_rejected_total",
				Help: "Total number of connections closed before a session was installed, by reason",
			},
			[]string{"reason"}, // "name_taken", "bad_handshake"
		),
		sessionsStarted: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chat_sessions_started_total",
				Help: "Total number of sessions installed in the registry",
			},
		),
		sessionDuration: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "chat_session_duration_seconds",
				Help: "Distribution of session lifetimes in seconds",
				Buckets: []float64{
					1,     // probe connections
					10,    // short visits
					60,    // 1m
					300,   // 5m
					1800,  // 30m
					3600,  // 1h
					14400, // 4h - long-lived sessions
				},
			},
		),
		recordsDispatched: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "chat_records_dispatched_total",
				Help: "Total number of records routed to a handler, by command",
			},
			[]string{"command"},
		),
		broadcastRecipients: promauto.With(reg).NewHistogram(
			prometheus.HistogramOpts{
				Name: "chat_broadcast_recipients",
				Help: "Distribution of recipient counts per fan-out",
				Buckets: []float64{
					0,   // broadcast with nobody else connected
					1,   // two-user chat
					2,   // small rooms
					5,   // 5 recipients
					10,  // 10 recipients
					25,  // 25 recipients
					50,  // 50 recipients
					100, // large rooms
				},
			},
		),
		sendFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "chat_send_failures_total",
				Help: "Total number of failed writes to session sockets",
			},
		),
		activeSessions: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "chat_active_sessions",
				Help: "Current number of live sessions",
			},
		),
	}
}

func (m *chatMetrics) ConnectionAccepted() {
	if m == nil {
		return
	}
	m.connectionsAccepted.Inc()
}

func (m *chatMetrics) ConnectionRejected(reason string) {
	if m == nil {
		return
	}
	m.connectionsRejected.WithLabelValues(reason).Inc()
}

func (m *chatMetrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *chatMetrics) SessionEnded(duration time.Duration) {
	if m == nil {
		return
	}
	m.sessionDuration.Observe(duration.Seconds())
}

func (m *chatMetrics) RecordDispatch(command string) {
	if m == nil {
		return
	}
	m.recordsDispatched.WithLabelValues(command).Inc()
}

func (m *chatMetrics) RecordBroadcast(recipients int) {
	if m == nil {
		return
	}
	m.broadcastRecipients.Observe(float64(recipients))
}

func (m *chatMetrics) RecordSendFailure() {
	if m == nil {
		return
	}
	m.sendFailures.Inc()
}

func (m *chatMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}
