// Package metrics defines the chat server metrics interface and the process
// registry behind it. The Prometheus implementation lives in
// pkg/metrics/prometheus; callers that never call InitRegistry pay nothing.
package metrics

import (
	"time"
)

// ChatMetrics records chat server activity: connection admission, session
// lifecycle, record dispatch, and fan-out outcomes.
//
// A nil ChatMetrics is valid and means "metrics disabled"; use the
// package-level helpers below, which guard against nil, instead of calling
// methods on a possibly-nil value.
type ChatMetrics interface {
	// ConnectionAccepted counts a TCP connection that passed the handshake.
	ConnectionAccepted()

	// ConnectionRejected counts a connection closed before a session was
	// installed. reason is a short label such as "name_taken" or
	// "bad_handshake".
	ConnectionRejected(reason string)

	// SessionStarted counts a session installed in the registry.
	SessionStarted()

	// SessionEnded counts a session leaving the registry and observes how
	// long it was live.
	SessionEnded(duration time.Duration)

	// RecordDispatch counts one routed record by command name.
	RecordDispatch(command string)

	// RecordBroadcast observes the recipient count of one fan-out.
	RecordBroadcast(recipients int)

	// RecordSendFailure counts a failed write to a session socket.
	RecordSendFailure()

	// SetActiveSessions updates the live session gauge.
	SetActiveSessions(n int)
}

// NewChatMetrics creates a new Prometheus-backed ChatMetrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
// When nil is returned, callers should pass nil to the server, which
// results in zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	chatMetrics := metrics.NewChatMetrics()
//	srv := server.New(cfg, server.WithMetrics(chatMetrics))
//
//	// Without metrics (zero overhead)
//	srv := server.New(cfg)
func NewChatMetrics() ChatMetrics {
	if !IsEnabled() {
		return nil
	}

	// Import prometheus package to access implementation
	// This breaks the import cycle by using interface return type
	return newPrometheusChatMetrics()
}

// newPrometheusChatMetrics is implemented in pkg/metrics/prometheus/chat.go
// This indirection avoids import cycles while keeping the API clean
var newPrometheusChatMetrics func() ChatMetrics

// RegisterChatMetricsConstructor registers the Prometheus chat metrics
// constructor. Called by pkg/metrics/prometheus/chat.go during package
// initialization.
func RegisterChatMetricsConstructor(constructor func() ChatMetrics) {
	newPrometheusChatMetrics = constructor
}

// ConnectionAccepted records an accepted connection.
func ConnectionAccepted(m ChatMetrics) {
	if m != nil {
		m.ConnectionAccepted()
	}
}

// ConnectionRejected records a connection rejected before install.
func ConnectionRejected(m ChatMetrics, reason string) {
	if m != nil {
		m.ConnectionRejected(reason)
	}
}

// SessionStarted records a session installed in the registry.
func SessionStarted(m ChatMetrics) {
	if m != nil {
		m.SessionStarted()
	}
}

// SessionEnded records a retired session and its lifetime.
func SessionEnded(m ChatMetrics, duration time.Duration) {
	if m != nil {
		m.SessionEnded(duration)
	}
}

// RecordDispatch records one routed record by command name.
func RecordDispatch(m ChatMetrics, command string) {
	if m != nil {
		m.RecordDispatch(command)
	}
}

// RecordBroadcast records the recipient count of one fan-out.
func RecordBroadcast(m ChatMetrics, recipients int) {
	if m != nil {
		m.RecordBroadcast(recipients)
	}
}

// RecordSendFailure records a failed write to a session socket.
func RecordSendFailure(m ChatMetrics) {
	if m != nil {
		m.RecordSendFailure()
	}
}

// SetActiveSessions updates the live session gauge.
func SetActiveSessions(m ChatMetrics, n int) {
	if m != nil {
		m.SetActiveSessions(n)
	}
}
