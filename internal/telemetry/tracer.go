package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for chat operations.
// These follow OpenTelemetry semantic conventions where applicable.
// Chat-specific keys use the "chat." prefix.
const (
	// Client attributes
	AttrClientAddr = "client.address"
	AttrClientName = "chat.client"
	AttrSessionID  = "chat.session_id"

	// Command attributes
	AttrCommand     = "chat.command"
	AttrTarget      = "chat.target"
	AttrRecipients  = "chat.recipients"
	AttrRecordBytes = "chat.record_bytes"
	AttrReason      = "chat.reason"
)

// Span names for operations.
// Format: chat.<operation> for protocol operations.
const (
	// Root span covering one client session from accept to disconnect
	SpanSession = "chat.session"

	// Handshake span (first record, name admission)
	SpanHandshake = "chat.handshake"

	// Per-command spans, named chat.<command>
	SpanBroadcast      = "chat.broadcast_message"
	SpanPrivateMessage = "chat.private_message"
	SpanChangeName     = "chat.change_name"
	SpanListClients    = "chat.list_clients"
)

// ClientAddr returns an attribute for the full client address
func ClientAddr(addr string) attribute.KeyValue {
	return attribute.String(AttrClientAddr, addr)
}

// ClientName returns an attribute for the client display name
func ClientName(name string) attribute.KeyValue {
	return attribute.String(AttrClientName, name)
}

// SessionID returns an attribute for the server-assigned session ID
func SessionID(id uint64) attribute.KeyValue {
	return attribute.Int64(AttrSessionID, int64(id))
}

// Command returns an attribute for the chat command name
func Command(name string) attribute.KeyValue {
	return attribute.String(AttrCommand, name)
}

// Target returns an attribute for the addressee of a private message
func Target(name string) attribute.KeyValue {
	return attribute.String(AttrTarget, name)
}

// Recipients returns an attribute for delivery fan-out size
func Recipients(n int) attribute.KeyValue {
	return attribute.Int(AttrRecipients, n)
}

// RecordBytes returns an attribute for the encoded record size
func RecordBytes(n int) attribute.KeyValue {
	return attribute.Int(AttrRecordBytes, n)
}

// Reason returns an attribute explaining why a session or operation ended
func Reason(r string) attribute.KeyValue {
	return attribute.String(AttrReason, r)
}

// StartSessionSpan starts the root span covering a client session.
func StartSessionSpan(ctx context.Context, remoteAddr string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		ClientAddr(remoteAddr),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, SpanSession, trace.WithAttributes(allAttrs...))
}

// StartCommandSpan starts a span for one dispatched chat command.
// The span is named chat.<command>.
func StartCommandSpan(ctx context.Context, command string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := []attribute.KeyValue{
		Command(command),
	}
	allAttrs = append(allAttrs, attrs...)

	return StartSpan(ctx, "chat."+command, trace.WithAttributes(allAttrs...))
}
