package logger

import (
	"log/slog"
)

// Standard field keys for structured logging.
// Use these keys consistently across all log statements for log aggregation and querying.
const (
	// ========================================================================
	// Distributed Tracing
	// ========================================================================
	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking

	// ========================================================================
	// Protocol & Operation
	// ========================================================================
	KeyCommand    = "command"    // Chat command name: broadcast, private_message, etc.
	KeyFrom       = "from"       // Sender name carried by a record
	KeyTo         = "to"         // Addressee name carried by a private message
	KeyRecipients = "recipients" // Number of sessions a record was delivered to

	// ========================================================================
	// Session & Connection
	// ========================================================================
	KeyClient      = "client"      // Display name of the connected client
	KeySessionID   = "session_id"  // Server-assigned session identifier
	KeyRemoteAddr  = "remote_addr" // Remote address of the connection
	KeyListenAddr  = "listen_addr" // Address the server listens on
	KeySessions    = "sessions"    // Number of active sessions
	KeyPort        = "port"        // TCP port number

	// ========================================================================
	// I/O
	// ========================================================================
	KeyBytes = "bytes" // Payload size in bytes

	// ========================================================================
	// Operation Metadata
	// ========================================================================
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
	KeyReason     = "reason"      // Why a session or operation ended
	KeyPath       = "path"        // File path (config, log file)
	KeyAddr       = "addr"        // Generic network address (metrics endpoint, etc.)
)

// ============================================================================
// Field constructors for type safety
// These functions provide type-safe construction of slog.Attr values.
// ============================================================================

// ----------------------------------------------------------------------------
// Distributed Tracing
// ----------------------------------------------------------------------------

// TraceID returns a slog.Attr for OpenTelemetry trace ID
func TraceID(id string) slog.Attr {
	return slog.String(KeyTraceID, id)
}

// SpanID returns a slog.Attr for OpenTelemetry span ID
func SpanID(id string) slog.Attr {
	return slog.String(KeySpanID, id)
}

// ----------------------------------------------------------------------------
// Protocol & Operation
// ----------------------------------------------------------------------------

// Command returns a slog.Attr for a chat command name
func Command(name string) slog.Attr {
	return slog.String(KeyCommand, name)
}

// From returns a slog.Attr for the sender name of a record
func From(name string) slog.Attr {
	return slog.String(KeyFrom, name)
}

// To returns a slog.Attr for the addressee of a private message
func To(name string) slog.Attr {
	return slog.String(KeyTo, name)
}

// Recipients returns a slog.Attr for delivery fan-out size
func Recipients(n int) slog.Attr {
	return slog.Int(KeyRecipients, n)
}

// ----------------------------------------------------------------------------
// Session & Connection
// ----------------------------------------------------------------------------

// Client returns a slog.Attr for a client display name
func Client(name string) slog.Attr {
	return slog.String(KeyClient, name)
}

// SessionID returns a slog.Attr for a server-assigned session identifier
func SessionID(id uint64) slog.Attr {
	return slog.Uint64(KeySessionID, id)
}

// RemoteAddr returns a slog.Attr for the remote address of a connection
func RemoteAddr(addr string) slog.Attr {
	return slog.String(KeyRemoteAddr, addr)
}

// ListenAddr returns a slog.Attr for the server listen address
func ListenAddr(addr string) slog.Attr {
	return slog.String(KeyListenAddr, addr)
}

// Sessions returns a slog.Attr for the number of active sessions
func Sessions(n int) slog.Attr {
	return slog.Int(KeySessions, n)
}

// Port returns a slog.Attr for a TCP port number
func Port(port int) slog.Attr {
	return slog.Int(KeyPort, port)
}

// ----------------------------------------------------------------------------
// I/O
// ----------------------------------------------------------------------------

// Bytes returns a slog.Attr for a payload size
func Bytes(n int) slog.Attr {
	return slog.Int(KeyBytes, n)
}

// ----------------------------------------------------------------------------
// Operation Metadata
// ----------------------------------------------------------------------------

// DurationMs returns a slog.Attr for duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}

// Reason returns a slog.Attr explaining why a session or operation ended
func Reason(r string) slog.Attr {
	return slog.String(KeyReason, r)
}

// Path returns a slog.Attr for a file path
func Path(p string) slog.Attr {
	return slog.String(KeyPath, p)
}

// Addr returns a slog.Attr for a generic network address
func Addr(a string) slog.Attr {
	return slog.String(KeyAddr, a)
}
