package server

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/Andreysim/Chat/internal/protocol/wire"
)

// Session is the server-side state for one connected client.
//
// A Session is created during the handshake and lives until its worker
// exits. The display name is owned by the Registry: all reads and writes
// go through Registry methods so rename and uniqueness checks stay
// consistent under the registry lock.
type Session struct {
	id         uint64
	slot       int
	name       string // guarded by the registry lock
	conn       net.Conn
	remoteAddr string
	started    time.Time

	// sendMu serializes frame writes so concurrent fan-outs never
	// interleave bytes on the wire.
	sendMu sync.Mutex
}

// ID returns the server-assigned session identifier.
func (s *Session) ID() uint64 { return s.id }

// RemoteAddr returns the peer address captured at accept time.
func (s *Session) RemoteAddr() string { return s.remoteAddr }

// Started returns the time the session was installed.
func (s *Session) Started() time.Time { return s.started }

// Send encodes rec and writes it to the session's connection as one
// framed record.
func (s *Session) Send(rec wire.Record) error {
	body, err := wire.Encode(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.SendBody(body)
}

// SendBody writes an already encoded record body to the connection.
func (s *Session) SendBody(body []byte) error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()
	return wire.WriteFrame(s.conn, body)
}

// Close closes the underlying connection. A worker blocked in a read
// observes net.ErrClosed and exits.
func (s *Session) Close() error {
	return s.conn.Close()
}
