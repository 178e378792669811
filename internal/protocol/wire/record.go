// Package wire implements the chat wire protocol: the binary record codec
// and the length-prefixed framing both the server and the client speak.
//
// A record travels as a u32 little-endian length prefix followed by the
// record body. The body is a fixed header (timestamp + command) followed by
// NUL-terminated UTF-16LE text fields whose presence depends on the command.
package wire

import "time"

// Command identifies the operation a chat record carries.
type Command uint32

const (
	// Error marks a record that failed validation or decoding. It is never
	// produced by a well-behaved peer; decoders return it for malformed
	// input.
	Error Command = iota
	BroadcastMessage
	PrivateMessage
	ChangeName
	ListClients
	ClientConnect
	ServerMsg
	// Help is client-local and never transmitted.
	Help

	commandCount
)

// Valid reports whether c is a known non-Error command value.
func (c Command) Valid() bool {
	return c > Error && c < commandCount
}

// HasPayload reports whether records with this command carry a Msg field on
// the wire. ClientConnect and ListClients are header-plus-sender only.
func (c Command) HasPayload() bool {
	return c.Valid() && c != ClientConnect && c != ListClients
}

func (c Command) String() string {
	switch c {
	case Error:
		return "error"
	case BroadcastMessage:
		return "broadcast_message"
	case PrivateMessage:
		return "private_message"
	case ChangeName:
		return "change_name"
	case ListClients:
		return "list_clients"
	case ClientConnect:
		return "client_connect"
	case ServerMsg:
		return "server_msg"
	case Help:
		return "help"
	default:
		return "unknown"
	}
}

// Record is a single chat message as exchanged between client and server.
//
// The zero value has Command == Error, which every consumer treats as "not a
// valid record".
type Record struct {
	// Timestamp is seconds since the Unix epoch on the sender's clock.
	Timestamp uint64

	Command Command

	// From is the sender display name. Non-empty for any valid record.
	From string

	// To is the recipient display name. Set only for PrivateMessage.
	To string

	// Msg is the payload text. Empty for ClientConnect and ListClients,
	// non-empty for every other valid command.
	Msg string
}

// Time converts the record timestamp to local time.
func (r Record) Time() time.Time {
	return time.Unix(int64(r.Timestamp), 0)
}

// Now returns the current time in the record timestamp representation.
func Now() uint64 {
	return uint64(time.Now().Unix())
}
