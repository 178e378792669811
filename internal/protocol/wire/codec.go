package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

const (
	// headerSize is timestamp (8 bytes) plus command (4 bytes).
	headerSize = 12

	// minRecordSize is the smallest decodable body: the header plus one
	// code unit of sender name and its NUL terminator.
	minRecordSize = headerSize + 2*2
)

// Encode serializes r into a record body.
//
// Validation happens before any byte is produced: the command must be a
// transmittable value, From must be non-empty, PrivateMessage records need a
// recipient, and payload-bearing commands need a non-empty Msg.
func Encode(r Record) ([]byte, error) {
	if !r.Command.Valid() {
		return nil, fmt.Errorf("wire: cannot encode command %d", uint32(r.Command))
	}
	if r.From == "" {
		return nil, errors.New("wire: empty sender name")
	}
	if r.Command == PrivateMessage && r.To == "" {
		return nil, errors.New("wire: private message without recipient")
	}
	payload := r.Command.HasPayload()
	if payload && r.Msg == "" {
		return nil, errors.New("wire: empty message payload")
	}

	from := utf16.Encode([]rune(r.From))
	var to, msg []uint16
	size := headerSize + 2*(len(from)+1)
	if r.Command == PrivateMessage {
		to = utf16.Encode([]rune(r.To))
		size += 2 * (len(to) + 1)
	}
	if payload {
		msg = utf16.Encode([]rune(r.Msg))
		size += 2 * (len(msg) + 1)
	}

	buf := make([]byte, size)
	binary.LittleEndian.PutUint64(buf[0:8], r.Timestamp)
	binary.LittleEndian.PutUint32(buf[8:headerSize], uint32(r.Command))
	off := putUTF16(buf, headerSize, from)
	if r.Command == PrivateMessage {
		off = putUTF16(buf, off, to)
	}
	if payload {
		putUTF16(buf, off, msg)
	}
	return buf, nil
}

// Decode parses a record body. It never returns an error: malformed input
// yields a Record with Command == Error and no other field set, so callers
// can treat the result as a protocol fault without inspecting partial state.
//
// Failure conditions: body shorter than 16 bytes, unknown command, last code
// unit not NUL, empty sender, or a required field missing or empty. A
// trailing odd byte is ignored. For ClientConnect and ListClients anything
// after the sender name is ignored. Msg spans to the final NUL, so interior
// NULs inside the payload are preserved as content.
func Decode(buf []byte) Record {
	if len(buf) < minRecordSize {
		return Record{}
	}
	ts := binary.LittleEndian.Uint64(buf[0:8])
	cmd := Command(binary.LittleEndian.Uint32(buf[8:headerSize]))
	if !cmd.Valid() {
		return Record{}
	}

	units := decodeUnits(buf[headerSize:])
	if len(units) == 0 || units[len(units)-1] != 0 {
		return Record{}
	}

	from, rest, ok := cutUnits(units)
	if !ok || from == "" {
		return Record{}
	}
	r := Record{Timestamp: ts, Command: cmd, From: from}

	if cmd == ListClients || cmd == ClientConnect {
		return r
	}

	if len(rest) == 0 {
		return Record{}
	}
	if cmd == PrivateMessage {
		to, afterTo, ok := cutUnits(rest)
		if !ok || to == "" {
			return Record{}
		}
		r.To = to
		rest = afterTo
		if len(rest) == 0 {
			return Record{}
		}
	}

	msg := string(utf16.Decode(rest[:len(rest)-1]))
	if msg == "" {
		return Record{}
	}
	r.Msg = msg
	return r
}

// putUTF16 writes units plus a NUL terminator at off and returns the offset
// past the terminator.
func putUTF16(buf []byte, off int, units []uint16) int {
	for _, u := range units {
		binary.LittleEndian.PutUint16(buf[off:], u)
		off += 2
	}
	binary.LittleEndian.PutUint16(buf[off:], 0)
	return off + 2
}

// decodeUnits reads whole little-endian code units, dropping a trailing odd
// byte.
func decodeUnits(b []byte) []uint16 {
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = binary.LittleEndian.Uint16(b[2*i:])
	}
	return units
}

// cutUnits splits units at the first NUL, returning the decoded text before
// it and the units after it.
func cutUnits(units []uint16) (string, []uint16, bool) {
	for i, u := range units {
		if u == 0 {
			return string(utf16.Decode(units[:i])), units[i+1:], true
		}
	}
	return "", nil, false
}
