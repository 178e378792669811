package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// MaxChunk bounds a single write or read while moving a record body
	// across a socket. The length prefix always travels in one piece.
	MaxChunk = 1024

	// MaxFrameSize bounds the length prefix accepted from the wire, keeping
	// a corrupt or hostile peer from forcing an arbitrarily large
	// allocation.
	MaxFrameSize = 1 << 20
)

// ErrFrameTooLarge is returned when a frame body exceeds MaxFrameSize, on
// either side of the wire. The stream is unusable afterwards.
var ErrFrameTooLarge = errors.New("wire: frame exceeds maximum size")

// WriteFrame writes body to w as one length-prefixed frame, chunking the
// body at MaxChunk bytes.
func WriteFrame(w io.Writer, body []byte) error {
	if len(body) > MaxFrameSize {
		return ErrFrameTooLarge
	}
	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write frame prefix: %w", err)
	}
	for off := 0; off < len(body); off += MaxChunk {
		end := off + MaxChunk
		if end > len(body) {
			end = len(body)
		}
		if _, err := w.Write(body[off:end]); err != nil {
			return fmt.Errorf("write frame body: %w", err)
		}
	}
	return nil
}

// ReadFrame reads one length-prefixed frame body from r.
//
// io.EOF on the first prefix byte is returned directly (not wrapped) so
// callers can tell an orderly peer close from a transport fault; a prefix
// cut short mid-read surfaces as a wrapped io.ErrUnexpectedEOF. A zero
// prefix yields an empty body, which decodes to an Error record; it is not a
// disconnect signal.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read frame prefix: %w", err)
	}
	length := binary.LittleEndian.Uint32(prefix[:])
	if length > MaxFrameSize {
		return nil, ErrFrameTooLarge
	}
	body := make([]byte, length)
	for off := 0; off < len(body); off += MaxChunk {
		end := off + MaxChunk
		if end > len(body) {
			end = len(body)
		}
		if _, err := io.ReadFull(r, body[off:end]); err != nil {
			return nil, fmt.Errorf("read frame body: %w", err)
		}
	}
	return body, nil
}

// WriteRecord encodes r and writes it as one frame.
func WriteRecord(w io.Writer, r Record) error {
	body, err := Encode(r)
	if err != nil {
		return err
	}
	return WriteFrame(w, body)
}

// ReadRecord reads one frame and decodes it. A malformed body yields a
// record with Command == Error and a nil error: a protocol fault, not a
// transport fault.
func ReadRecord(r io.Reader) (Record, error) {
	body, err := ReadFrame(r)
	if err != nil {
		return Record{}, err
	}
	return Decode(body), nil
}
