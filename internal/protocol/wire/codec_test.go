package wire

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildBody assembles a record body by hand so decoder tests do not depend
// on the encoder.
func buildBody(ts uint64, cmd uint32, fields ...[]uint16) []byte {
	buf := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(buf[0:8], ts)
	binary.LittleEndian.PutUint32(buf[8:12], cmd)
	for _, field := range fields {
		for _, u := range field {
			var unit [2]byte
			binary.LittleEndian.PutUint16(unit[:], u)
			buf = append(buf, unit[:]...)
		}
	}
	return buf
}

func units(s string, nulTerminated bool) []uint16 {
	us := make([]uint16, 0, len(s)+1)
	for _, r := range s {
		us = append(us, uint16(r))
	}
	if nulTerminated {
		us = append(us, 0)
	}
	return us
}

func TestEncodeDecode_Roundtrip(t *testing.T) {
	records := []Record{
		{Timestamp: 1700000000, Command: BroadcastMessage, From: "Alice", Msg: "hello there"},
		{Timestamp: 1, Command: PrivateMessage, From: "Alice", To: "Bob", Msg: "psst"},
		{Timestamp: 42, Command: ChangeName, From: "Alice", Msg: "Carol"},
		{Timestamp: 42, Command: ListClients, From: "Alice"},
		{Timestamp: 0x0102030405060708, Command: ClientConnect, From: "Bob"},
		{Timestamp: 99, Command: ServerMsg, From: "Server", Msg: "Bob joined to the chat."},
		{Timestamp: 7, Command: Help, From: "Alice", Msg: "Available commands:"},
		{Timestamp: 3, Command: BroadcastMessage, From: "Алиса", Msg: "привет 日本語"},
		{Timestamp: 5, Command: BroadcastMessage, From: "A", Msg: "  leading spaces kept"},
	}

	for _, rec := range records {
		body, err := Encode(rec)
		require.NoError(t, err, "encode %v", rec.Command)

		got := Decode(body)
		assert.Equal(t, rec, got, "roundtrip %v", rec.Command)
	}
}

// TestEncodeDecode_MinimalConnect covers the 16-byte lower bound: a one
// character name with its terminator is the smallest valid body.
func TestEncodeDecode_MinimalConnect(t *testing.T) {
	rec := Record{Timestamp: 9, Command: ClientConnect, From: "A"}

	body, err := Encode(rec)
	require.NoError(t, err)
	require.Len(t, body, minRecordSize)

	assert.Equal(t, rec, Decode(body))
}

func TestEncode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
	}{
		{"error command", Record{Command: Error, From: "Alice", Msg: "x"}},
		{"unknown command", Record{Command: Command(99), From: "Alice", Msg: "x"}},
		{"empty sender", Record{Command: BroadcastMessage, Msg: "x"}},
		{"private without recipient", Record{Command: PrivateMessage, From: "Alice", Msg: "x"}},
		{"broadcast without payload", Record{Command: BroadcastMessage, From: "Alice"}},
		{"server message without payload", Record{Command: ServerMsg, From: "Server"}},
		{"rename without new name", Record{Command: ChangeName, From: "Alice"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, err := Encode(tt.rec)
			assert.Error(t, err)
			assert.Nil(t, body)
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		body []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"below minimum", make([]byte, minRecordSize-1)},
		{"error command value", buildBody(1, 0, units("Alice", true), units("x", true))},
		{"unknown command value", buildBody(1, 99, units("Alice", true), units("x", true))},
		{"missing final NUL", buildBody(1, uint32(BroadcastMessage), units("Alice", true), units("x", false))},
		{"empty sender", buildBody(1, uint32(BroadcastMessage), units("", true), units("x", true))},
		{"broadcast missing payload", buildBody(1, uint32(BroadcastMessage), units("Alice", true))},
		{"broadcast empty payload", buildBody(1, uint32(BroadcastMessage), units("Alice", true), units("", true))},
		{"private missing recipient", buildBody(1, uint32(PrivateMessage), units("Alice", true))},
		{"private empty recipient", buildBody(1, uint32(PrivateMessage), units("Alice", true), units("", true), units("x", true))},
		{"private missing payload", buildBody(1, uint32(PrivateMessage), units("Alice", true), units("Bob", true))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode(tt.body)
			assert.Equal(t, Record{}, got)
			assert.Equal(t, Error, got.Command)
		})
	}
}

// TestDecode_ConnectIgnoresTrailing mirrors the sender-only commands: once
// the sender name is parsed, the rest of the body is irrelevant.
func TestDecode_ConnectIgnoresTrailing(t *testing.T) {
	body := buildBody(77, uint32(ClientConnect), units("Bob", true), units("garbage", true))

	got := Decode(body)
	assert.Equal(t, Record{Timestamp: 77, Command: ClientConnect, From: "Bob"}, got)
}

// TestDecode_TrailingOddByte verifies that a dangling half code unit is
// dropped rather than rejected.
func TestDecode_TrailingOddByte(t *testing.T) {
	rec := Record{Timestamp: 5, Command: BroadcastMessage, From: "Alice", Msg: "hi"}
	body, err := Encode(rec)
	require.NoError(t, err)

	assert.Equal(t, rec, Decode(append(body, 0x7f)))
}

// TestDecode_InteriorNULInPayload: the payload spans to the final NUL, so a
// NUL inside it is content, not a terminator.
func TestDecode_InteriorNULInPayload(t *testing.T) {
	msg := []uint16{'x', 0, 'y', 0}
	body := buildBody(5, uint32(BroadcastMessage), units("Alice", true), msg)

	got := Decode(body)
	assert.Equal(t, BroadcastMessage, got.Command)
	assert.Equal(t, "x\x00y", got.Msg)
}

// TestDecode_CorruptionSafety flips single bits across a valid encoding and
// requires the decoder to produce either an Error record or a well-formed
// one, never a panic or a partially valid state.
func TestDecode_CorruptionSafety(t *testing.T) {
	body, err := Encode(Record{
		Timestamp: 1700000000,
		Command:   PrivateMessage,
		From:      "Alice",
		To:        "Bob",
		Msg:       "hello",
	})
	require.NoError(t, err)

	for i := range body {
		for bit := uint(0); bit < 8; bit++ {
			flipped := make([]byte, len(body))
			copy(flipped, body)
			flipped[i] ^= 1 << bit

			got := Decode(flipped)
			if got.Command == Error {
				assert.Equal(t, Record{}, got, "byte %d bit %d", i, bit)
				continue
			}
			_, err := Encode(got)
			assert.NoError(t, err, "decoded record must re-encode (byte %d bit %d)", i, bit)
		}
	}
}

// TestDecode_RandomBuffers feeds deterministic junk to the decoder; anything
// it accepts must satisfy the record invariants.
func TestDecode_RandomBuffers(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 2000; i++ {
		buf := make([]byte, rng.Intn(64))
		rng.Read(buf)

		got := Decode(buf)
		if got.Command == Error {
			assert.Equal(t, Record{}, got)
			continue
		}
		_, err := Encode(got)
		assert.NoError(t, err)
	}
}

func BenchmarkEncode(b *testing.B) {
	rec := Record{Timestamp: 1700000000, Command: BroadcastMessage, From: "Alice", Msg: "hello there everyone"}
	for i := 0; i < b.N; i++ {
		if _, err := Encode(rec); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkDecode(b *testing.B) {
	body, err := Encode(Record{Timestamp: 1700000000, Command: BroadcastMessage, From: "Alice", Msg: "hello there everyone"})
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if rec := Decode(body); rec.Command == Error {
			b.Fatal("decode failed")
		}
	}
}
