package client

import (
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andreysim/Chat/internal/console"
	"github.com/Andreysim/Chat/internal/protocol/wire"
)

type termWrite struct {
	text  string
	color console.Color
}

// fakeTerminal scripts input lines and records writes in memory. Write and
// EraseChars do not lock on their own: the client is expected to hold the
// write lock, and the race detector flags it when it does not.
type fakeTerminal struct {
	mu     sync.Mutex
	lines  chan string
	writes []termWrite
	erases []int
	width  int
}

func newFakeTerminal(width int) *fakeTerminal {
	return &fakeTerminal{lines: make(chan string, 16), width: width}
}

func (f *fakeTerminal) typeLine(line string) { f.lines <- line }
func (f *fakeTerminal) closeInput()          { close(f.lines) }

func (f *fakeTerminal) ReadLine() (string, bool) {
	line, ok := <-f.lines
	return line, ok
}

func (f *fakeTerminal) Write(text string, color console.Color) {
	f.writes = append(f.writes, termWrite{text: text, color: color})
}

func (f *fakeTerminal) EraseChars(n int) {
	f.erases = append(f.erases, n)
}

func (f *fakeTerminal) LockWrite()   { f.mu.Lock() }
func (f *fakeTerminal) UnlockWrite() { f.mu.Unlock() }

func (f *fakeTerminal) Size() (int, int) { return f.width, 24 }

func (f *fakeTerminal) snapshot() []termWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]termWrite(nil), f.writes...)
}

func (f *fakeTerminal) eraseLog() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.erases...)
}

// waitForWrite blocks until the terminal sees a write containing substr.
func (f *fakeTerminal) waitForWrite(t *testing.T, substr string) termWrite {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, w := range f.snapshot() {
			if strings.Contains(w.text, substr) {
				return w
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("no terminal write containing %q, got %v", substr, f.snapshot())
	return termWrite{}
}

// stubServer accepts a single chat connection and speaks the wire protocol
// directly, so tests control every record the client sees.
type stubServer struct {
	t    *testing.T
	ln   net.Listener
	conn net.Conn
}

func startStubServer(t *testing.T) *stubServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	return &stubServer{t: t, ln: ln}
}

func (s *stubServer) config(name string) Config {
	return Config{
		Server:      "127.0.0.1",
		Port:        s.ln.Addr().(*net.TCPAddr).Port,
		Name:        name,
		DialTimeout: 2 * time.Second,
	}
}

// accept waits for the client to connect and returns its hello record.
func (s *stubServer) accept() wire.Record {
	s.t.Helper()
	conn, err := s.ln.Accept()
	require.NoError(s.t, err)
	s.conn = conn
	s.t.Cleanup(func() { _ = conn.Close() })
	return s.read()
}

func (s *stubServer) read() wire.Record {
	s.t.Helper()
	require.NoError(s.t, s.conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	rec, err := wire.ReadRecord(s.conn)
	require.NoError(s.t, err)
	return rec
}

func (s *stubServer) send(rec wire.Record) {
	s.t.Helper()
	require.NoError(s.t, wire.WriteRecord(s.conn, rec))
}

func startClient(t *testing.T, cfg Config, term *fakeTerminal) (*Client, chan error) {
	t.Helper()
	c := New(cfg, term)
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()
	return c, done
}

func waitDone(t *testing.T, done chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("client did not stop in time")
		return nil
	}
}

func TestClient_HandshakeAnnouncesName(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)

	hello := srv.accept()
	assert.Equal(t, wire.ClientConnect, hello.Command)
	assert.Equal(t, "Alice", hello.From)
	assert.Empty(t, hello.Msg)
	assert.NotZero(t, hello.Timestamp)

	require.NoError(t, srv.conn.Close())
	require.NoError(t, waitDone(t, done), "orderly server close is not an error")

	w := term.waitForWrite(t, "You was disconnected")
	assert.Equal(t, console.White, w.color)
}

func TestClient_BroadcastSendsAndEchoes(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(8)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("hello world")
	rec := srv.read()
	assert.Equal(t, wire.BroadcastMessage, rec.Command)
	assert.Equal(t, "Alice", rec.From)
	assert.Equal(t, "hello world", rec.Msg)

	w := term.waitForWrite(t, "You: hello world")
	assert.Equal(t, console.Green, w.color)
	assert.True(t, strings.HasPrefix(w.text, "["), "echo carries a timestamp")

	// 11 runes on an 8-wide terminal occupy two rows.
	assert.Equal(t, []int{16}, term.eraseLog())

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
	for _, w := range term.snapshot() {
		assert.NotContains(t, w.text, "disconnected", "own exit must not report a disconnect")
	}
}

func TestClient_PrivateMessageKeepsTypedSpacing(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("/pm Bob   secret note")
	rec := srv.read()
	assert.Equal(t, wire.PrivateMessage, rec.Command)
	assert.Equal(t, "Bob", rec.To)
	assert.Equal(t, "  secret note", rec.Msg, "one separator consumed, the rest kept")

	w := term.waitForWrite(t, "You to Bob:   secret note")
	assert.Equal(t, console.Magenta, w.color)

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_HelpStaysLocal(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(8)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("/help")
	w := term.waitForWrite(t, "Available commands:")
	assert.Equal(t, console.Cyan, w.color)
	assert.Equal(t, helpText+"\n", w.text, "help is rendered without a timestamp")

	// Nothing was sent for /help: the next record the server reads is the
	// follow-up broadcast.
	term.typeLine("ping")
	rec := srv.read()
	assert.Equal(t, wire.BroadcastMessage, rec.Command)
	assert.Equal(t, "ping", rec.Msg)

	assert.Equal(t, []int{8, 8}, term.eraseLog(), "/help and ping both erase their typed line")

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_SetnameIsOptimistic(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	c, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("/setname Carol")
	rec := srv.read()
	assert.Equal(t, wire.ChangeName, rec.Command)
	assert.Equal(t, "Alice", rec.From, "rename is sent under the old name")
	assert.Equal(t, "Carol", rec.Msg)

	require.Eventually(t, func() bool { return c.Name() == "Carol" },
		time.Second, 5*time.Millisecond, "the client adopts the new name without waiting for the server")

	// "/setname Carol" is 14 runes, one 80-wide row. The input is erased
	// but nothing is echoed in its place.
	assert.Equal(t, []int{80}, term.eraseLog())

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_NameTakenRevertsOptimisticRename(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	c, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("/setname Carol")
	srv.read()
	require.Eventually(t, func() bool { return c.Name() == "Carol" }, time.Second, 5*time.Millisecond)

	srv.send(wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.ServerMsg,
		From:      "Server",
		Msg:       "ErrorNameAlreadyExists Carol Alice",
	})

	w := term.waitForWrite(t, "User with name 'Carol' already exists")
	assert.Equal(t, console.Cyan, w.color)
	assert.Contains(t, w.text, "Server: ", "the rewritten notice still renders as a server message")

	require.Eventually(t, func() bool { return c.Name() == "Alice" },
		time.Second, 5*time.Millisecond, "the server notice reverts the rename")

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_NameTakenWithoutAssignedNameIsFatal(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	srv.send(wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.ServerMsg,
		From:      "Server",
		Msg:       "ErrorNameAlreadyExists Carol",
	})

	err := waitDone(t, done)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assigned name")

	term.waitForWrite(t, "User with name 'Carol' already exists")
}

func TestClient_RendersIncomingRecords(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	ts := wire.Now()
	srv.send(wire.Record{Timestamp: ts, Command: wire.ServerMsg, From: "Server", Msg: "Bob joined to the chat."})
	srv.send(wire.Record{Timestamp: ts, Command: wire.BroadcastMessage, From: "Bob", Msg: "hi there"})
	srv.send(wire.Record{Timestamp: ts, Command: wire.PrivateMessage, From: "Bob", To: "Alice", Msg: "psst"})

	w := term.waitForWrite(t, "Server: Bob joined to the chat.")
	assert.Equal(t, console.Cyan, w.color)

	w = term.waitForWrite(t, "Bob: hi there")
	assert.Equal(t, console.Yellow, w.color)
	assert.True(t, strings.HasPrefix(w.text, "["))

	w = term.waitForWrite(t, "From Bob: psst")
	assert.Equal(t, console.Magenta, w.color)

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_InvalidCommandRendersError(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.typeLine("/frobnicate all")
	w := term.waitForWrite(t, "Invalid command /frobnicate")
	assert.Equal(t, console.Red, w.color)
	assert.Empty(t, term.eraseLog(), "rejected input stays on screen")

	// The invalid line never hit the wire.
	term.typeLine("ping")
	rec := srv.read()
	assert.Equal(t, "ping", rec.Msg)

	term.typeLine("/exit")
	require.NoError(t, waitDone(t, done))
}

func TestClient_ServerResetPrintsShutdown(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	tcp := srv.conn.(*net.TCPConn)
	require.NoError(t, tcp.SetLinger(0))
	require.NoError(t, tcp.Close())

	require.NoError(t, waitDone(t, done), "a reset reads as the server going away, not a client fault")
	w := term.waitForWrite(t, "Server shutdown")
	assert.Equal(t, console.White, w.color)
}

func TestClient_InputEOFExitsCleanly(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)
	_, done := startClient(t, srv.config("Alice"), term)
	srv.accept()

	term.closeInput()
	require.NoError(t, waitDone(t, done))
}

func TestClient_ContextCancelExitsCleanly(t *testing.T) {
	t.Parallel()

	srv := startStubServer(t)
	term := newFakeTerminal(80)

	ctx, cancel := context.WithCancel(context.Background())
	c := New(srv.config("Alice"), term)
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	srv.accept()

	cancel()
	require.NoError(t, waitDone(t, done))
}

func TestClient_DialFailure(t *testing.T) {
	t.Parallel()

	// Port 1 needs root to bind, so nothing listens there.
	cfg := Config{
		Server:      "127.0.0.1",
		Port:        1,
		Name:        "Alice",
		DialTimeout: time.Second,
	}

	err := New(cfg, newFakeTerminal(80)).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to")
}
