// Package chat_test exercises the chat server end to end: a real server
// on a loopback listener, raw wire-protocol clients, and the operator
// console shutdown path.
//
// Run with: go test ./test/integration/chat/
package chat_test

import (
	"context"
	"io"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/protocol/wire"
	"github.com/Andreysim/Chat/pkg/server"
)

const recvTimeout = 2 * time.Second

func TestMain(m *testing.M) {
	// Server internals log on every connection; keep the test output
	// readable.
	logger.InitWithWriter(io.Discard, "ERROR", "text", false)
	os.Exit(m.Run())
}

// testServer runs one Server on an ephemeral loopback port with a piped
// operator console.
type testServer struct {
	t        *testing.T
	srv      *server.Server
	addr     string
	operator *io.PipeWriter
	cancel   context.CancelFunc

	done     chan error
	waitOnce sync.Once
	runErr   error
}

func startServer(t *testing.T) *testServer {
	t.Helper()

	opReader, opWriter := io.Pipe()

	srv := server.New(server.Config{
		Listen:          "127.0.0.1",
		Port:            0,
		ShutdownTimeout: 5 * time.Second,
	}, server.WithOperatorInput(opReader))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- srv.Run(ctx)
	}()

	ts := &testServer{
		t:        t,
		srv:      srv,
		addr:     srv.Addr(),
		operator: opWriter,
		cancel:   cancel,
		done:     done,
	}
	t.Cleanup(ts.stop)
	return ts
}

// wait blocks until Run returns and caches the result so stop can run
// after a test that already consumed the shutdown.
func (ts *testServer) wait() error {
	ts.waitOnce.Do(func() {
		select {
		case ts.runErr = <-ts.done:
		case <-time.After(10 * time.Second):
			ts.runErr = context.DeadlineExceeded
		}
	})
	return ts.runErr
}

func (ts *testServer) stop() {
	ts.cancel()
	if err := ts.wait(); err != nil {
		ts.t.Errorf("server shutdown: %v", err)
	}
	_ = ts.operator.Close()
}

// typeExit feeds the operator console the shutdown line.
func (ts *testServer) typeExit() {
	ts.t.Helper()
	_, err := ts.operator.Write([]byte("exit\n"))
	require.NoError(ts.t, err)
}

// testClient speaks the raw wire protocol over a loopback socket.
type testClient struct {
	t    *testing.T
	name string
	conn net.Conn

	// userList is the listing received during the handshake.
	userList string
}

// dial opens a bare connection without performing the handshake.
func dial(t *testing.T, addr string) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr, recvTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// connect performs the handshake and consumes the user list the server
// sends to every joiner.
func connect(t *testing.T, addr, name string) *testClient {
	t.Helper()

	c := &testClient{t: t, name: name, conn: dial(t, addr)}
	c.send(wire.Record{Timestamp: wire.Now(), Command: wire.ClientConnect, From: name})

	list := c.recv()
	require.Equal(t, wire.ServerMsg, list.Command)
	require.Contains(t, list.Msg, name, "joiner user list includes itself")
	c.userList = list.Msg
	return c
}

func (c *testClient) send(rec wire.Record) {
	c.t.Helper()
	require.NoError(c.t, wire.WriteRecord(c.conn, rec))
}

func (c *testClient) recv() wire.Record {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	rec, err := wire.ReadRecord(c.conn)
	require.NoError(c.t, err, "reading record for %s", c.name)
	return rec
}

// expectSilence asserts no record arrives within the window.
func (c *testClient) expectSilence(d time.Duration) {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(d)))
	_, err := wire.ReadRecord(c.conn)
	require.Error(c.t, err, "%s received an unexpected record", c.name)
	require.ErrorIs(c.t, err, os.ErrDeadlineExceeded)
}

// expectClosed asserts the next read fails because the peer closed the
// connection.
func (c *testClient) expectClosed() {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(recvTimeout)))
	_, err := wire.ReadRecord(c.conn)
	require.Error(c.t, err, "%s connection still open", c.name)
	require.NotErrorIs(c.t, err, os.ErrDeadlineExceeded)
}

func (c *testClient) close() {
	_ = c.conn.Close()
}

func TestListUsers(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	assert.Equal(t, "Current active users:\nAlice", alice.userList)

	alice.send(wire.Record{Timestamp: wire.Now(), Command: wire.ListClients, From: "Alice"})

	reply := alice.recv()
	assert.Equal(t, wire.ServerMsg, reply.Command)
	assert.Equal(t, "Server", reply.From)
	assert.Equal(t, "Current active users:\nAlice", reply.Msg)
}

func TestJoinNotice(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")

	notice := alice.recv()
	assert.Equal(t, wire.ServerMsg, notice.Command)
	assert.Equal(t, "Bob joined to the chat.", notice.Msg)

	assert.Contains(t, bob.userList, "Alice")
	assert.Contains(t, bob.userList, "Bob")
}

func TestDuplicateNameRejected(t *testing.T) {
	ts := startServer(t)

	bob := connect(t, ts.addr, "Bob")

	intruder := dial(t, ts.addr)
	require.NoError(t, wire.WriteRecord(intruder, wire.Record{
		Timestamp: wire.Now(), Command: wire.ClientConnect, From: "Bob",
	}))

	require.NoError(t, intruder.SetReadDeadline(time.Now().Add(recvTimeout)))
	reply, err := wire.ReadRecord(intruder)
	require.NoError(t, err)
	assert.Equal(t, wire.ServerMsg, reply.Command)
	assert.Equal(t, "ErrorNameAlreadyExists Bob Bob", reply.Msg)

	// The rejected socket is dropped right after the notice.
	_, err = wire.ReadRecord(intruder)
	require.Error(t, err)

	// The incumbent never hears about the failed attempt.
	bob.expectSilence(200 * time.Millisecond)
}

func TestPrivateMessage(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")
	carol := connect(t, ts.addr, "Carol")

	// Drain the join notices so later reads start clean.
	require.Equal(t, "Bob joined to the chat.", alice.recv().Msg)
	require.Equal(t, "Carol joined to the chat.", alice.recv().Msg)
	require.Equal(t, "Carol joined to the chat.", bob.recv().Msg)

	t.Run("delivered to the addressee only", func(t *testing.T) {
		alice.send(wire.Record{
			Timestamp: wire.Now(),
			Command:   wire.PrivateMessage,
			From:      "Alice",
			To:        "Bob",
			Msg:       "hello",
		})

		rec := bob.recv()
		assert.Equal(t, wire.PrivateMessage, rec.Command)
		assert.Equal(t, "Alice", rec.From)
		assert.Equal(t, "Bob", rec.To)
		assert.Equal(t, "hello", rec.Msg)

		carol.expectSilence(200 * time.Millisecond)
		alice.expectSilence(200 * time.Millisecond)
	})

	t.Run("unknown addressee notifies the sender", func(t *testing.T) {
		alice.send(wire.Record{
			Timestamp: wire.Now(),
			Command:   wire.PrivateMessage,
			From:      "Alice",
			To:        "Nobody",
			Msg:       "hi",
		})

		rec := alice.recv()
		assert.Equal(t, wire.ServerMsg, rec.Command)
		assert.Equal(t, "There is no user with name Nobody", rec.Msg)

		bob.expectSilence(200 * time.Millisecond)
	})
}

func TestBroadcast(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")
	carol := connect(t, ts.addr, "Carol")

	require.Equal(t, "Bob joined to the chat.", alice.recv().Msg)
	require.Equal(t, "Carol joined to the chat.", alice.recv().Msg)
	require.Equal(t, "Carol joined to the chat.", bob.recv().Msg)

	alice.send(wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.BroadcastMessage,
		From:      "Alice",
		Msg:       "hi all",
	})

	for _, peer := range []*testClient{bob, carol} {
		rec := peer.recv()
		assert.Equal(t, wire.BroadcastMessage, rec.Command)
		assert.Equal(t, "Alice", rec.From)
		assert.Equal(t, "hi all", rec.Msg)
	}

	// The origin is excluded from its own broadcast.
	alice.expectSilence(200 * time.Millisecond)
}

func TestRename(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")
	require.Equal(t, "Bob joined to the chat.", alice.recv().Msg)

	t.Run("announced to everyone including the origin", func(t *testing.T) {
		alice.send(wire.Record{
			Timestamp: wire.Now(),
			Command:   wire.ChangeName,
			From:      "Alice",
			Msg:       "Carol",
		})

		for _, peer := range []*testClient{alice, bob} {
			rec := peer.recv()
			assert.Equal(t, wire.ServerMsg, rec.Command)
			assert.Equal(t, "Alice changed his name to Carol", rec.Msg)
		}
	})

	t.Run("user list reflects the new name", func(t *testing.T) {
		bob.send(wire.Record{Timestamp: wire.Now(), Command: wire.ListClients, From: "Bob"})

		rec := bob.recv()
		assert.Contains(t, rec.Msg, "Carol")
		assert.NotContains(t, rec.Msg, "Alice")
	})

	t.Run("renaming to a held name is rejected in-band", func(t *testing.T) {
		bob.send(wire.Record{
			Timestamp: wire.Now(),
			Command:   wire.ChangeName,
			From:      "Bob",
			Msg:       "Carol",
		})

		rec := bob.recv()
		assert.Equal(t, wire.ServerMsg, rec.Command)
		assert.Equal(t, "ErrorNameAlreadyExists Carol Bob", rec.Msg)
	})
}

func TestLeaveNotice(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")
	require.Equal(t, "Bob joined to the chat.", alice.recv().Msg)

	bob.close()

	notice := alice.recv()
	assert.Equal(t, wire.ServerMsg, notice.Command)
	assert.Equal(t, "Bob leaves the chat.", notice.Msg)

	// The notice goes out before the slot retires; wait for the registry
	// to settle before reusing the name.
	require.Eventually(t, func() bool {
		return ts.srv.Registry().Len() == 1
	}, recvTimeout, 10*time.Millisecond, "Bob's slot retires")

	bob2 := connect(t, ts.addr, "Bob")
	assert.Contains(t, bob2.userList, "Bob")
}

func TestOperatorShutdown(t *testing.T) {
	ts := startServer(t)

	alice := connect(t, ts.addr, "Alice")
	bob := connect(t, ts.addr, "Bob")
	require.Equal(t, "Bob joined to the chat.", alice.recv().Msg)

	ts.typeExit()

	require.NoError(t, ts.wait(), "operator exit should shut down cleanly")

	assert.Equal(t, 0, ts.srv.Registry().Len(), "all sessions retired")

	alice.expectClosed()
	bob.expectClosed()

	// The listener is gone too.
	_, err := net.DialTimeout("tcp", ts.addr, 500*time.Millisecond)
	require.Error(t, err)
}
