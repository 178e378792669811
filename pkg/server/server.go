// Package server implements the chat daemon: a TCP accept loop, a
// session registry guarded by a writer-priority lock, and one worker
// goroutine per connected client that reads framed records and routes
// them to the command handlers.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/protocol/wire"
	"github.com/Andreysim/Chat/internal/telemetry"
	"github.com/Andreysim/Chat/pkg/metrics"
)

// Server accepts chat clients, admits them through the handshake, and
// runs one session worker per connection.
//
// Thread safety:
// All exported methods are safe for concurrent use. Shutdown uses
// sync.Once so Stop may be called multiple times and concurrently
// with Run.
type Server struct {
	cfg      Config
	registry *Registry
	metrics  metrics.ChatMetrics

	// operatorInput is the operator console stream. The literal "exit"
	// on a line by itself triggers graceful shutdown.
	operatorInput io.Reader

	// listener is closed during shutdown to stop accepting new
	// connections and unblock Accept.
	listener   net.Listener
	listenerMu sync.RWMutex

	// shutdown makes initiateShutdown idempotent; shutdownCh is closed
	// by it and observed by the accept loop.
	shutdown   sync.Once
	shutdownCh chan struct{}

	// listenerReady is closed once the listener is bound. Addr blocks
	// on it so tests can dial right after starting Run.
	listenerReady chan struct{}

	// workers tracks session goroutines for graceful shutdown.
	workers sync.WaitGroup
}

// Option configures optional Server behavior.
type Option func(*Server)

// WithMetrics attaches a metrics recorder. A nil recorder disables
// metrics collection entirely.
func WithMetrics(m metrics.ChatMetrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOperatorInput overrides the operator console stream. Defaults to
// os.Stdin; tests pass a pipe.
func WithOperatorInput(r io.Reader) Option {
	return func(s *Server) { s.operatorInput = r }
}

// New creates a Server in a stopped state. Call Run to start serving.
func New(cfg Config, opts ...Option) *Server {
	s := &Server{
		cfg:           cfg,
		registry:      NewRegistry(),
		operatorInput: os.Stdin,
		shutdownCh:    make(chan struct{}),
		listenerReady: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the session registry (used by tests and the list
// handler).
func (s *Server) Registry() *Registry {
	return s.registry
}

// Run binds the listener and serves until ctx is cancelled, the
// operator types "exit", or the listener fails.
//
// Returns:
//   - nil on graceful shutdown
//   - error if the listener cannot be created or shutdown times out
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to create chat listener on port %d: %w", s.cfg.Port, err)
	}

	s.listenerMu.Lock()
	s.listener = listener
	s.listenerMu.Unlock()
	close(s.listenerReady)

	logger.Info("Chat server listening", logger.ListenAddr(listener.Addr().String()))

	// Monitor context cancellation in a separate goroutine
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", logger.Err(ctx.Err()))
		s.initiateShutdown()
	}()

	go s.watchOperator()

	// Accept connections until shutdown
	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-s.shutdownCh:
				// Expected error: the listener was closed during shutdown
				return s.gracefulShutdown()
			default:
				// A failing listener cannot recover; drain the sessions
				// and report the failure.
				logger.Error("Accept failed, shutting down", logger.Err(err))
				s.initiateShutdown()
				if serr := s.gracefulShutdown(); serr != nil {
					logger.Warn("Shutdown after accept failure was not clean", logger.Err(serr))
				}
				return fmt.Errorf("accept: %w", err)
			}
		}

		// Disable Nagle's algorithm; chat records are small and latency
		// sensitive.
		if tcp, ok := conn.(*net.TCPConn); ok {
			if err := tcp.SetNoDelay(true); err != nil {
				logger.Debug("Failed to set TCP_NODELAY", logger.Err(err))
			}
		}

		metrics.ConnectionAccepted(s.metrics)
		logger.Debug("Connection accepted", logger.RemoteAddr(conn.RemoteAddr().String()))

		s.workers.Add(1)
		go func(conn net.Conn) {
			defer s.workers.Done()
			s.handleConnection(ctx, conn)
		}(conn)
	}
}

// Stop initiates graceful shutdown. Safe to call multiple times and
// concurrently with Run.
func (s *Server) Stop() {
	s.initiateShutdown()
}

// Addr returns the address the server is listening on. It blocks until
// the listener is ready.
func (s *Server) Addr() string {
	<-s.listenerReady

	s.listenerMu.RLock()
	defer s.listenerMu.RUnlock()

	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// watchOperator reads the operator console. The literal "exit" triggers
// graceful shutdown; all other input is ignored. A closed stream leaves
// shutdown to the context (chatd may run with stdin detached).
func (s *Server) watchOperator() {
	scanner := bufio.NewScanner(s.operatorInput)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "exit" {
			continue
		}
		logger.Info("Operator requested shutdown")
		s.initiateShutdown()
		return
	}
}

// initiateShutdown stops the accept loop, then closes every session
// socket so workers blocked in a read fail out and retire themselves.
func (s *Server) initiateShutdown() {
	s.shutdown.Do(func() {
		logger.Debug("Shutdown initiated")

		close(s.shutdownCh)

		s.listenerMu.Lock()
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Debug("Error closing listener", logger.Err(err))
			}
		}
		s.listenerMu.Unlock()

		s.registry.CloseAll()
	})
}

// gracefulShutdown waits for the session workers to drain or the
// configured timeout to elapse.
func (s *Server) gracefulShutdown() error {
	logger.Info("Graceful shutdown: waiting for session workers",
		logger.Sessions(s.registry.Len()), "timeout", s.cfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Graceful shutdown complete: all sessions closed")
		return nil

	case <-time.After(s.cfg.ShutdownTimeout):
		remaining := s.registry.Len()
		logger.Warn("Shutdown timeout exceeded",
			logger.Sessions(remaining), "timeout", s.cfg.ShutdownTimeout)
		return fmt.Errorf("shutdown timeout: %d sessions still active", remaining)
	}
}

// handleConnection performs the handshake and, when the client is
// admitted, runs the session worker until the connection ends. It owns
// the full session lifecycle including the leave notice and slot
// retirement.
func (s *Server) handleConnection(ctx context.Context, conn net.Conn) {
	remoteAddr := conn.RemoteAddr().String()

	lc := logger.NewLogContext(remoteAddr)
	ctx = logger.WithContext(ctx, lc)

	ctx, span := telemetry.StartSessionSpan(ctx, remoteAddr)
	defer span.End()

	sess, done, ok := s.handshake(ctx, conn)
	if !ok {
		_ = conn.Close()
		return
	}

	name := s.registry.NameOf(sess)
	lc = lc.WithSession(name, sess.ID())
	if telemetry.IsEnabled() {
		lc = lc.WithTrace(telemetry.TraceID(ctx), telemetry.SpanID(ctx))
	}
	ctx = logger.WithContext(ctx, lc)

	telemetry.SetAttributes(ctx, telemetry.ClientName(name), telemetry.SessionID(sess.ID()))
	logger.InfoCtx(ctx, "Client joined")

	// Shutdown may have started while the handshake was in flight, in
	// which case the registry sweep missed this socket. Close it here so
	// the worker cannot block in a read past shutdown.
	select {
	case <-s.shutdownCh:
		_ = sess.Close()
	default:
	}

	s.serve(ctx, sess)

	// Leave sequence: announce to the others, close the socket, retire
	// the slot, then signal done so the slot becomes reusable. Retire
	// and close(done) must not have registry calls between them.
	leaveName := s.registry.NameOf(sess)
	s.announce(leaveName+" leaves the chat.", sess)

	_ = sess.Close()
	s.registry.Retire(sess)
	close(done)

	metrics.SessionEnded(s.metrics, time.Since(sess.Started()))
	metrics.SetActiveSessions(s.metrics, s.registry.Len())

	logger.InfoCtx(ctx, "Session ended",
		logger.DurationMs(logger.Duration(sess.Started())))
}

// handshake admits a client. The first record must be a ClientConnect
// carrying a display name no live session holds; anything else rejects
// the connection. On success the newcomer is installed before the join
// notice goes out, so the user list it receives includes itself.
func (s *Server) handshake(ctx context.Context, conn net.Conn) (*Session, chan struct{}, bool) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanHandshake)
	defer span.End()

	rec, err := wire.ReadRecord(conn)
	if err != nil {
		logger.WarnCtx(ctx, "Handshake read failed", logger.Err(err))
		telemetry.RecordError(ctx, err)
		metrics.ConnectionRejected(s.metrics, "read_failed")
		return nil, nil, false
	}

	if rec.Command != wire.ClientConnect || rec.From == "" {
		logger.WarnCtx(ctx, "Handshake rejected: expected client_connect",
			logger.Command(rec.Command.String()))
		telemetry.SetAttributes(ctx, telemetry.Reason("bad_handshake"))
		metrics.ConnectionRejected(s.metrics, "bad_handshake")
		return nil, nil, false
	}

	name := rec.From
	sess, done, err := s.registry.Add(name, conn)
	if err != nil {
		logger.InfoCtx(ctx, "Handshake rejected: name already in use", logger.Client(name))
		telemetry.SetAttributes(ctx, telemetry.ClientName(name), telemetry.Reason("name_taken"))
		metrics.ConnectionRejected(s.metrics, "name_taken")

		// In-band rejection. The assigned slot repeats the attempted
		// name here: the session was never admitted, so there is no
		// other name to report.
		reply := serverRecord(nameTakenMsg(name, name))
		if werr := wire.WriteRecord(conn, reply); werr != nil {
			logger.DebugCtx(ctx, "Failed to send name rejection", logger.Err(werr))
		}
		return nil, nil, false
	}

	metrics.SessionStarted(s.metrics)
	metrics.SetActiveSessions(s.metrics, s.registry.Len())

	s.announce(name+" joined to the chat.", sess)

	if err := sess.Send(serverRecord(userList(s.registry.ListNames()))); err != nil {
		logger.WarnCtx(ctx, "Failed to send user list to joiner",
			logger.Client(name), logger.Err(err))
		metrics.RecordSendFailure(s.metrics)
	}

	return sess, done, true
}

// serve runs the session worker loop: read one framed record, decode,
// dispatch, repeat until the peer disconnects or the stream turns bad.
func (s *Server) serve(ctx context.Context, sess *Session) {
	for {
		body, err := wire.ReadFrame(sess.conn)
		if err != nil {
			switch {
			case errors.Is(err, io.EOF):
				logger.InfoCtx(ctx, "Client disconnected")
			case errors.Is(err, net.ErrClosed):
				logger.DebugCtx(ctx, "Session socket closed")
			case errors.Is(err, syscall.ECONNRESET):
				logger.InfoCtx(ctx, "Client connection reset")
			default:
				logger.WarnCtx(ctx, "Session read failed", logger.Err(err))
				telemetry.RecordError(ctx, err)
			}
			return
		}

		logger.DebugCtx(ctx, "Record received", logger.Bytes(len(body)))

		rec := wire.Decode(body)
		if rec.Command == wire.Error {
			// Malformed record: protocol fault, terminate the session.
			logger.WarnCtx(ctx, "Malformed record, terminating session",
				logger.Bytes(len(body)))
			telemetry.SetAttributes(ctx, telemetry.Reason("protocol_fault"))
			return
		}

		s.dispatch(ctx, sess, rec)
	}
}

// announce broadcasts a server-origin notice to every live session
// except exclude (nil reaches everyone). Returns the number reached.
func (s *Server) announce(msg string, exclude *Session) int {
	body, err := wire.Encode(serverRecord(msg))
	if err != nil {
		logger.Error("Failed to encode server notice", logger.Err(err))
		return 0
	}
	return s.broadcast(body, exclude)
}

// broadcast fans out an encoded record body and records delivery
// metrics. Returns the number of sessions reached.
func (s *Server) broadcast(body []byte, exclude *Session) int {
	sent, failed := s.registry.Broadcast(body, exclude)
	metrics.RecordBroadcast(s.metrics, sent)
	for i := 0; i < failed; i++ {
		metrics.RecordSendFailure(s.metrics)
	}
	return sent
}
