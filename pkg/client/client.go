// Package client implements the interactive chat client: one TCP connection
// to chatd, an input loop that maps typed lines onto wire records, and a
// receive loop that renders whatever the server relays.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/Andreysim/Chat/internal/console"
	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/protocol/wire"
)

// Terminal is the console surface the client renders to. *console.Console
// implements it; tests substitute an in-memory fake.
type Terminal interface {
	ReadLine() (string, bool)
	Write(text string, color console.Color)
	LockWrite()
	UnlockWrite()
	EraseChars(n int)
	Size() (width, height int)
}

// Client is one interactive chat session. Build it with New and drive it
// with Run; a Client is not reusable across connections.
type Client struct {
	cfg  Config
	term Terminal

	conn net.Conn

	nameMu sync.Mutex
	name   string

	// closing is set once the session is ending on purpose, so the receive
	// loop can tell its own socket shutdown from a transport fault.
	closing atomic.Bool
}

// New builds a client for the given configuration. The connection is
// established by Run.
func New(cfg Config, term Terminal) *Client {
	return &Client{
		cfg:  cfg,
		term: term,
		name: cfg.Name,
	}
}

// Name returns the display name the client currently believes it has. The
// server can revert a rename underneath us when it collides.
func (c *Client) Name() string {
	c.nameMu.Lock()
	defer c.nameMu.Unlock()
	return c.name
}

func (c *Client) setName(name string) {
	c.nameMu.Lock()
	c.name = name
	c.nameMu.Unlock()
}

// Run connects to the server, announces the client name, and pumps the
// input and receive loops until the user exits, the server goes away, or
// ctx is cancelled. A nil return means an orderly end of session.
func (c *Client) Run(ctx context.Context) error {
	dialer := net.Dialer{Timeout: c.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", c.cfg.Addr())
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.cfg.Addr(), err)
	}
	c.conn = conn
	defer conn.Close()

	logger.Debug("Connected to chat server",
		logger.Addr(c.cfg.Addr()),
		logger.Client(c.Name()))

	hello := wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.ClientConnect,
		From:      c.Name(),
	}
	if err := wire.WriteRecord(conn, hello); err != nil {
		return fmt.Errorf("announce name: %w", err)
	}

	recvDone := make(chan error, 1)
	go func() { recvDone <- c.receiveLoop() }()

	lines := make(chan string)
	go c.readInput(lines)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			<-recvDone
			return nil

		case err := <-recvDone:
			// The server side ended the session first.
			return err

		case line, ok := <-lines:
			if !ok {
				// Input stream closed, same as /exit.
				c.shutdown()
				<-recvDone
				return nil
			}
			exit, err := c.handleLine(line)
			if err != nil {
				c.shutdown()
				<-recvDone
				return err
			}
			if exit {
				c.shutdown()
				<-recvDone
				logger.Debug("Session closed by user")
				return nil
			}
		}
	}
}

// shutdown marks the session as ending on purpose and closes the socket,
// which unblocks the receive loop.
func (c *Client) shutdown() {
	c.closing.Store(true)
	_ = c.conn.Close()
}

// readInput pumps terminal lines into ch. Terminal reads cannot be
// interrupted portably, so this goroutine may stay parked in ReadLine until
// the process exits.
func (c *Client) readInput(ch chan<- string) {
	for {
		line, ok := c.term.ReadLine()
		if !ok {
			close(ch)
			return
		}
		ch <- line
	}
}

// handleLine parses, echoes, and sends one input line. exit reports that
// the user asked to leave.
func (c *Client) handleLine(line string) (exit bool, err error) {
	p := parseInput(line)
	if p.errMsg != "" {
		c.writeLine(p.errMsg, console.Red)
		return false, nil
	}
	switch p.action {
	case actionExit:
		return true, nil
	case actionDrop:
		return false, nil
	}

	c.echoInput(line, p)
	if p.action == actionHelp {
		return false, nil
	}

	p.record.From = c.Name()
	if err := wire.WriteRecord(c.conn, p.record); err != nil {
		c.writeLine("Message was not sended", console.Red)
		return false, fmt.Errorf("send %s: %w", p.record.Command, err)
	}
	if p.record.Command == wire.ChangeName {
		// Optimistic: the server's rejection notice reverts it.
		c.setName(p.record.Msg)
	}
	return false, nil
}

// echoInput replaces the typed line with its rendered echo. The erase and
// the write happen under one write lock so a received message cannot land
// between them.
func (c *Client) echoInput(line string, p parsed) {
	text, color := echoText(p)
	width, _ := c.term.Size()

	c.term.LockWrite()
	defer c.term.UnlockWrite()
	c.term.EraseChars(eraseCells(line, width))
	if text != "" {
		c.term.Write(text+"\n", color)
	}
}

// writeLine writes one line to the terminal under the write lock.
func (c *Client) writeLine(text string, color console.Color) {
	c.term.LockWrite()
	c.term.Write(text+"\n", color)
	c.term.UnlockWrite()
}

// receiveLoop renders records until the connection ends. A nil return is an
// orderly end of session; an error is a fault worth a non-zero exit.
func (c *Client) receiveLoop() error {
	for {
		rec, err := wire.ReadRecord(c.conn)
		if err != nil {
			return c.receiveErr(err)
		}

		if rec.Command == wire.ServerMsg && strings.HasPrefix(rec.Msg, nameTakenPrefix) {
			display, assigned := rewriteNameTaken(rec.Msg)
			rec.Msg = display
			if text, color, ok := recordText(rec); ok {
				c.writeLine(text, color)
			}
			if assigned == "" {
				return errors.New("rejected name notice carries no assigned name")
			}
			c.setName(assigned)
			logger.Debug("Server kept a previous name", logger.Client(assigned))
			continue
		}

		if text, color, ok := recordText(rec); ok {
			c.writeLine(text, color)
		}
	}
}

// receiveErr classifies the read error that ended the receive loop.
func (c *Client) receiveErr(err error) error {
	switch {
	case errors.Is(err, net.ErrClosed):
		// Our own shutdown closed the socket.
		return nil
	case errors.Is(err, io.EOF):
		c.writeLine("You was disconnected", console.White)
		return nil
	case errors.Is(err, syscall.ECONNRESET):
		c.writeLine("Server shutdown", console.White)
		return nil
	}
	if c.closing.Load() {
		return nil
	}
	return fmt.Errorf("receive: %w", err)
}
