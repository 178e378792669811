// Package console provides line-oriented terminal I/O for the interactive
// chat client: colored writes, a line reader, and cursor-based erasing of
// previously echoed input.
//
// A Console does not synchronize writes on its own. Goroutines that share
// one bracket each write, or each erase-then-write sequence, with LockWrite
// and UnlockWrite so rendered lines never interleave.
package console

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"
)

// Color selects the foreground color for Write. Zero value prints in the
// terminal's default color.
type Color uint8

const (
	Default Color = iota
	Red
	Green
	Yellow
	Magenta
	Cyan
	White
)

// sgr holds the ANSI escape sequence for each color.
var sgr = [...]string{
	Default: "",
	Red:     "\x1b[31m",
	Green:   "\x1b[32m",
	Yellow:  "\x1b[33m",
	Magenta: "\x1b[35m",
	Cyan:    "\x1b[36m",
	White:   "\x1b[37m",
}

const sgrReset = "\x1b[0m"

const (
	fallbackWidth  = 80
	fallbackHeight = 24

	// maxLineBytes caps a single input line. Anything longer could not be
	// framed on the wire in one record anyway.
	maxLineBytes = 1 << 20
)

// Console is a terminal front end over an input stream and an output
// stream, stdin and stdout by default.
type Console struct {
	mu sync.Mutex

	input io.Reader
	out   io.Writer
	scan  *bufio.Scanner

	// ansi gates escape sequences: colors and erasing. Off when the output
	// is not a terminal, unless forced by an option.
	ansi      bool
	ansiFixed bool

	// width and height override the probed terminal size when both are set.
	width  int
	height int
}

// Option configures a Console.
type Option func(*Console)

// WithInput replaces the input stream.
func WithInput(r io.Reader) Option {
	return func(c *Console) { c.input = r }
}

// WithOutput replaces the output stream.
func WithOutput(w io.Writer) Option {
	return func(c *Console) { c.out = w }
}

// WithColors forces escape sequences on or off instead of probing the
// output for a terminal.
func WithColors(enabled bool) Option {
	return func(c *Console) {
		c.ansi = enabled
		c.ansiFixed = true
	}
}

// WithSize fixes the reported terminal size, skipping the probe.
func WithSize(width, height int) Option {
	return func(c *Console) {
		c.width = width
		c.height = height
	}
}

// New builds a Console over stdin and stdout. Escape sequences are enabled
// only when the output is a terminal.
func New(opts ...Option) *Console {
	c := &Console{
		input: os.Stdin,
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}

	if !c.ansiFixed {
		fd, ok := c.outFd()
		c.ansi = ok && isTerminal(fd)
	}
	if c.ansi {
		if fd, ok := c.outFd(); ok {
			prepareTerminal(fd)
		}
	}

	c.scan = bufio.NewScanner(c.input)
	c.scan.Buffer(make([]byte, 0, 4096), maxLineBytes)
	return c
}

// ReadLine reads the next input line, without the trailing newline. It
// returns false once the input is exhausted or fails.
func (c *Console) ReadLine() (string, bool) {
	if !c.scan.Scan() {
		return "", false
	}
	return c.scan.Text(), true
}

// Write prints text in the given color. Color codes are dropped when escape
// sequences are disabled.
func (c *Console) Write(text string, color Color) {
	if c.ansi && color != Default && int(color) < len(sgr) {
		_, _ = io.WriteString(c.out, sgr[color]+text+sgrReset)
		return
	}
	_, _ = io.WriteString(c.out, text)
}

// LockWrite takes the write lock. Hold it across an EraseChars followed by
// a Write so the two render as one atomic update.
func (c *Console) LockWrite() { c.mu.Lock() }

// UnlockWrite releases the write lock.
func (c *Console) UnlockWrite() { c.mu.Unlock() }

// EraseChars removes the previous n screen cells. It assumes the cursor
// sits at column zero just below the erased text, which is where the cursor
// lands after the user presses enter. No-op when escape sequences are
// disabled.
func (c *Console) EraseChars(n int) {
	if n <= 0 || !c.ansi {
		return
	}
	width, _ := c.Size()
	rows := (n + width - 1) / width
	_, _ = fmt.Fprintf(c.out, "\x1b[%dA\r\x1b[J", rows)
}

// Size reports the terminal dimensions in character cells. It falls back
// to 80x24 when the output is not a terminal.
func (c *Console) Size() (width, height int) {
	if c.width > 0 && c.height > 0 {
		return c.width, c.height
	}
	if fd, ok := c.outFd(); ok {
		if w, h, ok := terminalSize(fd); ok {
			return w, h
		}
	}
	return fallbackWidth, fallbackHeight
}

func (c *Console) outFd() (uintptr, bool) {
	f, ok := c.out.(*os.File)
	if !ok {
		return 0, false
	}
	return f.Fd(), true
}
