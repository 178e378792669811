package client

import (
	"strings"

	"github.com/Andreysim/Chat/internal/protocol/wire"
)

// helpText is rendered locally for /help. It is never sent to the server.
const helpText = "Available commands:\n" +
	"/pm (user name)- private message\n" +
	"/setname (new name) - change name\n" +
	"/listusers - show current active users\n" +
	"/exit - exit program"

// inputAction tells the input loop what to do with a parsed line.
type inputAction uint8

const (
	actionDrop inputAction = iota // nothing to send or render
	actionSend                    // record goes out on the wire
	actionHelp                    // render help locally
	actionExit                    // terminate the client
)

// parsed is the outcome of mapping one input line onto a protocol record.
type parsed struct {
	action inputAction
	record wire.Record
	errMsg string // local error rendered in red; empty when the line was fine
}

// commandTable maps slash commands to protocol commands. /exit is absent on
// purpose: it matches only as the entire line, before command parsing.
var commandTable = map[string]wire.Command{
	"/pm":        wire.PrivateMessage,
	"/setname":   wire.ChangeName,
	"/listusers": wire.ListClients,
	"/help":      wire.Help,
}

// parseInput maps one line of user input onto a wire record. A line that
// does not start with a slash broadcasts the whole line verbatim, leading
// separators included. The sender name is filled in later, right before the
// record is sent.
func parseInput(line string) parsed {
	if line == "" {
		return parsed{action: actionDrop}
	}
	if line == "/exit" {
		return parsed{action: actionExit}
	}

	rec := wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.BroadcastMessage,
		Msg:       line,
	}
	if !strings.HasPrefix(line, "/") {
		return parsed{action: actionSend, record: rec}
	}

	cmd, rest := nextToken(line)
	command, ok := commandTable[cmd]
	if !ok {
		return parsed{action: actionDrop, errMsg: "Invalid command " + cmd}
	}
	rec.Command = command
	rec.Msg = ""

	switch command {
	case wire.Help:
		rec.Msg = helpText
		return parsed{action: actionHelp, record: rec}

	case wire.ListClients:
		return parsed{action: actionSend, record: rec}

	case wire.ChangeName:
		name, _ := nextToken(rest)
		if name == "" {
			return parsed{action: actionDrop, errMsg: "Can't change name - no name specified"}
		}
		rec.Msg = name
		return parsed{action: actionSend, record: rec}

	case wire.PrivateMessage:
		to, tail := nextToken(rest)
		if to == "" {
			return parsed{action: actionDrop, errMsg: "No client name was specified for private message"}
		}
		rec.To = to
		// Exactly one separator after the recipient belongs to the command
		// syntax. Everything past it is the message as typed.
		if tail != "" {
			tail = tail[1:]
		}
		if tail == "" {
			return parsed{action: actionDrop}
		}
		rec.Msg = tail
		return parsed{action: actionSend, record: rec}
	}

	return parsed{action: actionDrop}
}

// nextToken splits off the first separator-delimited token. Leading
// separators are skipped; rest starts at the character right after the
// token so the caller can see the separators that follow it.
func nextToken(s string) (token, rest string) {
	start := 0
	for start < len(s) && isSeparator(s[start]) {
		start++
	}
	end := start
	for end < len(s) && !isSeparator(s[end]) {
		end++
	}
	return s[start:end], s[end:]
}

// isSeparator reports whether c delimits input tokens. All separators are
// ASCII, so byte-wise scanning is safe on UTF-8 input.
func isSeparator(c byte) bool {
	switch c {
	case ' ', '\t', '\v', '\f', '\r':
		return true
	}
	return false
}
