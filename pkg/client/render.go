package client

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Andreysim/Chat/internal/console"
	"github.com/Andreysim/Chat/internal/protocol/wire"
)

// nameTakenPrefix marks the server notice for a rejected name. The second
// and third whitespace-separated tokens carry the attempted name and the
// name the server still has for this client.
const nameTakenPrefix = "ErrorNameAlreadyExists"

// timestampText formats a record timestamp as "[HH:MM:SS] " in local time.
func timestampText(ts uint64) string {
	sec := int64(ts)
	if sec < 0 {
		return "[Error time] "
	}
	return time.Unix(sec, 0).Format("[15:04:05] ")
}

// echoText builds the local echo for an accepted input line, without the
// trailing newline. Empty text means the typed line is erased without a
// replacement, which is what happens for /setname and /listusers.
func echoText(p parsed) (string, console.Color) {
	switch {
	case p.action == actionHelp:
		return p.record.Msg, console.Cyan
	case p.record.Command == wire.PrivateMessage:
		return timestampText(p.record.Timestamp) + "You to " + p.record.To + ": " + p.record.Msg, console.Magenta
	case p.record.Command == wire.BroadcastMessage:
		return timestampText(p.record.Timestamp) + "You: " + p.record.Msg, console.Green
	}
	return "", console.Default
}

// recordText renders a received record for display, without the trailing
// newline. ok is false for records the client never shows, malformed ones
// included.
func recordText(rec wire.Record) (text string, color console.Color, ok bool) {
	stamp := timestampText(rec.Timestamp)
	switch rec.Command {
	case wire.ServerMsg:
		return stamp + rec.From + ": " + rec.Msg, console.Cyan, true
	case wire.BroadcastMessage:
		return stamp + rec.From + ": " + rec.Msg, console.Yellow, true
	case wire.PrivateMessage:
		return stamp + "From " + rec.From + ": " + rec.Msg, console.Magenta, true
	}
	return "", console.Default, false
}

// rewriteNameTaken converts the wire form of a rejected-name notice into
// display text and extracts the name the server still has for this client.
// An empty assigned name means the notice was malformed.
func rewriteNameTaken(msg string) (display, assigned string) {
	fields := strings.Fields(msg)
	var attempted string
	if len(fields) > 1 {
		attempted = fields[1]
	}
	if len(fields) > 2 {
		assigned = fields[2]
	}
	return "User with name '" + attempted + "' already exists", assigned
}

// eraseCells rounds the echoed input up to whole terminal rows, in cells.
func eraseCells(line string, width int) int {
	if line == "" || width <= 0 {
		return 0
	}
	runes := utf8.RuneCountInString(line)
	return (runes + width - 1) / width * width
}
