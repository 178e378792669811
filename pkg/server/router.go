package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/protocol/wire"
	"github.com/Andreysim/Chat/internal/telemetry"
	"github.com/Andreysim/Chat/pkg/metrics"
)

// serverName is the sender carried by server-origin records.
const serverName = "Server"

// nameTakenPrefix marks an in-band duplicate-name rejection inside a
// ServerMsg payload. Clients tokenize the payload on whitespace and read
// the attempted and assigned names from the second and third tokens, so
// the exact marker and layout are part of the wire contract.
const nameTakenPrefix = "ErrorNameAlreadyExists"

// serverRecord builds a server-origin ServerMsg with a fresh timestamp.
func serverRecord(msg string) wire.Record {
	return wire.Record{
		Timestamp: wire.Now(),
		Command:   wire.ServerMsg,
		From:      serverName,
		Msg:       msg,
	}
}

// nameTakenMsg builds the duplicate-name rejection payload. assigned is
// the name the client is still known by: its current name on a rename
// conflict, the attempted name itself on a handshake conflict.
func nameTakenMsg(attempted, assigned string) string {
	return fmt.Sprintf("%s %s %s", nameTakenPrefix, attempted, assigned)
}

// userList renders the listing sent for list_clients and to a joiner.
func userList(names []string) string {
	if len(names) == 0 {
		return "there are no active users"
	}
	return "Current active users:\n" + strings.Join(names, "\n")
}

// dispatch routes one decoded record to its handler under a per-command
// span.
func (s *Server) dispatch(ctx context.Context, sess *Session, rec wire.Record) {
	command := rec.Command.String()

	ctx, span := telemetry.StartCommandSpan(ctx, command, telemetry.SessionID(sess.ID()))
	defer span.End()

	metrics.RecordDispatch(s.metrics, command)

	switch rec.Command {
	case wire.BroadcastMessage:
		s.handleBroadcast(ctx, sess, rec)
	case wire.PrivateMessage:
		s.handlePrivateMessage(ctx, sess, rec)
	case wire.ChangeName:
		s.handleChangeName(ctx, sess, rec)
	case wire.ListClients:
		s.handleListClients(ctx, sess)
	default:
		// ClientConnect is only legal as the first record of a
		// connection; ServerMsg and Help never originate from clients.
		logger.DebugCtx(ctx, "Dropping unhandled command", logger.Command(command))
	}
}

// handleBroadcast relays the record to every live session except the
// origin. The record is re-encoded once and fanned out as-is, keeping
// the sender's name and timestamp.
func (s *Server) handleBroadcast(ctx context.Context, sess *Session, rec wire.Record) {
	body, err := wire.Encode(rec)
	if err != nil {
		logger.WarnCtx(ctx, "Failed to re-encode broadcast", logger.Err(err))
		return
	}

	sent := s.broadcast(body, sess)

	telemetry.SetAttributes(ctx, telemetry.Recipients(sent), telemetry.RecordBytes(len(body)))
	logger.DebugCtx(ctx, "Broadcast relayed", logger.From(rec.From), logger.Recipients(sent))
}

// handlePrivateMessage relays the record to the addressee. When the
// addressee is not live, the origin is told so in a server notice.
func (s *Server) handlePrivateMessage(ctx context.Context, sess *Session, rec wire.Record) {
	telemetry.SetAttributes(ctx, telemetry.Target(rec.To))

	target, ok := s.registry.FindByName(rec.To)
	if !ok {
		logger.DebugCtx(ctx, "Private message target not found", logger.To(rec.To))
		if err := sess.Send(serverRecord("There is no user with name " + rec.To)); err != nil {
			logger.WarnCtx(ctx, "Failed to send delivery notice", logger.Err(err))
			metrics.RecordSendFailure(s.metrics)
		}
		return
	}

	// The target may disconnect between lookup and send; the write then
	// fails on the closed socket and is handled like any send failure.
	if err := target.Send(rec); err != nil {
		logger.WarnCtx(ctx, "Failed to deliver private message", logger.To(rec.To), logger.Err(err))
		metrics.RecordSendFailure(s.metrics)
		return
	}

	logger.DebugCtx(ctx, "Private message delivered", logger.From(rec.From), logger.To(rec.To))
}

// handleChangeName renames the origin session. On conflict the origin
// gets the in-band rejection carrying its unchanged name. On success
// every session, the origin included, learns the new name from the
// broadcast notice.
func (s *Server) handleChangeName(ctx context.Context, sess *Session, rec wire.Record) {
	newName := rec.Msg

	oldName, err := s.registry.Rename(sess, newName)
	if err != nil {
		current := s.registry.NameOf(sess)
		logger.InfoCtx(ctx, "Rename rejected: name already in use",
			logger.Client(current), "requested", newName)
		telemetry.SetAttributes(ctx, telemetry.Reason("name_taken"))

		if serr := sess.Send(serverRecord(nameTakenMsg(newName, current))); serr != nil {
			logger.WarnCtx(ctx, "Failed to send rename rejection", logger.Err(serr))
			metrics.RecordSendFailure(s.metrics)
		}
		return
	}

	// Keep the session's log context truthful after the rename. The
	// worker goroutine is the only reader and writer of its LogContext.
	if lc := logger.FromContext(ctx); lc != nil {
		lc.Client = newName
	}

	logger.InfoCtx(ctx, "Client renamed", "old_name", oldName, "new_name", newName)

	sent := s.announce(fmt.Sprintf("%s changed his name to %s", oldName, newName), nil)
	telemetry.SetAttributes(ctx, telemetry.Recipients(sent))
}

// handleListClients sends the caller the current user list.
func (s *Server) handleListClients(ctx context.Context, sess *Session) {
	names := s.registry.ListNames()

	if err := sess.Send(serverRecord(userList(names))); err != nil {
		logger.WarnCtx(ctx, "Failed to send user list", logger.Err(err))
		metrics.RecordSendFailure(s.metrics)
		return
	}

	logger.DebugCtx(ctx, "User list sent", logger.Sessions(len(names)))
}
