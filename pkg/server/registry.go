package server

import (
	"errors"
	"net"
	"time"

	"github.com/Andreysim/Chat/internal/logger"
	"github.com/Andreysim/Chat/internal/rwlock"
)

// ErrNameTaken is returned when a display name is already held by a live
// session. The caller owns the in-band error reply.
var ErrNameTaken = errors.New("server: name already in use")

// regSlot is one entry in the registry table. A retired slot stays in
// place, marked completed, and is reused by a later session once its
// worker has signalled done.
type regSlot struct {
	session   *Session
	done      chan struct{}
	completed bool
}

// Registry tracks live sessions and owns their display names.
//
// All state is guarded by a writer-priority readers-writer lock: the
// fan-out paths (broadcast, lookup, listing) take read locks and run
// concurrently, while joins, renames and retirements take the write
// lock so uniqueness checks and mutations are atomic.
//
// Invariant: two live (non-completed) slots never share a name.
type Registry struct {
	lock   *rwlock.Lock
	slots  []*regSlot
	nextID uint64
}

// NewRegistry returns an empty session registry.
func NewRegistry() *Registry {
	return &Registry{lock: rwlock.New()}
}

// Add installs a session under the given display name, reusing the first
// completed slot or appending a new one.
//
// The name must be unique among live sessions; ErrNameTaken is returned
// otherwise and nothing is installed. On success Add returns the new
// session and its done channel. The worker must close the channel right
// after Retire so the slot becomes reusable.
func (r *Registry) Add(name string, conn net.Conn) (*Session, chan struct{}, error) {
	r.lock.LockWrite()

	for _, sl := range r.slots {
		if !sl.completed && sl.session.name == name {
			r.lock.Unlock()
			return nil, nil, ErrNameTaken
		}
	}

	r.nextID++
	sess := &Session{
		id:         r.nextID,
		name:       name,
		conn:       conn,
		remoteAddr: conn.RemoteAddr().String(),
		started:    time.Now(),
	}
	done := make(chan struct{})

	// Reuse requires the prior worker to have fully exited, so wait on
	// its done channel. This cannot deadlock: completed is set under the
	// write lock we now hold, and the only step left for that worker is
	// close(done), which takes no locks.
	idx := -1
	for i, sl := range r.slots {
		if sl.completed {
			<-sl.done
			idx = i
			break
		}
	}
	if idx >= 0 {
		r.slots[idx] = &regSlot{session: sess, done: done}
		sess.slot = idx
	} else {
		r.slots = append(r.slots, &regSlot{session: sess, done: done})
		sess.slot = len(r.slots) - 1
	}

	r.lock.Unlock()
	return sess, done, nil
}

// FindByName returns the live session holding the given display name.
func (r *Registry) FindByName(name string) (*Session, bool) {
	r.lock.LockRead()
	defer r.lock.Unlock()

	for _, sl := range r.slots {
		if !sl.completed && sl.session.name == name {
			return sl.session, true
		}
	}
	return nil, false
}

// NameOf returns the session's current display name.
func (r *Registry) NameOf(sess *Session) string {
	r.lock.LockRead()
	defer r.lock.Unlock()
	return sess.name
}

// ListNames returns the display names of all live sessions in slot order.
func (r *Registry) ListNames() []string {
	r.lock.LockRead()
	defer r.lock.Unlock()

	names := make([]string, 0, len(r.slots))
	for _, sl := range r.slots {
		if !sl.completed {
			names = append(names, sl.session.name)
		}
	}
	return names
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.lock.LockRead()
	defer r.lock.Unlock()

	n := 0
	for _, sl := range r.slots {
		if !sl.completed {
			n++
		}
	}
	return n
}

// Rename changes the session's display name and returns the old one.
//
// The uniqueness scan covers every live session including the caller, so
// renaming to the name already held (own or foreign) fails with
// ErrNameTaken and leaves the name unchanged.
func (r *Registry) Rename(sess *Session, newName string) (string, error) {
	r.lock.LockWrite()
	defer r.lock.Unlock()

	for _, sl := range r.slots {
		if !sl.completed && sl.session.name == newName {
			return "", ErrNameTaken
		}
	}

	oldName := sess.name
	sess.name = newName
	return oldName, nil
}

// Retire marks the session's slot completed so it can be reused. The
// worker must close the done channel from Add immediately afterwards,
// without touching the registry in between.
func (r *Registry) Retire(sess *Session) {
	r.lock.LockWrite()
	defer r.lock.Unlock()
	r.slots[sess.slot].completed = true
}

// Broadcast writes an encoded record body to every live session except
// exclude (pass nil to reach everyone). Send failures are logged and
// skipped so one dead connection never blocks delivery to the rest.
func (r *Registry) Broadcast(body []byte, exclude *Session) (sent, failed int) {
	r.lock.LockRead()
	defer r.lock.Unlock()

	for _, sl := range r.slots {
		if sl.completed || sl.session == exclude {
			continue
		}
		if err := sl.session.SendBody(body); err != nil {
			failed++
			logger.Warn("Failed to deliver record",
				logger.Client(sl.session.name),
				logger.SessionID(sl.session.id),
				logger.Err(err),
			)
			continue
		}
		sent++
	}
	return sent, failed
}

// CloseAll closes every live session's connection. Workers observe the
// closed sockets, exit, and retire their own slots.
func (r *Registry) CloseAll() {
	r.lock.LockWrite()
	defer r.lock.Unlock()

	for _, sl := range r.slots {
		if sl.completed {
			continue
		}
		_ = sl.session.conn.Close()
	}
}
