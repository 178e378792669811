// Package rwlock provides a readers-writer lock with writer priority and a
// single Unlock entry point for both sides.
//
// The registry it guards is read on every routed message but written only on
// session add, retire, and rename, so queued writers must not starve behind
// a steady stream of readers: once a writer is waiting, later readers queue
// behind it. When the lock drains, one pending writer is promoted; if none
// is pending, every queued reader is admitted in a single batch sharing one
// admission generation.
package rwlock

import "sync"

// Lock is a writer-priority readers-writer lock. The zero value is not
// usable; call New.
//
// Unlike sync.RWMutex there is one Unlock for readers and writers: the lock
// tracks which side holds it.
type Lock struct {
	mu       sync.Mutex
	canRead  *sync.Cond
	canWrite *sync.Cond

	// curr is -1 while a writer holds the lock, otherwise the number of
	// readers currently inside.
	curr           int
	pendingReaders int
	pendingWriters int

	// readGen advances once per reader-batch admission; queued readers wait
	// for the generation they enqueued under to pass.
	readGen uint64

	// writerGrants counts promotions handed out by Unlock and not yet
	// consumed by a woken writer.
	writerGrants int
}

// New returns a ready-to-use Lock.
func New() *Lock {
	l := &Lock{}
	l.canRead = sync.NewCond(&l.mu)
	l.canWrite = sync.NewCond(&l.mu)
	return l
}

// LockRead acquires the lock for reading. It admits immediately while the
// lock is free or reader-held with no writer waiting; otherwise it queues
// until a whole reader batch is admitted.
func (l *Lock) LockRead() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.curr >= 0 && l.pendingWriters == 0 {
		l.curr++
		return
	}

	l.pendingReaders++
	gen := l.readGen
	for l.readGen == gen {
		l.canRead.Wait()
	}
	// curr already counts this reader: admission set curr to the size of
	// the queued batch.
}

// LockWrite acquires the lock for writing. It admits immediately only when
// the lock is completely free; otherwise it queues until Unlock promotes it.
func (l *Lock) LockWrite() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.curr == 0 && l.pendingWriters == 0 && l.writerGrants == 0 {
		l.curr = -1
		return
	}

	l.pendingWriters++
	for l.writerGrants == 0 {
		l.canWrite.Wait()
	}
	l.writerGrants--
	// curr was set to -1 on this writer's behalf by Unlock.
}

// Unlock releases the lock for whichever side holds it. When the last holder
// leaves, a pending writer wins over pending readers.
func (l *Lock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case l.curr == -1:
		l.curr = 0
	case l.curr > 0:
		l.curr--
	}
	if l.curr != 0 {
		return
	}

	if l.pendingWriters > 0 {
		l.curr = -1
		l.pendingWriters--
		l.writerGrants++
		l.canWrite.Signal()
	} else if l.pendingReaders > 0 {
		l.curr = l.pendingReaders
		l.pendingReaders = 0
		l.readGen++
		l.canRead.Broadcast()
	}
}
