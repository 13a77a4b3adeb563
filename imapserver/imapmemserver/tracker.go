package imapmemserver

import (
	"fmt"
	"sync"
)

// MailboxTracker tracks the state of a mailbox.
//
// A mailbox can be selected by multiple sessions. Each session has its own
// queue of pending updates, flushed before the next tagged response.
type MailboxTracker struct {
	mutex       sync.Mutex
	numMessages uint32
	sessions    map[*SessionTracker]struct{}
}

// NewMailboxTracker creates a new mailbox tracker.
func NewMailboxTracker(numMessages uint32) *MailboxTracker {
	return &MailboxTracker{
		numMessages: numMessages,
		sessions:    make(map[*SessionTracker]struct{}),
	}
}

// NewSession creates a new session tracker for the mailbox.
//
// The caller must call SessionTracker.Close once they are done with the
// session.
func (t *MailboxTracker) NewSession() *SessionTracker {
	st := &SessionTracker{mailbox: t}
	t.mutex.Lock()
	t.sessions[st] = struct{}{}
	t.mutex.Unlock()
	return st
}

func (t *MailboxTracker) queueUpdate(update *Update, source *SessionTracker) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if update.Expunge != 0 && update.Expunge > t.numMessages {
		panic(fmt.Errorf("imapmemserver: expunge sequence number (%v) out of range (%v messages in mailbox)", update.Expunge, t.numMessages))
	}

	for st := range t.sessions {
		if source != nil && st == source {
			continue
		}
		st.queueUpdate(update)
	}

	switch {
	case update.Expunge != 0:
		t.numMessages--
	default:
		t.numMessages = update.NumMessages
	}
}

// QueueExpunge queues a new EXPUNGE update.
//
// If source is not nil, the update won't be dispatched to it: the session
// that expunged the message reports it itself.
func (t *MailboxTracker) QueueExpunge(seqNum uint32, source *SessionTracker) {
	if seqNum == 0 {
		panic("imapmemserver: invalid expunge message sequence number")
	}
	t.queueUpdate(&Update{Expunge: seqNum}, source)
}

// QueueNumMessages queues a new EXISTS update.
func (t *MailboxTracker) QueueNumMessages(n uint32) {
	t.queueUpdate(&Update{NumMessages: n}, nil)
}

// Update is a pending untagged mailbox update. Exactly one of Expunge and
// NumMessages is meaningful: Expunge is set for EXPUNGE, otherwise the update
// is an EXISTS.
type Update struct {
	Expunge     uint32
	NumMessages uint32
}

// SessionTracker tracks the state of a mailbox for a session.
type SessionTracker struct {
	mailbox *MailboxTracker

	mutex sync.Mutex
	queue []Update
}

// Close unregisters the session.
func (t *SessionTracker) Close() {
	if t.mailbox == nil {
		return
	}
	t.mailbox.mutex.Lock()
	delete(t.mailbox.sessions, t)
	t.mailbox.mutex.Unlock()
	t.mailbox = nil
}

func (t *SessionTracker) queueUpdate(update *Update) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	// Consecutive EXISTS updates collapse into the latest count
	if n := len(t.queue); n > 0 && update.Expunge == 0 && t.queue[n-1].Expunge == 0 {
		t.queue[n-1] = *update
		return
	}
	t.queue = append(t.queue, *update)
}

// Poll dequeues pending mailbox updates for this session.
//
// When allowExpunge is false, updates are dequeued up to the first EXPUNGE.
func (t *SessionTracker) Poll(allowExpunge bool) []Update {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	var updates []Update
	if allowExpunge {
		updates = t.queue
		t.queue = nil
		return updates
	}

	stopIndex := -1
	for i, update := range t.queue {
		if update.Expunge != 0 {
			stopIndex = i
			break
		}
		updates = append(updates, update)
	}
	if stopIndex >= 0 {
		t.queue = t.queue[stopIndex:]
	} else {
		t.queue = nil
	}
	return updates
}
