package imapmemserver

import (
	"strings"

	"github.com/emersion/go-imapfake"
)

// MailboxOptions is the initial state of a mailbox. Zero values select the
// defaults.
type MailboxOptions struct {
	Subscribed     bool
	Delim          string
	Attrs          []imap.MailboxAttr
	UIDNext        uint32
	UIDValidity    uint32
	MessageFlags   []imap.Flag
	PermanentFlags []imap.Flag
	NamespaceType  imap.NamespaceType
}

// Mailbox is a node of the mailbox tree.
//
// Mailboxes are not safe for concurrent use: callers hold the daemon lock.
type Mailbox struct {
	tracker *MailboxTracker

	name     string
	parent   *Mailbox
	children []*Mailbox

	delim          string
	subscribed     bool
	uidValidity    uint32
	uidNext        uint32
	attrs          []imap.MailboxAttr
	messageFlags   []imap.Flag
	permanentFlags []imap.Flag
	nsType         imap.NamespaceType

	l []*Message
}

func newMailbox(name string, options *MailboxOptions) *Mailbox {
	if options == nil {
		options = &MailboxOptions{}
	}
	mbox := &Mailbox{
		tracker:        NewMailboxTracker(0),
		name:           name,
		delim:          options.Delim,
		subscribed:     options.Subscribed,
		uidValidity:    options.UIDValidity,
		uidNext:        options.UIDNext,
		attrs:          append([]imap.MailboxAttr(nil), options.Attrs...),
		messageFlags:   options.MessageFlags,
		permanentFlags: options.PermanentFlags,
		nsType:         options.NamespaceType,
	}
	if mbox.delim == "" {
		mbox.delim = "/"
	}
	if mbox.uidNext == 0 {
		mbox.uidNext = 1
	}
	if mbox.messageFlags == nil {
		mbox.messageFlags = imap.DefaultMessageFlags
	}
	if mbox.permanentFlags == nil {
		mbox.permanentFlags = imap.DefaultPermanentFlags
	}
	return mbox
}

// Name returns the last segment of the mailbox name.
func (mbox *Mailbox) Name() string {
	return mbox.name
}

// FullName returns the delimiter-joined path from the root.
func (mbox *Mailbox) FullName() string {
	if mbox.parent == nil || mbox.parent.name == "" {
		return mbox.name
	}
	return mbox.parent.FullName() + mbox.parent.delim + mbox.name
}

func (mbox *Mailbox) Delim() string {
	return mbox.delim
}

func (mbox *Mailbox) Parent() *Mailbox {
	return mbox.parent
}

// Children returns the direct children of the mailbox.
func (mbox *Mailbox) Children() []*Mailbox {
	return append([]*Mailbox(nil), mbox.children...)
}

// AllChildren returns every descendant of the mailbox, depth first.
func (mbox *Mailbox) AllChildren() []*Mailbox {
	var l []*Mailbox
	for _, child := range mbox.children {
		l = append(l, child)
		l = append(l, child.AllChildren()...)
	}
	return l
}

func (mbox *Mailbox) child(name string, fold bool) *Mailbox {
	for _, child := range mbox.children {
		if child.name == name || (fold && strings.EqualFold(child.name, name)) {
			return child
		}
	}
	return nil
}

func (mbox *Mailbox) addChild(child *Mailbox) {
	child.parent = mbox
	mbox.children = append(mbox.children, child)
}

func (mbox *Mailbox) removeChild(child *Mailbox) {
	for i, c := range mbox.children {
		if c == child {
			mbox.children = append(mbox.children[:i], mbox.children[i+1:]...)
			break
		}
	}
	child.parent = nil
}

func (mbox *Mailbox) isAncestorOf(other *Mailbox) bool {
	for p := other; p != nil; p = p.parent {
		if p == mbox {
			return true
		}
	}
	return false
}

func (mbox *Mailbox) Subscribed() bool {
	return mbox.subscribed
}

func (mbox *Mailbox) SetSubscribed(subscribed bool) {
	mbox.subscribed = subscribed
}

// Attrs returns the mailbox attributes, such as \Noselect.
func (mbox *Mailbox) Attrs() []imap.MailboxAttr {
	return append([]imap.MailboxAttr(nil), mbox.attrs...)
}

func (mbox *Mailbox) HasAttr(attr imap.MailboxAttr) bool {
	for _, a := range mbox.attrs {
		if a == attr {
			return true
		}
	}
	return false
}

func (mbox *Mailbox) AddAttr(attr imap.MailboxAttr) {
	if !mbox.HasAttr(attr) {
		mbox.attrs = append(mbox.attrs, attr)
	}
}

// Selectable returns false for \Noselect mailboxes.
func (mbox *Mailbox) Selectable() bool {
	return !mbox.HasAttr(imap.MailboxAttrNoSelect)
}

func (mbox *Mailbox) UIDValidity() uint32 {
	return mbox.uidValidity
}

func (mbox *Mailbox) UIDNext() uint32 {
	return mbox.uidNext
}

// AllocUID returns the next UID and increments UIDNext.
func (mbox *Mailbox) AllocUID() uint32 {
	uid := mbox.uidNext
	mbox.uidNext++
	return uid
}

func (mbox *Mailbox) MessageFlags() []imap.Flag {
	return mbox.messageFlags
}

func (mbox *Mailbox) PermanentFlags() []imap.Flag {
	return mbox.permanentFlags
}

// NamespaceType returns the type of the namespace rooted at this mailbox.
func (mbox *Mailbox) NamespaceType() imap.NamespaceType {
	return mbox.nsType
}

// Messages returns the messages in sequence number order.
func (mbox *Mailbox) Messages() []*Message {
	return append([]*Message(nil), mbox.l...)
}

func (mbox *Mailbox) NumMessages() uint32 {
	return uint32(len(mbox.l))
}

// SeqNum returns the sequence number of msg, or zero if msg is not in the
// mailbox.
func (mbox *Mailbox) SeqNum(msg *Message) uint32 {
	for i, m := range mbox.l {
		if m == msg {
			return uint32(i) + 1
		}
	}
	return 0
}

// AddMessage appends a message. UIDNext is raised above the message UID and
// an EXISTS update is queued for the sessions which selected the mailbox.
func (mbox *Mailbox) AddMessage(msg *Message) {
	mbox.l = append(mbox.l, msg)
	if msg.uid >= mbox.uidNext {
		mbox.uidNext = msg.uid + 1
	}
	mbox.tracker.QueueNumMessages(uint32(len(mbox.l)))
}

// Expunge removes the messages flagged \Deleted. It returns their sequence
// numbers, each computed at the time of its removal.
func (mbox *Mailbox) Expunge(source *SessionTracker) []uint32 {
	var seqNums []uint32
	for i := 0; i < len(mbox.l); {
		if !mbox.l[i].HasFlag(imap.FlagDeleted) {
			i++
			continue
		}
		seqNum := uint32(i) + 1
		mbox.l = append(mbox.l[:i], mbox.l[i+1:]...)
		mbox.tracker.QueueExpunge(seqNum, source)
		seqNums = append(seqNums, seqNum)
	}
	return seqNums
}

// Remove removes the given messages, last one first. It returns the
// sequence numbers in removal order.
func (mbox *Mailbox) Remove(msgs []*Message, source *SessionTracker) []uint32 {
	var seqNums []uint32
	for i := len(msgs) - 1; i >= 0; i-- {
		seqNum := mbox.SeqNum(msgs[i])
		if seqNum == 0 {
			continue
		}
		mbox.l = append(mbox.l[:seqNum-1], mbox.l[seqNum:]...)
		mbox.tracker.QueueExpunge(seqNum, source)
		seqNums = append(seqNums, seqNum)
	}
	return seqNums
}

func (mbox *Mailbox) clearMessages() {
	mbox.l = nil
	mbox.tracker = NewMailboxTracker(0)
}

// HighestUID returns the UID of the last message, or zero if the mailbox is
// empty.
func (mbox *Mailbox) HighestUID() uint32 {
	var uid uint32
	for _, msg := range mbox.l {
		if msg.uid > uid {
			uid = msg.uid
		}
	}
	return uid
}

// NumRecent returns the number of messages with the recent flag.
func (mbox *Mailbox) NumRecent() uint32 {
	var n uint32
	for _, msg := range mbox.l {
		if msg.recent {
			n++
		}
	}
	return n
}

// NumUnseen returns the number of messages without \Seen.
func (mbox *Mailbox) NumUnseen() uint32 {
	var n uint32
	for _, msg := range mbox.l {
		if !msg.HasFlag(imap.FlagSeen) {
			n++
		}
	}
	return n
}

// FirstUnseen returns the sequence number of the first message without
// \Seen, or zero.
func (mbox *Mailbox) FirstUnseen() uint32 {
	for i, msg := range mbox.l {
		if !msg.HasFlag(imap.FlagSeen) {
			return uint32(i) + 1
		}
	}
	return 0
}

// NewSession starts tracking the mailbox for a session.
func (mbox *Mailbox) NewSession() *SessionTracker {
	return mbox.tracker.NewSession()
}

// MatchKids returns the descendants matching a LIST pattern.
//
// The pattern is split on the delimiter. For each segment, candidates are the
// children of the previous matches, or all their descendants if the segment
// contains "*". A "*" or "%" segment keeps every candidate; other segments
// keep candidates whose full name contains the segment's non-wildcard pieces
// in order. An empty pattern returns the top of the tree.
func (mbox *Mailbox) MatchKids(pattern string) []*Mailbox {
	if pattern == "" {
		top := mbox
		for top.parent != nil {
			top = top.parent
		}
		return []*Mailbox{top}
	}

	matching := []*Mailbox{mbox}
	for _, segment := range strings.Split(pattern, mbox.delim) {
		if segment == "" {
			continue
		}

		var candidates []*Mailbox
		for _, m := range matching {
			if strings.Contains(segment, "*") {
				candidates = append(candidates, m.AllChildren()...)
			} else {
				candidates = append(candidates, m.children...)
			}
		}

		if segment == "*" || segment == "%" {
			matching = candidates
			continue
		}

		pieces := strings.FieldsFunc(segment, func(r rune) bool {
			return r == '*' || r == '%'
		})
		matching = matching[:0:0]
		for _, m := range candidates {
			if containsInOrder(m.FullName(), pieces) {
				matching = append(matching, m)
			}
		}
	}
	return matching
}

func containsInOrder(s string, pieces []string) bool {
	for _, piece := range pieces {
		i := strings.Index(s, piece)
		if i < 0 {
			return false
		}
		s = s[i+len(piece):]
	}
	return true
}
