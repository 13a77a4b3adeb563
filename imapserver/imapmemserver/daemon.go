// Package imapmemserver implements the in-memory mailbox store of the IMAP
// server simulator.
package imapmemserver

import (
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-imapfake"
)

// Daemon behaviour flags.
const (
	// FlagCaseInsensitive makes mailbox name lookups case-insensitive.
	FlagCaseInsensitive = 1 << iota
	// FlagNeedsDelimiter requires a trailing delimiter on CREATE for the new
	// mailbox to accept children.
	FlagNeedsDelimiter
)

// SyncFunc is called on synchronizing commands (SELECT, CHECK, CLOSE,
// LOGOUT). It runs with the daemon locked.
type SyncFunc func(d *Daemon)

// Daemon is the mailbox store shared by all sessions of a server.
//
// Daemon embeds a mutex: sessions lock it for the whole dispatch of a
// command. The tree methods (Mailbox, CreateMailbox and friends) don't lock
// by themselves; code running outside a session, such as test setup, must
// either run before the server starts or lock the daemon. The knobs
// (SetCommandToFail, SetCopyDelay...) can be called at any time.
type Daemon struct {
	sync.Mutex

	flags       int
	root        *Mailbox
	inbox       *Mailbox
	namespaces  []*Mailbox
	uidValidity uint32
	syncFunc    SyncFunc
	user        *User

	knobs         sync.Mutex
	commandToFail string
	copyDelay     time.Duration
	idResponse    string
	clientID      string
}

// NewDaemon creates a daemon holding an empty INBOX.
func NewDaemon(flags int, syncFunc SyncFunc) *Daemon {
	d := &Daemon{
		flags:       flags,
		uidValidity: uint32(time.Now().Unix()),
		syncFunc:    syncFunc,
		user:        NewUser("user", "password"),
		idResponse:  "NIL",
	}
	d.root = newMailbox("", &MailboxOptions{NamespaceType: imap.NamespacePersonal})
	d.root.uidValidity = d.nextUIDValidity()
	d.inbox = newMailbox("INBOX", &MailboxOptions{UIDValidity: d.nextUIDValidity()})
	d.root.addChild(d.inbox)
	d.namespaces = []*Mailbox{d.root}
	return d
}

func (d *Daemon) nextUIDValidity() uint32 {
	v := d.uidValidity
	d.uidValidity++
	return v
}

func (d *Daemon) HasFlag(flag int) bool {
	return d.flags&flag == flag
}

func (d *Daemon) Root() *Mailbox {
	return d.root
}

func (d *Daemon) Inbox() *Mailbox {
	return d.inbox
}

// User returns the credentials accepted by LOGIN and AUTHENTICATE.
func (d *Daemon) User() *User {
	d.knobs.Lock()
	defer d.knobs.Unlock()
	return d.user
}

func (d *Daemon) SetUser(u *User) {
	d.knobs.Lock()
	d.user = u
	d.knobs.Unlock()
}

// CommandToFail returns the name of the command which is made to fail with
// "NO <command> failed", or an empty string.
func (d *Daemon) CommandToFail() string {
	d.knobs.Lock()
	defer d.knobs.Unlock()
	return d.commandToFail
}

func (d *Daemon) SetCommandToFail(name string) {
	d.knobs.Lock()
	d.commandToFail = strings.ToUpper(name)
	d.knobs.Unlock()
}

// CopyDelay returns how long COPY stalls after copying, to simulate
// timeouts on large copies.
func (d *Daemon) CopyDelay() time.Duration {
	d.knobs.Lock()
	defer d.knobs.Unlock()
	return d.copyDelay
}

func (d *Daemon) SetCopyDelay(delay time.Duration) {
	d.knobs.Lock()
	d.copyDelay = delay
	d.knobs.Unlock()
}

// IDResponse returns the server parameter list sent in reply to ID.
func (d *Daemon) IDResponse() string {
	d.knobs.Lock()
	defer d.knobs.Unlock()
	return d.idResponse
}

func (d *Daemon) SetIDResponse(resp string) {
	d.knobs.Lock()
	d.idResponse = resp
	d.knobs.Unlock()
}

// ClientID returns the parameter list sent by the last client ID command.
func (d *Daemon) ClientID() string {
	d.knobs.Lock()
	defer d.knobs.Unlock()
	return d.clientID
}

func (d *Daemon) SetClientID(id string) {
	d.knobs.Lock()
	d.clientID = id
	d.knobs.Unlock()
}

// Synchronize calls the sync function. If update is true, the recent flag
// of every message in mbox is cleared.
func (d *Daemon) Synchronize(mbox *Mailbox, update bool) {
	if d.syncFunc != nil {
		d.syncFunc(d)
	}
	if update && mbox != nil {
		for _, msg := range mbox.l {
			msg.recent = false
		}
	}
}

// Namespaces returns the namespace roots, the root mailbox first.
func (d *Daemon) Namespaces() []*Mailbox {
	return append([]*Mailbox(nil), d.namespaces...)
}

// Namespace returns the namespace whose name, followed by its delimiter,
// prefixes name. It defaults to the root.
func (d *Daemon) Namespace(name string) *Mailbox {
	for _, ns := range d.namespaces {
		if strings.HasPrefix(name, ns.name) && strings.HasPrefix(name[len(ns.name):], ns.delim) {
			return ns
		}
	}
	return d.root
}

// CreateNamespace creates a namespace root under the root mailbox.
func (d *Daemon) CreateNamespace(name string, typ imap.NamespaceType) *Mailbox {
	ns := d.AddFixture(name, &MailboxOptions{NamespaceType: typ})
	if ns != nil {
		d.namespaces = append(d.namespaces, ns)
	}
	return ns
}

// Mailbox looks up a mailbox by full name. It returns nil if there is no
// such mailbox.
//
// The empty name is the root. The "INBOX" prefix is case-insensitive. Names
// starting with "#" are looked up in the namespace of the same prefix.
func (d *Daemon) Mailbox(name string) *Mailbox {
	if name == "" {
		return d.root
	}
	if len(name) >= 5 && strings.EqualFold(name[:5], "INBOX") {
		name = "INBOX" + name[5:]
	}
	fold := d.HasFlag(FlagCaseInsensitive)

	if strings.HasPrefix(name, "#") {
		for _, ns := range d.root.children {
			if name == ns.name {
				return ns
			}
			rest := strings.TrimPrefix(name, ns.name)
			if len(rest) == len(name) || !strings.HasPrefix(rest, ns.delim) {
				continue
			}
			return walk(ns, strings.Split(rest[len(ns.delim):], ns.delim), fold)
		}
		return nil
	}

	return walk(d.root, strings.Split(name, d.inbox.delim), fold)
}

func walk(mbox *Mailbox, names []string, fold bool) *Mailbox {
	for _, name := range names {
		mbox = mbox.child(name, fold)
		if mbox == nil {
			return nil
		}
	}
	return mbox
}

// parentFor resolves the parent of a mailbox to be created, and the name of
// the new mailbox. It returns a nil parent if the mailbox cannot be created.
func (d *Daemon) parentFor(name string) (*Mailbox, string) {
	ns := d.Namespace(name)
	if ns.name != "" {
		name = name[len(ns.name)+len(ns.delim):]
	}

	segments := strings.Split(name, ns.delim)
	if segments[len(segments)-1] == "" {
		segments = segments[:len(segments)-1]
	}
	if len(segments) == 0 || segments[len(segments)-1] == "" {
		return nil, ""
	}
	subName := segments[len(segments)-1]

	parent := ns
	fold := d.HasFlag(FlagCaseInsensitive)
	for _, segment := range segments[:len(segments)-1] {
		parent = parent.child(segment, fold)
		if parent == nil || parent.HasAttr(imap.MailboxAttrNoInferiors) {
			return nil, ""
		}
	}
	if parent.HasAttr(imap.MailboxAttrNoInferiors) {
		return nil, ""
	}
	return parent, subName
}

// CreateMailbox creates a new empty mailbox. Missing parents are not
// created. It returns false if the mailbox cannot be created.
func (d *Daemon) CreateMailbox(name string) bool {
	parent, subName := d.parentFor(name)
	if parent == nil {
		return false
	}
	if parent.child(subName, d.HasFlag(FlagCaseInsensitive)) != nil {
		return false
	}

	options := &MailboxOptions{
		Delim:       parent.delim,
		UIDValidity: d.nextUIDValidity(),
	}
	if d.HasFlag(FlagNeedsDelimiter) && !strings.HasSuffix(name, parent.delim) {
		options.Attrs = []imap.MailboxAttr{imap.MailboxAttrNoInferiors}
	}
	parent.addChild(newMailbox(subName, options))
	return true
}

// AddFixture creates a mailbox with a preset state, for test setup. A zero
// UIDValidity is allocated from the daemon counter. It returns nil if the
// mailbox cannot be created or already exists.
func (d *Daemon) AddFixture(name string, options *MailboxOptions) *Mailbox {
	parent, subName := d.parentFor(name)
	if parent == nil || parent.child(subName, d.HasFlag(FlagCaseInsensitive)) != nil {
		return nil
	}
	if options == nil {
		options = &MailboxOptions{}
	}
	o := *options
	if o.Delim == "" {
		o.Delim = parent.delim
	}
	if o.UIDValidity == 0 {
		o.UIDValidity = d.nextUIDValidity()
	}
	mbox := newMailbox(subName, &o)
	parent.addChild(mbox)
	return mbox
}

// RenameMailbox moves a mailbox, its messages and its children to a new
// name. The target gets a new UID validity. Renaming INBOX moves its
// messages and leaves a new empty INBOX behind.
func (d *Daemon) RenameMailbox(old *Mailbox, newName string) bool {
	if old == d.root {
		return false
	}
	parent, subName := d.parentFor(newName)
	if parent == nil || old.isAncestorOf(parent) {
		return false
	}
	if parent.child(subName, d.HasFlag(FlagCaseInsensitive)) != nil {
		return false
	}

	mbox := newMailbox(subName, &MailboxOptions{
		Delim:       parent.delim,
		UIDValidity: d.nextUIDValidity(),
		UIDNext:     old.uidNext,
	})
	mbox.l = old.l
	mbox.tracker = NewMailboxTracker(uint32(len(mbox.l)))
	old.clearMessages()

	if old == d.inbox {
		d.root.removeChild(old)
		d.inbox = newMailbox("INBOX", &MailboxOptions{Delim: old.delim, UIDValidity: d.nextUIDValidity()})
		for _, child := range old.children {
			d.inbox.addChild(child)
		}
		d.root.addChild(d.inbox)
	} else {
		for _, child := range old.children {
			mbox.addChild(child)
		}
		old.parent.removeChild(old)
	}
	old.children = nil
	parent.addChild(mbox)
	return true
}

// DeleteMailbox deletes a mailbox. A mailbox with children is kept as a
// \Noselect node without messages.
func (d *Daemon) DeleteMailbox(mbox *Mailbox) {
	if len(mbox.children) == 0 {
		parent := mbox.parent
		if parent == nil {
			parent = d.root
		}
		parent.removeChild(mbox)
		return
	}
	mbox.clearMessages()
	mbox.AddAttr(imap.MailboxAttrNoSelect)
}
