// Package imap defines the types shared by the IMAP4rev1 server simulator.
//
// IMAP4rev1 is defined in RFC 3501.
package imap

import (
	"fmt"
)

// MailboxAttr is a mailbox attribute.
//
// Mailbox attributes are defined in RFC 3501 section 7.2.2.
type MailboxAttr string

const (
	MailboxAttrNoInferiors MailboxAttr = "\\Noinferiors"
	MailboxAttrNoSelect    MailboxAttr = "\\Noselect"
	MailboxAttrMarked      MailboxAttr = "\\Marked"
	MailboxAttrUnmarked    MailboxAttr = "\\Unmarked"

	// XLIST special folders
	MailboxAttrInbox   MailboxAttr = "\\Inbox"
	MailboxAttrAllMail MailboxAttr = "\\AllMail"
	MailboxAttrDrafts  MailboxAttr = "\\Drafts"
	MailboxAttrSent    MailboxAttr = "\\Sent"
	MailboxAttrStarred MailboxAttr = "\\Starred"
	MailboxAttrSpam    MailboxAttr = "\\Spam"
)

// Flag is a message flag.
//
// Message flags are defined in RFC 3501 section 2.3.2.
type Flag string

const (
	// System flags
	FlagSeen     Flag = "\\Seen"
	FlagAnswered Flag = "\\Answered"
	FlagFlagged  Flag = "\\Flagged"
	FlagDeleted  Flag = "\\Deleted"
	FlagDraft    Flag = "\\Draft"
	FlagRecent   Flag = "\\Recent"

	// Permanent flags
	FlagWildcard Flag = "\\*"
)

// DefaultMessageFlags is the list reported in the FLAGS response of a new
// mailbox.
var DefaultMessageFlags = []Flag{FlagSeen, FlagAnswered, FlagFlagged, FlagDeleted, FlagDraft}

// DefaultPermanentFlags is the list reported in PERMANENTFLAGS of a new
// mailbox.
var DefaultPermanentFlags = []Flag{FlagSeen, FlagAnswered, FlagFlagged, FlagDeleted, FlagDraft, FlagWildcard}

// ConnState describes the connection state.
//
// See RFC 3501 section 3. The numeric values are reported to clients in
// "illegal command" errors.
type ConnState int

const (
	ConnStateNotAuthenticated ConnState = iota
	ConnStateAuthenticated
	ConnStateSelected
)

// String implements fmt.Stringer.
func (state ConnState) String() string {
	switch state {
	case ConnStateNotAuthenticated:
		return "not authenticated"
	case ConnStateAuthenticated:
		return "authenticated"
	case ConnStateSelected:
		return "selected"
	default:
		panic(fmt.Errorf("imap: unknown connection state %v", int(state)))
	}
}

// NamespaceType is the kind of a namespace root, as defined in RFC 2342.
type NamespaceType int

const (
	NamespacePersonal NamespaceType = iota
	NamespaceOtherUsers
	NamespaceShared
)

// Cap represents an IMAP capability.
type Cap string

const (
	CapIMAP4rev1     Cap = "IMAP4rev1"
	CapStartTLS      Cap = "STARTTLS"
	CapLoginDisabled Cap = "LOGINDISABLED"

	CapNamespace Cap = "NAMESPACE" // RFC 2342
	CapID        Cap = "ID"        // RFC 2971
	CapUIDPlus   Cap = "UIDPLUS"   // RFC 4315
	CapMove      Cap = "MOVE"      // RFC 6851
	CapXList     Cap = "XLIST"
	CapGmailExt1 Cap = "X-GM-EXT-1"
	CapCustom1   Cap = "X-CUSTOM1"
)
