package imapserver

import (
	"github.com/emersion/go-sasl"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// CommandFunc handles a command. args have been formatted with the command
// format, uid is true when the command runs under UID.
//
// Returning a nil response and a nil error sends no tagged response, which
// is what a command still waiting for client data does.
type CommandFunc func(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error)

// FetchItemFunc renders one FETCH data item, e.g. "FLAGS (\Seen)". item is
// the upper-cased item as requested by the client.
type FetchItemFunc func(ctx *FetchContext, item string) (string, error)

// Mechanism is a SASL mechanism available to AUTHENTICATE.
type Mechanism struct {
	Name      string
	NewServer func(s *Session) sasl.Server
	// Text of the tagged OK response once authenticated.
	Text string
}

// Extension is a bundle of commands, capabilities and FETCH items which can
// be enabled on a Handler.
type Extension struct {
	Name         string
	Commands     map[string]CommandFunc
	Capabilities []imap.Cap
	Mechanisms   []*Mechanism
	// Enabled lists the commands allowed in each connection state.
	Enabled     map[imap.ConnState][]string
	Formats     map[string][]string
	FetchItems  map[string]FetchItemFunc
	UIDCommands []string
	// Preload is called before the extension tables are merged. It can wrap
	// commands which are already registered.
	Preload func(h *Handler)
}

// Handler holds the command tables of a server.
type Handler struct {
	commands    map[string]CommandFunc
	formats     map[string][]string
	enabled     map[imap.ConnState][]string
	caps        []imap.Cap
	mechanisms  []*Mechanism
	fetchItems  map[string]FetchItemFunc
	uidCommands []string
	extensions  []string
}

// NewHandler creates a handler implementing plain RFC 3501.
func NewHandler() *Handler {
	h := &Handler{
		commands: map[string]CommandFunc{
			"CAPABILITY":   handleCapability,
			"NOOP":         handleNoop,
			"LOGOUT":       handleLogout,
			"STARTTLS":     handleStartTLS,
			"AUTHENTICATE": handleAuthenticate,
			"LOGIN":        handleLogin,
			"SELECT":       handleSelect,
			"EXAMINE":      handleSelect,
			"CREATE":       handleCreate,
			"DELETE":       handleDelete,
			"RENAME":       handleRename,
			"SUBSCRIBE":    handleSubscribe,
			"UNSUBSCRIBE":  handleUnsubscribe,
			"LIST":         handleList,
			"LSUB":         handleList,
			"STATUS":       handleStatus,
			"APPEND":       handleAppend,
			"CHECK":        handleCheck,
			"CLOSE":        handleClose,
			"EXPUNGE":      handleExpunge,
			"SEARCH":       handleSearch,
			"FETCH":        handleFetch,
			"STORE":        handleStore,
			"COPY":         handleCopy,
			"UID":          handleUID,
		},
		formats: map[string][]string{
			"CAPABILITY":   nil,
			"NOOP":         nil,
			"LOGOUT":       nil,
			"STARTTLS":     nil,
			"AUTHENTICATE": {"atom", "..."},
			"LOGIN":        {"string", "string"},
			"SELECT":       {"mailbox"},
			"EXAMINE":      {"mailbox"},
			"CREATE":       {"mailbox"},
			"DELETE":       {"mailbox"},
			"RENAME":       {"mailbox", "mailbox"},
			"SUBSCRIBE":    {"mailbox"},
			"UNSUBSCRIBE":  {"mailbox"},
			"LIST":         {"mailbox", "mailbox"},
			"LSUB":         {"mailbox", "mailbox"},
			"STATUS":       {"mailbox", "(atom)"},
			"APPEND":       {"mailbox", "[(flag)]", "[ndate]", "string"},
			"CHECK":        nil,
			"CLOSE":        nil,
			"EXPUNGE":      nil,
			"SEARCH":       {"atom", "..."},
			"FETCH":        {"number", "atom|(atom|(atom))"},
			"STORE":        {"number", "atom", "flag|(flag)"},
			"COPY":         {"number", "mailbox"},
			"UID":          {"atom", "..."},
		},
		enabled: map[imap.ConnState][]string{
			imap.ConnStateNotAuthenticated: {"CAPABILITY", "NOOP", "LOGOUT", "STARTTLS", "AUTHENTICATE", "LOGIN"},
			imap.ConnStateAuthenticated:    authenticatedCommands,
			imap.ConnStateSelected: append(append([]string(nil), authenticatedCommands...),
				"CHECK", "CLOSE", "EXPUNGE", "SEARCH", "FETCH", "STORE", "COPY", "UID"),
		},
		fetchItems: map[string]FetchItemFunc{
			"FLAGS":         fetchFlags,
			"INTERNALDATE":  fetchInternalDate,
			"RFC822":        fetchRFC822,
			"UID":           fetchUID,
			"BODY":          fetchBody,
			"BODYSTRUCTURE": fetchBodyStructure,
		},
		uidCommands: []string{"FETCH", "STORE", "SEARCH", "COPY"},
	}
	return h
}

var authenticatedCommands = []string{
	"CAPABILITY", "NOOP", "LOGOUT", "SELECT", "EXAMINE", "CREATE", "DELETE",
	"RENAME", "SUBSCRIBE", "UNSUBSCRIBE", "LIST", "LSUB", "STATUS", "APPEND",
}

// Enable merges an extension into the handler: commands, formats and FETCH
// items overwrite existing entries, lists are appended.
func (h *Handler) Enable(ext *Extension) {
	if ext.Preload != nil {
		ext.Preload(h)
	}
	for name, f := range ext.Commands {
		h.commands[name] = f
	}
	for name, format := range ext.Formats {
		h.formats[name] = format
	}
	for state, names := range ext.Enabled {
		h.enabled[state] = append(h.enabled[state], names...)
	}
	for name, f := range ext.FetchItems {
		h.fetchItems[name] = f
	}
	for _, c := range ext.Capabilities {
		if !h.hasCap(c) {
			h.caps = append(h.caps, c)
		}
	}
	h.mechanisms = append(h.mechanisms, ext.Mechanisms...)
	h.uidCommands = append(h.uidCommands, ext.UIDCommands...)
	h.extensions = append(h.extensions, ext.Name)
}

// Wrap replaces the command name with f(previous). previous is nil if the
// command wasn't registered.
func (h *Handler) Wrap(name string, f func(next CommandFunc) CommandFunc) {
	h.commands[name] = f(h.commands[name])
}

// Command returns the function handling name, or nil.
func (h *Handler) Command(name string) CommandFunc {
	return h.commands[name]
}

// Format returns the argument format of a command.
func (h *Handler) Format(name string) []string {
	return h.formats[name]
}

// SetFormat replaces the argument format of a command.
func (h *Handler) SetFormat(name string, format []string) {
	h.formats[name] = format
}

// Capabilities returns the capabilities added by extensions, without
// IMAP4rev1 and AUTH= entries.
func (h *Handler) Capabilities() []imap.Cap {
	return append([]imap.Cap(nil), h.caps...)
}

// Mechanisms returns the names of the available SASL mechanisms.
func (h *Handler) Mechanisms() []string {
	l := make([]string, len(h.mechanisms))
	for i, mech := range h.mechanisms {
		l[i] = mech.Name
	}
	return l
}

// Extensions returns the names of the enabled extensions.
func (h *Handler) Extensions() []string {
	return append([]string(nil), h.extensions...)
}

func (h *Handler) hasCap(c imap.Cap) bool {
	for _, v := range h.caps {
		if v == c {
			return true
		}
	}
	return false
}

func (h *Handler) mechanism(name string) *Mechanism {
	for _, mech := range h.mechanisms {
		if mech.Name == name {
			return mech
		}
	}
	return nil
}

func (h *Handler) isEnabled(state imap.ConnState, name string) bool {
	return contains(h.enabled[state], name)
}

func (h *Handler) isUIDCommand(name string) bool {
	return contains(h.uidCommands, name)
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}
