package imapserver

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

const greeting = "* OK IMAP4rev1 Fakeserver started up"

// Session is the server side of an IMAP connection.
//
// A session processes one line at a time and returns the whole response,
// CRLF-terminated. It must not be used concurrently.
type Session struct {
	server *Server

	state    imap.ConnState
	mailbox  *imapmemserver.Mailbox
	tracker  *imapmemserver.SessionTracker
	readOnly bool
	closing  bool

	tag     string
	name    string
	pending *imapwire.Pending
	auth    *authExchange

	lines []string
	enc   imapwire.Encoder
	delay time.Duration
}

// Greeting returns the untagged OK response sent on connection.
func (s *Session) Greeting() string {
	return greeting + "\r\n"
}

// State returns the connection state.
func (s *Session) State() imap.ConnState {
	return s.state
}

// Closing returns true once the connection should be closed, after LOGOUT
// or a dropped STARTTLS.
func (s *Session) Closing() bool {
	return s.closing
}

// Daemon returns the mailbox store.
func (s *Session) Daemon() *imapmemserver.Daemon {
	return s.server.daemon
}

// Mailbox returns the selected mailbox, or nil.
func (s *Session) Mailbox() *imapmemserver.Mailbox {
	return s.mailbox
}

// ReadOnly returns true if the selected mailbox was opened with EXAMINE.
func (s *Session) ReadOnly() bool {
	return s.readOnly
}

// Close releases the resources of the session.
func (s *Session) Close() {
	if s.tracker != nil {
		s.tracker.Close()
		s.tracker = nil
	}
}

// WriteLine queues an untagged response line, or a continuation request.
func (s *Session) WriteLine(line string) {
	s.lines = append(s.lines, line)
}

// Encoder returns an encoder for the next response line. Its Line method
// resets it.
func (s *Session) Encoder() *imapwire.Encoder {
	return &s.enc
}

// Sleep delays the response of the current command. The daemon is unlocked
// during the delay.
func (s *Session) Sleep(d time.Duration) {
	s.delay += d
}

// SendLine processes a command line, without CRLF. If the session is waiting
// for literal data or a SASL response, the line is handed to
// SendContinuation.
func (s *Session) SendLine(line string) string {
	if s.pending != nil || s.auth != nil {
		resp, _ := s.SendContinuation(line)
		return resp
	}

	tag, rest, _ := strings.Cut(line, " ")
	name, text, _ := strings.Cut(rest, " ")
	s.tag = tag
	s.name = strings.ToUpper(name)

	args, pending, err := imapwire.Parse(text)
	if err != nil {
		return s.tagged(&imap.StatusResponse{Type: imap.StatusResponseTypeBad, Text: err.Error()})
	}
	if pending != nil {
		s.pending = pending
		return "+ More!\r\n"
	}
	return s.exec(func() (*imap.StatusResponse, error) {
		return s.dispatch(args)
	})
}

// SendContinuation feeds a line of literal data or a SASL response. more is
// true if the session needs more data to complete the command.
func (s *Session) SendContinuation(line string) (resp string, more bool) {
	switch {
	case s.auth != nil:
		ex := s.auth
		s.auth = nil
		resp = s.exec(func() (*imap.StatusResponse, error) {
			return s.continueAuth(ex, line)
		})
	case s.pending != nil:
		args, next, needMore, err := s.pending.Feed(line)
		if err != nil {
			s.pending = nil
			return s.tagged(&imap.StatusResponse{
				Type: imap.StatusResponseTypeBad,
				Text: "parse error: " + err.Error(),
			}), false
		} else if needMore {
			return "", true
		} else if next != nil {
			s.pending = next
			return "+ I'll be needing more text\r\n", true
		}
		s.pending = nil
		resp = s.exec(func() (*imap.StatusResponse, error) {
			return s.dispatch(args)
		})
	}
	return resp, s.pending != nil || s.auth != nil
}

func (s *Session) tagged(resp *imap.StatusResponse) string {
	return s.tag + " " + resp.String() + "\r\n"
}

// exec runs f with the daemon locked and builds the response: mailbox
// updates first, then the lines written by f, then the tagged status.
func (s *Session) exec(f func() (*imap.StatusResponse, error)) string {
	d := s.server.daemon
	start := time.Now()

	d.Lock()
	resp := s.call(f)
	var updates []imapmemserver.Update
	if s.tracker != nil {
		updates = s.tracker.Poll(allowExpunge(s.name))
	}
	lines := s.lines
	s.lines = nil
	delay := s.delay
	s.delay = 0
	d.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	label := s.name
	if s.server.handler.commands[label] == nil {
		label = "unknown"
	}
	observeCommand(label, resp, time.Since(start))

	if resp == nil && s.closing {
		return ""
	}

	var sb strings.Builder
	for _, update := range updates {
		if update.Expunge != 0 {
			fmt.Fprintf(&sb, "* %v EXPUNGE\r\n", update.Expunge)
		} else {
			fmt.Fprintf(&sb, "* %v EXISTS\r\n", update.NumMessages)
		}
	}
	for _, line := range lines {
		sb.WriteString(line)
		sb.WriteString("\r\n")
	}
	if resp != nil {
		sb.WriteString(s.tagged(resp))
	}
	return sb.String()
}

// call runs f, turning errors and panics into a status response.
func (s *Session) call(f func() (*imap.StatusResponse, error)) (resp *imap.StatusResponse) {
	defer func() {
		if v := recover(); v != nil {
			s.server.logger().Printf("panic handling %v command: %v\n%s", s.name, v, debug.Stack())
			s.lines = nil
			resp = &imap.StatusResponse{
				Type: imap.StatusResponseTypeBad,
				Text: fmt.Sprintf("internal server error: %v", v),
			}
		}
	}()

	resp, err := f()
	if err != nil {
		return s.errorResponse(err)
	}
	return resp
}

func (s *Session) errorResponse(err error) *imap.StatusResponse {
	var (
		imapErr  *imap.Error
		parseErr *imapwire.ParseError
		seqErr   imap.ErrBadSeqSet
	)
	switch {
	case errors.As(err, &imapErr):
		return (*imap.StatusResponse)(imapErr)
	case errors.As(err, &parseErr):
		return &imap.StatusResponse{Type: imap.StatusResponseTypeBad, Text: parseErr.Text}
	case errors.As(err, &seqErr):
		return &imap.StatusResponse{Type: imap.StatusResponseTypeBad, Text: seqErr.Error()}
	default:
		s.server.logger().Printf("handling %v command: %v", s.name, err)
		return &imap.StatusResponse{
			Type: imap.StatusResponseTypeBad,
			Text: fmt.Sprintf("internal server error: %v", err),
		}
	}
}

func (s *Session) dispatch(args imapwire.List) (*imap.StatusResponse, error) {
	h := s.server.handler
	name := s.name

	if fail := s.server.daemon.CommandToFail(); fail != "" && name == fail {
		return nil, imap.No("%v failed", name)
	}
	f := h.commands[name]
	if f == nil {
		return nil, imap.Bad("%v not implemented", name)
	}
	if !h.isEnabled(s.state, name) {
		return nil, imap.Bad("illegal command for current state %d", s.state)
	}

	args, err := imapwire.Format(args, h.formats[name])
	if err != nil {
		return nil, err
	}
	return f(s, args, false)
}

// Commands dealing with sequence numbers must not see them shift under
// their feet.
func allowExpunge(name string) bool {
	switch name {
	case "FETCH", "STORE", "SEARCH":
		return false
	default:
		return true
	}
}

func (s *Session) selectMailbox(mbox *imapmemserver.Mailbox, readOnly bool) {
	s.unselect()
	s.state = imap.ConnStateSelected
	s.mailbox = mbox
	s.readOnly = readOnly
	s.tracker = mbox.NewSession()
}

// unselect synchronizes and leaves the selected mailbox, if any.
func (s *Session) unselect() {
	if s.mailbox == nil {
		return
	}
	s.server.daemon.Synchronize(s.mailbox, !s.readOnly)
	s.tracker.Close()
	s.tracker = nil
	s.mailbox = nil
	s.readOnly = false
	if s.state == imap.ConnStateSelected {
		s.state = imap.ConnStateAuthenticated
	}
}

func statusOK(text string) *imap.StatusResponse {
	return &imap.StatusResponse{Type: imap.StatusResponseTypeOK, Text: text}
}

func statusOKCode(code imap.ResponseCode, text string) *imap.StatusResponse {
	return &imap.StatusResponse{Type: imap.StatusResponseTypeOK, Code: code, Text: text}
}
