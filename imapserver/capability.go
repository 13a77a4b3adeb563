package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleCapability(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	enc := s.Encoder()
	enc.Atom("*").SP().Atom("CAPABILITY").SP().Atom(string(imap.CapIMAP4rev1))
	for _, c := range s.server.caps {
		enc.SP().Atom(string(c))
	}
	for _, mech := range s.server.handler.mechanisms {
		enc.SP().Atom("AUTH=" + mech.Name)
	}
	s.WriteLine(enc.Line())
	return statusOK("CAPABILITY completed"), nil
}

func handleNoop(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	return statusOK("NOOP completed"), nil
}

func handleLogout(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	s.closing = true
	s.unselect()
	s.state = imap.ConnStateNotAuthenticated
	s.WriteLine("* BYE IMAP4rev1 Logging out")
	return statusOK("LOGOUT completed"), nil
}

func handleStartTLS(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	if s.server.options.DropOnStartTLS {
		s.closing = true
		return nil, nil
	}
	return nil, imap.Bad("maild doesn't support TLS ATM")
}
