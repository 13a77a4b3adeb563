package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleLogin(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	if s.server.hasCap(imap.CapLoginDisabled) {
		return nil, imap.Bad("old-style LOGIN is disabled, use AUTHENTICATE")
	}

	username, password := args[0].(string), args[1].(string)
	if err := s.server.daemon.User().Login(username, password); err != nil {
		return nil, err
	}
	s.state = imap.ConnStateAuthenticated
	return statusOK("authenticated"), nil
}
