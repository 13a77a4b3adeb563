package imapserver

import (
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleUID(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	h := s.server.handler
	name := strings.ToUpper(args[0].(string))
	if !h.isUIDCommand(name) {
		return nil, imap.Bad("illegal command %v", name)
	}

	args, err := imapwire.Format(args[1:], h.formats[name])
	if err != nil {
		return nil, err
	}
	return h.commands[name](s, args, true)
}
