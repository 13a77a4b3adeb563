package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// handleSearch only supports the UNDELETED key.
func handleSearch(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	if args[0] != "UNDELETED" || len(args) > 1 {
		return nil, imap.Bad("not here yet")
	}

	enc := s.Encoder()
	enc.Atom("*").SP().Atom("SEARCH")
	for i, msg := range s.mailbox.Messages() {
		if msg.HasFlag(imap.FlagDeleted) {
			continue
		}
		if uid {
			enc.SP().Number(msg.UID())
		} else {
			enc.SP().Number(uint32(i) + 1)
		}
	}
	s.WriteLine(enc.Line())
	return statusOK("SEARCH COMPLETED"), nil
}
