package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// MoveExtension implements RFC 6851.
func MoveExtension() *Extension {
	return &Extension{
		Name:         "MOVE",
		Commands:     map[string]CommandFunc{"MOVE": handleMove},
		Capabilities: []imap.Cap{imap.CapMove},
		Formats:      map[string][]string{"MOVE": {"number", "mailbox"}},
		Enabled:      map[imap.ConnState][]string{imap.ConnStateSelected: {"MOVE"}},
		UIDCommands:  []string{"MOVE"},
	}
}

func handleMove(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	msgs, err := s.messages(args[0], uid)
	if err != nil {
		return nil, err
	}
	if _, err := s.copyMessages(msgs, args[1].(string)); err != nil {
		return nil, err
	}

	l := make([]*imapmemserver.Message, len(msgs))
	for i, msg := range msgs {
		l[i] = msg.Message
	}
	enc := s.Encoder()
	for _, seqNum := range s.mailbox.Remove(l, s.tracker) {
		s.WriteLine(enc.Atom("*").SP().Number(seqNum).SP().Atom("EXPUNGE").Line())
	}
	return statusOK("MOVE completed"), nil
}
