package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleCopy(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	msgs, err := s.messages(args[0], uid)
	if err != nil {
		return nil, err
	}
	if _, err := s.copyMessages(msgs, args[1].(string)); err != nil {
		return nil, err
	}
	return statusOK("COPY completed"), nil
}

// copyMessages clones msgs into the named mailbox. It returns the
// destination mailbox.
func (s *Session) copyMessages(msgs []seqMessage, name string) (*imapmemserver.Mailbox, error) {
	dest := s.server.daemon.Mailbox(name)
	if dest == nil {
		return nil, imap.NoCode(imap.ResponseCodeTryCreate, "what mailbox?")
	}
	for _, msg := range msgs {
		dest.AddMessage(msg.Clone(dest.AllocUID()))
	}
	s.Sleep(s.server.daemon.CopyDelay())
	return dest, nil
}
