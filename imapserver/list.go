package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// handleList handles LIST and LSUB. LSUB only returns subscribed mailboxes.
func handleList(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	base := s.server.daemon.Mailbox(args[0].(string))
	if base == nil {
		return nil, imap.No("no such mailbox")
	}

	lsub := s.name == "LSUB"
	for _, mbox := range base.MatchKids(args[1].(string)) {
		if lsub && !mbox.Subscribed() {
			continue
		}
		s.writeList(s.name, mbox.Attrs(), mbox)
	}
	return statusOK(s.name + " completed"), nil
}

func (s *Session) writeList(name string, attrs []imap.MailboxAttr, mbox *imapmemserver.Mailbox) {
	enc := s.Encoder()
	enc.Atom("*").SP().Atom(name).SP().MailboxAttrs(attrs).SP().Quoted(mbox.Delim()).SP().Mailbox(mbox.FullName())
	s.WriteLine(enc.Line())
}
