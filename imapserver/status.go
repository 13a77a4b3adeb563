package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleStatus(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	name := args[0].(string)
	mbox := s.server.daemon.Mailbox(name)
	if mbox == nil {
		return nil, imap.No("no such mailbox exists")
	}
	if mbox.HasAttr(imap.MailboxAttrNoSelect) {
		return nil, imap.No("STATUS not allowed on Noselect folder")
	}

	items := args[1].(imapwire.List)
	values := make([]uint32, len(items))
	for i, item := range items {
		switch item.(string) {
		case "MESSAGES":
			values[i] = mbox.NumMessages()
		case "RECENT":
			values[i] = mbox.NumRecent()
		case "UIDNEXT":
			values[i] = mbox.UIDNext()
		case "UIDVALIDITY":
			values[i] = mbox.UIDValidity()
		case "UNSEEN":
			values[i] = mbox.NumUnseen()
		default:
			return nil, imap.Bad("unknown status flag: %v", item)
		}
	}

	enc := s.Encoder()
	enc.Atom("*").SP().Atom("STATUS").SP().Mailbox(name).SP()
	enc.List(len(items), func(i int) {
		enc.Atom(items[i].(string)).SP().Number(values[i])
	})
	s.WriteLine(enc.Line())
	return statusOK("STATUS completed"), nil
}
