package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleCreate(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	d := s.server.daemon
	name := args[0].(string)
	if d.Mailbox(name) != nil {
		return nil, imap.No("mailbox already exists")
	}
	if !d.CreateMailbox(name) {
		return nil, imap.No("cannot create mailbox")
	}
	return statusOK("CREATE completed"), nil
}

func handleDelete(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	d := s.server.daemon
	mbox := d.Mailbox(args[0].(string))
	if mbox == nil || mbox == d.Root() {
		return nil, imap.No("no such mailbox")
	}
	if len(mbox.Children()) > 0 && mbox.HasAttr(imap.MailboxAttrNoSelect) {
		return nil, imap.No("cannot delete mailbox")
	}
	d.DeleteMailbox(mbox)
	return statusOK("DELETE completed"), nil
}

func handleRename(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	d := s.server.daemon
	mbox := d.Mailbox(args[0].(string))
	if mbox == nil || mbox == d.Root() {
		return nil, imap.No("no such mailbox")
	}
	if !d.RenameMailbox(mbox, args[1].(string)) {
		return nil, imap.No("cannot rename mailbox")
	}
	return statusOK("RENAME completed"), nil
}

func handleSubscribe(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	mbox := s.server.daemon.Mailbox(args[0].(string))
	if mbox == nil {
		return nil, imap.No("error in subscribing")
	}
	mbox.SetSubscribed(true)
	return statusOK("SUBSCRIBE completed"), nil
}

func handleUnsubscribe(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	if mbox := s.server.daemon.Mailbox(args[0].(string)); mbox != nil {
		mbox.SetSubscribed(false)
	}
	return statusOK("UNSUBSCRIBE completed"), nil
}
