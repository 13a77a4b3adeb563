package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

const gmailAllMail = "[Gmail]/All Mail"

var gmailFolders = []string{gmailAllMail, "[Gmail]/Sent Mail", "[Gmail]/Drafts", "[Gmail]/Starred", "[Gmail]/Spam"}

var xlistSpecialAttrs = map[string]imap.MailboxAttr{
	gmailAllMail:        imap.MailboxAttrAllMail,
	"[Gmail]/Drafts":    imap.MailboxAttrDrafts,
	"[Gmail]/Sent Mail": imap.MailboxAttrSent,
	"[Gmail]/Starred":   imap.MailboxAttrStarred,
	"[Gmail]/Spam":      imap.MailboxAttrSpam,
	"INBOX":             imap.MailboxAttrInbox,
}

// XListExtension implements the Gmail XLIST command. The [Gmail] special
// folders are created on first use.
func XListExtension() *Extension {
	return &Extension{
		Name:         "XLIST",
		Commands:     map[string]CommandFunc{"XLIST": handleXList},
		Capabilities: []imap.Cap{imap.CapXList},
		Formats:      map[string][]string{"XLIST": {"mailbox", "mailbox"}},
		Enabled: map[imap.ConnState][]string{
			imap.ConnStateAuthenticated: {"XLIST"},
			imap.ConnStateSelected:      {"XLIST"},
		},
	}
}

func handleXList(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	d := s.server.daemon
	base := d.Mailbox(args[0].(string))
	if base == nil {
		return nil, imap.No("no such mailbox")
	}

	if d.Mailbox(gmailAllMail) == nil {
		d.CreateMailbox("[Gmail]")
		for _, name := range gmailFolders {
			d.CreateMailbox(name)
			if mbox := d.Mailbox(name); mbox != nil {
				mbox.SetSubscribed(true)
			}
		}
	}

	for _, mbox := range base.MatchKids(args[1].(string)) {
		attrs := mbox.Attrs()
		if attr, ok := xlistSpecialAttrs[mbox.FullName()]; ok {
			attrs = append(attrs, attr)
		}
		s.writeList("XLIST", attrs, mbox)
	}
	return statusOK("XLIST completed"), nil
}
