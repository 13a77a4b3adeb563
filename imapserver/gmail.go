package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

var (
	gmailMsgIDAttr = &messageAttr{
		name:   "X-GM-MSGID",
		scalar: true,
		get: func(msg *imapmemserver.Message) ([]string, bool) {
			id := msg.GmailMsgID()
			return []string{id}, id != ""
		},
		set: func(msg *imapmemserver.Message, values []string) {
			msg.SetGmailMsgID(values[0])
		},
	}
	gmailThreadIDAttr = &messageAttr{
		name:   "X-GM-THRID",
		scalar: true,
		get: func(msg *imapmemserver.Message) ([]string, bool) {
			id := msg.GmailThreadID()
			return []string{id}, id != ""
		},
		set: func(msg *imapmemserver.Message, values []string) {
			msg.SetGmailThreadID(values[0])
		},
	}
	gmailLabelsAttr = &messageAttr{
		name: "X-GM-LABELS",
		get: func(msg *imapmemserver.Message) ([]string, bool) {
			labels := msg.GmailLabels()
			return labels, labels != nil
		},
		set: func(msg *imapmemserver.Message, values []string) {
			msg.SetGmailLabels(values)
		},
	}
)

// GmailExtension implements the Gmail message attributes: X-GM-LABELS can
// be stored, X-GM-MSGID, X-GM-THRID and X-GM-LABELS can be fetched.
func GmailExtension() *Extension {
	return &Extension{
		Name:         "GMAIL",
		Capabilities: []imap.Cap{imap.CapXList, imap.CapGmailExt1},
		FetchItems: map[string]FetchItemFunc{
			gmailMsgIDAttr.name:    gmailMsgIDAttr.fetchItem,
			gmailThreadIDAttr.name: gmailThreadIDAttr.fetchItem,
			gmailLabelsAttr.name:   gmailLabelsAttr.fetchItem,
		},
		Preload: func(h *Handler) {
			wrapStore(h, gmailLabelsAttr)
		},
	}
}
