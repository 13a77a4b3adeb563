package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// UIDPlusExtension implements the APPENDUID and COPYUID response codes of
// RFC 4315. It wraps APPEND, COPY and, if enabled before, MOVE.
func UIDPlusExtension() *Extension {
	return &Extension{
		Name:         "UIDPLUS",
		Capabilities: []imap.Cap{imap.CapUIDPlus},
		Preload: func(h *Handler) {
			h.Wrap("APPEND", wrapAppendUID)
			h.Wrap("COPY", func(next CommandFunc) CommandFunc {
				return wrapCopyUID(next, "COPY completed")
			})
			if h.Command("MOVE") != nil {
				h.Wrap("MOVE", func(next CommandFunc) CommandFunc {
					return wrapCopyUID(next, "completed")
				})
			}
		},
	}
}

func wrapAppendUID(next CommandFunc) CommandFunc {
	return func(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
		resp, err := next(s, args, uid)
		if err != nil || resp == nil || resp.Type != imap.StatusResponseTypeOK {
			return resp, err
		}
		mbox := s.server.daemon.Mailbox(args[0].(string))
		code := imap.ResponseCodeAppendUID.WithArgs(mbox.UIDValidity(), mbox.UIDNext()-1)
		return statusOKCode(code, resp.Text), nil
	}
}

// wrapCopyUID adds COPYUID to a successful COPY or MOVE. The destination
// UIDs are allocated contiguously, in source order.
func wrapCopyUID(next CommandFunc, text string) CommandFunc {
	return func(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
		msgs, err := s.messages(args[0], uid)
		if err != nil {
			return nil, err
		}
		dest := s.server.daemon.Mailbox(args[1].(string))
		var first uint32
		if dest != nil {
			first = dest.UIDNext()
		}

		resp, err := next(s, args, uid)
		if err != nil || resp == nil || resp.Type != imap.StatusResponseTypeOK || len(msgs) == 0 {
			return resp, err
		}
		return statusOKCode(copyUIDCode(dest, msgs, first), text), nil
	}
}

func copyUIDCode(dest *imapmemserver.Mailbox, msgs []seqMessage, first uint32) imap.ResponseCode {
	var destSet imap.SeqSet
	destSet.AddRange(first, dest.UIDNext()-1)
	return imap.ResponseCodeCopyUID.WithArgs(dest.UIDValidity(), uidSet(msgs), destSet)
}
