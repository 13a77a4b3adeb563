package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleSelect(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	readOnly := s.name == "EXAMINE"

	mbox := s.server.daemon.Mailbox(args[0].(string))
	if mbox == nil || !mbox.Selectable() {
		return nil, imap.No("no such mailbox")
	}

	s.selectMailbox(mbox, readOnly)

	enc := s.Encoder()
	s.WriteLine(enc.Atom("*").SP().Atom("FLAGS").SP().Flags(mbox.MessageFlags()).Line())
	s.WriteLine(enc.Atom("*").SP().Number(mbox.NumMessages()).SP().Atom("EXISTS").Line())
	s.WriteLine(enc.Atom("*").SP().Number(mbox.NumRecent()).SP().Atom("RECENT").Line())
	if seqNum := mbox.FirstUnseen(); seqNum > 0 {
		s.writeStatus(imap.ResponseCodeUnseen.WithArgs(seqNum))
	}
	s.writeStatus(imap.ResponseCode(enc.Atom(string(imap.ResponseCodePermanentFlags)).SP().Flags(mbox.PermanentFlags()).Line()))
	s.writeStatus(imap.ResponseCodeUIDNext.WithArgs(mbox.UIDNext()))
	s.writeStatus(imap.ResponseCodeUIDValidity.WithArgs(mbox.UIDValidity()))

	if readOnly {
		return statusOKCode(imap.ResponseCodeReadOnly, "EXAMINE completed"), nil
	}
	return statusOKCode(imap.ResponseCodeReadWrite, "SELECT completed"), nil
}

// writeStatus writes an untagged OK response carrying a response code.
func (s *Session) writeStatus(code imap.ResponseCode) {
	resp := imap.StatusResponse{Type: imap.StatusResponseTypeOK, Code: code}
	s.WriteLine("* " + resp.String())
}

func handleCheck(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	s.server.daemon.Synchronize(s.mailbox, false)
	return statusOK("CHECK completed"), nil
}

func handleClose(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	s.mailbox.Expunge(s.tracker)
	s.unselect()
	return statusOK("CLOSE completed"), nil
}

func handleExpunge(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	enc := s.Encoder()
	for _, seqNum := range s.mailbox.Expunge(s.tracker) {
		s.WriteLine(enc.Atom("*").SP().Number(seqNum).SP().Atom("EXPUNGE").Line())
	}
	s.server.daemon.Synchronize(s.mailbox, false)
	return statusOK("EXPUNGE completed"), nil
}
