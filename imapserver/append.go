package imapserver

import (
	"time"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

func handleAppend(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	mbox := s.server.daemon.Mailbox(args[0].(string))
	if mbox == nil {
		return nil, imap.NoCode(imap.ResponseCodeTryCreate, "no such mailbox")
	}

	var (
		flags []imap.Flag
		date  = time.Now()
	)
	for _, arg := range args[1 : len(args)-1] {
		switch arg := arg.(type) {
		case imapwire.List:
			flags = listFlags(arg)
		case time.Time:
			date = arg
		case nil:
			// NIL date
		}
	}
	text := args[len(args)-1].(string)

	msg := imapmemserver.NewMessage(mbox.AllocUID(), []byte(text), flags)
	msg.SetRecent(true)
	msg.SetInternalDate(date)
	mbox.AddMessage(msg)
	return statusOK("APPEND complete"), nil
}

// listFlags converts a formatted "flag|(flag)" argument.
func listFlags(arg interface{}) []imap.Flag {
	switch arg := arg.(type) {
	case string:
		return []imap.Flag{imap.Flag(arg)}
	case imapwire.List:
		flags := make([]imap.Flag, 0, len(arg))
		for _, v := range arg {
			flags = append(flags, imap.Flag(v.(string)))
		}
		return flags
	default:
		return nil
	}
}
