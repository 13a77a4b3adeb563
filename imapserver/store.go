package imapserver

import (
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// storeOp splits a STORE data item name into its operation and the .SILENT
// suffix, e.g. "+FLAGS.SILENT" into "+FLAGS" and true.
func storeOp(item string) (op string, silent bool) {
	op = strings.ToUpper(item)
	if i := strings.Index(op, ".SILENT"); i > 0 {
		return op[:i], true
	}
	return op, false
}

func handleStore(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	msgs, err := s.messages(args[0], uid)
	if err != nil {
		return nil, err
	}

	op, silent := storeOp(args[1].(string))
	flags := listFlags(args[2])
	switch op {
	case "FLAGS", "+FLAGS", "-FLAGS":
	default:
		return nil, imap.Bad("change what now?")
	}

	for _, msg := range msgs {
		switch op {
		case "FLAGS":
			msg.SetFlags(flags)
		case "+FLAGS":
			for _, flag := range flags {
				msg.SetFlag(flag)
			}
		case "-FLAGS":
			for _, flag := range flags {
				msg.ClearFlag(flag)
			}
		}
		if silent {
			continue
		}

		enc := s.Encoder()
		enc.Atom("*").SP().Number(msg.seqNum).SP().Atom("FETCH").SP().Special('(')
		enc.Atom("FLAGS").SP().Flags(msg.Flags())
		if uid {
			enc.SP().Atom("UID").SP().Number(msg.UID())
		}
		s.WriteLine(enc.Special(')').Line())
	}
	return statusOK("STORE completed"), nil
}
