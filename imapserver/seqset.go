package imapserver

import (
	"strconv"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

type seqMessage struct {
	seqNum uint32
	*imapmemserver.Message
}

// messages resolves a sequence set against the selected mailbox, in
// mailbox order. Numbers which don't match a message are ignored.
func (s *Session) messages(arg interface{}, uid bool) ([]seqMessage, error) {
	var str string
	switch arg := arg.(type) {
	case uint32:
		str = strconv.FormatUint(uint64(arg), 10)
	case string:
		str = arg
	default:
		return nil, imap.Bad("invalid sequence set")
	}
	set, err := imap.ParseSeqSet(str)
	if err != nil {
		return nil, imap.Bad("%v", err)
	}

	// Ranges are never expanded: each message is matched against the set,
	// so the work depends on the mailbox size only.
	msgs := s.mailbox.Messages()
	max := uint32(len(msgs))
	if uid {
		max = s.mailbox.HighestUID()
	}
	var l []seqMessage
	for i, msg := range msgs {
		seqNum := uint32(i) + 1
		q := seqNum
		if uid {
			q = msg.UID()
		}
		if set.Match(q, max) {
			l = append(l, seqMessage{seqNum, msg})
		}
	}
	return l, nil
}

// uidSet returns the UIDs of msgs.
func uidSet(msgs []seqMessage) imap.SeqSet {
	var set imap.SeqSet
	for _, msg := range msgs {
		set.AddNum(msg.UID())
	}
	return set
}
