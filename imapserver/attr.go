package imapserver

import (
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// messageAttr is a non-standard message attribute exposed through FETCH and
// STORE, such as X-GM-LABELS. An attribute which was never set on a message
// can neither be fetched nor stored.
type messageAttr struct {
	name string
	// scalar attributes hold exactly one value and don't support +/- STORE
	scalar bool
	get    func(msg *imapmemserver.Message) (values []string, ok bool)
	set    func(msg *imapmemserver.Message, values []string)
}

func (attr *messageAttr) fetchItem(ctx *FetchContext, item string) (string, error) {
	if item != attr.name {
		return "", imap.Bad("can't fetch %v", item)
	}
	values, ok := attr.get(ctx.Message)
	if !ok {
		return "", imap.Bad("can't fetch %v", attr.name)
	}
	return attr.format(ctx.Encoder(), values), nil
}

func (attr *messageAttr) format(enc *imapwire.Encoder, values []string) string {
	enc.Atom(attr.name).SP()
	if attr.scalar {
		writeAttrValue(enc, values[0])
	} else {
		enc.List(len(values), func(i int) {
			writeAttrValue(enc, values[i])
		})
	}
	return enc.Line()
}

func writeAttrValue(enc *imapwire.Encoder, v string) {
	quote := v == ""
	for i := 0; i < len(v); i++ {
		if !imapwire.IsAtomChar(v[i]) && v[i] != '\\' {
			quote = true
			break
		}
	}
	if quote {
		enc.Quoted(v)
	} else {
		enc.Atom(v)
	}
}

// store applies STORE op (ATTR, +ATTR or -ATTR) to msgs. Every message is
// checked before any of them is modified.
func (attr *messageAttr) store(s *Session, msgs []seqMessage, op string, silent bool, arg interface{}) (*imap.StatusResponse, error) {
	v, err := imapwire.FormatArg(arg, "string|(string)")
	if err != nil {
		return nil, err
	}
	var values []string
	switch v := v.(type) {
	case string:
		values = []string{v}
	case imapwire.List:
		for _, item := range v {
			values = append(values, item.(string))
		}
	}

	if attr.scalar && (op != attr.name || len(values) != 1) {
		return nil, imap.Bad("can't store %v", attr.name)
	}
	for _, msg := range msgs {
		if _, ok := attr.get(msg.Message); !ok {
			return nil, imap.Bad("can't store %v", attr.name)
		}
	}

	for _, msg := range msgs {
		cur, _ := attr.get(msg.Message)
		switch op[0] {
		case '+':
			cur = append(cur, values...)
		case '-':
			cur = removeValues(cur, values)
		default:
			cur = values
		}
		attr.set(msg.Message, cur)
		if silent {
			continue
		}

		enc := s.Encoder()
		enc.Atom("*").SP().Number(msg.seqNum).SP().Atom("FETCH").SP().Special('(')
		enc.Text(attr.format(&imapwire.Encoder{}, cur))
		s.WriteLine(enc.Special(')').Line())
	}
	return statusOK("STORE completed"), nil
}

func removeValues(l, values []string) []string {
	out := make([]string, 0, len(l))
	for _, v := range l {
		if !contains(values, v) {
			out = append(out, v)
		}
	}
	return out
}

// wrapStore extends STORE with message attributes. Other STORE items are
// handed to the previous STORE, formatted with its format.
func wrapStore(h *Handler, attrs ...*messageAttr) {
	prevFormat := h.Format("STORE")
	h.SetFormat("STORE", []string{"number", "atom", "..."})
	h.Wrap("STORE", func(next CommandFunc) CommandFunc {
		return func(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
			op, silent := storeOp(args[1].(string))
			for _, attr := range attrs {
				if strings.TrimLeft(op, "+-") != attr.name {
					continue
				}
				if len(args) != 3 {
					return nil, imap.Bad("can't store %v", attr.name)
				}
				msgs, err := s.messages(args[0], uid)
				if err != nil {
					return nil, err
				}
				return attr.store(s, msgs, op, silent, args[2])
			}

			rest, err := imapwire.Format(args[2:], prevFormat[2:])
			if err != nil {
				return nil, err
			}
			return next(s, append(args[:2:2], rest...), uid)
		}
	})
}
