package imapwire

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/utf7"
)

// An Encoder builds one response line.
//
// Methods return the Encoder so that calls can be chained. Line returns the
// accumulated text and resets the encoder.
type Encoder struct {
	sb strings.Builder
}

// NewEncoder creates a new encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Line returns the encoded line, without CRLF, and resets the encoder.
func (enc *Encoder) Line() string {
	s := enc.sb.String()
	enc.sb.Reset()
	return s
}

func (enc *Encoder) writeString(s string) *Encoder {
	enc.sb.WriteString(s)
	return enc
}

func (enc *Encoder) Atom(s string) *Encoder {
	return enc.writeString(s)
}

func (enc *Encoder) SP() *Encoder {
	return enc.writeString(" ")
}

func (enc *Encoder) Special(ch byte) *Encoder {
	enc.sb.WriteByte(ch)
	return enc
}

// Quoted writes a quoted string, escaping '"' and '\'.
func (enc *Encoder) Quoted(s string) *Encoder {
	enc.sb.Grow(2 + len(s))
	enc.sb.WriteByte('"')
	for i := 0; i < len(s); i++ {
		ch := s[i]
		if ch == '"' || ch == '\\' {
			enc.sb.WriteByte('\\')
		}
		enc.sb.WriteByte(ch)
	}
	enc.sb.WriteByte('"')
	return enc
}

// String writes s as a quoted string, or as a literal when it cannot be
// quoted.
func (enc *Encoder) String(s string) *Encoder {
	if !validQuoted(s) {
		return enc.Literal(s)
	}
	return enc.Quoted(s)
}

func validQuoted(s string) bool {
	if len(s) > 4096 {
		return false
	}
	for i := 0; i < len(s); i++ {
		switch ch := s[i]; {
		case ch == 0, ch == '\r', ch == '\n', ch > 0x7F:
			return false
		}
	}
	return true
}

// Literal writes "{size}" followed by CRLF and the literal data.
func (enc *Encoder) Literal(s string) *Encoder {
	enc.Special('{').Number64(int64(len(s))).Special('}')
	return enc.writeString("\r\n").writeString(s)
}

// Mailbox writes a mailbox name as a quoted modified UTF-7 string.
func (enc *Encoder) Mailbox(name string) *Encoder {
	return enc.Quoted(utf7.Encode(name))
}

func (enc *Encoder) Number(v uint32) *Encoder {
	return enc.writeString(strconv.FormatUint(uint64(v), 10))
}

func (enc *Encoder) Number64(v int64) *Encoder {
	return enc.writeString(strconv.FormatInt(v, 10))
}

// List writes a parenthesized list.
func (enc *Encoder) List(n int, f func(i int)) *Encoder {
	enc.Special('(')
	for i := 0; i < n; i++ {
		if i > 0 {
			enc.SP()
		}
		f(i)
	}
	enc.Special(')')
	return enc
}

// Flags writes a parenthesized list of flags.
func (enc *Encoder) Flags(flags []imap.Flag) *Encoder {
	return enc.List(len(flags), func(i int) {
		enc.Atom(string(flags[i]))
	})
}

// MailboxAttrs writes a parenthesized list of mailbox attributes.
func (enc *Encoder) MailboxAttrs(attrs []imap.MailboxAttr) *Encoder {
	return enc.List(len(attrs), func(i int) {
		enc.Atom(string(attrs[i]))
	})
}

func (enc *Encoder) NIL() *Encoder {
	return enc.Atom("NIL")
}

// NString writes a quoted string, or NIL when s is nil.
func (enc *Encoder) NString(s *string) *Encoder {
	if s == nil {
		return enc.NIL()
	}
	return enc.Quoted(*s)
}

func (enc *Encoder) Text(s string) *Encoder {
	return enc.writeString(s)
}
