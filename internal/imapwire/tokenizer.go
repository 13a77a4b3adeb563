package imapwire

import (
	"strconv"
	"strings"
)

// Pending is a command line suspended on a literal "{n}". It keeps the
// partially built argument lists so that parsing can resume once the
// literal data has arrived.
type Pending struct {
	// Remaining is the number of literal bytes still expected.
	Remaining int

	literal strings.Builder
	stack   []List
}

// Parse tokenizes the arguments of a command line (the text following the
// tag and the command name).
//
// If the line ends with a literal, args is nil and pending holds the state
// to pass continuation lines to.
func Parse(line string) (args List, pending *Pending, err error) {
	return parse(line, []List{nil})
}

// Feed hands a continuation line to a suspended command.
//
// While the literal needs more data than the line holds, the line and its
// CRLF are appended to the literal and more is true. Otherwise the literal
// is completed with the start of the line, and the rest of the line is
// parsed as trailing arguments: either the final argument list is returned
// or next holds the state of another pending literal.
func (p *Pending) Feed(line string) (args List, next *Pending, more bool, err error) {
	if p.Remaining >= len(line)+2 {
		p.literal.WriteString(line)
		p.literal.WriteString("\r\n")
		p.Remaining -= len(line) + 2
		return nil, nil, true, nil
	}
	if p.Remaining != 0 {
		n := p.Remaining
		if n > len(line) {
			n = len(line)
		}
		p.literal.WriteString(line[:n])
		line = line[n:]
		p.Remaining = 0
	}

	stack := p.stack
	stack[len(stack)-1] = append(stack[len(stack)-1], p.literal.String())
	args, next, err = parse(line, stack)
	return args, next, false, err
}

func parse(text string, stack []List) (List, *Pending, error) {
	var atom strings.Builder
	flushAtom := func() {
		if atom.Len() > 0 {
			stack[len(stack)-1] = append(stack[len(stack)-1], atom.String())
			atom.Reset()
		}
	}

	for len(text) > 0 {
		switch c := text[0]; {
		case c == '"':
			var sb strings.Builder
			i := 1
			for i < len(text) && text[i] != '"' {
				if text[i] == '\\' {
					i++
					if i == len(text) || (text[i] != '"' && text[i] != '\\') {
						return nil, nil, parseError("Expected quoted character")
					}
				}
				sb.WriteByte(text[i])
				i++
			}
			if i == len(text) {
				return nil, nil, parseError("Expected DQUOTE")
			}
			flushAtom()
			stack[len(stack)-1] = append(stack[len(stack)-1], sb.String())
			text = text[i+1:]
			continue
		case c == '{':
			end := strings.IndexByte(text, '}')
			if end < 0 {
				return nil, nil, parseError("Expected CLOSE_BRACKET")
			}
			if end+1 != len(text) {
				return nil, nil, parseError("Expected CRLF")
			}
			n, err := strconv.ParseUint(text[1:end], 10, 31)
			if err != nil {
				return nil, nil, parseError("Expected literal length")
			}
			flushAtom()
			return nil, &Pending{Remaining: int(n), stack: stack}, nil
		case c == '(':
			flushAtom()
			stack = append(stack, List{})
		case c == ')':
			flushAtom()
			if len(stack) == 1 {
				return nil, nil, parseError("Unexpected CLOSE_PAREN")
			}
			hold := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			stack[len(stack)-1] = append(stack[len(stack)-1], hold)
		case c == ' ':
			flushAtom()
		case atom.Len() == 0 && isNIL(text):
			stack[len(stack)-1] = append(stack[len(stack)-1], nil)
			text = text[3:]
			continue
		default:
			atom.WriteByte(c)
		}
		text = text[1:]
	}

	if len(stack) != 1 {
		return nil, nil, parseError("Expected CLOSE_PAREN!")
	}
	flushAtom()
	return stack[0], nil, nil
}

// isNIL reports whether text starts with a NIL atom.
func isNIL(text string) bool {
	if len(text) < 3 || !strings.EqualFold(text[:3], "NIL") {
		return false
	}
	return len(text) == 3 || text[3] == ' ' || text[3] == ')'
}
