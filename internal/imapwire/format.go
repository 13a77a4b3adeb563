package imapwire

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/utf7"
)

// Format coerces tokenized arguments according to a command's format
// specification. Each spec is one of:
//
//	atom      upper-cased string
//	string    string, untouched
//	mailbox   modified UTF-7 decoded string
//	flag      title-cased flag (\Seen, $Label, Keyword)
//	number    uint32 if fully numeric, string otherwise
//	date      time.Time, strict "DD-Mon-YYYY[ HH:MM:SS +ZZZZ]"
//	(x)       list of x
//	[x]       optional x, skipped when it does not match
//	x|y       x, or y if x does not match
//	nx        x, or nil when the argument is NIL
//	...       all remaining arguments, unparsed
func Format(args List, specs []string) (List, error) {
	var out List
	for _, spec := range specs {
		if spec == "..." {
			out = append(out, args...)
			args = nil
			break
		}

		if len(args) == 0 {
			return nil, parseError("not enough arguments")
		}

		if strings.HasPrefix(spec, "[") && strings.HasSuffix(spec, "]") {
			v, err := FormatArg(args[0], spec[1:len(spec)-1])
			if err != nil {
				continue
			}
			out = append(out, v)
			args = args[1:]
			continue
		}

		v, err := FormatArg(args[0], spec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
		args = args[1:]
	}
	if len(args) != 0 {
		return nil, parseError("Too many arguments")
	}
	return out, nil
}

// FormatArg coerces a single argument, see Format.
func FormatArg(arg interface{}, spec string) (interface{}, error) {
	nilAccepted := false
	if len(spec) > 1 && spec[0] == 'n' && spec[1] != 'u' {
		spec = spec[1:]
		nilAccepted = true
	}
	if arg == nil {
		if !nilAccepted {
			return nil, parseError("Unexpected NIL!")
		}
		return nil, nil
	}

	if strings.HasPrefix(spec, "(") {
		l, ok := arg.(List)
		if !ok {
			return nil, parseError("Expected list!")
		}
		inner := strings.TrimSuffix(spec[1:], ")")
		out := make(List, len(l))
		for i, item := range l {
			v, err := FormatArg(item, inner)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	}

	if pipe := strings.IndexByte(spec, '|'); pipe > 0 {
		if v, err := FormatArg(arg, spec[:pipe]); err == nil {
			return v, nil
		}
		return FormatArg(arg, spec[pipe+1:])
	}

	s, ok := arg.(string)
	if !ok {
		return nil, parseError("Expected argument of type " + spec + "!")
	}

	switch spec {
	case "atom":
		return strings.ToUpper(s), nil
	case "string":
		return s, nil
	case "mailbox":
		if name, err := utf7.Decode(s); err == nil {
			return name, nil
		}
		return s, nil
	case "flag":
		return string(CanonicalFlag(s)), nil
	case "number":
		if n, err := strconv.ParseUint(s, 10, 32); err == nil {
			return uint32(n), nil
		}
		return s, nil
	case "date":
		t, err := imap.ParseAppendDate(s)
		if err != nil {
			return nil, parseError(err.Error())
		}
		return t, nil
	default:
		return nil, parseError("Unknown spec " + spec)
	}
}

// CanonicalFlag lower-cases a flag, then capitalizes its first letter: the
// second character for system flags and keywords like "$label", the first
// one otherwise.
func CanonicalFlag(s string) imap.Flag {
	b := []byte(strings.ToLower(s))
	switch {
	case len(b) == 0:
	case isLetter(b[0]):
		b[0] -= 'a' - 'A'
	case len(b) > 1 && b[1] >= 'a' && b[1] <= 'z':
		b[1] -= 'a' - 'A'
	}
	return imap.Flag(b)
}

func isLetter(ch byte) bool {
	return ch >= 'a' && ch <= 'z'
}
