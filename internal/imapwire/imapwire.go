// Package imapwire implements the IMAP wire grammar used by the server
// simulator: a resumable command tokenizer, the per-command argument
// formatter and a response encoder.
//
// The IMAP wire protocol is defined in RFC 3501 section 4.
package imapwire

// List is a parenthesized list. Its items are string, nil (NIL) or List
// values once tokenized, and may additionally hold uint32 and time.Time
// values once formatted.
type List []interface{}

// ParseError is returned when a command line or an argument does not match
// the expected grammar. Servers report it as a BAD response.
type ParseError struct {
	Text string
}

func (err *ParseError) Error() string {
	return err.Text
}

func parseError(text string) error {
	return &ParseError{Text: text}
}

// IsAtomChar returns true if ch is an ATOM-CHAR.
func IsAtomChar(ch byte) bool {
	switch ch {
	case '(', ')', '{', ' ', '%', '*', '"', '\\', ']':
		return false
	default:
		return ch > 0x1F && ch < 0x7F
	}
}
