// Package utf7 implements the modified UTF-7 encoding defined in RFC 3501
// section 5.1.3, used for mailbox names on the wire.
package utf7

import (
	"encoding/base64"
	"errors"

	"golang.org/x/text/encoding"
)

const (
	min = 0x20 // Minimum self-representing UTF-7 value
	max = 0x7E // Maximum self-representing UTF-7 value

	repl = '\uFFFD' // Unicode replacement code point
)

var b64Enc = base64.NewEncoding("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+,").WithPadding(base64.NoPadding)

// ErrInvalidUTF7 means that a decoder encountered invalid UTF-7.
var ErrInvalidUTF7 = errors.New("utf7: invalid UTF-7")

// Encoding is the modified UTF-7 encoding. The decoder turns wire names into
// UTF-8, the encoder does the reverse.
var Encoding encoding.Encoding = modifiedUTF7{}

type modifiedUTF7 struct{}

func (modifiedUTF7) NewDecoder() *encoding.Decoder {
	return &encoding.Decoder{Transformer: &decoder{ascii: true}}
}

func (modifiedUTF7) NewEncoder() *encoding.Encoder {
	return &encoding.Encoder{Transformer: &encoder{}}
}

// Encode converts a UTF-8 mailbox name to modified UTF-7.
func Encode(s string) string {
	out, err := Encoding.NewEncoder().String(s)
	if err != nil {
		return s
	}
	return out
}

// Decode converts a modified UTF-7 mailbox name to UTF-8.
func Decode(s string) (string, error) {
	return Encoding.NewDecoder().String(s)
}
