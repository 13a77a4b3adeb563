package utf7

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type encoder struct{}

func (e *encoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for i := 0; i < len(src); {
		ch := src[i]

		var b []byte
		if min <= ch && ch <= max {
			b = []byte{ch}
			if ch == '&' {
				b = append(b, '-')
			}
			i++
		} else {
			start := i

			// Find the next printable ASCII code point
			i++
			for i < len(src) && (src[i] < min || src[i] > max) {
				i++
			}

			if !atEOF && i == len(src) {
				return nDst, nSrc, transform.ErrShortSrc
			}

			b = encode(src[start:i])
		}

		if nDst+len(b) > len(dst) {
			return nDst, nSrc, transform.ErrShortDst
		}

		nSrc = i
		nDst += copy(dst[nDst:], b)
	}

	return nDst, nSrc, nil
}

func (e *encoder) Reset() {}

// encode converts a run of non-printable or non-ASCII UTF-8 to "&...-".
func encode(s []byte) []byte {
	var u []uint16
	for len(s) > 0 {
		r, size := utf8.DecodeRune(s)
		s = s[size:]
		if r1, r2 := utf16.EncodeRune(r); r1 != repl {
			u = append(u, uint16(r1), uint16(r2))
		} else {
			u = append(u, uint16(r))
		}
	}

	b := make([]byte, 2*len(u))
	for i, v := range u {
		b[2*i] = byte(v >> 8)
		b[2*i+1] = byte(v)
	}

	out := make([]byte, b64Enc.EncodedLen(len(b))+2)
	out[0] = '&'
	b64Enc.Encode(out[1:], b)
	out[len(out)-1] = '-'
	return out
}
