package utf7

import (
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

type decoder struct {
	ascii bool
}

func (d *decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for i := 0; i < len(src); i++ {
		ch := src[i]

		if ch < min || ch > max {
			return nDst, nSrc, ErrInvalidUTF7
		}

		if ch != '&' {
			if nDst+1 > len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			nSrc++
			dst[nDst] = ch
			nDst++
			d.ascii = true
			continue
		}

		// Find the end of the base64 or "&-" segment
		start := i + 1
		for i++; i < len(src) && src[i] != '-'; i++ {
			if src[i] == '\r' || src[i] == '\n' {
				return nDst, nSrc, ErrInvalidUTF7
			}
		}

		if i == len(src) { // implicit shift ("&...")
			if atEOF {
				return nDst, nSrc, ErrInvalidUTF7
			}
			return nDst, nSrc, transform.ErrShortSrc
		}

		var b []byte
		if i == start { // escape sequence "&-"
			b = []byte{'&'}
			d.ascii = true
		} else {
			if !d.ascii { // null shift ("&...-&...-")
				return nDst, nSrc, ErrInvalidUTF7
			}
			b = decode(src[start:i])
			d.ascii = false
		}

		if len(b) == 0 {
			return nDst, nSrc, ErrInvalidUTF7
		}
		if nDst+len(b) > len(dst) {
			d.ascii = true
			return nDst, nSrc, transform.ErrShortDst
		}

		nSrc = i + 1
		nDst += copy(dst[nDst:], b)
	}

	if atEOF {
		d.ascii = true
	}
	return nDst, nSrc, nil
}

func (d *decoder) Reset() {
	d.ascii = true
}

// decode converts a base64-encoded UTF-16BE run to UTF-8. It returns nil
// when the run is malformed or encodes printable ASCII.
func decode(b64 []byte) []byte {
	b := make([]byte, b64Enc.DecodedLen(len(b64)))
	n, err := b64Enc.Decode(b, b64)
	if err != nil || n == 0 || n&1 == 1 {
		return nil
	}
	b = b[:n]

	var out []byte
	for i := 0; i < n; i += 2 {
		r := rune(b[i])<<8 | rune(b[i+1])
		if utf16.IsSurrogate(r) {
			if i += 2; i == n {
				return nil
			}
			r2 := rune(b[i])<<8 | rune(b[i+1])
			if r = utf16.DecodeRune(r, r2); r == repl {
				return nil
			}
		} else if min <= r && r <= max {
			return nil
		}
		out = utf8.AppendRune(out, r)
	}
	return out
}
