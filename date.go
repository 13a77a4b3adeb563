package imap

import (
	"fmt"
	"regexp"
	"time"
)

// Date and time layouts.
const (
	// Described in RFC 3501 section 9 (date).
	DateLayout = "2-Jan-2006"
	// Described in RFC 3501 section 9 (date-time), without the leading
	// space padding of the day.
	DateTimeLayout = "2-Jan-2006 15:04:05 -0700"
	// Layout of INTERNALDATE in FETCH responses.
	InternalDateLayout = "02-Jan-2006 15:04:05 -0700"
)

var dateRegexp = regexp.MustCompile(`^\d{1,2}-[A-Z][a-z]{2}-\d{4}( \d{2}(:\d{2}){2} [+-]\d{4})?$`)

// ParseAppendDate parses a date argument in the strict "DD-Mon-YYYY" or
// "DD-Mon-YYYY HH:MM:SS +ZZZZ" form. Dates without a time are in the local
// zone.
func ParseAppendDate(s string) (time.Time, error) {
	if !dateRegexp.MatchString(s) {
		return time.Time{}, fmt.Errorf("Expected date!")
	}
	if len(s) <= len("02-Jan-2006") {
		return time.ParseInLocation(DateLayout, s, time.Local)
	}
	return time.Parse(DateTimeLayout, s)
}

// FormatInternalDate formats t as an INTERNALDATE value.
func FormatInternalDate(t time.Time) string {
	return t.Format(InternalDateLayout)
}
