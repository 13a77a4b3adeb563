package imap

import (
	"testing"
	"time"
)

var expectedDateTime = time.Date(2009, time.November, 2, 23, 0, 0, 0, time.FixedZone("", -6*60*60))

func TestParseAppendDate(t *testing.T) {
	tests := []struct {
		in  string
		out time.Time
		ok  bool
	}{
		{"2-Nov-2009 23:00:00 -0600", expectedDateTime, true},
		{"02-Nov-2009 23:00:00 -0600", expectedDateTime, true},
		{"2-Nov-2009", time.Date(2009, time.November, 2, 0, 0, 0, 0, time.Local), true},

		// invalid or incorrect
		{" 2-Nov-2009 23:00:00 -0600", time.Time{}, false},
		{"2-nov-2009", time.Time{}, false},
		{"2-Nov-09", time.Time{}, false},
		{"2-Nov-2009 23:00 -0600", time.Time{}, false},
		{"abc10-Nov-2009 23:00:00 -0600123", time.Time{}, false},
	}
	for _, test := range tests {
		out, err := ParseAppendDate(test.in)
		if !test.ok {
			if err == nil {
				t.Errorf("ParseAppendDate(%q) expected error; got %q", test.in, out)
			}
		} else if err != nil {
			t.Errorf("ParseAppendDate(%q) expected %q; got %v", test.in, test.out, err)
		} else if !out.Equal(test.out) {
			t.Errorf("ParseAppendDate(%q) expected %q; got %q", test.in, test.out, out)
		}
	}
}

func TestFormatInternalDate(t *testing.T) {
	got := FormatInternalDate(expectedDateTime)
	if want := "02-Nov-2009 23:00:00 -0600"; got != want {
		t.Errorf("FormatInternalDate() = %q, want %q", got, want)
	}
}
