package imapwire

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfake"
)

var formatArgTests = []struct {
	arg  interface{}
	spec string
	out  interface{}
	err  bool
}{
	{arg: "inbox", spec: "atom", out: "INBOX"},
	{arg: "MixedCase", spec: "string", out: "MixedCase"},
	{arg: "Entw&APw-rfe", spec: "mailbox", out: "Entwürfe"},
	{arg: "\\SEEN", spec: "flag", out: "\\Seen"},
	{arg: "\\deleted", spec: "flag", out: "\\Deleted"},
	{arg: "$LABEL1", spec: "flag", out: "$Label1"},
	{arg: "JUNK", spec: "flag", out: "Junk"},
	{arg: "42", spec: "number", out: uint32(42)},
	{arg: "1:*", spec: "number", out: "1:*"},
	{arg: nil, spec: "string", err: true},
	{arg: nil, spec: "nstring", out: nil},
	{arg: nil, spec: "number", err: true},
	{arg: List{"a", "B"}, spec: "(atom)", out: List{"A", "B"}},
	{arg: "a", spec: "(atom)", err: true},
	{arg: List{"a"}, spec: "atom", err: true},
	{arg: "flags", spec: "atom|(atom|(atom))", out: "FLAGS"},
	{arg: List{"flags", List{"uid"}}, spec: "atom|(atom|(atom))", out: List{"FLAGS", List{"UID"}}},
	{arg: "\\seen", spec: "flag|(flag)", out: "\\Seen"},
	{arg: List{"\\seen"}, spec: "flag|(flag)", out: List{"\\Seen"}},
	{arg: "1-jan-2020", spec: "date", err: true},
	{arg: "x", spec: "bogus", err: true},
}

func TestFormatArg(t *testing.T) {
	for _, test := range formatArgTests {
		out, err := FormatArg(test.arg, test.spec)
		if test.err {
			assert.Error(t, err, "FormatArg(%v, %q)", test.arg, test.spec)
			continue
		}
		require.NoError(t, err, "FormatArg(%v, %q)", test.arg, test.spec)
		assert.Equal(t, test.out, out, "FormatArg(%v, %q)", test.arg, test.spec)
	}
}

func TestFormatArg_date(t *testing.T) {
	out, err := FormatArg("17-Jul-1996 02:44:25 -0700", "date")
	require.NoError(t, err)
	want := time.Date(1996, time.July, 17, 2, 44, 25, 0, time.FixedZone("", -7*60*60))
	assert.True(t, want.Equal(out.(time.Time)))
}

var appendFormat = []string{"mailbox", "[(flag)]", "[ndate]", "string"}

func TestFormat(t *testing.T) {
	args, err := Format(List{"INBOX", List{"\\seen"}, "Hello"}, appendFormat)
	require.NoError(t, err)
	assert.Equal(t, List{"INBOX", List{"\\Seen"}, "Hello"}, args)

	args, err = Format(List{"INBOX", "Hello"}, appendFormat)
	require.NoError(t, err)
	assert.Equal(t, List{"INBOX", "Hello"}, args)

	args, err = Format(List{"INBOX", List{}, nil, "Hello"}, appendFormat)
	require.NoError(t, err)
	assert.Equal(t, List{"INBOX", List{}, nil, "Hello"}, args)

	args, err = Format(List{"INBOX", List{}, nil, nil}, appendFormat)
	assert.EqualError(t, err, "Unexpected NIL!")
	assert.Nil(t, args)

	args, err = Format(List{"crAm-md5", "x", List{"y"}}, []string{"atom", "..."})
	require.NoError(t, err)
	assert.Equal(t, List{"CRAM-MD5", "x", List{"y"}}, args)
}

func TestFormat_argumentCount(t *testing.T) {
	_, err := Format(List{"user"}, []string{"string", "string"})
	assert.EqualError(t, err, "not enough arguments")

	_, err = Format(List{"a", "b", "c"}, []string{"string", "string"})
	assert.EqualError(t, err, "Too many arguments")

	_, err = Format(nil, nil)
	assert.NoError(t, err)
}

func TestCanonicalFlag(t *testing.T) {
	for in, want := range map[string]imap.Flag{
		"\\ANSWERED": imap.FlagAnswered,
		"\\draft":    imap.FlagDraft,
		"nonjunk":    "Nonjunk",
		"$mdnsent":   "$Mdnsent",
		"\\":         "\\",
		"":           "",
	} {
		assert.Equal(t, want, CanonicalFlag(in), "CanonicalFlag(%q)", in)
	}
}
