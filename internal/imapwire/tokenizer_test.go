package imapwire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var parseTests = []struct {
	in   string
	args List
	err  string
}{
	{in: "", args: nil},
	{in: "INBOX", args: List{"INBOX"}},
	{in: "a b  c", args: List{"a", "b", "c"}},
	{in: `"a b" c`, args: List{"a b", "c"}},
	{in: `"a \"b\" \\c"`, args: List{`a "b" \c`}},
	{in: `""`, args: List{""}},
	{in: "NIL nil Nil", args: List{nil, nil, nil}},
	{in: "NILS NIL", args: List{"NILS", nil}},
	{in: `"NIL"`, args: List{"NIL"}},
	{in: "1 (FLAGS UID)", args: List{"1", List{"FLAGS", "UID"}}},
	{in: "(a (b c) ())", args: List{List{"a", List{"b", "c"}, List{}}}},
	{in: "(NIL)", args: List{List{nil}}},
	{in: "1 BODY[HEADER.FIELDS (From To)]", args: List{"1", "BODY[HEADER.FIELDS", List{"From", "To"}, "]"}},
	{in: `"abc`, err: "Expected DQUOTE"},
	{in: `"a\b"`, err: "Expected quoted character"},
	{in: "a)", err: "Unexpected CLOSE_PAREN"},
	{in: "(a", err: "Expected CLOSE_PAREN!"},
	{in: "{5", err: "Expected CLOSE_BRACKET"},
	{in: "{5} a", err: "Expected CRLF"},
}

func TestParse(t *testing.T) {
	for _, test := range parseTests {
		args, pending, err := Parse(test.in)
		if test.err != "" {
			assert.EqualError(t, err, test.err, "Parse(%q)", test.in)
			continue
		}
		require.NoError(t, err, "Parse(%q)", test.in)
		assert.Nil(t, pending, "Parse(%q)", test.in)
		assert.Equal(t, test.args, args, "Parse(%q)", test.in)
	}
}

func TestParse_literal(t *testing.T) {
	args, pending, err := Parse("INBOX (\\Seen) {11}")
	require.NoError(t, err)
	require.NotNil(t, pending)
	assert.Nil(t, args)
	assert.Equal(t, 11, pending.Remaining)

	args, next, more, err := pending.Feed("Hello")
	require.NoError(t, err)
	assert.True(t, more)
	assert.Nil(t, next)
	assert.Nil(t, args)
	assert.Equal(t, 4, pending.Remaining)

	args, next, more, err = pending.Feed("you!")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Nil(t, next)
	assert.Equal(t, List{"INBOX", List{"\\Seen"}, "Hello\r\nyou!"}, args)
}

func TestParse_literalWithTrailingArgs(t *testing.T) {
	_, pending, err := Parse("(a {3}")
	require.NoError(t, err)
	require.NotNil(t, pending)

	args, next, more, err := pending.Feed("xyz b) c")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Nil(t, next)
	assert.Equal(t, List{List{"a", "xyz", "b"}, "c"}, args)
}

func TestParse_nestedLiterals(t *testing.T) {
	_, pending, err := Parse("(({2}")
	require.NoError(t, err)
	require.NotNil(t, pending)

	_, next, more, err := pending.Feed("ab) {0}")
	require.NoError(t, err)
	assert.False(t, more)
	require.NotNil(t, next)
	assert.Equal(t, 0, next.Remaining)

	args, last, more, err := next.Feed(") done")
	require.NoError(t, err)
	assert.False(t, more)
	assert.Nil(t, last)
	assert.Equal(t, List{List{List{"ab"}, ""}, "done"}, args)
}

func TestParse_literalContinuationError(t *testing.T) {
	_, pending, err := Parse("({1}")
	require.NoError(t, err)

	_, _, _, err = pending.Feed("x")
	assert.EqualError(t, err, "Expected CLOSE_PAREN!")
}
