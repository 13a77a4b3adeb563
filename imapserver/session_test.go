package imapserver_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

const testMessage = "From: Mitsuha <mitsuha@example.org>\r\n" +
	"Subject: Your name\r\n" +
	"\r\n" +
	"Hello world\r\n"

// lines joins response lines, each terminated by CRLF.
func lines(l ...string) string {
	if len(l) == 0 {
		return ""
	}
	return strings.Join(l, "\r\n") + "\r\n"
}

type testSession struct {
	*imapserver.Session
	t *testing.T
}

func (s *testSession) send(line string, want ...string) {
	s.t.Helper()
	assert.Equal(s.t, lines(want...), s.SendLine(line), line)
}

func newTestDaemon(numMessages int) *imapmemserver.Daemon {
	d := imapmemserver.NewDaemon(0, nil)
	inbox := d.Inbox()
	for i := 0; i < numMessages; i++ {
		inbox.AddMessage(imapmemserver.NewMessage(inbox.AllocUID(), []byte(testMessage), nil))
	}
	return d
}

func newTestServer(t *testing.T, options *imapserver.Options) *imapserver.Server {
	t.Helper()
	if options.Daemon == nil {
		options.Daemon = newTestDaemon(0)
	}
	srv, err := imapserver.New(options)
	require.NoError(t, err)
	return srv
}

func newTestSession(t *testing.T, srv *imapserver.Server) *testSession {
	s := &testSession{Session: srv.NewSession(), t: t}
	t.Cleanup(s.Close)
	return s
}

// newSelectedSession returns a session logged in with INBOX selected.
func newSelectedSession(t *testing.T, srv *imapserver.Server) *testSession {
	s := newTestSession(t, srv)
	require.Equal(t, "A0 OK authenticated\r\n", s.SendLine("A0 LOGIN user password"))
	resp := s.SendLine("A0 SELECT INBOX")
	require.True(t, strings.HasSuffix(resp, "A0 OK [READ-WRITE] SELECT completed\r\n"), resp)
	return s
}

func TestNew(t *testing.T) {
	_, err := imapserver.New(&imapserver.Options{})
	assert.Error(t, err, "missing daemon")

	_, err = imapserver.New(&imapserver.Options{Daemon: newTestDaemon(0), Profile: "Courier"})
	assert.Error(t, err, "unknown profile")

	_, err = imapserver.New(&imapserver.Options{Daemon: newTestDaemon(0), Extensions: []string{"IDLE"}})
	assert.Error(t, err, "unknown extension")
}

func TestSession_Greeting(t *testing.T) {
	s := newTestSession(t, newTestServer(t, &imapserver.Options{}))
	assert.Equal(t, "* OK IMAP4rev1 Fakeserver started up\r\n", s.Greeting())
	assert.Equal(t, imap.ConnStateNotAuthenticated, s.State())
}

func TestSession_Login(t *testing.T) {
	srv := newTestServer(t, &imapserver.Options{})

	for _, test := range []struct {
		line, want string
		state      imap.ConnState
	}{
		{"A1 LOGIN user password", "A1 OK authenticated", imap.ConnStateAuthenticated},
		{"A1 login \"user\" \"password\"", "A1 OK authenticated", imap.ConnStateAuthenticated},
		{"A1 LOGIN user wrong", "A1 BAD invalid password, I won't authenticate you", imap.ConnStateNotAuthenticated},
		{"A1 LOGIN user", "A1 BAD not enough arguments", imap.ConnStateNotAuthenticated},
		{"A1 LOGIN \"user", "A1 BAD Expected DQUOTE", imap.ConnStateNotAuthenticated},
	} {
		s := newTestSession(t, srv)
		s.send(test.line, test.want)
		assert.Equal(t, test.state, s.State(), test.line)
	}
}

func TestSession_LoginDisabled(t *testing.T) {
	srv := newTestServer(t, &imapserver.Options{LoginDisabled: true})
	s := newTestSession(t, srv)
	s.send("A1 CAPABILITY", "* CAPABILITY IMAP4rev1 LOGINDISABLED", "A1 OK CAPABILITY completed")
	s.send("A2 LOGIN user password", "A2 BAD old-style LOGIN is disabled, use AUTHENTICATE")
}

func TestSession_loginLiteral(t *testing.T) {
	s := newTestSession(t, newTestServer(t, &imapserver.Options{}))
	assert.Equal(t, "+ More!\r\n", s.SendLine("A1 LOGIN {4}"))
	s.send("user {8}", "+ I'll be needing more text")
	s.send("password", "A1 OK authenticated")
}

func TestSession_dispatchErrors(t *testing.T) {
	d := newTestDaemon(0)
	srv := newTestServer(t, &imapserver.Options{Daemon: d})
	s := newTestSession(t, srv)

	s.send("A1 SELECT INBOX", "A1 BAD illegal command for current state 0")
	s.send("A2 FROBNICATE", "A2 BAD FROBNICATE not implemented")
	s.send("A3 NAMESPACE", "A3 BAD NAMESPACE not implemented")
	s.send("A4 LOGIN user password", "A4 OK authenticated")
	s.send("A5 FETCH 1 FLAGS", "A5 BAD illegal command for current state 1")

	d.SetCommandToFail("noop")
	s.send("A6 NOOP", "A6 NO NOOP failed")
	d.SetCommandToFail("")
	s.send("A7 NOOP", "A7 OK NOOP completed")
}

func TestSession_StartTLS(t *testing.T) {
	s := newTestSession(t, newTestServer(t, &imapserver.Options{}))
	s.send("A1 STARTTLS", "A1 BAD maild doesn't support TLS ATM")
	assert.False(t, s.Closing())

	s = newTestSession(t, newTestServer(t, &imapserver.Options{DropOnStartTLS: true}))
	assert.Equal(t, "", s.SendLine("A1 STARTTLS"))
	assert.True(t, s.Closing())
}

func TestSession_Logout(t *testing.T) {
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{}))
	s.send("A1 LOGOUT", "* BYE IMAP4rev1 Logging out", "A1 OK LOGOUT completed")
	assert.True(t, s.Closing())
	assert.Equal(t, imap.ConnStateNotAuthenticated, s.State())
	assert.Nil(t, s.Mailbox())
}

func TestSession_Select(t *testing.T) {
	d := newTestDaemon(2)
	d.Inbox().Messages()[0].SetFlag(imap.FlagSeen)
	d.Inbox().Messages()[1].SetRecent(true)
	srv := newTestServer(t, &imapserver.Options{Daemon: d})
	s := newTestSession(t, srv)
	s.send("A1 LOGIN user password", "A1 OK authenticated")

	uidValidity := d.Inbox().UIDValidity()
	s.send("A2 EXAMINE INBOX",
		`* FLAGS (\Seen \Answered \Flagged \Deleted \Draft)`,
		"* 2 EXISTS",
		"* 1 RECENT",
		"* OK [UNSEEN 2]",
		`* OK [PERMANENTFLAGS (\Seen \Answered \Flagged \Deleted \Draft \*)]`,
		"* OK [UIDNEXT 3]",
		fmt.Sprintf("* OK [UIDVALIDITY %v]", uidValidity),
		"A2 OK [READ-ONLY] EXAMINE completed")
	assert.True(t, s.ReadOnly())
	assert.True(t, d.Inbox().Messages()[1].Recent(), "EXAMINE keeps recent flags")

	s.send("A3 SELECT INBOX",
		`* FLAGS (\Seen \Answered \Flagged \Deleted \Draft)`,
		"* 2 EXISTS",
		"* 1 RECENT",
		"* OK [UNSEEN 2]",
		`* OK [PERMANENTFLAGS (\Seen \Answered \Flagged \Deleted \Draft \*)]`,
		"* OK [UIDNEXT 3]",
		fmt.Sprintf("* OK [UIDVALIDITY %v]", uidValidity),
		"A3 OK [READ-WRITE] SELECT completed")
	assert.Equal(t, imap.ConnStateSelected, s.State())

	s.send("A4 CLOSE", "A4 OK CLOSE completed")
	assert.False(t, d.Inbox().Messages()[1].Recent(), "leaving a read-write mailbox clears recent flags")
	assert.Equal(t, imap.ConnStateAuthenticated, s.State())

	s.send("A5 SELECT Missing", "A5 NO no such mailbox")
}

func TestSession_mailboxes(t *testing.T) {
	d := newTestDaemon(0)
	s := newTestSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))
	s.send("A1 LOGIN user password", "A1 OK authenticated")

	s.send("A2 CREATE Work", "A2 OK CREATE completed")
	s.send("A3 CREATE Work", "A3 NO mailbox already exists")
	s.send("A4 CREATE Work/Projects", "A4 OK CREATE completed")
	s.send("A5 CREATE Caf&AOk-", "A5 OK CREATE completed")
	assert.NotNil(t, d.Mailbox("Café"))

	s.send(`A6 LIST "" "*"`,
		`* LIST () "/" "INBOX"`,
		`* LIST () "/" "Work"`,
		`* LIST () "/" "Work/Projects"`,
		`* LIST () "/" "Caf&AOk-"`,
		"A6 OK LIST completed")

	s.send("A7 SUBSCRIBE Work/Projects", "A7 OK SUBSCRIBE completed")
	s.send("A8 SUBSCRIBE Missing", "A8 NO error in subscribing")
	s.send(`A9 LSUB "" "*"`, `* LSUB () "/" "Work/Projects"`, "A9 OK LSUB completed")
	s.send("A10 UNSUBSCRIBE Work/Projects", "A10 OK UNSUBSCRIBE completed")
	s.send(`A11 LSUB "" "*"`, "A11 OK LSUB completed")

	s.send("A12 RENAME Work Archive", "A12 OK RENAME completed")
	assert.Nil(t, d.Mailbox("Work"))
	assert.NotNil(t, d.Mailbox("Archive/Projects"))
	s.send("A13 RENAME Missing Other", "A13 NO no such mailbox")

	s.send("A14 DELETE Archive/Projects", "A14 OK DELETE completed")
	s.send("A15 DELETE Archive/Projects", "A15 NO no such mailbox")
}

func TestSession_Status(t *testing.T) {
	d := newTestDaemon(2)
	d.Inbox().Messages()[0].SetFlag(imap.FlagSeen)
	s := newTestSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))
	s.send("A1 LOGIN user password", "A1 OK authenticated")

	s.send("A2 STATUS INBOX (MESSAGES UNSEEN UIDNEXT)",
		`* STATUS "INBOX" (MESSAGES 2 UNSEEN 1 UIDNEXT 3)`,
		"A2 OK STATUS completed")
	s.send("A3 STATUS INBOX (SIZE)", "A3 BAD unknown status flag: SIZE")
	s.send("A4 STATUS Missing (MESSAGES)", "A4 NO no such mailbox exists")
}

func TestSession_Append(t *testing.T) {
	d := newTestDaemon(0)
	s := newTestSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))
	s.send("A1 LOGIN user password", "A1 OK authenticated")

	text := "Subject: hi\r\n\r\nbody\r\n"
	assert.Equal(t, "+ More!\r\n", s.SendLine(fmt.Sprintf(`A2 APPEND INBOX (\Seen) "05-Jan-2024 10:00:00 +0000" {%v}`, len(text))))
	for _, line := range []string{"Subject: hi", "", "body"} {
		resp, more := s.SendContinuation(line)
		assert.Equal(t, "", resp)
		assert.True(t, more)
	}
	s.send("", "A2 OK APPEND complete")

	msgs := d.Inbox().Messages()
	require.Len(t, msgs, 1)
	content, err := msgs[0].Content()
	require.NoError(t, err)
	assert.Equal(t, text, string(content))
	assert.Equal(t, []imap.Flag{imap.FlagSeen}, msgs[0].Flags())
	assert.True(t, msgs[0].Recent())
	assert.Equal(t, time.Date(2024, time.January, 5, 10, 0, 0, 0, time.UTC), msgs[0].InternalDate().UTC())

	s.send("A3 APPEND Missing {1}", "+ More!")
	s.send("x", "A3 NO [TRYCREATE] no such mailbox")
}

func TestSession_Fetch(t *testing.T) {
	d := newTestDaemon(2)
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))

	s.send("A1 FETCH 1:* (UID FLAGS)",
		"* 1 FETCH (UID 1 FLAGS ())",
		"* 2 FETCH (UID 2 FLAGS ())",
		"A1 OK FETCH completed")
	s.send("A2 UID FETCH 2 FLAGS", "* 2 FETCH (FLAGS () UID 2)", "A2 OK FETCH completed")

	s.send("A3 FETCH 1 (BODY.PEEK[HEADER.FIELDS (Subject)])",
		"* 1 FETCH (BODY[HEADER.FIELDS (SUBJECT)] {22}",
		"Subject: Your name",
		"",
		")",
		"A3 OK FETCH completed")
	assert.False(t, d.Inbox().Messages()[0].HasFlag(imap.FlagSeen), "BODY.PEEK doesn't set \\Seen")

	s.send("A4 FETCH 1 BODY[]<0.4>", "* 1 FETCH (BODY[]<0> {4}", "From)", "A4 OK FETCH completed")
	assert.True(t, d.Inbox().Messages()[0].HasFlag(imap.FlagSeen))
	s.send("A5 FETCH 1 FLAGS", `* 1 FETCH (FLAGS (\Seen))`, "A5 OK FETCH completed")

	s.send("A6 FETCH 2 RFC822.SIZE", fmt.Sprintf("* 2 FETCH (RFC822.SIZE %v)", len(testMessage)), "A6 OK FETCH completed")
	s.send("A7 FETCH 1 ENVELOPE", "A7 BAD can't fetch ENVELOPE")
	s.send("A8 FETCH 1 BODY", "A8 BAD error in fetching: no BODY structure, use BODYSTRUCTURE")
	s.send("A9 FETCH 0 FLAGS", "A9 BAD invalid UID 0")
}

func TestSession_fetchSeqSetBounds(t *testing.T) {
	tests := []struct {
		set  string
		want []string
	}{
		{"1:*", []string{"* 1 FETCH (UID 1)", "* 2 FETCH (UID 2)"}},
		{"*", []string{"* 2 FETCH (UID 2)"}},
		{"5:*", []string{"* 2 FETCH (UID 2)"}},
		{"2:100000000", []string{"* 2 FETCH (UID 2)"}},
		{"1:4294967295", []string{"* 1 FETCH (UID 1)", "* 2 FETCH (UID 2)"}},
		{"4294967295:2", []string{"* 2 FETCH (UID 2)"}},
		{"3:4294967295", nil},
		{"4294967295", nil},
	}
	for _, tc := range tests {
		t.Run(tc.set, func(t *testing.T) {
			s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: newTestDaemon(2)}))
			s.send("A1 FETCH "+tc.set+" (UID)", append(tc.want, "A1 OK FETCH completed")...)
			s.send("A2 UID FETCH "+tc.set+" (UID)", append(tc.want, "A2 OK FETCH completed")...)
		})
	}
}

func TestSession_Store(t *testing.T) {
	d := newTestDaemon(2)
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))

	s.send(`A1 STORE 1 +FLAGS (\seen \Flagged)`, `* 1 FETCH (FLAGS (\Seen \Flagged))`, "A1 OK STORE completed")
	s.send(`A2 STORE 1 -FLAGS \Seen`, `* 1 FETCH (FLAGS (\Flagged))`, "A2 OK STORE completed")
	s.send(`A3 UID STORE 2 FLAGS.SILENT ($Label1)`, "A3 OK STORE completed")
	assert.Equal(t, []imap.Flag{"$Label1"}, d.Inbox().Messages()[1].Flags())
	s.send(`A4 UID STORE 2 FLAGS (\Draft)`, `* 2 FETCH (FLAGS (\Draft) UID 2)`, "A4 OK STORE completed")
	s.send(`A5 STORE 1 X-GM-LABELS foo`, "A5 BAD change what now?")
}

func TestSession_ExpungeAndSearch(t *testing.T) {
	d := newTestDaemon(5)
	for _, i := range []int{1, 3} {
		d.Inbox().Messages()[i].SetFlag(imap.FlagDeleted)
	}
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))

	s.send("A1 SEARCH UNDELETED", "* SEARCH 1 3 5", "A1 OK SEARCH COMPLETED")
	s.send("A2 SEARCH FROM alice", "A2 BAD not here yet")
	s.send("A3 EXPUNGE", "* 2 EXPUNGE", "* 3 EXPUNGE", "A3 OK EXPUNGE completed")
	s.send("A4 SEARCH UNDELETED", "* SEARCH 1 2 3", "A4 OK SEARCH COMPLETED")
	s.send("A5 UID SEARCH UNDELETED", "* SEARCH 1 3 5", "A5 OK SEARCH COMPLETED")
	s.send("A6 UID EXPUNGE", "A6 BAD illegal command EXPUNGE")
}

func TestSession_searchReturnsSeqNumsOutsideUIDMode(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	for _, uid := range []uint32{10, 20, 30} {
		d.Inbox().AddMessage(imapmemserver.NewMessage(uid, []byte(testMessage), nil))
	}
	d.Inbox().Messages()[1].SetFlag(imap.FlagDeleted)
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))

	s.send("A1 SEARCH UNDELETED", "* SEARCH 1 3", "A1 OK SEARCH COMPLETED")
	s.send("A2 UID SEARCH UNDELETED", "* SEARCH 10 30", "A2 OK SEARCH COMPLETED")
}

func TestSession_Copy(t *testing.T) {
	d := newTestDaemon(2)
	require.True(t, d.CreateMailbox("Trash"))
	d.SetCopyDelay(20 * time.Millisecond)
	s := newSelectedSession(t, newTestServer(t, &imapserver.Options{Daemon: d}))

	start := time.Now()
	s.send("A1 COPY 1:2 Trash", "A1 OK COPY completed")
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)

	trash := d.Mailbox("Trash")
	require.Equal(t, uint32(2), trash.NumMessages())
	assert.Equal(t, uint32(1), trash.Messages()[0].UID())
	assert.False(t, trash.Messages()[0].Recent())

	s.send("A2 UID COPY 1 Missing", "A2 NO [TRYCREATE] what mailbox?")
}

func TestSession_updates(t *testing.T) {
	d := newTestDaemon(2)
	srv := newTestServer(t, &imapserver.Options{Daemon: d})
	s1 := newSelectedSession(t, srv)
	s2 := newSelectedSession(t, srv)

	s2.send("B1 APPEND INBOX {1}", "+ More!")
	s2.send("x", "* 3 EXISTS", "B1 OK APPEND complete")
	s1.send("A1 NOOP", "* 3 EXISTS", "A1 OK NOOP completed")

	s2.send(`B2 STORE 1 +FLAGS.SILENT (\Deleted)`, "B2 OK STORE completed")
	s2.send("B3 EXPUNGE", "* 1 EXPUNGE", "B3 OK EXPUNGE completed")
	// The expunge is withheld from FETCH, sequence numbers are not remapped
	s1.send("A2 FETCH 1 UID", "* 1 FETCH (UID 2)", "A2 OK FETCH completed")
	s1.send("A3 NOOP", "* 1 EXPUNGE", "A3 OK NOOP completed")
}
