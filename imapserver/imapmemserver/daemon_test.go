package imapmemserver_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

func mailboxNames(l []*imapmemserver.Mailbox) []string {
	var names []string
	for _, mbox := range l {
		names = append(names, mbox.FullName())
	}
	return names
}

func TestDaemon_Mailbox(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	require.True(t, d.CreateMailbox("INBOX/sub"))

	assert.Same(t, d.Root(), d.Mailbox(""))
	assert.Same(t, d.Inbox(), d.Mailbox("inbox"))
	assert.Same(t, d.Inbox(), d.Mailbox("InBoX"))
	assert.Equal(t, "INBOX/sub", d.Mailbox("iNbOx/sub").FullName())
	assert.Nil(t, d.Mailbox("INBOX/SUB"))
	assert.Nil(t, d.Mailbox("missing"))
}

func TestDaemon_Mailbox_caseInsensitive(t *testing.T) {
	d := imapmemserver.NewDaemon(imapmemserver.FlagCaseInsensitive, nil)
	require.True(t, d.CreateMailbox("Trash"))

	assert.NotNil(t, d.Mailbox("TRASH"))
	assert.False(t, d.CreateMailbox("trash"))
}

func TestDaemon_CreateMailbox(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)

	assert.False(t, d.CreateMailbox("a/b"), "parents are not created")
	assert.True(t, d.CreateMailbox("a"))
	assert.True(t, d.CreateMailbox("a/b"))
	assert.True(t, d.CreateMailbox("a/c/"))
	assert.False(t, d.CreateMailbox("a"))
	assert.False(t, d.CreateMailbox(""))

	b := d.Mailbox("a/b")
	require.NotNil(t, b)
	assert.Equal(t, "b", b.Name())
	assert.Equal(t, "a/b", b.FullName())
	assert.Empty(t, b.Attrs())
	assert.NotNil(t, d.Mailbox("a/c"))
	assert.NotEqual(t, d.Mailbox("a").UIDValidity(), b.UIDValidity())
}

func TestDaemon_CreateMailbox_needsDelimiter(t *testing.T) {
	d := imapmemserver.NewDaemon(imapmemserver.FlagNeedsDelimiter, nil)

	require.True(t, d.CreateMailbox("leaf"))
	assert.True(t, d.Mailbox("leaf").HasAttr(imap.MailboxAttrNoInferiors))
	assert.False(t, d.CreateMailbox("leaf/child"))

	require.True(t, d.CreateMailbox("folder/"))
	assert.False(t, d.Mailbox("folder").HasAttr(imap.MailboxAttrNoInferiors))
	assert.True(t, d.CreateMailbox("folder/child"))
}

func TestDaemon_DeleteMailbox(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	require.True(t, d.CreateMailbox("a"))
	require.True(t, d.CreateMailbox("a/b"))
	a := d.Mailbox("a")
	a.AddMessage(imapmemserver.NewMessage(a.AllocUID(), []byte("Subject: x\r\n\r\n"), nil))

	d.DeleteMailbox(a)
	assert.Same(t, a, d.Mailbox("a"))
	assert.True(t, a.HasAttr(imap.MailboxAttrNoSelect))
	assert.False(t, a.Selectable())
	assert.Zero(t, a.NumMessages())

	d.DeleteMailbox(d.Mailbox("a/b"))
	assert.Nil(t, d.Mailbox("a/b"))
}

func TestDaemon_RenameMailbox(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	require.True(t, d.CreateMailbox("a"))
	require.True(t, d.CreateMailbox("a/child"))
	a := d.Mailbox("a")
	a.AddMessage(imapmemserver.NewMessage(a.AllocUID(), []byte("x"), nil))
	validity := a.UIDValidity()

	require.True(t, d.RenameMailbox(a, "b"))
	assert.Nil(t, d.Mailbox("a"))
	b := d.Mailbox("b")
	require.NotNil(t, b)
	assert.Equal(t, uint32(1), b.NumMessages())
	assert.Equal(t, uint32(2), b.UIDNext())
	assert.NotEqual(t, validity, b.UIDValidity())
	assert.NotNil(t, d.Mailbox("b/child"))

	assert.False(t, d.RenameMailbox(b, "b/child/x"))
	assert.False(t, d.RenameMailbox(d.Mailbox("b/child"), "missing/x"))
}

func TestDaemon_RenameMailbox_inbox(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	inbox := d.Inbox()
	inbox.AddMessage(imapmemserver.NewMessage(inbox.AllocUID(), []byte("x"), nil))

	require.True(t, d.RenameMailbox(inbox, "old"))
	assert.Equal(t, uint32(1), d.Mailbox("old").NumMessages())
	require.NotNil(t, d.Mailbox("INBOX"))
	assert.NotSame(t, inbox, d.Inbox())
	assert.Zero(t, d.Inbox().NumMessages())
	assert.Same(t, d.Inbox(), d.Mailbox("INBOX"))
}

func TestDaemon_Namespace(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	shared := d.CreateNamespace("#shared", imap.NamespaceShared)
	require.NotNil(t, shared)
	require.True(t, d.CreateMailbox("#shared/team"))

	assert.Same(t, shared, d.Namespace("#shared/team"))
	assert.Same(t, d.Root(), d.Namespace("INBOX"))
	assert.Same(t, shared, d.Mailbox("#shared"))
	assert.Equal(t, "#shared/team", d.Mailbox("#shared/team").FullName())
	assert.Equal(t, imap.NamespaceShared, shared.NamespaceType())
	assert.Len(t, d.Namespaces(), 2)
}

func TestDaemon_AddFixture(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	mbox := d.AddFixture("Fixture", &imapmemserver.MailboxOptions{
		Subscribed:  true,
		UIDNext:     10,
		UIDValidity: 42,
		Attrs:       []imap.MailboxAttr{imap.MailboxAttrMarked},
	})
	require.NotNil(t, mbox)
	assert.True(t, mbox.Subscribed())
	assert.Equal(t, uint32(10), mbox.UIDNext())
	assert.Equal(t, uint32(42), mbox.UIDValidity())
	assert.True(t, mbox.HasAttr(imap.MailboxAttrMarked))
	assert.Nil(t, d.AddFixture("Fixture", nil))
}

func TestDaemon_Synchronize(t *testing.T) {
	calls := 0
	d := imapmemserver.NewDaemon(0, func(*imapmemserver.Daemon) { calls++ })
	inbox := d.Inbox()
	msg := imapmemserver.NewMessage(inbox.AllocUID(), []byte("x"), nil)
	msg.SetRecent(true)
	inbox.AddMessage(msg)

	d.Synchronize(inbox, false)
	assert.Equal(t, uint32(1), inbox.NumRecent())
	d.Synchronize(inbox, true)
	assert.Zero(t, inbox.NumRecent())
	assert.Equal(t, 2, calls)
}

var matchKidsTests = []struct {
	pattern string
	names   []string
}{
	{pattern: "*", names: []string{"INBOX", "Neon Genesis Evangelion", "Neon Genesis Evangelion/Misato", "Neon Genesis Evangelion/Misato/Pen Pen", "Misato"}},
	{pattern: "%", names: []string{"INBOX", "Neon Genesis Evangelion", "Misato"}},
	{pattern: "Neon Genesis Evangelion/%", names: []string{"Neon Genesis Evangelion/Misato"}},
	{pattern: "Neon Genesis Evangelion/*", names: []string{"Neon Genesis Evangelion/Misato", "Neon Genesis Evangelion/Misato/Pen Pen"}},
	{pattern: "Neo% Evangelion/Misato", names: []string{"Neon Genesis Evangelion/Misato"}},
	{pattern: "%Eva%/Mi%o", names: []string{"Neon Genesis Evangelion/Misato"}},
	{pattern: "%X%/Misato", names: nil},
	{pattern: "Misato", names: []string{"Misato"}},
	{pattern: "INBOX", names: []string{"INBOX"}},
}

func TestMailbox_MatchKids(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	for _, name := range []string{"Neon Genesis Evangelion", "Neon Genesis Evangelion/Misato", "Neon Genesis Evangelion/Misato/Pen Pen", "Misato"} {
		require.True(t, d.CreateMailbox(name), name)
	}

	for _, test := range matchKidsTests {
		t.Run(test.pattern, func(t *testing.T) {
			assert.Equal(t, test.names, mailboxNames(d.Root().MatchKids(test.pattern)))
		})
	}

	assert.Equal(t, []string{""}, mailboxNames(d.Mailbox("Misato").MatchKids("")))
}

func TestMailbox_Expunge(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	inbox := d.Inbox()
	for i := 0; i < 5; i++ {
		inbox.AddMessage(imapmemserver.NewMessage(inbox.AllocUID(), []byte("x"), nil))
	}
	msgs := inbox.Messages()
	msgs[1].SetFlag(imap.FlagDeleted)
	msgs[3].SetFlag(imap.FlagDeleted)

	observer := inbox.NewSession()
	defer observer.Close()

	assert.Equal(t, []uint32{2, 3}, inbox.Expunge(nil))
	assert.Equal(t, uint32(3), inbox.NumMessages())
	assert.Equal(t, uint32(5), inbox.HighestUID())
	assert.Equal(t, uint32(6), inbox.UIDNext())
	assert.Equal(t, []imapmemserver.Update{{Expunge: 2}, {Expunge: 3}}, observer.Poll(true))
}

func TestMailbox_Remove(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	inbox := d.Inbox()
	for i := 0; i < 4; i++ {
		inbox.AddMessage(imapmemserver.NewMessage(inbox.AllocUID(), []byte("x"), nil))
	}
	msgs := inbox.Messages()

	assert.Equal(t, []uint32{4, 2}, inbox.Remove([]*imapmemserver.Message{msgs[1], msgs[3]}, nil))
	assert.Equal(t, uint32(2), inbox.NumMessages())
}

func TestMailbox_counters(t *testing.T) {
	d := imapmemserver.NewDaemon(0, nil)
	inbox := d.Inbox()
	assert.Zero(t, inbox.FirstUnseen())
	assert.Zero(t, inbox.HighestUID())

	inbox.AddMessage(imapmemserver.NewMessage(7, []byte("x"), []imap.Flag{imap.FlagSeen}))
	inbox.AddMessage(imapmemserver.NewMessage(inbox.AllocUID(), []byte("x"), nil))

	assert.Equal(t, uint32(9), inbox.UIDNext())
	assert.Equal(t, uint32(8), inbox.HighestUID())
	assert.Equal(t, uint32(1), inbox.NumUnseen())
	assert.Equal(t, uint32(2), inbox.FirstUnseen())
}
