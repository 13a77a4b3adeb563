package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

const testConfig = `listen: 127.0.0.1:2143
profile: GMail
extensions: [MOVE]
capabilities: [X-TEST]
case_insensitive: true
username: alice
password: s3cret
command_to_fail: SELECT
copy_delay: 50ms
id_response: '("name" "imapfake")'
namespaces:
  - name: "#shared"
    type: shared
mailboxes:
  - name: INBOX
    messages:
      - text: "Subject: hello\n\nhi\n"
        flags: [\Seen]
        date: 01-Jan-2020 10:00:00 +0000
        gmail_msgid: "42"
        gmail_labels: [foo, bar]
  - name: Archive
    subscribed: true
    uid_validity: 7
    uid_next: 10
    messages:
      - uri: "data:,Subject:%20x%0D%0A%0D%0Abody"
`

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "imapfaked.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:2143", cfg.Listen)
	assert.Equal(t, "GMail", cfg.Profile)
	assert.Equal(t, []string{"MOVE"}, cfg.Extensions)
	assert.Equal(t, 50*time.Millisecond, cfg.CopyDelay)
	assert.Equal(t, "info", cfg.LogLevel, "defaults are kept")
	assert.Equal(t, imapmemserver.FlagCaseInsensitive, cfg.DaemonFlags())
	require.Len(t, cfg.Mailboxes, 2)
	assert.Equal(t, []string{"foo", "bar"}, cfg.Mailboxes[0].Messages[0].GmailLabels)
}

func TestLoad_defaultPaths(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "imapfaked.yaml"), []byte("profile: Dovecot\n"), 0600))
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "Dovecot", cfg.Profile)
}

func TestLoad_errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown field", "nope: 1\n"},
		{"unknown profile", "profile: Nope\n"},
		{"namespace type", "namespaces: [{name: x, type: public}]\n"},
		{"message source", "mailboxes: [{name: x, messages: [{flags: [a]}]}]\n"},
		{"two sources", "mailboxes: [{name: x, messages: [{text: a, uri: 'data:,a'}]}]\n"},
		{"bad date", "mailboxes: [{name: x, messages: [{text: a, date: yesterday}]}]\n"},
		{"negative delay", "copy_delay: -1s\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSetup(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	d := imapmemserver.NewDaemon(cfg.DaemonFlags(), nil)
	require.NoError(t, cfg.Setup(d))

	assert.NoError(t, d.User().Login("alice", "s3cret"))
	assert.Equal(t, "SELECT", d.CommandToFail())
	assert.Equal(t, 50*time.Millisecond, d.CopyDelay())
	assert.Equal(t, `("name" "imapfake")`, d.IDResponse())
	require.NotNil(t, d.Mailbox("#shared"))
	assert.Equal(t, imap.NamespaceShared, d.Mailbox("#shared").NamespaceType())

	inbox := d.Inbox()
	require.Len(t, inbox.Messages(), 1)
	msg := inbox.Messages()[0]
	assert.Equal(t, uint32(1), msg.UID())
	assert.True(t, msg.HasFlag(imap.FlagSeen))
	assert.Equal(t, "42", msg.GmailMsgID())
	assert.Equal(t, []string{"foo", "bar"}, msg.GmailLabels())
	assert.Empty(t, msg.CustomValue())
	content, err := msg.Content()
	require.NoError(t, err)
	assert.Equal(t, "Subject: hello\r\n\r\nhi\r\n", string(content))
	assert.Equal(t, time.Date(2020, 1, 1, 10, 0, 0, 0, time.UTC), msg.InternalDate().UTC())

	archive := d.Mailbox("archive")
	require.NotNil(t, archive, "lookups are case-insensitive")
	assert.True(t, archive.Subscribed())
	assert.Equal(t, uint32(7), archive.UIDValidity())
	assert.Equal(t, uint32(11), archive.UIDNext())
	content, err = archive.Messages()[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "Subject: x\r\n\r\nbody", string(content))

	// A second setup keeps the existing state
	require.NoError(t, cfg.Setup(d))
	assert.Len(t, d.Inbox().Messages(), 1)
	assert.Len(t, d.Mailbox("Archive").Messages(), 1)
}

func TestSetup_file(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msg.eml")
	require.NoError(t, os.WriteFile(path, []byte("Subject: file\r\n\r\n"), 0600))

	cfg := Default()
	cfg.Mailboxes = []Mailbox{{Name: "Files", Messages: []Message{{File: path}}}}
	require.NoError(t, cfg.Validate())

	d := imapmemserver.NewDaemon(0, nil)
	require.NoError(t, cfg.Setup(d))
	content, err := d.Mailbox("Files").Messages()[0].Content()
	require.NoError(t, err)
	assert.Equal(t, "Subject: file\r\n\r\n", string(content))
}

func TestServerOptions(t *testing.T) {
	cfg, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	d := imapmemserver.NewDaemon(0, nil)
	options := cfg.ServerOptions(d)
	assert.Same(t, d, options.Daemon)
	assert.Equal(t, "GMail", options.Profile)
	assert.Equal(t, []imap.Cap{"X-TEST"}, options.Capabilities)
	assert.Nil(t, options.TokenKey)
}
