// Package config loads the imapfaked configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

// DefaultPaths are tried in order by Load when no path is given.
var DefaultPaths = []string{
	"./imapfaked.yaml",
	"./config/imapfaked.yaml",
	"/etc/imapfaked/imapfaked.yaml",
}

type Config struct {
	Listen        string `yaml:"listen"`
	MetricsListen string `yaml:"metrics_listen"`
	LogLevel      string `yaml:"log_level"`
	// State is the path of a bbolt database holding daemon snapshots.
	State string `yaml:"state"`

	Profile         string   `yaml:"profile"`
	Extensions      []string `yaml:"extensions"`
	Capabilities    []string `yaml:"capabilities"`
	CaseInsensitive bool     `yaml:"case_insensitive"`
	NeedsDelimiter  bool     `yaml:"needs_delimiter"`

	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	LoginDisabled  bool          `yaml:"login_disabled"`
	DropOnStartTLS bool          `yaml:"drop_on_starttls"`
	CommandToFail  string        `yaml:"command_to_fail"`
	CopyDelay      time.Duration `yaml:"copy_delay"`
	IDResponse     string        `yaml:"id_response"`
	TokenKey       string        `yaml:"token_key"`

	Namespaces []Namespace `yaml:"namespaces"`
	Mailboxes  []Mailbox   `yaml:"mailboxes"`
}

type Namespace struct {
	Name string `yaml:"name"`
	// Type is one of personal, other or shared.
	Type string `yaml:"type"`
}

type Mailbox struct {
	Name        string    `yaml:"name"`
	Subscribed  bool      `yaml:"subscribed"`
	Attrs       []string  `yaml:"attrs"`
	UIDValidity uint32    `yaml:"uid_validity"`
	UIDNext     uint32    `yaml:"uid_next"`
	Messages    []Message `yaml:"messages"`
}

// Message is a message fixture. Exactly one of File, URI and Text must be
// set.
type Message struct {
	File  string   `yaml:"file"`
	URI   string   `yaml:"uri"`
	Text  string   `yaml:"text"`
	Flags []string `yaml:"flags"`
	// Date is an internal date in the APPEND format.
	Date string `yaml:"date"`

	GmailMsgID    string   `yaml:"gmail_msgid"`
	GmailThreadID string   `yaml:"gmail_thrid"`
	GmailLabels   []string `yaml:"gmail_labels"`
	CustomValue   string   `yaml:"custom_value"`
	CustomList    []string `yaml:"custom_list"`
}

// Load reads the configuration at path. If path is empty, DefaultPaths are
// tried and a missing file yields the default configuration.
func Load(path string) (*Config, error) {
	var (
		data []byte
		err  error
	)
	if path != "" {
		data, err = os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, err
		}
	} else {
		for _, p := range DefaultPaths {
			data, err = os.ReadFile(filepath.Clean(p))
			if err == nil {
				break
			}
		}
	}

	cfg := Default()
	if data == nil {
		return cfg, nil
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Listen:   "localhost:1143",
		LogLevel: "info",
		Username: "user",
		Password: "password",
	}
}

// Validate checks values which cannot be checked by the YAML decoder.
func (cfg *Config) Validate() error {
	if _, err := imapserver.Profile(cfg.Profile); err != nil {
		return err
	}
	if cfg.CopyDelay < 0 {
		return fmt.Errorf("config: negative copy_delay")
	}
	for _, ns := range cfg.Namespaces {
		if ns.Name == "" {
			return fmt.Errorf("config: namespace without name")
		}
		if _, err := parseNamespaceType(ns.Type); err != nil {
			return err
		}
	}
	for _, mbox := range cfg.Mailboxes {
		if mbox.Name == "" {
			return fmt.Errorf("config: mailbox without name")
		}
		for i, msg := range mbox.Messages {
			n := 0
			for _, s := range []string{msg.File, msg.URI, msg.Text} {
				if s != "" {
					n++
				}
			}
			if n != 1 {
				return fmt.Errorf("config: message %v of %q needs one of file, uri or text", i, mbox.Name)
			}
			if msg.Date != "" {
				if _, err := imap.ParseAppendDate(msg.Date); err != nil {
					return fmt.Errorf("config: message %v of %q: %w", i, mbox.Name, err)
				}
			}
		}
	}
	return nil
}

func parseNamespaceType(s string) (imap.NamespaceType, error) {
	switch strings.ToLower(s) {
	case "", "personal":
		return imap.NamespacePersonal, nil
	case "other":
		return imap.NamespaceOtherUsers, nil
	case "shared":
		return imap.NamespaceShared, nil
	default:
		return 0, fmt.Errorf("config: unknown namespace type %q", s)
	}
}

// DaemonFlags returns the imapmemserver flags selected by the configuration.
func (cfg *Config) DaemonFlags() int {
	var flags int
	if cfg.CaseInsensitive {
		flags |= imapmemserver.FlagCaseInsensitive
	}
	if cfg.NeedsDelimiter {
		flags |= imapmemserver.FlagNeedsDelimiter
	}
	return flags
}

// Setup applies the user, the knobs and the fixtures to d. Fixtures naming
// an existing mailbox are skipped, so that a daemon loaded from a snapshot
// keeps its state.
func (cfg *Config) Setup(d *imapmemserver.Daemon) error {
	d.Lock()
	defer d.Unlock()

	d.SetUser(imapmemserver.NewUser(cfg.Username, cfg.Password))
	d.SetCommandToFail(cfg.CommandToFail)
	d.SetCopyDelay(cfg.CopyDelay)
	if cfg.IDResponse != "" {
		d.SetIDResponse(cfg.IDResponse)
	}

	for _, ns := range cfg.Namespaces {
		if d.Mailbox(ns.Name) != nil {
			continue
		}
		typ, err := parseNamespaceType(ns.Type)
		if err != nil {
			return err
		}
		if d.CreateNamespace(ns.Name, typ) == nil {
			return fmt.Errorf("config: cannot create namespace %q", ns.Name)
		}
	}

	for _, fixture := range cfg.Mailboxes {
		mbox := d.Mailbox(fixture.Name)
		if mbox != nil && mbox != d.Inbox() {
			continue
		}
		if mbox == nil {
			attrs := make([]imap.MailboxAttr, len(fixture.Attrs))
			for i, attr := range fixture.Attrs {
				attrs[i] = imap.MailboxAttr(attr)
			}
			mbox = d.AddFixture(fixture.Name, &imapmemserver.MailboxOptions{
				Subscribed:  fixture.Subscribed,
				Attrs:       attrs,
				UIDValidity: fixture.UIDValidity,
				UIDNext:     fixture.UIDNext,
			})
			if mbox == nil {
				return fmt.Errorf("config: cannot create mailbox %q", fixture.Name)
			}
		} else if mbox.NumMessages() > 0 {
			continue
		}

		for _, m := range fixture.Messages {
			msg, err := m.message(mbox.AllocUID())
			if err != nil {
				return fmt.Errorf("config: mailbox %q: %w", fixture.Name, err)
			}
			mbox.AddMessage(msg)
		}
	}
	return nil
}

func (m *Message) message(uid uint32) (*imapmemserver.Message, error) {
	flags := make([]imap.Flag, len(m.Flags))
	for i, flag := range m.Flags {
		flags[i] = imap.Flag(flag)
	}

	var msg *imapmemserver.Message
	switch {
	case m.File != "":
		abs, err := filepath.Abs(m.File)
		if err != nil {
			return nil, err
		}
		msg = imapmemserver.NewMessageURI(uid, "file://"+filepath.ToSlash(abs), flags)
	case m.URI != "":
		msg = imapmemserver.NewMessageURI(uid, m.URI, flags)
	default:
		text := strings.ReplaceAll(m.Text, "\r\n", "\n")
		msg = imapmemserver.NewMessage(uid, []byte(strings.ReplaceAll(text, "\n", "\r\n")), flags)
	}

	if m.Date != "" {
		t, err := imap.ParseAppendDate(m.Date)
		if err != nil {
			return nil, err
		}
		msg.SetInternalDate(t)
	}
	msg.SetGmailMsgID(m.GmailMsgID)
	msg.SetGmailThreadID(m.GmailThreadID)
	if m.GmailLabels != nil {
		msg.SetGmailLabels(m.GmailLabels)
	}
	msg.SetCustomValue(m.CustomValue)
	if m.CustomList != nil {
		msg.SetCustomList(m.CustomList)
	}
	return msg, nil
}

// ServerOptions returns the imapserver options for d.
func (cfg *Config) ServerOptions(d *imapmemserver.Daemon) *imapserver.Options {
	caps := make([]imap.Cap, len(cfg.Capabilities))
	for i, c := range cfg.Capabilities {
		caps[i] = imap.Cap(c)
	}
	var tokenKey []byte
	if cfg.TokenKey != "" {
		tokenKey = []byte(cfg.TokenKey)
	}
	return &imapserver.Options{
		Daemon:         d,
		Profile:        cfg.Profile,
		Extensions:     cfg.Extensions,
		Capabilities:   caps,
		LoginDisabled:  cfg.LoginDisabled,
		DropOnStartTLS: cfg.DropOnStartTLS,
		TokenKey:       tokenKey,
	}
}
