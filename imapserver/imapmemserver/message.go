package imapmemserver

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-imapfake"
)

// Message is a message stored in a mailbox.
//
// The content is either held in memory or loaded on first use from a
// "data:" or "file:" URI.
type Message struct {
	uid    uint32
	flags  []imap.Flag
	recent bool
	size   int64
	t      time.Time

	uri    string
	buf    []byte
	loaded bool

	gmMsgID    string
	gmThrID    string
	gmLabels   []string
	customVal  string
	customList []string
}

// NewMessage creates a message holding buf.
func NewMessage(uid uint32, buf []byte, flags []imap.Flag) *Message {
	msg := &Message{uid: uid, buf: buf, loaded: true, t: time.Now()}
	msg.SetFlags(flags)
	return msg
}

// NewMessageURI creates a message whose content is loaded from uri.
func NewMessageURI(uid uint32, uri string, flags []imap.Flag) *Message {
	msg := &Message{uid: uid, uri: uri, t: time.Now()}
	msg.SetFlags(flags)
	return msg
}

func (msg *Message) UID() uint32 {
	return msg.uid
}

// URI returns the URI the content was loaded from, if any.
func (msg *Message) URI() string {
	return msg.uri
}

// Content returns the raw RFC 822 message.
func (msg *Message) Content() ([]byte, error) {
	if msg.loaded {
		return msg.buf, nil
	}
	buf, err := loadURI(msg.uri)
	if err != nil {
		return nil, fmt.Errorf("failed to load message %v: %w", msg.uid, err)
	}
	msg.buf = buf
	msg.loaded = true
	return buf, nil
}

func loadURI(uri string) ([]byte, error) {
	switch {
	case strings.HasPrefix(uri, "data:"):
		meta, data, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
		if !ok {
			return nil, fmt.Errorf("malformed data URI")
		}
		if strings.HasSuffix(meta, ";base64") {
			return base64.StdEncoding.DecodeString(data)
		}
		s, err := url.PathUnescape(data)
		if err != nil {
			return nil, err
		}
		return []byte(s), nil
	case strings.HasPrefix(uri, "file:"):
		u, err := url.Parse(uri)
		if err != nil {
			return nil, err
		}
		path := u.Path
		if path == "" {
			path = u.Opaque
		}
		return os.ReadFile(path)
	default:
		return nil, fmt.Errorf("unsupported URI scheme in %q", uri)
	}
}

// Text returns length bytes of the content starting at start. Both bounds
// are clamped to the content; a negative length means up to the end.
func (msg *Message) Text(start, length int) ([]byte, error) {
	buf, err := msg.Content()
	if err != nil {
		return nil, err
	}
	if start < 0 {
		start = 0
	}
	if start > len(buf) {
		start = len(buf)
	}
	end := len(buf)
	if length >= 0 && start+length < end {
		end = start + length
	}
	return buf[start:end], nil
}

// Size returns the RFC822.SIZE of the message: the override set with SetSize
// if any, the content length otherwise.
func (msg *Message) Size() (int64, error) {
	if msg.size > 0 {
		return msg.size, nil
	}
	buf, err := msg.Content()
	if err != nil {
		return 0, err
	}
	return int64(len(buf)), nil
}

// SetSize overrides the reported size, to simulate servers which
// approximate it. Zero removes the override.
func (msg *Message) SetSize(size int64) {
	msg.size = size
}

func (msg *Message) InternalDate() time.Time {
	return msg.t
}

func (msg *Message) SetInternalDate(t time.Time) {
	msg.t = t
}

func (msg *Message) Recent() bool {
	return msg.recent
}

func (msg *Message) SetRecent(recent bool) {
	msg.recent = recent
}

// Flags returns the flags in the order they were set.
func (msg *Message) Flags() []imap.Flag {
	return append([]imap.Flag(nil), msg.flags...)
}

func (msg *Message) HasFlag(flag imap.Flag) bool {
	for _, f := range msg.flags {
		if f == flag {
			return true
		}
	}
	return false
}

// SetFlag adds a flag. Adding a flag twice has no effect.
func (msg *Message) SetFlag(flag imap.Flag) {
	if !msg.HasFlag(flag) {
		msg.flags = append(msg.flags, flag)
	}
}

// ClearFlag removes a flag. Removing a missing flag has no effect.
func (msg *Message) ClearFlag(flag imap.Flag) {
	for i, f := range msg.flags {
		if f == flag {
			msg.flags = append(msg.flags[:i], msg.flags[i+1:]...)
			return
		}
	}
}

// SetFlags replaces all flags.
func (msg *Message) SetFlags(flags []imap.Flag) {
	msg.flags = nil
	for _, flag := range flags {
		msg.SetFlag(flag)
	}
}

// Gmail attributes. An empty message or thread ID and a nil label list mean
// the attribute is uninitialized.

func (msg *Message) GmailMsgID() string {
	return msg.gmMsgID
}

func (msg *Message) SetGmailMsgID(id string) {
	msg.gmMsgID = id
}

func (msg *Message) GmailThreadID() string {
	return msg.gmThrID
}

func (msg *Message) SetGmailThreadID(id string) {
	msg.gmThrID = id
}

func (msg *Message) GmailLabels() []string {
	return msg.gmLabels
}

func (msg *Message) SetGmailLabels(labels []string) {
	msg.gmLabels = append(make([]string, 0, len(labels)), labels...)
}

// Custom attributes, uninitialized while empty (value) or nil (list).

func (msg *Message) CustomValue() string {
	return msg.customVal
}

func (msg *Message) SetCustomValue(v string) {
	msg.customVal = v
}

func (msg *Message) CustomList() []string {
	return msg.customList
}

func (msg *Message) SetCustomList(l []string) {
	msg.customList = append(make([]string, 0, len(l)), l...)
}

// Clone returns a copy of the message with a new UID, as stored by COPY. The
// clone is not recent and has no Gmail or custom attributes.
func (msg *Message) Clone(uid uint32) *Message {
	return &Message{
		uid:    uid,
		flags:  msg.Flags(),
		size:   msg.size,
		t:      msg.t,
		uri:    msg.uri,
		buf:    msg.buf,
		loaded: msg.loaded,
	}
}
