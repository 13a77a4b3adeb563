package imapmemserver

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/emersion/go-imapfake"
)

var (
	bucketMeta      = []byte("meta")
	bucketMailboxes = []byte("mailboxes")
	keyUIDValidity  = []byte("uidvalidity")
)

type mailboxRecord struct {
	Path           []string           `json:"path"`
	Namespace      bool               `json:"namespace,omitempty"`
	NamespaceType  imap.NamespaceType `json:"namespaceType,omitempty"`
	Delim          string             `json:"delim"`
	Subscribed     bool               `json:"subscribed,omitempty"`
	UIDValidity    uint32             `json:"uidValidity"`
	UIDNext        uint32             `json:"uidNext"`
	Attrs          []imap.MailboxAttr `json:"attrs,omitempty"`
	MessageFlags   []imap.Flag        `json:"messageFlags,omitempty"`
	PermanentFlags []imap.Flag        `json:"permanentFlags,omitempty"`
	Messages       []messageRecord    `json:"messages,omitempty"`
}

type messageRecord struct {
	UID        uint32      `json:"uid"`
	Flags      []imap.Flag `json:"flags,omitempty"`
	Recent     bool        `json:"recent,omitempty"`
	Size       int64       `json:"size,omitempty"`
	Date       time.Time   `json:"date"`
	URI        string      `json:"uri,omitempty"`
	Content    []byte      `json:"content,omitempty"`
	GmMsgID    string      `json:"gmMsgID,omitempty"`
	GmThrID    string      `json:"gmThrID,omitempty"`
	GmLabels   []string    `json:"gmLabels"`
	CustomVal  string      `json:"customValue,omitempty"`
	CustomList []string    `json:"customList"`
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func mailboxPath(mbox *Mailbox) []string {
	var path []string
	for m := mbox; m.parent != nil; m = m.parent {
		path = append([]string{m.name}, path...)
	}
	return path
}

// Save writes the whole mailbox tree to db, replacing the previous snapshot.
func (d *Daemon) Save(db *bolt.DB) error {
	isNamespace := make(map[*Mailbox]bool)
	for _, ns := range d.namespaces {
		isNamespace[ns] = true
	}

	return db.Update(func(tx *bolt.Tx) error {
		meta, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		if err := meta.Put(keyUIDValidity, itob(uint64(d.uidValidity))); err != nil {
			return err
		}

		if tx.Bucket(bucketMailboxes) != nil {
			if err := tx.DeleteBucket(bucketMailboxes); err != nil {
				return err
			}
		}
		b, err := tx.CreateBucket(bucketMailboxes)
		if err != nil {
			return err
		}

		for i, mbox := range d.root.AllChildren() {
			rec := mailboxRecord{
				Path:           mailboxPath(mbox),
				Namespace:      isNamespace[mbox],
				NamespaceType:  mbox.nsType,
				Delim:          mbox.delim,
				Subscribed:     mbox.subscribed,
				UIDValidity:    mbox.uidValidity,
				UIDNext:        mbox.uidNext,
				Attrs:          mbox.attrs,
				MessageFlags:   mbox.messageFlags,
				PermanentFlags: mbox.permanentFlags,
			}
			for _, msg := range mbox.l {
				rec.Messages = append(rec.Messages, newMessageRecord(msg))
			}

			buf, err := json.Marshal(&rec)
			if err != nil {
				return fmt.Errorf("failed to encode mailbox %q: %w", mbox.FullName(), err)
			}
			if err := b.Put(itob(uint64(i)), buf); err != nil {
				return err
			}
		}
		return nil
	})
}

func newMessageRecord(msg *Message) messageRecord {
	rec := messageRecord{
		UID:        msg.uid,
		Flags:      msg.flags,
		Recent:     msg.recent,
		Size:       msg.size,
		Date:       msg.t,
		URI:        msg.uri,
		GmMsgID:    msg.gmMsgID,
		GmThrID:    msg.gmThrID,
		GmLabels:   msg.gmLabels,
		CustomVal:  msg.customVal,
		CustomList: msg.customList,
	}
	if msg.loaded {
		rec.URI = ""
		rec.Content = msg.buf
	}
	return rec
}

func (rec *messageRecord) message() *Message {
	msg := &Message{
		uid:        rec.UID,
		recent:     rec.Recent,
		size:       rec.Size,
		t:          rec.Date,
		uri:        rec.URI,
		gmMsgID:    rec.GmMsgID,
		gmThrID:    rec.GmThrID,
		gmLabels:   rec.GmLabels,
		customVal:  rec.CustomVal,
		customList: rec.CustomList,
	}
	if rec.URI == "" {
		msg.buf = rec.Content
		msg.loaded = true
	}
	msg.SetFlags(rec.Flags)
	return msg
}

// LoadDaemon creates a daemon from the snapshot stored in db. If db holds no
// snapshot, the daemon is the same as the one returned by NewDaemon.
func LoadDaemon(db *bolt.DB, flags int, syncFunc SyncFunc) (*Daemon, error) {
	d := NewDaemon(flags, syncFunc)

	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketMailboxes)
		if b == nil {
			return nil
		}
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if v := meta.Get(keyUIDValidity); len(v) == 8 {
				d.uidValidity = uint32(binary.BigEndian.Uint64(v))
			}
		}

		d.root.children = nil
		d.inbox = nil
		return b.ForEach(func(k, v []byte) error {
			var rec mailboxRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode mailbox record: %w", err)
			}
			if len(rec.Path) == 0 {
				return fmt.Errorf("mailbox record without path")
			}
			parent := walk(d.root, rec.Path[:len(rec.Path)-1], false)
			if parent == nil {
				return fmt.Errorf("missing parent for mailbox %q", rec.Path)
			}

			mbox := newMailbox(rec.Path[len(rec.Path)-1], &MailboxOptions{
				Subscribed:     rec.Subscribed,
				Delim:          rec.Delim,
				Attrs:          rec.Attrs,
				UIDNext:        rec.UIDNext,
				UIDValidity:    rec.UIDValidity,
				MessageFlags:   rec.MessageFlags,
				PermanentFlags: rec.PermanentFlags,
				NamespaceType:  rec.NamespaceType,
			})
			for i := range rec.Messages {
				mbox.l = append(mbox.l, rec.Messages[i].message())
			}
			mbox.tracker = NewMailboxTracker(uint32(len(mbox.l)))
			parent.addChild(mbox)

			if parent == d.root && mbox.name == "INBOX" {
				d.inbox = mbox
			}
			if rec.Namespace {
				d.namespaces = append(d.namespaces, mbox)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load daemon snapshot: %w", err)
	}

	if d.inbox == nil {
		d.inbox = newMailbox("INBOX", &MailboxOptions{UIDValidity: d.nextUIDValidity()})
		d.root.addChild(d.inbox)
	}
	return d, nil
}
