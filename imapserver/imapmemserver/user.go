package imapmemserver

import (
	"crypto/subtle"

	"github.com/emersion/go-imapfake"
)

// ErrAuthFailed is returned by User.Login when authentication fails.
var ErrAuthFailed = imap.Bad("invalid password, I won't authenticate you")

// User holds the credentials accepted by the server.
type User struct {
	username, password string
}

// NewUser creates a new user.
func NewUser(username, password string) *User {
	return &User{username: username, password: password}
}

func (u *User) Username() string {
	return u.username
}

// Password returns the clear-text password. It is needed by challenge-based
// mechanisms such as CRAM-MD5.
func (u *User) Password() string {
	return u.password
}

func (u *User) Login(username, password string) error {
	if username != u.username {
		return ErrAuthFailed
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(u.password)) != 1 {
		return ErrAuthFailed
	}
	return nil
}
