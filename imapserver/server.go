// Package imapserver implements the session handler of the IMAP server
// simulator.
//
// A Server wraps a mailbox store (imapmemserver.Daemon) and a Handler built
// from a profile. Sessions can be driven line by line, for instance from a
// test, or served over a net.Listener.
package imapserver

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"time"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

// Logger is a facility to log error messages.
type Logger interface {
	Printf(format string, args ...interface{})
}

// Options contains server options.
//
// The only required field is Daemon.
type Options struct {
	Daemon *imapmemserver.Daemon

	// Profile is the name of a server profile, see Profiles. Empty means
	// RFC3501.
	Profile string
	// Extensions are enabled on top of the profile.
	Extensions []string
	// Capabilities are advertised in addition to the extension ones.
	Capabilities []imap.Cap
	// LoginDisabled advertises LOGINDISABLED and rejects LOGIN.
	LoginDisabled bool
	// DropOnStartTLS closes the connection without answering STARTTLS.
	DropOnStartTLS bool
	// TokenKey is the HMAC key of OAUTHBEARER tokens. OAUTHBEARER is only
	// offered by the AUTH extension when set.
	TokenKey []byte

	// Logger is a logger to print error messages. If nil, log.Default is
	// used.
	Logger Logger
	// DebugWriter, if set, receives the commands and responses exchanged on
	// network connections.
	DebugWriter io.Writer
}

// Server is an IMAP server simulator.
type Server struct {
	options Options
	daemon  *imapmemserver.Daemon
	handler *Handler
	caps    []imap.Cap
}

// New creates a new server.
func New(options *Options) (*Server, error) {
	if options.Daemon == nil {
		return nil, fmt.Errorf("imapserver: missing daemon")
	}

	names, err := Profile(options.Profile)
	if err != nil {
		return nil, err
	}
	names = append(names, options.Extensions...)

	h := NewHandler()
	for _, name := range names {
		ext, err := options.extension(name)
		if err != nil {
			return nil, err
		}
		h.Enable(ext)
	}

	caps := append(h.Capabilities(), options.Capabilities...)
	if options.LoginDisabled {
		caps = append(caps, imap.CapLoginDisabled)
	}

	return &Server{
		options: *options,
		daemon:  options.Daemon,
		handler: h,
		caps:    caps,
	}, nil
}

func (srv *Server) logger() Logger {
	if srv.options.Logger == nil {
		return log.Default()
	}
	return srv.options.Logger
}

// Daemon returns the mailbox store of the server.
func (srv *Server) Daemon() *imapmemserver.Daemon {
	return srv.daemon
}

// Handler returns the command tables of the server.
func (srv *Server) Handler() *Handler {
	return srv.handler
}

// Capabilities returns the advertised capabilities, without IMAP4rev1 and
// AUTH= entries.
func (srv *Server) Capabilities() []imap.Cap {
	return append([]imap.Cap(nil), srv.caps...)
}

func (srv *Server) hasCap(c imap.Cap) bool {
	for _, v := range srv.caps {
		if v == c {
			return true
		}
	}
	return false
}

// NewSession creates a session in the not authenticated state.
func (srv *Server) NewSession() *Session {
	connectionsTotal.Inc()
	return &Session{
		server: srv,
		state:  imap.ConnStateNotAuthenticated,
	}
}

// Serve accepts incoming connections on the listener ln. It returns nil once
// ln is closed.
func (srv *Server) Serve(ln net.Listener) error {
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if max := 1 * time.Second; delay > max {
				delay = max
			}
			srv.logger().Printf("accept error (retrying in %v): %v", delay, err)
			time.Sleep(delay)
			continue
		} else if errors.Is(err, net.ErrClosed) {
			return nil
		} else if err != nil {
			return fmt.Errorf("accept error: %w", err)
		}

		delay = 0
		go newConn(conn, srv).serve()
	}
}
