package imapserver

import (
	"encoding/base64"

	"github.com/emersion/go-sasl"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

var errAuthFailed = imap.Bad("Wrong username or password, crook!")

type authExchange struct {
	mech   *Mechanism
	server sasl.Server
}

func handleAuthenticate(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	name := args[0].(string)
	mech := s.server.handler.mechanism(name)
	if mech == nil {
		return nil, imap.No("AUTH %v not supported", name)
	}

	// SASL-IR
	var initialResp []byte
	if len(args) > 1 {
		str, ok := args[1].(string)
		if !ok || len(args) > 2 {
			return nil, imap.Bad("invalid initial response")
		}
		var err error
		if initialResp, err = decodeSASL(str); err != nil {
			return nil, errAuthFailed
		}
	}

	ex := &authExchange{mech: mech, server: mech.NewServer(s)}
	return s.authStep(ex, initialResp)
}

func (s *Session) continueAuth(ex *authExchange, line string) (*imap.StatusResponse, error) {
	if line == "*" {
		return nil, imap.Bad("Okay, as you wish. Chicken")
	}
	resp, err := decodeSASL(line)
	if err != nil {
		return nil, errAuthFailed
	}
	return s.authStep(ex, resp)
}

// authStep feeds a client response to the SASL server. It writes the next
// challenge and returns a nil response while the exchange is in progress.
func (s *Session) authStep(ex *authExchange, resp []byte) (*imap.StatusResponse, error) {
	challenge, done, err := ex.server.Next(resp)
	if err != nil {
		return nil, errAuthFailed
	} else if done {
		s.state = imap.ConnStateAuthenticated
		return statusOK(ex.mech.Text), nil
	}

	s.auth = ex
	if len(challenge) == 0 {
		s.WriteLine("+")
	} else {
		s.WriteLine("+ " + base64.StdEncoding.EncodeToString(challenge))
	}
	return nil, nil
}

// decodeSASL decodes a base64 client response. "=" is an empty response,
// which go-sasl distinguishes from a nil one.
func decodeSASL(s string) ([]byte, error) {
	if s == "=" {
		return []byte{}, nil
	}
	return base64.StdEncoding.DecodeString(s)
}
