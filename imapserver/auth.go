package imapserver

import (
	"crypto/hmac"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/golang-jwt/jwt/v5"

	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

const mechCRAMMD5 = "CRAM-MD5"

// AuthExtension provides SASL authentication with CRAM-MD5, PLAIN and LOGIN.
// If tokenKey is not empty, OAUTHBEARER is offered as well: tokens are HS256
// JWTs signed with tokenKey whose subject is the username.
func AuthExtension(tokenKey []byte) *Extension {
	mechs := []*Mechanism{
		{
			Name: mechCRAMMD5,
			NewServer: func(s *Session) sasl.Server {
				return newCRAMMD5Server(s.server.daemon.User())
			},
			Text: "Hello friend!",
		},
		{
			Name: sasl.Plain,
			NewServer: func(s *Session) sasl.Server {
				user := s.server.daemon.User()
				return sasl.NewPlainServer(func(identity, username, password string) error {
					return user.Login(username, password)
				})
			},
			Text: "Hello friend! Friends give friends good advice: Next time, use CRAM-MD5",
		},
		{
			Name: sasl.Login,
			NewServer: func(s *Session) sasl.Server {
				return newLoginServer(s.server.daemon.User())
			},
			Text: "Hello friend! Where did you pull out this old auth scheme?",
		},
	}
	if len(tokenKey) > 0 {
		mechs = append(mechs, &Mechanism{
			Name: sasl.OAuthBearer,
			NewServer: func(s *Session) sasl.Server {
				user := s.server.daemon.User()
				return sasl.NewOAuthBearerServer(func(opts sasl.OAuthBearerOptions) *sasl.OAuthBearerError {
					if err := verifyToken(user, tokenKey, opts); err != nil {
						s.server.logger().Printf("rejected OAUTHBEARER token: %v", err)
						return &sasl.OAuthBearerError{Status: "invalid_token", Schemes: "bearer"}
					}
					return nil
				})
			},
			Text: "Hello friend!",
		})
	}
	return &Extension{
		Name:       "AUTH",
		Mechanisms: mechs,
	}
}

func verifyToken(user *imapmemserver.User, key []byte, opts sasl.OAuthBearerOptions) error {
	token, err := jwt.Parse(opts.Token, func(*jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return err
	}
	sub, err := token.Claims.GetSubject()
	if err != nil {
		return err
	}
	if sub != user.Username() {
		return fmt.Errorf("unknown subject %q", sub)
	}
	if opts.Username != "" && opts.Username != sub {
		return fmt.Errorf("authorization identity %q doesn't match subject", opts.Username)
	}
	return nil
}

// cramMD5Server implements the server side of CRAM-MD5, defined in RFC 2195.
type cramMD5Server struct {
	user      *imapmemserver.User
	challenge []byte
	done      bool
}

func newCRAMMD5Server(user *imapmemserver.User) sasl.Server {
	return &cramMD5Server{user: user}
}

func (srv *cramMD5Server) Next(response []byte) (challenge []byte, done bool, err error) {
	if srv.done {
		return nil, false, sasl.ErrUnexpectedClientResponse
	}
	if srv.challenge == nil {
		if response != nil {
			return nil, false, errors.New("sasl: CRAM-MD5 doesn't support initial responses")
		}
		srv.challenge = []byte(fmt.Sprintf("<%d.%d@localhost>", rand.Int31(), time.Now().Unix()))
		return srv.challenge, false, nil
	}

	srv.done = true
	username, digest, ok := strings.Cut(string(response), " ")
	if !ok {
		return nil, false, errors.New("sasl: invalid CRAM-MD5 response")
	}
	mac := hmac.New(md5.New, []byte(srv.user.Password()))
	mac.Write(srv.challenge)
	expected := hex.EncodeToString(mac.Sum(nil))
	if username != srv.user.Username() || !hmac.Equal([]byte(expected), []byte(strings.ToLower(digest))) {
		return nil, false, errors.New("sasl: CRAM-MD5 authentication failed")
	}
	return nil, true, nil
}

// loginServer implements the server side of the obsolete LOGIN mechanism.
type loginServer struct {
	user     *imapmemserver.User
	step     int
	username string
}

func newLoginServer(user *imapmemserver.User) sasl.Server {
	return &loginServer{user: user}
}

func (srv *loginServer) Next(response []byte) (challenge []byte, done bool, err error) {
	switch srv.step {
	case 0:
		if response != nil {
			srv.step++
			return srv.Next(response)
		}
		challenge = []byte("Username:")
	case 1:
		srv.username = string(response)
		challenge = []byte("Password:")
	case 2:
		err = srv.user.Login(srv.username, string(response))
		done = true
	default:
		err = sasl.ErrUnexpectedClientResponse
	}
	srv.step++
	return challenge, done, err
}
