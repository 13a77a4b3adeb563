package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// IDExtension implements RFC 2971. The client parameters are recorded in the
// daemon, the server answers with Daemon.IDResponse.
func IDExtension() *Extension {
	return &Extension{
		Name:         "ID",
		Commands:     map[string]CommandFunc{"ID": handleID},
		Capabilities: []imap.Cap{imap.CapID},
		Formats:      map[string][]string{"ID": {"n(string)"}},
		Enabled: map[imap.ConnState][]string{
			imap.ConnStateAuthenticated: {"ID"},
			imap.ConnStateSelected:      {"ID"},
		},
	}
}

func handleID(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	d := s.server.daemon

	enc := s.Encoder()
	if params, ok := args[0].(imapwire.List); ok {
		enc.List(len(params), func(i int) {
			enc.Quoted(params[i].(string))
		})
	} else {
		enc.NIL()
	}
	d.SetClientID(enc.Line())

	s.WriteLine(enc.Atom("*").SP().Atom("ID").SP().Text(d.IDResponse()).Line())
	return statusOK("Success"), nil
}
