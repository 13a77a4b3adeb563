package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

// NamespaceExtension implements RFC 2342.
func NamespaceExtension() *Extension {
	return &Extension{
		Name:         "NAMESPACE",
		Commands:     map[string]CommandFunc{"NAMESPACE": handleNamespace},
		Capabilities: []imap.Cap{imap.CapNamespace},
		Formats:      map[string][]string{"NAMESPACE": nil},
		Enabled: map[imap.ConnState][]string{
			imap.ConnStateAuthenticated: {"NAMESPACE"},
			imap.ConnStateSelected:      {"NAMESPACE"},
		},
	}
}

func handleNamespace(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	var groups [3][]*imapmemserver.Mailbox
	for _, ns := range s.server.daemon.Namespaces() {
		if typ := ns.NamespaceType(); typ >= 0 && int(typ) < len(groups) {
			groups[typ] = append(groups[typ], ns)
		}
	}

	enc := s.Encoder()
	enc.Atom("*").SP().Atom("NAMESPACE")
	for _, group := range groups {
		enc.SP()
		if len(group) == 0 {
			enc.NIL()
			continue
		}
		enc.List(len(group), func(i int) {
			enc.List(2, func(j int) {
				if j == 0 {
					enc.Mailbox(group[i].FullName())
				} else {
					enc.Quoted(group[i].Delim())
				}
			})
		})
	}
	s.WriteLine(enc.Line())
	return statusOK("NAMESPACE completed"), nil
}
