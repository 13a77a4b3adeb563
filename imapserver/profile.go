package imapserver

import (
	"fmt"
	"sort"
	"strings"
)

// profiles maps server flavors to the extensions they enable, in order.
var profiles = map[string][]string{
	"RFC3501":  nil,
	"Cyrus":    {"NAMESPACE", "AUTH"},
	"UW":       {"NAMESPACE", "AUTH"},
	"Dovecot":  {"AUTH"},
	"Zimbra":   {"NAMESPACE", "AUTH"},
	"Exchange": {"NAMESPACE", "AUTH"},
	"LEMONADE": {"NAMESPACE", "AUTH"},
	"CUSTOM1":  {"MOVE", "UIDPLUS", "CUSTOM"},
	"GMail":    {"XLIST", "GMAIL", "ID", "UIDPLUS"},
}

// Profiles returns the names of the known server profiles.
func Profiles() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Profile returns the extensions enabled by a server profile. The empty name
// is RFC3501.
func Profile(name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	exts, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("imapserver: unknown profile %q", name)
	}
	return append([]string(nil), exts...), nil
}

func (options *Options) extension(name string) (*Extension, error) {
	switch strings.ToUpper(name) {
	case "NAMESPACE":
		return NamespaceExtension(), nil
	case "XLIST":
		return XListExtension(), nil
	case "MOVE":
		return MoveExtension(), nil
	case "GMAIL":
		return GmailExtension(), nil
	case "CUSTOM":
		return CustomExtension(), nil
	case "ID":
		return IDExtension(), nil
	case "UIDPLUS":
		return UIDPlusExtension(), nil
	case "AUTH":
		return AuthExtension(options.TokenKey), nil
	default:
		return nil, fmt.Errorf("imapserver: unknown extension %q", name)
	}
}
