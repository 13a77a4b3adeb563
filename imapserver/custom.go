package imapserver

import (
	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
)

var (
	customValueAttr = &messageAttr{
		name:   "X-CUSTOM-VALUE",
		scalar: true,
		get: func(msg *imapmemserver.Message) ([]string, bool) {
			v := msg.CustomValue()
			return []string{v}, v != ""
		},
		set: func(msg *imapmemserver.Message, values []string) {
			msg.SetCustomValue(values[0])
		},
	}
	customListAttr = &messageAttr{
		name: "X-CUSTOM-LIST",
		get: func(msg *imapmemserver.Message) ([]string, bool) {
			l := msg.CustomList()
			return l, l != nil
		},
		set: func(msg *imapmemserver.Message, values []string) {
			msg.SetCustomList(values)
		},
	}
)

// CustomExtension exposes two custom message attributes through FETCH and
// STORE.
func CustomExtension() *Extension {
	return &Extension{
		Name:         "CUSTOM",
		Capabilities: []imap.Cap{imap.CapCustom1},
		FetchItems: map[string]FetchItemFunc{
			customValueAttr.name: customValueAttr.fetchItem,
			customListAttr.name:  customListAttr.fetchItem,
		},
		Preload: func(h *Handler) {
			wrapStore(h, customValueAttr, customListAttr)
		},
	}
}
