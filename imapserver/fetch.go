package imapserver

import (
	"strconv"
	"strings"

	"github.com/emersion/go-imapfake"
	"github.com/emersion/go-imapfake/imapserver/imapmemserver"
	"github.com/emersion/go-imapfake/internal/imapwire"
)

var fetchMacros = map[string][]string{
	"ALL":  {"FLAGS", "INTERNALDATE", "RFC822.SIZE"},
	"FAST": {"FLAGS", "INTERNALDATE", "RFC822.SIZE"},
	"FULL": {"FLAGS", "INTERNALDATE", "RFC822.SIZE"},
}

// FetchContext describes the message being fetched.
type FetchContext struct {
	Session *Session
	Message *imapmemserver.Message
	SeqNum  uint32

	seen bool
}

// MarkSeen sets the \Seen flag on the message once the whole FETCH command
// has succeeded, unless the mailbox is read-only.
func (ctx *FetchContext) MarkSeen() {
	if !ctx.Session.readOnly {
		ctx.seen = true
	}
}

// Encoder returns the session encoder.
func (ctx *FetchContext) Encoder() *imapwire.Encoder {
	return ctx.Session.Encoder()
}

func handleFetch(s *Session, args imapwire.List, uid bool) (*imap.StatusResponse, error) {
	msgs, err := s.messages(args[0], uid)
	if err != nil {
		return nil, err
	}

	items := fetchItemNames(args[1], uid)
	funcs := make([]FetchItemFunc, len(items))
	for i, item := range items {
		front := fetchItemFront(item)
		funcs[i] = s.server.handler.fetchItems[front]
		if funcs[i] == nil {
			return nil, imap.Bad("can't fetch %v", front)
		}
	}

	// Nothing is written nor flagged until every item of every message has
	// been rendered
	lines := make([]string, 0, len(msgs))
	var seen []*imapmemserver.Message
	for _, msg := range msgs {
		ctx := &FetchContext{Session: s, Message: msg.Message, SeqNum: msg.seqNum}
		parts := make([]string, len(items))
		for i, item := range items {
			if parts[i], err = funcs[i](ctx, item); err != nil {
				return nil, fetchError(err)
			}
		}
		if ctx.seen {
			seen = append(seen, msg.Message)
		}

		enc := s.Encoder()
		enc.Atom("*").SP().Number(msg.seqNum).SP().Atom("FETCH").SP()
		enc.List(len(parts), func(i int) {
			enc.Text(parts[i])
		})
		lines = append(lines, enc.Line())
	}

	for _, msg := range seen {
		msg.SetFlag(imap.FlagSeen)
	}
	for _, line := range lines {
		s.WriteLine(line)
	}
	return statusOK("FETCH completed"), nil
}

func fetchError(err error) error {
	if _, ok := err.(*imap.Error); ok {
		return err
	}
	return imap.Bad("error in fetching: %v", err)
}

// fetchItemNames normalizes the FETCH items argument: macros are expanded,
// section items split by the tokenizer ("BODY[HEADER.FIELDS", "(...)", "]")
// are joined back, items are upper-cased and deduplicated.
func fetchItemNames(arg interface{}, uid bool) []string {
	var raw imapwire.List
	switch arg := arg.(type) {
	case string:
		if macro, ok := fetchMacros[arg]; ok {
			for _, item := range macro {
				raw = append(raw, item)
			}
		} else {
			raw = imapwire.List{arg}
		}
	case imapwire.List:
		raw = append(raw, arg...)
	}
	if uid {
		raw = append(raw, "UID")
	}

	var (
		items   []string
		prefix  string
		inRange bool
	)
	add := func(item string) {
		item = strings.ToUpper(item)
		if !contains(items, item) {
			items = append(items, item)
		}
	}
	for _, v := range raw {
		str, isStr := v.(string)
		if !inRange && isStr && strings.IndexByte(str, '[') > 0 && !strings.Contains(str, "]") {
			prefix = str
			inRange = true
			continue
		}
		if inRange {
			if !isStr || !strings.Contains(str, "]") {
				prefix += " " + itemText(v)
				continue
			}
			if strings.HasPrefix(str, "]") {
				str = prefix + str
			} else {
				str = prefix + " " + str
			}
			inRange = false
		}
		if !isStr {
			str = itemText(v)
		}
		add(str)
	}
	if inRange {
		add(prefix)
	}
	return items
}

func itemText(v interface{}) string {
	switch v := v.(type) {
	case string:
		return v
	case imapwire.List:
		l := make([]string, len(v))
		for i, item := range v {
			l[i] = itemText(item)
		}
		return "(" + strings.Join(l, " ") + ")"
	default:
		return "NIL"
	}
}

// fetchItemFront returns the leading [A-Z0-9-] characters of an item, which
// name the item function.
func fetchItemFront(item string) string {
	i := strings.IndexFunc(item, func(r rune) bool {
		return !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-')
	})
	if i < 0 {
		return item
	}
	return item[:i]
}

func fetchFlags(ctx *FetchContext, item string) (string, error) {
	flags := ctx.Message.Flags()
	if ctx.Message.Recent() {
		flags = append(flags, imap.FlagRecent)
	}
	return ctx.Encoder().Atom("FLAGS").SP().Flags(flags).Line(), nil
}

func fetchInternalDate(ctx *FetchContext, item string) (string, error) {
	date := imap.FormatInternalDate(ctx.Message.InternalDate())
	return ctx.Encoder().Atom("INTERNALDATE").SP().Quoted(date).Line(), nil
}

func fetchUID(ctx *FetchContext, item string) (string, error) {
	return ctx.Encoder().Atom("UID").SP().Number(ctx.Message.UID()).Line(), nil
}

func fetchRFC822(ctx *FetchContext, item string) (string, error) {
	var section string
	switch item {
	case "RFC822":
		section = "BODY[]"
	case "RFC822.HEADER":
		section = "BODY.PEEK[HEADER]"
	case "RFC822.TEXT":
		section = "BODY[TEXT]"
	case "RFC822.SIZE":
		size, err := ctx.Message.Size()
		if err != nil {
			return "", err
		}
		return ctx.Encoder().Atom(item).SP().Number64(size).Line(), nil
	default:
		return "", imap.Bad("can't fetch %v", item)
	}

	si, err := parseSectionItem(section)
	if err != nil {
		return "", err
	}
	data, err := si.fetch(ctx)
	if err != nil {
		return "", err
	}
	return ctx.Encoder().Atom(item).SP().Literal(string(data)).Line(), nil
}

func fetchBody(ctx *FetchContext, item string) (string, error) {
	if item == "BODY" {
		return "", imap.Bad("error in fetching: no BODY structure, use BODYSTRUCTURE")
	}
	si, err := parseSectionItem(item)
	if err != nil {
		return "", err
	}
	data, err := si.fetch(ctx)
	if err != nil {
		return "", err
	}

	enc := ctx.Encoder()
	enc.Atom("BODY[" + si.section + "]")
	if si.partial {
		enc.Special('<').Number64(int64(si.start)).Special('>')
	}
	return enc.SP().Literal(string(data)).Line(), nil
}

// sectionItem is a parsed BODY[section]<partial> item.
type sectionItem struct {
	peek    bool
	section string
	body    imapmemserver.BodySection

	partial bool
	start   int
	length  int // -1 for no limit
}

func parseSectionItem(item string) (*sectionItem, error) {
	name, rest, ok := strings.Cut(item, "[")
	end := strings.LastIndexByte(rest, ']')
	if !ok || end < 0 || (name != "BODY" && name != "BODY.PEEK") {
		return nil, imap.Bad("error in fetching: invalid section item %v", item)
	}
	si := &sectionItem{
		peek:    name == "BODY.PEEK",
		section: rest[:end],
		length:  -1,
	}

	if partial := rest[end+1:]; partial != "" {
		if len(partial) < 3 || partial[0] != '<' || partial[len(partial)-1] != '>' {
			return nil, imap.Bad("error in fetching: invalid partial %v", partial)
		}
		startStr, lengthStr, hasLength := strings.Cut(partial[1:len(partial)-1], ".")
		start, err := strconv.ParseUint(startStr, 10, 31)
		if err != nil {
			return nil, imap.Bad("error in fetching: invalid partial %v", partial)
		}
		si.partial = true
		si.start = int(start)
		if hasLength {
			length, err := strconv.ParseUint(lengthStr, 10, 31)
			if err != nil {
				return nil, imap.Bad("error in fetching: invalid partial %v", partial)
			}
			si.length = int(length)
		}
	}

	spec := si.section
	for spec != "" && spec[0] >= '0' && spec[0] <= '9' {
		numStr, next, _ := strings.Cut(spec, ".")
		n, err := strconv.Atoi(numStr)
		if err != nil || n == 0 {
			return nil, imap.Bad("error in fetching: invalid part number %v", numStr)
		}
		si.body.Part = append(si.body.Part, n)
		spec = next
	}

	specifier, fields, _ := strings.Cut(spec, " ")
	switch specifier {
	case "":
		si.body.Specifier = imapmemserver.PartSpecifierNone
	case "HEADER", "MIME", "TEXT":
		si.body.Specifier = imapmemserver.PartSpecifier(specifier)
	case "HEADER.FIELDS", "HEADER.FIELDS.NOT":
		names := strings.Fields(strings.Trim(fields, "()"))
		if len(names) == 0 {
			return nil, imap.Bad("error in fetching: missing header field names")
		}
		si.body.Specifier = imapmemserver.PartSpecifierHeader
		if specifier == "HEADER.FIELDS" {
			si.body.HeaderFields = names
		} else {
			si.body.HeaderFieldsNot = names
		}
	default:
		return nil, imap.Bad("error in fetching: unknown section %v", specifier)
	}
	return si, nil
}

// fetch returns the section data, marking the message seen unless PEEK was
// requested.
func (si *sectionItem) fetch(ctx *FetchContext) ([]byte, error) {
	if !si.peek {
		ctx.MarkSeen()
	}

	if len(si.body.Part) == 0 && si.body.Specifier == imapmemserver.PartSpecifierNone {
		if si.partial {
			return ctx.Message.Text(si.start, si.length)
		}
		return ctx.Message.Content()
	}

	data, err := ctx.Message.BodySection(&si.body)
	if err != nil || !si.partial {
		return data, err
	}
	if si.start > len(data) {
		return nil, nil
	}
	data = data[si.start:]
	if si.length >= 0 && si.length < len(data) {
		data = data[:si.length]
	}
	return data, nil
}

func fetchBodyStructure(ctx *FetchContext, item string) (string, error) {
	if item != "BODYSTRUCTURE" {
		return "", imap.Bad("can't fetch %v", item)
	}
	bs, err := ctx.Message.BodyStructure()
	if err != nil {
		return "", err
	}
	enc := ctx.Encoder()
	enc.Atom("BODYSTRUCTURE").SP()
	writeBodyStructure(enc, bs)
	return enc.Line(), nil
}

func writeBodyStructure(enc *imapwire.Encoder, bs *imapmemserver.BodyStructure) {
	enc.Special('(')
	if bs.IsMultipart() {
		for _, child := range bs.Children {
			writeBodyStructure(enc, child)
		}
		enc.SP().Quoted(bs.Subtype).SP()
		enc.List(1, func(int) {
			enc.Quoted("BOUNDARY").SP().Quoted(bs.Params["boundary"])
		})
		enc.SP().NIL().SP().NIL()
	} else {
		enc.Quoted(bs.Type).SP().Quoted(bs.Subtype).SP().NIL().SP().NIL().SP().NIL()
		enc.SP().Quoted(bs.Encoding).SP().Number(bs.Size)
		if bs.Type == "TEXT" {
			enc.SP().Number64(bs.NumLines)
		}
		enc.SP().NIL().SP().NIL().SP().NIL()
	}
	enc.Special(')')
}
