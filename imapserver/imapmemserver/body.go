package imapmemserver

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	gomessage "github.com/emersion/go-message"
	"github.com/emersion/go-message/textproto"
)

// PartSpecifier describes whether to fetch a part's header, body, or both.
type PartSpecifier string

const (
	PartSpecifierNone   PartSpecifier = ""
	PartSpecifierHeader PartSpecifier = "HEADER"
	PartSpecifierMIME   PartSpecifier = "MIME"
	PartSpecifierText   PartSpecifier = "TEXT"
)

// BodySection is a BODY[] section. HeaderFields and HeaderFieldsNot only
// apply to the HEADER specifier.
type BodySection struct {
	Part            []int
	Specifier       PartSpecifier
	HeaderFields    []string
	HeaderFieldsNot []string
}

func openMessagePart(header textproto.Header, body io.Reader, parentMediaType string) (textproto.Header, io.Reader) {
	msgHeader := gomessage.Header{Header: header}
	mediaType, _, _ := msgHeader.ContentType()
	if !msgHeader.Has("Content-Type") && parentMediaType == "multipart/digest" {
		mediaType = "message/rfc822"
	}
	if mediaType == "message/rfc822" || mediaType == "message/global" {
		br := bufio.NewReader(body)
		header, _ = textproto.ReadHeader(br)
		return header, br
	}
	return header, body
}

// BodySection extracts a section of the message. A missing part yields an
// empty section.
func (msg *Message) BodySection(section *BodySection) ([]byte, error) {
	buf, err := msg.Content()
	if err != nil {
		return nil, err
	}

	br := bufio.NewReader(bytes.NewReader(buf))
	header, err := textproto.ReadHeader(br)
	if err != nil {
		return nil, nil
	}
	var body io.Reader = br

	// Part 1 of a non-multipart message is the message itself
	msgHeader := gomessage.Header{Header: header}
	mediaType, _, _ := msgHeader.ContentType()
	partPath := section.Part
	if !strings.HasPrefix(mediaType, "multipart/") && len(partPath) > 0 && partPath[0] == 1 {
		partPath = partPath[1:]
	}

	var parentMediaType string
	for _, partNum := range partPath {
		header, body = openMessagePart(header, body, parentMediaType)

		msgHeader := gomessage.Header{Header: header}
		mediaType, typeParams, _ := msgHeader.ContentType()
		if !strings.HasPrefix(mediaType, "multipart/") {
			if partNum != 1 {
				return nil, nil
			}
			continue
		}

		mr := textproto.NewMultipartReader(body, typeParams["boundary"])
		found := false
		for j := 1; j <= partNum; j++ {
			p, err := mr.NextPart()
			if err != nil {
				return nil, nil
			}
			if j == partNum {
				parentMediaType = mediaType
				header = p.Header
				body = p
				found = true
			}
		}
		if !found {
			return nil, nil
		}
	}

	if len(section.Part) > 0 {
		switch section.Specifier {
		case PartSpecifierHeader, PartSpecifierText:
			header, body = openMessagePart(header, body, parentMediaType)
		}
	}

	if len(section.HeaderFields) > 0 {
		keep := make(map[string]struct{})
		for _, k := range section.HeaderFields {
			keep[strings.ToLower(k)] = struct{}{}
		}
		for field := header.Fields(); field.Next(); {
			if _, ok := keep[strings.ToLower(field.Key())]; !ok {
				field.Del()
			}
		}
	}
	for _, k := range section.HeaderFieldsNot {
		header.Del(k)
	}

	var out bytes.Buffer

	writeHeader := true
	switch section.Specifier {
	case PartSpecifierNone:
		writeHeader = len(section.Part) == 0
	case PartSpecifierText:
		writeHeader = false
	}
	if writeHeader {
		if err := textproto.WriteHeader(&out, header); err != nil {
			return nil, err
		}
	}

	switch section.Specifier {
	case PartSpecifierNone, PartSpecifierText:
		if _, err := io.Copy(&out, body); err != nil {
			return nil, err
		}
	}
	return out.Bytes(), nil
}

// BodyStructure describes the MIME tree of a message. Type, Subtype and
// Encoding are upper-cased. Multipart nodes only carry Subtype, Params and
// Children.
type BodyStructure struct {
	Type     string
	Subtype  string
	Params   map[string]string
	Encoding string
	Size     uint32
	NumLines int64
	Children []*BodyStructure
}

// IsMultipart returns true if the structure is a multipart node.
func (bs *BodyStructure) IsMultipart() bool {
	return bs.Type == "MULTIPART"
}

// BodyStructure computes the MIME tree of the message. Parts without a
// Content-Type are TEXT/PLAIN, parts without Content-Transfer-Encoding are
// 7BIT.
func (msg *Message) BodyStructure() (*BodyStructure, error) {
	buf, err := msg.Content()
	if err != nil {
		return nil, err
	}
	br := bufio.NewReader(bytes.NewReader(buf))
	header, _ := textproto.ReadHeader(br)
	return getBodyStructure(header, br), nil
}

func getBodyStructure(rawHeader textproto.Header, r io.Reader) *BodyStructure {
	header := gomessage.Header{Header: rawHeader}

	mediaType, typeParams, _ := header.ContentType()
	if mediaType == "" {
		mediaType = "text/plain"
	}
	primaryType, subType, _ := strings.Cut(mediaType, "/")
	primaryType = strings.ToUpper(primaryType)
	subType = strings.ToUpper(subType)

	if primaryType == "MULTIPART" {
		bs := &BodyStructure{Type: primaryType, Subtype: subType, Params: typeParams}
		mr := textproto.NewMultipartReader(r, typeParams["boundary"])
		for {
			part, _ := mr.NextPart()
			if part == nil {
				break
			}
			bs.Children = append(bs.Children, getBodyStructure(part.Header, part))
		}
		return bs
	}

	encoding := strings.ToUpper(strings.TrimSpace(header.Get("Content-Transfer-Encoding")))
	if encoding == "" {
		encoding = "7BIT"
	}
	body, _ := io.ReadAll(r)
	bs := &BodyStructure{
		Type:     primaryType,
		Subtype:  subType,
		Params:   typeParams,
		Encoding: encoding,
		Size:     uint32(len(body)),
	}
	if primaryType == "TEXT" {
		bs.NumLines = int64(bytes.Count(body, []byte("\n")))
	}
	return bs
}
