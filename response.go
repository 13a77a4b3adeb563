package imap

import (
	"fmt"
	"strings"
)

// StatusResponseType is a generic status response type.
type StatusResponseType string

const (
	StatusResponseTypeOK  StatusResponseType = "OK"
	StatusResponseTypeNo  StatusResponseType = "NO"
	StatusResponseTypeBad StatusResponseType = "BAD"
	StatusResponseTypeBye StatusResponseType = "BYE"
)

// ResponseCode is a response code, optionally followed by its arguments
// (e.g. "APPENDUID 38505 3955").
type ResponseCode string

const (
	ResponseCodeAlert          ResponseCode = "ALERT"
	ResponseCodeParse          ResponseCode = "PARSE"
	ResponseCodeReadOnly       ResponseCode = "READ-ONLY"
	ResponseCodeReadWrite      ResponseCode = "READ-WRITE"
	ResponseCodeTryCreate      ResponseCode = "TRYCREATE"
	ResponseCodeUIDNext        ResponseCode = "UIDNEXT"
	ResponseCodeUIDValidity    ResponseCode = "UIDVALIDITY"
	ResponseCodeUnseen         ResponseCode = "UNSEEN"
	ResponseCodePermanentFlags ResponseCode = "PERMANENTFLAGS"

	// UIDPLUS
	ResponseCodeAppendUID ResponseCode = "APPENDUID"
	ResponseCodeCopyUID   ResponseCode = "COPYUID"
)

// WithArgs returns the response code followed by space-separated arguments.
func (code ResponseCode) WithArgs(args ...interface{}) ResponseCode {
	var sb strings.Builder
	sb.WriteString(string(code))
	for _, arg := range args {
		fmt.Fprintf(&sb, " %v", arg)
	}
	return ResponseCode(sb.String())
}

// StatusResponse is a generic status response.
//
// See RFC 3501 section 7.1.
type StatusResponse struct {
	Type StatusResponseType
	Code ResponseCode
	Text string
}

// String formats the response as it appears on the wire, without tag.
func (resp *StatusResponse) String() string {
	var sb strings.Builder
	sb.WriteString(string(resp.Type))
	if resp.Code != "" {
		fmt.Fprintf(&sb, " [%v]", resp.Code)
	}
	if resp.Text != "" {
		sb.WriteByte(' ')
		sb.WriteString(resp.Text)
	}
	return sb.String()
}

// Error is an IMAP error caused by a status response.
//
// Only BAD (syntax and protocol violations) and NO (semantic failures) are
// used as errors.
type Error StatusResponse

var _ error = (*Error)(nil)

// Error implements the error interface.
func (err *Error) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "imap: %v", err.Type)
	if err.Code != "" {
		fmt.Fprintf(&sb, " [%v]", err.Code)
	}
	text := err.Text
	if text == "" {
		text = "<unknown>"
	}
	fmt.Fprintf(&sb, " %v", text)
	return sb.String()
}

// Bad returns a BAD error with a formatted text.
func Bad(format string, args ...interface{}) *Error {
	return &Error{Type: StatusResponseTypeBad, Text: fmt.Sprintf(format, args...)}
}

// No returns a NO error with a formatted text.
func No(format string, args ...interface{}) *Error {
	return &Error{Type: StatusResponseTypeNo, Text: fmt.Sprintf(format, args...)}
}

// NoCode returns a NO error carrying a response code.
func NoCode(code ResponseCode, format string, args ...interface{}) *Error {
	return &Error{Type: StatusResponseTypeNo, Code: code, Text: fmt.Sprintf(format, args...)}
}
