// internal/hatohol/reply.go
package hatohol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ReplyStatus is the outcome of validating a reply envelope.
type ReplyStatus int

const (
	StatusOK ReplyStatus = iota
	StatusNullOrUndefined
	StatusNotFoundAPIVersion
	StatusUnsupportedAPIVersion
	StatusNotFoundErrorCode
	StatusErrorCodeIsNotOK
	StatusNotFoundField
)

func (s ReplyStatus) String() string {
	switch s {
	case StatusOK:
		return "OK."
	case StatusNullOrUndefined:
		return "Null or undefined."
	case StatusNotFoundAPIVersion:
		return "Not found: apiVersion."
	case StatusUnsupportedAPIVersion:
		return "Unsupported API version."
	case StatusNotFoundErrorCode:
		return "Not found: errorCode."
	case StatusErrorCodeIsNotOK:
		return "Error code is not OK."
	case StatusNotFoundField:
		return "Not found: field."
	}
	return fmt.Sprintf("Unknown status: %d", int(s))
}

// ProtocolError reports a reply that arrived over HTTP but failed envelope
// validation.
type ProtocolError struct {
	Status  ReplyStatus
	Code    ErrorCode
	Field   string
	Message string
}

func (e *ProtocolError) Error() string {
	switch e.Status {
	case StatusErrorCodeIsNotOK:
		msg := fmt.Sprintf("backend error %d: %s", int(e.Code), e.Code)
		if e.Message != "" {
			msg += " " + e.Message
		}
		return msg
	case StatusNotFoundField:
		return fmt.Sprintf("malformed reply: not found field %q", e.Field)
	case StatusUnsupportedAPIVersion:
		return fmt.Sprintf("malformed reply: unsupported apiVersion %s", e.Message)
	default:
		return "malformed reply: " + e.Status.String()
	}
}

// IsSessionExpired reports whether err is a reply saying the session id is
// unknown or expired.
func IsSessionExpired(err error) bool {
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		return false
	}
	return perr.Status == StatusErrorCodeIsNotOK && perr.Code == CodeSessionExpired
}

// Reply is a validated reply envelope. The payload fields are kept raw and
// decoded on demand.
type Reply struct {
	APIVersion    int
	ErrorCode     ErrorCode
	OptionMessage string

	body   []byte
	fields map[string]json.RawMessage
}

// ParseReply validates the envelope of body. The returned Reply is non-nil
// whenever the envelope itself could be read, even if the error code is not
// OK, so callers can inspect it.
func ParseReply(body []byte) (*Reply, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, &ProtocolError{Status: StatusNullOrUndefined}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, &ProtocolError{Status: StatusNullOrUndefined, Message: err.Error()}
	}
	if fields == nil {
		return nil, &ProtocolError{Status: StatusNullOrUndefined}
	}

	reply := &Reply{body: trimmed, fields: fields}

	rawVersion, ok := fields["apiVersion"]
	if !ok {
		return nil, &ProtocolError{Status: StatusNotFoundAPIVersion, Field: "apiVersion"}
	}
	if err := json.Unmarshal(rawVersion, &reply.APIVersion); err != nil || reply.APIVersion != APIVersion {
		return nil, &ProtocolError{Status: StatusUnsupportedAPIVersion, Message: string(rawVersion)}
	}

	rawCode, ok := fields["errorCode"]
	if !ok {
		return nil, &ProtocolError{Status: StatusNotFoundErrorCode, Field: "errorCode"}
	}
	if err := json.Unmarshal(rawCode, &reply.ErrorCode); err != nil {
		return nil, &ProtocolError{Status: StatusNotFoundErrorCode, Field: "errorCode", Message: err.Error()}
	}

	if rawMsg, ok := fields["optionMessage"]; ok {
		_ = json.Unmarshal(rawMsg, &reply.OptionMessage)
	}

	if reply.ErrorCode != CodeOK {
		return reply, &ProtocolError{
			Status:  StatusErrorCodeIsNotOK,
			Code:    reply.ErrorCode,
			Message: reply.OptionMessage,
		}
	}
	return reply, nil
}

// Has reports whether the payload contains name.
func (r *Reply) Has(name string) bool {
	_, ok := r.fields[name]
	return ok
}

// Require returns a ProtocolError naming the first missing field.
func (r *Reply) Require(names ...string) error {
	for _, name := range names {
		if !r.Has(name) {
			return &ProtocolError{Status: StatusNotFoundField, Field: name}
		}
	}
	return nil
}

// Decode unmarshals the whole reply into v after checking that the
// required payload fields are present.
func (r *Reply) Decode(v any, required ...string) error {
	if err := r.Require(required...); err != nil {
		return err
	}
	if err := json.Unmarshal(r.body, v); err != nil {
		return &ProtocolError{Status: StatusNullOrUndefined, Message: err.Error()}
	}
	return nil
}

// Body returns the raw reply bytes.
func (r *Reply) Body() []byte { return r.body }
