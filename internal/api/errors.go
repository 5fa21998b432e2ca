package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures.
type ErrorKind int

const (
	// KindNetwork means no response was received.
	KindNetwork ErrorKind = iota + 1
	// KindServer is an error status whose body carried a readable envelope.
	KindServer
	// KindUnparseable is an error status with a body that is not JSON.
	KindUnparseable
	// KindDecode is a successful status whose body could not be decoded.
	KindDecode
)

const (
	msgNetwork       = "Network error"
	msgRequestFailed = "Request failed"
)

func (k ErrorKind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	case KindUnparseable:
		return "unparseable"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error is returned by every Client method that fails. Its message is the
// one the backend reported, or a generic fallback.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsStatus reports whether err is a gateway error with the given HTTP status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

// IsKind reports whether err is a gateway error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
}

func decodeError(status int, err error) *Error {
	return &Error{
		Kind:       KindDecode,
		StatusCode: status,
		Message:    fmt.Sprintf("decode response: %v", err),
		Err:        err,
	}
}

// statusError builds the error for a non-2xx response.
func statusError(status int, body []byte) *Error {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return &Error{Kind: KindUnparseable, StatusCode: status, Message: msgNetwork, Err: err}
	}
	msg := payload.Message
	if msg == "" {
		msg = msgRequestFailed
	}
	return &Error{Kind: KindServer, StatusCode: status, Message: msg}
}
