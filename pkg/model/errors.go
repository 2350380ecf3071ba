package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies domain errors so the transport layer can map them
// to status codes without string matching.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindStateConflict ErrorKind = "STATE_CONFLICT"
	KindUpstream      ErrorKind = "UPSTREAM"
)

// Upstream error codes, stable so callers can tell retryable from terminal.
const (
	CodeOracleTimeout     = "ORACLE_TIMEOUT"
	CodeOracleUnavailable = "ORACLE_UNAVAILABLE"
	CodeOracleNotFound    = "ORACLE_NOT_FOUND"
)

// Error is the typed result error for every core operation. The core
// never panics across its API; everything surfaces as one of these.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	Code    string    `json:"code,omitempty"`
	Message string    `json:"message"`
	Fields  []string  `json:"fields,omitempty"`
	cause   error
}

func (e *Error) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("%s: %s [%s]", e.Kind, e.Message, strings.Join(e.Fields, "; "))
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether the caller may retry the same operation.
// Only transient upstream failures qualify.
func (e *Error) Retryable() bool {
	return e.Kind == KindUpstream && e.Code != CodeOracleNotFound
}

// ErrValidation reports missing or out-of-range fields. Each entry in
// fields is a human-readable field-level message.
func ErrValidation(fields ...string) *Error {
	msg := "invalid request"
	if len(fields) == 1 {
		msg = fields[0]
	}
	return &Error{Kind: KindValidation, Message: msg, Fields: fields}
}

// ErrNotFound reports an unknown entity ID.
func ErrNotFound(entity, id string) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s not found: %s", entity, id)}
}

// ErrAuthorization reports a resolver outside the relevant whitelist.
func ErrAuthorization(msg string) *Error {
	return &Error{Kind: KindAuthorization, Message: msg}
}

// ErrConflict reports an operation attempted on an entity that is not
// in the required state.
func ErrConflict(msg string) *Error {
	return &Error{Kind: KindStateConflict, Message: msg}
}

// ErrUpstream wraps a collaborator failure under a stable code.
func ErrUpstream(code, msg string, cause error) *Error {
	return &Error{Kind: KindUpstream, Code: code, Message: msg, cause: cause}
}

// KindOf extracts the ErrorKind from err, or empty if err is not a
// domain error.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err is a domain error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
