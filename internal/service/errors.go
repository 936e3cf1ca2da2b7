package service

import (
	"errors"
	"fmt"
)

// ErrorKind is a coarse classification of a failed upstream operation
type ErrorKind string

const (
	// KindTransport covers network failures, timeouts, non-2xx statuses and unreadable bodies
	KindTransport ErrorKind = "transport"
	// KindUpstream means the service answered with a GraphQL errors array
	KindUpstream ErrorKind = "upstream"
	// KindShape means the payload did not have the expected structure or a record failed to parse
	KindShape ErrorKind = "shape"
	// KindNotFound means the service answered successfully but the requested node was null
	KindNotFound ErrorKind = "not_found"
)

// UpstreamError carries the first message of a GraphQL errors array
type UpstreamError struct {
	Message string
}

func (e *UpstreamError) Error() string {
	return "upstream error: " + e.Message
}

// Error wraps an underlying error with the operation that failed and its kind
type Error struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	base := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		base += fmt.Sprintf(": %v", e.Err)
	}
	return base
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// KindOf returns the kind of an *Error in err's chain. Anything else, such as a
// cancelled context, counts as a transport failure.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransport
}

// Transient reports whether err is worth retrying later. Only transport
// failures are; a missing node, a rejected query or an unexpected payload will
// fail the same way again.
func Transient(err error) bool {
	return KindOf(err) == KindTransport
}
