package translate

import (
	"errors"
	"fmt"
)

// TransportError indicates the endpoint could not be reached or the
// connection dropped before a response arrived. Transport failures are the
// only retryable class.
type TransportError struct {
	Cause   error
	Timeout bool
}

func (e *TransportError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("translate: request timed out: %v", e.Cause)
	}
	return fmt.Sprintf("translate: endpoint unreachable: %v", e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// MalformedError indicates the endpoint answered but the body could not be
// interpreted. Not retried: the same request would produce the same body.
type MalformedError struct {
	Cause error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("translate: malformed response: %v", e.Cause)
}

func (e *MalformedError) Unwrap() error { return e.Cause }

// RejectedError indicates the service explicitly refused the request
// (non-200 status). Not retried.
type RejectedError struct {
	Status int
	Body   string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("translate: service rejected request: status %d: %s", e.Status, e.Body)
}

// MaxRetriesError is returned after the retry budget for transport
// failures is exhausted. It wraps the last transport error.
type MaxRetriesError struct {
	Attempts int
	Last     error
}

func (e *MaxRetriesError) Error() string {
	return fmt.Sprintf("translate: giving up after %d attempts: %v", e.Attempts, e.Last)
}

func (e *MaxRetriesError) Unwrap() error { return e.Last }

// IsTransport reports whether err is a retryable transport failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
