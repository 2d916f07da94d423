package ustvgo

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrTimeout             = errors.New("upstream: request timed out")
	ErrUpstreamUnavailable = errors.New("upstream: host unreachable or transport failure")
	ErrUnexpectedStatus    = errors.New("upstream: unexpected HTTP status")
	ErrEmptyResponse       = errors.New("upstream: empty response body")
	ErrBadPayload          = errors.New("upstream: invalid response format or malformed data")
)

// UpstreamError wraps the sentinel errors with request context.
type UpstreamError struct {
	Sentinel  error
	Operation string
	Status    int
	Err       error // nested lower-level error (e.g. net.Error)
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("ustvgo: %s: %v", e.Operation, e.Sentinel)
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Sentinel
}

// IsRetryable reports whether the error is a transient transport failure
// worth retrying. Status and payload errors are not retried.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrTimeout) || errors.Is(err, ErrUpstreamUnavailable) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyTransport maps a transport-level error to a sentinel.
func classifyTransport(op string, err error) error {
	sentinel := ErrUpstreamUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		sentinel = ErrTimeout
	} else {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			sentinel = ErrTimeout
		}
	}
	return &UpstreamError{Sentinel: sentinel, Operation: op, Err: err}
}
