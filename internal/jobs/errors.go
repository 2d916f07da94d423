package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/mkaindl/epggen/internal/guide"
	"github.com/mkaindl/epggen/internal/ustvgo"
)

// FetchCause classifies why a channel fetch failed.
type FetchCause string

const (
	CauseTimeout          FetchCause = "timeout"
	CauseNetwork          FetchCause = "network"
	CauseUnexpectedStatus FetchCause = "unexpected-status"
	CauseEmptyResponse    FetchCause = "empty-response"
)

// FetchError is a per-channel fetch failure. Non-fatal to the run.
type FetchError struct {
	Channel string
	Cause   FetchCause
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %s: %v", e.Channel, e.Cause, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseCause classifies why a channel listing could not be normalized.
type ParseCause string

const (
	CauseMalformedInput     ParseCause = "malformed-input"
	CauseUnrecognizedFormat ParseCause = "unrecognized-format"
)

// ParseError is a per-channel normalization failure. Non-fatal to the run.
type ParseError struct {
	Channel string
	Cause   ParseCause
	Err     error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %s: %v", e.Channel, e.Cause, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// SerializeError is a per-variant serialization failure.
type SerializeError struct {
	Variant guide.Variant
	Err     error
}

func (e *SerializeError) Error() string {
	return fmt.Sprintf("serialize %s: %v", e.Variant, e.Err)
}

func (e *SerializeError) Unwrap() error { return e.Err }

// RunError aggregates failures that are fatal to the whole run.
type RunError struct {
	Stage string // fetch|serialize
	Msg   string
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run failed at %s: %s", e.Stage, e.Msg)
}

// classifyChannelError wraps an upstream error into the per-channel taxonomy.
func classifyChannelError(channelID string, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &FetchError{Channel: channelID, Cause: CauseTimeout, Err: err}
	case errors.Is(err, ustvgo.ErrBadPayload):
		return &ParseError{Channel: channelID, Cause: CauseMalformedInput, Err: err}
	case errors.Is(err, ustvgo.ErrTimeout):
		return &FetchError{Channel: channelID, Cause: CauseTimeout, Err: err}
	case errors.Is(err, ustvgo.ErrUnexpectedStatus):
		return &FetchError{Channel: channelID, Cause: CauseUnexpectedStatus, Err: err}
	case errors.Is(err, ustvgo.ErrEmptyResponse):
		return &FetchError{Channel: channelID, Cause: CauseEmptyResponse, Err: err}
	default:
		return &FetchError{Channel: channelID, Cause: CauseNetwork, Err: err}
	}
}

// metricsOutcome maps a classified channel error to a fetch metric label.
func metricsOutcome(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return string(fe.Cause)
	}
	var pe *ParseError
	if errors.As(err, &pe) {
		return "parse"
	}
	return "unknown"
}
