package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/mkaindl/epggen/internal/ustvgo"
)

func TestClassifyChannelError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCause FetchCause
		wantParse bool
	}{
		{
			name:      "timeout",
			err:       &ustvgo.UpstreamError{Sentinel: ustvgo.ErrTimeout},
			wantCause: CauseTimeout,
		},
		{
			name:      "context_deadline",
			err:       context.DeadlineExceeded,
			wantCause: CauseTimeout,
		},
		{
			name:      "status",
			err:       &ustvgo.UpstreamError{Sentinel: ustvgo.ErrUnexpectedStatus, Status: 502},
			wantCause: CauseUnexpectedStatus,
		},
		{
			name:      "empty",
			err:       &ustvgo.UpstreamError{Sentinel: ustvgo.ErrEmptyResponse},
			wantCause: CauseEmptyResponse,
		},
		{
			name:      "transport",
			err:       &ustvgo.UpstreamError{Sentinel: ustvgo.ErrUpstreamUnavailable},
			wantCause: CauseNetwork,
		},
		{
			name:      "bad_payload",
			err:       &ustvgo.UpstreamError{Sentinel: ustvgo.ErrBadPayload},
			wantParse: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classifyChannelError("test.channel", tt.err)

			if tt.wantParse {
				var pe *ParseError
				if !errors.As(classified, &pe) {
					t.Fatalf("expected *ParseError, got %T", classified)
				}
				if pe.Channel != "test.channel" || pe.Cause != CauseMalformedInput {
					t.Errorf("unexpected parse error: %+v", pe)
				}
				return
			}

			var fe *FetchError
			if !errors.As(classified, &fe) {
				t.Fatalf("expected *FetchError, got %T", classified)
			}
			if fe.Channel != "test.channel" {
				t.Errorf("expected channel preserved, got %q", fe.Channel)
			}
			if fe.Cause != tt.wantCause {
				t.Errorf("expected cause %q, got %q", tt.wantCause, fe.Cause)
			}
		})
	}
}

func TestMetricsOutcome(t *testing.T) {
	fetchErr := classifyChannelError("c", &ustvgo.UpstreamError{Sentinel: ustvgo.ErrTimeout})
	if got := metricsOutcome(fetchErr); got != "timeout" {
		t.Errorf("expected 'timeout', got %q", got)
	}

	parseErr := classifyChannelError("c", &ustvgo.UpstreamError{Sentinel: ustvgo.ErrBadPayload})
	if got := metricsOutcome(parseErr); got != "parse" {
		t.Errorf("expected 'parse', got %q", got)
	}
}
