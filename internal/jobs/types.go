package jobs

import (
	"context"
	"time"

	"github.com/mkaindl/epggen/internal/ustvgo"
)

// State is the orchestrator's position in the run lifecycle.
type State string

const (
	StateStart       State = "start"
	StateFetching    State = "fetching"
	StateNormalizing State = "normalizing"
	StateAssembling  State = "assembling"
	StateSerializing State = "serializing"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// ScheduleClient is the upstream dependency of a run, abstracted for tests.
type ScheduleClient interface {
	Schedule(ctx context.Context, lookupKey string) ([]ustvgo.Program, error)
}

// Status summarizes one completed (or failed) run.
type Status struct {
	RunID            string        `json:"run_id"`
	State            State         `json:"state"`
	StartedAt        time.Time     `json:"started_at"`
	FinishedAt       time.Time     `json:"finished_at"`
	ChannelsTotal    int           `json:"channels"`
	ChannelsWithData int           `json:"channels_with_data"`
	ChannelErrors    []string      `json:"channel_errors,omitempty"`
	Artifacts        []string      `json:"artifacts,omitempty"`
	Duration         time.Duration `json:"duration"`
}
