// Package jobs drives one guide generation run: fetch per-channel
// schedules, normalize them, assemble both variants and publish the
// artifacts atomically.
package jobs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/mkaindl/epggen/internal/config"
	"github.com/mkaindl/epggen/internal/epg"
	"github.com/mkaindl/epggen/internal/guide"
	xlog "github.com/mkaindl/epggen/internal/log"
	"github.com/mkaindl/epggen/internal/metrics"
	"github.com/mkaindl/epggen/internal/timeline"
	"github.com/mkaindl/epggen/internal/ustvgo"
)

const (
	generatorName = "epggen"
	generatorURL  = "https://github.com/mkaindl/epggen"
)

// Runner executes guide generation runs. Each run is independent and
// idempotent; the Runner itself holds no per-run state.
type Runner struct {
	cfg    *config.Settings
	client ScheduleClient
	now    func() time.Time
	render func(tv *epg.TV) (xmlData, gzData []byte, err error)
}

// Option tunes a Runner.
type Option func(*Runner)

// WithClock replaces the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a Runner for the given settings and upstream client.
func NewRunner(cfg *config.Settings, client ScheduleClient, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, client: client, now: time.Now, render: renderTV}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// renderTV serializes one document into its XML and gzip artifact bytes.
func renderTV(tv *epg.TV) ([]byte, []byte, error) {
	var plain, compressed bytes.Buffer
	if err := epg.Encode(&plain, tv); err != nil {
		return nil, nil, err
	}
	if err := epg.EncodeGzip(&compressed, tv); err != nil {
		return nil, nil, err
	}
	return plain.Bytes(), compressed.Bytes(), nil
}

// fetchResult is the outcome of one channel fetch task.
type fetchResult struct {
	channelID string
	programs  []ustvgo.Program
	err       error
}

// Run performs the complete cycle: fetch → normalize → assemble → serialize.
// Per-channel failures are aggregated into the returned Status; only
// run-level failures are returned as an error, in which case no output file
// has been touched.
func (r *Runner) Run(ctx context.Context) (*Status, error) {
	status := &Status{
		RunID:         uuid.NewString(),
		State:         StateStart,
		StartedAt:     r.now().UTC(),
		ChannelsTotal: len(r.cfg.Channels),
	}

	ctx = xlog.ContextWithRunID(ctx, status.RunID)
	logger := xlog.WithComponentFromContext(ctx, "jobs")
	logger.Info().Str("event", "run.start").Int("channels", status.ChannelsTotal).Msg("starting run")

	if d := r.cfg.RunTimeout(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	defer func() {
		status.FinishedAt = r.now().UTC()
		status.Duration = status.FinishedAt.Sub(status.StartedAt)
		metrics.RecordRunDuration(status.Duration.Seconds())
	}()

	// Fetch stage: one task per channel, bounded by a counting semaphore.
	status.State = StateFetching
	raw := r.fetchAll(ctx, status)

	// Normalize stage: single-threaded over the joined results.
	status.State = StateNormalizing
	policy := timeline.Policy{
		DefaultDuration: r.cfg.DefaultProgrammeDuration(),
		Window:          r.cfg.Window(),
		PreferDescribed: true,
	}
	timelines := make(map[string][]timeline.Entry, len(raw))
	for _, ch := range r.cfg.Channels {
		programs, ok := raw[ch.ID]
		if !ok {
			continue
		}
		entries := timeline.Build(programs, status.StartedAt, policy)
		timelines[ch.ID] = entries
		if len(entries) > 0 {
			status.ChannelsWithData++
		}
	}
	metrics.RecordChannelsWithData(status.ChannelsWithData)

	if status.ChannelsWithData == 0 {
		metrics.RecordRunFailure("fetch")
		status.State = StateFailed
		err := &RunError{Stage: "fetch", Msg: "no channel produced a usable timeline"}
		logger.Error().Str("event", "run.failed").Err(err).Msg("aborting run, output untouched")
		return status, err
	}

	// Assemble stage: two documents sharing identical programme data.
	status.State = StateAssembling
	opts := guide.Options{
		OmitEmpty:    r.cfg.OmitEmptyChannels,
		Generator:    generatorName,
		GeneratorURL: generatorURL,
	}
	docs := make(map[guide.Variant]*guide.Document, len(guide.Variants()))
	for _, v := range guide.Variants() {
		icons, err := guide.LoadIconSet(r.cfg.IconManifestDir, v, r.cfg.IconBaseURL)
		if err != nil {
			// Channels render without icons; the guide is still valid.
			logger.Warn().Err(err).Str("event", "icons.load_failed").Str("variant", string(v)).
				Msg("icon manifest unavailable")
		}
		doc := guide.Assemble(r.cfg.Channels, timelines, icons, status.StartedAt, v, opts)
		for _, name := range doc.MissingIcons {
			logger.Warn().Str("event", "icons.missing").Str("icon", name).
				Str("variant", string(v)).Msg("no icon manifest entry for channel")
		}
		docs[v] = doc
	}

	// Serialize stage: render everything first, publish only if every
	// artifact rendered. A serializer failure in one variant does not stop
	// the other from being attempted, but any failure fails the run so no
	// partial output replaces the previous good files.
	status.State = StateSerializing
	type artifact struct {
		name string
		data []byte
	}
	artifacts := make([]artifact, 0, 2*len(docs))
	var serializeErrs []error
	for _, v := range guide.Variants() {
		xmlData, gzData, err := r.render(docs[v].TV())
		if err != nil {
			serr := &SerializeError{Variant: v, Err: err}
			metrics.RecordSerializeError(string(v))
			logger.Error().Err(serr).Str("event", "serialize.failed").Str("variant", string(v)).Msg("variant failed")
			serializeErrs = append(serializeErrs, serr)
			continue
		}

		artifacts = append(artifacts,
			artifact{name: fmt.Sprintf("%s.xml", v), data: xmlData},
			artifact{name: fmt.Sprintf("%s.xml.gz", v), data: gzData})
		metrics.RecordProgrammesWritten(string(v), len(docs[v].Programmes))
	}

	if len(serializeErrs) > 0 {
		metrics.RecordRunFailure("serialize")
		status.State = StateFailed
		err := &RunError{Stage: "serialize", Msg: fmt.Sprintf("%d variant(s) failed to serialize", len(serializeErrs))}
		logger.Error().Str("event", "run.failed").Err(err).Msg("aborting run, output untouched")
		return status, err
	}

	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		metrics.RecordRunFailure("serialize")
		status.State = StateFailed
		return status, fmt.Errorf("create output dir: %w", err)
	}
	for _, a := range artifacts {
		path := filepath.Join(r.cfg.OutputDir, a.name)
		if err := writeFileAtomic(ctx, path, a.data); err != nil {
			metrics.RecordRunFailure("serialize")
			status.State = StateFailed
			return status, fmt.Errorf("publish %s: %w", a.name, err)
		}
		status.Artifacts = append(status.Artifacts, path)
	}

	status.State = StateDone
	logger.Info().
		Str("event", "run.success").
		Int("channels_with_data", status.ChannelsWithData).
		Int("channel_errors", len(status.ChannelErrors)).
		Int("artifacts", len(status.Artifacts)).
		Msg("run completed")
	return status, nil
}

// fetchAll dispatches per-channel fetch tasks and joins them. Failed
// channels are recorded on status and omitted from the result.
func (r *Runner) fetchAll(ctx context.Context, status *Status) map[string][]ustvgo.Program {
	logger := xlog.WithComponentFromContext(ctx, "fetch")

	sem := semaphore.NewWeighted(int64(r.cfg.MaxConcurrency))
	results := make(chan fetchResult, len(r.cfg.Channels))
	var wg sync.WaitGroup

	for _, ch := range r.cfg.Channels {
		ch := ch
		if ch.LookupKey == "" {
			// No upstream mapping; the channel appears with an empty timeline.
			logger.Debug().Str("channel", ch.ID).Msg("skipping fetch: no lookup key")
			results <- fetchResult{channelID: ch.ID, programs: nil}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			if err := sem.Acquire(ctx, 1); err != nil {
				results <- fetchResult{channelID: ch.ID, err: classifyChannelError(ch.ID, err)}
				return
			}
			defer sem.Release(1)

			programs, err := r.fetchWithRetry(ctx, ch.LookupKey)
			if err != nil {
				results <- fetchResult{channelID: ch.ID, err: classifyChannelError(ch.ID, err)}
				return
			}
			results <- fetchResult{channelID: ch.ID, programs: programs}
		}()
	}

	// Barrier join before normalization.
	go func() {
		wg.Wait()
		close(results)
	}()

	raw := make(map[string][]ustvgo.Program, len(r.cfg.Channels))
	for res := range results {
		if res.err != nil {
			metrics.RecordFetch(metricsOutcome(res.err))
			logger.Warn().Err(res.err).Str("channel", res.channelID).
				Str("event", "fetch.channel_failed").Msg("channel omitted from guide data")
			status.ChannelErrors = append(status.ChannelErrors, res.err.Error())
			continue
		}
		metrics.RecordFetch("success")
		raw[res.channelID] = res.programs
	}
	return raw
}

// fetchWithRetry attempts a channel fetch with exponential backoff on
// transient failures. Non-retryable errors fail immediately.
func (r *Runner) fetchWithRetry(ctx context.Context, lookupKey string) ([]ustvgo.Program, error) {
	var lastErr error
	for attempt := 0; attempt <= r.cfg.FetchRetries; attempt++ {
		if attempt > 0 {
			metrics.RecordFetchRetry()
			backoff := time.Duration(attempt*attempt*500) * time.Millisecond
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, r.cfg.FetchTimeout())
		programs, err := r.client.Schedule(reqCtx, lookupKey)
		cancel()
		if err == nil {
			return programs, nil
		}
		lastErr = err
		if !ustvgo.IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("schedule request failed after %d retries: %w", r.cfg.FetchRetries, lastErr)
}
