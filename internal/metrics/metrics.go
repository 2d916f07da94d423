// Package metrics records pipeline counters. The binary is short-lived, so
// this is a recording layer only; embedding processes may expose the
// default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epggen_fetch_total",
		Help: "Channel schedule fetches by outcome",
	}, []string{"outcome"}) // outcome=success|timeout|network|status|empty|parse

	fetchRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "epggen_fetch_retries_total",
		Help: "Total schedule fetch retry attempts",
	})

	channelsWithData = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "epggen_channels_with_data",
		Help: "Channels with a non-empty timeline in the last run",
	})

	programmesWritten = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "epggen_programmes_written",
		Help: "Programmes written per variant in the last run",
	}, []string{"variant"})

	serializeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epggen_serialize_errors_total",
		Help: "Guide serialization failures per variant",
	}, []string{"variant"})

	runFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "epggen_run_failures_total",
		Help: "Run failures by stage",
	}, []string{"stage"}) // stage=config|fetch|assemble|serialize

	runDuration = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "epggen_run_duration_seconds",
		Help: "Wall-clock duration of the last run",
	})
)

// RecordFetch counts one channel fetch with its outcome label.
func RecordFetch(outcome string) { fetchTotal.WithLabelValues(outcome).Inc() }

// RecordFetchRetry counts one retry attempt.
func RecordFetchRetry() { fetchRetries.Inc() }

// RecordChannelsWithData sets the usable-channel gauge for the run.
func RecordChannelsWithData(n int) { channelsWithData.Set(float64(n)) }

// RecordProgrammesWritten sets the per-variant programme count.
func RecordProgrammesWritten(variant string, n int) {
	programmesWritten.WithLabelValues(variant).Set(float64(n))
}

// RecordSerializeError counts a per-variant serialization failure.
func RecordSerializeError(variant string) { serializeErrors.WithLabelValues(variant).Inc() }

// RecordRunFailure counts a fatal run failure at the given stage.
func RecordRunFailure(stage string) { runFailures.WithLabelValues(stage).Inc() }

// RecordRunDuration sets the last run duration.
func RecordRunDuration(seconds float64) { runDuration.Set(seconds) }
