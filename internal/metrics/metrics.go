// Package metrics provides Prometheus metrics for the syncer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SyncRunsTotal counts sync cycles by final state.
	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_syncer",
			Name:      "sync_runs_total",
			Help:      "Total number of sync cycles",
		},
		[]string{"platform", "state"},
	)

	// SyncDuration measures sync cycle duration.
	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "social_syncer",
			Name:      "sync_duration_seconds",
			Help:      "Duration of sync cycles in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"platform"},
	)

	// ItemsTotal counts processed items by outcome.
	ItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_syncer",
			Name:      "items_total",
			Help:      "Total number of feed items by outcome",
		},
		[]string{"platform", "outcome"},
	)

	// MediaFailuresTotal counts assets that could not be localized.
	MediaFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_syncer",
			Name:      "media_failures_total",
			Help:      "Total number of media downloads that failed",
		},
		[]string{"platform"},
	)

	// ProfileRefreshTotal counts profile refreshes by status.
	ProfileRefreshTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "social_syncer",
			Name:      "profile_refresh_total",
			Help:      "Total number of profile refreshes",
		},
		[]string{"platform", "status"},
	)
)

// Recorder is the sync service's view of the metrics. The zero value
// records into the package collectors.
type Recorder struct{}

// RecordSync records one finished cycle.
func (Recorder) RecordSync(platform, state string, seconds float64, fetched, created, updated, skipped, failed int) {
	SyncRunsTotal.WithLabelValues(platform, state).Inc()
	SyncDuration.WithLabelValues(platform).Observe(seconds)
	ItemsTotal.WithLabelValues(platform, "fetched").Add(float64(fetched))
	ItemsTotal.WithLabelValues(platform, "new").Add(float64(created))
	ItemsTotal.WithLabelValues(platform, "updated").Add(float64(updated))
	ItemsTotal.WithLabelValues(platform, "skipped").Add(float64(skipped))
	ItemsTotal.WithLabelValues(platform, "error").Add(float64(failed))
}

// RecordMediaFailure records one asset that could not be localized.
func (Recorder) RecordMediaFailure(platform string) {
	MediaFailuresTotal.WithLabelValues(platform).Inc()
}

// RecordProfile records one profile refresh.
func (Recorder) RecordProfile(platform, status string) {
	ProfileRefreshTotal.WithLabelValues(platform, status).Inc()
}
