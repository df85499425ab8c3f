// Package metrics exposes Prometheus collectors for runs, extractors and
// notifications.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "eventworker"

var (
	RunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "runs_total",
		Help:      "Runs by result (success, no_new, all_failed, error).",
	}, []string{"result"})

	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall time of one run.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
	})

	EventsExtracted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_extracted_total",
		Help:      "Events returned by each site extractor.",
	}, []string{"site"})

	ExtractorFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extractor_failures_total",
		Help:      "Whole-extractor failures by site and error type.",
	}, []string{"site", "type"})

	DuplicatesDropped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "duplicates_dropped_total",
		Help:      "Events dropped as duplicates inside one extractor run.",
	}, []string{"site"})

	ItemsSkipped = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_skipped_total",
		Help:      "Malformed listing entries skipped by each extractor.",
	}, []string{"site"})

	NewEvents = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "new_events",
		Help:      "New events found by the last run.",
	})

	NotificationsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Telegram messages by kind (events, alert, error) and result.",
	}, []string{"kind", "result"})
)

func init() {
	prometheus.MustRegister(
		RunsTotal,
		RunDuration,
		EventsExtracted,
		ExtractorFailures,
		DuplicatesDropped,
		ItemsSkipped,
		NewEvents,
		NotificationsSent,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
