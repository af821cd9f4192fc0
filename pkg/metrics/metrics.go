// Package metrics registers the Prometheus collectors used across the
// application. Collectors are registered on the default registry at init time
// via promauto; cmd/web exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ResolutionsTotal counts resolve calls by outcome: ok, no_candidates,
	// all_failed or error.
	ResolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "songvault_resolutions_total",
		Help: "Resolution requests by outcome.",
	}, []string{"outcome"})

	// ProviderSearchDuration observes how long each provider took to answer a
	// fan-out call, including the ones that errored.
	ProviderSearchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "songvault_provider_search_duration_seconds",
		Help:    "Latency of provider search calls.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	// ProviderFailures counts failed provider calls by error kind.
	ProviderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "songvault_provider_failures_total",
		Help: "Provider search failures by provider and error kind.",
	}, []string{"provider", "kind"})

	// SelectionsTotal counts persisted selections, including slot overwrites.
	SelectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "songvault_selections_total",
		Help: "Canonical link selections persisted.",
	})

	// LinkProbesTotal counts integrity probes by result: alive, dead or failed.
	LinkProbesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "songvault_link_probes_total",
		Help: "Link integrity probe results.",
	}, []string{"result"})

	// SessionsActive tracks resolution sessions currently held in the store.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "songvault_sessions_active",
		Help: "Resolution sessions currently cached.",
	})
)
