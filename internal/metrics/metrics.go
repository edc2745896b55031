// Package metrics registers the pipeline's Prometheus collectors. Grounded
// in APTlantis-Mirror-Crates/internal/downloader's package-level metOnce/
// prometheus.MustRegister pattern, generalized from one fixed metric set to
// a constructor so tests can register against a private registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Registry bundles every collector the acquisition pipeline reports.
// DownloadsTotal and RateLimitHits are CounterVecs so a single metric
// carries the outcome (or domain) as a label rather than fanning out into
// one metric per value; ContentStoreHits/Misses are plain Counters.
type Registry struct {
	DownloadsTotal     *prometheus.CounterVec
	RateLimitHits      *prometheus.CounterVec
	ContentStoreHits   prometheus.Counter
	ContentStoreMisses prometheus.Counter
	DomainDelay        *prometheus.GaugeVec
	DownloadDuration   prometheus.Histogram
}

// New builds a Registry and registers every collector against reg. Pass
// prometheus.NewRegistry() in tests to avoid colliding with the global
// default registry across test runs.
func New(reg prometheus.Registerer) *Registry {
	r := &Registry{
		DownloadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foiacquire_downloads_total",
			Help: "Downloads processed by outcome (completed, deduplicated, unchanged, failed).",
		}, []string{"outcome"}),
		RateLimitHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "foiacquire_rate_limit_hits_total",
			Help: "Responses classified as a rate limit, by domain.",
		}, []string{"domain"}),
		ContentStoreHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foiacquire_content_store_dedup_hits_total",
			Help: "Writes short-circuited by an existing content hash.",
		}),
		ContentStoreMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "foiacquire_content_store_dedup_misses_total",
			Help: "Writes that required allocating a new path.",
		}),
		DomainDelay: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "foiacquire_domain_delay_ms",
			Help: "Current adaptive per-domain request delay, in milliseconds.",
		}, []string{"domain"}),
		DownloadDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "foiacquire_download_duration_seconds",
			Help:    "Time spent per download attempt, claim to terminal event.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		r.DownloadsTotal,
		r.RateLimitHits,
		r.ContentStoreHits,
		r.ContentStoreMisses,
		r.DomainDelay,
		r.DownloadDuration,
	)

	return r
}
