package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// KillmailMetrics records outcomes of external killboard lookups.
type KillmailMetrics struct {
	fetches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewKillmailMetrics registers the killmail fetch metrics on the provided registerer.
func NewKillmailMetrics(reg prometheus.Registerer) *KillmailMetrics {
	if reg == nil {
		return &KillmailMetrics{}
	}
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "killmail_fetches_total",
		Help: "Killmail fetch attempts by source and outcome.",
	}, []string{"source", "outcome"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "killmail_fetch_duration_seconds",
		Help:    "Duration of killmail fetches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	reg.MustRegister(fetches, duration)
	return &KillmailMetrics{
		fetches:  fetches,
		duration: duration,
	}
}

// IncFetch increments the fetch counter for the named source and outcome.
func (k *KillmailMetrics) IncFetch(source, outcome string) {
	if k == nil || k.fetches == nil {
		return
	}
	k.fetches.WithLabelValues(normalizeLabel(source), normalizeLabel(outcome)).Inc()
}

// ObserveFetchDuration records how long a fetch against the named source took.
func (k *KillmailMetrics) ObserveFetchDuration(source string, duration time.Duration) {
	if k == nil || k.duration == nil {
		return
	}
	k.duration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
