package application

import (
	"github.com/dfryer1193/apodcache/apod/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FetchMetrics counts fetch pipeline outcomes. A nil *FetchMetrics records nothing.
type FetchMetrics struct {
	outcomes *prometheus.CounterVec
	cache    *prometheus.CounterVec
	bytes    prometheus.Counter
}

// NewFetchMetrics registers the fetch counters with reg, or the default
// registerer when reg is nil.
func NewFetchMetrics(reg prometheus.Registerer) *FetchMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &FetchMetrics{
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apodcache",
			Subsystem: "fetch",
			Name:      "total",
			Help:      "Fetches by outcome: success or the failure kind",
		}, []string{"outcome"}),
		cache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "apodcache",
			Subsystem: "fetch",
			Name:      "cache_lookups_total",
			Help:      "Cache decisions made by the fetch pipeline",
		}, []string{"result"}),
		bytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "apodcache",
			Subsystem: "fetch",
			Name:      "downloaded_bytes_total",
			Help:      "Image bytes downloaded from the catalog",
		}),
	}
}

func (m *FetchMetrics) RecordSuccess() {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues("success").Inc()
}

func (m *FetchMetrics) RecordFailure(kind domain.FetchErrorKind) {
	if m == nil {
		return
	}
	m.outcomes.WithLabelValues(string(kind)).Inc()
}

// RecordCacheDecision counts a hit or a miss
func (m *FetchMetrics) RecordCacheDecision(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cache.WithLabelValues(result).Inc()
}

func (m *FetchMetrics) RecordDownload(n int) {
	if m == nil {
		return
	}
	m.bytes.Add(float64(n))
}
