// Package telemetry holds the Prometheus metrics recorded while decoding
// matrices and event files. A nil *Metrics records nothing.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Decode kinds used as the "kind" label.
const (
	KindGCTX = "gctx"
	KindGCT  = "gct"
	KindLXB  = "lxb"
)

// Metrics holds all Prometheus metrics for decoding.
type Metrics struct {
	Decodes        *prometheus.CounterVec
	DecodeDuration *prometheus.HistogramVec
	Events         prometheus.Counter
	FetchedBytes   *prometheus.CounterVec
}

// New creates and registers all metrics with the provided registry.
func New(reg prometheus.Registerer) *Metrics {
	decodes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "l1kio_decodes_total",
		Help: "Total decode attempts by kind and outcome",
	}, []string{"kind", "outcome"})

	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "l1kio_decode_duration_seconds",
		Help:    "Time spent decoding one file",
		Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
	}, []string{"kind"})

	events := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "l1kio_lxb_events_total",
		Help: "Total list-mode events extracted",
	})

	fetched := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "l1kio_source_bytes_total",
		Help: "Total bytes fetched from sources by scheme",
	}, []string{"scheme"})

	reg.MustRegister(decodes, duration, events, fetched)

	return &Metrics{
		Decodes:        decodes,
		DecodeDuration: duration,
		Events:         events,
		FetchedBytes:   fetched,
	}
}

// ObserveDecode records one decode of the given kind that began at start.
func (m *Metrics) ObserveDecode(kind string, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.Decodes.WithLabelValues(kind, outcome).Inc()
	m.DecodeDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// AddEvents counts extracted events.
func (m *Metrics) AddEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.Events.Add(float64(n))
}

// AddFetched counts bytes read from a source.
func (m *Metrics) AddFetched(scheme string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.FetchedBytes.WithLabelValues(scheme).Add(float64(n))
}
