// Package metrics exposes Prometheus instrumentation for the scanner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the scanner's Prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	CyclesTotal    *prometheus.CounterVec
	SignalsTotal   *prometheus.CounterVec
	FetchErrors    *prometheus.CounterVec
	DeliveryErrors prometheus.Counter
	TrackedMarkets prometheus.Gauge
	MatchedPairs   prometheus.Gauge
	CycleDuration  prometheus.Histogram
}

// New builds and registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		CyclesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gapsentry_cycles_total",
			Help: "Scan cycles by outcome.",
		}, []string{"status"}),
		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gapsentry_signals_total",
			Help: "Signals fired after deduplication, by type.",
		}, []string{"type"}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gapsentry_fetch_errors_total",
			Help: "Failed fetches by source.",
		}, []string{"source"}),
		DeliveryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gapsentry_delivery_errors_total",
			Help: "Failed outbound message deliveries.",
		}),
		TrackedMarkets: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gapsentry_tracked_markets",
			Help: "Markets in the latest snapshot.",
		}),
		MatchedPairs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gapsentry_matched_pairs",
			Help: "Cross-platform pairs matched in the latest cycle.",
		}),
		CycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gapsentry_cycle_duration_seconds",
			Help:    "Wall time of one scan cycle.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(
		m.CyclesTotal,
		m.SignalsTotal,
		m.FetchErrors,
		m.DeliveryErrors,
		m.TrackedMarkets,
		m.MatchedPairs,
		m.CycleDuration,
	)
	return m
}
