// Package metrics holds the Prometheus collectors of the relay.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeliveriesTotal counts delivery attempts by terminal state.
	DeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_relay_deliveries_total",
			Help: "Total number of result delivery attempts by outcome",
		},
		[]string{"outcome"},
	)

	DeliveryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "callback_relay_delivery_duration_seconds",
			Help:    "Duration of result delivery attempts in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// RegistrationsTotal counts callback registrations by intake source and result.
	RegistrationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "callback_relay_registrations_total",
			Help: "Total number of callback registrations received",
		},
		[]string{"source", "status"},
	)
)

// Registration intake sources and results.
const (
	SourceHTTP   = "http"
	SourceStream = "stream"

	StatusStored   = "stored"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)
