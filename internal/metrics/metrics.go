// Package metrics declares the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InboundEvents counts platform events by payload kind and outcome
	// (stored, rejected, failed).
	InboundEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_inbound_events_total",
			Help: "Platform events processed by the inbound relay",
		},
		[]string{"kind", "outcome"},
	)

	// OutboundMessages counts admin messages by delivery outcome
	// (delivered, transport_failed).
	OutboundMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_outbound_messages_total",
			Help: "Admin messages stored by the outbound relay",
		},
		[]string{"outcome"},
	)

	BestEffortFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_best_effort_failures_total",
			Help: "Absorbed failures of best-effort platform calls",
		},
		[]string{"operation"},
	)

	BlobUploads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blob_uploads_total",
			Help: "Blob store uploads by media kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	LiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "livesync_sessions_active",
			Help: "Connected admin websocket sessions",
		},
	)

	LiveBroadcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "livesync_broadcasts_total",
			Help: "Live view events queued for broadcast",
		},
		[]string{"type", "outcome"},
	)

	// CircuitBreakerState is 0=closed, 1=half-open, 2=open.
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "platform_circuit_breaker_state",
			Help: "Platform client circuit breaker state",
		},
		[]string{"name"},
	)
)
