package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VaultRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_requests_total",
			Help: "Total number of vault requests",
		},
		[]string{"method", "path"},
	)

	VaultRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_requests_in_flight",
			Help: "Number of vault requests currently being processed",
		},
	)

	VaultRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vault_request_duration_seconds",
			Help:    "Duration of vault requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	SecretCodeChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vault_secret_code_checks_total",
			Help: "Total number of secret code verifications by outcome",
		},
		[]string{"outcome"},
	)

	MessagesDelivered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_messages_delivered_total",
			Help: "Total number of vault messages delivered",
		},
	)

	MessagesRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_messages_read_total",
			Help: "Total number of vault messages marked read",
		},
	)

	MessagesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_messages_deleted_total",
			Help: "Total number of vault messages deleted",
		},
	)

	VaultWebSocketConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vault_websocket_connections_active",
			Help: "Number of active vault feed connections",
		},
	)

	VaultWebSocketConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_websocket_connections_total",
			Help: "Total number of vault feed connections established",
		},
	)

	VaultWebSocketDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vault_websocket_dropped_total",
			Help: "Total number of vault feed clients dropped for slow consumption",
		},
	)
)
