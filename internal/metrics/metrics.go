package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatline_store_op_duration_seconds",
			Help:    "Store operation latency",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"op"},
	)

	MessagesIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatline_messages_ingested_total",
			Help: "Live messages handled by the ingest engine",
		},
		[]string{"result"}, // "ok" or "error"
	)

	// Event server metrics
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatline_event_sessions_active",
			Help: "Currently connected event server sessions",
		},
	)

	EventsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatline_events_sent_total",
			Help: "Wire events written by the event server",
		},
		[]string{"type"},
	)

	SessionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatline_event_sessions_dropped_total",
			Help: "Sessions closed by simulated connection drops",
		},
	)

	MalformedEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatline_malformed_events_total",
			Help: "Inbound frames dropped because they could not be decoded",
		},
		[]string{"side"}, // "server" or "client"
	)

	// Transport client metrics
	ConnectionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatline_transport_state",
			Help: "1 for the current transport connection state, 0 otherwise",
		},
		[]string{"state"},
	)

	ReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatline_transport_reconnect_attempts_total",
			Help: "Backoff delays scheduled by the transport client",
		},
	)

	HeartbeatTimeouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatline_transport_heartbeat_timeouts_total",
			Help: "Sessions terminated by the heartbeat watchdog",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatline_http_requests_total",
			Help: "Total HTTP requests served by the event server",
		},
		[]string{"method", "path", "status"},
	)

	// Gateway metrics
	RPCRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatline_rpc_requests_total",
			Help: "Unary gateway calls by method and status code",
		},
		[]string{"method", "code"},
	)
)
