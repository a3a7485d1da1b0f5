package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// connectionStatuses are the label values of fusion_connection_status.
var connectionStatuses = []string{"connected", "connecting", "reconnecting", "stopped"}

var (
	// messagesReceived counts raw frames read from the backend
	messagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fusion_messages_received_total",
		Help: "Total raw messages received from the event stream",
	})

	// eventsAccepted counts validated events by kind
	eventsAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fusion_events_accepted_total",
		Help: "Total events accepted by kind",
	}, []string{"kind"})

	// eventsRejected counts dropped messages by validation reason
	eventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fusion_events_rejected_total",
		Help: "Total messages rejected by reason",
	}, []string{"reason"})

	coercionErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fusion_parameter_coercion_errors_total",
		Help: "Total parameter updates dropped because the value was not numeric",
	})

	reconnectAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fusion_reconnect_attempts_total",
		Help: "Total reconnects scheduled after a connection loss",
	})

	bootstrapEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fusion_bootstrap_events_total",
		Help: "Total events seeded from the bootstrap endpoint",
	})

	// connectionStatus is 1 for the current indicator value and 0 otherwise
	connectionStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "fusion_connection_status",
		Help: "Current connection indicator",
	}, []string{"status"})
)
