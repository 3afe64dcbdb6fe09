// Package metrics provides Prometheus instrumentation for the Taskly chat
// backend: gauges for live connections, counters for message and invite
// throughput, and the retention sweep's delete count.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectionsActive tracks the current number of websocket connections.
	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "taskly_ws_connections",
		Help: "Current number of active WebSocket connections",
	})

	// MessagesSent counts chat messages accepted by the store.
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskly_messages_sent_total",
		Help: "Total number of chat messages stored",
	})

	// InvitesTotal counts invite lifecycle transitions.
	InvitesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "taskly_invites_total",
		Help: "Total number of invite operations",
	}, []string{"action"}) // action = "sent", "accepted", "rejected"

	// MessagesPruned counts messages removed by the retention sweep.
	MessagesPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskly_messages_pruned_total",
		Help: "Total number of messages deleted by the retention sweep",
	})

	// TypingEvents counts typing indicator updates received over websocket.
	TypingEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "taskly_typing_events_total",
		Help: "Total number of typing indicator events processed",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsActive,
		MessagesSent,
		InvitesTotal,
		MessagesPruned,
		TypingEvents,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
