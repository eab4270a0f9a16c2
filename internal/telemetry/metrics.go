// Package telemetry exposes Prometheus counters and gauges for the
// entity-synchronisation protocol: connection churn, frames and bytes
// moved in each direction, entity population, invalid packets, and
// replay-log appends.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hexa_connections_total",
		Help: "Total number of connections accepted",
	})

	ConnectionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hexa_connections_active",
		Help: "Current number of active connections",
	})

	ConnectionsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hexa_connections_rejected_total",
		Help: "Total number of connections rejected because the token table was full",
	})

	EntitiesActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "hexa_entities_active",
		Help: "Current number of live entities on the server",
	})

	EntitiesCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hexa_entities_created_total",
		Help: "Total number of entities created",
	})

	FramesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexa_frames_sent_total",
		Help: "Total number of wire frames sent, by direction",
	}, []string{"direction"})

	FramesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexa_frames_received_total",
		Help: "Total number of wire frames received, by direction",
	}, []string{"direction"})

	BytesSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexa_bytes_sent_total",
		Help: "Total bytes written to the transport, by direction",
	}, []string{"direction"})

	BytesReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hexa_bytes_received_total",
		Help: "Total bytes read from the transport, by direction",
	}, []string{"direction"})

	InvalidPacketsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hexa_invalid_packets_total",
		Help: "Total number of packets rejected for an invalid or unassigned opcode",
	})

	ReplayEventsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hexa_replay_events_total",
		Help: "Total number of wire frames appended to the replay log",
	})
)

func init() {
	prometheus.MustRegister(
		ConnectionsTotal,
		ConnectionsActive,
		ConnectionsRejected,
		EntitiesActive,
		EntitiesCreatedTotal,
		FramesSent,
		FramesReceived,
		BytesSent,
		BytesReceived,
		InvalidPacketsTotal,
		ReplayEventsTotal,
	)
}

// Handler returns the HTTP handler that serves the registered metrics
// in the Prometheus text exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
