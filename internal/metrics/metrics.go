// Package metrics exposes the daemon's Prometheus instrumentation.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "warpout"

var (
	// ActiveClients tracks slots currently in use.
	ActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_clients",
		Help:      "Connections currently holding a client slot.",
	})

	// RefusedConnections counts accepts dropped because the table was full.
	RefusedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refused_connections_total",
		Help:      "Connections closed immediately because no slot was free.",
	})

	// FramesDecoded counts validated records by tag.
	FramesDecoded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "frames_decoded_total",
		Help:      "TLVC records decoded and dispatched, by record tag.",
	}, []string{"tag"})

	// DecodeErrors counts discarded frames by failure kind.
	DecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decode_errors_total",
		Help:      "Frames discarded by the framing or record layer.",
	}, []string{"kind"})

	// EventsReplayed counts input events written to virtual devices.
	EventsReplayed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_replayed_total",
		Help:      "Input events injected into virtual devices.",
	})
)

// Serve exposes /metrics on addr. Runs on its own goroutine; the event loop
// never touches it.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
