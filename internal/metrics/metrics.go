package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	peerCount = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "lanpeer_connected_peers",
		Help: "Number of peers currently in the registry.",
	})
	framesDispatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanpeer_frames_dispatched_total",
		Help: "Inbound frames decoded and handed to the event bus.",
	})
	handshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanpeer_handshake_failures_total",
		Help: "Handshake attempts that timed out, errored or were rejected.",
	})
	scanRounds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lanpeer_scan_rounds_total",
		Help: "Discovery rounds issued by seek-peers.",
	})
)

// SetPeerCount records the current registry size.
func SetPeerCount(count int) {
	peerCount.Set(float64(count))
}

// IncFramesDispatched counts one decoded inbound frame.
func IncFramesDispatched() {
	framesDispatched.Inc()
}

// IncHandshakeFailures counts one failed handshake attempt.
func IncHandshakeFailures() {
	handshakeFailures.Inc()
}

// IncScanRounds counts one discovery round.
func IncScanRounds() {
	scanRounds.Inc()
}

// Handler serves the process metrics; collaborators decide whether to
// mount it.
func Handler() http.Handler {
	return promhttp.Handler()
}
