// Package metrics exposes the dashboard worker's Prometheus instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesComposited counts overlay repaints per camera
	FramesComposited = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "its_dashboard",
		Name:      "frames_composited_total",
		Help:      "Overlay repaints performed, per camera.",
	}, []string{"camera_id"})

	// DetectRequests counts snapshot detection round-trips by outcome
	DetectRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "its_dashboard",
		Name:      "detect_requests_total",
		Help:      "Snapshot detection requests, by outcome.",
	}, []string{"outcome"})

	// StreamMessages counts websocket detection messages by type
	StreamMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "its_dashboard",
		Name:      "stream_messages_total",
		Help:      "Messages received on the detection socket, by type.",
	}, []string{"type"})

	// SocketDials counts detection socket connection attempts by outcome
	SocketDials = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "its_dashboard",
		Name:      "socket_dials_total",
		Help:      "Detection websocket dial attempts, by outcome.",
	}, []string{"outcome"})

	// ActiveViews tracks open camera views
	ActiveViews = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "its_dashboard",
		Name:      "active_views",
		Help:      "Currently open camera views.",
	})

	// ViolationAlerts counts violation alerts published to NATS
	ViolationAlerts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "its_dashboard",
		Name:      "violation_alerts_total",
		Help:      "Violation alerts published to the message bus.",
	})
)
