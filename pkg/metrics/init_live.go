package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initLiveMetrics() {
	r.LiveSessionsActive = promauto.With(r.registry).NewGauge(
		prometheus.GaugeOpts{
			Name: "netgraph_live_sessions",
			Help: "Currently connected live sessions",
		},
	)

	r.LiveSessionsTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netgraph_live_sessions_total",
			Help: "Live sessions opened since start",
		},
	)

	r.LiveEventsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_live_events_total",
			Help: "Client events received by type",
		},
		[]string{"type"},
	)

	r.LiveFramesSentTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_live_frames_sent_total",
			Help: "Server frames sent by type",
		},
		[]string{"type"},
	)

	r.LiveBytesSentTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netgraph_live_bytes_sent_total",
			Help: "Bytes written to live sessions",
		},
	)
}
