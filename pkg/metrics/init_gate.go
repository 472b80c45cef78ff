package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initGateMetrics() {
	r.GateTransitionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_gate_transitions_total",
			Help: "Render state transitions by source and target state",
		},
		[]string{"from", "to"},
	)

	r.GateRejectedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_gate_rejected_triggers_total",
			Help: "Triggers that did not apply in the current render state",
		},
		[]string{"state", "trigger"},
	)

	r.GateErrorsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_gate_errors_total",
			Help: "Render failures by kind",
		},
		[]string{"kind"},
	)

	r.GateRestoresTotal = promauto.With(r.registry).NewCounter(
		prometheus.CounterOpts{
			Name: "netgraph_gate_restores_total",
			Help: "Successful surface restorations",
		},
	)

	r.GateFramesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_gate_frames_total",
			Help: "Frames drawn by kind (animated or rest)",
		},
		[]string{"kind"},
	)

	r.GateFrameDuration = promauto.With(r.registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netgraph_gate_frame_duration_seconds",
			Help:    "Time spent stepping and drawing one frame",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.016, 0.033, 0.1},
		},
	)

	r.GatesActive = promauto.With(r.registry).NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "netgraph_gates",
			Help: "Mounted gates by current render state",
		},
		[]string{"state"},
	)

	r.ProbesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "netgraph_probes_total",
			Help: "Capability probes by outcome",
		},
		[]string{"graphics", "low_end"},
	)
}
