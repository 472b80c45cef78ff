package metrics

import (
	"strconv"
	"time"
)

// RecordTransition records a render state change
func (r *Registry) RecordTransition(from, to string) {
	if r == nil {
		return
	}
	r.GateTransitionsTotal.WithLabelValues(from, to).Inc()
	r.GatesActive.WithLabelValues(from).Dec()
	r.GatesActive.WithLabelValues(to).Inc()
}

// GateMounted records a gate entering its first state
func (r *Registry) GateMounted(state string) {
	if r == nil {
		return
	}
	r.GatesActive.WithLabelValues(state).Inc()
}

// GateUnmounted records a gate leaving in the given state
func (r *Registry) GateUnmounted(state string) {
	if r == nil {
		return
	}
	r.GatesActive.WithLabelValues(state).Dec()
}

// RecordRejected records a trigger that did not apply
func (r *Registry) RecordRejected(state, trigger string) {
	if r == nil {
		return
	}
	r.GateRejectedTotal.WithLabelValues(state, trigger).Inc()
}

// RecordError records a render failure of the given kind
func (r *Registry) RecordError(kind string) {
	if r == nil {
		return
	}
	r.GateErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordRestore records a successful surface restoration
func (r *Registry) RecordRestore() {
	if r == nil {
		return
	}
	r.GateRestoresTotal.Inc()
}

// RecordFrame records one drawn frame
func (r *Registry) RecordFrame(rest bool, duration time.Duration) {
	if r == nil {
		return
	}
	kind := "animated"
	if rest {
		kind = "rest"
	}
	r.GateFramesTotal.WithLabelValues(kind).Inc()
	r.GateFrameDuration.Observe(duration.Seconds())
}

// RecordProbe records a capability probe outcome
func (r *Registry) RecordProbe(graphics string, lowEnd bool) {
	if r == nil {
		return
	}
	r.ProbesTotal.WithLabelValues(graphics, strconv.FormatBool(lowEnd)).Inc()
}

// SessionOpened records a new live session
func (r *Registry) SessionOpened() {
	if r == nil {
		return
	}
	r.LiveSessionsTotal.Inc()
	r.LiveSessionsActive.Inc()
}

// SessionClosed records a live session ending
func (r *Registry) SessionClosed() {
	if r == nil {
		return
	}
	r.LiveSessionsActive.Dec()
}

// RecordEvent records a client event
func (r *Registry) RecordEvent(eventType string) {
	if r == nil {
		return
	}
	r.LiveEventsTotal.WithLabelValues(eventType).Inc()
}

// RecordFrameSent records a server frame written to a session
func (r *Registry) RecordFrameSent(frameType string, size int) {
	if r == nil {
		return
	}
	r.LiveFramesSentTotal.WithLabelValues(frameType).Inc()
	r.LiveBytesSentTotal.Add(float64(size))
}

// RecordHTTPRequest records an HTTP request with its duration
func (r *Registry) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	if r == nil {
		return
	}
	r.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	r.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheLookup records a rendered frame cache hit or miss
func (r *Registry) RecordCacheLookup(hit bool) {
	if r == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	r.RenderCacheTotal.WithLabelValues(result).Inc()
}
