package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var metric dto.Metric
	if err := c.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Counter.GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric dto.Metric
	if err := g.Write(&metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	return metric.Gauge.GetValue()
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry() returned nil")
	}
	if r.GateTransitionsTotal == nil || r.LiveSessionsActive == nil || r.HTTPRequestsTotal == nil {
		t.Error("metrics not initialized")
	}
	if r.registry == nil {
		t.Error("Prometheus registry not initialized")
	}
}

func TestDefaultRegistry(t *testing.T) {
	if DefaultRegistry() != DefaultRegistry() {
		t.Error("DefaultRegistry() should return the same instance")
	}
}

func TestRecordTransition(t *testing.T) {
	r := NewRegistry()
	r.GateMounted("probing")
	r.RecordTransition("probing", "active")
	r.RecordTransition("active", "errored")

	if v := counterValue(t, r.GateTransitionsTotal.WithLabelValues("probing", "active")); v != 1 {
		t.Errorf("transitions = %v, want 1", v)
	}
	if v := gaugeValue(t, r.GatesActive.WithLabelValues("errored")); v != 1 {
		t.Errorf("errored gates = %v, want 1", v)
	}
	if v := gaugeValue(t, r.GatesActive.WithLabelValues("probing")); v != 0 {
		t.Errorf("probing gates = %v, want 0", v)
	}

	r.GateUnmounted("errored")
	if v := gaugeValue(t, r.GatesActive.WithLabelValues("errored")); v != 0 {
		t.Errorf("errored gates after unmount = %v, want 0", v)
	}
}

func TestRecordFrame(t *testing.T) {
	r := NewRegistry()
	r.RecordFrame(false, time.Millisecond)
	r.RecordFrame(false, 2*time.Millisecond)
	r.RecordFrame(true, time.Millisecond)

	if v := counterValue(t, r.GateFramesTotal.WithLabelValues("animated")); v != 2 {
		t.Errorf("animated frames = %v, want 2", v)
	}
	if v := counterValue(t, r.GateFramesTotal.WithLabelValues("rest")); v != 1 {
		t.Errorf("rest frames = %v, want 1", v)
	}
}

func TestSessions(t *testing.T) {
	r := NewRegistry()
	r.SessionOpened()
	r.SessionOpened()
	r.SessionClosed()
	r.RecordFrameSent("MOUNT", 100)
	r.RecordFrameSent("PATCHES", 20)

	if v := gaugeValue(t, r.LiveSessionsActive); v != 1 {
		t.Errorf("active sessions = %v, want 1", v)
	}
	if v := counterValue(t, r.LiveSessionsTotal); v != 2 {
		t.Errorf("total sessions = %v, want 2", v)
	}
	if v := counterValue(t, r.LiveBytesSentTotal); v != 120 {
		t.Errorf("bytes sent = %v, want 120", v)
	}
}

func TestNilRegistry(t *testing.T) {
	var r *Registry
	r.RecordTransition("a", "b")
	r.RecordFrame(true, 0)
	r.RecordProbe("yes", false)
	r.SessionOpened()
	r.RecordHTTPRequest("GET", "/", "200", 0)
	r.RecordCacheLookup(true)
}

func TestHandler(t *testing.T) {
	r := NewRegistry()
	r.RecordProbe("no", true)
	r.RecordHTTPRequest("GET", "/healthz", "200", 5*time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`netgraph_probes_total{graphics="no",low_end="true"} 1`,
		`netgraph_http_requests_total{method="GET",path="/healthz",status="200"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestRecordCacheLookup(t *testing.T) {
	r := NewRegistry()
	r.RecordCacheLookup(true)
	r.RecordCacheLookup(false)
	r.RecordCacheLookup(false)

	if got := counterValue(t, r.RenderCacheTotal.WithLabelValues("hit")); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
	if got := counterValue(t, r.RenderCacheTotal.WithLabelValues("miss")); got != 2 {
		t.Errorf("misses = %v, want 2", got)
	}
}
