package capability

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_Supported(t *testing.T) {
	p := NewProber(StaticEnvironment{
		Renderer:   "ANGLE",
		MemoryGB:   8,
		Cores:      8,
		Agent:      "Mozilla/5.0 (X11; Linux x86_64)",
		PixelRatio: 2,
	}, nil)

	snap := p.Probe(context.Background())
	assert.Equal(t, Yes, snap.Graphics)
	assert.True(t, snap.Supported())
	assert.Equal(t, "ANGLE", snap.Renderer)
	assert.False(t, snap.LowEnd)
	assert.Equal(t, PixelRatioCap, snap.PixelRatio)
	require.NotNil(t, snap.MemoryGB)
	assert.Equal(t, 8.0, *snap.MemoryGB)
}

func TestProbe_GraphicsErrorIsUnsupported(t *testing.T) {
	p := NewProber(StaticEnvironment{GraphicsErr: errors.New("no webgl"), Cores: 8}, nil)
	snap := p.Probe(context.Background())
	assert.Equal(t, No, snap.Graphics)
	assert.False(t, snap.Supported())
}

func TestProbe_PanicIsUnsupported(t *testing.T) {
	p := NewProber(StaticEnvironment{GraphicsPanic: true, Cores: 8, ReducedMotion: true}, nil)

	var snap Snapshot
	require.NotPanics(t, func() { snap = p.Probe(context.Background()) })
	assert.Equal(t, No, snap.Graphics)
	assert.True(t, snap.ReducedMotion, "fields read before the failure are kept")
}

func TestProbe_AsyncResolvesOnPanic(t *testing.T) {
	p := NewProber(StaticEnvironment{GraphicsPanic: true}, nil)
	snap, ok := <-p.ProbeAsync(context.Background())
	require.True(t, ok)
	assert.Equal(t, No, snap.Graphics)

	_, ok = <-p.ProbeAsync(context.Background())
	assert.True(t, ok, "each call delivers its own snapshot")
}

func TestProbe_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	snap := NewProber(StaticEnvironment{Renderer: "x", Cores: 8}, nil).Probe(ctx)
	assert.Equal(t, No, snap.Graphics)
}

func TestProbe_NilEnvironment(t *testing.T) {
	var p *Prober
	assert.Equal(t, Conservative(), p.Probe(context.Background()))
	assert.Equal(t, Conservative(), NewProber(nil, nil).Probe(context.Background()))
}

func TestProbe_Idempotent(t *testing.T) {
	p := NewProber(StaticEnvironment{Renderer: "gl", MemoryGB: 2, Cores: 4}, nil)
	assert.Equal(t, p.Probe(context.Background()), p.Probe(context.Background()))
}

func TestIsLowEnd(t *testing.T) {
	mem := func(v float64) *float64 { return &v }
	tests := []struct {
		name  string
		mem   *float64
		cores int
		ua    string
		want  bool
	}{
		{"desktop", mem(8), 8, "Mozilla/5.0 (Windows NT 10.0)", false},
		{"low memory", mem(2), 8, "", true},
		{"unknown memory", nil, 8, "", false},
		{"two cores", nil, 2, "", true},
		{"unknown cores", nil, 0, "", true},
		{"iphone", mem(8), 8, "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0)", true},
		{"android", nil, 8, "Mozilla/5.0 (Linux; Android 14)", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsLowEnd(tt.mem, tt.cores, tt.ua))
		})
	}
}

func TestCapPixelRatio(t *testing.T) {
	assert.Equal(t, 1.0, CapPixelRatio(0))
	assert.Equal(t, 1.0, CapPixelRatio(-2))
	assert.Equal(t, 1.25, CapPixelRatio(1.25))
	assert.Equal(t, 1.5, CapPixelRatio(3))
}

func TestRequestEnvironment(t *testing.T) {
	h := http.Header{}
	h.Set(HeaderDeviceMemory, "2")
	h.Set(HeaderDPR, "2.625")
	h.Set(HeaderMobile, "?1")
	h.Set(HeaderReducedMotion, "reduce")
	h.Set(HeaderCores, "8")
	h.Set(HeaderTouch, "5")
	h.Set("User-Agent", "Mozilla/5.0 (Linux)")

	snap := NewProber(RequestEnvironment{Header: h}, nil).Probe(context.Background())
	assert.Equal(t, Yes, snap.Graphics)
	assert.True(t, snap.ReducedMotion)
	assert.True(t, snap.Touch)
	assert.True(t, snap.LowEnd)
	assert.Equal(t, 1.5, snap.PixelRatio)
	assert.Equal(t, 8, snap.Cores)
}

func TestRequestEnvironment_GraphicsHeader(t *testing.T) {
	for _, v := range []string{"none", "0", "false"} {
		h := http.Header{}
		h.Set(HeaderGraphics, v)
		snap := NewProber(RequestEnvironment{Header: h}, nil).Probe(context.Background())
		assert.Equal(t, No, snap.Graphics, v)
	}

	h := http.Header{}
	h.Set(HeaderGraphics, "webgl2")
	h.Set(legacyDeviceMemory, "16")
	snap := NewProber(RequestEnvironment{Header: h}, nil).Probe(context.Background())
	assert.Equal(t, "webgl2", snap.Renderer)
	require.NotNil(t, snap.MemoryGB)
	assert.Equal(t, 16.0, *snap.MemoryGB)
}

func TestTerminalEnvironment(t *testing.T) {
	env := map[string]string{"TERM": "xterm-256color", "NETGRAPH_REDUCED_MOTION": "true"}
	getenv := func(k string) string { return env[k] }

	color := TerminalEnvironment{
		Profile: func() termenv.Profile { return termenv.ANSI256 },
		Getenv:  getenv,
	}
	snap := NewProber(color, nil).Probe(context.Background())
	assert.Equal(t, Yes, snap.Graphics)
	assert.Equal(t, "terminal/ansi256", snap.Renderer)
	assert.True(t, snap.ReducedMotion)

	mono := TerminalEnvironment{
		Profile: func() termenv.Profile { return termenv.Ascii },
		Getenv:  getenv,
	}
	assert.Equal(t, No, NewProber(mono, nil).Probe(context.Background()).Graphics)
}
