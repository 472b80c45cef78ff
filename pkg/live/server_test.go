package live

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/netgraph/pkg/gate"
	"github.com/recera/netgraph/pkg/metrics"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv := NewServer(Options{
		Metrics: metrics.NewRegistry(),
		FPS:     100,
		Seed:    7,
		Gate:    gate.Options{NodeCount: 12},
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return srv, ts
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func dial(t *testing.T, url string) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, _, err := Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

// readUntil collects frames until match returns true
func readUntil(t *testing.T, c *Client, match func(*ServerFrame) bool) []*ServerFrame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var frames []*ServerFrame
	for {
		f, err := c.Next(ctx)
		require.NoError(t, err)
		frames = append(frames, f)
		if match(f) {
			return frames
		}
	}
}

func mounted(mode string) func(*ServerFrame) bool {
	return func(f *ServerFrame) bool {
		return f.Type == FrameMount && f.Mode == mode
	}
}

func states(frames []*ServerFrame) []string {
	var out []string
	for _, f := range frames {
		if f.Type == FrameControl && f.Control == ControlState {
			out = append(out, f.State)
		}
	}
	return out
}

func TestSession_MountsSceneAndStreamsPatches(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new"))

	_, err := uuid.Parse(c.Session)
	require.NoError(t, err, "server allocates a uuid")

	frames := readUntil(t, c, mounted("scene"))
	assert.Equal(t, FrameMount, frames[0].Type)
	assert.Equal(t, "fallback", frames[0].Mode, "fallback is shown while probing")
	assert.Contains(t, frames[0].Markup, `data-mode="fallback"`)
	assert.Equal(t, []string{"active"}, states(frames))

	scene := frames[len(frames)-1]
	assert.Contains(t, scene.Markup, "ng-edges")

	frames = readUntil(t, c, func(f *ServerFrame) bool { return f.Type == FramePatches })
	assert.NotEmpty(t, frames[len(frames)-1].Patches)
}

func TestSession_UnsupportedGraphicsStaysOnFallback(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new?graphics=none"))

	frames := readUntil(t, c, func(f *ServerFrame) bool { return f.Control == ControlState })
	assert.Equal(t, []string{"fallback"}, states(frames))

	// Nothing but the initial fallback mount before the pong
	require.NoError(t, c.Ping())
	frames = readUntil(t, c, func(f *ServerFrame) bool { return f.Control == ControlPong })
	for _, f := range frames {
		assert.NotEqual(t, FramePatches, f.Type)
		assert.False(t, f.Type == FrameMount && f.Mode == "scene")
	}
}

func TestSession_SurfaceLossAndRestore(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new"))
	readUntil(t, c, mounted("scene"))

	require.NoError(t, c.Send(Event{Type: EventSurfaceLost, Message: "context lost"}))
	frames := readUntil(t, c, mounted("fallback"))
	assert.Equal(t, []string{"errored"}, states(frames))

	require.NoError(t, c.Send(Event{Type: EventSurfaceRestored}))
	frames = readUntil(t, c, mounted("scene"))
	assert.Equal(t, []string{"active"}, states(frames))
}

func TestSession_RenderErrorShowsFallback(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new"))
	readUntil(t, c, mounted("scene"))

	require.NoError(t, c.Send(Event{Type: EventRenderError, Message: "shader compile"}))
	frames := readUntil(t, c, mounted("fallback"))
	assert.Equal(t, []string{"errored"}, states(frames))
}

func TestSession_ReducedMotionHint(t *testing.T) {
	_, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new?motion=reduce"))
	readUntil(t, c, mounted("scene"))

	// The rest frame is drawn once, so only the pong follows
	require.NoError(t, c.Ping())
	frames := readUntil(t, c, func(f *ServerFrame) bool { return f.Control == ControlPong })
	for _, f := range frames {
		assert.NotEqual(t, FramePatches, f.Type)
	}
}

func TestServer_RejectsBadAndDuplicateIDs(t *testing.T) {
	srv, ts := newTestServer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := Dial(ctx, wsURL(ts, "/live/not-a-uuid"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	id := uuid.NewString()
	c := dial(t, wsURL(ts, "/live/"+id))
	assert.Equal(t, id, c.Session)
	assert.Eventually(t, func() bool {
		_, ok := srv.GetSession(id)
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	_, resp, err = Dial(ctx, wsURL(ts, "/live/"+id), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestServer_SessionEndsOnDisconnect(t *testing.T) {
	srv, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new"))
	readUntil(t, c, mounted("scene"))
	require.Equal(t, 1, srv.SessionCount())

	require.NoError(t, c.Close())
	assert.Eventually(t, func() bool { return srv.SessionCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	srv, ts := newTestServer(t)
	c := dial(t, wsURL(ts, "/live/new"))
	readUntil(t, c, mounted("scene"))

	srv.Close()
	assert.Equal(t, 0, srv.SessionCount())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		if _, err := c.Next(ctx); err != nil {
			break
		}
	}

	_, resp, err := Dial(ctx, wsURL(ts, "/live/new"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestSameOrigin(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "http://example.com/live/new", nil)
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "http://example.com")
	assert.True(t, sameOrigin(r))

	r.Header.Set("Origin", "https://evil.example")
	assert.False(t, sameOrigin(r))
}

func TestHintHeaders(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/live/new?graphics=none&cores=2&dpr=3", nil)
	r.Header.Set("DPR", "2")
	r.Header.Set("Sec-CH-DPR", "2")

	h := hintHeaders(r)
	assert.Equal(t, "none", h.Get("X-Netgraph-Graphics"))
	assert.Equal(t, "2", h.Get("X-Netgraph-Cores"))
	assert.Equal(t, "2", h.Get("Sec-CH-DPR"), "browser header wins")
	assert.Empty(t, r.Header.Get("X-Netgraph-Graphics"), "request is not modified")
}
