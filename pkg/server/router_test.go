package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/vdom"
)

func text(s string) HandlerFunc {
	return func(ctx Ctx) (*vdom.VNode, error) {
		return vdom.NewElement("div", nil, vdom.NewText(s)), nil
	}
}

func serve(h http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestRouter_Match(t *testing.T) {
	router := NewRouter(nil)
	router.AddRoute("/", text("home"))
	router.AddRoute("/scene.svg", text("scene"))
	router.AddRoute("/live/[id:uuid]", text("live"))
	router.AddRoute("/frames/[n:int]", text("frame"))
	router.AddRoute("/assets/[...file]", text("asset"))

	tests := []struct {
		path       string
		wantMatch  bool
		wantParams map[string]string
	}{
		{"/", true, map[string]string{}},
		{"/scene.svg", true, map[string]string{}},
		{"/live/6f1c1a0e-3b7a-4c1e-9a39-7a3a43e8c111", true, map[string]string{"id": "6f1c1a0e-3b7a-4c1e-9a39-7a3a43e8c111"}},
		{"/live/abc", false, nil},
		{"/frames/12", true, map[string]string{"n": "12"}},
		{"/frames/x", false, nil},
		{"/assets/css/site.css", true, map[string]string{"file": "css/site.css"}},
		{"/notfound", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			handler, params, _ := router.Match(tt.path)
			if !tt.wantMatch {
				assert.Nil(t, handler)
				return
			}
			require.NotNil(t, handler)
			assert.Equal(t, tt.wantParams, params)
		})
	}
}

func TestRouter_ServeHTTP(t *testing.T) {
	router := NewRouter(nil)
	router.AddRoute("/test", text("Test Page"))

	w := serve(router, http.MethodGet, "/test")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "<div>Test Page</div>", w.Body.String())
}

func TestRouter_ContentTypeAndDoctype(t *testing.T) {
	router := NewRouter(nil)
	router.AddRoute("/img.svg", func(ctx Ctx) (*vdom.VNode, error) {
		ctx.SetHeader("Content-Type", "image/svg+xml")
		return vdom.NewElement("svg", nil), nil
	})
	router.AddRoute("/page", func(ctx Ctx) (*vdom.VNode, error) {
		return vdom.NewElement("html", nil, vdom.NewElement("body", nil)), nil
	})

	w := serve(router, http.MethodGet, "/img.svg")
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, "<svg></svg>", w.Body.String())

	w = serve(router, http.MethodGet, "/page")
	assert.True(t, strings.HasPrefix(w.Body.String(), "<!DOCTYPE html><html>"))
}

func TestRouter_NotFound(t *testing.T) {
	router := NewRouter(nil)
	w := serve(router, http.MethodGet, "/notfound")
	assert.Equal(t, http.StatusNotFound, w.Code)

	router.SetNotFound(func(ctx Ctx) (*vdom.VNode, error) {
		ctx.Status(http.StatusNotFound)
		return vdom.NewElement("p", nil, vdom.NewText("gone")), nil
	})
	w = serve(router, http.MethodGet, "/notfound")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "<p>gone</p>", w.Body.String())
}

func TestRouter_ErrorsAndPanics(t *testing.T) {
	router := NewRouter(nil)
	router.AddRoute("/err", func(ctx Ctx) (*vdom.VNode, error) {
		return nil, errors.New("boom")
	})
	router.AddRoute("/panic", func(ctx Ctx) (*vdom.VNode, error) {
		panic("boom")
	})

	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/err").Code)
	assert.Equal(t, http.StatusInternalServerError, serve(router, http.MethodGet, "/panic").Code)

	router.SetErrorPage(text("sorry"))
	w := serve(router, http.MethodGet, "/err")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "<div>sorry</div>", w.Body.String())
}

func TestRouter_APIRoute(t *testing.T) {
	router := NewRouter(nil)
	router.AddAPIRoute("/healthz", func(ctx Ctx) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	w := serve(router, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

type recordMW struct {
	name  string
	calls *[]string
	stop  bool
}

func (m recordMW) Before(ctx Ctx) error {
	*m.calls = append(*m.calls, m.name+".before")
	if m.stop {
		ctx.Text(http.StatusForbidden, "no")
		return Stop()
	}
	return nil
}

func (m recordMW) After(ctx Ctx) error {
	*m.calls = append(*m.calls, m.name+".after")
	return nil
}

func TestRouter_MiddlewareOrder(t *testing.T) {
	var calls []string
	router := NewRouter(nil)
	router.Use(recordMW{name: "global", calls: &calls})
	router.AddRoute("/a", func(ctx Ctx) (*vdom.VNode, error) {
		calls = append(calls, "handler")
		return vdom.NewText("a"), nil
	}, recordMW{name: "route", calls: &calls})
	router.AddRoute("/stop", text("unreachable"), recordMW{name: "guard", calls: &calls, stop: true})

	serve(router, http.MethodGet, "/a")
	assert.Equal(t, []string{"global.before", "route.before", "handler", "route.after", "global.after"}, calls)

	calls = nil
	w := serve(router, http.MethodGet, "/stop")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, []string{"global.before", "guard.before", "global.after"}, calls)
}

func TestRouter_MountBypassesMiddleware(t *testing.T) {
	var calls []string
	router := NewRouter(nil)
	router.Use(recordMW{name: "global", calls: &calls})
	router.Mount("/raw", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	assert.Equal(t, http.StatusTeapot, serve(router, http.MethodGet, "/raw").Code)
	assert.Empty(t, calls)
	assert.Equal(t, "/raw", router.Pattern("/raw"))
}

func TestClientHints(t *testing.T) {
	router := NewRouter(nil)
	router.Use(ClientHints{}, RequestLog{})
	router.AddRoute("/", text("home"))

	w := serve(router, http.MethodGet, "/")
	assert.Contains(t, w.Header().Get("Accept-CH"), "Sec-CH-Prefers-Reduced-Motion")
	assert.NotEmpty(t, w.Header().Get("Vary"))
}

func TestInstrument(t *testing.T) {
	reg := metrics.NewRegistry()
	router := NewRouter(nil)
	router.AddRoute("/live/[id]", text("x"))
	h := Instrument(reg, router)

	serve(h, http.MethodGet, "/live/abc")
	serve(h, http.MethodGet, "/live/def")
	serve(h, http.MethodGet, "/missing")

	assert.Equal(t, 2.0, counterValue(t, reg, "GET", "/live/[id]", "200"))
	assert.Equal(t, 1.0, counterValue(t, reg, "GET", "unmatched", "404"))
}

func TestInjectLiveClient(t *testing.T) {
	doc := vdom.NewElement("html", nil,
		vdom.NewElement("head", nil),
		vdom.NewElement("body", nil, vdom.NewElement("div", vdom.Props{"id": "surface"})),
	)
	doc = InjectLiveClient(doc, "/live/", "surface")

	router := NewRouter(nil)
	router.AddRoute("/", func(ctx Ctx) (*vdom.VNode, error) { return doc, nil })
	body := serve(router, http.MethodGet, "/").Body.String()

	assert.Contains(t, body, `<meta content="/live/" data-surface="surface" name="netgraph-live">`)
	assert.Contains(t, body, "new WebSocket(")
	assert.Contains(t, body, "(e.matches ? 1 : 0)", "script is not escaped")
	assert.Contains(t, body, "reduce(on) {", "page can toggle reduced motion")
	assert.Contains(t, body, "event(0x02, [v ? 1 : 0])")

	// Non-documents pass through
	div := vdom.NewElement("div", nil)
	assert.Same(t, div, InjectLiveClient(div, "/live/", "surface"))
}
