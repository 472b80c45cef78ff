// Package site wires the netgraph pages, SVG endpoints and the live socket
// into one router.
package site

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"

	"github.com/recera/netgraph/internal/cache"
	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/fallback"
	"github.com/recera/netgraph/pkg/live"
	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/server"
	"github.com/recera/netgraph/pkg/surface"
	"github.com/recera/netgraph/pkg/vdom"
)

// SurfaceID is the id of the element the live client draws into
const SurfaceID = "ng-surface"

// frameRate is the step rate /scene.svg simulates to reach ?t=
const frameRate = 60

// maxSteps bounds the simulation of a single /scene.svg request
const maxSteps = 60 * frameRate

// Options configures the site
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Registry
	// Live serves /live/{session}; nil disables the live surface
	Live *live.Server
	// ServeMetrics exposes the registry on /metrics
	ServeMetrics bool

	Viewport  surface.Viewport
	NodeCount int
	Seed      int64
	Motion    motion.Options
	Title     string
	// Frames caches rendered /scene.svg bodies; nil uses a default cache
	Frames *cache.Cache
	// PixelRatioCap bounds the device pixel ratio /scene.svg snaps to;
	// 0 means capability.PixelRatioCap
	PixelRatioCap float64
}

// Site holds the scene every stateless endpoint renders
type Site struct {
	opts   Options
	logger *slog.Logger
	scene  scene.Scene
	frames *cache.Cache
}

// New generates the site's scene. A zero seed picks one from the clock so
// the scene differs between runs but stays stable within one.
func New(opts Options) *Site {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.NodeCount <= 0 {
		opts.NodeCount = scene.DefaultNodeCount
	}
	if opts.Viewport == (surface.Viewport{}) {
		opts.Viewport = surface.DefaultViewport
	}
	if opts.Motion == (motion.Options{}) {
		opts.Motion = motion.DefaultOptions()
	}
	if opts.Frames == nil {
		opts.Frames = cache.New(cache.DefaultConfig())
	}
	if !(opts.PixelRatioCap >= 1) {
		opts.PixelRatioCap = capability.PixelRatioCap
	}
	if opts.Title == "" {
		opts.Title = "netgraph"
	}

	var src rand.Source
	if opts.Seed != 0 {
		src = rand.NewSource(opts.Seed)
	}
	return &Site{
		opts:   opts,
		logger: opts.Logger,
		scene:  scene.NewGenerator(src).Generate(opts.NodeCount),
		frames: opts.Frames,
	}
}

// Handler returns the instrumented router
func (s *Site) Handler() http.Handler {
	r := server.NewRouter(s.logger)
	r.Use(server.ClientHints{}, server.RequestLog{})

	r.AddRoute("/", s.page)
	r.AddRoute("/scene.svg", s.sceneSVG)
	r.AddRoute("/frames/[step:int]", s.frameSVG)
	r.AddRoute("/fallback.svg", s.fallbackSVG)
	r.AddAPIRoute("/healthz", s.health)
	if s.opts.Live != nil {
		r.Mount("/live/[...session]", s.opts.Live)
	}
	if s.opts.ServeMetrics && s.opts.Metrics != nil {
		r.Mount("/metrics", s.opts.Metrics.Handler())
	}
	return server.Instrument(s.opts.Metrics, r)
}

// page is the document hosting the surface. The fallback is drawn while the
// live session probes the browser.
func (s *Site) page(ctx server.Ctx) (*vdom.VNode, error) {
	env := capability.NewRequestEnvironment(ctx.Request())
	surf := vdom.NewElement("div", vdom.Props{"id": SurfaceID, "class": "ng-surface", "data-state": "probing"},
		fallback.Render(fallback.Options{
			Width:        s.opts.Viewport.Width,
			Height:       s.opts.Viewport.Height,
			Pulse:        true,
			ReduceMotion: env.PrefersReducedMotion(),
		}),
	)

	doc := vdom.NewElement("html", vdom.Props{"lang": "en"},
		vdom.NewElement("head", nil,
			vdom.NewElement("meta", vdom.Props{"charset": "utf-8"}),
			vdom.NewElement("meta", vdom.Props{"name": "viewport", "content": "width=device-width, initial-scale=1"}),
			vdom.NewElement("title", nil, vdom.NewText(s.opts.Title)),
			vdom.NewElement("style", nil, vdom.NewText(pageStyle)),
		),
		vdom.NewElement("body", nil,
			surf,
			vdom.NewElement("main", vdom.Props{"class": "ng-content"},
				vdom.NewElement("h1", nil, vdom.NewText(s.opts.Title)),
				vdom.NewElement("p", nil, vdom.NewText("Scroll to move the camera through the network.")),
			),
		),
	)
	if s.opts.Live != nil {
		doc = server.InjectLiveClient(doc, "/live/", SurfaceID)
	}
	return doc, nil
}

const pageStyle = `html,body{margin:0;background:#0a0e14;color:#cfe3f3;font-family:system-ui,sans-serif}
.ng-surface{position:fixed;inset:0;z-index:0;pointer-events:none}
.ng-surface svg{display:block;width:100%;height:100%}
.ng-content{position:relative;z-index:1;max-width:48rem;margin:0 auto;padding:20vh 1.5rem;min-height:300vh}`

// sceneSVG renders one frame: ?scroll= in [0,1], ?t= seconds since start,
// ?motion=reduce for the rest frame
func (s *Site) sceneSVG(ctx server.Ctx) (*vdom.VNode, error) {
	q := ctx.Query()
	scroll, err := floatParam(q.Get("scroll"), 0)
	if err != nil {
		return nil, badRequest(ctx, "scroll", err)
	}
	t, err := floatParam(q.Get("t"), 0)
	if err != nil || !(t >= 0) {
		return nil, badRequest(ctx, "t", fmt.Errorf("want a non-negative number of seconds"))
	}

	return nil, s.renderFrame(ctx, scroll, int(math.Min(t*frameRate, maxSteps)), q.Get("motion") == "reduce")
}

// frameSVG renders the frame after /frames/{step} simulation steps. It takes
// the same ?scroll= and ?motion= as /scene.svg.
func (s *Site) frameSVG(ctx server.Ctx) (*vdom.VNode, error) {
	q := ctx.Query()
	scroll, err := floatParam(q.Get("scroll"), 0)
	if err != nil {
		return nil, badRequest(ctx, "scroll", err)
	}
	step, err := strconv.Atoi(ctx.Param("step"))
	if err != nil || step > maxSteps {
		return nil, badRequest(ctx, "step", fmt.Errorf("want at most %d steps", maxSteps))
	}
	return nil, s.renderFrame(ctx, scroll, step, q.Get("motion") == "reduce")
}

// renderFrame writes the SVG after steps simulation steps, sharing the
// frame cache between /scene.svg and /frames
func (s *Site) renderFrame(ctx server.Ctx, scroll float64, steps int, reduce bool) error {
	if reduce {
		scroll, steps = 0, 0
	}

	vp := s.opts.Viewport
	dpr := capability.NewRequestEnvironment(ctx.Request()).DevicePixelRatio()
	vp.PixelRatio = math.Min(capability.CapPixelRatio(dpr), s.opts.PixelRatioCap)

	key := cache.Key(
		strconv.FormatBool(reduce),
		strconv.FormatFloat(scroll, 'g', -1, 64),
		strconv.Itoa(steps),
		strconv.FormatFloat(vp.PixelRatio, 'g', -1, 64),
	)
	body, hit, err := s.frames.GetOrCreate(key, func() ([]byte, error) {
		model := motion.New(&s.scene, s.opts.Motion)
		var frame *motion.Frame
		if reduce {
			frame = model.Rest()
		} else {
			frame = model.Step(0, scroll)
			for i := 1; i <= steps; i++ {
				frame = model.Step(float64(i)/frameRate, scroll)
			}
		}
		markup, err := html.RenderToString(surface.NewSVG(&s.scene, vp).Render(frame))
		return []byte(markup), err
	})
	if err != nil {
		return err
	}
	s.opts.Metrics.RecordCacheLookup(hit)

	ctx.SetHeader("Cache-Control", "no-store")
	return ctx.Write(http.StatusOK, "image/svg+xml", body)
}

func (s *Site) fallbackSVG(ctx server.Ctx) (*vdom.VNode, error) {
	q := ctx.Query()
	opts := fallback.Options{
		Width:  s.opts.Viewport.Width,
		Height: s.opts.Viewport.Height,
		Pulse:  q.Get("pulse") != "" && q.Get("pulse") != "0",
	}
	if w, err := strconv.Atoi(q.Get("w")); err == nil && w > 0 {
		opts.Width = w
	}
	if h, err := strconv.Atoi(q.Get("h")); err == nil && h > 0 {
		opts.Height = h
	}
	ctx.SetHeader("Content-Type", "image/svg+xml")
	return fallback.Render(opts), nil
}

func (s *Site) health(ctx server.Ctx) (any, error) {
	body := map[string]any{"status": "ok", "nodes": len(s.scene.Nodes)}
	if s.opts.Live != nil {
		body["sessions"] = s.opts.Live.SessionCount()
	}
	body["frameCache"] = s.frames.GetStats()
	return body, nil
}

func floatParam(v string, def float64) (float64, error) {
	if v == "" {
		return def, nil
	}
	return strconv.ParseFloat(v, 64)
}

// badRequest answers 400 and stops the handler without an error page
func badRequest(ctx server.Ctx, param string, err error) error {
	ctx.Logger().Debug("bad query parameter", "param", param, "error", err)
	return ctx.Text(http.StatusBadRequest, fmt.Sprintf("invalid %s: %v", param, err))
}
