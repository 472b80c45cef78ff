// Package gate decides which render target a mount shows and keeps it
// consistent: the animated scene while the environment can draw it, the
// static fallback otherwise. Every failure of the scene ends in the
// fallback; a lost surface gets a bounded number of restorations.
//
// A Gate is owned by one goroutine. Run drives it from a scheduler loop and
// routes surface callbacks onto that loop, so the gate itself has no locks.
package gate

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/recera/netgraph/pkg/capability"
	"github.com/recera/netgraph/pkg/metrics"
	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/scheduler"
	"github.com/recera/netgraph/pkg/surface"
)

// DefaultMaxRestores is the restoration budget of one mount
const DefaultMaxRestores = 1

// Surface is where a gate mounts its targets. Only one target is mounted
// at a time; mounting one replaces the other.
type Surface interface {
	// Attach registers l for surface lifecycle events until detach is called
	Attach(l surface.Listener) (detach func())
	// MountScene shows the animated scene
	MountScene(s *scene.Scene) error
	// DrawFrame draws one frame of the mounted scene
	DrawFrame(f *motion.Frame) error
	// MountFallback shows the static fallback
	MountFallback() error
}

// Options configures a gate
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Registry

	// MaxRestores bounds Errored→Active restorations; 0 means
	// DefaultMaxRestores, negative disables restoration
	MaxRestores int
	// DisableOnLowEnd keeps low-end devices on the fallback
	DisableOnLowEnd bool

	// NodeCount is the size of the generated scene
	NodeCount int
	// Generator builds the scene; nil uses a time-seeded generator
	Generator *scene.Generator
	// Motion tunes the animation; the zero value means motion.DefaultOptions
	Motion motion.Options

	// OnTransition is called after every state change
	OnTransition func(from, to State)
}

// Gate is the render state machine of one mount
type Gate struct {
	opts    Options
	logger  *slog.Logger
	metrics *metrics.Registry
	surface Surface

	state    State
	shown    surface.Mode
	snapshot capability.Snapshot
	err      error
	// lossCaused is set when Errored was entered through a surface loss
	lossCaused   bool
	restoresLeft int

	scene  *scene.Scene
	model  *motion.Model
	detach func()

	scroll       float64
	reduceMotion bool
	restDrawn    bool

	unmounted bool
	frames    *scheduler.Subscription
	// exec delivers surface callbacks to the owning goroutine
	exec func(func())
	// ready is closed once Run has started the loop
	ready chan struct{}
}

// New creates a gate in Probing and shows the fallback while the probe is
// in flight
func New(surf Surface, opts Options) *Gate {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.MaxRestores == 0 {
		opts.MaxRestores = DefaultMaxRestores
	}
	if opts.MaxRestores < 0 {
		opts.MaxRestores = 0
	}
	if opts.NodeCount <= 0 {
		opts.NodeCount = scene.DefaultNodeCount
	}
	if opts.Motion == (motion.Options{}) {
		opts.Motion = motion.DefaultOptions()
	}

	g := &Gate{
		opts:         opts,
		logger:       opts.Logger,
		metrics:      opts.Metrics,
		surface:      surf,
		state:        Probing,
		restoresLeft: opts.MaxRestores,
		exec:         func(fn func()) { fn() },
		ready:        make(chan struct{}),
	}
	g.metrics.GateMounted(Probing.String())
	g.showFallback()
	return g
}

// State returns the current render state
func (g *Gate) State() State { return g.state }

// Current returns the mounted target: the scene while Active, the fallback
// in every other state, none after Unmount
func (g *Gate) Current() surface.Mode {
	if g.unmounted {
		return surface.ModeNone
	}
	return g.shown
}

// Snapshot returns the capability snapshot the gate resolved with
func (g *Gate) Snapshot() capability.Snapshot { return g.snapshot }

// Err returns the failure that led to the current state, if any
func (g *Gate) Err() error { return g.err }

// Scene returns the generated scene, nil until the gate was first Active
func (g *Gate) Scene() *scene.Scene { return g.scene }

// RestoresLeft returns the remaining restoration budget
func (g *Gate) RestoresLeft() int { return g.restoresLeft }

// ReduceMotion reports whether the animation is frozen
func (g *Gate) ReduceMotion() bool { return g.reduceMotion }

// Resolve delivers the capability snapshot. Only the first call while
// Probing has an effect.
func (g *Gate) Resolve(snap capability.Snapshot) {
	if g.unmounted {
		return
	}
	if g.state != Probing {
		g.reject(Probed)
		return
	}
	g.snapshot = snap
	g.metrics.RecordProbe(snap.Graphics.String(), snap.LowEnd)

	eligible := g.eligible(snap)
	if !eligible {
		g.err = g.probeError(snap)
		g.logger.Info("animated scene unavailable, showing fallback", "reason", g.err, "snapshot", snap.String())
	}
	g.fire(Probed, guard{eligible: eligible})
}

func (g *Gate) eligible(snap capability.Snapshot) bool {
	if !snap.Supported() {
		return false
	}
	return !(g.opts.DisableOnLowEnd && snap.LowEnd)
}

func (g *Gate) probeError(snap capability.Snapshot) error {
	if snap.Supported() {
		return fmt.Errorf("%w: low-end device", ErrProbeFailure)
	}
	return fmt.Errorf("%w: graphics %s", ErrProbeFailure, snap.Graphics)
}

// SetScroll updates the scroll progress read by the next frame
func (g *Gate) SetScroll(progress float64) {
	switch {
	case math.IsNaN(progress), progress < 0:
		progress = 0
	case progress > 1:
		progress = 1
	}
	g.scroll = progress
}

// Scroll returns the scroll progress
func (g *Gate) Scroll() float64 { return g.scroll }

// SetPointer forwards the pointer position to the animation
func (g *Gate) SetPointer(x, y float64) {
	if g.model != nil {
		g.model.SetPointer(x, y)
	}
}

// SetReduceMotion freezes or resumes the animation. The scene is kept.
func (g *Gate) SetReduceMotion(reduce bool) {
	if g.reduceMotion == reduce {
		return
	}
	g.reduceMotion = reduce
	g.restDrawn = false
	g.logger.Debug("motion preference changed", "reduceMotion", reduce)
}

// Frame steps and draws one frame while Active. Failures inside the step
// or the draw move the gate to Errored; nothing escapes.
func (g *Gate) Frame(elapsed time.Duration) {
	if g.unmounted || g.state != Active || g.model == nil {
		return
	}
	if g.reduceMotion && g.restDrawn {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			g.RenderError(fmt.Errorf("frame panicked: %v", r))
		}
	}()

	start := time.Now()
	var f *motion.Frame
	if g.reduceMotion {
		f = g.model.Rest()
	} else {
		f = g.model.Step(elapsed.Seconds(), g.scroll)
	}
	if err := g.surface.DrawFrame(f); err != nil {
		g.RenderError(err)
		return
	}
	if g.reduceMotion {
		g.restDrawn = true
	}
	g.metrics.RecordFrame(f.Frozen, time.Since(start))
}

// RenderError reports a failure of the scene. From Active it moves the gate
// to Errored, where restoration does not apply.
func (g *Gate) RenderError(err error) {
	if g.unmounted {
		return
	}
	if err == nil {
		err = errors.New("unknown failure")
	}
	if !errors.Is(err, ErrRender) {
		err = fmt.Errorf("%w: %w", ErrRender, err)
	}

	prevErr, prevLoss := g.err, g.lossCaused
	g.err, g.lossCaused = err, false
	if !g.fire(RenderFailed, guard{}) {
		g.err, g.lossCaused = prevErr, prevLoss
		return
	}
	g.metrics.RecordError("render")
	g.logger.Error("scene failed, showing fallback", "error", err)
}

// SurfaceLost reports that the drawing surface went away. From Active it
// moves the gate to Errored, from where SurfaceRestored may return.
func (g *Gate) SurfaceLost(reason string) {
	if g.unmounted {
		return
	}
	prevErr, prevLoss := g.err, g.lossCaused
	g.err, g.lossCaused = fmt.Errorf("%w: %s", ErrSurfaceLost, reason), true
	if !g.fire(SurfaceLost, guard{}) {
		g.err, g.lossCaused = prevErr, prevLoss
		return
	}
	g.metrics.RecordError("surface_lost")
	g.logger.Warn("render surface lost, showing fallback", "reason", reason, "restoresLeft", g.restoresLeft)
}

// SurfaceRestored reports that the drawing surface is usable again. It
// returns the gate to Active only after a surface loss and only while the
// restoration budget lasts.
func (g *Gate) SurfaceRestored() {
	if g.unmounted {
		return
	}
	restorable := g.lossCaused && g.restoresLeft > 0
	g.fire(SurfaceRestored, guard{restorable: restorable}, func() {
		g.restoresLeft--
		g.lossCaused = false
		g.metrics.RecordRestore()
		g.logger.Info("render surface restored", "restoresLeft", g.restoresLeft)
	})
}

// fire applies a trigger and reports whether it changed the state. accepted
// functions run once the transition is known to apply, before the new state
// is entered.
func (g *Gate) fire(t Trigger, gd guard, accepted ...func()) bool {
	from := g.state
	to, ok := next(from, t, gd)
	if !ok {
		g.reject(t)
		return false
	}

	for _, fn := range accepted {
		fn()
	}
	if from == Active {
		g.leaveActive()
	}
	g.state = to
	g.metrics.RecordTransition(from.String(), to.String())
	g.logger.Debug("render state changed", "from", from, "to", to, "trigger", t)
	if g.opts.OnTransition != nil {
		g.opts.OnTransition(from, to)
	}

	// Entering Active may fail and fire again; that transition follows this one
	switch to {
	case Active:
		g.enterActive()
	case Fallback, Errored:
		g.showFallback()
	}
	return true
}

func (g *Gate) reject(t Trigger) {
	g.metrics.RecordRejected(g.state.String(), t.String())
	g.logger.Debug("trigger ignored", "state", g.state, "trigger", t)
}

// enterActive mounts the scene. The scene is generated on the first entry
// only; a restoration reuses it.
func (g *Gate) enterActive() {
	defer func() {
		if r := recover(); r != nil {
			g.RenderError(fmt.Errorf("scene mount panicked: %v", r))
		}
	}()

	if g.scene == nil {
		gen := g.opts.Generator
		if gen == nil {
			gen = scene.NewGenerator(nil)
		}
		s := gen.Generate(g.opts.NodeCount)
		g.scene = &s
		g.model = motion.New(g.scene, g.opts.Motion)
		g.logger.Info("scene generated", "nodes", len(s.Nodes), "edges", len(s.Edges), "packets", len(s.Packets))
	}

	g.shown = surface.ModeScene
	if err := g.surface.MountScene(g.scene); err != nil {
		g.RenderError(fmt.Errorf("mount scene: %w", err))
		return
	}
	g.restDrawn = false
	g.detach = g.surface.Attach(surface.ListenerFunc(func(reason string) {
		g.exec(func() { g.SurfaceLost(reason) })
	}))
}

// leaveActive releases what enterActive acquired
func (g *Gate) leaveActive() {
	if g.detach != nil {
		g.detach()
		g.detach = nil
	}
}

func (g *Gate) showFallback() {
	if g.shown == surface.ModeFallback {
		return
	}
	g.shown = surface.ModeFallback
	if err := g.surface.MountFallback(); err != nil {
		g.logger.Error("fallback mount failed", "error", err)
	}
}

// Unmount stops frame delivery and detaches all listeners before it
// returns. The gate ignores every call afterwards.
func (g *Gate) Unmount() {
	if g.unmounted {
		return
	}
	g.unmounted = true
	if g.frames != nil {
		g.frames.Cancel()
		g.frames = nil
	}
	g.leaveActive()
	g.metrics.GateUnmounted(g.state.String())
	g.logger.Debug("gate unmounted", "state", g.state)
}
