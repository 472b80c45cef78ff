package surface

import (
	"errors"
	"fmt"

	"github.com/recera/netgraph/pkg/fallback"
	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/raster"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/vdom"
)

// Mode names the target mounted on a surface
type Mode uint8

const (
	ModeNone Mode = iota
	ModeScene
	ModeFallback
)

// String returns the mode name
func (m Mode) String() string {
	switch m {
	case ModeScene:
		return "scene"
	case ModeFallback:
		return "fallback"
	default:
		return "none"
	}
}

// ErrDropped is returned by an emit function that discarded an update
// because its consumer is behind. The surface skips the frame and sends the
// whole tree next time.
var ErrDropped = errors.New("surface: update dropped")

// Update is one change of the markup shown on an SVG surface. Root is set
// when a target is mounted; otherwise Patches transform the previous tree.
type Update struct {
	Mode    Mode
	Root    *vdom.VNode
	Patches []vdom.Patch
}

// SVGSurface shows either the animated scene or the fallback as SVG markup
// and reports every change through its emit function.
type SVGSurface struct {
	Hub

	vp       Viewport
	emit     func(Update) error
	fallback func() *vdom.VNode

	renderer *SVG
	tree     *vdom.VNode
	mode     Mode
}

// NewSVGSurface creates a surface that passes updates to emit
func NewSVGSurface(vp Viewport, emit func(Update) error) *SVGSurface {
	vp = vp.normalized()
	return &SVGSurface{
		vp:   vp,
		emit: emit,
		fallback: func() *vdom.VNode {
			return fallback.Render(fallback.Options{Width: vp.Width, Height: vp.Height})
		},
	}
}

// SetFallback replaces the fallback composition
func (s *SVGSurface) SetFallback(fn func() *vdom.VNode) {
	s.fallback = fn
}

// Mode returns the mounted target
func (s *SVGSurface) Mode() Mode { return s.mode }

// Tree returns the tree currently shown, or nil
func (s *SVGSurface) Tree() *vdom.VNode { return s.tree }

// MountScene unmounts whatever is shown and prepares the scene. The scene
// tree is emitted with the first frame.
func (s *SVGSurface) MountScene(sc *scene.Scene) error {
	if sc == nil {
		return fmt.Errorf("surface: mount scene: nil scene")
	}
	s.renderer = NewSVG(sc, s.vp)
	s.tree = nil
	s.mode = ModeScene
	return nil
}

// DrawFrame renders f onto the mounted scene
func (s *SVGSurface) DrawFrame(f *motion.Frame) error {
	if s.mode != ModeScene || s.renderer == nil {
		return fmt.Errorf("surface: draw frame: scene not mounted (mode %s)", s.mode)
	}
	next := s.renderer.Render(f)
	prev := s.tree
	s.tree = next
	if prev == nil {
		return s.send(Update{Mode: ModeScene, Root: next})
	}
	patches := vdom.Diff(prev, next)
	if len(patches) == 0 {
		return nil
	}
	err := s.send(Update{Mode: ModeScene, Patches: patches})
	if errors.Is(err, ErrDropped) {
		// The consumer no longer matches prev
		s.tree = nil
		return nil
	}
	return err
}

// MountFallback unmounts the scene and shows the fallback
func (s *SVGSurface) MountFallback() error {
	s.renderer = nil
	s.mode = ModeFallback
	s.tree = s.fallback()
	return s.send(Update{Mode: ModeFallback, Root: s.tree})
}

func (s *SVGSurface) send(u Update) error {
	if s.emit == nil {
		return nil
	}
	return s.emit(u)
}

// Minimum terminal size that can show the scene
const (
	MinTerminalWidth  = 20
	MinTerminalHeight = 6
)

// TerminalSurface shows the scene or the fallback in a character grid. A
// terminal shrunk below the minimum size counts as a lost surface.
type TerminalSurface struct {
	Hub

	canvas   *raster.Canvas
	renderer *Terminal
	mode     Mode
	lost     bool
	color    bool
}

// NewTerminalSurface creates a surface of the given size. With color off the
// view is plain text.
func NewTerminalSurface(width, height int, color bool) *TerminalSurface {
	return &TerminalSurface{canvas: raster.New(width, height), color: color}
}

// Mode returns the mounted target
func (t *TerminalSurface) Mode() Mode { return t.mode }

// Size returns the canvas size
func (t *TerminalSurface) Size() (int, int) { return t.canvas.W, t.canvas.H }

// Usable reports whether the current size can be drawn on
func (t *TerminalSurface) Usable() bool {
	return t.canvas.W >= MinTerminalWidth && t.canvas.H >= MinTerminalHeight
}

// Resize changes the canvas size. Shrinking below the minimum notifies the
// attached listeners; growing back reports restored=true once.
func (t *TerminalSurface) Resize(width, height int) (restored bool) {
	t.canvas = raster.New(width, height)
	if !t.Usable() {
		if !t.lost {
			t.lost = true
			t.Lost(fmt.Sprintf("terminal too small (%dx%d)", width, height))
		}
		return false
	}
	restored = t.lost
	t.lost = false
	if t.mode == ModeFallback {
		t.drawFallback()
	}
	return restored
}

// MountScene prepares the scene for drawing
func (t *TerminalSurface) MountScene(sc *scene.Scene) error {
	if sc == nil {
		return fmt.Errorf("surface: mount scene: nil scene")
	}
	if !t.Usable() {
		return fmt.Errorf("surface: mount scene: terminal too small (%dx%d)", t.canvas.W, t.canvas.H)
	}
	t.renderer = NewTerminal(sc)
	t.mode = ModeScene
	t.canvas.Clear()
	return nil
}

// DrawFrame rasterizes f
func (t *TerminalSurface) DrawFrame(f *motion.Frame) error {
	if t.mode != ModeScene || t.renderer == nil {
		return fmt.Errorf("surface: draw frame: scene not mounted (mode %s)", t.mode)
	}
	t.renderer.Draw(t.canvas, f)
	return nil
}

// MountFallback shows the static fallback
func (t *TerminalSurface) MountFallback() error {
	t.renderer = nil
	t.mode = ModeFallback
	t.drawFallback()
	return nil
}

func (t *TerminalSurface) drawFallback() {
	t.canvas = fallback.Canvas(t.canvas.W, t.canvas.H)
}

// View returns the current picture
func (t *TerminalSurface) View() string {
	if t.color {
		return t.canvas.Styled()
	}
	return t.canvas.Plain()
}
