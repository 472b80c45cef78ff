package motion

import (
	"math"

	"github.com/recera/netgraph/pkg/scene"
)

const (
	// RestDistance is the camera distance from the origin at scroll 0
	RestDistance = 12.0
	// DefaultFOV matches the perspective of the original canvas
	DefaultFOV = 60.0
	// RestGlow is the halo opacity of a node that is not animating
	RestGlow = 0.3
	// PacketScale is the packet radius at the middle of its edge
	PacketScale = 0.03

	pulseAmplitude = 0.02
	glowCenter     = 0.4
	glowAmplitude  = 0.1
	floatIntensity = 0.3
)

// Options tunes the motion rules
type Options struct {
	// Smoothing is the fraction of the remaining camera distance covered per step
	Smoothing float64
	// YawStep is the group rotation added per step, in radians
	YawStep float64
	// PointerEase is the fraction of the remaining pointer tilt covered per step
	PointerEase float64
	// Float enables the gentle vertical bob of each node
	Float bool
}

// DefaultOptions returns the tuning of the portfolio background
func DefaultOptions() Options {
	return Options{
		Smoothing:   0.05,
		YawStep:     0.0005,
		PointerEase: 0.02,
		Float:       true,
	}
}

// Model computes per-frame visual state for one scene. The state table is
// allocated once in New; Step and Rest never allocate.
//
// A Model is owned by a single goroutine.
type Model struct {
	scene *scene.Scene
	opts  Options

	frame Frame
	rest  Frame

	camera   scene.Vec3
	yaw      float64
	tiltX    float64
	tiltY    float64
	pointerX float64
	pointerY float64
}

// New creates a model for s. The scene is read, never written.
func New(s *scene.Scene, opts Options) *Model {
	if opts.Smoothing <= 0 || opts.Smoothing > 1 {
		opts.Smoothing = DefaultOptions().Smoothing
	}
	if opts.PointerEase <= 0 || opts.PointerEase > 1 {
		opts.PointerEase = DefaultOptions().PointerEase
	}

	m := &Model{
		scene:  s,
		opts:   opts,
		camera: scene.V(0, 0, RestDistance),
		frame: Frame{
			Nodes:   make([]NodeState, len(s.Nodes)),
			Packets: make([]PacketState, len(s.Packets)),
		},
		rest: Frame{
			Nodes:   make([]NodeState, len(s.Nodes)),
			Packets: make([]PacketState, 0),
			Frozen:  true,
		},
	}
	m.frame.Camera = restCamera()
	m.rest.Camera = restCamera()
	for i, n := range s.Nodes {
		m.rest.Nodes[i] = NodeState{Scale: n.Category.BaseScale(), GlowOpacity: RestGlow}
	}
	return m
}

func restCamera() Camera {
	return Camera{
		Position: scene.V(0, 0, RestDistance),
		FOV:      DefaultFOV,
	}
}

// Scene returns the scene this model animates
func (m *Model) Scene() *scene.Scene {
	return m.scene
}

// SetPointer records the pointer position in normalized device
// coordinates, both axes in [-1,1] with +y up.
func (m *Model) SetPointer(x, y float64) {
	m.pointerX = clamp(x, -1, 1)
	m.pointerY = clamp(y, -1, 1)
}

// Step advances the animation to elapsed seconds with the given scroll
// progress and returns the frame. The returned frame is overwritten by the
// next call to Step.
func (m *Model) Step(elapsed, scroll float64) *Frame {
	scroll = clamp(scroll, 0, 1)
	f := &m.frame
	f.Elapsed = elapsed
	f.Scroll = scroll
	f.Frozen = false

	for i, n := range m.scene.Nodes {
		p := n.Position
		st := &f.Nodes[i]
		st.Scale = n.Category.BaseScale() + math.Sin(elapsed*2+p.X)*pulseAmplitude
		st.GlowOpacity = math.Sin(elapsed*1.5+p.Y)*glowAmplitude + glowCenter
		if m.opts.Float {
			st.Offset = scene.V(0, math.Sin((elapsed+p.Z*1000)/4)/10*floatIntensity, 0)
		} else {
			st.Offset = scene.Vec3{}
		}
	}

	for i, pk := range m.scene.Packets {
		a, b := m.scene.Endpoints(pk.Edge)
		u := LapParam(elapsed, pk.Speed, pk.Phase)
		f.Packets[i] = PacketState{
			Position: a.Lerp(b, u),
			T:        u,
			Size:     PacketSize(u),
		}
	}

	target := CameraTarget(scroll)
	m.camera = m.camera.Lerp(target, m.opts.Smoothing)
	f.Camera = Camera{
		Position: m.camera,
		LookAt:   scene.V(0, target.Y*0.5, 0),
		FOV:      DefaultFOV,
	}

	m.yaw = math.Mod(m.yaw+m.opts.YawStep, 2*math.Pi)
	m.tiltY += (m.pointerX*0.1 - m.tiltY) * m.opts.PointerEase
	m.tiltX += (m.pointerY*0.1 - m.tiltX) * m.opts.PointerEase
	f.Rotation = scene.V(m.tiltX, m.yaw+m.tiltY, 0)

	return f
}

// Rest returns the frozen frame shown while motion is reduced. The camera is
// parked at its rest pose so that resuming eases in from there.
func (m *Model) Rest() *Frame {
	m.camera = scene.V(0, 0, RestDistance)
	return &m.rest
}

// CameraTarget returns the camera position the scroll progress asks for:
// down 3 units and 2 units closer over the full scroll, drifting right
// along a quarter sine.
func CameraTarget(scroll float64) scene.Vec3 {
	scroll = clamp(scroll, 0, 1)
	return scene.Vec3{
		X: math.Sin(scroll*math.Pi*0.5) * 2,
		Y: -scroll * 3,
		Z: RestDistance - scroll*2,
	}
}

// LapParam returns the packet parameter (elapsed*speed + phase) mod 1,
// always in [0,1).
func LapParam(elapsed, speed, phase float64) float64 {
	u := math.Mod(elapsed*speed+phase, 1)
	if u < 0 {
		u++
	}
	if u >= 1 || math.IsNaN(u) {
		return 0
	}
	return u
}

// PacketSize returns the packet radius at lap parameter u
func PacketSize(u float64) float64 {
	return PacketScale * (1 - math.Abs(u-0.5)*0.5)
}

// ScrollProgress converts a scroll offset into progress through the
// scrollable height, clamped to [0,1].
func ScrollProgress(scrollTop, scrollable float64) float64 {
	if scrollable <= 0 {
		return 0
	}
	return clamp(scrollTop/scrollable, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
