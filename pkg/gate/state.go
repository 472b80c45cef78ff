package gate

import "errors"

// State is the render state of a gate
type State uint8

const (
	// Probing waits for the capability snapshot; the fallback is shown
	Probing State = iota
	// Active shows the animated scene
	Active
	// Fallback shows the static substitute for the rest of the mount
	Fallback
	// Errored shows the static substitute after a failure of the scene
	Errored
)

// String returns the state name
func (s State) String() string {
	switch s {
	case Probing:
		return "probing"
	case Active:
		return "active"
	case Fallback:
		return "fallback"
	case Errored:
		return "errored"
	default:
		return "unknown"
	}
}

// Trigger is an event that may change the render state
type Trigger uint8

const (
	// Probed delivers the capability snapshot
	Probed Trigger = iota
	// RenderFailed reports a failure inside the scene mount or a frame
	RenderFailed
	// SurfaceLost reports that the drawing surface went away
	SurfaceLost
	// SurfaceRestored reports that the drawing surface is usable again
	SurfaceRestored
)

// String returns the trigger name
func (t Trigger) String() string {
	switch t {
	case Probed:
		return "probed"
	case RenderFailed:
		return "render_error"
	case SurfaceLost:
		return "surface_lost"
	case SurfaceRestored:
		return "surface_restored"
	default:
		return "unknown"
	}
}

var (
	// ErrProbeFailure marks an inconclusive or negative capability probe.
	// It is never fatal; the gate shows the fallback.
	ErrProbeFailure = errors.New("gate: probe failure")
	// ErrSurfaceLost marks a lost drawing surface
	ErrSurfaceLost = errors.New("gate: render surface lost")
	// ErrRender marks a failure inside the scene mount or a frame
	ErrRender = errors.New("gate: render exception")
)

// guard carries the facts a transition depends on
type guard struct {
	// eligible: the probe allows the animated scene
	eligible bool
	// restorable: the gate errored through a surface loss and has budget left
	restorable bool
}

// next returns the state a trigger leads to from s. ok is false when the
// trigger does not apply; the state is then unchanged.
func next(s State, t Trigger, g guard) (to State, ok bool) {
	switch s {
	case Probing:
		switch t {
		case Probed:
			if g.eligible {
				return Active, true
			}
			return Fallback, true
		case RenderFailed, SurfaceLost, SurfaceRestored:
			return s, false
		}
	case Active:
		switch t {
		case RenderFailed, SurfaceLost:
			return Errored, true
		case Probed, SurfaceRestored:
			return s, false
		}
	case Errored:
		switch t {
		case SurfaceRestored:
			if g.restorable {
				return Active, true
			}
			return s, false
		case Probed, RenderFailed, SurfaceLost:
			return s, false
		}
	case Fallback:
		switch t {
		case Probed, RenderFailed, SurfaceLost, SurfaceRestored:
			return s, false
		}
	}
	return s, false
}
