// Package surface draws motion frames. The SVG renderer projects the scene
// through the frame's perspective camera into markup; the terminal renderer
// rasterizes the same projection into a character grid.
package surface

import (
	"math"

	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/scene"
)

// NearPlane is the closest depth that is still drawn
const NearPlane = 0.1

var up = scene.V(0, 1, 0)

// Point is a projected position in surface pixels
type Point struct {
	X, Y float64
	// Depth is the distance along the view direction
	Depth float64
	// Unit is the size in pixels of one world unit at this depth
	Unit    float64
	Visible bool
}

// Projector maps world positions onto a width×height surface for one camera
type Projector struct {
	eye                   scene.Vec3
	right, upv, forward   scene.Vec3
	focal                 float64
	width, height, aspect float64
}

// NewProjector prepares the view basis for cam on a width×height surface
func NewProjector(cam motion.Camera, width, height float64) Projector {
	fov := cam.FOV
	if fov <= 0 || fov >= 180 {
		fov = motion.DefaultFOV
	}
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}

	forward := cam.LookAt.Sub(cam.Position).Normalize()
	if forward.LenSq() == 0 {
		forward = scene.V(0, 0, -1)
	}
	right := forward.Cross(up).Normalize()
	if right.LenSq() == 0 {
		right = scene.V(1, 0, 0)
	}

	return Projector{
		eye:     cam.Position,
		right:   right,
		upv:     right.Cross(forward),
		forward: forward,
		focal:   1 / math.Tan(fov*math.Pi/360),
		width:   width,
		height:  height,
		aspect:  width / height,
	}
}

// Project maps a world position to surface pixels. Points behind the near
// plane are reported invisible.
func (p Projector) Project(w scene.Vec3) Point {
	d := w.Sub(p.eye)
	z := d.Dot(p.forward)
	if z < NearPlane {
		return Point{Depth: z}
	}
	ndcX := d.Dot(p.right) * p.focal / (z * p.aspect)
	ndcY := d.Dot(p.upv) * p.focal / z
	return Point{
		X:       (ndcX + 1) / 2 * p.width,
		Y:       (1 - ndcY) / 2 * p.height,
		Depth:   z,
		Unit:    p.focal / z * p.height / 2,
		Visible: true,
	}
}

// Orient applies the group rotation of a frame: yaw about Y, then pitch
// about X.
func Orient(v, rotation scene.Vec3) scene.Vec3 {
	return v.RotateY(rotation.Y).RotateX(rotation.X)
}
