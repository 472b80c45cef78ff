package motion

import "github.com/recera/netgraph/pkg/scene"

// NodeState is the per-frame visual state of one node
type NodeState struct {
	// Offset is the float bob added to the node's fixed position
	Offset scene.Vec3
	// Scale is the core sphere radius
	Scale float64
	// GlowOpacity is the opacity of the halo drawn around the core
	GlowOpacity float64
}

// PacketState is the per-frame visual state of one packet
type PacketState struct {
	Position scene.Vec3
	// T is the lap parameter in [0,1)
	T    float64
	Size float64
}

// Camera is a perspective camera pose
type Camera struct {
	Position scene.Vec3
	LookAt   scene.Vec3
	// FOV is the vertical field of view in degrees
	FOV float64
}

// Frame is everything a surface needs to draw one picture of the scene.
// Frames returned by a Model are reused by its next call.
type Frame struct {
	Elapsed float64
	Scroll  float64

	Nodes   []NodeState
	Packets []PacketState
	Camera  Camera

	// Rotation holds the group pitch (X) and yaw (Y) in radians
	Rotation scene.Vec3

	// Frozen marks a rest frame produced while motion is reduced
	Frozen bool
}

// Clone returns a deep copy of f that is safe to keep across steps
func (f *Frame) Clone() *Frame {
	c := *f
	c.Nodes = append([]NodeState(nil), f.Nodes...)
	c.Packets = append([]PacketState(nil), f.Packets...)
	return &c
}
