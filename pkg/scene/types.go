package scene

// Category classifies a node for color and base size
type Category uint8

const (
	// Primary nodes are the most common highlighted nodes
	Primary Category = iota
	// Secondary nodes are muted infrastructure nodes
	Secondary
	// Threat nodes are drawn larger and in red
	Threat
	// Safe nodes are green endpoints
	Safe
)

// String returns the category name
func (c Category) String() string {
	switch c {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	case Threat:
		return "threat"
	case Safe:
		return "safe"
	default:
		return "unknown"
	}
}

// Color returns the hex color used for the category
func (c Category) Color() string {
	switch c {
	case Secondary:
		return "#4a7dbd"
	case Threat:
		return "#e05050"
	case Safe:
		return "#4ade80"
	default:
		return "#00d4ff"
	}
}

// BaseScale returns the resting radius of a node of this category
func (c Category) BaseScale() float64 {
	switch c {
	case Threat:
		return 0.12
	case Primary:
		return 0.10
	default:
		return 0.07
	}
}

// Node is a single point of the network. Nodes are immutable after generation.
type Node struct {
	Position Vec3
	Category Category
}

// Edge connects two nodes by index into Scene.Nodes. A < B always holds.
type Edge struct {
	A, B int
}

// Packet is a particle travelling along one edge
type Packet struct {
	// Edge is an index into Scene.Edges
	Edge int
	// Speed is the number of laps per simulated second
	Speed float64
	// Phase offsets the lap parameter, in [0,1)
	Phase float64
}

// Scene is one generated graph. Edges and packets reference their
// targets by index, so Nodes and Edges must never be reordered.
type Scene struct {
	Nodes   []Node
	Edges   []Edge
	Packets []Packet
}

// Endpoints returns the two node positions of edge i
func (s *Scene) Endpoints(i int) (Vec3, Vec3) {
	e := s.Edges[i]
	return s.Nodes[e.A].Position, s.Nodes[e.B].Position
}
