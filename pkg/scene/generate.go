package scene

import (
	"math"
	"math/rand"
	"time"
)

const (
	// MinRadius is the inner radius of the spherical shell
	MinRadius = 3.0
	// MaxRadius is the exclusive outer radius of the shell
	MaxRadius = 7.0
	// EdgeDistSq is the squared distance below which a pair may be linked
	EdgeDistSq = 9.0
	// EdgeKeep is the probability a candidate pair becomes an edge
	EdgeKeep = 0.4
	// PacketShare is the probability an edge carries a packet
	PacketShare = 0.3
	// MinPacketSpeed and MaxPacketSpeed bound packet lap speed
	MinPacketSpeed = 0.2
	MaxPacketSpeed = 0.5
	// DefaultNodeCount is the node count of the portfolio background
	DefaultNodeCount = 40
)

// Generator builds random scenes. It is not safe for concurrent use.
type Generator struct {
	rng *rand.Rand
}

// NewGenerator creates a generator drawing from src.
// A nil src seeds from the clock.
func NewGenerator(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rng: rand.New(src)}
}

// Generate builds a scene with n nodes. Negative counts produce an empty
// scene. Every call allocates fresh slices.
func (g *Generator) Generate(n int) Scene {
	if n < 0 {
		n = 0
	}
	nodes := g.nodes(n)
	edges := g.edges(nodes)
	return Scene{
		Nodes:   nodes,
		Edges:   edges,
		Packets: g.packets(edges),
	}
}

func (g *Generator) nodes(n int) []Node {
	nodes := make([]Node, n)
	for i := range nodes {
		theta := g.rng.Float64() * 2 * math.Pi
		phi := math.Acos(2*g.rng.Float64() - 1)
		r := MinRadius + g.rng.Float64()*(MaxRadius-MinRadius)
		// Float64 can round r up to MaxRadius when the draw is close to 1
		if r >= MaxRadius {
			r = math.Nextafter(MaxRadius, 0)
		}
		sinPhi := math.Sin(phi)
		nodes[i] = Node{
			Position: Vec3{
				X: r * sinPhi * math.Cos(theta),
				Y: r * sinPhi * math.Sin(theta),
				Z: r * math.Cos(phi),
			},
			Category: g.category(),
		}
	}
	return nodes
}

// category draws the same cascade the scene was designed with:
// 15% threat, then half of the rest primary, then 70/30 secondary/safe.
func (g *Generator) category() Category {
	switch {
	case g.rng.Float64() > 0.85:
		return Threat
	case g.rng.Float64() > 0.5:
		return Primary
	case g.rng.Float64() > 0.3:
		return Secondary
	default:
		return Safe
	}
}

// edges is quadratic in the node count.
func (g *Generator) edges(nodes []Node) []Edge {
	edges := make([]Edge, 0, len(nodes))
	for i := 0; i < len(nodes); i++ {
		for j := i + 1; j < len(nodes); j++ {
			if nodes[i].Position.DistSq(nodes[j].Position) >= EdgeDistSq {
				continue
			}
			if g.rng.Float64() > 1-EdgeKeep {
				edges = append(edges, Edge{A: i, B: j})
			}
		}
	}
	return edges
}

func (g *Generator) packets(edges []Edge) []Packet {
	packets := make([]Packet, 0, len(edges)/3+1)
	for i := range edges {
		if g.rng.Float64() <= 1-PacketShare {
			continue
		}
		packets = append(packets, Packet{
			Edge:  i,
			Speed: MinPacketSpeed + g.rng.Float64()*(MaxPacketSpeed-MinPacketSpeed),
			Phase: g.rng.Float64(),
		})
	}
	return packets
}

// Validate reports whether every edge and packet references a valid target
func (s *Scene) Validate() bool {
	for _, e := range s.Edges {
		if e.A < 0 || e.B >= len(s.Nodes) || e.A >= e.B {
			return false
		}
	}
	for _, p := range s.Packets {
		if p.Edge < 0 || p.Edge >= len(s.Edges) {
			return false
		}
		if p.Phase < 0 || p.Phase >= 1 {
			return false
		}
	}
	return true
}
