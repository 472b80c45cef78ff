package surface

import (
	"sort"

	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/raster"
	"github.com/recera/netgraph/pkg/scene"
)

// cellAspect is the height of a terminal cell relative to its width
const cellAspect = 2

// Terminal rasterizes frames of one scene into a character grid
type Terminal struct {
	scene *scene.Scene
	nodes []Point
	order []int
}

// NewTerminal creates a terminal renderer for s
func NewTerminal(s *scene.Scene) *Terminal {
	order := make([]int, len(s.Nodes))
	for i := range order {
		order[i] = i
	}
	return &Terminal{
		scene: s,
		nodes: make([]Point, len(s.Nodes)),
		order: order,
	}
}

// Draw clears c and draws f onto it. Nearer nodes cover farther ones;
// edges only fill empty cells.
func (r *Terminal) Draw(c *raster.Canvas, f *motion.Frame) {
	c.Clear()
	if c.W == 0 || c.H == 0 {
		return
	}
	proj := NewProjector(f.Camera, float64(c.W), float64(c.H*cellAspect))
	cell := func(p Point) (int, int) {
		return int(p.X), int(p.Y / cellAspect)
	}

	s := r.scene
	for i, n := range s.Nodes {
		r.nodes[i] = proj.Project(Orient(n.Position.Add(f.Nodes[i].Offset), f.Rotation))
	}
	sort.Slice(r.order, func(a, b int) bool {
		return r.nodes[r.order[a]].Depth > r.nodes[r.order[b]].Depth
	})

	for _, i := range r.order {
		p := r.nodes[i]
		if !p.Visible {
			continue
		}
		x, y := cell(p)
		glyph := '•'
		if f.Nodes[i].Scale*p.Unit >= 1 {
			glyph = '●'
		}
		c.Set(x, y, glyph, s.Nodes[i].Category.Color())
	}

	for _, pk := range f.Packets {
		p := proj.Project(Orient(pk.Position, f.Rotation))
		if !p.Visible {
			continue
		}
		x, y := cell(p)
		c.SetIfBlank(x, y, '∗', PacketColor)
	}

	for _, e := range s.Edges {
		a := proj.Project(Orient(s.Nodes[e.A].Position, f.Rotation))
		b := proj.Project(Orient(s.Nodes[e.B].Position, f.Rotation))
		if !a.Visible || !b.Visible {
			continue
		}
		x0, y0 := cell(a)
		x1, y1 := cell(b)
		c.Line(x0, y0, x1, y1, '·', EdgeColor)
	}
}
