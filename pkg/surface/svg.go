package surface

import (
	"fmt"
	"math"
	"strconv"

	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/vdom"
)

// Scene colors not tied to a node category
const (
	EdgeColor   = "#3a5a7a"
	PacketColor = "#00d4ff"
)

const (
	edgeOpacity   = 0.2
	packetOpacity = 0.8
	glowScale     = 2.5
)

// Viewport is the size of the drawing surface in CSS pixels
type Viewport struct {
	Width, Height int
	// PixelRatio is the device pixel ratio; coordinates are snapped to
	// device pixels
	PixelRatio float64
}

// DefaultViewport is used for zero sizes
var DefaultViewport = Viewport{Width: 1600, Height: 900, PixelRatio: 1}

func (v Viewport) normalized() Viewport {
	if v.Width <= 0 {
		v.Width = DefaultViewport.Width
	}
	if v.Height <= 0 {
		v.Height = DefaultViewport.Height
	}
	if !(v.PixelRatio > 0) {
		v.PixelRatio = 1
	}
	return v
}

// SVG renders frames of one scene as SVG trees. Every tree has the same
// shape, one keyed element per edge, node and packet, so consecutive trees
// differ only in attribute values.
type SVG struct {
	scene *scene.Scene
	vp    Viewport
}

// NewSVG creates a renderer for s
func NewSVG(s *scene.Scene, vp Viewport) *SVG {
	return &SVG{scene: s, vp: vp.normalized()}
}

// Viewport returns the normalized viewport
func (r *SVG) Viewport() Viewport {
	return r.vp
}

// num snaps v to the device pixel grid and formats it
func (r *SVG) num(v float64) string {
	dpr := r.vp.PixelRatio
	return strconv.FormatFloat(math.Round(math.Round(v*dpr)/dpr*100)/100, 'f', -1, 64)
}

func opacity(v float64) string {
	return strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
}

func visibility(visible bool) string {
	if visible {
		return "visible"
	}
	return "hidden"
}

// Render draws f. f must come from a model of the same scene.
func (r *SVG) Render(f *motion.Frame) *vdom.VNode {
	w, h := float64(r.vp.Width), float64(r.vp.Height)
	proj := NewProjector(f.Camera, w, h)
	s := r.scene

	edges := make([]*vdom.VNode, len(s.Edges))
	for i, e := range s.Edges {
		a := proj.Project(Orient(s.Nodes[e.A].Position, f.Rotation))
		b := proj.Project(Orient(s.Nodes[e.B].Position, f.Rotation))
		edges[i] = vdom.NewElement("line", vdom.Props{
			"key":        "e" + strconv.Itoa(i),
			"x1":         r.num(a.X),
			"y1":         r.num(a.Y),
			"x2":         r.num(b.X),
			"y2":         r.num(b.Y),
			"visibility": visibility(a.Visible && b.Visible),
		})
	}

	glows := make([]*vdom.VNode, len(s.Nodes))
	nodes := make([]*vdom.VNode, len(s.Nodes))
	for i, n := range s.Nodes {
		st := f.Nodes[i]
		p := proj.Project(Orient(n.Position.Add(st.Offset), f.Rotation))
		glows[i] = vdom.NewElement("circle", vdom.Props{
			"key":        "g" + strconv.Itoa(i),
			"cx":         r.num(p.X),
			"cy":         r.num(p.Y),
			"r":          r.num(st.Scale * glowScale * p.Unit),
			"fill":       "url(#ng-glow-" + n.Category.String() + ")",
			"opacity":    opacity(st.GlowOpacity),
			"visibility": visibility(p.Visible),
		})
		nodes[i] = vdom.NewElement("circle", vdom.Props{
			"key":        "n" + strconv.Itoa(i),
			"cx":         r.num(p.X),
			"cy":         r.num(p.Y),
			"r":          r.num(st.Scale * p.Unit),
			"fill":       n.Category.Color(),
			"visibility": visibility(p.Visible),
		})
	}

	packets := make([]*vdom.VNode, len(s.Packets))
	for i := range s.Packets {
		props := vdom.Props{"key": "p" + strconv.Itoa(i)}
		if i < len(f.Packets) {
			st := f.Packets[i]
			p := proj.Project(Orient(st.Position, f.Rotation))
			props["cx"] = r.num(p.X)
			props["cy"] = r.num(p.Y)
			props["r"] = r.num(st.Size * p.Unit)
			props["visibility"] = visibility(p.Visible)
		} else {
			// Packets are not drawn on rest frames
			props["cx"], props["cy"], props["r"] = "0", "0", "0"
			props["visibility"] = "hidden"
		}
		packets[i] = vdom.NewElement("circle", props)
	}

	gradients := make([]*vdom.VNode, 0, 4)
	for _, c := range []scene.Category{scene.Primary, scene.Secondary, scene.Threat, scene.Safe} {
		gradients = append(gradients, vdom.NewElement("radialGradient", vdom.Props{"id": "ng-glow-" + c.String()},
			vdom.NewElement("stop", vdom.Props{"offset": "0%", "stop-color": c.Color(), "stop-opacity": "1"}),
			vdom.NewElement("stop", vdom.Props{"offset": "100%", "stop-color": c.Color(), "stop-opacity": "0"}),
		))
	}

	return vdom.NewElement("svg", vdom.Props{
		"xmlns":               "http://www.w3.org/2000/svg",
		"class":               "netgraph netgraph-scene",
		"data-mode":           "scene",
		"data-frozen":         strconv.FormatBool(f.Frozen),
		"width":               "100%",
		"height":              "100%",
		"viewBox":             fmt.Sprintf("0 0 %d %d", r.vp.Width, r.vp.Height),
		"preserveAspectRatio": "xMidYMid slice",
		"aria-hidden":         "true",
	},
		vdom.NewElement("defs", nil, gradients...),
		vdom.NewElement("g", vdom.Props{"class": "ng-edges", "stroke": EdgeColor, "stroke-opacity": opacity(edgeOpacity), "stroke-width": "1"}, edges...),
		vdom.NewElement("g", vdom.Props{"class": "ng-glows"}, glows...),
		vdom.NewElement("g", vdom.Props{"class": "ng-nodes"}, nodes...),
		vdom.NewElement("g", vdom.Props{"class": "ng-packets", "fill": PacketColor, "fill-opacity": opacity(packetOpacity)}, packets...),
	)
}
