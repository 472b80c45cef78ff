// Package fallback renders the static 2D substitute for the animated scene.
// The composition is the same every time: a radial glow, five points, three
// connecting lines, a background grid and a horizontal rule.
package fallback

import (
	"fmt"
	"math"
	"strconv"

	"github.com/recera/netgraph/pkg/raster"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/vdom"
)

// Default viewBox size
const (
	DefaultWidth  = 1600
	DefaultHeight = 900
)

// LineColor is the hue of the connecting lines
const LineColor = "#1ad4e6"

// GridSpacing is the distance between grid lines in viewBox units
const GridSpacing = 40

// Point is one static node of the composition. X and Y are fractions of the
// surface size; Radius is in viewBox units.
type Point struct {
	X, Y     float64
	Radius   float64
	Category scene.Category
	Opacity  float64
	// Delay staggers the pulse animation, in seconds
	Delay float64
}

// Segment joins two fractional positions
type Segment struct {
	X1, Y1, X2, Y2 float64
}

// Points are the five static nodes
var Points = [5]Point{
	{X: 0.25, Y: 0.25, Radius: 6, Category: scene.Primary, Opacity: 0.4},
	{X: 0.75, Y: 1.0 / 3, Radius: 4, Category: scene.Secondary, Opacity: 0.4, Delay: 0.5},
	{X: 1.0 / 3, Y: 0.5, Radius: 8, Category: scene.Primary, Opacity: 0.3, Delay: 1},
	{X: 2.0 / 3, Y: 2.0 / 3, Radius: 4, Category: scene.Threat, Opacity: 0.4, Delay: 1.5},
	{X: 0.5, Y: 0.75, Radius: 6, Category: scene.Safe, Opacity: 0.4, Delay: 2},
}

// Segments are the three connecting lines
var Segments = [3]Segment{
	{X1: 0.25, Y1: 0.25, X2: 0.75, Y2: 1.0 / 3},
	{X1: 1.0 / 3, Y1: 0.5, X2: 2.0 / 3, Y2: 2.0 / 3},
	{X1: 0.25, Y1: 0.25, X2: 1.0 / 3, Y2: 0.5},
}

// Options configures Render
type Options struct {
	Width, Height int
	// Pulse adds slow opacity animations to the points
	Pulse bool
	// ReduceMotion drops the animations even when Pulse is set
	ReduceMotion bool
}

func (o Options) size() (float64, float64) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return float64(w), float64(h)
}

// Render builds the fallback as an SVG tree sized to its container
func Render(opts Options) *vdom.VNode {
	w, h := opts.size()
	animate := opts.Pulse && !opts.ReduceMotion

	defs := vdom.NewElement("defs", nil,
		vdom.NewElement("radialGradient", vdom.Props{"id": "fb-glow", "cx": "50%", "cy": "50%", "r": "70%"},
			stop("0%", scene.Primary.Color(), 0.05),
			stop("50%", scene.Primary.Color(), 0),
			stop("100%", scene.Primary.Color(), 0),
		),
		vdom.NewElement("linearGradient", vdom.Props{"id": "fb-line", "x1": "0%", "y1": "0%", "x2": "100%", "y2": "0%"},
			stop("0%", LineColor, 0),
			stop("50%", LineColor, 0.5),
			stop("100%", LineColor, 0),
		),
		vdom.NewElement("linearGradient", vdom.Props{"id": "fb-rule", "x1": "0%", "y1": "0%", "x2": "100%", "y2": "0%"},
			stop("0%", scene.Primary.Color(), 0),
			stop("50%", scene.Primary.Color(), 0.3),
			stop("100%", scene.Primary.Color(), 0),
		),
		vdom.NewElement("pattern", vdom.Props{
			"id":           "fb-grid",
			"width":        num(GridSpacing),
			"height":       num(GridSpacing),
			"patternUnits": "userSpaceOnUse",
		},
			vdom.NewElement("path", vdom.Props{
				"d":            fmt.Sprintf("M %d 0 L 0 0 0 %d", GridSpacing, GridSpacing),
				"fill":         "none",
				"stroke":       scene.Primary.Color(),
				"stroke-width": "0.5",
			}),
		),
	)

	points := make([]*vdom.VNode, 0, len(Points))
	for i, p := range Points {
		var kids []*vdom.VNode
		if animate {
			kids = append(kids, vdom.NewElement("animate", vdom.Props{
				"attributeName": "opacity",
				"values":        fmt.Sprintf("%s;%s;%s", num(p.Opacity), num(p.Opacity/2), num(p.Opacity)),
				"dur":           "3s",
				"begin":         num(p.Delay) + "s",
				"repeatCount":   "indefinite",
			}))
		}
		points = append(points, vdom.NewElement("circle", vdom.Props{
			"key":     "fb-point-" + strconv.Itoa(i),
			"cx":      num(p.X * w),
			"cy":      num(p.Y * h),
			"r":       num(p.Radius),
			"fill":    p.Category.Color(),
			"opacity": num(p.Opacity),
		}, kids...))
	}

	lines := make([]*vdom.VNode, 0, len(Segments))
	for _, s := range Segments {
		lines = append(lines, vdom.NewElement("line", vdom.Props{
			"x1":           num(s.X1 * w),
			"y1":           num(s.Y1 * h),
			"x2":           num(s.X2 * w),
			"y2":           num(s.Y2 * h),
			"stroke":       "url(#fb-line)",
			"stroke-width": "1",
		}))
	}

	return vdom.NewElement("svg", vdom.Props{
		"xmlns":               "http://www.w3.org/2000/svg",
		"class":               "netgraph netgraph-fallback",
		"data-mode":           "fallback",
		"width":               "100%",
		"height":              "100%",
		"viewBox":             fmt.Sprintf("0 0 %s %s", num(w), num(h)),
		"preserveAspectRatio": "xMidYMid slice",
		"aria-hidden":         "true",
	},
		defs,
		vdom.NewElement("rect", vdom.Props{"width": "100%", "height": "100%", "fill": "url(#fb-glow)"}),
		vdom.NewElement("rect", vdom.Props{"width": "100%", "height": "100%", "fill": "url(#fb-grid)", "opacity": "0.2"}),
		vdom.NewElement("g", vdom.Props{"class": "fb-lines", "opacity": "0.2"}, lines...),
		vdom.NewElement("g", vdom.Props{"class": "fb-points"}, points...),
		vdom.NewElement("rect", vdom.Props{
			"class":  "fb-rule",
			"x":      num(w / 4),
			"y":      num(h / 2),
			"width":  num(w / 2),
			"height": "1",
			"fill":   "url(#fb-rule)",
		}),
	)
}

func stop(offset, color string, opacity float64) *vdom.VNode {
	return vdom.NewElement("stop", vdom.Props{
		"offset":       offset,
		"stop-color":   color,
		"stop-opacity": num(opacity),
	})
}

// num formats a coordinate with at most two decimals
func num(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// RenderText draws the fallback into a width×height character grid
func RenderText(width, height int) string {
	return Canvas(width, height).Plain()
}

// Canvas draws the fallback into a raster canvas with colors
func Canvas(width, height int) *raster.Canvas {
	c := raster.New(width, height)
	if width == 0 || height == 0 {
		return c
	}
	at := func(fx, fy float64) (int, int) {
		return int(fx * float64(width-1)), int(fy * float64(height-1))
	}

	for i, p := range Points {
		x, y := at(p.X, p.Y)
		r := 'o'
		if p.Radius >= 8 || i == 0 {
			r = 'O'
		}
		c.Set(x, y, r, p.Category.Color())
	}
	for _, s := range Segments {
		x1, y1 := at(s.X1, s.Y1)
		x2, y2 := at(s.X2, s.Y2)
		c.Line(x1, y1, x2, y2, '·', LineColor)
	}

	ry := height / 2
	for x := width / 4; x < width*3/4; x++ {
		c.SetIfBlank(x, ry, '─', scene.Primary.Color())
	}

	gx, gy := gridStep(width, height)
	for y := 0; y < height; y += gy {
		for x := 0; x < width; x += gx {
			c.SetIfBlank(x, y, '+', "#1e2a38")
		}
	}
	return c
}

// gridStep keeps the grid sparse on small terminals
func gridStep(width, height int) (int, int) {
	gx, gy := 8, 4
	if width < 40 {
		gx = 4
	}
	if height < 12 {
		gy = 2
	}
	return gx, gy
}
