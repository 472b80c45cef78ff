// Package raster draws into a fixed character grid for terminal output.
package raster

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Blank is the rune of an empty cell
const Blank = ' '

// Cell is one character position
type Cell struct {
	Rune rune
	// Color is a lipgloss color string; empty means the terminal default
	Color string
}

// Canvas is a width×height grid of cells. The origin is the top left.
type Canvas struct {
	W, H  int
	cells []Cell
}

// New creates a blank canvas. A canvas with no width or no height is empty.
func New(w, h int) *Canvas {
	if w <= 0 || h <= 0 {
		w, h = 0, 0
	}
	c := &Canvas{W: w, H: h, cells: make([]Cell, w*h)}
	c.Clear()
	return c
}

// Clear blanks every cell
func (c *Canvas) Clear() {
	for i := range c.cells {
		c.cells[i] = Cell{Rune: Blank}
	}
}

// Set writes a cell; out of range positions are ignored
func (c *Canvas) Set(x, y int, r rune, color string) bool {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return false
	}
	c.cells[y*c.W+x] = Cell{Rune: r, Color: color}
	return true
}

// SetIfBlank writes a cell only when nothing was drawn there yet
func (c *Canvas) SetIfBlank(x, y int, r rune, color string) bool {
	if x < 0 || y < 0 || x >= c.W || y >= c.H || c.cells[y*c.W+x].Rune != Blank {
		return false
	}
	c.cells[y*c.W+x] = Cell{Rune: r, Color: color}
	return true
}

// At returns the cell at x, y or a blank cell when out of range
func (c *Canvas) At(x, y int) Cell {
	if x < 0 || y < 0 || x >= c.W || y >= c.H {
		return Cell{Rune: Blank}
	}
	return c.cells[y*c.W+x]
}

// Line draws a line with Bresenham's algorithm without overwriting
// anything already drawn
func (c *Canvas) Line(x0, y0, x1, y1 int, r rune, color string) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		c.SetIfBlank(x0, y0, r, color)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

// Plain returns the canvas as text without colors
func (c *Canvas) Plain() string {
	var b strings.Builder
	b.Grow(c.H * (c.W + 1))
	for y := 0; y < c.H; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < c.W; x++ {
			b.WriteRune(c.cells[y*c.W+x].Rune)
		}
	}
	return b.String()
}

// Styled returns the canvas with runs of equally colored cells rendered
// through lipgloss
func (c *Canvas) Styled() string {
	var b strings.Builder
	var run strings.Builder
	flush := func(color string) {
		if run.Len() == 0 {
			return
		}
		if color == "" {
			b.WriteString(run.String())
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(run.String()))
		}
		run.Reset()
	}

	for y := 0; y < c.H; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		current := ""
		for x := 0; x < c.W; x++ {
			cell := c.cells[y*c.W+x]
			if cell.Color != current {
				flush(current)
				current = cell.Color
			}
			run.WriteRune(cell.Rune)
		}
		flush(current)
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
