package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/recera/netgraph/pkg/fallback"
	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/raster"
	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/surface"
)

const renderRate = 60

type renderFlags struct {
	scroll   float64
	elapsed  float64
	reduce   bool
	fallback bool
	text     bool
	color    bool
	width    int
	height   int
	seed     int64
	nodes    int
	out      string
}

func newRenderCommand() *cobra.Command {
	var f renderFlags

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render one frame of the scene as SVG or text",
		Example: `  netgraph render --seed 7 -t 2.5 -o scene.svg
  netgraph render --text --width 100 --height 30
  netgraph render --fallback -o fallback.svg`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("seed") {
				f.seed = cfg.Scene.Seed
			}
			if !cmd.Flags().Changed("nodes") {
				f.nodes = cfg.Scene.Nodes
			}
			if !cmd.Flags().Changed("width") {
				f.width = cfg.Render.Width
				if f.text {
					f.width = 80
				}
			}
			if !cmd.Flags().Changed("height") {
				f.height = cfg.Render.Height
				if f.text {
					f.height = 24
				}
			}
			if !(f.elapsed >= 0) || math.IsInf(f.elapsed, 0) {
				return fmt.Errorf("invalid time %v", f.elapsed)
			}
			if math.IsNaN(f.scroll) {
				return fmt.Errorf("invalid scroll %v", f.scroll)
			}

			w := cmd.OutOrStdout()
			if f.out != "" && f.out != "-" {
				file, err := os.Create(f.out)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			bw := bufio.NewWriter(w)
			if err := runRender(bw, f); err != nil {
				return err
			}
			return bw.Flush()
		},
	}

	cmd.Flags().Float64VarP(&f.scroll, "scroll", "s", 0, "Scroll progress in [0,1]")
	cmd.Flags().Float64VarP(&f.elapsed, "time", "t", 0, "Seconds of animation to simulate")
	cmd.Flags().BoolVar(&f.reduce, "reduce", false, "Render the reduced-motion rest frame")
	cmd.Flags().BoolVar(&f.fallback, "fallback", false, "Render the static fallback instead of the scene")
	cmd.Flags().BoolVar(&f.text, "text", false, "Render into a character grid")
	cmd.Flags().BoolVar(&f.color, "color", false, "Color the character grid")
	cmd.Flags().IntVar(&f.width, "width", 0, "Width in pixels, or columns with --text")
	cmd.Flags().IntVar(&f.height, "height", 0, "Height in pixels, or rows with --text")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Scene seed (0 picks one from the clock)")
	cmd.Flags().IntVar(&f.nodes, "nodes", 0, "Number of scene nodes")
	cmd.Flags().StringVarP(&f.out, "out", "o", "-", "Output file")

	return cmd
}

func generator(seed int64) *scene.Generator {
	if seed == 0 {
		return scene.NewGenerator(nil)
	}
	return scene.NewGenerator(rand.NewSource(seed))
}

// simulate steps a fresh model to elapsed seconds at renderRate
func simulate(m *motion.Model, elapsed, scroll float64) *motion.Frame {
	steps := int(math.Min(elapsed*renderRate, 3600*renderRate))
	frame := m.Step(0, scroll)
	for i := 1; i <= steps; i++ {
		frame = m.Step(float64(i)/renderRate, scroll)
	}
	return frame
}

func runRender(w io.Writer, f renderFlags) error {
	if f.fallback {
		if f.text {
			c := fallback.Canvas(f.width, f.height)
			return writeCanvas(w, c, f.color)
		}
		root := fallback.Render(fallback.Options{Width: f.width, Height: f.height, Pulse: !f.reduce})
		return html.Render(w, root)
	}

	s := generator(f.seed).Generate(f.nodes)
	m := motion.New(&s, motion.DefaultOptions())
	var frame *motion.Frame
	if f.reduce {
		frame = m.Rest()
	} else {
		frame = simulate(m, f.elapsed, f.scroll)
	}

	if f.text {
		c := raster.New(f.width, f.height)
		surface.NewTerminal(&s).Draw(c, frame)
		return writeCanvas(w, c, f.color)
	}
	vp := surface.Viewport{Width: f.width, Height: f.height, PixelRatio: 1}
	return html.Render(w, surface.NewSVG(&s, vp).Render(frame))
}

func writeCanvas(w io.Writer, c *raster.Canvas, color bool) error {
	text := c.Plain()
	if color {
		text = c.Styled()
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
