package surface

import (
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/recera/netgraph/pkg/motion"
	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/scene"
	"github.com/recera/netgraph/pkg/vdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScene(t *testing.T) *scene.Scene {
	t.Helper()
	s := scene.NewGenerator(rand.NewSource(7)).Generate(40)
	require.NotEmpty(t, s.Edges)
	return &s
}

func restCam() motion.Camera {
	return motion.Camera{Position: scene.V(0, 0, 12), FOV: 60}
}

func TestProject_Center(t *testing.T) {
	p := NewProjector(restCam(), 800, 600).Project(scene.V(0, 0, 0))
	require.True(t, p.Visible)
	assert.InDelta(t, 400, p.X, 1e-9)
	assert.InDelta(t, 300, p.Y, 1e-9)
	assert.InDelta(t, 12, p.Depth, 1e-9)

	// tan(30°) * 12 world units reach the top edge
	top := NewProjector(restCam(), 800, 600).Project(scene.V(0, 12*math.Tan(math.Pi/6), 0))
	assert.InDelta(t, 0, top.Y, 1e-9)
}

func TestProject_AxesAndCulling(t *testing.T) {
	proj := NewProjector(restCam(), 800, 600)
	right := proj.Project(scene.V(1, 0, 0))
	upper := proj.Project(scene.V(0, 1, 0))
	assert.Greater(t, right.X, 400.0)
	assert.Less(t, upper.Y, 300.0)

	behind := proj.Project(scene.V(0, 0, 13))
	assert.False(t, behind.Visible)
}

func TestProject_Perspective(t *testing.T) {
	proj := NewProjector(restCam(), 800, 600)
	near := proj.Project(scene.V(0, 0, 6))
	far := proj.Project(scene.V(0, 0, -6))
	assert.Greater(t, near.Unit, far.Unit)
}

func TestOrient(t *testing.T) {
	v := Orient(scene.V(1, 0, 0), scene.V(0, math.Pi/2, 0))
	assert.InDelta(t, 0, v.X, 1e-9)
	assert.InDelta(t, -1, v.Z, 1e-9)
	assert.Equal(t, scene.V(1, 2, 3), Orient(scene.V(1, 2, 3), scene.Vec3{}))
}

func TestSVG_StableShape(t *testing.T) {
	s := testScene(t)
	m := motion.New(s, motion.DefaultOptions())
	r := NewSVG(s, Viewport{Width: 800, Height: 600, PixelRatio: 1.5})

	first := r.Render(m.Step(0.5, 0.1))
	second := r.Render(m.Step(0.6, 0.2))

	assert.Equal(t, first.Count(), second.Count())
	patches := vdom.Diff(first, second)
	require.NotEmpty(t, patches)
	for _, p := range patches {
		assert.Equal(t, vdom.OpSetAttribute, p.Op, p.String())
	}

	rest := r.Render(m.Rest())
	assert.Equal(t, first.Count(), rest.Count())
	assert.Equal(t, "true", rest.Props["data-frozen"])
}

func TestSVG_RestHidesPackets(t *testing.T) {
	s := testScene(t)
	m := motion.New(s, motion.DefaultOptions())
	out, err := html.RenderToString(NewSVG(s, Viewport{}).Render(m.Rest()))
	require.NoError(t, err)

	assert.Contains(t, out, `viewBox="0 0 1600 900"`)
	assert.Contains(t, out, `width="100%"`)
	assert.Equal(t, len(s.Packets), strings.Count(out, `r="0" visibility="hidden"`))
}

func TestSVG_SnapsToDevicePixels(t *testing.T) {
	r := &SVG{vp: Viewport{Width: 10, Height: 10, PixelRatio: 1.5}}
	assert.Equal(t, "10", r.num(10.1))
	assert.Equal(t, "10.67", r.num(10.5))
	r.vp.PixelRatio = 1
	assert.Equal(t, "11", r.num(10.5))
}

func TestHub(t *testing.T) {
	var h Hub
	var got []string
	d1 := h.Attach(ListenerFunc(func(r string) { got = append(got, "a:"+r) }))
	d2 := h.Attach(ListenerFunc(func(r string) { got = append(got, "b:"+r) }))
	assert.Equal(t, 2, h.Attached())

	h.Lost("x")
	d1()
	d1()
	h.Lost("y")
	d2()
	h.Lost("z")

	assert.Equal(t, []string{"a:x", "b:x", "b:y"}, got)
	assert.Equal(t, 0, h.Attached())
}

func TestSVGSurface_Updates(t *testing.T) {
	s := testScene(t)
	m := motion.New(s, motion.DefaultOptions())

	var updates []Update
	surf := NewSVGSurface(Viewport{Width: 800, Height: 600}, func(u Update) error {
		updates = append(updates, u)
		return nil
	})

	assert.Error(t, surf.DrawFrame(m.Step(0, 0)), "nothing mounted")

	require.NoError(t, surf.MountFallback())
	require.Len(t, updates, 1)
	assert.Equal(t, ModeFallback, updates[0].Mode)
	require.NotNil(t, updates[0].Root)
	assert.Equal(t, "fallback", updates[0].Root.Props["data-mode"])

	require.NoError(t, surf.MountScene(s))
	assert.Len(t, updates, 1, "scene markup waits for the first frame")
	require.NoError(t, surf.DrawFrame(m.Step(0.1, 0)))
	require.NoError(t, surf.DrawFrame(m.Step(0.2, 0)))

	require.Len(t, updates, 3)
	assert.NotNil(t, updates[1].Root)
	assert.Equal(t, ModeScene, surf.Mode())
	assert.Nil(t, updates[2].Root)
	assert.NotEmpty(t, updates[2].Patches)
}

func TestTerminal_Draw(t *testing.T) {
	s := testScene(t)
	m := motion.New(s, motion.DefaultOptions())
	surf := NewTerminalSurface(80, 24, false)
	require.NoError(t, surf.MountScene(s))
	require.NoError(t, surf.DrawFrame(m.Step(1, 0)))

	view := surf.View()
	assert.Len(t, strings.Split(view, "\n"), 24)
	assert.True(t, strings.ContainsAny(view, "•●"))
	assert.Contains(t, view, "·")
}

func TestTerminalSurface_LostAndRestored(t *testing.T) {
	surf := NewTerminalSurface(80, 24, false)
	var reasons []string
	detach := surf.Attach(ListenerFunc(func(r string) { reasons = append(reasons, r) }))
	defer detach()

	assert.False(t, surf.Resize(10, 3))
	assert.False(t, surf.Resize(8, 2), "loss is reported once")
	require.Len(t, reasons, 1)
	assert.Contains(t, reasons[0], "too small")

	assert.Error(t, surf.MountScene(testScene(t)))
	assert.True(t, surf.Resize(100, 30))
	assert.False(t, surf.Resize(120, 40))
}

func TestTerminalSurface_Fallback(t *testing.T) {
	surf := NewTerminalSurface(40, 12, false)
	require.NoError(t, surf.MountFallback())
	assert.Equal(t, ModeFallback, surf.Mode())
	assert.Contains(t, surf.View(), "O")

	surf.Resize(60, 20)
	w, h := surf.Size()
	assert.Equal(t, 60, w)
	assert.Equal(t, 20, h)
	assert.Contains(t, surf.View(), "O")
}
