package fallback

import (
	"strings"
	"testing"

	"github.com/recera/netgraph/pkg/renderer/html"
	"github.com/recera/netgraph/pkg/vdom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(n *vdom.VNode, tag string) int {
	c := 0
	if n.Kind == vdom.KindElement && n.Tag == tag {
		c++
	}
	for i := range n.Kids {
		c += count(&n.Kids[i], tag)
	}
	return c
}

func TestRender_Composition(t *testing.T) {
	root := Render(Options{})
	require.Equal(t, "svg", root.Tag)
	assert.Equal(t, "100%", root.Props["width"])
	assert.Equal(t, "100%", root.Props["height"])
	assert.Equal(t, "0 0 1600 900", root.Props["viewBox"])
	assert.Equal(t, "fallback", root.Props["data-mode"])

	assert.Equal(t, 5, count(root, "circle"))
	assert.Equal(t, 3, count(root, "line"))
	assert.Equal(t, 1, count(root, "pattern"))
	assert.Equal(t, 1, count(root, "radialGradient"))
	assert.Equal(t, 0, count(root, "animate"), "static unless pulse is requested")
}

func TestRender_Pulse(t *testing.T) {
	assert.Equal(t, 5, count(Render(Options{Pulse: true}), "animate"))
	assert.Equal(t, 0, count(Render(Options{Pulse: true, ReduceMotion: true}), "animate"))
}

func TestRender_Deterministic(t *testing.T) {
	a, err := html.RenderToString(Render(Options{Width: 800, Height: 600}))
	require.NoError(t, err)
	b, err := html.RenderToString(Render(Options{Width: 800, Height: 600}))
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "<svg "))
	assert.Contains(t, a, `cx="200"`)
	assert.Contains(t, a, `cy="200"`)
	assert.Contains(t, a, `viewBox="0 0 800 600"`)
	assert.Empty(t, vdom.Diff(Render(Options{}), Render(Options{})))
}

func TestRenderText(t *testing.T) {
	out := RenderText(40, 12)
	rows := strings.Split(out, "\n")
	require.Len(t, rows, 12)
	for _, r := range rows {
		assert.Equal(t, 40, len([]rune(r)))
	}
	assert.Equal(t, 2, strings.Count(out, "O"))
	assert.Equal(t, 3, strings.Count(out, "o"))
	assert.Contains(t, rows[6], "─")
	assert.Contains(t, out, "·")
}

func TestRenderText_Empty(t *testing.T) {
	assert.Equal(t, "", RenderText(0, 0))
	assert.Equal(t, "", RenderText(-3, 5))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "533.33", num(1600.0/3))
	assert.Equal(t, "40", num(40))
	assert.Equal(t, "0.05", num(0.05))
}
