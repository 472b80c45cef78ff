package html

import (
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/recera/netgraph/pkg/vdom"
)

// voidElements are HTML elements that cannot have children
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// booleanAttributes are HTML attributes that are boolean flags
var booleanAttributes = map[string]bool{
	"checked":   true,
	"disabled":  true,
	"readonly":  true,
	"required":  true,
	"selected":  true,
	"defer":     true,
	"async":     true,
	"multiple":  true,
	"autofocus": true,
}

// HTMLApplier renders VNodes to HTML and inline SVG markup
type HTMLApplier struct {
	w   io.Writer
	err error
}

// NewHTMLApplier creates a new HTML applier
func NewHTMLApplier(w io.Writer) *HTMLApplier {
	return &HTMLApplier{w: w}
}

// Apply renders a VNode tree to markup
func (a *HTMLApplier) Apply(prev, next *vdom.VNode) error {
	if prev != nil {
		return fmt.Errorf("htmlApplier does not support incremental updates")
	}

	if next == nil {
		return nil
	}

	a.renderNode(next)
	return a.err
}

// write helper that tracks errors
func (a *HTMLApplier) write(s string) {
	if a.err != nil {
		return
	}
	_, a.err = io.WriteString(a.w, s)
}

// renderNode renders a single VNode
func (a *HTMLApplier) renderNode(node *vdom.VNode) {
	if node == nil || a.err != nil {
		return
	}

	switch node.Kind {
	case vdom.KindText:
		// HTML escape text content to prevent XSS
		a.write(html.EscapeString(node.Text))

	case vdom.KindElement:
		a.renderElement(node)

	case vdom.KindFragment:
		// Fragments just render their children
		for i := range node.Kids {
			a.renderNode(&node.Kids[i])
		}
	}
}

// renderElement renders an element node
func (a *HTMLApplier) renderElement(node *vdom.VNode) {
	// Start tag
	a.write("<")
	a.write(node.Tag)

	// Attributes are written in key order so output is byte-stable
	keys := make([]string, 0, len(node.Props))
	for key := range node.Props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := node.Props[key]
		// Skip special props and anything that looks like a script hook
		if key == "key" || (len(key) > 2 && strings.EqualFold(key[:2], "on")) {
			continue
		}

		// Handle boolean attributes
		if booleanAttributes[key] {
			if v, ok := value.(bool); ok && v {
				a.write(" ")
				a.write(key)
			}
			continue
		}

		valueStr := vdom.PropToString(value)

		// Security: prevent javascript: URLs in href/src attributes
		if (key == "href" || key == "src" || key == "xlink:href") &&
			strings.HasPrefix(strings.ToLower(strings.TrimSpace(valueStr)), "javascript:") {
			valueStr = "#"
		}

		a.write(" ")
		a.write(key)
		a.write(`="`)
		a.write(html.EscapeString(valueStr))
		a.write(`"`)
	}

	// Close opening tag
	a.write(">")

	// Void elements don't have closing tags or children
	if voidElements[node.Tag] {
		return
	}

	// Style and script content is raw text and must not be escaped
	isRawTextElement := node.Tag == "style" || node.Tag == "script"
	for i := range node.Kids {
		if isRawTextElement {
			a.renderRawNode(&node.Kids[i])
		} else {
			a.renderNode(&node.Kids[i])
		}
	}

	// Closing tag
	a.write("</")
	a.write(node.Tag)
	a.write(">")
}

// renderRawNode renders a node without HTML escaping (for style content)
func (a *HTMLApplier) renderRawNode(node *vdom.VNode) {
	if node == nil || a.err != nil {
		return
	}

	switch node.Kind {
	case vdom.KindText:
		// A closing tag inside raw text would end the element early
		a.write(strings.ReplaceAll(node.Text, "</", `<\/`))

	case vdom.KindElement:
		a.renderElement(node)

	case vdom.KindFragment:
		for i := range node.Kids {
			a.renderRawNode(&node.Kids[i])
		}
	}
}

// RenderToString is a convenience function to render a VNode to a string
func RenderToString(node *vdom.VNode) (string, error) {
	var buf strings.Builder
	applier := NewHTMLApplier(&buf)
	err := applier.Apply(nil, node)
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Render writes node to w
func Render(w io.Writer, node *vdom.VNode) error {
	return NewHTMLApplier(w).Apply(nil, node)
}
