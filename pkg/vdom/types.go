package vdom

// VKind represents the type of virtual node
type VKind uint8

const (
	// KindElement represents an element node
	KindElement VKind = iota
	// KindText represents a text node
	KindText
	// KindFragment represents a fragment (multiple children without parent)
	KindFragment
)

// Props represents the attributes of a VNode
type Props map[string]any

// VNode represents a virtual markup node
// This struct is immutable - once created, it should never be modified
type VNode struct {
	// Kind determines the type of this node
	Kind VKind

	// Tag is the element tag name (e.g., "svg", "circle")
	// Only used when Kind == KindElement
	Tag string

	// Props contains all attributes for this node
	Props Props

	// Kids contains child nodes
	// For KindText, this is nil
	Kids []VNode

	// Key identifies a child across renders
	// Empty string means no key
	Key string

	// Text content (only used when Kind == KindText)
	Text string
}

// NewElement creates a new element VNode
func NewElement(tag string, props Props, children ...*VNode) *VNode {
	key := ""
	if props != nil {
		if k, ok := props["key"].(string); ok {
			key = k
		}
	}

	return &VNode{
		Kind:  KindElement,
		Tag:   tag,
		Props: props,
		Kids:  flatten(children),
		Key:   key,
	}
}

// NewText creates a new text VNode
func NewText(text string) *VNode {
	return &VNode{
		Kind: KindText,
		Text: text,
	}
}

// NewFragment creates a new fragment VNode
func NewFragment(children ...*VNode) *VNode {
	return &VNode{
		Kind: KindFragment,
		Kids: flatten(children),
	}
}

// flatten converts children pointers to values, dropping nils
func flatten(children []*VNode) []VNode {
	kids := make([]VNode, 0, len(children))
	for _, child := range children {
		if child != nil {
			kids = append(kids, *child)
		}
	}
	return kids
}

// IsElement returns true if this is an element node
func (v VNode) IsElement() bool {
	return v.Kind == KindElement
}

// IsText returns true if this is a text node
func (v VNode) IsText() bool {
	return v.Kind == KindText
}

// IsFragment returns true if this is a fragment node
func (v VNode) IsFragment() bool {
	return v.Kind == KindFragment
}

// GetKey returns the key of this node, handling the Props map safely
func (v VNode) GetKey() string {
	if v.Props != nil {
		if key, ok := v.Props["key"].(string); ok {
			return key
		}
	}
	return v.Key
}

// Count returns the number of nodes in the tree rooted at v
func (v *VNode) Count() int {
	if v == nil {
		return 0
	}
	n := 1
	for i := range v.Kids {
		n += v.Kids[i].Count()
	}
	return n
}
