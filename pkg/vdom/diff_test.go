package vdom

import (
	"reflect"
	"testing"
)

func TestDiff_TextNodes(t *testing.T) {
	tests := []struct {
		name     string
		prev     *VNode
		next     *VNode
		expected []Patch
	}{
		{
			name: "text content change",
			prev: NewText("Hello"),
			next: NewText("World"),
			expected: []Patch{
				{Op: OpReplaceText, NodeID: 1, Value: "World"},
			},
		},
		{
			name:     "text content unchanged",
			prev:     NewText("Same"),
			next:     NewText("Same"),
			expected: []Patch{},
		},
		{
			name: "text to element",
			prev: NewText("Text"),
			next: NewElement("g", nil),
			expected: []Patch{
				{Op: OpReplaceNode, NodeID: 1, Node: NewElement("g", nil)},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := Diff(tt.prev, tt.next)
			if !patchesEqual(patches, tt.expected) {
				t.Errorf("Diff() = %v, want %v", patches, tt.expected)
			}
		})
	}
}

func TestDiff_Attributes(t *testing.T) {
	tests := []struct {
		name     string
		prev     *VNode
		next     *VNode
		expected []Patch
	}{
		{
			name: "attribute changed",
			prev: NewElement("circle", Props{"cx": "1", "cy": "2"}),
			next: NewElement("circle", Props{"cx": "1", "cy": "3"}),
			expected: []Patch{
				{Op: OpSetAttribute, NodeID: 1, Key: "cy", Value: "3"},
			},
		},
		{
			name: "attribute added and removed in key order",
			prev: NewElement("circle", Props{"r": "1", "opacity": "0.5"}),
			next: NewElement("circle", Props{"r": "1", "fill": "#fff"}),
			expected: []Patch{
				{Op: OpRemoveAttribute, NodeID: 1, Key: "opacity"},
				{Op: OpSetAttribute, NodeID: 1, Key: "fill", Value: "#fff"},
			},
		},
		{
			name:     "numeric values compare by formatting",
			prev:     NewElement("line", Props{"x1": 2}),
			next:     NewElement("line", Props{"x1": "2"}),
			expected: []Patch{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patches := Diff(tt.prev, tt.next)
			if !patchesEqual(patches, tt.expected) {
				t.Errorf("Diff() = %v, want %v", patches, tt.expected)
			}
		})
	}
}

func TestDiff_PreOrderNodeIDs(t *testing.T) {
	build := func(r string) *VNode {
		return NewElement("svg", nil,
			NewElement("g", nil,
				NewElement("line", Props{"x1": "0"}),
				NewElement("line", Props{"x1": "1"}),
			),
			NewElement("g", nil,
				NewElement("circle", Props{"r": r}),
			),
		)
	}

	patches := Diff(build("1"), build("2"))
	expected := []Patch{
		{Op: OpSetAttribute, NodeID: 6, Key: "r", Value: "2"},
	}
	if !patchesEqual(patches, expected) {
		t.Errorf("Diff() = %v, want %v", patches, expected)
	}
}

func TestDiff_ShapeChangeReplacesSubtree(t *testing.T) {
	prev := NewElement("svg", nil,
		NewElement("g", nil, NewElement("circle", nil)),
		NewElement("rect", Props{"width": "1"}),
	)
	next := NewElement("svg", nil,
		NewElement("g", nil, NewElement("circle", nil), NewElement("circle", nil)),
		NewElement("rect", Props{"width": "2"}),
	)

	patches := Diff(prev, next)
	if len(patches) != 2 {
		t.Fatalf("Expected 2 patches, got %v", patches)
	}
	if patches[0].Op != OpReplaceNode || patches[0].NodeID != 2 {
		t.Errorf("Expected subtree replace at node 2, got %v", patches[0])
	}
	if patches[1].Op != OpSetAttribute || patches[1].NodeID != 4 {
		t.Errorf("Expected attribute patch at node 4 numbered in prev, got %v", patches[1])
	}
}

func TestDiff_KeyChangeReplaces(t *testing.T) {
	prev := NewElement("g", Props{"key": "active"})
	next := NewElement("g", Props{"key": "fallback"})
	patches := Diff(prev, next)
	if len(patches) != 1 || patches[0].Op != OpReplaceNode {
		t.Errorf("Expected replace, got %v", patches)
	}
}

func TestDiff_NilTrees(t *testing.T) {
	if got := Diff(nil, nil); len(got) != 0 {
		t.Errorf("Expected no patches, got %v", got)
	}
	next := NewText("x")
	got := Diff(nil, next)
	if len(got) != 1 || got[0].Op != OpReplaceNode || got[0].Node != next {
		t.Errorf("Expected mount patch, got %v", got)
	}
}

func TestVNode_Count(t *testing.T) {
	tree := NewElement("svg", nil, NewElement("g", nil, NewText("a"), NewText("b")), nil)
	if tree.Count() != 4 {
		t.Errorf("Expected 4 nodes, got %d", tree.Count())
	}
}

// patchesEqual compares patch lists, treating nil and empty as equal
func patchesEqual(a, b []Patch) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
