package vdom

import (
	"fmt"
	"sort"
)

// PatchOp represents the type of patch operation
type PatchOp uint8

const (
	// OpReplaceText replaces text node content
	OpReplaceText PatchOp = 0x01
	// OpSetAttribute sets or replaces an attribute
	OpSetAttribute PatchOp = 0x02
	// OpReplaceNode replaces a whole subtree
	OpReplaceNode PatchOp = 0x03
	// OpRemoveAttribute removes an attribute
	OpRemoveAttribute PatchOp = 0x06
)

// Patch represents a single markup mutation. NodeID is the 1-based
// pre-order position of the target node in the previous tree.
type Patch struct {
	Op     PatchOp
	NodeID uint32
	Key    string // Attribute key for set/remove attribute
	Value  string // Text content or attribute value
	Node   *VNode // For replace operations
}

// String returns a human-readable representation of the patch
func (p Patch) String() string {
	switch p.Op {
	case OpReplaceText:
		return fmt.Sprintf("ReplaceText(node=%d, text=%q)", p.NodeID, p.Value)
	case OpSetAttribute:
		return fmt.Sprintf("SetAttribute(node=%d, key=%q, value=%q)", p.NodeID, p.Key, p.Value)
	case OpRemoveAttribute:
		return fmt.Sprintf("RemoveAttribute(node=%d, key=%q)", p.NodeID, p.Key)
	case OpReplaceNode:
		return fmt.Sprintf("ReplaceNode(node=%d)", p.NodeID)
	default:
		return fmt.Sprintf("Unknown(op=%d)", p.Op)
	}
}

// DiffContext holds state during diffing
type DiffContext struct {
	patches []Patch
}

// addPatch adds a patch to the context
func (ctx *DiffContext) addPatch(patch Patch) {
	ctx.patches = append(ctx.patches, patch)
}

// Diff computes the patches needed to transform prev into next. Subtrees
// whose shape changed (kind, tag, key or child count) are replaced whole;
// everything else becomes attribute and text updates.
func Diff(prev, next *VNode) []Patch {
	ctx := &DiffContext{patches: make([]Patch, 0, 16)}
	if prev == nil || next == nil {
		if next != nil {
			ctx.addPatch(Patch{Op: OpReplaceNode, NodeID: 1, Node: next})
		}
		return ctx.patches
	}
	diffNode(ctx, prev, next, 1)
	return ctx.patches
}

// diffNode diffs two nodes; id is prev's pre-order position
func diffNode(ctx *DiffContext, prev, next *VNode, id uint32) {
	if !sameShape(prev, next) {
		ctx.addPatch(Patch{Op: OpReplaceNode, NodeID: id, Node: next})
		return
	}

	switch prev.Kind {
	case KindText:
		if prev.Text != next.Text {
			ctx.addPatch(Patch{Op: OpReplaceText, NodeID: id, Value: next.Text})
		}
		return
	case KindElement:
		diffProps(ctx, id, prev.Props, next.Props)
	}

	// Children are numbered after their parent, depth first
	childID := id + 1
	for i := range prev.Kids {
		diffNode(ctx, &prev.Kids[i], &next.Kids[i], childID)
		childID += uint32(prev.Kids[i].Count())
	}
}

// sameShape reports whether next can be patched in place of prev
func sameShape(prev, next *VNode) bool {
	if prev.Kind != next.Kind || len(prev.Kids) != len(next.Kids) {
		return false
	}
	if prev.Kind == KindElement && prev.Tag != next.Tag {
		return false
	}
	return prev.GetKey() == next.GetKey()
}

// diffProps diffs attributes in sorted key order so patches are stable
func diffProps(ctx *DiffContext, nodeID uint32, prevProps, nextProps Props) {
	for _, key := range sortedKeys(prevProps) {
		if key == "key" {
			continue
		}
		if _, exists := nextProps[key]; !exists {
			ctx.addPatch(Patch{Op: OpRemoveAttribute, NodeID: nodeID, Key: key})
		}
	}

	for _, key := range sortedKeys(nextProps) {
		if key == "key" {
			continue
		}
		nextVal := nextProps[key]
		prevVal, exists := prevProps[key]
		if exists && propsEqual(prevVal, nextVal) {
			continue
		}
		ctx.addPatch(Patch{
			Op:     OpSetAttribute,
			NodeID: nodeID,
			Key:    key,
			Value:  PropToString(nextVal),
		})
	}
}

func sortedKeys(p Props) []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func propsEqual(a, b any) bool {
	return PropToString(a) == PropToString(b)
}

// PropToString formats an attribute value the way renderers write it
func PropToString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
