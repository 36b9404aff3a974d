// Copyright 2015 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package analysis

import (
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/aclements/go-nettrace/eventpipe"
)

// FlameNode is one node of a call-tree flame graph: a method plus the
// weight (sample count or bytes, depending on which builder produced
// the tree) attributed to every stack that passed through it at this
// position in the tree (spec.md §4.10).
//
// Key identifies the node's position: the hash of its parent's Key
// combined with its own name, not just the name, so that two
// different call paths which happen to share a leaf function name get
// distinct nodes. Hash collisions between genuinely different paths
// are possible but vanishingly unlikely for realistic trace sizes
// (spec.md's Open Question on flame-graph node identity resolves in
// favor of this simplified weighting scheme over a fully qualified
// path string, matching how arloliu-mebo keys its metric series by
// hashed label sets rather than the label strings themselves).
type FlameNode struct {
	Key      uint64
	Name     string
	Value    uint64
	Children []*FlameNode

	childIdx map[uint64]*FlameNode
}

func newFlameRoot() *FlameNode {
	return &FlameNode{Name: "root", childIdx: make(map[uint64]*FlameNode)}
}

func (n *FlameNode) child(name string) *FlameNode {
	key := childKey(n.Key, name)
	if c, ok := n.childIdx[key]; ok {
		return c
	}
	c := &FlameNode{Key: key, Name: name, childIdx: make(map[uint64]*FlameNode)}
	n.childIdx[key] = c
	n.Children = append(n.Children, c)
	return c
}

func childKey(parent uint64, name string) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for i := range buf {
		buf[i] = byte(parent >> (8 * i))
	}
	d.Write(buf[:])
	d.WriteString(name)
	return d.Sum64()
}

// sortChildren orders a node's children by descending value for
// stable, most-expensive-first rendering.
func sortChildren(n *FlameNode) {
	sort.Slice(n.Children, func(i, j int) bool {
		if n.Children[i].Value != n.Children[j].Value {
			return n.Children[i].Value > n.Children[j].Value
		}
		return n.Children[i].Name < n.Children[j].Name
	})
	for _, c := range n.Children {
		sortChildren(c)
	}
}

// BuildCPUFlame builds a CPU-sample flame graph rooted at the
// synthetic "root" node, walking each sampled stack from caller to
// leaf (spec.md §4.10; StackRecord.Addresses is leaf-first, so frames
// are walked in reverse).
func BuildCPUFlame(result *eventpipe.ParseResult, r *Resolver) *FlameNode {
	root := newFlameRoot()
	for stackID, count := range result.CPUSamples {
		addStackToFlame(root, result.Stacks[stackID], r, count)
	}
	sortChildren(root)
	return root
}

// BuildAllocationFlame builds a flame graph weighted by bytes
// allocated rather than sample count (spec.md §4.10).
func BuildAllocationFlame(result *eventpipe.ParseResult, r *Resolver) *FlameNode {
	root := newFlameRoot()
	for stackID, samples := range result.AllocationSamples {
		addStackToFlame(root, result.Stacks[stackID], r, samples.TotalSize)
	}
	sortChildren(root)
	return root
}

// FlameRow is one flattened flame-graph node, in the [x0, x1) interval
// layout conventional for flame-graph rendering: siblings tile
// left-to-right in proportion to their weight, and a child's interval
// is nested within its parent's. X0/X1 are normalized against the
// root's total weight, so the whole tree spans [0,1] (spec.md §4.10),
// and Weight carries the node's raw sample count or byte count for
// callers that want the unnormalized value alongside the position
// (spec.md §6's CLI output is this flattened list, not a rendered
// image — rendering itself is a Non-goal).
type FlameRow struct {
	Method string
	Depth  int
	Weight uint64
	X0, X1 float64
}

// Flatten walks root depth-first and returns one FlameRow per node
// below the synthetic root (the root itself is never emitted), with
// positions normalized to [0,1] against root.Value.
func Flatten(root *FlameNode) []FlameRow {
	if root.Value == 0 {
		return nil
	}
	total := float64(root.Value)

	var rows []FlameRow
	var walk func(n *FlameNode, depth int, x0 float64)
	walk = func(n *FlameNode, depth int, x0 float64) {
		width := float64(n.Value) / total
		x1 := x0 + width
		if depth > 0 {
			rows = append(rows, FlameRow{Method: n.Name, Depth: depth, Weight: n.Value, X0: x0, X1: x1})
		}
		childX := x0
		for _, c := range n.Children {
			childWidth := float64(c.Value) / total
			walk(c, depth+1, childX)
			childX += childWidth
		}
	}
	walk(root, 0, 0)
	return rows
}

func addStackToFlame(root *FlameNode, stack *eventpipe.StackRecord, r *Resolver, weight uint64) {
	if stack == nil || len(stack.Addresses) == 0 {
		return
	}
	resolved := r.ResolveStack(stack.Addresses)

	node := root
	node.Value += weight
	for i := len(resolved) - 1; i >= 0; i-- {
		node = node.child(resolved[i].FullName())
		node.Value += weight
	}
}
