package se

import (
	"container/heap"
	"fmt"

	"github.com/dhamidi/symbex/cfg"
)

// Point is a program point: before element Index of Block, or before its
// terminator when Index equals the number of elements.
type Point struct {
	Block *cfg.Block
	Index int
}

func (p Point) String() string {
	return fmt.Sprintf("%s.%d", p.Block, p.Index)
}

// AtTerminator reports whether the point is past the last element.
func (p Point) AtTerminator() bool {
	return p.Index >= len(p.Block.Elements)
}

// Node is a vertex of the exploded graph: a program point reached with a
// particular state. Parent links lead back to the method entry along the
// path that produced the node.
type Node struct {
	ID     int
	Point  Point
	State  *ProgramState
	Parent *Node

	// Annotations are the flow messages recorded by detectors while
	// producing this node from its parent.
	Annotations []FlowStep

	entries *loopEntry
	seq     int
}

// loopEntry counts how often a path has entered a loop head. The list is
// shared between a node and its descendants.
type loopEntry struct {
	block int
	count int
	next  *loopEntry
}

func (l *loopEntry) visits(block int) int {
	for ; l != nil; l = l.next {
		if l.block == block {
			return l.count
		}
	}
	return 0
}

func (n *Node) String() string {
	return fmt.Sprintf("N%d@%s", n.ID, n.Point)
}

// worklist pops nodes in block order, then element order, then creation
// order.
type worklist []*Node

func (w worklist) Len() int { return len(w) }

func (w worklist) Less(i, j int) bool {
	a, b := w[i], w[j]
	if a.Point.Block.ID != b.Point.Block.ID {
		return a.Point.Block.ID < b.Point.Block.ID
	}
	if a.Point.Index != b.Point.Index {
		return a.Point.Index < b.Point.Index
	}
	return a.seq < b.seq
}

func (w worklist) Swap(i, j int) { w[i], w[j] = w[j], w[i] }

func (w *worklist) Push(x any) { *w = append(*w, x.(*Node)) }

func (w *worklist) Pop() any {
	old := *w
	n := old[len(old)-1]
	old[len(old)-1] = nil
	*w = old[:len(old)-1]
	return n
}

func (w *worklist) push(n *Node) { heap.Push(w, n) }

func (w *worklist) pop() *Node { return heap.Pop(w).(*Node) }
