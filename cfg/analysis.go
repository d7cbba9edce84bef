package cfg

import (
	"sort"
	"strings"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/yourbasic/graph"
	"gonum.org/v1/gonum/graph/flow"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/dhamidi/symbex/java/parser"
)

// blockGraph adapts a block table, indexed by block ID, to graph.Iterator.
type blockGraph []*Block

func (bg blockGraph) Order() int {
	return len(bg)
}

func (bg blockGraph) Visit(v int, do func(w int, c int64) bool) bool {
	b := bg[v]
	for _, succ := range b.Successors {
		if do(succ.ID, 0) {
			return true
		}
	}
	for _, succ := range b.ExceptionSuccessors {
		if do(succ.ID, 1) {
			return true
		}
	}
	return false
}

func successorsOf(b *Block) []*Block {
	all := make([]*Block, 0, len(b.Successors)+len(b.ExceptionSuccessors))
	all = append(all, b.Successors...)
	return append(all, b.ExceptionSuccessors...)
}

// finish numbers the blocks, marks dead code, drops the empty unreachable
// blocks left behind by jumps and fills in predecessors and handlers.
func (b *builder) finish(entry *Block) {
	arena := blockGraph(b.blocks)

	live := roaring.New()
	live.Add(uint32(entry.ID))
	graph.BFS(arena, entry.ID, func(_, w int, _ int64) {
		live.Add(uint32(w))
	})

	var post []*Block
	visited := roaring.New()
	var dfs func(*Block)
	dfs = func(blk *Block) {
		visited.Add(uint32(blk.ID))
		for _, succ := range successorsOf(blk) {
			if !visited.Contains(uint32(succ.ID)) {
				dfs(succ)
			}
		}
		post = append(post, blk)
	}
	dfs(entry)

	// Unreachable code is kept when it holds elements, together with
	// everything it can flow into.
	keep := live.Clone()
	keep.Add(uint32(b.exit.ID))
	var pending []*Block
	for _, blk := range b.blocks {
		if !live.Contains(uint32(blk.ID)) && len(blk.Elements) > 0 {
			pending = append(pending, blk)
		}
	}
	for len(pending) > 0 {
		blk := pending[len(pending)-1]
		pending = pending[:len(pending)-1]
		if keep.Contains(uint32(blk.ID)) {
			continue
		}
		keep.Add(uint32(blk.ID))
		pending = append(pending, successorsOf(blk)...)
	}

	ordered := make([]*Block, 0, keep.GetCardinality())
	for i := len(post) - 1; i >= 0; i-- {
		ordered = append(ordered, post[i])
	}
	for _, blk := range b.blocks {
		if keep.Contains(uint32(blk.ID)) && !live.Contains(uint32(blk.ID)) {
			blk.Dead = true
			ordered = append(ordered, blk)
		}
	}

	kept := make(map[*Block]bool, len(ordered))
	for i, blk := range ordered {
		blk.ID = i
		kept[blk] = true
	}

	type edge struct{ from, to *Block }
	seen := make(map[edge]bool)
	for _, blk := range ordered {
		for _, succ := range successorsOf(blk) {
			e := edge{blk, succ}
			if seen[e] {
				continue
			}
			seen[e] = true
			succ.Predecessors = append(succ.Predecessors, blk)
		}
	}

	b.g.Entry = entry
	b.g.Exit = b.exit
	b.g.Blocks = ordered

	for _, h := range b.handlers {
		if !kept[h.entry] {
			continue
		}
		handler := Handler{Handler: h.entry}
		if h.clause != nil {
			handler.CatchTypes = catchTypes(h.clause)
		}
		for _, blk := range ordered {
			if covers(blk, h.entry) {
				handler.Covered = append(handler.Covered, blk)
			}
		}
		b.g.Handlers = append(b.g.Handlers, handler)
	}
}

func covers(blk, handler *Block) bool {
	for _, succ := range blk.ExceptionSuccessors {
		if succ == handler {
			return true
		}
	}
	if blk.Terminator.Kind == Throw {
		for _, succ := range blk.Successors {
			if succ == handler {
				return true
			}
		}
	}
	return false
}

func catchTypes(clause *parser.Node) []string {
	wrapper := clause.FirstChildOfKind(parser.KindType)
	if wrapper == nil {
		return nil
	}
	var types []string
	for _, t := range wrapper.Children {
		types = append(types, typeText(t))
	}
	return types
}

func typeText(t *parser.Node) string {
	if t.Token != nil {
		return t.Token.Literal
	}
	var parts []string
	for _, child := range t.Children {
		switch child.Kind {
		case parser.KindIdentifier, parser.KindQualifiedName:
			parts = append(parts, child.Text())
		}
	}
	return strings.Join(parts, ".")
}

// Dominators returns the immediate dominator of every live block except
// Entry, keyed by block ID.
func (g *CFG) Dominators() map[int]int {
	live := g.LiveBlocks()
	dg := simple.NewDirectedGraph()
	for _, b := range live {
		dg.AddNode(simple.Node(b.ID))
	}
	for _, b := range live {
		for _, succ := range successorsOf(b) {
			if succ != b {
				dg.SetEdge(dg.NewEdge(simple.Node(b.ID), simple.Node(succ.ID)))
			}
		}
	}

	tree := flow.Dominators(simple.Node(g.Entry.ID), dg)
	idom := make(map[int]int, len(live))
	for _, b := range live {
		if b == g.Entry {
			continue
		}
		if d := tree.DominatorOf(int64(b.ID)); d != nil {
			idom[b.ID] = int(d.ID())
		}
	}
	return idom
}

func dominates(idom map[int]int, a, b int) bool {
	for {
		if a == b {
			return true
		}
		next, ok := idom[b]
		if !ok {
			return false
		}
		b = next
	}
}

// BackEdges returns the edges whose target dominates their source, sorted
// by source then target.
func (g *CFG) BackEdges() [][2]int {
	idom := g.Dominators()
	var edges [][2]int
	for _, b := range g.LiveBlocks() {
		for _, succ := range successorsOf(b) {
			if dominates(idom, succ.ID, b.ID) {
				edges = append(edges, [2]int{b.ID, succ.ID})
			}
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i][0] != edges[j][0] {
			return edges[i][0] < edges[j][0]
		}
		return edges[i][1] < edges[j][1]
	})
	return edges
}

// LoopHeads returns the targets of back edges in ascending order.
func (g *CFG) LoopHeads() []int {
	heads := roaring.New()
	for _, e := range g.BackEdges() {
		heads.Add(uint32(e[1]))
	}
	var result []int
	it := heads.Iterator()
	for it.HasNext() {
		result = append(result, int(it.Next()))
	}
	return result
}

// Cycles returns the strongly connected components that contain a cycle,
// each sorted, ordered by their smallest block.
func (g *CFG) Cycles() [][]int {
	var cycles [][]int
	for _, component := range graph.StrongComponents(g) {
		if len(component) == 1 && !selfLoop(g.Blocks[component[0]]) {
			continue
		}
		sort.Ints(component)
		cycles = append(cycles, component)
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0] < cycles[j][0]
	})
	return cycles
}

func selfLoop(b *Block) bool {
	for _, succ := range successorsOf(b) {
		if succ == b {
			return true
		}
	}
	return false
}
