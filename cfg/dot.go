package cfg

import (
	"fmt"
	"strings"

	"github.com/emicklei/dot"
)

// Dot renders the graph in Graphviz format. Exception edges are dotted and
// dead blocks dashed.
func (g *CFG) Dot() string {
	d := dot.NewGraph(dot.Directed)
	nodes := make(map[*Block]dot.Node, len(g.Blocks))
	for _, b := range g.Blocks {
		n := d.Node(b.String()).Box().Attr("label", blockLabel(g, b))
		if b.Dead {
			n.Attr("style", "dashed")
		}
		nodes[b] = n
	}

	for _, b := range g.Blocks {
		for i, succ := range b.Successors {
			e := d.Edge(nodes[b], nodes[succ])
			if label := edgeLabel(b, i); label != "" {
				e.Attr("label", label)
			}
		}
		for _, succ := range b.ExceptionSuccessors {
			d.Edge(nodes[b], nodes[succ]).Attr("style", "dotted")
		}
	}
	return d.String()
}

func blockLabel(g *CFG, b *Block) string {
	var sb strings.Builder
	sb.WriteString(b.String())
	switch b {
	case g.Entry:
		sb.WriteString(" entry")
	case g.Exit:
		sb.WriteString(" exit")
	}
	for _, e := range b.Elements {
		fmt.Fprintf(&sb, "\n%s %s", e.Kind, elementText(e))
	}
	if b != g.Exit {
		fmt.Fprintf(&sb, "\n[%s]", b.Terminator.Kind)
	}
	return sb.String()
}

func edgeLabel(b *Block, i int) string {
	switch b.Terminator.Kind {
	case Branch:
		if i == 0 {
			return "true"
		}
		return "false"
	case ShortCircuitAnd, ShortCircuitOr:
		if i == 0 {
			return "eval"
		}
		return "short"
	case ForEach:
		if i == 0 {
			return "next"
		}
		return "done"
	case Switch:
		if i == len(b.Successors)-1 {
			return "default"
		}
		return fmt.Sprintf("case %d", i)
	}
	return ""
}
