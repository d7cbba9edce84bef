// Package cfg lowers a Java method body into a control-flow graph of basic
// blocks.
//
// Each block holds the syntax elements it evaluates, in post-order, and ends
// with a Terminator that decides which successor runs next. Elements that
// may throw inside a try region end their block and carry exception
// successors. A built CFG is immutable and can be shared between goroutines.
package cfg

import (
	"fmt"
	"strings"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

type TerminatorKind int

const (
	Jump TerminatorKind = iota
	Branch
	ShortCircuitAnd
	ShortCircuitOr
	Switch
	ForEach
	Return
	Throw
	Exit
)

var terminatorNames = map[TerminatorKind]string{
	Jump:            "jump",
	Branch:          "branch",
	ShortCircuitAnd: "and",
	ShortCircuitOr:  "or",
	Switch:          "switch",
	ForEach:         "foreach",
	Return:          "return",
	Throw:           "throw",
	Exit:            "exit",
}

func (k TerminatorKind) String() string {
	if name, ok := terminatorNames[k]; ok {
		return name
	}
	return "unknown"
}

// Terminator ends a block. Node is the syntax that produced it: the
// condition of a Branch, the binary expression of a short circuit, the
// switch, the loop, or the return/throw statement.
type Terminator struct {
	Kind TerminatorKind
	Node *parser.Node
}

type Block struct {
	ID         int
	Elements   []*parser.Node
	Terminator Terminator

	// Successors are ordered. For Branch, [0] is the true edge and [1] the
	// false edge. For short circuits, [0] evaluates the right operand and
	// [1] skips it.
	Successors          []*Block
	ExceptionSuccessors []*Block
	Predecessors        []*Block

	Dead bool
}

func (b *Block) String() string {
	return fmt.Sprintf("B%d", b.ID)
}

// EndsWithThrowingElement reports whether the last element of the block
// may throw and has somewhere to go when it does.
func (b *Block) EndsWithThrowingElement() bool {
	if len(b.Elements) == 0 || len(b.ExceptionSuccessors) == 0 {
		return false
	}
	return CanThrow(b.Elements[len(b.Elements)-1])
}

// Handler is one entry of the exception table.
type Handler struct {
	Covered    []*Block
	Handler    *Block
	CatchTypes []string
}

type CFG struct {
	Entry    *Block
	Exit     *Block
	Blocks   []*Block
	Handlers []Handler
	Escapes  map[*parser.Node]*CFG
	Method   *parser.Node

	info semantic.Info
}

// LiveBlocks returns the blocks reachable from Entry, in reverse postorder.
func (g *CFG) LiveBlocks() []*Block {
	for i, b := range g.Blocks {
		if b.Dead {
			return g.Blocks[:i]
		}
	}
	return g.Blocks
}

// Order implements graph.Iterator from github.com/yourbasic/graph.
func (g *CFG) Order() int {
	return len(g.Blocks)
}

// Visit implements graph.Iterator. Both normal and exceptional successors
// are edges.
func (g *CFG) Visit(v int, do func(w int, c int64) bool) bool {
	return blockGraph(g.Blocks).Visit(v, do)
}

// String renders a stable dump of the graph, one block per paragraph.
func (g *CFG) String() string {
	var sb strings.Builder
	for _, b := range g.Blocks {
		sb.WriteString(b.String())
		switch {
		case b == g.Entry && b == g.Exit:
			sb.WriteString(" (entry, exit)")
		case b == g.Entry:
			sb.WriteString(" (entry)")
		case b == g.Exit:
			sb.WriteString(" (exit)")
		case b.Dead:
			sb.WriteString(" (dead)")
		}
		sb.WriteString("\n")
		for i, e := range b.Elements {
			fmt.Fprintf(&sb, "  %d: %s %s\n", i, e.Kind, elementText(e))
		}
		if b != g.Exit {
			fmt.Fprintf(&sb, "  %s", b.Terminator.Kind)
			if b.Terminator.Node != nil {
				fmt.Fprintf(&sb, " %s", elementText(b.Terminator.Node))
			}
			sb.WriteString(" ->" + blockList(b.Successors))
			if len(b.ExceptionSuccessors) > 0 {
				sb.WriteString(" !>" + blockList(b.ExceptionSuccessors))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

func blockList(blocks []*Block) string {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(" " + b.String())
	}
	return sb.String()
}

func elementText(n *parser.Node) string {
	switch n.Kind {
	case parser.KindVariableDeclarator:
		return n.DeclaredName().TokenLiteral()
	case parser.KindBinaryExpr, parser.KindAssignExpr:
		return n.Operator()
	case parser.KindUnaryExpr:
		return n.Operator() + "_"
	case parser.KindPostfixExpr:
		return "_" + n.Operator()
	case parser.KindCatchClause:
		return n.DeclaredName().TokenLiteral()
	}
	return n.Text()
}

// CanThrow reports whether evaluating the element may raise an exception
// that the graph models with an edge.
func CanThrow(n *parser.Node) bool {
	switch n.Kind {
	case parser.KindCallExpr, parser.KindNewExpr, parser.KindExplicitConstructorInvocation:
		return true
	}
	return false
}
