package checks

import (
	"fmt"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/se"
	"github.com/dhamidi/symbex/se/constraint"
)

// NullDereference reports member accesses, calls, array accesses, locks
// and loops over values known to be null on some path.
type NullDereference struct {
	se.BaseDetector
}

func NewNullDereference() se.Detector {
	return &NullDereference{}
}

func (d *NullDereference) Name() string { return "S2259" }

// dereferenced returns the expression n dereferences and how deep its
// value sits on the stack when n executes.
func dereferenced(n *parser.Node) (*parser.Node, int) {
	switch n.Kind {
	case parser.KindFieldAccess:
		return n.Child(0), 0
	case parser.KindCallExpr:
		return n.Receiver(), len(n.Arguments())
	case parser.KindArrayAccess:
		return n.Child(0), 1
	case parser.KindSynchronizedStmt:
		return n.Child(0), 0
	case parser.KindEnhancedForStmt:
		for i, child := range n.Children {
			if child.Kind == parser.KindVariableDeclarator {
				return n.Child(i + 1), 0
			}
		}
	case parser.KindAssignExpr:
		switch lhs := parser.Unparen(n.Child(0)); lhs.Kind {
		case parser.KindFieldAccess:
			return lhs.Child(0), 1
		case parser.KindArrayAccess:
			return lhs.Child(0), 2
		}
	}
	return nil, 0
}

func (d *NullDereference) PreStatement(ctx *se.CheckerContext, n *parser.Node) []*se.ProgramState {
	s := ctx.State()
	target, depth := dereferenced(n)
	if target == nil {
		return []*se.ProgramState{s}
	}
	if !s.HasConstraint(s.Peek(depth), constraint.Null) {
		return []*se.ProgramState{s}
	}
	ctx.Report(target, fmt.Sprintf("A \"NullPointerException\" could be thrown; \"%s\" is nullable here.", target.Text()))
	return nil
}

func (d *NullDereference) PostStatement(ctx *se.CheckerContext, n *parser.Node) []*se.ProgramState {
	s := ctx.State()
	var target *parser.Node
	var value *se.Value
	switch n.Kind {
	case parser.KindVariableDeclarator:
		if n.Initializer() != nil {
			target = n.DeclaredName()
			value, _ = s.Binding(ctx.Info().SymbolOf(target))
		}
	case parser.KindAssignExpr:
		if n.Operator() == "=" {
			target, value = parser.Unparen(n.Child(0)), s.Peek(0)
		}
	}
	if target != nil && s.HasConstraint(value, constraint.Null) {
		ctx.Annotate(n, fmt.Sprintf("'%s' is assigned null.", target.Text()))
	}
	return []*se.ProgramState{s}
}

// OnBranch explains where a variable became null: the first condition
// that made it so.
func (d *NullDereference) OnBranch(ctx *se.CheckerContext, cond *parser.Node, outcome bool) []*se.ProgramState {
	s, pre := ctx.State(), ctx.PreviousState()
	info := ctx.Info()
	parser.Walk(cond, func(n *parser.Node) bool {
		switch n.Kind {
		case parser.KindLambdaExpr, parser.KindNewExpr:
			return false
		}
		sym := variable(info, n)
		if sym == nil {
			return true
		}
		v, ok := s.Binding(sym)
		if ok && s.HasConstraint(v, constraint.Null) && !pre.HasConstraint(v, constraint.Null) {
			ctx.Annotate(cond, fmt.Sprintf("Implies '%s' can be null.", sym.Name))
		}
		return n.Kind != parser.KindFieldAccess
	})
	return []*se.ProgramState{s}
}
