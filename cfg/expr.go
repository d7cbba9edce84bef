package cfg

import (
	"github.com/dhamidi/symbex/java/parser"
)

// expr appends the elements of an expression in evaluation order. Each
// operator follows its operands.
func (b *builder) expr(n *parser.Node) {
	if n == nil || b.err != nil {
		return
	}
	switch n.Kind {
	case parser.KindParenExpr:
		b.expr(n.Child(0))

	case parser.KindLambdaExpr:
		b.escape(n)
		b.add(n)

	case parser.KindFieldAccess:
		b.expr(n.Child(0))
		b.add(n)

	case parser.KindCallExpr:
		if recv := n.Receiver(); recv != nil {
			b.expr(recv)
		}
		for _, arg := range n.Arguments() {
			b.expr(arg)
		}
		b.add(n)

	case parser.KindNewExpr:
		if outer := n.Outer(); outer != nil {
			b.expr(outer)
		}
		for _, arg := range n.Arguments() {
			b.expr(arg)
		}
		if body := n.ClassBody(); body != nil {
			b.anonymousClass(body)
		}
		b.add(n)

	case parser.KindNewArrayExpr:
		for _, child := range n.Children[1:] {
			if child.Kind != parser.KindAnnotation {
				b.expr(child)
			}
		}
		b.add(n)

	case parser.KindArrayInit:
		for _, child := range n.Children {
			b.expr(child)
		}
		b.add(n)

	case parser.KindArrayAccess:
		b.expr(n.Child(0))
		b.expr(n.Child(1))
		b.add(n)

	case parser.KindAssignExpr:
		switch lhs := parser.Unparen(n.Child(0)); lhs.Kind {
		case parser.KindFieldAccess:
			b.expr(lhs.Child(0))
		case parser.KindArrayAccess:
			b.expr(lhs.Child(0))
			b.expr(lhs.Child(1))
		}
		b.expr(n.Child(2))
		b.add(n)

	case parser.KindUnaryExpr, parser.KindPostfixExpr:
		b.expr(n.Operand())
		b.add(n)

	case parser.KindBinaryExpr:
		switch n.Operator() {
		case "&&":
			b.shortCircuit(n, ShortCircuitAnd)
		case "||":
			b.shortCircuit(n, ShortCircuitOr)
		default:
			b.expr(n.Child(0))
			b.expr(n.Child(2))
			b.add(n)
		}

	case parser.KindTernaryExpr:
		then, otherwise, join := b.newBlock(), b.newBlock(), b.newBlock()
		b.cond(n.Child(0), then, otherwise)
		b.cur = then
		b.expr(n.Child(1))
		b.jump(join)
		b.cur = otherwise
		b.expr(n.Child(2))
		b.jump(join)
		b.cur = join

	case parser.KindCastExpr:
		b.expr(n.Child(1))
		b.add(n)

	case parser.KindInstanceofExpr:
		b.expr(n.Child(0))
		b.add(n)

	case parser.KindSwitchExpr:
		b.switchBlock(n, true)

	default:
		// Literals, names, this, class literals, method references and
		// anything unrecognised are leaves.
		b.add(n)
	}
}

// shortCircuit lowers && and || in value position. The left value stays
// on the stack along the short edge and is popped along the other.
func (b *builder) shortCircuit(n *parser.Node, kind TerminatorKind) {
	b.expr(n.Child(0))
	right, join := b.newBlock(), b.newBlock()
	b.seal(kind, n, right, join)
	b.cur = right
	b.expr(n.Child(2))
	b.jump(join)
	b.cur = join
}

// cond lowers a boolean expression in condition position into branches
// towards t and f.
func (b *builder) cond(n *parser.Node, t, f *Block) {
	n = parser.Unparen(n)
	if n == nil {
		b.jump(t)
		return
	}
	switch {
	case n.Kind == parser.KindUnaryExpr && n.Operator() == "!":
		b.cond(n.Operand(), f, t)
	case n.Kind == parser.KindBinaryExpr && n.Operator() == "&&":
		right := b.newBlock()
		b.cond(n.Child(0), right, f)
		b.cur = right
		b.cond(n.Child(2), t, f)
	case n.Kind == parser.KindBinaryExpr && n.Operator() == "||":
		right := b.newBlock()
		b.cond(n.Child(0), t, right)
		b.cur = right
		b.cond(n.Child(2), t, f)
	case n.Kind == parser.KindTernaryExpr:
		then, otherwise := b.newBlock(), b.newBlock()
		b.cond(n.Child(0), then, otherwise)
		b.cur = then
		b.cond(n.Child(1), t, f)
		b.cur = otherwise
		b.cond(n.Child(2), t, f)
	default:
		b.expr(n)
		b.seal(Branch, n, t, f)
	}
}
