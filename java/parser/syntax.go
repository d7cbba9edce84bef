package parser

import (
	"bytes"
	"errors"
	"fmt"
)

// ErrIncomplete is returned by Parse when the input ends before a complete
// compilation unit could be read.
var ErrIncomplete = errors.New("parser: incomplete or invalid syntax")

// Parse reads a whole compilation unit from src. Syntax errors inside the
// unit are kept as Error nodes; only truncated input yields an error.
func Parse(src []byte, file string) (*Node, error) {
	node := parseSource(src, file, (*Parser).parseCompilationUnit)
	if node == nil {
		return nil, fmt.Errorf("%s: %w", file, ErrIncomplete)
	}
	return node, nil
}

// IsArrowCase reports whether a SwitchCase or SwitchLabel uses the
// "case X ->" form, which never falls through.
func (n *Node) IsArrowCase() bool {
	return n.isArrowCase
}

// Child returns the i-th child, or nil when it does not exist.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// LastChild returns the final child, or nil for a leaf.
func (n *Node) LastChild() *Node {
	if n == nil || len(n.Children) == 0 {
		return nil
	}
	return n.Children[len(n.Children)-1]
}

// Operator returns the operator token of a unary, postfix, binary or
// assignment expression.
func (n *Node) Operator() string {
	switch n.Kind {
	case KindBinaryExpr, KindAssignExpr, KindPostfixExpr:
		return n.Child(1).TokenLiteral()
	case KindUnaryExpr:
		return n.Child(0).TokenLiteral()
	}
	return ""
}

// Operand returns the single operand of a unary or postfix expression.
func (n *Node) Operand() *Node {
	switch n.Kind {
	case KindUnaryExpr:
		return n.Child(1)
	case KindPostfixExpr:
		return n.Child(0)
	}
	return nil
}

// Unparen strips any number of enclosing parentheses.
func Unparen(n *Node) *Node {
	for n != nil && n.Kind == KindParenExpr {
		n = n.Child(0)
	}
	return n
}

// Walk visits n and its descendants in depth-first order. Returning false
// from fn skips the children of the current node.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, child := range n.Children {
		Walk(child, fn)
	}
}

// DeclaredName returns the identifier introduced by a VariableDeclarator,
// Parameter or CatchClause.
func (n *Node) DeclaredName() *Node {
	switch n.Kind {
	case KindVariableDeclarator:
		return n.Child(0)
	case KindParameter, KindCatchClause:
		ids := n.ChildrenOfKind(KindIdentifier)
		for i := len(ids) - 1; i >= 0; i-- {
			if ids[i].TokenLiteral() != "..." {
				return ids[i]
			}
		}
		return n.FirstChildOfKind(KindUnnamedVariable)
	}
	return nil
}

// Initializer returns the initializer expression of a VariableDeclarator.
func (n *Node) Initializer() *Node {
	if n.Kind != KindVariableDeclarator {
		return nil
	}
	return n.Child(1)
}

// Arguments returns the argument list of a call, instance creation or
// explicit constructor invocation.
func (n *Node) Arguments() []*Node {
	switch n.Kind {
	case KindCallExpr, KindNewExpr, KindExplicitConstructorInvocation:
		if args := n.FirstChildOfKind(KindParameters); args != nil {
			return args.Children
		}
	}
	return nil
}

// MethodName returns the simple name of the method invoked by a CallExpr.
func (n *Node) MethodName() string {
	if n.Kind != KindCallExpr {
		return ""
	}
	target := n.Child(0)
	switch target.Kind {
	case KindIdentifier:
		return target.TokenLiteral()
	case KindFieldAccess:
		return target.LastChild().TokenLiteral()
	}
	return ""
}

// Receiver returns the expression a CallExpr is invoked on, or nil for an
// unqualified call.
func (n *Node) Receiver() *Node {
	if n.Kind != KindCallExpr {
		return nil
	}
	if target := n.Child(0); target.Kind == KindFieldAccess {
		return target.Child(0)
	}
	return nil
}

// Text renders an expression back to compact source form, used in
// diagnostic messages.
func (n *Node) Text() string {
	var buf bytes.Buffer
	writeText(&buf, n)
	return buf.String()
}

func writeText(buf *bytes.Buffer, n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case KindIdentifier, KindLiteral, KindThis, KindSuper:
		buf.WriteString(n.TokenLiteral())
	case KindQualifiedName:
		for i, c := range n.Children {
			if i > 0 {
				buf.WriteByte('.')
			}
			writeText(buf, c)
		}
	case KindFieldAccess:
		writeText(buf, n.Child(0))
		buf.WriteByte('.')
		writeText(buf, n.LastChild())
	case KindCallExpr:
		writeText(buf, n.Child(0))
		buf.WriteString("(")
		for i, arg := range n.Arguments() {
			if i > 0 {
				buf.WriteString(", ")
			}
			writeText(buf, arg)
		}
		buf.WriteString(")")
	case KindNewExpr:
		buf.WriteString("new ")
		writeText(buf, n.Child(0))
		buf.WriteString("(...)")
	case KindArrayAccess:
		writeText(buf, n.Child(0))
		buf.WriteByte('[')
		writeText(buf, n.Child(1))
		buf.WriteByte(']')
	case KindParenExpr:
		buf.WriteByte('(')
		writeText(buf, n.Child(0))
		buf.WriteByte(')')
	case KindBinaryExpr:
		writeText(buf, n.Child(0))
		buf.WriteString(" " + n.Operator() + " ")
		writeText(buf, n.Child(2))
	case KindUnaryExpr:
		buf.WriteString(n.Operator())
		writeText(buf, n.Operand())
	case KindPostfixExpr:
		writeText(buf, n.Operand())
		buf.WriteString(n.Operator())
	case KindType:
		if n.Token != nil {
			buf.WriteString(n.TokenLiteral())
			return
		}
		writeText(buf, n.Child(0))
	default:
		buf.WriteString(n.Kind.String())
	}
}

// Outer returns the enclosing instance of a qualified instance creation
// such as outer.new Inner(), or nil.
func (n *Node) Outer() *Node {
	if n.Kind != KindNewExpr {
		return nil
	}
	if second := n.Child(1); second != nil && second.Kind == KindIdentifier {
		return n.Child(0)
	}
	return nil
}

// Qualifier returns the expression before .super(...) in a qualified
// explicit constructor invocation, or nil.
func (n *Node) Qualifier() *Node {
	if n.Kind != KindExplicitConstructorInvocation {
		return nil
	}
	switch first := n.Child(0); first.Kind {
	case KindTypeArguments, KindThis, KindSuper, KindParameters:
		return nil
	default:
		return first
	}
}

// ClassBody returns the body of an anonymous class created by a NewExpr.
func (n *Node) ClassBody() *Node {
	if n.Kind != KindNewExpr {
		return nil
	}
	if last := n.LastChild(); last != nil && last.Kind == KindBlock {
		return last
	}
	return nil
}

// IsDefaultCase reports whether a SwitchCase carries a default label,
// written either as "default" or as "case null, default".
func (n *Node) IsDefaultCase() bool {
	for _, label := range n.ChildrenOfKind(KindSwitchLabel) {
		explicit := false
		for _, child := range label.Children {
			if child.Kind != KindIdentifier {
				explicit = true
				continue
			}
			switch child.TokenLiteral() {
			case "default":
				return true
			case "->":
			default:
				explicit = true
			}
		}
		if !explicit {
			return true
		}
	}
	return false
}
