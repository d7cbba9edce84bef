package checks

import (
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
)

// isConstructorOf matches `new T(...)` with the given number of arguments.
func isConstructorOf(info semantic.Info, n *parser.Node, typ string, args int) bool {
	return n.Kind == parser.KindNewExpr && info.TypeOf(n) == typ && len(n.Arguments()) == args
}

// isCallOf matches a call to method name on an expression or type of
// type owner.
func isCallOf(info semantic.Info, n *parser.Node, owner, name string) bool {
	if n.Kind != parser.KindCallExpr || n.MethodName() != name {
		return false
	}
	return info.TypeOf(n.Receiver()) == owner
}

// isStaticMember matches a reference to a static member, written either
// qualified or through a static import.
func isStaticMember(info semantic.Info, n *parser.Node, qualified string) bool {
	if n.Kind != parser.KindIdentifier && n.Kind != parser.KindFieldAccess {
		return false
	}
	sym := info.SymbolOf(n)
	return sym != nil && sym.Kind == semantic.SymbolStaticMember && sym.QualifiedName() == qualified
}

// variable returns the symbol of a plain variable reference.
func variable(info semantic.Info, n *parser.Node) *semantic.Symbol {
	n = parser.Unparen(n)
	if n == nil {
		return nil
	}
	sym := info.SymbolOf(n)
	if sym == nil || !sym.IsVariable() {
		return nil
	}
	return sym
}
