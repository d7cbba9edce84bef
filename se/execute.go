package se

import (
	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/java/semantic"
	"github.com/dhamidi/symbex/se/constraint"
)

// pop is ProgramState.Pop that never yields nil: an empty stack produces a
// fresh value, which keeps the engine going on code the CFG could only
// approximate.
func (e *Engine) pop(s *ProgramState) (*ProgramState, *Value) {
	s, v := s.Pop()
	if v == nil {
		v = e.newValue()
	}
	return s, v
}

func (e *Engine) popN(s *ProgramState, n int) (*ProgramState, []*Value) {
	s, values := s.PopN(n)
	for i, v := range values {
		if v == nil {
			values[i] = e.newValue()
		}
	}
	return s, values
}

func (e *Engine) notNull(s *ProgramState) (*ProgramState, *Value) {
	v := e.newValue()
	s, _ = s.AddConstraint(v, constraint.NotNull)
	return s, v
}

// dereference records that v was used as an object. A value known to be
// null makes the path infeasible.
func (e *Engine) dereference(s *ProgramState, v *Value) (*ProgramState, bool) {
	return e.constrain(s, v, constraint.NotNull)
}

// read returns the value bound to sym, binding a fresh one on first use.
func (e *Engine) read(s *ProgramState, sym *semantic.Symbol) (*ProgramState, *Value) {
	if v, ok := s.Binding(sym); ok {
		return s, v
	}
	v := e.newValue()
	return s.Bind(sym, v), v
}

// storage returns the symbol an assignment or increment writes to, or nil
// when the target is not tracked.
func (e *Engine) storage(target *parser.Node) *semantic.Symbol {
	target = parser.Unparen(target)
	sym := e.info.SymbolOf(target)
	if sym == nil {
		return nil
	}
	switch target.Kind {
	case parser.KindIdentifier:
		if sym.IsVariable() || sym.Kind == semantic.SymbolStaticMember {
			return sym
		}
	case parser.KindFieldAccess:
		if sym.Kind == semantic.SymbolStaticMember {
			return sym
		}
		if sym.Kind == semantic.SymbolField && target.Child(0).Kind == parser.KindThis {
			return sym
		}
	}
	return nil
}

func (e *Engine) resetFields(s *ProgramState) *ProgramState {
	return s.UnbindWhere(func(sym *semantic.Symbol) bool {
		return sym.Kind == semantic.SymbolField
	})
}

// execute applies the built-in meaning of one element. The boolean is
// false when the element cannot execute on s, such as a dereference of a
// value known to be null.
func (e *Engine) execute(s *ProgramState, n *parser.Node) (*ProgramState, bool) {
	ok := true
	switch n.Kind {
	case parser.KindLiteral:
		return e.literal(s, n), true

	case parser.KindIdentifier:
		sym := e.info.SymbolOf(n)
		if sym == nil || sym.Kind == semantic.SymbolTypeRef {
			return s.Push(e.newValue()), true
		}
		s, v := e.read(s, sym)
		return s.Push(v), true

	case parser.KindThis, parser.KindSuper:
		s, v := e.read(s, ThisSymbol)
		return s.Push(v), true

	case parser.KindClassLiteral, parser.KindLambdaExpr, parser.KindMethodRef:
		s, v := e.notNull(s)
		return s.Push(v), true

	case parser.KindFieldAccess:
		s, target := e.pop(s)
		if s, ok = e.dereference(s, target); !ok {
			return nil, false
		}
		if sym := e.storage(n); sym != nil {
			s, v := e.read(s, sym)
			return s.Push(v), true
		}
		return s.Push(e.newValue()), true

	case parser.KindCallExpr:
		s, _ = e.popN(s, len(n.Arguments()))
		if n.Receiver() != nil {
			var receiver *Value
			s, receiver = e.pop(s)
			if s, ok = e.dereference(s, receiver); !ok {
				return nil, false
			}
		}
		s = e.resetFields(s)
		return s.Push(e.newValue()), true

	case parser.KindNewExpr:
		s, _ = e.popN(s, len(n.Arguments()))
		if n.Outer() != nil {
			var outer *Value
			s, outer = e.pop(s)
			if s, ok = e.dereference(s, outer); !ok {
				return nil, false
			}
		}
		s, v := e.notNull(s)
		return s.Push(v), true

	case parser.KindNewArrayExpr:
		count := 0
		for _, child := range n.Children[1:] {
			if child.Kind != parser.KindAnnotation {
				count++
			}
		}
		s, _ = e.popN(s, count)
		s, v := e.notNull(s)
		return s.Push(v), true

	case parser.KindArrayInit:
		s, _ = e.popN(s, len(n.Children))
		s, v := e.notNull(s)
		return s.Push(v), true

	case parser.KindArrayAccess:
		s, values := e.popN(s, 2)
		if s, ok = e.dereference(s, values[0]); !ok {
			return nil, false
		}
		return s.Push(e.newValue()), true

	case parser.KindAssignExpr:
		return e.assign(s, n)

	case parser.KindVariableDeclarator:
		var v *Value
		if n.Initializer() != nil {
			s, v = e.pop(s)
		} else {
			v = e.newValue()
		}
		if sym := e.info.SymbolOf(n.DeclaredName()); sym != nil {
			s = s.Bind(sym, v)
		}
		return s, true

	case parser.KindCatchClause:
		s, exception := e.pop(s)
		s, _ = s.AddConstraint(exception, constraint.NotNull)
		if sym := e.info.SymbolOf(n); sym != nil {
			s = s.Bind(sym, exception)
		}
		return s, true

	case parser.KindUnaryExpr:
		switch op := n.Operator(); op {
		case "!":
			s, v := e.pop(s)
			return s.Push(e.derive(OpNot, op, v)), true
		case "++", "--":
			s, _ = e.pop(s)
			v := e.newValue()
			if sym := e.storage(n.Operand()); sym != nil {
				s = s.Bind(sym, v)
			}
			return s.Push(v), true
		}
		s, _ = e.pop(s)
		return s.Push(e.newValue()), true

	case parser.KindPostfixExpr:
		s, old := e.pop(s)
		if sym := e.storage(n.Operand()); sym != nil {
			s = s.Bind(sym, e.newValue())
		}
		return s.Push(old), true

	case parser.KindBinaryExpr:
		s, values := e.popN(s, 2)
		switch op := n.Operator(); {
		case isRelational(op):
			return s.Push(e.derive(OpRelational, op, values...)), true
		case op == "&":
			return s.Push(e.derive(OpAnd, op, values...)), true
		case op == "|":
			return s.Push(e.derive(OpOr, op, values...)), true
		case op == "^":
			return s.Push(e.derive(OpXor, op, values...)), true
		}
		return s.Push(e.newValue()), true

	case parser.KindInstanceofExpr:
		s, v := e.pop(s)
		if id := n.Child(2); id != nil && id.Kind == parser.KindIdentifier {
			if sym := e.info.SymbolOf(id); sym != nil {
				s = s.Bind(sym, v)
			}
		}
		return s.Push(e.derive(OpInstanceOf, "instanceof", v)), true

	case parser.KindCastExpr, parser.KindParenExpr:
		return s, true

	case parser.KindExprStmt, parser.KindForInit, parser.KindForUpdate:
		s, _ = s.Pop()
		return s, true

	case parser.KindReturnStmt:
		if n.Child(0) != nil {
			s, _ = s.Pop()
		}
		return s, true

	case parser.KindThrowStmt:
		return s, true

	case parser.KindSynchronizedStmt, parser.KindEnhancedForStmt:
		s, v := e.pop(s)
		return e.dereference(s, v)

	case parser.KindExplicitConstructorInvocation:
		s, _ = e.popN(s, len(n.Arguments()))
		if n.Qualifier() != nil {
			s, _ = s.Pop()
		}
		return s, true

	case parser.KindTypePattern:
		s, v := e.notNull(s)
		if sym := e.info.SymbolOf(n.Child(1)); sym != nil {
			s = s.Bind(sym, v)
		}
		return s, true

	case parser.KindAssertStmt:
		if n.Child(1) != nil {
			s, _ = s.Pop()
		}
		s, v := e.notNull(s)
		return s.Push(v), true
	}

	// Qualified names, errors and anything else evaluate to an unknown
	// value.
	return s.Push(e.newValue()), true
}

func (e *Engine) literal(s *ProgramState, n *parser.Node) *ProgramState {
	if n.Token == nil {
		return s.Push(e.newValue())
	}
	switch n.Token.Kind {
	case parser.TokenNull:
		return s.Push(e.nullValue)
	case parser.TokenTrue:
		return s.Push(e.trueValue)
	case parser.TokenFalse:
		return s.Push(e.falseValue)
	case parser.TokenStringLiteral, parser.TokenTextBlock:
		s, v := e.notNull(s)
		return s.Push(v)
	}
	return s.Push(e.newValue())
}

// assign handles plain and compound assignment to locals, fields and
// array elements. The operands were pushed target first, value last.
func (e *Engine) assign(s *ProgramState, n *parser.Node) (*ProgramState, bool) {
	lhs := parser.Unparen(n.Child(0))
	s, value := e.pop(s)
	if n.Operator() != "=" {
		value = e.newValue()
	}

	ok := true
	switch lhs.Kind {
	case parser.KindFieldAccess:
		var target *Value
		s, target = e.pop(s)
		if s, ok = e.dereference(s, target); !ok {
			return nil, false
		}
	case parser.KindArrayAccess:
		var operands []*Value
		s, operands = e.popN(s, 2)
		if s, ok = e.dereference(s, operands[0]); !ok {
			return nil, false
		}
	}
	if sym := e.storage(lhs); sym != nil {
		s = s.Bind(sym, value)
	}
	return s.Push(value), true
}
