// Package semantic resolves the names used inside Java method bodies.
//
// It is deliberately small: identifiers are bound to Symbols through a
// lexical scope chain, type names are qualified through imports and a few
// well-known package tables, and compile-time constants are recognised for
// literals and final variables with literal initializers. There is no
// classpath and no overload resolution.
package semantic

import (
	"strconv"

	"github.com/dhamidi/symbex/java/parser"
)

type SymbolKind int

const (
	SymbolLocal SymbolKind = iota
	SymbolParameter
	SymbolField
	SymbolCatchParameter
	SymbolPatternVariable
	SymbolStaticMember
	SymbolTypeRef
)

var symbolKindNames = map[SymbolKind]string{
	SymbolLocal:           "local",
	SymbolParameter:       "parameter",
	SymbolField:           "field",
	SymbolCatchParameter:  "catch-parameter",
	SymbolPatternVariable: "pattern-variable",
	SymbolStaticMember:    "static-member",
	SymbolTypeRef:         "type",
}

func (k SymbolKind) String() string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Symbol is the identity of a declared name. Two uses of the same variable
// resolve to the same *Symbol, so the pointer can be used as a map key.
type Symbol struct {
	ID    int
	Name  string
	Kind  SymbolKind
	Type  string
	Owner string
	Final bool
	// Decl is the declaring identifier, nil for static members and types.
	Decl *parser.Node
}

// IsVariable reports whether the symbol names storage that a method body
// can read and write.
func (s *Symbol) IsVariable() bool {
	switch s.Kind {
	case SymbolLocal, SymbolParameter, SymbolField, SymbolCatchParameter, SymbolPatternVariable:
		return true
	}
	return false
}

// QualifiedName returns Owner.Name for members and Type for type references.
func (s *Symbol) QualifiedName() string {
	switch s.Kind {
	case SymbolTypeRef:
		return s.Type
	case SymbolField, SymbolStaticMember:
		if s.Owner != "" {
			return s.Owner + "." + s.Name
		}
	}
	return s.Name
}

func (s *Symbol) String() string {
	return s.Kind.String() + " " + s.QualifiedName() + "#" + strconv.Itoa(s.ID)
}

type ConstantKind int

const (
	ConstantNull ConstantKind = iota
	ConstantBool
	ConstantInt
	ConstantFloat
	ConstantChar
	ConstantString
)

// Constant is a compile-time value known for an expression.
type Constant struct {
	Kind ConstantKind
	Bool bool
	Text string
}

func (c Constant) String() string {
	switch c.Kind {
	case ConstantNull:
		return "null"
	case ConstantBool:
		return strconv.FormatBool(c.Bool)
	}
	return c.Text
}

// Info is the view of the semantic model that the CFG builder, the engine
// and the detectors rely on.
type Info interface {
	SymbolOf(n *parser.Node) *Symbol
	TypeOf(n *parser.Node) string
	ConstantOf(n *parser.Node) (Constant, bool)
}

type noInfo struct{}

func (noInfo) SymbolOf(*parser.Node) *Symbol            { return nil }
func (noInfo) TypeOf(*parser.Node) string               { return "" }
func (noInfo) ConstantOf(*parser.Node) (Constant, bool) { return Constant{}, false }

// None is an Info that knows nothing.
var None Info = noInfo{}
