package semantic

import "github.com/dhamidi/symbex/java/parser"

type MethodKind int

const (
	MethodRegular MethodKind = iota
	MethodConstructor
	MethodInitializer
)

// Method is one analysable body: a method, a constructor or an instance or
// static initializer block.
type Method struct {
	Name   string
	Class  string
	Kind   MethodKind
	Decl   *parser.Node
	Body   *parser.Node
	Params []*Symbol
	Line   int
}

// HasBody reports whether the method can be analysed. Abstract, native and
// interface methods have no body.
func (m *Method) HasBody() bool {
	return m.Body != nil
}

func (m *Method) String() string {
	return m.Class + "#" + m.Name
}
