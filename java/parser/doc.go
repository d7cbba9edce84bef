// Package parser reads Java source into a concrete syntax tree.
//
// The lexer turns bytes into tokens; the parser builds Nodes with exact
// source spans (1-based lines, byte columns). Malformed input never
// panics: the unparsable region becomes an Error node and parsing
// resumes at the next statement or declaration. Only input that ends
// before a compilation unit could be formed is rejected, with
// ErrIncomplete.
//
// Parse is the entry point used by the analyzer:
//
//	unit, err := parser.Parse(src, "A.java")
//
// The accessors in syntax.go (Child, Operator, Arguments, DeclaredName and
// friends) give the control flow builder and the resolver a stable view
// of node shapes, so they never index into Children directly.
package parser
