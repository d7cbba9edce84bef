// Package format renders syntax trees for inspection.
package format

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/dhamidi/symbex/java/parser"
)

// ASTEncoder writes a syntax tree as indented JSON or as an indented
// outline, one node per line.
type ASTEncoder struct {
	w         io.Writer
	positions bool
}

func NewASTEncoder(w io.Writer, positions bool) *ASTEncoder {
	return &ASTEncoder{w: w, positions: positions}
}

// EncodeJSON writes node as a JSON document followed by a newline.
func (e *ASTEncoder) EncodeJSON(node *parser.Node) error {
	data, err := json.MarshalIndent(e.toJSON(node), "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	_, err = e.w.Write(data)
	return err
}

// EncodeTree writes node as an outline. Leaves show their token text and
// error nodes their message.
func (e *ASTEncoder) EncodeTree(node *parser.Node) error {
	var sb strings.Builder
	e.tree(&sb, node, 0)
	_, err := io.WriteString(e.w, sb.String())
	return err
}

func (e *ASTEncoder) tree(sb *strings.Builder, n *parser.Node, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	if e.positions {
		fmt.Fprintf(sb, " %d:%d-%d:%d", n.Span.Start.Line, n.Span.Start.Column, n.Span.End.Line, n.Span.End.Column)
	}
	if n.Token != nil {
		fmt.Fprintf(sb, " %q", n.Token.Literal)
	}
	if n.Error != nil {
		fmt.Fprintf(sb, " error: %s", n.Error.Message)
	}
	sb.WriteString("\n")
	for _, child := range n.Children {
		e.tree(sb, child, depth+1)
	}
}

type jsonNode struct {
	Kind     string      `json:"kind"`
	Span     *jsonSpan   `json:"span,omitempty"`
	Token    string      `json:"token,omitempty"`
	Error    *jsonError  `json:"error,omitempty"`
	Children []*jsonNode `json:"children,omitempty"`
}

type jsonSpan struct {
	Start jsonPosition `json:"start"`
	End   jsonPosition `json:"end"`
}

type jsonPosition struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

type jsonError struct {
	Message  string   `json:"message"`
	Expected []string `json:"expected,omitempty"`
	Got      string   `json:"got,omitempty"`
}

func (e *ASTEncoder) toJSON(n *parser.Node) *jsonNode {
	jn := &jsonNode{Kind: n.Kind.String()}

	if e.positions && (n.Span.Start.Line != 0 || n.Span.End.Line != 0) {
		jn.Span = &jsonSpan{
			Start: jsonPosition{Line: n.Span.Start.Line, Column: n.Span.Start.Column},
			End:   jsonPosition{Line: n.Span.End.Line, Column: n.Span.End.Column},
		}
	}
	if n.Token != nil {
		jn.Token = n.Token.Literal
	}
	if n.Error != nil {
		jn.Error = &jsonError{Message: n.Error.Message}
		for _, exp := range n.Error.Expected {
			jn.Error.Expected = append(jn.Error.Expected, exp.String())
		}
		if n.Error.Got != nil {
			jn.Error.Got = n.Error.Got.Literal
		}
	}
	for _, child := range n.Children {
		jn.Children = append(jn.Children, e.toJSON(child))
	}
	return jn
}
