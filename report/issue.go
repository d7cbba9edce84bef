// Package report turns findings into issues and renders them as text,
// JSON or SARIF.
package report

import (
	"cmp"

	"github.com/dhamidi/symbex/java/parser"
	"github.com/dhamidi/symbex/se"
	"golang.org/x/exp/slices"
)

// Location is a source range, optionally explained by a message.
type Location struct {
	File      string `json:"file"`
	Line      int    `json:"line"`
	Column    int    `json:"column"`
	EndLine   int    `json:"endLine"`
	EndColumn int    `json:"endColumn"`
	Message   string `json:"message,omitempty"`
}

// Issue is a finding detached from the syntax tree it was found in.
type Issue struct {
	Rule      string     `json:"rule"`
	Message   string     `json:"message"`
	File      string     `json:"file"`
	Line      int        `json:"line"`
	Column    int        `json:"column"`
	EndLine   int        `json:"endLine"`
	EndColumn int        `json:"endColumn"`
	Method    string     `json:"method,omitempty"`
	Flow      []Location `json:"flow,omitempty"`
	Cost      int        `json:"cost,omitempty"`
}

func locationOf(file string, n *parser.Node) Location {
	return Location{
		File:      file,
		Line:      n.Span.Start.Line,
		Column:    n.Span.Start.Column,
		EndLine:   n.Span.End.Line,
		EndColumn: n.Span.End.Column,
	}
}

// FromFinding builds an issue for a finding in file. Detectors attach a
// single flow, so only the first one is kept.
func FromFinding(file string, f se.Finding) Issue {
	at := locationOf(file, f.Node)
	issue := Issue{
		Rule:      f.Rule,
		Message:   f.Message,
		File:      file,
		Line:      at.Line,
		Column:    at.Column,
		EndLine:   at.EndLine,
		EndColumn: at.EndColumn,
		Method:    f.Method,
		Cost:      f.Cost,
	}
	if len(f.Flows) > 0 {
		for _, step := range f.Flows[0] {
			loc := locationOf(file, step.Node)
			loc.Message = step.Message
			issue.Flow = append(issue.Flow, loc)
		}
	}
	return issue
}

// Sort orders issues by file, position and rule.
func Sort(issues []Issue) {
	slices.SortStableFunc(issues, func(a, b Issue) int {
		if c := cmp.Compare(a.File, b.File); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Line, b.Line); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Column, b.Column); c != 0 {
			return c
		}
		return cmp.Compare(a.Rule, b.Rule)
	})
}
