package lsp

import (
	"github.com/dhamidi/symbex/report"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

// toRange converts a 1-based source range to a 0-based LSP range. A
// missing end collapses onto the start.
func toRange(line, column, endLine, endColumn int) protocol.Range {
	start := position(line, column)
	end := start
	if endLine > 0 {
		end = position(endLine, endColumn)
	}
	return protocol.Range{Start: start, End: end}
}

func position(line, column int) protocol.Position {
	return protocol.Position{
		Line:      protocol.UInteger(max(line-1, 0)),
		Character: protocol.UInteger(max(column-1, 0)),
	}
}

// diagnostics converts the issues of one document. Flow steps become
// related information pointing back into the same document.
func diagnostics(uri string, issues []report.Issue) []protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityWarning
	source := lsName
	result := make([]protocol.Diagnostic, 0, len(issues))
	for _, issue := range issues {
		d := protocol.Diagnostic{
			Range:    toRange(issue.Line, issue.Column, issue.EndLine, issue.EndColumn),
			Severity: &severity,
			Code:     &protocol.IntegerOrString{Value: issue.Rule},
			Source:   &source,
			Message:  issue.Message,
		}
		for _, step := range issue.Flow {
			d.RelatedInformation = append(d.RelatedInformation, protocol.DiagnosticRelatedInformation{
				Location: protocol.Location{
					URI:   uri,
					Range: toRange(step.Line, step.Column, step.EndLine, step.EndColumn),
				},
				Message: step.Message,
			})
		}
		result = append(result, d)
	}
	return result
}
