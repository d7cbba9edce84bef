package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/logrusorgru/aurora"
)

type textWriter struct {
	au aurora.Aurora
}

// NewTextWriter renders one issue per line, followed by its flow
// indented underneath.
func NewTextWriter(color bool) Writer {
	return &textWriter{au: aurora.NewAurora(color)}
}

func (t *textWriter) Write(w io.Writer, issues []Issue) error {
	out := bufio.NewWriter(w)
	for _, issue := range issues {
		fmt.Fprintf(out, "%s %s %s\n",
			t.au.Bold(fmt.Sprintf("%s:%d:%d:", issue.File, issue.Line, issue.Column)),
			t.au.Yellow(issue.Rule),
			issue.Message)
		for i, step := range issue.Flow {
			fmt.Fprintf(out, "    %s %s %s\n",
				t.au.Cyan(fmt.Sprintf("%d.", i+1)),
				t.au.Faint(fmt.Sprintf("%d:%d", step.Line, step.Column)),
				step.Message)
		}
	}
	return out.Flush()
}
