package report

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Writer renders a list of issues.
type Writer interface {
	Write(w io.Writer, issues []Issue) error
}

// NewWriter returns the writer for a format name: text, json or sarif.
func NewWriter(format, version string, color bool) (Writer, error) {
	switch format {
	case "", "text":
		return NewTextWriter(color), nil
	case "json":
		return NewJSONWriter(), nil
	case "sarif":
		return NewSARIFWriter(version), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
}

// ColorEnabled reports whether output written to f should be colored.
func ColorEnabled(f *os.File) bool {
	if f == nil || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
