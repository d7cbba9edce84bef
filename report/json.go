package report

import (
	"encoding/json"
	"fmt"
	"io"
)

type jsonWriter struct{}

// NewJSONWriter renders issues as an indented JSON array.
func NewJSONWriter() Writer {
	return jsonWriter{}
}

func (jsonWriter) Write(w io.Writer, issues []Issue) error {
	if issues == nil {
		issues = []Issue{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(issues); err != nil {
		return fmt.Errorf("failed to marshal JSON report: %w", err)
	}
	return nil
}
