package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/dhamidi/symbex/java/parser"
)

func parse(t *testing.T, src string) *parser.Node {
	t.Helper()
	node, err := parser.Parse([]byte(src), "A.java")
	if err != nil {
		t.Fatalf("Failed to parse: %v", err)
	}
	return node
}

func TestEncodeJSON(t *testing.T) {
	node := parse(t, "class A { int x; }")
	tests := []struct {
		positions bool
	}{{false}, {true}}
	for _, tt := range tests {
		var buf bytes.Buffer
		if err := NewASTEncoder(&buf, tt.positions).EncodeJSON(node); err != nil {
			t.Fatalf("EncodeJSON failed: %v", err)
		}
		var decoded map[string]any
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("Expected valid JSON, got %v", err)
		}
		if decoded["kind"] != "CompilationUnit" {
			t.Errorf("Expected CompilationUnit, got %v", decoded["kind"])
		}
		if _, ok := decoded["span"]; ok != tt.positions {
			t.Errorf("Expected span present = %v, got %v", tt.positions, ok)
		}
	}
}

func TestEncodeTree(t *testing.T) {
	var buf bytes.Buffer
	if err := NewASTEncoder(&buf, false).EncodeTree(parse(t, "class A { }")); err != nil {
		t.Fatalf("EncodeTree failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if lines[0] != "CompilationUnit" {
		t.Errorf("Expected CompilationUnit on the first line, got %q", lines[0])
	}
	if !strings.Contains(buf.String(), `"A"`) {
		t.Errorf("Expected the class name token in the outline, got:\n%s", buf.String())
	}
	for _, line := range lines[1:] {
		if !strings.HasPrefix(line, "  ") {
			t.Errorf("Expected children to be indented, got %q", line)
		}
	}
}
