package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const appendSource = `import java.io.*;
class Writer {
    void write(String name) throws IOException {
        ObjectOutputStream out = new ObjectOutputStream(new FileOutputStream(name, true));
    }
}
`

func TestCheckCommand(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Writer.java"), []byte(appendSource), 0o644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	output := filepath.Join(dir, "report.json")

	var stderr bytes.Buffer
	cmd := newCheckCmd(&globalFlags{})
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"--format", "json", "--output", output, "--checks", "S2689", dir})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "1 issues found") {
		t.Fatalf("Expected the run to fail with 1 issue, got %v", err)
	}
	if !strings.Contains(stderr.String(), "1 files, 1 methods, 1 issues") {
		t.Errorf("Expected a summary line, got %q", stderr.String())
	}

	data, err := os.ReadFile(output)
	if err != nil {
		t.Fatalf("Failed to read report: %v", err)
	}
	var issues []map[string]any
	if err := json.Unmarshal(data, &issues); err != nil {
		t.Fatalf("Expected a JSON report, got %v", err)
	}
	if len(issues) != 1 || issues[0]["rule"] != "S2689" {
		t.Errorf("Expected one S2689 issue, got %v", issues)
	}
}

func TestCheckCommandRejectsUnknownChecks(t *testing.T) {
	cmd := newCheckCmd(&globalFlags{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--checks", "S0000", t.TempDir()})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "S0000") {
		t.Errorf("Expected an unknown check error, got %v", err)
	}
}
