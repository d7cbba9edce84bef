package scan

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dhamidi/symbex/config"
	"github.com/dhamidi/symbex/se/checks"
)

const writerSource = `import java.io.*;
class Writer {
    void write(String name) throws IOException {
        ObjectOutputStream out = new ObjectOutputStream(new FileOutputStream(name, true));
        out.close();
    }
    void deref() {
        Object x = null;
        x.hashCode();
    }
}
`

const lambdaSource = `class Tasks {
    Runnable task() {
        return () -> {
            Object y = null;
            y.toString();
        };
    }
}
`

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	return root
}

func newScanner(t *testing.T, exclude ...string) *Scanner {
	t.Helper()
	cfg := config.NewDefault()
	cfg.Exclude = exclude
	factories, err := checks.Select(nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	return New(cfg, factories)
}

func TestRun(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/Writer.java":       writerSource,
		"src/WriterTest.java":   writerSource,
		".hidden/Writer.java":   writerSource,
		"src/notes.txt":         "not java",
		"src/sub/Tasks.java":    lambdaSource,
		"generated/Writer.java": writerSource,
	})
	summary, err := newScanner(t, "*Test.java", "generated").Run(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Files != 2 {
		t.Errorf("Expected 2 files, got %d", summary.Files)
	}
	if summary.Methods != 4 {
		t.Errorf("Expected 4 methods, got %d", summary.Methods)
	}
	if summary.Truncated != 0 || summary.Faults != 0 || summary.Skipped != 0 {
		t.Errorf("Expected a clean run, got %+v", summary)
	}
	want := []struct {
		file string
		line int
		rule string
	}{
		{"Writer.java", 4, "S2689"},
		{"Writer.java", 9, "S2259"},
		{"Tasks.java", 5, "S2259"},
	}
	if len(summary.Issues) != len(want) {
		t.Fatalf("Expected %d issues, got %d: %+v", len(want), len(summary.Issues), summary.Issues)
	}
	byFile := map[string]int{}
	for _, issue := range summary.Issues {
		byFile[filepath.Base(issue.File)]++
	}
	for _, w := range want {
		found := false
		for _, issue := range summary.Issues {
			if filepath.Base(issue.File) == w.file && issue.Line == w.line && issue.Rule == w.rule {
				found = true
			}
		}
		if !found {
			t.Errorf("Expected %s at %s:%d", w.rule, w.file, w.line)
		}
	}
	if byFile["Writer.java"] != 2 || byFile["Tasks.java"] != 1 {
		t.Errorf("Unexpected issue distribution %v", byFile)
	}
}

func TestRunSortsIssues(t *testing.T) {
	root := writeTree(t, map[string]string{"Writer.java": writerSource})
	summary, err := newScanner(t).Run(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	for i := 1; i < len(summary.Issues); i++ {
		if summary.Issues[i-1].Line > summary.Issues[i].Line {
			t.Errorf("Expected issues sorted by line, got %d before %d", summary.Issues[i-1].Line, summary.Issues[i].Line)
		}
	}
}

func TestRunMissingPath(t *testing.T) {
	_, err := newScanner(t).Run(context.Background(), []string{filepath.Join(t.TempDir(), "missing")})
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}

func TestCheckSource(t *testing.T) {
	s := newScanner(t)
	issues, err := s.CheckSource(context.Background(), "Writer.java", []byte(writerSource))
	if err != nil {
		t.Fatalf("CheckSource failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("Expected 2 issues, got %d", len(issues))
	}
	if issues[0].Rule != "S2689" || issues[0].File != "Writer.java" {
		t.Errorf("Expected S2689 in Writer.java first, got %s in %s", issues[0].Rule, issues[0].File)
	}
	if len(issues[0].Flow) != 1 {
		t.Errorf("Expected the append flow, got %+v", issues[0].Flow)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.CheckSource(ctx, "Writer.java", []byte(writerSource)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

const nestedLambdaSource = `class Tasks {
    Runnable task() {
        return () -> {
            Runnable inner = () -> {
                Object y = null;
                y.toString();
            };
            inner.run();
        };
    }
}
`

func TestNestedLambdasAreExploredOnce(t *testing.T) {
	issues, err := newScanner(t).CheckSource(context.Background(), "Tasks.java", []byte(nestedLambdaSource))
	if err != nil {
		t.Fatalf("CheckSource failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("Expected 1 issue, got %d: %+v", len(issues), issues)
	}
	if issues[0].Rule != "S2259" || issues[0].Line != 6 {
		t.Errorf("Expected S2259 at line 6, got %s at line %d", issues[0].Rule, issues[0].Line)
	}
	if issues[0].Method != "Tasks#task$4" {
		t.Errorf("Expected the issue in Tasks#task$4, got %s", issues[0].Method)
	}
}

func TestMethodTimeout(t *testing.T) {
	cfg := config.NewDefault()
	cfg.MethodTimeout = time.Nanosecond
	factories, err := checks.Select(nil)
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	root := writeTree(t, map[string]string{"Writer.java": writerSource})
	summary, err := New(cfg, factories).Run(context.Background(), []string{root})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Methods != 2 || summary.Truncated != 2 {
		t.Errorf("Expected 2 truncated methods, got %+v", summary)
	}
	if len(summary.Issues) != 0 {
		t.Errorf("Expected no issues from truncated methods, got %+v", summary.Issues)
	}
}

func TestSelectedChecksOnly(t *testing.T) {
	factories, err := checks.Select([]string{"S2259"})
	if err != nil {
		t.Fatalf("Select failed: %v", err)
	}
	s := New(config.NewDefault(), factories)
	issues, err := s.CheckSource(context.Background(), "Writer.java", []byte(writerSource))
	if err != nil {
		t.Fatalf("CheckSource failed: %v", err)
	}
	if len(issues) != 1 || issues[0].Rule != "S2259" {
		t.Errorf("Expected only the S2259 issue, got %+v", issues)
	}
}

func TestWatcherChanged(t *testing.T) {
	root := writeTree(t, map[string]string{"A.java": "class A {}", "B.java": "class B {}"})
	w := &watcher{scanner: newScanner(t), paths: []string{root}, modTimes: make(map[string]time.Time)}

	changed, err := w.changed()
	if err != nil {
		t.Fatalf("changed failed: %v", err)
	}
	if len(changed) != 2 {
		t.Fatalf("Expected 2 new files, got %v", changed)
	}
	if changed, _ := w.changed(); len(changed) != 0 {
		t.Errorf("Expected no changes, got %v", changed)
	}

	a := filepath.Join(root, "A.java")
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(a, later, later); err != nil {
		t.Fatalf("Chtimes failed: %v", err)
	}
	if changed, _ := w.changed(); len(changed) != 1 || changed[0] != a {
		t.Errorf("Expected only %s to change, got %v", a, changed)
	}

	if err := os.Remove(filepath.Join(root, "B.java")); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	w.changed()
	if len(w.modTimes) != 1 {
		t.Errorf("Expected the removed file to be forgotten, got %d tracked", len(w.modTimes))
	}
}

func TestWatch(t *testing.T) {
	root := writeTree(t, map[string]string{"Writer.java": writerSource})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var summaries []*Summary
	err := newScanner(t).Watch(ctx, []string{root}, 10*time.Millisecond, func(s *Summary) {
		summaries = append(summaries, s)
		cancel()
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("Expected 1 rerun, got %d", len(summaries))
	}
	if got := len(summaries[0].Issues); got != 2 {
		t.Errorf("Expected 2 issues from the first poll, got %d", got)
	}
}
