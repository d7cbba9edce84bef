package lsp

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dhamidi/symbex/config"
	"github.com/dhamidi/symbex/scan"
	"github.com/dhamidi/symbex/se/checks"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
)

const source = `import java.io.*;
class Writer {
    void write(String name) throws IOException {
        ObjectOutputStream out = new ObjectOutputStream(new FileOutputStream(name, true));
    }
}
`

type notifications struct {
	published []protocol.PublishDiagnosticsParams
}

func (n *notifications) context() *glsp.Context {
	return &glsp.Context{
		Notify: func(method string, params any) {
			if method == protocol.ServerTextDocumentPublishDiagnostics {
				n.published = append(n.published, params.(protocol.PublishDiagnosticsParams))
			}
		},
	}
}

func (n *notifications) last(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	if len(n.published) == 0 {
		t.Fatal("Expected diagnostics to be published")
	}
	return n.published[len(n.published)-1]
}

func newTestServer() *Server {
	return NewServer("test", scan.New(config.NewDefault(), checks.All()))
}

func TestDidOpenPublishesDiagnostics(t *testing.T) {
	ls := newTestServer()
	n := &notifications{}
	uri := "file:///work/Writer.java"
	err := ls.textDocumentDidOpen(n.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "java", Text: source},
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
	params := n.last(t)
	if params.URI != uri {
		t.Errorf("Expected diagnostics for %s, got %s", uri, params.URI)
	}
	if len(params.Diagnostics) != 1 {
		t.Fatalf("Expected 1 diagnostic, got %d", len(params.Diagnostics))
	}
	d := params.Diagnostics[0]
	if d.Message != "Do not use a FileOutputStream in append mode." {
		t.Errorf("Unexpected message %q", d.Message)
	}
	if d.Severity == nil || *d.Severity != protocol.DiagnosticSeverityWarning {
		t.Errorf("Expected warning severity, got %v", d.Severity)
	}
	if d.Source == nil || *d.Source != "symbex" {
		t.Errorf("Expected source symbex, got %v", d.Source)
	}
	if d.Code == nil || d.Code.Value != "S2689" {
		t.Errorf("Expected code S2689, got %v", d.Code)
	}
	if d.Range.Start.Line != 3 {
		t.Errorf("Expected 0-based line 3, got %d", d.Range.Start.Line)
	}
	if len(d.RelatedInformation) != 1 || d.RelatedInformation[0].Message != "FileOutputStream created here." {
		t.Errorf("Expected the flow as related information, got %+v", d.RelatedInformation)
	}
	if ls.docs.Get(uri) == nil || ls.docs.Get(uri).Path != "/work/Writer.java" {
		t.Errorf("Expected the document to be stored under its path")
	}
}

func TestDidChangeAndClose(t *testing.T) {
	ls := newTestServer()
	n := &notifications{}
	uri := "file:///work/Writer.java"
	ls.textDocumentDidOpen(n.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "java", Text: source},
	})

	err := ls.textDocumentDidChange(n.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument: protocol.VersionedTextDocumentIdentifier{
			TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
			Version:                2,
		},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: "class Writer { void write() {} }"}},
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}
	if got := len(n.last(t).Diagnostics); got != 0 {
		t.Errorf("Expected diagnostics to clear after the fix, got %d", got)
	}

	before := len(n.published)
	ls.textDocumentDidClose(n.context(), &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	})
	if len(n.published) != before+1 || len(n.last(t).Diagnostics) != 0 {
		t.Errorf("Expected close to publish empty diagnostics")
	}
	if ls.docs.Len() != 0 {
		t.Errorf("Expected the document to be forgotten, got %d open", ls.docs.Len())
	}
}

func TestDidSaveReadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Writer.java")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		t.Fatalf("Failed to write source: %v", err)
	}
	ls := newTestServer()
	n := &notifications{}
	err := ls.textDocumentDidSave(n.context(), &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: "file://" + filepath.ToSlash(path)},
	})
	if err != nil {
		t.Fatalf("didSave failed: %v", err)
	}
	if got := len(n.last(t).Diagnostics); got != 1 {
		t.Errorf("Expected 1 diagnostic, got %d", got)
	}
}

func TestInitialize(t *testing.T) {
	ls := newTestServer()
	result, err := ls.initialize(&glsp.Context{}, &protocol.InitializeParams{})
	if err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	res, ok := result.(protocol.InitializeResult)
	if !ok {
		t.Fatalf("Expected an InitializeResult, got %T", result)
	}
	if res.ServerInfo == nil || res.ServerInfo.Name != "symbex" || *res.ServerInfo.Version != "test" {
		t.Errorf("Unexpected server info %+v", res.ServerInfo)
	}
	sync, ok := res.Capabilities.TextDocumentSync.(*protocol.TextDocumentSyncOptions)
	if !ok || sync.Change == nil || *sync.Change != protocol.TextDocumentSyncKindFull {
		t.Errorf("Expected full document sync, got %+v", res.Capabilities.TextDocumentSync)
	}
}

func TestToRange(t *testing.T) {
	r := toRange(4, 10, 4, 14)
	if r.Start.Line != 3 || r.Start.Character != 9 || r.End.Character != 13 {
		t.Errorf("Unexpected range %+v", r)
	}
	r = toRange(2, 1, 0, 0)
	if r.End != r.Start {
		t.Errorf("Expected a collapsed range, got %+v", r)
	}
}

func TestInvalidURIIsIgnored(t *testing.T) {
	ls := newTestServer()
	n := &notifications{}
	uri := "file://%zz/Writer.java"
	err := ls.textDocumentDidOpen(n.context(), &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: uri, LanguageID: "java", Text: source},
	})
	if err != nil {
		t.Fatalf("didOpen failed: %v", err)
	}
	err = ls.textDocumentDidChange(n.context(), &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri}, Version: 2},
		ContentChanges: []any{protocol.TextDocumentContentChangeEventWhole{Text: source}},
	})
	if err != nil {
		t.Fatalf("didChange failed: %v", err)
	}
	if len(n.published) != 0 {
		t.Errorf("Expected no diagnostics, got %+v", n.published)
	}
	if got := ls.docs.Len(); got != 0 {
		t.Errorf("Expected no documents, got %d", got)
	}
}
