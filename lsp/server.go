// Package lsp serves analysis results to editors over the Language
// Server Protocol.
package lsp

import (
	"context"

	"github.com/dhamidi/symbex/scan"
	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"

	_ "github.com/tliron/commonlog/simple"
)

const lsName = "symbex"

var log = commonlog.GetLogger("symbex.lsp")

type Server struct {
	docs    *Documents
	scanner *scan.Scanner
	handler protocol.Handler
	server  *server.Server
	version string
}

func NewServer(version string, scanner *scan.Scanner) *Server {
	ls := &Server{
		docs:    NewDocuments(),
		scanner: scanner,
		version: version,
	}

	ls.handler = protocol.Handler{
		Initialize:            ls.initialize,
		Initialized:           ls.initialized,
		Shutdown:              ls.shutdown,
		SetTrace:              ls.setTrace,
		TextDocumentDidOpen:   ls.textDocumentDidOpen,
		TextDocumentDidChange: ls.textDocumentDidChange,
		TextDocumentDidClose:  ls.textDocumentDidClose,
		TextDocumentDidSave:   ls.textDocumentDidSave,
	}

	ls.server = server.NewServer(&ls.handler, lsName, false)

	return ls
}

func (ls *Server) RunStdio() error {
	return ls.server.RunStdio()
}

func (ls *Server) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	capabilities := ls.handler.CreateServerCapabilities()

	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    syncKindPtr(protocol.TextDocumentSyncKindFull),
		Save: &protocol.SaveOptions{
			IncludeText: boolPtr(true),
		},
	}

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: &ls.version,
		},
	}, nil
}

func (ls *Server) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	log.Infof("%s %s initialized", lsName, ls.version)
	return nil
}

func (ls *Server) shutdown(ctx *glsp.Context) error {
	return nil
}

func (ls *Server) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	protocol.SetTraceValue(params.Value)
	return nil
}

func (ls *Server) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	doc, err := ls.docs.Update(params.TextDocument.URI, []byte(params.TextDocument.Text))
	if err != nil {
		log.Warningf("could not open %s: %s", params.TextDocument.URI, err)
		return nil
	}
	ls.analyze(ctx, doc)
	return nil
}

func (ls *Server) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	if len(params.ContentChanges) == 0 {
		return nil
	}
	change := params.ContentChanges[len(params.ContentChanges)-1]
	textChange, ok := change.(protocol.TextDocumentContentChangeEventWhole)
	if !ok {
		return nil
	}
	doc, err := ls.docs.Update(params.TextDocument.URI, []byte(textChange.Text))
	if err != nil {
		log.Warningf("could not update %s: %s", params.TextDocument.URI, err)
		return nil
	}
	ls.analyze(ctx, doc)
	return nil
}

func (ls *Server) textDocumentDidSave(ctx *glsp.Context, params *protocol.DidSaveTextDocumentParams) error {
	var doc *Document
	var err error
	if params.Text != nil {
		doc, err = ls.docs.Update(params.TextDocument.URI, []byte(*params.Text))
	} else {
		doc, err = ls.docs.Reload(params.TextDocument.URI)
	}
	if err != nil {
		log.Warningf("could not load %s: %s", params.TextDocument.URI, err)
		return nil
	}
	ls.analyze(ctx, doc)
	return nil
}

func (ls *Server) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	ls.docs.Remove(params.TextDocument.URI)
	publish(ctx, params.TextDocument.URI, []protocol.Diagnostic{})
	return nil
}

func (ls *Server) analyze(ctx *glsp.Context, doc *Document) {
	issues, err := ls.scanner.CheckSource(context.Background(), doc.Path, doc.Content)
	if err != nil {
		log.Warningf("could not analyze %s: %s", doc.URI, err)
		return
	}
	publish(ctx, doc.URI, diagnostics(doc.URI, issues))
}

func publish(ctx *glsp.Context, uri string, diags []protocol.Diagnostic) {
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diags,
	})
}

func boolPtr(b bool) *bool {
	return &b
}

func syncKindPtr(k protocol.TextDocumentSyncKind) *protocol.TextDocumentSyncKind {
	return &k
}
