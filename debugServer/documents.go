package debugServer

import (
	"context"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
	"github.gatech.edu/ECEInnovation/PSP-Emulator/assembler"
)

type document struct {
	item         TextDocumentItem
	lastAssembly *assembler.AssembledResult
}

// documents are the open editor buffers, assembled against the kernel import
// names so a call to sceKernelCreateThread is not reported as undefined.
type documents struct {
	mu      sync.Mutex
	byURI   map[DocumentUri]*document
	symbols map[string]uint32
}

func newDocuments(symbols map[string]uint32) *documents {
	return &documents{byURI: map[DocumentUri]*document{}, symbols: symbols}
}

func (d *documents) assemble(doc *document) []assembler.Diagnostic {
	res := assembler.AssembleWithConfig(doc.item.Text, assembler.AssemblerConfig{Symbols: d.symbols})
	if res.Diagnostics == nil {
		res.Diagnostics = make([]assembler.Diagnostic, 0)
	}
	doc.lastAssembly = res
	return res.Diagnostics
}

func (d *documents) open(item TextDocumentItem) []assembler.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc := &document{item: item}
	d.byURI[item.URI] = doc
	return d.assemble(doc)
}

func (d *documents) close(uri DocumentUri) {
	d.mu.Lock()
	delete(d.byURI, uri)
	d.mu.Unlock()
}

func (d *documents) change(id VersionedTextDocumentIdentifier, text string) []assembler.Diagnostic {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.byURI[id.URI]
	if !ok {
		doc = &document{item: TextDocumentItem{URI: id.URI}}
		d.byURI[id.URI] = doc
	}
	doc.item.Text = text
	doc.item.Version = id.Version
	return d.assemble(doc)
}

func (d *documents) diagnostics(uri DocumentUri) ([]assembler.Diagnostic, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.byURI[uri]
	if !ok {
		return nil, false
	}
	return d.assemble(doc), true
}

func (d *documents) hover(uri DocumentUri, pos assembler.TextPosition) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	doc, ok := d.byURI[uri]
	if !ok || doc.lastAssembly == nil {
		return "", false
	}
	return doc.lastAssembly.EvaluateHover(pos)
}

func (h *handler) documentOpen(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := DidOpenTextDocumentParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	diagnostics := h.server.docs.open(params.TextDocument)
	conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Version:     params.TextDocument.Version,
		Diagnostics: diagnostics,
	})
}

func (h *handler) documentClose(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := DidCloseTextDocumentParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	h.server.docs.close(params.TextDocument.URI)
}

func (h *handler) documentChange(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := DidChangeTextDocumentParams{}
	if !decodeParams(ctx, conn, req, &params) || len(params.ContentChanges) == 0 {
		return
	}
	diagnostics := h.server.docs.change(params.TextDocument, params.ContentChanges[len(params.ContentChanges)-1].Text)
	conn.Notify(ctx, "textDocument/publishDiagnostics", PublishDiagnosticsParams{
		URI:         params.TextDocument.URI,
		Version:     params.TextDocument.Version,
		Diagnostics: diagnostics,
	})
}

func (h *handler) documentDiagnostics(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := DocumentDiagnosticsParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	diagnostics, ok := h.server.docs.diagnostics(params.TextDocument.URI)
	if !ok {
		replyError(ctx, conn, req, jsonrpc2.CodeInvalidParams, "document is not open")
		return
	}
	conn.Reply(ctx, req.ID, DocumentDiagnosticsReport{Kind: "full", Items: diagnostics})
}

func (h *handler) hover(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) {
	params := TextDocumentPositionParams{}
	if !decodeParams(ctx, conn, req, &params) {
		return
	}
	text, ok := h.server.docs.hover(params.TextDocument.URI, params.Position)
	if !ok {
		conn.Reply(ctx, req.ID, nil)
		return
	}
	conn.Reply(ctx, req.ID, Hover{Contents: MarkupContent{Kind: "markdown", Value: text}})
}
