package main

import (
	"strings"

	"itmoscript/internal/lsp"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	"github.com/tliron/glsp/server"
)

const (
	lsName  = "itmoscript-lsp"
	version = "0.1"
)

var (
	store   = lsp.NewStore()
	handler protocol.Handler
)

func main() {
	commonlog.Configure(1, nil)

	handler = protocol.Handler{
		Initialize:                     initialize,
		Initialized:                    initialized,
		Shutdown:                       shutdown,
		TextDocumentDidOpen:            textDocumentDidOpen,
		TextDocumentDidChange:          textDocumentDidChange,
		TextDocumentDidClose:           textDocumentDidClose,
		TextDocumentSemanticTokensFull: textDocumentSemanticTokensFull,
	}

	srv := server.NewServer(&handler, lsName, false)
	srv.RunStdio()
}

func initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	full := protocol.TextDocumentSyncKindFull
	legend := protocol.SemanticTokensLegend{
		TokenTypes: []string{
			string(protocol.SemanticTokenTypeKeyword),
			string(protocol.SemanticTokenTypeString),
			string(protocol.SemanticTokenTypeNumber),
			string(protocol.SemanticTokenTypeOperator),
			string(protocol.SemanticTokenTypeVariable),
		},
		TokenModifiers: []string{},
	}

	caps := protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: &protocol.True,
			Change:    &full,
		},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: legend,
			Full:   true,
			Range:  false,
		},
	}

	return protocol.InitializeResult{
		Capabilities: caps,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lsName,
			Version: ptrString(version),
		},
	}, nil
}

func initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func shutdown(ctx *glsp.Context) error {
	return nil
}

func textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Set(uri, params.TextDocument.Text)
	return publishDiagnostics(ctx, uri, params.TextDocument.Text)
}

func textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	if len(params.ContentChanges) == 0 {
		return nil
	}

	text, ok := extractFullText(params.ContentChanges[len(params.ContentChanges)-1])
	if !ok {
		return nil
	}

	store.Set(uri, text)
	return publishDiagnostics(ctx, uri, text)
}

func textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := string(params.TextDocument.URI)
	store.Delete(uri)
	return publishDiagnostics(ctx, uri, "")
}

func textDocumentSemanticTokensFull(ctx *glsp.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	uri := string(params.TextDocument.URI)
	text, ok := store.Get(uri)
	if !ok {
		return &protocol.SemanticTokens{Data: []uint32{}}, nil
	}

	sem := lsp.SemanticTokensForText(text)
	return &protocol.SemanticTokens{Data: lsp.EncodeSemanticTokens(sem)}, nil
}

func publishDiagnostics(ctx *glsp.Context, uri string, text string) error {
	if !strings.HasSuffix(strings.ToLower(uri), ".is") {
		ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
			URI:         protocol.DocumentUri(uri),
			Diagnostics: []protocol.Diagnostic{},
		})
		return nil
	}

	diags := lsp.Analyze(text)
	ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, &protocol.PublishDiagnosticsParams{
		URI:         protocol.DocumentUri(uri),
		Diagnostics: lsp.ToLspDiagnostics(diags),
	})
	return nil
}

func extractFullText(change any) (string, bool) {
	switch typed := change.(type) {
	case protocol.TextDocumentContentChangeEventWhole:
		return typed.Text, true
	case protocol.TextDocumentContentChangeEvent:
		return typed.Text, true
	default:
		return "", false
	}
}

func ptrString(s string) *string { return &s }
