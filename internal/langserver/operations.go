// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package langserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/lspctl/lspman/internal/lspproto"
)

// Operations provides the high-level capability methods the HTTP façade
// dispatches to: one per CLI-facing capability, each translating to the
// appropriate textDocument/* or workspace/* request against the single
// wrapped Server.
//
// Thread Safety: safe for concurrent use.
type Operations struct {
	server *Server
}

// NewOperations wraps a started Server.
func NewOperations(server *Server) *Operations {
	return &Operations{server: server}
}

// Server returns the underlying server.
func (o *Operations) Server() *Server { return o.server }

const (
	maxRetries = 1
	retryDelay = 100 * time.Millisecond
)

// isRetryableError returns true for transient failures worth one retry.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, lspproto.ErrServerCrashed) || errors.Is(err, lspproto.ErrServerNotRunning) {
		return true
	}
	var lspErr *lspproto.LSPError
	if errors.As(err, &lspErr) {
		return lspErr.IsTransientServerError()
	}
	return false
}

// pathToURI converts an absolute file path to a file:// URI, percent
// encoding as needed.
func pathToURI(path string) string {
	if !filepath.IsAbs(path) {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
	}
	u := &url.URL{Scheme: "file", Path: path}
	return u.String()
}

// uriToPath converts a file:// URI back to a filesystem path.
func uriToPath(uri string) string {
	if u, err := url.Parse(uri); err == nil && u.Scheme == "file" {
		return u.Path
	}
	return strings.TrimPrefix(uri, "file://")
}

// parseLocationResponse handles the several shapes textDocument/definition
// may return: a single Location, an array of Locations, or an array of
// LocationLinks.
func parseLocationResponse(data json.RawMessage) ([]lspproto.Location, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}

	if data[0] == '[' {
		var links []lspproto.LocationLink
		if err := json.Unmarshal(data, &links); err == nil && len(links) > 0 && links[0].TargetURI != "" {
			locations := make([]lspproto.Location, len(links))
			for i, link := range links {
				locations[i] = lspproto.Location{URI: link.TargetURI, Range: link.TargetSelectionRange}
			}
			return locations, nil
		}
		var locations []lspproto.Location
		if err := json.Unmarshal(data, &locations); err == nil {
			return locations, nil
		}
	}

	var single lspproto.Location
	if err := json.Unmarshal(data, &single); err == nil && single.URI != "" {
		return []lspproto.Location{single}, nil
	}

	var link lspproto.LocationLink
	if err := json.Unmarshal(data, &link); err == nil && link.TargetURI != "" {
		return []lspproto.Location{{URI: link.TargetURI, Range: link.TargetSelectionRange}}, nil
	}

	return nil, lspproto.ErrInvalidResponse
}

// requestWithRetry retries once on a transient server error. Only
// idempotent operations should use this.
func (o *Operations) requestWithRetry(ctx context.Context, requestFn func() (*lspproto.Response, error)) (*lspproto.Response, error) {
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		resp, err := requestFn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if isRetryableError(err) && attempt < maxRetries {
			slog.Debug("retrying lsp request after transient error", slog.Int("attempt", attempt+1), slog.String("error", err.Error()))
			time.Sleep(retryDelay)
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// Definition returns the definition location(s) for the symbol at
// (line, col). line is 1-indexed, col is 0-indexed.
func (o *Operations) Definition(ctx context.Context, filePath string, line, col int) ([]lspproto.Location, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	ctx, span := startOperationSpan(ctx, "Definition", o.server.Language(), filePath)
	defer span.End()
	start := time.Now()

	params := lspproto.TextDocumentPositionParams{
		TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)},
		Position:     lspproto.Position{Line: line - 1, Character: col},
	}

	resp, err := o.requestWithRetry(ctx, func() (*lspproto.Response, error) {
		return o.server.Request(ctx, "textDocument/definition", params)
	})
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "definition", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("definition request: %w", err)
	}

	locations, err := parseLocationResponse(resp.Result)
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "definition", o.server.Language(), time.Since(start), 0, false)
		return nil, err
	}

	setOperationSpanResult(span, len(locations), true)
	recordOperationMetrics(ctx, "definition", o.server.Language(), time.Since(start), len(locations), true)
	return locations, nil
}

// References returns all locations referencing the symbol at (line, col).
func (o *Operations) References(ctx context.Context, filePath string, line, col int, includeDecl bool) ([]lspproto.Location, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	ctx, span := startOperationSpan(ctx, "References", o.server.Language(), filePath)
	defer span.End()
	start := time.Now()

	params := lspproto.ReferenceParams{
		TextDocumentPositionParams: lspproto.TextDocumentPositionParams{
			TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)},
			Position:     lspproto.Position{Line: line - 1, Character: col},
		},
		Context: lspproto.ReferenceContext{IncludeDeclaration: includeDecl},
	}

	resp, err := o.requestWithRetry(ctx, func() (*lspproto.Response, error) {
		return o.server.Request(ctx, "textDocument/references", params)
	})
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "references", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("references request: %w", err)
	}

	locations, err := parseLocationResponse(resp.Result)
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "references", o.server.Language(), time.Since(start), 0, false)
		return nil, err
	}

	setOperationSpanResult(span, len(locations), true)
	recordOperationMetrics(ctx, "references", o.server.Language(), time.Since(start), len(locations), true)
	return locations, nil
}

// HoverInfo is the parsed hover result: documentation/type text for `doc`.
type HoverInfo struct {
	Content string       `json:"content"`
	Kind    string       `json:"kind"`
	Range   *lspproto.Range `json:"range,omitempty"`
}

// Hover returns doc/type info for the symbol at (line, col), or nil if
// the server has none.
func (o *Operations) Hover(ctx context.Context, filePath string, line, col int) (*HoverInfo, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	ctx, span := startOperationSpan(ctx, "Hover", o.server.Language(), filePath)
	defer span.End()
	start := time.Now()

	params := lspproto.TextDocumentPositionParams{
		TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)},
		Position:     lspproto.Position{Line: line - 1, Character: col},
	}

	resp, err := o.requestWithRetry(ctx, func() (*lspproto.Response, error) {
		return o.server.Request(ctx, "textDocument/hover", params)
	})
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "hover", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("hover request: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		setOperationSpanResult(span, 0, true)
		recordOperationMetrics(ctx, "hover", o.server.Language(), time.Since(start), 0, true)
		return nil, nil
	}

	var result lspproto.HoverResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "hover", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("parse hover result: %w", err)
	}

	setOperationSpanResult(span, 1, true)
	recordOperationMetrics(ctx, "hover", o.server.Language(), time.Since(start), 1, true)
	return &HoverInfo{Content: result.Contents.Value, Kind: result.Contents.Kind, Range: result.Range}, nil
}

// Rename computes, but does not apply, the edits to rename the symbol at
// (line, col) to newName.
func (o *Operations) Rename(ctx context.Context, filePath string, line, col int, newName string) (*lspproto.WorkspaceEdit, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if newName == "" {
		return nil, fmt.Errorf("newName must not be empty")
	}

	ctx, span := startOperationSpan(ctx, "Rename", o.server.Language(), filePath)
	defer span.End()
	start := time.Now()

	params := lspproto.RenameParams{
		TextDocumentPositionParams: lspproto.TextDocumentPositionParams{
			TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)},
			Position:     lspproto.Position{Line: line - 1, Character: col},
		},
		NewName: newName,
	}

	resp, err := o.server.Request(ctx, "textDocument/rename", params)
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "rename", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("rename request: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "rename", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("rename not supported at position")
	}

	var edit lspproto.WorkspaceEdit
	if err := json.Unmarshal(resp.Result, &edit); err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "rename", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("parse rename result: %w", err)
	}

	editCount := len(edit.Changes)
	setOperationSpanResult(span, editCount, true)
	recordOperationMetrics(ctx, "rename", o.server.Language(), time.Since(start), editCount, true)
	return &edit, nil
}

// PrepareRename checks whether the symbol at (line, col) can be renamed.
func (o *Operations) PrepareRename(ctx context.Context, filePath string, line, col int) (*lspproto.PrepareRenameResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	params := lspproto.PrepareRenameParams{
		TextDocumentPositionParams: lspproto.TextDocumentPositionParams{
			TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)},
			Position:     lspproto.Position{Line: line - 1, Character: col},
		},
	}

	resp, err := o.server.Request(ctx, "textDocument/prepareRename", params)
	if err != nil {
		return nil, fmt.Errorf("prepareRename request: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, nil
	}

	var result lspproto.PrepareRenameResult
	if err := json.Unmarshal(resp.Result, &result); err == nil && result.Placeholder != "" {
		return &result, nil
	}

	var r lspproto.Range
	if err := json.Unmarshal(resp.Result, &r); err == nil {
		return &lspproto.PrepareRenameResult{Range: r}, nil
	}
	return nil, nil
}

// WorkspaceSymbol finds symbols matching query across the workspace
// (the `search` subcommand).
func (o *Operations) WorkspaceSymbol(ctx context.Context, query string) ([]lspproto.SymbolInformation, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	ctx, span := startOperationSpan(ctx, "WorkspaceSymbol", o.server.Language(), "")
	defer span.End()
	start := time.Now()

	resp, err := o.server.Request(ctx, "workspace/symbol", lspproto.WorkspaceSymbolParams{Query: query})
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "workspace_symbol", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("symbol request: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		setOperationSpanResult(span, 0, true)
		recordOperationMetrics(ctx, "workspace_symbol", o.server.Language(), time.Since(start), 0, true)
		return nil, nil
	}

	var symbols []lspproto.SymbolInformation
	if err := json.Unmarshal(resp.Result, &symbols); err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "workspace_symbol", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("parse symbol result: %w", err)
	}

	setOperationSpanResult(span, len(symbols), true)
	recordOperationMetrics(ctx, "workspace_symbol", o.server.Language(), time.Since(start), len(symbols), true)
	return symbols, nil
}

// Outline returns the document symbol tree for filePath (the `outline`
// subcommand). Filtering to structural kinds unless --all is the caller's
// job (internal/capability applies it).
func (o *Operations) Outline(ctx context.Context, filePath string) ([]lspproto.DocumentSymbol, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}

	ctx, span := startOperationSpan(ctx, "Outline", o.server.Language(), filePath)
	defer span.End()
	start := time.Now()

	params := lspproto.DocumentSymbolParams{TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)}}

	resp, err := o.requestWithRetry(ctx, func() (*lspproto.Response, error) {
		return o.server.Request(ctx, "textDocument/documentSymbol", params)
	})
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "outline", o.server.Language(), time.Since(start), 0, false)
		return nil, fmt.Errorf("documentSymbol request: %w", err)
	}

	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		setOperationSpanResult(span, 0, true)
		recordOperationMetrics(ctx, "outline", o.server.Language(), time.Since(start), 0, true)
		return nil, nil
	}

	symbols, err := parseDocumentSymbolResponse(resp.Result)
	if err != nil {
		setOperationSpanResult(span, 0, false)
		recordOperationMetrics(ctx, "outline", o.server.Language(), time.Since(start), 0, false)
		return nil, err
	}

	setOperationSpanResult(span, len(symbols), true)
	recordOperationMetrics(ctx, "outline", o.server.Language(), time.Since(start), len(symbols), true)
	return symbols, nil
}

// parseDocumentSymbolResponse accepts either the hierarchical
// DocumentSymbol[] shape or the flat SymbolInformation[] shape, since
// servers differ in which one they return, and normalizes to
// DocumentSymbol.
func parseDocumentSymbolResponse(data json.RawMessage) ([]lspproto.DocumentSymbol, error) {
	var hierarchical []lspproto.DocumentSymbol
	if err := json.Unmarshal(data, &hierarchical); err == nil {
		for _, s := range hierarchical {
			if s.Name != "" {
				return hierarchical, nil
			}
		}
	}

	var flat []lspproto.SymbolInformation
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, lspproto.ErrInvalidResponse
	}
	out := make([]lspproto.DocumentSymbol, len(flat))
	for i, s := range flat {
		out[i] = lspproto.DocumentSymbol{
			Name:           s.Name,
			Kind:           s.Kind,
			Range:          s.Location.Range,
			SelectionRange: s.Location.Range,
		}
	}
	return out, nil
}

// SymbolAt returns the document symbol (from the outline) that encloses
// (line, col), for the `symbol` subcommand — distinct from Hover: doc is
// hover text, symbol is the enclosing structural entry plus its detail.
func (o *Operations) SymbolAt(ctx context.Context, filePath string, line, col int) (*lspproto.DocumentSymbol, error) {
	symbols, err := o.Outline(ctx, filePath)
	if err != nil {
		return nil, err
	}
	pos := lspproto.Position{Line: line - 1, Character: col}
	return enclosingSymbol(symbols, pos), nil
}

// enclosingSymbol walks the symbol tree depth-first, returning the
// smallest (deepest) range containing pos.
func enclosingSymbol(symbols []lspproto.DocumentSymbol, pos lspproto.Position) *lspproto.DocumentSymbol {
	var best *lspproto.DocumentSymbol
	for i := range symbols {
		s := &symbols[i]
		if !rangeContains(s.Range, pos) {
			continue
		}
		if child := enclosingSymbol(s.Children, pos); child != nil {
			return child
		}
		best = s
	}
	return best
}

func rangeContains(r lspproto.Range, p lspproto.Position) bool {
	if p.Line < r.Start.Line || p.Line > r.End.Line {
		return false
	}
	if p.Line == r.Start.Line && p.Character < r.Start.Character {
		return false
	}
	if p.Line == r.End.Line && p.Character > r.End.Character {
		return false
	}
	return true
}

// OpenDocument sends textDocument/didOpen, required before most LSP
// operations will resolve correctly for a file the server hasn't seen.
func (o *Operations) OpenDocument(ctx context.Context, filePath, content string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	params := lspproto.DidOpenTextDocumentParams{
		TextDocument: lspproto.TextDocumentItem{
			URI:        pathToURI(filePath),
			LanguageID: o.server.Language(),
			Version:    1,
			Text:       content,
		},
	}
	return o.server.Notify("textDocument/didOpen", params)
}

// CloseDocument sends textDocument/didClose.
func (o *Operations) CloseDocument(ctx context.Context, filePath string) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}
	params := lspproto.DidCloseTextDocumentParams{TextDocument: lspproto.TextDocumentIdentifier{URI: pathToURI(filePath)}}
	return o.server.Notify("textDocument/didClose", params)
}

// URIToPath converts a file:// URI to a filesystem path.
func (o *Operations) URIToPath(uri string) string { return uriToPath(uri) }

// PathToURI converts a filesystem path to a file:// URI.
func (o *Operations) PathToURI(path string) string { return pathToURI(path) }

// WorkspaceEditSummary is a human-readable summary of a WorkspaceEdit, used
// to render rename previews.
type WorkspaceEditSummary struct {
	FileCount  int
	TotalEdits int
	Files      map[string]int
}

// SummarizeWorkspaceEdit reports how many files and edits a rename would
// touch.
func (o *Operations) SummarizeWorkspaceEdit(edit *lspproto.WorkspaceEdit) WorkspaceEditSummary {
	summary := WorkspaceEditSummary{Files: make(map[string]int)}
	if edit == nil {
		return summary
	}

	for uri, edits := range edit.Changes {
		filePath := uriToPath(uri)
		summary.Files[filePath] = len(edits)
		summary.TotalEdits += len(edits)
	}
	for _, docChange := range edit.DocumentChanges {
		filePath := uriToPath(docChange.TextDocument.URI)
		if _, exists := summary.Files[filePath]; !exists {
			summary.Files[filePath] = len(docChange.Edits)
			summary.TotalEdits += len(docChange.Edits)
		}
	}
	summary.FileCount = len(summary.Files)
	return summary
}

// ValidateWorkspaceEdit performs basic sanity checks on a WorkspaceEdit
// before it is applied to disk. It does not check that files exist or are
// writable.
func (o *Operations) ValidateWorkspaceEdit(edit *lspproto.WorkspaceEdit) error {
	if edit == nil {
		return fmt.Errorf("workspace edit is nil")
	}
	if len(edit.Changes) == 0 && len(edit.DocumentChanges) == 0 {
		return fmt.Errorf("workspace edit has no changes")
	}

	for uri, edits := range edit.Changes {
		if !strings.HasPrefix(uri, "file://") {
			return fmt.Errorf("invalid uri scheme: %s", uri)
		}
		for i, e := range edits {
			if e.Range.Start.Line < 0 || e.Range.Start.Character < 0 {
				return fmt.Errorf("invalid range in edit %d for %s: negative position", i, uri)
			}
			if e.Range.End.Line < e.Range.Start.Line {
				return fmt.Errorf("invalid range in edit %d for %s: end before start", i, uri)
			}
		}
	}
	for _, docChange := range edit.DocumentChanges {
		uri := docChange.TextDocument.URI
		if !strings.HasPrefix(uri, "file://") {
			return fmt.Errorf("invalid uri scheme: %s", uri)
		}
	}
	return nil
}
