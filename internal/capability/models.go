// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package capability implements the HTTP capability façade a cmd/lspchild
// process exposes over its Unix socket: one handler per LSP-backed
// operation in internal/langserver, plus the locate and rename-execute
// glue that doesn't map onto a single LSP request.
package capability

// LocateRequest carries a parsed cursor location. FilePath is always
// absolute by the time it reaches the façade (the CLI resolves it).
type LocateRequest struct {
	FilePath string `json:"file_path" binding:"required"`
	Line     int    `json:"line" binding:"required"`
	EndLine  int    `json:"end_line,omitempty"`
	Col      int    `json:"col"`
	HasCol   bool   `json:"has_col"`
	Symbol   string `json:"symbol,omitempty"`
}

// Position extracts the (line, col) pair operations.go expects. If no
// column was given, 0 is used (start of line).
func (r LocateRequest) Position() (line, col int) {
	if r.HasCol {
		return r.Line, r.Col
	}
	return r.Line, 0
}

// LocationOut is one location in a definition/reference response.
type LocationOut struct {
	FilePath string `json:"file_path"`
	Line     int    `json:"line"`
	Col      int    `json:"col"`
}

// DefinitionResponse is the /capability/definition response body.
type DefinitionResponse struct {
	Locations []LocationOut `json:"locations"`
}

// ReferenceRequest adds IncludeDeclaration to the base locate fields.
type ReferenceRequest struct {
	LocateRequest
	IncludeDeclaration bool `json:"include_declaration"`
}

// ReferenceResponse is the /capability/reference response body.
type ReferenceResponse struct {
	Locations []LocationOut `json:"locations"`
}

// HoverResponse is the /capability/hover ("doc") response body.
type HoverResponse struct {
	Content string `json:"content"`
	Kind    string `json:"kind"`
}

// SymbolResponse is the /capability/symbol response body: the structural
// entry enclosing the requested position, distinct from hover text.
type SymbolResponse struct {
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
	Line   int    `json:"line"`
	Col    int    `json:"col"`
}

// OutlineRequest is the /capability/outline request body.
type OutlineRequest struct {
	FilePath string `json:"file_path" binding:"required"`
	All      bool   `json:"all"`
}

// OutlineItem is one entry (possibly nested) in an outline response.
type OutlineItem struct {
	Name     string        `json:"name"`
	Kind     string        `json:"kind"`
	Detail   string        `json:"detail,omitempty"`
	Line     int           `json:"line"`
	Children []OutlineItem `json:"children,omitempty"`
}

// OutlineResponse is the /capability/outline response body.
type OutlineResponse struct {
	Items []OutlineItem `json:"items"`
}

// SearchRequest is the /capability/search (workspace/symbol) request body.
type SearchRequest struct {
	Query string `json:"query"`
}

// SearchResult is one workspace symbol match.
type SearchResult struct {
	Name        string `json:"name"`
	Kind        string `json:"kind"`
	FilePath    string `json:"file_path"`
	Line        int    `json:"line"`
	ContainerOf string `json:"container,omitempty"`
}

// SearchResponse is the /capability/search response body.
type SearchResponse struct {
	Results []SearchResult `json:"results"`
}

// CapLocateResponse is the /capability/locate response body: whether the
// target exists, plus surrounding context when it does.
type CapLocateResponse struct {
	Found   bool   `json:"found"`
	Context string `json:"context,omitempty"`
}

// RenamePreviewRequest is the /capability/rename/preview request body.
type RenamePreviewRequest struct {
	LocateRequest
	NewName string `json:"new_name" binding:"required"`
}

// FileDiffSummary summarizes the change to one file in a rename preview.
type FileDiffSummary struct {
	FilePath string `json:"file_path"`
	Added    int    `json:"added"`
	Removed  int    `json:"removed"`
	Diff     string `json:"diff"`
}

// RenamePreviewResponse is the /capability/rename/preview response body.
// RenameID is empty when no rename was possible at the location.
type RenamePreviewResponse struct {
	RenameID string            `json:"rename_id,omitempty"`
	Files    []FileDiffSummary `json:"files,omitempty"`
}

// RenameExecuteRequest is the /capability/rename/execute request body.
// Relative ExcludeFiles entries are resolved by the CLI before forwarding
// (spec §4.4); the façade treats every entry as an absolute path or glob.
type RenameExecuteRequest struct {
	RenameID     string   `json:"rename_id" binding:"required"`
	ExcludeFiles []string `json:"exclude_files,omitempty"`
}

// RenameExecuteResponse is the /capability/rename/execute response body.
type RenameExecuteResponse struct {
	AppliedFiles []string `json:"applied_files"`
	SkippedFiles []string `json:"skipped_files,omitempty"`
	EditCount    int      `json:"edit_count"`
}
