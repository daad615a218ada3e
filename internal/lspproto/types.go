// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lspproto

// Position is a zero-based line/character cursor position, per the LSP
// specification.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a start/end span of Positions.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location identifies a Range within a document URI.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// LocationLink is the richer form some servers return from
// textDocument/definition.
type LocationLink struct {
	OriginSelectionRange *Range `json:"originSelectionRange,omitempty"`
	TargetURI            string `json:"targetUri"`
	TargetRange          Range  `json:"targetRange"`
	TargetSelectionRange Range  `json:"targetSelectionRange"`
}

// TextDocumentIdentifier names a document by URI.
type TextDocumentIdentifier struct {
	URI string `json:"uri"`
}

// TextDocumentItem is the full document payload sent on didOpen.
type TextDocumentItem struct {
	URI        string `json:"uri"`
	LanguageID string `json:"languageId"`
	Version    int    `json:"version"`
	Text       string `json:"text"`
}

// TextDocumentPositionParams pairs a document with a cursor position; the
// base shape for definition/references/hover/rename requests.
type TextDocumentPositionParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Position     Position               `json:"position"`
}

// ReferenceContext controls whether the declaration is included.
type ReferenceContext struct {
	IncludeDeclaration bool `json:"includeDeclaration"`
}

// ReferenceParams is the textDocument/references request body.
type ReferenceParams struct {
	TextDocumentPositionParams
	Context ReferenceContext `json:"context"`
}

// MarkupContent is hover/doc content with an explicit format.
type MarkupContent struct {
	Kind  string `json:"kind"`
	Value string `json:"value"`
}

// HoverResult is the textDocument/hover response body.
type HoverResult struct {
	Contents MarkupContent `json:"contents"`
	Range    *Range        `json:"range,omitempty"`
}

// RenameParams is the textDocument/rename request body.
type RenameParams struct {
	TextDocumentPositionParams
	NewName string `json:"newName"`
}

// PrepareRenameParams is the textDocument/prepareRename request body.
type PrepareRenameParams struct {
	TextDocumentPositionParams
}

// PrepareRenameResult reports the renameable range and a placeholder name.
type PrepareRenameResult struct {
	Range       Range  `json:"range"`
	Placeholder string `json:"placeholder"`
}

// TextEdit replaces Range with NewText.
type TextEdit struct {
	Range   Range  `json:"range"`
	NewText string `json:"newText"`
}

// TextDocumentEdit groups edits to one versioned document.
type TextDocumentEdit struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
	Edits        []TextEdit             `json:"edits"`
}

// WorkspaceEdit is the textDocument/rename response body.
type WorkspaceEdit struct {
	Changes         map[string][]TextEdit `json:"changes,omitempty"`
	DocumentChanges []TextDocumentEdit    `json:"documentChanges,omitempty"`
}

// WorkspaceSymbolParams is the workspace/symbol request body.
type WorkspaceSymbolParams struct {
	Query string `json:"query"`
}

// SymbolKind mirrors the LSP SymbolKind enumeration.
type SymbolKind int

const (
	SymbolKindFile          SymbolKind = 1
	SymbolKindModule        SymbolKind = 2
	SymbolKindNamespace     SymbolKind = 3
	SymbolKindPackage       SymbolKind = 4
	SymbolKindClass         SymbolKind = 5
	SymbolKindMethod        SymbolKind = 6
	SymbolKindProperty      SymbolKind = 7
	SymbolKindField         SymbolKind = 8
	SymbolKindConstructor   SymbolKind = 9
	SymbolKindEnum          SymbolKind = 10
	SymbolKindInterface     SymbolKind = 11
	SymbolKindFunction      SymbolKind = 12
	SymbolKindVariable      SymbolKind = 13
	SymbolKindConstant      SymbolKind = 14
	SymbolKindString        SymbolKind = 15
	SymbolKindNumber        SymbolKind = 16
	SymbolKindBoolean       SymbolKind = 17
	SymbolKindArray         SymbolKind = 18
	SymbolKindObject        SymbolKind = 19
	SymbolKindKey           SymbolKind = 20
	SymbolKindNull          SymbolKind = 21
	SymbolKindEnumMember    SymbolKind = 22
	SymbolKindStruct        SymbolKind = 23
	SymbolKindEvent         SymbolKind = 24
	SymbolKindOperator      SymbolKind = 25
	SymbolKindTypeParameter SymbolKind = 26
)

// StructuralKinds are the kinds `outline` shows by default (all other kinds
// require --all).
var StructuralKinds = map[SymbolKind]bool{
	SymbolKindClass:     true,
	SymbolKindFunction:  true,
	SymbolKindMethod:    true,
	SymbolKindInterface: true,
	SymbolKindEnum:      true,
	SymbolKindModule:    true,
	SymbolKindNamespace: true,
	SymbolKindStruct:    true,
}

// SymbolInformation is the flat symbol shape returned by workspace/symbol
// and (by some servers) textDocument/documentSymbol.
type SymbolInformation struct {
	Name          string     `json:"name"`
	Kind          SymbolKind `json:"kind"`
	Location      Location   `json:"location"`
	ContainerName string     `json:"containerName,omitempty"`
}

// DocumentSymbol is the hierarchical symbol shape returned by
// textDocument/documentSymbol on servers that support it.
type DocumentSymbol struct {
	Name           string           `json:"name"`
	Detail         string           `json:"detail,omitempty"`
	Kind           SymbolKind       `json:"kind"`
	Range          Range            `json:"range"`
	SelectionRange Range            `json:"selectionRange"`
	Children       []DocumentSymbol `json:"children,omitempty"`
}

// DocumentSymbolParams is the textDocument/documentSymbol request body.
type DocumentSymbolParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// DidOpenTextDocumentParams is the textDocument/didOpen notification body.
type DidOpenTextDocumentParams struct {
	TextDocument TextDocumentItem `json:"textDocument"`
}

// DidCloseTextDocumentParams is the textDocument/didClose notification body.
type DidCloseTextDocumentParams struct {
	TextDocument TextDocumentIdentifier `json:"textDocument"`
}

// =============================================================================
// INITIALIZE HANDSHAKE
// =============================================================================

// TextDocumentSyncClientCapabilities declares sync-related client support.
type TextDocumentSyncClientCapabilities struct {
	DidSave bool `json:"didSave,omitempty"`
}

// DefinitionCapabilities declares client support for go-to-definition.
type DefinitionCapabilities struct{}

// ReferencesCapabilities declares client support for find-references.
type ReferencesCapabilities struct{}

// HoverCapabilities declares client support for hover, and the accepted
// content formats.
type HoverCapabilities struct {
	ContentFormat []string `json:"contentFormat,omitempty"`
}

// RenameCapabilities declares client support for rename, including
// prepareRename.
type RenameCapabilities struct {
	PrepareSupport bool `json:"prepareSupport,omitempty"`
}

// TextDocumentClientCapabilities groups the per-feature capability blocks
// this client declares.
type TextDocumentClientCapabilities struct {
	Synchronization *TextDocumentSyncClientCapabilities `json:"synchronization,omitempty"`
	Definition      *DefinitionCapabilities             `json:"definition,omitempty"`
	References      *ReferencesCapabilities              `json:"references,omitempty"`
	Hover           *HoverCapabilities                   `json:"hover,omitempty"`
	Rename          *RenameCapabilities                  `json:"rename,omitempty"`
	DocumentSymbol  *DocumentSymbolClientCapabilities     `json:"documentSymbol,omitempty"`
}

// DocumentSymbolClientCapabilities declares client support for the outline
// request.
type DocumentSymbolClientCapabilities struct {
	HierarchicalDocumentSymbolSupport bool `json:"hierarchicalDocumentSymbolSupport,omitempty"`
}

// WorkspaceEditClientCapabilities declares client support for the edit
// shapes a server may return from rename.
type WorkspaceEditClientCapabilities struct {
	DocumentChanges bool `json:"documentChanges,omitempty"`
}

// WorkspaceSymbolClientCapabilities declares client support for
// workspace/symbol.
type WorkspaceSymbolClientCapabilities struct{}

// WorkspaceClientCapabilities groups workspace-scoped capability blocks.
type WorkspaceClientCapabilities struct {
	ApplyEdit     bool                               `json:"applyEdit,omitempty"`
	WorkspaceEdit *WorkspaceEditClientCapabilities    `json:"workspaceEdit,omitempty"`
	Symbol        *WorkspaceSymbolClientCapabilities  `json:"symbol,omitempty"`
}

// ClientCapabilities is the top-level capabilities block sent in
// InitializeParams.
type ClientCapabilities struct {
	TextDocument TextDocumentClientCapabilities `json:"textDocument"`
	Workspace    WorkspaceClientCapabilities     `json:"workspace"`
}

// WorkspaceFolder names one workspace root.
type WorkspaceFolder struct {
	URI  string `json:"uri"`
	Name string `json:"name"`
}

// InitializeParams is the initialize request body.
type InitializeParams struct {
	ProcessID             int                 `json:"processId"`
	RootURI               string              `json:"rootUri"`
	RootPath              string              `json:"rootPath,omitempty"`
	Capabilities          ClientCapabilities  `json:"capabilities"`
	WorkspaceFolders      []WorkspaceFolder   `json:"workspaceFolders,omitempty"`
	InitializationOptions interface{}         `json:"initializationOptions,omitempty"`
}

// ServerCapabilities is the subset of the initialize response this client
// inspects to decide which operations a server actually supports.
type ServerCapabilities struct {
	DefinitionProvider     interface{} `json:"definitionProvider,omitempty"`
	ReferencesProvider     interface{} `json:"referencesProvider,omitempty"`
	HoverProvider          interface{} `json:"hoverProvider,omitempty"`
	RenameProvider         interface{} `json:"renameProvider,omitempty"`
	DocumentSymbolProvider interface{} `json:"documentSymbolProvider,omitempty"`
	WorkspaceSymbolProvider interface{} `json:"workspaceSymbolProvider,omitempty"`
}

// HasDefinitionProvider reports whether the server advertised definition
// support.
func (c ServerCapabilities) HasDefinitionProvider() bool { return truthy(c.DefinitionProvider) }

// HasReferencesProvider reports whether the server advertised references
// support.
func (c ServerCapabilities) HasReferencesProvider() bool { return truthy(c.ReferencesProvider) }

// HasHoverProvider reports whether the server advertised hover support.
func (c ServerCapabilities) HasHoverProvider() bool { return truthy(c.HoverProvider) }

// HasRenameProvider reports whether the server advertised rename support.
func (c ServerCapabilities) HasRenameProvider() bool { return truthy(c.RenameProvider) }

// HasDocumentSymbolProvider reports outline support.
func (c ServerCapabilities) HasDocumentSymbolProvider() bool {
	return truthy(c.DocumentSymbolProvider)
}

// HasWorkspaceSymbolProvider reports workspace search support.
func (c ServerCapabilities) HasWorkspaceSymbolProvider() bool {
	return truthy(c.WorkspaceSymbolProvider)
}

// truthy interprets an LSP *Provider capability field: servers report
// either a bare bool or an options object, both of which mean "supported"
// unless explicitly false.
func truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	if b, ok := v.(bool); ok {
		return b
	}
	return true
}

// InitializeResult is the initialize response body.
type InitializeResult struct {
	Capabilities ServerCapabilities `json:"capabilities"`
}
