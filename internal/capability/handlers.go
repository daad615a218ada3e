// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package capability

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/lspctl/lspman/internal/langserver"
	"github.com/lspctl/lspman/internal/lspproto"
)

// Facade wires the capability HTTP handlers to a single started Server's
// Operations. One Facade exists per cmd/lspchild process.
type Facade struct {
	ops    *langserver.Operations
	rename *renameStore
}

// NewFacade wraps ops in an HTTP facade.
func NewFacade(ops *langserver.Operations) *Facade {
	return &Facade{ops: ops, rename: newRenameStore()}
}

// Register attaches every /capability/* route to router.
func (f *Facade) Register(router gin.IRouter) {
	g := router.Group("/capability")
	g.POST("/definition", f.handleDefinition)
	g.POST("/reference", f.handleReference)
	g.POST("/hover", f.handleHover)
	g.POST("/symbol", f.handleSymbol)
	g.POST("/outline", f.handleOutline)
	g.POST("/search", f.handleSearch)
	g.POST("/locate", f.handleLocate)
	g.POST("/rename/preview", f.handleRenamePreview)
	g.POST("/rename/execute", f.handleRenameExecute)
}

func bindError(c *gin.Context, err error) bool {
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return true
	}
	return false
}

func errorBody(err error) gin.H { return gin.H{"error": err.Error()} }

func (f *Facade) handleDefinition(c *gin.Context) {
	var req LocateRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	line, col := req.Position()
	locations, err := f.ops.Definition(c.Request.Context(), req.FilePath, line, col)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, DefinitionResponse{Locations: toLocationOut(f.ops, locations)})
}

func (f *Facade) handleReference(c *gin.Context) {
	var req ReferenceRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	line, col := req.Position()
	locations, err := f.ops.References(c.Request.Context(), req.FilePath, line, col, req.IncludeDeclaration)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, ReferenceResponse{Locations: toLocationOut(f.ops, locations)})
}

func (f *Facade) handleHover(c *gin.Context) {
	var req LocateRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	line, col := req.Position()
	hover, err := f.ops.Hover(c.Request.Context(), req.FilePath, line, col)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	if hover == nil {
		c.JSON(http.StatusOK, HoverResponse{})
		return
	}
	c.JSON(http.StatusOK, HoverResponse{Content: hover.Content, Kind: hover.Kind})
}

func (f *Facade) handleSymbol(c *gin.Context) {
	var req LocateRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	line, col := req.Position()
	sym, err := f.ops.SymbolAt(c.Request.Context(), req.FilePath, line, col)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	if sym == nil {
		c.JSON(http.StatusOK, SymbolResponse{})
		return
	}
	c.JSON(http.StatusOK, SymbolResponse{
		Name:   sym.Name,
		Kind:   symbolKindName(sym.Kind),
		Detail: sym.Detail,
		Line:   sym.Range.Start.Line + 1,
		Col:    sym.Range.Start.Character,
	})
}

func (f *Facade) handleOutline(c *gin.Context) {
	var req OutlineRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	symbols, err := f.ops.Outline(c.Request.Context(), req.FilePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, OutlineResponse{Items: toOutlineItems(symbols, req.All)})
}

func (f *Facade) handleSearch(c *gin.Context) {
	var req SearchRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	symbols, err := f.ops.WorkspaceSymbol(c.Request.Context(), req.Query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	results := make([]SearchResult, 0, len(symbols))
	for _, s := range symbols {
		results = append(results, SearchResult{
			Name:        s.Name,
			Kind:        symbolKindName(s.Kind),
			FilePath:    f.ops.URIToPath(s.Location.URI),
			Line:        s.Location.Range.Start.Line + 1,
			ContainerOf: s.ContainerName,
		})
	}
	c.JSON(http.StatusOK, SearchResponse{Results: results})
}

func (f *Facade) handleLocate(c *gin.Context) {
	var req LocateRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	contents, err := os.ReadFile(req.FilePath)
	if err != nil {
		c.JSON(http.StatusOK, CapLocateResponse{Found: false})
		return
	}
	lines := strings.Split(string(contents), "\n")
	if req.Line < 1 || req.Line > len(lines) {
		c.JSON(http.StatusOK, CapLocateResponse{Found: false})
		return
	}
	endLine := req.EndLine
	if endLine < req.Line {
		endLine = req.Line
	}
	if endLine > len(lines) {
		endLine = len(lines)
	}
	c.JSON(http.StatusOK, CapLocateResponse{
		Found:   true,
		Context: strings.Join(lines[req.Line-1:endLine], "\n"),
	})
}

func (f *Facade) handleRenamePreview(c *gin.Context) {
	var req RenamePreviewRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}
	line, col := req.Position()
	edit, err := f.ops.Rename(c.Request.Context(), req.FilePath, line, col, req.NewName)
	if err != nil {
		c.JSON(http.StatusOK, RenamePreviewResponse{})
		return
	}

	id, files, err := f.rename.store(f.ops, edit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, RenamePreviewResponse{RenameID: id, Files: files})
}

func (f *Facade) handleRenameExecute(c *gin.Context) {
	var req RenameExecuteRequest
	if bindError(c, c.ShouldBindJSON(&req)) {
		return
	}

	applied, skipped, count, err := f.rename.apply(req.RenameID, req.ExcludeFiles)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody(err))
		return
	}
	c.JSON(http.StatusOK, RenameExecuteResponse{AppliedFiles: applied, SkippedFiles: skipped, EditCount: count})
}

func toLocationOut(ops *langserver.Operations, locations []lspproto.Location) []LocationOut {
	out := make([]LocationOut, 0, len(locations))
	for _, loc := range locations {
		out = append(out, LocationOut{
			FilePath: ops.URIToPath(loc.URI),
			Line:     loc.Range.Start.Line + 1,
			Col:      loc.Range.Start.Character,
		})
	}
	return out
}

func toOutlineItems(symbols []lspproto.DocumentSymbol, all bool) []OutlineItem {
	items := make([]OutlineItem, 0, len(symbols))
	for _, s := range symbols {
		if !all && !lspproto.StructuralKinds[s.Kind] {
			continue
		}
		items = append(items, OutlineItem{
			Name:     s.Name,
			Kind:     symbolKindName(s.Kind),
			Detail:   s.Detail,
			Line:     s.Range.Start.Line + 1,
			Children: toOutlineItems(s.Children, all),
		})
	}
	return items
}

var symbolKindNames = map[lspproto.SymbolKind]string{
	lspproto.SymbolKindFile: "file", lspproto.SymbolKindModule: "module",
	lspproto.SymbolKindNamespace: "namespace", lspproto.SymbolKindPackage: "package",
	lspproto.SymbolKindClass: "class", lspproto.SymbolKindMethod: "method",
	lspproto.SymbolKindProperty: "property", lspproto.SymbolKindField: "field",
	lspproto.SymbolKindConstructor: "constructor", lspproto.SymbolKindEnum: "enum",
	lspproto.SymbolKindInterface: "interface", lspproto.SymbolKindFunction: "function",
	lspproto.SymbolKindVariable: "variable", lspproto.SymbolKindConstant: "constant",
	lspproto.SymbolKindString: "string", lspproto.SymbolKindNumber: "number",
	lspproto.SymbolKindBoolean: "boolean", lspproto.SymbolKindArray: "array",
	lspproto.SymbolKindObject: "object", lspproto.SymbolKindKey: "key",
	lspproto.SymbolKindNull: "null", lspproto.SymbolKindEnumMember: "enum_member",
	lspproto.SymbolKindStruct: "struct", lspproto.SymbolKindEvent: "event",
	lspproto.SymbolKindOperator: "operator", lspproto.SymbolKindTypeParameter: "type_parameter",
}

func symbolKindName(k lspproto.SymbolKind) string {
	if name, ok := symbolKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind_%d", k)
}
