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
	"testing"

	"github.com/lspctl/lspman/internal/langserver"
	"github.com/lspctl/lspman/internal/lspproto"
)

func TestSymbolKindName_KnownAndUnknown(t *testing.T) {
	if got, want := symbolKindName(lspproto.SymbolKindFunction), "function"; got != want {
		t.Errorf("symbolKindName(Function) = %q, want %q", got, want)
	}
	if got, want := symbolKindName(lspproto.SymbolKind(9999)), "kind_9999"; got != want {
		t.Errorf("symbolKindName(unknown) = %q, want %q", got, want)
	}
}

func TestToLocationOut_ConvertsURIAndOneIndexesLine(t *testing.T) {
	ops := langserver.NewOperations(nil)
	locations := []lspproto.Location{
		{URI: "file:///tmp/a.go", Range: lspproto.Range{Start: lspproto.Position{Line: 4, Character: 2}}},
	}
	out := toLocationOut(ops, locations)
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].FilePath != "/tmp/a.go" {
		t.Errorf("FilePath = %q, want /tmp/a.go", out[0].FilePath)
	}
	if out[0].Line != 5 {
		t.Errorf("Line = %d, want 5 (1-indexed)", out[0].Line)
	}
	if out[0].Col != 2 {
		t.Errorf("Col = %d, want 2", out[0].Col)
	}
}

func TestToOutlineItems_FiltersNonStructuralByDefault(t *testing.T) {
	symbols := []lspproto.DocumentSymbol{
		{Name: "MyFunc", Kind: lspproto.SymbolKindFunction},
		{Name: "myVar", Kind: lspproto.SymbolKindVariable},
	}

	structuralOnly := toOutlineItems(symbols, false)
	if len(structuralOnly) != 1 || structuralOnly[0].Name != "MyFunc" {
		t.Errorf("toOutlineItems(all=false) = %+v, want only MyFunc", structuralOnly)
	}

	all := toOutlineItems(symbols, true)
	if len(all) != 2 {
		t.Errorf("toOutlineItems(all=true) len = %d, want 2", len(all))
	}
}

func TestToOutlineItems_RecursesIntoChildren(t *testing.T) {
	symbols := []lspproto.DocumentSymbol{
		{
			Name: "Outer",
			Kind: lspproto.SymbolKindClass,
			Children: []lspproto.DocumentSymbol{
				{Name: "Inner", Kind: lspproto.SymbolKindMethod},
			},
		},
	}
	items := toOutlineItems(symbols, false)
	if len(items) != 1 {
		t.Fatalf("len(items) = %d, want 1", len(items))
	}
	if len(items[0].Children) != 1 || items[0].Children[0].Name != "Inner" {
		t.Errorf("Children = %+v, want one child named Inner", items[0].Children)
	}
}

func TestLocateRequest_Position(t *testing.T) {
	withCol := LocateRequest{Line: 10, Col: 4, HasCol: true}
	if line, col := withCol.Position(); line != 10 || col != 4 {
		t.Errorf("Position() = (%d, %d), want (10, 4)", line, col)
	}

	withoutCol := LocateRequest{Line: 10, HasCol: false}
	if line, col := withoutCol.Position(); line != 10 || col != 0 {
		t.Errorf("Position() = (%d, %d), want (10, 0)", line, col)
	}
}
