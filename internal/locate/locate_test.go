// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package locate

import (
	"path/filepath"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantLine   int
		wantEnd    int
		wantCol    int
		wantHasCol bool
		wantSymbol string
		wantErr    bool
	}{
		{name: "line only", input: "main.go:10", wantLine: 10, wantEnd: 10, wantHasCol: false},
		{name: "line and col", input: "main.go:10:5", wantLine: 10, wantEnd: 10, wantCol: 5, wantHasCol: true},
		{name: "line range", input: "main.go:10-20", wantLine: 10, wantEnd: 20, wantHasCol: false},
		{name: "line and symbol", input: "main.go:10#Foo", wantLine: 10, wantEnd: 10, wantSymbol: "Foo"},
		{name: "col and symbol", input: "main.go:10:5#Foo", wantLine: 10, wantEnd: 10, wantCol: 5, wantHasCol: true, wantSymbol: "Foo"},
		{name: "range and symbol", input: "main.go:10-20#Foo", wantLine: 10, wantEnd: 20, wantSymbol: "Foo"},
		{name: "missing scope", input: "main.go", wantErr: true},
		{name: "empty path", input: ":10", wantErr: true},
		{name: "zero line", input: "main.go:0", wantErr: true},
		{name: "negative line", input: "main.go:-5", wantErr: true},
		{name: "inverted range", input: "main.go:20-10", wantErr: true},
		{name: "empty symbol anchor", input: "main.go:10#", wantErr: true},
		{name: "non-numeric col", input: "main.go:10:x", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc, err := Parse(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Parse(%q) succeeded, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) returned error: %v", tt.input, err)
			}
			if loc.Scope.StartLine != tt.wantLine {
				t.Errorf("StartLine = %d, want %d", loc.Scope.StartLine, tt.wantLine)
			}
			if loc.Scope.EndLine != tt.wantEnd {
				t.Errorf("EndLine = %d, want %d", loc.Scope.EndLine, tt.wantEnd)
			}
			if loc.Scope.HasCol() != tt.wantHasCol {
				t.Errorf("HasCol() = %v, want %v", loc.Scope.HasCol(), tt.wantHasCol)
			}
			if tt.wantHasCol && loc.Scope.Col != tt.wantCol {
				t.Errorf("Col = %d, want %d", loc.Scope.Col, tt.wantCol)
			}
			if loc.Symbol != tt.wantSymbol {
				t.Errorf("Symbol = %q, want %q", loc.Symbol, tt.wantSymbol)
			}
			wantAbs, _ := filepath.Abs("main.go")
			if loc.FilePath != wantAbs {
				t.Errorf("FilePath = %q, want %q", loc.FilePath, wantAbs)
			}
		})
	}
}

func TestLocateString_RoundTrips(t *testing.T) {
	tests := []string{
		"main.go:10",
		"main.go:10:5",
		"main.go:10-20",
	}
	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			loc, err := Parse(in)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", in, err)
			}
			reparsed, err := Parse(loc.String())
			if err != nil {
				t.Fatalf("Parse(String()) failed: %v", err)
			}
			if reparsed.Scope != loc.Scope {
				t.Errorf("round trip scope mismatch: %+v != %+v", reparsed.Scope, loc.Scope)
			}
		})
	}
}

func TestScope_IsRange(t *testing.T) {
	if (Scope{StartLine: 1, EndLine: 1}).IsRange() {
		t.Error("single line scope reported as range")
	}
	if !(Scope{StartLine: 1, EndLine: 2}).IsRange() {
		t.Error("multi-line scope not reported as range")
	}
}
