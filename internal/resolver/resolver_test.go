// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"os"
	"path/filepath"
	"testing"
)

func writeMarker(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
		t.Fatalf("write marker %s: %v", name, err)
	}
}

func TestResolve_WalksUpForProjectRoot(t *testing.T) {
	root := t.TempDir()
	writeMarker(t, root, "go.mod")

	nested := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("mkdir nested: %v", err)
	}
	file := filepath.Join(nested, "main.go")
	writeMarker(t, nested, "main.go")

	res := New(NewRegistry())
	target, err := res.Resolve(file, "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if target.Language != "go" {
		t.Errorf("Language = %q, want go", target.Language)
	}
	wantRoot, _ := filepath.EvalSymlinks(root)
	gotRoot, _ := filepath.EvalSymlinks(target.ProjectRoot)
	if gotRoot != wantRoot {
		t.Errorf("ProjectRoot = %q, want %q", target.ProjectRoot, root)
	}
}

func TestResolve_NoMatch(t *testing.T) {
	dir := t.TempDir()
	res := New(NewRegistry())
	_, err := res.Resolve(dir, "")
	if err != ErrNoMatch {
		t.Errorf("Resolve error = %v, want ErrNoMatch", err)
	}
}

func TestResolve_ExplicitRootMustBeARoot(t *testing.T) {
	root := t.TempDir()
	writeMarker(t, root, "go.mod")

	res := New(NewRegistry())
	target, err := res.Resolve(root, root)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if target.Language != "go" {
		t.Errorf("Language = %q, want go", target.Language)
	}

	notRoot := t.TempDir()
	if _, err := res.Resolve(notRoot, notRoot); err != ErrNoMatch {
		t.Errorf("Resolve with non-root explicit root error = %v, want ErrNoMatch", err)
	}
}

func TestResolve_FirstRegisteredLanguageWins(t *testing.T) {
	root := t.TempDir()
	// package.json matches both typescript and javascript configs;
	// typescript is registered first, so it must win.
	writeMarker(t, root, "package.json")

	res := New(NewRegistry())
	target, err := res.Resolve(root, "")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if target.Language != "typescript" {
		t.Errorf("Language = %q, want typescript", target.Language)
	}
}

func TestRegistry_GetByExtension(t *testing.T) {
	reg := NewRegistry()
	cfg, ok := reg.GetByExtension(".go")
	if !ok {
		t.Fatal("GetByExtension(.go) not found")
	}
	if cfg.Language != "go" {
		t.Errorf("Language = %q, want go", cfg.Language)
	}

	if _, ok := reg.GetByExtension(".nonexistent"); ok {
		t.Error("GetByExtension matched an unregistered extension")
	}
}

func TestRegistry_Register_PreservesOrderOnUpdate(t *testing.T) {
	reg := NewRegistry()
	before := reg.Languages()

	cfg, _ := reg.Get("go")
	cfg.Command = "gopls-custom"
	reg.Register(cfg)

	after := reg.Languages()
	if len(after) != len(before) {
		t.Fatalf("re-registering an existing language changed order length: %v -> %v", before, after)
	}
	updated, _ := reg.Get("go")
	if updated.Command != "gopls-custom" {
		t.Errorf("Command = %q, want gopls-custom", updated.Command)
	}
}
