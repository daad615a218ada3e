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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lspctl/lspman/internal/langserver"
	"github.com/lspctl/lspman/internal/lspproto"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestRenameStore_StoreThenApply(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "main.go", "func oldName() {}\n")

	edit := &lspproto.WorkspaceEdit{
		Changes: map[string][]lspproto.TextEdit{
			"file://" + path: {
				{
					Range:   lspproto.Range{Start: lspproto.Position{Line: 0, Character: 5}, End: lspproto.Position{Line: 0, Character: 12}},
					NewText: "newName",
				},
			},
		},
	}

	store := newRenameStore()
	ops := langserver.NewOperations(nil)

	id, summaries, err := store.store(ops, edit)
	if err != nil {
		t.Fatalf("store returned error: %v", err)
	}
	if id == "" {
		t.Fatal("store returned empty rename id")
	}
	if len(summaries) != 1 {
		t.Fatalf("len(summaries) = %d, want 1", len(summaries))
	}
	if summaries[0].FilePath != path {
		t.Errorf("summary FilePath = %q, want %q", summaries[0].FilePath, path)
	}
	if summaries[0].Added == 0 || summaries[0].Removed == 0 {
		t.Errorf("summary added/removed counts look wrong: %+v", summaries[0])
	}

	applied, skipped, count, err := store.apply(id, nil)
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if len(skipped) != 0 {
		t.Errorf("skipped = %v, want none", skipped)
	}
	if len(applied) != 1 || applied[0] != path {
		t.Fatalf("applied = %v, want [%s]", applied, path)
	}
	if count != 1 {
		t.Errorf("edit count = %d, want 1", count)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read applied file: %v", err)
	}
	if string(got) != "func newName() {}\n" {
		t.Errorf("applied contents = %q, want %q", string(got), "func newName() {}\n")
	}
}

func TestRenameStore_Apply_UnknownID(t *testing.T) {
	store := newRenameStore()
	if _, _, _, err := store.apply("does-not-exist", nil); err == nil {
		t.Fatal("apply with unknown id succeeded, want error")
	}
}

func TestRenameStore_Apply_IsSingleUse(t *testing.T) {
	dir := t.TempDir()
	path := writeTempFile(t, dir, "main.go", "x\n")

	edit := &lspproto.WorkspaceEdit{
		Changes: map[string][]lspproto.TextEdit{
			"file://" + path: {
				{Range: lspproto.Range{Start: lspproto.Position{Line: 0, Character: 0}, End: lspproto.Position{Line: 0, Character: 1}}, NewText: "y"},
			},
		},
	}

	store := newRenameStore()
	id, _, err := store.store(langserver.NewOperations(nil), edit)
	if err != nil {
		t.Fatalf("store returned error: %v", err)
	}

	if _, _, _, err := store.apply(id, nil); err != nil {
		t.Fatalf("first apply returned error: %v", err)
	}
	if _, _, _, err := store.apply(id, nil); err == nil {
		t.Fatal("second apply with the same id succeeded, want error")
	}
}

func TestRenameStore_Apply_ExcludesMatchingFiles(t *testing.T) {
	dir := t.TempDir()
	keep := writeTempFile(t, dir, "keep.go", "a\n")
	skip := writeTempFile(t, dir, "skip.go", "b\n")

	edit := &lspproto.WorkspaceEdit{
		Changes: map[string][]lspproto.TextEdit{
			"file://" + keep: {{Range: lspproto.Range{Start: lspproto.Position{Line: 0, Character: 0}, End: lspproto.Position{Line: 0, Character: 1}}, NewText: "A"}},
			"file://" + skip: {{Range: lspproto.Range{Start: lspproto.Position{Line: 0, Character: 0}, End: lspproto.Position{Line: 0, Character: 1}}, NewText: "B"}},
		},
	}

	store := newRenameStore()
	id, _, err := store.store(langserver.NewOperations(nil), edit)
	if err != nil {
		t.Fatalf("store returned error: %v", err)
	}

	applied, skipped, _, err := store.apply(id, []string{skip})
	if err != nil {
		t.Fatalf("apply returned error: %v", err)
	}
	if len(applied) != 1 || applied[0] != keep {
		t.Errorf("applied = %v, want [%s]", applied, keep)
	}
	if len(skipped) != 1 || skipped[0] != skip {
		t.Errorf("skipped = %v, want [%s]", skipped, skip)
	}

	skippedContents, _ := os.ReadFile(skip)
	if string(skippedContents) != "b\n" {
		t.Errorf("excluded file was modified: %q", string(skippedContents))
	}
}

func TestRenameStore_Prune_RemovesExpiredEntries(t *testing.T) {
	store := newRenameStore()
	store.pending["stale"] = &pendingRename{createdAt: time.Now().Add(-renamePreviewTTL - time.Minute)}
	store.pending["fresh"] = &pendingRename{createdAt: time.Now()}

	store.prune()

	if _, ok := store.pending["stale"]; ok {
		t.Error("prune did not remove an expired entry")
	}
	if _, ok := store.pending["fresh"]; !ok {
		t.Error("prune removed a fresh entry")
	}
}

func TestMatchesAny(t *testing.T) {
	if !matchesAny("/a/b.go", []string{"/a/b.go"}) {
		t.Error("exact match not detected")
	}
	if !matchesAny("/a/b.go", []string{"/a/*.go"}) {
		t.Error("glob match not detected")
	}
	if matchesAny("/a/b.go", []string{"/a/*.py"}) {
		t.Error("non-matching pattern reported as a match")
	}
}

func TestClamp(t *testing.T) {
	if clamp(-5, 10) != 0 {
		t.Error("clamp did not floor a negative value to 0")
	}
	if clamp(20, 10) != 10 {
		t.Error("clamp did not ceiling a value above max")
	}
	if clamp(5, 10) != 5 {
		t.Error("clamp altered an in-range value")
	}
}
