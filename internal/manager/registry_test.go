// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package manager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lspctl/lspman/internal/resolver"
)

func TestClientID_DeterministicAndStable(t *testing.T) {
	target := resolver.Target{Language: "go", ProjectRoot: "/home/user/project"}

	a := clientID(target)
	b := clientID(target)
	if a != b {
		t.Fatalf("clientID not deterministic: %q != %q", a, b)
	}

	if got, want := a[:3], "go-"; got != want {
		t.Errorf("clientID prefix = %q, want %q", got, want)
	}
}

func TestClientID_DistinctForDistinctTargets(t *testing.T) {
	a := clientID(resolver.Target{Language: "go", ProjectRoot: "/a"})
	b := clientID(resolver.Target{Language: "go", ProjectRoot: "/b"})
	c := clientID(resolver.Target{Language: "python", ProjectRoot: "/a"})

	if a == b {
		t.Error("clientID collided across distinct project roots")
	}
	if a == c {
		t.Error("clientID collided across distinct languages")
	}
}

func TestRegistry_LookupOnEmptyRegistry(t *testing.T) {
	res := resolver.New(resolver.NewRegistry())
	reg := NewRegistry(res)

	dir := t.TempDir()
	sup, err := reg.Lookup(dir, dir)
	if err != resolver.ErrNoMatch {
		t.Fatalf("Lookup error = %v, want ErrNoMatch", err)
	}
	if sup != nil {
		t.Error("Lookup on empty registry returned a non-nil supervisor")
	}
}

func TestRegistry_DeleteOnEmptyRegistry(t *testing.T) {
	res := resolver.New(resolver.NewRegistry())
	reg := NewRegistry(res)

	dir := t.TempDir()
	info, err := reg.Delete(dir, dir)
	if err != resolver.ErrNoMatch {
		t.Fatalf("Delete error = %v, want ErrNoMatch", err)
	}
	if info != nil {
		t.Error("Delete on empty registry returned non-nil info")
	}
}

func TestRegistry_ListOnEmptyRegistry(t *testing.T) {
	res := resolver.New(resolver.NewRegistry())
	reg := NewRegistry(res)

	if got := reg.List(); len(got) != 0 {
		t.Errorf("List() = %v, want empty", got)
	}
}

func TestGetOrCreate_ReturnsBeforeChildSocketIsReady(t *testing.T) {
	res := resolver.New(resolver.NewRegistry())
	reg := NewRegistry(res)

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644); err != nil {
		t.Fatalf("write go.mod: %v", err)
	}

	// ChildBinary is empty, so the supervisor's run loop fails to spawn
	// almost immediately — if GetOrCreate waited for readiness it would
	// return that spawn error here instead of a usable supervisor.
	sup, err := reg.GetOrCreate(dir, "", SupervisorConfig{})
	if err != nil {
		t.Fatalf("GetOrCreate returned error = %v, want nil (registry slot claimed regardless of child startup outcome)", err)
	}
	if sup == nil {
		t.Fatal("GetOrCreate returned nil supervisor")
	}
	if sup.SocketPath() == "" {
		t.Error("supervisor has no socket path derived")
	}
}
