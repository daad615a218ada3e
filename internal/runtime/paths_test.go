// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runtime

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoot_UsesXDGRuntimeDirWhenSet(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	root, err := Root()
	if err != nil {
		t.Fatalf("Root() returned error: %v", err)
	}
	want := filepath.Join(base, appName)
	if root != want {
		t.Errorf("Root() = %q, want %q", root, want)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		t.Errorf("Root() did not create %q", root)
	}
}

func TestManagerSocket_LivesUnderRoot(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	root, err := Root()
	if err != nil {
		t.Fatalf("Root() returned error: %v", err)
	}
	sock, err := ManagerSocket()
	if err != nil {
		t.Fatalf("ManagerSocket() returned error: %v", err)
	}
	if want := filepath.Join(root, "manager.sock"); sock != want {
		t.Errorf("ManagerSocket() = %q, want %q", sock, want)
	}
}

func TestClientSocket_IsStablePerID(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	a, err := ClientSocket("go-deadbeef")
	if err != nil {
		t.Fatalf("ClientSocket() returned error: %v", err)
	}
	b, err := ClientSocket("go-deadbeef")
	if err != nil {
		t.Fatalf("ClientSocket() returned error: %v", err)
	}
	if a != b {
		t.Errorf("ClientSocket not stable: %q != %q", a, b)
	}
	if filepath.Base(a) != "go-deadbeef.sock" {
		t.Errorf("ClientSocket basename = %q, want go-deadbeef.sock", filepath.Base(a))
	}
}

func TestClientLogsDir_NestedUnderLogsDir(t *testing.T) {
	base := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", base)

	logs, err := LogsDir()
	if err != nil {
		t.Fatalf("LogsDir() returned error: %v", err)
	}
	clientLogs, err := ClientLogsDir()
	if err != nil {
		t.Fatalf("ClientLogsDir() returned error: %v", err)
	}
	if want := filepath.Join(logs, "clients"); clientLogs != want {
		t.Errorf("ClientLogsDir() = %q, want %q", clientLogs, want)
	}
	if info, err := os.Stat(clientLogs); err != nil || !info.IsDir() {
		t.Errorf("ClientLogsDir() did not create %q", clientLogs)
	}
}
