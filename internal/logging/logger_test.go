// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNew_WritesJSONToLogFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "testsvc", LogDir: dir, Quiet: true})
	defer logger.Close()

	logger.Info("hello", "key", "value")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "testsvc.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"hello"`) {
		t.Errorf("log file missing expected message: %s", data)
	}
	if !strings.Contains(string(data), `"service":"testsvc"`) {
		t.Errorf("log file missing service attribute: %s", data)
	}
}

func TestNew_QuietSuppressesStderrButKeepsFile(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "quiet", LogDir: dir, Quiet: true})
	defer logger.Close()

	logger.Warn("should still be recorded")
	logger.Close()

	data, err := os.ReadFile(filepath.Join(dir, "quiet.log"))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "should still be recorded") {
		t.Errorf("file sink missing record: %s", data)
	}
}

func TestClose_IsIdempotent(t *testing.T) {
	dir := t.TempDir()
	logger := New(Config{Service: "idempotent", LogDir: dir, Quiet: true})

	if err := logger.Close(); err != nil {
		t.Fatalf("first Close returned error: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestRotatingFile_RotatesPastMaxBytes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rotate.log")

	rf, err := newRotatingFile(path, 16, 7)
	if err != nil {
		t.Fatalf("newRotatingFile returned error: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Write([]byte("0123456789")); err != nil {
		t.Fatalf("first write returned error: %v", err)
	}
	if _, err := rf.Write([]byte("0123456789")); err != nil {
		t.Fatalf("second write returned error: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) < 2 {
		t.Fatalf("expected a rotated file alongside the active log, got %d entries", len(entries))
	}
}

func TestLevel_ToSlogLevel(t *testing.T) {
	if LevelDebug.toSlogLevel() >= LevelInfo.toSlogLevel() {
		t.Error("LevelDebug should be lower than LevelInfo")
	}
	if LevelError.toSlogLevel() <= LevelWarn.toSlogLevel() {
		t.Error("LevelError should be higher than LevelWarn")
	}
}
