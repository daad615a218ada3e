// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runtime locates the per-user runtime directory the manager,
// its children, and the CLI all agree on: sockets and logs live under
// $XDG_RUNTIME_DIR/<app>/, falling back to a per-user temp directory when
// XDG_RUNTIME_DIR is unset (non-systemd hosts, macOS, containers).
package runtime

import (
	"fmt"
	"os"
	"path/filepath"
)

const appName = "lspman"

// Root returns the per-user runtime directory, creating it if absent.
func Root() (string, error) {
	base := os.Getenv("XDG_RUNTIME_DIR")
	if base == "" {
		base = filepath.Join(os.TempDir(), fmt.Sprintf("lspman-%d", os.Getuid()))
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create runtime directory %s: %w", dir, err)
	}
	return dir, nil
}

// ManagerSocket returns the control-plane socket path.
func ManagerSocket() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "manager.sock"), nil
}

// ClientsDir returns the directory holding per-client sockets, creating it
// if absent.
func ClientsDir() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "clients")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create clients directory %s: %w", dir, err)
	}
	return dir, nil
}

// ClientSocket returns the Unix socket path for the given client id.
func ClientSocket(clientID string) (string, error) {
	dir, err := ClientsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, clientID+".sock"), nil
}

// LogsDir returns the root logs directory, creating it if absent.
func LogsDir() (string, error) {
	root, err := Root()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(root, "logs")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create logs directory %s: %w", dir, err)
	}
	return dir, nil
}

// ClientLogsDir returns the per-client logs directory, creating it if
// absent.
func ClientLogsDir() (string, error) {
	logs, err := LogsDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(logs, "clients")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("create client logs directory %s: %w", dir, err)
	}
	return dir, nil
}
