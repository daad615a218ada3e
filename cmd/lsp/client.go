// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/lspctl/lspman/internal/manager"
	"github.com/lspctl/lspman/internal/runtime"
)

const capabilityRequestTimeout = 30 * time.Second

// connectManager resolves the manager socket and brings up a Client,
// auto-starting lspmand if its socket isn't already accepting — the CLI
// half of the auto-start protocol (spec §4.3).
func connectManager(ctx context.Context) (*manager.Client, error) {
	sock, err := runtime.ManagerSocket()
	if err != nil {
		return nil, fmt.Errorf("resolve manager socket: %w", err)
	}
	managerBinary, err := siblingBinary("lspmand")
	if err != nil {
		return nil, fmt.Errorf("locate lspmand binary: %w", err)
	}
	client, err := manager.Connect(ctx, sock, managerBinary)
	if err != nil {
		return nil, fmt.Errorf("connect to manager: %w", err)
	}
	return client, nil
}

// siblingBinary finds name next to the running executable.
func siblingBinary(name string) (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	candidate := filepath.Join(filepath.Dir(exe), name)
	if _, err := os.Stat(candidate); err != nil {
		return "", err
	}
	return candidate, nil
}

// absPath resolves path to an absolute form without requiring it to exist
// (used by server stop, which may target an already-vanished path).
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	return abs, nil
}

// ensureChild resolves path (and optional explicit project root) to a
// managed child, waits for its socket to accept, and returns both the
// socket path and the manager's info snapshot.
func ensureChild(ctx context.Context, path, project string) (string, *manager.ClientInfo, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", nil, fmt.Errorf("resolve path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", nil, fmt.Errorf("path not found: %s", abs)
	}

	client, err := connectManager(ctx)
	if err != nil {
		return "", nil, err
	}

	resp, err := client.Create(ctx, abs, project)
	if err != nil {
		return "", nil, err
	}

	if err := manager.WaitChildSocket(resp.SocketPath); err != nil {
		return "", nil, fmt.Errorf("child socket never became ready: %w", err)
	}

	return resp.SocketPath, &resp.Info, nil
}

// capabilityClient dials a managed child's Unix socket directly, for the
// /capability/* requests — it is a separate peer from the manager.
func capabilityClient(socketPath string) *http.Client {
	dialer := &net.Dialer{}
	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, "unix", socketPath)
		},
	}
	return &http.Client{Transport: transport, Timeout: capabilityRequestTimeout}
}

// postCapability posts body as JSON to path on the child at socketPath and
// decodes the response into out.
func postCapability(ctx context.Context, socketPath, path string, body, out interface{}) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://unix"+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := capabilityClient(socketPath).Do(req)
	if err != nil {
		return fmt.Errorf("capability request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("capability request returned %d: %s", resp.StatusCode, string(payload))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
