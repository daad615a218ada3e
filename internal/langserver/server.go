// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package langserver wraps one upstream LSP server process (gopls,
// pyright-langserver, rust-analyzer, ...) and exposes it as a typed Go API.
// One Server is started per (language, project-root) pair by cmd/lspchild;
// the HTTP capability façade in internal/capability sits on top.
package langserver

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/lspctl/lspman/internal/lspproto"
	"github.com/lspctl/lspman/internal/resolver"
)

// State represents the lifecycle state of the wrapped server process.
type State int

const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateStopping
	StateStopped
)

func (s State) String() string {
	names := []string{"uninitialized", "starting", "ready", "stopping", "stopped"}
	if int(s) < len(names) {
		return names[s]
	}
	return "unknown"
}

// Server manages one running LSP server process end to end: spawn,
// initialize handshake, request/notify, graceful shutdown.
//
// Thread Safety: safe for concurrent use once Start returns successfully.
type Server struct {
	config   resolver.LanguageConfig
	rootPath string

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	protocol     *lspproto.Protocol
	capabilities lspproto.ServerCapabilities

	state   State
	stateMu sync.RWMutex

	ctx      context.Context
	cancel   context.CancelFunc
	readDone chan struct{}

	lastUsed   time.Time
	lastUsedMu sync.Mutex
}

// NewServer creates a server instance for config, not yet started.
func NewServer(config resolver.LanguageConfig, rootPath string) *Server {
	return &Server{
		config:   config,
		rootPath: rootPath,
		state:    StateUninitialized,
		readDone: make(chan struct{}),
		lastUsed: time.Now(),
	}
}

// Start spawns the process, wires up the JSON-RPC protocol, and performs
// the LSP initialize handshake.
func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("ctx must not be nil")
	}

	s.stateMu.Lock()
	if s.state != StateUninitialized {
		s.stateMu.Unlock()
		return lspproto.ErrServerAlreadyStarted
	}
	s.state = StateStarting
	s.stateMu.Unlock()

	path, err := exec.LookPath(s.config.Command)
	if err != nil {
		s.setState(StateStopped)
		slog.Warn("lsp server not installed", slog.String("language", s.config.Language), slog.String("command", s.config.Command))
		return fmt.Errorf("%w: %s", lspproto.ErrServerNotInstalled, s.config.Command)
	}

	slog.Info("starting lsp server",
		slog.String("language", s.config.Language),
		slog.String("command", path),
		slog.String("root_path", s.rootPath),
	)

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.cmd = exec.CommandContext(s.ctx, path, s.config.Args...)
	s.cmd.Dir = s.rootPath

	s.stdin, err = s.cmd.StdinPipe()
	if err != nil {
		s.cleanup()
		return fmt.Errorf("stdin pipe: %w", err)
	}
	s.stdout, err = s.cmd.StdoutPipe()
	if err != nil {
		s.cleanup()
		return fmt.Errorf("stdout pipe: %w", err)
	}

	if err := s.cmd.Start(); err != nil {
		s.cleanup()
		return fmt.Errorf("start process: %w", err)
	}

	s.protocol = lspproto.NewProtocol(s.stdout, s.stdin)

	go func() {
		defer close(s.readDone)
		_ = s.protocol.ReadLoop(s.ctx)
	}()

	if err := s.initialize(ctx); err != nil {
		_ = s.Shutdown(ctx)
		return fmt.Errorf("%w: %v", lspproto.ErrInitializeFailed, err)
	}

	s.setState(StateReady)
	s.touchLastUsed()

	slog.Info("lsp server ready",
		slog.String("language", s.config.Language),
		slog.Bool("definition", s.capabilities.HasDefinitionProvider()),
		slog.Bool("references", s.capabilities.HasReferencesProvider()),
		slog.Bool("hover", s.capabilities.HasHoverProvider()),
		slog.Bool("rename", s.capabilities.HasRenameProvider()),
		slog.Bool("document_symbol", s.capabilities.HasDocumentSymbolProvider()),
	)
	return nil
}

func (s *Server) initialize(ctx context.Context) error {
	params := lspproto.InitializeParams{
		ProcessID: os.Getpid(),
		RootURI:   "file://" + s.rootPath,
		RootPath:  s.rootPath,
		Capabilities: lspproto.ClientCapabilities{
			TextDocument: lspproto.TextDocumentClientCapabilities{
				Synchronization: &lspproto.TextDocumentSyncClientCapabilities{DidSave: true},
				Definition:      &lspproto.DefinitionCapabilities{},
				References:      &lspproto.ReferencesCapabilities{},
				Hover:           &lspproto.HoverCapabilities{ContentFormat: []string{"markdown", "plaintext"}},
				Rename:          &lspproto.RenameCapabilities{PrepareSupport: true},
				DocumentSymbol:  &lspproto.DocumentSymbolClientCapabilities{HierarchicalDocumentSymbolSupport: true},
			},
			Workspace: lspproto.WorkspaceClientCapabilities{
				ApplyEdit:     true,
				WorkspaceEdit: &lspproto.WorkspaceEditClientCapabilities{DocumentChanges: true},
				Symbol:        &lspproto.WorkspaceSymbolClientCapabilities{},
			},
		},
		WorkspaceFolders: []lspproto.WorkspaceFolder{{URI: "file://" + s.rootPath, Name: "workspace"}},
	}
	if s.config.InitializationOptions != nil {
		params.InitializationOptions = s.config.InitializationOptions
	}

	resp, err := s.protocol.SendRequest(ctx, "initialize", params)
	if err != nil {
		return fmt.Errorf("initialize request: %w", err)
	}

	var result lspproto.InitializeResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return fmt.Errorf("parse initialize result: %w", err)
	}
	s.capabilities = result.Capabilities

	if err := s.protocol.SendNotification("initialized", struct{}{}); err != nil {
		return fmt.Errorf("initialized notification: %w", err)
	}
	return nil
}

// Shutdown performs the shutdown/exit handshake, then waits for (or kills)
// the process. Idempotent.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stateMu.Lock()
	if s.state == StateStopped || s.state == StateStopping {
		s.stateMu.Unlock()
		return nil
	}
	s.state = StateStopping
	s.stateMu.Unlock()

	slog.Info("shutting down lsp server", slog.String("language", s.config.Language))
	defer s.cleanup()

	if s.protocol != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		_, _ = s.protocol.SendRequest(shutdownCtx, "shutdown", nil)
		_ = s.protocol.SendNotification("exit", nil)
		s.protocol.Close()
	}

	if s.stdin != nil {
		_ = s.stdin.Close()
	}

	if s.cmd != nil && s.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- s.cmd.Wait() }()
		select {
		case <-time.After(5 * time.Second):
			_ = s.cmd.Process.Kill()
			<-done
		case <-done:
		}
	}

	if s.cancel != nil {
		s.cancel()
	}
	select {
	case <-s.readDone:
	case <-time.After(time.Second):
	}
	return nil
}

func (s *Server) cleanup() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.stdin != nil {
		_ = s.stdin.Close()
	}
	if s.stdout != nil {
		_ = s.stdout.Close()
	}
	s.setState(StateStopped)
}

// State returns the current lifecycle state.
func (s *Server) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Language returns the language this server handles.
func (s *Server) Language() string { return s.config.Language }

// RootPath returns the workspace root.
func (s *Server) RootPath() string { return s.rootPath }

// Capabilities returns the server's reported capabilities (zero value
// before initialize completes).
func (s *Server) Capabilities() lspproto.ServerCapabilities { return s.capabilities }

// LastUsed returns when the server was last used for a request/notify.
func (s *Server) LastUsed() time.Time {
	s.lastUsedMu.Lock()
	defer s.lastUsedMu.Unlock()
	return s.lastUsed
}

// Request sends an LSP request and waits for the response.
func (s *Server) Request(ctx context.Context, method string, params interface{}) (*lspproto.Response, error) {
	if ctx == nil {
		return nil, fmt.Errorf("ctx must not be nil")
	}
	if s.State() != StateReady {
		return nil, lspproto.ErrServerNotRunning
	}
	s.touchLastUsed()
	return s.protocol.SendRequest(ctx, method, params)
}

// Notify sends an LSP notification (no response expected).
func (s *Server) Notify(method string, params interface{}) error {
	if s.State() != StateReady {
		return lspproto.ErrServerNotRunning
	}
	s.touchLastUsed()
	return s.protocol.SendNotification(method, params)
}

func (s *Server) setState(state State) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

func (s *Server) touchLastUsed() {
	s.lastUsedMu.Lock()
	s.lastUsed = time.Now()
	s.lastUsedMu.Unlock()
}
