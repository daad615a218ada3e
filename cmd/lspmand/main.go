// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lspmand is the Manager Daemon: a long-lived process that hosts
// the Managed Child Registry behind an HTTP API on a Unix domain socket.
// The CLI (cmd/lsp) auto-starts it on demand; it is not meant to be run
// by hand, though it can be for debugging.
//
// Usage:
//
//	lspmand -socket /run/user/1000/lspman/manager.sock -child-binary ./lspchild
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/lspctl/lspman/internal/logging"
	"github.com/lspctl/lspman/internal/manager"
	"github.com/lspctl/lspman/internal/runtime"
	"github.com/lspctl/lspman/internal/telemetry"
)

func main() {
	socketPath := flag.String("socket", "", "control-plane socket path (default: XDG runtime dir)")
	childBinary := flag.String("child-binary", "", "path to the lspchild binary (default: alongside this binary)")
	idleTimeout := flag.Duration("idle-timeout", manager.DefaultIdleTimeout, "idle duration before a managed child is torn down")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logDir, err := runtime.LogsDir()
	if err != nil {
		logDir = ""
	}

	level := logging.LevelInfo
	if *debug {
		level = logging.LevelDebug
	}
	logger := logging.New(logging.Config{
		Level:   level,
		LogDir:  logDir,
		Service: "manager",
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	shutdownMetrics, err := telemetry.SetupMeterProvider("lspmand")
	if err != nil {
		slog.Warn("metrics disabled", slog.String("error", err.Error()))
	} else {
		defer func() { _ = shutdownMetrics(context.Background()) }()
	}

	sock := *socketPath
	if sock == "" {
		sock, err = runtime.ManagerSocket()
		if err != nil {
			slog.Error("resolve manager socket path", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	child := *childBinary
	if child == "" {
		child, err = siblingBinary("lspchild")
		if err != nil {
			slog.Error("locate lspchild binary", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	slog.Info("starting manager daemon",
		slog.String("socket", sock),
		slog.String("child_binary", child),
		slog.Duration("idle_timeout", *idleTimeout),
	)

	daemon := manager.NewDaemon(child, *idleTimeout)

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down manager daemon")
		cancel()
	}()

	if err := daemon.Serve(ctx, sock); err != nil {
		slog.Error("manager daemon exited with error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// siblingBinary finds name next to the running executable, the convention
// cmd/lspmand uses to locate cmd/lspchild (and cmd/lsp, with its own copy,
// to locate cmd/lspmand) without requiring it on PATH.
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
