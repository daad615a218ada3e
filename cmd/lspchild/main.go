// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command lspchild is a Managed Child: it wraps exactly one upstream LSP
// server process for one (language, project-root) pair and exposes the
// capability façade over a Unix socket. It is spawned by the Manager
// Daemon (internal/manager.Supervisor) and is not meant to be run by hand.
//
// Usage:
//
//	lspchild --language go --project-root /path/to/repo --socket /run/.../abc.sock
package main

import (
	"context"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lspctl/lspman/internal/capability"
	"github.com/lspctl/lspman/internal/langserver"
	"github.com/lspctl/lspman/internal/logging"
	"github.com/lspctl/lspman/internal/resolver"
	"github.com/lspctl/lspman/internal/runtime"
	"github.com/lspctl/lspman/internal/telemetry"
)

func main() {
	language := flag.String("language", "", "language-server kind to spawn (e.g. go, python, rust)")
	projectRoot := flag.String("project-root", "", "resolved project root passed to the upstream server")
	socketPath := flag.String("socket", "", "Unix socket to serve the capability façade on")
	startupTimeout := flag.Duration("startup-timeout", 30*time.Second, "timeout for the upstream server's initialize handshake")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if *language == "" || *projectRoot == "" || *socketPath == "" {
		slog.Error("missing required flags", slog.String("language", *language), slog.String("project_root", *projectRoot), slog.String("socket", *socketPath))
		os.Exit(2)
	}

	logDir, err := runtime.ClientLogsDir()
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
		Service: strings.TrimSuffix(filepath.Base(*socketPath), ".sock"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	shutdownMetrics, err := telemetry.SetupMeterProvider("lspchild-" + *language)
	if err != nil {
		slog.Warn("metrics disabled", slog.String("error", err.Error()))
	} else {
		defer func() { _ = shutdownMetrics(context.Background()) }()
	}

	reg := resolver.NewRegistry()
	cfg, ok := reg.Get(*language)
	if !ok {
		slog.Error("unsupported language", slog.String("language", *language))
		os.Exit(1)
	}

	server := langserver.NewServer(cfg, *projectRoot)

	startCtx, cancelStart := context.WithTimeout(context.Background(), *startupTimeout)
	defer cancelStart()
	if err := server.Start(startCtx); err != nil {
		slog.Error("failed to start upstream language server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ops := langserver.NewOperations(server)
	facade := capability.NewFacade(ops)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	facade.Register(router)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	_ = os.Remove(*socketPath)
	listener, err := net.Listen("unix", *socketPath)
	if err != nil {
		slog.Error("bind child socket", slog.String("socket", *socketPath), slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := os.Chmod(*socketPath, 0o600); err != nil {
		slog.Error("chmod child socket", slog.String("error", err.Error()))
		os.Exit(1)
	}

	httpServer := &http.Server{Handler: router}

	ctx, cancel := context.WithCancel(context.Background())
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("shutting down managed child", slog.String("language", *language), slog.String("project_root", *projectRoot))
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()

	slog.Info("managed child ready",
		slog.String("language", *language),
		slog.String("project_root", *projectRoot),
		slog.String("socket", *socketPath),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("capability façade server error", slog.String("error", err.Error()))
		}
	}

	shutdownServerCtx, shutdownServerCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownServerCancel()
	_ = server.Shutdown(shutdownServerCtx)
	_ = os.Remove(*socketPath)
}
