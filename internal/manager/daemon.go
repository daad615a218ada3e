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
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/lspctl/lspman/internal/resolver"
)

// Daemon hosts the Manager Registry behind an HTTP API bound to a Unix
// socket: POST /create, DELETE /delete, GET /list, GET /metrics.
type Daemon struct {
	registry *Registry
	cfg      SupervisorConfig
	router   *gin.Engine
	server   *http.Server
}

// NewDaemon builds a daemon around a fresh registry. childBinary is the
// path to cmd/lspchild, passed to every spawned supervisor.
func NewDaemon(childBinary string, idleTimeout time.Duration) *Daemon {
	gin.SetMode(gin.ReleaseMode)

	cfg := SupervisorConfig{
		ChildBinary: childBinary,
		IdleTimeout: idleTimeout,
	}

	d := &Daemon{
		registry: NewRegistry(resolver.New(resolver.NewRegistry())),
		cfg:      cfg,
		router:   gin.New(),
	}
	d.routes()
	return d
}

func (d *Daemon) routes() {
	d.router.Use(gin.Recovery())

	d.router.POST("/create", d.handleCreate)
	d.router.DELETE("/delete", d.handleDelete)
	d.router.GET("/list", d.handleList)
	d.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

func (d *Daemon) handleCreate(c *gin.Context) {
	var req CreateClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	// GetOrCreate only claims a registry slot and starts the child's run
	// loop in the background; it does not wait for the socket to accept
	// (spec §4.3 steps 4-5), so this handler needs no extended deadline.
	sup, err := d.registry.GetOrCreate(req.Path, req.ProjectRoot, d.cfg)
	if err != nil {
		if errors.Is(err, resolver.ErrNoMatch) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusCreated, CreateClientResponse{
		SocketPath: sup.SocketPath(),
		Info:       sup.Info(),
	})
}

func (d *Daemon) handleDelete(c *gin.Context) {
	var req DeleteClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	info, err := d.registry.Delete(req.Path, req.ProjectRoot)
	if err != nil {
		if errors.Is(err, resolver.ErrNoMatch) {
			c.JSON(http.StatusOK, DeleteClientResponse{Info: nil})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
		return
	}

	c.JSON(http.StatusOK, DeleteClientResponse{Info: info})
}

func (d *Daemon) handleList(c *gin.Context) {
	c.JSON(http.StatusOK, ListClientsResponse{Clients: d.registry.List()})
}

// Serve binds socketPath and blocks serving the control-plane API until
// ctx is cancelled. Any stale socket file is removed before binding.
func (d *Daemon) Serve(ctx context.Context, socketPath string) error {
	_ = os.Remove(socketPath)

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("bind manager socket %s: %w", socketPath, err)
	}
	if err := os.Chmod(socketPath, 0o600); err != nil {
		return fmt.Errorf("chmod manager socket: %w", err)
	}

	d.server = &http.Server{Handler: d.router}

	// The serve loop and the shutdown watcher run as a group: either one
	// returning ends the other's reason to keep running, and Wait surfaces
	// whichever error (if any) actually matters.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := d.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = d.server.Shutdown(shutdownCtx)
		return nil
	})

	err = g.Wait()
	_ = os.Remove(socketPath)
	return err
}
