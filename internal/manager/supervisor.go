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
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/lspctl/lspman/internal/resolver"
	"github.com/lspctl/lspman/internal/runtime"
	"golang.org/x/sys/unix"
)

// SupervisorState is the Managed Child's lifecycle state (spec §4.2).
type SupervisorState int

const (
	StateStarting SupervisorState = iota
	StateReady
	StateDraining
	StateGone
)

func (s SupervisorState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateDraining:
		return "draining"
	case StateGone:
		return "gone"
	default:
		return "unknown"
	}
}

// SupervisorConfig bounds a supervisor's timing behavior. Zero values fall
// back to the package defaults.
type SupervisorConfig struct {
	IdleTimeout    time.Duration
	StartupTimeout time.Duration
	ShutdownGrace  time.Duration

	// ChildBinary is the path to the cmd/lspchild executable to spawn.
	ChildBinary string
}

func (c SupervisorConfig) withDefaults() SupervisorConfig {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.StartupTimeout <= 0 {
		c.StartupTimeout = DefaultStartupTimeout
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
	return c
}

// Supervisor owns one Managed Child end to end: spawning cmd/lspchild,
// watching its process and idle deadline, and tearing it down. One
// Supervisor exists per registry entry; its run loop is the entry's only
// route out of the registry.
//
// Thread Safety: ResetIdle, Stop, Info, and State are safe for concurrent
// use. Run must be called exactly once.
type Supervisor struct {
	id         string
	target     resolver.Target
	socketPath string
	cfg        SupervisorConfig

	stateMu sync.RWMutex
	state   SupervisorState

	startedMu sync.Mutex
	startedCh chan struct{}
	startErr  error

	idleMu       sync.Mutex
	idleDeadline time.Time

	stopOnce sync.Once
	stopCh   chan struct{}

	cmd *exec.Cmd
}

// NewSupervisor constructs a supervisor for target under the caller-supplied
// id. It derives the child's socket path from id but does not start anything — spec's construct(target).
func NewSupervisor(id string, target resolver.Target, cfg SupervisorConfig) *Supervisor {
	cfg = cfg.withDefaults()
	socketPath, err := runtime.ClientSocket(id)
	if err != nil {
		socketPath = ""
	}
	return &Supervisor{
		id:           id,
		target:       target,
		socketPath:   socketPath,
		cfg:          cfg,
		state:        StateStarting,
		startedCh:    make(chan struct{}),
		stopCh:       make(chan struct{}),
		idleDeadline: time.Now().Add(cfg.IdleTimeout),
	}
}

// ID returns the client id.
func (s *Supervisor) ID() string { return s.id }

// Target returns the resolved Client Target.
func (s *Supervisor) Target() resolver.Target { return s.target }

// SocketPath returns the child's Unix socket path.
func (s *Supervisor) SocketPath() string { return s.socketPath }

// State returns the current lifecycle state.
func (s *Supervisor) State() SupervisorState {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

func (s *Supervisor) setState(state SupervisorState) {
	s.stateMu.Lock()
	s.state = state
	s.stateMu.Unlock()
}

// WaitStarted blocks until the child's socket has accepted a connection
// (Starting → Ready) or the run loop has failed to get there.
func (s *Supervisor) WaitStarted(ctx context.Context) error {
	select {
	case <-s.startedCh:
		return s.startErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Supervisor) markStarted(err error) {
	s.startedMu.Lock()
	defer s.startedMu.Unlock()
	select {
	case <-s.startedCh:
		return
	default:
		s.startErr = err
		close(s.startedCh)
	}
}

// ResetIdle pushes the idle deadline forward by the configured idle
// window. Safe to call concurrently with Run.
func (s *Supervisor) ResetIdle() {
	s.idleMu.Lock()
	s.idleDeadline = time.Now().Add(s.cfg.IdleTimeout)
	s.idleMu.Unlock()
}

func (s *Supervisor) deadline() time.Time {
	s.idleMu.Lock()
	defer s.idleMu.Unlock()
	return s.idleDeadline
}

// Info returns a point-in-time snapshot for `server list` / GET /list.
func (s *Supervisor) Info() ClientInfo {
	remaining := time.Until(s.deadline())
	if remaining < 0 {
		remaining = 0
	}
	return ClientInfo{
		ID:            s.id,
		Language:      s.target.Language,
		ProjectRoot:   s.target.ProjectRoot,
		SocketPath:    s.socketPath,
		State:         s.State().String(),
		RemainingTime: remaining.Seconds(),
	}
}

// Stop requests graceful shutdown. Idempotent; safe to call before the
// child has even started, in which case Run tears it down as soon as it
// notices stopCh is closed.
func (s *Supervisor) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// Run spawns the child, watches the process exit, the idle deadline, and
// the stop signal — whichever fires first drives the transition to
// Draining — and returns only once the child has exited and its socket
// has been unlinked (Gone). A crashed child is not restarted: Run simply
// returns, and the registry removes the entry; the next /create for the
// same target spawns fresh.
func (s *Supervisor) Run() {
	defer s.teardown()

	if err := s.spawn(); err != nil {
		slog.Warn("managed child failed to spawn", slog.String("id", s.id), slog.String("error", err.Error()))
		s.markStarted(err)
		s.setState(StateGone)
		return
	}

	if err := waitSocketAccepting(s.socketPath, s.cfg.StartupTimeout); err != nil {
		slog.Warn("managed child socket never became ready", slog.String("id", s.id), slog.String("error", err.Error()))
		s.markStarted(err)
		_ = s.cmd.Process.Kill()
		_, _ = s.cmd.Process.Wait()
		s.setState(StateGone)
		return
	}

	s.setState(StateReady)
	s.markStarted(nil)
	slog.Info("managed child ready", slog.String("id", s.id), slog.String("language", s.target.Language), slog.String("socket", s.socketPath))

	exited := make(chan error, 1)
	go func() { exited <- s.cmd.Wait() }()

	idleTimer := time.NewTimer(time.Until(s.deadline()))
	defer idleTimer.Stop()

	for {
		select {
		case err := <-exited:
			if err != nil {
				slog.Warn("managed child exited unexpectedly", slog.String("id", s.id), slog.String("error", err.Error()))
			}
			s.setState(StateDraining)
			return
		case <-s.stopCh:
			s.setState(StateDraining)
			s.gracefulStop(exited)
			return
		case <-idleTimer.C:
			if time.Until(s.deadline()) > 0 {
				idleTimer.Reset(time.Until(s.deadline()))
				continue
			}
			slog.Info("managed child idle timeout", slog.String("id", s.id))
			s.setState(StateDraining)
			s.gracefulStop(exited)
			return
		}
	}
}

// gracefulStop sends SIGTERM and waits up to ShutdownGrace for the
// process to exit before SIGKILL.
func (s *Supervisor) gracefulStop(exited chan error) {
	if s.cmd == nil || s.cmd.Process == nil {
		return
	}
	_ = sendSignal(s.cmd.Process.Pid, unix.SIGTERM)
	select {
	case <-exited:
	case <-time.After(s.cfg.ShutdownGrace):
		_ = s.cmd.Process.Kill()
		<-exited
	}
}

func (s *Supervisor) teardown() {
	if s.socketPath != "" {
		_ = os.Remove(s.socketPath)
	}
	s.setState(StateGone)
}

func (s *Supervisor) spawn() error {
	if s.cfg.ChildBinary == "" {
		return fmt.Errorf("no child binary configured")
	}
	args := []string{
		"--language", s.target.Language,
		"--project-root", s.target.ProjectRoot,
		"--socket", s.socketPath,
	}
	s.cmd = exec.Command(s.cfg.ChildBinary, args...)
	s.cmd.Stdin = nil
	s.cmd.Stdout = nil
	s.cmd.Stderr = nil
	setDetached(s.cmd)
	return s.cmd.Start()
}

// waitSocketAccepting polls path until a connection succeeds or timeout
// elapses — the supervisor-side counterpart of the CLI's wait-socket.
func waitSocketAccepting(path string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if socketAlive(path) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("socket %s did not become ready within %s", path, timeout)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
