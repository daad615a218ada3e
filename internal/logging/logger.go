// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for the manager daemon, the
// managed children, and the CLI.
//
// # Architecture
//
// Built on log/slog, with a rotating-file sink layered underneath stderr:
//
//	┌───────────────────────────────────────────────────┐
//	│                      Logger                        │
//	│  ┌─────────────┐        ┌────────────────────────┐ │
//	│  │   stderr    │        │  rotating JSON file     │ │
//	│  │  (optional) │        │  (size + age bounded)   │ │
//	│  └─────────────┘        └────────────────────────┘ │
//	└───────────────────────────────────────────────────┘
//
// # Basic usage
//
//	logDir, _ := runtime.LogsDir()
//	logger := logging.New(logging.Config{
//	    Service: "manager",
//	    LogDir:  logDir,
//	})
//	defer logger.Close()
//	logger.Info("listening", "socket", sockPath)
//
// # Thread safety
//
// Logger is safe for concurrent use; the rotating writer serializes file
// writes internally.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the minimum severity a Logger will emit, mirroring slog's levels.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota - 1
	// LevelInfo is for normal operational messages; it is the zero value.
	LevelInfo
	// LevelWarn is for recoverable issues.
	LevelWarn
	// LevelError is for operation failures that do not halt the process.
	LevelError
)

func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Default rotation policy, matching the filesystem layout's stated bounds:
// 10 MB per file, 1 day of retained rotated files.
const (
	defaultMaxBytes   = 10 * 1024 * 1024
	defaultRetainDays = 1
)

// Config configures a Logger. A zero-value Config logs Info+ to stderr only.
type Config struct {
	// Level is the minimum level that reaches either sink. Default: LevelInfo.
	Level Level

	// LogDir, when set, enables a rotating JSON file sink under this
	// directory named "<Service>.log" (plus timestamped rotated copies).
	LogDir string

	// Service tags every record with a "service" attribute and names the
	// log file when LogDir is set.
	Service string

	// Quiet disables the stderr sink; use for daemons whose stderr is
	// otherwise unmonitored.
	Quiet bool

	// MaxBytes overrides the default 10MB rotation threshold.
	MaxBytes int64

	// RetainDays overrides the default 1-day retention window for rotated
	// files.
	RetainDays int
}

// Logger wraps slog.Logger with a rotating file sink and graceful Close.
type Logger struct {
	slog *slog.Logger
	file *rotatingFile
	mu   sync.Mutex
}

// New builds a Logger from config. File-open errors downgrade to a
// stderr-only logger rather than failing the caller.
func New(cfg Config) *Logger {
	var handlers []slog.Handler
	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}

	if !cfg.Quiet {
		handlers = append(handlers, slog.NewTextHandler(os.Stderr, opts))
	}

	l := &Logger{}

	if cfg.LogDir != "" {
		dir, err := expandHome(cfg.LogDir)
		if err == nil {
			if err := os.MkdirAll(dir, 0o750); err == nil {
				maxBytes := cfg.MaxBytes
				if maxBytes <= 0 {
					maxBytes = defaultMaxBytes
				}
				retainDays := cfg.RetainDays
				if retainDays <= 0 {
					retainDays = defaultRetainDays
				}
				name := cfg.Service
				if name == "" {
					name = "app"
				}
				rf, err := newRotatingFile(filepath.Join(dir, name+".log"), maxBytes, retainDays)
				if err == nil {
					l.file = rf
					handlers = append(handlers, slog.NewJSONHandler(rf, opts))
				}
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(io.Discard, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	l.slog = logger
	return l
}

// Default returns a stderr-only, Info-level logger.
func Default() *Logger {
	return New(Config{})
}

// Slog returns the underlying *slog.Logger, for callers (like gin middleware
// adapters) that want direct access.
func (l *Logger) Slog() *slog.Logger { return l.slog }

// With returns a Logger carrying the given attributes on every record.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{slog: l.slog.With(args...), file: l.file}
}

func (l *Logger) Debug(msg string, args ...any) { l.slog.Debug(msg, args...) }
func (l *Logger) Info(msg string, args ...any)  { l.slog.Info(msg, args...) }
func (l *Logger) Warn(msg string, args ...any)  { l.slog.Warn(msg, args...) }
func (l *Logger) Error(msg string, args ...any) { l.slog.Error(msg, args...) }

// Close flushes and closes the file sink, if any. Safe to call more than
// once.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// multiHandler fans a record out to every wrapped handler, matching the
// teacher's multi-destination logger without pulling in a routing library.
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: next}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		next[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: next}
}

// rotatingFile is an io.Writer that rotates the underlying file once it
// crosses maxBytes, and prunes rotated siblings older than retainDays.
type rotatingFile struct {
	mu         sync.Mutex
	path       string
	maxBytes   int64
	retainDays int
	f          *os.File
	size       int64
}

func newRotatingFile(path string, maxBytes int64, retainDays int) (*rotatingFile, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &rotatingFile{path: path, maxBytes: maxBytes, retainDays: retainDays, f: f, size: info.Size()}, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size+int64(len(p)) > r.maxBytes {
		if err := r.rotateLocked(); err != nil {
			return 0, err
		}
	}

	n, err := r.f.Write(p)
	r.size += int64(n)
	return n, err
}

func (r *rotatingFile) rotateLocked() error {
	if err := r.f.Close(); err != nil {
		return err
	}
	rotated := fmt.Sprintf("%s.%s", r.path, time.Now().Format("20060102-150405"))
	if err := os.Rename(r.path, rotated); err != nil && !os.IsNotExist(err) {
		return err
	}
	f, err := os.OpenFile(r.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o640)
	if err != nil {
		return err
	}
	r.f = f
	r.size = 0
	r.pruneLocked()
	return nil
}

func (r *rotatingFile) pruneLocked() {
	dir := filepath.Dir(r.path)
	base := filepath.Base(r.path)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -r.retainDays)
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+".") {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		_ = os.Remove(filepath.Join(dir, name))
	}
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.f.Close()
}
