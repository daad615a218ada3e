// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package resolver

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoMatch indicates no registered language resolved the given path or
// project root. Callers surface this as a 404 from /create.
var ErrNoMatch = errors.New("no lsp client found for path")

// ErrUnsupportedLanguage indicates a caller named a language identifier with
// no registered configuration, as distinct from ErrNoMatch (resolution from a
// path failed). No function in this package returns it; Resolve reports
// every failed resolution as ErrNoMatch.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// Target is a resolved (language-server kind, project-root) pair — the
// Language Resolver's only output shape. Construct via Resolve.
type Target struct {
	Language    string
	ProjectRoot string
}

// Resolver maps filesystem paths to Targets using a Registry of language
// configurations.
//
// Contract: a pure function of filesystem state at call time. Fails soft
// by returning ErrNoMatch rather than raising when nothing applies; it
// raises only on I/O errors encountered while walking.
type Resolver struct {
	registry *Registry
}

// New wraps a Registry in a Resolver.
func New(registry *Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Registry returns the underlying language configuration registry, so
// callers can register additional languages.
func (r *Resolver) Registry() *Registry { return r.registry }

// Resolve finds the (language, project-root) for path. If explicitRoot is
// non-empty, it is validated as a project root for exactly one language
// (is-project-root) rather than walked for. Iteration order over
// languages is the registry's fixed registration order; the first match
// wins.
func (r *Resolver) Resolve(path, explicitRoot string) (Target, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return Target{}, fmt.Errorf("resolve absolute path: %w", err)
	}

	if explicitRoot != "" {
		rootAbs, err := filepath.Abs(explicitRoot)
		if err != nil {
			return Target{}, fmt.Errorf("resolve absolute project root: %w", err)
		}
		for _, cfg := range r.registry.orderedConfigs() {
			ok, err := isProjectRoot(rootAbs, cfg)
			if err != nil {
				return Target{}, err
			}
			if ok {
				return Target{Language: cfg.Language, ProjectRoot: rootAbs}, nil
			}
		}
		return Target{}, ErrNoMatch
	}

	for _, cfg := range r.registry.orderedConfigs() {
		root, ok, err := findProjectRoot(abs, cfg)
		if err != nil {
			return Target{}, err
		}
		if ok {
			return Target{Language: cfg.Language, ProjectRoot: root}, nil
		}
	}
	return Target{}, ErrNoMatch
}

// findProjectRoot walks the parents of path (path itself first, if it is a
// directory) looking for any of cfg.RootFiles. Returns the first directory
// that contains a marker.
func findProjectRoot(path string, cfg LanguageConfig) (string, bool, error) {
	dir, err := startDir(path)
	if err != nil {
		return "", false, err
	}

	for {
		ok, err := hasMarker(dir, cfg.RootFiles)
		if err != nil {
			return "", false, err
		}
		if ok {
			return dir, true, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// isProjectRoot tests whether dir itself contains one of cfg's markers,
// without walking parents.
func isProjectRoot(dir string, cfg LanguageConfig) (bool, error) {
	return hasMarker(dir, cfg.RootFiles)
}

func hasMarker(dir string, markers []string) (bool, error) {
	for _, marker := range markers {
		_, err := os.Stat(filepath.Join(dir, marker))
		if err == nil {
			return true, nil
		}
		if !os.IsNotExist(err) {
			return false, fmt.Errorf("stat %s: %w", filepath.Join(dir, marker), err)
		}
	}
	return false, nil
}

// startDir returns the directory to begin walking from: path itself if it
// names a directory, otherwise its parent.
func startDir(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return path, nil
	}
	return filepath.Dir(path), nil
}
