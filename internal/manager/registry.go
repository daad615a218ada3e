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
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/lspctl/lspman/internal/resolver"
)

// clientID derives the deterministic, stable registry key for a Client
// Target: "<kind>-<fnv32a(project-root)>". Stable across manager restarts
// since it's a pure function of (language, root).
func clientID(target resolver.Target) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(target.ProjectRoot))
	return fmt.Sprintf("%s-%x", target.Language, h.Sum32())
}

// Registry maps client id → *Supervisor. At most one supervisor per id;
// Gone entries are removed synchronously rather than marked. The registry
// is the only shared mutable structure the daemon owns; all mutations go
// through its mutex, making the linearisability of insert/remove trivial.
//
// Thread Safety: safe for concurrent use.
type Registry struct {
	resolver *resolver.Resolver

	mu   sync.Mutex
	byID map[string]*Supervisor

	// flight collapses concurrent GetOrCreate calls for the same client id
	// onto a single spawn, the way the upstream graph cache collapses
	// concurrent rebuilds of the same key.
	flight singleflight.Group
}

// NewRegistry creates an empty registry backed by the given resolver.
func NewRegistry(res *resolver.Resolver) *Registry {
	return &Registry{
		resolver: res,
		byID:     make(map[string]*Supervisor),
	}
}

// GetOrCreate implements the manager's get-or-create procedure (spec
// §4.3): resolve the target, look up an existing supervisor by id, reset
// its idle timer and return it; otherwise construct and insert a new one,
// start its run loop in the background, and return immediately — the
// caller does not wait for the child's socket to become ready. Insertion
// happens before the run goroutine starts so a second concurrent caller
// always observes either the fully-inserted entry or none at all — never
// a half state. Concurrent callers racing on the same id share one spawn
// via flight rather than each starting (and immediately orphaning) their
// own supervisor. The client waits for the child socket to accept
// independently (see Client.WaitChildSocket).
func (r *Registry) GetOrCreate(path, explicitRoot string, cfg SupervisorConfig) (*Supervisor, error) {
	target, err := r.resolver.Resolve(path, explicitRoot)
	if err != nil {
		return nil, err
	}

	id := clientID(target)

	v, err, _ := r.flight.Do(id, func() (interface{}, error) {
		r.mu.Lock()
		if existing, ok := r.byID[id]; ok {
			r.mu.Unlock()
			existing.ResetIdle()
			return existing, nil
		}

		sup := NewSupervisor(id, target, cfg)
		r.byID[id] = sup
		r.mu.Unlock()

		go r.runAndReap(sup)

		return sup, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Supervisor), nil
}

// runAndReap drives the supervisor's run loop to completion, then removes
// it from the registry. This is the only path by which an entry leaves
// byID — the terminal step of every supervisor lifecycle.
func (r *Registry) runAndReap(sup *Supervisor) {
	sup.Run()

	r.mu.Lock()
	if r.byID[sup.ID()] == sup {
		delete(r.byID, sup.ID())
	}
	r.mu.Unlock()

	slog.Info("removed managed child from registry", slog.String("id", sup.ID()), slog.String("language", sup.Target().Language))
}

// Lookup resolves path/explicitRoot and returns the supervisor currently
// registered for that target, if any. Does not create one.
func (r *Registry) Lookup(path, explicitRoot string) (*Supervisor, error) {
	target, err := r.resolver.Resolve(path, explicitRoot)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.byID[clientID(target)], nil
}

// Delete initiates graceful stop of the supervisor matching path/
// explicitRoot, if one exists. Returns its pre-stop snapshot, or nil if
// nothing matched — it does not mutate the registry itself; the
// supervisor's own run loop removes the entry once it reaches Gone.
func (r *Registry) Delete(path, explicitRoot string) (*ClientInfo, error) {
	sup, err := r.Lookup(path, explicitRoot)
	if err != nil {
		return nil, err
	}
	if sup == nil {
		return nil, nil
	}
	info := sup.Info()
	sup.Stop()
	return &info, nil
}

// List returns a snapshot of every Starting/Ready/Draining supervisor.
func (r *Registry) List() []ClientInfo {
	r.mu.Lock()
	sups := make([]*Supervisor, 0, len(r.byID))
	for _, sup := range r.byID {
		sups = append(sups, sup)
	}
	r.mu.Unlock()

	out := make([]ClientInfo, 0, len(sups))
	for _, sup := range sups {
		out = append(out, sup.Info())
	}
	return out
}
