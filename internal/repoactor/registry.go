// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package repoactor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/briareus-ci/briareus/internal/forge"
)

// ClientFactory builds the dialect-specific forge.Client for a normalized
// repo location; the registry is dialect-agnostic and calls this on every
// cache miss, deferring actual client construction to a factory keyed by
// dialect.
type ClientFactory func(ctx context.Context, norm forge.NormalizedURL, owner, repoName string) (forge.Client, error)

// Registry owns every live Actor, deduplicating by both repo name and
// canonicalized clone URL so two RepoDesc entries that happen to resolve to
// the same forge location share one Actor and one response cache.
type Registry struct {
	mu      sync.Mutex
	byName  map[string]*Actor
	byURL   map[string]*Actor
	factory ClientFactory
	locs    []forge.RepoLoc
}

// NewRegistry constructs an empty Registry. factory builds forge.Client
// values on demand; locs is the RepoLoc translation table applied to every
// clone URL before lookup.
func NewRegistry(factory ClientFactory, locs []forge.RepoLoc) *Registry {
	return &Registry{
		byName:  make(map[string]*Actor),
		byURL:   make(map[string]*Actor),
		factory: factory,
		locs:    locs,
	}
}

// Get returns the Actor for name/url, creating (or re-creating, after idle
// eviction) it if necessary. Two distinct names resolving to the same
// normalized URL receive the same Actor instance.
func (r *Registry) Get(ctx context.Context, name, rawURL string, transient bool) (*Actor, error) {
	norm, err := forge.Normalize(rawURL, r.locs)
	if err != nil {
		return nil, fmt.Errorf("repoactor: normalizing %q: %w", rawURL, err)
	}
	owner, repoName, err := forge.OwnerRepo(norm.HTTPBase)
	if err != nil {
		return nil, fmt.Errorf("repoactor: owner/repo from %q: %w", norm.HTTPBase, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.byName[name]; ok && r.alive(a) {
		return a, nil
	}
	if a, ok := r.byURL[norm.HTTPBase]; ok && r.alive(a) {
		r.byName[name] = a
		return a, nil
	}

	client, err := r.factory(ctx, norm, owner, repoName)
	if err != nil {
		return nil, fmt.Errorf("repoactor: building client for %s: %w", name, err)
	}

	idle := CoreIdleTimeout
	if transient {
		idle = TransientIdleTimeout
	}
	a := newActor(name, norm.HTTPBase, norm.HTTPBase, client, idle)
	r.byName[name] = a
	r.byURL[norm.HTTPBase] = a
	return a, nil
}

// alive reports whether a has not yet hit its idle-eviction deadline; the
// registry itself does not watch for eviction, it simply checks a.done
// (closed by the actor's own goroutine) lazily on next access, so the next
// message after eviction recreates the actor with an empty cache.
func (r *Registry) alive(a *Actor) bool {
	select {
	case <-a.done:
		return false
	default:
		return true
	}
}

// Stats snapshots every currently-registered actor, skipping ones that have
// since been evicted.
func (r *Registry) Stats(ctx context.Context) []ActorStats {
	r.mu.Lock()
	actors := make([]*Actor, 0, len(r.byName))
	seen := make(map[*Actor]bool)
	for _, a := range r.byName {
		if !seen[a] {
			seen[a] = true
			actors = append(actors, a)
		}
	}
	r.mu.Unlock()

	out := make([]ActorStats, 0, len(actors))
	for _, a := range actors {
		statCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		s, err := a.Status(statCtx)
		cancel()
		if err == nil {
			out = append(out, s)
		}
	}
	return out
}
