// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package repoactor serializes all access to one repository's forge client
// behind a single goroutine and a typed inbox channel, the Go mapping of
// the actor model the original system built on Thespian. Every request
// against a repository — branch lookups, pull-request lists, file reads —
// funnels through the owning Actor so the underlying http.Client (and its
// response cache) is never touched concurrently from two goroutines.
package repoactor

import (
	"context"
	"fmt"
	"time"

	"github.com/briareus-ci/briareus/internal/forge"
)

// inboxSize bounds how many in-flight requests an Actor will buffer before
// callers block submitting more.
const inboxSize = 32

// CoreIdleTimeout is how long a core (input-declared) repo actor survives
// with no traffic before it is evicted and its cache discarded.
const CoreIdleTimeout = 12 * time.Hour

// TransientIdleTimeout is how long an alt-location actor spawned only to
// resolve a pull request's source repo survives with no further traffic.
const TransientIdleTimeout = 20 * time.Second

// callTimeout is the soft deadline on each forge.Client call the actor
// makes; a call that exceeds it fails and is reported as InvalidRepo.
const callTimeout = 30 * time.Second

// InvalidRepo reports a forge-client failure surfaced on a request's reply
// channel instead of panicking or killing the actor's goroutine.
type InvalidRepo struct {
	Name   string
	Kind   string // e.g. "branches", "pullreqs", "file", "submodule"
	Remote string
	APIURL string
	Err    error
}

func (e *InvalidRepo) Error() string {
	return fmt.Sprintf("repoactor: %s: %s (%s, %s): %v", e.Name, e.Kind, e.Remote, e.APIURL, e.Err)
}

func (e *InvalidRepo) Unwrap() error { return e.Err }

// ActorStats is the operational introspection surface mirroring the
// original per-repo stats() method: request/error counters, last activity
// time and identity, useful for a --status CLI surface.
type ActorStats struct {
	Name           string
	Remote         string
	APIURL         string
	RequestCount   int
	ErrorCount     int
	LastActivityAt time.Time
}

// request is the inbox envelope: every concrete request type below wraps
// itself into one via its do method, ensuring exactly one reply is sent.
type request interface {
	do(ctx context.Context, a *Actor)
}

// Actor owns one forge.Client and serializes every call against it through
// a single goroutine reading its inbox channel.
type Actor struct {
	name    string
	remote  string
	apiURL  string
	client  forge.Client
	inbox   chan request
	done    chan struct{}
	idle    time.Duration
	stats   ActorStats
	statsCh chan chan ActorStats

	branches       []forge.Branch
	branchesLoaded bool
}

// newActor starts an Actor's goroutine and returns it running.
func newActor(name, remote, apiURL string, client forge.Client, idle time.Duration) *Actor {
	a := &Actor{
		name:    name,
		remote:  remote,
		apiURL:  apiURL,
		client:  client,
		inbox:   make(chan request, inboxSize),
		done:    make(chan struct{}),
		idle:    idle,
		stats:   ActorStats{Name: name, Remote: remote, APIURL: apiURL},
		statsCh: make(chan chan ActorStats),
	}
	go a.run()
	return a
}

func (a *Actor) run() {
	timer := time.NewTimer(a.idle)
	defer timer.Stop()
	for {
		select {
		case req, ok := <-a.inbox:
			if !ok {
				close(a.done)
				return
			}
			a.stats.RequestCount++
			a.stats.LastActivityAt = time.Now()
			callCtx, cancel := context.WithTimeout(context.Background(), callTimeout)
			req.do(callCtx, a)
			cancel()
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(a.idle)
		case reply := <-a.statsCh:
			reply <- a.stats
		case <-timer.C:
			close(a.inbox)
		}
	}
}

// Status returns a snapshot of the actor's operational counters.
func (a *Actor) Status(ctx context.Context) (ActorStats, error) {
	reply := make(chan ActorStats, 1)
	select {
	case a.statsCh <- reply:
	case <-a.done:
		return ActorStats{}, fmt.Errorf("repoactor: %s: actor evicted", a.name)
	case <-ctx.Done():
		return ActorStats{}, ctx.Err()
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return ActorStats{}, ctx.Err()
	}
}

// submit enqueues req and waits for ctx cancellation or the actor's own
// shutdown, whichever comes first; callers build the reply channel and
// read from it themselves after submit returns nil.
func (a *Actor) submit(ctx context.Context, req request) error {
	select {
	case a.inbox <- req:
		return nil
	case <-a.done:
		return fmt.Errorf("repoactor: %s: actor evicted before request accepted", a.name)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (a *Actor) fail(kind string, err error) *InvalidRepo {
	a.stats.ErrorCount++
	return &InvalidRepo{Name: a.name, Kind: kind, Remote: a.remote, APIURL: a.apiURL, Err: err}
}
