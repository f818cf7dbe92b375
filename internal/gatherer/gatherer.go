// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gatherer drives the breadth-first transitive discovery of
// branches, pull requests, and submodule pins across a growing repository
// set spanning two forge dialects, translated from the original Thespian
// actor system's GatherRepoInfo into a recursive errgroup fan-out bounded
// by a per-forge connection limit.
package gatherer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/model"
	"github.com/briareus-ci/briareus/internal/repoactor"
)

// Options tunes the concurrency and deadlines of one Run.
type Options struct {
	// ForgeConnectionLimit bounds concurrent in-flight repos (default 4).
	ForgeConnectionLimit int
	// PerRepoDeadline bounds the requests made for one repo, and those of
	// one .gitmodules probe, each set taken together (default 30s).
	PerRepoDeadline time.Duration
}

func (o Options) withDefaults() Options {
	if o.ForgeConnectionLimit <= 0 {
		o.ForgeConnectionLimit = 4
	}
	if o.PerRepoDeadline <= 0 {
		o.PerRepoDeadline = 30 * time.Second
	}
	return o
}

// GatheredInfo is the frozen snapshot a Run produces: every pull request,
// submodule pin, and discovered subrepo, plus the observed branch set per
// repo name (used by the Fact Builder to emit branch(R,B) facts).
type GatheredInfo struct {
	PullReqs   []model.PRInfo
	Submodules []model.SubModuleInfo
	Subrepos   []model.RepoDesc
	Branches   map[string][]string
}

// unknownRemoteRef is the sentinel pinned revision recorded when a
// submodule's committed blob cannot be resolved, so the downstream build
// fails cleanly instead of silently vanishing.
const unknownRemoteRef = "unknownRemoteRefForPullReq"

type state struct {
	mu       sync.Mutex
	repos    map[string]model.RepoDesc
	started  map[string]bool
	branches map[string][]string
	prs      []model.PRInfo
	subs     []model.SubModuleInfo
	subrepos []model.RepoDesc
}

func newState(input model.InputDesc) *state {
	s := &state{
		repos:    make(map[string]model.RepoDesc),
		started:  make(map[string]bool),
		branches: make(map[string][]string),
	}
	for _, r := range input.Repos {
		s.repos[r.Name] = r
	}
	return s
}

// claim returns true and marks name as started if it had not already been
// started by another goroutine, the dedup gate for recursive discovery.
func (s *state) claim(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started[name] {
		return false
	}
	s.started[name] = true
	return true
}

func (s *state) knownByURL(url string) (model.RepoDesc, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.repos {
		if r.URL == url {
			return r, true
		}
	}
	return model.RepoDesc{}, false
}

func (s *state) addSubrepo(rd model.RepoDesc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repos[rd.Name] = rd
	s.subrepos = append(s.subrepos, rd)
}

func (s *state) setBranches(repo string, names []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.branches[repo] = names
}

func (s *state) addPR(pr model.PRInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prs = append(s.prs, pr)
}

func (s *state) addSubmodule(sm model.SubModuleInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sm)
}

func (s *state) snapshot() GatheredInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return GatheredInfo{
		PullReqs:   append([]model.PRInfo(nil), s.prs...),
		Submodules: append([]model.SubModuleInfo(nil), s.subs...),
		Subrepos:   append([]model.RepoDesc(nil), s.subrepos...),
		Branches:   copyBranchMap(s.branches),
	}
}

func copyBranchMap(m map[string][]string) map[string][]string {
	out := make(map[string][]string, len(m))
	for k, v := range m {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Run executes one discovery pass over input, returning a frozen
// GatheredInfo. The run carries a hard deadline of 2x the sum of per-repo
// soft deadlines unless ctx already carries an earlier one.
func Run(ctx context.Context, input model.InputDesc, registry *repoactor.Registry, opts Options) (GatheredInfo, error) {
	opts = opts.withDefaults()

	hardDeadline := 2 * time.Duration(max(len(input.Repos), 1)) * opts.PerRepoDeadline
	ctx, cancel := context.WithTimeout(ctx, hardDeadline)
	defer cancel()

	st := newState(input)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.ForgeConnectionLimit)

	var requested []string
	for _, b := range input.Branches {
		requested = append(requested, b.Name)
	}

	var process func(rd model.RepoDesc)
	process = func(rd model.RepoDesc) {
		g.Go(func() error {
			return processRepo(gctx, registry, st, opts, rd, requested, process)
		})
	}

	for _, r := range input.Repos {
		if st.claim(r.Name) {
			process(r)
		}
	}

	if err := g.Wait(); err != nil {
		return GatheredInfo{}, fmt.Errorf("gatherer: %w", err)
	}
	return st.snapshot(), nil
}

// processRepo is the per-repo unit of work: declare, list branches, list
// pull requests, and probe .gitmodules at every ref of interest, recursing
// into newly discovered submodule repos via recurse.
func processRepo(ctx context.Context, registry *repoactor.Registry, st *state, opts Options, rd model.RepoDesc, requestedBranches []string, recurse func(model.RepoDesc)) error {
	callCtx, cancel := context.WithTimeout(ctx, opts.PerRepoDeadline)
	defer cancel()

	actor, err := registry.Get(callCtx, rd.Name, rd.URL, false)
	if err != nil {
		return fmt.Errorf("repo %s: %w", rd.Name, err)
	}
	if err := actor.DeclareRepo(callCtx); err != nil {
		return fmt.Errorf("repo %s: declare: %w", rd.Name, err)
	}

	branches, err := actor.Branches(callCtx)
	if err != nil {
		return fmt.Errorf("repo %s: branches: %w", rd.Name, err)
	}
	names := make([]string, len(branches))
	branchSet := make(map[string]bool, len(branches))
	for i, b := range branches {
		names[i] = b.Name
		branchSet[b.Name] = true
	}
	st.setBranches(rd.Name, names)

	prs, err := actor.GetPullReqs(callCtx)
	if err != nil {
		return fmt.Errorf("repo %s: pullreqs: %w", rd.Name, err)
	}
	for _, pr := range prs {
		info, ok := resolvePR(rd, pr)
		if !ok {
			slog.Warn("dropping pull request with unresolvable source", "repo", rd.Name, "ident", pr.Ident, "branch", pr.Branch)
			continue
		}
		st.addPR(info)
		if err := probeGitmodules(ctx, registry, st, opts, rd, pr.Branch, pr.Ident, recurse); err != nil {
			return err
		}
	}

	refsToProbe := map[string]bool{rd.Main(): true}
	for _, b := range requestedBranches {
		if branchSet[b] {
			refsToProbe[b] = true
		}
	}
	for ref := range refsToProbe {
		if err := probeGitmodules(ctx, registry, st, opts, rd, ref, model.ProjectPrimary, recurse); err != nil {
			return err
		}
	}

	return nil
}

// resolvePR applies the dialect-agnostic part of source resolution: a
// concrete or already-resolved-different-project source URL passes
// through unchanged; SameProject resolves to the target repo's own URL;
// Unresolved reports ok=false so the caller drops the PR.
func resolvePR(target model.RepoDesc, pr forge.PullRequest) (model.PRInfo, bool) {
	var src model.SourceURL
	switch pr.SourceKind {
	case forge.SourceConcrete, forge.SourceDifferentProject:
		if pr.SourceURL == "" {
			return model.PRInfo{}, false
		}
		src = model.SourceURL{Kind: model.SourceURLConcrete, URL: pr.SourceURL}
	case forge.SourceSameProject:
		src = model.SourceURL{Kind: model.SourceURLConcrete, URL: target.URL}
	default:
		return model.PRInfo{}, false
	}
	return model.PRInfo{
		TargetRepo: target.Name,
		SourceURL:  src,
		Branch:     pr.Branch,
		Ident:      pr.Ident,
		Title:      pr.Title,
		User:       pr.User,
		Email:      pr.Email,
	}, true
}
