// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package repoactor

import (
	"context"

	"github.com/briareus-ci/briareus/internal/forge"
)

// declareRepoReq confirms the actor is reachable; it does no network I/O
// since the forge.Client is already constructed at Actor creation time —
// it exists purely so "declare this repo" is a message like every other
// request, matching the actor-model contract of one reply per message.
type declareRepoReq struct {
	reply chan error
}

func (r *declareRepoReq) do(_ context.Context, _ *Actor) {
	r.reply <- nil
}

// DeclareRepo confirms the actor is running and accepting requests; on an
// idle-evicted actor it returns an error (Registry.Get is what re-creates
// an evicted actor).
func (a *Actor) DeclareRepo(ctx context.Context) error {
	reply := make(chan error, 1)
	if err := a.submit(ctx, &declareRepoReq{reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

type hasBranchReq struct {
	branch string
	reply  chan hasBranchResult
}

type hasBranchResult struct {
	all []forge.Branch
	err error
}

func (r *hasBranchReq) do(ctx context.Context, a *Actor) {
	if a.branchesLoaded {
		r.reply <- hasBranchResult{all: a.branches}
		return
	}
	branches, err := a.client.GetBranches(ctx)
	if err != nil {
		r.reply <- hasBranchResult{err: a.fail("branches", err)}
		return
	}
	a.branches = branches
	a.branchesLoaded = true
	r.reply <- hasBranchResult{all: branches}
}

// HasBranch reports whether branch exists, caching the full branch list on
// first call so repeated lookups (one per requested BranchDesc) cost a
// single forge round trip.
func (a *Actor) HasBranch(ctx context.Context, branch string) (bool, error) {
	reply := make(chan hasBranchResult, 1)
	if err := a.submit(ctx, &hasBranchReq{branch: branch, reply: reply}); err != nil {
		return false, err
	}
	select {
	case res := <-reply:
		if res.err != nil {
			return false, res.err
		}
		for _, b := range res.all {
			if b.Name == branch {
				return true, nil
			}
		}
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Branches returns every branch, populating the cache as HasBranch does.
func (a *Actor) Branches(ctx context.Context) ([]forge.Branch, error) {
	reply := make(chan hasBranchResult, 1)
	if err := a.submit(ctx, &hasBranchReq{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.all, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type getPullReqsReq struct {
	reply chan pullReqsResult
}

type pullReqsResult struct {
	prs []forge.PullRequest
	err error
}

func (r *getPullReqsReq) do(ctx context.Context, a *Actor) {
	prs, err := a.client.GetPullRequests(ctx)
	if err != nil {
		r.reply <- pullReqsResult{err: a.fail("pullreqs", err)}
		return
	}
	r.reply <- pullReqsResult{prs: prs}
}

// GetPullReqs returns every open pull/merge request for this repo.
func (a *Actor) GetPullReqs(ctx context.Context) ([]forge.PullRequest, error) {
	reply := make(chan pullReqsResult, 1)
	if err := a.submit(ctx, &getPullReqsReq{reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.prs, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type readFileReq struct {
	path, ref string
	reply     chan readFileResult
}

type readFileResult struct {
	data  []byte
	found bool
	err   error
}

func (r *readFileReq) do(ctx context.Context, a *Actor) {
	data, found, err := a.client.GetFile(ctx, r.path, r.ref)
	if err != nil {
		r.reply <- readFileResult{err: a.fail("file", err)}
		return
	}
	r.reply <- readFileResult{data: data, found: found}
}

// ReadFileFromVCS fetches path at ref, reporting found=false (no error) for
// a missing file rather than assuming its absence without checking.
func (a *Actor) ReadFileFromVCS(ctx context.Context, path, ref string) ([]byte, bool, error) {
	reply := make(chan readFileResult, 1)
	if err := a.submit(ctx, &readFileReq{path: path, ref: ref, reply: reply}); err != nil {
		return nil, false, err
	}
	select {
	case res := <-reply:
		return res.data, res.found, res.err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// GitmodulesData fetches .gitmodules at ref; a convenience wrapper over
// ReadFileFromVCS since it is the one file the Gatherer probes by name.
func (a *Actor) GitmodulesData(ctx context.Context, ref string) ([]byte, bool, error) {
	return a.ReadFileFromVCS(ctx, ".gitmodules", ref)
}

type submoduleInfoReq struct {
	path, ref string
	reply     chan submoduleInfoResult
}

type submoduleInfoResult struct {
	entry forge.SubmoduleEntry
	found bool
	err   error
}

func (r *submoduleInfoReq) do(ctx context.Context, a *Actor) {
	entry, found, err := a.client.GetSubmoduleInfo(ctx, r.path, r.ref)
	if err != nil {
		r.reply <- submoduleInfoResult{err: a.fail("submodule", err)}
		return
	}
	r.reply <- submoduleInfoResult{entry: entry, found: found}
}

// GetSubmoduleInfo resolves a checked-in submodule pointer at path/ref via
// the client's GetSubmoduleInfo; the Gatherer uses it for both dialects.
func (a *Actor) GetSubmoduleInfo(ctx context.Context, path, ref string) (forge.SubmoduleEntry, bool, error) {
	reply := make(chan submoduleInfoResult, 1)
	if err := a.submit(ctx, &submoduleInfoReq{path: path, ref: ref, reply: reply}); err != nil {
		return forge.SubmoduleEntry{}, false, err
	}
	select {
	case res := <-reply:
		return res.entry, res.found, res.err
	case <-ctx.Done():
		return forge.SubmoduleEntry{}, false, ctx.Err()
	}
}
