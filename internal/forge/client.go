// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package forge defines the dialect-agnostic forge API client contract,
// plus the conditional-GET cache, pagination helper, URL normalization, and
// credentials table shared by the GitHub-style and GitLab-style dialect
// clients in the githubdialect and gitlabdialect subpackages.
package forge

import (
	"context"
	"fmt"
)

// Branch is a branch name as reported by the forge.
type Branch struct {
	Name string
}

// PullRequest is a forge-neutral pull/merge request.
type PullRequest struct {
	Ident      string // GitHub "number", GitLab "iid"
	Title      string
	Branch     string // source branch name
	User       string
	Email      string
	SourceURL  string // concrete URL, or "" if unresolved
	SourceKind SourceKind
	SourceName string // set when SourceKind == SourceDifferentProject
}

// SourceKind mirrors model.SourceURLKind at the forge-client boundary,
// kept separate so forge implementations never import the model package.
type SourceKind int

const (
	SourceConcrete SourceKind = iota
	SourceSameProject
	SourceDifferentProject
	SourceUnresolved
)

// SubmoduleEntry is one row of .gitmodules plus its resolved pin.
type SubmoduleEntry struct {
	Name           string
	URL            string
	PinnedRevision string
	Invalid        bool // true when the commit or URL could not be resolved
}

// Client is the dialect-agnostic forge API surface required by the
// Gatherer and Repo Actor.
type Client interface {
	// Name returns the dialect name ("github" or "gitlab").
	Name() string

	// GetBranches returns every branch in the repository, in forge order.
	GetBranches(ctx context.Context) ([]Branch, error)

	// GetPullRequests returns every open, unmerged pull/merge request.
	GetPullRequests(ctx context.Context) ([]PullRequest, error)

	// GetUserEmail resolves a forge user reference to an email address.
	// Returns "" (not an error) when the forge has no public email on file.
	GetUserEmail(ctx context.Context, userRef string) (string, error)

	// GetFile returns the raw bytes of path at ref, and ok=false if the
	// path does not exist at that ref (a tolerated 404, never an error).
	GetFile(ctx context.Context, path, ref string) (data []byte, ok bool, err error)

	// GetSubmoduleInfo resolves the committed blob for a submodule's
	// checked-in pointer at path/ref, used to determine the pinned
	// revision (and, for the GitHub dialect, the submodule's remote URL).
	GetSubmoduleInfo(ctx context.Context, path, ref string) (SubmoduleEntry, bool, error)
}

// APIError describes a non-2xx, non-304, non-tolerated-404 forge response.
// The dialect clients in this module do not construct it; they return the
// SDK's own error, wrapped, for such responses.
type APIError struct {
	Dialect    string
	URL        string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (%d) at %s: %s", e.Dialect, e.StatusCode, e.URL, e.Message)
}

// ErrNotFound is a sentinel for a missing forge resource. No function in
// this module returns it: GetFile and GetSubmoduleInfo report a missing
// file through their bool result instead.
var ErrNotFound = fmt.Errorf("forge: resource not found")
