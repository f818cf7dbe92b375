// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package gitlabdialect implements the forge.Client contract for the
// GitLab-style API dialect, wrapping github.com/xanzy/go-gitlab.
package gitlabdialect

import (
	"context"
	"fmt"
	"net/http"

	"github.com/xanzy/go-gitlab"

	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/forge/ratelimit"
)

// Client implements forge.Client for a single GitLab-style project.
type Client struct {
	gl        *gitlab.Client
	projectID string // "owner/repo" path, URL-encoded by the library
	limiter   *ratelimit.Limiter
}

// New constructs a Client for projectPath ("owner/repo") against
// apiBaseURL, the GitLab instance's base URL (not including /api/v4 — the
// library appends that itself).
func New(apiBaseURL, projectPath, token string) (*Client, error) {
	limiter := ratelimit.NewLimiter(2000)
	limited := ratelimit.NewTransport(http.DefaultTransport, limiter)
	cached := forge.NewCachingTransport(limited)
	cached.Limiter = limiter
	httpClient := &http.Client{Transport: cached}

	opts := []gitlab.ClientOptionFunc{gitlab.WithHTTPClient(httpClient)}
	if apiBaseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(apiBaseURL))
	}
	gl, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("gitlabdialect: new client: %w", err)
	}

	return &Client{gl: gl, projectID: projectPath, limiter: limiter}, nil
}

// Name returns "gitlab".
func (c *Client) Name() string { return "gitlab" }

// GetBranches returns every branch in the project.
func (c *Client) GetBranches(ctx context.Context) ([]forge.Branch, error) {
	var out []forge.Branch
	opts := &gitlab.ListBranchesOptions{ListOptions: gitlab.ListOptions{PerPage: 100}}
	for {
		branches, resp, err := c.gl.Branches.ListBranches(c.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlabdialect: list branches for %s: %w", c.projectID, err)
		}
		for _, b := range branches {
			out = append(out, forge.Branch{Name: b.Name})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// GetPullRequests returns every open merge request. A merge request
// carries a source_project_id rather than a direct source URL; when it
// matches the target project it is reported as SourceSameProject, otherwise
// the caller must still resolve the other project's name, so
// SourceDifferentProject carries only the resolved project's path here.
func (c *Client) GetPullRequests(ctx context.Context) ([]forge.PullRequest, error) {
	var out []forge.PullRequest
	state := "opened"
	opts := &gitlab.ListProjectMergeRequestsOptions{
		State:       &state,
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}
	for {
		mrs, resp, err := c.gl.MergeRequests.ListProjectMergeRequests(c.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("gitlabdialect: list merge requests for %s: %w", c.projectID, err)
		}
		for _, mr := range mrs {
			if mr.State != "opened" || mr.MergedAt != nil {
				continue
			}
			kind, url, name, err := c.resolveSource(ctx, mr)
			if err != nil {
				return nil, err
			}
			email := ""
			if mr.Author != nil {
				email, err = c.GetUserEmail(ctx, fmt.Sprintf("%d", mr.Author.ID))
				if err != nil {
					return nil, err
				}
			}
			out = append(out, forge.PullRequest{
				Ident:      fmt.Sprintf("%d", mr.IID),
				Title:      mr.Title,
				Branch:     mr.SourceBranch,
				User:       authorUsername(mr),
				Email:      email,
				SourceURL:  url,
				SourceKind: kind,
				SourceName: name,
			})
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func authorUsername(mr *gitlab.BasicMergeRequest) string {
	if mr.Author == nil {
		return ""
	}
	return mr.Author.Username
}

// resolveSource determines where a merge request's source branch lives:
// if source == target the source is this repo; otherwise the source
// project's path is fetched and resolution deferred to the Gatherer, which
// knows the full repo set.
func (c *Client) resolveSource(ctx context.Context, mr *gitlab.BasicMergeRequest) (forge.SourceKind, string, string, error) {
	if mr.SourceProjectID == mr.TargetProjectID {
		return forge.SourceSameProject, "", "", nil
	}
	proj, resp, err := c.gl.Projects.GetProject(mr.SourceProjectID, nil, gitlab.WithContext(ctx))
	if err != nil {
		// The source project may be private or deleted; callers treat an
		// unresolved source the same as a dropped PR.
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return forge.SourceUnresolved, "", "", nil
		}
		return forge.SourceUnresolved, "", "", nil
	}
	return forge.SourceDifferentProject, proj.WebURL, proj.PathWithNamespace, nil
}

// GetUserEmail resolves a GitLab user id to its public email; GitLab hides
// private emails, returning "" for users who have not opted to publish one.
func (c *Client) GetUserEmail(ctx context.Context, userRef string) (string, error) {
	var id int
	if _, err := fmt.Sscanf(userRef, "%d", &id); err != nil {
		return "", fmt.Errorf("gitlabdialect: invalid user id %q: %w", userRef, err)
	}
	user, resp, err := c.gl.Users.GetUser(id, gitlab.GetUsersOptions{}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("gitlabdialect: get user %d: %w", id, err)
	}
	return user.PublicEmail, nil
}

// GetFile returns the raw decoded bytes of path at ref. ref must be a
// commit SHA for submodule resolution, since a submodule pin is a fixed
// revision, not a moving branch; callers resolving a plain branch may pass
// the branch name since GitLab's file API accepts either.
func (c *Client) GetFile(ctx context.Context, path, ref string) ([]byte, bool, error) {
	data, resp, err := c.gl.RepositoryFiles.GetRawFile(c.projectID, path, &gitlab.GetRawFileOptions{Ref: &ref}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("gitlabdialect: get file %q@%s: %w", path, ref, err)
	}
	return data, true, nil
}

// GetSubmoduleInfo reads the file-blob metadata for a checked-in submodule
// pointer. Unlike GitHub, GitLab's file metadata has no submodule URL — the
// caller must separately parse .gitmodules for that; this returns only the
// pinned revision (the blob id) keyed by path.
func (c *Client) GetSubmoduleInfo(ctx context.Context, path, ref string) (forge.SubmoduleEntry, bool, error) {
	file, resp, err := c.gl.RepositoryFiles.GetFile(c.projectID, path, &gitlab.GetFileOptions{Ref: &ref}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return forge.SubmoduleEntry{}, false, nil
		}
		return forge.SubmoduleEntry{}, false, fmt.Errorf("gitlabdialect: get file metadata %q@%s: %w", path, ref, err)
	}
	return forge.SubmoduleEntry{
		Name:           path,
		PinnedRevision: file.BlobID,
	}, true, nil
}
