// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package githubdialect implements the forge.Client contract for the
// GitHub-style API dialect, wrapping google/go-github.
package githubdialect

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"

	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/forge/ratelimit"
)

// Client implements forge.Client for a single GitHub-style repository.
type Client struct {
	gh      *github.Client
	owner   string
	repo    string
	limiter *ratelimit.Limiter
}

// New constructs a Client for owner/repo against apiBaseURL (the
// dialect-specific API host, e.g. https://api.github.com or a GitHub
// Enterprise host). tokenspec, if non-empty, is a "user:token" pair
// applied as HTTP Basic auth, or a bare OAuth token otherwise.
func New(ctx context.Context, apiBaseURL, owner, repo, tokenspec string) (*Client, error) {
	limiter := ratelimit.NewLimiter(5000)
	limited := ratelimit.NewTransport(http.DefaultTransport, limiter)
	cached := forge.NewCachingTransport(limited)
	cached.Limiter = limiter

	var httpClient *http.Client
	if tokenspec != "" {
		if user, token, ok := forge.SplitGitHubTokenspec(tokenspec); ok && user != "" {
			httpClient = &http.Client{Transport: &basicAuthTransport{user: user, token: token, next: cached}}
		} else {
			ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tokenspec})
			httpClient = oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, &http.Client{Transport: cached}), ts)
		}
	} else {
		httpClient = &http.Client{Transport: cached}
	}

	gh := github.NewClient(httpClient)
	if apiBaseURL != "" && apiBaseURL != "https://api.github.com" {
		var err error
		gh, err = gh.WithEnterpriseURLs(apiBaseURL, apiBaseURL)
		if err != nil {
			return nil, fmt.Errorf("githubdialect: enterprise URL %q: %w", apiBaseURL, err)
		}
	}

	return &Client{gh: gh, owner: owner, repo: repo, limiter: limiter}, nil
}

type basicAuthTransport struct {
	user, token string
	next        http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.user, t.token)
	return t.next.RoundTrip(req)
}

// Name returns "github".
func (c *Client) Name() string { return "github" }

// GetBranches returns every branch, paginating via the Link header by
// following resp.NextPage until it reaches zero.
func (c *Client) GetBranches(ctx context.Context) ([]forge.Branch, error) {
	var out []forge.Branch
	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: 100}}
	for {
		branches, resp, err := c.gh.Repositories.ListBranches(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("githubdialect: list branches for %s/%s: %w", c.owner, c.repo, err)
		}
		for _, b := range branches {
			out = append(out, forge.Branch{Name: b.GetName()})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// GetPullRequests returns every open, unmerged pull request, resolving the
// source URL directly from the PR payload (GitHub always knows it).
func (c *Client) GetPullRequests(ctx context.Context) ([]forge.PullRequest, error) {
	var out []forge.PullRequest
	opts := &github.PullRequestListOptions{State: "open", ListOptions: github.ListOptions{PerPage: 100}}
	for {
		prs, resp, err := c.gh.PullRequests.List(ctx, c.owner, c.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("githubdialect: list pull requests for %s/%s: %w", c.owner, c.repo, err)
		}
		for _, pr := range prs {
			if pr.GetState() != "open" || !pr.GetMergedAt().IsZero() {
				continue
			}
			email, err := c.GetUserEmail(ctx, pr.GetUser().GetLogin())
			if err != nil {
				return nil, err
			}
			sourceURL := ""
			if pr.GetHead().GetRepo() != nil {
				sourceURL = pr.GetHead().GetRepo().GetHTMLURL()
			}
			out = append(out, forge.PullRequest{
				Ident:      fmt.Sprintf("%d", pr.GetNumber()),
				Title:      pr.GetTitle(),
				Branch:     pr.GetHead().GetRef(),
				User:       pr.GetUser().GetLogin(),
				Email:      email,
				SourceURL:  sourceURL,
				SourceKind: forge.SourceConcrete,
			})
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

// GetUserEmail resolves a GitHub login to its public email, returning ""
// when the user has none on file or cannot be looked up.
func (c *Client) GetUserEmail(ctx context.Context, userRef string) (string, error) {
	user, resp, err := c.gh.Users.Get(ctx, userRef)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("githubdialect: get user %q: %w", userRef, err)
	}
	return user.GetEmail(), nil
}

// GetFile returns the decoded contents of path at ref.
func (c *Client) GetFile(ctx context.Context, path, ref string) ([]byte, bool, error) {
	ctx = forge.AllowNotFound(ctx)
	content, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("githubdialect: get file %q@%s: %w", path, ref, err)
	}
	if content == nil {
		return nil, false, nil
	}
	text, err := content.GetContent()
	if err != nil {
		return nil, false, fmt.Errorf("githubdialect: decode file %q@%s: %w", path, ref, err)
	}
	return []byte(text), true, nil
}

// GetSubmoduleInfo resolves a checked-in submodule entry via the contents
// API; GitHub reports a typed "submodule" entry carrying both the pinned
// SHA and the submodule's remote URL directly, unlike GitLab which needs
// .gitmodules for the URL.
func (c *Client) GetSubmoduleInfo(ctx context.Context, path, ref string) (forge.SubmoduleEntry, bool, error) {
	ctx = forge.AllowNotFound(ctx)
	content, _, resp, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path, &github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return forge.SubmoduleEntry{}, false, nil
		}
		return forge.SubmoduleEntry{}, false, fmt.Errorf("githubdialect: get submodule entry %q@%s: %w", path, ref, err)
	}
	if content == nil {
		return forge.SubmoduleEntry{}, false, nil
	}
	if content.GetType() != "submodule" {
		return forge.SubmoduleEntry{}, false, nil
	}
	return forge.SubmoduleEntry{
		Name:           path,
		URL:            content.GetSubmoduleGitURL(),
		PinnedRevision: content.GetSHA(),
	}, true, nil
}
