// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package forge

import (
	"fmt"
	"net/url"
	"strings"
)

// Dialect names the two supported forge API dialects.
type Dialect string

const (
	DialectGitHub Dialect = "github"
	DialectGitLab Dialect = "gitlab"
)

// RepoLoc mirrors model.RepoLoc without importing the model package, kept
// as a plain value type so forge stays a leaf package.
type RepoLoc struct {
	NetlocPattern string
	APIHost       string
}

// NormalizedURL is the result of translating a clone-access specification
// into a reachable HTTPS forge location.
type NormalizedURL struct {
	// HTTPBase is the https://host/owner/repo form (no dialect API path).
	HTTPBase string
	// Host is the (possibly translated) netloc used to reach the forge.
	Host string
	// OriginalHost is the netloc as it appeared before RepoLoc translation,
	// used for credential lookup.
	OriginalHost string
}

// trimGitSuffix removes a trailing ".git" from path-like strings.
func trimGitSuffix(s string) string {
	return strings.TrimSuffix(s, ".git")
}

// Normalize converts an SSH-style ("git@host:owner/repo[.git]") or plain
// HTTPS clone URL into an HTTPS base URL, applying any matching RepoLoc
// netloc translation.
func Normalize(rawURL string, locs []RepoLoc) (NormalizedURL, error) {
	httpURL := rawURL
	if strings.HasPrefix(rawURL, "git@") {
		rest := trimGitSuffix(strings.TrimPrefix(rawURL, "git@"))
		host, path, found := strings.Cut(rest, ":")
		if !found {
			return NormalizedURL{}, fmt.Errorf("forge: malformed ssh clone URL %q", rawURL)
		}
		httpURL = "https://" + host + "/" + path
	} else {
		httpURL = trimGitSuffix(rawURL)
	}

	parsed, err := url.Parse(httpURL)
	if err != nil {
		return NormalizedURL{}, fmt.Errorf("forge: parsing clone URL %q: %w", rawURL, err)
	}

	origHost := parsed.Host
	apiHost := origHost
	for _, loc := range locs {
		if loc.NetlocPattern == origHost {
			apiHost = loc.APIHost
			break
		}
	}
	parsed.Host = apiHost

	return NormalizedURL{
		HTTPBase:     parsed.String(),
		Host:         apiHost,
		OriginalHost: origHost,
	}, nil
}

// OwnerRepo splits the path of an HTTPBase URL into owner and repo.
func OwnerRepo(httpBase string) (owner, repo string, err error) {
	parsed, err := url.Parse(httpBase)
	if err != nil {
		return "", "", err
	}
	parts := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(parts) < 2 {
		return "", "", fmt.Errorf("forge: cannot extract owner/repo from %q", httpBase)
	}
	return parts[0], parts[1], nil
}

// DetectDialect guesses the dialect from a normalized host: a host whose
// name contains "github" is GitHub; anything else defaults to GitLab's
// self-hosted style. There is no explicit dialect setting, so a GitHub
// Enterprise host whose name lacks "github" is treated as GitLab.
func DetectDialect(host string) Dialect {
	if strings.Contains(host, "github") {
		return DialectGitHub
	}
	return DialectGitLab
}
