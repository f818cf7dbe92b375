// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package briareuscfg

import (
	"context"
	"fmt"

	"github.com/briareus-ci/briareus/internal/forge"
	"github.com/briareus-ci/briareus/internal/forge/githubdialect"
	"github.com/briareus-ci/briareus/internal/forge/gitlabdialect"
	"github.com/briareus-ci/briareus/internal/repoactor"
)

// NewClientFactory builds a repoactor.ClientFactory that dispatches on
// forge.DetectDialect and authenticates from creds, the single place a CLI
// wires the two dialect clients behind the repo-actor registry.
func NewClientFactory(creds forge.Credentials) repoactor.ClientFactory {
	return func(ctx context.Context, norm forge.NormalizedURL, owner, repoName string) (forge.Client, error) {
		tokenspec, _ := creds.For(norm.OriginalHost, norm.Host)
		switch forge.DetectDialect(norm.Host) {
		case forge.DialectGitHub:
			apiBase := fmt.Sprintf("https://api.%s", stripWWW(norm.Host))
			if norm.Host == "github.com" {
				apiBase = "https://api.github.com"
			}
			return githubdialect.New(ctx, apiBase, owner, repoName, tokenspec)
		default:
			apiBase := "https://" + norm.Host
			return gitlabdialect.New(apiBase, owner+"/"+repoName, tokenspec)
		}
	}
}

func stripWWW(host string) string {
	const prefix = "www."
	if len(host) > len(prefix) && host[:len(prefix)] == prefix {
		return host[len(prefix):]
	}
	return host
}
