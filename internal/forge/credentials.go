// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package forge

import (
	"os"
	"strings"
)

// Credentials is the immutable, process-wide host -> tokenspec table
// parsed once from BRIAREUS_PAT at startup. GitHub tokenspecs are
// "user:token"; GitLab tokenspecs are a bare token.
type Credentials map[string]string

// LoadCredentialsFromEnv parses BRIAREUS_PAT ("host1=tokenspec1;host2=...")
// from the environment. A missing or empty variable yields an empty table,
// never an error: unauthenticated access is a valid configuration for
// public repos.
func LoadCredentialsFromEnv() Credentials {
	return ParseCredentials(os.Getenv("BRIAREUS_PAT"))
}

// ParseCredentials parses the BRIAREUS_PAT grammar directly, for tests and
// for callers that source the spec from configuration instead of the
// environment.
func ParseCredentials(spec string) Credentials {
	creds := Credentials{}
	if spec == "" {
		return creds
	}
	for _, entry := range strings.Split(spec, ";") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		host, tokenspec, found := strings.Cut(entry, "=")
		if !found {
			continue
		}
		creds[host] = tokenspec
	}
	return creds
}

// For looks up the tokenspec for host, preferring an exact match on the
// original (pre-translation) remote before falling back to the translated
// API host.
func (c Credentials) For(originalRemote, apiHost string) (string, bool) {
	if v, ok := c[originalRemote]; ok {
		return v, true
	}
	if v, ok := c[apiHost]; ok {
		return v, true
	}
	return "", false
}

// SplitGitHubTokenspec splits a "user:token" GitHub tokenspec.
func SplitGitHubTokenspec(spec string) (user, token string, ok bool) {
	user, token, ok = strings.Cut(spec, ":")
	return
}
