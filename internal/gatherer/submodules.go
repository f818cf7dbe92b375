// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package gatherer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/briareus-ci/briareus/internal/model"
	"github.com/briareus-ci/briareus/internal/repoactor"
)

// probeGitmodules fetches .gitmodules at ref from rd and, for every
// declared submodule, records a model.SubModuleInfo and recurses into any
// submodule repo not yet known. prIdent is model.ProjectPrimary for a
// plain-branch probe or a PR's ident for a PR-ref probe, matching the
// submodule(...,pullreq_id_or_project_primary,...) fact shape.
func probeGitmodules(ctx context.Context, registry *repoactor.Registry, st *state, opts Options, rd model.RepoDesc, ref, prIdent string, recurse func(model.RepoDesc)) error {
	callCtx, cancel := context.WithTimeout(ctx, opts.PerRepoDeadline)
	defer cancel()

	actor, err := registry.Get(callCtx, rd.Name, rd.URL, false)
	if err != nil {
		return fmt.Errorf("repo %s: %w", rd.Name, err)
	}

	data, found, err := actor.GitmodulesData(callCtx, ref)
	if err != nil {
		return fmt.Errorf("repo %s: .gitmodules@%s: %w", rd.Name, ref, err)
	}
	if !found {
		return nil
	}

	cfg, err := ini.Load(data)
	if err != nil {
		slog.Warn("invalid .gitmodules", "repo", rd.Name, "ref", ref, "err", err)
		return nil
	}

	for _, sec := range cfg.Sections() {
		name, ok := submoduleSectionName(sec.Name())
		if !ok {
			continue
		}
		path := sec.Key("path").String()
		url := sec.Key("url").String()
		if path == "" {
			path = name
		}

		pinned, invalid := resolvePinnedRevision(callCtx, actor, path, ref)
		if invalid {
			slog.Warn("submodule commit missing", "repo", rd.Name, "ref", ref, "submodule", name)
		}

		st.addSubmodule(model.SubModuleInfo{
			ContainingRepo: rd.Name,
			Branch:         ref,
			PullReqIdent:   prIdent,
			SubmoduleName:  name,
			PinnedRevision: pinned,
		})

		if url == "" {
			continue
		}
		if _, known := st.knownByURL(url); known {
			continue
		}
		if st.claim(name) {
			sub := model.RepoDesc{Name: name, URL: url, MainBranch: "master"}
			st.addSubrepo(sub)
			recurse(sub)
		}
	}
	return nil
}

// resolvePinnedRevision asks the forge for the submodule's committed blob.
// On the GitHub dialect this also carries the remote URL (ignored here
// since .gitmodules already supplied it); on the GitLab dialect it is just
// the file's blob id.
func resolvePinnedRevision(ctx context.Context, actor *repoactor.Actor, path, ref string) (rev string, invalid bool) {
	entry, found, err := actor.GetSubmoduleInfo(ctx, path, ref)
	if err != nil || !found || entry.PinnedRevision == "" {
		return unknownRemoteRef, true
	}
	return entry.PinnedRevision, false
}

// submoduleSectionName extracts name from an INI section header shaped
// like `submodule "name"`; non-submodule sections (including ini.v1's
// implicit DEFAULT section) are reported as ok=false.
func submoduleSectionName(header string) (string, bool) {
	const prefix = "submodule "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	name := strings.TrimPrefix(header, prefix)
	name = strings.Trim(name, `"`)
	if name == "" {
		return "", false
	}
	return name, true
}
