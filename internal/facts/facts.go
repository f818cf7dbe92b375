// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package facts translates gathered VCS information into the ground
// logical fact base BCGen evaluates, rendered as ASCII literals
// (project("R1")., submodule("R1",project_primary,"master",
// "R3","r3_master_head^3")., …).
package facts

import (
	"fmt"
	"sort"
	"strings"

	"github.com/briareus-ci/briareus/internal/gatherer"
	"github.com/briareus-ci/briareus/internal/model"
)

// Fact is one ground literal of the fact base.
type Fact interface {
	// String renders the exact ASCII literal form, including the
	// trailing period.
	String() string
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// atomOrQuoted renders model.ProjectPrimary as the unquoted atom
// project_primary and anything else as a quoted string.
func atomOrQuoted(prIdent string) string {
	if prIdent == model.ProjectPrimary {
		return "project_primary"
	}
	return quote(prIdent)
}

type ProjectFact struct{ Name string }

func (f ProjectFact) String() string { return fmt.Sprintf("project(%s).", quote(f.Name)) }

type RepoFact struct{ Name string }

func (f RepoFact) String() string { return fmt.Sprintf("repo(%s).", quote(f.Name)) }

type SubrepoFact struct{ Name string }

func (f SubrepoFact) String() string { return fmt.Sprintf("subrepo(%s).", quote(f.Name)) }

type DefaultMainBranchFact struct{ Branch string }

func (f DefaultMainBranchFact) String() string {
	return fmt.Sprintf("default_main_branch(%s).", quote(f.Branch))
}

type BranchReqFact struct {
	Project string
	Branch  string
}

func (f BranchReqFact) String() string {
	return fmt.Sprintf("branchreq(%s,%s).", quote(f.Project), quote(f.Branch))
}

type BranchFact struct {
	Repo   string
	Branch string
}

func (f BranchFact) String() string {
	return fmt.Sprintf("branch(%s,%s).", quote(f.Repo), quote(f.Branch))
}

type PullReqFact struct {
	Repo   string
	Ident  string
	Branch string
	User   string
	Email  string
}

func (f PullReqFact) String() string {
	if f.User == "" && f.Email == "" {
		return fmt.Sprintf("pullreq(%s,%s,%s).", quote(f.Repo), quote(f.Ident), quote(f.Branch))
	}
	return fmt.Sprintf("pullreq(%s,%s,%s,%s,%s).", quote(f.Repo), quote(f.Ident), quote(f.Branch), quote(f.User), quote(f.Email))
}

type SubmoduleFact struct {
	ParentRepo string
	PRIdent    string // model.ProjectPrimary for a plain branch pin
	Branch     string
	SubName    string
	PinnedRev  string
}

func (f SubmoduleFact) String() string {
	return fmt.Sprintf("submodule(%s,%s,%s,%s,%s).",
		quote(f.ParentRepo), atomOrQuoted(f.PRIdent), quote(f.Branch), quote(f.SubName), quote(f.PinnedRev))
}

type VarNameFact struct {
	Project string
	Var     string
}

func (f VarNameFact) String() string {
	return fmt.Sprintf("varname(%s,%s).", quote(f.Project), quote(f.Var))
}

type VarValueFact struct {
	Project string
	Var     string
	Value   string
}

func (f VarValueFact) String() string {
	return fmt.Sprintf("varvalue(%s,%s,%s).", quote(f.Project), quote(f.Var), quote(f.Value))
}

// Build is a pure function turning gathered info plus the input description
// into the sorted, deduplicated ground fact list, including the PR-masking
// invariant: a repo/branch pair known to carry a PR never also emits the
// plain branch(R,B) fact.
func Build(gathered gatherer.GatheredInfo, input model.InputDesc) []Fact {
	var out []Fact

	out = append(out, ProjectFact{Name: input.ProjectName})
	for _, r := range input.Repos {
		out = append(out, RepoFact{Name: r.Name})
	}
	for _, r := range gathered.Subrepos {
		out = append(out, SubrepoFact{Name: r.Name})
	}

	if proj, ok := input.ProjectRepo(); ok {
		out = append(out, DefaultMainBranchFact{Branch: proj.Main()})
	}

	for _, b := range input.Branches {
		out = append(out, BranchReqFact{Project: input.ProjectName, Branch: b.Name})
	}

	prBranches := make(map[string]map[string]bool)
	for _, pr := range gathered.PullReqs {
		if prBranches[pr.TargetRepo] == nil {
			prBranches[pr.TargetRepo] = make(map[string]bool)
		}
		prBranches[pr.TargetRepo][pr.Branch] = true
		out = append(out, PullReqFact{Repo: pr.TargetRepo, Ident: pr.Ident, Branch: pr.Branch, User: pr.User, Email: pr.Email})
	}

	for repo, branches := range gathered.Branches {
		for _, b := range branches {
			if prBranches[repo][b] {
				continue
			}
			out = append(out, BranchFact{Repo: repo, Branch: b})
		}
	}

	for _, sm := range gathered.Submodules {
		out = append(out, SubmoduleFact{
			ParentRepo: sm.ContainingRepo,
			PRIdent:    sm.PullReqIdent,
			Branch:     sm.Branch,
			SubName:    sm.SubmoduleName,
			PinnedRev:  sm.PinnedRevision,
		})
	}

	for _, v := range input.Variables {
		out = append(out, VarNameFact{Project: input.ProjectName, Var: v.Name})
		for _, val := range v.Values {
			out = append(out, VarValueFact{Project: input.ProjectName, Var: v.Name, Value: val})
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	deduped := make([]Fact, 0, len(out))
	for _, f := range out {
		if len(deduped) == 0 || deduped[len(deduped)-1].String() != f.String() {
			deduped = append(deduped, f)
		}
	}
	return deduped
}

// Render joins facts one per line, in the order given (callers typically
// pass Build's already-sorted output).
func Render(fs []Fact) string {
	lines := make([]string, len(fs))
	for i, f := range fs {
		lines[i] = f.String()
	}
	return strings.Join(lines, "\n")
}
