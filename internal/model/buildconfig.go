// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package model

import (
	"fmt"
	"sort"
	"strings"
)

// BranchType distinguishes a regular requested branch from a pull-request
// build.
type BranchType string

const (
	BranchTypeRegular BranchType = "regular"
	BranchTypePullReq BranchType = "pullreq"
)

// Strategy is the policy used to resolve the ref of a repo that is neither
// the requested branch's own repo nor a pull-request participant.
type Strategy string

const (
	StrategyRegular    Strategy = "regular"
	StrategySubmodules Strategy = "submodules"
	StrategyHEADs      Strategy = "HEADs"
	StrategyStandard   Strategy = "standard"
)

// DescriptionKind classifies how a BldConfig's branch request arose.
type DescriptionKind string

const (
	DescriptionBranchReq  DescriptionKind = "BranchReq"
	DescriptionPRSolo     DescriptionKind = "PR_Solo"
	DescriptionPRGrouped  DescriptionKind = "PR_Grouped"
	DescriptionMainBranch DescriptionKind = "MainBranch"
)

// Description records why a BldConfig exists: a plain branch request, a
// solo PR in one repo, a PR grouped across repos sharing a branch name, or
// the project's main branch.
type Description struct {
	Kind   DescriptionKind
	Repo   string // set for PR_Solo
	Branch string
}

// BldRepoRev is one repo's concrete ref within a BldConfig.
type BldRepoRev struct {
	RepoName string
	Ref      string
	// PRIdent is the pull-request identifier pinning this repo, or the
	// sentinel ProjectPrimaryRef when the repo tracks the project's own
	// primary ref rather than a specific PR.
	PRIdent string
}

// ProjectPrimaryRef is the sentinel BldRepoRev.PRIdent meaning "this repo's
// ref is not pinned by any particular pull request."
const ProjectPrimaryRef = "project_primary"

// VarAssignment pins one declared variable to one of its values.
type VarAssignment struct {
	Name  string
	Value string
}

// BldConfig is one concrete build configuration: a project, a branch
// selection, a resolution strategy, and one ref per participating repo,
// crossed with one assignment of every declared variable.
type BldConfig struct {
	ProjectName string
	BranchType  BranchType
	BranchName  string
	Strategy    Strategy
	Description Description
	Blds        []BldRepoRev
	BldVars     []VarAssignment
}

// Canonicalize returns a copy with Blds sorted by repo name and BldVars
// sorted by variable name, so two configs built from the same inputs in a
// different order compare equal and dedupe correctly by Key().
func (c BldConfig) Canonicalize() BldConfig {
	out := c
	out.Blds = append([]BldRepoRev(nil), c.Blds...)
	sort.Slice(out.Blds, func(i, j int) bool { return out.Blds[i].RepoName < out.Blds[j].RepoName })
	out.BldVars = append([]VarAssignment(nil), c.BldVars...)
	sort.Slice(out.BldVars, func(i, j int) bool { return out.BldVars[i].Name < out.BldVars[j].Name })
	return out
}

// Key returns a stable string uniquely identifying this BldConfig's
// structural value, used to deduplicate the BCGen output set (Go has no
// native support for sets of structs containing slices).
func (c BldConfig) Key() string {
	cc := c.Canonicalize()
	var b strings.Builder
	fmt.Fprintf(&b, "%s|%s|%s|%s|%s:%s:%s", cc.ProjectName, cc.BranchType, cc.BranchName,
		cc.Strategy, cc.Description.Kind, cc.Description.Repo, cc.Description.Branch)
	for _, r := range cc.Blds {
		fmt.Fprintf(&b, "|blds:%s=%s@%s", r.RepoName, r.Ref, r.PRIdent)
	}
	for _, v := range cc.BldVars {
		fmt.Fprintf(&b, "|var:%s=%s", v.Name, v.Value)
	}
	return b.String()
}

// SortBldConfigs returns cfgs canonicalized and sorted into a deterministic
// order (by Key), for stable snapshot output.
func SortBldConfigs(cfgs []BldConfig) []BldConfig {
	out := make([]BldConfig, len(cfgs))
	for i, c := range cfgs {
		out[i] = c.Canonicalize()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}
