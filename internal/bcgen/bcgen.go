// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

// Package bcgen is the Build-Configuration Generator: a hand-coded rule
// engine evaluating a fixed rule set over the fact base to produce the
// BldConfig matrix.
package bcgen

import (
	"fmt"
	"sort"

	"github.com/briareus-ci/briareus/internal/facts"
	"github.com/briareus-ci/briareus/internal/model"
)

const unknownRemoteRef = "unknownRemoteRefForPullReq"

// product is one base build product before strategy/variable expansion: a
// regular branch request, a solo PR, or a PR group sharing a branch name.
type product struct {
	kind      model.DescriptionKind
	branch    string
	soloRepo  string
	prByRepo  map[string]string // repo -> pr ident, for PR-kind products
}

type prFact struct {
	Repo, Ident, Branch string
}

type factIndex struct {
	projectName  string
	repos        []string // every known repo, sorted
	projectRepo  string
	mainBranch   map[string]string // repo -> RepoDesc.Main() of the input repo with that name
	branchSet    map[string]map[string]bool // repo -> branch -> observed (includes PR branches)
	branchReqs   []string
	pullreqs     []prFact
	submodulePin map[string]map[string]string // "repo|prIdentOrProjectPrimary|branch" key component handled via submoduleKey -> subname -> rev
	hasAnchor    map[string]bool              // "repo|branch" -> true when a project_primary submodule fact exists
}

func submoduleKey(parent, prIdent, branch string) string {
	return parent + "\x00" + prIdent + "\x00" + branch
}

func buildIndex(fb []facts.Fact, input model.InputDesc) *factIndex {
	idx := &factIndex{
		projectName:  input.ProjectName,
		mainBranch:   make(map[string]string),
		branchSet:    make(map[string]map[string]bool),
		submodulePin: make(map[string]map[string]string),
		hasAnchor:    make(map[string]bool),
	}
	repoSet := make(map[string]bool)

	ensureBranchMap := func(repo string) map[string]bool {
		if idx.branchSet[repo] == nil {
			idx.branchSet[repo] = make(map[string]bool)
		}
		return idx.branchSet[repo]
	}

	for _, f := range fb {
		switch v := f.(type) {
		case facts.RepoFact:
			repoSet[v.Name] = true
		case facts.SubrepoFact:
			repoSet[v.Name] = true
		case facts.BranchFact:
			ensureBranchMap(v.Repo)[v.Branch] = true
		case facts.PullReqFact:
			ensureBranchMap(v.Repo)[v.Branch] = true
			idx.pullreqs = append(idx.pullreqs, prFact{Repo: v.Repo, Ident: v.Ident, Branch: v.Branch})
		case facts.BranchReqFact:
			idx.branchReqs = append(idx.branchReqs, v.Branch)
		case facts.SubmoduleFact:
			key := submoduleKey(v.ParentRepo, v.PRIdent, v.Branch)
			if idx.submodulePin[key] == nil {
				idx.submodulePin[key] = make(map[string]string)
			}
			idx.submodulePin[key][v.SubName] = v.PinnedRev
			if v.PRIdent == model.ProjectPrimary {
				idx.hasAnchor[v.ParentRepo+"\x00"+v.Branch] = true
			}
		}
	}

	if proj, ok := input.ProjectRepo(); ok {
		idx.projectRepo = proj.Name
		idx.mainBranch[proj.Name] = proj.Main()
	}
	for _, r := range input.Repos {
		idx.mainBranch[r.Name] = r.Main()
	}

	for name := range repoSet {
		idx.repos = append(idx.repos, name)
	}
	sort.Strings(idx.repos)
	return idx
}

// baseProducts builds one product per observed branchreq, plus one per
// distinct PR branch name, grouped when ≥2 repos share it.
func (idx *factIndex) baseProducts() []product {
	var out []product
	for _, b := range idx.branchReqs {
		out = append(out, product{kind: model.DescriptionBranchReq, branch: b})
	}

	byBranch := make(map[string]map[string]string) // branch -> repo -> ident
	for _, pr := range idx.pullreqs {
		if byBranch[pr.Branch] == nil {
			byBranch[pr.Branch] = make(map[string]string)
		}
		byBranch[pr.Branch][pr.Repo] = pr.Ident
	}
	var branches []string
	for b := range byBranch {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	for _, b := range branches {
		repos := byBranch[b]
		if len(repos) >= 2 {
			out = append(out, product{kind: model.DescriptionPRGrouped, branch: b, prByRepo: repos})
			continue
		}
		for repo := range repos {
			out = append(out, product{kind: model.DescriptionPRSolo, branch: b, soloRepo: repo, prByRepo: repos})
		}
	}
	return out
}

// strategiesFor selects submodules/standard only when the project repo has
// a submodule anchor at this product's branch; HEADs is always included.
func (idx *factIndex) strategiesFor(p product) []model.Strategy {
	anchorKey := idx.projectRepo + "\x00" + p.branch
	if idx.hasAnchor[anchorKey] {
		return []model.Strategy{model.StrategySubmodules, model.StrategyStandard, model.StrategyHEADs}
	}
	return []model.Strategy{model.StrategyRegular, model.StrategyHEADs}
}

// resolveRepoRef resolves the cartesian-product repo-ref for one repo
// within one (product, strategy) pair.
func (idx *factIndex) resolveRepoRef(repo string, p product, strategy model.Strategy) model.BldRepoRev {
	if ident, ok := p.prByRepo[repo]; ok {
		return model.BldRepoRev{RepoName: repo, Ref: p.branch, PRIdent: ident}
	}

	main := idx.mainBranch[repo]
	if main == "" {
		main = "master"
	}

	switch strategy {
	case model.StrategyHEADs:
		if idx.branchSet[repo][p.branch] {
			return model.BldRepoRev{RepoName: repo, Ref: p.branch, PRIdent: model.ProjectPrimaryRef}
		}
		return model.BldRepoRev{RepoName: repo, Ref: main, PRIdent: model.ProjectPrimaryRef}

	case model.StrategySubmodules:
		if repo == idx.projectRepo {
			if idx.branchSet[repo][p.branch] {
				return model.BldRepoRev{RepoName: repo, Ref: p.branch, PRIdent: model.ProjectPrimaryRef}
			}
			return model.BldRepoRev{RepoName: repo, Ref: main, PRIdent: model.ProjectPrimaryRef}
		}
		key := submoduleKey(idx.projectRepo, model.ProjectPrimary, p.branch)
		if pin, ok := idx.submodulePin[key][repo]; ok {
			return model.BldRepoRev{RepoName: repo, Ref: pin, PRIdent: model.ProjectPrimaryRef}
		}
		return model.BldRepoRev{RepoName: repo, Ref: unknownRemoteRef, PRIdent: model.ProjectPrimaryRef}

	default: // StrategyRegular, StrategyStandard
		if idx.branchSet[repo][p.branch] {
			return model.BldRepoRev{RepoName: repo, Ref: p.branch, PRIdent: model.ProjectPrimaryRef}
		}
		key := submoduleKey(idx.projectRepo, model.ProjectPrimary, p.branch)
		if pin, ok := idx.submodulePin[key][repo]; ok {
			return model.BldRepoRev{RepoName: repo, Ref: pin, PRIdent: model.ProjectPrimaryRef}
		}
		return model.BldRepoRev{RepoName: repo, Ref: main, PRIdent: model.ProjectPrimaryRef}
	}
}

// anchored reports whether a regular-branchreq product has somewhere to
// pin its branch; an unanchored branchreq is suppressed entirely.
func (idx *factIndex) anchored(p product) bool {
	if p.kind != model.DescriptionBranchReq {
		return true
	}
	if idx.branchSet[idx.projectRepo][p.branch] {
		return true
	}
	return idx.hasAnchor[idx.projectRepo+"\x00"+p.branch]
}

func description(p product) model.Description {
	switch p.kind {
	case model.DescriptionPRSolo:
		return model.Description{Kind: model.DescriptionPRSolo, Repo: p.soloRepo, Branch: p.branch}
	case model.DescriptionPRGrouped:
		return model.Description{Kind: model.DescriptionPRGrouped, Branch: p.branch}
	default:
		return model.Description{Kind: model.DescriptionBranchReq, Branch: p.branch}
	}
}

func branchType(p product) model.BranchType {
	if p.kind == model.DescriptionBranchReq {
		return model.BranchTypeRegular
	}
	return model.BranchTypePullReq
}

// varCombinations returns the Cartesian product of every declared
// variable's values, in declaration order, as assignment slices.
func varCombinations(vars []model.VariableDesc) [][]model.VarAssignment {
	combos := [][]model.VarAssignment{{}}
	for _, v := range vars {
		var next [][]model.VarAssignment
		for _, combo := range combos {
			for _, val := range v.Values {
				extended := append(append([]model.VarAssignment(nil), combo...), model.VarAssignment{Name: v.Name, Value: val})
				next = append(next, extended)
			}
		}
		combos = next
	}
	if len(vars) == 0 {
		return combos
	}
	return combos
}

// Generate produces the full, deduplicated, deterministically ordered
// BldConfig set for one project.
func Generate(fb []facts.Fact, input model.InputDesc) []model.BldConfig {
	idx := buildIndex(fb, input)
	seen := make(map[string]model.BldConfig)

	for _, p := range idx.baseProducts() {
		if !idx.anchored(p) {
			continue
		}
		for _, strategy := range idx.strategiesFor(p) {
			blds := make([]model.BldRepoRev, 0, len(idx.repos))
			for _, repo := range idx.repos {
				blds = append(blds, idx.resolveRepoRef(repo, p, strategy))
			}
			for _, vars := range varCombinations(input.Variables) {
				cfg := model.BldConfig{
					ProjectName: idx.projectName,
					BranchType:  branchType(p),
					BranchName:  p.branch,
					Strategy:    strategy,
					Description: description(p),
					Blds:        blds,
					BldVars:     vars,
				}.Canonicalize()
				seen[cfg.Key()] = cfg
			}
		}
	}

	out := make([]model.BldConfig, 0, len(seen))
	for _, cfg := range seen {
		out = append(out, cfg)
	}
	return model.SortBldConfigs(out)
}

// ConfigName computes the canonical jobset/build name shared with the
// Builder Adapter and AnaRep's result correlation: [PRid-]branch.strategy
// [-var1-var2…].
func ConfigName(c model.BldConfig) string {
	name := ""
	if c.Description.Kind == model.DescriptionPRSolo || c.Description.Kind == model.DescriptionPRGrouped {
		for _, b := range c.Blds {
			if b.PRIdent != model.ProjectPrimaryRef {
				name = b.PRIdent + "-"
				break
			}
		}
	}
	name += fmt.Sprintf("%s.%s", c.BranchName, c.Strategy)
	for _, v := range c.BldVars {
		name += "-" + v.Value
	}
	return name
}
