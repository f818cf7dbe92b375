package bcgen

import (
	"strings"
	"testing"

	"github.com/briareus-ci/briareus/internal/facts"
	"github.com/briareus-ci/briareus/internal/model"
)

func TestGenerateRegularBranchNoSubmodules(t *testing.T) {
	input := model.InputDesc{
		ProjectName: "proj",
		Repos: []model.RepoDesc{
			{Name: "r1", IsProjectRepo: true, MainBranch: "master"},
			{Name: "r2", MainBranch: "master"},
		},
		Branches: []model.BranchDesc{{Name: "master"}},
	}
	fb := []facts.Fact{
		facts.RepoFact{Name: "r1"},
		facts.RepoFact{Name: "r2"},
		facts.BranchReqFact{Project: "proj", Branch: "master"},
		facts.BranchFact{Repo: "r1", Branch: "master"},
		facts.BranchFact{Repo: "r2", Branch: "master"},
	}

	cfgs := Generate(fb, input)

	var names []string
	for _, c := range cfgs {
		names = append(names, ConfigName(c))
	}
	joined := strings.Join(names, ",")
	if !strings.Contains(joined, "master.regular") || !strings.Contains(joined, "master.HEADs") {
		t.Fatalf("expected regular and HEADs strategies without a submodule anchor, got %v", names)
	}
	if strings.Contains(joined, "submodules") || strings.Contains(joined, "standard") {
		t.Fatalf("did not expect submodules/standard strategies with no anchor, got %v", names)
	}
}

func TestGenerateSubmoduleAnchorAddsStrategies(t *testing.T) {
	input := model.InputDesc{
		ProjectName: "proj",
		Repos: []model.RepoDesc{
			{Name: "r1", IsProjectRepo: true, MainBranch: "master"},
			{Name: "r3", MainBranch: "master"},
		},
		Branches: []model.BranchDesc{{Name: "master"}},
	}
	fb := []facts.Fact{
		facts.RepoFact{Name: "r1"},
		facts.RepoFact{Name: "r3"},
		facts.BranchReqFact{Project: "proj", Branch: "master"},
		facts.BranchFact{Repo: "r1", Branch: "master"},
		facts.SubmoduleFact{ParentRepo: "r1", PRIdent: model.ProjectPrimary, Branch: "master", SubName: "r3", PinnedRev: "deadbeef"},
	}

	cfgs := Generate(fb, input)

	found := map[model.Strategy]bool{}
	for _, c := range cfgs {
		found[c.Strategy] = true
		if c.Strategy == model.StrategySubmodules {
			for _, b := range c.Blds {
				if b.RepoName == "r3" && b.Ref != "deadbeef" {
					t.Fatalf("expected r3 pinned to deadbeef under submodules strategy, got %q", b.Ref)
				}
			}
		}
	}
	for _, want := range []model.Strategy{model.StrategySubmodules, model.StrategyStandard, model.StrategyHEADs} {
		if !found[want] {
			t.Fatalf("expected strategy %s to be generated when an anchor exists, got %v", want, found)
		}
	}
}

func TestGenerateSuppressesUnanchoredBranchReq(t *testing.T) {
	input := model.InputDesc{
		ProjectName: "proj",
		Repos:       []model.RepoDesc{{Name: "r1", IsProjectRepo: true}},
		Branches:    []model.BranchDesc{{Name: "ghost"}},
	}
	fb := []facts.Fact{
		facts.RepoFact{Name: "r1"},
		facts.BranchReqFact{Project: "proj", Branch: "ghost"},
	}
	cfgs := Generate(fb, input)
	if len(cfgs) != 0 {
		t.Fatalf("expected no configs for a branch request with no anchor anywhere, got %+v", cfgs)
	}
}

func TestGeneratePRGroupingAcrossRepos(t *testing.T) {
	input := model.InputDesc{
		ProjectName: "proj",
		Repos: []model.RepoDesc{
			{Name: "r1", IsProjectRepo: true, MainBranch: "master"},
			{Name: "r2", MainBranch: "master"},
		},
	}
	fb := []facts.Fact{
		facts.RepoFact{Name: "r1"},
		facts.RepoFact{Name: "r2"},
		facts.PullReqFact{Repo: "r1", Ident: "10", Branch: "feature"},
		facts.PullReqFact{Repo: "r2", Ident: "11", Branch: "feature"},
	}
	cfgs := Generate(fb, input)
	var grouped *model.BldConfig
	for i := range cfgs {
		if cfgs[i].Description.Kind == model.DescriptionPRGrouped {
			grouped = &cfgs[i]
			break
		}
	}
	if grouped == nil {
		t.Fatalf("expected a PR_Grouped config for a branch shared by two repos, got %+v", cfgs)
	}
	for _, b := range grouped.Blds {
		switch b.RepoName {
		case "r1":
			if b.PRIdent != "10" {
				t.Fatalf("expected r1 pinned to PR 10, got %q", b.PRIdent)
			}
		case "r2":
			if b.PRIdent != "11" {
				t.Fatalf("expected r2 pinned to PR 11, got %q", b.PRIdent)
			}
		}
	}
}

func TestVarCombinationsCartesianProduct(t *testing.T) {
	vars := []model.VariableDesc{
		{Name: "os", Values: []string{"linux", "darwin"}},
		{Name: "ghc", Values: []string{"8.10", "9.2"}},
	}
	combos := varCombinations(vars)
	if len(combos) != 4 {
		t.Fatalf("expected 4 combinations, got %d: %+v", len(combos), combos)
	}
}

func TestConfigNamePrefixesPRIdent(t *testing.T) {
	c := model.BldConfig{
		BranchName: "feature",
		Strategy:   model.StrategyRegular,
		Description: model.Description{
			Kind: model.DescriptionPRSolo, Repo: "r1", Branch: "feature",
		},
		Blds: []model.BldRepoRev{{RepoName: "r1", Ref: "feature", PRIdent: "42"}},
	}
	if name := ConfigName(c); name != "42-feature.regular" {
		t.Fatalf("expected '42-feature.regular', got %q", name)
	}
}
