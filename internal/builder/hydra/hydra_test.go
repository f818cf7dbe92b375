package hydra

import (
	"encoding/json"
	"testing"

	"github.com/briareus-ci/briareus/internal/model"
)

func testInput() model.InputDesc {
	return model.InputDesc{
		ProjectName: "proj",
		Repos: []model.RepoDesc{
			{Name: "r1", URL: "https://example.com/r1.git", IsProjectRepo: true, MainBranch: "master"},
			{Name: "r2", URL: "https://example.com/r2.git", MainBranch: "master"},
		},
	}
}

func testConfig() model.BldConfig {
	return model.BldConfig{
		ProjectName: "proj",
		BranchType:  model.BranchTypeRegular,
		BranchName:  "master",
		Strategy:    model.StrategyRegular,
		Description: model.Description{Kind: model.DescriptionBranchReq, Branch: "master"},
		Blds: []model.BldRepoRev{
			{RepoName: "r1", Ref: "master", PRIdent: model.ProjectPrimaryRef},
			{RepoName: "r2", Ref: "master", PRIdent: model.ProjectPrimaryRef},
		},
		BldVars: []model.VarAssignment{{Name: "os", Value: "linux"}},
	}
}

func TestJobsetsBuildsGitInputsPerRepo(t *testing.T) {
	input := testInput()
	cfgs := []model.BldConfig{testConfig()}
	jobsets := Jobsets(input, cfgs, nil)

	if len(jobsets) != 1 {
		t.Fatalf("expected exactly one jobset, got %d", len(jobsets))
	}
	for _, js := range jobsets {
		r1, ok := js.Inputs["r1-src"]
		if !ok || r1.Type != "git" || r1.Value != "https://example.com/r1.git master" {
			t.Fatalf("unexpected r1-src input: %+v", r1)
		}
		if _, ok := js.Inputs["variant"]; !ok {
			t.Fatalf("expected a variant input")
		}
		if v, ok := js.Inputs["os"]; !ok || v.Value != "linux" {
			t.Fatalf("expected os variable input to carry through, got %+v", v)
		}
		if js.NixExprInput != "r1-src" {
			t.Fatalf("expected NixExprInput to point at the project repo's input, got %q", js.NixExprInput)
		}
	}
}

func TestApplyOverridesMergesFieldsThenInputsLast(t *testing.T) {
	input := testInput()
	cfgs := []model.BldConfig{testConfig()}
	overrides := &Overrides{Jobset: map[string]json.RawMessage{
		"keepnr": json.RawMessage(`7`),
		"inputs": json.RawMessage(`{"extra":{"type":"string","value":"injected"}}`),
	}}

	jobsets := Jobsets(input, cfgs, overrides)
	for _, js := range jobsets {
		if js.KeepNR != 7 {
			t.Fatalf("expected keepnr override to apply, got %d", js.KeepNR)
		}
		if js.Inputs["extra"].Value != "injected" {
			t.Fatalf("expected override input to merge in, got %+v", js.Inputs["extra"])
		}
		if _, ok := js.Inputs["r1-src"]; !ok {
			t.Fatalf("expected the base git inputs to survive an inputs override, got %+v", js.Inputs)
		}
	}
}

func TestSortedNamesIsDeterministic(t *testing.T) {
	jobsets := map[string]Jobset{"b.regular": {}, "a.regular": {}}
	names := SortedNames(jobsets)
	if len(names) != 2 || names[0] != "a.regular" || names[1] != "b.regular" {
		t.Fatalf("expected sorted names, got %v", names)
	}
}
