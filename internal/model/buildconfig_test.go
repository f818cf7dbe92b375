package model

import "testing"

func TestBldConfigKeyIgnoresOrder(t *testing.T) {
	a := BldConfig{
		ProjectName: "proj",
		BranchType:  BranchTypeRegular,
		BranchName:  "master",
		Strategy:    StrategyRegular,
		Blds: []BldRepoRev{
			{RepoName: "r2", Ref: "master", PRIdent: ProjectPrimaryRef},
			{RepoName: "r1", Ref: "master", PRIdent: ProjectPrimaryRef},
		},
		BldVars: []VarAssignment{
			{Name: "ghc", Value: "8.10"},
			{Name: "os", Value: "linux"},
		},
	}
	b := BldConfig{
		ProjectName: "proj",
		BranchType:  BranchTypeRegular,
		BranchName:  "master",
		Strategy:    StrategyRegular,
		Blds: []BldRepoRev{
			{RepoName: "r1", Ref: "master", PRIdent: ProjectPrimaryRef},
			{RepoName: "r2", Ref: "master", PRIdent: ProjectPrimaryRef},
		},
		BldVars: []VarAssignment{
			{Name: "os", Value: "linux"},
			{Name: "ghc", Value: "8.10"},
		},
	}
	if a.Key() != b.Key() {
		t.Fatalf("expected equal keys regardless of slice order, got %q vs %q", a.Key(), b.Key())
	}
}

func TestBldConfigKeyDistinguishesDifferentRefs(t *testing.T) {
	base := BldConfig{
		ProjectName: "proj",
		BranchName:  "master",
		Blds:        []BldRepoRev{{RepoName: "r1", Ref: "master"}},
	}
	other := base
	other.Blds = []BldRepoRev{{RepoName: "r1", Ref: "feature"}}
	if base.Key() == other.Key() {
		t.Fatalf("expected different keys for different refs")
	}
}

func TestSortBldConfigsDeterministic(t *testing.T) {
	cfgs := []BldConfig{
		{ProjectName: "p", BranchName: "b"},
		{ProjectName: "p", BranchName: "a"},
	}
	out := SortBldConfigs(cfgs)
	if len(out) != 2 || out[0].BranchName != "a" || out[1].BranchName != "b" {
		t.Fatalf("expected sorted by key, got %+v", out)
	}
}

func TestCanonicalizeDoesNotMutateInput(t *testing.T) {
	c := BldConfig{
		Blds: []BldRepoRev{{RepoName: "z"}, {RepoName: "a"}},
	}
	_ = c.Canonicalize()
	if c.Blds[0].RepoName != "z" {
		t.Fatalf("Canonicalize must not mutate the receiver's slices")
	}
}
