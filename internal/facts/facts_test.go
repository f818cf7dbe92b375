package facts

import (
	"strings"
	"testing"

	"github.com/briareus-ci/briareus/internal/gatherer"
	"github.com/briareus-ci/briareus/internal/model"
)

func TestBuildMasksBranchWhenPullReqExists(t *testing.T) {
	input := model.InputDesc{
		ProjectName: "proj",
		Repos:       []model.RepoDesc{{Name: "r1", IsProjectRepo: true}},
	}
	gathered := gatherer.GatheredInfo{
		PullReqs: []model.PRInfo{{TargetRepo: "r1", Ident: "42", Branch: "feature", User: "alice", Email: "alice@example.com"}},
		Branches: map[string][]string{"r1": {"master", "feature"}},
	}

	fb := Build(gathered, input)
	rendered := Render(fb)

	if !strings.Contains(rendered, `branch("r1","master").`) {
		t.Fatalf("expected master branch fact, got:\n%s", rendered)
	}
	if strings.Contains(rendered, `branch("r1","feature").`) {
		t.Fatalf("expected feature branch fact to be masked by the pull request, got:\n%s", rendered)
	}
	if !strings.Contains(rendered, `pullreq("r1","42","feature","alice","alice@example.com").`) {
		t.Fatalf("expected pullreq fact with user/email, got:\n%s", rendered)
	}
}

func TestBuildOmitsUserEmailWhenUnknown(t *testing.T) {
	gathered := gatherer.GatheredInfo{
		PullReqs: []model.PRInfo{{TargetRepo: "r1", Ident: "7", Branch: "feature"}},
	}
	fb := Build(gathered, model.InputDesc{Repos: []model.RepoDesc{{Name: "r1"}}})
	rendered := Render(fb)
	if !strings.Contains(rendered, `pullreq("r1","7","feature").`) {
		t.Fatalf("expected 3-arity pullreq fact, got:\n%s", rendered)
	}
}

func TestBuildRendersProjectPrimaryAsAtom(t *testing.T) {
	gathered := gatherer.GatheredInfo{
		Submodules: []model.SubModuleInfo{{
			ContainingRepo: "r1",
			PullReqIdent:   model.ProjectPrimary,
			Branch:         "master",
			SubmoduleName:  "r3",
			PinnedRevision: "deadbeef",
		}},
	}
	fb := Build(gathered, model.InputDesc{Repos: []model.RepoDesc{{Name: "r1"}}})
	rendered := Render(fb)
	if !strings.Contains(rendered, `submodule("r1",project_primary,"master","r3","deadbeef").`) {
		t.Fatalf("expected unquoted project_primary atom, got:\n%s", rendered)
	}
}

func TestBuildOutputIsSorted(t *testing.T) {
	gathered := gatherer.GatheredInfo{Branches: map[string][]string{"r1": {"zzz", "aaa"}}}
	fb := Build(gathered, model.InputDesc{Repos: []model.RepoDesc{{Name: "r1"}}})
	for i := 1; i < len(fb); i++ {
		if fb[i-1].String() > fb[i].String() {
			t.Fatalf("facts not sorted: %q came before %q", fb[i-1].String(), fb[i].String())
		}
	}
}
