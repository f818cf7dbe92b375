package githubdialect

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/briareus-ci/briareus/internal/forge"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(context.Background(), srv.URL, "acme", "widget", "")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetBranchesPaginates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "/branches") {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `[{"name": "feature"}]`)
			return
		}
		w.Header().Set("Link", fmt.Sprintf(`<%s?page=2>; rel="next"`, r.URL.Path))
		fmt.Fprint(w, `[{"name": "master"}]`)
	})

	branches, err := c.GetBranches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(branches) != 2 || branches[0].Name != "master" || branches[1].Name != "feature" {
		t.Fatalf("unexpected branches: %+v", branches)
	}
}

func TestGetPullRequestsSkipsMergedAndResolvesSourceURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/pulls"):
			fmt.Fprint(w, `[
				{"number": 1, "title": "open one", "state": "open", "head": {"ref": "feature", "repo": {"html_url": "https://example.com/acme/widget"}}, "user": {"login": "alice"}},
				{"number": 2, "title": "already merged", "state": "open", "merged_at": "2024-01-01T00:00:00Z", "head": {"ref": "old"}, "user": {"login": "bob"}}
			]`)
		case strings.Contains(r.URL.Path, "/users/alice"):
			fmt.Fprint(w, `{"login": "alice", "email": "alice@example.com"}`)
		default:
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
	})

	prs, err := c.GetPullRequests(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(prs) != 1 {
		t.Fatalf("expected the merged pull request to be skipped, got %+v", prs)
	}
	pr := prs[0]
	if pr.Ident != "1" || pr.Branch != "feature" || pr.Email != "alice@example.com" {
		t.Fatalf("unexpected pull request: %+v", pr)
	}
	if pr.SourceURL != "https://example.com/acme/widget" || pr.SourceKind != forge.SourceConcrete {
		t.Fatalf("unexpected source resolution: %+v", pr)
	}
}

func TestGetUserEmailNotFoundIsEmptyNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	email, err := c.GetUserEmail(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "" {
		t.Fatalf("expected an empty email for a missing user, got %q", email)
	}
}

func TestGetFileNotFoundReturnsFalse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	data, ok, err := c.GetFile(context.Background(), ".gitmodules", "deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || data != nil {
		t.Fatalf("expected a (nil, false) result for a missing file, got (%v, %v)", data, ok)
	}
}

func TestGetFileDecodesBase64Content(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type": "file", "encoding": "base64", "content": "aGVsbG8=", "sha": "abc123"}`)
	})
	data, ok, err := c.GetFile(context.Background(), "README.md", "master")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || string(data) != "hello" {
		t.Fatalf("expected decoded content %q, got %q (ok=%v)", "hello", data, ok)
	}
}

func TestGetSubmoduleInfoIgnoresNonSubmoduleEntries(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type": "file", "sha": "abc123"}`)
	})
	entry, ok, err := c.GetSubmoduleInfo(context.Background(), "vendor/libfoo", "master")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatalf("expected a non-submodule content entry to be ignored, got %+v", entry)
	}
}

func TestGetSubmoduleInfoResolvesPinAndURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"type": "submodule", "sha": "deadbeef", "submodule_git_url": "https://example.com/acme/libfoo"}`)
	})
	entry, ok, err := c.GetSubmoduleInfo(context.Background(), "vendor/libfoo", "master")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || entry.PinnedRevision != "deadbeef" || entry.URL != "https://example.com/acme/libfoo" {
		t.Fatalf("unexpected submodule entry: %+v", entry)
	}
}
