package gitlabdialect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/xanzy/go-gitlab"

	"github.com/briareus-ci/briareus/internal/forge"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL, "acme/widget", "tok")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestGetBranchesPaginates(t *testing.T) {
	pages := [][]map[string]string{
		{{"name": "master"}},
		{{"name": "feature"}},
	}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		idx := 0
		if page == "2" {
			idx = 1
		}
		if idx == 0 {
			w.Header().Set("X-Next-Page", "2")
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(pages[idx])
	})

	branches, err := c.GetBranches(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(branches) != 2 || branches[0].Name != "master" || branches[1].Name != "feature" {
		t.Fatalf("unexpected branches: %+v", branches)
	}
}

func TestResolveSourceSameProject(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("no HTTP call expected for a same-project merge request, got %s", r.URL.Path)
	})
	mr := &gitlab.BasicMergeRequest{SourceProjectID: 101, TargetProjectID: 101}
	kind, url, name, err := c.resolveSource(context.Background(), mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != forge.SourceSameProject || url != "" || name != "" {
		t.Fatalf("expected a same-project resolution, got kind=%v url=%q name=%q", kind, url, name)
	}
}

func TestResolveSourceDifferentProjectFetchesPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v4/projects/202" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"web_url": "https://gitlab.example.com/other/repo", "path_with_namespace": "other/repo"}`)
	})
	mr := &gitlab.BasicMergeRequest{SourceProjectID: 101, TargetProjectID: 202}
	kind, url, name, err := c.resolveSource(context.Background(), mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != forge.SourceDifferentProject || url != "https://gitlab.example.com/other/repo" || name != "other/repo" {
		t.Fatalf("unexpected resolution: kind=%v url=%q name=%q", kind, url, name)
	}
}

func TestResolveSourceNotFoundIsUnresolved(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mr := &gitlab.BasicMergeRequest{SourceProjectID: 101, TargetProjectID: 303}
	kind, url, name, err := c.resolveSource(context.Background(), mr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != forge.SourceUnresolved || url != "" || name != "" {
		t.Fatalf("expected an unresolved source for a 404, got kind=%v url=%q name=%q", kind, url, name)
	}
}

func TestGetUserEmailReturnsEmptyWhenPrivate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id": 7, "public_email": ""}`)
	})
	email, err := c.GetUserEmail(context.Background(), "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "" {
		t.Fatalf("expected an empty email for a user with no public email, got %q", email)
	}
}

func TestGetUserEmailNotFoundIsEmptyNotError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	email, err := c.GetUserEmail(context.Background(), "9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != "" {
		t.Fatalf("expected an empty email, got %q", email)
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
