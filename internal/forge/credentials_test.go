package forge

import "testing"

func TestParseCredentials(t *testing.T) {
	creds := ParseCredentials("github.com=alice:tok123;gitlab.example.com=tok456")
	if got, ok := creds.For("github.com", "api.github.com"); !ok || got != "alice:tok123" {
		t.Fatalf("expected github.com credential, got %q ok=%v", got, ok)
	}
	if got, ok := creds.For("gitlab.example.com", "gitlab.example.com"); !ok || got != "tok456" {
		t.Fatalf("expected gitlab credential, got %q ok=%v", got, ok)
	}
}

func TestParseCredentialsEmpty(t *testing.T) {
	creds := ParseCredentials("")
	if len(creds) != 0 {
		t.Fatalf("expected empty credentials table, got %+v", creds)
	}
	if _, ok := creds.For("github.com", "api.github.com"); ok {
		t.Fatalf("expected no credential for unauthenticated access")
	}
}

func TestCredentialsForPrefersOriginalHost(t *testing.T) {
	creds := Credentials{
		"gitlab.corp.internal": "original-token",
		"gitlab.corp.example":  "translated-token",
	}
	got, ok := creds.For("gitlab.corp.internal", "gitlab.corp.example")
	if !ok || got != "original-token" {
		t.Fatalf("expected original-host lookup to win, got %q ok=%v", got, ok)
	}
}

func TestSplitGitHubTokenspec(t *testing.T) {
	user, token, ok := SplitGitHubTokenspec("alice:deadbeef")
	if !ok || user != "alice" || token != "deadbeef" {
		t.Fatalf("unexpected split: %q %q %v", user, token, ok)
	}
}
