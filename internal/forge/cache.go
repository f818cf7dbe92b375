// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package forge

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/briareus-ci/briareus/internal/forge/ratelimit"
)

// LocalCachePeriod is how long a cached response is reused without even a
// conditional revalidation request.
const LocalCachePeriod = 95 * time.Second

type cacheEntry struct {
	status       int
	header       http.Header
	body         []byte
	fetchedAt    time.Time
	etag         string
	lastModified string
}

// CachingTransport wraps an http.RoundTripper with a per-URL response
// cache that performs conditional GETs once LocalCachePeriod has elapsed:
// a cache hit inside the period never touches the network; afterward a
// validator-bearing revalidation request is sent, and a 304 refreshes the
// cache timestamp and refunds the request's rate-limit budget via Limiter
// (Next is expected to be a ratelimit.Transport, which already spent that
// budget before the request reached the network).
type CachingTransport struct {
	Next http.RoundTripper

	// Limiter, if set, has NoteCacheHit called on every 304 revalidation so
	// the budget slot consumed by Limiter.Wait() for that request is
	// refunded — a 304 does not count against the forge's real rate limit.
	Limiter *ratelimit.Limiter

	mu      sync.Mutex
	entries map[string]*cacheEntry

	// now is overridable for tests; defaults to time.Now.
	now func() time.Time
}

// NewCachingTransport wraps next (or http.DefaultTransport if nil).
func NewCachingTransport(next http.RoundTripper) *CachingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &CachingTransport{Next: next, entries: make(map[string]*cacheEntry), now: time.Now}
}

type allowNotFoundKey struct{}

// AllowNotFound marks ctx so a 404 response is cached as a sentinel instead
// of being surfaced as a transport-level error; used for .gitmodules and
// submodule-file probes.
func AllowNotFound(ctx context.Context) context.Context {
	return context.WithValue(ctx, allowNotFoundKey{}, true)
}

func notFoundAllowed(ctx context.Context) bool {
	v, _ := ctx.Value(allowNotFoundKey{}).(bool)
	return v
}

// RoundTrip implements http.RoundTripper.
func (c *CachingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.Next.RoundTrip(req)
	}

	key := req.URL.String()
	now := c.now()

	c.mu.Lock()
	entry := c.entries[key]
	c.mu.Unlock()

	if entry != nil && now.Sub(entry.fetchedAt) < LocalCachePeriod {
		return c.synthesize(entry), nil
	}

	revalidate := req.Clone(req.Context())
	if entry != nil {
		if entry.etag != "" {
			revalidate.Header.Set("If-None-Match", entry.etag)
		} else if entry.lastModified != "" {
			revalidate.Header.Set("If-Modified-Since", entry.lastModified)
		}
	}

	resp, err := c.Next.RoundTrip(revalidate)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusNotModified && entry != nil:
		entry.fetchedAt = now
		resp.Body.Close()
		if c.Limiter != nil {
			c.Limiter.NoteCacheHit()
		}
		return c.synthesize(entry), nil

	case resp.StatusCode == http.StatusOK:
		body, rerr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if rerr != nil {
			return nil, rerr
		}
		newEntry := &cacheEntry{
			status:       resp.StatusCode,
			header:       resp.Header.Clone(),
			body:         body,
			fetchedAt:    now,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		}
		c.mu.Lock()
		c.entries[key] = newEntry
		c.mu.Unlock()
		return c.synthesize(newEntry), nil

	case resp.StatusCode == http.StatusNotFound && notFoundAllowed(req.Context()):
		resp.Body.Close()
		newEntry := &cacheEntry{status: http.StatusNotFound, header: resp.Header.Clone(), fetchedAt: now}
		c.mu.Lock()
		c.entries[key] = newEntry
		c.mu.Unlock()
		return c.synthesize(newEntry), nil

	default:
		return resp, nil
	}
}

func (c *CachingTransport) synthesize(e *cacheEntry) *http.Response {
	return &http.Response{
		StatusCode:    e.status,
		Status:        http.StatusText(e.status),
		Header:        e.header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.body)),
		ContentLength: int64(len(e.body)),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
	}
}
