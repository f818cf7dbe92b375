// Copyright (c) 2025 Archmagece
// SPDX-License-Identifier: MIT

package ratelimit

import "net/http"

// Transport wraps an http.RoundTripper, waiting on a Limiter before every
// live network request and updating the Limiter's budget from the
// response headers afterward. It is chained underneath the response
// cache so cache hits (which synthesize a response without calling
// RoundTrip) never touch it.
type Transport struct {
	Next    http.RoundTripper
	Limiter *Limiter
}

// NewTransport wraps next (http.DefaultTransport if nil) with limiter.
func NewTransport(next http.RoundTripper, limiter *Limiter) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Transport{Next: next, Limiter: limiter}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, err
	}
	resp, err := t.Next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	t.Limiter.UpdateFromHeaders(resp)
	return resp, nil
}
