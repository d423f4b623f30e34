// Copyright 2025 Agentic World, LLC (Sherin Thomas)
//
// This file includes modifications to code originally developed by Adam Tauber,
// licensed under the Apache License, Version 2.0.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package waymirror

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gobwas/glob"
)

// LimitRule throttles requests to matching domains. Both DomainRegexp and
// DomainGlob can be used to specify the domain patterns, but at least one is
// required.
type LimitRule struct {
	// DomainRegexp is a regular expression to match against domains
	DomainRegexp string
	// DomainGlob is a glob pattern to match against domains
	DomainGlob string
	// Delay is the duration to wait before the next request to a matching domain
	Delay time.Duration
	// RandomDelay is an extra randomized duration added to Delay
	RandomDelay time.Duration

	compiledRegexp *regexp.Regexp
	compiledGlob   glob.Glob
}

// Init compiles the rule's patterns.
func (r *LimitRule) Init() error {
	hasPattern := false
	if r.DomainRegexp != "" {
		c, err := regexp.Compile(r.DomainRegexp)
		if err != nil {
			return err
		}
		r.compiledRegexp = c
		hasPattern = true
	}
	if r.DomainGlob != "" {
		c, err := glob.Compile(r.DomainGlob)
		if err != nil {
			return err
		}
		r.compiledGlob = c
		hasPattern = true
	}
	if !hasPattern {
		return ErrNoPattern
	}
	return nil
}

// Match checks that the domain parameter triggers the rule.
func (r *LimitRule) Match(domain string) bool {
	if r.compiledRegexp != nil && r.compiledRegexp.MatchString(domain) {
		return true
	}
	return r.compiledGlob != nil && r.compiledGlob.Match(domain)
}

// HTTPBackend fetches wrapper URLs from the archive. Responses are decoded
// (gzip or brotli) and failures are mapped to the sentinel errors the crawl
// loop dispatches on: a 404 means no capture exists at that timestamp, while
// timeouts, connection errors, 429 and 5xx are transient.
type HTTPBackend struct {
	Client     *http.Client
	LimitRules []*LimitRule
	userAgent  string
}

// NewHTTPBackend builds a backend from the run policy, with a limit rule
// covering the archive host so the crawl stays polite.
func NewHTTPBackend(policy *Policy) *HTTPBackend {
	rules := []*LimitRule{{
		DomainGlob:  "*archive.org*",
		Delay:       policy.FetchDelay,
		RandomDelay: policy.FetchDelay / 2,
	}}
	for _, r := range rules {
		// the glob is a constant, Init cannot fail
		_ = r.Init()
	}
	return &HTTPBackend{
		Client: &http.Client{
			Timeout: policy.FetchTimeout,
		},
		LimitRules: rules,
		userAgent:  policy.UserAgent,
	}
}

func (h *HTTPBackend) matchingRule(domain string) *LimitRule {
	for _, r := range h.LimitRules {
		if r.Match(domain) {
			return r
		}
	}
	return nil
}

// Fetch retrieves one wrapper URL and returns the decoded payload.
func (h *HTTPBackend) Fetch(ctx context.Context, wrapperURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wrapperURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %w", wrapperURL, err)
	}
	req.Header.Set("User-Agent", h.userAgent)
	req.Header.Set("Accept-Encoding", "gzip, br")

	if r := h.matchingRule(req.URL.Host); r != nil && r.Delay > 0 {
		delay := r.Delay
		if r.RandomDelay > 0 {
			delay += time.Duration(rand.Int63n(int64(r.RandomDelay)))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		if isTransportTransient(err) {
			return nil, fmt.Errorf("fetch %q: %v: %w", wrapperURL, err, ErrFetchTransient)
		}
		return nil, fmt.Errorf("fetch %q: %w", wrapperURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("fetch %q: %w", wrapperURL, ErrSnapshotNotFound)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("fetch %q: status %d: %w", wrapperURL, resp.StatusCode, ErrFetchTransient)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("fetch %q: status %d: %w", wrapperURL, resp.StatusCode, ErrSnapshotNotFound)
	}

	body, err := decodeBody(resp)
	if err != nil {
		return nil, fmt.Errorf("fetch %q: %v: %w", wrapperURL, err, ErrFetchTransient)
	}
	return &FetchResult{
		Body:       body,
		Header:     resp.Header,
		StatusCode: resp.StatusCode,
	}, nil
}

func decodeBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(resp.Header.Get("Content-Encoding")) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	}
	return io.ReadAll(reader)
}

func isTransportTransient(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "connection refused") ||
		strings.Contains(s, "connection reset") ||
		strings.Contains(s, "EOF")
}
