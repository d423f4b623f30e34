// Copyright 2025 Agentic World, LLC (Sherin Thomas)
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

// Package testutil provides shared test utilities for waymirror tests,
// chiefly an HTTP test server that answers like the archive's replay
// endpoint: /web/<timestamp><tag>/<original-url>.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
)

var wrapperPathRe = regexp.MustCompile(`^/web/(\d{14})(?:[a-z]{2}_)?/(.+)$`)

// Capture is one stored snapshot of an original URL at a timestamp.
type Capture struct {
	Timestamp   string // 14-digit capture timestamp
	ContentType string
	Body        string
}

// ArchiveServer is a fake replay endpoint. Captures are keyed by original
// URL; a request for an exact timestamp match is served, anything else gets
// a 404 exactly like a missing capture. Requests are counted per wrapper
// path so tests can assert fetch behavior.
type ArchiveServer struct {
	mu       sync.Mutex
	captures map[string][]Capture
	hits     map[string]int
	srv      *httptest.Server
}

// NewArchiveServer starts a fake archive on a local listener.
func NewArchiveServer() *ArchiveServer {
	a := &ArchiveServer{
		captures: make(map[string][]Capture),
		hits:     make(map[string]int),
	}
	a.srv = httptest.NewServer(http.HandlerFunc(a.handle))
	return a
}

// URL returns the server's base URL.
func (a *ArchiveServer) URL() string { return a.srv.URL }

// Close shuts the server down.
func (a *ArchiveServer) Close() { a.srv.Close() }

// AddCapture stores a snapshot of originalURL at a 14-digit timestamp.
func (a *ArchiveServer) AddCapture(originalURL, timestamp, contentType, body string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.captures[originalURL] = append(a.captures[originalURL], Capture{
		Timestamp:   timestamp,
		ContentType: contentType,
		Body:        body,
	})
}

// Hits reports how many times a wrapper path was requested.
func (a *ArchiveServer) Hits(path string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.hits[path]
}

func (a *ArchiveServer) handle(w http.ResponseWriter, r *http.Request) {
	a.mu.Lock()
	a.hits[r.URL.Path]++
	a.mu.Unlock()

	m := wrapperPathRe.FindStringSubmatch(r.URL.Path)
	if m == nil {
		http.NotFound(w, r)
		return
	}
	ts, original := m[1], m[2]
	if r.URL.RawQuery != "" {
		original += "?" + r.URL.RawQuery
	}

	a.mu.Lock()
	captures := a.captures[original]
	if captures == nil && !strings.Contains(original, "://") {
		// Replay paths sometimes arrive with a collapsed scheme separator.
		captures = a.captures[strings.Replace(original, ":/", "://", 1)]
	}
	a.mu.Unlock()

	for _, c := range captures {
		if c.Timestamp == ts {
			w.Header().Set("Content-Type", c.ContentType)
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(c.Body))
			return
		}
	}
	http.NotFound(w, r)
}
