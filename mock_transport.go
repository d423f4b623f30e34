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

package waymirror

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"sync"
)

// MockResponse represents a mock HTTP response
type MockResponse struct {
	// StatusCode is the HTTP status code to return (default: 200)
	StatusCode int
	// Body is the response body content
	Body string
	// Headers are the HTTP headers to include in the response
	Headers http.Header
	// Error simulates a network error
	Error error
}

type mockPattern struct {
	pattern  *regexp.Regexp
	response *MockResponse
}

// MockTransport implements http.RoundTripper for testing. Mock responses are
// registered per wrapper URL (or URL pattern) so crawls run hermetically
// against a fake archive, and every request is counted so tests can assert
// the at-most-once fetch guarantee.
type MockTransport struct {
	responses map[string]*MockResponse
	patterns  []mockPattern
	calls     map[string]int
	mutex     sync.RWMutex
}

// NewMockTransport creates a new MockTransport instance
func NewMockTransport() *MockTransport {
	return &MockTransport{
		responses: make(map[string]*MockResponse),
		calls:     make(map[string]int),
	}
}

// RegisterResponse registers a mock response for an exact URL match
func (m *MockTransport) RegisterResponse(url string, response *MockResponse) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if response.StatusCode == 0 {
		response.StatusCode = 200
	}
	if response.Headers == nil {
		response.Headers = make(http.Header)
	}
	m.responses[url] = response
}

// RegisterSnapshot registers a capture body for a wrapper URL built from a
// timestamp and original URL, with the given content type.
func (m *MockTransport) RegisterSnapshot(wrapperURL, body, contentType string) {
	headers := make(http.Header)
	headers.Set("Content-Type", contentType)
	m.RegisterResponse(wrapperURL, &MockResponse{
		StatusCode: 200,
		Body:       body,
		Headers:    headers,
	})
}

// RegisterPattern registers a mock response for URLs matching a regex pattern
func (m *MockTransport) RegisterPattern(pattern string, response *MockResponse) error {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if response.StatusCode == 0 {
		response.StatusCode = 200
	}
	if response.Headers == nil {
		response.Headers = make(http.Header)
	}
	m.patterns = append(m.patterns, mockPattern{pattern: regex, response: response})
	return nil
}

// CallCount returns how many times a URL was requested.
func (m *MockTransport) CallCount(url string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.calls[url]
}

// TotalCalls returns the total number of requests seen.
func (m *MockTransport) TotalCalls() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	total := 0
	for _, n := range m.calls {
		total += n
	}
	return total
}

// RoundTrip implements http.RoundTripper. Unregistered URLs get a 404, which
// the backend maps to ErrSnapshotNotFound, the same way the archive answers
// for a capture that does not exist.
func (m *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	url := req.URL.String()

	m.mutex.Lock()
	m.calls[url]++
	mock := m.responses[url]
	if mock == nil {
		for _, p := range m.patterns {
			if p.pattern.MatchString(url) {
				mock = p.response
				break
			}
		}
	}
	m.mutex.Unlock()

	if mock == nil {
		return &http.Response{
			StatusCode: http.StatusNotFound,
			Status:     "404 Not Found",
			Body:       io.NopCloser(bytes.NewReader(nil)),
			Header:     make(http.Header),
			Request:    req,
		}, nil
	}
	if mock.Error != nil {
		return nil, mock.Error
	}

	return &http.Response{
		StatusCode:    mock.StatusCode,
		Status:        http.StatusText(mock.StatusCode),
		Body:          io.NopCloser(bytes.NewReader([]byte(mock.Body))),
		Header:        mock.Headers.Clone(),
		Request:       req,
		ContentLength: int64(len(mock.Body)),
	}, nil
}
