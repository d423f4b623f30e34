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
	"strings"
	"testing"
)

func TestMap(t *testing.T) {
	m := NewPathMapper()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{"root becomes index", "http://example.com/", "index.html"},
		{"empty path becomes index", "http://example.com", "index.html"},
		{"directory gets index", "http://example.com/blog/", "blog/index.html"},
		{"html path kept", "http://example.com/about.html", "about.html"},
		{"extensionless page suffixed", "http://example.com/about", "about.html"},
		{"asset extension kept", "http://example.com/css/site.css", "css/site.css"},
		{"image kept", "http://example.com/img/logo.png", "img/logo.png"},
		{"duplicate slashes collapsed", "http://example.com//a//b.html", "a/b.html"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.Map(tt.url); got != tt.want {
				t.Errorf("Map(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestLinkPath(t *testing.T) {
	m := NewPathMapper()

	tests := []struct {
		name   string
		url    string
		isPage bool
		want   string
	}{
		{"root", "http://example.com/", true, "/index.html"},
		{"page", "http://example.com/about", true, "/about.html"},
		{"page keeps query and fragment", "http://example.com/about?x=1#top", true, "/about.html?x=1#top"},
		{"directory", "http://example.com/blog/", true, "/blog/index.html"},
		{"asset", "http://example.com/css/site.css", false, "/css/site.css"},
		{"extensionless asset not suffixed", "http://example.com/img/pixel", false, "/img/pixel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := m.LinkPath(tt.url, tt.isPage); got != tt.want {
				t.Errorf("LinkPath(%q, %v) = %q, want %q", tt.url, tt.isPage, got, tt.want)
			}
		})
	}
}

// A page's LinkPath must address exactly the file Map materializes it at.
func TestMapLinkPathAgreement(t *testing.T) {
	m := NewPathMapper()
	urls := []string{
		"http://example.com/",
		"http://example.com/about",
		"http://example.com/about.html",
		"http://example.com/blog/",
		"http://example.com/blog/post-1",
		"http://example.com/css/site.css",
		"http://example.com/img/logo.png",
	}
	for _, u := range urls {
		mapped := m.Map(u)
		link := m.LinkPath(u, !hasKnownAssetExtension(u))
		link = strings.TrimPrefix(link, "/")
		if i := strings.IndexAny(link, "?#"); i >= 0 {
			link = link[:i]
		}
		if link != mapped {
			t.Errorf("url %q: LinkPath %q does not address Map %q", u, link, mapped)
		}
	}
}

func TestFontHostMapping(t *testing.T) {
	m := NewPathMapper()

	cssURL := "https://fonts.googleapis.com/css?family=Lato:400,700"
	p := m.Map(cssURL)
	if !strings.HasPrefix(p, "_fonts/fonts.googleapis.com/") {
		t.Errorf("font css mapped to %q, want _fonts/fonts.googleapis.com/ prefix", p)
	}
	if !strings.HasSuffix(p, ".css") {
		t.Errorf("extensionless font endpoint should map to a .css file, got %q", p)
	}

	// Different query strings must land on different files.
	other := m.Map("https://fonts.googleapis.com/css?family=Roboto")
	if other == p {
		t.Errorf("distinct font queries mapped to the same file %q", p)
	}

	// The same query must always land on the same file.
	if again := m.Map(cssURL); again != p {
		t.Errorf("font mapping not stable: %q vs %q", again, p)
	}

	woff := m.Map("https://fonts.gstatic.com/s/lato/v11/abc.woff2")
	if !strings.HasPrefix(woff, "_fonts/fonts.gstatic.com/") || !strings.HasSuffix(woff, ".woff2") {
		t.Errorf("font binary mapped to %q", woff)
	}

	// LinkPath for a font URL is the root-relative form of Map.
	if link := m.LinkPath(cssURL, false); link != "/"+p {
		t.Errorf("font LinkPath = %q, want %q", link, "/"+p)
	}
}

func TestIsMirroredFontHost(t *testing.T) {
	m := NewPathMapper()
	if !m.IsMirroredFontHost("https://fonts.googleapis.com/css?family=Lato") {
		t.Error("fonts.googleapis.com should be a mirrored font host")
	}
	if m.IsMirroredFontHost("http://example.com/fonts/lato.woff2") {
		t.Error("site-local font paths are not font hosts")
	}
}
