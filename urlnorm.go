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
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	whatwgUrl "github.com/nlnwa/whatwg-url/url"
)

var urlParser = whatwgUrl.NewParser(whatwgUrl.WithPercentEncodeSinglePercentSign())

// LinkClass tags a reference by the third-party role it plays. It feeds the
// rewrite removal policies only, never crawl admission.
type LinkClass string

const (
	ClassNone          LinkClass = "none"
	ClassTracker       LinkClass = "tracker"
	ClassAdvertisement LinkClass = "advertisement"
	ClassContact       LinkClass = "contact"
)

// Known third-party analytics/tracker hostname and script fragments.
var trackerGlobs = compileGlobs([]string{
	"*google-analytics.com*",
	"*googletagmanager.com*",
	"*facebook.net*",
	"*doubleclick.net*",
	"*googlesyndication.com*",
	"*facebook.com/tr*",
	"*analytics.*",
	"*stats.*",
	"*tracking.*",
	"*tagmanager.google.com*",
	"*gtag.js*",
	"*/ga.js*",
	"*analytics.js*",
})

// Known advertisement hostname and path fragments.
var adGlobs = compileGlobs([]string{
	"*ads.*",
	"*advertising.com*",
	"*doubleclick.net*",
	"*googlesyndication.com*",
	"*googleads.*",
	"*adserver.*",
	"*banner*",
	"*popup*",
	"*sponsor*",
})

// Contact scheme prefixes that make a reference clickable off-page.
var contactSchemes = []string{"mailto:", "tel:", "sms:", "whatsapp:", "callto:"}

func compileGlobs(patterns []string) []glob.Glob {
	globs := make([]glob.Glob, len(patterns))
	for i, p := range patterns {
		globs[i] = glob.MustCompile(p)
	}
	return globs
}

// URLNormalizer computes canonical identities for discovered references and
// classifies them as internal/external and by third-party role. All
// canonicalization for one run flows through a single normalizer so identity
// comparison stays consistent.
type URLNormalizer struct {
	codec    *SnapshotCodec
	siteHost string // registered site host, lowercased, www stripped
	scheme   string // seed scheme; same-site URLs are forced onto it
	www      WWWMode
}

// NewURLNormalizer builds a normalizer for the site the seed URL lives on.
func NewURLNormalizer(codec *SnapshotCodec, siteURL string, www WWWMode) (*URLNormalizer, error) {
	parsed, err := urlParser.Parse(siteURL)
	if err != nil {
		return nil, fmt.Errorf("parse site URL %q: %w", siteURL, err)
	}
	u, err := url.Parse(parsed.Href(false))
	if err != nil {
		return nil, fmt.Errorf("parse site URL %q: %w", siteURL, err)
	}
	return &URLNormalizer{
		codec:    codec,
		siteHost: stripWWW(strings.ToLower(u.Hostname())),
		scheme:   u.Scheme,
		www:      www,
	}, nil
}

// SiteHost returns the registered site host (lowercased, www stripped).
func (n *URLNormalizer) SiteHost() string { return n.siteHost }

// Scheme returns the seed URL's scheme.
func (n *URLNormalizer) Scheme() string { return n.scheme }

// Normalize resolves raw against base and returns the canonical identity
// (query and fragment stripped) together with the fetch URL (query kept,
// fragment stripped). An embedded wrapper is unwrapped first; the www policy
// is applied to the host; same-site URLs are forced onto the seed's scheme so
// one mirror never mixes http and https identities. Non-HTTP references are
// returned unchanged.
func (n *URLNormalizer) Normalize(raw, base string) (canonical, fetch string, err error) {
	if original, ok := n.codec.ExtractOriginal(raw); ok {
		raw = original
	}
	if strings.HasPrefix(raw, "//") {
		raw = n.scheme + ":" + raw
	}
	for _, scheme := range contactSchemes {
		if strings.HasPrefix(raw, scheme) {
			return raw, raw, nil
		}
	}

	var resolved *whatwgUrl.Url
	var perr error
	if base != "" {
		resolved, perr = urlParser.ParseRef(base, raw)
	} else {
		resolved, perr = urlParser.Parse(raw)
	}
	if perr != nil {
		return "", "", fmt.Errorf("normalize %q: %w", raw, perr)
	}

	u, perr := url.Parse(resolved.Href(false))
	if perr != nil {
		return "", "", fmt.Errorf("normalize %q: %w", raw, perr)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return raw, raw, nil
	}

	host := strings.ToLower(u.Hostname())
	switch n.www {
	case WWWStrip:
		host = stripWWW(host)
	case WWWAdd:
		if host != "" && !strings.HasPrefix(host, "www.") {
			host = "www." + host
		}
	}
	if port := u.Port(); port != "" {
		u.Host = host + ":" + port
	} else {
		u.Host = host
	}

	if stripWWW(host) == n.siteHost {
		u.Scheme = n.scheme
	}

	u.Fragment = ""
	fetch = u.String()
	u.RawQuery = ""
	u.ForceQuery = false
	canonical = u.String()
	return canonical, fetch, nil
}

// IsInternal reports whether a reference targets the mirrored site. A
// reference with no host (path-relative) is internal; any non-HTTP scheme is
// never internal.
func (n *URLNormalizer) IsInternal(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return u.Opaque == ""
	}
	return stripWWW(strings.ToLower(u.Hostname())) == n.siteHost
}

// Classify matches a reference against the tracker, advertisement and
// contact pattern sets. The checks are independent; contact wins over the
// host patterns since it is a scheme property.
func (n *URLNormalizer) Classify(rawURL string) LinkClass {
	lower := strings.ToLower(rawURL)
	for _, scheme := range contactSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ClassContact
		}
	}
	for _, g := range trackerGlobs {
		if g.Match(lower) {
			return ClassTracker
		}
	}
	for _, g := range adGlobs {
		if g.Match(lower) {
			return ClassAdvertisement
		}
	}
	return ClassNone
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}
