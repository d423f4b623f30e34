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

// pathmap.go maps canonical URLs onto the on-disk mirror tree and onto the
// in-document references pointing at it. Map and LinkPath share one path
// derivation so a rewritten reference always resolves, via a plain static
// file server, to the file the resource was saved as.

package waymirror

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kennygrant/sanitize"
)

// defaultDocumentName is the file a directory-like URL materializes as.
const defaultDocumentName = "index.html"

// knownAssetExtensions marks paths whose extension must be preserved as-is.
// Anything extensionless is treated as a page and suffixed with .html.
var knownAssetExtensions = map[string]struct{}{
	".css": {}, ".js": {}, ".mjs": {},
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".svg": {}, ".webp": {},
	".ico": {}, ".bmp": {},
	".woff": {}, ".woff2": {}, ".ttf": {}, ".eot": {}, ".otf": {},
	".pdf": {}, ".zip": {},
	".mp4": {}, ".webm": {}, ".mp3": {}, ".wav": {}, ".avi": {}, ".mov": {},
	".wmv": {}, ".flv": {},
	".doc": {}, ".docx": {},
}

// fontHosts are externally-hosted resource families that are still mirrored
// locally, namespaced per host under _fonts/. Their query string selects the
// served content, so it participates in the file name as a hash.
var fontHosts = map[string]struct{}{
	"fonts.googleapis.com": {},
	"fonts.gstatic.com":    {},
	"use.typekit.net":      {},
	"use.fontawesome.com":  {},
}

// PathMapper derives mirror file locations. It is stateless; both the crawl
// loop (save location) and the rewrite engine (reference target) hold the
// same instance.
type PathMapper struct{}

// NewPathMapper returns a PathMapper.
func NewPathMapper() *PathMapper {
	return &PathMapper{}
}

// IsMirroredFontHost reports whether a URL belongs to a web-font distribution
// service that is mirrored locally despite being off-site.
func (m *PathMapper) IsMirroredFontHost(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	_, ok := fontHosts[strings.ToLower(u.Hostname())]
	return ok
}

// Map returns the output-root-relative file path a URL materializes at.
// Leading slashes are stripped, the path percent-decoded, duplicate slashes
// collapsed; empty or directory-like paths get the document index name;
// extensionless paths get the default document extension unless the
// extension is a known asset extension.
func (m *PathMapper) Map(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return defaultDocumentName
	}
	if m.IsMirroredFontHost(rawURL) {
		return fontPath(u)
	}
	p := mirrorPath(u.Path)
	if p == "" || strings.HasSuffix(p, "/") {
		return p + defaultDocumentName
	}
	return p
}

// LinkPath returns the root-relative reference string that addresses the
// same file Map saves a URL at, suitable for a static file server. Query and
// fragment are preserved for in-page addressing. isPage selects whether an
// extensionless target gets the document suffix (pages) or stays untouched
// (assets).
func (m *PathMapper) LinkPath(rawURL string, isPage bool) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "/"
	}
	if m.IsMirroredFontHost(rawURL) {
		return "/" + fontPath(u)
	}

	p := mirrorPath(u.Path)
	if p == "" || strings.HasSuffix(p, "/") {
		return "/" + p + suffixQueryFragment("", u)
	}
	if !isPage {
		// Assets keep their path untouched; the document suffix added by
		// mirrorPath applies to page-like paths only.
		if path.Ext(path.Base(collapseSlashes(u.Path))) == "" {
			p = strings.TrimSuffix(p, ".html")
		}
	}
	return "/" + p + suffixQueryFragment("", u)
}

// mirrorPath normalizes a URL path into a relative mirror path: percent
// decoding (already done by url.Parse), duplicate-slash collapsing, filename
// sanitization and the page/asset extension rule.
func mirrorPath(urlPath string) string {
	p := collapseSlashes(urlPath)
	p = strings.TrimPrefix(p, "/")
	if p == "" || strings.HasSuffix(p, "/") {
		return p
	}

	base := path.Base(p)
	ext := strings.ToLower(path.Ext(base))
	if ext == "" {
		p += ".html"
	}
	return sanitize.Path(p)
}

// fontPath maps a font-service URL under _fonts/<host>/. Query-bearing URLs
// are disambiguated by an xxhash of the query string; extensionless font
// service endpoints serve stylesheets.
func fontPath(u *url.URL) string {
	p := strings.Trim(collapseSlashes(u.Path), "/")
	if p == "" {
		p = "index"
	}
	if q := u.RawQuery; q != "" {
		ext := path.Ext(p)
		p = fmt.Sprintf("%s-%016x%s", strings.TrimSuffix(p, ext), xxhash.Sum64String(q), ext)
	}
	if path.Ext(p) == "" {
		p += ".css"
	}
	return "_fonts/" + strings.ToLower(u.Hostname()) + "/" + sanitize.Path(p)
}

func suffixQueryFragment(s string, u *url.URL) string {
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		s += "#" + u.Fragment
	}
	return s
}

// hasKnownAssetExtension reports whether the URL's path carries a known
// non-document extension.
func hasKnownAssetExtension(rawURL string) bool {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		p = u.Path
	}
	_, ok := knownAssetExtensions[strings.ToLower(path.Ext(p))]
	return ok
}

func collapseSlashes(p string) string {
	for strings.Contains(p, "//") {
		p = strings.ReplaceAll(p, "//", "/")
	}
	return p
}
