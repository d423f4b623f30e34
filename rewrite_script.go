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
	"regexp"
	"strings"
)

// Script payloads are never parsed, only scanned with deliberately narrow
// patterns. Archive wrapper literals and asset-extension literals are
// unambiguous wherever they appear; a bare absolute URL is touched only in
// navigation or request contexts (.src/.href assignments, url: properties,
// fetch/ajax/axios/open calls). Everything else in a script is left alone.
var scriptRefPatterns = []*regexp.Regexp{
	regexp.MustCompile(`["'](/web/\d+[a-z_]*/https?://[^"'\s]+)["']`),
	regexp.MustCompile(`["'](https?://web\.archive\.org/web/\d+[a-z_]*/[^"'\s]+)["']`),
	regexp.MustCompile(`\.(?:src|href|location)\s*=\s*["'](https?://[^"'\s]+)["']`),
	regexp.MustCompile(`\burl\s*:\s*["'](https?://[^"'\s]+)["']`),
	regexp.MustCompile(`\b(?:fetch|ajax|axios(?:\.\w+)?|open)\s*\(\s*["'](https?://[^"'\s]+)["']`),
	regexp.MustCompile(`["'](https?://[^"'\s]+\.(?:css|js|mjs|json|png|jpe?g|gif|svg|webp|ico|woff2?|ttf|otf|eot|mp4|webm)(?:\?[^"'\s]*)?)["']`),
	regexp.MustCompile(`["'](/[^"'\s]*\.(?:css|js|mjs|json|png|jpe?g|gif|svg|webp|ico|woff2?|ttf|otf|eot|mp4|webm))["']`),
}

// RewriteScript rewrites the string literals in a script that reference
// same-site resources, discovering them for the crawl. The surrounding code
// is untouched; a reference that cannot be confidently localized is kept
// as-is rather than risking a broken script.
func (e *RewriteEngine) RewriteScript(js, baseURL string) (string, []FrontierEntry) {
	d := newDiscoveries()

	type hit struct {
		start, end int // bounds of the captured reference
		ref        string
	}
	var hits []hit
	for _, re := range scriptRefPatterns {
		for _, m := range re.FindAllStringSubmatchIndex(js, -1) {
			hits = append(hits, hit{start: m[2], end: m[3], ref: js[m[2]:m[3]]})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].start < hits[j-1].start; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	var b strings.Builder
	last := 0
	for _, h := range hits {
		if h.start < last {
			continue // same literal matched by more than one pattern
		}
		replacement, ok := e.localizeScriptRef(h.ref, baseURL, d)
		if !ok {
			continue
		}
		b.WriteString(js[last:h.start])
		b.WriteString(replacement)
		last = h.end
	}
	if last == 0 {
		return js, d.entries
	}
	b.WriteString(js[last:])
	return b.String(), d.entries
}

func (e *RewriteEngine) localizeScriptRef(ref, baseURL string, d *discoveries) (string, bool) {
	canonical, fetch, err := e.norm.Normalize(ref, baseURL)
	if err != nil {
		return "", false
	}
	if e.paths.IsMirroredFontHost(fetch) {
		d.add(fetch, fetch)
		if e.policy.RewriteInternalLinks {
			return e.paths.LinkPath(fetch, false), true
		}
		return "", false
	}
	if !e.norm.IsInternal(canonical) {
		// Unwind an embedded wrapper so the script at least points at the
		// live origin instead of the archive.
		if _, wasWrapped := e.codec.ExtractOriginal(ref); wasWrapped {
			return fetch, true
		}
		return "", false
	}
	d.add(canonical, fetch)
	if !e.policy.RewriteInternalLinks {
		return "", false
	}
	isPage := !hasKnownAssetExtension(fetch)
	return e.paths.LinkPath(fetch, isPage), true
}
