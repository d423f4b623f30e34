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

var (
	cssCommentRe = regexp.MustCompile(`/\*[\s\S]*?\*/`)
	cssURLRe     = regexp.MustCompile(`(?i)url\(\s*['"]?([^'"()]+?)['"]?\s*\)`)
	cssImportRe  = regexp.MustCompile(`(?i)@import\s+["']([^"'()]+)["']`)
	cssSrcDeclRe = regexp.MustCompile(`(?i)(src\s*:\s*)([^;}]+)(;?)`)
)

// RewriteStylesheet rewrites a standalone stylesheet: references to assets
// recorded as corrupted are stripped, remaining same-site references are
// localized, and newly discovered references are reported in document order
// along with the number of suppressed corrupted references.
func (e *RewriteEngine) RewriteStylesheet(css, baseURL string) (string, []FrontierEntry, int) {
	d := newDiscoveries()
	out := e.rewriteCSSText(css, baseURL, d)
	return out, d.entries, d.suppressed
}

// rewriteCSSText is shared between standalone stylesheets, <style> blocks
// and style attributes. Comments are ignored for discovery but preserved in
// the output.
func (e *RewriteEngine) rewriteCSSText(css, baseURL string, d *discoveries) string {
	css = e.stripCorruptedSources(css, baseURL, d)
	e.discoverCSSRefs(cssCommentRe.ReplaceAllString(css, ""), baseURL, d)

	css = cssURLRe.ReplaceAllStringFunc(css, func(match string) string {
		m := cssURLRe.FindStringSubmatch(match)
		ref := strings.TrimSpace(m[1])
		if skipCSSRef(ref) {
			return match
		}
		canonical, fetch, err := e.norm.Normalize(ref, baseURL)
		if err != nil {
			return match
		}
		if e.paths.IsMirroredFontHost(fetch) {
			if e.policy.RewriteInternalLinks {
				return "url(" + e.paths.LinkPath(fetch, false) + ")"
			}
			return match
		}
		if !e.norm.IsInternal(canonical) {
			// An embedded wrapper is unwound to the live origin; other
			// external references are left untouched.
			if _, wasWrapped := e.codec.ExtractOriginal(ref); wasWrapped {
				return "url(" + fetch + ")"
			}
			return match
		}
		if e.corrupted.IsCorrupted(canonical) {
			d.suppressed++
			return "url()"
		}
		if e.policy.RewriteInternalLinks {
			return "url(" + e.paths.LinkPath(fetch, false) + ")"
		}
		return match
	})

	css = cssImportRe.ReplaceAllStringFunc(css, func(match string) string {
		m := cssImportRe.FindStringSubmatch(match)
		ref := strings.TrimSpace(m[1])
		if skipCSSRef(ref) {
			return match
		}
		canonical, fetch, err := e.norm.Normalize(ref, baseURL)
		if err != nil || !e.norm.IsInternal(canonical) {
			return match
		}
		if e.policy.RewriteInternalLinks {
			return `@import "` + e.paths.LinkPath(fetch, false) + `"`
		}
		return match
	})

	return css
}

// discoverCSSRefs records every fetchable reference in first-encounter
// order: url() forms and quoted @import forms alike.
func (e *RewriteEngine) discoverCSSRefs(css, baseURL string, d *discoveries) {
	type hit struct {
		pos int
		ref string
	}
	var hits []hit
	for _, m := range cssURLRe.FindAllStringSubmatchIndex(css, -1) {
		hits = append(hits, hit{pos: m[0], ref: css[m[2]:m[3]]})
	}
	for _, m := range cssImportRe.FindAllStringSubmatchIndex(css, -1) {
		hits = append(hits, hit{pos: m[0], ref: css[m[2]:m[3]]})
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
	for _, h := range hits {
		ref := strings.TrimSpace(h.ref)
		if skipCSSRef(ref) {
			continue
		}
		canonical, fetch, err := e.norm.Normalize(ref, baseURL)
		if err != nil {
			continue
		}
		if e.paths.IsMirroredFontHost(fetch) {
			d.add(fetch, fetch)
			continue
		}
		if !e.norm.IsInternal(canonical) || e.corrupted.IsCorrupted(canonical) {
			continue
		}
		d.add(canonical, fetch)
	}
}

// stripCorruptedSources removes corrupted references from src: declarations,
// collapsing source lists so no dangling comma or empty declaration remains.
func (e *RewriteEngine) stripCorruptedSources(css, baseURL string, d *discoveries) string {
	return cssSrcDeclRe.ReplaceAllStringFunc(css, func(match string) string {
		m := cssSrcDeclRe.FindStringSubmatch(match)
		prefix, value, term := m[1], m[2], m[3]

		entries := strings.Split(value, ",")
		kept := entries[:0]
		removed := 0
		for _, entry := range entries {
			um := cssURLRe.FindStringSubmatch(entry)
			if um == nil {
				kept = append(kept, entry)
				continue
			}
			ref := strings.TrimSpace(um[1])
			if skipCSSRef(ref) {
				kept = append(kept, entry)
				continue
			}
			canonical, _, err := e.norm.Normalize(ref, baseURL)
			if err == nil && e.corrupted.IsCorrupted(canonical) {
				removed++
				continue
			}
			kept = append(kept, entry)
		}
		if removed == 0 {
			return match
		}
		d.suppressed += removed
		if len(kept) == 0 {
			return ""
		}
		parts := make([]string, 0, len(kept))
		for _, k := range kept {
			parts = append(parts, strings.TrimSpace(k))
		}
		return prefix + strings.Join(parts, ", ") + term
	})
}

func skipCSSRef(ref string) bool {
	if ref == "" || strings.HasPrefix(ref, "#") {
		return true
	}
	lower := strings.ToLower(ref)
	return strings.HasPrefix(lower, "data:") ||
		strings.HasPrefix(lower, "javascript:") ||
		strings.HasPrefix(lower, "about:")
}
