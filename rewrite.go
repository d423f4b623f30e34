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

// rewrite.go transforms fetched documents so every reference points at the
// locally materialized mirror instead of the archive or the live site. It
// also reports the same-site references it encounters, in document order,
// for the crawl loop to enqueue.

package waymirror

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// CorruptedSet is the read-only view of the corrupted-asset registry the
// rewrite engine consults during stylesheet processing.
type CorruptedSet interface {
	IsCorrupted(canonical string) bool
}

// PreservePredicate names a container family whose references are passed
// through with wrapper-unwrapping only, never neutralized or dropped.
// Keeping each heuristic an independently testable predicate keeps the
// site-specific list from entangling the general rewrite logic.
type PreservePredicate struct {
	Name  string
	Match func(*goquery.Selection) bool
}

func defaultPreservePredicates() []PreservePredicate {
	return []PreservePredicate{
		{Name: "floating-action-buttons", Match: ancestorClassContains("botonesflotantes")},
		{Name: "footer-action-widget", Match: ancestorIDContains("sp-footeredu")},
	}
}

func ancestorClassContains(fragment string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		return ancestorAttrContains(s, "class", fragment)
	}
}

func ancestorIDContains(fragment string) func(*goquery.Selection) bool {
	return func(s *goquery.Selection) bool {
		return ancestorAttrContains(s, "id", fragment)
	}
}

func ancestorAttrContains(s *goquery.Selection, attr, fragment string) bool {
	found := false
	s.Parents().EachWithBreak(func(_ int, p *goquery.Selection) bool {
		if v, ok := p.Attr(attr); ok && strings.Contains(strings.ToLower(v), fragment) {
			found = true
			return false
		}
		return true
	})
	return found
}

// Replay chrome injected by the archive around the captured page. Site
// content never matches these markers.
var (
	replayElementIDs  = []string{"wm-ipp-base", "wm-ipp", "wm-bipp", "wm-toolbar"}
	replayScriptSrcs  = []string{"web.archive.org", "web-static.archive.org", "bundle-playback.js", "wombat.js", "ruffle.js"}
	replayLinkHrefs   = []string{"banner-styles.css", "iconochive.css", "web-static.archive.org"}
	replayInlineMarks = []string{"__wm", "wombat", "RufflePlayer", "web.archive.org"}
)

// Inline script fragments that identify tracking and consent-management
// code. Matched case-insensitively against script bodies.
var trackerInlineMarks = []string{
	"gtag(", "datalayer", "google-analytics", "googletagmanager",
	"_gaq", "fbq(", "cookieyes", "cookie consent", "cookie banner", "cookiebar",
}

var consentClassMarks = []string{"cookie", "consent", "cookiebar", "cookie-banner", "cookieyes"}
var consentButtonMarks = []string{"cookie", "consent", "accept", "reject"}

var emailInPathRe = regexp.MustCompile(`/([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})(?:[/?#]|$)`)

// RewriteEngine transforms one payload at a time. It is stateless apart from
// read access to the corrupted-asset registry, so the crawl loop can call it
// for every transformable payload without coordination.
type RewriteEngine struct {
	policy    *Policy
	codec     *SnapshotCodec
	norm      *URLNormalizer
	paths     *PathMapper
	corrupted CorruptedSet
	preserve  []PreservePredicate
}

// NewRewriteEngine wires a rewrite engine against the run's policy, codec,
// normalizer, path mapper and corrupted-asset registry view.
func NewRewriteEngine(policy *Policy, codec *SnapshotCodec, norm *URLNormalizer, paths *PathMapper, corrupted CorruptedSet) *RewriteEngine {
	return &RewriteEngine{
		policy:    policy,
		codec:     codec,
		norm:      norm,
		paths:     paths,
		corrupted: corrupted,
		preserve:  defaultPreservePredicates(),
	}
}

// discoveries accumulates newly found same-site references, de-duplicated by
// canonical identity, in first-encounter document order.
type discoveries struct {
	seen       map[string]struct{}
	entries    []FrontierEntry
	suppressed int
}

func newDiscoveries() *discoveries {
	return &discoveries{seen: make(map[string]struct{})}
}

func (d *discoveries) add(canonical, fetch string) {
	if _, ok := d.seen[canonical]; ok {
		return
	}
	d.seen[canonical] = struct{}{}
	d.entries = append(d.entries, FrontierEntry{Canonical: canonical, Fetch: fetch})
}

// RewriteDocument strips archive chrome and policy-removed elements from an
// HTML payload, rewrites its references, and returns the serialized result
// together with the same-site references it discovered and the number of
// corrupted references suppressed from embedded styles. A parse failure
// returns the payload unchanged with the error; the caller persists it
// verbatim and skips discovery for that resource only.
func (e *RewriteEngine) RewriteDocument(payload []byte, baseURL string) ([]byte, []FrontierEntry, int, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload))
	if err != nil {
		return payload, nil, 0, err
	}

	e.removeReplayChrome(doc)
	removeCommentNodes(doc)

	if e.policy.RemoveTrackers {
		e.removeTrackers(doc)
	}
	if e.policy.RemoveAds {
		e.removeAds(doc)
	}
	if e.policy.RemoveExternalIframes {
		e.removeExternalIframes(doc, baseURL)
	}

	d := newDiscoveries()
	e.rewriteAnchors(doc, baseURL, d)
	e.rewriteImages(doc, baseURL, d)
	e.rewriteStylesheetLinks(doc, baseURL, d)
	e.rewriteScriptTags(doc, baseURL, d)
	e.rewriteFrames(doc, baseURL, d)
	e.rewriteOtherLinks(doc, baseURL, d)
	e.rewriteEmbeddedStyles(doc, baseURL, d)

	rendered, err := doc.Html()
	if err != nil {
		return payload, nil, 0, err
	}
	return []byte(rendered), d.entries, d.suppressed, nil
}

// removeReplayChrome drops the replay-support elements the archive injects:
// toolbar containers, playback scripts, banner stylesheets and the archive's
// own og:url metadata.
func (e *RewriteEngine) removeReplayChrome(doc *goquery.Document) {
	doc.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		id = strings.ToLower(id)
		for _, marker := range replayElementIDs {
			if strings.Contains(id, marker) {
				s.Remove()
				return
			}
		}
	})

	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if containsAny(src, replayScriptSrcs) {
			s.Remove()
		}
	})

	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if containsAny(href, replayLinkHrefs) {
			s.Remove()
		}
	})

	doc.Find(`meta[property="og:url"]`).Each(func(_ int, s *goquery.Selection) {
		if content, ok := s.Attr("content"); ok && strings.Contains(content, archiveHost) {
			s.Remove()
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if s.Children().Length() > 0 {
			return
		}
		body := s.Text()
		if body == "" {
			return
		}
		for _, marker := range replayInlineMarks {
			if strings.Contains(body, marker) {
				s.Remove()
				return
			}
		}
	})
}

func (e *RewriteEngine) removeTrackers(doc *goquery.Document) {
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if e.classifyRef(src) == ClassTracker {
			s.Remove()
		}
	})

	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		body := strings.ToLower(s.Text())
		if body == "" {
			return
		}
		for _, mark := range trackerInlineMarks {
			if strings.Contains(body, mark) {
				s.Remove()
				return
			}
		}
	})

	doc.Find("div[class], section[class]").Each(func(_ int, s *goquery.Selection) {
		cls, _ := s.Attr("class")
		if containsAny(strings.ToLower(cls), consentClassMarks) {
			s.Remove()
		}
	})
	doc.Find("button[class], a[class]").Each(func(_ int, s *goquery.Selection) {
		cls, _ := s.Attr("class")
		if containsAny(strings.ToLower(cls), consentButtonMarks) {
			s.Remove()
		}
	})
}

func (e *RewriteEngine) removeAds(doc *goquery.Document) {
	doc.Find("script[src], iframe[src], img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if e.classifyRef(src) == ClassAdvertisement {
			s.Remove()
		}
	})
}

func (e *RewriteEngine) removeExternalIframes(doc *goquery.Document, baseURL string) {
	doc.Find("iframe[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		canonical, _, err := e.norm.Normalize(src, baseURL)
		if err != nil || !e.norm.IsInternal(canonical) {
			s.Remove()
		}
	})
}

// rewriteAnchors applies, in order: preserve-container passthrough, contact
// neutralization, the external-link policy, and internal-link rewriting.
func (e *RewriteEngine) rewriteAnchors(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		// Bare fragments navigate within the page (and are what contact
		// neutralization leaves behind); they are never references.
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		if e.inPreserveContainer(s) {
			if unwrapped := e.unwrapPreserved(href); unwrapped != href {
				s.SetAttr("href", unwrapped)
			}
			return
		}

		canonical, fetch, err := e.norm.Normalize(href, baseURL)
		if err != nil {
			return
		}

		if e.norm.Classify(canonical) == ClassContact {
			if e.policy.NeutralizeContacts {
				if e.policy.ExternalLinks == ExternalDrop {
					s.Remove()
				} else {
					s.SetAttr("href", "#")
				}
			}
			return
		}

		if !e.norm.IsInternal(canonical) {
			switch e.policy.ExternalLinks {
			case ExternalDrop:
				s.Remove()
			case ExternalNeutralize:
				text := s.Text()
				s.ReplaceWithHtml(html.EscapeString(text))
			default:
				// Unmodified apart from wrapper unwrapping.
				s.SetAttr("href", fetch)
			}
			return
		}

		if e.policy.RewriteInternalLinks {
			s.SetAttr("href", keepFragment(e.paths.LinkPath(fetch, true), href))
		} else if e.policy.WWW != WWWKeep && e.policy.WWW != "" {
			s.SetAttr("href", fetch)
		}
		d.add(canonical, fetch)
	})
}

func (e *RewriteEngine) rewriteImages(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		e.rewriteAssetAttr(s, "src", src, baseURL, d)
	})
}

func (e *RewriteEngine) rewriteScriptTags(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("script[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		e.rewriteAssetAttr(s, "src", src, baseURL, d)
	})
}

// rewriteStylesheetLinks handles <link rel="stylesheet">. External
// stylesheets follow the external-reference policy except that mirrored
// font-service sheets are localized like internal assets.
func (e *RewriteEngine) rewriteStylesheetLinks(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find(`link[rel="stylesheet"][href]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		canonical, fetch, err := e.norm.Normalize(href, baseURL)
		if err != nil {
			return
		}

		if e.paths.IsMirroredFontHost(fetch) {
			if e.policy.RewriteInternalLinks {
				s.SetAttr("href", e.paths.LinkPath(fetch, false))
			}
			d.add(fetch, fetch)
			return
		}

		if !e.norm.IsInternal(canonical) {
			switch e.policy.ExternalLinks {
			case ExternalDrop:
				s.Remove()
			default:
				// Point at the live origin rather than the archive.
				s.SetAttr("href", fetch)
			}
			return
		}

		if e.policy.RewriteInternalLinks {
			s.SetAttr("href", e.paths.LinkPath(fetch, false))
		}
		d.add(canonical, fetch)
	})
}

// rewriteFrames localizes same-site frame targets. External frames that
// survived the removal policy are unwound to the live origin.
func (e *RewriteEngine) rewriteFrames(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("iframe[src], frame[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		if src == "" {
			return
		}
		canonical, fetch, err := e.norm.Normalize(src, baseURL)
		if err != nil {
			return
		}
		if !e.norm.IsInternal(canonical) {
			if _, wasWrapped := e.codec.ExtractOriginal(src); wasWrapped {
				s.SetAttr("src", fetch)
			}
			return
		}
		if e.policy.RewriteInternalLinks {
			s.SetAttr("src", e.paths.LinkPath(fetch, true))
		}
		d.add(canonical, fetch)
	})
}

// rewriteOtherLinks handles the remaining <link> kinds (icons, manifests,
// preloads); stylesheets were handled separately.
func (e *RewriteEngine) rewriteOtherLinks(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("link[href]").Each(func(_ int, s *goquery.Selection) {
		if rel, _ := s.Attr("rel"); strings.Contains(strings.ToLower(rel), "stylesheet") {
			return
		}
		href, _ := s.Attr("href")
		e.rewriteAssetAttr(s, "href", href, baseURL, d)
	})
}

// rewriteAssetAttr localizes one asset-like reference attribute: internal and
// mirrored-font-host targets are rewritten to their mirror paths and
// discovered; other external targets are left alone (wrapper-unwrapped).
func (e *RewriteEngine) rewriteAssetAttr(s *goquery.Selection, attr, raw, baseURL string, d *discoveries) {
	if raw == "" {
		return
	}
	canonical, fetch, err := e.norm.Normalize(raw, baseURL)
	if err != nil {
		return
	}

	if e.paths.IsMirroredFontHost(fetch) {
		if e.policy.RewriteInternalLinks {
			s.SetAttr(attr, e.paths.LinkPath(fetch, false))
		}
		d.add(fetch, fetch)
		return
	}

	if !e.norm.IsInternal(canonical) {
		if _, wasWrapped := e.codec.ExtractOriginal(raw); wasWrapped {
			s.SetAttr(attr, fetch)
		}
		return
	}

	if e.policy.RewriteInternalLinks {
		s.SetAttr(attr, e.paths.LinkPath(fetch, false))
	} else if e.policy.WWW != WWWKeep && e.policy.WWW != "" {
		s.SetAttr(attr, fetch)
	}
	d.add(canonical, fetch)
}

// rewriteEmbeddedStyles runs the stylesheet logic over style attributes and
// <style> blocks.
func (e *RewriteEngine) rewriteEmbeddedStyles(doc *goquery.Document, baseURL string, d *discoveries) {
	doc.Find("[style]").Each(func(_ int, s *goquery.Selection) {
		style, _ := s.Attr("style")
		if !strings.Contains(style, "url(") && !strings.Contains(style, "/web/") {
			return
		}
		rewritten := e.rewriteCSSText(style, baseURL, d)
		if rewritten != style {
			s.SetAttr("style", rewritten)
		}
	})

	doc.Find("style").Each(func(_ int, s *goquery.Selection) {
		css := s.Text()
		if css == "" {
			return
		}
		rewritten := e.rewriteCSSText(css, baseURL, d)
		if rewritten != css {
			s.SetText(rewritten)
		}
	})
}

func (e *RewriteEngine) inPreserveContainer(s *goquery.Selection) bool {
	for _, p := range e.preserve {
		if p.Match(s) {
			return true
		}
	}
	return false
}

// unwrapPreserved recovers the real target of a preserved reference: contact
// schemes hidden behind the wrapper, email addresses smuggled into https
// paths, or a plain embedded original URL. Anything unrecognized is returned
// unchanged.
func (e *RewriteEngine) unwrapPreserved(href string) string {
	original, ok := e.codec.ExtractOriginal(href)
	if !ok {
		return href
	}
	for _, scheme := range contactSchemes {
		if strings.HasPrefix(original, scheme) {
			return original
		}
	}
	// Sites sometimes wrap a bare email address in an https URL; recover the
	// mailto form rather than keeping a dead page reference.
	if m := emailInPathRe.FindStringSubmatch(original); m != nil {
		return "mailto:" + m[1]
	}
	return original
}

// classifyRef unwraps an embedded wrapper before classifying, so archive
// rewritten tracker references are still recognized.
func (e *RewriteEngine) classifyRef(raw string) LinkClass {
	if original, ok := e.codec.ExtractOriginal(raw); ok {
		raw = original
	}
	return e.norm.Classify(raw)
}

// removeCommentNodes walks the parsed tree and removes comment nodes. The
// archive leaves replay annotations in comments; site content is untouched.
func removeCommentNodes(doc *goquery.Document) {
	for _, root := range doc.Nodes {
		removeComments(root)
	}
}

func removeComments(n *html.Node) {
	child := n.FirstChild
	for child != nil {
		next := child.NextSibling
		if child.Type == html.CommentNode {
			n.RemoveChild(child)
		} else {
			removeComments(child)
		}
		child = next
	}
}

// keepFragment re-attaches the fragment of the originally authored reference
// onto a rewritten path, preserving in-page addressing.
func keepFragment(ref, rawHref string) string {
	if i := strings.IndexByte(rawHref, '#'); i >= 0 && !strings.Contains(ref, "#") {
		return ref + rawHref[i:]
	}
	return ref
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
