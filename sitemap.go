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
	"context"

	"github.com/antchfx/xmlquery"
	"go.uber.org/zap"
)

// maxSitemapDepth bounds sitemap-index recursion.
const maxSitemapDepth = 2

// discoverSitemap seeds the frontier from the site's archived sitemap.xml.
// Like robots handling, this is strictly best-effort.
func (c *Crawler) discoverSitemap(ctx context.Context) []FrontierEntry {
	sitemapURL := c.norm.Scheme() + "://" + c.norm.SiteHost() + "/sitemap.xml"
	entries := c.sitemapEntries(ctx, sitemapURL, 0)
	if len(entries) > 0 {
		c.log.Info("seeded from archived sitemap",
			zap.String("url", sitemapURL),
			zap.Int("entries", len(entries)),
		)
	}
	return entries
}

func (c *Crawler) sitemapEntries(ctx context.Context, sitemapURL string, depth int) []FrontierEntry {
	if depth > maxSitemapDepth {
		return nil
	}
	result, _, err := c.fetchWithFallback(ctx, sitemapURL)
	if err != nil {
		c.log.Debug("no archived sitemap", zap.String("url", sitemapURL), zap.Error(err))
		return nil
	}
	doc, err := xmlquery.Parse(bytes.NewReader(result.Body))
	if err != nil {
		c.log.Debug("unparseable sitemap", zap.String("url", sitemapURL), zap.Error(err))
		return nil
	}

	var entries []FrontierEntry
	for _, loc := range xmlquery.Find(doc, "//urlset/url/loc") {
		canonical, fetch, err := c.norm.Normalize(loc.InnerText(), sitemapURL)
		if err != nil || !c.norm.IsInternal(canonical) {
			continue
		}
		entries = append(entries, FrontierEntry{Canonical: canonical, Fetch: fetch})
	}
	for _, loc := range xmlquery.Find(doc, "//sitemapindex/sitemap/loc") {
		_, fetch, err := c.norm.Normalize(loc.InnerText(), sitemapURL)
		if err != nil || !c.norm.IsInternal(fetch) {
			continue
		}
		entries = append(entries, c.sitemapEntries(ctx, fetch, depth+1)...)
	}
	return entries
}
