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
	"context"
	"net/url"

	"github.com/temoto/robotstxt"
	"go.uber.org/zap"
)

// RobotsGate answers whether the site's archived robots.txt permitted a
// path. A nil gate, or one built without rules, permits everything.
type RobotsGate struct {
	group *robotstxt.Group
}

func (g *RobotsGate) Allowed(rawURL string) bool {
	if g == nil || g.group == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	return g.group.Test(p)
}

// loadRobots fetches the robots.txt capture nearest the primary timestamp.
// Failure to retrieve or parse it is never fatal; the crawl just proceeds
// ungated.
func (c *Crawler) loadRobots(ctx context.Context) {
	robotsURL := c.norm.Scheme() + "://" + c.norm.SiteHost() + "/robots.txt"
	result, _, err := c.fetchWithFallback(ctx, robotsURL)
	if err != nil {
		c.log.Debug("no archived robots.txt", zap.Error(err))
		return
	}
	robots, err := robotstxt.FromBytes(result.Body)
	if err != nil {
		c.log.Debug("unparseable archived robots.txt", zap.Error(err))
		return
	}
	c.robots = &RobotsGate{group: robots.FindGroup(c.policy.UserAgent)}
	c.log.Info("respecting archived robots.txt", zap.String("url", robotsURL))
}
