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

// Package config loads mirror settings from the environment and an optional
// .env file. Every knob can also be set programmatically on the Policy; this
// package only exists so runs are reproducible from a checked-in .env.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/agentberlin/waymirror"
)

// Settings is the resolved CLI configuration: the seed wrapper URL plus the
// policy it implies.
type Settings struct {
	WaybackURL string
	Policy     *waymirror.Policy
}

// Load reads the given .env file (if it exists) and the process environment,
// environment winning, and maps the result onto a Policy. Two external-link
// modes enabled at once is a hard error.
func Load(envFile string) (*Settings, error) {
	v := viper.New()
	v.AutomaticEnv()

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read %s: %w", envFile, err)
			}
		}
	}

	setDefaults(v)

	policy := waymirror.DefaultPolicy()
	policy.OutputDir = v.GetString("OUTPUT_DIR")
	policy.OptimizeHTML = v.GetBool("OPTIMIZE_HTML")
	policy.OptimizeImages = v.GetBool("OPTIMIZE_IMAGES")
	policy.MinifyJS = v.GetBool("MINIFY_JS")
	policy.MinifyCSS = v.GetBool("MINIFY_CSS")
	policy.RemoveTrackers = v.GetBool("REMOVE_TRACKERS")
	policy.RemoveAds = v.GetBool("REMOVE_ADS")
	policy.NeutralizeContacts = v.GetBool("REMOVE_CLICKABLE_CONTACTS")
	policy.RemoveExternalIframes = v.GetBool("REMOVE_EXTERNAL_IFRAMES")
	policy.RewriteInternalLinks = v.GetBool("MAKE_INTERNAL_LINKS_RELATIVE")
	policy.MaxDocuments = v.GetInt("MAX_FILES")
	policy.RespectRobots = v.GetBool("RESPECT_ROBOTS")
	policy.DiscoverSitemap = v.GetBool("DISCOVER_SITEMAP")
	if ua := v.GetString("USER_AGENT"); ua != "" {
		policy.UserAgent = ua
	}
	if secs := v.GetInt("FETCH_TIMEOUT_SECS"); secs > 0 {
		policy.FetchTimeout = time.Duration(secs) * time.Second
	}
	if ms := v.GetInt("FETCH_DELAY_MS"); ms > 0 {
		policy.FetchDelay = time.Duration(ms) * time.Millisecond
	}

	keepAnchors := v.GetBool("REMOVE_EXTERNAL_LINKS_KEEP_ANCHORS")
	removeAnchors := v.GetBool("REMOVE_EXTERNAL_LINKS_REMOVE_ANCHORS")
	switch {
	case keepAnchors && removeAnchors:
		return nil, fmt.Errorf("REMOVE_EXTERNAL_LINKS_KEEP_ANCHORS and REMOVE_EXTERNAL_LINKS_REMOVE_ANCHORS are both set: %w",
			waymirror.ErrConflictingLinkModes)
	case removeAnchors:
		policy.ExternalLinks = waymirror.ExternalDrop
	case keepAnchors:
		policy.ExternalLinks = waymirror.ExternalNeutralize
	default:
		policy.ExternalLinks = waymirror.ExternalKeep
	}

	makeWWW := v.GetBool("MAKE_WWW")
	makeNonWWW := v.GetBool("MAKE_NON_WWW")
	switch {
	case makeWWW && makeNonWWW:
		return nil, fmt.Errorf("MAKE_WWW and MAKE_NON_WWW are both set: %w", waymirror.ErrConflictingLinkModes)
	case makeWWW:
		policy.WWW = waymirror.WWWAdd
	case makeNonWWW:
		policy.WWW = waymirror.WWWStrip
	default:
		policy.WWW = waymirror.WWWKeep
	}

	return &Settings{
		WaybackURL: v.GetString("WAYBACK_URL"),
		Policy:     policy,
	}, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("OUTPUT_DIR", "./output")
	v.SetDefault("OPTIMIZE_HTML", true)
	v.SetDefault("OPTIMIZE_IMAGES", false)
	v.SetDefault("MINIFY_JS", false)
	v.SetDefault("MINIFY_CSS", false)
	v.SetDefault("REMOVE_TRACKERS", true)
	v.SetDefault("REMOVE_ADS", true)
	v.SetDefault("REMOVE_CLICKABLE_CONTACTS", true)
	v.SetDefault("REMOVE_EXTERNAL_IFRAMES", false)
	v.SetDefault("REMOVE_EXTERNAL_LINKS_KEEP_ANCHORS", true)
	v.SetDefault("REMOVE_EXTERNAL_LINKS_REMOVE_ANCHORS", false)
	v.SetDefault("MAKE_INTERNAL_LINKS_RELATIVE", true)
	v.SetDefault("MAKE_NON_WWW", true)
	v.SetDefault("MAKE_WWW", false)
	v.SetDefault("MAX_FILES", 0)
	v.SetDefault("RESPECT_ROBOTS", false)
	v.SetDefault("DISCOVER_SITEMAP", false)
}
