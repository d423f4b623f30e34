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
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotWrapperURL is returned when a URL does not match the archive wrapper form
	ErrNotWrapperURL = errors.New("not an archive wrapper URL")
	// ErrSnapshotNotFound is returned when the archive has no capture of a resource
	ErrSnapshotNotFound = errors.New("snapshot not found")
	// ErrFetchTransient is returned on timeouts, connection failures and server errors
	ErrFetchTransient = errors.New("transient fetch failure")
	// ErrCorruptedAsset is returned when a payload's media kind mismatches its declared kind
	ErrCorruptedAsset = errors.New("corrupted asset")
	// ErrConflictingLinkModes is returned when both external-link removal modes are requested
	ErrConflictingLinkModes = errors.New("drop and neutralize external-link modes are mutually exclusive")
	// ErrNoPattern is the error type for LimitRules without patterns
	ErrNoPattern = errors.New("no pattern defined in LimitRule")
)

// ExternalLinkMode controls what happens to references that leave the mirrored site
type ExternalLinkMode string

const (
	// ExternalKeep leaves external references unmodified (wrapper-unwrapped only)
	ExternalKeep ExternalLinkMode = "keep"
	// ExternalNeutralize replaces the element with its visible text content
	ExternalNeutralize ExternalLinkMode = "neutralize"
	// ExternalDrop removes the element entirely
	ExternalDrop ExternalLinkMode = "drop"
)

// WWWMode controls www-prefix normalization of the mirrored site's host
type WWWMode string

const (
	// WWWKeep leaves hosts as found
	WWWKeep WWWMode = "keep"
	// WWWStrip removes a leading www. from hosts
	WWWStrip WWWMode = "strip"
	// WWWAdd prepends www. to bare hosts
	WWWAdd WWWMode = "add"
)

// Policy is the immutable configuration snapshot for one mirror run.
// Construct it with DefaultPolicy, adjust fields, then pass it to NewCrawler;
// it is read-only after that.
type Policy struct {
	// OutputDir is the root of the materialized mirror tree
	OutputDir string

	// RemoveTrackers strips analytics/tracker scripts by reference and by
	// inline content pattern, including cookie-consent containers
	RemoveTrackers bool
	// RemoveAds strips elements whose reference matches known ad patterns
	RemoveAds bool
	// RemoveExternalIframes strips iframes hosted off-site
	RemoveExternalIframes bool
	// NeutralizeContacts disables clickable tel:/mailto:/sms: references,
	// except inside preserve containers
	NeutralizeContacts bool

	// ExternalLinks selects how external references are handled
	ExternalLinks ExternalLinkMode
	// RewriteInternalLinks rewrites every same-site reference to the local
	// path the resource is saved under
	RewriteInternalLinks bool
	// WWW selects the www-normalization direction
	WWW WWWMode

	// MaxDocuments stops admitting new fetches once reached (0 = unlimited)
	MaxDocuments int

	// Optimizer toggles. Each optimizer is a pure payload transform and
	// returns its input unchanged on internal error.
	OptimizeHTML   bool
	MinifyCSS      bool
	MinifyJS       bool
	OptimizeImages bool

	// RespectRobots honors Disallow rules from the site's archived robots.txt
	// for page admission. The archive itself imposes no such rules.
	RespectRobots bool
	// DiscoverSitemap seeds the frontier from the snapshot's sitemap.xml
	DiscoverSitemap bool

	// FetchTimeout bounds every single archive request
	FetchTimeout time.Duration
	// FetchDelay is the politeness delay between archive requests
	FetchDelay time.Duration
	// UserAgent is sent on every archive request
	UserAgent string
}

// DefaultPolicy returns a Policy matching the defaults of the original
// environment-driven configuration: trackers and ads removed, contacts
// neutralized, internal links rewritten, external links neutralized with
// their text kept, www stripped, document optimization on.
func DefaultPolicy() *Policy {
	return &Policy{
		OutputDir:            "./output",
		RemoveTrackers:       true,
		RemoveAds:            true,
		NeutralizeContacts:   true,
		ExternalLinks:        ExternalNeutralize,
		RewriteInternalLinks: true,
		WWW:                  WWWStrip,
		OptimizeHTML:         true,
		FetchTimeout:         30 * time.Second,
		UserAgent:            "waymirror/1.0 (+https://github.com/agentberlin/waymirror)",
	}
}

// Validate checks the Policy for inconsistent settings.
func (p *Policy) Validate() error {
	switch p.ExternalLinks {
	case ExternalKeep, ExternalNeutralize, ExternalDrop, "":
	default:
		return fmt.Errorf("invalid external-link mode %q", p.ExternalLinks)
	}
	switch p.WWW {
	case WWWKeep, WWWStrip, WWWAdd, "":
	default:
		return fmt.Errorf("invalid www mode %q", p.WWW)
	}
	if p.MaxDocuments < 0 {
		return fmt.Errorf("max documents must not be negative, got %d", p.MaxDocuments)
	}
	if p.OutputDir == "" {
		return errors.New("output directory is required")
	}
	return nil
}
