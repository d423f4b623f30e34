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

// snapshot.go implements the codec between live URLs and the archive's
// wrapper URL form: http(s)://web.archive.org/web/<timestamp>[tag]/<original>.
// The timestamp is YYYYMMDDHHMMSS; the optional tag selects the served
// variant (im_ image, cs_ stylesheet, js_ script, if_ frame, ...).

package waymirror

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimestampLayout is the archive's capture timestamp format
const TimestampLayout = "20060102150405"

const archiveHost = "web.archive.org"

// Snapshot identifies one archived capture: a moment in time and the URL
// the capture was taken of.
type Snapshot struct {
	Timestamp   time.Time
	OriginalURL string
}

var (
	wrapperRe = regexp.MustCompile(`^https?://web\.archive\.org/web/(\d+)([a-z]{2}_)?/(.+)$`)

	// Embedded wrapper patterns, most specific first. Asset-tagged captures
	// are matched before plain page captures so the tag is never swallowed
	// into the timestamp digits.
	embeddedAssetRe = regexp.MustCompile(`/web/\d+(?:im_|cs_|js_|jm_|if_|oe_)/(https?://[^"'\s<>)]+)`)
	embeddedPageRe  = regexp.MustCompile(`/web/\d+[a-z_]*/(https?://[^"'\s<>)]+)`)
	embeddedProtoRe = regexp.MustCompile(`/web/\d+[a-z_]*/((?:mailto|tel|sms|whatsapp|callto):[^"'\s<>)]+)`)

	imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico", ".bmp"}
)

// SnapshotCodec translates between live URLs and wrapper URLs for one run.
// The primary timestamp is used whenever the caller does not supply one.
type SnapshotCodec struct {
	primary time.Time
}

// NewSnapshotCodec returns a codec anchored at the given primary capture time.
func NewSnapshotCodec(primary time.Time) *SnapshotCodec {
	return &SnapshotCodec{primary: primary}
}

// Primary returns the run's primary capture timestamp.
func (c *SnapshotCodec) Primary() time.Time {
	return c.primary
}

// DecodeWrapper parses a wrapper URL into its capture timestamp and original
// URL. It returns ErrNotWrapperURL when the shape does not match. An original
// URL lacking a scheme is given http://.
func DecodeWrapper(wrapper string) (Snapshot, error) {
	m := wrapperRe.FindStringSubmatch(wrapper)
	if m == nil {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotWrapperURL, wrapper)
	}

	ts, err := ParseTimestamp(m[1])
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNotWrapperURL, wrapper)
	}

	original := m[3]
	if !strings.HasPrefix(original, "http://") && !strings.HasPrefix(original, "https://") {
		original = "http://" + original
	}

	return Snapshot{Timestamp: ts, OriginalURL: original}, nil
}

// ParseTimestamp parses an archive capture timestamp. Timestamps shorter
// than the full 14 digits are completed with the earliest calendar defaults
// (January 1st, midnight), the way the archive resolves such prefixes.
func ParseTimestamp(s string) (time.Time, error) {
	const defaults = "19700101000000"
	if len(s) < 4 {
		return time.Time{}, fmt.Errorf("capture timestamp %q too short", s)
	}
	if len(s) > len(TimestampLayout) {
		s = s[:len(TimestampLayout)]
	}
	if len(s) < len(TimestampLayout) {
		s = s + defaults[len(s):]
	}
	return time.Parse(TimestampLayout, s)
}

// ExtractOriginal scans text for an embedded wrapper pattern and returns the
// embedded original URL. It handles absolute, protocol-relative and path-only
// forms, trims trailing punctuation, and recognizes contact schemes
// (mailto:, tel:, sms:, whatsapp:, callto:) wrapped the same way. The second
// return value reports whether anything was found.
func (c *SnapshotCodec) ExtractOriginal(text string) (string, bool) {
	if text == "" {
		return "", false
	}
	if strings.HasPrefix(text, "//") {
		text = "https:" + text
	}

	if m := embeddedAssetRe.FindStringSubmatch(text); m != nil {
		return trimTrailingPunct(m[1]), true
	}
	if m := embeddedPageRe.FindStringSubmatch(text); m != nil {
		return trimTrailingPunct(m[1]), true
	}
	if m := embeddedProtoRe.FindStringSubmatch(text); m != nil {
		// Contact targets carry no meaningful query; the archive appends
		// replay parameters there.
		target := m[1]
		if i := strings.IndexAny(target, "?&"); i >= 0 {
			target = target[:i]
		}
		return trimTrailingPunct(target), true
	}
	return "", false
}

// Encode builds the wrapper URL serving originalURL at the given capture
// time. A zero ts uses the run's primary timestamp. The asset-kind tag is
// chosen from the URL's file extension. An already-wrapped input is returned
// unchanged.
func (c *SnapshotCodec) Encode(originalURL string, ts time.Time) string {
	if strings.HasPrefix(originalURL, "http://"+archiveHost) ||
		strings.HasPrefix(originalURL, "https://"+archiveHost) {
		return originalURL
	}
	if ts.IsZero() {
		ts = c.primary
	}
	return fmt.Sprintf("https://%s/web/%s%s/%s",
		archiveHost, ts.Format(TimestampLayout), assetTag(originalURL), originalURL)
}

// assetTag picks the archive's served-variant tag from a URL's extension.
// Pages and unknown kinds get no tag.
func assetTag(rawURL string) string {
	p := strings.ToLower(rawURL)
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	for _, ext := range imageExtensions {
		if strings.HasSuffix(p, ext) {
			return "im_"
		}
	}
	switch {
	case strings.HasSuffix(p, ".css"):
		return "cs_"
	case strings.HasSuffix(p, ".js"), strings.HasSuffix(p, ".mjs"):
		return "js_"
	}
	return ""
}

func trimTrailingPunct(s string) string {
	return strings.TrimRight(s, `.,;:)'"`)
}
