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
	"testing"
	"time"
)

func testCodec(t *testing.T) *SnapshotCodec {
	t.Helper()
	ts, err := ParseTimestamp("20080215120000")
	if err != nil {
		t.Fatalf("ParseTimestamp: %v", err)
	}
	return NewSnapshotCodec(ts)
}

func TestDecodeWrapper(t *testing.T) {
	tests := []struct {
		name         string
		wrapper      string
		wantOriginal string
		wantTS       string
		wantErr      bool
	}{
		{
			name:         "plain page wrapper",
			wrapper:      "https://web.archive.org/web/20080215120000/http://example.com/about.html",
			wantOriginal: "http://example.com/about.html",
			wantTS:       "20080215120000",
		},
		{
			name:         "asset wrapper with image tag",
			wrapper:      "https://web.archive.org/web/20080215120000im_/http://example.com/logo.png",
			wantOriginal: "http://example.com/logo.png",
			wantTS:       "20080215120000",
		},
		{
			name:         "http scheme wrapper",
			wrapper:      "http://web.archive.org/web/20080215120000cs_/http://example.com/site.css",
			wantOriginal: "http://example.com/site.css",
			wantTS:       "20080215120000",
		},
		{
			name:         "schemeless original gets http",
			wrapper:      "https://web.archive.org/web/20080215120000/example.com/page",
			wantOriginal: "http://example.com/page",
			wantTS:       "20080215120000",
		},
		{
			name:         "short timestamp is padded",
			wrapper:      "https://web.archive.org/web/2008/http://example.com/",
			wantOriginal: "http://example.com/",
			wantTS:       "20080101000000",
		},
		{
			name:    "not a wrapper",
			wrapper: "http://example.com/web/page",
			wantErr: true,
		},
		{
			name:    "wrong host",
			wrapper: "https://archive.example.org/web/20080215120000/http://example.com/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := DecodeWrapper(tt.wrapper)
			if tt.wantErr {
				if !errors.Is(err, ErrNotWrapperURL) {
					t.Fatalf("expected ErrNotWrapperURL, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeWrapper: %v", err)
			}
			if snap.OriginalURL != tt.wantOriginal {
				t.Errorf("original = %q, want %q", snap.OriginalURL, tt.wantOriginal)
			}
			if got := snap.Timestamp.Format(TimestampLayout); got != tt.wantTS {
				t.Errorf("timestamp = %s, want %s", got, tt.wantTS)
			}
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"20080215120000", "20080215120000"},
		{"2008", "20080101000000"},
		{"20080215", "20080215000000"},
		{"200802151200001234", "20080215120000"}, // extra digits truncated
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", tt.in, err)
		}
		if s := got.Format(TimestampLayout); s != tt.want {
			t.Errorf("ParseTimestamp(%q) = %s, want %s", tt.in, s, tt.want)
		}
	}

	if _, err := ParseTimestamp("20081315120000"); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestExtractOriginal(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		name  string
		in    string
		want  string
		found bool
	}{
		{
			name:  "asset tag",
			in:    "/web/20080215120000im_/http://example.com/logo.png",
			want:  "http://example.com/logo.png",
			found: true,
		},
		{
			name:  "page without tag",
			in:    "https://web.archive.org/web/20080215120000/http://example.com/about",
			want:  "http://example.com/about",
			found: true,
		},
		{
			name:  "protocol relative inside wrapper",
			in:    "/web/20080215120000cs_/https://fonts.googleapis.com/css?family=Lato",
			want:  "https://fonts.googleapis.com/css?family=Lato",
			found: true,
		},
		{
			name:  "mailto keeps address drops query",
			in:    "/web/20080215120000/mailto:info@example.com?subject=hi",
			want:  "mailto:info@example.com",
			found: true,
		},
		{
			name:  "tel target",
			in:    "/web/20080215120000/tel:+15551234567",
			want:  "tel:+15551234567",
			found: true,
		},
		{
			name:  "trailing punctuation trimmed",
			in:    `see /web/20080215120000/http://example.com/page).`,
			want:  "http://example.com/page",
			found: true,
		},
		{
			name:  "no embedded wrapper",
			in:    "http://example.com/page",
			found: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found := codec.ExtractOriginal(tt.in)
			if found != tt.found {
				t.Fatalf("found = %v, want %v", found, tt.found)
			}
			if found && got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// Extraction must be a fixed point: running it on its own output changes
// nothing.
func TestExtractOriginalIdempotent(t *testing.T) {
	codec := testCodec(t)
	in := "/web/20080215120000im_/http://example.com/logo.png"
	first, found := codec.ExtractOriginal(in)
	if !found {
		t.Fatal("expected extraction")
	}
	if second, again := codec.ExtractOriginal(first); again {
		t.Errorf("second extraction changed %q to %q", first, second)
	}
}

func TestEncode(t *testing.T) {
	codec := testCodec(t)

	tests := []struct {
		name string
		url  string
		want string
	}{
		{
			name: "page gets no tag",
			url:  "http://example.com/about.html",
			want: "https://web.archive.org/web/20080215120000/http://example.com/about.html",
		},
		{
			name: "image gets im_ tag",
			url:  "http://example.com/logo.png",
			want: "https://web.archive.org/web/20080215120000im_/http://example.com/logo.png",
		},
		{
			name: "stylesheet gets cs_ tag",
			url:  "http://example.com/site.css",
			want: "https://web.archive.org/web/20080215120000cs_/http://example.com/site.css",
		},
		{
			name: "script gets js_ tag",
			url:  "http://example.com/app.js",
			want: "https://web.archive.org/web/20080215120000js_/http://example.com/app.js",
		},
		{
			name: "already wrapped is returned unchanged",
			url:  "https://web.archive.org/web/20080215120000/http://example.com/",
			want: "https://web.archive.org/web/20080215120000/http://example.com/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := codec.Encode(tt.url, time.Time{}); got != tt.want {
				t.Errorf("Encode = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEncodeExplicitTimestamp(t *testing.T) {
	codec := testCodec(t)
	ts, _ := ParseTimestamp("20080215150000")
	got := codec.Encode("http://example.com/", ts)
	want := "https://web.archive.org/web/20080215150000/http://example.com/"
	if got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

// Decode then encode with the decoded timestamp reproduces an equivalent
// wrapper for page URLs.
func TestWrapperRoundTrip(t *testing.T) {
	codec := testCodec(t)
	wrapper := "https://web.archive.org/web/20080215120000/http://example.com/about.html"
	snap, err := DecodeWrapper(wrapper)
	if err != nil {
		t.Fatalf("DecodeWrapper: %v", err)
	}
	if got := codec.Encode(snap.OriginalURL, snap.Timestamp); got != wrapper {
		t.Errorf("round trip = %q, want %q", got, wrapper)
	}
}
