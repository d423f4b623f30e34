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
	"strings"
	"testing"
)

func testEngine(t *testing.T, policy *Policy, corrupted CorruptedSet) *RewriteEngine {
	t.Helper()
	if policy == nil {
		policy = DefaultPolicy()
	}
	if corrupted == nil {
		corrupted = NewCorruptedAssetRegistry()
	}
	return NewRewriteEngine(policy, testCodec(t), testNormalizer(t, WWWStrip), NewPathMapper(), corrupted)
}

func canonicals(entries []FrontierEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Canonical)
	}
	return out
}

func TestRewriteStylesheetLocalizesReferences(t *testing.T) {
	e := testEngine(t, nil, nil)

	css := `@import "theme.css";
body { background: url('../img/bg.png'); }
.icon { content: url(data:image/png;base64,AAAA); }
.ext { background: url(http://cdn.other.com/x.png); }`

	out, entries, suppressed := e.RewriteStylesheet(css, "http://example.com/css/site.css")
	if suppressed != 0 {
		t.Fatalf("suppressed = %d, want 0", suppressed)
	}
	if !strings.Contains(out, `@import "/css/theme.css"`) {
		t.Errorf("import not localized:\n%s", out)
	}
	if !strings.Contains(out, "url(/img/bg.png)") {
		t.Errorf("relative url not localized:\n%s", out)
	}
	if !strings.Contains(out, "url(data:image/png;base64,AAAA)") {
		t.Errorf("data url must stay untouched:\n%s", out)
	}
	if !strings.Contains(out, "url(http://cdn.other.com/x.png)") {
		t.Errorf("external url must stay untouched:\n%s", out)
	}

	want := []string{
		"http://example.com/css/theme.css",
		"http://example.com/img/bg.png",
	}
	got := canonicals(entries)
	if len(got) != len(want) {
		t.Fatalf("discoveries = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("discovery[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRewriteStylesheetUnwrapsArchivedExternals(t *testing.T) {
	e := testEngine(t, nil, nil)

	css := `.hero { background: url(https://web.archive.org/web/20080215120000im_/http://cdn.other.com/hero.jpg); }`
	out, entries, _ := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if !strings.Contains(out, "url(http://cdn.other.com/hero.jpg)") {
		t.Errorf("wrapped external not unwound:\n%s", out)
	}
	if len(entries) != 0 {
		t.Errorf("external reference must not be discovered, got %v", canonicals(entries))
	}
}

func TestRewriteStylesheetFontHost(t *testing.T) {
	e := testEngine(t, nil, nil)

	css := `@import url(https://fonts.googleapis.com/css?family=Roboto);`
	out, entries, _ := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if !strings.Contains(out, "url(/_fonts/fonts.googleapis.com/") {
		t.Errorf("font host url not mapped under _fonts:\n%s", out)
	}
	if len(entries) != 1 {
		t.Fatalf("discoveries = %v, want one font entry", canonicals(entries))
	}
	// Font-host references keep their query in the canonical identity so
	// distinct families stay distinct resources.
	if entries[0].Canonical != entries[0].Fetch {
		t.Errorf("font canonical %q != fetch %q", entries[0].Canonical, entries[0].Fetch)
	}
	if !strings.Contains(entries[0].Fetch, "family=Roboto") {
		t.Errorf("font fetch lost its query: %q", entries[0].Fetch)
	}
}

func TestRewriteStylesheetSuppressesCorruptedURL(t *testing.T) {
	reg := NewCorruptedAssetRegistry()
	reg.Mark("http://example.com/img/broken.png")
	e := testEngine(t, nil, reg)

	css := `.a { background: url(/img/broken.png); } .b { background: url(/img/ok.png); }`
	out, entries, suppressed := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
	if strings.Contains(out, "broken.png") {
		t.Errorf("corrupted reference survived:\n%s", out)
	}
	if !strings.Contains(out, "url()") {
		t.Errorf("corrupted url not collapsed to url():\n%s", out)
	}
	got := canonicals(entries)
	if len(got) != 1 || got[0] != "http://example.com/img/ok.png" {
		t.Errorf("discoveries = %v, want only the intact asset", got)
	}
}

func TestRewriteStylesheetStripsCorruptedFontSources(t *testing.T) {
	reg := NewCorruptedAssetRegistry()
	reg.Mark("http://example.com/fonts/brand.woff2")
	e := testEngine(t, nil, reg)

	css := `@font-face {
  font-family: Brand;
  src: url(/fonts/brand.woff2) format("woff2"), url(/fonts/brand.woff) format("woff");
}`
	out, entries, suppressed := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
	if strings.Contains(out, "brand.woff2") {
		t.Errorf("corrupted source survived:\n%s", out)
	}
	if !strings.Contains(out, `src: url(/fonts/brand.woff) format("woff");`) {
		t.Errorf("intact source mangled:\n%s", out)
	}
	if strings.Contains(out, ",,") || strings.Contains(out, ", ;") || strings.Contains(out, ",;") {
		t.Errorf("dangling comma left behind:\n%s", out)
	}
	got := canonicals(entries)
	if len(got) != 1 || got[0] != "http://example.com/fonts/brand.woff" {
		t.Errorf("discoveries = %v, want only the surviving font", got)
	}
}

func TestRewriteStylesheetDropsFullyCorruptedSrc(t *testing.T) {
	reg := NewCorruptedAssetRegistry()
	reg.Mark("http://example.com/fonts/bad.woff2")
	e := testEngine(t, nil, reg)

	css := `@font-face { font-family: Bad; src: url(/fonts/bad.woff2); }`
	out, _, suppressed := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if suppressed != 1 {
		t.Fatalf("suppressed = %d, want 1", suppressed)
	}
	if strings.Contains(out, "src") || strings.Contains(out, "bad.woff2") {
		t.Errorf("empty src declaration must be removed entirely:\n%s", out)
	}
	if !strings.Contains(out, "font-family: Bad;") {
		t.Errorf("surrounding declarations mangled:\n%s", out)
	}
}

func TestRewriteStylesheetIgnoresComments(t *testing.T) {
	e := testEngine(t, nil, nil)

	css := `/* url(/img/commented.png) */ body { color: red; }`
	_, entries, _ := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if len(entries) != 0 {
		t.Errorf("commented-out reference discovered: %v", canonicals(entries))
	}
}

func TestRewriteStylesheetDeduplicates(t *testing.T) {
	e := testEngine(t, nil, nil)

	css := `.a { background: url(/img/bg.png); } .b { background: url(/img/bg.png?); }`
	_, entries, _ := e.RewriteStylesheet(css, "http://example.com/css/site.css")

	if len(entries) != 1 {
		t.Errorf("duplicate reference not collapsed: %v", canonicals(entries))
	}
}
