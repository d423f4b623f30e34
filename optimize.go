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

// optimize.go holds the pure payload transforms applied after rewriting.
// Every transform is deliberately conservative: when in doubt it returns the
// input unchanged, because a byte saved is never worth a broken page.

package waymirror

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"regexp"
	"strings"
)

var (
	htmlBlankLinesRe   = regexp.MustCompile(`(?m)^[ \t]+|[ \t]+$`)
	htmlManyNewlinesRe = regexp.MustCompile(`\n{3,}`)
	cssWhitespaceRe    = regexp.MustCompile(`\s+`)
	cssSpacedPunctRe   = regexp.MustCompile(`\s*([{};:,>])\s*`)
	jsLineCommentRe    = regexp.MustCompile(`(?m)^\s*//[^\n]*$`)
)

// OptimizeHTML trims indentation and collapses blank-line runs. Tag-level
// minification is intentionally avoided since whitespace between inline
// elements is significant.
func OptimizeHTML(payload []byte) []byte {
	out := htmlBlankLinesRe.ReplaceAll(payload, nil)
	out = htmlManyNewlinesRe.ReplaceAll(out, []byte("\n\n"))
	return out
}

// MinifyCSS removes comments and collapses whitespace around punctuation.
// String-literal content may contain significant whitespace, so stylesheets
// containing quotes outside url() are left untouched.
func MinifyCSS(css string) string {
	stripped := cssCommentRe.ReplaceAllString(css, "")
	if containsBareQuote(stripped) {
		return css
	}
	out := cssWhitespaceRe.ReplaceAllString(stripped, " ")
	out = cssSpacedPunctRe.ReplaceAllString(out, "$1")
	out = strings.ReplaceAll(out, ";}", "}")
	return strings.TrimSpace(out)
}

// containsBareQuote reports whether css has a quote character that is not
// part of a url(...) token.
func containsBareQuote(css string) bool {
	without := cssURLRe.ReplaceAllString(css, "url()")
	without = cssImportRe.ReplaceAllString(without, "@import x")
	return strings.ContainsAny(without, `"'`)
}

// MinifyJS only removes whole-line comments and trailing whitespace. Real
// minification needs a parser; mangling someone's archived script is worse
// than shipping it verbatim.
func MinifyJS(js string) string {
	out := jsLineCommentRe.ReplaceAllString(js, "")
	lines := strings.Split(out, "\n")
	kept := lines[:0]
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" && len(kept) > 0 && kept[len(kept)-1] == "" {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, "\n")
}

// OptimizeImage re-encodes JPEG and PNG payloads and keeps the smaller of
// the two encodings. Other formats pass through untouched.
func OptimizeImage(payload []byte, format string) []byte {
	switch format {
	case "jpeg", "jpg":
		return reencode(payload, func(buf *bytes.Buffer, img image.Image) error {
			return jpeg.Encode(buf, img, &jpeg.Options{Quality: 85})
		})
	case "png":
		return reencode(payload, func(buf *bytes.Buffer, img image.Image) error {
			enc := png.Encoder{CompressionLevel: png.BestCompression}
			return enc.Encode(buf, img)
		})
	}
	return payload
}

func reencode(payload []byte, encode func(*bytes.Buffer, image.Image) error) []byte {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return payload
	}
	var buf bytes.Buffer
	if err := encode(&buf, img); err != nil || buf.Len() >= len(payload) {
		return payload
	}
	return buf.Bytes()
}
