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
	"net/http"
	"net/url"
	"path"
	"strings"
)

// MediaKind tags a fetched payload for dispatch. Each transformable kind has
// exactly one handler in the crawl loop.
type MediaKind string

const (
	KindDocument   MediaKind = "document"
	KindStylesheet MediaKind = "stylesheet"
	KindScript     MediaKind = "script"
	KindImage      MediaKind = "image"
	KindFont       MediaKind = "font"
	KindOther      MediaKind = "other"
)

// IsText reports whether payloads of this kind are persisted as UTF-8 text.
func (k MediaKind) IsText() bool {
	switch k {
	case KindDocument, KindStylesheet, KindScript:
		return true
	}
	return false
}

// ContentInfo is the classification result. ImageFormat carries the image
// subtype ("png", "jpeg", ...) when Kind is KindImage.
type ContentInfo struct {
	Kind        MediaKind
	ImageFormat string
}

var extensionKinds = map[string]ContentInfo{
	".html": {Kind: KindDocument},
	".htm":  {Kind: KindDocument},
	".css":  {Kind: KindStylesheet},
	".js":   {Kind: KindScript},
	".mjs":  {Kind: KindScript},
	".jpg":  {Kind: KindImage, ImageFormat: "jpeg"},
	".jpeg": {Kind: KindImage, ImageFormat: "jpeg"},
	".png":  {Kind: KindImage, ImageFormat: "png"},
	".gif":  {Kind: KindImage, ImageFormat: "gif"},
	".webp": {Kind: KindImage, ImageFormat: "webp"},
	".svg":  {Kind: KindImage, ImageFormat: "svg"},
	".ico":  {Kind: KindImage, ImageFormat: "ico"},
	".bmp":  {Kind: KindImage, ImageFormat: "bmp"},
	".woff": {Kind: KindFont}, ".woff2": {Kind: KindFont},
	".ttf": {Kind: KindFont}, ".eot": {Kind: KindFont}, ".otf": {Kind: KindFont},
}

// ClassifyContent determines a payload's media kind. Precedence: an explicit,
// specific Content-Type header wins; then the URL path extension; then byte
// signature sniffing. Anything unresolved is KindOther and is persisted
// verbatim with no further processing.
func ClassifyContent(rawURL string, header http.Header, payload []byte) ContentInfo {
	if info, ok := kindFromContentType(header.Get("Content-Type")); ok {
		return info
	}
	if info, ok := kindFromExtension(rawURL); ok {
		return info
	}
	if info, ok := kindFromSignature(payload); ok {
		return info
	}
	// Extensionless URLs with no better evidence are treated as pages, the
	// way the archive serves them.
	if u, err := url.Parse(rawURL); err == nil {
		if base := path.Base(u.Path); path.Ext(base) == "" {
			return ContentInfo{Kind: KindDocument}
		}
	}
	return ContentInfo{Kind: KindOther}
}

func kindFromContentType(contentType string) (ContentInfo, bool) {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	switch {
	case ct == "text/html", ct == "application/xhtml+xml":
		return ContentInfo{Kind: KindDocument}, true
	case ct == "text/css":
		return ContentInfo{Kind: KindStylesheet}, true
	case ct == "application/javascript", ct == "text/javascript",
		ct == "application/x-javascript":
		return ContentInfo{Kind: KindScript}, true
	case strings.HasPrefix(ct, "image/"):
		return ContentInfo{Kind: KindImage, ImageFormat: strings.TrimPrefix(ct, "image/")}, true
	case strings.HasPrefix(ct, "font/"), ct == "application/font-woff",
		ct == "application/vnd.ms-fontobject":
		return ContentInfo{Kind: KindFont}, true
	}
	// Generic or absent content types fall through to the URL and payload
	// heuristics; the archive frequently serves octet-stream for assets.
	return ContentInfo{}, false
}

// expectedKind is the media kind a URL's extension promises, or "" when the
// extension is unknown or absent.
func expectedKind(rawURL string) MediaKind {
	if info, ok := kindFromExtension(rawURL); ok {
		return info.Kind
	}
	return ""
}

func kindFromExtension(rawURL string) (ContentInfo, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ContentInfo{}, false
	}
	ext := strings.ToLower(path.Ext(u.Path))
	info, ok := extensionKinds[ext]
	return info, ok
}

func kindFromSignature(payload []byte) (ContentInfo, bool) {
	if len(payload) == 0 {
		return ContentInfo{}, false
	}
	head := payload
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := bytes.TrimLeft(head, " \t\r\n")

	switch {
	case bytes.HasPrefix(payload, []byte("\x89PNG")):
		return ContentInfo{Kind: KindImage, ImageFormat: "png"}, true
	case bytes.HasPrefix(payload, []byte("\xff\xd8\xff")):
		return ContentInfo{Kind: KindImage, ImageFormat: "jpeg"}, true
	case bytes.HasPrefix(payload, []byte("GIF8")):
		return ContentInfo{Kind: KindImage, ImageFormat: "gif"}, true
	case bytes.HasPrefix(payload, []byte("RIFF")) && bytes.Contains(head[:min(12, len(head))], []byte("WEBP")):
		return ContentInfo{Kind: KindImage, ImageFormat: "webp"}, true
	case bytes.HasPrefix(payload, []byte("wOFF")), bytes.HasPrefix(payload, []byte("wOF2")):
		return ContentInfo{Kind: KindFont}, true
	case hasFoldPrefix(trimmed, "<!doctype"), hasFoldPrefix(trimmed, "<html"):
		return ContentInfo{Kind: KindDocument}, true
	case hasFoldPrefix(trimmed, "<?xml") && bytes.Contains(head, []byte("<svg")),
		hasFoldPrefix(trimmed, "<svg"):
		return ContentInfo{Kind: KindImage, ImageFormat: "svg"}, true
	case bytes.HasPrefix(trimmed, []byte("/*")), hasFoldPrefix(trimmed, "@charset"),
		bytes.Contains(head, []byte("@media")), bytes.Contains(head, []byte("@font-face")):
		return ContentInfo{Kind: KindStylesheet}, true
	}
	return ContentInfo{}, false
}

func hasFoldPrefix(b []byte, prefix string) bool {
	if len(b) < len(prefix) {
		return false
	}
	return strings.EqualFold(string(b[:len(prefix)]), prefix)
}
