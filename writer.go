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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/saintfish/chardet"
	"golang.org/x/text/encoding/htmlindex"
)

// MirrorWriter materializes payloads under the output root. Textual payloads
// are normalized to UTF-8 before hitting disk so the mirror renders without
// charset metadata.
type MirrorWriter struct {
	root     string
	detector *chardet.Detector
}

func NewMirrorWriter(root string) *MirrorWriter {
	return &MirrorWriter{
		root:     root,
		detector: chardet.NewTextDetector(),
	}
}

// Root returns the mirror's output directory.
func (w *MirrorWriter) Root() string { return w.root }

// Write stores a payload at a mirror-relative path, creating parent
// directories as needed. Textual payloads get a final lossy UTF-8 pass so a
// stray invalid byte never produces mojibake in the browser.
func (w *MirrorWriter) Write(relPath string, payload []byte, textual bool) error {
	if textual {
		payload = []byte(strings.ToValidUTF8(string(payload), "�"))
	}
	target := filepath.Join(w.root, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(target), 0750); err != nil {
		return fmt.Errorf("write %q: %w", relPath, err)
	}
	if err := os.WriteFile(target, payload, 0644); err != nil {
		return fmt.Errorf("write %q: %w", relPath, err)
	}
	return nil
}

// Read loads a previously materialized payload back from the mirror.
func (w *MirrorWriter) Read(relPath string) ([]byte, error) {
	payload, err := os.ReadFile(filepath.Join(w.root, filepath.FromSlash(relPath)))
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", relPath, err)
	}
	return payload, nil
}

// DecodeText converts a textual payload to UTF-8. The declared charset wins;
// without one, already-valid UTF-8 is passed through and anything else goes
// through charset detection. Decoding failures fall back to the raw bytes,
// which Write sanitizes.
func (w *MirrorWriter) DecodeText(payload []byte, contentType string) string {
	if name := charsetFromContentType(contentType); name != "" {
		if out, ok := decodeCharset(payload, name); ok {
			return out
		}
	}
	if utf8.Valid(payload) {
		return string(payload)
	}
	if best, err := w.detector.DetectBest(payload); err == nil && best.Charset != "" {
		if out, ok := decodeCharset(payload, best.Charset); ok {
			return out
		}
	}
	return string(payload)
}

func decodeCharset(payload []byte, name string) (string, bool) {
	enc, err := htmlindex.Get(name)
	if err != nil {
		return "", false
	}
	out, err := enc.NewDecoder().Bytes(payload)
	if err != nil {
		return "", false
	}
	return string(out), true
}

func charsetFromContentType(contentType string) string {
	for _, part := range strings.Split(contentType, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(strings.ToLower(part), "charset="); ok {
			return strings.Trim(rest, `"'`)
		}
	}
	return ""
}
