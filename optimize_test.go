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
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
)

func TestOptimizeHTML(t *testing.T) {
	in := "<html>\n   <body>\n\n\n\n      <p>hi</p>   \n   </body>\n</html>"
	out := string(OptimizeHTML([]byte(in)))

	if strings.Contains(out, "   ") {
		t.Errorf("indentation survived:\n%q", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("blank-line run survived:\n%q", out)
	}
	if !strings.Contains(out, "<p>hi</p>") {
		t.Errorf("content lost:\n%q", out)
	}
}

func TestOptimizeHTMLKeepsInlineWhitespace(t *testing.T) {
	in := "<b>one</b> <i>two</i>"
	if out := string(OptimizeHTML([]byte(in))); out != in {
		t.Errorf("inline whitespace changed: %q", out)
	}
}

func TestMinifyCSS(t *testing.T) {
	in := `/* banner */
body {
  color : red ;
  margin : 0 ;
}`
	out := MinifyCSS(in)

	if out != "body{color:red;margin:0}" {
		t.Errorf("MinifyCSS = %q", out)
	}
}

func TestMinifyCSSLeavesQuotedContentAlone(t *testing.T) {
	in := `a::before { content: "hello   world"; }`
	if out := MinifyCSS(in); out != in {
		t.Errorf("quoted stylesheet changed: %q", out)
	}
}

func TestMinifyCSSToleratesQuotedURLs(t *testing.T) {
	in := `body { background: url("/img/bg.png"); }`
	out := MinifyCSS(in)
	if !strings.Contains(out, `url("/img/bg.png")`) {
		t.Errorf("url token mangled: %q", out)
	}
	if strings.Contains(out, " {") {
		t.Errorf("whitespace not collapsed: %q", out)
	}
}

func TestMinifyJS(t *testing.T) {
	in := "// header comment\nvar a = 1;   \n\n\n\nvar b = a / 2; // not a whole-line comment\n"
	out := MinifyJS(in)

	if strings.Contains(out, "header comment") {
		t.Errorf("whole-line comment survived: %q", out)
	}
	if !strings.Contains(out, "// not a whole-line comment") {
		t.Errorf("trailing comment must survive: %q", out)
	}
	if strings.Contains(out, "\n\n\n") {
		t.Errorf("blank run survived: %q", out)
	}
	if !strings.Contains(out, "var a = 1;") || !strings.Contains(out, "var b = a / 2;") {
		t.Errorf("code lost: %q", out)
	}
}

func TestOptimizeImagePNG(t *testing.T) {
	// A large flat image compresses much better at BestCompression.
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 10, B: 10, A: 255})
		}
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.NoCompression}
	if err := enc.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out := OptimizeImage(buf.Bytes(), "png")
	if len(out) >= buf.Len() {
		t.Errorf("re-encoded size %d, want smaller than %d", len(out), buf.Len())
	}
	if _, err := png.Decode(bytes.NewReader(out)); err != nil {
		t.Errorf("optimized payload not decodable: %v", err)
	}
}

func TestOptimizeImageKeepsUndecodablePayload(t *testing.T) {
	payload := []byte("\x89PNG but not really")
	if out := OptimizeImage(payload, "png"); !bytes.Equal(out, payload) {
		t.Error("undecodable payload changed")
	}
}

func TestOptimizeImagePassesThroughOtherFormats(t *testing.T) {
	payload := []byte("GIF89a...")
	if out := OptimizeImage(payload, "gif"); !bytes.Equal(out, payload) {
		t.Error("gif payload changed")
	}
}
