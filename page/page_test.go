package page

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wdanxna/LocalLLMTranslator/splice"
)

const sample = `<html><head><style>p { color: red }</style></head><body>
<p>The quick brown fox jumps over the lazy dog.</p>
<p>A second paragraph with more text.</p>
<script>var x = "quick brown";</script>
</body></html>`

func loadSample(t *testing.T) *Page {
	t.Helper()
	p, err := LoadString(sample)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return p
}

func TestFindText(t *testing.T) {
	p := loadSample(t)
	r := p.FindText("quick brown fox")
	if r == nil {
		t.Fatal("expected a match")
	}
	if got := r.Text(); got != "quick brown fox" {
		t.Fatalf("range text = %q", got)
	}
}

func TestFindTextSkipsScriptAndStyle(t *testing.T) {
	p := loadSample(t)
	// "color: red" only exists in the stylesheet.
	if r := p.FindText("color: red"); r != nil {
		t.Fatalf("matched style content: %q", r.Text())
	}
	if r := p.FindText(`var x`); r != nil {
		t.Fatalf("matched script content: %q", r.Text())
	}
}

func TestFindTextMissingAndEmpty(t *testing.T) {
	p := loadSample(t)
	if p.FindText("not on this page") != nil {
		t.Fatal("expected nil for absent text")
	}
	if p.FindText("") != nil {
		t.Fatal("expected nil for empty needle")
	}
}

func TestTranslateFindAndUndoAll(t *testing.T) {
	p := loadSample(t)

	r := p.FindText("quick brown fox")
	if _, err := splice.Replace(r, "quick brown fox", "敏捷的棕色狐狸"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	r2 := p.FindText("second paragraph")
	if _, err := splice.Replace(r2, "second paragraph", "第二段"); err != nil {
		t.Fatalf("replace: %v", err)
	}

	if got := len(p.Translations()); got != 2 {
		t.Fatalf("translations = %d, want 2", got)
	}

	n, err := p.UndoAll()
	if err != nil {
		t.Fatalf("undo all: %v", err)
	}
	if n != 2 {
		t.Fatalf("restored %d spans, want 2", n)
	}
	if len(p.Translations()) != 0 {
		t.Fatal("spans remain after undo")
	}
	out, err := p.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(out, "The quick brown fox jumps over the lazy dog.") {
		t.Fatalf("original text not restored:\n%s", out)
	}
}

func TestRenderRoundTrip(t *testing.T) {
	p := loadSample(t)
	out, err := p.Render()
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	again, err := LoadString(out)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if again.FindText("quick brown fox") == nil {
		t.Fatal("text lost in render round trip")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.html")
	if err := os.WriteFile(path, []byte(sample), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load file: %v", err)
	}
	if p.FindText("lazy dog") == nil {
		t.Fatal("file content not parsed")
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReport(t *testing.T) {
	p := loadSample(t)
	if got := p.Report(); got != "No translated spans.\n" {
		t.Fatalf("empty report = %q", got)
	}
	r := p.FindText("lazy dog")
	if _, err := splice.Replace(r, "lazy dog", "懒狗"); err != nil {
		t.Fatalf("replace: %v", err)
	}
	report := p.Report()
	if !strings.Contains(report, "1 translated span(s)") ||
		!strings.Contains(report, "| 1 | lazy dog | 懒狗 |") {
		t.Fatalf("report:\n%s", report)
	}
}

func TestMarkdown(t *testing.T) {
	p := loadSample(t)
	md, err := p.Markdown()
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if !strings.Contains(md, "The quick brown fox") {
		t.Fatalf("markdown lost body text:\n%s", md)
	}
	if strings.Contains(md, "color: red") {
		t.Fatalf("markdown leaked stylesheet:\n%s", md)
	}
}
