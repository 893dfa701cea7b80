package splice

import (
	"bytes"
	"strings"
	"testing"

	"golang.org/x/net/html"

	"github.com/wdanxna/LocalLLMTranslator/selection"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func render(t *testing.T, n *html.Node) string {
	t.Helper()
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		t.Fatal(err)
	}
	return buf.String()
}

func findText(t *testing.T, root *html.Node, sub string) *html.Node {
	t.Helper()
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.TextNode && strings.Contains(n.Data, sub) {
			found = n
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)
	if found == nil {
		t.Fatalf("no text node containing %q", sub)
	}
	return found
}

func rangeOver(t *testing.T, root *html.Node, sub string) *selection.Range {
	t.Helper()
	n := findText(t, root, sub)
	start := len([]rune(n.Data[:strings.Index(n.Data, sub)]))
	r, err := selection.New(n, start, n, start+len([]rune(sub)))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestReplaceBuildsCompositeNode(t *testing.T) {
	doc := parse(t, `<p>say hello world loudly</p>`)
	r := rangeOver(t, doc, "hello world")

	node, err := Replace(r, "hello world", "你好世界")
	if err != nil {
		t.Fatal(err)
	}

	if !IsTranslation(node) {
		t.Fatal("inserted node must satisfy the translation predicate")
	}
	if got := OriginalText(node); got != "hello world" {
		t.Errorf("original attribute = %q", got)
	}
	if got := TranslatedText(node); got != "你好世界" {
		t.Errorf("translated attribute = %q", got)
	}

	out := render(t, doc)
	if !strings.Contains(out, `data-original-text="hello world"`) {
		t.Errorf("rendered markup missing original attribute: %s", out)
	}
	if !strings.Contains(out, "你好世界 <span class=\"llm-translated-original\">(hello world)</span>") {
		t.Errorf("rendered composite content wrong: %s", out)
	}
	// Surrounding text is preserved on both sides.
	if !strings.Contains(out, "say ") || !strings.Contains(out, " loudly") {
		t.Errorf("surrounding text lost: %s", out)
	}
}

func TestReplaceExactlyOneNode(t *testing.T) {
	doc := parse(t, `<p>one two three</p>`)
	r := rangeOver(t, doc, "two")
	if _, err := Replace(r, "two", "zwei"); err != nil {
		t.Fatal(err)
	}

	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if IsTranslation(n) {
			count++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	if count != 1 {
		t.Fatalf("expected exactly one translation node, got %d", count)
	}
}

func TestUndoIsLeftInverseOfReplace(t *testing.T) {
	cases := []string{
		"hello world",
		"x",
		"text with  double spaces",
		"non-ascii sélection 漢字",
	}
	for _, original := range cases {
		doc := parse(t, "<p>head "+original+" tail</p>")
		r := rangeOver(t, doc, original)

		node, err := Replace(r, original, "TRANSLATED")
		if err != nil {
			t.Fatalf("%q: %v", original, err)
		}
		restored, err := Undo(node)
		if err != nil {
			t.Fatalf("%q: undo: %v", original, err)
		}
		if restored != original {
			t.Errorf("restored %q, want %q", restored, original)
		}
		text := collectText(doc)
		if text != "head "+original+" tail" {
			t.Errorf("document text after undo = %q", text)
		}
	}
}

func TestReplaceAcrossInlineNodes(t *testing.T) {
	doc := parse(t, `<p>aa <b>bold</b> zz</p>`)
	start := findText(t, doc, "aa ")
	end := findText(t, doc, " zz")
	r, err := selection.New(start, 0, end, 3)
	if err != nil {
		t.Fatal(err)
	}

	node, err := Replace(r, "aa bold zz", "ALL")
	if err != nil {
		t.Fatal(err)
	}
	if !IsTranslation(node) {
		t.Fatal("expected translation node")
	}
	out := render(t, doc)
	if strings.Contains(out, "<b>") {
		t.Errorf("covered inline element not removed: %s", out)
	}
}

func TestReplaceSanitizesModelOutput(t *testing.T) {
	doc := parse(t, `<p>some text here</p>`)
	r := rangeOver(t, doc, "text")

	node, err := Replace(r, "text", `<img src=x onerror=alert(1)>translated`)
	if err != nil {
		t.Fatal(err)
	}
	if got := TranslatedText(node); got != "translated" {
		t.Errorf("sanitized translated = %q", got)
	}
	if strings.Contains(render(t, doc), "onerror") {
		t.Error("markup from model output leaked into the document")
	}
}

func TestReplaceDetachedRange(t *testing.T) {
	doc := parse(t, `<p>going away</p>`)
	r := rangeOver(t, doc, "going")
	n := r.StartContainer
	n.Parent.RemoveChild(n)

	if _, err := Replace(r, "going", "x"); err == nil {
		t.Fatal("expected error for detached range")
	}
}

func TestUndoneNodeCannotBeFoundAgain(t *testing.T) {
	doc := parse(t, `<p>find me later</p>`)
	r := rangeOver(t, doc, "me")
	node, err := Replace(r, "me", "moi")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Undo(node); err != nil {
		t.Fatal(err)
	}
	if FirstWithin(doc) != nil {
		t.Fatal("structural lookup found a node that was undone")
	}
	// A second undo cannot happen: the node is detached.
	if _, err := Undo(node); err == nil {
		t.Fatal("expected error undoing a detached node")
	}
}

func TestNearestWalksAncestors(t *testing.T) {
	doc := parse(t, `<p>pre text</p>`)
	r := rangeOver(t, doc, "text")
	node, err := Replace(r, "text", "texte")
	if err != nil {
		t.Fatal(err)
	}

	inner := node.FirstChild // translated text run
	if got := Nearest(inner); got != node {
		t.Fatalf("Nearest from child = %v, want composite node", got)
	}
	if Nearest(findText(t, doc, "pre")) != nil {
		t.Fatal("Nearest outside a translation must be nil")
	}
}

func TestFirstContainedHonorsDocumentOrderAndBounds(t *testing.T) {
	doc := parse(t, `<p>aa first bb second cc third dd</p>`)
	for _, w := range []string{"first", "second", "third"} {
		r := rangeOver(t, doc, w)
		if _, err := Replace(r, w, strings.ToUpper(w)); err != nil {
			t.Fatal(err)
		}
	}

	// Select from before "FIRST (first)" through after "SECOND (second)":
	// the third node stays outside the selection.
	start := findText(t, doc, "aa ")
	endNode := findText(t, doc, " cc ")
	r, err := selection.New(start, 0, endNode, 4)
	if err != nil {
		t.Fatal(err)
	}

	found := FirstContained(r)
	if found == nil {
		t.Fatal("expected a contained translation node")
	}
	if got := OriginalText(found); got != "first" {
		t.Errorf("first contained node original = %q, want %q", got, "first")
	}

	// Undo it; the second and third nodes must be untouched.
	if _, err := Undo(found); err != nil {
		t.Fatal(err)
	}
	remaining := FirstWithin(doc)
	if remaining == nil || OriginalText(remaining) != "second" {
		t.Fatalf("sibling translation nodes disturbed, remaining = %v", remaining)
	}
}

func TestIsTranslationRequiresFullContract(t *testing.T) {
	doc := parse(t, `<span class="llm-translated">missing attrs</span>`)
	span := findText(t, doc, "missing").Parent
	if IsTranslation(span) {
		t.Fatal("marker class alone must not satisfy the predicate")
	}
}

func collectText(root *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String()
}
