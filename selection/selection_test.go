package selection

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

func parse(t *testing.T, src string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

// findTextNode returns the first text node whose data contains sub.
func findTextNode(t *testing.T, root *html.Node, sub string) *html.Node {
	t.Helper()
	var found *html.Node
	walkText(root, func(n *html.Node) bool {
		if strings.Contains(n.Data, sub) {
			found = n
			return false
		}
		return true
	})
	if found == nil {
		t.Fatalf("no text node containing %q", sub)
	}
	return found
}

// rangeOver builds a Range covering the first occurrence of sub inside a
// single text node.
func rangeOver(t *testing.T, root *html.Node, sub string) *Range {
	t.Helper()
	n := findTextNode(t, root, sub)
	start := len([]rune(n.Data[:strings.Index(n.Data, sub)]))
	r, err := New(n, start, n, start+len([]rune(sub)))
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestRangeText(t *testing.T) {
	doc := parse(t, `<p>the quick brown fox</p>`)
	r := rangeOver(t, doc, "quick brown")
	if got := r.Text(); got != "quick brown" {
		t.Fatalf("Text() = %q, want %q", got, "quick brown")
	}
}

func TestRangeTextAcrossNodes(t *testing.T) {
	doc := parse(t, `<p>alpha <b>beta</b> gamma</p>`)
	start := findTextNode(t, doc, "alpha")
	end := findTextNode(t, doc, "gamma")
	r, err := New(start, 0, end, len([]rune(" gamma")))
	if err != nil {
		t.Fatal(err)
	}
	if got := r.Text(); got != "alpha beta gamma" {
		t.Fatalf("Text() = %q", got)
	}
}

func TestContextScenario(t *testing.T) {
	// Fewer than 10 tokens before: keep exactly the available ones.
	// More than 10 after: keep the first 10 in original order.
	doc := parse(t, `<p>the quick brown fox jumps over hello world and then some more words here today now.</p>`)
	r := rangeOver(t, doc, "hello world")

	win, ok := r.Context(10)
	if !ok {
		t.Fatal("expected a context window")
	}
	if win.Before != "the quick brown fox jumps over" {
		t.Errorf("Before = %q", win.Before)
	}
	if win.After != "and then some more words here today now." {
		t.Errorf("After = %q", win.After)
	}
}

func TestContextTruncatesToNearestTokens(t *testing.T) {
	before := "a b c d e f g h i j k l"
	after := "one two three four five six seven eight nine ten eleven twelve"
	doc := parse(t, "<p>"+before+" TARGET "+after+"</p>")
	r := rangeOver(t, doc, "TARGET")

	win, ok := r.Context(10)
	if !ok {
		t.Fatal("expected a context window")
	}
	if win.Before != "c d e f g h i j k l" {
		t.Errorf("Before = %q", win.Before)
	}
	if win.After != "one two three four five six seven eight nine ten" {
		t.Errorf("After = %q", win.After)
	}
}

func TestContextEmptySelection(t *testing.T) {
	doc := parse(t, `<p>some   words</p>`)
	r := rangeOver(t, doc, "   ")
	if _, ok := r.Context(10); ok {
		t.Fatal("whitespace-only selection must yield no window")
	}
}

func TestContextIsRepeatable(t *testing.T) {
	doc := parse(t, `<p>before words hello world after words</p>`)
	r := rangeOver(t, doc, "hello world")
	w1, _ := r.Context(10)
	w2, _ := r.Context(10)
	if w1 != w2 {
		t.Fatalf("Context not repeatable: %v vs %v", w1, w2)
	}
}

func TestContextBoundedByParentElement(t *testing.T) {
	// Text in sibling paragraphs must not leak into the window.
	doc := parse(t, `<div><p>unrelated chrome</p><p>near words TARGET tail words</p><p>more chrome</p></div>`)
	r := rangeOver(t, doc, "TARGET")

	win, ok := r.Context(10)
	if !ok {
		t.Fatal("expected a context window")
	}
	if win.Before != "near words" {
		t.Errorf("Before = %q", win.Before)
	}
	if win.After != "tail words" {
		t.Errorf("After = %q", win.After)
	}
}

func TestContains(t *testing.T) {
	doc := parse(t, `<p>aa <span id="x">mid</span> zz</p>`)
	start := findTextNode(t, doc, "aa ")
	end := findTextNode(t, doc, " zz")
	r, err := New(start, 0, end, 3)
	if err != nil {
		t.Fatal(err)
	}

	span := findTextNode(t, doc, "mid").Parent
	if !r.Contains(span) {
		t.Error("span should be contained by the surrounding range")
	}

	// A range that stops inside the span does not contain it.
	inner := findTextNode(t, doc, "mid")
	r2, err := New(start, 0, inner, 1)
	if err != nil {
		t.Fatal(err)
	}
	if r2.Contains(span) {
		t.Error("range ending inside the span must not contain it")
	}
}

func TestCommonAncestor(t *testing.T) {
	doc := parse(t, `<div><p>one</p><p>two</p></div>`)
	start := findTextNode(t, doc, "one")
	end := findTextNode(t, doc, "two")
	r, err := New(start, 0, end, 3)
	if err != nil {
		t.Fatal(err)
	}
	anc := r.CommonAncestor()
	if anc == nil || anc.Data != "div" {
		t.Fatalf("CommonAncestor = %v", anc)
	}
}

func TestAttached(t *testing.T) {
	doc := parse(t, `<p>detach me</p>`)
	r := rangeOver(t, doc, "detach")
	if !r.Attached(doc) {
		t.Fatal("range should start attached")
	}

	n := r.StartContainer
	n.Parent.RemoveChild(n)
	if r.Attached(doc) {
		t.Fatal("range must be detached after its text node is removed")
	}
}

func TestNewRejectsReversedBoundaries(t *testing.T) {
	doc := parse(t, `<p>abcdef</p>`)
	n := findTextNode(t, doc, "abcdef")
	if _, err := New(n, 4, n, 2); err == nil {
		t.Fatal("expected error for reversed boundaries")
	}
}
