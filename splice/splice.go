// Package splice performs the in-place document mutation at the heart of
// the translator: it replaces a live selection with a composite node
// pairing translated and original text, and reverts such nodes back to
// plain text on undo.
//
// No registry of spliced nodes is kept. A translation node is identified
// purely by its structure (marker class plus both data attributes), so the
// document itself stays the single source of truth even when unrelated
// scripts add or remove nodes.
package splice

import (
	"fmt"
	stdhtml "html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/wdanxna/LocalLLMTranslator/selection"
)

// Markup contract for the composite node. Bit-exact: undo across the same
// page session depends on these names.
const (
	MarkerClass    = "llm-translated"
	OriginalClass  = "llm-translated-original"
	OriginalAttr   = "data-original-text"
	TranslatedAttr = "data-translated-text"
)

// strict strips every tag from model output before it is spliced into the
// document. The model returns plain text; anything that looks like markup
// is hostile or garbage either way.
var strict = bluemonday.StrictPolicy()

// Replace deletes the range contents and inserts a single composite node in
// their place: the translated text plus a trailing space, followed by a
// de-emphasized parenthesized run of the original. It returns the inserted
// node. The mutation is atomic from the reader's point of view; there is no
// intermediate state with only part of the content replaced.
func Replace(r *selection.Range, original, translated string) (*html.Node, error) {
	sp, ep := r.StartContainer, r.EndContainer
	if sp.Parent == nil || ep.Parent == nil {
		return nil, fmt.Errorf("splice: range is detached")
	}

	node := newComposite(original, translated)

	if sp == ep {
		replaceWithin(sp, r.StartOffset, r.EndOffset, node)
		return node, nil
	}

	if err := deleteBetween(r); err != nil {
		return nil, err
	}

	// Trim the boundary text nodes and drop the composite between them.
	sRunes, eRunes := []rune(sp.Data), []rune(ep.Data)
	sp.Data = string(sRunes[:min(r.StartOffset, len(sRunes))])
	ep.Data = string(eRunes[min(r.EndOffset, len(eRunes)):])
	sp.Parent.InsertBefore(node, sp.NextSibling)
	if sp.Data == "" {
		sp.Parent.RemoveChild(sp)
	}
	if ep.Data == "" {
		ep.Parent.RemoveChild(ep)
	}
	return node, nil
}

// replaceWithin handles the single-text-node case: the node is split into
// head, composite, tail.
func replaceWithin(t *html.Node, start, end int, node *html.Node) {
	parent := t.Parent
	runes := []rune(t.Data)
	start = min(start, len(runes))
	end = min(end, len(runes))

	if head := string(runes[:start]); head != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: head}, t)
	}
	parent.InsertBefore(node, t)
	if tail := string(runes[end:]); tail != "" {
		parent.InsertBefore(&html.Node{Type: html.TextNode, Data: tail}, t)
	}
	parent.RemoveChild(t)
}

// deleteBetween removes every node strictly between the two boundary text
// nodes, walking up from each boundary to the children of the common
// ancestor.
func deleteBetween(r *selection.Range) error {
	ca := r.CommonAncestor()
	if ca == nil {
		return fmt.Errorf("splice: boundaries are in different trees")
	}

	sTop := childAncestor(ca, r.StartContainer)
	eTop := childAncestor(ca, r.EndContainer)
	if sTop == nil || eTop == nil {
		return fmt.Errorf("splice: boundary outside common ancestor")
	}

	// Everything after the start boundary inside its top-level branch.
	for n := r.StartContainer; n != sTop; n = n.Parent {
		removeFollowingSiblings(n)
	}
	// Everything before the end boundary inside its branch.
	for n := r.EndContainer; n != eTop; n = n.Parent {
		removePrecedingSiblings(n)
	}
	// Whole branches between the two.
	for n := sTop.NextSibling; n != nil && n != eTop; {
		next := n.NextSibling
		ca.RemoveChild(n)
		n = next
	}
	return nil
}

func childAncestor(parent, n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Parent == parent {
			return n
		}
	}
	return nil
}

func removeFollowingSiblings(n *html.Node) {
	for s := n.NextSibling; s != nil; {
		next := s.NextSibling
		n.Parent.RemoveChild(s)
		s = next
	}
}

func removePrecedingSiblings(n *html.Node) {
	for s := n.PrevSibling; s != nil; {
		prev := s.PrevSibling
		n.Parent.RemoveChild(s)
		s = prev
	}
}

// newComposite builds the composite translation node.
func newComposite(original, translated string) *html.Node {
	translated = clean(translated)

	node := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "class", Val: MarkerClass},
			{Key: OriginalAttr, Val: original},
			{Key: TranslatedAttr, Val: translated},
		},
	}
	node.AppendChild(&html.Node{Type: html.TextNode, Data: translated + " "})

	orig := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr:     []html.Attribute{{Key: "class", Val: OriginalClass}},
	}
	orig.AppendChild(&html.Node{Type: html.TextNode, Data: "(" + original + ")"})
	node.AppendChild(orig)

	return node
}

// clean strips markup from model output. Sanitization entity-escapes the
// result, which would double-escape once the text node is serialized, so
// the entities are unescaped again.
func clean(s string) string {
	return stdhtml.UnescapeString(strict.Sanitize(s))
}

// Undo reverts a composite node: the whole node is replaced by a plain
// text node holding the original text. It returns the restored text.
// Undoing is idempotent by absence — once reverted, structural lookup can
// no longer find the node.
func Undo(n *html.Node) (string, error) {
	if !IsTranslation(n) {
		return "", fmt.Errorf("splice: not a translation node")
	}
	if n.Parent == nil {
		return "", fmt.Errorf("splice: node is detached")
	}
	original := attr(n, OriginalAttr)
	n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: original}, n)
	n.Parent.RemoveChild(n)
	return original, nil
}

// IsTranslation is a pure predicate over the node itself: marker class and
// both data attributes present.
func IsTranslation(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if !hasClass(n, MarkerClass) {
		return false
	}
	return hasAttr(n, OriginalAttr) && hasAttr(n, TranslatedAttr)
}

// Nearest walks from n up to the closest ancestor-or-self translation
// node, or nil. Used by hover tracking.
func Nearest(n *html.Node) *html.Node {
	for ; n != nil; n = n.Parent {
		if IsTranslation(n) {
			return n
		}
	}
	return nil
}

// FirstWithin returns the first translation node under root in document
// order, or nil.
func FirstWithin(root *html.Node) *html.Node {
	if IsTranslation(root) {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := FirstWithin(c); found != nil {
			return found
		}
	}
	return nil
}

// FirstContained returns the first translation node in document order that
// is fully contained by the range, searching under the range's common
// ancestor. Sibling translation nodes outside the range are left alone.
func FirstContained(r *selection.Range) *html.Node {
	ca := r.CommonAncestor()
	if ca == nil {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if IsTranslation(n) && r.Contains(n) {
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
	walk(ca)
	return found
}

// OriginalText reads the pre-translation text off a composite node.
func OriginalText(n *html.Node) string { return attr(n, OriginalAttr) }

// TranslatedText reads the translated text off a composite node.
func TranslatedText(n *html.Node) string { return attr(n, TranslatedAttr) }

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, f := range strings.Fields(a.Val) {
			if f == class {
				return true
			}
		}
	}
	return false
}
