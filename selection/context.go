package selection

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxTokens is the number of whitespace-delimited tokens kept on
// each side of the selection.
const DefaultMaxTokens = 10

// Window is the bounded context surrounding a selection, sent alongside the
// selected text to improve translation fidelity. Derived per request, never
// persisted.
type Window struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// Context derives the context window for the range. It returns ok=false
// when the selection is empty after trimming whitespace, in which case the
// whole operation is a no-op for the caller.
//
// The window is bounded by the immediate parent element of each boundary
// node (falling back to <body>, then the document root), which keeps the
// extraction local instead of pulling in unrelated page chrome. Context is
// pure: it never mutates the selection and is safe to call repeatedly.
func (r *Range) Context(maxTokens int) (Window, bool) {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if strings.TrimSpace(r.Text()) == "" {
		return Window{}, false
	}

	before := r.textBefore(containingElement(r.StartContainer))
	after := r.textAfter(containingElement(r.EndContainer))

	return Window{
		Before: lastTokens(before, maxTokens),
		After:  firstTokens(after, maxTokens),
	}, true
}

// textBefore collects the text between the start of the containing element
// and the selection start.
func (r *Range) textBefore(container *html.Node) string {
	if container == nil {
		return ""
	}
	rs := r.startKey()
	var sb strings.Builder
	walkText(container, func(t *html.Node) bool {
		tStart := nodeKey(t)
		if cmpKey(tStart, rs) >= 0 {
			return false
		}
		runes := []rune(t.Data)
		hi := len(runes)
		if t == r.StartContainer {
			hi = clamp(r.StartOffset, 0, len(runes))
		}
		sb.WriteString(string(runes[:hi]))
		if t == r.StartContainer {
			return false
		}
		return true
	})
	return sb.String()
}

// textAfter collects the text between the selection end and the end of the
// containing element.
func (r *Range) textAfter(container *html.Node) string {
	if container == nil {
		return ""
	}
	re := r.endKey()
	var sb strings.Builder
	walkText(container, func(t *html.Node) bool {
		tEnd := succKey(t)
		if cmpKey(tEnd, re) <= 0 {
			return true
		}
		runes := []rune(t.Data)
		lo := 0
		if t == r.EndContainer {
			lo = clamp(r.EndOffset, 0, len(runes))
		}
		sb.WriteString(string(runes[lo:]))
		return true
	})
	return sb.String()
}

// containingElement is the immediate parent of a boundary node, falling
// back to <body> and finally the whole document.
func containingElement(n *html.Node) *html.Node {
	if n.Parent != nil && n.Parent.Type == html.ElementNode {
		return n.Parent
	}
	root := treeRoot(n)
	if body := findElement(root, atom.Body); body != nil {
		return body
	}
	return root
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func lastTokens(s string, n int) string {
	tokens := strings.Fields(s)
	if len(tokens) > n {
		tokens = tokens[len(tokens)-n:]
	}
	return strings.Join(tokens, " ")
}

func firstTokens(s string, n int) string {
	tokens := strings.Fields(s)
	if len(tokens) > n {
		tokens = tokens[:n]
	}
	return strings.Join(tokens, " ")
}
