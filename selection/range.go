// Package selection models a point-in-time text selection inside a parsed
// HTML document and derives the bounded context window that accompanies a
// translation request.
//
// A Range is a pair of boundary points into the live node tree. The engine
// never owns a Range for longer than one handling step: the user can move
// the selection at any moment, so callers capture a Range, act, and drop it.
package selection

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Range identifies a contiguous stretch of document text. Boundary
// containers are text nodes; offsets are rune counts into the node data.
type Range struct {
	StartContainer *html.Node
	StartOffset    int
	EndContainer   *html.Node
	EndOffset      int
}

// New validates the boundary points and returns a Range. The start boundary
// must not come after the end boundary.
func New(start *html.Node, startOffset int, end *html.Node, endOffset int) (*Range, error) {
	if start == nil || end == nil {
		return nil, fmt.Errorf("selection: boundary container is nil")
	}
	if start.Type != html.TextNode || end.Type != html.TextNode {
		return nil, fmt.Errorf("selection: boundary container must be a text node")
	}
	if startOffset < 0 || endOffset < 0 {
		return nil, fmt.Errorf("selection: negative boundary offset")
	}
	r := &Range{StartContainer: start, StartOffset: startOffset, EndContainer: end, EndOffset: endOffset}
	if cmpKey(r.startKey(), r.endKey()) > 0 {
		return nil, fmt.Errorf("selection: start boundary after end boundary")
	}
	return r, nil
}

// Text returns the contiguous document text between the boundaries.
func (r *Range) Text() string {
	rs, re := r.startKey(), r.endKey()
	var sb strings.Builder

	root := treeRoot(r.StartContainer)
	walkText(root, func(t *html.Node) bool {
		tStart := nodeKey(t)
		tEnd := succKey(t)
		if cmpKey(tEnd, rs) <= 0 {
			return true // entirely before the selection
		}
		if cmpKey(tStart, re) >= 0 {
			return false // entirely after; stop walking
		}
		runes := []rune(t.Data)
		lo, hi := 0, len(runes)
		if t == r.StartContainer {
			lo = clamp(r.StartOffset, 0, len(runes))
		}
		if t == r.EndContainer {
			hi = clamp(r.EndOffset, 0, len(runes))
		}
		if lo < hi {
			sb.WriteString(string(runes[lo:hi]))
		}
		return true
	})
	return sb.String()
}

// Attached reports whether both boundary containers are still reachable
// from doc. A splice that removed the selected content detaches the range.
func (r *Range) Attached(doc *html.Node) bool {
	return treeRoot(r.StartContainer) == doc && treeRoot(r.EndContainer) == doc
}

// CommonAncestor returns the nearest element containing both boundaries,
// or nil when the boundaries live in different trees.
func (r *Range) CommonAncestor() *html.Node {
	seen := map[*html.Node]bool{}
	for n := r.StartContainer; n != nil; n = n.Parent {
		seen[n] = true
	}
	for n := r.EndContainer; n != nil; n = n.Parent {
		if seen[n] {
			for ; n != nil; n = n.Parent {
				if n.Type == html.ElementNode || n.Type == html.DocumentNode {
					return n
				}
			}
			return nil
		}
	}
	return nil
}

// Contains reports whether node n lies entirely inside the range.
func (r *Range) Contains(n *html.Node) bool {
	if n == nil {
		return false
	}
	start := nodeKey(n)
	end := succKey(n)
	return cmpKey(r.startKey(), start) <= 0 && cmpKey(end, r.endKey()) <= 0
}

// startKey returns the comparable position of the start boundary.
// Offsets at either extremity of a text node normalize to the node's own
// position so that whole-node selections count as containing the node.
func (r *Range) startKey() []int { return boundaryKey(r.StartContainer, r.StartOffset) }
func (r *Range) endKey() []int   { return boundaryKey(r.EndContainer, r.EndOffset) }

func boundaryKey(n *html.Node, offset int) []int {
	runes := len([]rune(n.Data))
	if offset <= 0 {
		return nodeKey(n)
	}
	if offset >= runes {
		return succKey(n)
	}
	return append(nodeKey(n), offset)
}

// nodeKey is the document-order position of a node: the child-index path
// from the tree root. Positions compare lexicographically.
func nodeKey(n *html.Node) []int {
	var rev []int
	for ; n.Parent != nil; n = n.Parent {
		idx := 0
		for s := n.PrevSibling; s != nil; s = s.PrevSibling {
			idx++
		}
		rev = append(rev, idx)
	}
	key := make([]int, len(rev))
	for i := range rev {
		key[i] = rev[len(rev)-1-i]
	}
	return key
}

// succKey is the position immediately after a node in its parent.
func succKey(n *html.Node) []int {
	key := nodeKey(n)
	if len(key) == 0 {
		return key
	}
	key[len(key)-1]++
	return key
}

func cmpKey(a, b []int) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	// A prefix sits at the node's opening edge, before any interior point.
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func treeRoot(n *html.Node) *html.Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// walkText visits every text node under n in document order. The visitor
// returns false to stop the walk.
func walkText(n *html.Node, visit func(*html.Node) bool) bool {
	if n.Type == html.TextNode {
		return visit(n)
	}
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript:
			return true
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walkText(c, visit) {
			return false
		}
	}
	return true
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
