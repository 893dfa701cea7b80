// Package page wraps a parsed HTML document and offers text search,
// translation inventory, and rendering. It is the model the hotkey
// controller and the HTTP host operate on.
package page

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/wdanxna/LocalLLMTranslator/selection"
	"github.com/wdanxna/LocalLLMTranslator/splice"
)

// Page is a parsed HTML document.
type Page struct {
	doc *html.Node
}

// Load parses an HTML document from r.
func Load(r io.Reader) (*Page, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("page: parse: %w", err)
	}
	return &Page{doc: doc}, nil
}

// LoadString parses an HTML document from a string.
func LoadString(s string) (*Page, error) {
	return Load(strings.NewReader(s))
}

// LoadFile parses an HTML document from a file on disk.
func LoadFile(path string) (*Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("page: open %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// Doc exposes the document root.
func (p *Page) Doc() *html.Node { return p.doc }

// Render serializes the document back to HTML.
func (p *Page) Render() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, p.doc); err != nil {
		return "", fmt.Errorf("page: render: %w", err)
	}
	return buf.String(), nil
}

// FindText locates the first occurrence of needle in the document's visible
// text and returns a range over it. The match must fall inside a single text
// node. Returns nil when the text does not occur.
func (p *Page) FindText(needle string) *selection.Range {
	if needle == "" {
		return nil
	}
	var found *selection.Range
	walk(p.doc, func(n *html.Node) bool {
		if n.Type != html.TextNode || hiddenText(n) {
			return true
		}
		idx := strings.Index(n.Data, needle)
		if idx < 0 {
			return true
		}
		start := len([]rune(n.Data[:idx]))
		r, err := selection.New(n, start, n, start+len([]rune(needle)))
		if err != nil {
			return true
		}
		found = r
		return false
	})
	return found
}

// Translations lists every translated span in document order.
func (p *Page) Translations() []*html.Node {
	var nodes []*html.Node
	walk(p.doc, func(n *html.Node) bool {
		if splice.IsTranslation(n) {
			nodes = append(nodes, n)
			return true
		}
		return true
	})
	return nodes
}

// UndoAll restores the original text of every translated span and reports
// how many were restored.
func (p *Page) UndoAll() (int, error) {
	nodes := p.Translations()
	for _, n := range nodes {
		if _, err := splice.Undo(n); err != nil {
			return 0, fmt.Errorf("page: undo all: %w", err)
		}
	}
	return len(nodes), nil
}

// hiddenText reports whether a text node sits inside an element whose
// content is never rendered.
func hiddenText(n *html.Node) bool {
	p := n.Parent
	if p == nil || p.Type != html.ElementNode {
		return false
	}
	switch p.Data {
	case "script", "style", "noscript":
		return true
	}
	return false
}

// walk visits every node depth-first until fn returns false.
func walk(n *html.Node, fn func(*html.Node) bool) bool {
	if !fn(n) {
		return false
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if !walk(c, fn) {
			return false
		}
	}
	return true
}
