package page

import (
	"fmt"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"

	"github.com/wdanxna/LocalLLMTranslator/splice"
)

var mdConverter = converter.NewConverter(
	converter.WithPlugins(
		base.NewBasePlugin(),
		commonmark.NewCommonmarkPlugin(),
		table.NewTablePlugin(),
	),
)

// Markdown renders the document as markdown. Useful for inspecting what a
// page looks like after a batch of translations without opening a browser.
func (p *Page) Markdown() (string, error) {
	src, err := p.Render()
	if err != nil {
		return "", err
	}
	out, err := mdConverter.ConvertString(src)
	if err != nil {
		return "", fmt.Errorf("page: markdown: %w", err)
	}
	return strings.TrimSpace(out), nil
}

// Report summarizes the translated spans of the document: a markdown table
// of original and translated text, one row per span, in document order.
func (p *Page) Report() string {
	nodes := p.Translations()
	if len(nodes) == 0 {
		return "No translated spans.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d translated span(s)\n\n", len(nodes))
	b.WriteString("| # | Original | Translated |\n")
	b.WriteString("|---|----------|------------|\n")
	for i, n := range nodes {
		fmt.Fprintf(&b, "| %d | %s | %s |\n",
			i+1, cell(splice.OriginalText(n)), cell(splice.TranslatedText(n)))
	}
	return b.String()
}

// cell escapes a value for a markdown table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
