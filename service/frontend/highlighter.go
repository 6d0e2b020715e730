package frontend

import (
	"html/template"
	"regexp"
	"strings"

	"github.com/mycok/spiderank/textindexer"
)

var wordRegex = regexp.MustCompile(`[\p{L}]+`)

// matchHighlighter wraps the words of a text whose stem appears in a query
// with <em> tags. Everything else is HTML-escaped.
type matchHighlighter struct {
	analyzer *textindexer.Analyzer
	stems    map[string]struct{}
}

func newMatchHighlighter(analyzer *textindexer.Analyzer, query string) *matchHighlighter {
	stems := make(map[string]struct{})
	for _, stem := range analyzer.Stems(query) {
		stems[stem] = struct{}{}
	}

	return &matchHighlighter{analyzer: analyzer, stems: stems}
}

// Highlight returns an HTML-safe copy of text with matched words emphasized.
func (h *matchHighlighter) Highlight(text string) string {
	var (
		b    strings.Builder
		last int
	)

	for _, loc := range wordRegex.FindAllStringIndex(text, -1) {
		word := text[loc[0]:loc[1]]
		if !h.matches(word) {
			continue
		}

		b.WriteString(template.HTMLEscapeString(text[last:loc[0]]))
		b.WriteString("<em>")
		b.WriteString(template.HTMLEscapeString(word))
		b.WriteString("</em>")
		last = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))

	return b.String()
}

func (h *matchHighlighter) matches(word string) bool {
	if len(h.stems) == 0 {
		return false
	}

	for _, stem := range h.analyzer.Stems(word) {
		if _, found := h.stems[stem]; found {
			return true
		}
	}

	return false
}
