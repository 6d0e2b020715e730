package textindexer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
)

// MaxSnippetLength is the maximum number of characters kept for page
// descriptions and image contexts before an ellipsis is appended.
const MaxSnippetLength = 200

var repeatedSpaceRegex = regexp.MustCompile(`\s+`)

// Elements whose text content is never visible to a reader.
var invisibleElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"template": true,
}

// Document is the indexed representation of a single HTML page.
type Document struct {
	Title       string
	Description string
	// Terms maps every stem on the page to its occurrence count. Its size is
	// the word count of the page.
	Terms  map[string]int
	Images []Image
	// Skipped lists the images that were dropped along with the reason.
	Skipped []Skip
}

// Skip describes an item that was ignored while indexing a page.
type Skip struct {
	Item   string
	Reason string
}

// Indexer extracts the title, description, terms and images of HTML pages.
// It is safe for concurrent use.
type Indexer struct {
	analyzer   *Analyzer
	policyPool sync.Pool
}

// NewIndexer returns an Indexer that derives terms with analyzer.
func NewIndexer(analyzer *Analyzer) *Indexer {
	return &Indexer{
		analyzer: analyzer,
		policyPool: sync.Pool{
			New: func() interface{} {
				return bluemonday.StrictPolicy()
			},
		},
	}
}

// Analyzer returns the analyzer used to derive terms.
func (ix *Indexer) Analyzer() *Analyzer {
	return ix.analyzer
}

// Index builds the Document for the page at pageURL.
func (ix *Indexer) Index(doc *goquery.Document, pageURL string) *Document {
	text := VisibleText(doc.Selection)

	d := &Document{
		Title:       ix.title(doc, pageURL),
		Description: ix.description(doc, text),
		Terms:       ix.analyzer.Terms(text),
	}
	d.Images, d.Skipped = ix.images(doc, pageURL)

	return d
}

func (ix *Indexer) title(doc *goquery.Document, pageURL string) string {
	if title := ix.clean(doc.Find("title").First().Text()); title != "" {
		return title
	}

	return pageURL
}

func (ix *Indexer) description(doc *goquery.Document, text string) string {
	var (
		meta    string
		hasMeta bool
	)
	doc.Find("meta[name]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if !strings.EqualFold(s.AttrOr("name", ""), "description") {
			return true
		}
		// A description tag with a content attribute wins even when empty.
		var content string
		if content, hasMeta = s.Attr("content"); hasMeta {
			meta = ix.clean(content)
		}

		return !hasMeta
	})

	if hasMeta {
		return Truncate(meta, MaxSnippetLength)
	}

	return Truncate(text, MaxSnippetLength)
}

// clean strips any markup left in s, unescapes entities and collapses
// whitespace.
func (ix *Indexer) clean(s string) string {
	policy := ix.policyPool.Get().(*bluemonday.Policy)
	defer ix.policyPool.Put(policy)

	cleaned := repeatedSpaceRegex.ReplaceAllString(policy.Sanitize(s), " ")

	return strings.TrimSpace(html.UnescapeString(cleaned))
}

// VisibleText returns the text nodes below sel that a reader would see,
// trimmed and joined with single spaces.
func VisibleText(sel *goquery.Selection) string {
	var parts []string

	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		switch n.Type {
		case xhtml.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, repeatedSpaceRegex.ReplaceAllString(t, " "))
			}
			return
		case xhtml.CommentNode:
			return
		case xhtml.ElementNode:
			if invisibleElements[n.Data] {
				return
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, n := range sel.Nodes {
		walk(n)
	}

	return strings.Join(parts, " ")
}

// Truncate shortens s to at most max characters, appending "..." when any
// characters were dropped.
func Truncate(s string, max int) string {
	if cut := truncateRunes(s, max); len(cut) < len(s) {
		return cut + "..."
	}

	return s
}

// truncateRunes cuts s to at most max characters.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
