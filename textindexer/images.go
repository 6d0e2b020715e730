package textindexer

import (
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	xhtml "golang.org/x/net/html"
)

// Attributes that may carry the source of an image, in order of preference.
var imageSourceAttrs = []string{"src", "data-src", "data-lazy-src"}

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Image describes an inline image of an indexed page.
type Image struct {
	URL     string
	Title   string
	Alt     string
	Context string
}

// images collects the qualifying inline images of doc. Each image gets the
// text of the nearest paragraph preceding it in document order as context.
func (ix *Indexer) images(doc *goquery.Document, pageURL string) ([]Image, []Skip) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, []Skip{{Item: pageURL, Reason: "invalid page url"}}
	}

	var (
		images  []Image
		skipped []Skip
		seen    = make(map[string]struct{})
		lastPar *xhtml.Node
	)

	var walk func(n *xhtml.Node)
	walk = func(n *xhtml.Node) {
		if n.Type == xhtml.ElementNode {
			switch n.Data {
			case "p":
				lastPar = n
			case "img":
				img, skip := ix.image(n, base, lastPar)
				switch {
				case skip != nil:
					skipped = append(skipped, *skip)
				default:
					if _, exists := seen[img.URL]; !exists {
						seen[img.URL] = struct{}{}
						images = append(images, img)
					}
				}
			}
		}

		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}

	for _, n := range doc.Nodes {
		walk(n)
	}

	return images, skipped
}

func (ix *Indexer) image(n *xhtml.Node, base *url.URL, context *xhtml.Node) (Image, *Skip) {
	sel := goquery.NewDocumentFromNode(n).Selection

	var src string
	for _, attr := range imageSourceAttrs {
		if v := strings.TrimSpace(sel.AttrOr(attr, "")); v != "" {
			src = v
			break
		}
	}
	if src == "" {
		return Image{}, &Skip{Item: "<img>", Reason: "missing source"}
	}

	imgURL, ok := resolveImageURL(base, src)
	if !ok {
		return Image{}, &Skip{Item: src, Reason: "unresolvable source"}
	}

	if !imageExtensions[strings.ToLower(path.Ext(imgURL.Path))] {
		return Image{}, &Skip{Item: src, Reason: "unsupported image type"}
	}

	img := Image{
		URL:   imgURL.String(),
		Title: ix.clean(sel.AttrOr("title", "")),
		Alt:   ix.clean(sel.AttrOr("alt", "")),
	}
	if context != nil {
		img.Context = truncateRunes(VisibleText(goquery.NewDocumentFromNode(context).Selection), MaxSnippetLength)
	}

	return img, nil
}

// resolveImageURL turns src into an absolute http(s) URL. Protocol-relative
// sources always use https.
func resolveImageURL(base *url.URL, src string) (*url.URL, bool) {
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}

	ref, err := url.Parse(src)
	if err != nil {
		return nil, false
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return nil, false
	}
	abs.Fragment = ""

	return abs, true
}
