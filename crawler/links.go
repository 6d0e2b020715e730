package crawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/purell"

	"github.com/mycok/spiderank/textindexer"
)

const normalizeFlags = purell.FlagsSafe | purell.FlagRemoveFragment |
	purell.FlagRemoveDotSegments | purell.FlagRemoveDuplicateSlashes

// extractLinks returns the distinct absolute http(s) links of doc in
// document order, along with the hrefs that were skipped. Links resolve
// against the <base> element when present, else against pageURL.
func extractLinks(doc *goquery.Document, pageURL string) ([]string, []textindexer.Skip) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, []textindexer.Skip{{Item: pageURL, Reason: "malformed page url"}}
	}

	if href, found := doc.Find("base[href]").First().Attr("href"); found {
		if baseURL, err := base.Parse(strings.TrimSpace(href)); err == nil {
			base = baseURL
		}
	}

	var (
		links   []string
		skipped []textindexer.Skip
		seen    = make(map[string]struct{})
	)

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")

		link, reason := resolveLink(base, href)
		if reason != "" {
			skipped = append(skipped, textindexer.Skip{Item: href, Reason: reason})
			return
		}

		if _, found := seen[link]; found {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, skipped
}

// resolveLink turns href into a normalized absolute URL. A non-empty reason
// is returned when the link must be skipped.
func resolveLink(base *url.URL, href string) (string, string) {
	href = strings.TrimSpace(href)
	switch {
	case href == "":
		return "", "empty link"
	case strings.HasPrefix(href, "#"):
		return "", "fragment link"
	case strings.HasPrefix(href, "//"):
		// Protocol-relative links inherit the scheme of the page.
		href = base.Scheme + ":" + href
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", "malformed link"
	}

	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", "unsupported scheme"
	}
	if abs.Host == "" {
		return "", "missing host"
	}

	abs.Fragment = ""
	abs.RawFragment = ""

	return purell.NormalizeURL(abs, normalizeFlags), ""
}
