package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// fetchResult holds a retrieved page. Doc is nil for non-HTML content.
type fetchResult struct {
	Doc         *goquery.Document
	ContentType string
}

type fetcher struct {
	client    Doer
	timeout   time.Duration
	maxBytes  int64
	userAgent func() string
}

func newFetcher(cfg Config, userAgent func() string) *fetcher {
	return &fetcher{
		client:    cfg.HTTPClient,
		timeout:   cfg.FetchTimeout,
		maxBytes:  cfg.MaxBodyBytes,
		userAgent: userAgent,
	}
}

// Fetch retrieves and parses the page at rawURL. Transport failures and
// non-2xx responses wrap ErrUnfetchable. Content other than text/html
// returns a result carrying the content type along with ErrNotHTML.
func (f *fetcher) Fetch(ctx context.Context, rawURL string) (*fetchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnfetchable, err)
	}
	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	res, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnfetchable, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnfetchable, res.StatusCode)
	}

	contentType := res.Header.Get("Content-Type")
	if !isHTML(contentType) {
		return &fetchResult{ContentType: contentType}, ErrNotHTML
	}

	body, err := charset.NewReader(io.LimitReader(res.Body, f.maxBytes), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: decode body: %v", ErrUnfetchable, err)
	}

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnfetchable, err)
	}

	return &fetchResult{Doc: doc, ContentType: contentType}, nil
}

func isHTML(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "text/html")
}
