// Package search answers keyword, image and random page queries against an
// indexed store.
package search

import (
	"fmt"
	"strings"

	"github.com/mycok/spiderank/store"
	"github.com/mycok/spiderank/textindexer"
)

// DefaultPerPage is the page size used when callers do not pick one.
const DefaultPerPage = 20

// Searcher runs queries against a store using the analyzer that indexed it.
type Searcher struct {
	store    store.QueryStore
	analyzer *textindexer.Analyzer
}

// New returns a Searcher that parses queries with analyzer.
func New(st store.QueryStore, analyzer *textindexer.Analyzer) *Searcher {
	return &Searcher{store: st, analyzer: analyzer}
}

// Search returns the requested page of results for query ordered by
// descending final rank, along with the total number of result pages.
// Pages matching any stem of the query are included.
func (s *Searcher) Search(query string, page, perPage int) ([]*store.SearchResult, int, error) {
	page, perPage = clamp(page, perPage)

	stems := s.analyzer.Stems(query)
	if len(stems) == 0 {
		return nil, 0, nil
	}

	results, total, err := s.store.Search(stems, (page-1)*perPage, perPage)
	if err != nil {
		return nil, 0, fmt.Errorf("search: %w", err)
	}

	return results, PageCount(total, perPage), nil
}

// SearchImages returns the requested page of images whose context contains
// query. Blank queries match nothing.
func (s *Searcher) SearchImages(query string, page, perPage int) ([]*store.ImageResult, error) {
	page, perPage = clamp(page, perPage)

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}

	results, err := s.store.SearchImages(query, (page-1)*perPage, perPage)
	if err != nil {
		return nil, fmt.Errorf("search images: %w", err)
	}

	return results, nil
}

// RandomPage returns the URL of a random crawled page. It returns
// store.ErrNotFound when nothing has been crawled.
func (s *Searcher) RandomPage() (string, error) {
	u, err := s.store.RandomPage()
	if err != nil {
		return "", fmt.Errorf("random page: %w", err)
	}

	return u, nil
}

// PageCount returns the number of pages of size perPage needed to hold
// total results.
func PageCount(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}

	return (total + perPage - 1) / perPage
}

func clamp(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage <= 0 {
		perPage = DefaultPerPage
	}

	return page, perPage
}
