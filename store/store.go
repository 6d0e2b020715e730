package store

import "errors"

// ErrNotFound is returned by store implementations when a lookup for a page
// does not match any row.
var ErrNotFound = errors.New("not found")

// Page describes a discovered URL and, once crawled, its indexed summary.
type Page struct {
	ID          int64
	URL         string
	Title       string
	Description string
	WordCount   int
	// FinalRank is nil until the ranking engine assigns the page a score.
	FinalRank *float64
	Crawled   bool
}

// Image describes an inline image found on a crawled page.
type Image struct {
	URL     string
	Title   string
	Alt     string
	Context string
}

// IndexedPage carries everything that needs to be committed for a page once
// its content has been indexed.
type IndexedPage struct {
	PageID      int64
	Title       string
	Description string
	// Terms maps each stem found on the page to its occurrence count.
	Terms  map[string]int
	Images []Image
}

// Edge is a directed link between two pages.
type Edge struct {
	Src int64
	Dst int64
}

// Posting is an inverted index entry joined with the word count of the page
// it belongs to.
type Posting struct {
	TermID    int64
	PageID    int64
	Frequency int
	WordCount int
}

// PostingScore is the relevance score assigned to a single posting.
type PostingScore struct {
	TermID int64
	PageID int64
	Score  float64
}

// SearchResult is a single page matching a keyword query.
type SearchResult struct {
	Title       string
	URL         string
	Description string
	FinalRank   *float64
}

// ImageResult is a single image matching an image query.
type ImageResult struct {
	URL          string
	Alt          string
	SourcePageID int64
}

// Iterator is implemented by objects that can iterate over store query
// results.
type Iterator interface {
	// Next advances the iterator. If no more items are available or an
	// error occurs, calls to Next() return false.
	Next() bool

	// Error returns the last error encountered by the iterator.
	Error() error

	// Close releases any resources associated with an iterator.
	Close() error
}

// EdgeIterator is implemented by objects that can iterate the link graph edges.
type EdgeIterator interface {
	Iterator

	// Edge returns the currently fetched edge object.
	Edge() *Edge
}

// PostingIterator is implemented by objects that can iterate postings.
type PostingIterator interface {
	Iterator

	// Posting returns the currently fetched posting object.
	Posting() *Posting
}

// CrawlStore groups the operations used while crawling.
type CrawlStore interface {
	// InsertURLs adds the given URLs as uncrawled pages unless they are
	// already known or blocked.
	InsertURLs(urls []string) error

	// HasUncrawled reports whether any uncrawled page remains.
	HasUncrawled() (bool, error)

	// UncrawledPages returns up to limit uncrawled pages whose id is greater
	// than afterID, ordered by id.
	UncrawledPages(afterID int64, limit int) ([]*Page, error)

	// FindUncrawled looks up an uncrawled page by URL. It returns
	// ErrNotFound if the URL is unknown or already crawled.
	FindUncrawled(url string) (*Page, error)

	// IsCrawled reports whether the page with the given URL is crawled.
	IsCrawled(url string) (bool, error)

	// BlockURL adds url to the denylist and removes its page row along with
	// any edges touching it.
	BlockURL(url string) error

	// AddLinks inserts the not-yet-known, non-blocked urls as pages and adds
	// one edge from srcID to each of urls. It returns the urls that were
	// newly inserted.
	AddLinks(srcID int64, urls []string) ([]string, error)

	// MarkNonHTML records a page as crawled without indexing its content.
	MarkNonHTML(pageID int64, contentType string) error

	// SaveIndexedPage stores the images, terms and postings of a page and
	// marks it as crawled.
	SaveIndexedPage(p *IndexedPage) error
}

// RankStore groups the operations used by the ranking engine.
type RankStore interface {
	// CrawledPageIDs returns the ids of all crawled pages.
	CrawledPageIDs() ([]int64, error)

	// Edges returns an iterator over all link graph edges.
	Edges() (EdgeIterator, error)

	// SaveRanks replaces the stored PageRank scores with ranks.
	SaveRanks(ranks map[int64]float64) error

	// Ranks returns the stored PageRank scores keyed by page id.
	Ranks() (map[int64]float64, error)

	// CountCrawled returns the number of crawled pages.
	CountCrawled() (int, error)

	// Postings returns an iterator over the postings of crawled pages with
	// a non-zero word count.
	Postings() (PostingIterator, error)

	// DocumentFrequencies returns the number of pages each term occurs in.
	DocumentFrequencies() (map[int64]int, error)

	// UpdatePostingScores writes scores onto their postings.
	UpdatePostingScores(scores []PostingScore) error

	// PageScoreSums returns the sum of posting scores for each crawled
	// page with at least one scored posting.
	PageScoreSums() (map[int64]float64, error)

	// ClearFinalRanks resets the final rank of every page.
	ClearFinalRanks() error

	// UpdateFinalRanks sets the final rank of each page in ranks.
	UpdateFinalRanks(ranks map[int64]float64) error
}

// QueryStore groups the read operations backing the query interface.
type QueryStore interface {
	// Search returns the pages having a posting for any of stems, ordered by
	// descending final rank, along with the total number of matches.
	Search(stems []string, offset, limit int) ([]*SearchResult, int, error)

	// RandomPage returns the URL of a random crawled page.
	RandomPage() (string, error)

	// SearchImages returns images whose context contains text.
	SearchImages(text string, offset, limit int) ([]*ImageResult, error)
}

// Store is implemented by persistent backends holding the crawl state, the
// inverted index, the link graph and the computed ranks.
type Store interface {
	CrawlStore
	RankStore
	QueryStore

	// Close releases the resources held by the store.
	Close() error
}
