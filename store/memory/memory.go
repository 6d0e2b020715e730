package memory

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"github.com/mycok/spiderank/store"
)

// Static and compile-time check to ensure InMemoryStore implements
// store.Store interface.
var _ store.Store = (*InMemoryStore)(nil)

type postingKey struct {
	termID int64
	pageID int64
}

type postingEntry struct {
	frequency int
	score     *float64
}

type imageEntry struct {
	image  store.Image
	pageID int64
}

// InMemoryStore implements a store.Store that keeps all of its state in
// memory and can be concurrently accessed by multiple clients.
type InMemoryStore struct {
	mu sync.RWMutex

	pages      map[int64]*store.Page
	pageURLs   map[string]int64
	lastPageID int64

	blocked map[string]struct{}

	terms      map[string]int64
	lastTermID int64
	postings   map[postingKey]*postingEntry

	edges []store.Edge

	images     map[string]*imageEntry
	imageOrder []string

	ranks map[int64]float64
}

// NewInMemoryStore creates a new, empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pages:    make(map[int64]*store.Page),
		pageURLs: make(map[string]int64),
		blocked:  make(map[string]struct{}),
		terms:    make(map[string]int64),
		postings: make(map[postingKey]*postingEntry),
		images:   make(map[string]*imageEntry),
		ranks:    make(map[int64]float64),
	}
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }

// InsertURLs adds the given URLs as uncrawled pages unless they are already
// known or blocked.
func (s *InMemoryStore) InsertURLs(urls []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range urls {
		if _, blocked := s.blocked[u]; blocked {
			continue
		}
		s.insertPage(u)
	}

	return nil
}

// insertPage adds a page for u if it does not exist yet and reports whether
// a new page was created. Callers must hold the write lock.
func (s *InMemoryStore) insertPage(u string) (int64, bool) {
	if id, exists := s.pageURLs[u]; exists {
		return id, false
	}

	s.lastPageID++
	s.pages[s.lastPageID] = &store.Page{ID: s.lastPageID, URL: u}
	s.pageURLs[u] = s.lastPageID

	return s.lastPageID, true
}

// HasUncrawled reports whether any uncrawled page remains.
func (s *InMemoryStore) HasUncrawled() (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.pages {
		if !p.Crawled {
			return true, nil
		}
	}

	return false, nil
}

// UncrawledPages returns up to limit uncrawled pages whose id is greater than
// afterID, ordered by id.
func (s *InMemoryStore) UncrawledPages(afterID int64, limit int) ([]*store.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var list []*store.Page
	for id, p := range s.pages {
		if id > afterID && !p.Crawled {
			list = append(list, copyPage(p))
		}
	}

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	if len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// FindUncrawled looks up an uncrawled page by URL.
func (s *InMemoryStore) FindUncrawled(url string) (*store.Page, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.pageURLs[url]
	if !exists || s.pages[id].Crawled {
		return nil, fmt.Errorf("find uncrawled page: %w", store.ErrNotFound)
	}

	return copyPage(s.pages[id]), nil
}

// IsCrawled reports whether the page with the given URL is crawled.
func (s *InMemoryStore) IsCrawled(url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.pageURLs[url]
	if !exists {
		return false, nil
	}

	return s.pages[id].Crawled, nil
}

// BlockURL adds url to the denylist and removes its page row along with any
// edges touching it.
func (s *InMemoryStore) BlockURL(url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blocked[url] = struct{}{}

	id, exists := s.pageURLs[url]
	if !exists {
		return nil
	}

	delete(s.pageURLs, url)
	delete(s.pages, id)
	delete(s.ranks, id)

	kept := s.edges[:0]
	for _, e := range s.edges {
		if e.Src != id && e.Dst != id {
			kept = append(kept, e)
		}
	}
	s.edges = kept

	for key := range s.postings {
		if key.pageID == id {
			delete(s.postings, key)
		}
	}

	return nil
}

// AddLinks inserts the not-yet-known, non-blocked urls as pages and adds one
// edge from srcID to each of them. It returns the newly inserted urls.
func (s *InMemoryStore) AddLinks(srcID int64, urls []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pages[srcID]; !exists {
		return nil, fmt.Errorf("add links: unknown source page %d: %w", srcID, store.ErrNotFound)
	}

	var added []string
	for _, u := range urls {
		if _, blocked := s.blocked[u]; blocked {
			continue
		}

		dstID, isNew := s.insertPage(u)
		if isNew {
			added = append(added, u)
		}
		s.edges = append(s.edges, store.Edge{Src: srcID, Dst: dstID})
	}

	return added, nil
}

// MarkNonHTML records a page as crawled without indexing its content.
func (s *InMemoryStore) MarkNonHTML(pageID int64, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.pages[pageID]
	if !exists {
		return fmt.Errorf("mark non-html page: %w", store.ErrNotFound)
	}

	p.Title = "Non-HTML"
	p.Description = contentType
	p.Crawled = true

	return nil
}

// SaveIndexedPage stores the images, terms and postings of a page and marks
// it as crawled.
func (s *InMemoryStore) SaveIndexedPage(ip *store.IndexedPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.pages[ip.PageID]
	if !exists {
		return fmt.Errorf("save indexed page: %w", store.ErrNotFound)
	}

	for _, img := range ip.Images {
		if _, exists := s.images[img.URL]; exists {
			continue
		}
		s.images[img.URL] = &imageEntry{image: img, pageID: ip.PageID}
		s.imageOrder = append(s.imageOrder, img.URL)
	}

	p.Title = ip.Title
	p.Description = ip.Description
	p.WordCount = len(ip.Terms)
	p.Crawled = true

	for word, freq := range ip.Terms {
		termID, exists := s.terms[word]
		if !exists {
			s.lastTermID++
			termID = s.lastTermID
			s.terms[word] = termID
		}

		key := postingKey{termID: termID, pageID: ip.PageID}
		if entry, exists := s.postings[key]; exists {
			entry.frequency = freq
			continue
		}
		s.postings[key] = &postingEntry{frequency: freq}
	}

	return nil
}

// CrawledPageIDs returns the ids of all crawled pages.
func (s *InMemoryStore) CrawledPageIDs() ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []int64
	for id, p := range s.pages {
		if p.Crawled {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	return ids, nil
}

// Edges returns an iterator over all link graph edges.
func (s *InMemoryStore) Edges() (store.EdgeIterator, error) {
	s.mu.RLock()
	list := make([]*store.Edge, len(s.edges))
	for i, e := range s.edges {
		edge := e
		list[i] = &edge
	}
	s.mu.RUnlock()

	return &edgeIterator{edges: list}, nil
}

// SaveRanks replaces the stored PageRank scores with ranks.
func (s *InMemoryStore) SaveRanks(ranks map[int64]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ranks = make(map[int64]float64, len(ranks))
	for id, rank := range ranks {
		s.ranks[id] = rank
	}

	return nil
}

// Ranks returns the stored PageRank scores keyed by page id.
func (s *InMemoryStore) Ranks() (map[int64]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ranks := make(map[int64]float64, len(s.ranks))
	for id, rank := range s.ranks {
		ranks[id] = rank
	}

	return ranks, nil
}

// CountCrawled returns the number of crawled pages.
func (s *InMemoryStore) CountCrawled() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, p := range s.pages {
		if p.Crawled {
			count++
		}
	}

	return count, nil
}

// Postings returns an iterator over the postings of crawled pages with a
// non-zero word count.
func (s *InMemoryStore) Postings() (store.PostingIterator, error) {
	s.mu.RLock()
	var list []*store.Posting
	for key, entry := range s.postings {
		p := s.pages[key.pageID]
		if p == nil || !p.Crawled || p.WordCount == 0 {
			continue
		}
		list = append(list, &store.Posting{
			TermID:    key.termID,
			PageID:    key.pageID,
			Frequency: entry.frequency,
			WordCount: p.WordCount,
		})
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool {
		if list[i].PageID != list[j].PageID {
			return list[i].PageID < list[j].PageID
		}
		return list[i].TermID < list[j].TermID
	})

	return &postingIterator{postings: list}, nil
}

// DocumentFrequencies returns the number of pages each term occurs in.
func (s *InMemoryStore) DocumentFrequencies() (map[int64]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	freqs := make(map[int64]int)
	for key := range s.postings {
		freqs[key.termID]++
	}

	return freqs, nil
}

// UpdatePostingScores writes scores onto their postings.
func (s *InMemoryStore) UpdatePostingScores(scores []store.PostingScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ps := range scores {
		entry, exists := s.postings[postingKey{termID: ps.TermID, pageID: ps.PageID}]
		if !exists {
			continue
		}
		score := ps.Score
		entry.score = &score
	}

	return nil
}

// PageScoreSums returns the sum of posting scores for each crawled page with
// at least one scored posting.
func (s *InMemoryStore) PageScoreSums() (map[int64]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sums := make(map[int64]float64)
	for key, entry := range s.postings {
		p := s.pages[key.pageID]
		if p == nil || !p.Crawled || p.WordCount == 0 || entry.score == nil {
			continue
		}
		sums[key.pageID] += *entry.score
	}

	return sums, nil
}

// ClearFinalRanks resets the final rank of every page.
func (s *InMemoryStore) ClearFinalRanks() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pages {
		p.FinalRank = nil
	}

	return nil
}

// UpdateFinalRanks sets the final rank of each page in ranks.
func (s *InMemoryStore) UpdateFinalRanks(ranks map[int64]float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rank := range ranks {
		p, exists := s.pages[id]
		if !exists {
			continue
		}
		r := rank
		p.FinalRank = &r
	}

	return nil
}

// Search returns the pages having a posting for any of stems, ordered by
// descending final rank, along with the total number of matches.
func (s *InMemoryStore) Search(stems []string, offset, limit int) ([]*store.SearchResult, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	termIDs := make(map[int64]struct{})
	for _, stem := range stems {
		if id, exists := s.terms[stem]; exists {
			termIDs[id] = struct{}{}
		}
	}

	matched := make(map[int64]struct{})
	for key := range s.postings {
		if _, wanted := termIDs[key.termID]; wanted {
			matched[key.pageID] = struct{}{}
		}
	}

	pages := make([]*store.Page, 0, len(matched))
	for id := range matched {
		if p, exists := s.pages[id]; exists {
			pages = append(pages, p)
		}
	}
	sort.Slice(pages, func(i, j int) bool { return rankedBefore(pages[i], pages[j]) })

	total := len(pages)
	if offset >= total {
		return nil, total, nil
	}
	pages = pages[offset:]
	if len(pages) > limit {
		pages = pages[:limit]
	}

	results := make([]*store.SearchResult, len(pages))
	for i, p := range pages {
		results[i] = &store.SearchResult{
			Title:       p.Title,
			URL:         p.URL,
			Description: p.Description,
			FinalRank:   copyRank(p.FinalRank),
		}
	}

	return results, total, nil
}

// rankedBefore orders pages by descending final rank with unranked pages
// last and ties broken by id.
func rankedBefore(a, b *store.Page) bool {
	switch {
	case a.FinalRank != nil && b.FinalRank == nil:
		return true
	case a.FinalRank == nil && b.FinalRank != nil:
		return false
	case a.FinalRank != nil && *a.FinalRank != *b.FinalRank:
		return *a.FinalRank > *b.FinalRank
	}

	return a.ID < b.ID
}

// RandomPage returns the URL of a random crawled page.
func (s *InMemoryStore) RandomPage() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var urls []string
	for _, p := range s.pages {
		if p.Crawled {
			urls = append(urls, p.URL)
		}
	}

	if len(urls) == 0 {
		return "", fmt.Errorf("random page: %w", store.ErrNotFound)
	}

	return urls[rand.Intn(len(urls))], nil
}

// SearchImages returns images whose context contains text.
func (s *InMemoryStore) SearchImages(text string, offset, limit int) ([]*store.ImageResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	needle := strings.ToLower(text)

	var results []*store.ImageResult
	var skipped int
	for _, u := range s.imageOrder {
		entry := s.images[u]
		if !strings.Contains(strings.ToLower(entry.image.Context), needle) {
			continue
		}

		if skipped < offset {
			skipped++
			continue
		}

		if len(results) == limit {
			break
		}

		results = append(results, &store.ImageResult{
			URL:          entry.image.URL,
			Alt:          entry.image.Alt,
			SourcePageID: entry.pageID,
		})
	}

	return results, nil
}

func copyPage(p *store.Page) *store.Page {
	pCopy := new(store.Page)
	*pCopy = *p
	pCopy.FinalRank = copyRank(p.FinalRank)

	return pCopy
}

func copyRank(r *float64) *float64 {
	if r == nil {
		return nil
	}
	v := *r

	return &v
}
