package storetest

import (
	"errors"
	"math"
	"sort"

	check "gopkg.in/check.v1"

	"github.com/mycok/spiderank/store"
)

// BaseSuite defines a set of re-usable store-related tests that can be
// executed against any concrete type that implements the store.Store
// interface. Implementations are expected to provide an empty store before
// each test.
type BaseSuite struct {
	s store.Store
}

// SetStore configures the test-suite to run all tests against an instance of
// store.Store.
func (s *BaseSuite) SetStore(st store.Store) {
	s.s = st
}

// TestInsertURLs verifies that seeded URLs become uncrawled pages exactly once.
func (s *BaseSuite) TestInsertURLs(c *check.C) {
	err := s.s.InsertURLs([]string{"https://a.com", "https://b.com", "https://a.com"})
	c.Assert(err, check.IsNil)

	pages, err := s.s.UncrawledPages(0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(urlsOf(pages), check.DeepEquals, []string{"https://a.com", "https://b.com"})

	has, err := s.s.HasUncrawled()
	c.Assert(err, check.IsNil)
	c.Assert(has, check.Equals, true)

	p, err := s.s.FindUncrawled("https://b.com")
	c.Assert(err, check.IsNil)
	c.Assert(p.URL, check.Equals, "https://b.com")
	c.Assert(p.ID, check.Equals, pages[1].ID)

	_, err = s.s.FindUncrawled("https://missing.com")
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)
}

// TestUncrawledPagesPaging verifies that uncrawled pages can be paged by id.
func (s *BaseSuite) TestUncrawledPagesPaging(c *check.C) {
	urls := []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"}
	c.Assert(s.s.InsertURLs(urls), check.IsNil)

	first, err := s.s.UncrawledPages(0, 2)
	c.Assert(err, check.IsNil)
	c.Assert(urlsOf(first), check.DeepEquals, urls[:2])

	rest, err := s.s.UncrawledPages(first[1].ID, 2)
	c.Assert(err, check.IsNil)
	c.Assert(urlsOf(rest), check.DeepEquals, urls[2:])

	none, err := s.s.UncrawledPages(rest[0].ID, 2)
	c.Assert(err, check.IsNil)
	c.Assert(none, check.HasLen, 0)
}

// TestBlockURL verifies that blocking a URL removes its page and edges and
// prevents it from being inserted again.
func (s *BaseSuite) TestBlockURL(c *check.C) {
	src := s.insertPage(c, "https://a.com")

	_, err := s.s.AddLinks(src.ID, []string{"https://b.com", "https://c.com"})
	c.Assert(err, check.IsNil)

	c.Assert(s.s.BlockURL("https://b.com"), check.IsNil)

	_, err = s.s.FindUncrawled("https://b.com")
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)

	c.Assert(s.collectEdges(c), check.HasLen, 1)

	// Blocked URLs are never inserted again, neither as seeds nor as links.
	c.Assert(s.s.InsertURLs([]string{"https://b.com"}), check.IsNil)
	added, err := s.s.AddLinks(src.ID, []string{"https://b.com"})
	c.Assert(err, check.IsNil)
	c.Assert(added, check.HasLen, 0)

	_, err = s.s.FindUncrawled("https://b.com")
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)

	// Blocking an unknown URL only records it.
	c.Assert(s.s.BlockURL("https://never-seen.com"), check.IsNil)
	c.Assert(s.s.BlockURL("https://never-seen.com"), check.IsNil)
}

// TestAddLinks verifies link insertion and edge creation.
func (s *BaseSuite) TestAddLinks(c *check.C) {
	src := s.insertPage(c, "https://a.com")
	c.Assert(s.s.InsertURLs([]string{"https://c.com"}), check.IsNil)

	added, err := s.s.AddLinks(src.ID, []string{"https://b.com", "https://c.com"})
	c.Assert(err, check.IsNil)
	c.Assert(added, check.DeepEquals, []string{"https://b.com"})

	b, err := s.s.FindUncrawled("https://b.com")
	c.Assert(err, check.IsNil)
	cPage, err := s.s.FindUncrawled("https://c.com")
	c.Assert(err, check.IsNil)

	edges := s.collectEdges(c)
	// c.com was seeded before b.com was discovered so it has a lower id.
	c.Assert(edges, check.DeepEquals, []store.Edge{
		{Src: src.ID, Dst: cPage.ID},
		{Src: src.ID, Dst: b.ID},
	})

	// Adding the same links again keeps the pages but records new edges.
	added, err = s.s.AddLinks(src.ID, []string{"https://b.com"})
	c.Assert(err, check.IsNil)
	c.Assert(added, check.HasLen, 0)
	c.Assert(s.collectEdges(c), check.HasLen, 3)
}

// TestMarkNonHTML verifies that non-HTML pages are marked crawled with
// placeholder metadata.
func (s *BaseSuite) TestMarkNonHTML(c *check.C) {
	p := s.insertPage(c, "https://a.com/doc.pdf")

	c.Assert(s.s.MarkNonHTML(p.ID, "application/pdf"), check.IsNil)

	crawled, err := s.s.IsCrawled(p.URL)
	c.Assert(err, check.IsNil)
	c.Assert(crawled, check.Equals, true)

	has, err := s.s.HasUncrawled()
	c.Assert(err, check.IsNil)
	c.Assert(has, check.Equals, false)

	err = s.s.MarkNonHTML(p.ID+1000, "application/pdf")
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)
}

// TestSaveIndexedPage verifies that indexed content is committed and the
// page is marked crawled.
func (s *BaseSuite) TestSaveIndexedPage(c *check.C) {
	p := s.insertPage(c, "https://a.com")

	crawled, err := s.s.IsCrawled(p.URL)
	c.Assert(err, check.IsNil)
	c.Assert(crawled, check.Equals, false)

	err = s.s.SaveIndexedPage(&store.IndexedPage{
		PageID:      p.ID,
		Title:       "A",
		Description: "about a",
		Terms:       map[string]int{"gopher": 3, "run": 1},
		Images: []store.Image{
			{URL: "https://a.com/x.png", Alt: "x", Context: "a gopher running"},
			{URL: "https://a.com/x.png", Alt: "dup", Context: "duplicate"},
		},
	})
	c.Assert(err, check.IsNil)

	crawled, err = s.s.IsCrawled(p.URL)
	c.Assert(err, check.IsNil)
	c.Assert(crawled, check.Equals, true)

	count, err := s.s.CountCrawled()
	c.Assert(err, check.IsNil)
	c.Assert(count, check.Equals, 1)

	postings := s.collectPostings(c)
	c.Assert(postings, check.HasLen, 2)
	freqs := map[int]bool{}
	for _, posting := range postings {
		c.Assert(posting.PageID, check.Equals, p.ID)
		c.Assert(posting.WordCount, check.Equals, 2)
		freqs[posting.Frequency] = true
	}
	c.Assert(freqs, check.DeepEquals, map[int]bool{1: true, 3: true})

	images, err := s.s.SearchImages("gopher", 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(images, check.HasLen, 1)
	c.Assert(*images[0], check.DeepEquals, store.ImageResult{
		URL: "https://a.com/x.png", Alt: "x", SourcePageID: p.ID,
	})

	err = s.s.SaveIndexedPage(&store.IndexedPage{PageID: p.ID + 1000})
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)
}

// TestRanks verifies that saving ranks replaces any previous ranks.
func (s *BaseSuite) TestRanks(c *check.C) {
	a := s.crawlPage(c, "https://a.com", map[string]int{"a": 1})
	b := s.crawlPage(c, "https://b.com", map[string]int{"b": 1})

	ids, err := s.s.CrawledPageIDs()
	c.Assert(err, check.IsNil)
	c.Assert(ids, check.DeepEquals, []int64{a.ID, b.ID})

	c.Assert(s.s.SaveRanks(map[int64]float64{a.ID: 0.3, b.ID: 0.7}), check.IsNil)
	c.Assert(s.s.SaveRanks(map[int64]float64{a.ID: 0.6}), check.IsNil)

	ranks, err := s.s.Ranks()
	c.Assert(err, check.IsNil)
	c.Assert(ranks, check.DeepEquals, map[int64]float64{a.ID: 0.6})
}

// TestPostingScores verifies document frequencies, score updates and page
// score sums.
func (s *BaseSuite) TestPostingScores(c *check.C) {
	a := s.crawlPage(c, "https://a.com", map[string]int{"go": 2, "fast": 1})
	b := s.crawlPage(c, "https://b.com", map[string]int{"go": 1})
	empty := s.crawlPage(c, "https://c.com", nil)

	dfs, err := s.s.DocumentFrequencies()
	c.Assert(err, check.IsNil)
	counts := make([]int, 0, len(dfs))
	for _, n := range dfs {
		counts = append(counts, n)
	}
	sort.Ints(counts)
	c.Assert(counts, check.DeepEquals, []int{1, 2})

	postings := s.collectPostings(c)
	c.Assert(postings, check.HasLen, 3)

	var scores []store.PostingScore
	for _, p := range postings {
		scores = append(scores, store.PostingScore{
			TermID: p.TermID, PageID: p.PageID, Score: float64(p.Frequency) / 10,
		})
	}
	c.Assert(s.s.UpdatePostingScores(scores), check.IsNil)

	sums, err := s.s.PageScoreSums()
	c.Assert(err, check.IsNil)
	c.Assert(sums, check.HasLen, 2)
	c.Assert(math.Abs(sums[a.ID]-0.3) < 1e-9, check.Equals, true,
		check.Commentf("expected score sum 0.3; got %f", sums[a.ID]),
	)
	c.Assert(math.Abs(sums[b.ID]-0.1) < 1e-9, check.Equals, true,
		check.Commentf("expected score sum 0.1; got %f", sums[b.ID]),
	)
	_, exists := sums[empty.ID]
	c.Assert(exists, check.Equals, false)
}

// TestSearch verifies ordering by final rank and pagination.
func (s *BaseSuite) TestSearch(c *check.C) {
	a := s.crawlPage(c, "https://a.com", map[string]int{"go": 1})
	b := s.crawlPage(c, "https://b.com", map[string]int{"go": 1, "rust": 1})
	unranked := s.crawlPage(c, "https://c.com", map[string]int{"rust": 1})
	s.crawlPage(c, "https://d.com", map[string]int{"zig": 1})

	c.Assert(s.s.UpdateFinalRanks(map[int64]float64{a.ID: 0.2, b.ID: 0.9}), check.IsNil)

	results, total, err := s.s.Search([]string{"go", "rust"}, 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(total, check.Equals, 3)
	c.Assert(len(results), check.Equals, 3)
	c.Assert(results[0].URL, check.Equals, b.URL)
	c.Assert(*results[0].FinalRank, check.Equals, 0.9)
	c.Assert(results[1].URL, check.Equals, a.URL)
	c.Assert(results[2].URL, check.Equals, unranked.URL)
	c.Assert(results[2].FinalRank, check.IsNil)

	results, total, err = s.s.Search([]string{"go", "rust"}, 2, 2)
	c.Assert(err, check.IsNil)
	c.Assert(total, check.Equals, 3)
	c.Assert(results, check.HasLen, 1)

	results, total, err = s.s.Search([]string{"missing"}, 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(total, check.Equals, 0)
	c.Assert(results, check.HasLen, 0)

	c.Assert(s.s.ClearFinalRanks(), check.IsNil)
	results, _, err = s.s.Search([]string{"go"}, 0, 10)
	c.Assert(err, check.IsNil)
	for _, r := range results {
		c.Assert(r.FinalRank, check.IsNil)
	}
}

// TestRandomPage verifies that only crawled pages are returned.
func (s *BaseSuite) TestRandomPage(c *check.C) {
	_, err := s.s.RandomPage()
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)

	c.Assert(s.s.InsertURLs([]string{"https://uncrawled.com"}), check.IsNil)
	_, err = s.s.RandomPage()
	c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true)

	p := s.crawlPage(c, "https://a.com", map[string]int{"a": 1})
	url, err := s.s.RandomPage()
	c.Assert(err, check.IsNil)
	c.Assert(url, check.Equals, p.URL)
}

// TestSearchImages verifies substring matching and pagination of images.
func (s *BaseSuite) TestSearchImages(c *check.C) {
	p := s.insertPage(c, "https://a.com")
	err := s.s.SaveIndexedPage(&store.IndexedPage{
		PageID: p.ID,
		Title:  "A",
		Images: []store.Image{
			{URL: "https://a.com/1.png", Context: "The Golden Gate bridge"},
			{URL: "https://a.com/2.png", Context: "another golden sunset"},
			{URL: "https://a.com/3.png", Context: "a 100% match"},
			{URL: "https://a.com/4.png", Context: "nothing here"},
		},
	})
	c.Assert(err, check.IsNil)

	images, err := s.s.SearchImages("GOLDEN", 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(images, check.HasLen, 2)

	images, err = s.s.SearchImages("golden", 1, 10)
	c.Assert(err, check.IsNil)
	c.Assert(images, check.HasLen, 1)
	c.Assert(images[0].URL, check.Equals, "https://a.com/2.png")

	images, err = s.s.SearchImages("100%", 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(images, check.HasLen, 1)
	c.Assert(images[0].URL, check.Equals, "https://a.com/3.png")
}

func (s *BaseSuite) insertPage(c *check.C, url string) *store.Page {
	c.Assert(s.s.InsertURLs([]string{url}), check.IsNil)

	p, err := s.s.FindUncrawled(url)
	c.Assert(err, check.IsNil)

	return p
}

func (s *BaseSuite) crawlPage(c *check.C, url string, terms map[string]int) *store.Page {
	p := s.insertPage(c, url)

	err := s.s.SaveIndexedPage(&store.IndexedPage{
		PageID: p.ID, Title: url, Description: url, Terms: terms,
	})
	c.Assert(err, check.IsNil)

	return p
}

func (s *BaseSuite) collectEdges(c *check.C) []store.Edge {
	it, err := s.s.Edges()
	c.Assert(err, check.IsNil)

	var edges []store.Edge
	for it.Next() {
		edges = append(edges, *it.Edge())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Src != edges[j].Src {
			return edges[i].Src < edges[j].Src
		}
		return edges[i].Dst < edges[j].Dst
	})

	return edges
}

func (s *BaseSuite) collectPostings(c *check.C) []*store.Posting {
	it, err := s.s.Postings()
	c.Assert(err, check.IsNil)

	var postings []*store.Posting
	for it.Next() {
		postings = append(postings, it.Posting())
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)

	return postings
}

func urlsOf(pages []*store.Page) []string {
	urls := make([]string, len(pages))
	for i, p := range pages {
		urls[i] = p.URL
	}

	return urls
}
