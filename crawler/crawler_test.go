package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/golang/mock/gomock"
	check "gopkg.in/check.v1"

	mock_crawler "github.com/mycok/spiderank/crawler/mocks"
	"github.com/mycok/spiderank/store"
	"github.com/mycok/spiderank/store/memory"
)

// Initialize and register a pointer instance of the crawlerTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(crawlerTestSuite))

var testPages = map[string]string{
	"/a": `<html><head><title>Page A</title></head><body>
		<p>Alpha page about gophers.</p>
		<a href="/b">B</a>
		<a href="/private/x">Private</a>
		<a href="#top">Top</a>
	</body></html>`,
	"/b": `<html><head><title>Page B</title></head><body>
		<p>Bravo page about gophers and crawlers.</p>
		<img src="/gopher.png" alt="A gopher">
		<a href="/c">C</a>
		<a href="/doc.pdf">Document</a>
	</body></html>`,
	"/c": `<html><head><title>Page C</title></head><body>
		<p>Charlie page.</p>
		<a href="/a">A</a>
		<a href="/missing">Missing</a>
	</body></html>`,
}

type crawlerTestSuite struct {
	srv      *httptest.Server
	store    *memory.InMemoryStore
	detector *mock_crawler.MockPrivateNetworkDetector
}

func (s *crawlerTestSuite) SetUpTest(c *check.C) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\n")
	})
	mux.HandleFunc("/doc.pdf", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		fmt.Fprint(w, "%PDF-1.4")
	})
	for path, body := range testPages {
		body := body
		mux.HandleFunc(path, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, body)
		})
	}

	s.srv = httptest.NewServer(mux)
	s.store = memory.NewInMemoryStore()

	ctrl := gomock.NewController(c)
	s.detector = mock_crawler.NewMockPrivateNetworkDetector(ctrl)
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
}

func (s *crawlerTestSuite) TearDownTest(c *check.C) {
	s.srv.Close()
}

func (s *crawlerTestSuite) TestCrawl(c *check.C) {
	c.Assert(s.store.InsertURLs([]string{s.url("/a")}), check.IsNil)

	stats, err := s.newCrawler(c, 100, 3).Crawl(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(stats, check.DeepEquals, Stats{Crawled: 3, NonHTML: 1, Blocked: 2})

	for _, path := range []string{"/a", "/b", "/c", "/doc.pdf"} {
		crawled, err := s.store.IsCrawled(s.url(path))
		c.Assert(err, check.IsNil)
		c.Assert(crawled, check.Equals, true, check.Commentf("page %s", path))
	}

	// Denied and unfetchable URLs are removed from the backlog.
	for _, path := range []string{"/private/x", "/missing"} {
		_, err := s.store.FindUncrawled(s.url(path))
		c.Assert(errors.Is(err, store.ErrNotFound), check.Equals, true, check.Commentf("page %s: %v", path, err))
	}

	pending, err := s.store.HasUncrawled()
	c.Assert(err, check.IsNil)
	c.Assert(pending, check.Equals, false)

	// a->b, b->c, b->doc.pdf and c->a survive; edges to blocked URLs do not.
	it, err := s.store.Edges()
	c.Assert(err, check.IsNil)
	var edges int
	for it.Next() {
		edges++
	}
	c.Assert(it.Error(), check.IsNil)
	c.Assert(it.Close(), check.IsNil)
	c.Assert(edges, check.Equals, 4)

	images, err := s.store.SearchImages("bravo", 0, 10)
	c.Assert(err, check.IsNil)
	c.Assert(images, check.HasLen, 1)
	c.Assert(images[0].URL, check.Equals, s.url("/gopher.png"))
	c.Assert(images[0].Alt, check.Equals, "A gopher")
}

func (s *crawlerTestSuite) TestCrawlStopsPastCeiling(c *check.C) {
	c.Assert(s.store.InsertURLs([]string{s.url("/a")}), check.IsNil)

	stats, err := s.newCrawler(c, 1, 1).Crawl(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(stats.Crawled, check.Equals, 1)

	crawled, err := s.store.IsCrawled(s.url("/a"))
	c.Assert(err, check.IsNil)
	c.Assert(crawled, check.Equals, true)

	// The page that hit the ceiling stays in the backlog for the next run.
	crawled, err = s.store.IsCrawled(s.url("/b"))
	c.Assert(err, check.IsNil)
	c.Assert(crawled, check.Equals, false)

	pending, err := s.store.HasUncrawled()
	c.Assert(err, check.IsNil)
	c.Assert(pending, check.Equals, true)
}

func (s *crawlerTestSuite) TestCrawlWithEmptyBacklog(c *check.C) {
	stats, err := s.newCrawler(c, 10, 2).Crawl(context.TODO())
	c.Assert(err, check.IsNil)
	c.Assert(stats, check.DeepEquals, Stats{})
}

func (s *crawlerTestSuite) TestCrawlCancelled(c *check.C) {
	c.Assert(s.store.InsertURLs([]string{s.url("/a")}), check.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()

	_, err := s.newCrawler(c, 10, 2).Crawl(ctx)
	c.Assert(err, check.Equals, context.Canceled)

	pending, err := s.store.HasUncrawled()
	c.Assert(err, check.IsNil)
	c.Assert(pending, check.Equals, true)
}

func (s *crawlerTestSuite) TestCrawlFailsWhenStoreKeepsFailing(c *check.C) {
	st := &failingRefillStore{InMemoryStore: s.store, healthyCalls: 1}

	cr, err := New(Config{
		Store:                  st,
		HTTPClient:             s.srv.Client(),
		PrivateNetworkDetector: s.detector,
		NumOfWorkers:           2,
		MaxPages:               10,
		PolitenessInterval:     time.Millisecond,
		FrontierWait:           10 * time.Millisecond,
	})
	c.Assert(err, check.IsNil)

	_, err = cr.Crawl(context.TODO())
	c.Assert(err, check.ErrorMatches, "crawl: refill frontier: database is locked")
}

func (s *crawlerTestSuite) TestInvalidConfig(c *check.C) {
	_, err := New(Config{NumOfWorkers: -1, MaxPages: -1})
	c.Assert(err, check.ErrorMatches, "(?ms).*store not provided.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*number of workers.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*max pages.*")
}

func (s *crawlerTestSuite) newCrawler(c *check.C, maxPages, workers int) *Crawler {
	cr, err := New(Config{
		Store:                  s.store,
		HTTPClient:             s.srv.Client(),
		PrivateNetworkDetector: s.detector,
		NumOfWorkers:           workers,
		MaxPages:               maxPages,
		PolitenessInterval:     time.Millisecond,
		FrontierWait:           50 * time.Millisecond,
	})
	c.Assert(err, check.IsNil)

	return cr
}

func (s *crawlerTestSuite) url(path string) string {
	return s.srv.URL + path
}

// failingRefillStore serves the first healthyCalls uncrawled page lookups
// and fails every later one.
type failingRefillStore struct {
	*memory.InMemoryStore

	mu           sync.Mutex
	healthyCalls int
}

func (st *failingRefillStore) UncrawledPages(afterID int64, limit int) ([]*store.Page, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.healthyCalls == 0 {
		return nil, errors.New("database is locked")
	}
	st.healthyCalls--

	return st.InMemoryStore.UncrawledPages(afterID, limit)
}
