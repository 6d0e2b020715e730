/*
Package crawler implements a polite concurrent web crawler. A fixed pool of
workers shares a bounded frontier and the persistent store. Every worker
repeatedly:
 1. Pops a URL from the frontier and confirms it maps to an uncrawled page.
 2. Checks robots.txt rules and the private network guard, blocking the URL
    when either denies it.
 3. Waits until the per-host politeness interval has elapsed.
 4. Fetches the page, blocking it when it cannot be retrieved and storing a
    placeholder when it is not HTML.
 5. Records the outgoing links as graph edges and queues the new ones.
 6. Indexes the page content and commits it as crawled.

The crawl stops once the page ceiling is exceeded, or when neither the
frontier nor the store backlog holds any work and no worker is busy.
*/
package crawler

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mycok/spiderank/store"
	"github.com/mycok/spiderank/textindexer"
)

// Crawler coordinates crawl runs against a store.
type Crawler struct {
	cfg        Config
	politeness *politeness
	fetcher    *fetcher

	// storeMu serializes the store sequences that must appear atomic to
	// other workers. It is never held during network I/O.
	storeMu sync.Mutex

	randMu sync.Mutex
	rand   *rand.Rand
}

// New returns a configured crawler.
func New(cfg Config) (*Crawler, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("crawler: config validation failed: %w", err)
	}

	c := &Crawler{
		cfg:  cfg,
		rand: rand.New(rand.NewSource(cfg.Clock.Now().UnixNano())),
	}
	c.politeness = newPoliteness(cfg, c.userAgent)
	c.fetcher = newFetcher(cfg, c.userAgent)

	return c, nil
}

// Crawl runs the worker pool until the crawl is exhausted, the page ceiling
// is exceeded or ctx is cancelled. Calls to Crawl must not overlap.
func (c *Crawler) Crawl(ctx context.Context) (Stats, error) {
	r := &run{
		Crawler:  c,
		frontier: NewFrontier(c.cfg.FrontierSize, c.cfg.Clock),
		coord:    newCoordinator(c.cfg.MaxPages),
		logger:   c.cfg.Logger,
	}

	if _, err := r.refill(); err != nil {
		return Stats{}, err
	}

	r.logger.WithFields(logrus.Fields{
		"workers":   c.cfg.NumOfWorkers,
		"queued":    r.frontier.Len(),
		"max_pages": c.cfg.MaxPages,
	}).Info("starting crawl")

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < c.cfg.NumOfWorkers; i++ {
		group.Go(func() error {
			return r.work(groupCtx)
		})
	}
	err := group.Wait()

	stats := r.coord.snapshot()
	r.logger.WithFields(logrus.Fields{
		"crawled":  stats.Crawled,
		"non_html": stats.NonHTML,
		"blocked":  stats.Blocked,
		"errors":   stats.Errors,
	}).Info("crawl finished")

	if err != nil {
		return stats, fmt.Errorf("crawl: %w", err)
	}

	return stats, ctx.Err()
}

func (c *Crawler) userAgent() string {
	c.randMu.Lock()
	defer c.randMu.Unlock()

	return c.cfg.UserAgents[c.rand.Intn(len(c.cfg.UserAgents))]
}

// maxRefillFailures is the number of consecutive refill errors a worker
// tolerates before giving up on the store.
const maxRefillFailures = 3

// run holds the state of a single crawl.
type run struct {
	*Crawler
	frontier *Frontier
	coord    *coordinator
	logger   *logrus.Entry
}

// work runs a worker until the crawl stops. It only fails when the store
// keeps failing to refill the frontier, which ends the whole pool.
func (r *run) work(ctx context.Context) error {
	var refillFailures int
	for ctx.Err() == nil && !r.coord.isStopped() {
		pageURL, ok := r.frontier.Pop(ctx, r.cfg.FrontierWait)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}

			more, err := r.refill()
			if err != nil {
				if refillFailures++; refillFailures >= maxRefillFailures {
					r.coord.stop()
					return err
				}
				r.logger.WithField("err", err).Warn("refilling frontier")
				continue
			}
			refillFailures = 0

			if !more {
				r.coord.stop()
				return nil
			}
			continue
		}

		r.handle(ctx, pageURL)
	}

	return nil
}

// refill queues eligible uncrawled pages from the store. It reports false
// when the store has nothing left to offer and no worker is busy.
func (r *run) refill() (bool, error) {
	r.storeMu.Lock()
	defer r.storeMu.Unlock()

	var (
		afterID int64
		queued  int
	)
	for queued == 0 {
		pages, err := r.cfg.Store.UncrawledPages(afterID, r.cfg.FrontierSize)
		if err != nil {
			return false, fmt.Errorf("refill frontier: %w", err)
		}
		if len(pages) == 0 {
			break
		}

		for _, page := range pages {
			afterID = page.ID
			if !r.coord.eligible(page.URL) {
				continue
			}
			if r.frontier.Push(page.URL) != 0 {
				return true, nil
			}
			queued++
		}
	}

	if queued > 0 {
		return true, nil
	}

	// Busy workers may still discover new links.
	return !r.coord.idle(), nil
}

func (r *run) handle(ctx context.Context, pageURL string) {
	if !r.coord.claim(pageURL) {
		return
	}

	var err error
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
		if err != nil {
			r.logger.WithFields(logrus.Fields{
				"url": pageURL,
				"err": err,
			}).Warn("crawling page failed")
		}
		r.coord.release(pageURL, err != nil)
	}()

	err = r.process(ctx, pageURL)
	if err != nil && ctx.Err() != nil {
		// Shutting down; the page stays uncrawled for the next run.
		err = nil
	}
}

func (r *run) process(ctx context.Context, pageURL string) error {
	r.storeMu.Lock()
	page, err := r.cfg.Store.FindUncrawled(pageURL)
	r.storeMu.Unlock()
	if errors.Is(err, store.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("find page: %w", err)
	}

	if err := r.politeness.Check(ctx, pageURL); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.block(pageURL, err)
	}

	if err := r.politeness.Wait(ctx, pageURL); err != nil {
		return err
	}

	res, err := r.fetcher.Fetch(ctx, pageURL)
	switch {
	case errors.Is(err, ErrNotHTML):
		return r.storeNonHTML(page, res.ContentType)
	case errors.Is(err, ErrUnfetchable):
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return r.block(pageURL, err)
	case err != nil:
		return err
	}

	links, skipped := extractLinks(res.Doc, pageURL)
	for _, skip := range skipped {
		r.logger.WithFields(logrus.Fields{
			"url":    pageURL,
			"link":   skip.Item,
			"reason": skip.Reason,
		}).Debug("skipping link")
	}

	if err := r.addLinks(page.ID, links); err != nil {
		return err
	}

	r.storeMu.Lock()
	crawled, err := r.cfg.Store.IsCrawled(pageURL)
	if err != nil {
		r.storeMu.Unlock()
		return fmt.Errorf("check crawled: %w", err)
	}
	if crawled {
		r.storeMu.Unlock()
		return nil
	}
	admitted := r.coord.admit()
	r.storeMu.Unlock()

	if !admitted {
		dropped := r.frontier.Drain()
		r.logger.WithFields(logrus.Fields{
			"max_pages": r.cfg.MaxPages,
			"dropped":   dropped,
		}).Info("crawl ceiling reached")

		return nil
	}

	doc := r.cfg.Indexer.Index(res.Doc, pageURL)
	for _, skip := range doc.Skipped {
		r.logger.WithFields(logrus.Fields{
			"url":    pageURL,
			"image":  skip.Item,
			"reason": skip.Reason,
		}).Debug("skipping image")
	}

	r.storeMu.Lock()
	err = r.cfg.Store.SaveIndexedPage(indexedPage(page.ID, doc))
	r.storeMu.Unlock()
	if err != nil {
		return fmt.Errorf("save page: %w", err)
	}

	r.coord.recordCrawled()
	r.logger.WithFields(logrus.Fields{
		"url":   pageURL,
		"words": len(doc.Terms),
		"links": len(links),
	}).Debug("crawled page")

	return nil
}

// addLinks records the outgoing links of a page in batches and queues the
// URLs that were not known before.
func (r *run) addLinks(srcID int64, links []string) error {
	for start := 0; start < len(links); start += r.cfg.LinkBatchSize {
		end := start + r.cfg.LinkBatchSize
		if end > len(links) {
			end = len(links)
		}

		r.storeMu.Lock()
		added, err := r.cfg.Store.AddLinks(srcID, links[start:end])
		r.storeMu.Unlock()
		if err != nil {
			return fmt.Errorf("add links: %w", err)
		}

		if dropped := r.frontier.Push(added...); dropped > 0 {
			r.logger.WithField("dropped", dropped).Debug("frontier full")
		}
	}

	return nil
}

func (r *run) block(pageURL string, reason error) error {
	r.storeMu.Lock()
	err := r.cfg.Store.BlockURL(pageURL)
	r.storeMu.Unlock()
	if err != nil {
		return fmt.Errorf("block url: %w", err)
	}

	r.coord.recordBlocked()
	r.logger.WithFields(logrus.Fields{
		"url":    pageURL,
		"reason": reason,
	}).Info("blocked url")

	return nil
}

func (r *run) storeNonHTML(page *store.Page, contentType string) error {
	r.storeMu.Lock()
	err := r.cfg.Store.MarkNonHTML(page.ID, contentType)
	r.storeMu.Unlock()
	if err != nil {
		return fmt.Errorf("mark non-html: %w", err)
	}

	r.coord.recordNonHTML()

	return nil
}

func indexedPage(pageID int64, doc *textindexer.Document) *store.IndexedPage {
	images := make([]store.Image, 0, len(doc.Images))
	for _, img := range doc.Images {
		images = append(images, store.Image{
			URL:     img.URL,
			Title:   img.Title,
			Alt:     img.Alt,
			Context: img.Context,
		})
	}

	return &store.IndexedPage{
		PageID:      pageID,
		Title:       doc.Title,
		Description: doc.Description,
		Terms:       doc.Terms,
		Images:      images,
	}
}
