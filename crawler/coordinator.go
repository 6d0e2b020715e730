package crawler

import "sync"

// Stats summarizes a crawl run.
type Stats struct {
	// Pages fetched, indexed and committed as crawled.
	Crawled int
	// Pages stored with a Non-HTML placeholder.
	NonHTML int
	// URLs blocked because they were denied or could not be fetched.
	Blocked int
	// URLs whose processing failed unexpectedly.
	Errors int
}

// coordinator tracks the state shared by the workers of a crawl run: the
// committed page count, the stop signal and the URLs being processed.
type coordinator struct {
	mu       sync.Mutex
	maxPages int
	admitted int
	stopped  bool

	inFlight map[string]struct{}
	// URLs that failed unexpectedly stay uncrawled in the store and are not
	// retried during this run.
	abandoned map[string]struct{}

	stats Stats
}

func newCoordinator(maxPages int) *coordinator {
	return &coordinator{
		maxPages:  maxPages,
		inFlight:  make(map[string]struct{}),
		abandoned: make(map[string]struct{}),
	}
}

// claim marks url as in flight. It reports false if the crawl has stopped
// or url is already being processed or was abandoned.
func (c *coordinator) claim(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}
	if _, found := c.inFlight[url]; found {
		return false
	}
	if _, found := c.abandoned[url]; found {
		return false
	}

	c.inFlight[url] = struct{}{}

	return true
}

// release clears the in-flight mark for url. Abandoned URLs are never
// claimed again.
func (c *coordinator) release(url string, abandon bool) {
	c.mu.Lock()
	delete(c.inFlight, url)
	if abandon {
		c.abandoned[url] = struct{}{}
		c.stats.Errors++
	}
	c.mu.Unlock()
}

// eligible reports whether url may be queued by a frontier refill.
func (c *coordinator) eligible(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, busy := c.inFlight[url]
	_, abandoned := c.abandoned[url]

	return !busy && !abandoned
}

// admit counts one more crawled page. It reports false, and stops the
// crawl, once the count exceeds the ceiling.
func (c *coordinator) admit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stopped {
		return false
	}

	c.admitted++
	if c.admitted > c.maxPages {
		c.stopped = true
		return false
	}

	return true
}

func (c *coordinator) stop() {
	c.mu.Lock()
	c.stopped = true
	c.mu.Unlock()
}

func (c *coordinator) isStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stopped
}

// idle reports whether no URL is being processed.
func (c *coordinator) idle() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.inFlight) == 0
}

func (c *coordinator) recordCrawled() {
	c.mu.Lock()
	c.stats.Crawled++
	c.mu.Unlock()
}

func (c *coordinator) recordNonHTML() {
	c.mu.Lock()
	c.stats.NonHTML++
	c.mu.Unlock()
}

func (c *coordinator) recordBlocked() {
	c.mu.Lock()
	c.stats.Blocked++
	c.mu.Unlock()
}

func (c *coordinator) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stats
}
