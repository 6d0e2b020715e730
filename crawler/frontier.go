package crawler

import (
	"context"
	"time"

	"github.com/juju/clock"
)

// Frontier is a bounded FIFO of URLs awaiting a crawl. Pushes never block:
// URLs that do not fit are dropped and picked up again later from the
// store backlog.
type Frontier struct {
	queue chan string
	clk   clock.Clock
}

// NewFrontier returns a frontier holding at most size URLs.
func NewFrontier(size int, clk clock.Clock) *Frontier {
	if clk == nil {
		clk = clock.WallClock
	}

	return &Frontier{queue: make(chan string, size), clk: clk}
}

// Push appends urls to the frontier and returns the number of URLs that
// were dropped because the frontier was full.
func (f *Frontier) Push(urls ...string) int {
	for i, u := range urls {
		select {
		case f.queue <- u:
		default:
			return len(urls) - i
		}
	}

	return 0
}

// Pop removes the oldest URL from the frontier. It waits at most wait for
// one to become available and reports false if none did or ctx expired.
func (f *Frontier) Pop(ctx context.Context, wait time.Duration) (string, bool) {
	select {
	case u := <-f.queue:
		return u, true
	default:
	}

	select {
	case u := <-f.queue:
		return u, true
	case <-ctx.Done():
		return "", false
	case <-f.clk.After(wait):
		return "", false
	}
}

// Drain discards every queued URL and returns how many were removed.
func (f *Frontier) Drain() int {
	var n int
	for {
		select {
		case <-f.queue:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued URLs.
func (f *Frontier) Len() int {
	return len(f.queue)
}
