package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/juju/clock"
	"github.com/sirupsen/logrus"
	"github.com/temoto/robotstxt"
	"golang.org/x/time/rate"
)

const maxRobotsBytes = 512 << 10

// politeness decides whether a URL may be fetched and spaces out requests
// to the same host.
type politeness struct {
	client        Doer
	detector      PrivateNetworkDetector
	clk           clock.Clock
	interval      time.Duration
	robotsTimeout time.Duration
	userAgent     func() string
	logger        *logrus.Entry

	mu sync.Mutex
	// Parsed robots.txt files keyed by origin. Only successful fetches
	// are cached.
	robots   map[string]*robotstxt.RobotsData
	limiters map[string]*rate.Limiter
}

func newPoliteness(cfg Config, userAgent func() string) *politeness {
	return &politeness{
		client:        cfg.HTTPClient,
		detector:      cfg.PrivateNetworkDetector,
		clk:           cfg.Clock,
		interval:      cfg.PolitenessInterval,
		robotsTimeout: cfg.RobotsTimeout,
		userAgent:     userAgent,
		logger:        cfg.Logger,
		robots:        make(map[string]*robotstxt.RobotsData),
		limiters:      make(map[string]*rate.Limiter),
	}
}

// Check returns nil if rawURL may be crawled. Denials wrap ErrPolicyDenied.
func (p *politeness) Check(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: malformed url: %v", ErrPolicyDenied, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: unsupported scheme %q", ErrPolicyDenied, u.Scheme)
	}

	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrPolicyDenied)
	}

	if p.detector != nil {
		lookupCtx, cancel := context.WithTimeout(ctx, p.robotsTimeout)
		private, err := p.detector.IsNetworkPrivate(lookupCtx, u.Hostname())
		cancel()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return fmt.Errorf("%w: resolve host: %v", ErrPolicyDenied, err)
		}
		if private {
			return fmt.Errorf("%w: host %q resolves to a private network", ErrPolicyDenied, u.Hostname())
		}
	}

	rules, err := p.rules(ctx, u)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"url": rawURL,
			"err": err,
		}).Warn("robots.txt unreachable")

		return fmt.Errorf("%w: robots.txt unreachable: %v", ErrPolicyDenied, err)
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}

	if !rules.TestAgent(path, "*") {
		return fmt.Errorf("%w: disallowed by robots.txt", ErrPolicyDenied)
	}

	return nil
}

// Wait blocks until a request to the host of rawURL respects the minimum
// interval since the previous request to that host. The reservation is
// taken under the lock so concurrent workers never share a slot.
func (p *politeness) Wait(ctx context.Context, rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: malformed url: %v", ErrPolicyDenied, err)
	}
	host := strings.ToLower(u.Host)

	p.mu.Lock()
	limiter, found := p.limiters[host]
	if !found {
		limiter = rate.NewLimiter(rate.Every(p.interval), 1)
		p.limiters[host] = limiter
	}
	now := p.clk.Now()
	delay := limiter.ReserveN(now, 1).DelayFrom(now)
	p.mu.Unlock()

	if delay <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-p.clk.After(delay):
		return nil
	}
}

func (p *politeness) rules(ctx context.Context, u *url.URL) (*robotstxt.RobotsData, error) {
	origin := u.Scheme + "://" + strings.ToLower(u.Host)

	p.mu.Lock()
	data, found := p.robots[origin]
	p.mu.Unlock()
	if found {
		return data, nil
	}

	status, body, err := p.fetchRobots(ctx, origin+"/robots.txt")
	if err != nil {
		return nil, err
	}

	// 4xx responses permit everything and 5xx responses forbid everything.
	data, err = robotstxt.FromStatusAndBytes(status, body)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"origin": origin,
			"err":    err,
		}).Debug("skipping malformed robots.txt")

		data, _ = robotstxt.FromStatusAndBytes(http.StatusNotFound, nil)
	}

	p.mu.Lock()
	p.robots[origin] = data
	p.mu.Unlock()

	return data, nil
}

func (p *politeness) fetchRobots(ctx context.Context, robotsURL string) (int, []byte, error) {
	ctx, cancel := context.WithTimeout(ctx, p.robotsTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("User-Agent", p.userAgent())

	res, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxRobotsBytes))
	if err != nil {
		return 0, nil, err
	}

	return res.StatusCode, body, nil
}
