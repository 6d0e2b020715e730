package crawler

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/textindexer"
)

// DefaultUserAgents is the pool of browser user agents requests rotate through.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

// Config encapsulates the settings for the crawler.
type Config struct {
	// Store holds the frontier backlog, the link graph and the inverted
	// index.
	Store Store

	// Indexer turns fetched pages into indexable documents. If not
	// specified an indexer with a Porter stemmer is used.
	Indexer *textindexer.Indexer

	// HTTPClient executes page and robots.txt requests. Defaults to a
	// client without a global timeout; every request carries its own
	// deadline.
	HTTPClient Doer

	// PrivateNetworkDetector rejects hosts that resolve to private
	// addresses. When nil no such check is made.
	PrivateNetworkDetector PrivateNetworkDetector

	// A clock instance for pacing requests and frontier waits. Defaults
	// to the wall clock.
	Clock clock.Clock

	// Number of concurrent workers. Defaults to 20.
	NumOfWorkers int

	// Upper bound of pages committed as crawled during a single run.
	// Defaults to 10000.
	MaxPages int

	// Minimum delay between two requests to the same host. Defaults to 2s.
	PolitenessInterval time.Duration

	// Deadline of a single page request. Defaults to 20s.
	FetchTimeout time.Duration

	// Deadline of a robots.txt request. Defaults to 10s.
	RobotsTimeout time.Duration

	// Maximum number of body bytes read from a page. Defaults to 5MiB.
	MaxBodyBytes int64

	// Capacity of the in-memory frontier. Defaults to 10000.
	FrontierSize int

	// How long an idle worker waits on the frontier before it checks the
	// store for remaining work. Defaults to 1s.
	FrontierWait time.Duration

	// Number of discovered links submitted per store call. Defaults to 500.
	LinkBatchSize int

	// User agents to rotate through. Defaults to DefaultUserAgents.
	UserAgents []string

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Store == nil {
		err = multierror.Append(err, fmt.Errorf("store not provided"))
	}

	if cfg.Indexer == nil {
		analyzer, aErr := textindexer.NewAnalyzer(nil)
		if aErr != nil {
			err = multierror.Append(err, aErr)
		} else {
			cfg.Indexer = textindexer.NewIndexer(analyzer)
		}
	}

	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}

	if cfg.NumOfWorkers == 0 {
		cfg.NumOfWorkers = 20
	} else if cfg.NumOfWorkers < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for number of workers, must be > 0"))
	}

	if cfg.MaxPages == 0 {
		cfg.MaxPages = 10000
	} else if cfg.MaxPages < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for max pages, must be > 0"))
	}

	if cfg.PolitenessInterval == 0 {
		cfg.PolitenessInterval = 2 * time.Second
	} else if cfg.PolitenessInterval < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for politeness interval, must be > 0"))
	}

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 20 * time.Second
	}

	if cfg.RobotsTimeout <= 0 {
		cfg.RobotsTimeout = 10 * time.Second
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 5 << 20
	}

	if cfg.FrontierSize == 0 {
		cfg.FrontierSize = 10000
	} else if cfg.FrontierSize < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for frontier size, must be > 0"))
	}

	if cfg.FrontierWait <= 0 {
		cfg.FrontierWait = time.Second
	}

	if cfg.LinkBatchSize == 0 {
		cfg.LinkBatchSize = 500
	} else if cfg.LinkBatchSize < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for link batch size, must be > 0"))
	}

	if len(cfg.UserAgents) == 0 {
		cfg.UserAgents = DefaultUserAgents
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
