package indexer

import (
	"fmt"
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/juju/clock"
	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/crawler"
	"github.com/mycok/spiderank/crawler/privnet"
	"github.com/mycok/spiderank/ranking"
	"github.com/mycok/spiderank/store"
)

// DefaultSeeds are queued when the store holds no uncrawled page.
var DefaultSeeds = []string{
	"https://en.wikipedia.org/wiki/Google",
	"https://www.bbc.com/news/world",
	"https://news.ycombinator.com/",
}

// Config defines configurations for the indexer service.
type Config struct {
	// The store to crawl into and rank.
	Store store.Store

	// URLs queued when no uncrawled page is left. Defaults to DefaultSeeds.
	Seeds []string

	// Crawler settings. Store, Clock and Logger are filled in by the
	// service. If no private network detector is set, a detector for the
	// RFC1918 ranges is used unless AllowPrivateNetworks is set.
	Crawler crawler.Config

	// Permit crawling hosts that resolve to private networks.
	AllowPrivateNetworks bool

	// Ranking settings. Store and Logger are filled in by the service.
	Ranking ranking.Config

	// The duration between subsequent crawl and rank passes when the
	// service runs continuously. Defaults to 24h.
	PassInterval time.Duration

	// A clock instance for generating time-related events. If not specified,
	// the default wall-clock will be used instead.
	Clock clock.Clock

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Store == nil {
		err = multierror.Append(err, fmt.Errorf("store not provided"))
	}

	if len(config.Seeds) == 0 {
		config.Seeds = DefaultSeeds
	}

	if config.Crawler.PrivateNetworkDetector == nil && !config.AllowPrivateNetworks {
		detector, detErr := privnet.NewDetector()
		if detErr != nil {
			err = multierror.Append(err, detErr)
		} else {
			config.Crawler.PrivateNetworkDetector = detector
		}
	}

	if config.PassInterval == 0 {
		config.PassInterval = 24 * time.Hour
	} else if config.PassInterval < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for pass interval, must be > 0"))
	}

	if config.Clock == nil {
		config.Clock = clock.WallClock
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	config.Crawler.Store = config.Store
	config.Crawler.Clock = config.Clock
	config.Crawler.Logger = config.Logger.WithField("component", "crawler")

	config.Ranking.Store = config.Store
	config.Ranking.Logger = config.Logger.WithField("component", "ranking")

	return err
}
