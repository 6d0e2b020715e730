package frontend

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/store"
	"github.com/mycok/spiderank/textindexer"
)

const defaultNumOfResultsPerPage = 20

// Searcher defines the queries served by the front-end.
type Searcher interface {
	// Search returns a page of ranked results and the number of pages.
	Search(query string, page, perPage int) ([]*store.SearchResult, int, error)

	// SearchImages returns a page of images whose context matches query.
	SearchImages(query string, page, perPage int) ([]*store.ImageResult, error)

	// RandomPage returns the URL of a random crawled page.
	RandomPage() (string, error)
}

// Config defines configurations for the front-end service.
type Config struct {
	// API for running queries.
	Searcher Searcher

	// Analyzer used to highlight query matches in result descriptions. It
	// must match the analyzer used to build the index.
	Analyzer *textindexer.Analyzer

	// Address to listen for incoming requests.
	ListenAddr string

	// Number of results per page when a request does not set per_page.
	// Defaults to 20.
	NumOfResultsPerPage int

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (config *Config) validate() error {
	var err error

	if config.Searcher == nil {
		err = multierror.Append(err, fmt.Errorf("searcher not provided"))
	}

	if config.Analyzer == nil {
		err = multierror.Append(err, fmt.Errorf("analyzer not provided"))
	}

	if config.ListenAddr == "" {
		err = multierror.Append(err, fmt.Errorf("listen address not provided"))
	}

	if config.NumOfResultsPerPage <= 0 {
		config.NumOfResultsPerPage = defaultNumOfResultsPerPage
	}

	if config.Logger == nil {
		config.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
