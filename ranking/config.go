package ranking

import (
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/mycok/spiderank/store"
)

// Config encapsulates the settings for the ranking engine.
type Config struct {
	// Store provides the link graph and the inverted index and receives the
	// computed scores.
	Store store.RankStore

	// PageRank damping factor. Defaults to 0.85.
	DampingFactor float64

	// PageRank iteration cap. Defaults to 20.
	MaxIterations int

	// PageRank convergence threshold for the sum of absolute score
	// differences between iterations. Defaults to 1e-6.
	Tolerance float64

	// Alpha is the weight of the normalized TF-IDF score in the final
	// rank; PageRank contributes the remaining 1-Alpha. Defaults to 0.7.
	Alpha float64

	// Number of posting scores written per store call. Defaults to 5000.
	ScoreBatchSize int

	// Number of final ranks written per store call. Defaults to 1000.
	RankBatchSize int

	// The logger to use. If not defined an output-discarding logger will
	// be used instead.
	Logger *logrus.Entry
}

func (cfg *Config) validate() error {
	var err error

	if cfg.Store == nil {
		err = multierror.Append(err, fmt.Errorf("store not provided"))
	}

	if cfg.DampingFactor == 0 {
		cfg.DampingFactor = 0.85
	}

	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = 20
	}

	if cfg.Tolerance == 0 {
		cfg.Tolerance = 1e-6
	}

	if cfg.Alpha == 0 {
		cfg.Alpha = 0.7
	} else if cfg.Alpha < 0 || cfg.Alpha > 1 {
		err = multierror.Append(err, fmt.Errorf("invalid value for alpha, must be in [0, 1]"))
	}

	if cfg.ScoreBatchSize == 0 {
		cfg.ScoreBatchSize = 5000
	} else if cfg.ScoreBatchSize < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for score batch size, must be > 0"))
	}

	if cfg.RankBatchSize == 0 {
		cfg.RankBatchSize = 1000
	} else if cfg.RankBatchSize < 0 {
		err = multierror.Append(err, fmt.Errorf("invalid value for rank batch size, must be > 0"))
	}

	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(&logrus.Logger{Out: io.Discard})
	}

	return err
}
