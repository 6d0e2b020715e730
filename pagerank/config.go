package pagerank

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Config encapsulates the required parameters for creating a new PageRank
// calculator instance.
type Config struct {
	// DampingFactor is the probability that a random surfer will click on
	// one of the outgoing links on the page they are currently visiting
	// instead of visiting (teleporting to) a random page in the graph.
	//
	// If not specified, a default value of 0.85 will be used instead.
	DampingFactor float64

	// MaxIterations caps the number of power iterations.
	//
	// If not specified, a default value of 20 will be used instead.
	MaxIterations int

	// At each iteration, the calculator keeps track of the sum of absolute
	// differences (SAD) between the scores of the previous and the current
	// iteration. Once this value drops below Tolerance the scores are
	// considered to have converged.
	//
	// If not specified, a default value of 1e-6 will be used instead.
	Tolerance float64
}

// validate checks whether the PageRank calculator configuration is valid and
// sets the default values where required.
func (c *Config) validate() error {
	var err error

	if c.DampingFactor == 0 {
		c.DampingFactor = 0.85
	} else if c.DampingFactor < 0 || c.DampingFactor >= 1.0 {
		err = multierror.Append(err, fmt.Errorf("DampingFactor must be in the range (0, 1)"))
	}

	if c.MaxIterations == 0 {
		c.MaxIterations = 20
	} else if c.MaxIterations < 0 {
		err = multierror.Append(err, fmt.Errorf("MaxIterations must be > 0"))
	}

	if c.Tolerance == 0 {
		c.Tolerance = 1e-6
	} else if c.Tolerance < 0 {
		err = multierror.Append(err, fmt.Errorf("Tolerance must be >= 0"))
	}

	return err
}
