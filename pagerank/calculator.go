package pagerank

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// ErrUnknownVertex is returned when an edge refers to a vertex that was
// never added to the calculator.
var ErrUnknownVertex = errors.New("unknown vertex")

// Calculator executes the iterative version of the PageRank algorithm on a
// graph until the desired level of convergence is reached or the iteration
// cap is hit.
//
// Every iteration reads exclusively from the previous iteration's score
// vector (Jacobi iteration) and redistributes the score of dangling vertices
// uniformly across all vertices, so the scores always add up to 1.
type Calculator struct {
	cfg Config

	ids     []int64
	index   map[int64]int
	inbound [][]int
	outDeg  []int

	scores     []float64
	iterations int
}

// NewCalculator returns a new Calculator instance using the provided config
// options.
func NewCalculator(cfg Config) (*Calculator, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("PageRank calculator config validation failed: %w", err)
	}

	return &Calculator{
		cfg:   cfg,
		index: make(map[int64]int),
	}, nil
}

// AddVertex adds a new vertex with the specified ID into the graph. Adding
// an existing vertex is a no-op.
func (c *Calculator) AddVertex(id int64) {
	if _, exists := c.index[id]; exists {
		return
	}

	c.index[id] = len(c.ids)
	c.ids = append(c.ids, id)
	c.inbound = append(c.inbound, nil)
	c.outDeg = append(c.outDeg, 0)
}

// AddEdge inserts a directed edge from src to dst. Self-links and duplicate
// edges are counted once per call, like any other edge.
func (c *Calculator) AddEdge(src, dst int64) error {
	srcIdx, exists := c.index[src]
	if !exists {
		return fmt.Errorf("add edge: source %d: %w", src, ErrUnknownVertex)
	}

	dstIdx, exists := c.index[dst]
	if !exists {
		return fmt.Errorf("add edge: destination %d: %w", dst, ErrUnknownVertex)
	}

	c.inbound[dstIdx] = append(c.inbound[dstIdx], srcIdx)
	c.outDeg[srcIdx]++

	return nil
}

// CalculatePageRanks runs the PageRank iterations. The context is checked
// between iterations.
func (c *Calculator) CalculatePageRanks(ctx context.Context) error {
	n := len(c.ids)
	c.iterations = 0
	if n == 0 {
		c.scores = nil
		return nil
	}

	var (
		d    = c.cfg.DampingFactor
		curr = make([]float64, n)
		next = make([]float64, n)
	)
	for i := range curr {
		curr[i] = 1.0 / float64(n)
	}

	for c.iterations < c.cfg.MaxIterations {
		if err := ctx.Err(); err != nil {
			return err
		}

		var danglingSum float64
		for i, deg := range c.outDeg {
			if deg == 0 {
				danglingSum += curr[i]
			}
		}
		base := (1-d)/float64(n) + d*danglingSum/float64(n)

		var sad float64
		for i := range next {
			var inSum float64
			for _, src := range c.inbound[i] {
				inSum += curr[src] / float64(c.outDeg[src])
			}

			next[i] = base + d*inSum
			sad += math.Abs(next[i] - curr[i])
		}

		curr, next = next, curr
		c.iterations++

		if sad < c.cfg.Tolerance {
			break
		}
	}

	c.scores = curr

	return nil
}

// Iterations returns the number of iterations executed by the last call to
// CalculatePageRanks.
func (c *Calculator) Iterations() int {
	return c.iterations
}

// Scores invokes the provided visitor function for each vertex in the graph
// in insertion order.
func (c *Calculator) Scores(visitFn func(id int64, score float64) error) error {
	for i, id := range c.ids {
		var score float64
		if i < len(c.scores) {
			score = c.scores[i]
		}

		if err := visitFn(id, score); err != nil {
			return err
		}
	}

	return nil
}
