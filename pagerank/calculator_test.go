package pagerank_test

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	check "gopkg.in/check.v1"

	"github.com/mycok/spiderank/pagerank"
)

var _ = check.Suite(new(CalculatorTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type edge struct {
	src, dest int64
}

type spec struct {
	description string
	vertices    []int64
	edges       []edge
	expScores   map[int64]float64
}

const (
	A int64 = iota + 1
	B
	C
)

type CalculatorTestSuite struct{}

func (s *CalculatorTestSuite) TestSimpleGraphCase1(c *check.C) {
	spec := spec{
		description: `
(A -> (B) -> (C)
 ^            |
 |            |
 +------------+
Expect the page rank score to be distributed evenly across the three nodes 
`,
		vertices: []int64{A, B, C},
		edges: []edge{
			{src: A, dest: B},
			{src: B, dest: C},
			{src: C, dest: A},
		},
		expScores: map[int64]float64{
			A: 1.0 / 3.0,
			B: 1.0 / 3.0,
			C: 1.0 / 3.0,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestSimpleGraphCase2(c *check.C) {
	spec := spec{
		description: `
  +--(A)<-+
  |       |
  V       |
 (B) <-> (C)

Expect B and C to get better score than A due to the back-link between them.
Also, B should get slightly better score than C as there are two links pointing
to it.
`,
		vertices: []int64{A, B, C},
		edges: []edge{
			{A, B},
			{B, C},
			{C, A},
			{C, B},
		},
		expScores: map[int64]float64{
			A: 0.2145,
			B: 0.3937,
			C: 0.3879,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestSimpleGraphCase3(c *check.C) {
	spec := spec{
		description: `
 (A) <-> (B) <-> (C)

Expect A and C to get the same score and B to get the largest score since there 
are two links pointing to it.
`,
		vertices: []int64{A, B, C},
		edges: []edge{
			{A, B},
			{B, A},
			{B, C},
			{C, B},
		},
		expScores: map[int64]float64{
			A: 0.2569,
			B: 0.4860,
			C: 0.2569,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestDeadEnd(c *check.C) {
	spec := spec{
		description: `
 (A) -> (B) -> (C)

Expect that S(C) < S(A) < S(B). C is a dead-end as it has no outgoing links.
The algorithm deals with such cases by transferring C's score to a random node
in the graph; essentially, it's like C is connected to all other nodes in the
graph. As a result, A and B get a backlink from C; B now has two links pointing
at it (from A and C's backlink) and hence has the biggest score. Due to the 
random teleportation from C, C will get a slightly lower score than A.
`,
		vertices: []int64{A, B, C},
		edges: []edge{
			{A, B},
			{B, C},
		},
		expScores: map[int64]float64{
			A: 0.1842,
			B: 0.3411,
			C: 0.4745,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestTwoNodeCycle(c *check.C) {
	spec := spec{
		description: `
 (A) <-> (B)

Expect both nodes to share the score evenly.
`,
		vertices: []int64{A, B},
		edges: []edge{
			{A, B},
			{B, A},
		},
		expScores: map[int64]float64{
			A: 0.5,
			B: 0.5,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestAllDanglingNodes(c *check.C) {
	spec := spec{
		description: `
 (A)   (B)   (C)

Without any links every node keeps the initial uniform score.
`,
		vertices: []int64{A, B, C},
		expScores: map[int64]float64{
			A: 1.0 / 3.0,
			B: 1.0 / 3.0,
			C: 1.0 / 3.0,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestSelfLinksCountTowardsOutDegree(c *check.C) {
	spec := spec{
		description: `
 (A) -> (A)
 (A) <-> (B)

A links to itself and to B, so A's out-degree is 2. Solving
PR(B) = 0.15/2 + 0.85*PR(A)/2 with PR(A) + PR(B) = 1 gives
PR(A) = 0.925/1.425 and PR(B) = 0.5/1.425.
`,
		vertices: []int64{A, B},
		edges: []edge{
			{A, A},
			{A, B},
			{B, A},
		},
		expScores: map[int64]float64{
			A: 0.6491,
			B: 0.3509,
		},
	}

	s.assertOnPageRankScores(c, spec)
}

func (s *CalculatorTestSuite) TestIterationCap(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{MaxIterations: 3, Tolerance: 1e-12})
	c.Assert(err, check.IsNil)

	calc.AddVertex(A)
	calc.AddVertex(B)
	calc.AddVertex(C)
	c.Assert(calc.AddEdge(A, B), check.IsNil)
	c.Assert(calc.AddEdge(B, C), check.IsNil)

	c.Assert(calc.CalculatePageRanks(context.TODO()), check.IsNil)
	c.Assert(calc.Iterations(), check.Equals, 3)
}

func (s *CalculatorTestSuite) TestEarlyConvergence(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	calc.AddVertex(A)
	calc.AddVertex(B)
	c.Assert(calc.AddEdge(A, B), check.IsNil)
	c.Assert(calc.AddEdge(B, A), check.IsNil)

	// The uniform start vector is already the fixed point of a symmetric
	// cycle so the first iteration does not move any score.
	c.Assert(calc.CalculatePageRanks(context.TODO()), check.IsNil)
	c.Assert(calc.Iterations(), check.Equals, 1)
}

func (s *CalculatorTestSuite) TestUnknownVertex(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	calc.AddVertex(A)

	err = calc.AddEdge(A, B)
	c.Assert(errors.Is(err, pagerank.ErrUnknownVertex), check.Equals, true)

	err = calc.AddEdge(C, A)
	c.Assert(errors.Is(err, pagerank.ErrUnknownVertex), check.Equals, true)
}

func (s *CalculatorTestSuite) TestEmptyGraph(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)

	c.Assert(calc.CalculatePageRanks(context.TODO()), check.IsNil)

	var visited int
	err = calc.Scores(func(int64, float64) error {
		visited++
		return nil
	})
	c.Assert(err, check.IsNil)
	c.Assert(visited, check.Equals, 0)
}

func (s *CalculatorTestSuite) TestCancelledContext(c *check.C) {
	calc, err := pagerank.NewCalculator(pagerank.Config{})
	c.Assert(err, check.IsNil)
	calc.AddVertex(A)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c.Assert(calc.CalculatePageRanks(ctx), check.Equals, context.Canceled)
}

func (s *CalculatorTestSuite) TestInvalidConfig(c *check.C) {
	_, err := pagerank.NewCalculator(pagerank.Config{
		DampingFactor: 1.5,
		MaxIterations: -1,
		Tolerance:     -1,
	})
	c.Assert(err, check.ErrorMatches, "(?ms).*DampingFactor must be in the range.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*MaxIterations must be > 0.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*Tolerance must be >= 0.*")
}

func (s *CalculatorTestSuite) TestConvergenceForLargeGraphs(c *check.C) {
	s.assertOnConvergence(c, 100000, 7)
}

func (s *CalculatorTestSuite) assertOnPageRankScores(c *check.C, spec spec) {
	c.Log(spec.description)

	calc, err := pagerank.NewCalculator(pagerank.Config{
		DampingFactor: 0.85,
		MaxIterations: 100,
	})
	c.Assert(err, check.IsNil)

	// Add vertices to the graph.
	for _, id := range spec.vertices {
		calc.AddVertex(id)
	}

	// Add edges to the graph.
	for _, e := range spec.edges {
		c.Assert(calc.AddEdge(e.src, e.dest), check.IsNil)
	}

	err = calc.CalculatePageRanks(context.TODO())
	c.Assert(err, check.IsNil)
	c.Logf("****converged after %d iterations****", calc.Iterations())

	var pageRankSum float64
	err = calc.Scores(func(id int64, score float64) error {
		pageRankSum += score
		absDelta := math.Abs(score - spec.expScores[id])

		c.Assert(
			absDelta <= 0.01, check.Equals, true,
			check.Commentf(
				"expected score for %v to be %f ± 0.01; got %f (abs. delta %f)",
				id, spec.expScores[id], score, absDelta,
			))

		return nil
	})
	c.Assert(err, check.IsNil)

	c.Assert(
		math.Abs(1.0-pageRankSum) <= 0.001, check.Equals, true,
		check.Commentf(
			"expected all pagerank scores to add up to 1.0; got %f", pageRankSum,
		))
}

func (s *CalculatorTestSuite) assertOnConvergence(c *check.C, numOfLinks, maxOutLinks int) {
	calc, err := pagerank.NewCalculator(pagerank.Config{
		Tolerance: 0.001,
	})
	c.Assert(err, check.IsNil)

	// Ensure to use the same seed to make the test deterministic.
	r := rand.New(rand.NewSource(42))

	start := time.Now()
	for i := 0; i < numOfLinks; i++ {
		calc.AddVertex(int64(i))
	}

	for i := 0; i < numOfLinks; i++ {
		outLinks := r.Intn(maxOutLinks)
		for j := 0; j < outLinks; j++ {
			dest := r.Intn(numOfLinks)
			c.Assert(calc.AddEdge(int64(i), int64(dest)), check.IsNil)
		}
	}
	c.Logf(
		"constructed %d nodes in %v",
		numOfLinks, time.Since(start).Truncate(time.Millisecond).String(),
	)

	start = time.Now()
	err = calc.CalculatePageRanks(context.TODO())
	c.Assert(err, check.IsNil)
	c.Logf(
		"converged %d nodes after %d iterations in %v",
		numOfLinks, calc.Iterations(),
		time.Since(start).Truncate(time.Millisecond).String(),
	)

	var pageRankSum float64
	err = calc.Scores(func(id int64, score float64) error {
		pageRankSum += score

		return nil
	})
	c.Assert(err, check.IsNil)

	c.Assert(
		math.Abs(1.0-pageRankSum) <= 0.001, check.Equals, true,
		check.Commentf("expected all pagerank scores to add up to 1.0; got %f", pageRankSum),
	)
}
