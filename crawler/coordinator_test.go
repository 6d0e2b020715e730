package crawler

import (
	check "gopkg.in/check.v1"
)

// Initialize and register a pointer instance of the coordinatorTestSuite to
// be executed by check testing package.
var _ = check.Suite(new(coordinatorTestSuite))

type coordinatorTestSuite struct{}

func (s *coordinatorTestSuite) TestClaimIsExclusive(c *check.C) {
	coord := newCoordinator(10)

	c.Assert(coord.claim("a"), check.Equals, true)
	c.Assert(coord.claim("a"), check.Equals, false)
	c.Assert(coord.eligible("a"), check.Equals, false)
	c.Assert(coord.idle(), check.Equals, false)

	coord.release("a", false)
	c.Assert(coord.idle(), check.Equals, true)
	c.Assert(coord.eligible("a"), check.Equals, true)
	c.Assert(coord.claim("a"), check.Equals, true)
}

func (s *coordinatorTestSuite) TestAbandonedURLsAreNotRetried(c *check.C) {
	coord := newCoordinator(10)

	c.Assert(coord.claim("a"), check.Equals, true)
	coord.release("a", true)

	c.Assert(coord.claim("a"), check.Equals, false)
	c.Assert(coord.eligible("a"), check.Equals, false)
	c.Assert(coord.snapshot().Errors, check.Equals, 1)
}

func (s *coordinatorTestSuite) TestAdmitStopsPastCeiling(c *check.C) {
	coord := newCoordinator(2)

	c.Assert(coord.admit(), check.Equals, true)
	c.Assert(coord.admit(), check.Equals, true)
	c.Assert(coord.isStopped(), check.Equals, false)

	c.Assert(coord.admit(), check.Equals, false)
	c.Assert(coord.isStopped(), check.Equals, true)
	c.Assert(coord.claim("a"), check.Equals, false)
}

func (s *coordinatorTestSuite) TestStats(c *check.C) {
	coord := newCoordinator(2)
	coord.recordCrawled()
	coord.recordCrawled()
	coord.recordNonHTML()
	coord.recordBlocked()

	c.Assert(coord.snapshot(), check.DeepEquals, Stats{Crawled: 2, NonHTML: 1, Blocked: 1})
}
