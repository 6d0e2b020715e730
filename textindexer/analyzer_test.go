package textindexer

import (
	check "gopkg.in/check.v1"
)

var _ = check.Suite(new(analyzerTestSuite))

type analyzerTestSuite struct{}

func (s *analyzerTestSuite) TestStems(c *check.C) {
	a, err := NewAnalyzer(nil)
	c.Assert(err, check.IsNil)

	c.Assert(a.Stems("Running runs, and the RUNNER ran"), check.DeepEquals, []string{
		"run", "runner", "ran",
	})
	c.Assert(a.Stems("the and of 123"), check.HasLen, 0)
}

func (s *analyzerTestSuite) TestSnowballStemmer(c *check.C) {
	a, err := NewAnalyzer(SnowballStemmer{})
	c.Assert(err, check.IsNil)

	c.Assert(a.Terms("quickly running quickly"), check.DeepEquals, map[string]int{
		"quick": 2,
		"run":   1,
	})
}

func (s *analyzerTestSuite) TestNewStemmer(c *check.C) {
	st, err := NewStemmer("")
	c.Assert(err, check.IsNil)
	c.Assert(st, check.FitsTypeOf, PorterStemmer{})

	st, err = NewStemmer(StemmerSnowball)
	c.Assert(err, check.IsNil)
	c.Assert(st, check.FitsTypeOf, SnowballStemmer{})

	_, err = NewStemmer("lancaster")
	c.Assert(err, check.ErrorMatches, `unknown stemmer "lancaster"`)
}
