package frontend

import (
	check "gopkg.in/check.v1"

	"github.com/mycok/spiderank/textindexer"
)

var _ = check.Suite(new(HighlighterTestSuite))

type HighlighterTestSuite struct{}

func (s *HighlighterTestSuite) TestHighlight(c *check.C) {
	testCases := []struct {
		input    string
		expected string
	}{
		{
			input:    "Gophers run fast",
			expected: "<em>Gophers</em> <em>run</em> fast",
		},
		{
			input:    "A gopher. The runner ran <home> & away.",
			expected: "A <em>gopher</em>. The runner ran &lt;home&gt; &amp; away.",
		},
		{
			input:    "no match",
			expected: "no match",
		},
		{
			input:    "",
			expected: "",
		},
	}

	analyzer, err := textindexer.NewAnalyzer(nil)
	c.Assert(err, check.IsNil)

	h := newMatchHighlighter(analyzer, "running GOPHER")

	for index, tc := range testCases {
		c.Logf("spec %d", index)
		c.Assert(h.Highlight(tc.input), check.Equals, tc.expected)
	}
}

func (s *HighlighterTestSuite) TestHighlightWithoutStems(c *check.C) {
	analyzer, err := textindexer.NewAnalyzer(nil)
	c.Assert(err, check.IsNil)

	h := newMatchHighlighter(analyzer, "the and")
	c.Assert(h.Highlight("the <b>"), check.Equals, "the &lt;b&gt;")
}
