package crawler

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	check "gopkg.in/check.v1"
)

// Initialize and register a pointer instance of the linkExtractorTestSuite to
// be executed by check testing package.
var _ = check.Suite(new(linkExtractorTestSuite))

type linkExtractorTestSuite struct{}

func (s *linkExtractorTestSuite) TestExtractLinks(c *check.C) {
	content := `
<html>
<body>
  <a href="#top">Back to top</a>
  <a href="/about">About</a>
  <a href="//cdn.example.org/lib">Same scheme as this page</a>
  <a href="other.html#section">Relative with fragment</a>
  <a href="mailto:me@example.com">Mail</a>
  <a href="HTTP://Example.COM:80/about">Duplicate of about</a>
  <a href="../up/./x/">Dot segments</a>
  <a href="">Empty</a>
  <a href="https://example.com/a//b">Duplicate slashes</a>
</body>
</html>`

	links, skipped := extractLinks(mustParse(c, content), "http://example.com/dir/page.html")
	c.Assert(links, check.DeepEquals, []string{
		"http://example.com/about",
		"http://cdn.example.org/lib",
		"http://example.com/dir/other.html",
		"http://example.com/up/x/",
		"https://example.com/a/b",
	})

	var reasons []string
	for _, skip := range skipped {
		reasons = append(reasons, skip.Reason)
	}
	c.Assert(reasons, check.DeepEquals, []string{"fragment link", "unsupported scheme", "empty link"})
}

func (s *linkExtractorTestSuite) TestExtractLinksHonoursBaseElement(c *check.C) {
	content := `
<html>
<head><base href="http://google.com/"/></head>
<body>
  <a href="./relative">Relative to base</a>
  <a href="/absolute/path">Absolute path</a>
  <a href="file:///etc/passwd">Local file</a>
</body>
</html>`

	links, skipped := extractLinks(mustParse(c, content), "https://example.com/page")
	c.Assert(links, check.DeepEquals, []string{
		"http://google.com/relative",
		"http://google.com/absolute/path",
	})
	c.Assert(skipped, check.HasLen, 1)
}

func (s *linkExtractorTestSuite) TestProtocolRelativeLinksFollowPageScheme(c *check.C) {
	content := `<a href="//images.example.com/cart">Cart</a>`

	links, _ := extractLinks(mustParse(c, content), "https://example.com/")
	c.Assert(links, check.DeepEquals, []string{"https://images.example.com/cart"})
}

func mustParse(c *check.C, content string) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	c.Assert(err, check.IsNil)

	return doc
}
