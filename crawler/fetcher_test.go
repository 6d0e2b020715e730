package crawler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/mock/gomock"
	check "gopkg.in/check.v1"

	mock_crawler "github.com/mycok/spiderank/crawler/mocks"
)

// Initialize and register a pointer instance of the fetcherTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(fetcherTestSuite))

type fetcherTestSuite struct {
	doer    *mock_crawler.MockDoer
	fetcher *fetcher
}

func (s *fetcherTestSuite) SetUpTest(c *check.C) {
	ctrl := gomock.NewController(c)

	s.doer = mock_crawler.NewMockDoer(ctrl)
	s.fetcher = &fetcher{
		client:    s.doer,
		timeout:   time.Second,
		maxBytes:  1 << 20,
		userAgent: func() string { return DefaultUserAgents[0] },
	}
}

func (s *fetcherTestSuite) TestFetchHTML(c *check.C) {
	s.doer.EXPECT().Do(requestFor("http://example.com/index.html")).DoAndReturn(
		func(req *http.Request) (*http.Response, error) {
			c.Assert(req.Header.Get("User-Agent"), check.Equals, DefaultUserAgents[0])
			return makeResponse(200, "text/html; charset=utf-8", "<html><head><title>Hello</title></head></html>"), nil
		},
	)

	res, err := s.fetcher.Fetch(context.TODO(), "http://example.com/index.html")
	c.Assert(err, check.IsNil)
	c.Assert(res.Doc.Find("title").Text(), check.Equals, "Hello")
	c.Assert(res.ContentType, check.Equals, "text/html; charset=utf-8")
}

func (s *fetcherTestSuite) TestFetchDecodesCharset(c *check.C) {
	s.doer.EXPECT().Do(requestFor("http://example.com/")).Return(
		makeResponse(200, "text/html; charset=iso-8859-1", "<title>caf\xe9</title>"), nil,
	)

	res, err := s.fetcher.Fetch(context.TODO(), "http://example.com/")
	c.Assert(err, check.IsNil)
	c.Assert(res.Doc.Find("title").Text(), check.Equals, "café")
}

func (s *fetcherTestSuite) TestFetchNonHTML(c *check.C) {
	s.doer.EXPECT().Do(requestFor("http://example.com/doc.pdf")).Return(
		makeResponse(200, "application/pdf", "%PDF-1.4"), nil,
	)

	res, err := s.fetcher.Fetch(context.TODO(), "http://example.com/doc.pdf")
	c.Assert(errors.Is(err, ErrNotHTML), check.Equals, true)
	c.Assert(res.ContentType, check.Equals, "application/pdf")
	c.Assert(res.Doc, check.IsNil)
}

func (s *fetcherTestSuite) TestFetchMissingContentTypeIsNotHTML(c *check.C) {
	s.doer.EXPECT().Do(gomock.Any()).Return(makeResponse(200, "", "<html></html>"), nil)

	_, err := s.fetcher.Fetch(context.TODO(), "http://example.com/")
	c.Assert(errors.Is(err, ErrNotHTML), check.Equals, true)
}

func (s *fetcherTestSuite) TestFetchNon2xx(c *check.C) {
	s.doer.EXPECT().Do(gomock.Any()).Return(makeResponse(404, "text/html", "not found"), nil)

	_, err := s.fetcher.Fetch(context.TODO(), "http://example.com/missing")
	c.Assert(errors.Is(err, ErrUnfetchable), check.Equals, true)
}

func (s *fetcherTestSuite) TestFetchTransportError(c *check.C) {
	s.doer.EXPECT().Do(gomock.Any()).Return(nil, errors.New("connection refused"))

	_, err := s.fetcher.Fetch(context.TODO(), "http://example.com/")
	c.Assert(errors.Is(err, ErrUnfetchable), check.Equals, true)
	c.Assert(err, check.ErrorMatches, ".*connection refused.*")
}

func makeResponse(status int, contentType, body string) *http.Response {
	res := &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
	if contentType != "" {
		res.Header.Set("Content-Type", contentType)
	}

	return res
}

// requestFor matches requests for the given URL.
type requestFor string

func (m requestFor) Matches(x interface{}) bool {
	req, ok := x.(*http.Request)
	return ok && req.URL.String() == string(m)
}

func (m requestFor) String() string {
	return "request for " + string(m)
}
