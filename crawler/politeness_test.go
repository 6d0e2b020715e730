package crawler

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/juju/clock/testclock"
	"github.com/sirupsen/logrus"
	check "gopkg.in/check.v1"

	mock_crawler "github.com/mycok/spiderank/crawler/mocks"
)

// Initialize and register a pointer instance of the politenessTestSuite to be
// executed by check testing package.
var _ = check.Suite(new(politenessTestSuite))

const robotsBody = `
User-agent: *
Disallow: /private
`

type politenessTestSuite struct {
	doer     *mock_crawler.MockDoer
	detector *mock_crawler.MockPrivateNetworkDetector
	clk      *testclock.Clock
	p        *politeness
}

func (s *politenessTestSuite) SetUpTest(c *check.C) {
	ctrl := gomock.NewController(c)

	s.doer = mock_crawler.NewMockDoer(ctrl)
	s.detector = mock_crawler.NewMockPrivateNetworkDetector(ctrl)
	s.clk = testclock.NewClock(time.Now())
	s.p = newPoliteness(Config{
		HTTPClient:             s.doer,
		PrivateNetworkDetector: s.detector,
		Clock:                  s.clk,
		PolitenessInterval:     2 * time.Second,
		RobotsTimeout:          time.Second,
		Logger:                 logrus.NewEntry(&logrus.Logger{Out: io.Discard}),
	}, func() string { return "test-agent" })
}

func (s *politenessTestSuite) TestRobotsRulesAreCachedPerOrigin(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "example.com").Return(false, nil).Times(3)
	s.doer.EXPECT().Do(requestFor("http://example.com/robots.txt")).Return(
		makeResponse(200, "text/plain", robotsBody), nil,
	).Times(1)

	c.Assert(s.p.Check(context.TODO(), "http://example.com/public/page"), check.IsNil)
	c.Assert(s.p.Check(context.TODO(), "http://example.com"), check.IsNil)

	err := s.p.Check(context.TODO(), "http://example.com/private/page")
	c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true)
	c.Assert(err, check.ErrorMatches, ".*disallowed by robots.txt.*")
}

func (s *politenessTestSuite) TestLongerAllowOverridesDisallow(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "example.com").Return(false, nil).Times(2)
	s.doer.EXPECT().Do(requestFor("http://example.com/robots.txt")).Return(
		makeResponse(200, "text/plain", "User-agent: *\nDisallow: /private\nAllow: /private/open\n"), nil,
	)

	c.Assert(s.p.Check(context.TODO(), "http://example.com/private/open/page"), check.IsNil)

	err := s.p.Check(context.TODO(), "http://example.com/private/closed")
	c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true)
}

func (s *politenessTestSuite) TestUnreachableRobotsDeniesAndIsNotCached(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "example.com").Return(false, nil).Times(2)
	s.doer.EXPECT().Do(requestFor("http://example.com/robots.txt")).Return(
		nil, errors.New("i/o timeout"),
	).Times(2)

	for i := 0; i < 2; i++ {
		err := s.p.Check(context.TODO(), "http://example.com/page")
		c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true)
	}
}

func (s *politenessTestSuite) TestMissingOrEmptyRobotsPermitsEverything(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), gomock.Any()).Return(false, nil).Times(2)
	s.doer.EXPECT().Do(requestFor("http://a.example.com/robots.txt")).Return(
		makeResponse(404, "text/html", "<html>not found</html>"), nil,
	)
	s.doer.EXPECT().Do(requestFor("https://b.example.com/robots.txt")).Return(
		makeResponse(200, "text/plain", ""), nil,
	)

	c.Assert(s.p.Check(context.TODO(), "http://a.example.com/private"), check.IsNil)
	c.Assert(s.p.Check(context.TODO(), "https://b.example.com/private"), check.IsNil)
}

func (s *politenessTestSuite) TestUnsupportedURLs(c *check.C) {
	for _, u := range []string{"ftp://example.com/file", "mailto:me@example.com", "http:///path", "%gh&%ij"} {
		err := s.p.Check(context.TODO(), u)
		c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true, check.Commentf("url %q", u))
	}
}

func (s *politenessTestSuite) TestHostLookupIsBounded(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "slow.example").DoAndReturn(
		func(ctx context.Context, _ string) (bool, error) {
			deadline, ok := ctx.Deadline()
			c.Assert(ok, check.Equals, true)
			c.Assert(time.Until(deadline) <= time.Second, check.Equals, true)

			return false, context.DeadlineExceeded
		},
	)

	err := s.p.Check(context.TODO(), "http://slow.example/")
	c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true)
	c.Assert(err, check.ErrorMatches, ".*resolve host.*")
}

func (s *politenessTestSuite) TestHostLookupCancelledWithCrawl(c *check.C) {
	ctx, cancel := context.WithCancel(context.TODO())
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "example.com").DoAndReturn(
		func(lookupCtx context.Context, _ string) (bool, error) {
			cancel()
			<-lookupCtx.Done()

			return false, lookupCtx.Err()
		},
	)

	err := s.p.Check(ctx, "http://example.com/")
	c.Assert(errors.Is(err, context.Canceled), check.Equals, true)
	c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, false)
}

func (s *politenessTestSuite) TestPrivateNetworkHostsAreDenied(c *check.C) {
	s.detector.EXPECT().IsNetworkPrivate(gomock.Any(), "169.254.169.254").Return(true, nil)

	err := s.p.Check(context.TODO(), "http://169.254.169.254/latest/meta-data")
	c.Assert(errors.Is(err, ErrPolicyDenied), check.Equals, true)
	c.Assert(err, check.ErrorMatches, ".*private network.*")
}

func (s *politenessTestSuite) TestWaitSpacesRequestsPerHost(c *check.C) {
	c.Assert(s.p.Wait(context.TODO(), "http://example.com/a"), check.IsNil)
	c.Assert(s.p.Wait(context.TODO(), "http://other.com/a"), check.IsNil)

	done := make(chan error, 1)
	go func() {
		done <- s.p.Wait(context.TODO(), "http://example.com/b")
	}()

	// The second request to the same host must wait for the interval.
	c.Assert(s.clk.WaitAdvance(2*time.Second, 5*time.Second, 1), check.IsNil)

	select {
	case err := <-done:
		c.Assert(err, check.IsNil)
	case <-time.After(5 * time.Second):
		c.Fatal("timed out waiting for the politeness delay")
	}
}

func (s *politenessTestSuite) TestWaitHonoursContext(c *check.C) {
	c.Assert(s.p.Wait(context.TODO(), "http://example.com/a"), check.IsNil)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()

	err := s.p.Wait(ctx, "http://example.com/b")
	c.Assert(errors.Is(err, context.Canceled), check.Equals, true)
}
