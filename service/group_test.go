package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	check "gopkg.in/check.v1"
)

var _ = check.Suite(new(GroupTestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type GroupTestSuite struct{}

func (s *GroupTestSuite) TestGroupTerminatesAfterASingleError(c *check.C) {
	grp := Group{
		testService{id: "crawler"},
		testService{id: "frontend", err: fmt.Errorf("address already in use")},
		testService{id: "ranker"},
	}

	err := grp.Execute(context.TODO())
	c.Assert(err, check.Not(check.IsNil))
	c.Assert(err, check.ErrorMatches, "(?ms).*frontend: address already in use.*")
}

func (s *GroupTestSuite) TestGroupAccumulatesErrors(c *check.C) {
	grp := Group{
		testService{id: "0"},
		testService{id: "1", err: fmt.Errorf("store unavailable")},
		testService{id: "2", err: fmt.Errorf("store unavailable")},
	}

	err := grp.Execute(context.TODO())
	c.Assert(err, check.ErrorMatches, "(?ms).*1: store unavailable.*")
	c.Assert(err, check.ErrorMatches, "(?ms).*2: store unavailable.*")
}

func (s *GroupTestSuite) TestGroupTerminatesFromContext(c *check.C) {
	grp := Group{
		testService{id: "0"},
		testService{id: "1"},
	}

	ctx, cancelFn := context.WithTimeout(context.TODO(), 200*time.Millisecond)
	defer cancelFn()

	c.Assert(grp.Execute(ctx), check.IsNil)
}

func (s *GroupTestSuite) TestGroupReturnsWhenServicesFinish(c *check.C) {
	grp := Group{
		testService{id: "0", once: true},
		testService{id: "1", once: true},
	}

	c.Assert(grp.Execute(context.TODO()), check.IsNil)
}

type testService struct {
	id   string
	err  error
	once bool
}

func (s testService) Name() string { return s.id }

func (s testService) Run(ctx context.Context) error {
	if s.err != nil {
		return s.err
	}
	if s.once {
		return nil
	}

	<-ctx.Done()

	return nil
}
