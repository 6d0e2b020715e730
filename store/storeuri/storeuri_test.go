package storeuri

import (
	"path/filepath"
	"testing"

	check "gopkg.in/check.v1"

	"github.com/mycok/spiderank/store/memory"
	"github.com/mycok/spiderank/store/sqlstore"
)

var _ = check.Suite(new(storeURITestSuite))

func Test(t *testing.T) {
	check.TestingT(t)
}

type storeURITestSuite struct{}

func (s *storeURITestSuite) TestInMemory(c *check.C) {
	st, err := Open("in-memory://")
	c.Assert(err, check.IsNil)
	c.Assert(st, check.FitsTypeOf, memory.NewInMemoryStore())
}

func (s *storeURITestSuite) TestSQLite(c *check.C) {
	for _, scheme := range []string{"sqlite3", "sqlite"} {
		path := filepath.Join(c.MkDir(), "nested", "search.db")

		st, err := Open(scheme + "://" + path)
		c.Assert(err, check.IsNil, check.Commentf("scheme %s", scheme))
		c.Assert(st, check.FitsTypeOf, new(sqlstore.SQLStore))
		c.Assert(st.InsertURLs([]string{"https://example.com"}), check.IsNil)
		c.Assert(st.Close(), check.IsNil)
	}
}

func (s *storeURITestSuite) TestUnsupportedScheme(c *check.C) {
	_, err := Open("leveldb:///tmp/db")
	c.Assert(err, check.ErrorMatches, `unsupported store URI scheme "leveldb"`)

	_, err = Open("sqlite3://")
	c.Assert(err, check.ErrorMatches, `store uri .*: missing database path`)
}
