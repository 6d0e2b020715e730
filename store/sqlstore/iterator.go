package sqlstore

import (
	"database/sql"
	"fmt"

	"github.com/mycok/spiderank/store"
)

// Static and compile-time checks to ensure the iterators implement their
// store interfaces.
var (
	_ store.EdgeIterator    = (*edgeIterator)(nil)
	_ store.PostingIterator = (*postingIterator)(nil)
)

// edgeIterator is a store.EdgeIterator implementation that wraps the
// [database/sql] Rows returned by an edge query.
type edgeIterator struct {
	rows    *sql.Rows
	lastErr error
	edge    *store.Edge
}

// Next loads the next edge, returns false when no more edges are available
// or when an error occurs.
func (i *edgeIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	e := new(store.Edge)
	if i.lastErr = i.rows.Scan(&e.Src, &e.Dst); i.lastErr != nil {
		return false
	}
	i.edge = e

	return true
}

// Error returns the last error encountered by the iterator.
func (i *edgeIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}

	return i.rows.Err()
}

// Close releases any resources allocated to the iterator.
func (i *edgeIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return fmt.Errorf("edge iterator: %w", err)
	}

	return nil
}

// Edge returns the currently fetched edge.
func (i *edgeIterator) Edge() *store.Edge {
	return i.edge
}

// postingIterator is a store.PostingIterator implementation that wraps the
// [database/sql] Rows returned by a postings query.
type postingIterator struct {
	rows    *sql.Rows
	lastErr error
	posting *store.Posting
}

// Next loads the next posting, returns false when no more postings are
// available or when an error occurs.
func (i *postingIterator) Next() bool {
	if i.lastErr != nil || !i.rows.Next() {
		return false
	}

	p := new(store.Posting)
	if i.lastErr = i.rows.Scan(&p.TermID, &p.PageID, &p.Frequency, &p.WordCount); i.lastErr != nil {
		return false
	}
	i.posting = p

	return true
}

// Error returns the last error encountered by the iterator.
func (i *postingIterator) Error() error {
	if i.lastErr != nil {
		return i.lastErr
	}

	return i.rows.Err()
}

// Close releases any resources allocated to the iterator.
func (i *postingIterator) Close() error {
	if err := i.rows.Close(); err != nil {
		return fmt.Errorf("posting iterator: %w", err)
	}

	return nil
}

// Posting returns the currently fetched posting.
func (i *postingIterator) Posting() *store.Posting {
	return i.posting
}
