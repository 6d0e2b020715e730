package memory

import "github.com/mycok/spiderank/store"

// Static and compile-time checks to ensure the iterators implement their
// store interfaces.
var (
	_ store.EdgeIterator    = (*edgeIterator)(nil)
	_ store.PostingIterator = (*postingIterator)(nil)
)

// edgeIterator is a store.EdgeIterator implementation for the in-memory
// store. It iterates over a snapshot of the edges taken when it was created.
type edgeIterator struct {
	edges     []*store.Edge
	currIndex int
}

func (i *edgeIterator) Next() bool {
	if i.currIndex >= len(i.edges) {
		return false
	}
	i.currIndex++

	return true
}

func (i *edgeIterator) Error() error { return nil }

func (i *edgeIterator) Close() error { return nil }

// Edge returns the currently fetched edge object.
func (i *edgeIterator) Edge() *store.Edge {
	return i.edges[i.currIndex-1]
}

// postingIterator is a store.PostingIterator implementation for the in-memory
// store.
type postingIterator struct {
	postings  []*store.Posting
	currIndex int
}

func (i *postingIterator) Next() bool {
	if i.currIndex >= len(i.postings) {
		return false
	}
	i.currIndex++

	return true
}

func (i *postingIterator) Error() error { return nil }

func (i *postingIterator) Close() error { return nil }

// Posting returns the currently fetched posting object.
func (i *postingIterator) Posting() *store.Posting {
	return i.postings[i.currIndex-1]
}
