package crawler

//go:generate mockgen -package mock_crawler -destination mocks/mocks.go github.com/mycok/spiderank/crawler Doer,PrivateNetworkDetector

import (
	"context"
	"net/http"

	"github.com/mycok/spiderank/store"
)

// Doer should be implemented by objects that can execute HTTP requests.
// *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// PrivateNetworkDetector should be implemented by objects that can detect
// whether a host resolves to a private network address.
type PrivateNetworkDetector interface {
	IsNetworkPrivate(ctx context.Context, host string) (bool, error)
}

// Store is the subset of the persistent store used while crawling.
type Store interface {
	store.CrawlStore
}
