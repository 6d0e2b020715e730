package crawler

import "errors"

var (
	// ErrPolicyDenied is returned when robots rules, the URL scheme or the
	// private network guard forbid fetching a URL.
	ErrPolicyDenied = errors.New("crawling denied by policy")

	// ErrUnfetchable is returned when a page cannot be retrieved: transport
	// failures, timeouts and non-2xx responses.
	ErrUnfetchable = errors.New("page unfetchable")

	// ErrNotHTML is returned when a page was retrieved but its content type
	// is not text/html.
	ErrNotHTML = errors.New("content is not html")
)
