package search

import "errors"

var (
	// ErrNotASearch marks input that should be ignored rather than searched:
	// too short, or command-shaped text.
	ErrNotASearch = errors.New("search: not a search query")

	// ErrStoreUnavailable wraps a failed store query on a cache miss. The
	// pipeline does not retry; that call belongs to the command layer.
	ErrStoreUnavailable = errors.New("search: store unavailable")

	// ErrSessionExpired means the session key is gone from the cache and the
	// caller must run a fresh search.
	ErrSessionExpired = errors.New("search: session expired")

	// ErrNotAuthorized means the pagination requester is not the user who
	// ran the search.
	ErrNotAuthorized = errors.New("search: requester not authorized")

	// ErrPageOutOfRange means the requested page is outside [1, totalPages].
	ErrPageOutOfRange = errors.New("search: page out of range")
)
