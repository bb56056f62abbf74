package rate

import "errors"

var (
	// ErrRateLimited reports that the counter for an identifier is over budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrRedisUnavailable reports a counter backend failure.
	ErrRedisUnavailable = errors.New("redis unavailable")
)
