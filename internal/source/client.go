package source

import "context"

// Fetcher is the contract every source client implements: pull raw records
// from its upstream provider. Implementations compose a RateLimiter and
// Requester rather than inheriting shared behavior, and surface failures as
// *DataSourceError (or ctx.Err() on cancellation).
type Fetcher interface {
	Fetch(ctx context.Context) ([]map[string]any, error)
}
