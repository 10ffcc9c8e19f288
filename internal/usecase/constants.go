package usecase

import "time"

const (
	// DefaultPageSize is applied when a list request carries no limit.
	DefaultPageSize = 20

	// MaxPageSize caps list requests.
	MaxPageSize = 100

	// AccountCacheTTL is how long cached account reads stay fresh. Every
	// committed mutation of the account invalidates the key anyway; the TTL
	// only bounds staleness after missed invalidations.
	AccountCacheTTL = 5 * time.Minute
)

func accountCacheKey(id string) string {
	return "account:" + id
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
