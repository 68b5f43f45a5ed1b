package marketplace

import (
	"context"

	"github.com/commerceops/backend/internal/domain/integration"
)

// DefaultMaxPages bounds a pagination drain when the caller does not supply
// its own ceiling.
const DefaultMaxPages = 10

// GetAllPages drains a cursor-paginated listing, accumulating items in
// provider-returned order. The prior page's token is passed verbatim into
// the next fetch; the drain stops when the token is absent or after maxPages
// pages. Hitting the page ceiling is a silent truncation, not an error, so
// the result may be partial.
//
// A failed page fetch propagates immediately and discards everything
// accumulated so far: callers see nothing from a failed drain, never a half
// list. Page fetches are not retried here - retrying is the dispatcher's job.
func GetAllPages[T any](ctx context.Context, maxPages int, fetch func(ctx context.Context, nextToken string) (integration.Page[T], error)) ([]T, error) {
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	var items []T
	token := ""
	for page := 1; page <= maxPages; page++ {
		p, err := fetch(ctx, token)
		if err != nil {
			return nil, err
		}
		items = append(items, p.Items...)
		if p.NextToken == "" {
			break
		}
		token = p.NextToken
	}
	return items, nil
}
