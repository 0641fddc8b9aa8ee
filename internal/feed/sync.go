package feed

import (
	"context"

	"stringshare/internal/model"
)

// Source produces post sequences for the cache; the API client implements it.
type Source interface {
	Feed(ctx context.Context) ([]model.Post, error)
}

// Refresh performs a bulk fetch and installs the result. On failure the cache
// keeps its previous content.
func Refresh(ctx context.Context, src Source, cache *Cache) error {
	posts, err := src.Feed(ctx)
	if err != nil {
		return err
	}
	cache.ReplaceAll(posts)
	return nil
}
