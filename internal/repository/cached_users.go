package repository

import (
	"context"

	"github.com/irodav/gatehouse/internal/model"
)

// CachedUsers layers the Redis user cache over UserRepo lookups by ID. The
// session middleware resolves the token subject through this type on every
// authenticated request, so repeat requests from the same user skip the
// database while the cache entry lives.
type CachedUsers struct {
	Repo  *UserRepo
	Cache *UserCache
}

func NewCachedUsers(repo *UserRepo, cache *UserCache) *CachedUsers {
	return &CachedUsers{Repo: repo, Cache: cache}
}

// GetByID returns the user record for id, preferring the cache.
func (c *CachedUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	if u, ok := c.Cache.Get(ctx, id); ok {
		return u, nil
	}
	u, err := c.Repo.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	c.Cache.Set(ctx, u)
	return u, nil
}
