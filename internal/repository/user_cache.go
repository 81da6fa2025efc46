package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irodav/gatehouse/internal/model"
)

// UserCache is a read-through Redis cache for user records, consulted by the
// session middleware on every authenticated request. The client may be nil,
// in which case every operation degrades to a no-op and lookups always go to
// the database. Entries are written with a short TTL and explicitly
// invalidated before any password mutation so the freshness check never sees
// a stale password_changed_at.
type UserCache struct {
	RDB *redis.Client
	TTL time.Duration
}

func NewUserCache(rdb *redis.Client, ttl time.Duration) *UserCache {
	return &UserCache{RDB: rdb, TTL: ttl}
}

// cachedUser mirrors model.User with every field serialized. model.User
// hides secret-bearing fields from JSON on purpose, but the cache lives on
// the trusted side and must round-trip them intact.
type cachedUser struct {
	ID                uint64     `json:"id"`
	Name              string     `json:"name"`
	Email             string     `json:"email"`
	PasswordHash      string     `json:"password_hash"`
	Role              string     `json:"role"`
	PasswordChangedAt time.Time  `json:"password_changed_at"`
	ResetTokenHash    *string    `json:"reset_token_hash,omitempty"`
	ResetTokenExpires *time.Time `json:"reset_token_expires_at,omitempty"`
	IsActive          bool       `json:"is_active"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func cacheKey(id uint64) string { return fmt.Sprintf("user:%d", id) }

// Get returns the cached user and true on a hit. Any Redis or decode error
// is treated as a miss.
func (c *UserCache) Get(ctx context.Context, id uint64) (model.User, bool) {
	if c == nil || c.RDB == nil {
		return model.User{}, false
	}
	raw, err := c.RDB.Get(ctx, cacheKey(id)).Bytes()
	if err != nil {
		return model.User{}, false
	}
	var cu cachedUser
	if err := json.Unmarshal(raw, &cu); err != nil {
		return model.User{}, false
	}
	return model.User(cu), true
}

// Set stores the user under its ID. Failures are ignored; the cache is an
// optimization, not a source of truth.
func (c *UserCache) Set(ctx context.Context, u model.User) {
	if c == nil || c.RDB == nil {
		return
	}
	raw, err := json.Marshal(cachedUser(u))
	if err != nil {
		return
	}
	_ = c.RDB.Set(ctx, cacheKey(u.ID), raw, c.TTL).Err()
}

// Invalidate drops the cached entry. Called before every password or
// reset-token mutation.
func (c *UserCache) Invalidate(ctx context.Context, id uint64) {
	if c == nil || c.RDB == nil {
		return
	}
	_ = c.RDB.Del(ctx, cacheKey(id)).Err()
}
