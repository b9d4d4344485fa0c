package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	ownerCachePrefix     = "chat-owner:"
	defaultOwnerCacheTTL = 5 * time.Minute
)

// OwnerCache caches chat ownership in Redis. It implements domain.OwnerCache.
type OwnerCache struct {
	client *Client
	ttl    time.Duration
}

// NewOwnerCache creates a new owner cache
func NewOwnerCache(client *Client, ttl time.Duration) *OwnerCache {
	if ttl <= 0 {
		ttl = defaultOwnerCacheTTL
	}
	return &OwnerCache{client: client, ttl: ttl}
}

func ownerKey(chatID uuid.UUID) string {
	return ownerCachePrefix + chatID.String()
}

// GetOwner returns the cached owner of a chat. Any failure is reported as a miss.
func (c *OwnerCache) GetOwner(ctx context.Context, chatID uuid.UUID) (uuid.UUID, bool) {
	val, err := c.client.rdb.Get(ctx, ownerKey(chatID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("chat_id", chatID.String()).Msg("Owner cache read failed")
		}
		return uuid.Nil, false
	}

	ownerID, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, false
	}
	return ownerID, true
}

// SetOwner caches the owner of a chat
func (c *OwnerCache) SetOwner(ctx context.Context, chatID, ownerID uuid.UUID) error {
	if err := c.client.rdb.Set(ctx, ownerKey(chatID), ownerID.String(), c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache chat owner: %w", err)
	}
	return nil
}

// Invalidate removes the cached owner of a chat
func (c *OwnerCache) Invalidate(ctx context.Context, chatID uuid.UUID) error {
	if err := c.client.rdb.Del(ctx, ownerKey(chatID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate chat owner: %w", err)
	}
	return nil
}
