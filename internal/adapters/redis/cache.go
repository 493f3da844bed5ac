package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

type Cache struct {
	client *redis.Client
}

func NewCache(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func (c *Cache) Client() *redis.Client {
	return c.client
}

// SetAvailabilityHint caches the last known availability for a listing so the
// presentation layer can grey out taken items without hitting the ledger. It
// is a hint only; the ledger's conditional swap stays authoritative.
func (c *Cache) SetAvailabilityHint(ctx context.Context, productID, availability string, ttl time.Duration) error {
	return c.client.Set(ctx, "avail:"+productID, availability, ttl).Err()
}

func (c *Cache) GetAvailabilityHint(ctx context.Context, productID string) (string, error) {
	val, err := c.client.Get(ctx, "avail:"+productID).Result()
	if err == redis.Nil {
		return "", nil
	}
	return val, err
}
