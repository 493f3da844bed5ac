package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/marketplace-checkout/internal/adapters/redis"
)

// Idempotency replays the stored response for a repeated Idempotency-Key so a
// page reload or duplicate submission observes the original outcome instead
// of re-running the operation.
type Idempotency struct {
	redis *redisadapter.Idempotency
	ttl   time.Duration
}

func NewIdempotency(redis *redisadapter.Idempotency, ttl time.Duration) *Idempotency {
	return &Idempotency{redis: redis, ttl: ttl}
}

type Response struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	if key == "" {
		return nil, nil
	}
	stored, err := i.redis.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{Status: stored.Status, Result: stored.Result}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	if key == "" {
		return nil
	}
	return i.redis.Set(ctx, key, redisadapter.StoredResponse{Status: resp.Status, Result: resp.Result}, i.ttl)
}
