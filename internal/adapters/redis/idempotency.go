package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const idempPrefix = "mkt:idemp:"

type Idempotency struct {
	client *redis.Client
}

func NewIdempotency(client *redis.Client) *Idempotency {
	return &Idempotency{client: client}
}

// StoredResponse is the recorded outcome of a completed request, replayed
// verbatim for a retry carrying the same key.
type StoredResponse struct {
	Status int
	Result []byte
}

func (i *Idempotency) Get(ctx context.Context, key string) (*StoredResponse, error) {
	val, err := i.client.Get(ctx, idempPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var resp StoredResponse
	err = json.Unmarshal(val, &resp)
	return &resp, err
}

func (i *Idempotency) Set(ctx context.Context, key string, resp StoredResponse, ttl time.Duration) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return i.client.Set(ctx, idempPrefix+key, data, ttl).Err()
}
