package redis

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Discounts resolves per-buyer discount values granted by the promotions
// subsystem. Missing keys mean no discount.
type Discounts struct {
	client *redis.Client
}

func NewDiscounts(client *redis.Client) *Discounts {
	return &Discounts{client: client}
}

func (d *Discounts) DiscountFor(ctx context.Context, buyerID, productID uuid.UUID) (float64, error) {
	// Product-specific grants win over buyer-wide ones.
	val, err := d.client.Get(ctx, "discount:"+buyerID.String()+":"+productID.String()).Result()
	if err == redis.Nil {
		val, err = d.client.Get(ctx, "discount:"+buyerID.String()).Result()
	}
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(val, 64)
}
