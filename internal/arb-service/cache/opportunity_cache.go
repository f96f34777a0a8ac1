package cache

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"

	proccache "github.com/radieske/sports-arb-scanner/internal/arb-processor/cache"
	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// Cache lê as oportunidades gravadas pelo arb-processor
type Cache struct{ R *redis.Client }

func New(r *redis.Client) *Cache { return &Cache{R: r} }

func (c *Cache) GetOpportunity(ctx context.Context, id string) (events.ArbitrageOpportunity, bool, error) {
	var e events.ArbitrageOpportunity
	b, err := c.R.Get(ctx, proccache.KeyCurrent(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	return e, true, json.Unmarshal(b, &e)
}
