package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/sports-arb-scanner/pkg/contracts/events"
)

// KeyCurrent é a chave lida também pelo arb-service
func KeyCurrent(opportunityID string) string { return "arb:current:" + opportunityID }

// RedisCache encapsula operações de cache das oportunidades no Redis
// Client: cliente Redis
// TTL: teto de expiração dos registros
type RedisCache struct {
	Client *redis.Client
	TTL    time.Duration
}

// NewRedisCache cria uma instância de cache Redis com TTL configurável
func NewRedisCache(c *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{Client: c, TTL: ttl}
}

// ExpiryFor limita o TTL ao início da partida; <= 0 significa que já começou
func ExpiryFor(e events.ArbitrageOpportunity, ttl time.Duration, now time.Time) time.Duration {
	untilStart := time.Unix(e.MatchStartTime, 0).Sub(now)
	if untilStart < ttl {
		return untilStart
	}
	return ttl
}

// SetCurrent armazena a oportunidade com TTL limitado ao início da partida
func (r *RedisCache) SetCurrent(ctx context.Context, e events.ArbitrageOpportunity, now time.Time) error {
	ttl := ExpiryFor(e, r.TTL, now)
	if ttl <= 0 {
		return r.Client.Del(ctx, KeyCurrent(e.OpportunityID)).Err()
	}

	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, KeyCurrent(e.OpportunityID), b, ttl).Err()
}
