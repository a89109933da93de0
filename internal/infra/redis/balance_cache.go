package redis

import (
	"context"
	"encoding/json"
	"time"

	"notes-credit-ledger/internal/infra/metrics"
	"notes-credit-ledger/internal/usecase"
)

var _ usecase.BalanceCache = (*BalanceCache)(nil)

// BalanceCache caches computed display balances per user. The ledger
// invalidates the entry on every credit movement, so a short TTL is only a
// backstop against missed invalidations.
type BalanceCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewBalanceCache(client RedisClient, ttl time.Duration) *BalanceCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &BalanceCache{client: client, ttl: ttl}
}

func balanceKey(userID string) string { return "balance:" + userID }

func (c *BalanceCache) Get(ctx context.Context, userID string) (*usecase.Balance, bool) {
	data, err := c.client.Get(ctx, balanceKey(userID))
	if err != nil {
		metrics.IncCacheRequest("balance", "miss")
		return nil, false
	}
	var b usecase.Balance
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		metrics.IncCacheRequest("balance", "miss")
		return nil, false
	}
	metrics.IncCacheRequest("balance", "hit")
	return &b, true
}

func (c *BalanceCache) Set(ctx context.Context, userID string, b *usecase.Balance) {
	data, err := json.Marshal(b)
	if err != nil {
		return
	}
	// best effort: a failed write only costs a recomputation
	_ = c.client.Set(ctx, balanceKey(userID), data, c.ttl)
}

func (c *BalanceCache) Invalidate(ctx context.Context, userID string) {
	_ = c.client.Del(ctx, balanceKey(userID))
}
