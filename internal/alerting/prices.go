package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"chainpulse/internal/cache"
)

// CachedPrices serves batch price lookups through the response cache so
// evaluation passes within the TTL reuse one upstream fetch.
type CachedPrices struct {
	inner PriceSource
	cache *cache.ResponseCache
	ttl   time.Duration
}

// NewCachedPrices wraps a price source with the response cache.
func NewCachedPrices(inner PriceSource, c *cache.ResponseCache, ttl time.Duration) *CachedPrices {
	return &CachedPrices{inner: inner, cache: c, ttl: ttl}
}

// GetPricesUSD keys the cache on the sorted token-id set so equivalent
// batches hit the same entry regardless of order.
func (p *CachedPrices) GetPricesUSD(ctx context.Context, tokenIDs []string) (map[string]float64, error) {
	ids := make([]string, len(tokenIDs))
	copy(ids, tokenIDs)
	sort.Strings(ids)
	key := cache.Key("coingecko", "prices_usd", strings.Join(ids, ","))

	payload, err := p.cache.GetOrCompute(ctx, key, p.ttl, func(ctx context.Context) ([]byte, error) {
		prices, err := p.inner.GetPricesUSD(ctx, tokenIDs)
		if err != nil {
			return nil, err
		}
		return json.Marshal(prices)
	})
	if err != nil {
		return nil, err
	}

	prices := make(map[string]float64)
	if err := json.Unmarshal(payload, &prices); err != nil {
		return nil, fmt.Errorf("decode cached prices: %w", err)
	}
	return prices, nil
}
