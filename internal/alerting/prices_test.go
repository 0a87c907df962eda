package alerting

import (
	"context"
	"errors"
	"testing"
	"time"

	"chainpulse/internal/cache"
	"chainpulse/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCachedPrices(inner PriceSource, ttl time.Duration) *CachedPrices {
	store := cache.NewMemoryStore(0)
	return NewCachedPrices(inner, cache.New(store, "memory", quietLogger()), ttl)
}

func TestCachedPricesReusesFetchWithinTTL(t *testing.T) {
	inner := &fakePrices{prices: map[string]float64{"ethereum": 3200, "bitcoin": 98000}}
	cached := newTestCachedPrices(inner, 5*time.Minute)

	for i := 0; i < 3; i++ {
		prices, err := cached.GetPricesUSD(context.Background(), []string{"ethereum", "bitcoin"})
		require.NoError(t, err)
		assert.InDelta(t, 3200, prices["ethereum"], 0.001)
	}

	assert.Equal(t, 1, inner.calls, "repeated batches within the TTL must reuse one fetch")
}

func TestCachedPricesBatchOrderDoesNotMatter(t *testing.T) {
	inner := &fakePrices{prices: map[string]float64{"ethereum": 3200, "bitcoin": 98000}}
	cached := newTestCachedPrices(inner, 5*time.Minute)

	_, err := cached.GetPricesUSD(context.Background(), []string{"ethereum", "bitcoin"})
	require.NoError(t, err)
	_, err = cached.GetPricesUSD(context.Background(), []string{"bitcoin", "ethereum"})
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
}

func TestCachedPricesFetchFailureNotCached(t *testing.T) {
	inner := &fakePrices{err: errors.New("coingecko 429")}
	cached := newTestCachedPrices(inner, 5*time.Minute)

	_, err := cached.GetPricesUSD(context.Background(), []string{"ethereum"})
	require.Error(t, err)

	inner.err = nil
	inner.prices = map[string]float64{"ethereum": 3200}
	prices, err := cached.GetPricesUSD(context.Background(), []string{"ethereum"})
	require.NoError(t, err)
	assert.InDelta(t, 3200, prices["ethereum"], 0.001)
	assert.Equal(t, 2, inner.calls)
}

func TestPricePhasesShareCachedFetch(t *testing.T) {
	inner := &fakePrices{prices: map[string]float64{"ethereum": 3200}}
	store := &fakeStore{alerts: map[string][]storage.Alert{
		storage.AlertTypePrice: {priceAlert(1, "ethereum", storage.ConditionBelow, 3000)},
	}}
	e := newTestEvaluator(store, &fakePrices{}, &fakeGas{}, &fakeWhales{}, &fakeGateway{}, &fakeSender{})
	e.prices = newTestCachedPrices(inner, 5*time.Minute)

	require.NoError(t, e.RunPricePhase(context.Background()))
	require.NoError(t, e.RunPricePhase(context.Background()))

	assert.Equal(t, 1, inner.calls, "back-to-back passes within the TTL must fetch once")
}
