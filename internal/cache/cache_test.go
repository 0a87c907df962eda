package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakyStore struct {
	getErr error
	setErr error
	inner  *MemoryStore
}

func (f *flakyStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	return f.inner.Get(ctx, key)
}

func (f *flakyStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.inner.Set(ctx, key, payload, ttl)
}

func newTestCache(store Store) *ResponseCache {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return New(store, "memory", log)
}

func TestGetOrComputeCachesWithinTTL(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	c := newTestCache(store)

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte(`{"fresh":true}`), nil
	}

	ctx := context.Background()
	first, err := c.GetOrCompute(ctx, "k1", time.Minute, compute)
	require.NoError(t, err)
	second, err := c.GetOrCompute(ctx, "k1", time.Minute, compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls, "second call within TTL must be served from cache")
}

func TestGetOrComputeRecomputesAfterExpiry(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	c := newTestCache(store)

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("payload"), nil
	}

	ctx := context.Background()
	_, err := c.GetOrCompute(ctx, "k1", 10*time.Millisecond, compute)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = c.GetOrCompute(ctx, "k1", 10*time.Millisecond, compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeDoesNotCacheFailures(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	c := newTestCache(store)

	calls := 0
	boom := errors.New("upstream exploded")
	ctx := context.Background()

	_, err := c.GetOrCompute(ctx, "k1", time.Minute, func(context.Context) ([]byte, error) {
		calls++
		return nil, boom
	})
	require.ErrorIs(t, err, boom)

	// The failure must not poison the key for the next attempt.
	payload, err := c.GetOrCompute(ctx, "k1", time.Minute, func(context.Context) ([]byte, error) {
		calls++
		return []byte("ok"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, []byte("ok"), payload)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeDegradesWhenBackendBroken(t *testing.T) {
	store := &flakyStore{
		getErr: errors.New("backend down"),
		setErr: errors.New("backend down"),
		inner:  NewMemoryStore(0),
	}
	defer store.inner.Close()
	c := newTestCache(store)

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("live"), nil
	}

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		payload, err := c.GetOrCompute(ctx, "k1", time.Minute, compute)
		require.NoError(t, err, "broken cache must degrade to pass-through")
		assert.Equal(t, []byte("live"), payload)
	}
	assert.Equal(t, 3, calls)
}

func TestKeyDeterminism(t *testing.T) {
	type params struct {
		Account string `json:"accountAddress"`
		Token   string `json:"tokenSymbol"`
	}

	a := Key("ethereum/mainnet", "getTokenTransfersByAccount", params{Account: "0xabc", Token: "dai"})
	b := Key("ethereum/mainnet", "getTokenTransfersByAccount", params{Account: "0xabc", Token: "dai"})
	assert.Equal(t, a, b)

	differentParams := Key("ethereum/mainnet", "getTokenTransfersByAccount", params{Account: "0xdef", Token: "dai"})
	assert.NotEqual(t, a, differentParams)

	differentChain := Key("tron/mainnet", "getTokenTransfersByAccount", params{Account: "0xabc", Token: "dai"})
	assert.NotEqual(t, a, differentChain)

	// Keys must stay within the database backend's key column size.
	assert.LessOrEqual(t, len(a), 191)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(0)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "k", []byte("v"), 10*time.Millisecond))

	payload, hit, err := store.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, []byte("v"), payload)

	time.Sleep(20 * time.Millisecond)

	_, hit, err = store.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit, "expired entry must read as a miss")
}
