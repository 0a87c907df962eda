// Package cache wraps provider calls with a TTL response cache so repeated
// queries within the freshness window never hit the upstream twice.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"chainpulse/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Store is a cache backend. Get reports a miss for absent or expired
// entries; Set replaces the entry for a key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error
}

// ResponseCache is a read-through cache in front of the provider gateway.
type ResponseCache struct {
	store   Store
	backend string
	log     *logrus.Logger
}

// New creates a response cache over the given store. The backend name is
// only used for logging and metrics labels.
func New(store Store, backend string, log *logrus.Logger) *ResponseCache {
	return &ResponseCache{store: store, backend: backend, log: log}
}

// Key derives a deterministic cache key from (chain, method, params).
// Params are serialized to JSON (map keys sort deterministically) and
// hashed to bound key length for constrained backends.
func Key(chainID, method string, params interface{}) string {
	serialized, err := json.Marshal(params)
	if err != nil {
		serialized = []byte(fmt.Sprintf("%v", params))
	}
	sum := sha256.Sum256(serialized)
	return fmt.Sprintf("%s:%s:%s", chainID, method, hex.EncodeToString(sum[:]))
}

// GetOrCompute returns the cached payload for key if present and fresh;
// otherwise it invokes compute, stores the result with the given TTL, and
// returns it. A failed compute propagates its error and leaves no entry.
func (c *ResponseCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) ([]byte, error)) ([]byte, error) {
	payload, hit, err := c.store.Get(ctx, key)
	if err != nil {
		// A broken cache backend degrades to pass-through, not failure.
		metrics.RecordCacheLookup(c.backend, "error")
		c.log.WithError(err).WithField("key", key).Warn("Cache lookup failed")
	} else if hit {
		metrics.RecordCacheLookup(c.backend, "hit")
		return payload, nil
	} else {
		metrics.RecordCacheLookup(c.backend, "miss")
	}

	payload, err = compute(ctx)
	if err != nil {
		return nil, err
	}

	if err := c.store.Set(ctx, key, payload, ttl); err != nil {
		c.log.WithError(err).WithField("key", key).Warn("Cache store failed")
	}

	return payload, nil
}
