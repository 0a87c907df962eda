// Package query is the dashboard-facing entry point: it validates a
// (method, chain, params) request, serves it from cache when fresh, and
// otherwise fetches from the provider and normalizes the response.
package query

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"chainpulse/internal/cache"
	"chainpulse/internal/chain"
	"chainpulse/internal/metrics"
	"chainpulse/internal/normalize"
	"chainpulse/internal/upstream"
	"chainpulse/internal/upstream/nodit"
	"github.com/sirupsen/logrus"
)

// Gateway is the provider boundary the service fetches through.
type Gateway interface {
	Call(ctx context.Context, method chain.Method, id chain.ID, params nodit.Params) (json.RawMessage, error)
}

// Service executes normalized multi-chain queries.
type Service struct {
	gateway Gateway
	cache   *cache.ResponseCache
	ttl     time.Duration
	log     *logrus.Logger
}

// NewService wires the query service.
func NewService(gateway Gateway, responseCache *cache.ResponseCache, ttl time.Duration, log *logrus.Logger) *Service {
	return &Service{
		gateway: gateway,
		cache:   responseCache,
		ttl:     ttl,
		log:     log,
	}
}

// Execute runs one query end to end: chain and method validation, cache
// lookup, provider fetch on miss, then normalization. The raw provider
// payload is what gets cached; normalization always runs on the way out.
func (s *Service) Execute(ctx context.Context, methodName, chainName string, params nodit.Params) (rec normalize.Record, err error) {
	defer func() {
		metrics.RecordQuery(methodName, err)
	}()

	id, err := chain.Parse(chainName)
	if err != nil {
		return normalize.Record{}, err
	}

	method := chain.Method(methodName)
	if !id.Supports(method) {
		return normalize.Record{}, upstream.NewValidationError("method %s is not supported on chain %s", method, id)
	}

	key := cache.Key(id.String(), methodName, params)
	raw, err := s.cache.GetOrCompute(ctx, key, s.ttl, func(ctx context.Context) ([]byte, error) {
		return s.gateway.Call(ctx, method, id, params)
	})
	if err != nil {
		return normalize.Record{}, fmt.Errorf("query %s on %s: %w", method, id, err)
	}

	return normalize.Normalize(method, id, raw), nil
}
