package cache

import (
	"context"
	"time"

	"chainpulse/internal/storage"
)

// DatabaseStore persists cache entries in the api_cache table, surviving
// process restarts at the cost of a round trip per lookup.
type DatabaseStore struct {
	db *storage.DB
}

// NewDatabaseStore wraps the storage layer as a cache backend.
func NewDatabaseStore(db *storage.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.db.GetCache(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if entry == nil || entry.ExpiresTS <= time.Now().Unix() {
		return nil, false, nil
	}
	return entry.Payload, true, nil
}

func (s *DatabaseStore) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	return s.db.SetCache(ctx, key, payload, time.Now().Add(ttl).Unix())
}
