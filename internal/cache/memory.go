package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is an in-process Store for single-instance deployments and
// tests. Entries expire through go-cache's janitor.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		c: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	v, found := s.c.Get(key)
	if !found {
		return false, nil
	}
	data, ok := v.([]byte)
	if !ok {
		return false, fmt.Errorf("unexpected cache entry type %T for key %s", v, key)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}
	s.c.Set(key, data, ttl)
	return nil
}

func (s *MemoryStore) Remove(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *MemoryStore) Keys(_ context.Context, pattern string) ([]string, error) {
	items := s.c.Items()
	keys := make([]string, 0, len(items))
	for key := range items {
		matched, err := path.Match(pattern, key)
		if err != nil {
			return nil, fmt.Errorf("invalid key pattern %q: %w", pattern, err)
		}
		if matched {
			keys = append(keys, key)
		}
	}
	return keys, nil
}
