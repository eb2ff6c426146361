package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	count  int64
	expiry time.Time
}

// MemoryStore is the in-process backend for single-instance deployments. It
// keeps counters in a lock-free concurrent map; expired entries are replaced
// on the next increment rather than swept.
type MemoryStore struct {
	entries sync.Map

	nowFn func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nowFn: time.Now}
}

func (s *MemoryStore) Allow(_ context.Context, tenantID uuid.UUID, maxPerMinute, maxPerHour int) (bool, error) {
	now := s.nowFn()
	mKey, hKey := minuteKey(tenantID), hourKey(tenantID)

	if s.exceeds(mKey, maxPerMinute, now) || s.exceeds(hKey, maxPerHour, now) {
		return false, nil
	}

	s.bump(mKey, minuteWindow, now)
	s.bump(hKey, hourWindow, now)
	return true, nil
}

func (s *MemoryStore) exceeds(key string, limit int, now time.Time) bool {
	v, ok := s.entries.Load(key)
	if !ok {
		return false
	}
	e := v.(*entry)
	return now.Before(e.expiry) && atomic.LoadInt64(&e.count) >= int64(limit)
}

func (s *MemoryStore) bump(key string, window time.Duration, now time.Time) {
	if v, ok := s.entries.Load(key); ok {
		e := v.(*entry)
		if now.Before(e.expiry) {
			atomic.AddInt64(&e.count, 1)
			return
		}
	}
	// Window absent or expired: start a fresh one. The expiry is fixed at
	// creation and never extended by later increments.
	s.entries.Store(key, &entry{count: 1, expiry: now.Add(window)})
}
