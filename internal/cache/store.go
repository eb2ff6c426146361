package cache

import (
	"context"
	"time"
)

// Store is the shared key-value contract backing rate-limit counters, failure
// counters, the webhook lookup cache and the dead-letter store. All
// operations are safe for concurrent callers. Keys is a point-in-time
// snapshot and may race with concurrent writers: a key it returns can be gone
// by the time it is fetched, so callers must tolerate an absent Get.
//
// Values are JSON-encoded. Decoding matches fields case-insensitively
// (encoding/json semantics), which keeps readers tolerant of schema drift in
// stored documents.
type Store interface {
	// Get unmarshals the value at key into dest. The boolean reports whether
	// the key was present and unexpired.
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	// Set stores value under key with the given TTL, replacing any previous
	// value.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	// Keys enumerates keys matching a glob pattern, e.g. "dlq:webhooks:*".
	Keys(ctx context.Context, pattern string) ([]string, error)
}
