package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type document struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.Set(ctx, "dlq:sms:abc", document{PhoneNumber: "+15550100", Message: "hi"}, time.Minute)
	require.NoError(t, err)

	var got document
	found, err := store.Get(ctx, "dlq:sms:abc", &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "+15550100", got.PhoneNumber)
	assert.Equal(t, "hi", got.Message)
}

func TestMemoryStoreGetAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	var got document
	found, err := store.Get(ctx, "missing", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	var got int
	found, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStoreCaseInsensitiveDecode(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	// A writer with different field casing must still be readable.
	require.NoError(t, store.Set(ctx, "k", map[string]string{"PhoneNumber": "+15550100", "MESSAGE": "hi"}, time.Minute))

	var got document
	found, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "+15550100", got.PhoneNumber)
	assert.Equal(t, "hi", got.Message)
}

func TestMemoryStoreKeysPattern(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "dlq:webhooks:a", 1, time.Minute))
	require.NoError(t, store.Set(ctx, "dlq:webhooks:b", 2, time.Minute))
	require.NoError(t, store.Set(ctx, "dlq:sms:c", 3, time.Minute))

	keys, err := store.Keys(ctx, "dlq:webhooks:*")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dlq:webhooks:a", "dlq:webhooks:b"}, keys)
}

func TestMemoryStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k", 1, time.Minute))
	require.NoError(t, store.Remove(ctx, "k"))
	require.NoError(t, store.Remove(ctx, "k")) // removing an absent key is fine

	var got int
	found, err := store.Get(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, found)
}
