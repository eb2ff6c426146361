package notification

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/event-notify/internal/cache"
	"github.com/jwalitptl/event-notify/internal/dlq"
	"github.com/jwalitptl/event-notify/pkg/logger"
	"github.com/jwalitptl/event-notify/pkg/metrics"
)

type flakySender struct {
	failures int32
	calls    int32
}

func (s *flakySender) SendSMS(_ context.Context, _, _ string) error {
	n := atomic.AddInt32(&s.calls, 1)
	if n <= atomic.LoadInt32(&s.failures) {
		return errors.New("gateway unavailable")
	}
	return nil
}

func newTestService(t *testing.T, sender Sender) (*Service, *dlq.Store) {
	t.Helper()
	dlqStore := dlq.NewStore(cache.NewMemoryStore())
	m := metrics.NewWith("test", prometheus.NewRegistry())
	svc := NewService(sender, dlqStore, logger.NewLogger(nil), m, Config{
		RetryAttempts: 3,
		RetryBase:     time.Millisecond,
	})
	return svc, dlqStore
}

func TestSendSucceedsAfterRetry(t *testing.T) {
	sender := &flakySender{failures: 2}
	svc, dlqStore := newTestService(t, sender)

	require.NoError(t, svc.Send(context.Background(), "+15550100", "hello"))
	assert.EqualValues(t, 3, atomic.LoadInt32(&sender.calls))

	keys, err := dlqStore.Keys(context.Background(), dlq.KindSMS)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestSendExhaustionDeadLetters(t *testing.T) {
	sender := &flakySender{failures: 10}
	svc, dlqStore := newTestService(t, sender)

	err := svc.Send(context.Background(), "+15550100", "reminder")
	require.Error(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&sender.calls))

	keys, err := dlqStore.Keys(context.Background(), dlq.KindSMS)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	entry, found, err := dlqStore.Get(context.Background(), keys[0])
	require.NoError(t, err)
	require.True(t, found)
	sp, err := entry.SMS()
	require.NoError(t, err)
	assert.Equal(t, "+15550100", sp.PhoneNumber)
	assert.Equal(t, "reminder", sp.Message)
}

func TestRedeliverDoesNotReEnqueue(t *testing.T) {
	sender := &flakySender{failures: 10}
	svc, dlqStore := newTestService(t, sender)

	err := svc.Redeliver(context.Background(), "+15550100", "reminder")
	require.Error(t, err)

	keys, err := dlqStore.Keys(context.Background(), dlq.KindSMS)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestLogSenderAlwaysSucceeds(t *testing.T) {
	sender := &LogSender{Logger: logger.NewLogger(nil)}
	assert.NoError(t, sender.SendSMS(context.Background(), "+15550100", "hi"))
}
