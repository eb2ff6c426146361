package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("dependency down")

func failing() error { return errDown }
func succeeding() error { return nil }

func TestOpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "test", FailureThreshold: 3, Cooldown: time.Hour})

	for i := 0; i < 3; i++ {
		require.ErrorIs(t, cb.Execute(failing), errDown)
	}
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(succeeding)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestSuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(Settings{FailureThreshold: 3, Cooldown: time.Hour})

	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))
	require.NoError(t, cb.Execute(succeeding))
	require.Error(t, cb.Execute(failing))
	require.Error(t, cb.Execute(failing))

	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenProbeClosesOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(Settings{FailureThreshold: 1, Cooldown: 5 * time.Millisecond})

	require.Error(t, cb.Execute(failing))
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(10 * time.Millisecond)

	require.NoError(t, cb.Execute(succeeding))
	assert.Equal(t, StateClosed, cb.State())
}

func TestHalfOpenProbeReopensOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(Settings{FailureThreshold: 1, Cooldown: 5 * time.Millisecond})

	require.Error(t, cb.Execute(failing))
	time.Sleep(10 * time.Millisecond)

	require.ErrorIs(t, cb.Execute(failing), errDown)
	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(succeeding)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestDefaultsApplied(t *testing.T) {
	cb := NewCircuitBreaker(Settings{Name: "defaults"})
	assert.Equal(t, 5, cb.threshold)
	assert.Equal(t, 2*time.Minute, cb.cooldown)
	assert.Equal(t, StateClosed, cb.State())
}
