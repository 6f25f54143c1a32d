package circuit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBreaker_StartsClosed(t *testing.T) {
	b := New("broker")

	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
	assert.Equal(t, "broker", b.Name())
}

func TestBreaker_OpensOnConsecutiveFailures(t *testing.T) {
	b := New("broker", WithFailureThreshold(3))

	for i := 0; i < 2; i++ {
		degraded, change := b.RecordFailure()
		assert.False(t, degraded)
		assert.False(t, change.Opened)
	}

	degraded, change := b.RecordFailure()
	assert.True(t, degraded)
	assert.True(t, change.Opened)
	assert.True(t, b.IsOpen())
}

func TestBreaker_ClosesAfterEnoughProbes(t *testing.T) {
	b := New("broker", WithFailureThreshold(1), WithSuccessThreshold(2))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	recovered, change := b.RecordSuccess()
	assert.False(t, recovered)
	assert.False(t, change.Closed)
	assert.True(t, b.IsOpen(), "one probe is not recovery")

	recovered, change = b.RecordSuccess()
	assert.True(t, recovered)
	assert.True(t, change.Closed)
	assert.False(t, b.IsOpen())
}

func TestBreaker_SuccessClearsFailureStreak(t *testing.T) {
	b := New("broker", WithFailureThreshold(3))

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()

	// The streak starts over after a success.
	b.RecordFailure()
	b.RecordFailure()
	assert.False(t, b.IsOpen())

	b.RecordFailure()
	assert.True(t, b.IsOpen())
}

func TestBreaker_FailureClearsProbeStreak(t *testing.T) {
	b := New("broker", WithFailureThreshold(1), WithSuccessThreshold(3))

	b.RecordFailure()
	b.RecordSuccess()
	b.RecordSuccess()

	// A failed probe discards prior probe successes.
	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.RecordSuccess()
	b.RecordSuccess()
	assert.True(t, b.IsOpen())
	b.RecordSuccess()
	assert.False(t, b.IsOpen())
}

func TestBreaker_FailuresWhileOpenDoNotReopen(t *testing.T) {
	b := New("broker", WithFailureThreshold(1))

	b.RecordFailure()
	degraded, change := b.RecordFailure()

	assert.True(t, degraded)
	assert.False(t, change.Opened, "already open")
}

func TestBreaker_ResetForcesClosed(t *testing.T) {
	b := New("broker", WithFailureThreshold(1))

	b.RecordFailure()
	assert.True(t, b.IsOpen())

	b.Reset()
	assert.False(t, b.IsOpen())
	assert.Equal(t, StateClosed, b.State())
}
