package distlock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_ErrorsChannelClosedImmediatelyWithoutHeartbeat(t *testing.T) {
	store := newMockStore()
	locker := newTestFailClosedLocker(t, store, FailClosedConfig{AcquirePeriod: 10 * time.Millisecond})

	lock, err := locker.Acquire(context.Background(), "A")
	require.NoError(t, err)

	select {
	case _, ok := <-lock.Errors():
		assert.False(t, ok, "channel should be closed, not carrying a value")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("errors channel was never closed")
	}
}

func TestLock_HeartbeatFailureReportedOnErrorsChannel(t *testing.T) {
	store := newMockStore()
	locker := newTestFailOpenLocker(t, store, FailOpenConfig{
		LeaseDuration:   time.Second,
		HeartbeatPeriod: 10 * time.Millisecond,
	})

	lock, err := locker.Acquire(context.Background(), "Z")
	require.NoError(t, err)

	// A rogue process steals the record by writing a guid our heartbeat
	// doesn't know about, so the next heartbeat's CAS loses.
	stolen, _ := store.snapshot("Z")
	stolen.GUID = []byte("rogue-guid-0123456789")
	store.seed(stolen)

	select {
	case hbErr, ok := <-lock.Errors():
		require.True(t, ok)
		var heartbeatErr *HeartbeatError
		require.ErrorAs(t, hbErr, &heartbeatErr)
		assert.True(t, heartbeatErr.Lost)
	case <-time.After(200 * time.Millisecond):
		t.Fatal("expected a heartbeat error to be reported")
	}

	// Release after heartbeat loss is a no-op; it must not attempt any
	// further store writes or panic on a double channel close.
	assert.NoError(t, lock.Release(context.Background()))
}

func TestLock_FailClosedAccessorsHaveNoFencingToken(t *testing.T) {
	store := newMockStore()
	locker := newTestFailClosedLocker(t, store, FailClosedConfig{AcquirePeriod: time.Millisecond})

	lock, err := locker.Acquire(context.Background(), "B")
	require.NoError(t, err)

	assert.Equal(t, "B", lock.ID())
	assert.NotEmpty(t, lock.Owner())
	token, hasFencing := lock.FencingToken()
	assert.False(t, hasFencing)
	assert.Zero(t, token)
}
