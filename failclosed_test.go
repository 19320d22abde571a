package distlock

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFailClosedLocker(t *testing.T, store Store, cfg FailClosedConfig) *FailClosedLocker {
	t.Helper()
	cfg.Store = store
	if cfg.PartitionKeyName == "" {
		cfg.PartitionKeyName = "id"
	}
	l, err := NewFailClosedLocker(cfg)
	require.NoError(t, err)
	return l
}

// Scenario 1: uncontested Fail-Closed acquire/release.
func TestFailClosed_UncontestedAcquireRelease(t *testing.T) {
	store := newMockStore()
	locker := newTestFailClosedLocker(t, store, FailClosedConfig{
		AcquirePeriod: 10 * time.Millisecond,
	})

	lock, err := locker.Acquire(context.Background(), "A")
	require.NoError(t, err)
	require.NotNil(t, lock)

	_, hasFencing := lock.FencingToken()
	assert.False(t, hasFencing)

	rec, ok := store.snapshot("A")
	require.True(t, ok)
	assert.Equal(t, lock.snapshotGUID(), rec.GUID)

	require.NoError(t, lock.Release(context.Background()))

	_, ok = store.snapshot("A")
	assert.False(t, ok, "record should be deleted on release")
}

// Scenario 2: Fail-Closed contention exhausts retries.
func TestFailClosed_ContentionExhaustsRetries(t *testing.T) {
	store := newMockStore()
	store.seed(Record{ID: "A", Owner: "someone-else", GUID: []byte("existing-guid")})

	locker := newTestFailClosedLocker(t, store, FailClosedConfig{
		AcquirePeriod:        10 * time.Millisecond,
		CommonConfig:         CommonConfig{RetryCount: 2},
	})

	start := time.Now()
	lock, err := locker.Acquire(context.Background(), "A")
	elapsed := time.Since(start)

	assert.Nil(t, lock)
	var failedErr *FailedToAcquireLockError
	require.ErrorAs(t, err, &failedErr)
	assert.True(t, errors.Is(err, ErrConditionFailed))
	// Two retries at 10ms each => roughly 20ms of sleeping.
	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Equal(t, 3, store.putCount("A"), "initial attempt + 2 retries")
}

func TestFailClosed_ReleaseByNonOwnerIsReported(t *testing.T) {
	store := newMockStore()
	locker := newTestFailClosedLocker(t, store, FailClosedConfig{
		AcquirePeriod: 10 * time.Millisecond,
	})

	lock, err := locker.Acquire(context.Background(), "A")
	require.NoError(t, err)

	// Someone else steals the record out from under us (simulating an
	// external reaper + new acquirer) before we release.
	store.seed(Record{ID: "A", Owner: "thief", GUID: []byte("thief-guid")})

	err = lock.Release(context.Background())
	var releaseErr *FailedToReleaseLockError
	require.ErrorAs(t, err, &releaseErr)
}

func TestNewFailClosedLocker_RejectsMissingAcquirePeriod(t *testing.T) {
	_, err := NewFailClosedLocker(FailClosedConfig{
		CommonConfig: CommonConfig{Store: newMockStore(), PartitionKeyName: "id"},
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}

func TestNewFailClosedLocker_RejectsMissingStore(t *testing.T) {
	_, err := NewFailClosedLocker(FailClosedConfig{
		CommonConfig:  CommonConfig{PartitionKeyName: "id"},
		AcquirePeriod: time.Millisecond,
	})
	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
}
