/*
Copyright 2021 U. Cirello (cirello.io and github.com/cirello-io)

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package distlock

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Lock is the per-acquisition handle returned by Acquire. In Fail-Open
// mode with a non-zero heartbeat period it owns a heartbeat task that
// periodically rewrites the record with a fresh guid. Release takes
// effect once per handle; subsequent calls are no-ops. See spec
// §3 "Lock handle" and §4.4/§4.5.
type Lock struct {
	store  Store
	logger ContextLeveledLogger

	id    string
	owner string

	hasFencing   bool
	fencingToken uint64

	heartbeatPeriod time.Duration
	leaseDuration   time.Duration
	trustLocalTime  bool

	heartbeatCancel context.CancelFunc
	heartbeatGroup  errgroup.Group

	mu          sync.Mutex
	currentGUID []byte
	released    bool

	errCh   chan error
	errOnce sync.Once
}

// ID returns the lock id this handle was acquired for.
func (l *Lock) ID() string { return l.id }

// Owner returns the owner string recorded with this lock.
func (l *Lock) Owner() string { return l.owner }

// FencingToken returns the fencing token assigned at acquisition time,
// and whether this handle carries one at all (only Fail-Open handles
// do). See invariant I3.
func (l *Lock) FencingToken() (uint64, bool) {
	return l.fencingToken, l.hasFencing
}

// Errors returns a receive-only channel that carries at most one
// HeartbeatError: the terminal failure of this handle's heartbeat task,
// if any. The channel is closed once that error (if any) has been sent,
// or when the handle is released cleanly. A handle with no heartbeat
// task returns a channel that is closed immediately.
func (l *Lock) Errors() <-chan error {
	return l.errCh
}

// snapshotGUID returns the guid currently believed to be installed
// in the store, used as the CAS witness for the next heartbeat or
// release write.
func (l *Lock) snapshotGUID() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.currentGUID
}

// closeErrChNow closes the error channel immediately, for handles that
// will never run a heartbeat task. Routed through errOnce so it never
// races with reportHeartbeatLoss's own close.
func (l *Lock) closeErrChNow() {
	l.errOnce.Do(func() { close(l.errCh) })
}

// startHeartbeat launches the per-handle heartbeat task. It must be
// called at most once, right after a successful Fail-Open acquisition
// with a configured heartbeat period. The task runs on its own
// background context, independent of the ctx passed to Acquire, so a
// caller that cancels its acquisition context once Acquire has returned
// does not silently kill the heartbeat out from under a held lease; the
// task is stopped only by Release.
func (l *Lock) startHeartbeat() {
	heartbeatCtx, cancel := context.WithCancel(context.Background())
	l.heartbeatCancel = cancel

	l.heartbeatGroup.Go(func() error {
		ticker := time.NewTicker(l.heartbeatPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-heartbeatCtx.Done():
				return nil
			case <-ticker.C:
				if err := l.heartbeatTick(heartbeatCtx); err != nil {
					l.reportHeartbeatLoss(err)
					return err
				}
			}
		}
	})
}

// heartbeatTick performs a single heartbeat write: spec §4.4.
func (l *Lock) heartbeatTick(ctx context.Context) error {
	newGUIDBytes, err := newGUID()
	if err != nil {
		return err
	}

	witness := l.snapshotGUID()
	rec := Record{
		ID:              l.id,
		Owner:           l.owner,
		GUID:            newGUIDBytes,
		FencingToken:    l.fencingToken,
		LeaseDurationMs: uint64(l.leaseDuration.Milliseconds()),
	}
	if l.trustLocalTime {
		rec.LockAcquiredTimeUnixMs = uint64(time.Now().UnixMilli())
	}

	if err := l.store.Put(ctx, rec, CondGUIDCondition(witness)); err != nil {
		l.logger.Error(ctx, "distlock: heartbeat failed for ", l.id, ": ", err)
		return err
	}

	l.mu.Lock()
	l.currentGUID = newGUIDBytes
	l.mu.Unlock()
	l.logger.Info(ctx, "distlock: heartbeat rotated guid for ", l.id)
	return nil
}

// reportHeartbeatLoss marks the handle released (Design Note §9's
// resolution: a failed heartbeat is treated as implicit lease loss) and
// delivers a HeartbeatError on the error channel.
func (l *Lock) reportHeartbeatLoss(cause error) {
	l.mu.Lock()
	l.released = true
	l.mu.Unlock()

	lost := errors.Is(cause, ErrConditionFailed)
	l.errOnce.Do(func() {
		l.errCh <- &HeartbeatError{Err: cause, Lost: lost}
		close(l.errCh)
	})
}

// Release relinquishes the lock. Calling Release more than once, or
// calling it after the heartbeat has already reported loss of
// ownership, is a no-op that returns nil and performs no further store
// I/O. See spec §4.5.
//
// The release strategy is determined by mode (hasFencing), not by
// whether a heartbeat task happens to be running: a Fail-Open handle
// always neutralizes its record, preserving its fencingToken for the
// next acquirer, even when acquired with HeartbeatPeriod == 0.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	if l.released {
		l.mu.Unlock()
		return nil
	}
	l.released = true
	l.mu.Unlock()

	if l.heartbeatCancel != nil {
		l.heartbeatCancel()
		_ = l.heartbeatGroup.Wait()
	}
	// Snapshot only after the heartbeat goroutine (if any) has fully
	// stopped, so a tick racing with cancellation can't leave this stale
	// relative to the guid actually sitting in the store.
	guid := l.snapshotGUID()
	// The heartbeat goroutine, if it never failed, exits cleanly without
	// writing to errCh. By the time heartbeatGroup.Wait returns above, any
	// failure has already run reportHeartbeatLoss and fired errOnce, so
	// this call only ever closes an empty channel.
	l.errOnce.Do(func() { close(l.errCh) })

	if l.hasFencing {
		return l.releaseFailOpen(ctx, guid)
	}
	return l.releaseFailClosed(ctx, guid)
}

// releaseFailOpen implements spec §4.5's Fail-Open branch: overwrite
// with a 1ms lease so the next waiter proceeds almost immediately,
// preserving the record (and its fencingToken) rather than deleting it.
func (l *Lock) releaseFailOpen(ctx context.Context, guid []byte) error {
	rec := Record{
		ID:              l.id,
		Owner:           l.owner,
		GUID:            guid,
		FencingToken:    l.fencingToken,
		LeaseDurationMs: 1,
	}
	if l.trustLocalTime {
		rec.LockAcquiredTimeUnixMs = uint64(time.Now().UnixMilli())
	}

	err := l.store.Put(ctx, rec, CondGUIDCondition(guid))
	if err == nil {
		l.logger.Info(ctx, "distlock: released ", l.id, " by neutralizing lease")
		return nil
	}
	if errors.Is(err, ErrConditionFailed) {
		// Another process has already taken over; our release is moot.
		l.logger.Info(ctx, "distlock: release of ", l.id, " found it already stolen")
		return nil
	}
	return err
}

// releaseFailClosed implements spec §4.5's Fail-Closed branch: delete
// the record, contingent on still owning it.
func (l *Lock) releaseFailClosed(ctx context.Context, guid []byte) error {
	err := l.store.Delete(ctx, l.id, CondGUIDCondition(guid))
	if err == nil {
		l.logger.Info(ctx, "distlock: released ", l.id, " by deleting its record")
		return nil
	}
	if errors.Is(err, ErrConditionFailed) {
		return &FailedToReleaseLockError{Err: err}
	}
	return err
}
