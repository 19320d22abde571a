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
	"time"
)

// FailOpenLocker acquires locks that carry a lease duration: the holder
// extends it by periodic heartbeat, and another acquirer eventually
// succeeds after the lease elapses if the holder stops heartbeating.
// Each successful acquisition advances a monotonic fencing token. See
// spec §4.3.
type FailOpenLocker struct {
	cfg FailOpenConfig
}

// NewFailOpenLocker validates cfg and builds a FailOpenLocker.
func NewFailOpenLocker(cfg FailOpenConfig) (*FailOpenLocker, error) {
	if err := cfg.validate(); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	cfg.setDefaults()
	return &FailOpenLocker{cfg: cfg}, nil
}

// Acquire runs the CheckExisting / AcquireNew / WaitLease / AcquireExisting
// state machine of spec §4.3 and returns a configured Lock on success.
func (l *FailOpenLocker) Acquire(ctx context.Context, id string, opts ...AcquireOption) (*Lock, error) {
	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}

	owner := l.cfg.ownerOrDefault()
	attemptID := newAttemptID()
	logger := l.cfg.Logger

	attempts := l.cfg.RetryCount + 1
	var lastErr error
	for attempt := uint(0); attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		existing, err := l.cfg.Store.Get(ctx, id)
		if err != nil {
			return nil, err
		}

		var (
			handle *Lock
		)
		if existing == nil {
			logger.Info(ctx, "distlock[", attemptID, "]: no existing record for ", id, ", acquiring new")
			handle, err = l.acquireNew(ctx, id, owner, &o)
		} else {
			logger.Info(ctx, "distlock[", attemptID, "]: existing record for ", id, " held by ", existing.Owner, ", waiting out lease")
			l.waitLease(ctx, *existing)
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			handle, err = l.acquireExisting(ctx, id, owner, *existing, &o)
		}

		if err == nil {
			logger.Info(ctx, "distlock[", attemptID, "]: acquired ", id, " with fencing token ", handle.fencingToken)
			if l.cfg.HeartbeatPeriod > 0 {
				handle.startHeartbeat()
			} else {
				handle.closeErrChNow()
			}
			return handle, nil
		}

		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}

		lastErr = err
		logger.Info(ctx, "distlock[", attemptID, "]: contention on ", id, ", attempt ", attempt+1, " of ", attempts)
	}

	return nil, &FailedToAcquireLockError{Err: lastErr}
}

// waitLease implements spec §4.3's clock policy. When TrustLocalTime is
// false, it waits the full lease duration unconditionally. When true, it
// shortens the wait by the apparent age of the lock, computed from the
// holder's reported acquisition time and this process's local clock.
func (l *FailOpenLocker) waitLease(ctx context.Context, existing Record) {
	lease := time.Duration(existing.LeaseDurationMs) * time.Millisecond

	wait := lease
	if l.cfg.TrustLocalTime && existing.LockAcquiredTimeUnixMs != 0 {
		age := time.Since(time.UnixMilli(int64(existing.LockAcquiredTimeUnixMs)))
		wait = lease - age
		if wait < 0 {
			wait = 0
		}
	}

	if wait <= 0 {
		return
	}

	select {
	case <-ctx.Done():
	case <-time.After(wait):
	}
}

// acquireNew implements spec §4.3's AcquireNew step: the lock id is
// absent, so the fencing token starts at 1.
func (l *FailOpenLocker) acquireNew(ctx context.Context, id, owner string, o *acquireOptions) (*Lock, error) {
	return l.put(ctx, id, owner, 1, CondAbsentCondition(), o)
}

// acquireExisting implements spec §4.3's AcquireExisting step: steal the
// lease via a guid+token compare-and-set, so racing stealers cannot both
// succeed (invariant per spec's rationale in §4.3).
func (l *FailOpenLocker) acquireExisting(ctx context.Context, id, owner string, existing Record, o *acquireOptions) (*Lock, error) {
	nextToken := existing.FencingToken + 1
	cond := CondStealCondition(existing.GUID, existing.FencingToken)
	return l.put(ctx, id, owner, nextToken, cond, o)
}

func (l *FailOpenLocker) put(ctx context.Context, id, owner string, fencingToken uint64, cond Condition, o *acquireOptions) (*Lock, error) {
	guid, err := newGUID()
	if err != nil {
		return nil, err
	}

	rec := Record{
		ID:              id,
		Owner:           owner,
		GUID:            guid,
		FencingToken:    fencingToken,
		LeaseDurationMs: uint64(l.cfg.LeaseDuration.Milliseconds()),
	}
	if l.cfg.TrustLocalTime {
		rec.LockAcquiredTimeUnixMs = uint64(time.Now().UnixMilli())
	}
	if o.hasExpiresAt {
		rec.ExpiresAt = o.expiresAt
	}

	if err := l.cfg.Store.Put(ctx, rec, cond); err != nil {
		return nil, err
	}

	return &Lock{
		store:           l.cfg.Store,
		logger:          l.cfg.Logger,
		id:              id,
		owner:           owner,
		hasFencing:      true,
		fencingToken:    fencingToken,
		heartbeatPeriod: l.cfg.HeartbeatPeriod,
		leaseDuration:   l.cfg.LeaseDuration,
		trustLocalTime:  l.cfg.TrustLocalTime,
		currentGUID:     guid,
		errCh:           make(chan error, 1),
	}, nil
}
