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

// FailClosedLocker acquires locks that, once written, remain in the
// store until explicitly released. Crashes hold the lock forever (until
// an external expiry mechanism reaps it); correctness is preferred over
// liveness. See spec §4.2.
type FailClosedLocker struct {
	cfg FailClosedConfig
}

// NewFailClosedLocker validates cfg and builds a FailClosedLocker.
func NewFailClosedLocker(cfg FailClosedConfig) (*FailClosedLocker, error) {
	if err := cfg.validate(); err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	cfg.setDefaults()
	return &FailClosedLocker{cfg: cfg}, nil
}

// Acquire attempts to hold the named lock indefinitely. It retries on
// contention up to cfg.RetryCount additional times, sleeping
// cfg.AcquirePeriod between attempts, and fails with
// FailedToAcquireLockError once retries are exhausted. See spec §4.2.
func (l *FailClosedLocker) Acquire(ctx context.Context, id string, opts ...AcquireOption) (*Lock, error) {
	var o acquireOptions
	for _, opt := range opts {
		opt(&o)
	}

	expiresAt := o.expiresAt
	if !o.hasExpiresAt {
		expiresAt = uint64(time.Now().Add(l.cfg.DefaultExpiresIn).Unix())
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

		guid, err := newGUID()
		if err != nil {
			return nil, err
		}

		rec := Record{
			ID:        id,
			Owner:     owner,
			GUID:      guid,
			ExpiresAt: expiresAt,
		}

		logger.Info(ctx, "distlock[", attemptID, "]: attempting fail-closed acquire of ", id)
		err = l.cfg.Store.Put(ctx, rec, CondAbsentCondition())
		if err == nil {
			logger.Info(ctx, "distlock[", attemptID, "]: acquired ", id)
			handle := &Lock{
				store:       l.cfg.Store,
				logger:      logger,
				id:          id,
				owner:       owner,
				currentGUID: guid,
				errCh:       make(chan error, 1),
			}
			handle.closeErrChNow()
			return handle, nil
		}

		if !errors.Is(err, ErrConditionFailed) {
			return nil, err
		}

		lastErr = err
		logger.Info(ctx, "distlock[", attemptID, "]: contention on ", id, ", attempt ", attempt+1, " of ", attempts)

		if attempt+1 >= attempts {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.cfg.AcquirePeriod):
		}
	}

	return nil, &FailedToAcquireLockError{Err: lastErr}
}
