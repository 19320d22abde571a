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

import "errors"

// FailedToAcquireLockError is returned when a lock acquisition exhausts
// its configured retries. The underlying condition-failed error from the
// store is available through errors.Unwrap / errors.As.
type FailedToAcquireLockError struct {
	Err error
}

func (e *FailedToAcquireLockError) Error() string {
	return "distlock: failed to acquire lock: " + e.Err.Error()
}

func (e *FailedToAcquireLockError) Unwrap() error { return e.Err }

// FailedToReleaseLockError is returned by Fail-Closed Release when the
// record is absent or owned by a different guid, meaning the lock was
// stolen or reaped before release.
type FailedToReleaseLockError struct {
	Err error
}

func (e *FailedToReleaseLockError) Error() string {
	return "distlock: failed to release lock: " + e.Err.Error()
}

func (e *FailedToReleaseLockError) Unwrap() error { return e.Err }

// BackendError wraps any non-conditional failure reported by the Store:
// network errors, throttling, authorization failures, and the like.
type BackendError struct {
	Err error
}

func (e *BackendError) Error() string {
	return "distlock: backend error: " + e.Err.Error()
}

func (e *BackendError) Unwrap() error { return e.Err }

// ConfigurationError is produced synchronously at construction time when
// the supplied configuration fails validation.
type ConfigurationError struct {
	Err error
}

func (e *ConfigurationError) Error() string {
	return "distlock: invalid configuration: " + e.Err.Error()
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// HeartbeatError is surfaced through a Lock's Errors channel when a
// heartbeat tick fails, whether because ownership was lost (condition
// failed) or because of a transport failure. It is never retried
// internally.
type HeartbeatError struct {
	Err error
	// Lost reports whether the failure was a condition-failed outcome,
	// meaning another process has very likely taken over the lock.
	Lost bool
}

func (e *HeartbeatError) Error() string {
	return "distlock: heartbeat failed: " + e.Err.Error()
}

func (e *HeartbeatError) Unwrap() error { return e.Err }

// ErrConditionFailed is the distinguished condition-failed outcome from
// Store.Put / Store.Delete: the caller-supplied predicate evaluated to
// false against the item currently in the store.
var ErrConditionFailed = errors.New("distlock: condition failed")
