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
	"errors"
	"time"
)

const defaultRetryCount = 1

// CommonConfig holds the fields shared by both acquisition modes. See
// spec §6.1.
type CommonConfig struct {
	// Store is the conditionally-updatable key-value store this client
	// acquires locks against. Required.
	Store Store

	// PartitionKeyName is the attribute name of the lock id within the
	// table. Required.
	PartitionKeyName string

	// Owner is a human-readable identifier of the holder. If empty, one
	// is synthesized per acquisition; see ownerString.
	Owner string

	// RetryCount is how many additional attempts are made after the
	// first one fails with a condition-failed outcome. Defaults to 1.
	RetryCount uint

	// User and Host feed the default owner synthesis when Owner is
	// empty. Both are optional; "unknown" is substituted for either
	// when absent.
	User string
	Host string

	// Logger receives informational and error lines from the
	// acquisition and heartbeat state machines. Defaults to a discard
	// logger.
	Logger ContextLeveledLogger
}

func (c *CommonConfig) setDefaults() {
	if c.RetryCount == 0 {
		c.RetryCount = defaultRetryCount
	}
	if c.Logger == nil {
		c.Logger = discardLogger{}
	}
}

func (c *CommonConfig) validate() error {
	if c.Store == nil {
		return errors.New("store must not be nil")
	}
	if c.PartitionKeyName == "" {
		return errors.New("partitionKeyName must not be empty")
	}
	return nil
}

func (c *CommonConfig) ownerOrDefault() string {
	if c.Owner != "" {
		return c.Owner
	}
	return ownerString(c.User, c.Host)
}

// FailClosedConfig configures a FailClosedLocker. See spec §4.2 and
// §6.1.
type FailClosedConfig struct {
	CommonConfig

	// AcquirePeriod is the delay between retries. Required, must be > 0.
	AcquirePeriod time.Duration

	// DefaultExpiresIn is the TTL hint written when an Acquire call
	// supplies no explicit expiry. Defaults to 24h, a defensive
	// liveness knob per Design Note §9; the library never reads this
	// value back.
	DefaultExpiresIn time.Duration
}

func (c *FailClosedConfig) setDefaults() {
	c.CommonConfig.setDefaults()
	if c.DefaultExpiresIn == 0 {
		c.DefaultExpiresIn = 24 * time.Hour
	}
}

func (c *FailClosedConfig) validate() error {
	if err := c.CommonConfig.validate(); err != nil {
		return err
	}
	if c.AcquirePeriod <= 0 {
		return errors.New("acquirePeriod must be greater than zero")
	}
	return nil
}

// FailOpenConfig configures a FailOpenLocker. See spec §4.3 and §6.1.
type FailOpenConfig struct {
	CommonConfig

	// HeartbeatPeriod is the interval between heartbeat writes. Zero
	// disables automatic heartbeating.
	HeartbeatPeriod time.Duration

	// LeaseDuration is the validity window of each write. Required,
	// must be > 0.
	LeaseDuration time.Duration

	// TrustLocalTime gates the clock policy described in spec §4.3: if
	// true, WaitLease is shortened by the apparent age of the prior
	// holder's lease as computed from its reported acquisition time and
	// this process's local clock; if false, the full lease duration is
	// always awaited.
	TrustLocalTime bool
}

func (c *FailOpenConfig) setDefaults() {
	c.CommonConfig.setDefaults()
}

func (c *FailOpenConfig) validate() error {
	if err := c.CommonConfig.validate(); err != nil {
		return err
	}
	if c.LeaseDuration <= 0 {
		return errors.New("leaseDuration must be greater than zero")
	}
	if c.HeartbeatPeriod < 0 {
		return errors.New("heartbeatPeriod must not be negative")
	}
	return nil
}

// acquireOptions carries the per-call inputs to Acquire: spec §6.2.
type acquireOptions struct {
	expiresAt   uint64
	hasExpiresAt bool
}

// AcquireOption customizes a single Acquire call.
type AcquireOption func(*acquireOptions)

// WithExpiresAt attaches a TTL hint, in Unix seconds, to the record
// written by this acquisition.
func WithExpiresAt(unixSeconds uint64) AcquireOption {
	return func(o *acquireOptions) {
		o.expiresAt = unixSeconds
		o.hasExpiresAt = true
	}
}
