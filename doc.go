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

// Package distlock implements distributed mutual exclusion on top of a
// remote, conditionally-updatable key-value store such as DynamoDB.
//
// Two acquisition modes are offered. FailClosedLocker writes a lock
// record that remains in the store until explicitly released; a crashed
// holder keeps the lock until an external expiry mechanism reaps it.
// FailOpenLocker writes a lock record with a lease duration, extended by
// periodic heartbeat; another acquirer eventually succeeds once the
// lease elapses, and each successful acquisition advances a monotonic
// fencing token that downstream resources can use to reject stale
// writers.
//
// The backing store is abstracted behind the Store interface;
// DynamoDBStore is the production adapter over Amazon DynamoDB.
package distlock
