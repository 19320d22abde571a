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

import "context"

// ConditionKind enumerates the predicates this library ever asks a Store
// to evaluate. See spec §4.1: attribute existence of the partition key,
// and equality of guid (and, for steal, fencingToken) to caller-supplied
// values.
type ConditionKind int

const (
	// CondAbsent holds iff no item exists for the given partition key.
	CondAbsent ConditionKind = iota
	// CondGUIDEquals holds iff an item exists and its guid equals
	// Condition.GUID.
	CondGUIDEquals
	// CondAbsentOrGUIDAndTokenEqual holds iff no item exists, or an item
	// exists whose guid and fencingToken both equal Condition.GUID and
	// Condition.FencingToken. This is the steal condition from spec
	// §4.3 step 3: it handles the case where the old record was reaped
	// between read and write.
	CondAbsentOrGUIDAndTokenEqual
)

// Condition is a predicate evaluated by the store against the current
// item before a Put or Delete is allowed to take effect.
type Condition struct {
	Kind         ConditionKind
	GUID         []byte
	FencingToken uint64
}

// CondAbsentCondition builds the "id is absent" condition used by every
// first-time acquisition in both modes.
func CondAbsentCondition() Condition {
	return Condition{Kind: CondAbsent}
}

// CondGUIDCondition builds the "id is present and guid equals guid"
// condition used by heartbeat and by Fail-Closed release.
func CondGUIDCondition(guid []byte) Condition {
	return Condition{Kind: CondGUIDEquals, GUID: guid}
}

// CondStealCondition builds the disjunctive steal condition used by
// Fail-Open's AcquireExisting step.
func CondStealCondition(guid []byte, fencingToken uint64) Condition {
	return Condition{Kind: CondAbsentOrGUIDAndTokenEqual, GUID: guid, FencingToken: fencingToken}
}

// Store is the abstract capability this library depends on: a single
// conditionally-updatable table supporting conditional put, strongly
// consistent get, and conditional delete. See spec §4.1.
//
// Put and Delete return ErrConditionFailed (wrapped) when cond does not
// hold against the current item; any other failure is a transport or
// backend error (DynamoDBStore returns it as *BackendError) and must not
// wrap ErrConditionFailed, so callers can tell the two apart with
// errors.Is.
//
// Get returns (nil, nil) for an absent item — the distinguished "absent"
// marker — rather than a sentinel error, since absence is an expected,
// frequent outcome on the acquisition hot path.
type Store interface {
	Put(ctx context.Context, item Record, cond Condition) error
	Get(ctx context.Context, id string) (*Record, error)
	Delete(ctx context.Context, id string, cond Condition) error
}
