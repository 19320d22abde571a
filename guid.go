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
	"crypto/rand"
	"fmt"

	"github.com/google/uuid"
)

// guidSize is the width, in bytes, of a lock record's compare-and-set
// witness. Spec §3: "64 B of cryptographically strong randomness."
const guidSize = 64

// newGUID generates a fresh per-write nonce. Invariant I2 requires each
// successful write to install a guid unequal to any previous one for
// that record with overwhelming probability; 64 bytes from crypto/rand
// gives that with enormous margin.
func newGUID() ([]byte, error) {
	b := make([]byte, guidSize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("distlock: cannot generate guid: %w", err)
	}
	return b, nil
}

// ownerString synthesizes a default owner identifier from the injected
// user and host, in the form "distlock_<user>@<host>". It is lazy and
// pure, computed per acquisition rather than cached at library-load
// time, per Design Note §9.
func ownerString(user, host string) string {
	if user == "" {
		user = "unknown"
	}
	if host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("distlock_%s@%s", user, host)
}

// newAttemptID returns a short correlation id for log lines emitted
// during a single acquisition attempt, so concurrent attempts against
// the same lock id can be told apart in logs.
func newAttemptID() string {
	return uuid.NewString()
}
