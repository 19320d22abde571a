package distlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGUID_SizeAndFreshness(t *testing.T) {
	a, err := newGUID()
	require.NoError(t, err)
	assert.Len(t, a, guidSize)

	b, err := newGUID()
	require.NoError(t, err)
	assert.Len(t, b, guidSize)

	ra := Record{GUID: a}
	rb := Record{GUID: b}
	assert.True(t, ra.hasFreshGUID(rb), "two independently generated guids must differ")
	assert.False(t, ra.hasFreshGUID(Record{GUID: a}), "a guid is never fresh relative to itself")
}

func TestNewGUID_NoRepeatsAcrossManySamples(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 256; i++ {
		g, err := newGUID()
		require.NoError(t, err)
		key := string(g)
		assert.False(t, seen[key], "unexpected guid collision")
		seen[key] = true
	}
}

func TestOwnerString(t *testing.T) {
	assert.Equal(t, "distlock_alice@host1", ownerString("alice", "host1"))
	assert.Equal(t, "distlock_unknown@host1", ownerString("", "host1"))
	assert.Equal(t, "distlock_alice@unknown", ownerString("alice", ""))
	assert.Equal(t, "distlock_unknown@unknown", ownerString("", ""))
}

func TestNewAttemptID_IsUniqueAndNonEmpty(t *testing.T) {
	a := newAttemptID()
	b := newAttemptID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}
