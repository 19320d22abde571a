package distlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCommonConfig_SetDefaults(t *testing.T) {
	c := CommonConfig{}
	c.setDefaults()
	assert.EqualValues(t, defaultRetryCount, c.RetryCount)
	assert.NotNil(t, c.Logger)

	c2 := CommonConfig{RetryCount: 5}
	c2.setDefaults()
	assert.EqualValues(t, 5, c2.RetryCount)
}

func TestCommonConfig_Validate(t *testing.T) {
	assert.Error(t, (&CommonConfig{}).validate())
	assert.Error(t, (&CommonConfig{Store: newMockStore()}).validate())
	assert.NoError(t, (&CommonConfig{Store: newMockStore(), PartitionKeyName: "id"}).validate())
}

func TestCommonConfig_OwnerOrDefault(t *testing.T) {
	c := CommonConfig{Owner: "explicit"}
	assert.Equal(t, "explicit", c.ownerOrDefault())

	c2 := CommonConfig{User: "bob", Host: "h"}
	assert.Equal(t, "distlock_bob@h", c2.ownerOrDefault())
}

func TestFailClosedConfig_Validate(t *testing.T) {
	base := CommonConfig{Store: newMockStore(), PartitionKeyName: "id"}

	assert.Error(t, (&FailClosedConfig{CommonConfig: base}).validate())
	assert.NoError(t, (&FailClosedConfig{CommonConfig: base, AcquirePeriod: time.Millisecond}).validate())
}

func TestFailClosedConfig_SetDefaults(t *testing.T) {
	c := FailClosedConfig{}
	c.setDefaults()
	assert.Equal(t, 24*time.Hour, c.DefaultExpiresIn)

	c2 := FailClosedConfig{DefaultExpiresIn: time.Minute}
	c2.setDefaults()
	assert.Equal(t, time.Minute, c2.DefaultExpiresIn)
}

func TestFailOpenConfig_Validate(t *testing.T) {
	base := CommonConfig{Store: newMockStore(), PartitionKeyName: "id"}

	assert.Error(t, (&FailOpenConfig{CommonConfig: base}).validate())
	assert.Error(t, (&FailOpenConfig{CommonConfig: base, LeaseDuration: time.Second, HeartbeatPeriod: -time.Second}).validate())
	assert.NoError(t, (&FailOpenConfig{CommonConfig: base, LeaseDuration: time.Second}).validate())
}

func TestWithExpiresAt(t *testing.T) {
	var o acquireOptions
	WithExpiresAt(12345)(&o)
	assert.True(t, o.hasExpiresAt)
	assert.EqualValues(t, 12345, o.expiresAt)
}
