package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestThrottleRejectsOverLimit(t *testing.T) {

	throttle := NewThrottle(Restriction{Requests: 3, Duration: time.Hour})

	for i := 0; i < 3; i++ {
		assert.True(t, throttle.Allow("alice"), "request %d", i+1)
	}
	assert.False(t, throttle.Allow("alice"))

	// Rejected requests do not extend the history
	assert.False(t, throttle.Allow("alice"))
}

func TestThrottleKeysAreIndependent(t *testing.T) {

	throttle := NewThrottle(Restriction{Requests: 1, Duration: time.Hour})

	assert.True(t, throttle.Allow("alice"))
	assert.False(t, throttle.Allow("alice"))
	assert.True(t, throttle.Allow("bob"))
}

func TestThrottleRecoversAfterWindow(t *testing.T) {

	throttle := NewThrottle(Restriction{Requests: 1, Duration: 50 * time.Millisecond})

	assert.True(t, throttle.Allow("alice"))
	assert.False(t, throttle.Allow("alice"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, throttle.Allow("alice"))
}

func TestRestrictionCountsOnlyRecentRequests(t *testing.T) {

	restriction := Restriction{Requests: 2, Duration: time.Minute}
	now := time.Now()
	history := []time.Time{
		now.Add(-2 * time.Minute),
		now.Add(-30 * time.Second),
	}

	// The old request no longer counts, so one slot remains
	assert.True(t, restriction.Allows(history, now))

	history = append(history, now.Add(-10*time.Second))
	assert.False(t, restriction.Allows(history, now))
}
