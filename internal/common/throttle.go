package common

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Throttle applies a restriction independently per key, keeping a
// short history of allowed requests for each one. It rejects fast:
// a request over the limit is refused, never queued
type Throttle struct {
	mu          sync.Mutex
	restriction Restriction
	history     map[string][]time.Time
}

func NewThrottle(restriction Restriction) *Throttle {
	return &Throttle{
		restriction: restriction,
		history:     map[string][]time.Time{},
	}
}

// Decide if a request for this key is allowed now. Allowed requests
// enter the key's history; rejected ones do not
func (t *Throttle) Allow(key string) bool {

	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	history := t.trim(key, now)
	if !t.restriction.Allows(history, now) {
		log.Warn().Str("key", key).Msg("Throttling request")
		return false
	}
	t.history[key] = append(history, now)
	return true
}

// Trim the key's history, leaving only the requests that are young
// enough to still count against the restriction
func (t *Throttle) trim(key string, now time.Time) []time.Time {
	history := t.history[key]
	index := 0
	for i := len(history) - 1; i >= 0; i-- {
		if now.Sub(history[i]) > t.restriction.Duration {
			index = i + 1
			break
		}
	}
	history = history[index:]
	if len(history) == 0 {
		delete(t.history, key)
	} else {
		t.history[key] = history
	}
	return history
}
