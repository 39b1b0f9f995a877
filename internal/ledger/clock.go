package ledger

import "time"

// Source of "now" for expiry computations. Injected so tests can pin
// time to a known instant.
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now()
}
