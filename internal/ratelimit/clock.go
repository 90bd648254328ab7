package ratelimit

import "time"

// Clock provides current time and timers.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

// RealClock is the default clock.
type RealClock struct{}

// Now returns current time.
func (RealClock) Now() time.Time { return time.Now() }

// After waits for the duration to elapse.
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
