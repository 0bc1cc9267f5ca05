package core

import "time"

// Clock abstracts wall-clock access so that replaying the same command
// sequence reproduces identical trade timestamps.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time { return time.Now() }

// FixedClock implements Clock returning a constant instant. Useful for
// deterministic replays and tests.
type FixedClock struct {
	T time.Time
}

// Now returns the fixed instant
func (c FixedClock) Now() time.Time { return c.T }
