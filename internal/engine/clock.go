package engine

import "time"

// Clock abstracts time.Now() so "today" is always an explicit input.
// Resolvers never read the wall clock; callers at the boundary pass a Clock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the standard time package.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time {
	return time.Now()
}

// FixedClock always reports the same instant. Used by the CLI --today flag and tests.
type FixedClock struct {
	At time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.At
}
