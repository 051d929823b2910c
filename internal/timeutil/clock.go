package timeutil

import "time"

// DefaultOffsetHours is the fixed UTC offset the service operates in (KST).
const DefaultOffsetHours = 9

// Clock is the single time source for "now" timestamps. Implementations
// report naive local instants in the same representation Parse produces.
type Clock interface {
	Now() time.Time
}

// FixedOffsetClock reports wall-clock time at a fixed offset from UTC.
type FixedOffsetClock struct {
	offset time.Duration
}

// NewClock builds a clock at the given UTC offset in hours.
func NewClock(offsetHours int) FixedOffsetClock {
	return FixedOffsetClock{offset: time.Duration(offsetHours) * time.Hour}
}

// Now returns the current naive local instant.
func (c FixedOffsetClock) Now() time.Time {
	return time.Now().UTC().Add(c.offset)
}

// FixedClock always reports the same instant. Tests inject it wherever a
// Clock or now-func is expected.
type FixedClock struct {
	Instant time.Time
}

// Now returns the fixed instant.
func (c FixedClock) Now() time.Time {
	return c.Instant
}
